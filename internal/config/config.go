package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix            = "HEROHUB"
	defaultHTTPAddress   = "0.0.0.0:8080"
	defaultDatabasePath  = "herohub.db"
	defaultLogLevel      = "info"
	defaultJWKSURL       = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"
	defaultCompletionURL = "https://openrouter.ai/api/v1/chat/completions"
	defaultVisionModel   = "openai/gpt-5-mini"
	defaultFallbackModel = "openai/gpt-4o-mini"
	defaultChatModel     = "openai/gpt-4o-mini"
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress       string
	DatabasePath      string
	LogLevel          string
	SigningSecret     string
	FirebaseProjectID string
	FirebaseJWKSURL   string
	CompletionURL     string
	CompletionAPIKey  string
	VisionModel       string
	FallbackModel     string
	AllowFallback     bool
	ChatModel         string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("firebase.jwks_url", defaultJWKSURL)
	configViper.SetDefault("completion.url", defaultCompletionURL)
	configViper.SetDefault("completion.vision_model", defaultVisionModel)
	configViper.SetDefault("completion.fallback_model", defaultFallbackModel)
	configViper.SetDefault("completion.allow_fallback", true)
	configViper.SetDefault("completion.chat_model", defaultChatModel)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:       configViper.GetString("http.address"),
		DatabasePath:      configViper.GetString("database.path"),
		LogLevel:          configViper.GetString("log.level"),
		SigningSecret:     configViper.GetString("auth.signing_secret"),
		FirebaseProjectID: configViper.GetString("firebase.project_id"),
		FirebaseJWKSURL:   configViper.GetString("firebase.jwks_url"),
		CompletionURL:     configViper.GetString("completion.url"),
		CompletionAPIKey:  configViper.GetString("completion.api_key"),
		VisionModel:       configViper.GetString("completion.vision_model"),
		FallbackModel:     configViper.GetString("completion.fallback_model"),
		AllowFallback:     configViper.GetBool("completion.allow_fallback"),
		ChatModel:         configViper.GetString("completion.chat_model"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.SigningSecret) == "" {
		return fmt.Errorf("auth.signing_secret is required")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if strings.TrimSpace(c.FirebaseProjectID) == "" {
		return fmt.Errorf("firebase.project_id is required")
	}
	return nil
}
