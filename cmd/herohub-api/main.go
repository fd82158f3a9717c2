package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/HeroHubLab/herohub/backend/internal/accounts"
	"github.com/HeroHubLab/herohub/backend/internal/auth"
	"github.com/HeroHubLab/herohub/backend/internal/chat"
	"github.com/HeroHubLab/herohub/backend/internal/clients"
	"github.com/HeroHubLab/herohub/backend/internal/config"
	"github.com/HeroHubLab/herohub/backend/internal/database"
	"github.com/HeroHubLab/herohub/backend/internal/finance"
	"github.com/HeroHubLab/herohub/backend/internal/livenotes"
	"github.com/HeroHubLab/herohub/backend/internal/llm"
	"github.com/HeroHubLab/herohub/backend/internal/logging"
	"github.com/HeroHubLab/herohub/backend/internal/marketing"
	"github.com/HeroHubLab/herohub/backend/internal/notes"
	"github.com/HeroHubLab/herohub/backend/internal/server"
	"github.com/HeroHubLab/herohub/backend/internal/tasks"
	"github.com/HeroHubLab/herohub/backend/internal/voicenotes"
	"github.com/HeroHubLab/herohub/backend/internal/workspace"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "herohub-api",
		Short: "Hero Hub business dashboard backend service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("firebase-project-id", defaults.GetString("firebase.project_id"), "Firebase project ID")
	cmd.PersistentFlags().String("firebase-jwks-url", defaults.GetString("firebase.jwks_url"), "Firebase JWKS URL")
	cmd.PersistentFlags().String("completion-url", defaults.GetString("completion.url"), "Completion provider endpoint")
	cmd.PersistentFlags().String("vision-model", defaults.GetString("completion.vision_model"), "Vision model for screenshot interpretation")
	cmd.PersistentFlags().String("fallback-model", defaults.GetString("completion.fallback_model"), "Fallback completion model")
	cmd.PersistentFlags().String("chat-model", defaults.GetString("completion.chat_model"), "Chat completion model")
	cmd.PersistentFlags().Bool("allow-fallback", defaults.GetBool("completion.allow_fallback"), "Allow fallback-model retries")
	cmd.PersistentFlags().String("signing-secret", "", "Backend signing secret (overrides env)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "firebase.project_id", "firebase-project-id")
	bindFlag(cmd, "firebase.jwks_url", "firebase-jwks-url")
	bindFlag(cmd, "completion.url", "completion-url")
	bindFlag(cmd, "completion.vision_model", "vision-model")
	bindFlag(cmd, "completion.fallback_model", "fallback-model")
	bindFlag(cmd, "completion.chat_model", "chat-model")
	bindFlag(cmd, "completion.allow_fallback", "allow-fallback")
	bindFlag(cmd, "auth.signing_secret", "signing-secret")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		// An explicit --config must exist and parse. Without one, a missing
		// default config file is fine but a malformed one is not.
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	tokenManager := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(appConfig.SigningSecret),
		Issuer:        "herohub-auth",
		Audience:      "herohub-api",
	})

	firebaseVerifier, err := auth.NewFirebaseVerifier(auth.FirebaseVerifierConfig{
		ProjectID: appConfig.FirebaseProjectID,
		JWKSURL:   appConfig.FirebaseJWKSURL,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	completer := llm.NewClient(llm.ClientConfig{
		BaseURL: appConfig.CompletionURL,
		APIKey:  appConfig.CompletionAPIKey,
		Logger:  logger,
	})
	ids := database.NewUUIDProvider()

	accountsService, err := accounts.NewService(accounts.ServiceConfig{
		Database:   db,
		Clock:      time.Now,
		IDProvider: ids,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	clientsService, err := clients.NewService(clients.ServiceConfig{
		Database:   db,
		Clock:      time.Now,
		IDProvider: ids,
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	cleaner := clients.NewCleaner(clients.CleanerConfig{
		Completer: completer,
		Model:     appConfig.ChatModel,
	})

	aggregator, err := workspace.NewAggregator(workspace.AggregatorConfig{
		Accounts: accountsService,
		Calendar: workspace.GoogleCalendarProvider{},
		Mail:     workspace.GoogleMailProvider{},
		Clock:    time.Now,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	liveNotesService, err := livenotes.NewService(livenotes.ServiceConfig{
		Database:      db,
		Clock:         time.Now,
		IDProvider:    ids,
		Completer:     completer,
		VisionModel:   appConfig.VisionModel,
		FallbackModel: appConfig.FallbackModel,
		AllowFallback: appConfig.AllowFallback,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	voiceNotesService, err := voicenotes.NewService(voicenotes.ServiceConfig{
		Database:   db,
		Clock:      time.Now,
		IDProvider: ids,
		Completer:  completer,
		Model:      appConfig.ChatModel,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	chatService, err := chat.NewService(chat.ServiceConfig{
		Database:   db,
		Clock:      time.Now,
		IDProvider: ids,
		Completer:  completer,
		Model:      appConfig.ChatModel,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	tasksService, err := tasks.NewService(tasks.ServiceConfig{
		Database:   db,
		Clock:      time.Now,
		IDProvider: ids,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	notesService, err := notes.NewService(notes.ServiceConfig{
		Database:   db,
		Clock:      time.Now,
		IDProvider: ids,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	financeService, err := finance.NewService(finance.ServiceConfig{
		Database:   db,
		Clock:      time.Now,
		IDProvider: ids,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	marketingService, err := marketing.NewService(marketing.ServiceConfig{
		Database:   db,
		Clock:      time.Now,
		IDProvider: ids,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		IdentityVerifier: firebaseVerifier,
		TokenManager:     tokenManager,
		Accounts:         accountsService,
		Clients:          clientsService,
		Cleaner:          cleaner,
		Workspace:        aggregator,
		LiveNotes:        liveNotesService,
		VoiceNotes:       voiceNotesService,
		Chat:             chatService,
		Tasks:            tasksService,
		Notes:            notesService,
		Finance:          financeService,
		Marketing:        marketingService,
		Clock:            time.Now,
		Logger:           logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
