// Package llm implements the chat-completion provider boundary against an
// OpenRouter-compatible HTTP API, plus defensive parsing of model output.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://openrouter.ai/api/v1/chat/completions"
	defaultTimeout = 90 * time.Second

	// DetailLow asks vision models for a cheap low-resolution pass.
	DetailLow = "low"
	// DetailAuto lets the provider pick the image resolution.
	DetailAuto = "auto"
)

var (
	// ErrMissingAPIKey indicates no provider credential is configured.
	ErrMissingAPIKey = errors.New("llm: api key not configured")
	// ErrEmptyContent indicates the provider returned no usable text.
	ErrEmptyContent = errors.New("llm: no content returned")
)

// UpstreamError carries the provider status and raw body for classification.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("llm: upstream error (%d): %s", e.StatusCode, e.Body)
}

// Message is one chat turn. Content is either a plain string or a list of
// Part values for multimodal requests.
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// Part is one element of a multimodal message.
type Part struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL references an image (typically a data URL) with a detail knob.
type ImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

// TextMessage builds a plain text chat turn.
func TextMessage(role, content string) Message {
	return Message{Role: role, Content: content}
}

// Request describes one completion call.
type Request struct {
	Model          string    `json:"model"`
	Messages       []Message `json:"messages"`
	Temperature    float64   `json:"temperature"`
	MaxTokens      int       `json:"max_tokens,omitempty"`
	Route          string    `json:"route,omitempty"`
	ResponseFormat *Format   `json:"response_format,omitempty"`
}

// Format requests a structured response shape from the provider.
type Format struct {
	Type string `json:"type"`
}

// WithImageDetail returns a copy of the request with every image part's
// detail knob replaced.
func (r Request) WithImageDetail(detail string) Request {
	messages := make([]Message, len(r.Messages))
	for i, message := range r.Messages {
		parts, ok := message.Content.([]Part)
		if !ok {
			messages[i] = message
			continue
		}
		copied := make([]Part, len(parts))
		for j, part := range parts {
			if part.ImageURL != nil {
				image := *part.ImageURL
				image.Detail = detail
				part.ImageURL = &image
			}
			copied[j] = part
		}
		messages[i] = Message{Role: message.Role, Content: copied}
	}
	r.Messages = messages
	return r
}

// WithModel returns a copy of the request targeting a different model.
func (r Request) WithModel(model string) Request {
	r.Model = model
	return r
}

// Completer is the narrow interface services depend on.
type Completer interface {
	Complete(ctx context.Context, request Request) (string, error)
}

// ClientConfig configures the HTTP completion client.
type ClientConfig struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client posts completion requests to an OpenRouter-compatible endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient constructs the completion client; the API key may be empty, in
// which case every call fails with ErrMissingAPIKey.
func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		httpClient: httpClient,
		logger:     logger,
	}
}

// Configured reports whether a provider credential is present.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Content string `json:"content"`
	} `json:"choices"`
}

// Complete performs one completion call and extracts the text content,
// tolerating the response shape variations seen across providers.
func (c *Client) Complete(ctx context.Context, request Request) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingAPIKey
	}

	payload, err := json.Marshal(request)
	if err != nil {
		return "", err
	}

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	httpRequest.Header.Set("Authorization", "Bearer "+c.apiKey)

	response, err := c.httpClient.Do(httpRequest)
	if err != nil {
		return "", err
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return "", err
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return "", &UpstreamError{StatusCode: response.StatusCode, Body: string(body)}
	}

	var decoded completionResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		c.logger.Debug("completion response not json", zap.Error(err))
		return "", ErrEmptyContent
	}

	content := extractContent(decoded)
	if content == "" {
		return "", ErrEmptyContent
	}
	return content, nil
}

func extractContent(decoded completionResponse) string {
	if len(decoded.Choices) == 0 {
		return ""
	}

	first := decoded.Choices[0]
	if text := strings.TrimSpace(first.Message.Content); text != "" {
		return text
	}
	if text := strings.TrimSpace(first.Content); text != "" {
		return text
	}

	fragments := make([]string, 0, len(decoded.Choices))
	for _, choice := range decoded.Choices {
		if text := strings.TrimSpace(choice.Message.Content); text != "" {
			fragments = append(fragments, text)
			continue
		}
		if text := strings.TrimSpace(choice.Content); text != "" {
			fragments = append(fragments, text)
		}
	}
	return strings.TrimSpace(strings.Join(fragments, " "))
}
