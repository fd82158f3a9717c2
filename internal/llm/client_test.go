package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientCompleteExtractsMessageContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer key-1" {
			t.Errorf("unexpected authorization header %q", got)
		}
		var request Request
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if request.Model != "test-model" {
			t.Errorf("unexpected model %q", request.Model)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{
				map[string]any{"message": map[string]any{"content": "  hello  "}},
			},
		})
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, APIKey: "key-1", HTTPClient: server.Client()})

	content, err := client.Complete(context.Background(), Request{
		Model:    "test-model",
		Messages: []Message{TextMessage("user", "hi")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if content != "hello" {
		t.Fatalf("unexpected content %q", content)
	}
}

func TestClientCompleteTolerantsBareChoiceContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"content": "bare"}},
		})
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, APIKey: "key", HTTPClient: server.Client()})

	content, err := client.Complete(context.Background(), Request{Model: "m"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if content != "bare" {
		t.Fatalf("unexpected content %q", content)
	}
}

func TestClientCompleteEmptyContentFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, APIKey: "key", HTTPClient: server.Client()})

	if _, err := client.Complete(context.Background(), Request{Model: "m"}); err == nil {
		t.Fatalf("expected error for empty choices")
	}
}

func TestClientCompleteSurfacesUpstreamStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, APIKey: "key", HTTPClient: server.Client()})

	_, err := client.Complete(context.Background(), Request{Model: "m"})
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if upstream.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("unexpected status %d", upstream.StatusCode)
	}
}

func TestClientCompleteRequiresAPIKey(t *testing.T) {
	client := NewClient(ClientConfig{})
	if client.Configured() {
		t.Fatalf("expected unconfigured client")
	}
	if _, err := client.Complete(context.Background(), Request{Model: "m"}); err != ErrMissingAPIKey {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestRequestWithImageDetailReplacesOnlyImages(t *testing.T) {
	request := Request{
		Model: "m",
		Messages: []Message{
			TextMessage("system", "watch the screen"),
			{Role: "user", Content: []Part{
				{Type: "text", Text: "what now"},
				{Type: "image_url", ImageURL: &ImageURL{URL: "data:image/png;base64,xyz", Detail: DetailLow}},
			}},
		},
	}

	relaxed := request.WithImageDetail(DetailAuto)

	parts := relaxed.Messages[1].Content.([]Part)
	if parts[1].ImageURL.Detail != DetailAuto {
		t.Fatalf("expected detail replaced, got %q", parts[1].ImageURL.Detail)
	}

	originalParts := request.Messages[1].Content.([]Part)
	if originalParts[1].ImageURL.Detail != DetailLow {
		t.Fatalf("original request mutated: %q", originalParts[1].ImageURL.Detail)
	}
}
