package clients

import (
	"context"
	"errors"
	"testing"

	"github.com/HeroHubLab/herohub/backend/internal/llm"
)

type fakeCompleter struct {
	content  string
	err      error
	requests []llm.Request
}

func (f *fakeCompleter) Complete(_ context.Context, request llm.Request) (string, error) {
	f.requests = append(f.requests, request)
	return f.content, f.err
}

func TestCleanNormalizesAndDeduplicates(t *testing.T) {
	completer := &fakeCompleter{content: `{
		"contacts": [
			{"name": "Dana Reeve", "email": "Dana@Example.com", "phone": "+1 (555) 123-4567", "events": "Gala 2026; Spring Workshop"},
			{"name": "Duplicate", "email": "dana@example.com"},
			{"name": "", "email": "anon@example.com"},
			{"name": "Pat Doe", "email": "pat@example.com", "newsletterSubscribed": true}
		]
	}`}
	cleaner := NewCleaner(CleanerConfig{Completer: completer, Model: "clean-model"})

	contacts, err := cleaner.Clean(context.Background(), "name,email\nDana,dana@example.com")
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	if len(contacts) != 2 {
		t.Fatalf("expected 2 contacts after dedupe and validation, got %d", len(contacts))
	}
	first := contacts[0]
	if first.Email != "dana@example.com" {
		t.Fatalf("expected lowercased email, got %q", first.Email)
	}
	if first.Phone != "+15551234567" {
		t.Fatalf("expected normalized phone, got %q", first.Phone)
	}
	if len(first.Events) != 2 {
		t.Fatalf("expected events split on semicolon, got %v", first.Events)
	}
	second := contacts[1]
	if !second.NewsletterSubscribed.Value || !second.NewsletterSubscribed.Explicit {
		t.Fatalf("expected explicit newsletter flag, got %+v", second.NewsletterSubscribed)
	}

	if len(completer.requests) != 1 {
		t.Fatalf("expected one completion call, got %d", len(completer.requests))
	}
	request := completer.requests[0]
	if request.Model != "clean-model" {
		t.Fatalf("unexpected model: %q", request.Model)
	}
	if request.ResponseFormat == nil || request.ResponseFormat.Type != "json_object" {
		t.Fatalf("expected json_object response format, got %+v", request.ResponseFormat)
	}
}

func TestCleanRecoversJSONWrappedInProse(t *testing.T) {
	completer := &fakeCompleter{content: "Here is the cleaned data:\n" +
		`{"contacts": [{"name": "Dana", "email": "dana@example.com"}]}` +
		"\nLet me know if you need anything else."}
	cleaner := NewCleaner(CleanerConfig{Completer: completer})

	contacts, err := cleaner.Clean(context.Background(), "name,email\nDana,dana@example.com")
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	if len(contacts) != 1 || contacts[0].Name != "Dana" {
		t.Fatalf("unexpected contacts: %+v", contacts)
	}
}

func TestCleanRejectsEmptyCSV(t *testing.T) {
	cleaner := NewCleaner(CleanerConfig{Completer: &fakeCompleter{}})

	if _, err := cleaner.Clean(context.Background(), "   "); !errors.Is(err, ErrEmptyCSV) {
		t.Fatalf("expected ErrEmptyCSV, got %v", err)
	}
}

func TestCleanFailsWhenNothingSurvives(t *testing.T) {
	completer := &fakeCompleter{content: `{"contacts": [{"name": "", "email": "not-an-email"}]}`}
	cleaner := NewCleaner(CleanerConfig{Completer: completer})

	if _, err := cleaner.Clean(context.Background(), "garbage"); !errors.Is(err, ErrNoValidRows) {
		t.Fatalf("expected ErrNoValidRows, got %v", err)
	}
}
