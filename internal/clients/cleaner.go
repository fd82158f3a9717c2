package clients

import (
	"context"
	"errors"
	"strings"

	"github.com/HeroHubLab/herohub/backend/internal/llm"
)

// ErrEmptyCSV indicates the cleaning request carried no CSV text.
var ErrEmptyCSV = errors.New("clients: csv text is required")

const cleaningSystemPrompt = `You are a data cleaning assistant. Convert raw CSV containing contacts into clean JSON.
Return ONLY JSON, no extra text. Schema:
{
  "contacts": [
    { "name": "string", "email": "string", "phone": "string|optional", "newsletterSubscribed": "boolean|optional", "events": "string[]|optional" }
  ]
}
Rules:
- Accept header variations: name/fullname/firstname+lastname, email/emailaddress, phone/phoneNumber, newsletter/subscribed/registeredForNewsletter, event/eventname/events
- If first/last name provided, combine to "name" as "First Last"
- Trim whitespace, fix casing, validate emails, infer missing newsletter as false
- Normalize phone by removing formatting; preserve leading + if present
- For "events" accept single name or multiple (split on ';' or '|'). Always return an array (unique, trimmed).
- Remove duplicates by email (keep the first)
- Exclude rows missing name or email or invalid email`

// CleanerConfig wires the completion provider into the CSV cleaner.
type CleanerConfig struct {
	Completer llm.Completer
	Model     string
}

// Cleaner turns a raw CSV blob into normalized contacts via the cleaning
// model followed by local validation and deduplication.
type Cleaner struct {
	completer llm.Completer
	model     string
}

// NewCleaner constructs the cleaner.
func NewCleaner(cfg CleanerConfig) *Cleaner {
	return &Cleaner{completer: cfg.Completer, model: cfg.Model}
}

// Clean sends the CSV to the cleaning model, recovers the JSON payload and
// normalizes it. Fails with ErrNoValidRows when nothing valid survives.
func (c *Cleaner) Clean(ctx context.Context, csv string) ([]Contact, error) {
	if strings.TrimSpace(csv) == "" {
		return nil, ErrEmptyCSV
	}

	content, err := c.completer.Complete(ctx, llm.Request{
		Model: c.model,
		Messages: []llm.Message{
			llm.TextMessage("system", cleaningSystemPrompt),
			llm.TextMessage("user", "CSV:\n"+csv),
		},
		Temperature:    0,
		ResponseFormat: &llm.Format{Type: "json_object"},
	})
	if err != nil {
		return nil, err
	}

	payload, err := llm.ExtractJSONObject(content)
	if err != nil {
		return nil, err
	}

	contacts := NormalizeContacts(payload)
	if len(contacts) == 0 {
		return nil, ErrNoValidRows
	}
	return contacts, nil
}
