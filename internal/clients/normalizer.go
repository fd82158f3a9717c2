package clients

import (
	"regexp"
	"strings"
)

var (
	nonDigits      = regexp.MustCompile(`\D+`)
	eventSeparator = regexp.MustCompile(`[;|]+`)
)

// NormalizeContacts turns an arbitrary decoded JSON payload (an array or a
// {contacts: [...]} object, typically produced by the cleaning model) into
// validated contact records deduplicated by lowercase email. Rows missing a
// name or a plausible email are dropped silently; for repeated emails only
// the first occurrence survives.
func NormalizeContacts(payload any) []Contact {
	items := contactItems(payload)

	out := make([]Contact, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		row, ok := item.(map[string]any)
		if !ok || row == nil {
			continue
		}

		name := strings.TrimSpace(stringField(row, "name"))
		email := strings.ToLower(strings.TrimSpace(stringField(row, "email")))
		if name == "" || email == "" || !strings.Contains(email, "@") {
			continue
		}
		if _, dup := seen[email]; dup {
			continue
		}
		seen[email] = struct{}{}

		value, explicit := parseNewsletter(row["newsletterSubscribed"])
		out = append(out, Contact{
			Name:                 name,
			Email:                email,
			Phone:                NormalizePhone(stringField(row, "phone")),
			NewsletterSubscribed: OptionalBool{Value: value, Explicit: explicit},
			Events:               SplitEvents(rawEvents(row)),
		})
	}

	return out
}

// NormalizePhone strips everything but digits, keeping a single leading +.
// An empty result after stripping means the phone is absent.
func NormalizePhone(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	keepPlus := strings.HasPrefix(trimmed, "+")
	digits := nonDigits.ReplaceAllString(trimmed, "")
	if digits == "" {
		return ""
	}
	if keepPlus {
		return "+" + digits
	}
	return digits
}

// SplitEvents accepts an event list or a single string split on ';' or '|'
// (never on hyphens, so names like "Class - 11/15/25" survive intact), then
// trims, drops empties and deduplicates keeping first occurrence order.
func SplitEvents(raw any) []string {
	var candidates []string
	switch value := raw.(type) {
	case nil:
		return []string{}
	case []string:
		candidates = value
	case []any:
		for _, item := range value {
			if text, ok := item.(string); ok {
				candidates = append(candidates, text)
			}
		}
	case string:
		candidates = eventSeparator.Split(value, -1)
	default:
		return []string{}
	}

	seen := make(map[string]struct{}, len(candidates))
	events := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		trimmed := strings.TrimSpace(candidate)
		if trimmed == "" {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		events = append(events, trimmed)
	}
	return events
}

func contactItems(payload any) []any {
	switch value := payload.(type) {
	case []any:
		return value
	case map[string]any:
		if items, ok := value["contacts"].([]any); ok {
			return items
		}
	}
	return nil
}

func stringField(row map[string]any, key string) string {
	value, ok := row[key]
	if !ok || value == nil {
		return ""
	}
	if text, ok := value.(string); ok {
		return text
	}
	return ""
}

func parseNewsletter(raw any) (value bool, explicit bool) {
	switch typed := raw.(type) {
	case bool:
		return typed, true
	case string:
		_, truthy := truthyStrings[strings.ToLower(strings.TrimSpace(typed))]
		return truthy, false
	default:
		return false, false
	}
}

func rawEvents(row map[string]any) any {
	for _, key := range []string{"events", "eventName", "event", "event_name"} {
		if value, ok := row[key]; ok && value != nil {
			return value
		}
	}
	return nil
}
