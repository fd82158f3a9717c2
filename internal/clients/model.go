package clients

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// Status enumerates the lifecycle stages of a client record.
type Status string

const (
	StatusLead   Status = "lead"
	StatusActive Status = "active"
	StatusClosed Status = "closed"
)

var (
	// ErrNoValidRows indicates an import batch produced zero creatable rows.
	ErrNoValidRows = errors.New("clients: no valid rows")
	// ErrNotFound indicates the requested client record does not exist.
	ErrNotFound = errors.New("clients: not found")
	// ErrForbidden indicates the record exists but belongs to another user.
	ErrForbidden = errors.New("clients: forbidden")
	// ErrValidation indicates missing required fields.
	ErrValidation = errors.New("clients: validation failed")
)

// Client models a persisted CRM contact owned by a single user.
type Client struct {
	ID                   string   `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	UserID               string   `gorm:"column:user_id;size:190;not null;index:idx_clients_user_email,priority:1" json:"userId"`
	Name                 string   `gorm:"column:name;size:320;not null" json:"name"`
	Email                string   `gorm:"column:email;size:320;not null;index:idx_clients_user_email,priority:2" json:"email"`
	Phone                string   `gorm:"column:phone;size:64" json:"phone,omitempty"`
	Status               Status   `gorm:"column:status;size:16;not null;default:lead" json:"status"`
	Value                *float64 `gorm:"column:value" json:"value,omitempty"`
	Notes                string   `gorm:"column:notes;type:text" json:"notes,omitempty"`
	CreatedDate          string   `gorm:"column:created_date;size:64;not null" json:"createdDate"`
	LastContact          string   `gorm:"column:last_contact;size:64" json:"lastContact,omitempty"`
	ProjectCount         int      `gorm:"column:project_count;not null;default:0" json:"projectCount"`
	NewsletterSubscribed bool     `gorm:"column:newsletter_subscribed;not null;default:false" json:"newsletterSubscribed"`
	Events               Events   `gorm:"column:events;type:text;serializer:json" json:"events"`
}

// TableName provides the explicit table binding for GORM.
func (Client) TableName() string {
	return "clients"
}

// Events is a deduplicated, order-irrelevant set of tags stored as JSON text.
type Events []string

// Union merges additional tags into the set without disturbing existing entries.
func (e Events) Union(incoming []string) Events {
	seen := make(map[string]struct{}, len(e))
	merged := append(Events(nil), e...)
	for _, tag := range e {
		seen[tag] = struct{}{}
	}
	for _, tag := range incoming {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		merged = append(merged, trimmed)
	}
	return merged
}

// Contact is a normalized incoming row, either from the CSV cleaner or a
// direct import payload.
type Contact struct {
	Name                 string       `json:"name"`
	Email                string       `json:"email"`
	Phone                string       `json:"phone,omitempty"`
	Status               Status       `json:"status,omitempty"`
	Notes                string       `json:"notes,omitempty"`
	NewsletterSubscribed OptionalBool `json:"newsletterSubscribed"`
	Events               []string     `json:"events"`
}

// OptionalBool distinguishes an explicit JSON boolean from a coerced truthy
// string. Only explicit booleans may overwrite a stored value on re-import.
type OptionalBool struct {
	Value    bool
	Explicit bool
}

var truthyStrings = map[string]struct{}{
	"true": {}, "yes": {}, "y": {}, "1": {},
}

// UnmarshalJSON accepts booleans directly and maps the case-insensitive
// truthy string set to true; anything else is false and non-explicit.
func (b *OptionalBool) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*b = OptionalBool{}
		return nil
	}

	var direct bool
	if err := json.Unmarshal(trimmed, &direct); err == nil {
		*b = OptionalBool{Value: direct, Explicit: true}
		return nil
	}

	var text string
	if err := json.Unmarshal(trimmed, &text); err == nil {
		_, truthy := truthyStrings[strings.ToLower(strings.TrimSpace(text))]
		*b = OptionalBool{Value: truthy}
		return nil
	}

	*b = OptionalBool{}
	return nil
}

// MarshalJSON emits the plain boolean value.
func (b OptionalBool) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Value)
}
