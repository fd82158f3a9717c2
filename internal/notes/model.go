package notes

import (
	"errors"

	"github.com/HeroHubLab/herohub/backend/internal/llm"
)

var (
	// ErrNotFound indicates the note does not exist.
	ErrNotFound = errors.New("notes: not found")
	// ErrForbidden indicates the note belongs to another user.
	ErrForbidden = errors.New("notes: owned by another user")
	// ErrValidation indicates missing required fields.
	ErrValidation = errors.New("notes: validation failed")
)

// Note is a quick capture dictated or typed by the user. Summary and
// SuggestedTasks are filled in later when the client requests post
// processing of the raw text.
type Note struct {
	ID             string     `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	UserID         string     `gorm:"column:user_id;size:190;not null;index" json:"userId"`
	Text           string     `gorm:"column:text;type:text;not null" json:"text"`
	Summary        string     `gorm:"column:summary;type:text" json:"summary,omitempty"`
	SuggestedTasks []llm.Task `gorm:"column:suggested_tasks;serializer:json" json:"suggestedTasks"`
	CreatedAt      string     `gorm:"column:created_at;size:64;not null" json:"createdAt"`
	UpdatedAt      string     `gorm:"column:updated_at;size:64;not null" json:"updatedAt"`
}

// TableName provides the explicit table binding for GORM.
func (Note) TableName() string {
	return "notes"
}
