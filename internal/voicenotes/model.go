package voicenotes

import (
	"errors"

	"github.com/HeroHubLab/herohub/backend/internal/llm"
)

var (
	// ErrNotFound indicates the session does not exist or belongs to
	// another user.
	ErrNotFound = errors.New("voicenotes: session not found")
	// ErrValidation indicates missing required fields.
	ErrValidation = errors.New("voicenotes: validation failed")
)

// Session is one dictation session with its summarization aggregates.
type Session struct {
	ID            string     `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	UserID        string     `gorm:"column:user_id;size:190;not null;index" json:"userId"`
	Title         string     `gorm:"column:title;size:320;not null" json:"title"`
	CreatedAt     string     `gorm:"column:created_at;size:64;not null" json:"createdAt"`
	UpdatedAt     string     `gorm:"column:updated_at;size:64;not null" json:"updatedAt"`
	LastSummary   string     `gorm:"column:last_summary;type:text" json:"lastSummary"`
	Summary       string     `gorm:"column:summary;type:text" json:"summary,omitempty"`
	Tasks         []llm.Task `gorm:"column:tasks;type:text;serializer:json" json:"tasks,omitempty"`
	LastTaskCount int        `gorm:"column:last_task_count;not null;default:0" json:"lastTaskCount"`
	TotalEntries  int        `gorm:"column:total_entries;not null;default:0" json:"totalEntries"`
}

// TableName provides the explicit table binding for GORM.
func (Session) TableName() string {
	return "voice_note_sessions"
}

// Entry is one transcribed line of speech.
type Entry struct {
	ID        string `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	SessionID string `gorm:"column:session_id;size:190;not null;index" json:"-"`
	Text      string `gorm:"column:text;type:text;not null" json:"text"`
	CreatedAt string `gorm:"column:created_at;size:64;not null" json:"createdAt"`
}

// TableName provides the explicit table binding for GORM.
func (Entry) TableName() string {
	return "voice_note_entries"
}
