package livenotes

import "errors"

var (
	// ErrNotFound indicates the session does not exist or belongs to
	// another user. Ownership failures are deliberately indistinguishable
	// from missing sessions.
	ErrNotFound = errors.New("livenotes: session not found")
	// ErrValidation indicates missing required fields.
	ErrValidation = errors.New("livenotes: validation failed")
)

// Session is one live-capture note-taking session.
type Session struct {
	ID          string `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	UserID      string `gorm:"column:user_id;size:190;not null;index" json:"userId"`
	Title       string `gorm:"column:title;size:320;not null" json:"title"`
	CreatedAt   string `gorm:"column:created_at;size:64;not null" json:"createdAt"`
	UpdatedAt   string `gorm:"column:updated_at;size:64;not null" json:"updatedAt"`
	LastSummary string `gorm:"column:last_summary;type:text" json:"lastSummary"`
	Summary     string `gorm:"column:summary;type:text" json:"summary,omitempty"`
	TotalShots  int    `gorm:"column:total_shots;not null;default:0" json:"totalShots"`
}

// TableName provides the explicit table binding for GORM.
func (Session) TableName() string {
	return "live_note_sessions"
}

// Shot is one captured screenshot plus the model's interpretation of it.
type Shot struct {
	ID             string `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	SessionID      string `gorm:"column:session_id;size:190;not null;index" json:"-"`
	ImageDataURL   string `gorm:"column:image_data_url;type:text;not null" json:"imageDataUrl"`
	Interpretation string `gorm:"column:interpretation;type:text" json:"interpretation"`
	CreatedAt      string `gorm:"column:created_at;size:64;not null" json:"createdAt"`
}

// TableName provides the explicit table binding for GORM.
func (Shot) TableName() string {
	return "live_note_shots"
}
