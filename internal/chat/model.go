package chat

import "errors"

var (
	// ErrNotFound indicates the conversation does not exist.
	ErrNotFound = errors.New("chat: conversation not found")
	// ErrForbidden indicates the conversation belongs to another user.
	ErrForbidden = errors.New("chat: conversation owned by another user")
	// ErrValidation indicates missing required fields.
	ErrValidation = errors.New("chat: validation failed")
)

// Conversation groups a thread of assistant messages.
type Conversation struct {
	ID           string `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	UserID       string `gorm:"column:user_id;size:190;not null;index" json:"userId"`
	Title        string `gorm:"column:title;size:320;not null" json:"title"`
	MessageCount int    `gorm:"column:message_count;not null;default:0" json:"messageCount"`
	CreatedAt    string `gorm:"column:created_at;size:64;not null" json:"createdAt"`
	UpdatedAt    string `gorm:"column:updated_at;size:64;not null" json:"updatedAt"`
}

// TableName provides the explicit table binding for GORM.
func (Conversation) TableName() string {
	return "conversations"
}

// Message is one stored turn of a conversation.
type Message struct {
	ID             string `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	ConversationID string `gorm:"column:conversation_id;size:190;not null;index" json:"conversationId"`
	UserID         string `gorm:"column:user_id;size:190;not null" json:"userId"`
	Role           string `gorm:"column:role;size:32;not null" json:"role"`
	Content        string `gorm:"column:content;type:text;not null" json:"content"`
	Timestamp      string `gorm:"column:timestamp;size:64;not null" json:"timestamp"`
	CreatedAt      string `gorm:"column:created_at;size:64;not null" json:"createdAt"`
}

// TableName provides the explicit table binding for GORM.
func (Message) TableName() string {
	return "conversation_messages"
}
