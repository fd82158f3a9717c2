package tasks

import "errors"

var (
	// ErrNotFound indicates the task does not exist.
	ErrNotFound = errors.New("tasks: not found")
	// ErrForbidden indicates the task belongs to another user.
	ErrForbidden = errors.New("tasks: owned by another user")
	// ErrValidation indicates missing required fields.
	ErrValidation = errors.New("tasks: validation failed")
)

// Task is one todo item owned by a user. Order is the position assigned at
// creation time; clients may rewrite it when reordering.
type Task struct {
	ID        string `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	UserID    string `gorm:"column:user_id;size:190;not null;index" json:"userId"`
	Title     string `gorm:"column:title;size:640;not null" json:"title"`
	Completed bool   `gorm:"column:completed;not null;default:false" json:"completed"`
	Priority  string `gorm:"column:priority;size:16;not null;default:medium" json:"priority"`
	DueDate   string `gorm:"column:due_date;size:64" json:"dueDate,omitempty"`
	Order     int    `gorm:"column:position;not null;default:0" json:"order"`
	CreatedAt string `gorm:"column:created_at;size:64;not null" json:"createdAt"`
	UpdatedAt string `gorm:"column:updated_at;size:64;not null" json:"updatedAt"`
}

// TableName provides the explicit table binding for GORM.
func (Task) TableName() string {
	return "tasks"
}
