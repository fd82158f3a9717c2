package finance

import "errors"

// ErrNotFound indicates the transaction does not exist.
var ErrNotFound = errors.New("finance: not found")

// ErrValidation indicates missing required fields.
var ErrValidation = errors.New("finance: validation failed")

// Transaction types.
const (
	TypeIncome  = "income"
	TypeExpense = "expense"
)

// Transaction statuses.
const (
	StatusCompleted = "completed"
	StatusPending   = "pending"
)

// Transaction is a single income or expense record tied to a user and
// optionally to one of their clients.
type Transaction struct {
	ID          string  `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	UserID      string  `gorm:"column:user_id;size:190;not null;index" json:"userId"`
	ClientID    string  `gorm:"column:client_id;size:190" json:"clientId,omitempty"`
	Amount      float64 `gorm:"column:amount;not null" json:"amount"`
	Date        string  `gorm:"column:date;size:64;not null" json:"date"`
	Type        string  `gorm:"column:type;size:16;not null" json:"type"`
	Status      string  `gorm:"column:status;size:16;not null" json:"status"`
	Description string  `gorm:"column:description;size:640" json:"description"`
	Category    string  `gorm:"column:category;size:190" json:"category,omitempty"`
	CreatedAt   string  `gorm:"column:created_at;size:64;not null" json:"createdAt"`
}

// TableName provides the explicit table binding for GORM.
func (Transaction) TableName() string {
	return "transactions"
}

// Metrics summarizes recent revenue for the dashboard's financial panel.
type Metrics struct {
	DailyRevenue       float64       `json:"dailyRevenue"`
	WeeklyRevenue      float64       `json:"weeklyRevenue"`
	MonthlyRevenue     float64       `json:"monthlyRevenue"`
	PipelineValue      float64       `json:"pipelineValue"`
	RecentTransactions []Transaction `json:"recentTransactions"`
}
