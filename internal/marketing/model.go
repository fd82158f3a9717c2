package marketing

import "errors"

// ErrValidation indicates missing required fields.
var ErrValidation = errors.New("marketing: validation failed")

// Campaign statuses.
const (
	StatusActive = "active"
	StatusPaused = "paused"
	StatusEnded  = "ended"
)

// Campaign is a single paid marketing campaign and its reported counters.
type Campaign struct {
	ID          string  `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	UserID      string  `gorm:"column:user_id;size:190;not null;index" json:"userId"`
	Name        string  `gorm:"column:name;size:320;not null" json:"name"`
	Platform    string  `gorm:"column:platform;size:190;not null" json:"platform"`
	Status      string  `gorm:"column:status;size:16;not null;default:active" json:"status"`
	Spend       float64 `gorm:"column:spend;not null;default:0" json:"spend"`
	Impressions int64   `gorm:"column:impressions;not null;default:0" json:"impressions"`
	Clicks      int64   `gorm:"column:clicks;not null;default:0" json:"clicks"`
	Conversions int64   `gorm:"column:conversions;not null;default:0" json:"conversions"`
	StartDate   string  `gorm:"column:start_date;size:64;not null" json:"startDate"`
	EndDate     string  `gorm:"column:end_date;size:64" json:"endDate,omitempty"`
	CreatedAt   string  `gorm:"column:created_at;size:64;not null" json:"createdAt"`
}

// TableName provides the explicit table binding for GORM.
func (Campaign) TableName() string {
	return "marketing_campaigns"
}

// Metrics summarizes campaign performance for the marketing panel. The
// rate fields are zero when their denominators are zero.
type Metrics struct {
	TotalSpend       float64    `json:"totalSpend"`
	TotalImpressions int64      `json:"totalImpressions"`
	TotalClicks      int64      `json:"totalClicks"`
	TotalConversions int64      `json:"totalConversions"`
	ClickThroughRate float64    `json:"clickThroughRate"`
	ConversionRate   float64    `json:"conversionRate"`
	Campaigns        []Campaign `json:"campaigns"`
}
