// Package marketing aggregates the user's paid campaigns into the
// totals and rates shown on the marketing panel.
package marketing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()
)

const (
	opServiceNew = "marketing.service.new"
	opMetrics    = "marketing.metrics"
	opRecord     = "marketing.record"
)

// ServiceError carries a dotted operation code alongside the underlying cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// IDProvider supplies identifiers for new records.
type IDProvider interface {
	NewID() (string, error)
}

// ServiceConfig describes the dependencies required by the marketing service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service computes campaign metrics over per-user records.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

// NewService validates dependencies and constructs the service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{db: cfg.Database, clock: clock, idProvider: cfg.IDProvider, logger: logger}, nil
}

// RecordInput carries the fields accepted when recording a campaign.
type RecordInput struct {
	Name        string
	Platform    string
	Status      string
	Spend       float64
	Impressions int64
	Clicks      int64
	Conversions int64
	StartDate   string
	EndDate     string
}

// Record stores a new campaign. Status defaults to active, the start
// date to the current day.
func (s *Service) Record(ctx context.Context, userID string, input RecordInput) (Campaign, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Campaign{}, fmt.Errorf("%w: name is required", ErrValidation)
	}
	platform := strings.TrimSpace(input.Platform)
	if platform == "" {
		return Campaign{}, fmt.Errorf("%w: platform is required", ErrValidation)
	}

	status := input.Status
	if status == "" {
		status = StatusActive
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opRecord, "id_generation_failed", err)
		return Campaign{}, newServiceError(opRecord, "id_generation_failed", err)
	}

	now := s.clock().UTC()
	startDate := strings.TrimSpace(input.StartDate)
	if startDate == "" {
		startDate = now.Format("2006-01-02")
	}
	campaign := Campaign{
		ID:          id,
		UserID:      userID,
		Name:        name,
		Platform:    platform,
		Status:      status,
		Spend:       input.Spend,
		Impressions: input.Impressions,
		Clicks:      input.Clicks,
		Conversions: input.Conversions,
		StartDate:   startDate,
		EndDate:     input.EndDate,
		CreatedAt:   now.Format(time.RFC3339),
	}
	if err := s.db.WithContext(ctx).Create(&campaign).Error; err != nil {
		s.logError(opRecord, "insert_failed", err, zap.String("user_id", userID))
		return Campaign{}, newServiceError(opRecord, "insert_failed", err)
	}
	return campaign, nil
}

// Metrics sums the user's campaign counters and derives the click
// through and conversion rates.
func (s *Service) Metrics(ctx context.Context, userID string) (Metrics, error) {
	var campaigns []Campaign
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("start_date DESC").
		Find(&campaigns).Error
	if err != nil {
		s.logError(opMetrics, "query_failed", err, zap.String("user_id", userID))
		return Metrics{}, newServiceError(opMetrics, "query_failed", err)
	}
	if campaigns == nil {
		campaigns = []Campaign{}
	}

	metrics := Metrics{Campaigns: campaigns}
	for _, campaign := range campaigns {
		metrics.TotalSpend += campaign.Spend
		metrics.TotalImpressions += campaign.Impressions
		metrics.TotalClicks += campaign.Clicks
		metrics.TotalConversions += campaign.Conversions
	}
	if metrics.TotalImpressions > 0 {
		metrics.ClickThroughRate = float64(metrics.TotalClicks) / float64(metrics.TotalImpressions)
	}
	if metrics.TotalClicks > 0 {
		metrics.ConversionRate = float64(metrics.TotalConversions) / float64(metrics.TotalClicks)
	}
	return metrics, nil
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("marketing service error", attrs...)
}
