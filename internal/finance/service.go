// Package finance aggregates the user's income and expense records into
// the revenue metrics shown on the financial panel.
package finance

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const recentTransactionLimit = 10

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()
)

const (
	opServiceNew = "finance.service.new"
	opMetrics    = "finance.metrics"
	opRecord     = "finance.record"
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

// ServiceConfig describes the dependencies required by the finance service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service computes revenue metrics over per-user transactions.
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

// RecordInput carries the fields accepted when recording a transaction.
type RecordInput struct {
	ClientID    string
	Amount      float64
	Date        string
	Type        string
	Status      string
	Description string
	Category    string
}

// Record stores a new transaction. Type and status fall back to income
// and completed, the date to the current day.
func (s *Service) Record(ctx context.Context, userID string, input RecordInput) (Transaction, error) {
	if input.Amount == 0 {
		return Transaction{}, fmt.Errorf("%w: amount is required", ErrValidation)
	}

	txType := input.Type
	if txType == "" {
		txType = TypeIncome
	}
	if txType != TypeIncome && txType != TypeExpense {
		return Transaction{}, fmt.Errorf("%w: unknown type %q", ErrValidation, input.Type)
	}
	status := input.Status
	if status == "" {
		status = StatusCompleted
	}
	if status != StatusCompleted && status != StatusPending {
		return Transaction{}, fmt.Errorf("%w: unknown status %q", ErrValidation, input.Status)
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opRecord, "id_generation_failed", err)
		return Transaction{}, newServiceError(opRecord, "id_generation_failed", err)
	}

	now := s.clock().UTC()
	date := strings.TrimSpace(input.Date)
	if date == "" {
		date = now.Format(time.RFC3339)
	}
	transaction := Transaction{
		ID:          id,
		UserID:      userID,
		ClientID:    input.ClientID,
		Amount:      input.Amount,
		Date:        date,
		Type:        txType,
		Status:      status,
		Description: input.Description,
		Category:    input.Category,
		CreatedAt:   now.Format(time.RFC3339),
	}
	if err := s.db.WithContext(ctx).Create(&transaction).Error; err != nil {
		s.logError(opRecord, "insert_failed", err, zap.String("user_id", userID))
		return Transaction{}, newServiceError(opRecord, "insert_failed", err)
	}
	return transaction, nil
}

// Metrics computes the revenue summary for the user as of now. Revenue
// windows count completed income only; pipeline counts pending income.
func (s *Service) Metrics(ctx context.Context, userID string, now time.Time) (Metrics, error) {
	var transactions []Transaction
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&transactions).Error
	if err != nil {
		s.logError(opMetrics, "query_failed", err, zap.String("user_id", userID))
		return Metrics{}, newServiceError(opMetrics, "query_failed", err)
	}

	now = now.UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekAgo := dayStart.Add(-7 * 24 * time.Hour)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	metrics := Metrics{RecentTransactions: []Transaction{}}
	for _, transaction := range transactions {
		if transaction.Type != TypeIncome {
			continue
		}
		if transaction.Status == StatusPending {
			metrics.PipelineValue += transaction.Amount
			continue
		}
		if transaction.Status != StatusCompleted {
			continue
		}
		when, ok := parseTransactionDate(transaction.Date)
		if !ok {
			continue
		}
		if !when.Before(dayStart) {
			metrics.DailyRevenue += transaction.Amount
		}
		if !when.Before(weekAgo) {
			metrics.WeeklyRevenue += transaction.Amount
		}
		if !when.Before(monthStart) {
			metrics.MonthlyRevenue += transaction.Amount
		}
	}

	sort.SliceStable(transactions, func(left, right int) bool {
		return transactions[left].Date > transactions[right].Date
	})
	if len(transactions) > recentTransactionLimit {
		transactions = transactions[:recentTransactionLimit]
	}
	metrics.RecentTransactions = transactions
	if metrics.RecentTransactions == nil {
		metrics.RecentTransactions = []Transaction{}
	}
	return metrics, nil
}

// parseTransactionDate accepts RFC 3339 timestamps and bare dates.
func parseTransactionDate(value string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if when, err := time.Parse(layout, value); err == nil {
			return when.UTC(), true
		}
	}
	return time.Time{}, false
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
	s.logger.Error("finance service error", attrs...)
}
