package finance

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type sequenceIDProvider struct {
	next int
}

func (p *sequenceIDProvider) NewID() (string, error) {
	p.next++
	return fmt.Sprintf("tx-%04d", p.next), nil
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access database: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&Transaction{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	service, err := NewService(ServiceConfig{
		Database:   db,
		IDProvider: &sequenceIDProvider{},
		Clock: func() time.Time {
			return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
		},
	})
	if err != nil {
		t.Fatalf("failed to construct service: %v", err)
	}
	return service
}

func seedTransaction(t *testing.T, service *Service, userID string, input RecordInput) Transaction {
	t.Helper()
	transaction, err := service.Record(context.Background(), userID, input)
	if err != nil {
		t.Fatalf("record transaction: %v", err)
	}
	return transaction
}

func TestRecordDefaultsAndValidation(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	transaction, err := service.Record(ctx, "user-1", RecordInput{Amount: 120.50, Description: "Retainer"})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if transaction.Type != TypeIncome || transaction.Status != StatusCompleted {
		t.Fatalf("expected income/completed defaults, got %s/%s", transaction.Type, transaction.Status)
	}
	if transaction.Date == "" {
		t.Fatalf("expected date to default to the current time")
	}

	if _, err := service.Record(ctx, "user-1", RecordInput{Amount: 0}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for zero amount, got %v", err)
	}
	if _, err := service.Record(ctx, "user-1", RecordInput{Amount: 5, Type: "loan"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown type, got %v", err)
	}
}

func TestMetricsRevenueWindows(t *testing.T) {
	service := newTestService(t)
	now := time.Date(2026, 3, 15, 18, 30, 0, 0, time.UTC)

	// Completed income at varying ages relative to now.
	seedTransaction(t, service, "user-1", RecordInput{Amount: 100, Date: "2026-03-15T09:00:00Z"})
	seedTransaction(t, service, "user-1", RecordInput{Amount: 40, Date: "2026-03-12"})
	seedTransaction(t, service, "user-1", RecordInput{Amount: 25, Date: "2026-03-02T08:00:00Z"})
	// Last month falls outside every window.
	seedTransaction(t, service, "user-1", RecordInput{Amount: 500, Date: "2026-02-20"})
	// Pending income counts only toward the pipeline.
	seedTransaction(t, service, "user-1", RecordInput{Amount: 75, Date: "2026-03-15", Status: StatusPending})
	// Expenses never count.
	seedTransaction(t, service, "user-1", RecordInput{Amount: 999, Date: "2026-03-15", Type: TypeExpense})
	// Another user's records are invisible.
	seedTransaction(t, service, "user-2", RecordInput{Amount: 1000, Date: "2026-03-15"})

	metrics, err := service.Metrics(context.Background(), "user-1", now)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if metrics.DailyRevenue != 100 {
		t.Fatalf("expected daily revenue 100, got %v", metrics.DailyRevenue)
	}
	if metrics.WeeklyRevenue != 140 {
		t.Fatalf("expected weekly revenue 140, got %v", metrics.WeeklyRevenue)
	}
	if metrics.MonthlyRevenue != 165 {
		t.Fatalf("expected monthly revenue 165, got %v", metrics.MonthlyRevenue)
	}
	if metrics.PipelineValue != 75 {
		t.Fatalf("expected pipeline value 75, got %v", metrics.PipelineValue)
	}
}

func TestMetricsRecentTransactionsCapped(t *testing.T) {
	service := newTestService(t)
	for day := 1; day <= 12; day++ {
		seedTransaction(t, service, "user-1", RecordInput{
			Amount: float64(day),
			Date:   fmt.Sprintf("2026-03-%02dT10:00:00Z", day),
		})
	}

	metrics, err := service.Metrics(context.Background(), "user-1", time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if len(metrics.RecentTransactions) != 10 {
		t.Fatalf("expected 10 recent transactions, got %d", len(metrics.RecentTransactions))
	}
	if metrics.RecentTransactions[0].Date != "2026-03-12T10:00:00Z" {
		t.Fatalf("expected newest transaction first, got %s", metrics.RecentTransactions[0].Date)
	}
}

func TestMetricsEmptyUser(t *testing.T) {
	service := newTestService(t)

	metrics, err := service.Metrics(context.Background(), "user-1", time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if metrics.DailyRevenue != 0 || metrics.PipelineValue != 0 {
		t.Fatalf("expected zero metrics, got %+v", metrics)
	}
	if metrics.RecentTransactions == nil || len(metrics.RecentTransactions) != 0 {
		t.Fatalf("expected empty recent transactions, got %+v", metrics.RecentTransactions)
	}
}
