// Package tasks implements the per-user todo records shown on the
// dashboard's task panel.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultPriority = "medium"

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()
)

const (
	opServiceNew = "tasks.service.new"
	opList       = "tasks.list"
	opCreate     = "tasks.create"
	opUpdate     = "tasks.update"
	opDelete     = "tasks.delete"
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

// ServiceConfig describes the dependencies required by the tasks service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service owns per-user task records.
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

// List returns the user's tasks, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]Task, error) {
	var tasks []Task
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&tasks).Error
	if err != nil {
		s.logError(opList, "query_failed", err, zap.String("user_id", userID))
		return nil, newServiceError(opList, "query_failed", err)
	}
	if tasks == nil {
		tasks = []Task{}
	}
	return tasks, nil
}

// CreateInput carries the fields accepted when creating a task.
type CreateInput struct {
	Title    string
	Priority string
	DueDate  string
}

// Create stores a new task at the end of the user's current list.
func (s *Service) Create(ctx context.Context, userID string, input CreateInput) (Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return Task{}, fmt.Errorf("%w: title is required", ErrValidation)
	}

	priority := input.Priority
	if priority == "" {
		priority = defaultPriority
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&Task{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		s.logError(opCreate, "count_failed", err, zap.String("user_id", userID))
		return Task{}, newServiceError(opCreate, "count_failed", err)
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreate, "id_generation_failed", err)
		return Task{}, newServiceError(opCreate, "id_generation_failed", err)
	}

	now := s.clock().UTC().Format(time.RFC3339)
	task := Task{
		ID:        id,
		UserID:    userID,
		Title:     title,
		Priority:  priority,
		DueDate:   input.DueDate,
		Order:     int(count),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(&task).Error; err != nil {
		s.logError(opCreate, "insert_failed", err, zap.String("user_id", userID))
		return Task{}, newServiceError(opCreate, "insert_failed", err)
	}
	return task, nil
}

// UpdateInput carries the partial fields accepted on update; nil means
// leave the stored value untouched.
type UpdateInput struct {
	Title     *string
	Completed *bool
	Priority  *string
	DueDate   *string
	Order     *int
}

// Update applies a partial update after checking ownership.
func (s *Service) Update(ctx context.Context, userID, taskID string, input UpdateInput) (Task, error) {
	task, err := s.owned(ctx, userID, taskID, opUpdate)
	if err != nil {
		return Task{}, err
	}

	if input.Title != nil {
		task.Title = *input.Title
	}
	if input.Completed != nil {
		task.Completed = *input.Completed
	}
	if input.Priority != nil {
		task.Priority = *input.Priority
	}
	if input.DueDate != nil {
		task.DueDate = *input.DueDate
	}
	if input.Order != nil {
		task.Order = *input.Order
	}
	task.UpdatedAt = s.clock().UTC().Format(time.RFC3339)

	if err := s.db.WithContext(ctx).Save(&task).Error; err != nil {
		s.logError(opUpdate, "save_failed", err, zap.String("task_id", taskID))
		return Task{}, newServiceError(opUpdate, "save_failed", err)
	}
	return task, nil
}

// Delete removes a task after checking ownership.
func (s *Service) Delete(ctx context.Context, userID, taskID string) error {
	task, err := s.owned(ctx, userID, taskID, opDelete)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(&task).Error; err != nil {
		s.logError(opDelete, "delete_failed", err, zap.String("task_id", taskID))
		return newServiceError(opDelete, "delete_failed", err)
	}
	return nil
}

func (s *Service) owned(ctx context.Context, userID, taskID, operation string) (Task, error) {
	var task Task
	err := s.db.WithContext(ctx).Where("id = ?", taskID).Take(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Task{}, ErrNotFound
	}
	if err != nil {
		s.logError(operation, "select_failed", err, zap.String("task_id", taskID))
		return Task{}, newServiceError(operation, "select_failed", err)
	}
	if task.UserID != userID {
		return Task{}, ErrForbidden
	}
	return task, nil
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
	s.logger.Error("tasks service error", attrs...)
}
