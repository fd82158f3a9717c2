// Package notes stores the user's quick captures and the optional
// summary and task suggestions attached to them afterwards.
package notes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/HeroHubLab/herohub/backend/internal/llm"
)

const defaultListLimit = 50

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()
)

const (
	opServiceNew = "notes.service.new"
	opList       = "notes.list"
	opCreate     = "notes.create"
	opUpdate     = "notes.update"
	opDelete     = "notes.delete"
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

// ServiceConfig describes the dependencies required by the notes service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service owns per-user note records.
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

// List returns the user's notes newest first, capped at limit. A
// non-positive limit falls back to the default.
func (s *Service) List(ctx context.Context, userID string, limit int) ([]Note, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	var notes []Note
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&notes).Error
	if err != nil {
		s.logError(opList, "query_failed", err, zap.String("user_id", userID))
		return nil, newServiceError(opList, "query_failed", err)
	}
	if notes == nil {
		notes = []Note{}
	}
	return notes, nil
}

// Create stores a new note from its raw text.
func (s *Service) Create(ctx context.Context, userID, text string) (Note, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Note{}, fmt.Errorf("%w: text is required", ErrValidation)
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreate, "id_generation_failed", err)
		return Note{}, newServiceError(opCreate, "id_generation_failed", err)
	}

	now := s.clock().UTC().Format(time.RFC3339)
	note := Note{
		ID:             id,
		UserID:         userID,
		Text:           trimmed,
		SuggestedTasks: []llm.Task{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.db.WithContext(ctx).Create(&note).Error; err != nil {
		s.logError(opCreate, "insert_failed", err, zap.String("user_id", userID))
		return Note{}, newServiceError(opCreate, "insert_failed", err)
	}
	return note, nil
}

// UpdateInput carries the partial fields accepted on update; nil means
// leave the stored value untouched.
type UpdateInput struct {
	Text           *string
	Summary        *string
	SuggestedTasks []llm.Task
}

// Update applies a partial update after checking ownership. A non-nil
// Text must not be blank.
func (s *Service) Update(ctx context.Context, userID, noteID string, input UpdateInput) (Note, error) {
	note, err := s.owned(ctx, userID, noteID, opUpdate)
	if err != nil {
		return Note{}, err
	}

	if input.Text != nil {
		trimmed := strings.TrimSpace(*input.Text)
		if trimmed == "" {
			return Note{}, fmt.Errorf("%w: text is required", ErrValidation)
		}
		note.Text = trimmed
	}
	if input.Summary != nil {
		note.Summary = *input.Summary
	}
	if input.SuggestedTasks != nil {
		note.SuggestedTasks = input.SuggestedTasks
	}
	note.UpdatedAt = s.clock().UTC().Format(time.RFC3339)

	if err := s.db.WithContext(ctx).Save(&note).Error; err != nil {
		s.logError(opUpdate, "save_failed", err, zap.String("note_id", noteID))
		return Note{}, newServiceError(opUpdate, "save_failed", err)
	}
	return note, nil
}

// Delete removes a note after checking ownership.
func (s *Service) Delete(ctx context.Context, userID, noteID string) error {
	note, err := s.owned(ctx, userID, noteID, opDelete)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(&note).Error; err != nil {
		s.logError(opDelete, "delete_failed", err, zap.String("note_id", noteID))
		return newServiceError(opDelete, "delete_failed", err)
	}
	return nil
}

func (s *Service) owned(ctx context.Context, userID, noteID, operation string) (Note, error) {
	var note Note
	err := s.db.WithContext(ctx).Where("id = ?", noteID).Take(&note).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Note{}, ErrNotFound
	}
	if err != nil {
		s.logError(operation, "select_failed", err, zap.String("note_id", noteID))
		return Note{}, newServiceError(operation, "select_failed", err)
	}
	if note.UserID != userID {
		return Note{}, ErrForbidden
	}
	return note, nil
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
	s.logger.Error("notes service error", attrs...)
}
