package clients

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

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()
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

const (
	opServiceNew = "clients.service.new"
	opList       = "clients.list"
	opCreate     = "clients.create"
	opUpdate     = "clients.update"
	opDelete     = "clients.delete"
	opImport     = "clients.import"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// IDProvider supplies identifiers for new records.
type IDProvider interface {
	NewID() (string, error)
}

// ServiceConfig describes the dependencies required by the clients service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service owns CRM client records and the CSV import reconciliation.
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

	return &Service{
		db:         cfg.Database,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

// List returns the user's clients, optionally filtered by status equality in
// the store and by a case-insensitive name/email substring applied after the
// fetch, newest first.
func (s *Service) List(ctx context.Context, userID, status, search string) ([]Client, error) {
	query := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var records []Client
	if err := query.Find(&records).Error; err != nil {
		s.logError(opList, "query_failed", err, zap.String("user_id", userID))
		return nil, newServiceError(opList, "query_failed", err)
	}

	if search != "" {
		needle := strings.ToLower(search)
		filtered := records[:0]
		for _, record := range records {
			if strings.Contains(strings.ToLower(record.Name), needle) ||
				strings.Contains(strings.ToLower(record.Email), needle) {
				filtered = append(filtered, record)
			}
		}
		records = filtered
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedDate > records[j].CreatedDate
	})

	return records, nil
}

// CreateInput carries the fields accepted when creating a client directly.
type CreateInput struct {
	Name   string
	Email  string
	Phone  string
	Status Status
	Value  *float64
	Notes  string
}

// Create stores a new client record for the user.
func (s *Service) Create(ctx context.Context, userID string, input CreateInput) (Client, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.TrimSpace(input.Email)
	if name == "" || email == "" {
		return Client{}, fmt.Errorf("%w: name and email are required", ErrValidation)
	}

	status := input.Status
	if status == "" {
		status = StatusLead
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreate, "id_generation_failed", err)
		return Client{}, newServiceError(opCreate, "id_generation_failed", err)
	}

	record := Client{
		ID:          id,
		UserID:      userID,
		Name:        name,
		Email:       email,
		Phone:       input.Phone,
		Status:      status,
		Value:       input.Value,
		Notes:       input.Notes,
		CreatedDate: s.clock().UTC().Format(time.RFC3339),
		Events:      Events{},
	}

	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		s.logError(opCreate, "insert_failed", err, zap.String("user_id", userID))
		return Client{}, newServiceError(opCreate, "insert_failed", err)
	}

	return record, nil
}

// UpdateInput carries the partial fields accepted on update; nil means leave
// the stored value untouched.
type UpdateInput struct {
	Name         *string
	Email        *string
	Phone        *string
	Status       *Status
	Value        *float64
	Notes        *string
	LastContact  *string
	ProjectCount *int
}

// Update applies a partial update after checking ownership.
func (s *Service) Update(ctx context.Context, userID, clientID string, input UpdateInput) (Client, error) {
	record, err := s.owned(ctx, userID, clientID, opUpdate)
	if err != nil {
		return Client{}, err
	}

	if input.Name != nil {
		record.Name = *input.Name
	}
	if input.Email != nil {
		record.Email = *input.Email
	}
	if input.Phone != nil {
		record.Phone = *input.Phone
	}
	if input.Status != nil {
		record.Status = *input.Status
	}
	if input.Value != nil {
		record.Value = input.Value
	}
	if input.Notes != nil {
		record.Notes = *input.Notes
	}
	if input.LastContact != nil {
		record.LastContact = *input.LastContact
	}
	if input.ProjectCount != nil {
		record.ProjectCount = *input.ProjectCount
	}

	if err := s.db.WithContext(ctx).Save(&record).Error; err != nil {
		s.logError(opUpdate, "save_failed", err, zap.String("client_id", clientID))
		return Client{}, newServiceError(opUpdate, "save_failed", err)
	}

	return record, nil
}

// Delete removes a client record after checking ownership.
func (s *Service) Delete(ctx context.Context, userID, clientID string) error {
	record, err := s.owned(ctx, userID, clientID, opDelete)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(&record).Error; err != nil {
		s.logError(opDelete, "delete_failed", err, zap.String("client_id", clientID))
		return newServiceError(opDelete, "delete_failed", err)
	}
	return nil
}

func (s *Service) owned(ctx context.Context, userID, clientID, operation string) (Client, error) {
	var record Client
	err := s.db.WithContext(ctx).Where("id = ?", clientID).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Client{}, ErrNotFound
	}
	if err != nil {
		s.logError(operation, "select_failed", err, zap.String("client_id", clientID))
		return Client{}, newServiceError(operation, "select_failed", err)
	}
	if record.UserID != userID {
		return Client{}, ErrForbidden
	}
	return record, nil
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
	s.logger.Error("clients service error", attrs...)
}
