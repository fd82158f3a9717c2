package accounts

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

// IDProvider supplies identifiers for new records.
type IDProvider interface {
	NewID() (string, error)
}

// ServiceConfig describes the dependencies required by the accounts service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service manages OAuth-linked email accounts, normalizing the legacy
// single-token primary into the account list at the read boundary.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

// NewService validates dependencies and constructs the service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("accounts: %w", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, fmt.Errorf("accounts: %w", errMissingIDProvider)
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

// List returns all accounts for the user. When legacy primary token fields
// are still present on the user record and no stored account matches that
// email, a synthetic primary is prepended so callers only ever deal with
// one normalized list.
func (s *Service) List(ctx context.Context, userID string) ([]Account, error) {
	var stored []Account
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("added_at ASC").
		Find(&stored).Error; err != nil {
		s.logger.Error("account list failed", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	var user UserRecord
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return stored, nil
	}
	if err != nil {
		s.logger.Error("user record lookup failed", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	if user.GoogleAccessToken == "" {
		return stored, nil
	}

	primaryEmail := strings.TrimSpace(user.Email)
	for _, account := range stored {
		if primaryEmail != "" && account.Email == primaryEmail {
			return stored, nil
		}
	}

	if primaryEmail == "" {
		primaryEmail = PlaceholderEmail
	}
	legacy := Account{
		ID:           LegacyPrimaryID,
		UserID:       userID,
		Email:        primaryEmail,
		AccessToken:  user.GoogleAccessToken,
		RefreshToken: user.GoogleRefreshToken,
		ExpiresAt:    user.GoogleTokenExpiresAt,
		IsPrimary:    true,
		AddedAt:      user.CreatedAt.UTC().Format(time.RFC3339),
		Label:        "Primary Account",
	}

	return append([]Account{legacy}, stored...), nil
}

// AddInput carries the fields accepted when connecting a new account.
type AddInput struct {
	Email        string
	AccessToken  string
	RefreshToken string
	ExpiresAt    int64
	Label        string
}

// Add connects a new email account; the first stored account becomes the
// primary.
func (s *Service) Add(ctx context.Context, userID string, input AddInput) (Account, error) {
	email := strings.TrimSpace(input.Email)
	if email == "" || strings.TrimSpace(input.AccessToken) == "" {
		return Account{}, fmt.Errorf("%w: email and accessToken are required", ErrValidation)
	}

	var existing []Account
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&existing).Error; err != nil {
		s.logger.Error("account lookup failed", zap.String("user_id", userID), zap.Error(err))
		return Account{}, err
	}
	for _, account := range existing {
		if account.Email == email {
			return Account{}, ErrDuplicate
		}
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		return Account{}, err
	}

	label := strings.TrimSpace(input.Label)
	if label == "" {
		label = email
	}

	account := Account{
		ID:           id,
		UserID:       userID,
		Email:        email,
		AccessToken:  input.AccessToken,
		RefreshToken: input.RefreshToken,
		ExpiresAt:    input.ExpiresAt,
		IsPrimary:    len(existing) == 0,
		AddedAt:      s.clock().UTC().Format(time.RFC3339),
		Label:        label,
	}

	if err := s.db.WithContext(ctx).Create(&account).Error; err != nil {
		s.logger.Error("account insert failed", zap.String("user_id", userID), zap.Error(err))
		return Account{}, err
	}

	return account, nil
}

// Remove disconnects an account. When the removed account was primary, the
// oldest remaining account is promoted so the at-most-one-primary invariant
// holds without a gap.
func (s *Service) Remove(ctx context.Context, userID, accountID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var account Account
		err := tx.Where("user_id = ? AND id = ?", userID, accountID).Take(&account).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		if err := tx.Delete(&account).Error; err != nil {
			return err
		}

		if !account.IsPrimary {
			return nil
		}

		var successor Account
		err = tx.Where("user_id = ?", userID).Order("added_at ASC").Take(&successor).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		return tx.Model(&successor).Update("is_primary", true).Error
	})
}

// ResolveEmail replaces the placeholder email on the legacy primary once a
// provider call has resolved the real address.
func (s *Service) ResolveEmail(ctx context.Context, userID, accountID, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil
	}
	if accountID == LegacyPrimaryID {
		return s.db.WithContext(ctx).Model(&UserRecord{}).
			Where("user_id = ?", userID).
			Update("email", email).Error
	}
	return s.db.WithContext(ctx).Model(&Account{}).
		Where("user_id = ? AND id = ?", userID, accountID).
		Update("email", email).Error
}
