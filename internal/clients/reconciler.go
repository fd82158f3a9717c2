package clients

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ImportResult reports how many rows were created versus merged into
// existing records.
type ImportResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// Import reconciles a batch of normalized contacts against the user's stored
// clients inside a single transaction. Rows matching an existing record by
// email are merged (event union, phone only when non-empty, newsletter only
// when explicitly boolean); the rest are created with lead defaults. A batch
// that creates nothing fails with ErrNoValidRows even when updates occurred,
// and nothing is committed.
//
// The email match is intentionally exact-case: stored emails are written
// verbatim while normalized input is lowercased, so a mixed-case stored
// email will not match its lowercased re-import.
func (s *Service) Import(ctx context.Context, userID string, contacts []Contact) (ImportResult, error) {
	result := ImportResult{}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, contact := range contacts {
			name := strings.TrimSpace(contact.Name)
			email := strings.TrimSpace(contact.Email)
			if name == "" || email == "" {
				continue
			}

			events := SplitEvents(contact.Events)

			var existing Client
			err := tx.Where("user_id = ? AND email = ?", userID, email).
				Take(&existing).Error
			if err == nil {
				if len(events) > 0 {
					existing.Events = existing.Events.Union(events)
				}
				if contact.Phone != "" {
					existing.Phone = contact.Phone
				}
				if contact.NewsletterSubscribed.Explicit {
					existing.NewsletterSubscribed = contact.NewsletterSubscribed.Value
				}
				if err := tx.Save(&existing).Error; err != nil {
					s.logError(opImport, "merge_failed", err, zap.String("email", email))
					return newServiceError(opImport, "merge_failed", err)
				}
				result.Updated++
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				s.logError(opImport, "lookup_failed", err, zap.String("email", email))
				return newServiceError(opImport, "lookup_failed", err)
			}

			id, err := s.idProvider.NewID()
			if err != nil {
				s.logError(opImport, "id_generation_failed", err)
				return newServiceError(opImport, "id_generation_failed", err)
			}

			status := contact.Status
			if status == "" {
				status = StatusLead
			}

			record := Client{
				ID:                   id,
				UserID:               userID,
				Name:                 name,
				Email:                email,
				Phone:                contact.Phone,
				Status:               status,
				Value:                nil,
				Notes:                contact.Notes,
				CreatedDate:          s.clock().UTC().Format(time.RFC3339),
				ProjectCount:         0,
				NewsletterSubscribed: contact.NewsletterSubscribed.Value,
				Events:               events,
			}
			if err := tx.Create(&record).Error; err != nil {
				s.logError(opImport, "insert_failed", err, zap.String("email", email))
				return newServiceError(opImport, "insert_failed", err)
			}
			result.Created++
		}

		if result.Created == 0 {
			return ErrNoValidRows
		}
		return nil
	})

	if txErr != nil {
		return ImportResult{}, txErr
	}
	return result, nil
}
