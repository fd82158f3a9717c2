package database

import (
	"fmt"

	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/HeroHubLab/herohub/backend/internal/accounts"
	"github.com/HeroHubLab/herohub/backend/internal/chat"
	"github.com/HeroHubLab/herohub/backend/internal/clients"
	"github.com/HeroHubLab/herohub/backend/internal/finance"
	"github.com/HeroHubLab/herohub/backend/internal/livenotes"
	"github.com/HeroHubLab/herohub/backend/internal/marketing"
	"github.com/HeroHubLab/herohub/backend/internal/notes"
	"github.com/HeroHubLab/herohub/backend/internal/tasks"
	"github.com/HeroHubLab/herohub/backend/internal/voicenotes"
)

// OpenSQLite establishes a SQLite connection and performs schema migrations.
func OpenSQLite(path string, logger *zap.Logger) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&accounts.UserRecord{},
		&accounts.Account{},
		&clients.Client{},
		&livenotes.Session{},
		&livenotes.Shot{},
		&voicenotes.Session{},
		&voicenotes.Entry{},
		&chat.Conversation{},
		&chat.Message{},
		&tasks.Task{},
		&notes.Note{},
		&finance.Transaction{},
		&marketing.Campaign{},
		&migrationRecord{},
	); err != nil {
		return nil, err
	}

	if err := applyMigrations(db, logger); err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Info("database initialized", zap.String("path", path))
	}

	return db, nil
}
