package voicenotes

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

const (
	sessionListLimit  = 50
	sessionEntryLimit = 50
	summaryEntryLimit = 1000
	summaryTailLines  = 100

	emptySummaryMessage = "No transcripts recorded in this session."

	summarizeSystemPrompt = "You are an assistant that summarizes meeting or voice notes and proposes actionable tasks. Return concise results."
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	errMissingCompleter  = errors.New("completion client is required")
	errMissingModel      = errors.New("summarization model is required")
	noOpLogger           = zap.NewNop()
)

const (
	opServiceNew = "voicenotes.service.new"
	opList       = "voicenotes.list"
	opCreate     = "voicenotes.create"
	opGet        = "voicenotes.get"
	opDelete     = "voicenotes.delete"
	opTranscript = "voicenotes.transcript"
	opSummarize  = "voicenotes.summarize"
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

// ServiceConfig describes the dependencies required by the voice-notes service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Completer  llm.Completer
	Model      string
	Logger     *zap.Logger
}

// Service owns dictation sessions, transcript entries, and summarization.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	completer  llm.Completer
	model      string
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
	if cfg.Completer == nil {
		return nil, newServiceError(opServiceNew, "missing_completer", errMissingCompleter)
	}
	if cfg.Model == "" {
		return nil, newServiceError(opServiceNew, "missing_model", errMissingModel)
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
		completer:  cfg.Completer,
		model:      cfg.Model,
		logger:     logger,
	}, nil
}

// ListSessions returns the user's sessions, most recently updated first.
func (s *Service) ListSessions(ctx context.Context, userID string) ([]Session, error) {
	var sessions []Session
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Limit(sessionListLimit).
		Find(&sessions).Error
	if err != nil {
		s.logError(opList, "query_failed", err, zap.String("user_id", userID))
		return nil, newServiceError(opList, "query_failed", err)
	}
	if sessions == nil {
		sessions = []Session{}
	}
	return sessions, nil
}

// CreateSession stores a new session; a blank title gets a dated default.
func (s *Service) CreateSession(ctx context.Context, userID, title string) (Session, error) {
	now := s.clock().UTC()
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Voice Note - " + now.Format("Jan 2, 2006 15:04")
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreate, "id_generation_failed", err)
		return Session{}, newServiceError(opCreate, "id_generation_failed", err)
	}

	timestamp := now.Format(time.RFC3339)
	session := Session{
		ID:        id,
		UserID:    userID,
		Title:     title,
		CreatedAt: timestamp,
		UpdatedAt: timestamp,
	}
	if err := s.db.WithContext(ctx).Create(&session).Error; err != nil {
		s.logError(opCreate, "insert_failed", err, zap.String("user_id", userID))
		return Session{}, newServiceError(opCreate, "insert_failed", err)
	}
	return session, nil
}

// GetSession returns the session and its most recent entries, newest first.
func (s *Service) GetSession(ctx context.Context, userID, sessionID string) (Session, []Entry, error) {
	session, err := s.owned(ctx, userID, sessionID, opGet)
	if err != nil {
		return Session{}, nil, err
	}

	var entries []Entry
	err = s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Limit(sessionEntryLimit).
		Find(&entries).Error
	if err != nil {
		s.logError(opGet, "entries_query_failed", err, zap.String("session_id", sessionID))
		return Session{}, nil, newServiceError(opGet, "entries_query_failed", err)
	}
	if entries == nil {
		entries = []Entry{}
	}
	return session, entries, nil
}

// DeleteSession removes the session and all of its entries.
func (s *Service) DeleteSession(ctx context.Context, userID, sessionID string) error {
	session, err := s.owned(ctx, userID, sessionID, opDelete)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", sessionID).Delete(&Entry{}).Error; err != nil {
			return err
		}
		return tx.Delete(&session).Error
	})
	if err != nil {
		s.logError(opDelete, "delete_failed", err, zap.String("session_id", sessionID))
		return newServiceError(opDelete, "delete_failed", err)
	}
	return nil
}

// AppendTranscript stores one transcribed line and bumps the session totals.
func (s *Service) AppendTranscript(ctx context.Context, userID, sessionID, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("%w: transcript text is required", ErrValidation)
	}

	session, err := s.owned(ctx, userID, sessionID, opTranscript)
	if err != nil {
		return err
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opTranscript, "id_generation_failed", err)
		return newServiceError(opTranscript, "id_generation_failed", err)
	}

	now := s.clock().UTC().Format(time.RFC3339)
	entry := Entry{
		ID:        id,
		SessionID: sessionID,
		Text:      text,
		CreatedAt: now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		return tx.Model(&Session{}).Where("id = ?", session.ID).Updates(map[string]any{
			"updated_at":    now,
			"total_entries": gorm.Expr("total_entries + 1"),
		}).Error
	})
	if err != nil {
		s.logError(opTranscript, "persist_failed", err, zap.String("session_id", sessionID))
		return newServiceError(opTranscript, "persist_failed", err)
	}
	return nil
}

// SummaryResult is the outcome of summarizing a session.
type SummaryResult struct {
	Summary string     `json:"summary"`
	Tasks   []llm.Task `json:"tasks"`
}

// Summarize condenses the session transcript into a summary plus proposed
// tasks and persists both on the session. Sessions with no transcript
// short-circuit without a provider call.
func (s *Service) Summarize(ctx context.Context, userID, sessionID string) (SummaryResult, error) {
	session, err := s.owned(ctx, userID, sessionID, opSummarize)
	if err != nil {
		return SummaryResult{}, err
	}

	var entries []Entry
	err = s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Limit(summaryEntryLimit).
		Find(&entries).Error
	if err != nil {
		s.logError(opSummarize, "entries_query_failed", err, zap.String("session_id", sessionID))
		return SummaryResult{}, newServiceError(opSummarize, "entries_query_failed", err)
	}

	var lines []string
	for _, entry := range entries {
		if text := strings.TrimSpace(entry.Text); text != "" {
			lines = append(lines, fmt.Sprintf("[%s] %s", entry.CreatedAt, text))
		}
	}
	if len(lines) == 0 {
		return SummaryResult{Summary: emptySummaryMessage, Tasks: []llm.Task{}}, nil
	}
	if len(lines) > summaryTailLines {
		lines = lines[len(lines)-summaryTailLines:]
	}

	prompt := "Given the following chronological transcript lines, produce:\n" +
		"1) A concise Summary (<= 200 words)\n" +
		"2) A list of up to 10 Tasks with short, imperative titles. Include optional priority: low|medium|high when clear.\n\n" +
		"Return strictly as JSON:\n" +
		"{\n" +
		"  \"summary\": \"...\",\n" +
		"  \"tasks\": [\n" +
		"    {\"title\": \"...\", \"priority\": \"low|medium|high\" }\n" +
		"  ]\n" +
		"}\n\n" +
		"Transcript:\n" +
		strings.Join(lines, "\n")

	content, err := s.completer.Complete(ctx, llm.Request{
		Model: s.model,
		Messages: []llm.Message{
			llm.TextMessage("system", summarizeSystemPrompt),
			llm.TextMessage("user", prompt),
		},
		Temperature: 0.2,
	})
	if err != nil {
		s.logError(opSummarize, "completion_failed", err, zap.String("session_id", sessionID))
		return SummaryResult{}, newServiceError(opSummarize, "completion_failed", err)
	}

	parsed := llm.ParseSummaryTasks(content)
	if parsed.Degraded {
		s.logger.Warn("summary response was not valid JSON, storing raw text",
			zap.String("session_id", sessionID))
	}
	tasks := parsed.Tasks
	if tasks == nil {
		tasks = []llm.Task{}
	}
	summary := strings.TrimSpace(parsed.Summary)

	session.UpdatedAt = s.clock().UTC().Format(time.RFC3339)
	session.Summary = summary
	session.LastSummary = summary
	session.Tasks = tasks
	session.LastTaskCount = len(tasks)
	if err := s.db.WithContext(ctx).Save(&session).Error; err != nil {
		s.logError(opSummarize, "persist_failed", err, zap.String("session_id", sessionID))
		return SummaryResult{}, newServiceError(opSummarize, "persist_failed", err)
	}

	return SummaryResult{Summary: summary, Tasks: tasks}, nil
}

func (s *Service) owned(ctx context.Context, userID, sessionID, operation string) (Session, error) {
	var session Session
	err := s.db.WithContext(ctx).Where("id = ?", sessionID).Take(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		s.logError(operation, "select_failed", err, zap.String("session_id", sessionID))
		return Session{}, newServiceError(operation, "select_failed", err)
	}
	if session.UserID != userID {
		return Session{}, ErrNotFound
	}
	return session, nil
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
	s.logger.Error("voicenotes service error", attrs...)
}
