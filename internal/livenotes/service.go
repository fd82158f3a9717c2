package livenotes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/HeroHubLab/herohub/backend/internal/llm"
	"github.com/HeroHubLab/herohub/backend/internal/metrics"
)

const (
	sessionListLimit = 50
	sessionShotLimit = 25
	contextShotLimit = 5
	summaryShotLimit = 800

	interpretationPlaceholder = "Unable to interpret this screenshot at the moment."
	emptySummaryMessage       = "No notes were interpreted for this session yet. Generate a few captures and try summarizing again."

	interpretSystemPrompt = "You are an assistant that infers what the user is doing on their computer from periodic screenshots. " +
		"Summarize actions succinctly and maintain continuity across messages for the same session. " +
		"Prefer short, high-signal sentences and include inferred intent when useful."
	interpretUserPrompt = "Another screenshot has been captured. Based on ongoing context, infer what the user is doing now. " +
		"Describe in one or two concise sentences."
	summarizeSystemPrompt = "You are a helpful assistant that writes concise activity summaries from short notes."
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	errMissingCompleter  = errors.New("completion client is required")
	errMissingModel      = errors.New("vision model is required")
	noOpLogger           = zap.NewNop()
)

const (
	opServiceNew = "livenotes.service.new"
	opList       = "livenotes.list"
	opCreate     = "livenotes.create"
	opGet        = "livenotes.get"
	opDelete     = "livenotes.delete"
	opShot       = "livenotes.shot"
	opSummarize  = "livenotes.summarize"
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

// ServiceConfig describes the dependencies required by the live-notes service.
type ServiceConfig struct {
	Database      *gorm.DB
	Clock         func() time.Time
	IDProvider    IDProvider
	Completer     llm.Completer
	VisionModel   string
	FallbackModel string
	AllowFallback bool
	Logger        *zap.Logger
}

// Service owns live-capture sessions, their shots, and interpretation.
type Service struct {
	db            *gorm.DB
	clock         func() time.Time
	idProvider    IDProvider
	completer     llm.Completer
	visionModel   string
	fallbackModel string
	allowFallback bool
	logger        *zap.Logger
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
	if cfg.VisionModel == "" {
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
		db:            cfg.Database,
		clock:         clock,
		idProvider:    cfg.IDProvider,
		completer:     cfg.Completer,
		visionModel:   cfg.VisionModel,
		fallbackModel: cfg.FallbackModel,
		allowFallback: cfg.AllowFallback,
		logger:        logger,
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
		title = "Live Notes - " + now.Format("Jan 2, 2006 15:04")
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

// GetSession returns the session and its most recent shots, newest first.
func (s *Service) GetSession(ctx context.Context, userID, sessionID string) (Session, []Shot, error) {
	session, err := s.owned(ctx, userID, sessionID, opGet)
	if err != nil {
		return Session{}, nil, err
	}

	var shots []Shot
	err = s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Limit(sessionShotLimit).
		Find(&shots).Error
	if err != nil {
		s.logError(opGet, "shots_query_failed", err, zap.String("session_id", sessionID))
		return Session{}, nil, newServiceError(opGet, "shots_query_failed", err)
	}
	if shots == nil {
		shots = []Shot{}
	}
	return session, shots, nil
}

// DeleteSession removes the session and all of its shots.
func (s *Service) DeleteSession(ctx context.Context, userID, sessionID string) error {
	session, err := s.owned(ctx, userID, sessionID, opDelete)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", sessionID).Delete(&Shot{}).Error; err != nil {
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

// AppendShot interprets a captured screenshot in session context and
// persists it. Interpretation failures degrade to a fixed placeholder; the
// shot itself is always stored.
func (s *Service) AppendShot(ctx context.Context, userID, sessionID, imageDataURL string) (Shot, error) {
	if strings.TrimSpace(imageDataURL) == "" {
		return Shot{}, fmt.Errorf("%w: imageDataUrl is required", ErrValidation)
	}

	session, err := s.owned(ctx, userID, sessionID, opShot)
	if err != nil {
		return Shot{}, err
	}

	history, err := s.recentInterpretations(ctx, sessionID)
	if err != nil {
		s.logError(opShot, "history_query_failed", err, zap.String("session_id", sessionID))
		return Shot{}, newServiceError(opShot, "history_query_failed", err)
	}

	interpretation := s.interpret(ctx, imageDataURL, history)

	id, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opShot, "id_generation_failed", err)
		return Shot{}, newServiceError(opShot, "id_generation_failed", err)
	}

	now := s.clock().UTC().Format(time.RFC3339)
	shot := Shot{
		ID:             id,
		SessionID:      sessionID,
		ImageDataURL:   imageDataURL,
		Interpretation: interpretation,
		CreatedAt:      now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&shot).Error; err != nil {
			return err
		}
		return tx.Model(&Session{}).Where("id = ?", session.ID).Updates(map[string]any{
			"updated_at":   now,
			"last_summary": interpretation,
			"total_shots":  gorm.Expr("total_shots + 1"),
		}).Error
	})
	if err != nil {
		s.logError(opShot, "persist_failed", err, zap.String("session_id", sessionID))
		return Shot{}, newServiceError(opShot, "persist_failed", err)
	}
	return shot, nil
}

// recentInterpretations returns the last few non-empty interpretations in
// chronological order.
func (s *Service) recentInterpretations(ctx context.Context, sessionID string) ([]string, error) {
	var shots []Shot
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Limit(contextShotLimit).
		Find(&shots).Error
	if err != nil {
		return nil, err
	}

	var history []string
	for i := len(shots) - 1; i >= 0; i-- {
		if text := strings.TrimSpace(shots[i].Interpretation); text != "" {
			history = append(history, text)
		}
	}
	return history, nil
}

// interpret runs the bounded completion chain: the primary vision model at
// low image detail, the same model at auto detail, then the optional
// fallback model, and finally a fixed placeholder.
func (s *Service) interpret(ctx context.Context, imageDataURL string, history []string) string {
	messages := []llm.Message{
		llm.TextMessage("system", interpretSystemPrompt),
	}
	if len(history) > 0 {
		messages = append(messages, llm.TextMessage("assistant", "Recent context: "+joinContext(history)))
	}
	messages = append(messages, llm.Message{
		Role: "user",
		Content: []llm.Part{
			{Type: "text", Text: interpretUserPrompt},
			{Type: "image_url", ImageURL: &llm.ImageURL{URL: imageDataURL, Detail: llm.DetailLow}},
		},
	})

	request := llm.Request{
		Model:       s.visionModel,
		Messages:    messages,
		Temperature: 0.4,
		MaxTokens:   300,
		Route:       "fallback",
	}

	interpretation, err := s.completer.Complete(ctx, request)
	if err == nil && interpretation != "" {
		return interpretation
	}
	s.logger.Warn("screenshot interpretation failed", zap.Error(err))

	metrics.CompletionFallback("detail_auto")
	interpretation, err = s.completer.Complete(ctx, request.WithImageDetail(llm.DetailAuto))
	if err == nil && interpretation != "" {
		return interpretation
	}
	s.logger.Warn("screenshot interpretation retry failed", zap.Error(err))

	if s.allowFallback && s.fallbackModel != "" {
		metrics.CompletionFallback("fallback_model")
		interpretation, err = s.completer.Complete(ctx, request.WithModel(s.fallbackModel))
		if err == nil && interpretation != "" {
			return interpretation
		}
		s.logger.Warn("screenshot interpretation fallback failed", zap.Error(err))
	}

	metrics.CompletionFallback("placeholder")
	return interpretationPlaceholder
}

// Summarize condenses the session's interpreted shots into a structured
// activity summary and persists it on the session.
func (s *Service) Summarize(ctx context.Context, userID, sessionID string) (string, error) {
	session, err := s.owned(ctx, userID, sessionID, opSummarize)
	if err != nil {
		return "", err
	}

	var shots []Shot
	err = s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Limit(summaryShotLimit).
		Find(&shots).Error
	if err != nil {
		s.logError(opSummarize, "shots_query_failed", err, zap.String("session_id", sessionID))
		return "", newServiceError(opSummarize, "shots_query_failed", err)
	}

	var lines []string
	for _, shot := range shots {
		if text := strings.TrimSpace(shot.Interpretation); text != "" {
			lines = append(lines, fmt.Sprintf("- [%s] %s", shot.CreatedAt, text))
		}
	}
	if len(lines) == 0 {
		return emptySummaryMessage, nil
	}

	prompt := "Below are chronological short notes from a live screen-capture session. " +
		"Summarize the user's activities clearly and concisely. STRICT REQUIREMENTS:\n" +
		"- The timeline MUST be in chronological order (earliest to latest) and include the original timestamps as shown.\n" +
		"- Use only the text provided; do NOT speculate about image content.\n" +
		"Output sections:\n" +
		"1) Overview: 3-6 bullets.\n" +
		"2) Timeline (chronological): bullets like `[YYYY-MM-DDTHH:mm:ssZ] action...` using the timestamps below.\n" +
		"3) Next steps: 2-4 actionable bullets.\n\n" +
		strings.Join(lines, "\n")

	request := llm.Request{
		Model: s.visionModel,
		Messages: []llm.Message{
			llm.TextMessage("system", summarizeSystemPrompt),
			llm.TextMessage("user", prompt),
		},
		Temperature: 0.4,
		MaxTokens:   1000,
	}

	summary, err := s.completer.Complete(ctx, request)
	if err != nil && s.fallbackModel != "" {
		s.logger.Warn("session summary failed, retrying on fallback model", zap.Error(err))
		metrics.CompletionFallback("fallback_model")
		summary, err = s.completer.Complete(ctx, request.WithModel(s.fallbackModel))
	}
	if err != nil {
		s.logError(opSummarize, "completion_failed", err, zap.String("session_id", sessionID))
		return "", newServiceError(opSummarize, "completion_failed", err)
	}

	now := s.clock().UTC().Format(time.RFC3339)
	err = s.db.WithContext(ctx).Model(&Session{}).Where("id = ?", session.ID).Updates(map[string]any{
		"summary":      summary,
		"last_summary": summary,
		"updated_at":   now,
	}).Error
	if err != nil {
		s.logError(opSummarize, "persist_failed", err, zap.String("session_id", sessionID))
		return "", newServiceError(opSummarize, "persist_failed", err)
	}
	return summary, nil
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

func joinContext(history []string) string {
	bullets := make([]string, len(history))
	for i, entry := range history {
		bullets[i] = "• " + entry
	}
	return strings.Join(bullets, " ")
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
	s.logger.Error("livenotes service error", attrs...)
}
