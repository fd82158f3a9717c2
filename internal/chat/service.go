package chat

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
	defaultConversationTitle = "New Conversation"

	// fallbackResponse is returned when the provider yields no content;
	// the conversation keeps flowing instead of surfacing an error.
	fallbackResponse = "Sorry, I couldn't generate a response."

	assistantSystemPrompt = "You are a helpful AI assistant for Hero Hub, a business command center dashboard. " +
		"You help users with their business tasks, answer questions about their calendar, emails, clients, " +
		"financial data, and marketing metrics. Be concise, professional, and helpful."
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	errMissingCompleter  = errors.New("completion client is required")
	errMissingModel      = errors.New("chat model is required")
	noOpLogger           = zap.NewNop()
)

const (
	opServiceNew = "chat.service.new"
	opList       = "chat.conversations.list"
	opCreate     = "chat.conversations.create"
	opDelete     = "chat.conversations.delete"
	opMessages   = "chat.messages"
	opRespond    = "chat.respond"
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

// ServiceConfig describes the dependencies required by the chat service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Completer  llm.Completer
	Model      string
	Logger     *zap.Logger
}

// Service owns assistant conversations and completion-backed replies.
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

// ListConversations returns the user's conversations, most recently
// updated first.
func (s *Service) ListConversations(ctx context.Context, userID string) ([]Conversation, error) {
	var conversations []Conversation
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&conversations).Error
	if err != nil {
		s.logError(opList, "query_failed", err, zap.String("user_id", userID))
		return nil, newServiceError(opList, "query_failed", err)
	}
	if conversations == nil {
		conversations = []Conversation{}
	}
	return conversations, nil
}

// CreateConversation stores a new conversation with an optional title.
func (s *Service) CreateConversation(ctx context.Context, userID, title string) (Conversation, error) {
	if strings.TrimSpace(title) == "" {
		title = defaultConversationTitle
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreate, "id_generation_failed", err)
		return Conversation{}, newServiceError(opCreate, "id_generation_failed", err)
	}

	now := s.clock().UTC().Format(time.RFC3339)
	conversation := Conversation{
		ID:        id,
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(&conversation).Error; err != nil {
		s.logError(opCreate, "insert_failed", err, zap.String("user_id", userID))
		return Conversation{}, newServiceError(opCreate, "insert_failed", err)
	}
	return conversation, nil
}

// DeleteConversation removes the conversation and all of its messages.
func (s *Service) DeleteConversation(ctx context.Context, userID, conversationID string) error {
	conversation, err := s.owned(ctx, userID, conversationID, opDelete)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", conversationID).Delete(&Message{}).Error; err != nil {
			return err
		}
		return tx.Delete(&conversation).Error
	})
	if err != nil {
		s.logError(opDelete, "delete_failed", err, zap.String("conversation_id", conversationID))
		return newServiceError(opDelete, "delete_failed", err)
	}
	return nil
}

// Messages returns the conversation and its messages in chronological order.
func (s *Service) Messages(ctx context.Context, userID, conversationID string) (Conversation, []Message, error) {
	conversation, err := s.owned(ctx, userID, conversationID, opMessages)
	if err != nil {
		return Conversation{}, nil, err
	}

	var messages []Message
	err = s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("timestamp ASC").
		Find(&messages).Error
	if err != nil {
		s.logError(opMessages, "query_failed", err, zap.String("conversation_id", conversationID))
		return Conversation{}, nil, newServiceError(opMessages, "query_failed", err)
	}
	if messages == nil {
		messages = []Message{}
	}
	return conversation, messages, nil
}

// MessageInput is one turn submitted by the client when saving a thread.
type MessageInput struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// ReplaceMessages swaps the conversation's stored thread for the submitted
// one and refreshes the message count, all in one transaction.
func (s *Service) ReplaceMessages(ctx context.Context, userID, conversationID string, inputs []MessageInput) error {
	conversation, err := s.owned(ctx, userID, conversationID, opMessages)
	if err != nil {
		return err
	}

	now := s.clock().UTC().Format(time.RFC3339)
	records := make([]Message, 0, len(inputs))
	for _, input := range inputs {
		id, err := s.idProvider.NewID()
		if err != nil {
			s.logError(opMessages, "id_generation_failed", err)
			return newServiceError(opMessages, "id_generation_failed", err)
		}
		timestamp := input.Timestamp
		if timestamp == "" {
			timestamp = now
		}
		records = append(records, Message{
			ID:             id,
			ConversationID: conversationID,
			UserID:         userID,
			Role:           input.Role,
			Content:        input.Content,
			Timestamp:      timestamp,
			CreatedAt:      now,
		})
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", conversationID).Delete(&Message{}).Error; err != nil {
			return err
		}
		if len(records) > 0 {
			if err := tx.Create(&records).Error; err != nil {
				return err
			}
		}
		return tx.Model(&Conversation{}).Where("id = ?", conversation.ID).Updates(map[string]any{
			"message_count": len(records),
			"updated_at":    now,
		}).Error
	})
	if err != nil {
		s.logError(opMessages, "replace_failed", err, zap.String("conversation_id", conversationID))
		return newServiceError(opMessages, "replace_failed", err)
	}
	return nil
}

// HistoryMessage is one prior turn supplied alongside a new chat message.
type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Respond generates an assistant reply for the message given the supplied
// history. Empty provider content degrades to a fixed fallback reply.
func (s *Service) Respond(ctx context.Context, userID, message string, history []HistoryMessage) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", fmt.Errorf("%w: message is required", ErrValidation)
	}

	messages := []llm.Message{llm.TextMessage("system", assistantSystemPrompt)}
	for _, turn := range history {
		if turn.Role == "" || turn.Content == "" {
			continue
		}
		role := "user"
		if turn.Role == "assistant" {
			role = "assistant"
		}
		messages = append(messages, llm.TextMessage(role, turn.Content))
	}
	messages = append(messages, llm.TextMessage("user", message))

	response, err := s.completer.Complete(ctx, llm.Request{
		Model:       s.model,
		Messages:    messages,
		Temperature: 0.7,
		MaxTokens:   500,
	})
	if errors.Is(err, llm.ErrEmptyContent) {
		return fallbackResponse, nil
	}
	if err != nil {
		s.logError(opRespond, "completion_failed", err, zap.String("user_id", userID))
		return "", newServiceError(opRespond, "completion_failed", err)
	}
	return response, nil
}

func (s *Service) owned(ctx context.Context, userID, conversationID, operation string) (Conversation, error) {
	var conversation Conversation
	err := s.db.WithContext(ctx).Where("id = ?", conversationID).Take(&conversation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Conversation{}, ErrNotFound
	}
	if err != nil {
		s.logError(operation, "select_failed", err, zap.String("conversation_id", conversationID))
		return Conversation{}, newServiceError(operation, "select_failed", err)
	}
	if conversation.UserID != userID {
		return Conversation{}, ErrForbidden
	}
	return conversation, nil
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
	s.logger.Error("chat service error", attrs...)
}
