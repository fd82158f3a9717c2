// Package server wires the service layer into the HTTP surface. Every
// route except the auth exchange, health check, and metrics endpoint
// requires a backend bearer token.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/HeroHubLab/herohub/backend/internal/accounts"
	"github.com/HeroHubLab/herohub/backend/internal/auth"
	"github.com/HeroHubLab/herohub/backend/internal/chat"
	"github.com/HeroHubLab/herohub/backend/internal/clients"
	"github.com/HeroHubLab/herohub/backend/internal/finance"
	"github.com/HeroHubLab/herohub/backend/internal/livenotes"
	"github.com/HeroHubLab/herohub/backend/internal/marketing"
	"github.com/HeroHubLab/herohub/backend/internal/metrics"
	"github.com/HeroHubLab/herohub/backend/internal/notes"
	"github.com/HeroHubLab/herohub/backend/internal/tasks"
	"github.com/HeroHubLab/herohub/backend/internal/voicenotes"
	"github.com/HeroHubLab/herohub/backend/internal/workspace"
)

const userIDContextKey = "herohub_user_id"

var (
	errMissingIdentityVerifier = errors.New("identity verifier dependency required")
	errMissingTokenManager     = errors.New("token manager dependency required")
	errMissingAccountsService  = errors.New("accounts service dependency required")
	errMissingClientsService   = errors.New("clients service dependency required")
	errMissingWorkspace        = errors.New("workspace aggregator dependency required")
	errInvalidAuthorization    = errors.New("authorization header missing or invalid")
)

// IdentityVerifier validates a Firebase ID token and extracts its claims.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (auth.IdentityClaims, error)
}

// BackendTokenManager issues and validates the backend bearer tokens used
// on every protected route.
type BackendTokenManager interface {
	IssueBackendToken(ctx context.Context, claims auth.IdentityClaims) (string, int64, error)
	ValidateToken(token string) (string, error)
}

// Dependencies bundles everything the router needs. The verifier, token
// manager, accounts, clients, and workspace entries are mandatory; nil
// optional services disable their routes.
type Dependencies struct {
	IdentityVerifier IdentityVerifier
	TokenManager     BackendTokenManager
	Accounts         *accounts.Service
	Clients          *clients.Service
	Cleaner          *clients.Cleaner
	Workspace        *workspace.Aggregator
	LiveNotes        *livenotes.Service
	VoiceNotes       *voicenotes.Service
	Chat             *chat.Service
	Tasks            *tasks.Service
	Notes            *notes.Service
	Finance          *finance.Service
	Marketing        *marketing.Service
	Clock            func() time.Time
	Logger           *zap.Logger
}

// NewHTTPHandler builds the full route table.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.IdentityVerifier == nil {
		return nil, errMissingIdentityVerifier
	}
	if deps.TokenManager == nil {
		return nil, errMissingTokenManager
	}
	if deps.Accounts == nil {
		return nil, errMissingAccountsService
	}
	if deps.Clients == nil {
		return nil, errMissingClientsService
	}
	if deps.Workspace == nil {
		return nil, errMissingWorkspace
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(metrics.Middleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{deps: deps, clock: clock, logger: logger}

	router.POST("/auth/firebase", handler.handleFirebaseAuth)
	router.GET("/healthz", handler.handleHealth)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)

	protected.GET("/calendar/events", handler.handleCalendarEvents)
	protected.GET("/gmail/messages", handler.handleGmailMessages)

	protected.GET("/email-accounts", handler.handleListAccounts)
	protected.POST("/email-accounts", handler.handleAddAccount)
	protected.DELETE("/email-accounts/:accountID", handler.handleRemoveAccount)

	protected.GET("/clients", handler.handleListClients)
	protected.POST("/clients", handler.handleCreateClient)
	protected.PUT("/clients", handler.handleUpdateClient)
	protected.DELETE("/clients", handler.handleDeleteClient)
	protected.POST("/clients/import/clean", handler.handleCleanImport)
	protected.POST("/clients/import", handler.handleImportClients)

	if deps.Tasks != nil {
		protected.GET("/tasks", handler.handleListTasks)
		protected.POST("/tasks", handler.handleCreateTask)
		protected.PATCH("/tasks/:taskID", handler.handleUpdateTask)
		protected.DELETE("/tasks/:taskID", handler.handleDeleteTask)
	}
	if deps.Notes != nil {
		protected.GET("/notes", handler.handleListNotes)
		protected.POST("/notes", handler.handleCreateNote)
		protected.PATCH("/notes/:noteID", handler.handleUpdateNote)
		protected.DELETE("/notes/:noteID", handler.handleDeleteNote)
	}

	if deps.Chat != nil {
		protected.POST("/chat", handler.handleChat)
		protected.GET("/conversations", handler.handleListConversations)
		protected.POST("/conversations", handler.handleCreateConversation)
		protected.DELETE("/conversations/:conversationID", handler.handleDeleteConversation)
		protected.GET("/conversations/:conversationID/messages", handler.handleConversationMessages)
		protected.PUT("/conversations/:conversationID/messages", handler.handleReplaceConversationMessages)
	}

	if deps.LiveNotes != nil {
		protected.GET("/live-notes/sessions", handler.handleListLiveSessions)
		protected.POST("/live-notes/sessions", handler.handleCreateLiveSession)
		protected.GET("/live-notes/sessions/:sessionID", handler.handleGetLiveSession)
		protected.DELETE("/live-notes/sessions/:sessionID", handler.handleDeleteLiveSession)
		protected.POST("/live-notes/sessions/:sessionID/screenshot", handler.handleLiveScreenshot)
		protected.POST("/live-notes/sessions/:sessionID/summarize", handler.handleLiveSummarize)
	}
	if deps.VoiceNotes != nil {
		protected.GET("/voice-notes/sessions", handler.handleListVoiceSessions)
		protected.POST("/voice-notes/sessions", handler.handleCreateVoiceSession)
		protected.GET("/voice-notes/sessions/:sessionID", handler.handleGetVoiceSession)
		protected.DELETE("/voice-notes/sessions/:sessionID", handler.handleDeleteVoiceSession)
		protected.POST("/voice-notes/sessions/:sessionID/transcript", handler.handleVoiceTranscript)
		protected.POST("/voice-notes/sessions/:sessionID/summarize", handler.handleVoiceSummarize)
	}

	if deps.Finance != nil {
		protected.GET("/finances", handler.handleFinanceMetrics)
		protected.POST("/finances", handler.handleRecordTransaction)
	}
	if deps.Marketing != nil {
		protected.GET("/marketing", handler.handleMarketingMetrics)
		protected.POST("/marketing", handler.handleRecordCampaign)
	}

	return router, nil
}

type httpHandler struct {
	deps   Dependencies
	clock  func() time.Time
	logger *zap.Logger
}

type authRequestPayload struct {
	IDToken string `json:"id_token"`
}

type authResponsePayload struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

func (h *httpHandler) handleFirebaseAuth(c *gin.Context) {
	var request authRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.IDToken) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	claims, err := h.deps.IdentityVerifier.Verify(c.Request.Context(), request.IDToken)
	if err != nil {
		h.logger.Warn("firebase token verification failed", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	token, expiresIn, err := h.deps.TokenManager.IssueBackendToken(c.Request.Context(), claims)
	if err != nil {
		h.logger.Error("failed to issue backend token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token_issue_failed"})
		return
	}

	c.JSON(http.StatusOK, authResponsePayload{
		AccessToken: token,
		ExpiresIn:   expiresIn,
		TokenType:   "Bearer",
	})
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	subject, err := h.deps.TokenManager.ValidateToken(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			h.logger.Info("token validation failed", zap.Error(err))
		} else {
			h.logger.Warn("token validation failed", zap.Error(err))
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(userIDContextKey, subject)
	c.Next()
}

func (h *httpHandler) userID(c *gin.Context) (string, bool) {
	userID := c.GetString(userIDContextKey)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return "", false
	}
	return userID, true
}
