package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/HeroHubLab/herohub/backend/internal/accounts"
	"github.com/HeroHubLab/herohub/backend/internal/chat"
	"github.com/HeroHubLab/herohub/backend/internal/clients"
	"github.com/HeroHubLab/herohub/backend/internal/finance"
	"github.com/HeroHubLab/herohub/backend/internal/livenotes"
	"github.com/HeroHubLab/herohub/backend/internal/llm"
	"github.com/HeroHubLab/herohub/backend/internal/marketing"
	"github.com/HeroHubLab/herohub/backend/internal/notes"
	"github.com/HeroHubLab/herohub/backend/internal/tasks"
	"github.com/HeroHubLab/herohub/backend/internal/voicenotes"
	"github.com/HeroHubLab/herohub/backend/internal/workspace"
)

// Machine-readable error codes surfaced alongside the HTTP status so the
// client can distinguish re-auth prompts from plain failures.
const (
	codeGoogleNotConnected = "GOOGLE_NOT_CONNECTED"
	codeAPINotEnabled      = "API_NOT_ENABLED"
)

var notFoundErrors = []error{
	clients.ErrNotFound,
	accounts.ErrNotFound,
	chat.ErrNotFound,
	livenotes.ErrNotFound,
	voicenotes.ErrNotFound,
	tasks.ErrNotFound,
	notes.ErrNotFound,
	finance.ErrNotFound,
}

var forbiddenErrors = []error{
	clients.ErrForbidden,
	chat.ErrForbidden,
	tasks.ErrForbidden,
	notes.ErrForbidden,
}

var validationErrors = []error{
	clients.ErrValidation,
	clients.ErrNoValidRows,
	clients.ErrEmptyCSV,
	accounts.ErrValidation,
	chat.ErrValidation,
	livenotes.ErrValidation,
	voicenotes.ErrValidation,
	tasks.ErrValidation,
	notes.ErrValidation,
	finance.ErrValidation,
	marketing.ErrValidation,
}

func matchesAny(err error, sentinels []error) bool {
	for _, sentinel := range sentinels {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// respondError maps service sentinel errors onto the HTTP taxonomy.
// Anything unmapped is logged and returned as a generic 500.
func (h *httpHandler) respondError(c *gin.Context, err error) {
	var upstream *llm.UpstreamError
	switch {
	case errors.Is(err, workspace.ErrNotConnected):
		c.JSON(http.StatusForbidden, gin.H{
			"error": "no email accounts connected",
			"code":  codeGoogleNotConnected,
		})
	case errors.Is(err, workspace.ErrAPIDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "provider api disabled",
			"code":    codeAPINotEnabled,
			"details": err.Error(),
		})
	case errors.Is(err, accounts.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &upstream):
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "completion provider error",
			"details": upstream.Error(),
		})
	case errors.Is(err, llm.ErrEmptyContent):
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "completion provider error",
			"details": err.Error(),
		})
	case matchesAny(err, notFoundErrors):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case matchesAny(err, forbiddenErrors):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case matchesAny(err, validationErrors):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
