package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/HeroHubLab/herohub/backend/internal/accounts"
	"github.com/HeroHubLab/herohub/backend/internal/workspace"
)

func (h *httpHandler) handleCalendarEvents(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	window := workspace.EventsWindow{
		TimeMin:    c.Query("timeMin"),
		TimeMax:    c.Query("timeMax"),
		MaxResults: parseIntQuery(c, "maxResults"),
	}
	result, err := h.deps.Workspace.Events(c.Request.Context(), userID, window)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *httpHandler) handleGmailMessages(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	query := workspace.MailQuery{
		MaxResults:   parseIntQuery(c, "maxResults"),
		AccountEmail: c.Query("accountEmail"),
	}
	result, err := h.deps.Workspace.Mail(c.Request.Context(), userID, query)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *httpHandler) handleListAccounts(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	stored, err := h.deps.Accounts.List(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": stored})
}

type addAccountPayload struct {
	Email        string `json:"email"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresAt    int64  `json:"expiresAt"`
	Label        string `json:"label"`
}

func (h *httpHandler) handleAddAccount(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var payload addAccountPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	account, err := h.deps.Accounts.Add(c.Request.Context(), userID, accounts.AddInput{
		Email:        payload.Email,
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
		ExpiresAt:    payload.ExpiresAt,
		Label:        payload.Label,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, account)
}

func (h *httpHandler) handleRemoveAccount(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	accountID := strings.TrimSpace(c.Param("accountID"))
	if accountID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "account id is required"})
		return
	}
	if err := h.deps.Accounts.Remove(c.Request.Context(), userID, accountID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func parseIntQuery(c *gin.Context, name string) int {
	raw := c.Query(name)
	if raw == "" {
		return 0
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0
	}
	return value
}
