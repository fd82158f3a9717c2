package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/HeroHubLab/herohub/backend/internal/clients"
)

func (h *httpHandler) handleListClients(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	records, err := h.deps.Clients.List(c.Request.Context(), userID, c.Query("status"), c.Query("search"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"clients": records})
}

type clientPayload struct {
	Name   string   `json:"name"`
	Email  string   `json:"email"`
	Phone  string   `json:"phone"`
	Status string   `json:"status"`
	Value  *float64 `json:"value"`
	Notes  string   `json:"notes"`
}

func (h *httpHandler) handleCreateClient(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var payload clientPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	record, err := h.deps.Clients.Create(c.Request.Context(), userID, clients.CreateInput{
		Name:   payload.Name,
		Email:  payload.Email,
		Phone:  payload.Phone,
		Status: clients.Status(payload.Status),
		Value:  payload.Value,
		Notes:  payload.Notes,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"client": record})
}

type clientUpdatePayload struct {
	Name         *string  `json:"name"`
	Email        *string  `json:"email"`
	Phone        *string  `json:"phone"`
	Status       *string  `json:"status"`
	Value        *float64 `json:"value"`
	Notes        *string  `json:"notes"`
	LastContact  *string  `json:"lastContact"`
	ProjectCount *int     `json:"projectCount"`
}

func (h *httpHandler) handleUpdateClient(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	clientID := strings.TrimSpace(c.Query("id"))
	if clientID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "client id is required"})
		return
	}

	var payload clientUpdatePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	input := clients.UpdateInput{
		Name:         payload.Name,
		Email:        payload.Email,
		Phone:        payload.Phone,
		Value:        payload.Value,
		Notes:        payload.Notes,
		LastContact:  payload.LastContact,
		ProjectCount: payload.ProjectCount,
	}
	if payload.Status != nil {
		status := clients.Status(*payload.Status)
		input.Status = &status
	}

	record, err := h.deps.Clients.Update(c.Request.Context(), userID, clientID, input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"client": record})
}

func (h *httpHandler) handleDeleteClient(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	clientID := strings.TrimSpace(c.Query("id"))
	if clientID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "client id is required"})
		return
	}
	if err := h.deps.Clients.Delete(c.Request.Context(), userID, clientID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type cleanImportPayload struct {
	CSV string `json:"csv"`
}

func (h *httpHandler) handleCleanImport(c *gin.Context) {
	_, ok := h.userID(c)
	if !ok {
		return
	}
	if h.deps.Cleaner == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "import cleaning is not configured"})
		return
	}

	var payload cleanImportPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	contacts, err := h.deps.Cleaner.Clean(c.Request.Context(), payload.CSV)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contacts": contacts})
}

type importPayload struct {
	Contacts []clients.Contact `json:"contacts"`
}

func (h *httpHandler) handleImportClients(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var payload importPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	result, err := h.deps.Clients.Import(c.Request.Context(), userID, payload.Contacts)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
