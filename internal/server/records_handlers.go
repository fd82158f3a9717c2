package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/HeroHubLab/herohub/backend/internal/finance"
	"github.com/HeroHubLab/herohub/backend/internal/llm"
	"github.com/HeroHubLab/herohub/backend/internal/marketing"
	"github.com/HeroHubLab/herohub/backend/internal/notes"
	"github.com/HeroHubLab/herohub/backend/internal/tasks"
)

func (h *httpHandler) handleListTasks(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	records, err := h.deps.Tasks.List(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": records})
}

type createTaskPayload struct {
	Title    string `json:"title"`
	Priority string `json:"priority"`
	DueDate  string `json:"dueDate"`
}

func (h *httpHandler) handleCreateTask(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var payload createTaskPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	task, err := h.deps.Tasks.Create(c.Request.Context(), userID, tasks.CreateInput{
		Title:    payload.Title,
		Priority: payload.Priority,
		DueDate:  payload.DueDate,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"task": task})
}

type updateTaskPayload struct {
	Title     *string `json:"title"`
	Completed *bool   `json:"completed"`
	Priority  *string `json:"priority"`
	DueDate   *string `json:"dueDate"`
	Order     *int    `json:"order"`
}

func (h *httpHandler) handleUpdateTask(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var payload updateTaskPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	task, err := h.deps.Tasks.Update(c.Request.Context(), userID, c.Param("taskID"), tasks.UpdateInput{
		Title:     payload.Title,
		Completed: payload.Completed,
		Priority:  payload.Priority,
		DueDate:   payload.DueDate,
		Order:     payload.Order,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": task})
}

func (h *httpHandler) handleDeleteTask(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	if err := h.deps.Tasks.Delete(c.Request.Context(), userID, c.Param("taskID")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *httpHandler) handleListNotes(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	records, err := h.deps.Notes.List(c.Request.Context(), userID, parseIntQuery(c, "limit"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notes": records})
}

type createNotePayload struct {
	Text string `json:"text"`
}

func (h *httpHandler) handleCreateNote(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var payload createNotePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	note, err := h.deps.Notes.Create(c.Request.Context(), userID, payload.Text)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"note": note})
}

type updateNotePayload struct {
	Text           *string    `json:"text"`
	Summary        *string    `json:"summary"`
	SuggestedTasks []llm.Task `json:"suggestedTasks"`
}

func (h *httpHandler) handleUpdateNote(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var payload updateNotePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	note, err := h.deps.Notes.Update(c.Request.Context(), userID, c.Param("noteID"), notes.UpdateInput{
		Text:           payload.Text,
		Summary:        payload.Summary,
		SuggestedTasks: payload.SuggestedTasks,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"note": note})
}

func (h *httpHandler) handleDeleteNote(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	if err := h.deps.Notes.Delete(c.Request.Context(), userID, c.Param("noteID")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *httpHandler) handleFinanceMetrics(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	metrics, err := h.deps.Finance.Metrics(c.Request.Context(), userID, h.clock())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, metrics)
}

type recordTransactionPayload struct {
	ClientID    string  `json:"clientId"`
	Amount      float64 `json:"amount"`
	Date        string  `json:"date"`
	Type        string  `json:"type"`
	Status      string  `json:"status"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
}

func (h *httpHandler) handleRecordTransaction(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var payload recordTransactionPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	transaction, err := h.deps.Finance.Record(c.Request.Context(), userID, finance.RecordInput{
		ClientID:    payload.ClientID,
		Amount:      payload.Amount,
		Date:        payload.Date,
		Type:        payload.Type,
		Status:      payload.Status,
		Description: payload.Description,
		Category:    payload.Category,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"transaction": transaction})
}

func (h *httpHandler) handleMarketingMetrics(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	metrics, err := h.deps.Marketing.Metrics(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, metrics)
}

type recordCampaignPayload struct {
	Name        string  `json:"name"`
	Platform    string  `json:"platform"`
	Status      string  `json:"status"`
	Spend       float64 `json:"spend"`
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	Conversions int64   `json:"conversions"`
	StartDate   string  `json:"startDate"`
	EndDate     string  `json:"endDate"`
}

func (h *httpHandler) handleRecordCampaign(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var payload recordCampaignPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	campaign, err := h.deps.Marketing.Record(c.Request.Context(), userID, marketing.RecordInput{
		Name:        payload.Name,
		Platform:    payload.Platform,
		Status:      payload.Status,
		Spend:       payload.Spend,
		Impressions: payload.Impressions,
		Clicks:      payload.Clicks,
		Conversions: payload.Conversions,
		StartDate:   payload.StartDate,
		EndDate:     payload.EndDate,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"campaign": campaign})
}
