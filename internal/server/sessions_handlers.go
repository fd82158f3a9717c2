package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type createSessionPayload struct {
	Title string `json:"title"`
}

type screenshotPayload struct {
	ImageDataURL  string `json:"imageDataUrl"`
	ClientLocalID string `json:"clientLocalId"`
}

type transcriptPayload struct {
	Text string `json:"text"`
}

func (h *httpHandler) handleListLiveSessions(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	sessions, err := h.deps.LiveNotes.ListSessions(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

func (h *httpHandler) handleCreateLiveSession(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var payload createSessionPayload
	if err := c.ShouldBindJSON(&payload); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	session, err := h.deps.LiveNotes.CreateSession(c.Request.Context(), userID, payload.Title)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session": session})
}

func (h *httpHandler) handleGetLiveSession(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	session, shots, err := h.deps.LiveNotes.GetSession(c.Request.Context(), userID, c.Param("sessionID"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session, "shots": shots})
}

func (h *httpHandler) handleDeleteLiveSession(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	if err := h.deps.LiveNotes.DeleteSession(c.Request.Context(), userID, c.Param("sessionID")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *httpHandler) handleLiveScreenshot(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var payload screenshotPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	shot, err := h.deps.LiveNotes.AppendShot(c.Request.Context(), userID, c.Param("sessionID"), payload.ImageDataURL)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":             shot.ID,
		"clientLocalId":  payload.ClientLocalID,
		"interpretation": shot.Interpretation,
		"createdAt":      shot.CreatedAt,
	})
}

func (h *httpHandler) handleLiveSummarize(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	summary, err := h.deps.LiveNotes.Summarize(c.Request.Context(), userID, c.Param("sessionID"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

func (h *httpHandler) handleListVoiceSessions(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	sessions, err := h.deps.VoiceNotes.ListSessions(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

func (h *httpHandler) handleCreateVoiceSession(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var payload createSessionPayload
	if err := c.ShouldBindJSON(&payload); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	session, err := h.deps.VoiceNotes.CreateSession(c.Request.Context(), userID, payload.Title)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session": session})
}

func (h *httpHandler) handleGetVoiceSession(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	session, entries, err := h.deps.VoiceNotes.GetSession(c.Request.Context(), userID, c.Param("sessionID"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session, "entries": entries})
}

func (h *httpHandler) handleDeleteVoiceSession(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	if err := h.deps.VoiceNotes.DeleteSession(c.Request.Context(), userID, c.Param("sessionID")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *httpHandler) handleVoiceTranscript(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var payload transcriptPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	if err := h.deps.VoiceNotes.AppendTranscript(c.Request.Context(), userID, c.Param("sessionID"), payload.Text); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true})
}

func (h *httpHandler) handleVoiceSummarize(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	result, err := h.deps.VoiceNotes.Summarize(c.Request.Context(), userID, c.Param("sessionID"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": result.Summary, "tasks": result.Tasks})
}
