package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/HeroHubLab/herohub/backend/internal/chat"
)

type chatHistoryPayload struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequestPayload struct {
	Message             string               `json:"message"`
	ConversationHistory []chatHistoryPayload `json:"conversationHistory"`
}

func (h *httpHandler) handleChat(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var payload chatRequestPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	history := make([]chat.HistoryMessage, 0, len(payload.ConversationHistory))
	for _, message := range payload.ConversationHistory {
		history = append(history, chat.HistoryMessage{Role: message.Role, Content: message.Content})
	}

	response, err := h.deps.Chat.Respond(c.Request.Context(), userID, payload.Message, history)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": response})
}

func (h *httpHandler) handleListConversations(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	conversations, err := h.deps.Chat.ListConversations(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

type createConversationPayload struct {
	Title string `json:"title"`
}

func (h *httpHandler) handleCreateConversation(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var payload createConversationPayload
	if err := c.ShouldBindJSON(&payload); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	conversation, err := h.deps.Chat.CreateConversation(c.Request.Context(), userID, payload.Title)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"conversation": conversation})
}

func (h *httpHandler) handleDeleteConversation(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	if err := h.deps.Chat.DeleteConversation(c.Request.Context(), userID, c.Param("conversationID")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *httpHandler) handleConversationMessages(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	conversation, messages, err := h.deps.Chat.Messages(c.Request.Context(), userID, c.Param("conversationID"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation": conversation, "messages": messages})
}

type conversationMessagePayload struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

type replaceMessagesPayload struct {
	Messages []conversationMessagePayload `json:"messages"`
}

func (h *httpHandler) handleReplaceConversationMessages(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var payload replaceMessagesPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	inputs := make([]chat.MessageInput, 0, len(payload.Messages))
	for _, message := range payload.Messages {
		inputs = append(inputs, chat.MessageInput{
			Role:      message.Role,
			Content:   message.Content,
			Timestamp: message.Timestamp,
		})
	}

	if err := h.deps.Chat.ReplaceMessages(c.Request.Context(), userID, c.Param("conversationID"), inputs); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
