package handler

import (
	"errors"
	"net/http"

	"pairgo/backend/internal/storage"

	"github.com/gin-gonic/gin"
)

// GetChatHistory повертає збережені повідомлення розмови. Доступ має
// лише учасник розмови, підтверджений JWT.
func (h *Handler) GetChatHistory(c *gin.Context) {
	tokenString := bearerToken(c)
	if tokenString == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token missing"})
		return
	}
	anonID, err := h.validateAndGetAnonID(tokenString)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token or expired"})
		return
	}

	roomID := c.Param("roomID")
	conv, err := h.Storage.GetConversationByID(roomID)
	if err != nil {
		if errors.Is(err, storage.ErrConversationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversation"})
		return
	}
	if !conv.HasParticipant(anonID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a participant of this conversation"})
		return
	}

	history, err := h.Storage.GetChatHistory(roomID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"room_id": roomID, "messages": history})
}
