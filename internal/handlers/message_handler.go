package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tullo/chatdesk/internal/models"
)

type MessageHandler struct {
	chat Chat
}

func NewMessageHandler(ch Chat) *MessageHandler {
	return &MessageHandler{chat: ch}
}

// EditMessage replaces the content of a message
func (h *MessageHandler) EditMessage(c *gin.Context) {
	var req models.EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	convID, msgID := c.Param("conversation_id"), c.Param("id")
	if err := h.chat.Edit(c.Request.Context(), convID, msgID, req.Content); err != nil {
		respondError(c, err)
		return
	}

	msg, _ := h.chat.Store().Message(convID, msgID)
	c.JSON(http.StatusOK, msg)
}

// DeleteMessage removes a message
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	if err := h.chat.DeleteMessage(c.Request.Context(), c.Param("conversation_id"), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
