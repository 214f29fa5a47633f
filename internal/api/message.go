package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/guardpost/internal/middleware"
	"github.com/lalith-99/guardpost/internal/present"
	"github.com/lalith-99/guardpost/internal/service"
	"go.uber.org/zap"
)

type MessageHandler struct {
	messages  *service.MessageService
	presenter *present.Presenter
	logger    *zap.Logger
}

func NewMessageHandler(messages *service.MessageService, presenter *present.Presenter, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{messages: messages, presenter: presenter, logger: logger}
}

type sendMessageRequest struct {
	ReceiverID uuid.UUID  `json:"receiverId" binding:"required"`
	Content    string     `json:"content"`
	JobID      *uuid.UUID `json:"jobId"`
}

// Send handles POST /v1/messages. The receiver's live sessions are notified
// by the service after the message is stored.
func (h *MessageHandler) Send(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "receiverId is required")
		return
	}

	m, err := h.messages.Send(c.Request.Context(), middleware.GetActor(c), req.ReceiverID, req.Content, req.JobID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	view, err := h.presenter.Message(c.Request.Context(), m)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// Conversation handles GET /v1/messages/conversation/:userId. Fetching
// marks the counterparty's messages to the caller as read.
func (h *MessageHandler) Conversation(c *gin.Context) {
	other, ok := paramID(c, "userId")
	if !ok {
		return
	}

	messages, err := h.messages.Conversation(c.Request.Context(), middleware.GetActor(c), other)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	views, err := h.presenter.Messages(c.Request.Context(), messages)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

// Conversations handles GET /v1/messages/conversations
func (h *MessageHandler) Conversations(c *gin.Context) {
	summaries, err := h.messages.Conversations(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	views, err := h.presenter.Conversations(c.Request.Context(), summaries)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

// MarkRead handles PUT /v1/messages/read/:userId
func (h *MessageHandler) MarkRead(c *gin.Context) {
	other, ok := paramID(c, "userId")
	if !ok {
		return
	}

	n, err := h.messages.MarkRead(c.Request.Context(), middleware.GetActor(c), other)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "messages marked as read", "updated": n})
}
