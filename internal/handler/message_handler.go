package handler

import (
	"securewave_server/internal/service/chat"
	"securewave_server/pkg/errorx"

	"github.com/gin-gonic/gin"
)

// MessageHandler 消息相关接口
type MessageHandler struct {
	svc *chat.Service
}

func NewMessageHandler(svc *chat.Service) *MessageHandler {
	return &MessageHandler{svc: svc}
}

// History 会话历史消息
// GET /api/messages/chat?chatId=xxx
func (h *MessageHandler) History(c *gin.Context) {
	userId := c.GetInt64("user_id")

	chatId := c.Query("chatId")
	if chatId == "" {
		HandleError(c, errorx.New(errorx.CodeInvalidParam, "chatId is required"))
		return
	}

	messages, err := h.svc.History(userId, chatId)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, messages)
}
