package handler

import (
	"securewave_server/internal/dto/request"
	"securewave_server/internal/service/chat"

	"github.com/gin-gonic/gin"
)

// ChatHandler 会话相关接口
type ChatHandler struct {
	svc *chat.Service
}

func NewChatHandler(svc *chat.Service) *ChatHandler {
	return &ChatHandler{svc: svc}
}

// List 当前用户的会话列表
// GET /api/chats
func (h *ChatHandler) List(c *gin.Context) {
	userId := c.GetInt64("user_id")

	chats, err := h.svc.ListChats(userId)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, chats)
}

// Create 创建双人会话
// POST /api/chats
func (h *ChatHandler) Create(c *gin.Context) {
	userId := c.GetInt64("user_id")

	var req request.CreateChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}

	resp, err := h.svc.CreateChat(userId, req.ReceiverId)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, resp)
}
