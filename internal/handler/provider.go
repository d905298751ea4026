// Package handler 提供 HTTP 请求处理器
// 本文件定义 Handler 聚合结构和构造函数
package handler

import (
	"securewave_server/internal/service"
	"securewave_server/internal/service/hub"
)

// Handlers 聚合所有 Handler 实例
// 作为依赖注入的入口，Router 层通过此结构访问各个 Handler
type Handlers struct {
	Auth    *AuthHandler
	Chat    *ChatHandler
	Message *MessageHandler
	WS      *WSHandler
}

// NewHandlers 创建并注入所有 Handler 实例
func NewHandlers(svc *service.Services, h *hub.Hub) *Handlers {
	return &Handlers{
		Auth:    NewAuthHandler(svc.Auth),
		Chat:    NewChatHandler(svc.Chat),
		Message: NewMessageHandler(svc.Chat),
		WS:      NewWSHandler(h),
	}
}
