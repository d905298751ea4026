// Package router 提供 HTTP 路由注册
package router

import (
	"securewave_server/internal/handler"

	"github.com/gin-gonic/gin"
)

// Router 路由管理器，持有 Handler 聚合
type Router struct {
	handlers *handler.Handlers
}

func NewRouter(handlers *handler.Handlers) *Router {
	return &Router{handlers: handlers}
}

// RegisterRoutes 注册所有路由
// 按模块分别注册各个路由组
func (rt *Router) RegisterRoutes(r *gin.Engine) {
	rt.registerAuthRoutes(r)      // 认证路由
	rt.registerChatRoutes(r)      // 会话路由
	rt.registerMessageRoutes(r)   // 消息路由
	rt.registerWebSocketRoutes(r) // WebSocket 路由
}
