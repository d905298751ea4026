package router

import (
	"securewave_server/internal/infrastructure/middleware"

	"github.com/gin-gonic/gin"
)

// registerChatRoutes 注册会话路由，全部需要 JWT
func (rt *Router) registerChatRoutes(r *gin.Engine) {
	group := r.Group("/api/chats", middleware.JWTAuth())
	{
		group.GET("", rt.handlers.Chat.List)
		group.POST("", rt.handlers.Chat.Create)
	}
}
