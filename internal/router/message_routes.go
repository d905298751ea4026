package router

import (
	"securewave_server/internal/infrastructure/middleware"

	"github.com/gin-gonic/gin"
)

// registerMessageRoutes 注册消息路由，全部需要 JWT
func (rt *Router) registerMessageRoutes(r *gin.Engine) {
	group := r.Group("/api/messages", middleware.JWTAuth())
	{
		group.GET("/chat", rt.handlers.Message.History)
	}
}
