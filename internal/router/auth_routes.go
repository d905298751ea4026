package router

import (
	"securewave_server/internal/infrastructure/middleware"

	"github.com/gin-gonic/gin"
)

// registerAuthRoutes 注册认证路由
// register/login 公开，me 需要 JWT
func (rt *Router) registerAuthRoutes(r *gin.Engine) {
	group := r.Group("/api/auth")
	{
		group.POST("/register", rt.handlers.Auth.Register)
		group.POST("/login", rt.handlers.Auth.Login)
	}

	authed := r.Group("/api/auth", middleware.JWTAuth())
	{
		authed.GET("/me", rt.handlers.Auth.Me)
	}
}
