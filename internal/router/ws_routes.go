package router

import "github.com/gin-gonic/gin"

// registerWebSocketRoutes 注册 WebSocket 接入点
// 认证在连接建立后通过应用层 auth 帧完成，不走 JWT 中间件
func (rt *Router) registerWebSocketRoutes(r *gin.Engine) {
	r.GET("/ws", rt.handlers.WS.Connect)
}
