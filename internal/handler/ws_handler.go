package handler

import (
	"net/http"

	"securewave_server/internal/service/hub"
	"securewave_server/pkg/constants"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  constants.READ_BUFFER_SIZE,
	WriteBufferSize: constants.WRITE_BUFFER_SIZE,
	// 跨域由 CORS 中间件统一控制，这里不再限制 Origin
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler WebSocket 接入点
// 连接建立后所有认证和业务都走应用层协议，由 Hub 处理
type WSHandler struct {
	hub *hub.Hub
}

func NewWSHandler(h *hub.Hub) *WSHandler {
	return &WSHandler{hub: h}
}

// Connect 升级 HTTP 连接为 WebSocket
// GET /ws
func (h *WSHandler) Connect(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		zap.L().Error("WebSocket 升级失败", zap.Error(err))
		return
	}

	conn := hub.NewConn(ws, h.hub)
	go conn.Serve()
}
