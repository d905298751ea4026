// Package request 定义 HTTP 请求参数结构
// binding tag 由 gin + validator 在绑定时校验
package request

// RegisterRequest 用户注册
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=32"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=64"`
}

// LoginRequest 用户登录
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// CreateChatRequest 创建双人会话
// receiverId 前端以字符串传递，避免 JS 整数精度问题
type CreateChatRequest struct {
	ReceiverId int64 `json:"receiverId,string" binding:"required"`
}
