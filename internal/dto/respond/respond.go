// Package respond 定义 HTTP 响应数据结构
package respond

import "time"

// UserRespond 用户资料
type UserRespond struct {
	Id        int64      `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	AvatarUrl string     `json:"avatarUrl"`
	IsOnline  bool       `json:"isOnline"`
	LastSeen  *time.Time `json:"lastSeen,omitempty"`
}

// AuthRespond 注册/登录响应，携带 JWT 和用户资料
type AuthRespond struct {
	Token string      `json:"token"`
	User  UserRespond `json:"user"`
}

// ChatRespond 创建会话响应
type ChatRespond struct {
	ChatUuid  string    `json:"id"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
}

// MessageRespond 历史消息条目
// 消息 id 和发送者 id 以字符串下发，与 WebSocket 通道保持一致
type MessageRespond struct {
	Id           string    `json:"id"`
	ChatId       string    `json:"chatId"`
	SenderId     string    `json:"senderId"`
	SenderName   string    `json:"senderName"`
	SenderAvatar string    `json:"senderAvatar"`
	Content      string    `json:"content"`
	Type         string    `json:"type"`
	Status       string    `json:"status"`
	IsRead       bool      `json:"isRead"`
	Timestamp    time.Time `json:"timestamp"`
}
