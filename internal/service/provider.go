// Package service 聚合业务服务，作为依赖注入入口
package service

import (
	"securewave_server/internal/dao/mysql/repository"
	"securewave_server/internal/service/auth"
	"securewave_server/internal/service/chat"
)

// Services 聚合所有 Service 实例
// Handler 层通过此结构访问业务逻辑
type Services struct {
	Auth *auth.Service
	Chat *chat.Service
}

// NewServices 创建并注入所有 Service 实例
func NewServices(repos *repository.Repositories) *Services {
	return &Services{
		Auth: auth.NewService(repos),
		Chat: chat.NewService(repos),
	}
}
