// Package model 定义数据库实体模型
// 本文件定义用户模型
package model

import (
	"database/sql"
	"time"
)

// UserInfo 用户模型
// 对应数据库 users 表
type UserInfo struct {
	// Id 用户主键，自增
	// 信令协议中的 userId 即此字段
	Id int64 `gorm:"column:id;primaryKey;autoIncrement"`

	// Username 用户名，登录凭据，唯一
	Username string `gorm:"column:username;uniqueIndex;type:varchar(50);not null"`

	// Email 邮箱，可作为展示名兜底
	Email string `gorm:"column:email;type:varchar(100)"`

	// PasswordHash bcrypt 密码散列
	PasswordHash string `gorm:"column:password_hash;type:varchar(100);not null"`

	// AvatarUrl 头像链接，通话 offer 转发时随 caller 信息下发
	AvatarUrl string `gorm:"column:avatar_url;type:varchar(255)"`

	// IsOnline 在线标记，由信令服务在认证/断开时维护
	IsOnline bool `gorm:"column:is_online;not null;default:false"`

	// LastSeen 最近一次在线状态变化时间
	LastSeen sql.NullTime `gorm:"column:last_seen"`

	CreatedAt time.Time `gorm:"column:created_at"`
}

// TableName 指定表名
func (UserInfo) TableName() string {
	return "users"
}

// DisplayName 返回展示名：优先用户名，其次邮箱
func (u *UserInfo) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}
