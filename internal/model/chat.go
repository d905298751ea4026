// Package model 定义数据库实体模型
// 本文件定义会话模型和会话成员（已读游标）模型
package model

import (
	"database/sql"
	"time"
)

// Chat 会话模型
// 对应数据库 chats 表
// 信令协议中的 chatId 为 ChatUuid，数据库内部关联使用自增 Id
type Chat struct {
	Id int64 `gorm:"column:id;primaryKey;autoIncrement"`

	// ChatUuid 会话对外标识
	ChatUuid string `gorm:"column:chat_uuid;uniqueIndex;type:char(36);not null"`

	// Type 会话类型，目前仅支持 personal（双人会话）
	Type string `gorm:"column:type;type:varchar(20);not null;default:personal"`

	// LastMessage 最近一条消息摘要，消息转发后更新
	LastMessage string `gorm:"column:last_message;type:TEXT"`

	// LastMessageAt 最近消息时间，会话列表按此排序
	LastMessageAt sql.NullTime `gorm:"column:last_message_at"`

	CreatedAt time.Time `gorm:"column:created_at"`
}

// TableName 指定表名
func (Chat) TableName() string {
	return "chats"
}

// ChatParticipant 会话成员模型
// 对应数据库 chat_participants 表
// LastReadAt 即规范中的已读游标：未读数和消息已读状态都由它推导
type ChatParticipant struct {
	Id     int64 `gorm:"column:id;primaryKey;autoIncrement"`
	ChatId int64 `gorm:"column:chat_id;uniqueIndex:idx_chat_user;not null"`
	UserId int64 `gorm:"column:user_id;uniqueIndex:idx_chat_user;not null"`

	// LastReadAt 该成员读到的时间点，mark_read 或即时已读时前移
	LastReadAt sql.NullTime `gorm:"column:last_read_at"`
}

// TableName 指定表名
func (ChatParticipant) TableName() string {
	return "chat_participants"
}
