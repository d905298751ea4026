// Package model 定义数据库实体模型
// 本文件定义消息模型
package model

import "time"

// Message 消息模型
// 对应数据库 messages 表
type Message struct {
	// Id 消息唯一标识，雪花算法生成的 int64
	Id int64 `gorm:"column:id;primaryKey"`

	// ChatId 所属会话（chats 表自增 Id，非对外 uuid）
	ChatId int64 `gorm:"column:chat_id;index;not null"`

	// SenderId 发送者用户 Id
	SenderId int64 `gorm:"column:sender_id;index;not null"`

	// Content 消息文本内容
	Content string `gorm:"column:content;type:TEXT;not null"`

	// Type 消息类型，如 "text"
	Type string `gorm:"column:type;type:varchar(20);not null;default:text"`

	// Status 落库状态恒为 sent；下发给客户端的状态按接收方
	// 在线情况即时计算，已读与否由成员的已读游标推导
	Status string `gorm:"column:status;type:varchar(20);not null;default:sent"`

	// IsDeleted 软删除标记，已删除消息不参与已读回执
	IsDeleted bool `gorm:"column:is_deleted;not null;default:false"`

	CreatedAt time.Time `gorm:"column:created_at;index"`
}

// TableName 指定表名
func (Message) TableName() string {
	return "messages"
}
