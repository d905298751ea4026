// Package model 定义数据库实体模型
// 本文件定义通话模型
package model

import (
	"database/sql"
	"time"
)

// Call 通话模型
// 对应数据库 calls 表
// 状态机: pending -> active -> ended，或 pending -> declined
// 进入终态（ended/declined）后不再变更
type Call struct {
	Id int64 `gorm:"column:id;primaryKey;autoIncrement"`

	// CallUuid 通话对外标识，由主叫端生成并随信令传递
	CallUuid string `gorm:"column:call_uuid;uniqueIndex;type:char(36);not null"`

	// ChatId 通话所属会话
	ChatId int64 `gorm:"column:chat_id;index;not null"`

	// CallerId 主叫用户 Id
	CallerId int64 `gorm:"column:caller_id;not null"`

	// ReceiverId 被叫用户 Id
	ReceiverId int64 `gorm:"column:receiver_id;not null"`

	// CallType 媒体类型 audio/video
	CallType string `gorm:"column:call_type;type:varchar(10);not null;default:audio"`

	// Status 生命周期状态，见 pkg/enum/call/call_status_enum
	Status string `gorm:"column:status;type:varchar(20);not null"`

	// StartedAt offer 到达时间
	StartedAt time.Time `gorm:"column:started_at;not null"`

	// ConnectedAt answer 到达时间，未接通则为空
	ConnectedAt sql.NullTime `gorm:"column:connected_at"`

	// EndedAt 终态时间
	EndedAt sql.NullTime `gorm:"column:ended_at"`

	// Duration 通话时长（秒），= EndedAt - ConnectedAt，未接通为空
	Duration sql.NullInt64 `gorm:"column:duration"`

	// EndReason 结束原因，默认 user_ended
	EndReason string `gorm:"column:end_reason;type:varchar(50)"`
}

// TableName 指定表名
func (Call) TableName() string {
	return "calls"
}
