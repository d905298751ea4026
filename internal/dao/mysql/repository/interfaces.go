// Package repository 定义数据访问层接口和聚合结构
// 采用 Repository 模式将数据访问逻辑与业务逻辑分离
// 所有 Repository 接口在此文件定义，具体实现在各自的文件中
package repository

import (
	"errors"
	"time"

	"securewave_server/internal/model"
	"securewave_server/pkg/errorx"

	"gorm.io/gorm"
)

// ==================== 错误包装辅助函数 ====================

// wrapDBError 包装数据库错误
// ErrRecordNotFound -> CodeNotFound，其余 -> CodeDBError
func wrapDBError(err error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errorx.Wrap(err, errorx.CodeNotFound, msg)
	}
	return errorx.Wrap(err, errorx.CodeDBError, msg)
}

// wrapDBErrorf 包装数据库错误（支持格式化消息）
func wrapDBErrorf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errorx.Wrapf(err, errorx.CodeNotFound, format, args...)
	}
	return errorx.Wrapf(err, errorx.CodeDBError, format, args...)
}

// ==================== Repository 接口定义 ====================

// UserRepository 用户数据访问接口
type UserRepository interface {
	// FindById 根据主键查找用户
	FindById(id int64) (*model.UserInfo, error)
	// FindByUsername 根据用户名查找用户
	FindByUsername(username string) (*model.UserInfo, error)
	// Create 创建新用户
	Create(user *model.UserInfo) error
	// SetOnline 更新在线标记并刷新 last_seen
	SetOnline(id int64, online bool) error
}

// ChatSummary 会话列表条目（含对端信息与未读数）
// 双人会话场景：Name/Avatar/IsOnline 取自对端用户
type ChatSummary struct {
	ChatUuid      string     `json:"id"`
	Name          string     `json:"name"`
	Type          string     `json:"type"`
	Avatar        string     `json:"avatar"`
	LastMessage   string     `json:"lastMessage"`
	LastMessageAt *time.Time `json:"lastMessageTime"`
	IsOnline      bool       `json:"isOnline"`
	PeerId        int64      `json:"receiverId,string"`
	UnreadCount   int64      `json:"unreadCount"`
}

// ChatRepository 会话数据访问接口
// 管理会话、成员关系和已读游标
type ChatRepository interface {
	// FindByUuid 根据对外 uuid 查找会话
	FindByUuid(chatUuid string) (*model.Chat, error)
	// Create 创建会话并写入成员（同一事务）
	Create(chat *model.Chat, participantIds []int64) error
	// ParticipantIds 查询会话全部成员的用户 Id
	ParticipantIds(chatUuid string) ([]int64, error)
	// RelatedUserIds 查询与指定用户共处任一会话的其他用户 Id（去重）
	RelatedUserIds(userId int64) ([]int64, error)
	// IsParticipant 判断用户是否为会话成员
	IsParticipant(chatId, userId int64) (bool, error)
	// UpdateLastMessage 更新会话最近消息摘要
	UpdateLastMessage(chatUuid string, content string, at time.Time) error
	// AdvanceReadCursor 将成员已读游标前移到指定时间
	AdvanceReadCursor(chatId, userId int64, at time.Time) error
	// ReadCursor 查询成员的已读游标，从未读过返回 nil
	ReadCursor(chatId, userId int64) (*time.Time, error)
	// ListSummariesByUser 查询用户的双人会话列表（含未读数）
	ListSummariesByUser(userId int64) ([]ChatSummary, error)
}

// MessageWithSender 消息及发送者资料（历史查询用）
type MessageWithSender struct {
	model.Message
	SenderName   string
	SenderAvatar string
}

// MessageRepository 消息数据访问接口
type MessageRepository interface {
	// Create 落库一条消息
	Create(message *model.Message) error
	// FindUnreadFromOthers 查询会话中他人发送的未删除消息，按时间倒序
	FindUnreadFromOthers(chatId, readerId int64) ([]model.Message, error)
	// HistoryByChat 按时间正序查询会话消息历史（含发送者资料）
	HistoryByChat(chatId int64) ([]MessageWithSender, error)
}

// CallRepository 通话数据访问接口
// 所有状态更新都是 last-write-wins，不做乐观并发控制
type CallRepository interface {
	// Create 创建 pending 状态的通话记录
	Create(call *model.Call) error
	// FindByUuid 根据通话 uuid 查找记录
	FindByUuid(callUuid string) (*model.Call, error)
	// MarkActive 接通：status=active，记录 connected_at
	MarkActive(callUuid string, connectedAt time.Time) error
	// MarkEnded 结束：status=ended，记录 ended_at/duration/end_reason
	MarkEnded(callUuid string, endedAt time.Time, duration *int64, reason string) error
	// MarkDeclined 拒接：status=declined，记录 ended_at
	MarkDeclined(callUuid string, endedAt time.Time) error
}

// ==================== Repository 聚合 ====================

// Repositories 聚合所有 Repository 实例
// 作为依赖注入的入口，Service 层通过此结构访问数据层
type Repositories struct {
	db      *gorm.DB
	User    UserRepository
	Chat    ChatRepository
	Message MessageRepository
	Call    CallRepository
}

// NewRepositories 创建所有 Repository 实例
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		db:      db,
		User:    NewUserRepository(db),
		Chat:    NewChatRepository(db),
		Message: NewMessageRepository(db),
		Call:    NewCallRepository(db),
	}
}

// Transaction 在数据库事务中执行函数
// 事务内的所有操作要么全部成功，要么全部回滚
func (r *Repositories) Transaction(fn func(txRepos *Repositories) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}
