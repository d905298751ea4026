package repository

import (
	"securewave_server/internal/model"

	"gorm.io/gorm"
)

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository 创建消息 Repository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

// Create 落库一条消息
func (r *messageRepository) Create(message *model.Message) error {
	if err := r.db.Create(message).Error; err != nil {
		return wrapDBError(err, "创建消息")
	}
	return nil
}

// FindUnreadFromOthers 查询会话中他人发送的未删除消息，按时间倒序
// 倒序保证每个发送者遇到的第一条即其最新一条
func (r *messageRepository) FindUnreadFromOthers(chatId, readerId int64) ([]model.Message, error) {
	var messages []model.Message
	err := r.db.Where("chat_id = ? AND sender_id != ? AND is_deleted = ?", chatId, readerId, false).
		Order("created_at DESC").
		Find(&messages).Error
	if err != nil {
		return nil, wrapDBErrorf(err, "查询未读消息 chat_id=%d reader=%d", chatId, readerId)
	}
	return messages, nil
}

// HistoryByChat 按时间正序查询会话消息历史（含发送者资料）
func (r *messageRepository) HistoryByChat(chatId int64) ([]MessageWithSender, error) {
	var messages []MessageWithSender
	err := r.db.Table("messages m").
		Select("m.*, u.username AS sender_name, u.avatar_url AS sender_avatar").
		Joins("JOIN users u ON u.id = m.sender_id").
		Where("m.chat_id = ? AND m.is_deleted = ?", chatId, false).
		Order("m.created_at ASC").
		Scan(&messages).Error
	if err != nil {
		return nil, wrapDBErrorf(err, "查询消息历史 chat_id=%d", chatId)
	}
	return messages, nil
}
