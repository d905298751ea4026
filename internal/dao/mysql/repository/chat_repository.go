package repository

import (
	"database/sql"
	"time"

	"securewave_server/internal/model"

	"gorm.io/gorm"
)

type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository 创建会话 Repository
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

// FindByUuid 根据对外 uuid 查找会话
func (r *chatRepository) FindByUuid(chatUuid string) (*model.Chat, error) {
	var chat model.Chat
	if err := r.db.Where("chat_uuid = ?", chatUuid).First(&chat).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询会话 chat_uuid=%s", chatUuid)
	}
	return &chat, nil
}

// Create 创建会话并写入成员（同一事务）
func (r *chatRepository) Create(chat *model.Chat, participantIds []int64) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(chat).Error; err != nil {
			return err
		}
		for _, userId := range participantIds {
			participant := model.ChatParticipant{
				ChatId: chat.Id,
				UserId: userId,
			}
			if err := tx.Create(&participant).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return wrapDBError(err, "创建会话")
	}
	return nil
}

// ParticipantIds 查询会话全部成员的用户 Id
func (r *chatRepository) ParticipantIds(chatUuid string) ([]int64, error) {
	var ids []int64
	err := r.db.Model(&model.ChatParticipant{}).
		Where("chat_id = (?)", r.db.Model(&model.Chat{}).Select("id").Where("chat_uuid = ?", chatUuid)).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, wrapDBErrorf(err, "查询会话成员 chat_uuid=%s", chatUuid)
	}
	return ids, nil
}

// RelatedUserIds 查询与指定用户共处任一会话的其他用户 Id（去重）
// 用于上线/下线广播的扇出范围
func (r *chatRepository) RelatedUserIds(userId int64) ([]int64, error) {
	var ids []int64
	err := r.db.Model(&model.ChatParticipant{}).
		Distinct("user_id").
		Where("chat_id IN (?)",
			r.db.Model(&model.ChatParticipant{}).Select("chat_id").Where("user_id = ?", userId)).
		Where("user_id != ?", userId).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, wrapDBErrorf(err, "查询关联用户 user_id=%d", userId)
	}
	return ids, nil
}

// IsParticipant 判断用户是否为会话成员
func (r *chatRepository) IsParticipant(chatId, userId int64) (bool, error) {
	var count int64
	err := r.db.Model(&model.ChatParticipant{}).
		Where("chat_id = ? AND user_id = ?", chatId, userId).
		Count(&count).Error
	if err != nil {
		return false, wrapDBErrorf(err, "查询会话成员 chat_id=%d user_id=%d", chatId, userId)
	}
	return count > 0, nil
}

// UpdateLastMessage 更新会话最近消息摘要
func (r *chatRepository) UpdateLastMessage(chatUuid string, content string, at time.Time) error {
	updates := map[string]interface{}{
		"last_message":    content,
		"last_message_at": sql.NullTime{Time: at, Valid: true},
	}
	err := r.db.Model(&model.Chat{}).Where("chat_uuid = ?", chatUuid).Updates(updates).Error
	if err != nil {
		return wrapDBErrorf(err, "更新会话最近消息 chat_uuid=%s", chatUuid)
	}
	return nil
}

// AdvanceReadCursor 将成员已读游标前移到指定时间
func (r *chatRepository) AdvanceReadCursor(chatId, userId int64, at time.Time) error {
	err := r.db.Model(&model.ChatParticipant{}).
		Where("chat_id = ? AND user_id = ?", chatId, userId).
		Update("last_read_at", sql.NullTime{Time: at, Valid: true}).Error
	if err != nil {
		return wrapDBErrorf(err, "更新已读游标 chat_id=%d user_id=%d", chatId, userId)
	}
	return nil
}

// ReadCursor 查询成员的已读游标，从未读过返回 nil
func (r *chatRepository) ReadCursor(chatId, userId int64) (*time.Time, error) {
	var lastReadAt sql.NullTime
	err := r.db.Model(&model.ChatParticipant{}).
		Where("chat_id = ? AND user_id = ?", chatId, userId).
		Pluck("last_read_at", &lastReadAt).Error
	if err != nil {
		return nil, wrapDBErrorf(err, "查询已读游标 chat_id=%d user_id=%d", chatId, userId)
	}
	if !lastReadAt.Valid {
		return nil, nil
	}
	return &lastReadAt.Time, nil
}

// ListSummariesByUser 查询用户的双人会话列表
// 对端资料通过第二个成员行关联，未读数按已读游标之后他人消息计数
func (r *chatRepository) ListSummariesByUser(userId int64) ([]ChatSummary, error) {
	type row struct {
		ChatUuid      string
		ChatId        int64
		Type          string
		LastMessage   string
		LastMessageAt sql.NullTime
		PeerId        int64
		PeerName      string
		PeerEmail     string
		PeerAvatar    string
		PeerOnline    bool
		LastReadAt    sql.NullTime
	}
	var rows []row
	err := r.db.Table("chats c").
		Select(`c.chat_uuid AS chat_uuid, c.id AS chat_id, c.type AS type,
			c.last_message AS last_message, c.last_message_at AS last_message_at,
			cp2.user_id AS peer_id, u.username AS peer_name, u.email AS peer_email,
			u.avatar_url AS peer_avatar, u.is_online AS peer_online,
			cp.last_read_at AS last_read_at`).
		Joins("JOIN chat_participants cp ON cp.chat_id = c.id AND cp.user_id = ?", userId).
		Joins("JOIN chat_participants cp2 ON cp2.chat_id = c.id AND cp2.user_id != ?", userId).
		Joins("LEFT JOIN users u ON u.id = cp2.user_id").
		Where("c.type = ?", "personal").
		Order("c.last_message_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, wrapDBErrorf(err, "查询会话列表 user_id=%d", userId)
	}

	summaries := make([]ChatSummary, 0, len(rows))
	for _, rw := range rows {
		name := rw.PeerName
		if name == "" {
			name = rw.PeerEmail
		}
		s := ChatSummary{
			ChatUuid:    rw.ChatUuid,
			Name:        name,
			Type:        rw.Type,
			Avatar:      rw.PeerAvatar,
			LastMessage: rw.LastMessage,
			IsOnline:    rw.PeerOnline,
			PeerId:      rw.PeerId,
		}
		if rw.LastMessageAt.Valid {
			t := rw.LastMessageAt.Time
			s.LastMessageAt = &t
		}

		// 未读数：已读游标之后、他人发送、未删除
		query := r.db.Model(&model.Message{}).
			Where("chat_id = ? AND sender_id != ? AND is_deleted = ?", rw.ChatId, userId, false)
		if rw.LastReadAt.Valid {
			query = query.Where("created_at > ?", rw.LastReadAt.Time)
		}
		if err := query.Count(&s.UnreadCount).Error; err != nil {
			return nil, wrapDBErrorf(err, "统计未读消息 chat_id=%d", rw.ChatId)
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}
