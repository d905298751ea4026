// Package chat 实现会话列表、会话创建和历史消息查询
package chat

import (
	"strconv"
	"time"

	"securewave_server/internal/dao/mysql/repository"
	"securewave_server/internal/dto/respond"
	"securewave_server/internal/model"
	"securewave_server/pkg/errorx"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Service struct {
	repos *repository.Repositories
}

func NewService(repos *repository.Repositories) *Service {
	return &Service{repos: repos}
}

// ListChats 查询用户的会话列表，按对端资料填充名称和在线状态
func (s *Service) ListChats(userId int64) ([]repository.ChatSummary, error) {
	summaries, err := s.repos.Chat.ListSummariesByUser(userId)
	if err != nil {
		return nil, err
	}
	if summaries == nil {
		summaries = []repository.ChatSummary{}
	}
	return summaries, nil
}

// CreateChat 创建与指定用户的双人会话
func (s *Service) CreateChat(userId, receiverId int64) (*respond.ChatRespond, error) {
	if receiverId == userId {
		return nil, errorx.New(errorx.CodeInvalidParam, "cannot create chat with yourself")
	}
	if _, err := s.repos.User.FindById(receiverId); err != nil {
		if errorx.IsNotFound(err) {
			return nil, errorx.New(errorx.CodeUserNotExist, "receiver not found")
		}
		return nil, err
	}

	now := time.Now()
	newChat := &model.Chat{
		ChatUuid:  uuid.NewString(),
		Type:      "personal",
		CreatedAt: now,
	}
	if err := s.repos.Chat.Create(newChat, []int64{userId, receiverId}); err != nil {
		return nil, err
	}
	zap.L().Info("会话已创建",
		zap.String("chat_uuid", newChat.ChatUuid),
		zap.Int64("user_id", userId),
		zap.Int64("receiver_id", receiverId))

	return &respond.ChatRespond{
		ChatUuid:  newChat.ChatUuid,
		Type:      newChat.Type,
		CreatedAt: now,
	}, nil
}

// History 查询会话历史消息，按时间正序
// 仅会话成员可见
func (s *Service) History(userId int64, chatUuid string) ([]respond.MessageRespond, error) {
	if chatUuid == "" {
		return nil, errorx.ErrInvalidParam
	}

	found, err := s.repos.Chat.FindByUuid(chatUuid)
	if err != nil {
		if errorx.IsNotFound(err) {
			return nil, errorx.New(errorx.CodeNotFound, "chat not found")
		}
		return nil, err
	}

	member, err := s.repos.Chat.IsParticipant(found.Id, userId)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, errorx.New(errorx.CodeForbidden, "not a member of this chat")
	}

	rows, err := s.repos.Message.HistoryByChat(found.Id)
	if err != nil {
		return nil, err
	}
	cursor, err := s.repos.Chat.ReadCursor(found.Id, userId)
	if err != nil {
		return nil, err
	}

	messages := make([]respond.MessageRespond, 0, len(rows))
	for _, row := range rows {
		// 自己发的消息视为已读，他人消息按已读游标判定
		isRead := row.SenderId == userId ||
			(cursor != nil && !row.CreatedAt.After(*cursor))
		messages = append(messages, respond.MessageRespond{
			Id:           strconv.FormatInt(row.Id, 10),
			ChatId:       chatUuid,
			SenderId:     strconv.FormatInt(row.SenderId, 10),
			SenderName:   row.SenderName,
			SenderAvatar: row.SenderAvatar,
			Content:      row.Content,
			Type:         row.Type,
			Status:       row.Status,
			IsRead:       isRead,
			Timestamp:    row.CreatedAt,
		})
	}

	// 拉取历史即视为阅读，游标前移避免未读数滞留
	if err := s.repos.Chat.AdvanceReadCursor(found.Id, userId, time.Now()); err != nil {
		zap.L().Warn("历史查询后更新已读游标失败",
			zap.String("chat_uuid", chatUuid),
			zap.Int64("user_id", userId), zap.Error(err))
	}
	return messages, nil
}
