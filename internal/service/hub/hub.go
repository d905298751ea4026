// Package hub 实现实时消息与通话信令中心
// 维护连接注册表和用户在线目录，负责认证、消息转发、
// 输入状态广播、已读回执以及 WebRTC 通话信令的路由
package hub

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"securewave_server/internal/dao/mysql/repository"
	redisdao "securewave_server/internal/dao/redis"
	"securewave_server/internal/model"
	"securewave_server/pkg/constants"
	"securewave_server/pkg/enum/message/message_status_enum"
	"securewave_server/pkg/util/jwt"
	"securewave_server/pkg/util/snowflake"

	"go.uber.org/zap"
)

// Hub 信令中心
// states/peers/presence 三张表由同一把锁保护
// 持锁期间不做任何存储调用，避免慢查询阻塞全部连接
type Hub struct {
	mu       sync.Mutex
	states   map[string]*ConnState // 连接 id -> 会话状态
	peers    map[string]Peer       // 连接 id -> 连接
	presence map[int64]Peer        // 用户 id -> 当前连接（每用户至多一条）

	repos *repository.Repositories
	cache redisdao.AsyncCacheService // 可为 nil，nil 时直接查库

	// 时间源，测试时注入固定时钟
	now func() time.Time
}

// NewHub 创建信令中心
// cache 传 nil 表示不启用缓存加速
func NewHub(repos *repository.Repositories, cache redisdao.AsyncCacheService) *Hub {
	return &Hub{
		states:   make(map[string]*ConnState),
		peers:    make(map[string]Peer),
		presence: make(map[int64]Peer),
		repos:    repos,
		cache:    cache,
		now:      time.Now,
	}
}

// Register 登记一条新连接，初始为未授权状态
func (h *Hub) Register(p Peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.peers[p.ID()] = p
	h.states[p.ID()] = &ConnState{}
	zap.L().Info("新连接接入",
		zap.String("conn_id", p.ID()),
		zap.Int("total", len(h.peers)))
}

// Disconnect 连接关闭时的清理，幂等
// 仅当在线目录仍指向该连接时才移除并广播下线，
// 防止被挤下线的旧连接误删新连接的在线记录
func (h *Hub) Disconnect(p Peer) {
	h.mu.Lock()
	st, ok := h.states[p.ID()]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(h.states, p.ID())
	delete(h.peers, p.ID())

	var userId int64
	ownsPresence := false
	if st.Authorized {
		if cur, exists := h.presence[st.UserId]; exists && cur.ID() == p.ID() {
			delete(h.presence, st.UserId)
			ownsPresence = true
			userId = st.UserId
		}
	}
	h.mu.Unlock()

	if !ownsPresence {
		return
	}

	h.markOffline(userId)
	zap.L().Info("用户下线",
		zap.Int64("user_id", userId), zap.String("username", st.Username))
}

// markOffline 更新离线状态并向相关用户广播
func (h *Hub) markOffline(userId int64) {
	if err := h.repos.User.SetOnline(userId, false); err != nil {
		zap.L().Error("更新离线状态失败", zap.Int64("user_id", userId), zap.Error(err))
	}
	if h.cache != nil {
		h.cache.SubmitTask(func() {
			_ = h.cache.RemoveFromSet(context.Background(),
				constants.ONLINE_USERS_KEY, strconv.FormatInt(userId, 10))
		})
	}
	h.broadcastUserStatus(userId, false)
}

// Dispatch 解析并分发一帧入站消息
func (h *Hub) Dispatch(p Peer, raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		zap.L().Warn("JSON 解析失败", zap.String("conn_id", p.ID()), zap.Error(err))
		h.sendEvent(p, errorEvent{Type: "error", Message: "failed to process message"})
		return
	}

	st := h.snapshotState(p)
	if st == nil {
		// 连接已注销，丢弃
		return
	}

	// 授权门禁：未授权只放行 auth / ping
	// call_end 例外，允许未授权清理残留通话
	if env.Type != "auth" && env.Type != "ping" && !st.Authorized {
		switch env.Type {
		case "call_end":
			var req callEndRequest
			if err := json.Unmarshal(raw, &req); err != nil {
				h.sendEvent(p, errorEvent{Type: "error", Message: "failed to process message"})
				return
			}
			h.handleCallEnd(p, 0, req)
		case "call_offer", "call_answer", "call_ice_candidate", "call_decline":
			h.sendEvent(p, callErrorEvent{
				Type:    "call_error",
				Error:   "unauthorized",
				Message: "authorization required for calls",
			})
		default:
			h.sendEvent(p, errorEvent{Type: "error", Message: "authentication required"})
		}
		return
	}

	switch env.Type {
	case "auth":
		var req authRequest
		if !h.decode(p, raw, &req) {
			return
		}
		h.handleAuth(p, req)
	case "ping":
		h.sendEvent(p, pongEvent{Type: "pong"})
	case "typing":
		var req chatScopedRequest
		if !h.decode(p, raw, &req) {
			return
		}
		h.handleTyping(p, st, req, true)
	case "stopped_typing":
		var req chatScopedRequest
		if !h.decode(p, raw, &req) {
			return
		}
		h.handleTyping(p, st, req, false)
	case "send_message", "message":
		var req sendMessageRequest
		if !h.decode(p, raw, &req) {
			return
		}
		h.handleSendMessage(p, st, req)
	case "join_chat":
		var req chatScopedRequest
		if !h.decode(p, raw, &req) {
			return
		}
		h.handleJoinChat(p, st, req)
	case "leave_chat":
		h.handleLeaveChat(p, st)
	case "mark_read":
		var req markReadRequest
		if !h.decode(p, raw, &req) {
			return
		}
		h.handleMarkRead(st, req)
	case "call_offer":
		var req callOfferRequest
		if !h.decode(p, raw, &req) {
			return
		}
		h.handleCallOffer(p, st, req)
	case "call_answer":
		var req callAnswerRequest
		if !h.decode(p, raw, &req) {
			return
		}
		h.handleCallAnswer(p, st.UserId, req)
	case "call_ice_candidate":
		var req iceCandidateRequest
		if !h.decode(p, raw, &req) {
			return
		}
		h.handleIceCandidate(st.UserId, req)
	case "call_end":
		var req callEndRequest
		if !h.decode(p, raw, &req) {
			return
		}
		h.handleCallEnd(p, st.UserId, req)
	case "call_decline":
		var req callDeclineRequest
		if !h.decode(p, raw, &req) {
			return
		}
		h.handleCallDecline(st.UserId, req)
	default:
		zap.L().Warn("未知消息类型", zap.String("type", env.Type))
		h.sendEvent(p, errorEvent{Type: "error", Message: "unknown message type"})
	}
}

// handleAuth 处理认证
// 同一用户重复认证时挤掉旧连接（last-auth-wins）
func (h *Hub) handleAuth(p Peer, req authRequest) {
	if req.Token == "" {
		h.sendEvent(p, authErrorEvent{Type: "auth_error", Error: "token not provided"})
		return
	}

	// 兼容客户端带 Bearer 前缀或引号的写法
	token := strings.NewReplacer("Bearer ", "", `"`, "", "'", "").Replace(req.Token)

	claims, err := jwt.ParseToken(token)
	if err != nil {
		zap.L().Warn("Token 校验失败", zap.String("conn_id", p.ID()), zap.Error(err))
		h.sendEvent(p, authErrorEvent{Type: "auth_error", Error: "invalid token"})
		return
	}

	user, err := h.repos.User.FindById(claims.UserId)
	if err != nil {
		zap.L().Warn("Token 对应用户不存在",
			zap.Int64("user_id", claims.UserId), zap.Error(err))
		h.sendEvent(p, authErrorEvent{Type: "auth_error", Error: "invalid token"})
		return
	}

	h.mu.Lock()
	st, ok := h.states[p.ID()]
	if !ok {
		h.mu.Unlock()
		return
	}
	evicted := h.presence[user.Id]
	// 同一连接换账号重认证时，先清掉旧身份的在线表项
	var prevUserId int64
	if st.Authorized && st.UserId != user.Id {
		if cur, exists := h.presence[st.UserId]; exists && cur.ID() == p.ID() {
			delete(h.presence, st.UserId)
			prevUserId = st.UserId
		}
	}
	st.Authorized = true
	st.UserId = user.Id
	st.Username = user.Username
	st.CurrentChatId = ""
	h.presence[user.Id] = p
	h.mu.Unlock()

	if evicted != nil && evicted.ID() != p.ID() {
		zap.L().Info("用户重复连接，关闭旧连接",
			zap.Int64("user_id", user.Id),
			zap.String("old_conn_id", evicted.ID()))
		evicted.Close()
	}
	if prevUserId != 0 {
		h.markOffline(prevUserId)
	}

	if err := h.repos.User.SetOnline(user.Id, true); err != nil {
		zap.L().Error("更新在线状态失败", zap.Int64("user_id", user.Id), zap.Error(err))
	}
	if h.cache != nil {
		h.cache.SubmitTask(func() {
			_ = h.cache.AddToSet(context.Background(),
				constants.ONLINE_USERS_KEY, strconv.FormatInt(user.Id, 10))
		})
	}

	h.sendEvent(p, authSuccessEvent{
		Type:     "auth_success",
		UserId:   user.Id,
		Username: user.Username,
	})
	zap.L().Info("用户认证成功",
		zap.Int64("user_id", user.Id), zap.String("username", user.Username))

	h.broadcastUserStatus(user.Id, true)
}

func (h *Hub) handleJoinChat(p Peer, st *ConnState, req chatScopedRequest) {
	if req.ChatId == "" {
		return
	}
	h.mu.Lock()
	if cur, ok := h.states[p.ID()]; ok {
		cur.CurrentChatId = req.ChatId
	}
	h.mu.Unlock()
	zap.L().Debug("用户进入会话",
		zap.String("username", st.Username), zap.String("chat_id", req.ChatId))
}

func (h *Hub) handleLeaveChat(p Peer, st *ConnState) {
	h.mu.Lock()
	if cur, ok := h.states[p.ID()]; ok {
		cur.CurrentChatId = ""
	}
	h.mu.Unlock()
	zap.L().Debug("用户离开会话", zap.String("username", st.Username))
}

// handleTyping 输入状态广播，typing 携带用户名，stopped_typing 不带
func (h *Hub) handleTyping(p Peer, st *ConnState, req chatScopedRequest, isTyping bool) {
	if req.ChatId == "" {
		return
	}
	participants, err := h.participantIds(req.ChatId)
	if err != nil {
		zap.L().Error("查询会话成员失败", zap.String("chat_id", req.ChatId), zap.Error(err))
		return
	}

	ev := typingEvent{
		ChatId:   req.ChatId,
		UserId:   st.UserId,
		IsTyping: isTyping,
	}
	if isTyping {
		ev.Type = "typing"
		ev.UserName = st.Username
	} else {
		ev.Type = "stopped_typing"
	}

	for _, target := range h.livePeers(participants, st.UserId) {
		h.sendEvent(target, ev)
	}
}

// handleSendMessage 消息转发
// 先落库再广播，线上状态按第一个找到的对端实时升级：
// 对端正处于本会话 -> read（同时前移其已读游标）
// 对端仅在线 -> delivered，否则保持 sent
func (h *Hub) handleSendMessage(p Peer, st *ConnState, req sendMessageRequest) {
	if req.ChatId == "" || req.Content == "" {
		// 按约定静默丢弃，只记日志不回错误
		zap.L().Warn("消息缺少 chatId 或 content，丢弃",
			zap.String("conn_id", p.ID()))
		return
	}
	msgType := req.MessageType
	if msgType == "" {
		msgType = "text"
	}

	chat, err := h.repos.Chat.FindByUuid(req.ChatId)
	if err != nil {
		zap.L().Error("会话不存在或查询失败",
			zap.String("chat_id", req.ChatId), zap.Error(err))
		return
	}

	now := h.now()
	msg := &model.Message{
		Id:        snowflake.GenerateID(),
		ChatId:    chat.Id,
		SenderId:  st.UserId,
		Content:   req.Content,
		Type:      msgType,
		Status:    message_status_enum.Sent,
		CreatedAt: now,
	}
	if err := h.repos.Message.Create(msg); err != nil {
		zap.L().Error("消息落库失败", zap.String("chat_id", req.ChatId), zap.Error(err))
		return
	}

	participants, err := h.participantIds(req.ChatId)
	if err != nil {
		zap.L().Error("查询会话成员失败", zap.String("chat_id", req.ChatId), zap.Error(err))
		return
	}

	// 判定状态并快照在线目标，全部在锁内完成
	status := message_status_enum.Sent
	var readerId int64
	type target struct {
		peer Peer
		self bool
	}
	var targets []target

	h.mu.Lock()
	for _, pid := range participants {
		if pid == st.UserId {
			continue
		}
		pr, online := h.presence[pid]
		if !online {
			continue
		}
		if rst, ok := h.states[pr.ID()]; ok && rst.CurrentChatId == req.ChatId {
			status = message_status_enum.Read
			readerId = pid
		} else {
			status = message_status_enum.Delivered
		}
		// 只看第一个在线对端
		break
	}
	for _, pid := range participants {
		if pr, online := h.presence[pid]; online {
			targets = append(targets, target{peer: pr, self: pid == st.UserId})
		}
	}
	h.mu.Unlock()

	if readerId != 0 {
		if err := h.repos.Chat.AdvanceReadCursor(chat.Id, readerId, now); err != nil {
			zap.L().Error("前移已读游标失败",
				zap.Int64("reader_id", readerId), zap.Error(err))
		}
	}

	payload := messagePayload{
		Id:         strconv.FormatInt(msg.Id, 10),
		ChatId:     req.ChatId,
		SenderId:   strconv.FormatInt(st.UserId, 10),
		SenderName: st.Username,
		Content:    req.Content,
		Timestamp:  now.Format(time.RFC3339),
		Type:       msgType,
		Status:     status,
	}

	// 发送者收 message_sent 回执（带 tempId 供前端对齐乐观更新），其余收 message
	for _, t := range targets {
		if t.self {
			h.sendEvent(t.peer, messageEvent{
				Type:    "message_sent",
				Message: payload,
				TempId:  req.TempId,
			})
		} else {
			h.sendEvent(t.peer, messageEvent{Type: "message", Message: payload})
		}
	}

	if err := h.repos.Chat.UpdateLastMessage(req.ChatId, req.Content, now); err != nil {
		zap.L().Error("更新会话最近消息失败",
			zap.String("chat_id", req.ChatId), zap.Error(err))
	}
}

// handleMarkRead 标记会话已读
// 前移已读游标后，按发送者去重通知在线发送者（每人只通知最新一条）
func (h *Hub) handleMarkRead(st *ConnState, req markReadRequest) {
	if req.ChatId == "" {
		zap.L().Warn("mark_read 缺少 chatId")
		return
	}

	chat, err := h.repos.Chat.FindByUuid(req.ChatId)
	if err != nil {
		zap.L().Warn("mark_read 会话不存在",
			zap.String("chat_id", req.ChatId), zap.Error(err))
		return
	}

	if err := h.repos.Chat.AdvanceReadCursor(chat.Id, st.UserId, h.now()); err != nil {
		zap.L().Error("前移已读游标失败",
			zap.Int64("user_id", st.UserId), zap.Error(err))
	}

	msgs, err := h.repos.Message.FindUnreadFromOthers(chat.Id, st.UserId)
	if err != nil {
		zap.L().Error("查询未读消息失败", zap.Int64("chat_id", chat.Id), zap.Error(err))
		return
	}

	// msgs 按时间倒序，每个发送者取最新一条
	notified := make(map[int64]bool)
	type delivery struct {
		peer Peer
		ev   messageReadEvent
	}
	var deliveries []delivery

	h.mu.Lock()
	for _, m := range msgs {
		if notified[m.SenderId] {
			continue
		}
		notified[m.SenderId] = true
		pr, online := h.presence[m.SenderId]
		if !online {
			continue
		}
		deliveries = append(deliveries, delivery{
			peer: pr,
			ev: messageReadEvent{
				Type:      "message_read",
				ChatId:    req.ChatId,
				MessageId: strconv.FormatInt(m.Id, 10),
				ReadBy:    st.UserId,
				Status:    message_status_enum.Read,
			},
		})
	}
	h.mu.Unlock()

	for _, d := range deliveries {
		h.sendEvent(d.peer, d.ev)
	}
}

// broadcastUserStatus 向同会话的其他用户广播上下线
func (h *Hub) broadcastUserStatus(userId int64, online bool) {
	related, err := h.repos.Chat.RelatedUserIds(userId)
	if err != nil {
		zap.L().Error("查询关联用户失败", zap.Int64("user_id", userId), zap.Error(err))
		return
	}

	evType := "user_offline"
	if online {
		evType = "user_online"
	}
	ev := userStatusEvent{Type: evType, UserId: userId, IsOnline: online}

	for _, target := range h.livePeers(related, userId) {
		h.sendEvent(target, ev)
	}
}

// participantIds 解析会话成员，优先走缓存，未命中回源并异步回填
func (h *Hub) participantIds(chatUuid string) ([]int64, error) {
	cacheKey := constants.CHAT_MEMBERS_KEY_PRE + chatUuid
	if h.cache != nil {
		members, err := h.cache.GetSetMembers(context.Background(), cacheKey)
		if err == nil && len(members) > 0 {
			ids := make([]int64, 0, len(members))
			valid := true
			for _, m := range members {
				id, perr := strconv.ParseInt(m, 10, 64)
				if perr != nil {
					valid = false
					break
				}
				ids = append(ids, id)
			}
			if valid {
				return ids, nil
			}
		}
	}

	ids, err := h.repos.Chat.ParticipantIds(chatUuid)
	if err != nil {
		return nil, err
	}
	if h.cache != nil && len(ids) > 0 {
		members := make([]interface{}, 0, len(ids))
		for _, id := range ids {
			members = append(members, strconv.FormatInt(id, 10))
		}
		h.cache.SubmitTask(func() {
			_ = h.cache.AddToSet(context.Background(), cacheKey, members...)
		})
	}
	return ids, nil
}

// livePeers 从用户 id 列表中筛出在线连接，排除 exclude 本人
func (h *Hub) livePeers(userIds []int64, exclude int64) []Peer {
	h.mu.Lock()
	defer h.mu.Unlock()
	peers := make([]Peer, 0, len(userIds))
	for _, id := range userIds {
		if id == exclude {
			continue
		}
		if pr, ok := h.presence[id]; ok {
			peers = append(peers, pr)
		}
	}
	return peers
}

// snapshotState 拷贝连接状态快照，后续读取不再持锁
func (h *Hub) snapshotState(p Peer) *ConnState {
	h.mu.Lock()
	defer h.mu.Unlock()
	st, ok := h.states[p.ID()]
	if !ok {
		return nil
	}
	cp := *st
	return &cp
}

// decode 解析类型化请求体，失败回错误事件
func (h *Hub) decode(p Peer, raw []byte, v any) bool {
	if err := json.Unmarshal(raw, v); err != nil {
		zap.L().Warn("请求体解析失败", zap.String("conn_id", p.ID()), zap.Error(err))
		h.sendEvent(p, errorEvent{Type: "error", Message: "failed to process message"})
		return false
	}
	return true
}

// sendEvent 序列化并发送单个事件
func (h *Hub) sendEvent(p Peer, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		zap.L().Error("事件序列化失败", zap.Error(err))
		return
	}
	p.Send(data)
}

// OnlineCount 当前在线用户数
func (h *Hub) OnlineCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.presence)
}

// IsOnline 用户是否在线
func (h *Hub) IsOnline(userId int64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.presence[userId]
	return ok
}
