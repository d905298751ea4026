package hub

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"securewave_server/internal/dao/mysql/repository"
	"securewave_server/internal/model"
	"securewave_server/pkg/errorx"
)

// fakePeer 测试用假连接，记录收到的全部帧
type fakePeer struct {
	id     string
	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func newFakePeer(id string) *fakePeer {
	return &fakePeer{id: id}
}

func (p *fakePeer) ID() string { return p.id }

func (p *fakePeer) Send(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	p.frames = append(p.frames, cp)
}

func (p *fakePeer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

func (p *fakePeer) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// events 解码全部已收帧
func (p *fakePeer) events() []map[string]any {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]map[string]any, 0, len(p.frames))
	for _, f := range p.frames {
		var m map[string]any
		if err := json.Unmarshal(f, &m); err == nil {
			out = append(out, m)
		}
	}
	return out
}

// lastOfType 返回最后一个指定类型的事件，没有则返回 nil
func (p *fakePeer) lastOfType(t string) map[string]any {
	evs := p.events()
	for i := len(evs) - 1; i >= 0; i-- {
		if evs[i]["type"] == t {
			return evs[i]
		}
	}
	return nil
}

func (p *fakePeer) countOfType(t string) int {
	n := 0
	for _, ev := range p.events() {
		if ev["type"] == t {
			n++
		}
	}
	return n
}

func (p *fakePeer) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames = nil
}

// ==================== 内存版 Repository ====================

type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[int64]*model.UserInfo
	online map[int64]bool
	nextId int64
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:  make(map[int64]*model.UserInfo),
		online: make(map[int64]bool),
		nextId: 1,
	}
}

func (r *fakeUserRepo) add(user *model.UserInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.Id] = user
}

func (r *fakeUserRepo) FindById(id int64) (*model.UserInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, errorx.New(errorx.CodeNotFound, "user not found")
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) FindByUsername(username string) (*model.UserInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, errorx.New(errorx.CodeNotFound, "user not found")
}

func (r *fakeUserRepo) Create(user *model.UserInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.Id == 0 {
		user.Id = r.nextId
		r.nextId++
	}
	r.users[user.Id] = user
	return nil
}

func (r *fakeUserRepo) SetOnline(id int64, online bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.online[id] = online
	return nil
}

func (r *fakeUserRepo) isOnline(id int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.online[id]
}

type fakeChatRepo struct {
	mu           sync.Mutex
	chatsByUuid  map[string]*model.Chat
	participants map[string][]int64 // chatUuid -> userIds
	readCursor   map[string]time.Time
	lastMessage  map[string]string
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{
		chatsByUuid:  make(map[string]*model.Chat),
		participants: make(map[string][]int64),
		readCursor:   make(map[string]time.Time),
		lastMessage:  make(map[string]string),
	}
}

func (r *fakeChatRepo) addChat(chat *model.Chat, participantIds []int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chatsByUuid[chat.ChatUuid] = chat
	r.participants[chat.ChatUuid] = participantIds
}

func cursorKey(chatId, userId int64) string {
	return fmt.Sprintf("%d:%d", chatId, userId)
}

func (r *fakeChatRepo) FindByUuid(chatUuid string) (*model.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chatsByUuid[chatUuid]
	if !ok {
		return nil, errorx.New(errorx.CodeNotFound, "chat not found")
	}
	cp := *c
	return &cp, nil
}

func (r *fakeChatRepo) Create(chat *model.Chat, participantIds []int64) error {
	r.addChat(chat, participantIds)
	return nil
}

func (r *fakeChatRepo) ParticipantIds(chatUuid string) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids, ok := r.participants[chatUuid]
	if !ok {
		return nil, errorx.New(errorx.CodeNotFound, "chat not found")
	}
	return append([]int64(nil), ids...), nil
}

func (r *fakeChatRepo) RelatedUserIds(userId int64) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[int64]bool)
	for _, ids := range r.participants {
		member := false
		for _, id := range ids {
			if id == userId {
				member = true
				break
			}
		}
		if !member {
			continue
		}
		for _, id := range ids {
			if id != userId {
				seen[id] = true
			}
		}
	}
	out := make([]int64, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (r *fakeChatRepo) IsParticipant(chatId, userId int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for uuid, c := range r.chatsByUuid {
		if c.Id != chatId {
			continue
		}
		for _, id := range r.participants[uuid] {
			if id == userId {
				return true, nil
			}
		}
	}
	return false, nil
}

func (r *fakeChatRepo) UpdateLastMessage(chatUuid string, content string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastMessage[chatUuid] = content
	return nil
}

func (r *fakeChatRepo) AdvanceReadCursor(chatId, userId int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.readCursor[cursorKey(chatId, userId)] = at
	return nil
}

func (r *fakeChatRepo) ReadCursor(chatId, userId int64) (*time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.readCursor[cursorKey(chatId, userId)]; ok {
		return &t, nil
	}
	return nil, nil
}

func (r *fakeChatRepo) cursor(chatId, userId int64) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.readCursor[cursorKey(chatId, userId)]
	return t, ok
}

func (r *fakeChatRepo) ListSummariesByUser(userId int64) ([]repository.ChatSummary, error) {
	return nil, nil
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages []model.Message
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{}
}

func (r *fakeMessageRepo) Create(message *model.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, *message)
	return nil
}

func (r *fakeMessageRepo) FindUnreadFromOthers(chatId, readerId int64) ([]model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Message
	for _, m := range r.messages {
		if m.ChatId == chatId && m.SenderId != readerId && !m.IsDeleted {
			out = append(out, m)
		}
	}
	// 时间倒序
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeMessageRepo) HistoryByChat(chatId int64) ([]repository.MessageWithSender, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []repository.MessageWithSender
	for _, m := range r.messages {
		if m.ChatId == chatId && !m.IsDeleted {
			out = append(out, repository.MessageWithSender{Message: m})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeMessageRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

func (r *fakeMessageRepo) last() *model.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return nil
	}
	cp := r.messages[len(r.messages)-1]
	return &cp
}

type fakeCallRepo struct {
	mu       sync.Mutex
	calls    map[string]*model.Call
	failFind bool // 模拟存储故障
}

func newFakeCallRepo() *fakeCallRepo {
	return &fakeCallRepo{calls: make(map[string]*model.Call)}
}

func (r *fakeCallRepo) Create(call *model.Call) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *call
	r.calls[call.CallUuid] = &cp
	return nil
}

func (r *fakeCallRepo) FindByUuid(callUuid string) (*model.Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failFind {
		return nil, errorx.New(errorx.CodeDBError, "storage unavailable")
	}
	c, ok := r.calls[callUuid]
	if !ok {
		return nil, errorx.New(errorx.CodeNotFound, "call not found")
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCallRepo) MarkActive(callUuid string, connectedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.calls[callUuid]; ok {
		c.Status = "active"
		c.ConnectedAt.Time = connectedAt
		c.ConnectedAt.Valid = true
	}
	return nil
}

func (r *fakeCallRepo) MarkEnded(callUuid string, endedAt time.Time, duration *int64, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.calls[callUuid]; ok {
		c.Status = "ended"
		c.EndedAt.Time = endedAt
		c.EndedAt.Valid = true
		if duration != nil {
			c.Duration.Int64 = *duration
			c.Duration.Valid = true
		}
		c.EndReason = reason
	}
	return nil
}

func (r *fakeCallRepo) MarkDeclined(callUuid string, endedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.calls[callUuid]; ok {
		c.Status = "declined"
		c.EndedAt.Time = endedAt
		c.EndedAt.Valid = true
	}
	return nil
}

func (r *fakeCallRepo) get(callUuid string) *model.Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.calls[callUuid]
	if !ok {
		return nil
	}
	cp := *c
	return &cp
}

// newTestHub 组装测试用 Hub
func newTestHub() (*Hub, *fakeUserRepo, *fakeChatRepo, *fakeMessageRepo, *fakeCallRepo) {
	fu := newFakeUserRepo()
	fc := newFakeChatRepo()
	fm := newFakeMessageRepo()
	fca := newFakeCallRepo()
	repos := &repository.Repositories{
		User:    fu,
		Chat:    fc,
		Message: fm,
		Call:    fca,
	}
	return NewHub(repos, nil), fu, fc, fm, fca
}
