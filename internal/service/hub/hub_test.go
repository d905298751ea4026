package hub

import (
	"encoding/json"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"securewave_server/internal/model"
	"securewave_server/pkg/enum/message/message_status_enum"
	"securewave_server/pkg/util/jwt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	jwt.Init("unit-test-secret-key-0123456789ab", 1)
	os.Exit(m.Run())
}

var connSeq int64

// connectPeer 注册一条未授权连接
func connectPeer(h *Hub) *fakePeer {
	p := newFakePeer(fmt.Sprintf("conn-%d", atomic.AddInt64(&connSeq, 1)))
	h.Register(p)
	return p
}

// authAs 建立连接并完成认证，认证产生的帧会被清空
func authAs(t *testing.T, h *Hub, users *fakeUserRepo, id int64, username string) *fakePeer {
	t.Helper()
	users.add(&model.UserInfo{Id: id, Username: username})
	p := connectPeer(h)
	token, err := jwt.GenerateToken(id, username)
	require.NoError(t, err)
	frame, err := json.Marshal(map[string]any{"type": "auth", "token": token})
	require.NoError(t, err)
	h.Dispatch(p, frame)
	require.NotNil(t, p.lastOfType("auth_success"), "auth should succeed")
	p.reset()
	return p
}

func dispatch(h *Hub, p Peer, v map[string]any) {
	frame, _ := json.Marshal(v)
	h.Dispatch(p, frame)
}

func TestPingPong(t *testing.T) {
	h, _, _, _, _ := newTestHub()
	p := connectPeer(h)

	dispatch(h, p, map[string]any{"type": "ping"})

	require.NotNil(t, p.lastOfType("pong"))
}

func TestAuthSuccess(t *testing.T) {
	h, users, _, _, _ := newTestHub()
	users.add(&model.UserInfo{Id: 7, Username: "alice"})
	p := connectPeer(h)
	token, err := jwt.GenerateToken(7, "alice")
	require.NoError(t, err)

	dispatch(h, p, map[string]any{"type": "auth", "token": "Bearer " + token})

	ev := p.lastOfType("auth_success")
	require.NotNil(t, ev)
	assert.EqualValues(t, 7, ev["userId"])
	assert.Equal(t, "alice", ev["username"])
	assert.True(t, users.isOnline(7))
	assert.True(t, h.IsOnline(7))
}

func TestAuthMissingToken(t *testing.T) {
	h, _, _, _, _ := newTestHub()
	p := connectPeer(h)

	dispatch(h, p, map[string]any{"type": "auth"})

	ev := p.lastOfType("auth_error")
	require.NotNil(t, ev)
	assert.Equal(t, "token not provided", ev["error"])
}

func TestAuthInvalidToken(t *testing.T) {
	h, _, _, _, _ := newTestHub()
	p := connectPeer(h)

	dispatch(h, p, map[string]any{"type": "auth", "token": "not-a-jwt"})

	ev := p.lastOfType("auth_error")
	require.NotNil(t, ev)
	assert.Equal(t, "invalid token", ev["error"])
}

// 重复认证挤掉旧连接后，旧连接的断开清理不能误删新连接的在线记录
func TestAuthEvictsOldConnection(t *testing.T) {
	h, users, chats, _, _ := newTestHub()
	chats.addChat(&model.Chat{Id: 1, ChatUuid: "chat-1"}, []int64{1, 2})
	watcher := authAs(t, h, users, 2, "bob")

	oldConn := authAs(t, h, users, 1, "alice")
	newConn := authAs(t, h, users, 1, "alice")

	assert.True(t, oldConn.isClosed(), "old connection should be closed")
	assert.False(t, newConn.isClosed())
	assert.True(t, h.IsOnline(1))

	// 模拟旧连接的读循环退出
	watcher.reset()
	h.Disconnect(oldConn)

	assert.True(t, h.IsOnline(1), "presence must still point to the new connection")
	assert.True(t, users.isOnline(1))
	assert.Zero(t, watcher.countOfType("user_offline"),
		"evicted connection must not trigger offline broadcast")
}

func TestReauthAsDifferentUserClearsOldPresence(t *testing.T) {
	h, users, chats, _, _ := newTestHub()
	chats.addChat(&model.Chat{Id: 10, ChatUuid: "chat-1"}, []int64{1, 3})
	watcher := authAs(t, h, users, 3, "carol")
	p := authAs(t, h, users, 1, "alice")
	watcher.reset()

	// 同一连接换账号重认证
	users.add(&model.UserInfo{Id: 2, Username: "bob"})
	token, err := jwt.GenerateToken(2, "bob")
	require.NoError(t, err)
	dispatch(h, p, map[string]any{"type": "auth", "token": token})
	require.NotNil(t, p.lastOfType("auth_success"))

	assert.False(t, h.IsOnline(1), "旧身份不应残留在线表项")
	assert.True(t, h.IsOnline(2))
	assert.False(t, users.isOnline(1))

	off := watcher.lastOfType("user_offline")
	require.NotNil(t, off)
	assert.EqualValues(t, 1, off["userId"])

	// 断开只下线新身份，旧身份不会重复广播
	watcher.reset()
	h.Disconnect(p)
	assert.Equal(t, 0, watcher.countOfType("user_offline"))
	assert.False(t, h.IsOnline(2))
}

func TestUnauthenticatedRejected(t *testing.T) {
	h, _, _, _, _ := newTestHub()
	p := connectPeer(h)

	dispatch(h, p, map[string]any{"type": "send_message", "chatId": "c", "content": "hi"})
	ev := p.lastOfType("error")
	require.NotNil(t, ev)
	assert.Equal(t, "authentication required", ev["message"])

	p.reset()
	dispatch(h, p, map[string]any{
		"type": "call_offer", "callId": "c1", "chatId": "chat-1",
		"receiverId": 2, "offer": map[string]any{"sdp": "x"},
	})
	callErr := p.lastOfType("call_error")
	require.NotNil(t, callErr)
	assert.Equal(t, "unauthorized", callErr["error"])
}

func TestMalformedFrame(t *testing.T) {
	h, _, _, _, _ := newTestHub()
	p := connectPeer(h)

	h.Dispatch(p, []byte("{not json"))

	ev := p.lastOfType("error")
	require.NotNil(t, ev)
	assert.Equal(t, "failed to process message", ev["message"])
}

func TestUnknownType(t *testing.T) {
	h, users, _, _, _ := newTestHub()
	p := authAs(t, h, users, 1, "alice")

	dispatch(h, p, map[string]any{"type": "frobnicate"})

	ev := p.lastOfType("error")
	require.NotNil(t, ev)
	assert.Equal(t, "unknown message type", ev["message"])
}

func TestSendMessageReadWhenRecipientInChat(t *testing.T) {
	h, users, chats, msgs, _ := newTestHub()
	chats.addChat(&model.Chat{Id: 10, ChatUuid: "chat-1"}, []int64{1, 2})
	sender := authAs(t, h, users, 1, "alice")
	recipient := authAs(t, h, users, 2, "bob")

	dispatch(h, recipient, map[string]any{"type": "join_chat", "chatId": "chat-1"})
	sender.reset()
	recipient.reset()

	dispatch(h, sender, map[string]any{
		"type": "send_message", "chatId": "chat-1",
		"content": "привет", "tempId": "tmp-42",
	})

	echo := sender.lastOfType("message_sent")
	require.NotNil(t, echo)
	assert.Equal(t, "tmp-42", echo["tempId"])
	msg := echo["message"].(map[string]any)
	assert.Equal(t, message_status_enum.Read, msg["status"])
	assert.Equal(t, "1", msg["senderId"])
	assert.Equal(t, "alice", msg["senderName"])
	assert.Equal(t, "привет", msg["content"])

	delivered := recipient.lastOfType("message")
	require.NotNil(t, delivered)
	assert.Equal(t, message_status_enum.Read, delivered["message"].(map[string]any)["status"])

	// 接收方已读游标已前移
	_, ok := chats.cursor(10, 2)
	assert.True(t, ok)

	// 落库状态保持 sent，线上状态只影响下发
	require.Equal(t, 1, msgs.count())
	assert.Equal(t, message_status_enum.Sent, msgs.last().Status)
	assert.Equal(t, "привет", chats.lastMessage["chat-1"])
}

func TestSendMessageDeliveredWhenRecipientOnlineElsewhere(t *testing.T) {
	h, users, chats, _, _ := newTestHub()
	chats.addChat(&model.Chat{Id: 10, ChatUuid: "chat-1"}, []int64{1, 2})
	sender := authAs(t, h, users, 1, "alice")
	recipient := authAs(t, h, users, 2, "bob")

	dispatch(h, sender, map[string]any{
		"type": "send_message", "chatId": "chat-1", "content": "hi",
	})

	echo := sender.lastOfType("message_sent")
	require.NotNil(t, echo)
	assert.Equal(t, message_status_enum.Delivered, echo["message"].(map[string]any)["status"])
	require.NotNil(t, recipient.lastOfType("message"))

	_, ok := chats.cursor(10, 2)
	assert.False(t, ok, "cursor must not move when recipient is not in the chat")
}

func TestSendMessageSentWhenRecipientOffline(t *testing.T) {
	h, users, chats, _, _ := newTestHub()
	chats.addChat(&model.Chat{Id: 10, ChatUuid: "chat-1"}, []int64{1, 2})
	sender := authAs(t, h, users, 1, "alice")

	dispatch(h, sender, map[string]any{
		"type": "send_message", "chatId": "chat-1", "content": "hi",
	})

	echo := sender.lastOfType("message_sent")
	require.NotNil(t, echo)
	assert.Equal(t, message_status_enum.Sent, echo["message"].(map[string]any)["status"])
}

// 缺 chatId 或 content 时静默丢弃，不回任何事件
func TestSendMessageMissingFieldsDropped(t *testing.T) {
	h, users, chats, msgs, _ := newTestHub()
	chats.addChat(&model.Chat{Id: 10, ChatUuid: "chat-1"}, []int64{1, 2})
	sender := authAs(t, h, users, 1, "alice")

	dispatch(h, sender, map[string]any{"type": "send_message", "chatId": "chat-1"})
	dispatch(h, sender, map[string]any{"type": "send_message", "content": "hi"})

	assert.Empty(t, sender.events())
	assert.Zero(t, msgs.count())
}

func TestTypingBroadcast(t *testing.T) {
	h, users, chats, _, _ := newTestHub()
	chats.addChat(&model.Chat{Id: 10, ChatUuid: "chat-1"}, []int64{1, 2})
	typist := authAs(t, h, users, 1, "alice")
	watcher := authAs(t, h, users, 2, "bob")

	dispatch(h, typist, map[string]any{"type": "typing", "chatId": "chat-1"})

	ev := watcher.lastOfType("typing")
	require.NotNil(t, ev)
	assert.EqualValues(t, 1, ev["userId"])
	assert.Equal(t, "alice", ev["userName"])
	assert.Equal(t, true, ev["isTyping"])
	assert.Empty(t, typist.events(), "typist must not receive own typing event")

	dispatch(h, typist, map[string]any{"type": "stopped_typing", "chatId": "chat-1"})

	stopped := watcher.lastOfType("stopped_typing")
	require.NotNil(t, stopped)
	assert.Equal(t, false, stopped["isTyping"])
	_, hasName := stopped["userName"]
	assert.False(t, hasName)
}

// mark_read 按发送者去重，只通知最新一条消息
func TestMarkReadNotifiesSenderOnce(t *testing.T) {
	h, users, chats, msgs, _ := newTestHub()
	chats.addChat(&model.Chat{Id: 10, ChatUuid: "chat-1"}, []int64{1, 2})
	reader := authAs(t, h, users, 1, "alice")
	sender := authAs(t, h, users, 2, "bob")

	base := time.Now()
	require.NoError(t, msgs.Create(&model.Message{
		Id: 100, ChatId: 10, SenderId: 2, Content: "first", CreatedAt: base,
	}))
	require.NoError(t, msgs.Create(&model.Message{
		Id: 101, ChatId: 10, SenderId: 2, Content: "second", CreatedAt: base.Add(time.Second),
	}))

	dispatch(h, reader, map[string]any{"type": "mark_read", "chatId": "chat-1"})

	require.Equal(t, 1, sender.countOfType("message_read"))
	ev := sender.lastOfType("message_read")
	assert.Equal(t, "101", ev["messageId"], "should reference the newest message")
	assert.EqualValues(t, 1, ev["readBy"])
	assert.Equal(t, message_status_enum.Read, ev["status"])

	_, ok := chats.cursor(10, 1)
	assert.True(t, ok)
}

func TestDisconnectBroadcastsOfflineOnce(t *testing.T) {
	h, users, chats, _, _ := newTestHub()
	chats.addChat(&model.Chat{Id: 10, ChatUuid: "chat-1"}, []int64{1, 2})
	leaver := authAs(t, h, users, 1, "alice")
	watcher := authAs(t, h, users, 2, "bob")

	h.Disconnect(leaver)
	h.Disconnect(leaver)

	assert.Equal(t, 1, watcher.countOfType("user_offline"))
	assert.False(t, h.IsOnline(1))
	assert.False(t, users.isOnline(1))
}

func TestJoinLeaveChatTracksCurrentChat(t *testing.T) {
	h, users, chats, _, _ := newTestHub()
	chats.addChat(&model.Chat{Id: 10, ChatUuid: "chat-1"}, []int64{1, 2})
	p := authAs(t, h, users, 1, "alice")

	dispatch(h, p, map[string]any{"type": "join_chat", "chatId": "chat-1"})
	st := h.snapshotState(p)
	require.NotNil(t, st)
	assert.Equal(t, "chat-1", st.CurrentChatId)

	dispatch(h, p, map[string]any{"type": "leave_chat"})
	st = h.snapshotState(p)
	require.NotNil(t, st)
	assert.Empty(t, st.CurrentChatId)
}
