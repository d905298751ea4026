package hub

import "encoding/json"

// 出站事件定义
// 消息和通话相关的 id 统一用字符串下发，避免前端 JS 整数精度丢失
// 用户 id 沿用数字类型

type pongEvent struct {
	Type string `json:"type"`
}

type authSuccessEvent struct {
	Type     string `json:"type"`
	UserId   int64  `json:"userId"`
	Username string `json:"username"`
}

type authErrorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

type errorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type callErrorEvent struct {
	Type    string `json:"type"`
	CallId  string `json:"callId,omitempty"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type typingEvent struct {
	Type     string `json:"type"`
	ChatId   string `json:"chatId"`
	UserId   int64  `json:"userId"`
	UserName string `json:"userName,omitempty"`
	IsTyping bool   `json:"isTyping"`
}

// messagePayload 消息正文，随 message / message_sent 事件下发
type messagePayload struct {
	Id         string `json:"id"`
	ChatId     string `json:"chatId"`
	SenderId   string `json:"senderId"`
	SenderName string `json:"senderName"`
	Content    string `json:"content"`
	Timestamp  string `json:"timestamp"`
	Type       string `json:"type"`
	Status     string `json:"status"`
}

type messageEvent struct {
	Type    string         `json:"type"`
	Message messagePayload `json:"message"`
	TempId  string         `json:"tempId,omitempty"`
}

type messageReadEvent struct {
	Type      string `json:"type"`
	ChatId    string `json:"chatId"`
	MessageId string `json:"messageId"`
	ReadBy    int64  `json:"readBy"`
	Status    string `json:"status"`
}

type userStatusEvent struct {
	Type     string `json:"type"`
	UserId   int64  `json:"userId"`
	IsOnline bool   `json:"isOnline"`
}

type callOfferEvent struct {
	Type         string          `json:"type"`
	CallId       string          `json:"callId"`
	ChatId       string          `json:"chatId"`
	CallerId     string          `json:"callerId"`
	CallerName   string          `json:"callerName"`
	CallerAvatar string          `json:"callerAvatar"`
	CallType     string          `json:"callType"`
	Offer        json.RawMessage `json:"offer"`
}

type callOfferSentEvent struct {
	Type   string `json:"type"`
	CallId string `json:"callId"`
	Status string `json:"status"`
}

type callAnswerEvent struct {
	Type   string          `json:"type"`
	CallId string          `json:"callId"`
	Answer json.RawMessage `json:"answer"`
}

type callIceCandidateEvent struct {
	Type      string          `json:"type"`
	CallId    string          `json:"callId"`
	Candidate json.RawMessage `json:"candidate"`
}

type callEndedEvent struct {
	Type     string `json:"type"`
	CallId   string `json:"callId"`
	Reason   string `json:"reason"`
	Duration *int64 `json:"duration"`
}

type callDeclinedEvent struct {
	Type   string `json:"type"`
	CallId string `json:"callId"`
}
