package hub

import "encoding/json"

// 入站帧定义
// 每帧都带 type 字段，其余字段按类型解析

type envelope struct {
	Type string `json:"type"`
}

type authRequest struct {
	Token string `json:"token"`
}

// chatScopedRequest 只携带会话 id 的帧（typing / join_chat / leave_chat）
type chatScopedRequest struct {
	ChatId string `json:"chatId"`
}

type sendMessageRequest struct {
	ChatId      string `json:"chatId"`
	Content     string `json:"content"`
	TempId      string `json:"tempId"`
	MessageType string `json:"messageType"`
}

type markReadRequest struct {
	ChatId string `json:"chatId"`
}

// callOfferRequest 发起通话
// receiverId 用 json.Number 兼容数字和字符串两种写法
type callOfferRequest struct {
	CallId     string          `json:"callId"`
	ChatId     string          `json:"chatId"`
	ReceiverId json.Number     `json:"receiverId"`
	CallType   string          `json:"callType"`
	Offer      json.RawMessage `json:"offer"`
}

type callAnswerRequest struct {
	CallId string          `json:"callId"`
	Answer json.RawMessage `json:"answer"`
}

type iceCandidateRequest struct {
	CallId    string          `json:"callId"`
	Candidate json.RawMessage `json:"candidate"`
}

type callEndRequest struct {
	CallId string `json:"callId"`
	Reason string `json:"reason"`
}

type callDeclineRequest struct {
	CallId string `json:"callId"`
}
