package hub

// Peer 抽象一条可写的客户端连接
// Hub 只通过此接口与连接交互，便于测试时注入假连接
type Peer interface {
	// ID 连接的唯一标识
	ID() string
	// Send 异步发送一帧数据，不阻塞调用方
	Send(data []byte)
	// Close 关闭底层连接，可重复调用
	Close()
}

// ConnState 连接的会话状态
// 未授权连接只允许 auth 和 ping（call_end 例外，见 Dispatch）
type ConnState struct {
	Authorized    bool
	UserId        int64
	Username      string
	CurrentChatId string
}
