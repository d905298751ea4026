package constants

import "time"

const (
	CHANNEL_SIZE         = 100              // 连接发送通道大小
	READ_BUFFER_SIZE     = 2048             // websocket 读缓冲
	WRITE_BUFFER_SIZE    = 2048             // websocket 写缓冲
	REDIS_TIMEOUT        = 10 * time.Minute // 缓存过期时间
	ONLINE_USERS_KEY     = "online_users"   // 在线用户集合 key
	CHAT_MEMBERS_KEY_PRE = "chat_members_"  // 会话成员缓存 key 前缀
	CACHE_WORKER_NUM     = 4                // 缓存异步 worker 数量
	CACHE_TASK_CHAN_SIZE = 256              // 缓存任务通道缓冲
	DEFAULT_END_REASON   = "user_ended"     // 通话默认结束原因
)
