// Package message_status_enum 定义消息投递状态
// 状态在发送时根据接收方在线情况计算，read 状态由已读游标推导
package message_status_enum

const (
	Sent      = "sent"      // 已落库，接收方不在线
	Delivered = "delivered" // 接收方在线但不在当前会话
	Read      = "read"      // 接收方在线且正停留在该会话
)
