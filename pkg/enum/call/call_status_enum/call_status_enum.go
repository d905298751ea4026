// Package call_status_enum 定义通话生命周期状态
// pending -> active -> ended，declined 为备选终态
package call_status_enum

const (
	Pending  = "pending"  // 已发起，等待接听
	Active   = "active"   // 已接通
	Ended    = "ended"    // 已结束（终态）
	Declined = "declined" // 已拒接（终态）
)
