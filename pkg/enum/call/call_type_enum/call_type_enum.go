// Package call_type_enum 定义通话媒体类型
package call_type_enum

const (
	Audio = "audio"
	Video = "video"
)
