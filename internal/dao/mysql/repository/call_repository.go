package repository

import (
	"database/sql"
	"time"

	"securewave_server/internal/model"
	"securewave_server/pkg/enum/call/call_status_enum"

	"gorm.io/gorm"
)

type callRepository struct {
	db *gorm.DB
}

// NewCallRepository 创建通话 Repository
func NewCallRepository(db *gorm.DB) CallRepository {
	return &callRepository{db: db}
}

// Create 创建 pending 状态的通话记录
// call_uuid 唯一索引兜底重复 offer：重复插入返回错误，由调用方记日志
func (r *callRepository) Create(call *model.Call) error {
	if err := r.db.Create(call).Error; err != nil {
		return wrapDBErrorf(err, "创建通话 call_uuid=%s", call.CallUuid)
	}
	return nil
}

// FindByUuid 根据通话 uuid 查找记录
func (r *callRepository) FindByUuid(callUuid string) (*model.Call, error) {
	var call model.Call
	if err := r.db.Where("call_uuid = ?", callUuid).First(&call).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询通话 call_uuid=%s", callUuid)
	}
	return &call, nil
}

// MarkActive 接通：status=active，记录 connected_at
func (r *callRepository) MarkActive(callUuid string, connectedAt time.Time) error {
	updates := map[string]interface{}{
		"status":       call_status_enum.Active,
		"connected_at": sql.NullTime{Time: connectedAt, Valid: true},
	}
	err := r.db.Model(&model.Call{}).Where("call_uuid = ?", callUuid).Updates(updates).Error
	if err != nil {
		return wrapDBErrorf(err, "更新通话为 active call_uuid=%s", callUuid)
	}
	return nil
}

// MarkEnded 结束：status=ended，记录 ended_at/duration/end_reason
func (r *callRepository) MarkEnded(callUuid string, endedAt time.Time, duration *int64, reason string) error {
	updates := map[string]interface{}{
		"status":     call_status_enum.Ended,
		"ended_at":   sql.NullTime{Time: endedAt, Valid: true},
		"end_reason": reason,
	}
	if duration != nil {
		updates["duration"] = sql.NullInt64{Int64: *duration, Valid: true}
	}
	err := r.db.Model(&model.Call{}).Where("call_uuid = ?", callUuid).Updates(updates).Error
	if err != nil {
		return wrapDBErrorf(err, "更新通话为 ended call_uuid=%s", callUuid)
	}
	return nil
}

// MarkDeclined 拒接：status=declined，记录 ended_at
func (r *callRepository) MarkDeclined(callUuid string, endedAt time.Time) error {
	updates := map[string]interface{}{
		"status":   call_status_enum.Declined,
		"ended_at": sql.NullTime{Time: endedAt, Valid: true},
	}
	err := r.db.Model(&model.Call{}).Where("call_uuid = ?", callUuid).Updates(updates).Error
	if err != nil {
		return wrapDBErrorf(err, "更新通话为 declined call_uuid=%s", callUuid)
	}
	return nil
}
