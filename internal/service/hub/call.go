package hub

import (
	"strconv"

	"securewave_server/internal/model"
	"securewave_server/pkg/constants"
	"securewave_server/pkg/enum/call/call_status_enum"
	"securewave_server/pkg/enum/call/call_type_enum"
	"securewave_server/pkg/errorx"
	"securewave_server/pkg/util/snowflake"

	"go.uber.org/zap"
)

// 通话信令处理
// 通话记录落库失败不阻断信令转发，信令通道优先于历史记录

// handleCallOffer 发起通话
// 先把 offer 投递给接收方，再异步性质地落库 pending 记录
func (h *Hub) handleCallOffer(p Peer, st *ConnState, req callOfferRequest) {
	if req.CallId == "" || req.ChatId == "" || req.ReceiverId == "" || len(req.Offer) == 0 {
		zap.L().Warn("call_offer 参数不完整", zap.String("call_id", req.CallId))
		h.sendEvent(p, errorEvent{Type: "error", Message: "insufficient data to start call"})
		return
	}

	receiverId, err := req.ReceiverId.Int64()
	if err != nil || receiverId <= 0 {
		h.sendEvent(p, errorEvent{Type: "error", Message: "invalid receiver id"})
		return
	}

	caller, err := h.repos.User.FindById(st.UserId)
	if err != nil {
		if errorx.IsNotFound(err) {
			h.sendEvent(p, errorEvent{Type: "error", Message: "user not found"})
		} else {
			zap.L().Error("查询主叫用户失败", zap.Int64("user_id", st.UserId), zap.Error(err))
		}
		return
	}

	callType := req.CallType
	if callType == "" {
		callType = call_type_enum.Audio
	}

	h.mu.Lock()
	receiver := h.presence[receiverId]
	h.mu.Unlock()

	if receiver != nil {
		h.sendEvent(receiver, callOfferEvent{
			Type:         "call_offer",
			CallId:       req.CallId,
			ChatId:       req.ChatId,
			CallerId:     strconv.FormatInt(st.UserId, 10),
			CallerName:   caller.DisplayName(),
			CallerAvatar: caller.AvatarUrl,
			CallType:     callType,
			Offer:        req.Offer,
		})
		h.sendEvent(p, callOfferSentEvent{
			Type:   "call_offer_sent",
			CallId: req.CallId,
			Status: "sent",
		})
		zap.L().Info("通话邀请已投递",
			zap.String("call_id", req.CallId),
			zap.Int64("caller_id", st.UserId),
			zap.Int64("receiver_id", receiverId))
	} else {
		zap.L().Info("通话接收方不在线",
			zap.String("call_id", req.CallId), zap.Int64("receiver_id", receiverId))
		h.sendEvent(p, callErrorEvent{
			Type:   "call_error",
			CallId: req.CallId,
			Error:  "user not in network",
		})
	}

	// 落库失败不影响已完成的信令投递
	chat, err := h.repos.Chat.FindByUuid(req.ChatId)
	if err != nil {
		zap.L().Warn("通话记录未落库，会话不存在",
			zap.String("chat_id", req.ChatId), zap.Error(err))
		return
	}
	call := &model.Call{
		Id:         snowflake.GenerateID(),
		CallUuid:   req.CallId,
		ChatId:     chat.Id,
		CallerId:   st.UserId,
		ReceiverId: receiverId,
		CallType:   callType,
		Status:     call_status_enum.Pending,
		StartedAt:  h.now(),
	}
	if err := h.repos.Call.Create(call); err != nil {
		zap.L().Error("通话记录落库失败", zap.String("call_id", req.CallId), zap.Error(err))
	}
}

// handleCallAnswer 应答通话
// 存储故障时降级：把 answer 广播给除发送方外的全部已授权连接
func (h *Hub) handleCallAnswer(p Peer, userId int64, req callAnswerRequest) {
	if req.CallId == "" || len(req.Answer) == 0 {
		zap.L().Warn("call_answer 参数不完整", zap.String("call_id", req.CallId))
		return
	}

	call, err := h.repos.Call.FindByUuid(req.CallId)
	if err != nil {
		if errorx.IsNotFound(err) {
			zap.L().Warn("通话记录不存在", zap.String("call_id", req.CallId))
			return
		}
		zap.L().Error("查询通话记录失败，降级广播 answer",
			zap.String("call_id", req.CallId), zap.Error(err))
		h.broadcastToAuthorized(p, callAnswerEvent{
			Type:   "call_answer",
			CallId: req.CallId,
			Answer: req.Answer,
		})
		return
	}

	if err := h.repos.Call.MarkActive(req.CallId, h.now()); err != nil {
		zap.L().Error("更新通话状态失败", zap.String("call_id", req.CallId), zap.Error(err))
	}

	// answer 发给对端（通常是主叫）
	targetId := call.CallerId
	if call.ReceiverId != userId {
		targetId = call.ReceiverId
	}

	h.mu.Lock()
	target := h.presence[targetId]
	h.mu.Unlock()
	if target != nil {
		h.sendEvent(target, callAnswerEvent{
			Type:   "call_answer",
			CallId: req.CallId,
			Answer: req.Answer,
		})
		zap.L().Info("应答已投递",
			zap.String("call_id", req.CallId), zap.Int64("target_id", targetId))
	}
}

// handleIceCandidate 转发 ICE 候选给通话对端
func (h *Hub) handleIceCandidate(userId int64, req iceCandidateRequest) {
	if req.CallId == "" || len(req.Candidate) == 0 {
		zap.L().Warn("call_ice_candidate 参数不完整", zap.String("call_id", req.CallId))
		return
	}

	call, err := h.repos.Call.FindByUuid(req.CallId)
	if err != nil {
		zap.L().Warn("ICE 候选转发失败，通话记录不可用",
			zap.String("call_id", req.CallId), zap.Error(err))
		return
	}

	targetId := call.CallerId
	if call.CallerId == userId {
		targetId = call.ReceiverId
	}

	h.mu.Lock()
	target := h.presence[targetId]
	h.mu.Unlock()
	if target != nil {
		h.sendEvent(target, callIceCandidateEvent{
			Type:      "call_ice_candidate",
			CallId:    req.CallId,
			Candidate: req.Candidate,
		})
	}
}

// handleCallEnd 结束通话
// userId 为 0 表示未授权连接的清理请求，此时通知主叫和被叫双方
func (h *Hub) handleCallEnd(p Peer, userId int64, req callEndRequest) {
	if req.CallId == "" {
		zap.L().Warn("call_end 缺少 callId")
		return
	}
	reason := req.Reason
	if reason == "" {
		reason = constants.DEFAULT_END_REASON
	}

	call, err := h.repos.Call.FindByUuid(req.CallId)
	if err != nil {
		zap.L().Warn("call_end 通话记录不可用",
			zap.String("call_id", req.CallId), zap.Error(err))
		return
	}

	endedAt := h.now()
	var duration *int64
	if call.ConnectedAt.Valid {
		d := int64(endedAt.Sub(call.ConnectedAt.Time).Seconds())
		duration = &d
	}

	if err := h.repos.Call.MarkEnded(req.CallId, endedAt, duration, reason); err != nil {
		zap.L().Error("更新通话结束状态失败",
			zap.String("call_id", req.CallId), zap.Error(err))
	}

	ev := callEndedEvent{
		Type:     "call_ended",
		CallId:   req.CallId,
		Reason:   reason,
		Duration: duration,
	}

	h.mu.Lock()
	var targets []Peer
	if userId != 0 {
		targetId := call.CallerId
		if call.CallerId == userId {
			targetId = call.ReceiverId
		}
		if pr, ok := h.presence[targetId]; ok {
			targets = append(targets, pr)
		}
	} else {
		// 未授权清理路径：双方都通知
		if pr, ok := h.presence[call.CallerId]; ok {
			targets = append(targets, pr)
		}
		if pr, ok := h.presence[call.ReceiverId]; ok {
			targets = append(targets, pr)
		}
	}
	h.mu.Unlock()

	for _, t := range targets {
		h.sendEvent(t, ev)
	}
	zap.L().Info("通话已结束",
		zap.String("call_id", req.CallId),
		zap.String("reason", reason))
}

// handleCallDecline 拒接，仅通知主叫
func (h *Hub) handleCallDecline(userId int64, req callDeclineRequest) {
	if req.CallId == "" {
		zap.L().Warn("call_decline 缺少 callId")
		return
	}

	call, err := h.repos.Call.FindByUuid(req.CallId)
	if err != nil {
		zap.L().Warn("call_decline 通话记录不可用",
			zap.String("call_id", req.CallId), zap.Error(err))
		return
	}

	if err := h.repos.Call.MarkDeclined(req.CallId, h.now()); err != nil {
		zap.L().Error("更新通话拒接状态失败",
			zap.String("call_id", req.CallId), zap.Error(err))
	}

	h.mu.Lock()
	caller := h.presence[call.CallerId]
	h.mu.Unlock()
	if caller != nil {
		h.sendEvent(caller, callDeclinedEvent{
			Type:   "call_declined",
			CallId: req.CallId,
		})
	}
	zap.L().Info("通话被拒接",
		zap.String("call_id", req.CallId), zap.Int64("declined_by", userId))
}

// broadcastToAuthorized 广播给除 from 外的所有已授权连接
func (h *Hub) broadcastToAuthorized(from Peer, ev any) {
	h.mu.Lock()
	var targets []Peer
	for connId, st := range h.states {
		if connId == from.ID() || !st.Authorized {
			continue
		}
		if pr, ok := h.peers[connId]; ok {
			targets = append(targets, pr)
		}
	}
	h.mu.Unlock()
	for _, t := range targets {
		h.sendEvent(t, ev)
	}
}
