package feedback

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"netmatch/internal/apperr"
	"netmatch/internal/metrics"
	"netmatch/internal/model"
)

// TrackerStore 行为记录所需的持久化能力。
type TrackerStore interface {
	AppendBehavior(ctx context.Context, b *model.BehaviorEvent) error
	AppendFeedback(ctx context.Context, f *model.Feedback) error
}

// TrackRequest 客户端上报的行为。
type TrackRequest struct {
	Type         string                `json:"type" validate:"required"`
	TargetUserID string                `json:"target_user_id" validate:"omitempty,max=64"`
	EventID      string                `json:"event_id" validate:"omitempty,max=64"`
	Context      model.BehaviorContext `json:"context"`
	SessionID    string                `json:"session_id" validate:"omitempty,max=128"`
}

// TrackResult 行为写入与隐式反馈两个尽力而为步骤的结果。
type TrackResult struct {
	Behavior model.BehaviorEvent `json:"behavior"`
	Recorded apperr.Outcome      `json:"recorded"`
	Implicit apperr.Outcome      `json:"implicit"`
}

// Tracker 记录行为并派生隐式反馈。存储失败只记日志，不影响调用方。
type Tracker struct {
	store  TrackerStore
	logger *zap.Logger
	now    func() time.Time
}

// NewTracker 创建行为追踪器。
func NewTracker(store TrackerStore, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{store: store, logger: logger, now: time.Now}
}

// Track 只有请求本身不合法时才返回错误。
func (t *Tracker) Track(ctx context.Context, userID string, req TrackRequest) (TrackResult, error) {
	if userID == "" {
		return TrackResult{}, apperr.Validation("user id is required")
	}
	if err := validate.Struct(req); err != nil {
		return TrackResult{}, validationError(err)
	}
	bt, err := model.ParseBehaviorType(req.Type)
	if err != nil {
		return TrackResult{}, apperr.Validation(err.Error())
	}
	if err := req.Context.Validate(bt); err != nil {
		return TrackResult{}, apperr.Validation(err.Error())
	}
	if kind := bt.ContextKind(); (kind == model.ContextConnection || kind == model.ContextMeeting) && req.TargetUserID == "" {
		return TrackResult{}, apperr.Validationf("behavior %s requires target_user_id", bt)
	}

	b := model.BehaviorEvent{
		UserID:       userID,
		TargetUserID: req.TargetUserID,
		EventID:      req.EventID,
		Type:         bt,
		Context:      datatypes.NewJSONType(req.Context.Normalized()),
		SessionID:    req.SessionID,
		CreatedAt:    t.now().UTC(),
	}
	res := TrackResult{Behavior: b}

	if err := t.store.AppendBehavior(ctx, &b); err != nil {
		t.logger.Warn("track behavior failed", zap.String("user_id", userID), zap.String("type", string(bt)), zap.Error(err))
		metrics.BestEffortFailures.WithLabelValues("track_behavior").Inc()
		res.Recorded = apperr.Degraded(err)
		res.Implicit = apperr.Skipped("behavior not recorded")
		return res, nil
	}
	res.Behavior = b
	res.Recorded = apperr.Applied()
	metrics.BehaviorsTracked.WithLabelValues(string(bt)).Inc()

	f, ok := Implicit(b)
	if !ok {
		res.Implicit = apperr.Skipped("no implicit feedback for " + string(bt))
		return res, nil
	}
	if err := t.store.AppendFeedback(ctx, &f); err != nil {
		t.logger.Warn("implicit feedback failed", zap.String("user_id", userID), zap.String("type", string(f.Type)), zap.Error(err))
		metrics.BestEffortFailures.WithLabelValues("implicit_feedback").Inc()
		res.Implicit = apperr.Degraded(err)
		return res, nil
	}
	res.Implicit = apperr.Applied()
	return res, nil
}
