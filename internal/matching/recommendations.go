package matching

import (
	"context"

	"go.uber.org/zap"

	"netmatch/internal/apperr"
	"netmatch/internal/model"
	"netmatch/internal/ranking"
	"netmatch/internal/storage"
)

// 偏好分桶阈值。
const (
	perfectThreshold = 90
	partialFloor     = 50
)

// Recommendations 按偏好匹配度分桶的推荐。
type Recommendations struct {
	EventID     string  `json:"event_id"`
	UserID      string  `json:"user_id"`
	Strict      bool    `json:"strict"`
	Perfect     []Match `json:"perfect"`
	Partial     []Match `json:"partial"`
	Alternative []Match `json:"alternative,omitempty"`
}

// Recommendations 以偏好优先排序生成全部候选，按 90%/50% 分为三档。
// strict 为 true 时不返回 alternative。未设置偏好的用户全部落入 perfect。
func (o *Orchestrator) Recommendations(ctx context.Context, userID, eventID string, strict bool) (Recommendations, error) {
	res, err := o.Generate(ctx, userID, eventID, Options{
		Strategy:              ranking.PreferenceFirst,
		IncludePartialMatches: true,
	})
	if err != nil {
		return Recommendations{}, err
	}
	out := Recommendations{
		EventID: eventID,
		UserID:  userID,
		Strict:  strict,
		Perfect: []Match{},
		Partial: []Match{},
	}
	if !strict {
		out.Alternative = []Match{}
	}
	for _, m := range res.Matches {
		switch pct := m.preferencePercent(); {
		case pct >= perfectThreshold:
			out.Perfect = append(out.Perfect, m)
		case pct >= partialFloor:
			out.Partial = append(out.Partial, m)
		case !strict:
			out.Alternative = append(out.Alternative, m)
		}
	}
	return out, nil
}

// HistoryOptions 历史查询参数。
type HistoryOptions struct {
	MinScore int `json:"min_score"`
	Limit    int `json:"limit"`
	Offset   int `json:"offset"`
}

// HistoryEntry 一条历史记录，理由按当前资料重新生成。
type HistoryEntry struct {
	model.MatchRecord
	Reasons []model.Reason `json:"reasons"`
}

// History 返回用户的匹配历史。eventID 为空时不限活动。
// 目标用户资料已不存在时保留存档理由。
func (o *Orchestrator) History(ctx context.Context, userID, eventID string, opts HistoryOptions) ([]HistoryEntry, error) {
	src, err := o.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, notFoundOrPersistence("get profile", err)
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	records, err := o.store.ListMatches(ctx, storage.MatchQuery{
		UserID:   userID,
		EventID:  eventID,
		MinScore: opts.MinScore,
		Limit:    opts.Limit,
		Offset:   opts.Offset,
	})
	if err != nil {
		return nil, apperr.Persistence("list matches", err)
	}

	out := make([]HistoryEntry, 0, len(records))
	for _, rec := range records {
		entry := HistoryEntry{MatchRecord: rec, Reasons: rec.Reasons}
		dst, err := o.store.GetProfile(ctx, rec.TargetUserID)
		switch {
		case err == nil:
			entry.Reasons = o.scorer.Reasons(src, dst, o.scorer.Breakdown(src, dst, nil))
		case apperr.IsNotFound(err):
		default:
			o.logger.Warn("reload target profile failed",
				zap.String("user_id", userID),
				zap.String("target_user_id", rec.TargetUserID),
				zap.Error(err))
		}
		if entry.Reasons == nil {
			entry.Reasons = []model.Reason{}
		}
		out = append(out, entry)
	}
	return out, nil
}

// EventStats 活动内全部历史匹配的汇总。
func (o *Orchestrator) EventStats(ctx context.Context, eventID string) (model.EventMatchStats, error) {
	if _, err := o.store.GetEvent(ctx, eventID); err != nil {
		return model.EventMatchStats{}, notFoundOrPersistence("get event", err)
	}
	stats, err := o.store.EventStats(ctx, eventID)
	if err != nil {
		return model.EventMatchStats{}, apperr.Persistence("event stats", err)
	}
	return stats, nil
}
