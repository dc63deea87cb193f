package matching

import (
	"context"
	"math"
	"sort"
	"strings"

	"netmatch/internal/apperr"
	"netmatch/internal/feedback"
	"netmatch/internal/model"
	"netmatch/internal/ranking"
	"netmatch/internal/storage"
)

// 个性化参数。
const (
	initialBoost          = 5
	preferenceBonus       = 10.0
	rejectionPenalty      = 0.8
	successBoost          = 1.1
	adaptingConfidence    = 0.6
	establishedConfidence = 0.5
	successRateThreshold  = 0.7
	establishedMinScore   = 70
	positiveRating        = 4
	recentFeedbackLimit   = 50
	connectionHistory     = 200
)

// personalize 按冷启动阶段调整排序。出错时返回降级结果，调用方保留原列表。
func (o *Orchestrator) personalize(ctx context.Context, userID string, cs *model.ColdStartProfile, matches []Match) ([]Match, apperr.Outcome) {
	if len(matches) == 0 {
		return matches, apperr.Skipped("no candidates")
	}
	switch cs.Phase {
	case model.PhaseLearning:
		return o.personalizeLearning(ctx, userID, matches)
	case model.PhaseAdapting:
		return o.applyInsights(ctx, userID, matches, adaptingConfidence,
			model.InsightDimensionPreference, model.InsightRejectionPattern)
	case model.PhaseEstablished:
		out, outcome := o.applyInsights(ctx, userID, matches, establishedConfidence,
			model.InsightDimensionPreference, model.InsightRejectionPattern, model.InsightSuccessPattern)
		if outcome.IsDegraded() {
			return matches, outcome
		}
		return o.filterBySuccessRate(ctx, userID, out, outcome)
	default:
		out := ranking.EnforceDiversity(matches, cs.DiversityFactor)
		for i := range out {
			out[i].setScore(out[i].Score + initialBoost)
		}
		return out, apperr.Applied()
	}
}

// personalizeLearning 以近期正向反馈的维度子评分推断偏好维度并重排。
func (o *Orchestrator) personalizeLearning(ctx context.Context, userID string, matches []Match) ([]Match, apperr.Outcome) {
	records, err := o.store.ListFeedback(ctx, storage.FeedbackQuery{UserID: userID, Limit: recentFeedbackLimit})
	if err != nil {
		return matches, apperr.Degraded(err)
	}
	positive := records[:0]
	for _, f := range records {
		if f.RatingValue() >= positiveRating {
			positive = append(positive, f)
		}
	}
	averages, _ := feedback.DimensionAverages(positive)
	preferred := preferredDimensions(averages)
	if len(preferred) == 0 {
		return matches, apperr.Skipped("no positive dimension feedback")
	}
	out := cloneMatches(matches)
	for i := range out {
		out[i].setScore(out[i].Score + dimensionBonus(out[i].Breakdown, preferred))
	}
	sortByScore(out)
	return out, apperr.Applied()
}

// applyInsights 应用置信度高于阈值的有效洞察。
func (o *Orchestrator) applyInsights(ctx context.Context, userID string, matches []Match, minConfidence float64, types ...model.InsightType) ([]Match, apperr.Outcome) {
	insights, err := o.store.ListInsights(ctx, storage.InsightQuery{
		UserID:        userID,
		Types:         types,
		MinConfidence: minConfidence,
		Now:           o.now().UTC(),
	})
	if err != nil {
		return matches, apperr.Degraded(err)
	}
	insights = latestPerType(insights)
	if len(insights) == 0 {
		return matches, apperr.Skipped("no active insights")
	}

	out := cloneMatches(matches)
	for _, in := range insights {
		payload := in.Payload.Data()
		for i := range out {
			m := &out[i]
			switch {
			case payload.DimensionPreference != nil:
				m.setScore(m.Score + dimensionBonus(m.Breakdown, payload.DimensionPreference.Preferred))
			case payload.RejectionPattern != nil:
				if matchesPattern(*m, payload.RejectionPattern) {
					m.setScore(int(math.Round(float64(m.Score) * rejectionPenalty)))
				}
			case payload.SuccessPattern != nil:
				if matchesPattern(*m, payload.SuccessPattern) {
					m.setScore(int(math.Round(float64(m.Score) * successBoost)))
				}
			}
		}
	}
	sortByScore(out)
	return out, apperr.Applied()
}

// filterBySuccessRate 历史连接成功率高于 0.7 的用户只保留 70 分以上的推荐。
func (o *Orchestrator) filterBySuccessRate(ctx context.Context, userID string, matches []Match, outcome apperr.Outcome) ([]Match, apperr.Outcome) {
	behaviors, err := o.store.ListBehaviors(ctx, storage.BehaviorQuery{
		UserID: userID,
		Types:  []model.BehaviorType{model.BehaviorAcceptConnection, model.BehaviorRejectConnection},
		Limit:  connectionHistory,
	})
	if err != nil {
		return matches, apperr.Degraded(err)
	}
	rate, ok := feedback.ConnectionSuccessRate(behaviors)
	if !ok || rate <= successRateThreshold {
		return matches, outcome
	}
	out := make([]Match, 0, len(matches))
	for _, m := range matches {
		if m.Score >= establishedMinScore {
			out = append(out, m)
		}
	}
	return out, apperr.Applied()
}

func preferredDimensions(averages map[model.Dimension]float64) []model.Dimension {
	var out []model.Dimension
	for _, d := range model.Dimensions {
		if avg, ok := averages[d]; ok && avg >= positiveRating {
			out = append(out, d)
		}
	}
	return out
}

// dimensionBonus 偏好维度上每高出 0.5 的子分数加分，低于 0.5 则扣分。
func dimensionBonus(b map[model.Dimension]float64, preferred []model.Dimension) int {
	bonus := 0.0
	for _, d := range preferred {
		bonus += (b[d] - 0.5) * preferenceBonus
	}
	return int(math.Round(bonus))
}

// matchesPattern 候选的行业、职位或公司占模式样本一半以上。
func matchesPattern(m Match, p *model.AttributePatternPayload) bool {
	if p.SampleSize == 0 {
		return false
	}
	check := func(counts map[string]int, v string) bool {
		v = strings.ToLower(strings.TrimSpace(v))
		return v != "" && counts[v]*2 >= p.SampleSize
	}
	return check(p.Industries, m.Industry) || check(p.Positions, m.Position) || check(p.Companies, m.Company)
}

func cloneMatches(in []Match) []Match {
	out := make([]Match, len(in))
	copy(out, in)
	return out
}

func sortByScore(ms []Match) {
	sort.SliceStable(ms, func(i, j int) bool { return ms[i].Score > ms[j].Score })
}

// latestPerType 每种洞察只取最新的一条，保持首次出现的顺序。
func latestPerType(insights []model.AlgorithmInsight) []model.AlgorithmInsight {
	idx := map[model.InsightType]int{}
	out := make([]model.AlgorithmInsight, 0, len(insights))
	for _, in := range insights {
		i, seen := idx[in.Type]
		switch {
		case !seen:
			idx[in.Type] = len(out)
			out = append(out, in)
		case in.CreatedAt.After(out[i].CreatedAt):
			out[i] = in
		}
	}
	return out
}
