package learning

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"netmatch/internal/apperr"
	"netmatch/internal/feedback"
	"netmatch/internal/metrics"
	"netmatch/internal/model"
	"netmatch/internal/storage"
)

const day = 24 * time.Hour

// 各洞察的最小样本数、置信度上限与有效期。
const (
	dimensionMinSamples = 5
	dimensionMaxConf    = 0.9
	dimensionTTL        = 30 * day

	rejectionMinSamples = 3
	rejectionMaxConf    = 0.8
	rejectionTTL        = 45 * day

	successMinSamples = 2
	successMaxConf    = 0.9
	successTTL        = 45 * day

	activityMinSamples = 10
	activityMaxConf    = 0.7
	activityTTL        = 20 * day

	// PreferredThreshold 子评分均值达到该值的维度视为偏好维度。
	PreferredThreshold = 4.0

	historyLimit = 200
)

// InsightStore 洞察生成所需的持久化能力。
type InsightStore interface {
	ListFeedback(ctx context.Context, q storage.FeedbackQuery) ([]model.Feedback, error)
	ListBehaviors(ctx context.Context, q storage.BehaviorQuery) ([]model.BehaviorEvent, error)
	GetProfile(ctx context.Context, id string) (*model.Profile, error)
	SaveInsight(ctx context.Context, in *model.AlgorithmInsight) error
}

// InsightGenerator 从反馈与行为历史中挖掘带置信度、会过期的洞察。
type InsightGenerator struct {
	store  InsightStore
	window int
	logger *zap.Logger
	now    func() time.Time
}

// NewInsightGenerator window 为维度偏好分析使用的最近反馈条数。
func NewInsightGenerator(store InsightStore, window int, logger *zap.Logger) *InsightGenerator {
	if window <= 0 {
		window = DefaultWindow
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InsightGenerator{store: store, window: window, logger: logger, now: time.Now}
}

type pass struct {
	name string
	run  func(ctx context.Context, userID string, now time.Time) (*model.AlgorithmInsight, error)
}

// Generate 依次执行各挖掘步骤，单步失败不影响其他步骤，错误合并返回。
func (g *InsightGenerator) Generate(ctx context.Context, userID string) ([]model.AlgorithmInsight, error) {
	now := g.now().UTC()
	passes := []pass{
		{"dimension_preference", g.dimensionPreference},
		{"rejection_pattern", g.rejectionPattern},
		{"success_pattern", g.successPattern},
		{"activity_pattern", g.activityPattern},
	}

	var out []model.AlgorithmInsight
	var errs []error
	for _, p := range passes {
		in, err := p.run(ctx, userID, now)
		if err != nil {
			g.logger.Warn("insight pass failed", zap.String("pass", p.name), zap.String("user_id", userID), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		if in == nil {
			continue
		}
		if err := g.store.SaveInsight(ctx, in); err != nil {
			g.logger.Warn("save insight failed", zap.String("pass", p.name), zap.String("user_id", userID), zap.Error(err))
			errs = append(errs, apperr.Persistence("save insight", err))
			continue
		}
		metrics.InsightsGenerated.WithLabelValues(string(in.Type)).Inc()
		out = append(out, *in)
	}
	return out, errors.Join(errs...)
}

func (g *InsightGenerator) dimensionPreference(ctx context.Context, userID string, now time.Time) (*model.AlgorithmInsight, error) {
	records, err := g.store.ListFeedback(ctx, storage.FeedbackQuery{UserID: userID, Limit: g.window})
	if err != nil {
		return nil, apperr.Persistence("list feedback", err)
	}
	n := feedback.RatedWithDimensions(records)
	if n < dimensionMinSamples {
		return nil, nil
	}
	averages, _ := feedback.DimensionAverages(records)
	var preferred []model.Dimension
	best := 0.0
	for _, d := range model.Dimensions {
		avg, ok := averages[d]
		if !ok {
			continue
		}
		best = math.Max(best, avg)
		if avg >= PreferredThreshold {
			preferred = append(preferred, d)
		}
	}
	sort.SliceStable(preferred, func(i, j int) bool { return averages[preferred[i]] > averages[preferred[j]] })

	payload := model.InsightPayload{DimensionPreference: &model.DimensionPreferencePayload{
		Averages:   averages,
		Preferred:  preferred,
		SampleSize: n,
	}}
	return newInsight(userID, model.InsightDimensionPreference, payload,
		confidence(n, 20, dimensionMaxConf), best/5, now, dimensionTTL), nil
}

func (g *InsightGenerator) rejectionPattern(ctx context.Context, userID string, now time.Time) (*model.AlgorithmInsight, error) {
	pattern, err := g.attributePattern(ctx, userID, model.BehaviorRejectConnection)
	if err != nil || pattern.SampleSize < rejectionMinSamples {
		return nil, err
	}
	payload := model.InsightPayload{RejectionPattern: pattern}
	return newInsight(userID, model.InsightRejectionPattern, payload,
		confidence(pattern.SampleSize, 10, rejectionMaxConf), dominantShare(pattern), now, rejectionTTL), nil
}

func (g *InsightGenerator) successPattern(ctx context.Context, userID string, now time.Time) (*model.AlgorithmInsight, error) {
	pattern, err := g.attributePattern(ctx, userID, model.BehaviorAcceptConnection, model.BehaviorAttendMeeting)
	if err != nil || pattern.SampleSize < successMinSamples {
		return nil, err
	}
	payload := model.InsightPayload{SuccessPattern: pattern}
	return newInsight(userID, model.InsightSuccessPattern, payload,
		confidence(pattern.SampleSize, 10, successMaxConf), dominantShare(pattern), now, successTTL), nil
}

func (g *InsightGenerator) activityPattern(ctx context.Context, userID string, now time.Time) (*model.AlgorithmInsight, error) {
	behaviors, err := g.store.ListBehaviors(ctx, storage.BehaviorQuery{UserID: userID, Limit: historyLimit})
	if err != nil {
		return nil, apperr.Persistence("list behaviors", err)
	}
	if len(behaviors) < activityMinSamples {
		return nil, nil
	}
	counts := map[model.BehaviorType]int{}
	for _, b := range behaviors {
		counts[b.Type]++
	}
	var dominant model.BehaviorType
	for _, bt := range model.BehaviorTypes {
		if counts[bt] > counts[dominant] {
			dominant = bt
		}
	}
	payload := model.InsightPayload{ActivityPattern: &model.ActivityPatternPayload{
		Counts:     counts,
		Dominant:   dominant,
		SampleSize: len(behaviors),
	}}
	impact := float64(counts[dominant]) / float64(len(behaviors))
	return newInsight(userID, model.InsightActivityPattern, payload,
		confidence(len(behaviors), 50, activityMaxConf), impact, now, activityTTL), nil
}

// attributePattern 统计指定行为所指向用户的行业、职位与公司频次，目标资料缺失的记录跳过。
func (g *InsightGenerator) attributePattern(ctx context.Context, userID string, types ...model.BehaviorType) (*model.AttributePatternPayload, error) {
	behaviors, err := g.store.ListBehaviors(ctx, storage.BehaviorQuery{UserID: userID, Types: types, Limit: historyLimit})
	if err != nil {
		return nil, apperr.Persistence("list behaviors", err)
	}
	out := &model.AttributePatternPayload{
		Industries: map[string]int{},
		Positions:  map[string]int{},
		Companies:  map[string]int{},
	}
	for _, b := range behaviors {
		if b.TargetUserID == "" {
			continue
		}
		p, err := g.store.GetProfile(ctx, b.TargetUserID)
		if apperr.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, apperr.Persistence("get profile", err)
		}
		out.SampleSize++
		bump(out.Industries, p.Industry)
		bump(out.Positions, p.Position)
		bump(out.Companies, p.Company)
	}
	return out, nil
}

func bump(m map[string]int, v string) {
	if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
		m[v]++
	}
}

func dominantShare(p *model.AttributePatternPayload) float64 {
	if p.SampleSize == 0 {
		return 0
	}
	top := 0
	for _, m := range []map[string]int{p.Industries, p.Positions, p.Companies} {
		for _, c := range m {
			top = max(top, c)
		}
	}
	return float64(top) / float64(p.SampleSize)
}

// confidence min(ceiling, n/scale)。
func confidence(n int, scale, ceiling float64) float64 {
	return math.Min(ceiling, float64(n)/scale)
}

func newInsight(userID string, t model.InsightType, payload model.InsightPayload, conf, impact float64, now time.Time, ttl time.Duration) *model.AlgorithmInsight {
	return &model.AlgorithmInsight{
		UserID:     userID,
		Type:       t,
		Payload:    datatypes.NewJSONType(payload),
		Confidence: conf,
		Impact:     impact,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
}
