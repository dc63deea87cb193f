package learning

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"netmatch/internal/apperr"
	"netmatch/internal/feedback"
	"netmatch/internal/metrics"
	"netmatch/internal/model"
	"netmatch/internal/storage"
)

// 自适应参数。
const (
	MinWeight        = 0.01
	MaxWeight        = 0.5
	learningRate     = 0.1
	neutralRating    = 0.6
	DefaultWindow    = 100
	weightInsightTTL = 30 * 24 * time.Hour
)

// AdapterStore 权重自适应所需的持久化能力。
type AdapterStore interface {
	ListFeedback(ctx context.Context, q storage.FeedbackQuery) ([]model.Feedback, error)
	GetWeights(ctx context.Context, userID string) (*model.UserWeights, error)
	SaveWeights(ctx context.Context, w *model.UserWeights) error
	SaveInsight(ctx context.Context, in *model.AlgorithmInsight) error
}

// AdaptWeights 对有子评分的维度按 (均值/5 - 0.6) * 0.1 调整，
// 然后把向量投影到 [0.01, 0.5] 区间内且和为 1。
func AdaptWeights(current model.Weights, averages map[model.Dimension]float64) model.Weights {
	next := current
	for _, d := range model.Dimensions {
		avg, ok := averages[d]
		if !ok || math.IsNaN(avg) {
			continue
		}
		next.Set(d, next.Get(d)+(avg/5-neutralRating)*learningRate)
	}
	return BoundedNormalize(next, MinWeight, MaxWeight)
}

// BoundedNormalize 求缩放系数 λ 使 Σclamp(λ·w_i, lo, hi) = 1。
// 该和对 λ 单调不减，用二分法求解。要求 7·lo <= 1 <= 7·hi。
func BoundedNormalize(w model.Weights, lo, hi float64) model.Weights {
	vals := make([]float64, len(model.Dimensions))
	for i, d := range model.Dimensions {
		v := w.Get(d)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		vals[i] = math.Max(lo, math.Min(hi, v))
	}
	total := func(lambda float64) float64 {
		sum := 0.0
		for _, v := range vals {
			sum += math.Max(lo, math.Min(hi, lambda*v))
		}
		return sum
	}

	low, high := 0.0, 1.0
	for total(high) < 1 {
		high *= 2
	}
	for i := 0; i < 200; i++ {
		mid := (low + high) / 2
		if total(mid) < 1 {
			low = mid
		} else {
			high = mid
		}
	}

	var out model.Weights
	for i, d := range model.Dimensions {
		out.Set(d, math.Max(lo, math.Min(hi, high*vals[i])))
	}
	return out
}

// Adapter 根据近期反馈更新个人权重向量。
type Adapter struct {
	store  AdapterStore
	window int
	logger *zap.Logger
	now    func() time.Time
}

// NewAdapter window 为参与计算的最近反馈条数，<=0 时取 100。
func NewAdapter(store AdapterStore, window int, logger *zap.Logger) *Adapter {
	if window <= 0 {
		window = DefaultWindow
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{store: store, window: window, logger: logger, now: time.Now}
}

// Adapt 没有任何有效子评分时不修改权重，直接返回当前向量。
func (a *Adapter) Adapt(ctx context.Context, userID string) (*model.UserWeights, error) {
	records, err := a.store.ListFeedback(ctx, storage.FeedbackQuery{UserID: userID, Limit: a.window})
	if err != nil {
		return nil, apperr.Persistence("list feedback", err)
	}

	current, err := a.store.GetWeights(ctx, userID)
	if apperr.IsNotFound(err) {
		fresh := model.NewUserWeights(userID)
		current, err = &fresh, nil
	}
	if err != nil {
		return nil, apperr.Persistence("get weights", err)
	}

	averages, _ := feedback.DimensionAverages(records)
	if len(averages) == 0 {
		a.logger.Debug("no dimension ratings, weights unchanged", zap.String("user_id", userID))
		return current, nil
	}

	before := current.Weights
	current.Weights = AdaptWeights(before, averages)
	current.LearningCount++
	if err := a.store.SaveWeights(ctx, current); err != nil {
		return nil, apperr.Persistence("save weights", err)
	}
	metrics.WeightAdaptations.Inc()
	a.logger.Info("weights adapted",
		zap.String("user_id", userID),
		zap.Int("learning_count", current.LearningCount),
		zap.Int("samples", len(records)))

	now := a.now().UTC()
	in := model.AlgorithmInsight{
		UserID: userID,
		Type:   model.InsightWeightAdjustment,
		Payload: datatypes.NewJSONType(model.InsightPayload{WeightAdjustment: &model.WeightAdjustmentPayload{
			Before:        before,
			After:         current.Weights,
			LearningCount: current.LearningCount,
		}}),
		Confidence: 1.0,
		Impact:     weightShift(before, current.Weights),
		CreatedAt:  now,
		ExpiresAt:  now.Add(weightInsightTTL),
	}
	if err := a.store.SaveInsight(ctx, &in); err != nil {
		a.logger.Warn("record weight adjustment failed", zap.String("user_id", userID), zap.Error(err))
		metrics.BestEffortFailures.WithLabelValues("weight_adjustment_insight").Inc()
	} else {
		metrics.InsightsGenerated.WithLabelValues(string(in.Type)).Inc()
	}
	return current, nil
}

// weightShift 前后向量的 L1 距离。
func weightShift(a, b model.Weights) float64 {
	d := 0.0
	for _, dim := range model.Dimensions {
		d += math.Abs(a.Get(dim) - b.Get(dim))
	}
	return d
}
