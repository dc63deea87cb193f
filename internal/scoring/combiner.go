package scoring

import (
	"math"

	"netmatch/internal/model"
)

// Breakdown 各维度子分数。
type Breakdown map[model.Dimension]float64

// Combine 按权重加权求和并截断到 [0,1]。
func Combine(b Breakdown, w model.Weights) float64 {
	total := 0.0
	for _, d := range model.Dimensions {
		total += b[d] * w.Get(d)
	}
	if math.IsNaN(total) {
		return 0
	}
	return math.Max(0, math.Min(1, total))
}

// Percent 将 [0,1] 分数转为 0-100 整数。
func Percent(score float64) int {
	return int(math.Round(math.Max(0, math.Min(1, score)) * 100))
}

// EffectiveWeights 仅当用户至少完成一次自适应时使用个性化权重。
func EffectiveWeights(uw *model.UserWeights) model.Weights {
	if uw.Personalized() {
		return uw.Weights.Normalize()
	}
	return model.DefaultWeights()
}
