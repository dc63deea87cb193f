package feedback

import (
	"strings"

	"netmatch/internal/model"
)

// dimensionAliases 子评分键到维度的映射，未收录的键被忽略。
var dimensionAliases = map[string]model.Dimension{
	"industry":        model.DimIndustry,
	"position":        model.DimPosition,
	"role":            model.DimPosition,
	"business_goal":   model.DimBusinessGoal,
	"business_goals":  model.DimBusinessGoal,
	"goals":           model.DimBusinessGoal,
	"goal":            model.DimBusinessGoal,
	"skills":          model.DimSkills,
	"skill":           model.DimSkills,
	"experience":      model.DimExperience,
	"company_size":    model.DimCompanySize,
	"company":         model.DimCompanySize,
	"user_preference": model.DimUserPreference,
	"preference":      model.DimUserPreference,
	"preferences":     model.DimUserPreference,
}

// ResolveDimension 将子评分键解析为维度。
func ResolveDimension(key string) (model.Dimension, bool) {
	d, ok := dimensionAliases[strings.ToLower(strings.TrimSpace(key))]
	return d, ok
}

// Stats 反馈聚合统计。
type Stats struct {
	Total             int                         `json:"total"`
	Explicit          int                         `json:"explicit"`
	Implicit          int                         `json:"implicit"`
	Rated             int                         `json:"rated"`
	AverageRating     float64                     `json:"average_rating"`
	WeightedRating    float64                     `json:"weighted_rating"`
	Positive          int                         `json:"positive"`
	Negative          int                         `json:"negative"`
	ByType            map[model.FeedbackType]int  `json:"by_type"`
	DimensionAverages map[model.Dimension]float64 `json:"dimension_averages"`
	DimensionSamples  map[model.Dimension]int     `json:"dimension_samples"`
}

// Analyze 汇总显式与隐式反馈。评分 >=4 计为正向，<=2 计为负向；
// WeightedRating 以反馈置信度加权。
func Analyze(records []model.Feedback) Stats {
	st := Stats{ByType: map[model.FeedbackType]int{}}
	ratingSum := 0
	weightedSum, weightSum := 0.0, 0.0
	for _, f := range records {
		st.Total++
		if f.IsImplicit {
			st.Implicit++
		} else {
			st.Explicit++
		}
		st.ByType[f.Type]++
		if r := f.RatingValue(); r >= 1 && r <= 5 {
			st.Rated++
			ratingSum += r
			if f.Confidence > 0 {
				weightedSum += float64(r) * f.Confidence
				weightSum += f.Confidence
			}
			switch {
			case r >= 4:
				st.Positive++
			case r <= 2:
				st.Negative++
			}
		}
	}
	if st.Rated > 0 {
		st.AverageRating = float64(ratingSum) / float64(st.Rated)
	}
	if weightSum > 0 {
		st.WeightedRating = weightedSum / weightSum
	}
	st.DimensionAverages, st.DimensionSamples = DimensionAverages(records)
	return st
}

// DimensionAverages 各维度子评分均值及样本数，只统计 1-5 的有效值。
func DimensionAverages(records []model.Feedback) (map[model.Dimension]float64, map[model.Dimension]int) {
	sums := map[model.Dimension]int{}
	counts := map[model.Dimension]int{}
	for _, f := range records {
		for key, v := range f.DimensionRatings.Data() {
			d, ok := ResolveDimension(key)
			if !ok || v < 1 || v > 5 {
				continue
			}
			sums[d] += v
			counts[d]++
		}
	}
	avgs := make(map[model.Dimension]float64, len(sums))
	for d, sum := range sums {
		avgs[d] = float64(sum) / float64(counts[d])
	}
	return avgs, counts
}

// RatedWithDimensions 带有至少一个有效子评分的记录数。
func RatedWithDimensions(records []model.Feedback) int {
	n := 0
	for _, f := range records {
		for key, v := range f.DimensionRatings.Data() {
			if _, ok := ResolveDimension(key); ok && v >= 1 && v <= 5 {
				n++
				break
			}
		}
	}
	return n
}

// ConnectionSuccessRate 接受数 / (接受数 + 拒绝数)；没有任何连接决定时 ok 为 false。
func ConnectionSuccessRate(behaviors []model.BehaviorEvent) (rate float64, ok bool) {
	accepted, rejected := 0, 0
	for _, b := range behaviors {
		switch b.Type {
		case model.BehaviorAcceptConnection:
			accepted++
		case model.BehaviorRejectConnection:
			rejected++
		}
	}
	if accepted+rejected == 0 {
		return 0, false
	}
	return float64(accepted) / float64(accepted+rejected), true
}
