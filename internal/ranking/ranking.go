package ranking

import (
	"fmt"
	"sort"
	"strings"

	"netmatch/internal/model"
)

// Strategy 排序策略。
type Strategy string

const (
	ScoreDesc       Strategy = "SCORE_DESC"
	PreferenceFirst Strategy = "PREFERENCE_FIRST"
	Diversity       Strategy = "DIVERSITY"
	Balanced        Strategy = "BALANCED"
)

// ParseStrategy 空串返回默认的 BALANCED。
func ParseStrategy(s string) (Strategy, error) {
	v := Strategy(strings.ToUpper(strings.TrimSpace(s)))
	switch v {
	case "":
		return Balanced, nil
	case ScoreDesc, PreferenceFirst, Diversity, Balanced:
		return v, nil
	}
	return "", fmt.Errorf("unknown sort strategy %q", s)
}

// Candidate 排序所需的最少字段。
type Candidate struct {
	Score           int
	Strength        model.Strength
	PreferenceMatch *int
	Industry        string
	Position        string
	Company         string
}

// Item 可被排序的匹配结果。
type Item interface {
	RankingCandidate() Candidate
}

// Rank 按策略返回新切片，不修改入参。
func Rank[T Item](items []T, strategy Strategy) []T {
	out := make([]T, len(items))
	copy(out, items)

	switch strategy {
	case ScoreDesc:
		sortByScore(out)
	case PreferenceFirst:
		sort.SliceStable(out, func(i, j int) bool {
			ci, cj := out[i].RankingCandidate(), out[j].RankingCandidate()
			pi, pj := prefOr(ci, 0), prefOr(cj, 0)
			if pi != pj {
				return pi > pj
			}
			return ci.Score > cj.Score
		})
	case Diversity:
		sortByScore(out)
		out = diversify(out)
	default:
		sort.SliceStable(out, func(i, j int) bool {
			return balanced(out[i].RankingCandidate()) > balanced(out[j].RankingCandidate())
		})
	}
	return out
}

func sortByScore[T Item](items []T) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].RankingCandidate().Score > items[j].RankingCandidate().Score
	})
}

func prefOr(c Candidate, def int) int {
	if c.PreferenceMatch == nil {
		return def
	}
	return *c.PreferenceMatch
}

func strengthScore(s model.Strength) float64 {
	switch s {
	case model.StrengthHigh:
		return 100
	case model.StrengthMedium:
		return 60
	default:
		return 30
	}
}

// balanced 0.6*分数 + 0.3*偏好匹配度(缺省 50) + 0.1*强度分。
func balanced(c Candidate) float64 {
	return 0.6*float64(c.Score) + 0.3*float64(prefOr(c, 50)) + 0.1*strengthScore(c.Strength)
}

// diversify 贪心选择：每轮从剩余候选中选 0.7*分数 + 0.3*多样性分 最大者，
// 第一轮只看分数。入参已按分数降序。
func diversify[T Item](sorted []T) []T {
	if len(sorted) < 2 {
		return sorted
	}
	selected := make([]T, 0, len(sorted))
	picked := make([]Candidate, 0, len(sorted))
	used := make([]bool, len(sorted))

	selected = append(selected, sorted[0])
	picked = append(picked, sorted[0].RankingCandidate())
	used[0] = true

	for len(selected) < len(sorted) {
		best, bestValue := -1, 0.0
		for i, item := range sorted {
			if used[i] {
				continue
			}
			c := item.RankingCandidate()
			value := 0.7*float64(c.Score) + 0.3*diversityScore(c, picked)
			if best < 0 || value > bestValue {
				best, bestValue = i, value
			}
		}
		used[best] = true
		selected = append(selected, sorted[best])
		picked = append(picked, sorted[best].RankingCandidate())
	}
	return selected
}

// diversityScore 从 100 起，对每个已选候选按同行业 -15、同职位 -10、同公司 -20 扣分。
func diversityScore(c Candidate, picked []Candidate) float64 {
	score := 100.0
	for _, p := range picked {
		if sameAttr(c.Industry, p.Industry) {
			score -= 15
		}
		if sameAttr(c.Position, p.Position) {
			score -= 10
		}
		if sameAttr(c.Company, p.Company) {
			score -= 20
		}
	}
	return score
}

// sameAttr 空值不视为冲突。
func sameAttr(a, b string) bool {
	a, b = strings.ToLower(strings.TrimSpace(a)), strings.ToLower(strings.TrimSpace(b))
	return a != "" && a == b
}
