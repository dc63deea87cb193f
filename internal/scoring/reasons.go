package scoring

import (
	"fmt"
	"math"
	"strings"

	"netmatch/internal/model"
)

// ReasonInterests 共同兴趣理由的维度标签，不属于七个打分维度。
const ReasonInterests = "interests"

// Reasons 对超过阈值的维度生成可读理由，顺序固定。
func (s *Scorer) Reasons(src, dst *model.Profile, b Breakdown) []model.Reason {
	var out []model.Reason

	if v := b[model.DimIndustry]; v >= 0.7 {
		desc := fmt.Sprintf("Works in a related industry (%s)", dst.Industry)
		if v >= 1.0 {
			desc = fmt.Sprintf("Same industry: %s", dst.Industry)
		}
		out = append(out, model.Reason{Dimension: string(model.DimIndustry), Description: desc, Score: v})
	}

	if v := b[model.DimPosition]; v >= 0.8 {
		desc := fmt.Sprintf("Peer-level role: %s", dst.Position)
		if v >= 1.0 {
			desc = fmt.Sprintf("Complementary roles: %s and %s", src.Position, dst.Position)
		}
		out = append(out, model.Reason{Dimension: string(model.DimPosition), Description: desc, Score: v})
	}

	if v := b[model.DimBusinessGoal]; v >= 0.7 {
		desc := "Related business goals"
		if shared := s.CommonGoals(src, dst); v >= 1.0 && len(shared) > 0 {
			desc = "Shared business goals: " + strings.Join(shared, ", ")
		}
		out = append(out, model.Reason{Dimension: string(model.DimBusinessGoal), Description: desc, Score: v})
	}

	if v := b[model.DimSkills]; v >= 0.6 {
		desc := "Complementary skill sets"
		if v >= 0.9 {
			desc = "Strongly overlapping skills"
		}
		out = append(out, model.Reason{Dimension: string(model.DimSkills), Description: desc, Score: v})
	}

	if common := CommonInterests(src, dst); len(common) > 0 {
		smaller := min(len(cleanTerms(src.Interests)), len(cleanTerms(dst.Interests)))
		score := math.Min(1, float64(len(common))/float64(max(1, smaller)))
		out = append(out, model.Reason{
			Dimension:   ReasonInterests,
			Description: "Common interests: " + strings.Join(common, ", "),
			Score:       score,
		})
	}
	return out
}

// CommonInterests 双方共同兴趣，保留目标方的写法。
func CommonInterests(src, dst *model.Profile) []string {
	return commonOriginal(src.Interests, dst.Interests)
}

// CommonGoals 双方共同的业务目标。
func (s *Scorer) CommonGoals(src, dst *model.Profile) []string {
	return commonOriginal(src.BusinessGoals, dst.BusinessGoals)
}

// BusinessSynergy 共同目标加上互补目标组合。
func (s *Scorer) BusinessSynergy(src, dst *model.Profile) []string {
	out := s.CommonGoals(src, dst)
	out = append(out, s.complementaryGoals(cleanTerms(src.BusinessGoals), cleanTerms(dst.BusinessGoals))...)
	return out
}

func commonOriginal(a, b []string) []string {
	set := map[string]struct{}{}
	for _, v := range a {
		if n := norm(v); n != "" {
			set[n] = struct{}{}
		}
	}
	seen := map[string]struct{}{}
	out := []string{}
	for _, v := range b {
		n := norm(v)
		if _, ok := set[n]; !ok {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, strings.TrimSpace(v))
	}
	return out
}
