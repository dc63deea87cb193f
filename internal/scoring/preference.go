package scoring

import (
	"fmt"
	"math"
	"strings"

	"netmatch/internal/model"
)

// 偏好类别名。
const (
	CriterionPosition        = "position"
	CriterionIndustry        = "industry"
	CriterionBusinessGoals   = "business_goals"
	CriterionExperienceLevel = "experience_level"
)

// PartialMatch 目标资料对源用户偏好的逐类满足情况。
type PartialMatch struct {
	MatchedCriteria []string `json:"matched_criteria"`
	MissedCriteria  []string `json:"missed_criteria"`
	MatchPercentage int      `json:"match_percentage"`
	Explanation     string   `json:"explanation"`
}

// MatchPreferences 逐类评估职位、行业、业务目标与经验层级；
// 公司规模与地域资料中没有对应数据，不参与评估。
// 没有任何可评估类别时视为 100%。
func (s *Scorer) MatchPreferences(target *model.Profile, prefs *model.Preferences) PartialMatch {
	pm := PartialMatch{MatchedCriteria: []string{}, MissedCriteria: []string{}}
	record := func(name string, ok bool) {
		if ok {
			pm.MatchedCriteria = append(pm.MatchedCriteria, name)
		} else {
			pm.MissedCriteria = append(pm.MissedCriteria, name)
		}
	}

	if prefs != nil {
		if len(prefs.TargetPositions) > 0 {
			record(CriterionPosition, matchesAny(target.Position, prefs.TargetPositions))
		}
		if len(prefs.TargetIndustries) > 0 {
			record(CriterionIndustry, matchesAny(target.Industry, prefs.TargetIndustries))
		}
		if len(cleanTerms(prefs.BusinessGoals)) > 0 {
			hit := false
			for _, g := range target.BusinessGoals {
				if matchesAny(g, prefs.BusinessGoals) {
					hit = true
					break
				}
			}
			record(CriterionBusinessGoals, hit)
		}
		if prefs.ExperienceLevel != "" {
			level := model.ExperienceLevelFor(s.ExperienceLevel(target.Position))
			record(CriterionExperienceLevel, level == prefs.ExperienceLevel)
		}
	}

	total := len(pm.MatchedCriteria) + len(pm.MissedCriteria)
	if total == 0 {
		pm.MatchPercentage = 100
	} else {
		pm.MatchPercentage = int(math.Round(float64(len(pm.MatchedCriteria)) / float64(total) * 100))
	}
	pm.Explanation = explain(pm)
	return pm
}

func explain(pm PartialMatch) string {
	switch {
	case len(pm.MatchedCriteria)+len(pm.MissedCriteria) == 0:
		return "No preferences set"
	case pm.MatchPercentage == 100:
		return "Perfect match for all your preferences"
	case pm.MatchPercentage >= 80:
		return fmt.Sprintf("Strong match, differs on %s", strings.Join(pm.MissedCriteria, ", "))
	case pm.MatchPercentage >= 50:
		return fmt.Sprintf("Partial match on %s", strings.Join(pm.MatchedCriteria, ", "))
	case pm.MatchPercentage > 0:
		return fmt.Sprintf("Alternative suggestion, matches only %s", strings.Join(pm.MatchedCriteria, ", "))
	default:
		return "Does not match your preferences"
	}
}
