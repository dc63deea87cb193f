package scoring

import "netmatch/internal/model"

// Evaluation 一对资料的完整评估结果。
type Evaluation struct {
	Breakdown       Breakdown
	Raw             float64
	Score           int
	Strength        model.Strength
	Reasons         []model.Reason
	CommonInterests []string
	BusinessSynergy []string
	// Preference 源用户设置了偏好时才有值。
	Preference *PartialMatch
}

// Breakdown 计算全部七个维度。
func (s *Scorer) Breakdown(src, dst *model.Profile, prefs *model.Preferences) Breakdown {
	src, dst = orEmpty(src), orEmpty(dst)
	return Breakdown{
		model.DimIndustry:       s.Industry(src.Industry, dst.Industry),
		model.DimPosition:       s.Position(src.Position, dst.Position),
		model.DimBusinessGoal:   s.BusinessGoals(src.BusinessGoals, dst.BusinessGoals),
		model.DimSkills:         s.Skills(src.Skills, dst.Skills),
		model.DimExperience:     s.Experience(src.Position, dst.Position),
		model.DimCompanySize:    s.CompanySize(src, dst),
		model.DimUserPreference: s.UserPreference(dst, prefs),
	}
}

// MatchScore 加权后的 [0,1] 分数。
func (s *Scorer) MatchScore(src, dst *model.Profile, prefs *model.Preferences, w model.Weights) float64 {
	return Combine(s.Breakdown(src, dst, prefs), w)
}

// Evaluate 打分并生成理由、共同兴趣、业务协同与偏好匹配。
func (s *Scorer) Evaluate(src, dst *model.Profile, prefs *model.Preferences, w model.Weights) Evaluation {
	src, dst = orEmpty(src), orEmpty(dst)
	b := s.Breakdown(src, dst, prefs)
	raw := Combine(b, w)
	score := Percent(raw)
	ev := Evaluation{
		Breakdown:       b,
		Raw:             raw,
		Score:           score,
		Strength:        model.StrengthFor(score),
		Reasons:         s.Reasons(src, dst, b),
		CommonInterests: CommonInterests(src, dst),
		BusinessSynergy: s.BusinessSynergy(src, dst),
	}
	if prefs.HasCriteria() {
		pm := s.MatchPreferences(dst, prefs)
		ev.Preference = &pm
	}
	return ev
}

func orEmpty(p *model.Profile) *model.Profile {
	if p == nil {
		return &model.Profile{}
	}
	return p
}
