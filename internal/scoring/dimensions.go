package scoring

import (
	"math"
	"strings"

	"netmatch/internal/model"
)

// CompanySizeScore 资料中没有公司规模信息，该维度恒为中性值。
const CompanySizeScore = 0.6

// Scorer 基于词表计算七个维度的相容度，每个维度输出 [0,1]。
type Scorer struct {
	tables Tables
}

// NewScorer 缺失的词表字段使用默认值。
func NewScorer(t Tables) *Scorer {
	return &Scorer{tables: t.withDefaults()}
}

// Industry 完全相同 1.0，同一行业簇 0.7，互补 0.5，否则 0.1。
func (s *Scorer) Industry(a, b string) float64 {
	na, nb := norm(a), norm(b)
	if na == "" || nb == "" {
		return 0.1
	}
	if na == nb {
		return 1.0
	}
	if sharesKey(categoriesOf(na, s.tables.IndustryClusters), categoriesOf(nb, s.tables.IndustryClusters)) {
		return 0.7
	}
	for _, p := range s.tables.ComplementaryIndustries {
		if pairMatches(na, nb, p) {
			return 0.5
		}
	}
	return 0.1
}

// Position 关联职位（双向）1.0，同层级不同职位 0.8，完全相同 0.6，否则 0.3。
func (s *Scorer) Position(a, b string) float64 {
	na, nb := norm(a), norm(b)
	if na == "" || nb == "" {
		return 0.3
	}
	for _, p := range s.tables.PositionRelations {
		if pairMatches(na, nb, p) {
			return 1.0
		}
	}
	tierA, keyA := firstCategory(na, s.tables.PositionTiers)
	tierB, keyB := firstCategory(nb, s.tables.PositionTiers)
	if tierA != "" && tierA == tierB && keyA != keyB {
		return 0.8
	}
	if na == nb {
		return 0.6
	}
	return 0.3
}

// BusinessGoals 重合度达到较小集合一半 1.0，同类目标 0.7，互补 0.5，否则 0.2。
func (s *Scorer) BusinessGoals(a, b []string) float64 {
	ga, gb := cleanTerms(a), cleanTerms(b)
	if len(ga) == 0 || len(gb) == 0 {
		return 0.2
	}
	overlap := len(intersect(ga, gb))
	smaller := min(len(ga), len(gb))
	if float64(overlap)/float64(smaller) >= 0.5 {
		return 1.0
	}
	for _, x := range ga {
		cx := categoriesOf(x, s.tables.GoalCategories)
		for _, y := range gb {
			if sharesKey(cx, categoriesOf(y, s.tables.GoalCategories)) {
				return 0.7
			}
		}
	}
	if len(s.complementaryGoals(ga, gb)) > 0 {
		return 0.5
	}
	return 0.2
}

func (s *Scorer) complementaryGoals(ga, gb []string) []string {
	var out []string
	for _, x := range ga {
		for _, y := range gb {
			for _, p := range s.tables.ComplementaryGoals {
				if pairMatches(x, y, p) {
					out = append(out, x+" + "+y)
					break
				}
			}
		}
	}
	return out
}

// Skills 共同技能每个 0.3（上限 1.0），同类不同技能每个 0.2（上限 0.6），
// 互补技能类别每对 0.1（上限 0.4），总分封顶 1；任一方为空得 0.2。
func (s *Scorer) Skills(a, b []string) float64 {
	sa, sb := cleanTerms(a), cleanTerms(b)
	if len(sa) == 0 || len(sb) == 0 {
		return 0.2
	}
	matchedA := map[string]bool{}
	matchedB := map[string]bool{}
	common := 0
	for _, x := range sa {
		for _, y := range sb {
			if matchedB[y] {
				continue
			}
			if skillsEqual(x, y) {
				common++
				matchedA[x], matchedB[y] = true, true
				break
			}
		}
	}

	catsA := map[string]map[string]bool{}
	catsB := map[string]map[string]bool{}
	for _, x := range sa {
		catsA[x] = categoriesOf(x, s.tables.SkillCategories)
	}
	for _, y := range sb {
		catsB[y] = categoriesOf(y, s.tables.SkillCategories)
	}
	sameCategory := 0
	for _, x := range sa {
		if matchedA[x] {
			continue
		}
		for _, y := range sb {
			if !matchedB[y] && sharesKey(catsA[x], catsB[y]) {
				sameCategory++
				break
			}
		}
	}

	unionA, unionB := union(catsA), union(catsB)
	complementary := 0
	for _, p := range s.tables.ComplementarySkillCategories {
		if (unionA[p.A] && unionB[p.B]) || (unionA[p.B] && unionB[p.A]) {
			complementary++
		}
	}

	score := math.Min(float64(common)*0.3, 1.0) +
		math.Min(float64(sameCategory)*0.2, 0.6) +
		math.Min(float64(complementary)*0.1, 0.4)
	return math.Min(score, 1.0)
}

// skillsEqual 技能按相等或子串视为相同，如 "go" 与 "golang"。
func skillsEqual(x, y string) bool {
	if x == y {
		return true
	}
	if len(x) < 2 || len(y) < 2 {
		return false
	}
	return strings.Contains(x, y) || strings.Contains(y, x)
}

// ExperienceLevel 由职称关键词推断 1-5 的经验等级。
func (s *Scorer) ExperienceLevel(position string) int {
	p := norm(position)
	if p == "" {
		return s.tables.DefaultExperienceLevel
	}
	for _, lvl := range s.tables.ExperienceLevels {
		for _, k := range lvl.Keywords {
			if hasTerm(p, k) {
				return lvl.Level
			}
		}
	}
	return s.tables.DefaultExperienceLevel
}

// Experience 1 - 0.2*|等级差|，不低于 0.3。
func (s *Scorer) Experience(a, b string) float64 {
	diff := math.Abs(float64(s.ExperienceLevel(a) - s.ExperienceLevel(b)))
	return math.Max(0.3, 1-0.2*diff)
}

// CompanySize 暂无公司规模数据，返回中性常量。
func (s *Scorer) CompanySize(_, _ *model.Profile) float64 {
	return CompanySizeScore
}

// UserPreference 目标资料对源用户偏好的满足度；无偏好时 0.5。
// 职位、行业按是否命中记 0/1，业务目标按命中比例记分，最后取平均。
func (s *Scorer) UserPreference(target *model.Profile, prefs *model.Preferences) float64 {
	if prefs == nil {
		return 0.5
	}
	evaluated := 0
	credit := 0.0
	if len(prefs.TargetPositions) > 0 {
		evaluated++
		if matchesAny(target.Position, prefs.TargetPositions) {
			credit++
		}
	}
	if len(prefs.TargetIndustries) > 0 {
		evaluated++
		if matchesAny(target.Industry, prefs.TargetIndustries) {
			credit++
		}
	}
	if goals := cleanTerms(prefs.BusinessGoals); len(goals) > 0 {
		evaluated++
		hit := 0
		for _, g := range goals {
			for _, tg := range target.BusinessGoals {
				if termsMatch(g, tg) {
					hit++
					break
				}
			}
		}
		credit += float64(hit) / float64(len(goals))
	}
	if evaluated == 0 {
		return 0.5
	}
	return credit / float64(evaluated)
}

func intersect(a, b []string) []string {
	set := make(map[string]struct{}, len(b))
	for _, v := range b {
		set[v] = struct{}{}
	}
	var out []string
	for _, v := range a {
		if _, ok := set[v]; ok {
			out = append(out, v)
		}
	}
	return out
}

func union(m map[string]map[string]bool) map[string]bool {
	out := map[string]bool{}
	for _, cats := range m {
		for c := range cats {
			out[c] = true
		}
	}
	return out
}

// RelatedPositions 关联表中与 position 对应的另一侧职位。
func (s *Scorer) RelatedPositions(position string) []string {
	p := norm(position)
	if p == "" {
		return nil
	}
	var out []string
	seen := map[string]bool{}
	add := func(v string) {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	for _, rel := range s.tables.PositionRelations {
		if hasTerm(p, rel.A) {
			add(rel.B)
		}
		if hasTerm(p, rel.B) {
			add(rel.A)
		}
	}
	return out
}
