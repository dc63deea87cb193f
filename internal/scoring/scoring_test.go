package scoring

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netmatch/internal/model"
)

func newScorer() *Scorer { return NewScorer(DefaultTables()) }

func TestCEOAndInvestorInSameIndustryIsHighMatch(t *testing.T) {
	t.Parallel()
	s := newScorer()

	ceo := &model.Profile{ID: "a", Industry: "Tech", Position: "CEO", BusinessGoals: []string{"funding", "partnerships"}}
	investor := &model.Profile{ID: "b", Industry: "Tech", Position: "Investor", BusinessGoals: []string{"Funding", "deal flow"}}

	ev := s.Evaluate(ceo, investor, nil, model.DefaultWeights())
	assert.Equal(t, 1.0, ev.Breakdown[model.DimIndustry])
	assert.Equal(t, 1.0, ev.Breakdown[model.DimPosition])
	assert.GreaterOrEqual(t, ev.Breakdown[model.DimBusinessGoal], 0.7)
	assert.GreaterOrEqual(t, ev.Raw, 0.8)
	assert.Equal(t, model.StrengthHigh, ev.Strength)
	assert.Nil(t, ev.Preference)
	assert.Equal(t, []string{"Funding"}, ev.BusinessSynergy)
}

func TestIndustry(t *testing.T) {
	t.Parallel()
	s := newScorer()
	assert.Equal(t, 1.0, s.Industry("FinTech", " fintech "))
	assert.Equal(t, 0.7, s.Industry("Banking", "Insurance"))
	assert.Equal(t, 0.5, s.Industry("Logistics", "E-commerce"))
	assert.Equal(t, 0.1, s.Industry("Agriculture", "Media"))
	assert.Equal(t, 0.1, s.Industry("", "Media"))
}

func TestPosition(t *testing.T) {
	t.Parallel()
	s := newScorer()
	assert.Equal(t, 1.0, s.Position("Investor", "CEO"))
	assert.Equal(t, 0.8, s.Position("CFO", "Director of Sales"))
	assert.Equal(t, 0.6, s.Position("Accountant", "accountant"))
	assert.Equal(t, 0.3, s.Position("Accountant", "Nurse"))
	assert.Equal(t, 0.3, s.Position("", "CEO"))
	// "cto" 不应命中 "director"
	assert.NotEqual(t, 1.0, s.Position("Director", "Engineer"))
}

func TestBusinessGoals(t *testing.T) {
	t.Parallel()
	s := newScorer()
	assert.Equal(t, 1.0, s.BusinessGoals([]string{"funding"}, []string{"Funding", "hiring"}))
	assert.Equal(t, 0.7, s.BusinessGoals([]string{"raise capital"}, []string{"find investment"}))
	assert.Equal(t, 0.5, s.BusinessGoals([]string{"selling software"}, []string{"procurement"}))
	assert.Equal(t, 0.2, s.BusinessGoals(nil, []string{"hiring"}))
	assert.Equal(t, 0.2, s.BusinessGoals([]string{"surfing"}, []string{"chess"}))
}

func TestSkills(t *testing.T) {
	t.Parallel()
	s := newScorer()
	assert.Equal(t, 0.2, s.Skills(nil, []string{"go"}))

	// 一个共同技能 + 互补类别 programming/cloud
	got := s.Skills([]string{"Go", "Kubernetes"}, []string{"golang"})
	assert.InDelta(t, 0.3+0.1, got, 1e-9)

	many := []string{"go", "java", "python", "rust"}
	assert.Equal(t, 1.0, s.Skills(many, many))
}

func TestExperience(t *testing.T) {
	t.Parallel()
	s := newScorer()
	assert.Equal(t, 1, s.ExperienceLevel("Junior Developer"))
	assert.Equal(t, 3, s.ExperienceLevel("Senior Engineer"))
	assert.Equal(t, 5, s.ExperienceLevel("CEO"))
	assert.Equal(t, 2, s.ExperienceLevel("Gardener"))

	assert.Equal(t, 1.0, s.Experience("CEO", "Founder"))
	assert.InDelta(t, 0.8, s.Experience("Engineer", "Senior Engineer"), 1e-9)
	assert.Equal(t, 0.3, s.Experience("Intern", "CEO"))
}

func TestUserPreferenceScore(t *testing.T) {
	t.Parallel()
	s := newScorer()
	target := &model.Profile{Industry: "Fintech", Position: "Angel Investor", BusinessGoals: []string{"mentorship"}}

	assert.Equal(t, 0.5, s.UserPreference(target, nil))
	assert.Equal(t, 0.5, s.UserPreference(target, &model.Preferences{}))

	prefs := &model.Preferences{
		TargetPositions:  []string{"Investor"},
		TargetIndustries: []string{"Healthcare"},
		BusinessGoals:    []string{"mentorship", "hiring"},
	}
	// 职位 1 + 行业 0 + 目标 0.5，三类平均
	assert.InDelta(t, 1.5/3, s.UserPreference(target, prefs), 1e-9)
}

func TestCombineIsBounded(t *testing.T) {
	t.Parallel()
	b := Breakdown{}
	for _, d := range model.Dimensions {
		b[d] = 1
	}
	assert.Equal(t, 1.0, Combine(b, model.Weights{Industry: 3}))
	assert.Equal(t, 0.0, Combine(b, model.Weights{Industry: -1}))
	assert.Equal(t, 100, Percent(1.2))
}

func TestMatchScoreHandlesEmptyProfiles(t *testing.T) {
	t.Parallel()
	s := newScorer()

	empty := &model.Profile{ID: "x"}
	full := &model.Profile{ID: "y", Industry: "Finance", Position: "CFO", Skills: []string{"sql"}}
	for _, prefs := range []*model.Preferences{nil, {}, {TargetIndustries: []string{"finance"}}} {
		for _, pair := range [][2]*model.Profile{{empty, empty}, {empty, full}, {full, empty}} {
			got := s.MatchScore(pair[0], pair[1], prefs, model.DefaultWeights())
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		}
	}
}

func TestEffectiveWeights(t *testing.T) {
	t.Parallel()
	custom := model.Weights{Industry: 1}
	assert.Equal(t, model.DefaultWeights(), EffectiveWeights(nil))
	assert.Equal(t, model.DefaultWeights(), EffectiveWeights(&model.UserWeights{Weights: custom}))
	assert.Equal(t, custom, EffectiveWeights(&model.UserWeights{Weights: custom, LearningCount: 1}))
}

func TestReasons(t *testing.T) {
	t.Parallel()
	s := newScorer()
	src := &model.Profile{Industry: "Tech", Position: "CEO", Interests: []string{"Sailing", "AI"}}
	dst := &model.Profile{Industry: "tech", Position: "Investor", Interests: []string{"ai", "chess"}}

	reasons := s.Reasons(src, dst, s.Breakdown(src, dst, nil))
	var dims []string
	for _, r := range reasons {
		dims = append(dims, r.Dimension)
	}
	assert.Equal(t, []string{"industry", "position", ReasonInterests}, dims)
	assert.Equal(t, "Common interests: ai", reasons[2].Description)

	none := s.Reasons(&model.Profile{}, &model.Profile{}, s.Breakdown(nil, nil, nil))
	assert.Empty(t, none)
}

func TestMatchPreferences(t *testing.T) {
	t.Parallel()
	s := newScorer()
	target := &model.Profile{Industry: "Healthcare", Position: "VP Engineering", BusinessGoals: []string{"hiring"}}

	pm := s.MatchPreferences(target, nil)
	assert.Equal(t, 100, pm.MatchPercentage)

	prefs := &model.Preferences{
		TargetPositions:  []string{"VP Engineering"},
		TargetIndustries: []string{"Fintech"},
		BusinessGoals:    []string{"Hiring"},
		ExperienceLevel:  model.ExperienceExecutive,
		CompanySize:      model.CompanyStartup,
	}
	pm = s.MatchPreferences(target, prefs)
	assert.Equal(t, []string{CriterionPosition, CriterionBusinessGoals, CriterionExperienceLevel}, pm.MatchedCriteria)
	assert.Equal(t, []string{CriterionIndustry}, pm.MissedCriteria)
	assert.Equal(t, 75, pm.MatchPercentage)
	assert.Contains(t, pm.Explanation, "Partial match")
}

func TestEvaluateWithPreferences(t *testing.T) {
	t.Parallel()
	s := newScorer()
	prefs := &model.Preferences{TargetIndustries: []string{"Tech"}}
	ev := s.Evaluate(&model.Profile{}, &model.Profile{Industry: "Tech"}, prefs, model.DefaultWeights())
	require.NotNil(t, ev.Preference)
	assert.Equal(t, 100, ev.Preference.MatchPercentage)
	assert.Equal(t, 1.0, ev.Breakdown[model.DimUserPreference])
}

func TestLoadTablesFallsBackPerField(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "tables.yaml")
	body := `
position_relations:
  - [chef, farmer]
default_experience_level: 3
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	tables, err := LoadTables(path)
	require.NoError(t, err)
	assert.Equal(t, []Pair{{A: "chef", B: "farmer"}}, tables.PositionRelations)
	assert.Equal(t, DefaultTables().IndustryClusters, tables.IndustryClusters)
	assert.Equal(t, 3, tables.DefaultExperienceLevel)

	s := NewScorer(tables)
	assert.Equal(t, 1.0, s.Position("Farmer", "Head Chef"))
}

func TestLoadTablesRejectsBadPair(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "tables.yaml")
	require.NoError(t, os.WriteFile(path, []byte("position_relations:\n  - [a, b, c]\n"), 0o644))
	_, err := LoadTables(path)
	assert.Error(t, err)

	_, err = LoadTables(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
