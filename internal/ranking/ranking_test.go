package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netmatch/internal/model"
)

type stubItem struct {
	id string
	c  Candidate
}

func (s stubItem) RankingCandidate() Candidate { return s.c }

func ids(items []stubItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.id
	}
	return out
}

func item(id string, score int, industry, position, company string) stubItem {
	return stubItem{id: id, c: Candidate{
		Score:    score,
		Strength: model.StrengthFor(score),
		Industry: industry,
		Position: position,
		Company:  company,
	}}
}

func clusteredPool() []stubItem {
	return []stubItem{
		item("E", 65, "Health", "Developer", "Z"),
		item("A", 90, "Tech", "CEO", "X"),
		item("F", 60, "Tech", "CEO", "X"),
		item("C", 86, "Tech", "CEO", "X"),
		item("D", 70, "Finance", "CTO", "Y"),
		item("B", 88, "Tech", "CEO", "X"),
	}
}

func TestParseStrategy(t *testing.T) {
	t.Parallel()
	s, err := ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, Balanced, s)

	s, err = ParseStrategy("diversity")
	require.NoError(t, err)
	assert.Equal(t, Diversity, s)

	_, err = ParseStrategy("random")
	assert.Error(t, err)
}

func TestScoreDescIsNonIncreasing(t *testing.T) {
	t.Parallel()
	pool := clusteredPool()
	ranked := Rank(pool, ScoreDesc)
	for i := 1; i < len(ranked); i++ {
		assert.GreaterOrEqual(t, ranked[i-1].c.Score, ranked[i].c.Score)
	}
	// 入参不被修改
	assert.Equal(t, "E", pool[0].id)
}

func TestDiversityLowersCollisionRate(t *testing.T) {
	t.Parallel()
	pool := clusteredPool()

	byScore := Rank(pool, ScoreDesc)
	diverse := Rank(pool, Diversity)

	assert.Equal(t, []string{"A", "D", "B"}, ids(diverse[:3]))
	assert.Len(t, diverse, len(pool))
	assert.Less(t, CollisionRate(diverse, 3), CollisionRate(byScore, 3))
}

func TestPreferenceFirstAndBalanced(t *testing.T) {
	t.Parallel()
	full := 100
	x := stubItem{id: "X", c: Candidate{Score: 80, Strength: model.StrengthHigh}}
	y := stubItem{id: "Y", c: Candidate{Score: 70, Strength: model.StrengthMedium, PreferenceMatch: &full}}
	z := stubItem{id: "Z", c: Candidate{Score: 75, Strength: model.StrengthMedium, PreferenceMatch: &full}}

	assert.Equal(t, []string{"Z", "Y", "X"}, ids(Rank([]stubItem{x, y, z}, PreferenceFirst)))
	// X: 48+15+10=73, Y: 42+30+6=78, Z: 45+30+6=81
	assert.Equal(t, []string{"Z", "Y", "X"}, ids(Rank([]stubItem{x, y, z}, Balanced)))
	assert.Equal(t, []string{"Z", "Y", "X"}, ids(Rank([]stubItem{x, y, z}, "")))
}

func TestEnforceDiversityDefersOnce(t *testing.T) {
	t.Parallel()
	sorted := []stubItem{
		item("A", 90, "Tech", "CEO", "X"),
		item("B", 88, "Tech", "CEO", "X"),
		item("C", 86, "Tech", "CEO", "X"),
		item("D", 70, "Finance", "CTO", "Y"),
	}
	assert.Equal(t, []string{"A", "D", "B", "C"}, ids(EnforceDiversity(sorted, 0.5)))
	// factor 为 0 时阈值为 1，不会推迟任何候选
	assert.Equal(t, []string{"A", "B", "C", "D"}, ids(EnforceDiversity(sorted, 0)))
	assert.Empty(t, EnforceDiversity([]stubItem{}, 0.9))
}

func TestEmptyAttributesDoNotCollide(t *testing.T) {
	t.Parallel()
	a := Candidate{}
	assert.Equal(t, 100.0, diversityScore(a, []Candidate{{}}))
}
