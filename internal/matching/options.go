package matching

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"netmatch/internal/apperr"
	"netmatch/internal/model"
	"netmatch/internal/ranking"
	"netmatch/internal/scoring"
)

// DefaultLimit 默认返回条数。
const DefaultLimit = 20

// partialThreshold includePartialMatches=false 时保留的最低偏好匹配度。
const partialThreshold = 50

// FilterOptions 排序前应用的过滤条件。
type FilterOptions struct {
	MinScore      int      `json:"min_score" validate:"min=0,max=100"`
	PreferredOnly bool     `json:"preferred_only"`
	Industries    []string `json:"industries"`
	Positions     []string `json:"positions"`
}

// Options 一次匹配请求的参数。Limit <= 0 表示不截断。
type Options struct {
	Limit                 int              `json:"limit" validate:"min=0,max=200"`
	Strategy              ranking.Strategy `json:"sort_strategy"`
	Filters               FilterOptions    `json:"filters"`
	IncludePartialMatches bool             `json:"include_partial_matches"`
	SaveToHistory         bool             `json:"save_to_history"`
	Diversify             bool             `json:"diversify"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate 校验数值范围，错误为 Validation。
func (o Options) Validate() error {
	err := validate.Struct(o)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation(err.Error())
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s must satisfy %s=%s, got %v", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value()))
	}
	return apperr.Validation(strings.Join(parts, "; "))
}

// DefaultOptions 默认参数。
func DefaultOptions() Options {
	return Options{
		Limit:                 DefaultLimit,
		Strategy:              ranking.Balanced,
		IncludePartialMatches: true,
		SaveToHistory:         true,
	}
}

// Match 单个推荐对象。
type Match struct {
	UserID          string                `json:"user_id"`
	Name            string                `json:"name"`
	Industry        string                `json:"industry"`
	Position        string                `json:"position"`
	Company         string                `json:"company"`
	Score           int                   `json:"score"`
	Strength        model.Strength        `json:"strength"`
	Reasons         []model.Reason        `json:"reasons"`
	CommonInterests []string              `json:"common_interests"`
	BusinessSynergy []string              `json:"business_synergy"`
	Breakdown       scoring.Breakdown     `json:"breakdown"`
	PartialMatch    *scoring.PartialMatch `json:"partial_match,omitempty"`
}

// RankingCandidate 实现 ranking.Item。
func (m Match) RankingCandidate() ranking.Candidate {
	c := ranking.Candidate{
		Score:    m.Score,
		Strength: m.Strength,
		Industry: m.Industry,
		Position: m.Position,
		Company:  m.Company,
	}
	if m.PartialMatch != nil {
		pct := m.PartialMatch.MatchPercentage
		c.PreferenceMatch = &pct
	}
	return c
}

// preferencePercent 未设置偏好时视为 100。
func (m Match) preferencePercent() int {
	if m.PartialMatch == nil {
		return 100
	}
	return m.PartialMatch.MatchPercentage
}

func (m *Match) setScore(score int) {
	m.Score = max(0, min(100, score))
	m.Strength = model.StrengthFor(m.Score)
}

// Result 匹配结果及各尽力而为步骤的执行情况。
type Result struct {
	EventID         string         `json:"event_id"`
	UserID          string         `json:"user_id"`
	Phase           model.Phase    `json:"phase,omitempty"`
	Strategy        string         `json:"sort_strategy"`
	Total           int            `json:"total"`
	Matches         []Match        `json:"matches"`
	ColdStart       apperr.Outcome `json:"cold_start"`
	History         apperr.Outcome `json:"history"`
	Personalization apperr.Outcome `json:"personalization"`
}

func (f FilterOptions) keep(m Match) bool {
	if m.Score < f.MinScore {
		return false
	}
	if f.PreferredOnly && m.PartialMatch != nil && m.PartialMatch.MatchPercentage == 0 {
		return false
	}
	if len(f.Industries) > 0 && !containsFold(f.Industries, m.Industry) {
		return false
	}
	if len(f.Positions) > 0 && !containsFold(f.Positions, m.Position) {
		return false
	}
	return true
}

// containsFold 大小写不敏感的包含匹配，"engineer" 可命中 "Senior Engineer"。
func containsFold(terms []string, value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return false
	}
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" && strings.Contains(v, t) {
			return true
		}
	}
	return false
}
