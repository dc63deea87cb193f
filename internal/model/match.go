package model

import (
	"time"

	"gorm.io/datatypes"
)

// Strength 推荐强度，由 0-100 分数粗化而来。
type Strength string

const (
	StrengthHigh   Strength = "HIGH"
	StrengthMedium Strength = "MEDIUM"
	StrengthLow    Strength = "LOW"
)

// StrengthFor HIGH >= 80，MEDIUM >= 60，其余 LOW。
func StrengthFor(score int) Strength {
	switch {
	case score >= 80:
		return StrengthHigh
	case score >= 60:
		return StrengthMedium
	default:
		return StrengthLow
	}
}

// Reason 推荐理由。
type Reason struct {
	Dimension   string  `json:"dimension"`
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

// MatchRecord 历史匹配结果，按 (event, user, target) 唯一。
// Reasons 仅作留档，读取时总是重新生成。
type MatchRecord struct {
	ID              uint                        `gorm:"primaryKey" json:"id"`
	EventID         string                      `gorm:"uniqueIndex:idx_match_pair;index" json:"event_id"`
	UserID          string                      `gorm:"uniqueIndex:idx_match_pair;index" json:"user_id"`
	TargetUserID    string                      `gorm:"uniqueIndex:idx_match_pair" json:"target_user_id"`
	Score           int                         `json:"score"`
	Strength        Strength                    `json:"strength"`
	Reasons         datatypes.JSONSlice[Reason] `json:"reasons"`
	CommonInterests datatypes.JSONSlice[string] `json:"common_interests"`
	BusinessSynergy datatypes.JSONSlice[string] `json:"business_synergy"`
	PreferenceMatch *int                        `json:"preference_match,omitempty"`
	CreatedAt       time.Time                   `json:"created_at"`
	UpdatedAt       time.Time                   `json:"updated_at"`
}

// EventMatchStats 活动级匹配统计。
type EventMatchStats struct {
	EventID          string         `json:"event_id"`
	TotalMatches     int64          `json:"total_matches"`
	AverageScore     float64        `json:"average_score"`
	HighQualityCount int64          `json:"high_quality_count"`
	Distribution     map[string]int `json:"distribution"`
}

// ScoreBand 统计分布使用的分数段。
func ScoreBand(score int) string {
	switch {
	case score >= 80:
		return "80-100"
	case score >= 60:
		return "60-79"
	case score >= 40:
		return "40-59"
	default:
		return "0-39"
	}
}

// ScoreBands 按从低到高列出所有分数段。
var ScoreBands = []string{"0-39", "40-59", "60-79", "80-100"}
