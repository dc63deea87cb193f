package model

import (
	"time"

	"gorm.io/datatypes"
)

// Phase 冷启动阶段，正常情况下只前进不回退。
type Phase string

const (
	PhaseInitial     Phase = "INITIAL"
	PhaseLearning    Phase = "LEARNING"
	PhaseAdapting    Phase = "ADAPTING"
	PhaseEstablished Phase = "ESTABLISHED"
)

// Rank 阶段序号，未知阶段视为 INITIAL。
func (p Phase) Rank() int {
	switch p {
	case PhaseLearning:
		return 1
	case PhaseAdapting:
		return 2
	case PhaseEstablished:
		return 3
	default:
		return 0
	}
}

// LaterPhase 返回两者中更靠后的阶段。
func LaterPhase(a, b Phase) Phase {
	if b.Rank() > a.Rank() {
		return b
	}
	if a == "" {
		return PhaseInitial
	}
	return a
}

// InferredPreferences 冷启动时从资料推断的初始偏好。
type InferredPreferences struct {
	Industries    []string `json:"industries,omitempty"`
	Positions     []string `json:"positions,omitempty"`
	BusinessGoals []string `json:"business_goals,omitempty"`
	Keywords      []string `json:"keywords,omitempty"`
}

// ColdStartProfile 每个用户一条，首次匹配时惰性创建。
type ColdStartProfile struct {
	UserID              string                                  `gorm:"primaryKey" json:"user_id"`
	InitialPreferences  datatypes.JSONType[InferredPreferences] `json:"initial_preferences"`
	ProfileCompleteness float64                                 `json:"profile_completeness"`
	ActivityScore       float64                                 `json:"activity_score"`
	DiversityFactor     float64                                 `json:"diversity_factor"`
	Phase               Phase                                   `json:"phase"`
	BehaviorCount       int64                                   `json:"behavior_count"`
	FeedbackCount       int64                                   `json:"feedback_count"`
	CreatedAt           time.Time                               `json:"created_at"`
	UpdatedAt           time.Time                               `json:"updated_at"`
}
