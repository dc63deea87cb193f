package model

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// InsightType 算法洞察类型。
type InsightType string

const (
	InsightDimensionPreference InsightType = "DIMENSION_PREFERENCE"
	InsightRejectionPattern    InsightType = "REJECTION_PATTERN"
	InsightSuccessPattern      InsightType = "SUCCESS_PATTERN"
	InsightActivityPattern     InsightType = "ACTIVITY_PATTERN"
	InsightWeightAdjustment    InsightType = "WEIGHT_ADJUSTMENT"
)

// InsightTypes 全部洞察类型。
var InsightTypes = []InsightType{
	InsightDimensionPreference,
	InsightRejectionPattern,
	InsightSuccessPattern,
	InsightActivityPattern,
	InsightWeightAdjustment,
}

// DimensionPreferencePayload 各维度平均子评分及偏好维度。
type DimensionPreferencePayload struct {
	Averages   map[Dimension]float64 `json:"averages"`
	Preferred  []Dimension           `json:"preferred"`
	SampleSize int                   `json:"sample_size"`
}

// AttributePatternPayload 目标用户属性频次，用于拒绝/成功模式。
type AttributePatternPayload struct {
	Industries map[string]int `json:"industries,omitempty"`
	Positions  map[string]int `json:"positions,omitempty"`
	Companies  map[string]int `json:"companies,omitempty"`
	SampleSize int            `json:"sample_size"`
}

// ActivityPatternPayload 行为类型分布。
type ActivityPatternPayload struct {
	Counts     map[BehaviorType]int `json:"counts"`
	Dominant   BehaviorType         `json:"dominant"`
	SampleSize int                  `json:"sample_size"`
}

// WeightAdjustmentPayload 一次权重自适应前后的向量。
type WeightAdjustmentPayload struct {
	Before        Weights `json:"before"`
	After         Weights `json:"after"`
	LearningCount int     `json:"learning_count"`
}

// InsightPayload 按洞察类型区分的封闭变体，仅允许一个分支非空。
type InsightPayload struct {
	DimensionPreference *DimensionPreferencePayload `json:"dimension_preference,omitempty"`
	RejectionPattern    *AttributePatternPayload    `json:"rejection_pattern,omitempty"`
	SuccessPattern      *AttributePatternPayload    `json:"success_pattern,omitempty"`
	ActivityPattern     *ActivityPatternPayload     `json:"activity_pattern,omitempty"`
	WeightAdjustment    *WeightAdjustmentPayload    `json:"weight_adjustment,omitempty"`
}

// Validate 校验载荷分支与类型一致。
func (p InsightPayload) Validate(t InsightType) error {
	var present []InsightType
	if p.DimensionPreference != nil {
		present = append(present, InsightDimensionPreference)
	}
	if p.RejectionPattern != nil {
		present = append(present, InsightRejectionPattern)
	}
	if p.SuccessPattern != nil {
		present = append(present, InsightSuccessPattern)
	}
	if p.ActivityPattern != nil {
		present = append(present, InsightActivityPattern)
	}
	if p.WeightAdjustment != nil {
		present = append(present, InsightWeightAdjustment)
	}
	if len(present) != 1 {
		return fmt.Errorf("insight payload must carry exactly one variant, got %d", len(present))
	}
	if present[0] != t {
		return fmt.Errorf("insight payload %s does not match type %s", present[0], t)
	}
	return nil
}

// AlgorithmInsight 带置信度和过期时间的洞察，每个用户每种类型只保留最新一条。
// 过期后不参与个性化，但不会被主动删除。
type AlgorithmInsight struct {
	ID         string                             `gorm:"primaryKey" json:"id"`
	UserID     string                             `gorm:"uniqueIndex:idx_insight_user_type" json:"user_id"`
	Type       InsightType                        `gorm:"uniqueIndex:idx_insight_user_type;index" json:"type"`
	Payload    datatypes.JSONType[InsightPayload] `json:"payload"`
	Confidence float64                            `json:"confidence"`
	Impact     float64                            `json:"impact"`
	CreatedAt  time.Time                          `json:"created_at"`
	ExpiresAt  time.Time                          `gorm:"index" json:"expires_at"`
}

// Active 未过期。
func (i AlgorithmInsight) Active(now time.Time) bool {
	return now.Before(i.ExpiresAt)
}

// BeforeSave 在持久化边界校验载荷。
func (i *AlgorithmInsight) BeforeSave(tx *gorm.DB) error {
	if i.Confidence < 0 || i.Confidence > 1 {
		return fmt.Errorf("insight confidence %.2f out of range", i.Confidence)
	}
	return i.Payload.Data().Validate(i.Type)
}
