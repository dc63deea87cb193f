package model

import (
	"math"
	"time"
)

// Dimension 匹配维度标识，同时作为反馈子评分与权重的键。
type Dimension string

const (
	DimIndustry       Dimension = "industry"
	DimPosition       Dimension = "position"
	DimBusinessGoal   Dimension = "business_goal"
	DimSkills         Dimension = "skills"
	DimExperience     Dimension = "experience"
	DimCompanySize    Dimension = "company_size"
	DimUserPreference Dimension = "user_preference"
)

// Dimensions 按固定顺序列出全部七个维度。
var Dimensions = []Dimension{
	DimIndustry,
	DimPosition,
	DimBusinessGoal,
	DimSkills,
	DimExperience,
	DimCompanySize,
	DimUserPreference,
}

// Weights 七维权重向量。
type Weights struct {
	Industry       float64 `gorm:"column:w_industry" json:"industry" yaml:"industry"`
	Position       float64 `gorm:"column:w_position" json:"position" yaml:"position"`
	BusinessGoal   float64 `gorm:"column:w_business_goal" json:"business_goal" yaml:"business_goal"`
	Skills         float64 `gorm:"column:w_skills" json:"skills" yaml:"skills"`
	Experience     float64 `gorm:"column:w_experience" json:"experience" yaml:"experience"`
	CompanySize    float64 `gorm:"column:w_company_size" json:"company_size" yaml:"company_size"`
	UserPreference float64 `gorm:"column:w_user_preference" json:"user_preference" yaml:"user_preference"`
}

// DefaultWeights 未个性化用户使用的固定向量。
func DefaultWeights() Weights {
	return Weights{
		Industry:       0.25,
		Position:       0.20,
		BusinessGoal:   0.20,
		Skills:         0.15,
		Experience:     0.10,
		CompanySize:    0.05,
		UserPreference: 0.05,
	}
}

func (w Weights) Get(d Dimension) float64 {
	switch d {
	case DimIndustry:
		return w.Industry
	case DimPosition:
		return w.Position
	case DimBusinessGoal:
		return w.BusinessGoal
	case DimSkills:
		return w.Skills
	case DimExperience:
		return w.Experience
	case DimCompanySize:
		return w.CompanySize
	case DimUserPreference:
		return w.UserPreference
	}
	return 0
}

func (w *Weights) Set(d Dimension, v float64) {
	switch d {
	case DimIndustry:
		w.Industry = v
	case DimPosition:
		w.Position = v
	case DimBusinessGoal:
		w.BusinessGoal = v
	case DimSkills:
		w.Skills = v
	case DimExperience:
		w.Experience = v
	case DimCompanySize:
		w.CompanySize = v
	case DimUserPreference:
		w.UserPreference = v
	}
}

func (w Weights) Sum() float64 {
	total := 0.0
	for _, d := range Dimensions {
		total += w.Get(d)
	}
	return total
}

// Normalize 按比例缩放使各分量之和为 1；和非正或非有限时回退默认向量。
func (w Weights) Normalize() Weights {
	sum := w.Sum()
	if sum <= 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return DefaultWeights()
	}
	out := w
	for _, d := range Dimensions {
		out.Set(d, w.Get(d)/sum)
	}
	return out
}

// UserWeights 用户个性化权重，LearningCount 单调递增。
type UserWeights struct {
	UserID        string    `gorm:"primaryKey" json:"user_id"`
	Weights       Weights   `gorm:"embedded" json:"weights"`
	LearningCount int       `json:"learning_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewUserWeights 以默认向量初始化。
func NewUserWeights(userID string) UserWeights {
	return UserWeights{UserID: userID, Weights: DefaultWeights()}
}

// Personalized 至少完成一次自适应后才视为个性化。
func (u *UserWeights) Personalized() bool {
	return u != nil && u.LearningCount >= 1
}
