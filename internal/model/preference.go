package model

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// CompanySize 公司规模偏好。
type CompanySize string

const (
	CompanyStartup    CompanySize = "STARTUP"
	CompanySME        CompanySize = "SME"
	CompanyEnterprise CompanySize = "ENTERPRISE"
)

// ParseCompanySize 空串表示未设置。
func ParseCompanySize(s string) (CompanySize, error) {
	v := CompanySize(strings.ToUpper(strings.TrimSpace(s)))
	switch v {
	case "", CompanyStartup, CompanySME, CompanyEnterprise:
		return v, nil
	}
	return "", fmt.Errorf("unknown company size %q", s)
}

// ExperienceLevel 经验层级偏好。
type ExperienceLevel string

const (
	ExperienceJunior    ExperienceLevel = "JUNIOR"
	ExperienceMid       ExperienceLevel = "MID"
	ExperienceSenior    ExperienceLevel = "SENIOR"
	ExperienceExecutive ExperienceLevel = "EXECUTIVE"
)

// ParseExperienceLevel 空串表示未设置。
func ParseExperienceLevel(s string) (ExperienceLevel, error) {
	v := ExperienceLevel(strings.ToUpper(strings.TrimSpace(s)))
	switch v {
	case "", ExperienceJunior, ExperienceMid, ExperienceSenior, ExperienceExecutive:
		return v, nil
	}
	return "", fmt.Errorf("unknown experience level %q", s)
}

// ExperienceLevelFor 将 1-5 的推断等级映射到偏好枚举。
func ExperienceLevelFor(level int) ExperienceLevel {
	switch {
	case level <= 1:
		return ExperienceJunior
	case level == 2:
		return ExperienceMid
	case level == 3:
		return ExperienceSenior
	default:
		return ExperienceExecutive
	}
}

// Preferences 用户的匹配偏好，每个用户至多一条，更新时整体替换。
type Preferences struct {
	UserID           string                      `gorm:"primaryKey" json:"user_id"`
	TargetPositions  datatypes.JSONSlice[string] `json:"target_positions"`
	TargetIndustries datatypes.JSONSlice[string] `json:"target_industries"`
	CompanySize      CompanySize                 `json:"company_size"`
	ExperienceLevel  ExperienceLevel             `json:"experience_level"`
	BusinessGoals    datatypes.JSONSlice[string] `json:"business_goals"`
	Locations        datatypes.JSONSlice[string] `json:"locations"`
	CreatedAt        time.Time                   `json:"created_at"`
	UpdatedAt        time.Time                   `json:"updated_at"`
}

// HasCriteria 是否设置了任一可评估的偏好类别。
func (p *Preferences) HasCriteria() bool {
	if p == nil {
		return false
	}
	return len(p.TargetPositions) > 0 || len(p.TargetIndustries) > 0 ||
		len(p.BusinessGoals) > 0 || p.ExperienceLevel != ""
}
