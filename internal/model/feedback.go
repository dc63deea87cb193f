package model

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// FeedbackType 反馈类型。
type FeedbackType string

const (
	FeedbackMatchRating        FeedbackType = "MATCH_RATING"
	FeedbackConnectionInterest FeedbackType = "CONNECTION_INTEREST"
	FeedbackConnectionAccepted FeedbackType = "CONNECTION_ACCEPTED"
	FeedbackConnectionRejected FeedbackType = "CONNECTION_REJECTED"
	FeedbackMeetingCompleted   FeedbackType = "MEETING_COMPLETED"
	FeedbackNotInterested      FeedbackType = "NOT_INTERESTED"
)

// FeedbackTypes 全部反馈类型。
var FeedbackTypes = []FeedbackType{
	FeedbackMatchRating,
	FeedbackConnectionInterest,
	FeedbackConnectionAccepted,
	FeedbackConnectionRejected,
	FeedbackMeetingCompleted,
	FeedbackNotInterested,
}

// ParseFeedbackType 大小写不敏感。
func ParseFeedbackType(s string) (FeedbackType, error) {
	v := FeedbackType(strings.ToUpper(strings.TrimSpace(s)))
	for _, t := range FeedbackTypes {
		if t == v {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown feedback type %q", s)
}

// DimensionRatings 维度子评分（1-5），键为维度或其别名。
type DimensionRatings map[string]int

// Feedback 显式或隐式反馈，追加写入。
type Feedback struct {
	ID               string                               `gorm:"primaryKey" json:"id"`
	UserID           string                               `gorm:"index" json:"user_id"`
	TargetUserID     string                               `gorm:"index" json:"target_user_id"`
	EventID          string                               `gorm:"index" json:"event_id,omitempty"`
	MatchID          *uint                                `json:"match_id,omitempty"`
	Type             FeedbackType                         `gorm:"index" json:"type"`
	Rating           *int                                 `json:"rating,omitempty"`
	DimensionRatings datatypes.JSONType[DimensionRatings] `json:"dimension_ratings"`
	Comment          string                               `json:"comment,omitempty"`
	IsImplicit       bool                                 `gorm:"index" json:"is_implicit"`
	Confidence       float64                              `json:"confidence"`
	CreatedAt        time.Time                            `gorm:"index" json:"created_at"`
}

// RatingValue 未评分返回 0。
func (f Feedback) RatingValue() int {
	if f.Rating == nil {
		return 0
	}
	return *f.Rating
}

// IntPtr 便于构造可选评分。
func IntPtr(v int) *int { return &v }
