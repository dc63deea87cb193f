package model

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// BehaviorType 用户交互行为类型。
type BehaviorType string

const (
	BehaviorViewProfile       BehaviorType = "VIEW_PROFILE"
	BehaviorSendConnection    BehaviorType = "SEND_CONNECTION"
	BehaviorAcceptConnection  BehaviorType = "ACCEPT_CONNECTION"
	BehaviorRejectConnection  BehaviorType = "REJECT_CONNECTION"
	BehaviorStartConversation BehaviorType = "START_CONVERSATION"
	BehaviorScheduleMeeting   BehaviorType = "SCHEDULE_MEETING"
	BehaviorAttendMeeting     BehaviorType = "ATTEND_MEETING"
	BehaviorSearch            BehaviorType = "SEARCH"
	BehaviorFilter            BehaviorType = "FILTER"
	BehaviorSort              BehaviorType = "SORT"
	BehaviorViewMatchDetails  BehaviorType = "VIEW_MATCH_DETAILS"
)

// BehaviorTypes 全部行为类型。
var BehaviorTypes = []BehaviorType{
	BehaviorViewProfile,
	BehaviorSendConnection,
	BehaviorAcceptConnection,
	BehaviorRejectConnection,
	BehaviorStartConversation,
	BehaviorScheduleMeeting,
	BehaviorAttendMeeting,
	BehaviorSearch,
	BehaviorFilter,
	BehaviorSort,
	BehaviorViewMatchDetails,
}

// ParseBehaviorType 大小写不敏感。
func ParseBehaviorType(s string) (BehaviorType, error) {
	v := BehaviorType(strings.ToUpper(strings.TrimSpace(s)))
	for _, t := range BehaviorTypes {
		if t == v {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown behavior type %q", s)
}

// ContextKind 行为上下文的形状。
type ContextKind string

const (
	ContextNone       ContextKind = "none"
	ContextView       ContextKind = "view"
	ContextConnection ContextKind = "connection"
	ContextMeeting    ContextKind = "meeting"
	ContextSearch     ContextKind = "search"
)

// ContextKind 返回该行为类型允许携带的上下文形状。
func (t BehaviorType) ContextKind() ContextKind {
	switch t {
	case BehaviorViewProfile, BehaviorViewMatchDetails:
		return ContextView
	case BehaviorSendConnection, BehaviorAcceptConnection, BehaviorRejectConnection, BehaviorStartConversation:
		return ContextConnection
	case BehaviorScheduleMeeting, BehaviorAttendMeeting:
		return ContextMeeting
	case BehaviorSearch, BehaviorFilter, BehaviorSort:
		return ContextSearch
	}
	return ContextNone
}

type ViewContext struct {
	Source       string `json:"source,omitempty"`
	DwellSeconds int    `json:"dwell_seconds,omitempty"`
}

type ConnectionContext struct {
	MatchScore int    `json:"match_score,omitempty"`
	Message    string `json:"message,omitempty"`
}

type MeetingContext struct {
	DurationMinutes int    `json:"duration_minutes,omitempty"`
	Location        string `json:"location,omitempty"`
}

type SearchContext struct {
	Query   string            `json:"query,omitempty"`
	Filters map[string]string `json:"filters,omitempty"`
	SortBy  string            `json:"sort_by,omitempty"`
}

// BehaviorContext 行为上下文，按 Kind 只允许填充对应的一个分支。
type BehaviorContext struct {
	Kind       ContextKind        `json:"kind"`
	View       *ViewContext       `json:"view,omitempty"`
	Connection *ConnectionContext `json:"connection,omitempty"`
	Meeting    *MeetingContext    `json:"meeting,omitempty"`
	Search     *SearchContext     `json:"search,omitempty"`
}

// Validate 校验上下文与行为类型一致。空上下文对任意类型均合法。
func (c BehaviorContext) Validate(t BehaviorType) error {
	set := 0
	kind := ContextNone
	if c.View != nil {
		set++
		kind = ContextView
	}
	if c.Connection != nil {
		set++
		kind = ContextConnection
	}
	if c.Meeting != nil {
		set++
		kind = ContextMeeting
	}
	if c.Search != nil {
		set++
		kind = ContextSearch
	}
	if set > 1 {
		return fmt.Errorf("behavior context carries %d variants, want at most 1", set)
	}
	if c.Kind != "" && c.Kind != kind {
		return fmt.Errorf("behavior context kind %q does not match payload %q", c.Kind, kind)
	}
	if kind != ContextNone && kind != t.ContextKind() {
		return fmt.Errorf("behavior %s does not accept %s context", t, kind)
	}
	if c.Meeting != nil && c.Meeting.DurationMinutes < 0 {
		return fmt.Errorf("meeting duration must not be negative")
	}
	return nil
}

// Normalized 补全 Kind。
func (c BehaviorContext) Normalized() BehaviorContext {
	switch {
	case c.View != nil:
		c.Kind = ContextView
	case c.Connection != nil:
		c.Kind = ContextConnection
	case c.Meeting != nil:
		c.Kind = ContextMeeting
	case c.Search != nil:
		c.Kind = ContextSearch
	default:
		c.Kind = ContextNone
	}
	return c
}

// BehaviorEvent 追加写入的行为日志。
type BehaviorEvent struct {
	ID           string                              `gorm:"primaryKey" json:"id"`
	UserID       string                              `gorm:"index" json:"user_id"`
	TargetUserID string                              `gorm:"index" json:"target_user_id,omitempty"`
	EventID      string                              `gorm:"index" json:"event_id,omitempty"`
	Type         BehaviorType                        `gorm:"index" json:"type"`
	Context      datatypes.JSONType[BehaviorContext] `json:"context"`
	SessionID    string                              `json:"session_id,omitempty"`
	CreatedAt    time.Time                           `gorm:"index" json:"created_at"`
}

// BeforeSave 在持久化边界校验上下文形状。
func (b *BehaviorEvent) BeforeSave(tx *gorm.DB) error {
	if _, err := ParseBehaviorType(string(b.Type)); err != nil {
		return err
	}
	return b.Context.Data().Validate(b.Type)
}
