package model

import (
	"time"

	"gorm.io/datatypes"
)

// Profile 参会者资料，由资料管理方维护，一次匹配内只读。
type Profile struct {
	ID            string                      `gorm:"primaryKey" json:"id"`
	Name          string                      `json:"name"`
	Industry      string                      `json:"industry"`
	Position      string                      `json:"position"`
	Company       string                      `json:"company"`
	Bio           string                      `json:"bio"`
	Skills        datatypes.JSONSlice[string] `json:"skills"`
	Interests     datatypes.JSONSlice[string] `json:"interests"`
	BusinessGoals datatypes.JSONSlice[string] `json:"business_goals"`
	CreatedAt     time.Time                   `json:"created_at"`
	UpdatedAt     time.Time                   `json:"updated_at"`
}

// Event 社交活动。
type Event struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Name      string    `json:"name"`
	StartsAt  time.Time `json:"starts_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EventParticipant 活动报名关系。
type EventParticipant struct {
	EventID  string    `gorm:"primaryKey" json:"event_id"`
	UserID   string    `gorm:"primaryKey;index" json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
}
