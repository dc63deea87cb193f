package storage

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm/clause"

	"netmatch/internal/model"
)

// SaveProfile 写入或整体更新资料。
func (s *Store) SaveProfile(ctx context.Context, p *model.Profile) error {
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(p).Error; err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// GetProfile 根据 ID 获取资料。
func (s *Store) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	var p model.Profile
	if err := s.first(ctx, &p, "profile", id, "id = ?", id); err != nil {
		return nil, err
	}
	return &p, nil
}

// SaveEvent 写入或更新活动。
func (s *Store) SaveEvent(ctx context.Context, e *model.Event) error {
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(e).Error; err != nil {
		return fmt.Errorf("save event: %w", err)
	}
	return nil
}

// GetEvent 根据 ID 获取活动。
func (s *Store) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	var e model.Event
	if err := s.first(ctx, &e, "event", id, "id = ?", id); err != nil {
		return nil, err
	}
	return &e, nil
}

// AddParticipant 报名活动，重复报名忽略。
func (s *Store) AddParticipant(ctx context.Context, eventID, userID string) error {
	row := model.EventParticipant{EventID: eventID, UserID: userID, JoinedAt: time.Now().UTC()}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("add participant: %w", err)
	}
	return nil
}

// ListParticipants 返回活动中除 excludeUserID 以外的参会者资料，按报名时间排序。
func (s *Store) ListParticipants(ctx context.Context, eventID, excludeUserID string) ([]model.Profile, error) {
	var profiles []model.Profile
	err := s.db.WithContext(ctx).
		Model(&model.Profile{}).
		Joins("JOIN event_participants ON event_participants.user_id = profiles.id").
		Where("event_participants.event_id = ? AND profiles.id <> ?", eventID, excludeUserID).
		Order("event_participants.joined_at ASC").
		Find(&profiles).Error
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	return profiles, nil
}

// IsParticipant 用户是否报名了活动。
func (s *Store) IsParticipant(ctx context.Context, eventID, userID string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.EventParticipant{}).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("check participant: %w", err)
	}
	return n > 0, nil
}
