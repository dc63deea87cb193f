package storage

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"netmatch/internal/apperr"
	"netmatch/internal/model"
)

// GetPreferences 未设置偏好时返回 apperr.NotFound。
func (s *Store) GetPreferences(ctx context.Context, userID string) (*model.Preferences, error) {
	var p model.Preferences
	if err := s.first(ctx, &p, "preferences", userID, "user_id = ?", userID); err != nil {
		return nil, err
	}
	return &p, nil
}

// SavePreferences 整体替换用户偏好。
func (s *Store) SavePreferences(ctx context.Context, p *model.Preferences) error {
	tx := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"target_positions",
			"target_industries",
			"company_size",
			"experience_level",
			"business_goals",
			"locations",
			"updated_at",
		}),
	}).Create(p)
	if tx.Error != nil {
		return fmt.Errorf("save preferences: %w", tx.Error)
	}
	return nil
}

// DeletePreferences 删除用户偏好，不存在时返回 apperr.NotFound。
func (s *Store) DeletePreferences(ctx context.Context, userID string) error {
	tx := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.Preferences{})
	if tx.Error != nil {
		return fmt.Errorf("delete preferences: %w", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return apperr.NotFound("preferences", userID)
	}
	return nil
}

// GetWeights 未个性化的用户返回 apperr.NotFound。
func (s *Store) GetWeights(ctx context.Context, userID string) (*model.UserWeights, error) {
	var w model.UserWeights
	if err := s.first(ctx, &w, "weights", userID, "user_id = ?", userID); err != nil {
		return nil, err
	}
	return &w, nil
}

// SaveWeights 写入或覆盖权重向量。
func (s *Store) SaveWeights(ctx context.Context, w *model.UserWeights) error {
	tx := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"w_industry",
			"w_position",
			"w_business_goal",
			"w_skills",
			"w_experience",
			"w_company_size",
			"w_user_preference",
			"learning_count",
			"updated_at",
		}),
	}).Create(w)
	if tx.Error != nil {
		return fmt.Errorf("save weights: %w", tx.Error)
	}
	return nil
}

// GetColdStart 未初始化时返回 apperr.NotFound。
func (s *Store) GetColdStart(ctx context.Context, userID string) (*model.ColdStartProfile, error) {
	var p model.ColdStartProfile
	if err := s.first(ctx, &p, "cold-start profile", userID, "user_id = ?", userID); err != nil {
		return nil, err
	}
	return &p, nil
}

// SaveColdStart 写入或覆盖冷启动档案。
func (s *Store) SaveColdStart(ctx context.Context, p *model.ColdStartProfile) error {
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(p).Error; err != nil {
		return fmt.Errorf("save cold-start profile: %w", err)
	}
	return nil
}
