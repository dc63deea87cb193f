package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"netmatch/internal/model"
)

// MatchDriftThreshold 重算分数与历史分数差超过该值才更新。
const MatchDriftThreshold = 5

// MatchWrite 历史写入的结果。
type MatchWrite string

const (
	MatchCreated   MatchWrite = "created"
	MatchUpdated   MatchWrite = "updated"
	MatchUnchanged MatchWrite = "unchanged"
)

// MatchQuery 匹配历史筛选条件，按更新时间倒序。
type MatchQuery struct {
	UserID   string
	EventID  string
	MinScore int
	Limit    int
	Offset   int
}

// UpsertMatch 以 (event, user, target) 为键写入匹配结果；
// 已存在且分数漂移不超过阈值时保持原记录不变。
func (s *Store) UpsertMatch(ctx context.Context, rec *model.MatchRecord) (MatchWrite, error) {
	var existing model.MatchRecord
	err := s.db.WithContext(ctx).
		Where("event_id = ? AND user_id = ? AND target_user_id = ?", rec.EventID, rec.UserID, rec.TargetUserID).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
			return "", fmt.Errorf("create match: %w", err)
		}
		return MatchCreated, nil
	}
	if err != nil {
		return "", fmt.Errorf("find match: %w", err)
	}

	drift := rec.Score - existing.Score
	if drift < 0 {
		drift = -drift
	}
	if drift <= MatchDriftThreshold {
		return MatchUnchanged, nil
	}

	rec.ID = existing.ID
	rec.CreatedAt = existing.CreatedAt
	tx := s.db.WithContext(ctx).Model(&model.MatchRecord{ID: existing.ID}).
		Select("score", "strength", "reasons", "common_interests", "business_synergy", "preference_match").
		Updates(rec)
	if tx.Error != nil {
		return "", fmt.Errorf("update match: %w", tx.Error)
	}
	return MatchUpdated, nil
}

// GetMatch 查询两名用户在某活动中的匹配记录。
func (s *Store) GetMatch(ctx context.Context, eventID, userID, targetUserID string) (*model.MatchRecord, error) {
	var rec model.MatchRecord
	id := eventID + "/" + userID + "/" + targetUserID
	if err := s.first(ctx, &rec, "match", id,
		"event_id = ? AND user_id = ? AND target_user_id = ?", eventID, userID, targetUserID); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListMatches 返回匹配历史。
func (s *Store) ListMatches(ctx context.Context, q MatchQuery) ([]model.MatchRecord, error) {
	db := s.db.WithContext(ctx).Model(&model.MatchRecord{})
	if q.UserID != "" {
		db = db.Where("user_id = ?", q.UserID)
	}
	if q.EventID != "" {
		db = db.Where("event_id = ?", q.EventID)
	}
	if q.MinScore > 0 {
		db = db.Where("score >= ?", q.MinScore)
	}
	var rows []model.MatchRecord
	if err := page(db.Order("updated_at DESC, id DESC"), q.Limit, q.Offset).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	return rows, nil
}

// EventStats 汇总活动内全部匹配记录。
func (s *Store) EventStats(ctx context.Context, eventID string) (model.EventMatchStats, error) {
	stats := model.EventMatchStats{EventID: eventID, Distribution: map[string]int{}}
	for _, band := range model.ScoreBands {
		stats.Distribution[band] = 0
	}

	var scores []int
	if err := s.db.WithContext(ctx).Model(&model.MatchRecord{}).
		Where("event_id = ?", eventID).
		Pluck("score", &scores).Error; err != nil {
		return stats, fmt.Errorf("event stats: %w", err)
	}
	if len(scores) == 0 {
		return stats, nil
	}

	total := 0
	for _, sc := range scores {
		total += sc
		if sc >= 80 {
			stats.HighQualityCount++
		}
		stats.Distribution[model.ScoreBand(sc)]++
	}
	stats.TotalMatches = int64(len(scores))
	stats.AverageScore = float64(total) / float64(len(scores))
	return stats, nil
}
