package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"netmatch/internal/model"
)

// InsightQuery 洞察筛选条件。默认排除 Now 时刻已过期的洞察。
type InsightQuery struct {
	UserID         string
	Types          []model.InsightType
	MinConfidence  float64
	Now            time.Time
	IncludeExpired bool
	Limit          int
}

// SaveInsight 以 (user, type) 为键写入洞察，新结果覆盖旧结果。
func (s *Store) SaveInsight(ctx context.Context, in *model.AlgorithmInsight) error {
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now().UTC()
	}
	tx := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "type"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "confidence", "impact", "created_at", "expires_at"}),
	}).Create(in)
	if tx.Error != nil {
		return fmt.Errorf("save insight: %w", tx.Error)
	}
	// an overwritten row keeps its original id
	var id string
	err := s.db.WithContext(ctx).Model(&model.AlgorithmInsight{}).
		Where("user_id = ? AND type = ?", in.UserID, in.Type).
		Select("id").Row().Scan(&id)
	if err != nil {
		return fmt.Errorf("reload insight id: %w", err)
	}
	in.ID = id
	return nil
}

// ListInsights 按置信度倒序返回洞察。
func (s *Store) ListInsights(ctx context.Context, q InsightQuery) ([]model.AlgorithmInsight, error) {
	db := s.db.WithContext(ctx).Model(&model.AlgorithmInsight{})
	if q.UserID != "" {
		db = db.Where("user_id = ?", q.UserID)
	}
	if len(q.Types) > 0 {
		db = db.Where("type IN ?", q.Types)
	}
	if q.MinConfidence > 0 {
		db = db.Where("confidence > ?", q.MinConfidence)
	}
	if !q.IncludeExpired {
		now := q.Now
		if now.IsZero() {
			now = time.Now().UTC()
		}
		db = db.Where("expires_at > ?", now)
	}
	var rows []model.AlgorithmInsight
	if err := page(db.Order("confidence DESC, created_at DESC"), q.Limit, 0).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list insights: %w", err)
	}
	return rows, nil
}
