package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"netmatch/internal/model"
)

// BehaviorQuery 行为日志筛选条件，结果按时间倒序。
type BehaviorQuery struct {
	UserID       string
	TargetUserID string
	EventID      string
	Types        []model.BehaviorType
	Since        time.Time
	Until        time.Time
	Limit        int
	Offset       int
}

// FeedbackQuery 反馈筛选条件，结果按时间倒序。Implicit 为 nil 时不过滤。
type FeedbackQuery struct {
	UserID       string
	TargetUserID string
	EventID      string
	Types        []model.FeedbackType
	Implicit     *bool
	Since        time.Time
	Until        time.Time
	Limit        int
	Offset       int
}

// AppendBehavior 追加一条行为记录，缺省 ID 与时间自动补全。
func (s *Store) AppendBehavior(ctx context.Context, b *model.BehaviorEvent) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(b).Error; err != nil {
		return fmt.Errorf("append behavior: %w", err)
	}
	return nil
}

// ListBehaviors 按条件查询行为日志。
func (s *Store) ListBehaviors(ctx context.Context, q BehaviorQuery) ([]model.BehaviorEvent, error) {
	var rows []model.BehaviorEvent
	db := applyBehaviorFilters(s.db.WithContext(ctx).Model(&model.BehaviorEvent{}), q).Order("created_at DESC")
	if err := page(db, q.Limit, q.Offset).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list behaviors: %w", err)
	}
	return rows, nil
}

// CountBehaviors 返回满足条件的行为数量，忽略分页参数。
func (s *Store) CountBehaviors(ctx context.Context, q BehaviorQuery) (int64, error) {
	var n int64
	if err := applyBehaviorFilters(s.db.WithContext(ctx).Model(&model.BehaviorEvent{}), q).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count behaviors: %w", err)
	}
	return n, nil
}

// ActiveUsers 返回 since 之后有行为记录的用户。
func (s *Store) ActiveUsers(ctx context.Context, since time.Time, limit int) ([]string, error) {
	var ids []string
	db := s.db.WithContext(ctx).Model(&model.BehaviorEvent{}).
		Where("created_at >= ?", since).
		Distinct("user_id").
		Order("user_id ASC")
	if err := page(db, limit, 0).Pluck("user_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list active users: %w", err)
	}
	return ids, nil
}

// AppendFeedback 追加一条反馈。
func (s *Store) AppendFeedback(ctx context.Context, f *model.Feedback) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(f).Error; err != nil {
		return fmt.Errorf("append feedback: %w", err)
	}
	return nil
}

// ListFeedback 按条件查询反馈。
func (s *Store) ListFeedback(ctx context.Context, q FeedbackQuery) ([]model.Feedback, error) {
	var rows []model.Feedback
	db := applyFeedbackFilters(s.db.WithContext(ctx).Model(&model.Feedback{}), q).Order("created_at DESC")
	if err := page(db, q.Limit, q.Offset).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	return rows, nil
}

// CountFeedback 返回满足条件的反馈数量，忽略分页参数。
func (s *Store) CountFeedback(ctx context.Context, q FeedbackQuery) (int64, error) {
	var n int64
	if err := applyFeedbackFilters(s.db.WithContext(ctx).Model(&model.Feedback{}), q).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count feedback: %w", err)
	}
	return n, nil
}

func applyBehaviorFilters(db *gorm.DB, q BehaviorQuery) *gorm.DB {
	if q.UserID != "" {
		db = db.Where("user_id = ?", q.UserID)
	}
	if q.TargetUserID != "" {
		db = db.Where("target_user_id = ?", q.TargetUserID)
	}
	if q.EventID != "" {
		db = db.Where("event_id = ?", q.EventID)
	}
	if len(q.Types) > 0 {
		db = db.Where("type IN ?", q.Types)
	}
	return applyRange(db, q.Since, q.Until)
}

func applyFeedbackFilters(db *gorm.DB, q FeedbackQuery) *gorm.DB {
	if q.UserID != "" {
		db = db.Where("user_id = ?", q.UserID)
	}
	if q.TargetUserID != "" {
		db = db.Where("target_user_id = ?", q.TargetUserID)
	}
	if q.EventID != "" {
		db = db.Where("event_id = ?", q.EventID)
	}
	if len(q.Types) > 0 {
		db = db.Where("type IN ?", q.Types)
	}
	if q.Implicit != nil {
		db = db.Where("is_implicit = ?", *q.Implicit)
	}
	return applyRange(db, q.Since, q.Until)
}

func applyRange(db *gorm.DB, since, until time.Time) *gorm.DB {
	if !since.IsZero() {
		db = db.Where("created_at >= ?", since)
	}
	if !until.IsZero() {
		db = db.Where("created_at < ?", until)
	}
	return db
}
