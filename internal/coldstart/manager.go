package coldstart

import (
	"context"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"netmatch/internal/apperr"
	"netmatch/internal/model"
	"netmatch/internal/scoring"
	"netmatch/internal/storage"
)

// 阶段阈值：反馈数与行为数需同时满足。
const (
	establishedFeedback = 15
	establishedBehavior = 50
	adaptingFeedback    = 8
	adaptingBehavior    = 25
	learningFeedback    = 3
	learningBehavior    = 10
)

// Store 冷启动所需的持久化能力。
type Store interface {
	GetProfile(ctx context.Context, id string) (*model.Profile, error)
	GetColdStart(ctx context.Context, userID string) (*model.ColdStartProfile, error)
	SaveColdStart(ctx context.Context, p *model.ColdStartProfile) error
	CountBehaviors(ctx context.Context, q storage.BehaviorQuery) (int64, error)
	CountFeedback(ctx context.Context, q storage.FeedbackQuery) (int64, error)
}

// Manager 维护冷启动档案与阶段状态机。
type Manager struct {
	store  Store
	scorer *scoring.Scorer
	logger *zap.Logger
	now    func() time.Time
}

// NewManager 创建冷启动管理器。
func NewManager(store Store, scorer *scoring.Scorer, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{store: store, scorer: scorer, logger: logger, now: time.Now}
}

// PhaseFor 根据行为数和反馈数判定阶段。
func PhaseFor(behaviors, feedback int64) model.Phase {
	switch {
	case feedback >= establishedFeedback && behaviors >= establishedBehavior:
		return model.PhaseEstablished
	case feedback >= adaptingFeedback && behaviors >= adaptingBehavior:
		return model.PhaseAdapting
	case feedback >= learningFeedback && behaviors >= learningBehavior:
		return model.PhaseLearning
	default:
		return model.PhaseInitial
	}
}

// DiversityFactor 阶段基准值加上 (1-活跃度)*0.2，截断到 [0.3, 0.95]。
func DiversityFactor(phase model.Phase, activity float64) float64 {
	base := 0.9
	switch phase {
	case model.PhaseLearning:
		base = 0.8
	case model.PhaseAdapting:
		base = 0.6
	case model.PhaseEstablished:
		base = 0.4
	}
	v := base + (1-clamp01(activity))*0.2
	return math.Max(0.3, math.Min(0.95, v))
}

// ActivityScore 行为数/50 与反馈数/15 的平均，封顶 1。
func ActivityScore(behaviors, feedback int64) float64 {
	return math.Min(1, (float64(behaviors)/establishedBehavior+float64(feedback)/establishedFeedback)/2)
}

// Completeness 七项资料字段中已填写的比例。
func Completeness(p *model.Profile) float64 {
	if p == nil {
		return 0
	}
	filled := 0
	for _, s := range []string{p.Industry, p.Position, p.Company, p.Bio} {
		if strings.TrimSpace(s) != "" {
			filled++
		}
	}
	for _, l := range [][]string{p.Skills, p.Interests, p.BusinessGoals} {
		if len(l) > 0 {
			filled++
		}
	}
	return float64(filled) / 7
}

// Ensure 返回已有档案，不存在时初始化。
func (m *Manager) Ensure(ctx context.Context, userID string) (*model.ColdStartProfile, error) {
	p, err := m.store.GetColdStart(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !apperr.IsNotFound(err) {
		return nil, err
	}
	return m.Initialize(ctx, userID)
}

// Initialize 根据资料与历史计数创建或重建档案，已有档案的阶段不会回退。
func (m *Manager) Initialize(ctx context.Context, userID string) (*model.ColdStartProfile, error) {
	profile, err := m.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	existing, err := m.store.GetColdStart(ctx, userID)
	if err != nil && !apperr.IsNotFound(err) {
		return nil, err
	}

	cs := &model.ColdStartProfile{UserID: userID, CreatedAt: m.now().UTC()}
	if existing != nil {
		cs = existing
	}
	cs.InitialPreferences = datatypes.NewJSONType(m.infer(profile))
	cs.ProfileCompleteness = Completeness(profile)
	if err := m.recount(ctx, cs); err != nil {
		return nil, err
	}
	if err := m.store.SaveColdStart(ctx, cs); err != nil {
		return nil, apperr.Persistence("save cold-start profile", err)
	}
	m.logger.Info("cold-start profile initialized",
		zap.String("user_id", userID),
		zap.String("phase", string(cs.Phase)),
		zap.Float64("completeness", cs.ProfileCompleteness))
	return cs, nil
}

// Refresh 重新计数并推进阶段；档案不存在时执行初始化。
func (m *Manager) Refresh(ctx context.Context, userID string) (*model.ColdStartProfile, error) {
	cs, err := m.store.GetColdStart(ctx, userID)
	if apperr.IsNotFound(err) {
		return m.Initialize(ctx, userID)
	}
	if err != nil {
		return nil, err
	}
	before := cs.Phase
	if err := m.recount(ctx, cs); err != nil {
		return nil, err
	}
	if err := m.store.SaveColdStart(ctx, cs); err != nil {
		return nil, apperr.Persistence("save cold-start profile", err)
	}
	if before != cs.Phase {
		m.logger.Info("cold-start phase advanced",
			zap.String("user_id", userID),
			zap.String("from", string(before)),
			zap.String("to", string(cs.Phase)))
	}
	return cs, nil
}

func (m *Manager) recount(ctx context.Context, cs *model.ColdStartProfile) error {
	behaviors, err := m.store.CountBehaviors(ctx, storage.BehaviorQuery{UserID: cs.UserID})
	if err != nil {
		return apperr.Persistence("count behaviors", err)
	}
	feedback, err := m.store.CountFeedback(ctx, storage.FeedbackQuery{UserID: cs.UserID})
	if err != nil {
		return apperr.Persistence("count feedback", err)
	}
	cs.BehaviorCount = behaviors
	cs.FeedbackCount = feedback
	cs.ActivityScore = ActivityScore(behaviors, feedback)
	cs.Phase = model.LaterPhase(cs.Phase, PhaseFor(behaviors, feedback))
	cs.DiversityFactor = DiversityFactor(cs.Phase, cs.ActivityScore)
	cs.UpdatedAt = m.now().UTC()
	return nil
}

func (m *Manager) infer(p *model.Profile) model.InferredPreferences {
	var out model.InferredPreferences
	if v := strings.TrimSpace(p.Industry); v != "" {
		out.Industries = []string{v}
	}
	if m.scorer != nil {
		out.Positions = m.scorer.RelatedPositions(p.Position)
	}
	out.BusinessGoals = append(out.BusinessGoals, p.BusinessGoals...)
	out.Keywords = bioKeywords(p.Bio)
	return out
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
