package feedback

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"netmatch/internal/apperr"
	"netmatch/internal/metrics"
	"netmatch/internal/model"
	"netmatch/internal/storage"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// DefaultAdaptEvery 每累计多少条显式反馈触发一次权重自适应与洞察生成。
const DefaultAdaptEvery = 5

// Store 反馈服务所需的持久化能力。
type Store interface {
	AppendFeedback(ctx context.Context, f *model.Feedback) error
	CountFeedback(ctx context.Context, q storage.FeedbackQuery) (int64, error)
	ListFeedback(ctx context.Context, q storage.FeedbackQuery) ([]model.Feedback, error)
}

// WeightAdapter 依据近期反馈更新用户权重。
type WeightAdapter interface {
	Adapt(ctx context.Context, userID string) (*model.UserWeights, error)
}

// InsightGenerator 挖掘用户洞察。
type InsightGenerator interface {
	Generate(ctx context.Context, userID string) ([]model.AlgorithmInsight, error)
}

// ColdStartRefresher 推进冷启动阶段。
type ColdStartRefresher interface {
	Refresh(ctx context.Context, userID string) (*model.ColdStartProfile, error)
}

// Config 学习触发参数。
type Config struct {
	AdaptEvery int `yaml:"adapt_every" json:"adapt_every"`
}

// SubmitRequest 显式反馈请求。
type SubmitRequest struct {
	TargetUserID     string         `json:"target_user_id" validate:"required,max=64"`
	EventID          string         `json:"event_id" validate:"omitempty,max=64"`
	MatchID          *uint          `json:"match_id"`
	Type             string         `json:"type" validate:"required"`
	Rating           *int           `json:"rating" validate:"omitempty,min=1,max=5"`
	DimensionRatings map[string]int `json:"dimension_ratings" validate:"omitempty,dive,keys,required,endkeys,min=1,max=5"`
	Comment          string         `json:"comment" validate:"max=2000"`
}

// SubmitResult 写入的反馈以及各后续步骤的结果。
type SubmitResult struct {
	Feedback  model.Feedback `json:"feedback"`
	Triggered bool           `json:"learning_triggered"`
	Weights   apperr.Outcome `json:"weights"`
	Insights  apperr.Outcome `json:"insights"`
	ColdStart apperr.Outcome `json:"cold_start"`
}

// Service 接收显式反馈并在达到阈值时触发学习。
type Service struct {
	store      Store
	adapter    WeightAdapter
	insights   InsightGenerator
	coldStart  ColdStartRefresher
	adaptEvery int
	logger     *zap.Logger
	now        func() time.Time
}

// NewService 任一学习组件为 nil 时对应步骤记为 skipped。
func NewService(store Store, adapter WeightAdapter, insights InsightGenerator, coldStart ColdStartRefresher, cfg Config, logger *zap.Logger) *Service {
	if cfg.AdaptEvery <= 0 {
		cfg.AdaptEvery = DefaultAdaptEvery
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:      store,
		adapter:    adapter,
		insights:   insights,
		coldStart:  coldStart,
		adaptEvery: cfg.AdaptEvery,
		logger:     logger,
		now:        time.Now,
	}
}

// Submit 校验并写入显式反馈；写入失败返回错误，后续学习步骤失败只降级。
func (s *Service) Submit(ctx context.Context, userID string, req SubmitRequest) (SubmitResult, error) {
	if userID == "" {
		return SubmitResult{}, apperr.Validation("user id is required")
	}
	if err := validate.Struct(req); err != nil {
		return SubmitResult{}, validationError(err)
	}
	ft, err := model.ParseFeedbackType(req.Type)
	if err != nil {
		return SubmitResult{}, apperr.Validation(err.Error())
	}
	if req.TargetUserID == userID {
		return SubmitResult{}, apperr.Validation("cannot submit feedback about yourself")
	}

	ratings := model.DimensionRatings{}
	for k, v := range req.DimensionRatings {
		ratings[strings.ToLower(strings.TrimSpace(k))] = v
	}
	f := model.Feedback{
		UserID:           userID,
		TargetUserID:     req.TargetUserID,
		EventID:          req.EventID,
		MatchID:          req.MatchID,
		Type:             ft,
		Rating:           req.Rating,
		DimensionRatings: datatypes.NewJSONType(ratings),
		Comment:          strings.TrimSpace(req.Comment),
		Confidence:       1.0,
		CreatedAt:        s.now().UTC(),
	}
	if err := s.store.AppendFeedback(ctx, &f); err != nil {
		return SubmitResult{}, apperr.Persistence("save feedback", err)
	}

	res := SubmitResult{
		Feedback: f,
		Weights:  apperr.Skipped("threshold not reached"),
		Insights: apperr.Skipped("threshold not reached"),
	}

	explicit := false
	count, err := s.store.CountFeedback(ctx, storage.FeedbackQuery{UserID: userID, Implicit: &explicit})
	if err != nil {
		s.logger.Warn("count feedback failed", zap.String("user_id", userID), zap.Error(err))
		metrics.BestEffortFailures.WithLabelValues("count_feedback").Inc()
		res.Weights = apperr.Degraded(err)
		res.Insights = apperr.Degraded(err)
	} else if count > 0 && count%int64(s.adaptEvery) == 0 {
		res.Triggered = true
		res.Weights = s.adapt(ctx, userID)
		res.Insights = s.generateInsights(ctx, userID)
	}
	res.ColdStart = s.refreshColdStart(ctx, userID)
	return res, nil
}

// UpdateWeights 立即执行一次权重自适应。
func (s *Service) UpdateWeights(ctx context.Context, userID string) (*model.UserWeights, error) {
	if s.adapter == nil {
		return nil, errors.New("weight adapter not configured")
	}
	return s.adapter.Adapt(ctx, userID)
}

func (s *Service) adapt(ctx context.Context, userID string) apperr.Outcome {
	if s.adapter == nil {
		return apperr.Skipped("weight adapter not configured")
	}
	if _, err := s.adapter.Adapt(ctx, userID); err != nil {
		s.logger.Warn("weight adaptation failed", zap.String("user_id", userID), zap.Error(err))
		metrics.BestEffortFailures.WithLabelValues("adapt_weights").Inc()
		return apperr.Degraded(err)
	}
	return apperr.Applied()
}

func (s *Service) generateInsights(ctx context.Context, userID string) apperr.Outcome {
	if s.insights == nil {
		return apperr.Skipped("insight generator not configured")
	}
	if _, err := s.insights.Generate(ctx, userID); err != nil {
		s.logger.Warn("insight generation failed", zap.String("user_id", userID), zap.Error(err))
		metrics.BestEffortFailures.WithLabelValues("generate_insights").Inc()
		return apperr.Degraded(err)
	}
	return apperr.Applied()
}

func (s *Service) refreshColdStart(ctx context.Context, userID string) apperr.Outcome {
	if s.coldStart == nil {
		return apperr.Skipped("cold-start manager not configured")
	}
	if _, err := s.coldStart.Refresh(ctx, userID); err != nil {
		s.logger.Warn("cold-start refresh failed", zap.String("user_id", userID), zap.Error(err))
		metrics.BestEffortFailures.WithLabelValues("refresh_cold_start").Inc()
		return apperr.Degraded(err)
	}
	return apperr.Applied()
}

// validationError 将 validator 的字段错误整理为一条可读信息。
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation(err.Error())
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return apperr.Validation(strings.Join(parts, "; "))
}
