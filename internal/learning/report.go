package learning

import (
	"context"
	"time"

	"netmatch/internal/apperr"
	"netmatch/internal/feedback"
	"netmatch/internal/model"
	"netmatch/internal/storage"
)

// ReportStore 学习指标所需的查询能力。
type ReportStore interface {
	ListFeedback(ctx context.Context, q storage.FeedbackQuery) ([]model.Feedback, error)
	ListBehaviors(ctx context.Context, q storage.BehaviorQuery) ([]model.BehaviorEvent, error)
	GetWeights(ctx context.Context, userID string) (*model.UserWeights, error)
	GetColdStart(ctx context.Context, userID string) (*model.ColdStartProfile, error)
	ListInsights(ctx context.Context, q storage.InsightQuery) ([]model.AlgorithmInsight, error)
}

// Metrics 用户的学习进度概览。
type Metrics struct {
	UserID                string                     `json:"user_id"`
	EventID               string                     `json:"event_id,omitempty"`
	Phase                 model.Phase                `json:"phase"`
	ProfileCompleteness   float64                    `json:"profile_completeness"`
	ActivityScore         float64                    `json:"activity_score"`
	DiversityFactor       float64                    `json:"diversity_factor"`
	Personalized          bool                       `json:"personalized"`
	LearningCount         int                        `json:"learning_count"`
	Weights               model.Weights              `json:"weights"`
	Feedback              feedback.Stats             `json:"feedback"`
	BehaviorCount         int                        `json:"behavior_count"`
	BehaviorsByType       map[model.BehaviorType]int `json:"behaviors_by_type"`
	ConnectionSuccessRate *float64                   `json:"connection_success_rate,omitempty"`
	ActiveInsights        map[model.InsightType]int  `json:"active_insights"`
}

// Reporter 汇总学习指标。
type Reporter struct {
	store ReportStore
	now   func() time.Time
}

func NewReporter(store ReportStore) *Reporter {
	return &Reporter{store: store, now: time.Now}
}

// Metrics eventID 为空时统计全部活动。
func (r *Reporter) Metrics(ctx context.Context, userID, eventID string) (Metrics, error) {
	m := Metrics{
		UserID:          userID,
		EventID:         eventID,
		Phase:           model.PhaseInitial,
		Weights:         model.DefaultWeights(),
		ActiveInsights:  map[model.InsightType]int{},
		BehaviorsByType: map[model.BehaviorType]int{},
	}

	w, err := r.store.GetWeights(ctx, userID)
	switch {
	case err == nil:
		m.LearningCount = w.LearningCount
		m.Personalized = w.Personalized()
		if m.Personalized {
			m.Weights = w.Weights
		}
	case !apperr.IsNotFound(err):
		return Metrics{}, apperr.Persistence("get weights", err)
	}

	cs, err := r.store.GetColdStart(ctx, userID)
	switch {
	case err == nil:
		m.Phase = cs.Phase
		m.ProfileCompleteness = cs.ProfileCompleteness
		m.ActivityScore = cs.ActivityScore
		m.DiversityFactor = cs.DiversityFactor
	case !apperr.IsNotFound(err):
		return Metrics{}, apperr.Persistence("get cold-start profile", err)
	}

	records, err := r.store.ListFeedback(ctx, storage.FeedbackQuery{UserID: userID, EventID: eventID})
	if err != nil {
		return Metrics{}, apperr.Persistence("list feedback", err)
	}
	m.Feedback = feedback.Analyze(records)

	behaviors, err := r.store.ListBehaviors(ctx, storage.BehaviorQuery{UserID: userID, EventID: eventID})
	if err != nil {
		return Metrics{}, apperr.Persistence("list behaviors", err)
	}
	m.BehaviorCount = len(behaviors)
	for _, b := range behaviors {
		m.BehaviorsByType[b.Type]++
	}
	if rate, ok := feedback.ConnectionSuccessRate(behaviors); ok {
		m.ConnectionSuccessRate = &rate
	}

	insights, err := r.store.ListInsights(ctx, storage.InsightQuery{UserID: userID, Now: r.now().UTC()})
	if err != nil {
		return Metrics{}, apperr.Persistence("list insights", err)
	}
	for _, in := range insights {
		m.ActiveInsights[in.Type]++
	}
	return m, nil
}
