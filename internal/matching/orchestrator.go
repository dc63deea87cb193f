package matching

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"netmatch/internal/apperr"
	"netmatch/internal/metrics"
	"netmatch/internal/model"
	"netmatch/internal/ranking"
	"netmatch/internal/scoring"
	"netmatch/internal/storage"
)

// Store 编排器依赖的持久化端口。
type Store interface {
	GetProfile(ctx context.Context, id string) (*model.Profile, error)
	GetEvent(ctx context.Context, id string) (*model.Event, error)
	ListParticipants(ctx context.Context, eventID, excludeUserID string) ([]model.Profile, error)
	GetPreferences(ctx context.Context, userID string) (*model.Preferences, error)
	GetWeights(ctx context.Context, userID string) (*model.UserWeights, error)
	UpsertMatch(ctx context.Context, rec *model.MatchRecord) (storage.MatchWrite, error)
	ListMatches(ctx context.Context, q storage.MatchQuery) ([]model.MatchRecord, error)
	EventStats(ctx context.Context, eventID string) (model.EventMatchStats, error)
	ListFeedback(ctx context.Context, q storage.FeedbackQuery) ([]model.Feedback, error)
	ListBehaviors(ctx context.Context, q storage.BehaviorQuery) ([]model.BehaviorEvent, error)
	ListInsights(ctx context.Context, q storage.InsightQuery) ([]model.AlgorithmInsight, error)
}

// ColdStart 确保冷启动档案存在。
type ColdStart interface {
	Ensure(ctx context.Context, userID string) (*model.ColdStartProfile, error)
}

// Orchestrator 为 (用户, 活动) 生成推荐列表。
type Orchestrator struct {
	store     Store
	scorer    *scoring.Scorer
	coldStart ColdStart
	logger    *zap.Logger
	now       func() time.Time
}

// NewOrchestrator coldStart 为 nil 时跳过个性化。
func NewOrchestrator(store Store, scorer *scoring.Scorer, coldStart ColdStart, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if scorer == nil {
		scorer = scoring.NewScorer(scoring.DefaultTables())
	}
	return &Orchestrator{store: store, scorer: scorer, coldStart: coldStart, logger: logger, now: time.Now}
}

// scoringContext 一次请求中源用户的只读上下文。
type scoringContext struct {
	profile *model.Profile
	prefs   *model.Preferences
	weights model.Weights
}

// Generate 依次执行 打分 → 过滤 → 排序 → 个性化 → 多样化 → 截断。
// 源用户或活动不存在时返回 NotFound；参与者为空时返回空列表。
func (o *Orchestrator) Generate(ctx context.Context, userID, eventID string, opts Options) (Result, error) {
	start := o.now()
	if opts.Strategy == "" {
		opts.Strategy = ranking.Balanced
	}
	res := Result{
		EventID:         eventID,
		UserID:          userID,
		Strategy:        string(opts.Strategy),
		Matches:         []Match{},
		ColdStart:       apperr.Skipped("not requested"),
		History:         apperr.Skipped("save_to_history disabled"),
		Personalization: apperr.Skipped("no cold-start profile"),
	}

	sc, err := o.load(ctx, userID, eventID)
	if err != nil {
		return Result{}, err
	}

	var cs *model.ColdStartProfile
	if o.coldStart != nil {
		cs, err = o.coldStart.Ensure(ctx, userID)
		if err != nil {
			o.logger.Warn("ensure cold-start profile failed", zap.String("user_id", userID), zap.Error(err))
			metrics.BestEffortFailures.WithLabelValues("ensure_cold_start").Inc()
			res.ColdStart = apperr.Degraded(err)
			cs = nil
		} else {
			res.ColdStart = apperr.Applied()
			res.Phase = cs.Phase
		}
	}

	participants, err := o.store.ListParticipants(ctx, eventID, userID)
	if err != nil {
		return Result{}, apperr.Persistence("list participants", err)
	}
	if len(participants) == 0 {
		res.History = apperr.Skipped("no participants")
		res.Personalization = apperr.Skipped("no participants")
		return res, nil
	}

	candidates := make([]Match, 0, len(participants))
	for i := range participants {
		candidates = append(candidates, o.evaluate(sc, &participants[i]))
	}

	if opts.SaveToHistory {
		res.History = o.saveHistory(ctx, userID, eventID, candidates)
	}

	filtered := candidates[:0]
	for _, m := range candidates {
		if opts.Filters.keep(m) {
			filtered = append(filtered, m)
		}
	}

	ranked := ranking.Rank(filtered, opts.Strategy)
	if !opts.IncludePartialMatches {
		kept := ranked[:0]
		for _, m := range ranked {
			if m.preferencePercent() >= partialThreshold {
				kept = append(kept, m)
			}
		}
		ranked = kept
	}

	if cs != nil {
		personalized, outcome := o.personalize(ctx, userID, cs, ranked)
		res.Personalization = outcome
		if outcome.IsDegraded() {
			o.logger.Warn("personalize matches failed",
				zap.String("user_id", userID),
				zap.String("phase", string(cs.Phase)),
				zap.String("reason", outcome.Reason))
			metrics.BestEffortFailures.WithLabelValues("personalize").Inc()
		} else {
			ranked = personalized
		}
		metrics.PersonalizationOutcomes.WithLabelValues(string(cs.Phase), string(outcome.Status)).Inc()
	}

	if opts.Diversify {
		factor := 0.5
		if cs != nil {
			factor = cs.DiversityFactor
		}
		ranked = ranking.EnforceDiversity(ranked, factor)
	}

	res.Total = len(ranked)
	if opts.Limit > 0 && len(ranked) > opts.Limit {
		ranked = ranked[:opts.Limit]
	}
	res.Matches = ranked

	metrics.MatchesGenerated.WithLabelValues(string(opts.Strategy)).Inc()
	metrics.MatchGenerationDuration.WithLabelValues(string(opts.Strategy)).Observe(o.now().Sub(start).Seconds())
	o.logger.Debug("matches generated",
		zap.String("user_id", userID),
		zap.String("event_id", eventID),
		zap.Int("candidates", len(participants)),
		zap.Int("returned", len(res.Matches)))
	return res, nil
}

// load 读取源用户资料、偏好与权重；偏好与权重读取失败时降级为默认值。
func (o *Orchestrator) load(ctx context.Context, userID, eventID string) (scoringContext, error) {
	profile, err := o.store.GetProfile(ctx, userID)
	if err != nil {
		return scoringContext{}, notFoundOrPersistence("get profile", err)
	}
	if _, err := o.store.GetEvent(ctx, eventID); err != nil {
		return scoringContext{}, notFoundOrPersistence("get event", err)
	}

	sc := scoringContext{profile: profile, weights: model.DefaultWeights()}
	prefs, err := o.store.GetPreferences(ctx, userID)
	switch {
	case err == nil:
		sc.prefs = prefs
	case !apperr.IsNotFound(err):
		o.logger.Warn("load preferences failed", zap.String("user_id", userID), zap.Error(err))
		metrics.BestEffortFailures.WithLabelValues("load_preferences").Inc()
	}

	uw, err := o.store.GetWeights(ctx, userID)
	switch {
	case err == nil:
		sc.weights = scoring.EffectiveWeights(uw)
	case !apperr.IsNotFound(err):
		o.logger.Warn("load weights failed", zap.String("user_id", userID), zap.Error(err))
		metrics.BestEffortFailures.WithLabelValues("load_weights").Inc()
	}
	return sc, nil
}

func (o *Orchestrator) evaluate(sc scoringContext, target *model.Profile) Match {
	ev := o.scorer.Evaluate(sc.profile, target, sc.prefs, sc.weights)
	return Match{
		UserID:          target.ID,
		Name:            target.Name,
		Industry:        target.Industry,
		Position:        target.Position,
		Company:         target.Company,
		Score:           ev.Score,
		Strength:        ev.Strength,
		Reasons:         ev.Reasons,
		CommonInterests: ev.CommonInterests,
		BusinessSynergy: ev.BusinessSynergy,
		Breakdown:       ev.Breakdown,
		PartialMatch:    ev.Preference,
	}
}

// saveHistory 逐条写入历史，任何失败只记录日志并标记为降级。
func (o *Orchestrator) saveHistory(ctx context.Context, userID, eventID string, matches []Match) apperr.Outcome {
	var errs []error
	for _, m := range matches {
		rec := model.MatchRecord{
			EventID:         eventID,
			UserID:          userID,
			TargetUserID:    m.UserID,
			Score:           m.Score,
			Strength:        m.Strength,
			Reasons:         m.Reasons,
			CommonInterests: m.CommonInterests,
			BusinessSynergy: m.BusinessSynergy,
		}
		if m.PartialMatch != nil {
			pct := m.PartialMatch.MatchPercentage
			rec.PreferenceMatch = &pct
		}
		if _, err := o.store.UpsertMatch(ctx, &rec); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		err := errors.Join(errs...)
		o.logger.Warn("save match history failed",
			zap.String("user_id", userID),
			zap.String("event_id", eventID),
			zap.Int("failed", len(errs)),
			zap.Error(err))
		metrics.BestEffortFailures.WithLabelValues("save_history").Inc()
		return apperr.Degraded(err)
	}
	return apperr.Applied()
}

func notFoundOrPersistence(op string, err error) error {
	if apperr.IsNotFound(err) {
		return err
	}
	return apperr.Persistence(op, err)
}
