package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"netmatch/internal/metrics"
	"netmatch/internal/model"
)

// Config 用于调度配置。
type Config struct {
	Interval     string `yaml:"interval" json:"interval"`
	Timeout      string `yaml:"timeout" json:"timeout"`
	Concurrency  int    `yaml:"concurrency" json:"concurrency"`
	ActiveWindow string `yaml:"active_window" json:"active_window"`
	MaxUsers     int    `yaml:"max_users" json:"max_users"`
}

// Store 列出近期有反馈或行为的用户。
type Store interface {
	ActiveUsers(ctx context.Context, since time.Time, limit int) ([]string, error)
}

// InsightGenerator 重新挖掘用户洞察。
type InsightGenerator interface {
	Generate(ctx context.Context, userID string) ([]model.AlgorithmInsight, error)
}

// ColdStartRefresher 推进冷启动阶段。
type ColdStartRefresher interface {
	Refresh(ctx context.Context, userID string) (*model.ColdStartProfile, error)
}

// Report 单次刷新的汇总。
type Report struct {
	Users     int `json:"users"`
	Insights  int `json:"insights"`
	Refreshed int `json:"refreshed"`
	Failed    int `json:"failed"`
	// Skipped 上一轮尚未结束时为 true。
	Skipped bool `json:"skipped"`
}

// Scheduler 周期性为活跃用户刷新洞察与冷启动档案。
type Scheduler struct {
	store        Store
	insights     InsightGenerator
	coldStart    ColdStartRefresher
	logger       *zap.Logger
	interval     time.Duration
	cron         *cronSchedule
	timeout      time.Duration
	concurrency  int
	activeWindow time.Duration
	maxUsers     int
	running      atomic.Bool
	newTicker    func(time.Duration) ticker
	now          func() time.Time
}

type ticker interface {
	C() <-chan time.Time
	Stop()
}

// NewScheduler 创建 Scheduler，解析配置的间隔与超时。
func NewScheduler(store Store, insights InsightGenerator, coldStart ColdStartRefresher, cfg Config, logger *zap.Logger) *Scheduler {
	interval, cron := parseSchedule(cfg.Interval, time.Hour)
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{
		store:        store,
		insights:     insights,
		coldStart:    coldStart,
		logger:       logger,
		interval:     interval,
		cron:         cron,
		timeout:      parseDuration(cfg.Timeout, 5*time.Minute),
		concurrency:  cfg.Concurrency,
		activeWindow: parseDuration(cfg.ActiveWindow, 24*time.Hour),
		maxUsers:     cfg.MaxUsers,
		newTicker:    defaultTicker,
		now:          time.Now,
	}
	if s.concurrency <= 0 {
		s.concurrency = 4
	}
	if s.maxUsers <= 0 {
		s.maxUsers = 1000
	}
	return s
}

func parseDuration(v string, fallback time.Duration) time.Duration {
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	return fallback
}

// Start 启动调度循环，直到上下文取消。单轮失败只记录日志。
func (s *Scheduler) Start(ctx context.Context) error {
	if s.store == nil || (s.insights == nil && s.coldStart == nil) {
		return fmt.Errorf("scheduler missing dependencies")
	}
	if s.cron != nil {
		return s.startCron(ctx)
	}

	tick := s.newTicker(s.interval)
	defer tick.Stop()
	ch := tick.C()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
			s.runAndLog(ctx)
		drain:
			for {
				select {
				case <-ch:
				default:
					break drain
				}
			}
		}
	}
}

func (s *Scheduler) startCron(ctx context.Context) error {
	for {
		next, err := s.cron.next(s.now())
		if err != nil {
			return fmt.Errorf("compute next cron time: %w", err)
		}
		timer := time.NewTimer(max(0, next.Sub(s.now())))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			s.runAndLog(ctx)
		}
	}
}

func (s *Scheduler) runAndLog(ctx context.Context) {
	report, err := s.RunOnce(ctx)
	if err != nil {
		s.logger.Error("learning refresh failed", zap.Error(err))
		return
	}
	if report.Skipped {
		return
	}
	s.logger.Info("learning refresh finished",
		zap.Int("users", report.Users),
		zap.Int("insights", report.Insights),
		zap.Int("refreshed", report.Refreshed),
		zap.Int("failed", report.Failed))
}

// RunOnce 执行一轮刷新，供手动触发。与正在进行的一轮重叠时直接跳过。
// 只有列出活跃用户失败时返回错误，单个用户的失败计入 Failed。
func (s *Scheduler) RunOnce(ctx context.Context) (Report, error) {
	if s.running.Swap(true) {
		return Report{Skipped: true}, nil
	}
	defer s.running.Store(false)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	users, err := s.store.ActiveUsers(ctx, s.now().Add(-s.activeWindow).UTC(), s.maxUsers)
	if err != nil {
		return Report{}, fmt.Errorf("list active users: %w", err)
	}

	var (
		mu     sync.Mutex
		report = Report{Users: len(users)}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, userID := range users {
		g.Go(func() error {
			insights, refreshed, err := s.refreshUser(gctx, userID)
			mu.Lock()
			defer mu.Unlock()
			report.Insights += insights
			if refreshed {
				report.Refreshed++
			}
			if err != nil {
				report.Failed++
				metrics.BestEffortFailures.WithLabelValues("scheduled_refresh").Inc()
				s.logger.Warn("refresh user failed", zap.String("user_id", userID), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
	return report, ctx.Err()
}

func (s *Scheduler) refreshUser(ctx context.Context, userID string) (int, bool, error) {
	var errs []error
	n := 0
	if s.insights != nil {
		generated, err := s.insights.Generate(ctx, userID)
		n = len(generated)
		if err != nil {
			errs = append(errs, fmt.Errorf("generate insights: %w", err))
		}
	}
	refreshed := false
	if s.coldStart != nil {
		if _, err := s.coldStart.Refresh(ctx, userID); err != nil {
			errs = append(errs, fmt.Errorf("refresh cold start: %w", err))
		} else {
			refreshed = true
		}
	}
	return n, refreshed, errors.Join(errs...)
}

func defaultTicker(d time.Duration) ticker {
	return tickerWrapper{time.NewTicker(d)}
}

type tickerWrapper struct {
	*time.Ticker
}

func (t tickerWrapper) C() <-chan time.Time { return t.Ticker.C }
func (t tickerWrapper) Stop()               { t.Ticker.Stop() }
