package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"netmatch/internal/api"
	"netmatch/internal/coldstart"
	"netmatch/internal/feedback"
	"netmatch/internal/learning"
	"netmatch/internal/logger"
	"netmatch/internal/matching"
	"netmatch/internal/preference"
	"netmatch/internal/scheduler"
	"netmatch/internal/scoring"
	"netmatch/internal/storage"
)

// httpServer 抽象 *http.Server，便于测试。
type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// learningScheduler 抽象后台调度。
type learningScheduler interface {
	Start(ctx context.Context) error
	RunOnce(ctx context.Context) (scheduler.Report, error)
}

type appDeps struct {
	handler http.Handler
	sched   learningScheduler
	logger  *zap.Logger
}

type depsBuilder func(AppConfig) (appDeps, func(), error)

// buildDeps 按配置装配存储、引擎各组件与 HTTP 处理器。
func buildDeps(cfg AppConfig) (appDeps, func(), error) {
	log, err := logger.New(cfg.Log)
	if err != nil {
		return appDeps{}, func() {}, err
	}

	dbCfg := cfg.Database
	if dbCfg.Driver == "" {
		dbCfg.Driver = "sqlite"
	}
	if dbCfg.Driver == "sqlite" && dbCfg.Path == "" {
		dbCfg.Path = "netmatch.db"
	}
	store, err := storage.Open(dbCfg)
	if err != nil {
		_ = log.Sync()
		return appDeps{}, func() {}, fmt.Errorf("init store: %w", err)
	}
	cleanup := func() {
		if err := store.Close(); err != nil {
			log.Warn("close store failed", zap.Error(err))
		}
		_ = log.Sync()
	}

	tables := scoring.DefaultTables()
	if cfg.Scoring.TablesFile != "" {
		tables, err = scoring.LoadTables(cfg.Scoring.TablesFile)
		if err != nil {
			cleanup()
			return appDeps{}, func() {}, fmt.Errorf("load scoring tables: %w", err)
		}
	}
	scorer := scoring.NewScorer(tables)

	coldStart := coldstart.NewManager(store, scorer, log.Named("coldstart"))
	adapter := learning.NewAdapter(store, cfg.Learning.FeedbackWindow, log.Named("learning"))
	insights := learning.NewInsightGenerator(store, cfg.Learning.FeedbackWindow, log.Named("insights"))
	orchestrator := matching.NewOrchestrator(store, scorer, coldStart, log.Named("matching"))
	sched := scheduler.NewScheduler(store, insights, coldStart, cfg.Scheduler, log.Named("scheduler"))

	handler := api.NewHandler(api.Services{
		Matcher:     orchestrator,
		Feedback:    feedback.NewService(store, adapter, insights, coldStart, feedbackConfig(cfg.Learning), log.Named("feedback")),
		Tracker:     feedback.NewTracker(store, log.Named("tracker")),
		ColdStart:   coldStart,
		Reporter:    learning.NewReporter(store),
		Preferences: preference.NewService(store, cfg.Preference, log.Named("preferences")),
		Refresher:   sched,
		Health:      store,
	}, apiConfig(cfg), log.Named("api"))

	return appDeps{handler: handler, sched: sched, logger: log}, cleanup, nil
}

// runServer 启动 HTTP 服务与后台调度，ctx 取消后在超时内优雅关闭。
func runServer(ctx context.Context, srv httpServer, sched learningScheduler, shutdownTimeout time.Duration) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		if sched != nil {
			_ = sched.Start(ctx)
		}
	}()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe()
	}()

	var err error
	select {
	case <-ctx.Done():
	case err = <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		cancel()
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil && err == nil {
		err = fmt.Errorf("shutdown: %w", shutdownErr)
	}
	<-schedDone
	return err
}

// runOnceManual 装配依赖后执行一轮学习刷新。
func runOnceManual(ctx context.Context, cfg AppConfig, build depsBuilder) (scheduler.Report, error) {
	deps, cleanup, err := build(cfg)
	if err != nil {
		return scheduler.Report{}, err
	}
	defer cleanup()
	return deps.sched.RunOnce(ctx)
}
