package main

import (
	"context"
	"errors"
	"testing"

	"netmatch/internal/scheduler"
)

func TestRunOnceManual(t *testing.T) {
	t.Parallel()

	stub := &stubScheduler{report: scheduler.Report{Users: 3, Refreshed: 3}}
	builds := 0

	report, err := runOnceManual(context.Background(), AppConfig{}, func(AppConfig) (appDeps, func(), error) {
		builds++
		return appDeps{sched: stub}, func() {}, nil
	})
	if err != nil {
		t.Fatalf("runOnceManual error: %v", err)
	}
	if report.Users != 3 || report.Refreshed != 3 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if builds != 1 {
		t.Fatalf("expected builder called once, got %d", builds)
	}
	if stub.runOnceCalls != 1 {
		t.Fatalf("expected RunOnce called once, got %d", stub.runOnceCalls)
	}
}

func TestRunOnceManualBuilderError(t *testing.T) {
	t.Parallel()

	cleaned := false
	_, err := runOnceManual(context.Background(), AppConfig{}, func(AppConfig) (appDeps, func(), error) {
		return appDeps{}, func() { cleaned = true }, errors.New("build fail")
	})
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if cleaned {
		t.Fatalf("cleanup should not run when build fails")
	}
}

func TestBuildDepsWithSQLite(t *testing.T) {
	t.Parallel()

	cfg := AppConfig{}
	cfg.Database.Path = t.TempDir() + "/netmatch.db"
	cfg.Scheduler.Timeout = "2s"

	report, err := runOnceManual(context.Background(), cfg, buildDeps)
	if err != nil {
		t.Fatalf("runOnceManual error: %v", err)
	}
	if report.Users != 0 {
		t.Fatalf("expected no active users in a fresh database, got %d", report.Users)
	}
}

// --- stubs ---

type stubScheduler struct {
	report       scheduler.Report
	runOnceCalls int
}

func (s *stubScheduler) RunOnce(context.Context) (scheduler.Report, error) {
	s.runOnceCalls++
	return s.report, nil
}

func (s *stubScheduler) Start(context.Context) error {
	return nil
}
