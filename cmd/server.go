package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"netmatch/internal/api"
	"netmatch/internal/feedback"
	"netmatch/internal/logger"
	"netmatch/internal/preference"
	"netmatch/internal/scheduler"
	"netmatch/internal/storage"
)

// AppConfig 应用配置。
type AppConfig struct {
	Server     ServerConfig      `yaml:"server"`
	Database   storage.Config    `yaml:"database"`
	Log        logger.Config     `yaml:"log"`
	Scoring    ScoringConfig     `yaml:"scoring"`
	Matching   MatchingConfig    `yaml:"matching"`
	Learning   LearningConfig    `yaml:"learning"`
	Preference preference.Config `yaml:"preferences"`
	Scheduler  scheduler.Config  `yaml:"scheduler"`
}

type ServerConfig struct {
	Addr            string   `yaml:"addr"`
	ShutdownTimeout string   `yaml:"shutdown_timeout"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
	RateLimit       int      `yaml:"rate_limit"`
}

type ScoringConfig struct {
	TablesFile string `yaml:"tables_file"`
}

type MatchingConfig struct {
	DefaultLimit    int    `yaml:"default_limit"`
	DefaultStrategy string `yaml:"default_strategy"`
}

type LearningConfig struct {
	AdaptEvery     int `yaml:"adapt_every"`
	FeedbackWindow int `yaml:"feedback_window"`
}

func main() {
	once := flag.Bool("once", false, "run one learning refresh and exit")
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		log.Printf("load config error: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *once {
		report, err := runOnceManual(ctx, cfg, buildDeps)
		if err != nil {
			log.Printf("learning refresh error: %v", err)
			os.Exit(1)
		}
		log.Printf("learning refresh: users=%d insights=%d refreshed=%d failed=%d",
			report.Users, report.Insights, report.Refreshed, report.Failed)
		return
	}

	deps, cleanup, err := buildDeps(cfg)
	if err != nil {
		log.Printf("init error: %v", err)
		os.Exit(1)
	}
	defer cleanup()

	addr := cfg.Server.Addr
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{Addr: addr, Handler: deps.handler, ReadHeaderTimeout: 10 * time.Second}

	deps.logger.Info("listening", zap.String("addr", addr))
	if err := runServer(ctx, srv, deps.sched, parseTimeout(cfg.Server.ShutdownTimeout)); err != nil {
		deps.logger.Error("server stopped", zap.Error(err))
	}
}

// loadConfig 先加载 .env，再读取 YAML，最后应用环境变量覆盖。配置文件缺失时使用默认值。
func loadConfig() (AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return AppConfig{}, fmt.Errorf("load .env: %w", err)
	}
	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = "config.yaml"
	}
	cfg, err := readConfig(path)
	if err != nil {
		return AppConfig{}, err
	}
	applyEnv(&cfg, os.Getenv)
	return cfg, nil
}

func readConfig(path string) (AppConfig, error) {
	var cfg AppConfig
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return AppConfig{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *AppConfig, getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&cfg.Database.Driver, "DATABASE_DRIVER")
	set(&cfg.Database.DSN, "DATABASE_DSN")
	set(&cfg.Database.Path, "DATABASE_PATH")
	set(&cfg.Server.Addr, "SERVER_ADDR")
	set(&cfg.Log.Level, "LOG_LEVEL")
}

func parseTimeout(v string) time.Duration {
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	return 10 * time.Second
}

func feedbackConfig(cfg LearningConfig) feedback.Config {
	return feedback.Config{AdaptEvery: cfg.AdaptEvery}
}

func apiConfig(cfg AppConfig) api.Config {
	return api.Config{
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		RateLimit:       cfg.Server.RateLimit,
		DefaultLimit:    cfg.Matching.DefaultLimit,
		DefaultStrategy: cfg.Matching.DefaultStrategy,
	}
}
