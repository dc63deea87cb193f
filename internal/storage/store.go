package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"netmatch/internal/apperr"
	"netmatch/internal/model"
)

// Config 数据库连接配置。Driver 为 sqlite 时使用 Path，为 mysql 时使用 DSN。
type Config struct {
	Driver       string `yaml:"driver" json:"driver"`
	Path         string `yaml:"path" json:"path"`
	DSN          string `yaml:"dsn" json:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns" json:"max_open_conns"`
}

// Store 封装持久化访问，为匹配引擎提供全部读写端口。
type Store struct {
	db *gorm.DB
}

var migrated = []any{
	&model.Profile{},
	&model.Event{},
	&model.EventParticipant{},
	&model.Preferences{},
	&model.UserWeights{},
	&model.ColdStartProfile{},
	&model.BehaviorEvent{},
	&model.Feedback{},
	&model.AlgorithmInsight{},
	&model.MatchRecord{},
}

// NewStore 打开（必要时创建）SQLite 数据库并迁移表结构。
func NewStore(dbPath string) (*Store, error) {
	return Open(Config{Driver: "sqlite", Path: dbPath})
}

// Open 按驱动打开数据库并自动迁移。
func Open(cfg Config) (*Store, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("get sql DB: %w", err)
		}
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if err := db.AutoMigrate(migrated...); err != nil {
		return nil, fmt.Errorf("auto migrate models: %w", err)
	}
	return &Store{db: db}, nil
}

func dialectorFor(cfg Config) (gorm.Dialector, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "sqlite":
		if cfg.Path == "" {
			return nil, errors.New("sqlite path is required")
		}
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
		return sqlite.Open(cfg.Path), nil
	case "mysql":
		if cfg.DSN == "" {
			return nil, errors.New("mysql dsn is required")
		}
		return mysql.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Close 关闭底层数据库连接。
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get sql DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}
	return nil
}

// Ping 用于健康检查。
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get sql DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// first 查询单条记录，未找到时返回 apperr.NotFound。
func (s *Store) first(ctx context.Context, dst any, kind, id string, query string, args ...any) error {
	err := s.db.WithContext(ctx).Where(query, args...).First(dst).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(kind, id)
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", kind, err)
	}
	return nil
}

func page(db *gorm.DB, limit, offset int) *gorm.DB {
	if offset > 0 {
		db = db.Offset(offset)
	}
	if limit > 0 {
		db = db.Limit(limit)
	}
	return db
}
