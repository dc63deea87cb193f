package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"netmatch/internal/apperr"
	"netmatch/internal/feedback"
	"netmatch/internal/learning"
	"netmatch/internal/matching"
	"netmatch/internal/model"
	"netmatch/internal/preference"
	"netmatch/internal/ranking"
	"netmatch/internal/scheduler"
)

// UserHeader 携带调用方用户 ID 的请求头，鉴权由网关负责。
const UserHeader = "X-User-ID"

// Matcher 匹配相关操作。
type Matcher interface {
	Generate(ctx context.Context, userID, eventID string, opts matching.Options) (matching.Result, error)
	Recommendations(ctx context.Context, userID, eventID string, strict bool) (matching.Recommendations, error)
	History(ctx context.Context, userID, eventID string, opts matching.HistoryOptions) ([]matching.HistoryEntry, error)
	EventStats(ctx context.Context, eventID string) (model.EventMatchStats, error)
}

// FeedbackService 显式反馈与权重更新。
type FeedbackService interface {
	Submit(ctx context.Context, userID string, req feedback.SubmitRequest) (feedback.SubmitResult, error)
	UpdateWeights(ctx context.Context, userID string) (*model.UserWeights, error)
}

// BehaviorTracker 行为上报。
type BehaviorTracker interface {
	Track(ctx context.Context, userID string, req feedback.TrackRequest) (feedback.TrackResult, error)
}

// ColdStartService 冷启动档案初始化。
type ColdStartService interface {
	Initialize(ctx context.Context, userID string) (*model.ColdStartProfile, error)
}

// MetricsReporter 学习指标。
type MetricsReporter interface {
	Metrics(ctx context.Context, userID, eventID string) (learning.Metrics, error)
}

// PreferenceService 偏好读写。
type PreferenceService interface {
	Get(ctx context.Context, userID string) (*model.Preferences, error)
	Update(ctx context.Context, userID string, req preference.Request) (model.Preferences, error)
	Delete(ctx context.Context, userID string) error
}

// Refresher 手动触发一轮学习刷新。
type Refresher interface {
	RunOnce(ctx context.Context) (scheduler.Report, error)
}

// Pinger 健康检查。
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services 处理器依赖，未配置的服务对应路由返回 503。
type Services struct {
	Matcher     Matcher
	Feedback    FeedbackService
	Tracker     BehaviorTracker
	ColdStart   ColdStartService
	Reporter    MetricsReporter
	Preferences PreferenceService
	Refresher   Refresher
	Health      Pinger
}

// Config HTTP 层配置。
type Config struct {
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins"`
	// RateLimit 每个用户每分钟请求数，0 表示不限流。
	RateLimit       int    `yaml:"rate_limit" json:"rate_limit"`
	DefaultLimit    int    `yaml:"default_limit" json:"default_limit"`
	DefaultStrategy string `yaml:"default_strategy" json:"default_strategy"`
}

type handler struct {
	svc      Services
	defaults matching.Options
	logger   *zap.Logger
}

// NewHandler 构造 HTTP 路由。
func NewHandler(svc Services, cfg Config, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handler{svc: svc, defaults: matching.DefaultOptions(), logger: logger}
	if cfg.DefaultLimit > 0 {
		h.defaults.Limit = cfg.DefaultLimit
	}
	if st, err := ranking.ParseStrategy(cfg.DefaultStrategy); err == nil {
		h.defaults.Strategy = st
	} else {
		logger.Warn("ignoring unknown default strategy", zap.String("strategy", cfg.DefaultStrategy))
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.accessLog)
	r.Use(middleware.Recoverer)
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", UserHeader},
			MaxAge:         300,
		}))
	}

	r.Get("/health", h.health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(requireUser)
		if cfg.RateLimit > 0 {
			r.Use(httprate.Limit(cfg.RateLimit, time.Minute, httprate.WithKeyFuncs(keyByUser)))
		}

		r.Post("/events/{eventID}/matches", h.generateMatches)
		r.Get("/events/{eventID}/recommendations", h.recommendations)
		r.Get("/events/{eventID}/stats", h.eventStats)
		r.Get("/matches/history", h.history)

		r.Post("/feedback", h.submitFeedback)
		r.Post("/behaviors", h.trackBehavior)
		r.Post("/weights/update", h.updateWeights)
		r.Post("/cold-start", h.initColdStart)
		r.Get("/learning/metrics", h.learningMetrics)
		r.Post("/learning/refresh", h.refresh)

		r.Get("/preferences", h.getPreferences)
		r.Put("/preferences", h.putPreferences)
		r.Delete("/preferences", h.deletePreferences)
	})
	return r
}

func (h *handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userID(r) == "" {
			writeError(w, apperr.Validation(UserHeader+" header required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func keyByUser(r *http.Request) (string, error) {
	return userID(r), nil
}

func userID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(UserHeader))
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if h.svc.Health != nil {
		if err := h.svc.Health.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decode 空请求体视为零值。
func decode(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return apperr.Validationf("invalid payload: %v", err)
	}
	return nil
}

// pagination 与列表接口一致：limit 上限 100，page 从 1 开始。
func pagination(r *http.Request) (limit, page int) {
	limit, page = 20, 1
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = min(v, 100)
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page = v
	}
	return limit, page
}

func statusFor(err error) int {
	switch apperr.CodeOf(err) {
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	body := map[string]string{"error": err.Error()}
	if code := apperr.CodeOf(err); code != "" {
		body["code"] = string(code)
	}
	writeJSON(w, statusFor(err), body)
}

func unavailable(w http.ResponseWriter, name string) {
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": name + " disabled"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
