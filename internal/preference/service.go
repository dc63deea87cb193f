package preference

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"netmatch/internal/apperr"
	"netmatch/internal/model"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Store 定义持久化接口。
type Store interface {
	GetPreferences(ctx context.Context, userID string) (*model.Preferences, error)
	SavePreferences(ctx context.Context, p *model.Preferences) error
	DeletePreferences(ctx context.Context, userID string) error
}

// Config 控制各类偏好词条的上限。
type Config struct {
	MaxTerms int `yaml:"max_terms" json:"max_terms"`
}

// Request 表示前端提交的偏好，整体替换已有设置。
type Request struct {
	TargetPositions  []string `json:"target_positions" validate:"omitempty,dive,max=100"`
	TargetIndustries []string `json:"target_industries" validate:"omitempty,dive,max=100"`
	CompanySize      string   `json:"company_size"`
	ExperienceLevel  string   `json:"experience_level"`
	BusinessGoals    []string `json:"business_goals" validate:"omitempty,dive,max=200"`
	Locations        []string `json:"locations" validate:"omitempty,dive,max=100"`
}

// Service 负责验证与读写匹配偏好。
type Service struct {
	store    Store
	maxTerms int
	logger   *zap.Logger
}

// NewService 创建偏好服务。
func NewService(store Store, cfg Config, logger *zap.Logger) *Service {
	if cfg.MaxTerms <= 0 {
		cfg.MaxTerms = 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, maxTerms: cfg.MaxTerms, logger: logger}
}

// Get 返回用户偏好，未设置时返回 NotFound。
func (s *Service) Get(ctx context.Context, userID string) (*model.Preferences, error) {
	p, err := s.store.GetPreferences(ctx, userID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, err
		}
		return nil, apperr.Persistence("get preferences", err)
	}
	return p, nil
}

// Update 校验请求并整体替换用户偏好。
func (s *Service) Update(ctx context.Context, userID string, req Request) (model.Preferences, error) {
	if strings.TrimSpace(userID) == "" {
		return model.Preferences{}, apperr.Validation("user id required")
	}
	if err := validate.Struct(req); err != nil {
		return model.Preferences{}, validationError(err)
	}
	size, err := model.ParseCompanySize(req.CompanySize)
	if err != nil {
		return model.Preferences{}, apperr.Validation(err.Error())
	}
	level, err := model.ParseExperienceLevel(req.ExperienceLevel)
	if err != nil {
		return model.Preferences{}, apperr.Validation(err.Error())
	}

	prefs := model.Preferences{UserID: userID, CompanySize: size, ExperienceLevel: level}
	fields := []struct {
		name string
		in   []string
		out  *datatypes.JSONSlice[string]
	}{
		{"target_positions", req.TargetPositions, &prefs.TargetPositions},
		{"target_industries", req.TargetIndustries, &prefs.TargetIndustries},
		{"business_goals", req.BusinessGoals, &prefs.BusinessGoals},
		{"locations", req.Locations, &prefs.Locations},
	}
	for _, f := range fields {
		terms := dedupe(f.in)
		if len(terms) > s.maxTerms {
			return model.Preferences{}, apperr.Validationf("%s accepts at most %d entries, got %d", f.name, s.maxTerms, len(terms))
		}
		*f.out = terms
	}

	if err := s.store.SavePreferences(ctx, &prefs); err != nil {
		return model.Preferences{}, apperr.Persistence("save preferences", err)
	}
	s.logger.Debug("preferences updated", zap.String("user_id", userID), zap.Bool("has_criteria", prefs.HasCriteria()))
	return prefs, nil
}

// Delete 清除用户偏好。
func (s *Service) Delete(ctx context.Context, userID string) error {
	if err := s.store.DeletePreferences(ctx, userID); err != nil {
		if apperr.IsNotFound(err) {
			return err
		}
		return apperr.Persistence("delete preferences", err)
	}
	return nil
}

// dedupe 去除空白项与大小写重复项，保留首次出现的写法。
func dedupe(in []string) datatypes.JSONSlice[string] {
	out := datatypes.JSONSlice[string]{}
	seen := make(map[string]struct{}, len(in))
	for _, v := range in {
		trimmed := strings.TrimSpace(v)
		key := strings.ToLower(trimmed)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation(err.Error())
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return apperr.Validation(strings.Join(parts, "; "))
}
