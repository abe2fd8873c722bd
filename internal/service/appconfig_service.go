package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/pkg/util"
)

// ConfigCache holds a short-lived immutable snapshot of the application
// configuration. Implementations expire entries on their own; Invalidate is
// called synchronously whenever the configuration is written.
type ConfigCache interface {
	Get(ctx context.Context) (domain.AppConfig, bool, error)
	Set(ctx context.Context, cfg domain.AppConfig, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

// AppConfigService serves and mutates the global configuration document.
type AppConfigService struct {
	repo   repository.AppConfigRepository
	cache  ConfigCache
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewAppConfigService constructs the service. A nil cache disables caching.
func NewAppConfigService(repo repository.AppConfigRepository, cache ConfigCache, logger *zap.Logger) *AppConfigService {
	return &AppConfigService{
		repo:   repo,
		cache:  cache,
		ttl:    30 * time.Second,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Current returns the configuration, served from cache when fresh. Cache
// failures degrade to a direct read, never to an error.
func (s *AppConfigService) Current(ctx context.Context) (domain.AppConfig, error) {
	if s.cache != nil {
		cfg, ok, err := s.cache.Get(ctx)
		if err != nil {
			s.logger.Warn("config cache read failed", zap.Error(err))
		} else if ok {
			return cfg, nil
		}
	}

	cfg, err := s.repo.Get(ctx)
	if err != nil {
		return domain.AppConfig{}, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cfg, s.ttl); err != nil {
			s.logger.Warn("config cache write failed", zap.Error(err))
		}
	}
	return cfg, nil
}

// Replace stores a whole new configuration document and refreshes the cache
// before returning so readers never observe the stale snapshot.
func (s *AppConfigService) Replace(ctx context.Context, cfg domain.AppConfig) (domain.AppConfig, error) {
	if err := validateAppConfig(cfg); err != nil {
		return domain.AppConfig{}, err
	}
	if err := s.repo.Upsert(ctx, cfg, s.now()); err != nil {
		return domain.AppConfig{}, err
	}
	s.refreshCache(ctx, cfg)
	return cfg, nil
}

// ReplaceDepartments swaps the department list only.
func (s *AppConfigService) ReplaceDepartments(ctx context.Context, departments []domain.Department) (domain.AppConfig, error) {
	cfg, err := s.repo.Get(ctx)
	if err != nil {
		return domain.AppConfig{}, err
	}
	cfg.Departments = departments
	return s.Replace(ctx, cfg)
}

// ReplaceRequestOptions swaps the request taxonomy and SLA thresholds only.
func (s *AppConfigService) ReplaceRequestOptions(ctx context.Context, options domain.RequestOptions) (domain.AppConfig, error) {
	cfg, err := s.repo.Get(ctx)
	if err != nil {
		return domain.AppConfig{}, err
	}
	cfg.RequestOptions = options
	return s.Replace(ctx, cfg)
}

// Departments lists the configured departments.
func (s *AppConfigService) Departments(ctx context.Context) ([]domain.Department, error) {
	cfg, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	if cfg.Departments == nil {
		return []domain.Department{}, nil
	}
	return cfg.Departments, nil
}

func (s *AppConfigService) refreshCache(ctx context.Context, cfg domain.AppConfig) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("config cache invalidation failed", zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, cfg, s.ttl); err != nil {
		s.logger.Warn("config cache write failed", zap.Error(err))
	}
}

func validateAppConfig(cfg domain.AppConfig) error {
	for _, dept := range cfg.Departments {
		if dept.Name == "" {
			return util.NewValidationError("department name is required", nil)
		}
	}
	for priority, hours := range cfg.RequestOptions.SLAHoursByPriority {
		if hours <= 0 {
			return util.NewValidationError("sla hours must be positive", map[string]any{"priority": priority})
		}
	}
	return nil
}
