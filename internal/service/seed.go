package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

var seedDepartments = []domain.Department{
	{Code: "IT", Name: "IT", IsActive: true},
	{Code: "HR", Name: "Human Resources", IsActive: true},
	{Code: "FIN", Name: "Finance", IsActive: true},
	{Code: "OPS", Name: "Operations", IsActive: true},
}

// SeedInitialData creates the first admin account and default departments
// when the user table is empty. Best-effort: failures are logged, never
// fatal, and the whole step is skipped once any account exists.
func SeedInitialData(ctx context.Context, users repository.UserRepository, configs repository.AppConfigRepository, bcryptCost int, logger *zap.Logger) {
	existing, err := users.List(ctx, 1)
	if err != nil {
		logger.Warn("seed: unable to inspect users", zap.Error(err))
		return
	}
	if len(existing) > 0 {
		return
	}

	hash, err := auth.HashPassword("admin123", bcryptCost)
	if err != nil {
		logger.Warn("seed: password hash failed", zap.Error(err))
		return
	}
	now := time.Now().UTC()
	admin := &domain.User{
		ID:           uuid.NewString(),
		Username:     "admin",
		FullName:     "Administrator",
		Department:   []string{"IT"},
		Position:     "Administrator",
		Role:         domain.RoleAdmin,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := users.Create(ctx, admin); err != nil {
		logger.Warn("seed: admin creation failed", zap.Error(err))
		return
	}
	logger.Info("seed: created default admin account, change its password", zap.String("username", admin.Username))

	cfg, err := configs.Get(ctx)
	if err != nil {
		logger.Warn("seed: config read failed", zap.Error(err))
		return
	}
	if len(cfg.Departments) == 0 {
		cfg.Departments = seedDepartments
		if err := configs.Upsert(ctx, cfg, now); err != nil {
			logger.Warn("seed: department seed failed", zap.Error(err))
			return
		}
		logger.Info("seed: created default departments", zap.Int("count", len(seedDepartments)))
	}
}
