package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

const appConfigID = "app_config"

// AppConfigRepository stores the single global configuration document.
type AppConfigRepository interface {
	Get(ctx context.Context) (domain.AppConfig, error)
	Upsert(ctx context.Context, cfg domain.AppConfig, now time.Time) error
}

type appConfigRepository struct {
	pool *pgxpool.Pool
}

// NewAppConfigRepository builds the repository.
func NewAppConfigRepository(pool *pgxpool.Pool) AppConfigRepository {
	return &appConfigRepository{pool: pool}
}

// Get returns the stored configuration, falling back to defaults when the
// document has never been written.
func (r *appConfigRepository) Get(ctx context.Context) (domain.AppConfig, error) {
	var doc []byte
	err := r.pool.QueryRow(ctx, `SELECT doc FROM app_config WHERE id=$1`, appConfigID).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.DefaultAppConfig(), nil
	}
	if err != nil {
		return domain.AppConfig{}, err
	}

	cfg := domain.DefaultAppConfig()
	if err := json.Unmarshal(doc, &cfg); err != nil {
		return domain.AppConfig{}, err
	}
	if cfg.RequestOptions.SLAHoursByPriority == nil {
		cfg.RequestOptions.SLAHoursByPriority = domain.DefaultAppConfig().RequestOptions.SLAHoursByPriority
	}
	return cfg, nil
}

func (r *appConfigRepository) Upsert(ctx context.Context, cfg domain.AppConfig, now time.Time) error {
	doc, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO app_config (id, doc, updated_at) VALUES ($1,$2,$3)
        ON CONFLICT (id) DO UPDATE SET doc=EXCLUDED.doc, updated_at=EXCLUDED.updated_at`
	_, err = r.pool.Exec(ctx, query, appConfigID, doc, now)
	return err
}
