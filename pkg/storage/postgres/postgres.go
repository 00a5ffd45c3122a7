// Package postgres provides a PostgreSQL implementation of storage.CatalogStore.
// It uses pgx/v5 for connection pooling and JSONB for catalog storage.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rhuss/enginehub/pkg/api"
	"github.com/rhuss/enginehub/pkg/debug"
	"github.com/rhuss/enginehub/pkg/storage"
)

// Store is a PostgreSQL-backed CatalogStore.
type Store struct {
	pool *pgxpool.Pool
}

// Ensure Store implements storage.CatalogStore at compile time.
var _ storage.CatalogStore = (*Store)(nil)

// New creates a new PostgreSQL store with the given configuration.
// If MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	if _, ok := poolCfg.ConnConfig.RuntimeParams["application_name"]; !ok {
		poolCfg.ConnConfig.RuntimeParams["application_name"] = cfg.ApplicationName
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connectivity.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool}

	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

// SaveModels upserts the catalog of engine. The previous catalog is
// replaced wholesale.
func (s *Store) SaveModels(ctx context.Context, engine string, models *api.ModelsList) error {
	if models == nil {
		return storage.ErrNoCatalog
	}

	data, err := json.Marshal(models)
	if err != nil {
		return fmt.Errorf("marshaling catalog: %w", err)
	}

	debug.Log("storage", "saving catalog", "engine", engine, "models", models.Len())

	_, err = s.pool.Exec(ctx, `
		INSERT INTO engine_catalogs (engine, models, chat_models, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (engine) DO UPDATE
		SET models = EXCLUDED.models,
		    chat_models = EXCLUDED.chat_models,
		    updated_at = EXCLUDED.updated_at
	`, engine, data, len(models.Chat), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving catalog for %s: %w", engine, err)
	}
	return nil
}

// GetModels loads the catalog of engine.
func (s *Store) GetModels(ctx context.Context, engine string) (*storage.Catalog, error) {
	var (
		data      []byte
		updatedAt time.Time
	)
	err := s.pool.QueryRow(ctx,
		"SELECT models, updated_at FROM engine_catalogs WHERE engine = $1",
		engine,
	).Scan(&data, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("loading catalog for %s: %w", engine, err)
	}

	var models api.ModelsList
	if err := json.Unmarshal(data, &models); err != nil {
		return nil, fmt.Errorf("decoding catalog for %s: %w", engine, err)
	}

	return &storage.Catalog{
		Engine:    engine,
		Models:    &models,
		UpdatedAt: updatedAt.UTC(),
	}, nil
}

// ListEngines returns the engines with a stored catalog in sorted order.
func (s *Store) ListEngines(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, "SELECT engine FROM engine_catalogs ORDER BY engine")
	if err != nil {
		return nil, fmt.Errorf("listing catalogs: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("listing catalogs: %w", err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// HealthCheck verifies the database connection.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
