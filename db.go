package prizewheel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Ashenafi-pixel/prizewheel/catalog"
)

var (
	poolOnce sync.Once
	pool     *pgxpool.Pool
	poolErr  error
)

// GetPool returns the process-wide Postgres pool for dsn, opened on first use.
// It returns nil, nil when dsn is empty so callers can fall back to the file
// catalog.
func GetPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, nil
	}
	poolOnce.Do(func() {
		config, err := pgxpool.ParseConfig(dsn)
		if err != nil {
			poolErr = err
			return
		}
		// Avoid "prepared statement already exists" behind PgBouncer: simple protocol only.
		config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
		config.MaxConnIdleTime = 4 * time.Minute
		config.MaxConns = 10
		config.MinConns = 2
		pool, poolErr = pgxpool.NewWithConfig(ctx, config)
		if poolErr != nil {
			return
		}
		pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		poolErr = pool.Ping(pctx)
	})
	if poolErr != nil {
		return nil, poolErr
	}
	return pool, nil
}

// OpenCatalog picks the product store: Postgres when dsn is set (tables are
// created if missing), the JSON files under dataDir otherwise.
func OpenCatalog(ctx context.Context, dsn, dataDir string) (catalog.Store, error) {
	if dsn == "" {
		return catalog.NewJSONStore(dataDir)
	}
	p, err := GetPool(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	store, err := catalog.NewPGStore(p)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return store, nil
}
