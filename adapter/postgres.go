package adapter

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createCacheTableSQL = `
CREATE TABLE IF NOT EXISTS flagcore_cache (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

// PostgresAdapter is a SQL-backed DataAdapter for teams that already
// run Postgres as their config store of record and want the SDK's
// cache to live alongside it rather than introduce a new storage
// dependency.
type PostgresAdapter struct {
	pool *pgxpool.Pool
}

// OpenPostgresAdapter connects to dsn and ensures the cache table
// exists.
func OpenPostgresAdapter(ctx context.Context, dsn string) (*PostgresAdapter, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if _, err := pool.Exec(ctx, createCacheTableSQL); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresAdapter{pool: pool}, nil
}

func (a *PostgresAdapter) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := a.pool.QueryRow(ctx, `SELECT value FROM flagcore_cache WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (a *PostgresAdapter) Set(ctx context.Context, key string, value string) error {
	_, err := a.pool.Exec(ctx, `
		INSERT INTO flagcore_cache (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, key, value)
	return err
}

func (a *PostgresAdapter) Initialize(ctx context.Context) error {
	return a.pool.Ping(ctx)
}

func (a *PostgresAdapter) Shutdown(context.Context) error {
	a.pool.Close()
	return nil
}

func (a *PostgresAdapter) SupportsPollingUpdatesFor(string) bool { return true }
