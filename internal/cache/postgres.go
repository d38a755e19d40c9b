package cache

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/cellar-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the Postgres cache uses.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PoolConfig sizes the connection pool.
type PoolConfig struct {
	MaxConns int32
	MinConns int32
}

// Postgres is a durable cache shared by every process pointed at the same
// database.
type Postgres struct {
	pool    Pool
	closeFn func()
}

// NewPostgres connects to dsn and creates the table.
func NewPostgres(ctx context.Context, dsn string, pc PoolConfig) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, eris.Wrap(err, "cache: postgres parse config")
	}
	cfg.MaxConns = 4
	cfg.MinConns = 0
	if pc.MaxConns > 0 {
		cfg.MaxConns = pc.MaxConns
	}
	if pc.MinConns > 0 {
		cfg.MinConns = pc.MinConns
	}
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "cache: postgres create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "cache: postgres ping")
	}
	p := &Postgres{pool: pool, closeFn: pool.Close}
	if err := p.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

// NewPostgresWithPool wraps an existing pool. The caller owns its lifecycle.
func NewPostgresWithPool(pool Pool) *Postgres {
	return &Postgres{pool: pool}
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS drinking_windows (
	cache_key  TEXT PRIMARY KEY,
	result     JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Migrate creates the cache table if needed.
func (p *Postgres) Migrate(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, postgresSchema)
	return eris.Wrap(err, "cache: postgres migrate")
}

// Get implements Cache.
func (p *Postgres) Get(ctx context.Context, key string) (model.CascadeResult, bool, error) {
	var raw []byte
	err := p.pool.QueryRow(ctx, `SELECT result FROM drinking_windows WHERE cache_key = $1`, key).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.CascadeResult{}, false, nil
	}
	if err != nil {
		return model.CascadeResult{}, false, eris.Wrap(err, "cache: postgres get")
	}
	r, err := decode(raw)
	if err != nil {
		return model.CascadeResult{}, false, err
	}
	return r, true, nil
}

// Put implements Cache.
func (p *Postgres) Put(ctx context.Context, key string, r model.CascadeResult) error {
	b, err := encode(r)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO drinking_windows (cache_key, result, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (cache_key) DO UPDATE SET
			result = EXCLUDED.result,
			updated_at = now()`,
		key, b)
	return eris.Wrap(err, "cache: postgres put")
}

// Close releases the pool if NewPostgres created it.
func (p *Postgres) Close() error {
	if p.closeFn != nil {
		p.closeFn()
	}
	return nil
}
