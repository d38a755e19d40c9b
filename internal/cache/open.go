package cache

import (
	"context"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Options selects and configures a cache backend.
type Options struct {
	// Driver is "memory", "sqlite" or "postgres".
	Driver   string
	DSN      string
	Shards   int
	MaxConns int32
	MinConns int32
}

// closer reports the in-process entry count, then releases the durable
// store if there is one.
type closer struct {
	mem   *Memory
	store io.Closer
}

func (c closer) Close() error {
	zap.L().Debug("cache: closing", zap.Int("memory_entries", c.mem.Len()))
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}

// Open builds the cache described by o. Durable drivers are fronted by a
// Memory cache. The returned Closer releases the durable store.
func Open(ctx context.Context, o Options) (Cache, io.Closer, error) {
	mem := NewMemory(o.Shards)
	switch strings.ToLower(o.Driver) {
	case "", "memory":
		return mem, closer{mem: mem}, nil
	case "sqlite":
		dsn := o.DSN
		if dsn == "" {
			dsn = "cellar-cache.db"
		}
		s, err := NewSQLite(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		return NewTiered(mem, s), closer{mem: mem, store: s}, nil
	case "postgres":
		if o.DSN == "" {
			return nil, nil, eris.New("cache: postgres driver requires a dsn")
		}
		p, err := NewPostgres(ctx, o.DSN, PoolConfig{MaxConns: o.MaxConns, MinConns: o.MinConns})
		if err != nil {
			return nil, nil, err
		}
		return NewTiered(mem, p), closer{mem: mem, store: p}, nil
	default:
		return nil, nil, eris.Errorf("cache: unknown driver %q", o.Driver)
	}
}
