package cache

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/cellar-cli/internal/model"
)

// Tiered puts a fast cache in front of a durable one. Writes go to both;
// reads that miss the front are filled from the back.
type Tiered struct {
	front Cache
	back  Cache
}

// NewTiered layers front over back.
func NewTiered(front, back Cache) *Tiered {
	return &Tiered{front: front, back: back}
}

// Get implements Cache.
func (t *Tiered) Get(ctx context.Context, key string) (model.CascadeResult, bool, error) {
	if r, ok, err := t.front.Get(ctx, key); err == nil && ok {
		return r, true, nil
	}
	r, ok, err := t.back.Get(ctx, key)
	if err != nil || !ok {
		return r, ok, err
	}
	if err := t.front.Put(ctx, key, r); err != nil {
		zap.L().Warn("cache: fill front tier", zap.String("key", key), zap.Error(err))
	}
	return r, true, nil
}

// Put implements Cache. The front tier is written even if the back fails.
func (t *Tiered) Put(ctx context.Context, key string, r model.CascadeResult) error {
	if err := t.front.Put(ctx, key, r); err != nil {
		zap.L().Warn("cache: write front tier", zap.String("key", key), zap.Error(err))
	}
	return t.back.Put(ctx, key, r)
}
