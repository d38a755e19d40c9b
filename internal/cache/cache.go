// Package cache stores resolved drinking windows keyed by wine name and
// vintage.
package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/cellar-cli/internal/model"
	"github.com/sells-group/cellar-cli/internal/normalize"
)

// Cache is the result store consulted before any source. Implementations
// must be safe for concurrent use; a Put to an existing key replaces it.
type Cache interface {
	Get(ctx context.Context, key string) (model.CascadeResult, bool, error)
	Put(ctx context.Context, key string, r model.CascadeResult) error
}

// Key returns the cache key for a wine: the folded name with spaces as
// underscores, then the vintage.
func Key(name string, vintage int) string {
	return strings.ReplaceAll(normalize.Fold(name), " ", "_") + "_" + strconv.Itoa(vintage)
}

// QueryKey is Key for q.
func QueryKey(q model.WineQuery) string { return Key(q.Name, q.Vintage) }

func encode(r model.CascadeResult) ([]byte, error) {
	b, err := json.Marshal(r)
	return b, eris.Wrap(err, "cache: encode result")
}

func decode(b []byte) (model.CascadeResult, error) {
	var r model.CascadeResult
	if err := json.Unmarshal(b, &r); err != nil {
		return model.CascadeResult{}, eris.Wrap(err, "cache: decode result")
	}
	return r, nil
}
