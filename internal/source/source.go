// Package source adapts external wine sites and services into drinking-window
// lookups. Every source shares one generic Adapter configured by a Definition.
package source

import (
	"context"
	"fmt"

	"github.com/sells-group/cellar-cli/internal/model"
)

// Tier is a priority bucket; lower tiers are consulted first.
type Tier int

const (
	// Tier1 holds critic and collector sources.
	Tier1 Tier = 1
	// Tier2 holds community, commercial and magazine sources.
	Tier2 Tier = 2
)

func (t Tier) String() string { return fmt.Sprintf("tier%d", int(t)) }

// Source looks up a drinking window for a wine. Lookup never fails: transport
// errors, missing content and unusable text all report false.
type Source interface {
	Name() string
	Label() string
	Tier() Tier
	Lookup(ctx context.Context, q model.WineQuery) (model.WindowEstimate, bool)
}
