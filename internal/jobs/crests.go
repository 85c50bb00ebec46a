package jobs

import (
	"context"

	"github.com/fortuna/goalfeed/internal/reconciliation"
	"github.com/fortuna/goalfeed/internal/store"
)

// crestBook resolves team crests against registries loaded on first use.
// It lives for one run.
type crestBook struct {
	resolver *reconciliation.Resolver
	load     func(ctx context.Context) []store.Team
	teams    []store.Team
	loaded   bool
	memo     map[string]string
}

func newCrestBook(resolver *reconciliation.Resolver, catalog Catalog, leagues []string) *crestBook {
	return &crestBook{
		resolver: resolver,
		load: func(ctx context.Context) []store.Team {
			if catalog == nil {
				return nil
			}
			return catalog.Teams(ctx, leagues...)
		},
		memo: make(map[string]string),
	}
}

// Crest returns the crest of the team best matching name, or the
// placeholder logo.
func (b *crestBook) Crest(ctx context.Context, name string) string {
	if logo, ok := b.memo[name]; ok {
		return logo
	}
	if !b.loaded {
		b.teams = b.load(ctx)
		b.loaded = true
	}
	logo := b.resolver.ResolveCrest(name, b.teams)
	b.memo[name] = logo
	return logo
}
