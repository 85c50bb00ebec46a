package jobs

import (
	"context"
	"os"
	"sync"

	"github.com/fortuna/goalfeed/internal/reconciliation"
	"github.com/fortuna/goalfeed/internal/store"
)

func writeRaw(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

// fakeCatalog serves fixed schedules and teams and counts team loads.
type fakeCatalog struct {
	schedules map[string][]store.Match
	teams     []store.Team

	mu        sync.Mutex
	teamLoads int
}

func (c *fakeCatalog) Schedules(_ context.Context, leagues ...string) []reconciliation.Source {
	out := make([]reconciliation.Source, 0, len(leagues))
	for _, lg := range leagues {
		if recs, ok := c.schedules[lg]; ok {
			out = append(out, reconciliation.Source{Name: lg, Records: recs})
		}
	}
	return out
}

func (c *fakeCatalog) Teams(context.Context, ...string) []store.Team {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teamLoads++
	return c.teams
}

func (c *fakeCatalog) loads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.teamLoads
}
