package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/goalfeed/internal/ingest/fetch"
)

type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memoryCache) GetJSON(_ context.Context, key string, dst any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, sonic.Unmarshal(raw, dst)
}

func (m *memoryCache) SetJSON(_ context.Context, key string, v any, _ time.Duration) error {
	raw, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = raw
	return nil
}

func newServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/matches/EPL.json":
			_, _ = w.Write([]byte(`[{"GameId":1,"Date":"2025-03-01","HomeTeamName":"Arsenal FC","AwayTeamName":"Chelsea FC"}]`))
		case "/teams/EPL.json":
			_, _ = w.Write([]byte(`[{"id":57,"name":"Arsenal FC","shortName":"Arsenal","tla":"ARS","crest":"ars.png"}]`))
		case "/teams/WC.json":
			_, _ = w.Write([]byte(`[{"teams":[{"id":759,"name":"Germany","crest":"ger.svg"},{"id":760,"name":"Spain","crest":"esp.svg"}]}]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCatalog_RemoteThenLocal(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := newServer(t, &hits)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ESP.json"),
		[]byte(`[{"GameId":9,"Date":"2025-03-02","HomeTeamName":"Sevilla","AwayTeamName":"Betis"}]`), 0o644))

	c := New(Config{
		ScheduleURL: srv.URL + "/matches/{league}.json",
		ScheduleDir: dir,
		Client:      fetch.NewClient(fetch.Config{RetryDelay: time.Millisecond}),
	})

	sources := c.Schedules(context.Background(), "EPL", "ESP", "ITSA")
	require.Len(t, sources, 3)
	assert.Equal(t, "EPL", sources[0].Name)
	require.Len(t, sources[0].Records, 1)
	assert.Equal(t, int64(1), sources[0].Records[0].GameID)
	require.Len(t, sources[1].Records, 1)
	assert.Equal(t, int64(9), sources[1].Records[0].GameID)
	assert.NotNil(t, sources[2].Records)
	assert.Empty(t, sources[2].Records)

	before := hits.Load()
	c.Schedule(context.Background(), "EPL")
	assert.Equal(t, before, hits.Load(), "schedules are memoized per catalog")
}

func TestCatalog_TeamsFlattenTournamentGroups(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := newServer(t, &hits)
	c := New(Config{
		TeamsURL: srv.URL + "/teams/{league}.json",
		Client:   fetch.NewClient(fetch.Config{RetryDelay: time.Millisecond}),
	})

	teams := c.Teams(context.Background(), "EPL", "WC")
	require.Len(t, teams, 3)
	assert.Equal(t, "Arsenal FC", teams[0].Name)
	assert.Equal(t, "Spain", teams[2].Name)
}

func TestCatalog_UsesSharedCache(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := newServer(t, &hits)
	cache := &memoryCache{data: map[string][]byte{}}
	cfg := Config{
		TeamsURL: srv.URL + "/teams/{league}.json",
		Client:   fetch.NewClient(fetch.Config{RetryDelay: time.Millisecond}),
		Cache:    cache,
		CacheTTL: time.Minute,
	}

	first := New(cfg).Teams(context.Background(), "EPL")
	require.Len(t, first, 1)
	fetched := hits.Load()

	second := New(cfg).Teams(context.Background(), "EPL")
	assert.Equal(t, first, second)
	assert.Equal(t, fetched, hits.Load(), "second catalog is served from the cache")
}
