package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.OutputDir)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 15*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, 3, cfg.HTTP.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.HTTP.RetryDelay)
	assert.InDelta(t, 0.6, cfg.Fuzzy.Threshold, 1e-9)
	assert.Equal(t, 2025, cfg.FootballData.Season)
	assert.Equal(t, 150, cfg.YouTube.Shorts.Cap)
	assert.Equal(t, 100, cfg.YouTube.Videos.Cap)
	assert.Equal(t, "feed", cfg.Highlights.Mode)
	assert.Equal(t, "goalfeed.jobs.completed", cfg.Redis.Stream)
	assert.Empty(t, cfg.Redis.URL)
	assert.Empty(t, cfg.Postgres.DSN)

	comps := Pairs(cfg.FootballData.Competitions)
	assert.Equal(t, "PL", comps["EPL"], "league aliases keep their case")
	assert.Equal(t, 2026, IntPairs(cfg.FootballData.SeasonOverrides)["WC"])
	assert.Equal(t, 39, IntPairs(cfg.APISports.Leagues)["EPL"])
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("GOALFEED_OUTPUT_DIR", "/tmp/goalfeed")
	t.Setenv("GOALFEED_YOUTUBE_KEYS", "a,b,c")
	t.Setenv("GOALFEED_HTTP_RETRY_DELAY", "500ms")
	t.Setenv("GOALFEED_FUZZY_THRESHOLD", "0.75")
	t.Setenv("GOALFEED_LOG_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/goalfeed", cfg.OutputDir)
	assert.Equal(t, []string{"a", "b", "c"}, cfg.YouTube.Keys)
	assert.Equal(t, 500*time.Millisecond, cfg.HTTP.RetryDelay)
	assert.InDelta(t, 0.75, cfg.Fuzzy.Threshold, 1e-9)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("GOALFEED_LOG_LEVEL", "loud")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate_Pairs(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Scheduler.Jobs = []string{"matches=@every 1h", "broken"}
	assert.Error(t, Validate(cfg))

	cfg.Scheduler.Jobs = []string{"matches=@every 1h"}
	assert.NoError(t, Validate(cfg))
}

func TestPairs(t *testing.T) {
	t.Parallel()

	entries := []string{"EPL=PL", " ESP = PD ", "bad", "=x", "y="}
	assert.Equal(t, map[string]string{"EPL": "PL", "ESP": "PD"}, Pairs(entries))
	assert.Equal(t, []string{"EPL", "ESP"}, PairKeys(entries))
	assert.Equal(t, map[string]int{"WC": 2026}, IntPairs([]string{"WC=2026", "X=abc"}))
}
