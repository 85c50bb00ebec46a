// Package config loads goalfeed settings from defaults, an optional
// config.yaml, an optional .env file and GOALFEED_* environment variables.
package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "GOALFEED"

// Config holds all configuration for the application
type Config struct {
	OutputDir    string             `mapstructure:"output_dir" validate:"required"`
	Log          LogConfig          `mapstructure:"log"`
	HTTP         HTTPConfig         `mapstructure:"http"`
	Render       RenderConfig       `mapstructure:"render"`
	Fuzzy        FuzzyConfig        `mapstructure:"fuzzy"`
	FootballData FootballDataConfig `mapstructure:"football_data"`
	APISports    APISportsConfig    `mapstructure:"api_sports"`
	YouTube      YouTubeConfig      `mapstructure:"youtube"`
	Highlights   HighlightsConfig   `mapstructure:"highlights"`
	Catalog      CatalogConfig      `mapstructure:"catalog"`
	Streams      StreamsConfig      `mapstructure:"streams"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Postgres     PostgresConfig     `mapstructure:"postgres"`
	API          APIConfig          `mapstructure:"api"`
	Scheduler    SchedulerConfig    `mapstructure:"scheduler"`
}

// LogConfig selects the log encoder and level
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

// HTTPConfig tunes the shared upstream fetch client
type HTTPConfig struct {
	Timeout      time.Duration `mapstructure:"timeout" validate:"gt=0"`
	MaxAttempts  int           `mapstructure:"max_attempts" validate:"min=1,max=10"`
	RetryDelay   time.Duration `mapstructure:"retry_delay" validate:"min=0"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes" validate:"gt=0"`
	UserAgent    string        `mapstructure:"user_agent"`
}

// RenderConfig tunes the headless browser
type RenderConfig struct {
	Interval    time.Duration `mapstructure:"interval" validate:"min=0"`
	PageTimeout time.Duration `mapstructure:"page_timeout" validate:"gt=0"`
	Settle      time.Duration `mapstructure:"settle" validate:"min=0"`
}

// FuzzyConfig tunes entity resolution
type FuzzyConfig struct {
	Threshold   float64  `mapstructure:"threshold" validate:"gt=0,lte=1"`
	StopWords   []string `mapstructure:"stop_words"`
	DefaultLogo string   `mapstructure:"default_logo" validate:"required,url"`
}

// FootballDataConfig configures the football-data.org jobs
type FootballDataConfig struct {
	BaseURL         string        `mapstructure:"base_url" validate:"required,url"`
	Tokens          []string      `mapstructure:"tokens"`
	Interval        time.Duration `mapstructure:"interval" validate:"min=0"`
	Season          int           `mapstructure:"season" validate:"min=1900"`
	SeasonOverrides []string      `mapstructure:"season_overrides" validate:"dive,pair"`
	Competitions    []string      `mapstructure:"competitions" validate:"dive,pair"`
	PastDays        int           `mapstructure:"past_days" validate:"min=0"`
	FutureDays      int           `mapstructure:"future_days" validate:"min=0"`
}

// APISportsConfig configures the fixture statistics job
type APISportsConfig struct {
	BaseURL  string        `mapstructure:"base_url" validate:"required,url"`
	Keys     []string      `mapstructure:"keys"`
	Timezone string        `mapstructure:"timezone" validate:"required"`
	Leagues  []string      `mapstructure:"leagues" validate:"dive,pair"`
	DaysBack int           `mapstructure:"days_back" validate:"min=0,max=14"`
	Pause    time.Duration `mapstructure:"pause" validate:"min=0"`
	Window   WindowConfig  `mapstructure:"window"`
}

// WindowConfig limits a job to a daily span of hours. End may be earlier
// than Start for spans crossing midnight.
type WindowConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Start   int    `mapstructure:"start" validate:"min=0,max=23"`
	End     int    `mapstructure:"end" validate:"min=0,max=23"`
	Zone    string `mapstructure:"zone" validate:"required"`
}

// YouTubeConfig configures the shorts and videos feeds
type YouTubeConfig struct {
	BaseURL    string        `mapstructure:"base_url" validate:"required,url"`
	Keys       []string      `mapstructure:"keys"`
	Interval   time.Duration `mapstructure:"interval" validate:"min=0"`
	MaxResults int           `mapstructure:"max_results" validate:"min=1,max=50"`
	Shorts     ShortsConfig  `mapstructure:"shorts"`
	Videos     VideosConfig  `mapstructure:"videos"`
}

// ShortsConfig configures the shorts feed
type ShortsConfig struct {
	Channels   []string `mapstructure:"channels"`
	DaysBack   int      `mapstructure:"days_back" validate:"min=1"`
	MaxSeconds int      `mapstructure:"max_seconds" validate:"min=1"`
	Cap        int      `mapstructure:"cap" validate:"min=0"`
}

// VideosConfig configures the highlight videos feed
type VideosConfig struct {
	Channels   []string `mapstructure:"channels"`
	Query      string   `mapstructure:"query"`
	DaysBack   int      `mapstructure:"days_back" validate:"min=1"`
	MinSeconds int      `mapstructure:"min_seconds" validate:"min=0"`
	MaxSeconds int      `mapstructure:"max_seconds" validate:"gtfield=MinSeconds"`
	PerChannel int      `mapstructure:"per_channel" validate:"min=1"`
	Cap        int      `mapstructure:"cap" validate:"min=0"`
}

// HighlightsConfig configures the highlights job
type HighlightsConfig struct {
	Mode    string   `mapstructure:"mode" validate:"oneof=feed crawl"`
	FeedURL string   `mapstructure:"feed_url" validate:"required_if=Mode feed"`
	BaseURL string   `mapstructure:"base_url" validate:"required_if=Mode crawl"`
	Leagues []string `mapstructure:"leagues" validate:"dive,pair"`
	Cap     int      `mapstructure:"cap" validate:"min=0"`
}

// CatalogConfig locates canonical schedules and team registries. URL
// templates use {league} as the placeholder.
type CatalogConfig struct {
	ScheduleURL     string        `mapstructure:"schedule_url"`
	TeamsURL        string        `mapstructure:"teams_url"`
	ScheduleDir     string        `mapstructure:"schedule_dir"`
	TeamsDir        string        `mapstructure:"teams_dir"`
	ScheduleLeagues []string      `mapstructure:"schedule_leagues" validate:"min=1"`
	TeamLeagues     []string      `mapstructure:"team_leagues" validate:"min=1"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl" validate:"min=0"`
}

// StreamsConfig configures the stream listing job
type StreamsConfig struct {
	DisplayZone string         `mapstructure:"display_zone" validate:"required"`
	Enabled     []string       `mapstructure:"enabled"`
	Sources     []StreamSource `mapstructure:"sources" validate:"dive"`
}

// StreamSource describes an HTML listing by CSS selectors. Empty selectors
// are skipped.
type StreamSource struct {
	Name          string `mapstructure:"name" validate:"required"`
	URL           string `mapstructure:"url" validate:"required,url"`
	Kind          string `mapstructure:"kind" validate:"omitempty,oneof=html text"`
	Render        bool   `mapstructure:"render"`
	Item          string `mapstructure:"item"`
	Teams         string `mapstructure:"teams"`
	HomeIndex     int    `mapstructure:"home_index"`
	AwayIndex     int    `mapstructure:"away_index"`
	Home          string `mapstructure:"home"`
	Away          string `mapstructure:"away"`
	Title         string `mapstructure:"title"`
	League        string `mapstructure:"league"`
	LeagueAttr    string `mapstructure:"league_attr"`
	Link          string `mapstructure:"link"`
	LinkAttr      string `mapstructure:"link_attr"`
	LinkPattern   string `mapstructure:"link_pattern"`
	URLTemplate   string `mapstructure:"url_template"`
	Follow        string `mapstructure:"follow"`
	FollowAttr    string `mapstructure:"follow_attr"`
	Time          string `mapstructure:"time"`
	TimeAttr      string `mapstructure:"time_attr"`
	TimeLayout    string `mapstructure:"time_layout"`
	TimeZone      string `mapstructure:"time_zone"`
	FallbackLabel string `mapstructure:"fallback_label"`
}

// RedisConfig enables the catalog cache and the run publisher. An empty URL
// disables both.
type RedisConfig struct {
	URL    string `mapstructure:"url"`
	Stream string `mapstructure:"stream" validate:"required"`
}

// PostgresConfig enables the run ledger. An empty DSN disables it.
type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

// APIConfig configures the REST server
type APIConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    string `mapstructure:"port" validate:"required,numeric"`
}

// SchedulerConfig configures the cron daemon. Jobs are "name=cron spec"
// pairs.
type SchedulerConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Workers int      `mapstructure:"workers" validate:"min=1,max=64"`
	Jobs    []string `mapstructure:"jobs" validate:"dive,pair"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	// a missing .env is normal
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/goalfeed/")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "read config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}

	if err := Validate(&cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	return &cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("pair", func(fl validator.FieldLevel) bool {
		_, _, ok := splitPair(fl.Field().String())
		return ok
	})
	return v
}

// Validate checks struct constraints
func Validate(cfg *Config) error {
	return validate.Struct(cfg)
}

// Pairs parses "KEY=VALUE" entries into a map, preserving key case.
// Malformed entries are skipped.
func Pairs(entries []string) map[string]string {
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		if k, v, ok := splitPair(e); ok {
			out[k] = v
		}
	}
	return out
}

// PairKeys returns the keys of "KEY=VALUE" entries in order.
func PairKeys(entries []string) []string {
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		if k, _, ok := splitPair(e); ok {
			keys = append(keys, k)
		}
	}
	return keys
}

// IntPairs is Pairs with integer values.
func IntPairs(entries []string) map[string]int {
	out := make(map[string]int, len(entries))
	for k, v := range Pairs(entries) {
		if n, err := strconv.Atoi(v); err == nil {
			out[k] = n
		}
	}
	return out
}

func splitPair(entry string) (string, string, bool) {
	k, v, ok := strings.Cut(entry, "=")
	k, v = strings.TrimSpace(k), strings.TrimSpace(v)
	if !ok || k == "" || v == "" {
		return "", "", false
	}
	return k, v, true
}
