package reconciliation

import (
	"sync"
	"time"

	"github.com/fortuna/goalfeed/internal/platform/logging"
	"github.com/fortuna/goalfeed/internal/store"
)

// FallbackPolicy decides what happens to items that do not resolve
type FallbackPolicy string

const (
	// KeepFallback emits a synthesized record tagged as a fallback
	KeepFallback FallbackPolicy = "keep_fallback"

	// RequireOfficial drops items without an official match
	RequireOfficial FallbackPolicy = "require_official"
)

// Outcome is what the engine hands to a job for one item
type Outcome struct {
	Record     store.Match
	Source     string
	Official   bool
	Keep       bool
	Resolution Resolution
}

// Metrics tracks resolution statistics
type Metrics struct {
	TotalResolutions int       `json:"total_resolutions"`
	Matched          int       `json:"matched"`
	Fallbacks        int       `json:"fallbacks"`
	Dropped          int       `json:"dropped"`
	LastResolution   time.Time `json:"last_resolution"`
}

// Engine resolves descriptors and applies the fallback policy
type Engine struct {
	resolver    *Resolver
	synthesizer *Synthesizer
	policy      FallbackPolicy
	logger      *logging.Logger

	mu      sync.Mutex
	metrics Metrics
}

// NewEngine creates a reconciliation engine
func NewEngine(resolver *Resolver, synthesizer *Synthesizer, policy FallbackPolicy, logger *logging.Logger) *Engine {
	if resolver == nil {
		resolver = NewResolver(Config{})
	}
	if synthesizer == nil {
		synthesizer = NewSynthesizer(DefaultFieldMapping())
	}
	if policy == "" {
		policy = KeepFallback
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Engine{
		resolver:    resolver,
		synthesizer: synthesizer,
		policy:      policy,
		logger:      logger.With("component", "reconciliation"),
	}
}

// Reconcile resolves d against sources. described reports whether a
// descriptor could be derived at all; an underivable item is treated as
// unresolved.
func (e *Engine) Reconcile(d Descriptor, described bool, sources []Source) Outcome {
	var res Resolution
	if described {
		res = e.resolver.Resolve(d, sources)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.metrics.TotalResolutions++
	e.metrics.LastResolution = time.Now()

	if res.Matched {
		e.metrics.Matched++
		e.logger.Debug("resolved",
			"home", d.Home, "away", d.Away, "date", d.Date,
			"game_id", *res.ID, "source", res.Source, "score", res.Score)
		return Outcome{
			Record:     *res.Record,
			Source:     res.Source,
			Official:   true,
			Keep:       true,
			Resolution: res,
		}
	}

	if e.policy == RequireOfficial {
		e.metrics.Dropped++
		e.logger.Debug("unresolved, dropping",
			"home", d.Home, "away", d.Away, "date", d.Date,
			"best_score", res.Score, "candidates", res.Candidates)
		return Outcome{Resolution: res}
	}

	e.metrics.Fallbacks++
	e.logger.Debug("unresolved, using fallback",
		"home", d.Home, "away", d.Away, "date", d.Date,
		"best_score", res.Score, "candidates", res.Candidates)
	return Outcome{
		Record:     e.synthesizer.Synthesize(d),
		Source:     e.synthesizer.League(),
		Keep:       true,
		Resolution: res,
	}
}

// GetMetrics returns a copy of the current metrics
func (e *Engine) GetMetrics() Metrics {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.metrics
}

// ResetMetrics clears the counters
func (e *Engine) ResetMetrics() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.metrics = Metrics{LastResolution: time.Now()}
}
