package reconciliation

import "github.com/fortuna/goalfeed/internal/store"

// DefaultLeague tags records that could not be tied to a known schedule.
const DefaultLeague = "Goal4u - Undefined"

// FieldMapping configures how a fallback record is synthesized.
type FieldMapping struct {
	Status     string
	League     string
	TimeSuffix string
}

// DefaultFieldMapping matches what highlight consumers expect: a finished
// match at midnight in the undefined league.
func DefaultFieldMapping() FieldMapping {
	return FieldMapping{
		Status:     store.StatusFinished,
		League:     DefaultLeague,
		TimeSuffix: "T00:00:00",
	}
}

// Synthesizer builds minimal canonical-shaped records from a descriptor
// when resolution fails.
type Synthesizer struct {
	mapping FieldMapping
}

// NewSynthesizer fills empty mapping fields from DefaultFieldMapping.
func NewSynthesizer(mapping FieldMapping) *Synthesizer {
	def := DefaultFieldMapping()
	if mapping.Status == "" {
		mapping.Status = def.Status
	}
	if mapping.League == "" {
		mapping.League = def.League
	}
	if mapping.TimeSuffix == "" {
		mapping.TimeSuffix = def.TimeSuffix
	}
	return &Synthesizer{mapping: mapping}
}

// League is the source name attached to synthesized records.
func (s *Synthesizer) League() string {
	return s.mapping.League
}

// Synthesize returns a record holding only what the descriptor carries.
// Identifiers, scores and logos stay empty.
func (s *Synthesizer) Synthesize(d Descriptor) store.Match {
	date := DateKey(d.Date)
	rec := store.Match{
		Date:         date,
		Status:       s.mapping.Status,
		HomeTeamName: d.Home,
		AwayTeamName: d.Away,
		Goals:        []any{},
	}
	if date != "" {
		rec.DateTime = date + s.mapping.TimeSuffix
	}
	return rec
}
