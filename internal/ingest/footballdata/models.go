package footballdata

import "github.com/fortuna/goalfeed/internal/store"

// Upstream status values
const (
	StatusFinished  = "FINISHED"
	StatusScheduled = "SCHEDULED"
)

// APITeam is the team shape embedded in matches.
type APITeam struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"shortName"`
	TLA       string `json:"tla"`
	Crest     string `json:"crest"`
}

// APIScore holds goals for one period.
type APIScore struct {
	Home *int `json:"home"`
	Away *int `json:"away"`
}

// APIMatch is one entry of /competitions/{code}/matches.
type APIMatch struct {
	ID       int64  `json:"id"`
	UTCDate  string `json:"utcDate"`
	Status   string `json:"status"`
	Matchday *int   `json:"matchday"`
	Season   struct {
		CurrentMatchday int    `json:"currentMatchday"`
		StartDate       string `json:"startDate"`
	} `json:"season"`
	Competition struct {
		Name string `json:"name"`
		Code string `json:"code"`
	} `json:"competition"`
	HomeTeam *APITeam `json:"homeTeam"`
	AwayTeam *APITeam `json:"awayTeam"`
	Score    struct {
		FullTime APIScore `json:"fullTime"`
	} `json:"score"`
}

type matchesResponse struct {
	Matches []APIMatch `json:"matches"`
}

type teamsResponse struct {
	Teams []store.Team `json:"teams"`
}

// APIStanding is one table of /competitions/{code}/standings.
type APIStanding struct {
	Stage string              `json:"stage"`
	Type  string              `json:"type"`
	Group string              `json:"group"`
	Table []store.StandingRow `json:"table"`
}

type standingsResponse struct {
	Standings []APIStanding `json:"standings"`
}

type scorersResponse struct {
	Scorers []store.Scorer `json:"scorers"`
}
