package footballdata

import (
	"strconv"
	"strings"
	"time"

	"github.com/fortuna/goalfeed/internal/store"
)

const (
	defaultRoundName = "Regular Season"
	venueHomeAway    = "Home Away"
	tbd              = "TBD"
)

// ProcessMatch converts an upstream match into a schedule record, deriving
// the winner and league points for finished matches.
func ProcessMatch(m APIMatch) store.Match {
	home := teamOrTBD(m.HomeTeam)
	away := teamOrTBD(m.AwayTeam)
	homeScore, awayScore := m.Score.FullTime.Home, m.Score.FullTime.Away

	homeID, awayID := strconv.FormatInt(home.ID, 10), strconv.FormatInt(away.ID, 10)
	points := map[string]int{homeID: 0, awayID: 0}
	var result *int64

	finished := m.Status == StatusFinished
	if finished && homeScore != nil && awayScore != nil {
		switch {
		case *homeScore > *awayScore:
			result = &home.ID
			points[homeID] = 3
		case *awayScore > *homeScore:
			result = &away.ID
			points[awayID] = 3
		default:
			points[homeID] = 1
			points[awayID] = 1
		}
	}

	status := store.StatusScheduled
	if finished {
		status = store.StatusFinal
	}

	roundName := m.Competition.Name
	if roundName == "" {
		roundName = defaultRoundName
	}

	date, _, _ := strings.Cut(m.UTCDate, "T")

	return store.Match{
		GameID:        m.ID,
		RoundID:       m.Season.CurrentMatchday,
		RoundName:     roundName,
		Date:          date,
		DateTime:      m.UTCDate,
		Status:        status,
		VenueType:     venueHomeAway,
		HomeTeamID:    home.ID,
		AwayTeamID:    away.ID,
		HomeTeamKey:   teamKey(home),
		AwayTeamKey:   teamKey(away),
		HomeTeamName:  home.Name,
		AwayTeamName:  away.Name,
		HomeTeamLogo:  home.Crest,
		AwayTeamLogo:  away.Crest,
		HomeTeamScore: homeScore,
		AwayTeamScore: awayScore,
		Result:        result,
		Points:        points,
		Goals:         []any{},
	}
}

func teamOrTBD(t *APITeam) APITeam {
	if t == nil {
		return APITeam{Name: tbd, ShortName: tbd}
	}
	team := *t
	if team.Name == "" {
		team.Name = tbd
	}
	return team
}

func teamKey(t APITeam) string {
	if t.ShortName != "" {
		return t.ShortName
	}
	runes := []rune(t.Name)
	if len(runes) == 0 {
		return tbd
	}
	if len(runes) > 3 {
		runes = runes[:3]
	}
	return string(runes)
}

// Window bounds which matches a run refreshes: finished matches back to
// Past days ago and unfinished ones up to Future days ahead.
type Window struct {
	Today  time.Time
	Past   int
	Future int
}

// Contains reports whether m falls inside the window. Matches without a
// parseable date are always refreshed.
func (w Window) Contains(m APIMatch) bool {
	kickoff, err := time.Parse(time.RFC3339, m.UTCDate)
	if err != nil {
		return true
	}
	day := truncateDay(kickoff.UTC())
	today := truncateDay(w.Today.UTC())
	if m.Status == StatusFinished {
		return !day.Before(today.AddDate(0, 0, -w.Past))
	}
	return !day.After(today.AddDate(0, 0, w.Future))
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// TotalTable flattens every TOTAL table, which covers grouped competitions.
// When no table is typed TOTAL the first one is used.
func TotalTable(standings []APIStanding) []store.StandingRow {
	rows := make([]store.StandingRow, 0)
	for _, s := range standings {
		if strings.EqualFold(s.Type, "TOTAL") {
			rows = append(rows, s.Table...)
		}
	}
	if len(rows) == 0 && len(standings) > 0 {
		rows = append(rows, standings[0].Table...)
	}
	return rows
}
