// Package ingest holds the shapes shared by upstream adapters.
package ingest

import (
	"regexp"
	"strings"
)

// RawItem is an upstream record before identity resolution. It lives for a
// single fetch cycle.
type RawItem struct {
	Source   string         `json:"source"`
	SourceID string         `json:"id"`
	Title    string         `json:"title"`
	Home     string         `json:"home,omitempty"`
	Away     string         `json:"away,omitempty"`
	Date     string         `json:"match_date"`
	Time     string         `json:"time,omitempty"`
	League   string         `json:"league,omitempty"`
	URL      string         `json:"match_url"`
	EmbedURL string         `json:"embed_url"`
	Payload  map[string]any `json:"payload,omitempty"`
}

var titleSeparator = regexp.MustCompile(`(?i)\s+(?:v|vs|vs\.)\s+`)

// SplitTitle splits "Home v Away" or "Home vs Away" into its two sides.
func SplitTitle(title string) (home, away string, ok bool) {
	parts := titleSeparator.Split(strings.TrimSpace(title), -1)
	if len(parts) != 2 {
		return "", "", false
	}
	home, away = strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	if home == "" || away == "" {
		return "", "", false
	}
	return home, away, true
}

// Teams returns the explicit team names or, failing that, the sides parsed
// from the title.
func (r RawItem) Teams() (home, away string, ok bool) {
	if strings.TrimSpace(r.Home) != "" && strings.TrimSpace(r.Away) != "" {
		return strings.TrimSpace(r.Home), strings.TrimSpace(r.Away), true
	}
	return SplitTitle(r.Title)
}

// ShortLabel builds a compact "abc-xyz" tag from the first three letters of
// each side, falling back to the raw prefix for names without letters.
func ShortLabel(home, away string) string {
	return labelPart(home) + "-" + labelPart(away)
}

func labelPart(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	var letters strings.Builder
	for _, r := range lower {
		if r >= 'a' && r <= 'z' {
			letters.WriteRune(r)
			if letters.Len() == 3 {
				break
			}
		}
	}
	if letters.Len() > 0 {
		return letters.String()
	}
	runes := []rune(lower)
	if len(runes) > 3 {
		runes = runes[:3]
	}
	return string(runes)
}
