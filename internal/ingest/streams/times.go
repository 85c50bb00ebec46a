package streams

import (
	"strings"
	"time"
)

// DisplayLayout is how stream times are written. The zone abbreviation of
// Asia/Kolkata renders as IST.
const DisplayLayout = "2006-01-02 15:04 MST"

var guessLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04",
	"15:04",
}

// ConvertTime parses raw in the source zone and renders it in the display
// zone. Clock-only values take today's date in the source zone. Values that
// do not parse yield "".
func ConvertTime(raw, layout string, src, display *time.Location, now time.Time) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	layouts := guessLayouts
	if layout != "" {
		layouts = []string{layout}
	}
	for _, l := range layouts {
		t, err := time.ParseInLocation(l, raw, src)
		if err != nil {
			continue
		}
		if t.Year() == 0 {
			today := now.In(src)
			t = time.Date(today.Year(), today.Month(), today.Day(), t.Hour(), t.Minute(), 0, 0, src)
		}
		return t.In(display).Format(DisplayLayout)
	}
	return ""
}

// SameDay reports whether a rendered stream time falls on now's date in the
// display zone.
func SameDay(rendered string, now time.Time, display *time.Location) bool {
	if len(rendered) < 10 {
		return false
	}
	return rendered[:10] == now.In(display).Format("2006-01-02")
}

func loadZone(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
