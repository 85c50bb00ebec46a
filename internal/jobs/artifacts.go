package jobs

// Artifact directories under the output root, one per job.
const (
	MatchesDir    = "matches"
	TeamsDir      = "teams"
	StandingsDir  = "standing"
	ScorersDir    = "scorers"
	StatsDir      = "stats"
	HighlightsDir = "Highlights"
	ShortsDir     = "shorts_data"
	VideosDir     = "videos"
	StreamsDir    = "json"
)

// ArtifactDirs maps job names to the directory their artifacts live in.
func ArtifactDirs() map[string]string {
	return map[string]string{
		"matches":    MatchesDir,
		"teams":      TeamsDir,
		"standings":  StandingsDir,
		"scorers":    ScorersDir,
		"stats":      StatsDir,
		"highlights": HighlightsDir,
		"shorts":     ShortsDir,
		"videos":     VideosDir,
		"streams":    StreamsDir,
	}
}
