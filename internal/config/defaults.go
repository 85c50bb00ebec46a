package config

import (
	"time"

	"github.com/spf13/viper"
)

var defaultChannels = []string{
	"UC14UlmYlSNiQCBe9Eookf_A", // FC Barcelona
	"UCWV3obpZVGgJ3j9FVhEjF2Q", // Real Madrid
	"UCkzCjdRMrW2vXLx8mvPVLdQ", // Manchester City
	"UC9LQwHZoucFT94I2h6JOcjw", // Liverpool
	"UCt9a_qP9CqHCNwilf-iULag", // PSG
	"UCLzKhsxrExAC6yAdtZ-BOWw", // Juventus
	"UCKcx1uK38H4AOkmfv4ywlrg", // AC Milan
	"UCvXzEblUa0cfny4HAJ_ZOWw", // Inter
	"UCSZ21xyG8w_33KriMM69IxQ",
	"UCooTLkxcpnTNx6vfOovfBFA",
	"UCd09ztChTkJ9dlY6RLawSog",
	"UC2bW_AY9BlbYLGJSXAbjS4Q",
	"UCWsDFcIhY2DBi3GB5uykGXA",
	"UCQBxzdEPXjy05MtpfbdtMxQ",
	"UCSZbXT5TLLW_i-5W8FZpFsg",
	"UCE97AW7eR8VVbVPBy4cCLKg",
	"UCKvn9VBLAiLiYL4FFJHri6g",
	"UCI4hFxNmsvfkus2-XC9MOng",
	"UCG5qGWdu8nIRZqJ_GgDwQ-w", // Premier League
	"UCU2PacFf99vhb3hNiYDmxww", // Champions League
	"UCuzKFwdh7z2GHcIOX_tXgxA", // Atletico Madrid
	"UC3Ad7MMhJ1NHAkYbtgbVJ1Q",
	"UCyGa1YEx9ST66rYrJTGIKOw", // UEFA
	"UCcclZ7Nbh0U383eP0N-nV0g", // 433
	"UCBTy8j2cPy6zw68godcE7MQ", // AFTV
	"UCK8rTVgp3-MebXkmeJcQb1Q", // Borussia Dortmund
	"UCnpdLn1-k-DcyWi0bNezRig",
	"UCUGj4_2zT8gY_O_xaiCsR6A",
	"UCL6KKxaCCnOJFaxV53Clp1A",
	"UC_apha4piyJCHSuYZbSi8uA",
	"UCeBYAZ84AQA2WVHGjpKRy7A",
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("output_dir", ".")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("http.timeout", 15*time.Second)
	v.SetDefault("http.max_attempts", 3)
	v.SetDefault("http.retry_delay", 2*time.Second)
	v.SetDefault("http.max_body_bytes", 6<<20)
	v.SetDefault("http.user_agent", "")

	v.SetDefault("render.interval", 2*time.Second)
	v.SetDefault("render.page_timeout", 60*time.Second)
	v.SetDefault("render.settle", 2*time.Second)

	v.SetDefault("fuzzy.threshold", 0.6)
	v.SetDefault("fuzzy.stop_words", []string{})
	v.SetDefault("fuzzy.default_logo", "https://raw.githubusercontent.com/gowrapavan/Goal4u/main/public/assets/img/tv-logo/aves.png")

	v.SetDefault("football_data.base_url", "https://api.football-data.org/v4")
	v.SetDefault("football_data.tokens", []string{})
	v.SetDefault("football_data.interval", 6*time.Second)
	v.SetDefault("football_data.season", 2025)
	v.SetDefault("football_data.season_overrides", []string{"WC=2026"})
	v.SetDefault("football_data.competitions", []string{
		"DEB=BL1", "ELC=ELC", "EPL=PL", "ESP=PD", "FRL1=FL1", "ITSA=SA", "MLS=MLS",
		"UCL=CL", "WC=WC", "DED=DED", "BSA=BSA", "EC=EC", "POR=PPL",
	})
	v.SetDefault("football_data.past_days", 7)
	v.SetDefault("football_data.future_days", 14)

	v.SetDefault("api_sports.base_url", "https://v3.football.api-sports.io")
	v.SetDefault("api_sports.keys", []string{})
	v.SetDefault("api_sports.timezone", "Europe/London")
	v.SetDefault("api_sports.leagues", []string{"DEB=78", "EPL=39", "ESP=140", "FRL1=61", "ITSA=135"})
	v.SetDefault("api_sports.days_back", 2)
	v.SetDefault("api_sports.pause", 6*time.Second)
	v.SetDefault("api_sports.window.enabled", false)
	v.SetDefault("api_sports.window.start", 18)
	v.SetDefault("api_sports.window.end", 3)
	v.SetDefault("api_sports.window.zone", "Asia/Kolkata")

	v.SetDefault("youtube.base_url", "https://www.googleapis.com/youtube/v3")
	v.SetDefault("youtube.keys", []string{})
	v.SetDefault("youtube.interval", 200*time.Millisecond)
	v.SetDefault("youtube.max_results", 30)
	v.SetDefault("youtube.shorts.channels", defaultChannels)
	v.SetDefault("youtube.shorts.days_back", 30)
	v.SetDefault("youtube.shorts.max_seconds", 120)
	v.SetDefault("youtube.shorts.cap", 150)
	v.SetDefault("youtube.videos.channels", defaultChannels)
	v.SetDefault("youtube.videos.query", "highlights")
	v.SetDefault("youtube.videos.days_back", 60)
	v.SetDefault("youtube.videos.min_seconds", 60)
	v.SetDefault("youtube.videos.max_seconds", 600)
	v.SetDefault("youtube.videos.per_channel", 1)
	v.SetDefault("youtube.videos.cap", 100)

	v.SetDefault("highlights.mode", "feed")
	v.SetDefault("highlights.feed_url", "https://raw.githubusercontent.com/gowrapavan/shortsdata/main/Highlights/hoofoot.json")
	v.SetDefault("highlights.base_url", "https://hoofoot.com/")
	v.SetDefault("highlights.leagues", []string{"EPL=58", "ESP=59", "DEB=55", "ITSA=150", "FRL1=136", "UCL=78", "DED=63"})
	v.SetDefault("highlights.cap", 0)

	v.SetDefault("catalog.schedule_url", "https://raw.githubusercontent.com/gowrapavan/shortsdata/main/matches/{league}.json")
	v.SetDefault("catalog.teams_url", "https://raw.githubusercontent.com/gowrapavan/shortsdata/main/teams/{league}.json")
	v.SetDefault("catalog.schedule_dir", "")
	v.SetDefault("catalog.teams_dir", "")
	v.SetDefault("catalog.schedule_leagues", []string{"EPL", "ESP", "FRL1", "ITSA", "DEB"})
	v.SetDefault("catalog.team_leagues", []string{"EPL", "ESP", "FRL1", "ITSA", "DEB", "DED", "UCL", "WC"})
	v.SetDefault("catalog.cache_ttl", 30*time.Minute)

	v.SetDefault("streams.display_zone", "Asia/Kolkata")
	v.SetDefault("streams.enabled", []string{})

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.stream", "goalfeed.jobs.completed")

	v.SetDefault("postgres.dsn", "")

	v.SetDefault("api.enabled", true)
	v.SetDefault("api.port", "8080")

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.workers", 4)
	v.SetDefault("scheduler.jobs", []string{
		"matches=0 */6 * * *",
		"teams=0 3 * * 1",
		"standings=15 */6 * * *",
		"scorers=30 */12 * * *",
		"stats=*/30 * * * *",
		"highlights=5 * * * *",
		"shorts=0 */3 * * *",
		"videos=20 */6 * * *",
		"streams=*/15 * * * *",
	})
}
