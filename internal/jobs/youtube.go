package jobs

import (
	"path/filepath"
	"time"

	"github.com/fortuna/goalfeed/internal/platform/logging"
	"github.com/fortuna/goalfeed/internal/store"
)

const (
	defaultShortsCap = 150
	defaultVideosCap = 100
)

// VideoFeedConfig wires a YouTube feed job. Source is a
// youtube.ShortsSource or youtube.VideosSource.
type VideoFeedConfig struct {
	Source Source[store.Video]
	Dir    string
	Cap    int
	Logger *logging.Logger
	Now    func() time.Time
}

// NewShortsJob prepends unseen shorts to shorts_data/shorts.json, keeping
// the newest Cap entries.
func NewShortsJob(cfg VideoFeedConfig) *Pipeline[store.Video, store.Video] {
	return videoFeed("shorts", filepath.Join(cfg.Dir, ShortsDir, "shorts.json"), defaultShortsCap, cfg)
}

// NewVideosJob prepends unseen highlight videos to videos/videos.json.
func NewVideosJob(cfg VideoFeedConfig) *Pipeline[store.Video, store.Video] {
	return videoFeed("videos", filepath.Join(cfg.Dir, VideosDir, "videos.json"), defaultVideosCap, cfg)
}

func videoFeed(name, path string, defaultCap int, cfg VideoFeedConfig) *Pipeline[store.Video, store.Video] {
	limit := cfg.Cap
	if limit <= 0 {
		limit = defaultCap
	}
	return &Pipeline[store.Video, store.Video]{
		JobName: name,
		Source:  cfg.Source,
		ItemKey: store.VideoKey,
		Build:   identity[store.Video],
		Key:     store.VideoKey,
		Store:   store.NewJSONFile[store.Video](path),
		Merge:   store.Options[store.Video]{Policy: store.PrependNewOnly, MaxLen: limit},
		Logger:  cfg.Logger,
		Now:     cfg.Now,
	}
}
