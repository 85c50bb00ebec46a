package youtube

import (
	"context"
	"strings"
	"time"

	"github.com/fortuna/goalfeed/internal/ingest"
	"github.com/fortuna/goalfeed/internal/platform/logging"
	"github.com/fortuna/goalfeed/internal/store"
)

// ShortsOptions selects short-form uploads
type ShortsOptions struct {
	Channels   []string
	DaysBack   int
	MaxSeconds int
	Now        func() time.Time
	Logger     *logging.Logger
}

// ShortsSource lists recent short uploads of each channel
type ShortsSource struct {
	client *Client
	opts   ShortsOptions
}

// NewShortsSource creates a shorts source
func NewShortsSource(client *Client, opts ShortsOptions) *ShortsSource {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	return &ShortsSource{client: client, opts: opts}
}

// IsShort reports whether an upload counts as a short: tagged #shorts in
// the title, mentioning shorts in the description, or no longer than
// maxSeconds.
func IsShort(title, description string, seconds, maxSeconds int) bool {
	return strings.Contains(strings.ToLower(title), "#shorts") ||
		strings.Contains(strings.ToLower(description), "shorts") ||
		seconds <= maxSeconds
}

// Fetch returns shorts across all channels, channel by channel, newest
// first within a channel. Failed channels are reported as a partial error.
func (s *ShortsSource) Fetch(ctx context.Context) ([]store.Video, error) {
	cutoff := s.opts.Now().UTC().AddDate(0, 0, -s.opts.DaysBack)
	var (
		out      []store.Video
		failures ingest.Failures
	)

	for _, channelID := range s.opts.Channels {
		if ctx.Err() != nil {
			failures.Add(ctx.Err())
			break
		}
		channel, res := s.client.Channel(ctx, channelID)
		failures.Observe(res, "channel "+channelID)

		hits, res := s.client.Search(ctx, SearchQuery{ChannelID: channelID})
		if failures.Observe(res, "search "+channelID) {
			continue
		}

		var ids []string
		snippets := make(map[string]Snippet)
		for _, hit := range hits {
			published, err := time.Parse(time.RFC3339, hit.Snippet.PublishedAt)
			if err != nil || published.Before(cutoff) || hit.ID.VideoID == "" {
				continue
			}
			ids = append(ids, hit.ID.VideoID)
			snippets[hit.ID.VideoID] = hit.Snippet
		}

		details, res := s.client.Videos(ctx, ids)
		failures.Observe(res, "details "+channelID)
		byID := make(map[string]VideoItem, len(details))
		for _, d := range details {
			byID[d.ID] = d
		}

		found := 0
		for _, id := range ids {
			sn := snippets[id]
			detail := byID[id]
			seconds := detail.Seconds()
			if !IsShort(sn.Title, sn.Description, seconds, s.opts.MaxSeconds) {
				continue
			}
			out = append(out, store.Video{
				VideoID:     id,
				Title:       sn.Title,
				Description: sn.Description,
				UploadDate:  sn.PublishedAt,
				ChannelName: fallbackTitle(channel.Title, sn.ChannelTitle),
				ChannelLogo: channel.Logo,
				EmbedURL:    ShortEmbedURL(id),
				Duration:    seconds,
				Tags:        detail.Snippet.Tags,
			})
			found++
		}
		s.opts.Logger.Debug("channel scanned", "channel", channel.Title, "recent", len(ids), "shorts", found)
	}

	return out, failures.Err()
}

// VideosOptions selects highlight-length uploads
type VideosOptions struct {
	Channels   []string
	Query      string
	DaysBack   int
	MinSeconds int
	MaxSeconds int
	PerChannel int
	Now        func() time.Time
	Logger     *logging.Logger
}

// VideosSource lists recent highlight videos of each channel
type VideosSource struct {
	client *Client
	opts   VideosOptions
}

// NewVideosSource creates a videos source
func NewVideosSource(client *Client, opts VideosOptions) *VideosSource {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	if opts.PerChannel <= 0 {
		opts.PerChannel = 1
	}
	return &VideosSource{client: client, opts: opts}
}

// Fetch returns up to PerChannel videos per channel whose duration lies in
// [MinSeconds, MaxSeconds].
func (s *VideosSource) Fetch(ctx context.Context) ([]store.Video, error) {
	after := s.opts.Now().UTC().AddDate(0, 0, -s.opts.DaysBack)
	var (
		out      []store.Video
		failures ingest.Failures
	)

	for _, channelID := range s.opts.Channels {
		if ctx.Err() != nil {
			failures.Add(ctx.Err())
			break
		}
		channel, res := s.client.Channel(ctx, channelID)
		failures.Observe(res, "channel "+channelID)

		hits, res := s.client.Search(ctx, SearchQuery{ChannelID: channelID, Query: s.opts.Query, PublishedAfter: after})
		if failures.Observe(res, "search "+channelID) || len(hits) == 0 {
			continue
		}

		ids := make([]string, 0, len(hits))
		for _, hit := range hits {
			if hit.ID.VideoID != "" {
				ids = append(ids, hit.ID.VideoID)
			}
		}
		details, res := s.client.Videos(ctx, ids)
		if failures.Observe(res, "details "+channelID) && len(details) == 0 {
			continue
		}

		kept := 0
		for _, d := range details {
			if kept == s.opts.PerChannel {
				break
			}
			seconds := d.Seconds()
			if seconds < s.opts.MinSeconds || seconds > s.opts.MaxSeconds {
				continue
			}
			out = append(out, store.Video{
				VideoID:     d.ID,
				Title:       d.Snippet.Title,
				UploadDate:  d.Snippet.PublishedAt,
				ChannelName: fallbackTitle(d.Snippet.ChannelTitle, channel.Title),
				ChannelLogo: channel.LogoLarge,
				EmbedURL:    VideoEmbedURL(d.ID),
				Thumbnail:   d.Snippet.Thumbnail(),
				Duration:    seconds,
				Tags:        d.Snippet.Tags,
			})
			kept++
		}
	}

	return out, failures.Err()
}

func fallbackTitle(values ...string) string {
	if v := ingest.FallbackString(values...); v != "" {
		return v
	}
	return "Unknown"
}
