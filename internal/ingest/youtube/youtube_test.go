package youtube

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/goalfeed/internal/ingest"
	"github.com/fortuna/goalfeed/internal/ingest/fetch"
)

var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return now }

func TestParseISODuration(t *testing.T) {
	t.Parallel()

	cases := map[string]int{
		"PT4M13S":   253,
		"PT1H":      3600,
		"PT45S":     45,
		"P1DT1S":    86401,
		"PT10M":     600,
		"P0D":       0,
		"":          0,
		"4 minutes": 0,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseISODuration(in), in)
	}
}

func TestIsShort(t *testing.T) {
	t.Parallel()

	assert.True(t, IsShort("Skills #Shorts", "", 300, 120))
	assert.True(t, IsShort("Goal", "watch more shorts", 300, 120))
	assert.True(t, IsShort("Goal", "", 120, 120))
	assert.False(t, IsShort("Full match", "", 121, 120))
}

// fakeAPI serves a channel, a search listing and video details. Requests
// with the key "spent" are rejected with 403.
func fakeAPI(t *testing.T, detailCalls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") == "spent" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		switch r.URL.Path {
		case "/channels":
			_, _ = w.Write([]byte(`{"items":[{"id":"UC1","snippet":{"title":"Club TV","thumbnails":{"default":{"url":"small.jpg"},"high":{"url":"large.jpg"}}}}]}`))
		case "/search":
			_, _ = w.Write([]byte(`{"items":[
				{"id":{"videoId":"v1"},"snippet":{"publishedAt":"2025-03-09T10:00:00Z","title":"Goal #shorts","channelTitle":"Club TV"}},
				{"id":{"videoId":"v2"},"snippet":{"publishedAt":"2025-03-08T10:00:00Z","title":"Match highlights","channelTitle":"Club TV"}},
				{"id":{"videoId":"v3"},"snippet":{"publishedAt":"2024-12-01T10:00:00Z","title":"Old clip #shorts","channelTitle":"Club TV"}}
			]}`))
		case "/videos":
			detailCalls.Add(1)
			ids := strings.Split(r.URL.Query().Get("id"), ",")
			var items []string
			for _, id := range ids {
				dur := "PT5M"
				if id == "v1" {
					dur = "PT30S"
				}
				items = append(items, fmt.Sprintf(`{"id":%q,"snippet":{"title":"t-%s","publishedAt":"2025-03-09T10:00:00Z","channelTitle":"Club TV","tags":["goal"],"thumbnails":{"medium":{"url":"m.jpg"}}},"contentDetails":{"duration":%q}}`, id, id, dur))
			}
			_, _ = w.Write([]byte(`{"items":[` + strings.Join(items, ",") + `]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func testClient(url string, keys ...string) *Client {
	return NewClient(Config{
		BaseURL: url,
		Keys:    keys,
		Fetch:   fetch.NewClient(fetch.Config{RetryDelay: time.Millisecond}),
	})
}

func TestShortsSource(t *testing.T) {
	t.Parallel()

	var details atomic.Int32
	srv := fakeAPI(t, &details)
	defer srv.Close()

	src := NewShortsSource(testClient(srv.URL, "spent", "good"), ShortsOptions{
		Channels:   []string{"UC1"},
		DaysBack:   30,
		MaxSeconds: 120,
		Now:        fixedNow,
	})
	videos, err := src.Fetch(context.Background())
	require.NoError(t, err)

	require.Len(t, videos, 1)
	v := videos[0]
	assert.Equal(t, "v1", v.VideoID)
	assert.Equal(t, "Club TV", v.ChannelName)
	assert.Equal(t, "small.jpg", v.ChannelLogo)
	assert.Equal(t, ShortEmbedURL("v1"), v.EmbedURL)
	assert.Equal(t, 30, v.Duration)
	assert.Equal(t, []string{"goal"}, v.Tags)
	assert.Equal(t, int32(1), details.Load())
}

func TestVideosSource(t *testing.T) {
	t.Parallel()

	var details atomic.Int32
	srv := fakeAPI(t, &details)
	defer srv.Close()

	src := NewVideosSource(testClient(srv.URL, "good"), VideosOptions{
		Channels:   []string{"UC1", "UC2"},
		Query:      "highlights",
		DaysBack:   60,
		MinSeconds: 60,
		MaxSeconds: 600,
		PerChannel: 1,
		Now:        fixedNow,
	})
	videos, err := src.Fetch(context.Background())
	require.NoError(t, err)

	require.Len(t, videos, 2, "one per channel")
	assert.Equal(t, "v2", videos[0].VideoID)
	assert.Equal(t, 300, videos[0].Duration)
	assert.Equal(t, "m.jpg", videos[0].Thumbnail)
	assert.Equal(t, "large.jpg", videos[0].ChannelLogo)
	assert.Equal(t, VideoEmbedURL("v2"), videos[0].EmbedURL)
}

func TestShortsSource_ExhaustedKeysArePartial(t *testing.T) {
	t.Parallel()

	var details atomic.Int32
	srv := fakeAPI(t, &details)
	defer srv.Close()

	src := NewShortsSource(testClient(srv.URL, "spent"), ShortsOptions{
		Channels: []string{"UC1", "UC2"},
		DaysBack: 30,
		Now:      fixedNow,
	})
	videos, err := src.Fetch(context.Background())

	assert.Empty(t, videos)
	var partial *ingest.PartialError
	require.True(t, errors.As(err, &partial))
	assert.Equal(t, 4, partial.Count, "channel and search per channel")
	assert.Zero(t, details.Load())
}

func TestVideos_Chunks(t *testing.T) {
	t.Parallel()

	var details atomic.Int32
	srv := fakeAPI(t, &details)
	defer srv.Close()

	ids := make([]string, 120)
	for i := range ids {
		ids[i] = fmt.Sprintf("id%d", i)
	}
	items, res := testClient(srv.URL, "good").Videos(context.Background(), ids)

	require.True(t, res.OK())
	assert.Len(t, items, 120)
	assert.Equal(t, int32(3), details.Load())
}
