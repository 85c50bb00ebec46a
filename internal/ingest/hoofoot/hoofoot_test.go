package hoofoot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/goalfeed/internal/ingest"
	"github.com/fortuna/goalfeed/internal/ingest/fetch"
)

type fakePages map[string]string

func (f fakePages) Page(_ context.Context, url string) (string, error) {
	html, ok := f[url]
	if !ok {
		return "", errors.Newf("no page %s", url)
	}
	return html, nil
}

func TestSlugDate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Arsenal_v_Chelsea_2025_03_01", Slug("https://hoofoot.com/?match=Arsenal_v_Chelsea_2025_03_01"))
	assert.Equal(t, "2025-03-01", SlugDate("Arsenal_v_Chelsea_2025_03_01"))
	assert.Empty(t, SlugDate("Arsenal_v_Chelsea"))
	assert.Empty(t, Slug("::not a url"))
}

func TestCrawler(t *testing.T) {
	t.Parallel()

	pages := fakePages{
		"https://hoofoot.com/?idp=58": `<html><body>
			<a href="?match=Arsenal_v_Chelsea_2025_03_01"><h2>Arsenal v Chelsea</h2></a>
			<a href="?match=Arsenal_v_Chelsea_2025_03_01"><h2>Arsenal v Chelsea</h2></a>
			<a href="?match=Untitled_2025_03_01"></a>
			<a href="/?match=Spurs_v_Everton_2025_03_02"><h2>Spurs v Everton</h2></a>
		</body></html>`,
		"https://hoofoot.com/?idp=150": `<html><body>
			<a href="?match=Spurs_v_Everton_2025_03_02"><h2>Spurs v Everton</h2></a>
		</body></html>`,
		"https://hoofoot.com/?match=Arsenal_v_Chelsea_2025_03_01": `<div id="player"><a href="https://embed.example/abc">watch</a></div>`,
		"https://hoofoot.com/?match=Spurs_v_Everton_2025_03_02":   `<div id="other"></div>`,
	}

	c := NewCrawler(pages, "", []League{{Code: "EPL", ID: 58}, {Code: "ITSA", ID: 150}, {Code: "DEB", ID: 55}}, nil)
	items, err := c.Fetch(context.Background())

	var partial *ingest.PartialError
	require.True(t, errors.As(err, &partial), "the DEB page is missing")
	assert.Equal(t, 1, partial.Count)

	require.Len(t, items, 2)
	assert.Equal(t, ingest.RawItem{
		Source:   SourceName,
		SourceID: "Arsenal_v_Chelsea_2025_03_01",
		Title:    "Arsenal v Chelsea",
		Date:     "2025-03-01",
		League:   "EPL",
		URL:      "https://hoofoot.com/?match=Arsenal_v_Chelsea_2025_03_01",
		EmbedURL: "https://embed.example/abc",
	}, items[0])
	assert.Equal(t, "EPL", items[1].League, "first league wins for duplicated links")
	assert.Empty(t, items[1].EmbedURL)
}

func TestFeedSource(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/down" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`[
			{"id":"h1","title":"Arsenal v Chelsea","match_date":"2025_03_01","match_url":"https://hoofoot.com/?match=Arsenal_v_Chelsea_2025_03_01","embed_url":"e1"},
			{"title":"Spurs v Everton","match_url":"https://hoofoot.com/?match=Spurs_v_Everton_2025_03_02","embed_url":"e2"},
			{"title":"no id","match_url":"https://hoofoot.com/"}
		]`))
	}))
	defer srv.Close()

	client := fetch.NewClient(fetch.Config{RetryDelay: time.Millisecond, MaxAttempts: 1})

	items, err := FeedSource{Client: client, URL: srv.URL + "/feed.json"}.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "2025-03-01", items[0].Date)
	assert.Equal(t, "h1", items[0].SourceID)
	assert.Equal(t, "Spurs_v_Everton_2025_03_02", items[1].SourceID)
	assert.Equal(t, "2025-03-02", items[1].Date)

	_, err = FeedSource{Client: client, URL: srv.URL + "/down"}.Fetch(context.Background())
	assert.Error(t, err)
}
