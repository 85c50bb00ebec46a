package render

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/goalfeed/internal/ingest/fetch"
)

func TestParseHTML(t *testing.T) {
	t.Parallel()

	doc, err := ParseHTML(`<html><body><a href="?match=1"><h2>Arsenal v Chelsea</h2></a></body></html>`)
	require.NoError(t, err)
	assert.Equal(t, "Arsenal v Chelsea", doc.Find(`a[href*="?match="] h2`).Text())
}

func TestHTTPPages(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/gone" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		assert.Equal(t, "Mozilla/5.0", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer srv.Close()

	pages := HTTPPages{
		Client: fetch.NewClient(fetch.Config{RetryDelay: time.Millisecond}),
		Header: map[string]string{"User-Agent": "Mozilla/5.0"},
	}

	html, err := pages.Page(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, html, "ok")

	_, err = pages.Page(context.Background(), srv.URL+"/gone")
	assert.Error(t, err)
}
