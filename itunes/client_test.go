package itunes

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureServer(t *testing.T, status *atomic.Int32, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	body, err := os.ReadFile("testdata/search_serial.json")
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if code := int(status.Load()); code != 0 {
			w.WriteHeader(code)
			_, _ = w.Write([]byte("upstream says no"))
			return
		}
		w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(baseURL string) Config {
	cfg := DefaultConfig()
	cfg.BaseURL = baseURL
	cfg.RetryAttempts = 3
	cfg.RetryDelay = time.Millisecond
	return cfg
}

func TestSearchURL(t *testing.T) {
	client := NewClient(Config{BaseURL: "https://example.test/", Country: "us"})
	got := client.SearchURL("the daily")

	assert.Equal(t,
		"https://example.test/search?country=us&entity=podcastEpisode%2Cpodcast&limit=200&media=podcast&term=the+daily",
		got,
	)
}

func TestSearch_DecodesResults(t *testing.T) {
	var status, hits atomic.Int32
	srv := fixtureServer(t, &status, &hits)

	client := NewClient(testConfig(srv.URL))
	resp, err := client.Search(context.Background(), "  serial ")
	require.NoError(t, err)

	require.Len(t, resp.Results, 4)
	assert.Equal(t, 4, resp.ResultCount)
	assert.Equal(t, int32(1), hits.Load())

	show := resp.Results[0]
	assert.Equal(t, "podcast", show.Kind)
	assert.Equal(t, int64(917918570), show.TrackID)
	assert.Equal(t, "https://feeds.simplecast.com/xl36XBC2", show.FeedURL)
	assert.False(t, show.Explicit())

	episode := resp.Results[1]
	assert.Equal(t, "podcast-episode", episode.Kind)
	require.NotNil(t, episode.TrackTimeMillis)
	assert.Equal(t, int64(3226000), *episode.TrackTimeMillis)
	assert.Equal(t, "It's Baltimore, 1999.", episode.EpisodeDescription())
	assert.Equal(t, Genres{{Name: "News", ID: "1489"}}, episode.Genres)
	assert.Equal(t, Genres{{Name: "News"}, {Name: "Podcasts"}}, show.Genres)

	assert.True(t, resp.Results[2].Explicit())
	assert.False(t, resp.Results[3].HasTrackID())
}

func TestSearch_EmptyTerm(t *testing.T) {
	client := NewClient(DefaultConfig())
	_, err := client.Search(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyTerm)
}

func TestSearch_RetriesServerErrors(t *testing.T) {
	var status, hits atomic.Int32
	status.Store(http.StatusServiceUnavailable)
	srv := fixtureServer(t, &status, &hits)

	client := NewClient(testConfig(srv.URL))
	_, err := client.Search(context.Background(), "serial")
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.Equal(t, "upstream says no", statusErr.Body)
	assert.Equal(t, int32(3), hits.Load())
}

func TestSearch_DoesNotRetryClientErrors(t *testing.T) {
	var status, hits atomic.Int32
	status.Store(http.StatusBadRequest)
	srv := fixtureServer(t, &status, &hits)

	client := NewClient(testConfig(srv.URL))
	_, err := client.Search(context.Background(), "serial")

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.False(t, statusErr.Temporary())
	assert.Equal(t, int32(1), hits.Load())
}

func TestSearch_RecoversAfterTransientFailure(t *testing.T) {
	body, err := os.ReadFile("testdata/search_serial.json")
	require.NoError(t, err)

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	resp, err := client.Search(context.Background(), "serial")
	require.NoError(t, err)
	assert.Len(t, resp.Results, 4)
	assert.Equal(t, int32(2), hits.Load())
}

func TestSearch_InvalidJSON(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("{not json"))
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	_, err := client.Search(context.Background(), "serial")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding itunes response")
	assert.Equal(t, int32(1), hits.Load())
}

func TestResult_ViewURL(t *testing.T) {
	cases := []struct {
		name   string
		result Result
		want   string
	}{
		{"track wins", Result{TrackViewURL: "t", CollectionViewURL: "c", ArtistViewURL: "a"}, "t"},
		{"collection next", Result{CollectionViewURL: "c", ArtistViewURL: "a"}, "c"},
		{"artist last", Result{ArtistViewURL: "a"}, "a"},
		{"none", Result{}, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.result.ViewURL())
		})
	}
}
