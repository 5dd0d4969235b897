package testsupport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/goliatone/go-podcast-search/itunes"
)

// FakeITunes is an httptest server that answers /search with canned responses per
// term and records every term it was asked for.
type FakeITunes struct {
	*httptest.Server

	mu        sync.Mutex
	responses map[string]itunes.Response
	status    int
	terms     []string
}

// NewFakeITunes starts a fake upstream. Unknown terms get an empty result set.
func NewFakeITunes(t *testing.T) *FakeITunes {
	t.Helper()

	f := &FakeITunes{responses: map[string]itunes.Response{}}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)
	return f
}

// Respond registers the results returned for term. ResultCount is set to the number
// of results.
func (f *FakeITunes) Respond(term string, results ...itunes.Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[strings.ToLower(term)] = itunes.Response{ResultCount: len(results), Results: results}
}

// FailWith makes every request answer with status until it is reset with 0.
func (f *FakeITunes) FailWith(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
}

// Terms returns the terms requested so far, in order.
func (f *FakeITunes) Terms() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.terms...)
}

// Hits is the number of requests served.
func (f *FakeITunes) Hits() int {
	return len(f.Terms())
}

// Client returns an itunes.Client pointed at the fake without retries.
func (f *FakeITunes) Client() *itunes.Client {
	cfg := itunes.DefaultConfig()
	cfg.BaseURL = f.URL
	cfg.RetryAttempts = 1
	return itunes.NewClient(cfg)
}

func (f *FakeITunes) serve(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/search" {
		http.NotFound(w, r)
		return
	}
	term := r.URL.Query().Get("term")

	f.mu.Lock()
	f.terms = append(f.terms, term)
	status := f.status
	resp, ok := f.responses[strings.ToLower(term)]
	f.mu.Unlock()

	if status != 0 {
		http.Error(w, http.StatusText(status), status)
		return
	}
	if !ok {
		resp = itunes.Response{Results: []itunes.Result{}}
	}

	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	_ = json.NewEncoder(w).Encode(resp)
}

// PodcastResult builds a podcast search result.
func PodcastResult(trackID int64, name, artist string) itunes.Result {
	return itunes.Result{
		WrapperType:       "track",
		Kind:              "podcast",
		CollectionID:      trackID,
		TrackID:           trackID,
		TrackName:         name,
		CollectionName:    name,
		ArtistName:        artist,
		CollectionViewURL: "https://podcasts.apple.com/podcast/id" + itoa(trackID),
		FeedURL:           "https://feeds.example.com/" + itoa(trackID),
		ArtworkURL60:      "https://img.example.com/" + itoa(trackID) + "/60.jpg",
		ArtworkURL100:     "https://img.example.com/" + itoa(trackID) + "/100.jpg",
	}
}

// EpisodeResult builds an episode search result belonging to show.
func EpisodeResult(trackID int64, title, show string) itunes.Result {
	millis := int64(1800000)
	return itunes.Result{
		WrapperType:        "podcastEpisode",
		Kind:               "podcast-episode",
		TrackID:            trackID,
		TrackName:          title,
		CollectionName:     show,
		TrackViewURL:       "https://podcasts.apple.com/episode/id" + itoa(trackID),
		EpisodeURL:         "https://cdn.example.com/" + itoa(trackID) + ".mp3",
		EpisodeContentType: "audio",
		ArtworkURL60:       "https://img.example.com/" + itoa(trackID) + "/60.jpg",
		ArtworkURL160:      "https://img.example.com/" + itoa(trackID) + "/160.jpg",
		ReleaseDate:        "2024-01-02T03:04:05Z",
		TrackTimeMillis:    &millis,
		Description:        title + " description",
	}
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
