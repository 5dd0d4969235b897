package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goliatone/go-podcast-search/cache"
	"github.com/goliatone/go-podcast-search/catalog"
	"github.com/goliatone/go-podcast-search/pkg/testsupport"
	"github.com/goliatone/go-podcast-search/repositorycache"
	"github.com/goliatone/go-podcast-search/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fixture struct {
	handler *Handler
	fake    *testsupport.FakeITunes
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testsupport.NewTestDB(t)
	cacheService, err := cache.NewCacheService(cache.DefaultConfig())
	require.NoError(t, err)
	serializer := cache.NewDefaultKeySerializer()

	fake := testsupport.NewFakeITunes(t)
	svc := search.NewService(db, search.Repositories{
		Podcasts: repositorycache.New(catalog.NewPodcastRepository(db), cacheService, serializer),
		Episodes: repositorycache.New(catalog.NewEpisodeRepository(db), cacheService, serializer),
		Runs:     repositorycache.New(catalog.NewSearchRunRepository(db), cacheService, serializer),
	}, fake.Client(), search.DefaultConfig())

	fake.Respond("serial",
		testsupport.PodcastResult(100, "Serial", "This American Life"),
		testsupport.EpisodeResult(200, "The Alibi", "Serial"),
	)
	return &fixture{handler: New(svc), fake: fake}
}

func (f *fixture) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestSearch(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/api/search?q=serial&offset=40&limit=10")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	body := decode(t, rec)
	assert.Equal(t, "Search completed and results saved", body["message"])
	assert.Equal(t, "serial", body["searchTerm"])
	assert.EqualValues(t, 2, body["resultCount"])
	assert.EqualValues(t, 1, body["newPodcastsCount"])
	assert.EqualValues(t, 1, body["newEpisodesCount"])
	assert.EqualValues(t, 2, body["totalNewResults"])
	assert.Equal(t, false, body["skipped"])
	assert.Equal(t, []string{"serial"}, f.fake.Terms())

	body = decode(t, f.get(t, "/api/search?q=serial"))
	assert.Equal(t, true, body["skipped"])
	assert.EqualValues(t, 0, body["totalNewResults"])

	body = decode(t, f.get(t, "/api/search?q=serial&force=true"))
	assert.Equal(t, false, body["skipped"])
	assert.Equal(t, 2, f.fake.Hits())
}

func TestSearch_Errors(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		target string
		status int
		msg    string
	}{
		{"/api/search", http.StatusBadRequest, "Search term is required"},
		{"/api/search?q=%20%20", http.StatusBadRequest, "Search term is required"},
		{"/api/search?q=serial&force=maybe", http.StatusBadRequest, "force must be a boolean"},
	}
	for _, tc := range cases {
		rec := f.get(t, tc.target)
		assert.Equal(t, tc.status, rec.Code, tc.target)
		assert.Equal(t, tc.msg, decode(t, rec)["error"], tc.target)
	}

	rec := f.get(t, "/api/search?q="+strings.Repeat("a", search.MaxTermLength+1))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f.fake.FailWith(http.StatusServiceUnavailable)
	rec = f.get(t, "/api/search?q=serial")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "Upstream search failed", decode(t, rec)["error"])
}

func TestResults(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusOK, f.get(t, "/api/search?q=serial").Code)

	rec := f.get(t, "/api/results?q=serial&limit=5")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var page search.Page
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Podcasts, 1)
	require.Len(t, page.Episodes, 1)
	assert.Equal(t, "100", page.Podcasts[0].ID)
	assert.Equal(t, "The Alibi", page.Episodes[0].Title)
	assert.Equal(t, search.Pagination{
		Limit:        5,
		Total:        2,
		PodcastTotal: 1,
		EpisodeTotal: 1,
	}, page.Pagination)

	for _, target := range []string{
		"/api/results",
		"/api/results?q=serial&offset=x",
		"/api/results?q=serial&limit=x",
		"/api/results?q=serial&limit=1000",
		"/api/results?q=serial&offset=-1",
	} {
		assert.Equal(t, http.StatusBadRequest, f.get(t, target).Code, target)
	}
}

func TestFeed(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/api/feed?q=serial&pages=3")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body feedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Pages, 2)
	assert.Equal(t, 2, body.Pages[0].Len())
	assert.Zero(t, body.Pages[1].Len())
	assert.True(t, body.Done)
	assert.Equal(t, 1, f.fake.Hits())

	assert.Equal(t, http.StatusBadRequest, f.get(t, "/api/feed?q=serial&pages=0").Code)
	assert.Equal(t, http.StatusBadRequest, f.get(t, "/api/feed?q=serial&pages=99").Code)
	assert.Equal(t, http.StatusBadRequest, f.get(t, "/api/feed").Code)
}

func TestLookups(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusOK, f.get(t, "/api/search?q=serial").Code)

	rec := f.get(t, "/api/podcasts/100")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Serial", decode(t, rec)["title"])

	rec = f.get(t, "/api/episodes/200")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "200", decode(t, rec)["_id"])

	rec = f.get(t, "/api/podcasts/200")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not found", decode(t, rec)["error"])

	assert.Equal(t, http.StatusNotFound, f.get(t, "/api/episodes/abc").Code)

	rec = f.get(t, "/api/searches?limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	var runs runsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs.Searches, 1)
	assert.Equal(t, "serial", runs.Searches[0].Term)
}

func TestHealthAndRequestID(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))

	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/results?q=serial", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestUnmatchedRequestsAreTaggedAndLogged(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	handler := New(nil, WithLogger(zap.New(core)))

	cases := map[string]struct {
		method string
		target string
		status int
	}{
		"unknown path":   {http.MethodGet, "/nope", http.StatusNotFound},
		"unknown method": {http.MethodDelete, "/api/results?q=serial", http.StatusMethodNotAllowed},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.target, nil)
			req.Header.Set(RequestIDHeader, name)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, name, rec.Header().Get(RequestIDHeader))

			entries := logs.FilterField(zap.String("request_id", name)).All()
			require.Len(t, entries, 1)
			assert.EqualValues(t, tc.status, entries[0].ContextMap()["status"])
		})
	}
}

func TestPage(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), `name="q"`)
	assert.Zero(t, f.fake.Hits())

	rec = f.get(t, "/?q=serial")
	require.Equal(t, http.StatusOK, rec.Code)
	html := rec.Body.String()
	assert.Contains(t, html, "The Alibi")
	assert.Contains(t, html, "This American Life")
	assert.Contains(t, html, "Load more")
	assert.Contains(t, html, "pages=2")

	rec = f.get(t, "/?q=serial&pages=2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "Load more")

	rec = f.get(t, "/?q=nothing")
	assert.Contains(t, rec.Body.String(), "No results for")

	f.fake.FailWith(http.StatusInternalServerError)
	rec = f.get(t, "/?q=other")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "Upstream search failed")
}
