// Package httpapi serves the search service over HTTP: a JSON API under /api, a
// server-rendered results page at / and a health check.
package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-podcast-search/catalog"
	"github.com/goliatone/go-podcast-search/search"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// MaxFeedPages bounds the pages parameter of /api/feed and /.
const MaxFeedPages = 20

// Service is the part of search.Service the handlers use.
type Service interface {
	Populate(ctx context.Context, req search.Request) (search.Outcome, error)
	Results(ctx context.Context, q search.Query) (search.Page, error)
	NewFeed(term string) *search.Feed
	Podcast(ctx context.Context, trackID int64) (search.PodcastView, error)
	Episode(ctx context.Context, trackID int64) (search.EpisodeView, error)
	RecentRuns(ctx context.Context, limit int) ([]*catalog.SearchRun, error)
	Ping(ctx context.Context) error
}

// Handler routes requests to the search service.
type Handler struct {
	svc    Service
	logger *zap.Logger
	router http.Handler
	ui     *pageRenderer
}

// Option customizes a Handler.
type Option func(*Handler)

// WithLogger sets the logger used for access logs and failures.
func WithLogger(logger *zap.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

// New builds the router with its middleware chain.
func New(svc Service, opts ...Option) *Handler {
	h := &Handler{
		svc:    svc,
		logger: zap.NewNop(),
		ui:     newPageRenderer(),
	}
	for _, opt := range opts {
		opt(h)
	}

	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/search", h.search).Methods(http.MethodGet, http.MethodPost)
	api.HandleFunc("/results", h.results).Methods(http.MethodGet)
	api.HandleFunc("/feed", h.feed).Methods(http.MethodGet)
	api.HandleFunc("/podcasts/{trackId:[0-9]+}", h.podcast).Methods(http.MethodGet)
	api.HandleFunc("/episodes/{trackId:[0-9]+}", h.episode).Methods(http.MethodGet)
	api.HandleFunc("/searches", h.searches).Methods(http.MethodGet)

	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	r.HandleFunc("/", h.page).Methods(http.MethodGet)

	// wrap the whole router so unmatched paths and methods are logged and tagged too
	h.router = RequestID(AccessLog(h.logger)(Recover(h.logger)(r)))
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

type searchResponse struct {
	Message string `json:"message"`
	search.Outcome
	TotalNewResults int `json:"totalNewResults"`
}

// search populates the store. offset and limit are accepted for compatibility and
// ignored: upstream is always asked for the configured limit.
func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	term := strings.TrimSpace(q.Get("q"))
	if term == "" {
		badRequest(w, msgTermRequired)
		return
	}
	force, err := optionalBool(q.Get("force"))
	if err != nil {
		badRequest(w, "force must be a boolean")
		return
	}

	out, err := h.svc.Populate(r.Context(), search.Request{Term: term, Force: force})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	msg := "Search completed and results saved"
	if out.Skipped {
		msg = "Search results are up to date"
	}
	writeJSON(w, http.StatusOK, searchResponse{
		Message:         msg,
		Outcome:         out,
		TotalNewResults: out.TotalNew(),
	})
}

func (h *Handler) results(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	term := strings.TrimSpace(q.Get("q"))
	if term == "" {
		badRequest(w, msgTermRequired)
		return
	}
	offset, err := optionalInt(q.Get("offset"))
	if err != nil {
		badRequest(w, "offset must be an integer")
		return
	}
	limit, err := optionalInt(q.Get("limit"))
	if err != nil {
		badRequest(w, "limit must be an integer")
		return
	}

	page, err := h.svc.Results(r.Context(), search.Query{Term: term, Offset: offset, Limit: limit})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

type feedResponse struct {
	Pages      []search.Page `json:"pages"`
	NextOffset int           `json:"nextOffset"`
	Done       bool          `json:"done"`
}

func (h *Handler) feed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	term := strings.TrimSpace(q.Get("q"))
	if term == "" {
		badRequest(w, msgTermRequired)
		return
	}
	pages, err := pagesParam(q.Get("pages"))
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	feed := h.svc.NewFeed(term)
	loaded, err := feed.Collect(r.Context(), pages)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, feedResponse{
		Pages:      loaded,
		NextOffset: feed.NextOffset(),
		Done:       feed.Done(),
	})
}

func (h *Handler) podcast(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["trackId"], 10, 64)
	if err != nil {
		badRequest(w, "trackId must be an integer")
		return
	}
	view, err := h.svc.Podcast(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) episode(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["trackId"], 10, 64)
	if err != nil {
		badRequest(w, "trackId must be an integer")
		return
	}
	view, err := h.svc.Episode(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type runsResponse struct {
	Searches []*catalog.SearchRun `json:"searches"`
}

func (h *Handler) searches(w http.ResponseWriter, r *http.Request) {
	limit, err := optionalInt(r.URL.Query().Get("limit"))
	if err != nil {
		badRequest(w, "limit must be an integer")
		return
	}
	runs, err := h.svc.RecentRuns(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if runs == nil {
		runs = []*catalog.SearchRun{}
	}
	writeJSON(w, http.StatusOK, runsResponse{Searches: runs})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.svc.Ping(ctx); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func optionalInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func optionalBool(s string) (bool, error) {
	if s == "" {
		return false, nil
	}
	return strconv.ParseBool(s)
}

type paramError string

func (e paramError) Error() string { return string(e) }

func pagesParam(s string) (int, error) {
	if s == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > MaxFeedPages {
		return 0, paramError("pages must be between 1 and " + strconv.Itoa(MaxFeedPages))
	}
	return n, nil
}
