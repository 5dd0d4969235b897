package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-podcast-search/catalog"
	"github.com/goliatone/go-podcast-search/itunes"
	"github.com/goliatone/go-podcast-search/repositorycache"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Searcher queries the upstream catalog.
type Searcher interface {
	Search(ctx context.Context, term string) (*itunes.Response, error)
}

// Repositories groups the stores the service reads and writes. They are usually the
// cached decorators from repositorycache.
type Repositories struct {
	Podcasts repository.Repository[*catalog.Podcast]
	Episodes repository.Repository[*catalog.Episode]
	Runs     repository.Repository[*catalog.SearchRun]
}

// queryInvalidator is implemented by repositorycache.CachedRepository.
type queryInvalidator interface {
	InvalidateQueries(ctx context.Context) error
}

// Config tunes population and paging.
type Config struct {
	// RefreshInterval is how long a search run satisfies repeated searches for the
	// same term. Zero always queries upstream.
	RefreshInterval time.Duration
	PageSize        int
	MaxLimit        int
	MaxPages        int
}

// DefaultConfig returns the paging used by the web UI.
func DefaultConfig() Config {
	return Config{
		RefreshInterval: 10 * time.Minute,
		PageSize:        20,
		MaxLimit:        100,
		MaxPages:        5,
	}
}

// Outcome reports what Populate stored.
type Outcome struct {
	Term        string `json:"searchTerm"`
	ResultCount int    `json:"resultCount"`
	NewPodcasts int    `json:"newPodcastsCount"`
	NewEpisodes int    `json:"newEpisodesCount"`
	// Skipped is set when a recent search run made the upstream call unnecessary.
	Skipped bool `json:"skipped"`
}

// TotalNew is the number of rows inserted.
func (o Outcome) TotalNew() int {
	return o.NewPodcasts + o.NewEpisodes
}

// Pagination describes a Results page. Podcasts and episodes are paged independently
// with the same offset and limit.
type Pagination struct {
	Offset       int  `json:"offset"`
	Limit        int  `json:"limit"`
	Total        int  `json:"total"`
	PodcastTotal int  `json:"podcastTotal"`
	EpisodeTotal int  `json:"episodeTotal"`
	HasMore      bool `json:"hasMore"`
}

// Page is one page of formatted results.
type Page struct {
	Podcasts   []PodcastView `json:"podcasts"`
	Episodes   []EpisodeView `json:"episodes"`
	Pagination Pagination    `json:"pagination"`
}

// Len is the number of podcasts and episodes on the page.
func (p Page) Len() int {
	return len(p.Podcasts) + len(p.Episodes)
}

// Service implements read-through population of the catalog and the paged views
// served from it.
type Service struct {
	db       *bun.DB
	repos    Repositories
	upstream Searcher
	cfg      Config
	logger   *zap.Logger
	now      func() time.Time
	inflight singleflight.Group
}

// Option customizes a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService builds a Service. Zero config values fall back to DefaultConfig, except
// RefreshInterval where zero disables skipping.
func NewService(db *bun.DB, repos Repositories, upstream Searcher, cfg Config, opts ...Option) *Service {
	def := DefaultConfig()
	if cfg.PageSize <= 0 {
		cfg.PageSize = def.PageSize
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = def.MaxLimit
	}
	if cfg.MaxLimit < cfg.PageSize {
		cfg.MaxLimit = cfg.PageSize
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = def.MaxPages
	}

	s := &Service{
		db:       db,
		repos:    repos,
		upstream: upstream,
		cfg:      cfg,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the effective configuration.
func (s *Service) Config() Config {
	return s.cfg
}

// Populate fetches term upstream and stores every podcast and episode whose track id
// is not stored yet. Concurrent calls for the same normalized term share one upstream
// request and report the same outcome.
func (s *Service) Populate(ctx context.Context, req Request) (Outcome, error) {
	if err := req.Validate(); err != nil {
		return Outcome{}, err
	}
	term := strings.TrimSpace(req.Term)
	key := NormalizeTerm(term)

	if !req.Force {
		run, err := s.freshRun(ctx, key)
		if err != nil {
			return Outcome{}, err
		}
		if run != nil {
			s.logger.Debug("search run is fresh, skipping upstream",
				zap.String("term", key),
				zap.Time("fetched_at", run.FetchedAt),
			)
			return Outcome{Term: term, ResultCount: run.ResultCount, Skipped: true}, nil
		}
	}

	// the shared call must not fail because the first caller went away
	v, err, shared := s.inflight.Do(key, func() (any, error) {
		return s.populate(context.WithoutCancel(ctx), term, key)
	})
	if err != nil {
		return Outcome{}, err
	}

	out := v.(Outcome)
	out.Term = term
	if shared {
		s.logger.Debug("joined in-flight population", zap.String("term", key))
	}
	return out, nil
}

func (s *Service) populate(ctx context.Context, term, key string) (Outcome, error) {
	started := s.now()
	resp, err := s.upstream.Search(ctx, term)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	b := splitResults(resp, key, s.now().UTC())
	out := Outcome{Term: term, ResultCount: b.resultCount}

	if b.withTrackID == 0 {
		s.logger.Info("upstream returned no storable results",
			zap.String("term", key),
			zap.Int("result_count", b.resultCount),
		)
		return out, nil
	}

	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		podcasts, err := s.newPodcasts(ctx, tx, b)
		if err != nil {
			return err
		}
		episodes, err := s.newEpisodes(ctx, tx, b)
		if err != nil {
			return err
		}

		// a concurrent writer may store some of these between the lookup and the
		// insert; OnConflictIgnore skips those, so count the rows this insert wrote
		if len(podcasts) > 0 {
			ids := podcastRowIDs(podcasts)
			if _, err := s.repos.Podcasts.CreateManyTx(ctx, tx, podcasts, catalog.OnConflictIgnore()); err != nil {
				return fmt.Errorf("storing podcasts: %w", err)
			}
			if out.NewPodcasts, err = s.repos.Podcasts.CountTx(ctx, tx, catalog.ByIDs(ids)); err != nil {
				return fmt.Errorf("counting stored podcasts: %w", err)
			}
		}
		if len(episodes) > 0 {
			ids := episodeRowIDs(episodes)
			if _, err := s.repos.Episodes.CreateManyTx(ctx, tx, episodes, catalog.OnConflictIgnore()); err != nil {
				return fmt.Errorf("storing episodes: %w", err)
			}
			if out.NewEpisodes, err = s.repos.Episodes.CountTx(ctx, tx, catalog.ByIDs(ids)); err != nil {
				return fmt.Errorf("counting stored episodes: %w", err)
			}
		}

		run := &catalog.SearchRun{
			ID:          uuid.New(),
			Term:        key,
			ResultCount: b.resultCount,
			NewPodcasts: out.NewPodcasts,
			NewEpisodes: out.NewEpisodes,
			FetchedAt:   s.now().UTC(),
		}
		if _, err := s.repos.Runs.CreateTx(ctx, tx, run); err != nil {
			return fmt.Errorf("recording search run: %w", err)
		}
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}

	s.invalidate(ctx)

	s.logger.Info("populated search results",
		zap.String("term", key),
		zap.Int("result_count", out.ResultCount),
		zap.Int("new_podcasts", out.NewPodcasts),
		zap.Int("new_episodes", out.NewEpisodes),
		zap.Duration("elapsed", s.now().Sub(started)),
	)
	return out, nil
}

func (s *Service) newPodcasts(ctx context.Context, tx bun.IDB, b batch) ([]*catalog.Podcast, error) {
	if len(b.podcasts) == 0 {
		return nil, nil
	}
	existing, _, err := s.repos.Podcasts.ListTx(ctx, tx, catalog.TrackIDsOnly(), catalog.ByTrackIDs(b.podcastIDs()))
	if err != nil {
		return nil, fmt.Errorf("looking up stored podcasts: %w", err)
	}
	stored := make(map[int64]struct{}, len(existing))
	for _, p := range existing {
		stored[p.TrackID] = struct{}{}
	}

	fresh := make([]*catalog.Podcast, 0, len(b.podcasts))
	for _, p := range b.podcasts {
		if _, ok := stored[p.TrackID]; !ok {
			fresh = append(fresh, p)
		}
	}
	return fresh, nil
}

func (s *Service) newEpisodes(ctx context.Context, tx bun.IDB, b batch) ([]*catalog.Episode, error) {
	if len(b.episodes) == 0 {
		return nil, nil
	}
	existing, _, err := s.repos.Episodes.ListTx(ctx, tx, catalog.TrackIDsOnly(), catalog.ByTrackIDs(b.episodeIDs()))
	if err != nil {
		return nil, fmt.Errorf("looking up stored episodes: %w", err)
	}
	stored := make(map[int64]struct{}, len(existing))
	for _, e := range existing {
		stored[e.TrackID] = struct{}{}
	}

	fresh := make([]*catalog.Episode, 0, len(b.episodes))
	for _, e := range b.episodes {
		if _, ok := stored[e.TrackID]; !ok {
			fresh = append(fresh, e)
		}
	}
	return fresh, nil
}

// freshRun returns the latest run for key when it is younger than the refresh interval.
func (s *Service) freshRun(ctx context.Context, key string) (*catalog.SearchRun, error) {
	if s.cfg.RefreshInterval <= 0 {
		return nil, nil
	}
	// criteria without a cache key always read through to the database
	runs, _, err := s.repos.Runs.List(repositorycache.WithoutCacheKey(ctx), catalog.ForTerm(key), catalog.LatestRuns(1))
	if err != nil {
		return nil, fmt.Errorf("looking up search runs: %w", err)
	}
	if len(runs) == 0 {
		return nil, nil
	}
	if s.now().Sub(runs[0].FetchedAt) >= s.cfg.RefreshInterval {
		return nil, nil
	}
	return runs[0], nil
}

func (s *Service) invalidate(ctx context.Context) {
	for _, repo := range []any{s.repos.Podcasts, s.repos.Episodes, s.repos.Runs} {
		inv, ok := repo.(queryInvalidator)
		if !ok {
			continue
		}
		if err := inv.InvalidateQueries(ctx); err != nil {
			s.logger.Warn("invalidating cached results", zap.Error(err))
		}
	}
}

// Results returns one page of stored podcasts and episodes matching the term, newest
// first.
func (s *Service) Results(ctx context.Context, q Query) (Page, error) {
	q.Term = strings.TrimSpace(q.Term)
	if q.Limit == 0 {
		q.Limit = s.cfg.PageSize
	}
	if err := q.validate(s.cfg.MaxLimit); err != nil {
		return Page{}, err
	}

	term := NormalizeTerm(q.Term)
	ctx = repositorycache.WithCacheKey(ctx, "match", term, q.Offset, q.Limit)

	var (
		podcasts     []*catalog.Podcast
		episodes     []*catalog.Episode
		podcastTotal int
		episodeTotal int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		podcasts, podcastTotal, err = s.repos.Podcasts.List(gctx,
			catalog.MatchingTerm(term), catalog.NewestFirst(), catalog.Page(q.Offset, q.Limit))
		if err != nil {
			return fmt.Errorf("listing podcasts: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		episodes, episodeTotal, err = s.repos.Episodes.List(gctx,
			catalog.MatchingTerm(term), catalog.NewestFirst(), catalog.Page(q.Offset, q.Limit))
		if err != nil {
			return fmt.Errorf("listing episodes: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Page{}, err
	}

	page := Page{
		Podcasts: make([]PodcastView, 0, len(podcasts)),
		Episodes: make([]EpisodeView, 0, len(episodes)),
		Pagination: Pagination{
			Offset:       q.Offset,
			Limit:        q.Limit,
			Total:        podcastTotal + episodeTotal,
			PodcastTotal: podcastTotal,
			EpisodeTotal: episodeTotal,
		},
	}
	page.Pagination.HasMore = q.Offset < podcastTotal-q.Limit || q.Offset < episodeTotal-q.Limit

	for _, p := range podcasts {
		page.Podcasts = append(page.Podcasts, NewPodcastView(p))
	}
	for _, e := range episodes {
		page.Episodes = append(page.Episodes, NewEpisodeView(e))
	}
	return page, nil
}

// Podcast returns the stored podcast with the given track id.
func (s *Service) Podcast(ctx context.Context, trackID int64) (PodcastView, error) {
	ctx = repositorycache.WithCacheKey(ctx, "track", trackID)
	records, _, err := s.repos.Podcasts.List(ctx, catalog.ByTrackIDs([]int64{trackID}))
	if err != nil {
		return PodcastView{}, fmt.Errorf("looking up podcast %d: %w", trackID, err)
	}
	if len(records) == 0 {
		return PodcastView{}, fmt.Errorf("podcast %d: %w", trackID, ErrNotFound)
	}
	return NewPodcastView(records[0]), nil
}

// Episode returns the stored episode with the given track id.
func (s *Service) Episode(ctx context.Context, trackID int64) (EpisodeView, error) {
	ctx = repositorycache.WithCacheKey(ctx, "track", trackID)
	records, _, err := s.repos.Episodes.List(ctx, catalog.ByTrackIDs([]int64{trackID}))
	if err != nil {
		return EpisodeView{}, fmt.Errorf("looking up episode %d: %w", trackID, err)
	}
	if len(records) == 0 {
		return EpisodeView{}, fmt.Errorf("episode %d: %w", trackID, ErrNotFound)
	}
	return NewEpisodeView(records[0]), nil
}

// RecentRuns returns up to limit search runs, newest first.
func (s *Service) RecentRuns(ctx context.Context, limit int) ([]*catalog.SearchRun, error) {
	if limit <= 0 || limit > s.cfg.MaxLimit {
		limit = s.cfg.PageSize
	}
	ctx = repositorycache.WithCacheKey(ctx, "recent", limit)
	runs, _, err := s.repos.Runs.List(ctx, catalog.LatestRuns(limit))
	if err != nil {
		return nil, fmt.Errorf("listing search runs: %w", err)
	}
	return runs, nil
}

// Ping checks the database connection.
func (s *Service) Ping(ctx context.Context) error {
	if s.db == nil {
		return errors.New("search: no database configured")
	}
	return s.db.PingContext(ctx)
}
