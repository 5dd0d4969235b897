package di

import (
	"context"
	"fmt"
	"net/http"

	"github.com/goliatone/go-podcast-search/cache"
	"github.com/goliatone/go-podcast-search/catalog"
	"github.com/goliatone/go-podcast-search/internal/config"
	"github.com/goliatone/go-podcast-search/internal/httpapi"
	"github.com/goliatone/go-podcast-search/internal/logging"
	"github.com/goliatone/go-podcast-search/internal/store"
	"github.com/goliatone/go-podcast-search/itunes"
	"github.com/goliatone/go-podcast-search/repositorycache"
	"github.com/goliatone/go-podcast-search/search"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Container wires the application from a config.Config. It owns the database handle,
// the cache service shared by every cached repository, the upstream client, the search
// service and the HTTP handler.
type Container struct {
	config        config.Config
	logger        *zap.Logger
	db            *bun.DB
	cacheService  cache.CacheService
	keySerializer cache.KeySerializer

	podcasts *repositorycache.CachedRepository[*catalog.Podcast]
	episodes *repositorycache.CachedRepository[*catalog.Episode]
	runs     *repositorycache.CachedRepository[*catalog.SearchRun]

	upstream search.Searcher
	search   *search.Service
	handler  *httpapi.Handler
}

// Option customizes a Container.
type Option func(*options)

type options struct {
	logger     *zap.Logger
	upstream   search.Searcher
	httpClient *http.Client
}

// WithLogger uses logger instead of building one from the log section.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithSearcher replaces the iTunes client.
func WithSearcher(s search.Searcher) Option {
	return func(o *options) { o.upstream = s }
}

// WithHTTPClient sets the http.Client used by the iTunes client.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// NewContainer validates cfg, connects to the database (migrating it when
// database.auto_migrate is set) and builds every component.
func NewContainer(ctx context.Context, cfg config.Config, opts ...Option) (*Container, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := o.logger
	if logger == nil {
		var err error
		if logger, err = logging.New(cfg.Log); err != nil {
			return nil, err
		}
	}

	cacheService, err := cache.NewCacheService(cfg.CacheConfig())
	if err != nil {
		return nil, fmt.Errorf("creating cache service: %w", err)
	}

	db, err := store.Open(ctx, cfg.StoreConfig())
	if err != nil {
		return nil, err
	}
	if cfg.Database.AutoMigrate {
		if err := store.Migrate(ctx, db, cfg.Database.Driver); err != nil {
			db.Close()
			return nil, err
		}
	}

	c := &Container{
		config:        cfg,
		logger:        logger,
		db:            db,
		cacheService:  cacheService,
		keySerializer: cache.NewDefaultKeySerializer(),
	}
	if cfg.Cache.HashKeys {
		c.keySerializer = cache.NewHashedKeySerializer(c.keySerializer)
	}

	cacheLogger := logger.Named("cache")
	c.podcasts = NewCachedRepository(c, catalog.NewPodcastRepository(db), repositorycache.WithLogger(cacheLogger))
	c.episodes = NewCachedRepository(c, catalog.NewEpisodeRepository(db), repositorycache.WithLogger(cacheLogger))
	c.runs = NewCachedRepository(c, catalog.NewSearchRunRepository(db), repositorycache.WithLogger(cacheLogger))

	c.upstream = o.upstream
	if c.upstream == nil {
		clientOpts := []itunes.Option{itunes.WithLogger(logger.Named("itunes"))}
		if o.httpClient != nil {
			clientOpts = append(clientOpts, itunes.WithHTTPClient(o.httpClient))
		}
		c.upstream = itunes.NewClient(cfg.ITunesConfig(), clientOpts...)
	}

	c.search = search.NewService(db, search.Repositories{
		Podcasts: c.podcasts,
		Episodes: c.episodes,
		Runs:     c.runs,
	}, c.upstream, cfg.SearchConfig(), search.WithLogger(logger.Named("search")))

	c.handler = httpapi.New(c.search, httpapi.WithLogger(logger.Named("http")))

	logger.Debug("container ready",
		zap.String("driver", cfg.Database.Driver),
		zap.Bool("hashed_cache_keys", cfg.Cache.HashKeys),
	)
	return c, nil
}

// NewContainerWithDefaults builds a container from config.Default.
func NewContainerWithDefaults(ctx context.Context, opts ...Option) (*Container, error) {
	return NewContainer(ctx, config.Default(), opts...)
}

func (c *Container) Config() config.Config {
	return c.config
}

func (c *Container) Logger() *zap.Logger {
	return c.logger
}

func (c *Container) DB() *bun.DB {
	return c.db
}

// CacheService returns the cache shared by the cached repositories.
func (c *Container) CacheService() cache.CacheService {
	return c.cacheService
}

func (c *Container) KeySerializer() cache.KeySerializer {
	return c.keySerializer
}

func (c *Container) Podcasts() *repositorycache.CachedRepository[*catalog.Podcast] {
	return c.podcasts
}

func (c *Container) Episodes() *repositorycache.CachedRepository[*catalog.Episode] {
	return c.episodes
}

func (c *Container) Runs() *repositorycache.CachedRepository[*catalog.SearchRun] {
	return c.runs
}

func (c *Container) Search() *search.Service {
	return c.search
}

// Handler is the HTTP handler served by the serve command.
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Migrate applies pending migrations.
func (c *Container) Migrate(ctx context.Context) error {
	return store.Migrate(ctx, c.db, c.config.Database.Driver)
}

// Close releases the database and flushes the logger.
func (c *Container) Close() error {
	err := c.db.Close()
	// stderr/stdout sinks report EINVAL on Sync on some platforms
	_ = c.logger.Sync()
	if err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// NewCachedRepository wraps base with the container's cache service and key serializer.
//
// Since Go methods cannot have type parameters, this is provided as a package-level function.
func NewCachedRepository[T any](c *Container, base repository.Repository[T], opts ...repositorycache.Option) *repositorycache.CachedRepository[T] {
	return repositorycache.New(base, c.cacheService, c.keySerializer, opts...)
}
