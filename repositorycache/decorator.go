package repositorycache

import (
	"context"
	"errors"
	"strings"

	"github.com/goliatone/go-podcast-search/cache"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

var _ repository.Repository[any] = (*CachedRepository[any])(nil)

// Method names double as key prefixes.
const (
	methodGet             = "Get"
	methodGetByID         = "GetByID"
	methodGetByIdentifier = "GetByIdentifier"
	methodList            = "List"
	methodCount           = "Count"
)

// listResult keeps records and total together under one key.
type listResult[T any] struct {
	Records []T `json:"records"`
	Total   int `json:"total"`
}

// CachedRepository decorates a go-repository-bun repository with read-through caching.
type CachedRepository[T any] struct {
	base          repository.Repository[T]
	cache         cache.CacheService
	keySerializer cache.KeySerializer
	namespace     string
	keys          *xsync.MapOf[string, struct{}]
	logger        *zap.Logger
}

// Option customizes a CachedRepository.
type Option func(*options)

type options struct {
	namespace string
	logger    *zap.Logger
}

// WithNamespace overrides the key namespace derived from the record type.
func WithNamespace(ns string) Option {
	return func(o *options) { o.namespace = ns }
}

// WithLogger attaches a logger used to report invalidation failures.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New wraps base so its reads go through cacheService.
func New[T any](base repository.Repository[T], cacheService cache.CacheService, keySerializer cache.KeySerializer, opts ...Option) *CachedRepository[T] {
	o := options{namespace: namespaceFor[T](), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if keySerializer == nil {
		keySerializer = cache.NewDefaultKeySerializer()
	}
	return &CachedRepository[T]{
		base:          base,
		cache:         cacheService,
		keySerializer: keySerializer,
		namespace:     o.namespace,
		keys:          xsync.NewMapOf[string, struct{}](),
		logger:        o.logger.With(zap.String("cache_namespace", o.namespace)),
	}
}

// Namespace returns the prefix shared by every key this repository writes.
func (c *CachedRepository[T]) Namespace() string {
	return c.namespace
}

// TrackedKeys returns the number of keys registered since the last invalidation.
func (c *CachedRepository[T]) TrackedKeys() int {
	return c.keys.Size()
}

func (c *CachedRepository[T]) Get(ctx context.Context, criteria ...repository.SelectCriteria) (T, error) {
	key, ok := c.readKey(ctx, methodGet, len(criteria))
	if !ok {
		return c.base.Get(ctx, criteria...)
	}
	return cache.GetOrFetch(ctx, c.cache, key, func(ctx context.Context) (T, error) {
		return c.base.Get(ctx, criteria...)
	})
}

func (c *CachedRepository[T]) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (T, error) {
	key, ok := c.readKey(ctx, methodGetByID, len(criteria), id)
	if !ok {
		return c.base.GetByID(ctx, id, criteria...)
	}
	return cache.GetOrFetch(ctx, c.cache, key, func(ctx context.Context) (T, error) {
		return c.base.GetByID(ctx, id, criteria...)
	})
}

// List caches records and total as one entry.
func (c *CachedRepository[T]) List(ctx context.Context, criteria ...repository.SelectCriteria) ([]T, int, error) {
	key, ok := c.readKey(ctx, methodList, len(criteria))
	if !ok {
		return c.base.List(ctx, criteria...)
	}
	res, err := cache.GetOrFetch(ctx, c.cache, key, func(ctx context.Context) (listResult[T], error) {
		records, total, err := c.base.List(ctx, criteria...)
		return listResult[T]{Records: records, Total: total}, err
	})
	if err != nil {
		return nil, 0, err
	}
	return res.Records, res.Total, nil
}

func (c *CachedRepository[T]) Count(ctx context.Context, criteria ...repository.SelectCriteria) (int, error) {
	key, ok := c.readKey(ctx, methodCount, len(criteria))
	if !ok {
		return c.base.Count(ctx, criteria...)
	}
	return cache.GetOrFetch(ctx, c.cache, key, func(ctx context.Context) (int, error) {
		return c.base.Count(ctx, criteria...)
	})
}

func (c *CachedRepository[T]) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (T, error) {
	key, ok := c.readKey(ctx, methodGetByIdentifier, len(criteria), identifier)
	if !ok {
		return c.base.GetByIdentifier(ctx, identifier, criteria...)
	}
	return cache.GetOrFetch(ctx, c.cache, key, func(ctx context.Context) (T, error) {
		return c.base.GetByIdentifier(ctx, identifier, criteria...)
	})
}

// Writes pass through. Inserts only drop query results; updates and deletes drop everything.

func (c *CachedRepository[T]) Create(ctx context.Context, record T, criteria ...repository.InsertCriteria) (T, error) {
	result, err := c.base.Create(ctx, record, criteria...)
	if err == nil {
		c.invalidate(ctx, c.InvalidateQueries)
	}
	return result, err
}

// CreateTx invalidates immediately; callers must invalidate again once the
// transaction commits, since a concurrent read may have cached pre-commit state.
func (c *CachedRepository[T]) CreateTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.InsertCriteria) (T, error) {
	result, err := c.base.CreateTx(ctx, tx, record, criteria...)
	if err == nil {
		c.invalidate(ctx, c.InvalidateQueries)
	}
	return result, err
}

func (c *CachedRepository[T]) CreateMany(ctx context.Context, records []T, criteria ...repository.InsertCriteria) ([]T, error) {
	result, err := c.base.CreateMany(ctx, records, criteria...)
	if err == nil {
		c.invalidate(ctx, c.InvalidateQueries)
	}
	return result, err
}

func (c *CachedRepository[T]) CreateManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.InsertCriteria) ([]T, error) {
	result, err := c.base.CreateManyTx(ctx, tx, records, criteria...)
	if err == nil {
		c.invalidate(ctx, c.InvalidateQueries)
	}
	return result, err
}

func (c *CachedRepository[T]) GetOrCreate(ctx context.Context, record T) (T, error) {
	result, err := c.base.GetOrCreate(ctx, record)
	if err == nil {
		c.invalidate(ctx, c.InvalidateQueries)
	}
	return result, err
}

func (c *CachedRepository[T]) GetOrCreateTx(ctx context.Context, tx bun.IDB, record T) (T, error) {
	result, err := c.base.GetOrCreateTx(ctx, tx, record)
	if err == nil {
		c.invalidate(ctx, c.InvalidateQueries)
	}
	return result, err
}

func (c *CachedRepository[T]) Update(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error) {
	result, err := c.base.Update(ctx, record, criteria...)
	if err == nil {
		c.invalidate(ctx, c.InvalidateAll)
	}
	return result, err
}

func (c *CachedRepository[T]) UpdateTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.UpdateCriteria) (T, error) {
	result, err := c.base.UpdateTx(ctx, tx, record, criteria...)
	if err == nil {
		c.invalidate(ctx, c.InvalidateAll)
	}
	return result, err
}

func (c *CachedRepository[T]) UpdateMany(ctx context.Context, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	result, err := c.base.UpdateMany(ctx, records, criteria...)
	if err == nil {
		c.invalidate(ctx, c.InvalidateAll)
	}
	return result, err
}

func (c *CachedRepository[T]) UpdateManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	result, err := c.base.UpdateManyTx(ctx, tx, records, criteria...)
	if err == nil {
		c.invalidate(ctx, c.InvalidateAll)
	}
	return result, err
}

func (c *CachedRepository[T]) Upsert(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error) {
	result, err := c.base.Upsert(ctx, record, criteria...)
	if err == nil {
		c.invalidate(ctx, c.InvalidateAll)
	}
	return result, err
}

func (c *CachedRepository[T]) UpsertTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.UpdateCriteria) (T, error) {
	result, err := c.base.UpsertTx(ctx, tx, record, criteria...)
	if err == nil {
		c.invalidate(ctx, c.InvalidateAll)
	}
	return result, err
}

func (c *CachedRepository[T]) UpsertMany(ctx context.Context, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	result, err := c.base.UpsertMany(ctx, records, criteria...)
	if err == nil {
		c.invalidate(ctx, c.InvalidateAll)
	}
	return result, err
}

func (c *CachedRepository[T]) UpsertManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	result, err := c.base.UpsertManyTx(ctx, tx, records, criteria...)
	if err == nil {
		c.invalidate(ctx, c.InvalidateAll)
	}
	return result, err
}

func (c *CachedRepository[T]) Delete(ctx context.Context, record T) error {
	err := c.base.Delete(ctx, record)
	if err == nil {
		c.invalidate(ctx, c.InvalidateAll)
	}
	return err
}

func (c *CachedRepository[T]) DeleteTx(ctx context.Context, tx bun.IDB, record T) error {
	err := c.base.DeleteTx(ctx, tx, record)
	if err == nil {
		c.invalidate(ctx, c.InvalidateAll)
	}
	return err
}

func (c *CachedRepository[T]) DeleteMany(ctx context.Context, criteria ...repository.DeleteCriteria) error {
	err := c.base.DeleteMany(ctx, criteria...)
	if err == nil {
		c.invalidate(ctx, c.InvalidateAll)
	}
	return err
}

func (c *CachedRepository[T]) DeleteManyTx(ctx context.Context, tx bun.IDB, criteria ...repository.DeleteCriteria) error {
	err := c.base.DeleteManyTx(ctx, tx, criteria...)
	if err == nil {
		c.invalidate(ctx, c.InvalidateAll)
	}
	return err
}

func (c *CachedRepository[T]) DeleteWhere(ctx context.Context, criteria ...repository.DeleteCriteria) error {
	err := c.base.DeleteWhere(ctx, criteria...)
	if err == nil {
		c.invalidate(ctx, c.InvalidateAll)
	}
	return err
}

func (c *CachedRepository[T]) DeleteWhereTx(ctx context.Context, tx bun.IDB, criteria ...repository.DeleteCriteria) error {
	err := c.base.DeleteWhereTx(ctx, tx, criteria...)
	if err == nil {
		c.invalidate(ctx, c.InvalidateAll)
	}
	return err
}

func (c *CachedRepository[T]) ForceDelete(ctx context.Context, record T) error {
	err := c.base.ForceDelete(ctx, record)
	if err == nil {
		c.invalidate(ctx, c.InvalidateAll)
	}
	return err
}

func (c *CachedRepository[T]) ForceDeleteTx(ctx context.Context, tx bun.IDB, record T) error {
	err := c.base.ForceDeleteTx(ctx, tx, record)
	if err == nil {
		c.invalidate(ctx, c.InvalidateAll)
	}
	return err
}

// Reads inside a transaction never touch the cache.

func (c *CachedRepository[T]) GetTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) (T, error) {
	return c.base.GetTx(ctx, tx, criteria...)
}

func (c *CachedRepository[T]) GetByIDTx(ctx context.Context, tx bun.IDB, id string, criteria ...repository.SelectCriteria) (T, error) {
	return c.base.GetByIDTx(ctx, tx, id, criteria...)
}

func (c *CachedRepository[T]) ListTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) ([]T, int, error) {
	return c.base.ListTx(ctx, tx, criteria...)
}

func (c *CachedRepository[T]) CountTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) (int, error) {
	return c.base.CountTx(ctx, tx, criteria...)
}

func (c *CachedRepository[T]) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (T, error) {
	return c.base.GetByIdentifierTx(ctx, tx, identifier, criteria...)
}

func (c *CachedRepository[T]) Raw(ctx context.Context, sql string, args ...any) ([]T, error) {
	return c.base.Raw(ctx, sql, args...)
}

func (c *CachedRepository[T]) RawTx(ctx context.Context, tx bun.IDB, sql string, args ...any) ([]T, error) {
	return c.base.RawTx(ctx, tx, sql, args...)
}

func (c *CachedRepository[T]) Handlers() repository.ModelHandlers[T] {
	return c.base.Handlers()
}

// InvalidateQueries drops cached List, Count and Get results. Lookups by id survive,
// which is correct for write-once records.
func (c *CachedRepository[T]) InvalidateQueries(ctx context.Context) error {
	return errors.Join(
		c.invalidateMethod(ctx, methodList),
		c.invalidateMethod(ctx, methodCount),
		c.invalidateMethod(ctx, methodGet),
	)
}

// InvalidateAll drops every key in the namespace.
func (c *CachedRepository[T]) InvalidateAll(ctx context.Context) error {
	return c.invalidatePrefix(ctx, c.namespace+".")
}

// readKey builds the key for a read and reports whether the read may be cached.
func (c *CachedRepository[T]) readKey(ctx context.Context, method string, criteria int, args ...any) (string, bool) {
	parts, explicit := cacheKeyFromContext(ctx)
	if criteria > 0 && !explicit {
		return "", false
	}
	key := c.keySerializer.SerializeKey(c.methodPrefix(method), append(args, parts...)...)
	c.keys.Store(key, struct{}{})
	return key, true
}

func (c *CachedRepository[T]) methodPrefix(method string) string {
	return c.namespace + "." + method
}

func (c *CachedRepository[T]) invalidate(ctx context.Context, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		c.logger.Warn("cache invalidation failed", zap.Error(err))
	}
}

// invalidateMethod drops the argument-less key of method and every key extending it
// with arguments. Methods that merely share a name prefix (Get and GetByID) are left alone.
func (c *CachedRepository[T]) invalidateMethod(ctx context.Context, method string) error {
	prefix := c.methodPrefix(method)
	err := c.cache.Delete(ctx, prefix)
	c.keys.Delete(prefix)
	return errors.Join(err, c.invalidatePrefix(ctx, prefix+cache.KeySeparator))
}

// invalidatePrefix drops matching keys through the backend when it can scan keys and
// falls back to the local key registry otherwise.
func (c *CachedRepository[T]) invalidatePrefix(ctx context.Context, prefix string) error {
	handled, err := cache.DeleteByPrefix(ctx, c.cache, prefix)
	errs := []error{err}

	c.keys.Range(func(key string, _ struct{}) bool {
		if !strings.HasPrefix(key, prefix) {
			return true
		}
		if !handled {
			if err := c.cache.Delete(ctx, key); err != nil {
				errs = append(errs, err)
			}
		}
		c.keys.Delete(key)
		return true
	})
	return errors.Join(errs...)
}
