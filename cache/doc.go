// Package cache provides the in-memory read-through layer that sits between the
// HTTP handlers and the relational store.
//
// # Overview
//
// Two interfaces are exported:
//
//   - CacheService: read-through GetOrFetch plus Delete
//   - KeySerializer: builds cache keys from a method name and its arguments
//
// Backends that can enumerate their keys also implement PrefixDeleter, which the
// catalog repositories rely on to drop every cached result page once a search stores
// new podcasts or episodes.
//
// # Basic Usage
//
//	svc, err := cache.NewCacheService(cache.DefaultConfig())
//	keys := cache.NewHashedKeySerializer(nil)
//
//	key := keys.SerializeKey("podcast.List", "match", "serial", 0, 20)
//	page, err := cache.GetOrFetch(ctx, svc, key, func(ctx context.Context) ([]*catalog.Podcast, error) {
//		records, _, err := repo.List(ctx, catalog.MatchingTerm("serial"))
//		return records, err
//	})
//
// # Key Strategy
//
// Keys always begin with the method segment. The default serializer renders
// arguments readably; the hashed serializer keeps the method segment and replaces the
// arguments with an xxhash digest so user supplied search terms cannot grow keys
// without bound. Function arguments serialize by address and are only stable within a
// process, which is why the repository decorator lets callers pass explicit key parts
// through the context.
//
// # See Also
//
// The repositorycache package decorates go-repository-bun repositories with this
// layer; internal/cacheinfra holds the sturdyc adapter.
package cache
