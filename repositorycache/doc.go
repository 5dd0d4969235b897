// Package repositorycache decorates go-repository-bun repositories with read-through
// caching.
//
// CachedRepository[T] implements repository.Repository[T]. Reads (Get, GetByID,
// GetByIdentifier, List, Count) go through a cache.CacheService; writes, raw queries and
// every *Tx method are delegated to the base repository.
//
//	base := catalog.NewPodcastRepository(db)
//	podcasts := repositorycache.New(base, cacheService, cache.NewDefaultKeySerializer(),
//		repositorycache.WithLogger(logger),
//	)
//
// # Keys
//
// Every key starts with "<namespace>.<Method>", where the namespace defaults to the
// snake_cased record type ("podcast", "search_run"). Lookup arguments such as ids and
// identifiers follow, joined by cache.KeySeparator.
//
// Select criteria are closures and cannot be serialized reliably, so a read that passes
// criteria is cached only when the caller names it:
//
//	ctx = repositorycache.WithCacheKey(ctx, "match", term, offset, limit)
//	page, total, err := podcasts.List(ctx, catalog.MatchingTerm(term), catalog.Page(offset, limit))
//
// Reads with criteria and no key go straight to the database.
//
// # Invalidation
//
// Successful inserts drop the namespace's List, Count and Get results
// (InvalidateQueries). Updates, upserts and deletes drop the whole namespace
// (InvalidateAll). When the backend implements cache.PrefixDeleter the prefix is removed
// there; otherwise the repository deletes the keys it has registered itself.
//
// Inserts made inside a transaction are not visible to other connections until commit,
// so callers that write through *Tx methods should call InvalidateQueries again after
// committing.
package repositorycache
