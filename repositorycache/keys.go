package repositorycache

import (
	"context"
)

type cacheKeyContextKey struct{}

// WithCacheKey attaches the parts that identify the criteria of the next cached reads.
//
// Select criteria are closures, and two closures built by the same constructor share a
// code pointer, so they cannot be told apart when building a cache key. Reads that pass
// criteria are therefore only cached when the caller describes them with WithCacheKey;
// otherwise they go straight to the base repository.
func WithCacheKey(ctx context.Context, parts ...any) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(parts) == 0 {
		return ctx
	}
	return context.WithValue(ctx, cacheKeyContextKey{}, append([]any(nil), parts...))
}

// WithoutCacheKey drops key parts attached by an outer caller.
func WithoutCacheKey(ctx context.Context) context.Context {
	if _, ok := cacheKeyFromContext(ctx); !ok {
		return ctx
	}
	return context.WithValue(ctx, cacheKeyContextKey{}, []any(nil))
}

func cacheKeyFromContext(ctx context.Context) ([]any, bool) {
	if ctx == nil {
		return nil, false
	}
	parts, ok := ctx.Value(cacheKeyContextKey{}).([]any)
	if !ok || len(parts) == 0 {
		return nil, false
	}
	return parts, true
}
