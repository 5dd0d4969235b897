package cache

import "context"

// KeySerializer builds a cache key from a method name + arbitrary args.
// Keys must start with the method name so prefix invalidation keeps working.
type KeySerializer interface {
	SerializeKey(method string, args ...any) string
}

// FetchFn is the function signature CacheService expects when fetching from the source of truth.
type FetchFn[T any] func(ctx context.Context) (T, error)

// CacheService exposes the read-through operations used by the catalog repositories
// and the search service.
type CacheService interface {
	GetOrFetch(ctx context.Context, key string, fetchFn any) (any, error)
	Delete(ctx context.Context, key string) error
}

// PrefixDeleter is implemented by backends that can drop every key sharing a prefix.
type PrefixDeleter interface {
	DeleteByPrefix(ctx context.Context, prefix string) error
}

// GetOrFetch is a type-safe wrapper function that provides generic support for CacheService.
func GetOrFetch[T any](ctx context.Context, service CacheService, key string, fetchFn FetchFn[T]) (T, error) {
	var zero T

	result, err := service.GetOrFetch(ctx, key, fetchFn)
	if err != nil {
		return zero, err
	}

	// a nil interface value comes back for nil pointers, slices and interfaces
	if result == nil {
		return zero, nil
	}

	typed, ok := result.(T)
	if !ok {
		return zero, &TypeMismatchError{Key: key, Value: result}
	}
	return typed, nil
}

// DeleteByPrefix removes all keys starting with prefix when the backend supports it.
// It reports false when the backend cannot enumerate its keys.
func DeleteByPrefix(ctx context.Context, service CacheService, prefix string) (bool, error) {
	deleter, ok := service.(PrefixDeleter)
	if !ok {
		return false, nil
	}
	return true, deleter.DeleteByPrefix(ctx, prefix)
}
