package cache

import "fmt"

// TypeMismatchError is returned by GetOrFetch when a cached value does not have the
// requested type, which happens when two callers share a key with different result types.
type TypeMismatchError struct {
	Key   string
	Value any
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("cache: value for key %q has unexpected type %T", e.Key, e.Value)
}
