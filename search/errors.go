package search

import "errors"

var (
	// ErrInvalidRequest wraps validation failures of a Request or Query.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUpstream wraps failures talking to the iTunes Search API.
	ErrUpstream = errors.New("upstream search failed")
	// ErrNotFound is returned by lookups of unknown track ids.
	ErrNotFound = errors.New("not found")
)
