package search

import (
	"fmt"
	"math"
	"strings"

	"github.com/goliatone/go-podcast-search/catalog"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// MaxTermLength bounds the search term, in characters.
const MaxTermLength = 200

// Request asks Populate to refresh the store for a term.
type Request struct {
	Term string
	// Force skips the refresh interval check.
	Force bool
}

// Validate checks the term after trimming.
func (r Request) Validate() error {
	term := strings.TrimSpace(r.Term)
	err := validation.Validate(term,
		validation.Required.Error("search term is required"),
		validation.RuneLength(1, MaxTermLength),
	)
	if err != nil {
		return fmt.Errorf("%w: term: %w", ErrInvalidRequest, err)
	}
	return nil
}

// Query selects one page of stored results.
type Query struct {
	Term   string
	Offset int
	// Limit of 0 means the configured page size.
	Limit int
}

func (q Query) validate(maxLimit int) error {
	q.Term = strings.TrimSpace(q.Term)
	err := validation.ValidateStruct(&q,
		validation.Field(&q.Term,
			validation.Required.Error("search term is required"),
			validation.RuneLength(1, MaxTermLength),
		),
		validation.Field(&q.Offset, validation.Min(0), validation.Max(math.MaxInt32)),
		validation.Field(&q.Limit, validation.Required, validation.Min(1), validation.Max(maxLimit)),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return nil
}

// NormalizeTerm lowercases term, collapses whitespace and composes accents (NFC). It keys
// search runs, result caches and the match pattern, so "Serial " and "serial" share them.
func NormalizeTerm(term string) string {
	return catalog.FoldText(term)
}
