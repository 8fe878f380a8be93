package models

import "fmt"

// SearchQuery represents a similarity search request with optional filters.
type SearchQuery struct {
	Query  string  `json:"query"`
	Limit  int     `json:"limit,omitempty"`
	Filter *Filter `json:"filter,omitempty"`
}

// Validate checks the query fields. The query text must be non-empty and the
// limit strictly positive; maxLimit caps it when positive. An omitted limit
// is not defaulted here — only the transport boundary (HTTP handler, CLI
// flag) can tell "unset" apart from an explicit zero, so defaulting happens
// there and a zero or negative limit reaching this point is the caller's
// error.
func (q *SearchQuery) Validate(maxLimit int) error {
	if q.Query == "" {
		return fmt.Errorf("%w: query cannot be empty", ErrInvalidInput)
	}
	if q.Limit <= 0 {
		return fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidInput, q.Limit)
	}
	if maxLimit > 0 && q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	return nil
}
