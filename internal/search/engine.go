// Package search runs similarity queries against vector tables and scores
// the hits for display.
package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/inkhaven/inkdex/internal/embedding"
	"github.com/inkhaven/inkdex/internal/models"
	"github.com/inkhaven/inkdex/internal/vectortable"
)

const (
	// DefaultMaxLimit caps a single search so one request cannot drag the
	// whole table through scoring.
	DefaultMaxLimit = 100

	// DefaultOverfetchFactor multiplies the limit when metadata filters must
	// be applied after retrieval. Metadata lives in an opaque JSON bag the
	// storage engines cannot match on, so the engine retrieves extra
	// candidates and filters here.
	DefaultOverfetchFactor = 4
)

// Engine executes similarity searches over one vector table.
type Engine struct {
	provider        embedding.Provider
	table           vectortable.Table
	maxLimit        int
	overfetchFactor int
	logger          *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMaxLimit overrides the maximum result limit.
func WithMaxLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxLimit = n
		}
	}
}

// WithOverfetchFactor overrides the candidate multiplier used when metadata
// filters are present.
func WithOverfetchFactor(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.overfetchFactor = n
		}
	}
}

// NewEngine creates a search engine over the given table.
func NewEngine(provider embedding.Provider, table vectortable.Table, opts ...Option) *Engine {
	e := &Engine{
		provider:        provider,
		table:           table,
		maxLimit:        DefaultMaxLimit,
		overfetchFactor: DefaultOverfetchFactor,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search embeds the query text, retrieves the nearest records, and returns
// them scored, ascending by distance. An empty or fully filtered-out table
// yields an empty result list, never an error. Errors:
// models.ErrInvalidInput for an empty query or a non-positive limit,
// embedding.ErrEmbeddingFailed when the provider fails,
// vectortable.ErrDimensionMismatch when the query embedding's length
// disagrees with the table.
func (e *Engine) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	start := time.Now()
	if err := query.Validate(e.maxLimit); err != nil {
		return nil, err
	}

	vectors, err := e.provider.Embed(ctx, []string{query.Query})
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", e.table.Name(), err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("search %s: %w: no embedding produced",
			e.table.Name(), embedding.ErrEmbeddingFailed)
	}
	vector := vectors[0]
	if len(vector) != e.table.Dimension() {
		return nil, fmt.Errorf("search %s: query embedding has length %d, table dimension %d: %w",
			e.table.Name(), len(vector), e.table.Dimension(), vectortable.ErrDimensionMismatch)
	}

	fetchLimit := query.Limit
	metadataFilter := query.Filter != nil && len(query.Filter.Metadata) > 0
	if metadataFilter {
		fetchLimit = query.Limit * e.overfetchFactor
	}
	matches, err := e.table.Search(ctx, vector, fetchLimit, query.Filter)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", e.table.Name(), err)
	}
	if metadataFilter {
		matches = filterByMetadata(matches, query.Filter.Metadata)
		if len(matches) > query.Limit {
			matches = matches[:query.Limit]
		}
	}

	results := make([]*models.SearchResult, len(matches))
	for i, m := range matches {
		results[i] = &models.SearchResult{
			Record:    m.Record,
			Distance:  m.Distance,
			Score:     Score(m.Distance),
			Relevance: BandFor(m.Distance),
		}
	}
	resp := &models.SearchResponse{
		Results:   results,
		Total:     len(results),
		QueryTime: time.Since(start).Milliseconds(),
		Query:     query.Query,
	}
	if e.logger != nil {
		e.logger.Debug("search completed",
			zap.String("table", e.table.Name()),
			zap.Int("results", resp.Total),
			zap.Int64("query_time_ms", resp.QueryTime))
	}
	return resp, nil
}

// Table exposes the underlying table for diagnostics.
func (e *Engine) Table() vectortable.Table {
	return e.table
}

// filterByMetadata keeps matches whose metadata bag contains every key with
// the exact string value. Non-string metadata values are compared via their
// fmt representation.
func filterByMetadata(matches []*vectortable.Match, want map[string]string) []*vectortable.Match {
	kept := matches[:0]
	for _, m := range matches {
		if metadataMatches(m.Record.Metadata, want) {
			kept = append(kept, m)
		}
	}
	return kept
}

func metadataMatches(bag map[string]interface{}, want map[string]string) bool {
	for key, wantValue := range want {
		got, ok := bag[key]
		if !ok {
			return false
		}
		if s, ok := got.(string); ok {
			if s != wantValue {
				return false
			}
			continue
		}
		if fmt.Sprintf("%v", got) != wantValue {
			return false
		}
	}
	return true
}
