// Package indexer turns raw text into validated embedding records and
// persists them to a vector table.
package indexer

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inkhaven/inkdex/internal/embedding"
	"github.com/inkhaven/inkdex/internal/models"
	"github.com/inkhaven/inkdex/internal/vectortable"
	"github.com/inkhaven/inkdex/pkg/utils"
)

// DefaultMaxContentLength caps indexed text when no limit is configured.
// Embedding providers impose hard input ceilings, so truncation before the
// provider call is mandatory, not optional.
const DefaultMaxContentLength = 8000

// Indexer writes embedded text into one vector table.
type Indexer struct {
	provider         embedding.Provider
	table            vectortable.Table
	maxContentLength int
	logger           *zap.Logger // optional; when set, logs debug events
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(ix *Indexer) { ix.logger = l }
}

// WithMaxContentLength overrides the truncation limit (in runes).
func WithMaxContentLength(n int) Option {
	return func(ix *Indexer) {
		if n > 0 {
			ix.maxContentLength = n
		}
	}
}

// New creates an indexer writing through the given table.
func New(provider embedding.Provider, table vectortable.Table, opts ...Option) *Indexer {
	ix := &Indexer{
		provider:         provider,
		table:            table,
		maxContentLength: DefaultMaxContentLength,
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Request carries everything needed to index one unit of text. ID may be
// empty; a collision-resistant random id is generated then. A supplied ID
// upserts (re-indexing a record replaces it wholesale).
type Request struct {
	Text      string
	Source    string
	ID        string
	EntityID  string
	ProjectID string
	Metadata  map[string]interface{}
}

// Index validates, truncates, embeds, and persists the text, returning the
// final record id. Errors: models.ErrInvalidInput for empty text,
// embedding.ErrEmbeddingFailed for provider failures (including timeouts),
// vectortable.ErrDimensionMismatch when the provider's vector disagrees with
// the table — detected before any storage write, so nothing partially
// persists.
func (ix *Indexer) Index(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Text) == "" {
		return "", fmt.Errorf("%w: text is empty", models.ErrInvalidInput)
	}
	text := utils.TruncateRunes(req.Text, ix.maxContentLength)

	vectors, err := ix.provider.Embed(ctx, []string{text})
	if err != nil {
		return "", fmt.Errorf("index %q into %s: %w", req.Source, ix.table.Name(), err)
	}
	if len(vectors) == 0 {
		return "", fmt.Errorf("index %q into %s: %w: no embedding produced",
			req.Source, ix.table.Name(), embedding.ErrEmbeddingFailed)
	}
	vector := vectors[0]
	if len(vector) != ix.table.Dimension() {
		// Never pad or truncate vectors; that would corrupt every distance
		// computed against them.
		return "", fmt.Errorf("index %q into %s: embedding has length %d, table dimension %d: %w",
			req.Source, ix.table.Name(), len(vector), ix.table.Dimension(), vectortable.ErrDimensionMismatch)
	}

	id := req.ID
	if id == "" {
		id = uuid.New().String()
	}
	record := &models.EmbeddingRecord{
		ID:        id,
		Text:      text,
		Vector:    vector,
		Source:    req.Source,
		EntityID:  req.EntityID,
		ProjectID: req.ProjectID,
		Metadata:  req.Metadata,
	}
	if err := ix.table.Insert(ctx, []*models.EmbeddingRecord{record}); err != nil {
		return "", fmt.Errorf("index %q into %s: %w", req.Source, ix.table.Name(), err)
	}
	if ix.logger != nil {
		ix.logger.Debug("text indexed",
			zap.String("table", ix.table.Name()),
			zap.String("id", id),
			zap.String("source", req.Source))
	}
	return id, nil
}

// Table exposes the underlying table for diagnostics (schema, counts).
func (ix *Indexer) Table() vectortable.Table {
	return ix.table
}
