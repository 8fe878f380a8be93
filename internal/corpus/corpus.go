// Package corpus manages the per-entity-kind vector tables of a writing
// project and composes entity inputs into indexable text.
package corpus

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/inkhaven/inkdex/internal/embedding"
	"github.com/inkhaven/inkdex/internal/indexer"
	"github.com/inkhaven/inkdex/internal/models"
	"github.com/inkhaven/inkdex/internal/search"
	"github.com/inkhaven/inkdex/internal/vectortable"
	"github.com/inkhaven/inkdex/pkg/utils"
)

// Kind names one entity collection. Each kind gets its own vector table so
// searches never mix, say, character sheets into a passage lookup.
type Kind string

const (
	KindDocuments  Kind = "documents"
	KindCharacters Kind = "characters"
	KindThemes     Kind = "themes"
)

// Kinds returns every known entity kind, in stable order.
func Kinds() []Kind {
	return []Kind{KindDocuments, KindCharacters, KindThemes}
}

// ParseKind validates a kind string from an external caller.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindDocuments, KindCharacters, KindThemes:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("%w: unknown entity kind %q", models.ErrInvalidInput, s)
	}
}

// Corpus holds one table, indexer, and search engine per entity kind, all
// sharing a single embedding provider so every table carries the same
// dimension.
type Corpus struct {
	provider embedding.Provider
	tables   map[Kind]vectortable.Table
	indexers map[Kind]*indexer.Indexer
	engines  map[Kind]*search.Engine
	logger   *zap.Logger
}

// Options configures a Corpus. Zero values fall back to package defaults.
type Options struct {
	Logger           *zap.Logger
	MaxContentLength int
	MaxLimit         int
	OverfetchFactor  int
}

// New opens one table per entity kind on the given store and wires an indexer
// and search engine over each. Table dimension follows the provider.
func New(opener vectortable.Opener, provider embedding.Provider, opts Options) (*Corpus, error) {
	c := &Corpus{
		provider: provider,
		tables:   make(map[Kind]vectortable.Table),
		indexers: make(map[Kind]*indexer.Indexer),
		engines:  make(map[Kind]*search.Engine),
		logger:   opts.Logger,
	}
	for _, kind := range Kinds() {
		tbl, err := opener.OpenTable(string(kind), provider.Dimensions())
		if err != nil {
			return nil, fmt.Errorf("open %s table: %w", kind, err)
		}
		c.tables[kind] = tbl
		c.indexers[kind] = indexer.New(provider, tbl,
			indexer.WithLogger(opts.Logger),
			indexer.WithMaxContentLength(opts.MaxContentLength))
		c.engines[kind] = search.NewEngine(provider, tbl,
			search.WithLogger(opts.Logger),
			search.WithMaxLimit(opts.MaxLimit),
			search.WithOverfetchFactor(opts.OverfetchFactor))
	}
	return c, nil
}

// IndexDocument indexes a manuscript passage or document. The content body is
// the embedded text; title and document type ride along as metadata.
func (c *Corpus) IndexDocument(ctx context.Context, in *models.DocumentInput) (string, error) {
	if strings.TrimSpace(in.Content) == "" {
		return "", fmt.Errorf("%w: document content is empty", models.ErrInvalidInput)
	}
	meta := mergeMetadata(in.Metadata, map[string]interface{}{
		"title":         in.Title,
		"document_type": in.DocumentType,
	})
	return c.index(ctx, KindDocuments, indexer.Request{
		ID:        in.ID,
		EntityID:  in.ID,
		Text:      in.Content,
		Source:    in.Source,
		ProjectID: in.ProjectID,
		Metadata:  meta,
	})
}

// IndexCharacter indexes a character sheet. The embedded text concatenates
// the descriptive fields, absent ones omitted.
func (c *Corpus) IndexCharacter(ctx context.Context, in *models.CharacterInput) (string, error) {
	if strings.TrimSpace(in.Name) == "" {
		return "", fmt.Errorf("%w: character name is empty", models.ErrInvalidInput)
	}
	text := utils.JoinNonEmpty(
		in.Name,
		in.Description,
		in.Backstory,
		strings.Join(in.Traits, " "),
		in.Role,
		in.Notes,
	)
	meta := mergeMetadata(in.Metadata, map[string]interface{}{
		"name": in.Name,
		"role": in.Role,
	})
	return c.index(ctx, KindCharacters, indexer.Request{
		ID:        in.ID,
		EntityID:  in.ID,
		Text:      text,
		Source:    in.Source,
		ProjectID: in.ProjectID,
		Metadata:  meta,
	})
}

// IndexTheme indexes a story theme or motif with its description and examples.
func (c *Corpus) IndexTheme(ctx context.Context, in *models.ThemeInput) (string, error) {
	if strings.TrimSpace(in.Theme) == "" {
		return "", fmt.Errorf("%w: theme is empty", models.ErrInvalidInput)
	}
	text := utils.JoinNonEmpty(
		in.Theme,
		in.Description,
		strings.Join(in.Examples, " "),
	)
	meta := mergeMetadata(in.Metadata, map[string]interface{}{
		"theme": in.Theme,
	})
	return c.index(ctx, KindThemes, indexer.Request{
		ID:        in.ID,
		EntityID:  in.ID,
		Text:      text,
		Source:    in.Source,
		ProjectID: in.ProjectID,
		Metadata:  meta,
	})
}

func (c *Corpus) index(ctx context.Context, kind Kind, req indexer.Request) (string, error) {
	id, err := c.indexers[kind].Index(ctx, req)
	if err != nil {
		return "", err
	}
	if c.logger != nil {
		c.logger.Info("entity indexed",
			zap.String("kind", string(kind)),
			zap.String("id", id),
			zap.String("project_id", req.ProjectID))
	}
	return id, nil
}

// Search runs a similarity query against one kind's table.
func (c *Corpus) Search(ctx context.Context, kind Kind, query *models.SearchQuery) (*models.SearchResponse, error) {
	engine, ok := c.engines[kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown entity kind %q", models.ErrInvalidInput, kind)
	}
	return engine.Search(ctx, query)
}

// Delete removes one entity from its kind's table. Absent ids are not errors.
func (c *Corpus) Delete(ctx context.Context, kind Kind, id string) error {
	tbl, ok := c.tables[kind]
	if !ok {
		return fmt.Errorf("%w: unknown entity kind %q", models.ErrInvalidInput, kind)
	}
	if id == "" {
		return fmt.Errorf("%w: id is empty", models.ErrInvalidInput)
	}
	return tbl.DeleteByID(ctx, id)
}

// TableError records a per-table failure from a fan-out operation.
type TableError struct {
	Table string
	Err   error
}

func (e TableError) Error() string {
	return fmt.Sprintf("table %s: %v", e.Table, e.Err)
}

func (e TableError) Unwrap() error { return e.Err }

// DeleteAllForProject removes every record of the project from every kind's
// table. Tables with no matching records contribute zero deletions and no
// error. Failures are collected per table rather than aborting the sweep, so
// one broken table does not leave the others untouched.
func (c *Corpus) DeleteAllForProject(ctx context.Context, projectID string) (int64, []TableError) {
	if projectID == "" {
		return 0, []TableError{{Table: "", Err: fmt.Errorf("%w: project id is empty", models.ErrInvalidInput)}}
	}
	var total int64
	var failures []TableError
	for _, kind := range Kinds() {
		n, err := c.tables[kind].DeleteByProject(ctx, projectID)
		if err != nil {
			failures = append(failures, TableError{Table: string(kind), Err: err})
			continue
		}
		total += n
	}
	if c.logger != nil {
		c.logger.Info("project purged",
			zap.String("project_id", projectID),
			zap.Int64("deleted", total),
			zap.Int("failed_tables", len(failures)))
	}
	return total, failures
}

// Schema describes one kind's table layout.
func (c *Corpus) Schema(kind Kind) (*vectortable.SchemaDescription, error) {
	tbl, ok := c.tables[kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown entity kind %q", models.ErrInvalidInput, kind)
	}
	return tbl.Schema()
}

// Counts returns the record count per kind, for status reporting.
func (c *Corpus) Counts(ctx context.Context) (map[Kind]int64, error) {
	counts := make(map[Kind]int64, len(c.tables))
	for _, kind := range Kinds() {
		n, err := c.tables[kind].Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", kind, err)
		}
		counts[kind] = n
	}
	return counts, nil
}

// Indexer returns the indexer for one kind, for callers that need raw text
// indexing (the drop-folder watcher).
func (c *Corpus) Indexer(kind Kind) *indexer.Indexer {
	return c.indexers[kind]
}

// Provider returns the shared embedding provider.
func (c *Corpus) Provider() embedding.Provider {
	return c.provider
}

// Close closes every table. The storage engine and provider stay open; they
// belong to the caller.
func (c *Corpus) Close() error {
	var firstErr error
	for _, kind := range Kinds() {
		if err := c.tables[kind].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// mergeMetadata copies base and overlays the non-empty extras, never mutating
// the caller's map. Returns nil when nothing would be stored.
func mergeMetadata(base map[string]interface{}, extras map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(base)+len(extras))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extras {
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
