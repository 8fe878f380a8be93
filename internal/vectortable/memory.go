// In-memory table engine: brute-force scan, no persistence. Used in tests and
// as a fallback when no writable database location exists.
package vectortable

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/inkhaven/inkdex/internal/models"
)

// MemoryStore opens ephemeral in-memory tables. Re-opening a name returns the
// existing table so open-or-create semantics match the durable engine.
type MemoryStore struct {
	mu     sync.Mutex
	tables map[string]*MemoryTable
	closed bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[string]*MemoryTable)}
}

// OpenTable opens or creates the named table. Opening an existing name with a
// different dimension fails with ErrDimensionMismatch.
func (s *MemoryStore) OpenTable(name string, dimension int) (Table, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", models.ErrInvalidInput, dimension)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("open table %q: %w", name, ErrStorageUnavailable)
	}
	if t, ok := s.tables[name]; ok {
		if t.dimension != dimension {
			return nil, fmt.Errorf("table %q has dimension %d, requested %d: %w",
				name, t.dimension, dimension, ErrDimensionMismatch)
		}
		return t, nil
	}
	t := &MemoryTable{name: name, dimension: dimension, index: make(map[string]int), open: true}
	s.tables[name] = t
	return t, nil
}

// Close closes the store; subsequent OpenTable calls fail.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for _, t := range s.tables {
		_ = t.Close()
	}
	return nil
}

// MemoryTable holds records in insertion order; upserts replace in place so
// distance ties keep a stable order across searches.
type MemoryTable struct {
	name      string
	dimension int

	mu      sync.RWMutex
	records []*models.EmbeddingRecord
	index   map[string]int // id -> position in records
	open    bool
}

// NewMemoryTable creates a standalone table without a store, for tests.
func NewMemoryTable(name string, dimension int) (*MemoryTable, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", models.ErrInvalidInput, dimension)
	}
	return &MemoryTable{name: name, dimension: dimension, index: make(map[string]int), open: true}, nil
}

func (t *MemoryTable) Name() string   { return t.name }
func (t *MemoryTable) Dimension() int { return t.dimension }

// Insert upserts records by id. Dimensions are validated for the whole batch
// before anything is written.
func (t *MemoryTable) Insert(ctx context.Context, records []*models.EmbeddingRecord) error {
	for _, r := range records {
		if len(r.Vector) != t.dimension {
			return fmt.Errorf("insert into %q: record %q has vector length %d, table dimension %d: %w",
				t.name, r.ID, len(r.Vector), t.dimension, ErrDimensionMismatch)
		}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.open {
		return fmt.Errorf("insert into %q: %w", t.name, ErrNotInitialized)
	}
	for _, r := range records {
		stored := cloneRecord(r)
		if stored.CreatedAt.IsZero() {
			stored.CreatedAt = time.Now()
		}
		if pos, ok := t.index[stored.ID]; ok {
			t.records[pos] = stored
			continue
		}
		t.index[stored.ID] = len(t.records)
		t.records = append(t.records, stored)
	}
	return nil
}

// Search scans every eligible record, sorts by ascending cosine distance with
// insertion order breaking ties, and returns at most limit matches.
func (t *MemoryTable) Search(ctx context.Context, query []float32, limit int, filter *models.Filter) ([]*Match, error) {
	if len(query) != t.dimension {
		return nil, fmt.Errorf("search %q: query has length %d, table dimension %d: %w",
			t.name, len(query), t.dimension, ErrDimensionMismatch)
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.open {
		return nil, fmt.Errorf("search %q: %w", t.name, ErrNotInitialized)
	}
	if limit <= 0 || len(t.records) == 0 {
		return []*Match{}, nil
	}
	matches := make([]*Match, 0, len(t.records))
	for _, r := range t.records {
		if !matchesFilter(r, filter) {
			continue
		}
		matches = append(matches, &Match{
			Record:   cloneRecord(r),
			Distance: CosineDistance(query, r.Vector),
		})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Distance < matches[j].Distance })
	if limit < len(matches) {
		matches = matches[:limit]
	}
	return matches, nil
}

// DeleteByID removes the record with the given id, if present.
func (t *MemoryTable) DeleteByID(ctx context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.open {
		return fmt.Errorf("delete from %q: %w", t.name, ErrNotInitialized)
	}
	pos, ok := t.index[id]
	if !ok {
		return nil
	}
	t.removeAt(pos)
	return nil
}

// DeleteByProject removes every record with the given project id.
func (t *MemoryTable) DeleteByProject(ctx context.Context, projectID string) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.open {
		return 0, fmt.Errorf("delete project from %q: %w", t.name, ErrNotInitialized)
	}
	var removed int64
	kept := t.records[:0]
	for _, r := range t.records {
		if r.ProjectID == projectID {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	t.records = kept
	t.index = make(map[string]int, len(t.records))
	for i, r := range t.records {
		t.index[r.ID] = i
	}
	return removed, nil
}

// Count returns the number of records.
func (t *MemoryTable) Count(ctx context.Context) (int64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.open {
		return 0, fmt.Errorf("count %q: %w", t.name, ErrNotInitialized)
	}
	return int64(len(t.records)), nil
}

// Schema describes the table.
func (t *MemoryTable) Schema() (*SchemaDescription, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.open {
		return nil, fmt.Errorf("schema %q: %w", t.name, ErrNotInitialized)
	}
	return &SchemaDescription{
		Table:     t.name,
		Engine:    "memory",
		Dimension: t.dimension,
		Metric:    MetricCosine,
		Fields:    recordFields(t.dimension),
	}, nil
}

// Close marks the table uninitialized; later operations fail with ErrNotInitialized.
func (t *MemoryTable) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.open = false
	return nil
}

// removeAt deletes records[pos] preserving order of the rest. Caller holds the lock.
func (t *MemoryTable) removeAt(pos int) {
	t.records = append(t.records[:pos], t.records[pos+1:]...)
	t.index = make(map[string]int, len(t.records))
	for i, r := range t.records {
		t.index[r.ID] = i
	}
}

// matchesFilter applies the natively supported equality fields. Metadata
// filters are the search engine's concern, applied post-retrieval.
func matchesFilter(r *models.EmbeddingRecord, f *models.Filter) bool {
	if f.Empty() {
		return true
	}
	if f.ProjectID != "" && r.ProjectID != f.ProjectID {
		return false
	}
	if f.EntityID != "" && r.EntityID != f.EntityID {
		return false
	}
	if f.Source != "" && r.Source != f.Source {
		return false
	}
	return true
}

func cloneRecord(r *models.EmbeddingRecord) *models.EmbeddingRecord {
	out := *r
	out.Vector = make([]float32, len(r.Vector))
	copy(out.Vector, r.Vector)
	if r.Metadata != nil {
		out.Metadata = make(map[string]interface{}, len(r.Metadata))
		for k, v := range r.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}
