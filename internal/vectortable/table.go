// Package vectortable provides fixed-dimension vector collections with
// nearest-neighbor search over pluggable storage engines.
package vectortable

import (
	"context"
	"errors"
	"fmt"

	"github.com/inkhaven/inkdex/internal/models"
)

var (
	// ErrNotInitialized is returned when an operation is attempted on a table
	// that was never successfully opened, or that has been closed.
	ErrNotInitialized = errors.New("vector table not initialized")

	// ErrDimensionMismatch is returned when a vector's length disagrees with
	// the table's configured dimension. Always fatal to the operation; it
	// signals model/table configuration drift, not something to retry.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrStorageUnavailable is returned when the underlying storage engine
	// cannot be reached or initialized. Fatal until the table is re-opened.
	ErrStorageUnavailable = errors.New("vector storage unavailable")
)

// Match is a single nearest-neighbor hit: a stored record and its distance
// from the query vector. Smaller distance is closer.
type Match struct {
	Record   *models.EmbeddingRecord
	Distance float64
}

// Table is one named collection of embedding records with a fixed vector
// dimension. Implementations are safe for concurrent use; write serialization
// is the storage engine's concern (concurrent upserts of the same id race,
// last write wins).
type Table interface {
	// Name returns the collection name the table was opened with.
	Name() string

	// Dimension returns the fixed vector dimension, immutable after creation.
	Dimension() int

	// Insert upserts records by id. Every record's vector length is validated
	// against the table dimension before any I/O, so the batch either fully
	// succeeds or fully fails with ErrDimensionMismatch.
	Insert(ctx context.Context, records []*models.EmbeddingRecord) error

	// Search returns up to limit nearest records by ascending cosine distance,
	// ties broken by insertion order. An equality filter, when non-empty, is
	// applied natively so limit results are returned whenever that many exist.
	// A table with zero eligible records yields an empty slice, not an error.
	Search(ctx context.Context, query []float32, limit int, filter *models.Filter) ([]*Match, error)

	// DeleteByID removes a record. Deleting an absent id is not an error.
	DeleteByID(ctx context.Context, id string) error

	// DeleteByProject removes every record with the given project id and
	// returns the number of records removed.
	DeleteByProject(ctx context.Context, projectID string) (int64, error)

	// Count returns the number of records in the table.
	Count(ctx context.Context) (int64, error)

	// Schema describes the table for diagnostics.
	Schema() (*SchemaDescription, error)

	Close() error
}

// Opener opens named tables on one storage engine instance. Opening an
// existing name returns the existing collection; opening an absent name
// creates it with the requested dimension.
type Opener interface {
	OpenTable(name string, dimension int) (Table, error)
	Close() error
}

// SchemaDescription describes a table's layout for diagnostics.
type SchemaDescription struct {
	Table     string        `json:"table"`
	Engine    string        `json:"engine"`
	Dimension int           `json:"dimension"`
	Metric    string        `json:"metric"`
	Fields    []FieldSchema `json:"fields"`
}

// FieldSchema is one field in a schema description.
type FieldSchema struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// MetricCosine is the distance metric used by all engines in this package:
// cosine distance (1 - cosine similarity), in [0, 2] for arbitrary vectors.
const MetricCosine = "cosine"

// recordFields is the logical field layout shared by all engines.
func recordFields(dimension int) []FieldSchema {
	return []FieldSchema{
		{Name: "id", Type: "string"},
		{Name: "text", Type: "string"},
		{Name: "vector", Type: fmt.Sprintf("float32[%d]", dimension)},
		{Name: "source", Type: "string"},
		{Name: "entity_id", Type: "string"},
		{Name: "project_id", Type: "string"},
		{Name: "metadata", Type: "json"},
		{Name: "created_at", Type: "timestamp"},
	}
}
