// SQLite table engine: durable storage with vectors as float32 BLOBs and
// brute-force nearest-neighbor scans in Go.
package vectortable

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/inkhaven/inkdex/internal/models"
)

// SQLiteStore is one SQLite database file hosting any number of vector tables.
// The handle is guarded so Close can race with in-flight table operations: a
// table either snapshots a live handle or sees ErrNotInitialized, never a torn
// pointer.
type SQLiteStore struct {
	mu sync.RWMutex
	db *sql.DB
}

// handle returns the live database handle, or nil after Close.
func (s *SQLiteStore) handle() *sql.DB {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db
}

var tableNamePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// OpenSQLite opens or creates the database at dbPath and initializes the table
// registry. Parent directories are created if absent. Failure to reach the
// engine at all is ErrStorageUnavailable; callers re-invoke rather than retry
// internally.
func OpenSQLite(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %v: %w", err, ErrStorageUnavailable)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %v: %w", err, ErrStorageUnavailable)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %v: %w", err, ErrStorageUnavailable)
	}
	registry := `
	CREATE TABLE IF NOT EXISTS vector_tables (
		name TEXT PRIMARY KEY,
		dimension INTEGER NOT NULL,
		metric TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err := db.Exec(registry); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize table registry: %v: %w", err, ErrStorageUnavailable)
	}
	return &SQLiteStore{db: db}, nil
}

// OpenTable opens the named collection, creating it if absent. The dimension
// is fixed at creation; re-opening with a different dimension fails with
// ErrDimensionMismatch (a model change requires a new table name or a full
// re-index).
func (s *SQLiteStore) OpenTable(name string, dimension int) (Table, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", models.ErrInvalidInput, dimension)
	}
	if !tableNamePattern.MatchString(name) {
		return nil, fmt.Errorf("%w: invalid table name %q", models.ErrInvalidInput, name)
	}
	db := s.handle()
	if db == nil {
		return nil, fmt.Errorf("open table %q: %w", name, ErrStorageUnavailable)
	}

	var existing int
	err := db.QueryRow(`SELECT dimension FROM vector_tables WHERE name = ?`, name).Scan(&existing)
	switch {
	case err == sql.ErrNoRows:
		if err := createTable(db, name, dimension); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("look up table %q: %v: %w", name, err, ErrStorageUnavailable)
	case existing != dimension:
		return nil, fmt.Errorf("table %q has dimension %d, requested %d: %w",
			name, existing, dimension, ErrDimensionMismatch)
	}

	return &SQLiteTable{store: s, name: name, dimension: dimension, open: true}, nil
}

func createTable(db *sql.DB, name string, dimension int) error {
	sqlName := sqlTableName(name)
	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		text TEXT NOT NULL,
		vector BLOB NOT NULL,
		source TEXT,
		entity_id TEXT,
		project_id TEXT,
		metadata TEXT,
		created_at TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_%s_project ON %s(project_id);
	`, sqlName, sqlName, sqlName)
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("create table %q: %v: %w", name, err, ErrStorageUnavailable)
	}
	defer tx.Rollback()
	if _, err := tx.Exec(schema); err != nil {
		return fmt.Errorf("create table %q: %v: %w", name, err, ErrStorageUnavailable)
	}
	if _, err := tx.Exec(
		`INSERT INTO vector_tables (name, dimension, metric) VALUES (?, ?, ?)`,
		name, dimension, MetricCosine,
	); err != nil {
		return fmt.Errorf("register table %q: %v: %w", name, err, ErrStorageUnavailable)
	}
	return tx.Commit()
}

// Close closes the underlying database. Tables opened from this store become
// uninitialized; operations racing with Close either complete on the old
// handle or fail with ErrNotInitialized.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	db := s.db
	s.db = nil
	s.mu.Unlock()
	if db == nil {
		return nil
	}
	return db.Close()
}

// sqlTableName maps a collection name to its SQL table. The prefix keeps
// collection names from colliding with the registry.
func sqlTableName(name string) string {
	return "vec_" + strings.ToLower(name)
}

// SQLiteTable is one collection inside a SQLiteStore.
type SQLiteTable struct {
	store     *SQLiteStore
	name      string
	dimension int
	open      bool
}

func (t *SQLiteTable) Name() string   { return t.name }
func (t *SQLiteTable) Dimension() int { return t.dimension }

func (t *SQLiteTable) db() (*sql.DB, error) {
	if !t.open || t.store == nil {
		return nil, ErrNotInitialized
	}
	db := t.store.handle()
	if db == nil {
		return nil, ErrNotInitialized
	}
	return db, nil
}

// Insert upserts records by id inside one transaction. Dimension validation
// happens before any I/O so a batch never partially persists. The upsert keeps
// the original rowid, preserving insertion order for distance ties.
func (t *SQLiteTable) Insert(ctx context.Context, records []*models.EmbeddingRecord) error {
	for _, r := range records {
		if len(r.Vector) != t.dimension {
			return fmt.Errorf("insert into %q: record %q has vector length %d, table dimension %d: %w",
				t.name, r.ID, len(r.Vector), t.dimension, ErrDimensionMismatch)
		}
	}
	db, err := t.db()
	if err != nil {
		return fmt.Errorf("insert into %q: %w", t.name, err)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert into %q: %w", t.name, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, text, vector, source, entity_id, project_id, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			text = excluded.text,
			vector = excluded.vector,
			source = excluded.source,
			entity_id = excluded.entity_id,
			project_id = excluded.project_id,
			metadata = excluded.metadata,
			created_at = excluded.created_at`,
		sqlTableName(t.name)))
	if err != nil {
		return fmt.Errorf("insert into %q: %w", t.name, err)
	}
	defer stmt.Close()

	for _, r := range records {
		metadataJSON, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("insert into %q: marshal metadata for %q: %w", t.name, r.ID, err)
		}
		createdAt := r.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}
		if _, err := stmt.ExecContext(ctx,
			r.ID, r.Text, encodeVector(r.Vector), r.Source, r.EntityID, r.ProjectID,
			string(metadataJSON), createdAt,
		); err != nil {
			return fmt.Errorf("insert into %q: record %q: %w", t.name, r.ID, err)
		}
	}
	return tx.Commit()
}

// Search loads eligible rows in rowid (insertion) order, computes cosine
// distance in Go, and returns up to limit matches by ascending distance with
// stable ties.
func (t *SQLiteTable) Search(ctx context.Context, query []float32, limit int, filter *models.Filter) ([]*Match, error) {
	if len(query) != t.dimension {
		return nil, fmt.Errorf("search %q: query has length %d, table dimension %d: %w",
			t.name, len(query), t.dimension, ErrDimensionMismatch)
	}
	db, err := t.db()
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", t.name, err)
	}
	if limit <= 0 {
		return []*Match{}, nil
	}

	q := fmt.Sprintf(`SELECT id, text, vector, source, entity_id, project_id, metadata, created_at FROM %s`,
		sqlTableName(t.name))
	where, args := filterClause(filter)
	q += where + ` ORDER BY rowid`

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", t.name, err)
	}
	defer rows.Close()

	matches := []*Match{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("search %q: %w", t.name, err)
		}
		matches = append(matches, &Match{Record: r, Distance: CosineDistance(query, r.Vector)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search %q: %w", t.name, err)
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Distance < matches[j].Distance })
	if limit < len(matches) {
		matches = matches[:limit]
	}
	return matches, nil
}

// DeleteByID removes a record; deleting an absent id is not an error.
func (t *SQLiteTable) DeleteByID(ctx context.Context, id string) error {
	db, err := t.db()
	if err != nil {
		return fmt.Errorf("delete from %q: %w", t.name, err)
	}
	if _, err := db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, sqlTableName(t.name)), id); err != nil {
		return fmt.Errorf("delete from %q: %w", t.name, err)
	}
	return nil
}

// DeleteByProject removes every record for the project and returns the count.
func (t *SQLiteTable) DeleteByProject(ctx context.Context, projectID string) (int64, error) {
	db, err := t.db()
	if err != nil {
		return 0, fmt.Errorf("delete project from %q: %w", t.name, err)
	}
	res, err := db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE project_id = ?`, sqlTableName(t.name)), projectID)
	if err != nil {
		return 0, fmt.Errorf("delete project from %q: %w", t.name, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Count returns the number of records in the table.
func (t *SQLiteTable) Count(ctx context.Context) (int64, error) {
	db, err := t.db()
	if err != nil {
		return 0, fmt.Errorf("count %q: %w", t.name, err)
	}
	var count int64
	if err := db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s`, sqlTableName(t.name))).Scan(&count); err != nil {
		return 0, fmt.Errorf("count %q: %w", t.name, err)
	}
	return count, nil
}

// Schema describes the table for diagnostics.
func (t *SQLiteTable) Schema() (*SchemaDescription, error) {
	if _, err := t.db(); err != nil {
		return nil, fmt.Errorf("schema %q: %w", t.name, err)
	}
	return &SchemaDescription{
		Table:     t.name,
		Engine:    "sqlite",
		Dimension: t.dimension,
		Metric:    MetricCosine,
		Fields:    recordFields(t.dimension),
	}, nil
}

// Close marks the table uninitialized. The shared store stays open for other
// tables; closing it is the store owner's job.
func (t *SQLiteTable) Close() error {
	t.open = false
	return nil
}

// filterClause builds the WHERE clause for the natively pushed-down equality
// fields. Metadata filters are applied post-retrieval by the search engine.
func filterClause(f *models.Filter) (string, []interface{}) {
	if f.Empty() {
		return "", nil
	}
	var conds []string
	var args []interface{}
	if f.ProjectID != "" {
		conds = append(conds, "project_id = ?")
		args = append(args, f.ProjectID)
	}
	if f.EntityID != "" {
		conds = append(conds, "entity_id = ?")
		args = append(args, f.EntityID)
	}
	if f.Source != "" {
		conds = append(conds, "source = ?")
		args = append(args, f.Source)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanRecord(rows *sql.Rows) (*models.EmbeddingRecord, error) {
	var (
		r            models.EmbeddingRecord
		vectorBlob   []byte
		metadataJSON sql.NullString
		source       sql.NullString
		entityID     sql.NullString
		projectID    sql.NullString
	)
	if err := rows.Scan(&r.ID, &r.Text, &vectorBlob, &source, &entityID, &projectID, &metadataJSON, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.Vector = decodeVector(vectorBlob)
	r.Source = source.String
	r.EntityID = entityID.String
	r.ProjectID = projectID.String
	if metadataJSON.Valid && metadataJSON.String != "" && metadataJSON.String != "null" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &r.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata for %q: %w", r.ID, err)
		}
	}
	return &r, nil
}
