// Package models defines core data structures for embedding records, queries, and search results.
package models

import "time"

// EmbeddingRecord is one indexed unit of text with its vector.
type EmbeddingRecord struct {
	ID        string                 `json:"id" db:"id"`
	Text      string                 `json:"text" db:"text"`
	Vector    []float32              `json:"-" db:"-"`
	Source    string                 `json:"source,omitempty" db:"source"`
	EntityID  string                 `json:"entity_id,omitempty" db:"entity_id"`
	ProjectID string                 `json:"project_id,omitempty" db:"project_id"`
	Metadata  map[string]interface{} `json:"metadata,omitempty" db:"metadata"`
	CreatedAt time.Time              `json:"created_at" db:"created_at"`
}

// Filter restricts a table search to records matching all set fields by exact equality.
// Zero-value fields are ignored.
type Filter struct {
	ProjectID string `json:"project_id,omitempty"`
	EntityID  string `json:"entity_id,omitempty"`
	Source    string `json:"source,omitempty"`
	// Metadata filters are matched against the record's metadata bag. String
	// comparison; applied post-retrieval by the search engine, not pushed down.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Empty reports whether the filter constrains nothing.
func (f *Filter) Empty() bool {
	if f == nil {
		return true
	}
	return f.ProjectID == "" && f.EntityID == "" && f.Source == "" && len(f.Metadata) == 0
}
