// Package integration provides end-to-end tests over real SQLite storage.
package integration

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/inkhaven/inkdex/internal/corpus"
	"github.com/inkhaven/inkdex/internal/embedding"
	"github.com/inkhaven/inkdex/internal/models"
	"github.com/inkhaven/inkdex/internal/vectortable"
)

func TestIntegration_IndexSearchDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := vectortable.OpenSQLite(filepath.Join(dir, "vectors.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	provider := embedding.NewCachedProvider(embedding.NewMockProvider(32), 100)
	c, err := corpus.New(store, provider, corpus.Options{})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	docID, err := c.IndexDocument(ctx, &models.DocumentInput{
		Title:     "The Crossing",
		Content:   "They crossed the frozen pass before the thaw could betray them.",
		ProjectID: "novel-1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.IndexCharacter(ctx, &models.CharacterInput{
		ID:        "char-edda",
		Name:      "Edda",
		Backstory: "Grew up guiding travelers across the pass.",
		ProjectID: "novel-1",
	}); err != nil {
		t.Fatal(err)
	}

	resp, err := c.Search(ctx, corpus.KindDocuments, &models.SearchQuery{
		Query: "They crossed the frozen pass before the thaw could betray them.",
		Limit: 3,
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total < 1 || resp.Results[0].Record.ID != docID {
		t.Fatalf("expected the indexed document first, got %+v", resp.Results)
	}

	deleted, failures := c.DeleteAllForProject(ctx, "novel-1")
	if len(failures) != 0 {
		t.Fatalf("purge failures: %v", failures)
	}
	if deleted != 2 {
		t.Errorf("expected 2 deletions across tables, got %d", deleted)
	}
	counts, err := c.Counts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for kind, n := range counts {
		if n != 0 {
			t.Errorf("table %s not empty after purge: %d", kind, n)
		}
	}
}

func TestIntegration_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "vectors.db")
	ctx := context.Background()
	provider := embedding.NewMockProvider(32)

	store, err := vectortable.OpenSQLite(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	c, err := corpus.New(store, provider, corpus.Options{})
	if err != nil {
		t.Fatal(err)
	}
	docID, err := c.IndexDocument(ctx, &models.DocumentInput{Content: "a durable passage"})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	store, err = vectortable.OpenSQLite(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	c, err = corpus.New(store, provider, corpus.Options{})
	if err != nil {
		t.Fatal(err)
	}
	resp, err := c.Search(ctx, corpus.KindDocuments, &models.SearchQuery{Query: "a durable passage", Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || resp.Results[0].Record.ID != docID {
		t.Errorf("record lost across reopen: %+v", resp.Results)
	}
}
