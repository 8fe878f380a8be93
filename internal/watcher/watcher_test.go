package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/inkhaven/inkdex/internal/corpus"
	"github.com/inkhaven/inkdex/internal/embedding"
	"github.com/inkhaven/inkdex/internal/models"
	"github.com/inkhaven/inkdex/internal/vectortable"
)

func newTestCorpus(t *testing.T) *corpus.Corpus {
	t.Helper()
	store := vectortable.NewMemoryStore()
	t.Cleanup(func() { store.Close() })
	c, err := corpus.New(store, embedding.NewMockProvider(8), corpus.Options{})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

// waitForCount polls until the documents table reaches want or the deadline passes.
func waitForCount(t *testing.T, c *corpus.Corpus, want int64) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		counts, err := c.Counts(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if counts[corpus.KindDocuments] == want {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	counts, _ := c.Counts(context.Background())
	t.Fatalf("documents count = %d, want %d", counts[corpus.KindDocuments], want)
}

func TestWatcher_IndexesDroppedFile(t *testing.T) {
	dir := t.TempDir()
	c := newTestCorpus(t)
	w := NewWatcher(dir, []string{".txt", ".md"}, "inbox", c, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	path := filepath.Join(dir, "scene.txt")
	if err := os.WriteFile(path, []byte("The ferry left without her."), 0644); err != nil {
		t.Fatal(err)
	}
	waitForCount(t, c, 1)

	resp, err := c.Search(ctx, corpus.KindDocuments, &models.SearchQuery{
		Query: "The ferry left without her.",
		Limit: 1,
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 {
		t.Fatalf("dropped file not searchable")
	}
	rec := resp.Results[0].Record
	if rec.ID != FileID("scene.txt") {
		t.Errorf("id = %q, want path-derived id", rec.ID)
	}
	if rec.ProjectID != "inbox" {
		t.Errorf("project id = %q", rec.ProjectID)
	}
}

func TestWatcher_EditUpserts(t *testing.T) {
	dir := t.TempDir()
	c := newTestCorpus(t)
	w := NewWatcher(dir, nil, "inbox", c, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	path := filepath.Join(dir, "draft.md")
	if err := os.WriteFile(path, []byte("first version"), 0644); err != nil {
		t.Fatal(err)
	}
	waitForCount(t, c, 1)

	if err := os.WriteFile(path, []byte("second version"), 0644); err != nil {
		t.Fatal(err)
	}
	// Edit replaces the record under the same id; the count stays at one and
	// the newer text wins.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := c.Search(ctx, corpus.KindDocuments, &models.SearchQuery{Query: "second version", Limit: 1})
		if err != nil {
			t.Fatal(err)
		}
		if resp.Total == 1 && resp.Results[0].Record.Text == "second version" {
			waitForCount(t, c, 1)
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("edited file never re-indexed")
}

func TestWatcher_RemoveDeletes(t *testing.T) {
	dir := t.TempDir()
	c := newTestCorpus(t)
	w := NewWatcher(dir, nil, "inbox", c, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	path := filepath.Join(dir, "gone.txt")
	if err := os.WriteFile(path, []byte("soon deleted"), 0644); err != nil {
		t.Fatal(err)
	}
	waitForCount(t, c, 1)

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	waitForCount(t, c, 0)
}

func TestWatcher_ExtensionFilter(t *testing.T) {
	dir := t.TempDir()
	c := newTestCorpus(t)
	w := NewWatcher(dir, []string{".txt"}, "inbox", c, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "notes.bin"), []byte("binary junk"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("plain notes"), 0644); err != nil {
		t.Fatal(err)
	}
	waitForCount(t, c, 1)
	// Give the filtered file a moment to (wrongly) appear.
	time.Sleep(200 * time.Millisecond)
	waitForCount(t, c, 1)
}

func TestWatcher_SyncsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "already.txt"), []byte("pre-existing"), 0644); err != nil {
		t.Fatal(err)
	}
	c := newTestCorpus(t)
	w := NewWatcher(dir, nil, "inbox", c, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	waitForCount(t, c, 1)
}

func TestWatcher_CreatesMissingRoot(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "drop")
	c := newTestCorpus(t)
	w := NewWatcher(dir, nil, "inbox", c)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if _, err := os.Stat(dir); err != nil {
		t.Errorf("drop folder not created: %v", err)
	}
}
