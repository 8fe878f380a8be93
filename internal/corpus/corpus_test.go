package corpus

import (
	"context"
	"errors"
	"testing"

	"github.com/inkhaven/inkdex/internal/embedding"
	"github.com/inkhaven/inkdex/internal/models"
	"github.com/inkhaven/inkdex/internal/vectortable"
)

func newTestCorpus(t *testing.T) *Corpus {
	t.Helper()
	store := vectortable.NewMemoryStore()
	t.Cleanup(func() { store.Close() })
	c, err := New(store, embedding.NewMockProvider(16), Options{})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestCorpus_IndexAndSearchDocument(t *testing.T) {
	c := newTestCorpus(t)
	ctx := context.Background()

	id, err := c.IndexDocument(ctx, &models.DocumentInput{
		Title:     "Chapter 3",
		Content:   "The lighthouse keeper counted the ships that never came back.",
		ProjectID: "novel-1",
		Source:    "manuscript",
	})
	if err != nil {
		t.Fatal(err)
	}
	if id == "" {
		t.Fatal("expected generated id")
	}

	resp, err := c.Search(ctx, KindDocuments, &models.SearchQuery{
		Query: "The lighthouse keeper counted the ships that never came back.",
		Limit: 1,
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 {
		t.Fatalf("expected 1 result, got %d", resp.Total)
	}
	got := resp.Results[0].Record
	if got.ID != id {
		t.Errorf("got record %s, want %s", got.ID, id)
	}
	if got.Metadata["title"] != "Chapter 3" {
		t.Errorf("title not carried as metadata: %v", got.Metadata)
	}
	if resp.Results[0].Relevance != models.RelevanceHigh {
		t.Errorf("identical text should be a high-relevance match, got %s", resp.Results[0].Relevance)
	}
}

func TestCorpus_IndexCharacterComposition(t *testing.T) {
	c := newTestCorpus(t)
	ctx := context.Background()

	id, err := c.IndexCharacter(ctx, &models.CharacterInput{
		ID:          "char-mara",
		Name:        "Mara",
		Description: "A retired smuggler",
		Traits:      []string{"wry", "loyal"},
		Role:        "protagonist",
		ProjectID:   "novel-1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if id != "char-mara" {
		t.Errorf("supplied id must be kept, got %s", id)
	}

	// Traits are joined with single spaces, so searching the exact composed
	// text lands at (near) zero distance.
	resp, err := c.Search(ctx, KindCharacters, &models.SearchQuery{
		Query: "Mara A retired smuggler wry loyal protagonist",
		Limit: 1,
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || resp.Results[0].Record.ID != "char-mara" {
		t.Fatalf("composed character text not searchable: %+v", resp.Results)
	}
	if resp.Results[0].Relevance != models.RelevanceHigh || resp.Results[0].Distance > 1e-5 {
		t.Errorf("exact composed text should match at zero distance: distance=%v relevance=%s",
			resp.Results[0].Distance, resp.Results[0].Relevance)
	}
	if resp.Results[0].Record.Metadata["name"] != "Mara" {
		t.Errorf("name not carried as metadata: %v", resp.Results[0].Record.Metadata)
	}
}

func TestCorpus_IndexTheme(t *testing.T) {
	c := newTestCorpus(t)
	ctx := context.Background()

	_, err := c.IndexTheme(ctx, &models.ThemeInput{
		Theme:       "isolation",
		Description: "characters cut off from their communities",
		Examples:    []string{"the lighthouse", "the frozen pass"},
		ProjectID:   "novel-1",
	})
	if err != nil {
		t.Fatal(err)
	}
	counts, err := c.Counts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts[KindThemes] != 1 || counts[KindDocuments] != 0 {
		t.Errorf("theme landed in the wrong table: %v", counts)
	}
}

func TestCorpus_InvalidInputs(t *testing.T) {
	c := newTestCorpus(t)
	ctx := context.Background()

	_, err := c.IndexDocument(ctx, &models.DocumentInput{Title: "t", Content: "  "})
	if !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("blank content: expected ErrInvalidInput, got %v", err)
	}
	_, err = c.IndexCharacter(ctx, &models.CharacterInput{Description: "no name"})
	if !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("missing name: expected ErrInvalidInput, got %v", err)
	}
	_, err = c.IndexTheme(ctx, &models.ThemeInput{Description: "no theme"})
	if !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("missing theme: expected ErrInvalidInput, got %v", err)
	}
	_, err = c.Search(ctx, Kind("places"), &models.SearchQuery{Query: "q", Limit: 1})
	if !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("unknown kind: expected ErrInvalidInput, got %v", err)
	}
}

func TestCorpus_KindsStaySeparate(t *testing.T) {
	c := newTestCorpus(t)
	ctx := context.Background()

	if _, err := c.IndexDocument(ctx, &models.DocumentInput{Content: "a quiet harbor town"}); err != nil {
		t.Fatal(err)
	}
	resp, err := c.Search(ctx, KindCharacters, &models.SearchQuery{Query: "a quiet harbor town", Limit: 5})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 0 {
		t.Errorf("document leaked into character search: %d results", resp.Total)
	}
}

func TestCorpus_DeleteAllForProject(t *testing.T) {
	c := newTestCorpus(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := c.IndexDocument(ctx, &models.DocumentInput{
			Content:   "passage " + string(rune('a'+i)),
			ProjectID: "novel-1",
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	if _, err := c.IndexDocument(ctx, &models.DocumentInput{Content: "other book", ProjectID: "novel-2"}); err != nil {
		t.Fatal(err)
	}
	// novel-1 has documents but no characters or themes; empty tables must
	// contribute zero deletions, not errors.
	deleted, failures := c.DeleteAllForProject(ctx, "novel-1")
	if len(failures) != 0 {
		t.Fatalf("unexpected failures: %v", failures)
	}
	if deleted != 3 {
		t.Errorf("expected 3 deletions, got %d", deleted)
	}
	counts, _ := c.Counts(ctx)
	if counts[KindDocuments] != 1 {
		t.Errorf("novel-2 record should survive, counts=%v", counts)
	}
}

func TestCorpus_DeleteAllForProjectEmptyID(t *testing.T) {
	c := newTestCorpus(t)
	deleted, failures := c.DeleteAllForProject(context.Background(), "")
	if deleted != 0 || len(failures) != 1 || !errors.Is(failures[0], models.ErrInvalidInput) {
		t.Errorf("empty project id: deleted=%d failures=%v", deleted, failures)
	}
}

func TestCorpus_Delete(t *testing.T) {
	c := newTestCorpus(t)
	ctx := context.Background()

	id, err := c.IndexDocument(ctx, &models.DocumentInput{Content: "to be removed"})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Delete(ctx, KindDocuments, id); err != nil {
		t.Fatal(err)
	}
	counts, _ := c.Counts(ctx)
	if counts[KindDocuments] != 0 {
		t.Errorf("record not deleted, counts=%v", counts)
	}
	// Deleting an absent id stays silent.
	if err := c.Delete(ctx, KindDocuments, "never-existed"); err != nil {
		t.Errorf("absent id should not error: %v", err)
	}
}

func TestCorpus_Schema(t *testing.T) {
	c := newTestCorpus(t)
	schema, err := c.Schema(KindCharacters)
	if err != nil {
		t.Fatal(err)
	}
	if schema.Table != "characters" || schema.Dimension != 16 || schema.Metric != vectortable.MetricCosine {
		t.Errorf("unexpected schema: %+v", schema)
	}
	if _, err := c.Schema(Kind("places")); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("unknown kind: expected ErrInvalidInput, got %v", err)
	}
}

func TestParseKind(t *testing.T) {
	for _, s := range []string{"documents", "characters", "themes"} {
		if _, err := ParseKind(s); err != nil {
			t.Errorf("ParseKind(%q): %v", s, err)
		}
	}
	if _, err := ParseKind("Documents"); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("kinds are case sensitive, got %v", err)
	}
}
