package embedding

import (
	"context"
	"errors"
	"testing"
)

func TestMockProvider_Deterministic(t *testing.T) {
	p := NewMockProvider(8)
	ctx := context.Background()

	a1, _ := p.Embed(ctx, []string{"the lighthouse keeper"})
	a2, _ := p.Embed(ctx, []string{"the lighthouse keeper"})
	b, _ := p.Embed(ctx, []string{"a different passage"})

	for i := range a1[0] {
		if a1[0][i] != a2[0][i] {
			t.Fatal("same text must embed identically")
		}
	}
	same := true
	for i := range a1[0] {
		if a1[0][i] != b[0][i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different texts should not share a vector")
	}
	if len(a1[0]) != 8 {
		t.Errorf("dimension %d, want 8", len(a1[0]))
	}
}

func TestCachedProvider_SkipsRepeatCalls(t *testing.T) {
	mock := NewMockProvider(4)
	p := NewCachedProvider(mock, 16)
	ctx := context.Background()

	if _, err := p.Embed(ctx, []string{"once"}); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Embed(ctx, []string{"once"}); err != nil {
		t.Fatal(err)
	}
	if mock.Calls() != 1 {
		t.Errorf("expected 1 provider call, got %d", mock.Calls())
	}
}

func TestCachedProvider_MixedBatch(t *testing.T) {
	mock := NewMockProvider(4)
	p := NewCachedProvider(mock, 16)
	ctx := context.Background()

	first, err := p.Embed(ctx, []string{"alpha", "beta"})
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.Embed(ctx, []string{"alpha", "gamma", "beta"})
	if err != nil {
		t.Fatal(err)
	}
	if len(second) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(second))
	}
	for i := range first[0] {
		if second[0][i] != first[0][i] {
			t.Fatal("cached vector for alpha changed")
		}
	}
	for i := range first[1] {
		if second[2][i] != first[1][i] {
			t.Fatal("cached vector for beta changed")
		}
	}
}

func TestCachedProvider_Eviction(t *testing.T) {
	mock := NewMockProvider(4)
	p := NewCachedProvider(mock, 1)
	ctx := context.Background()

	_, _ = p.Embed(ctx, []string{"a"})
	_, _ = p.Embed(ctx, []string{"b"}) // evicts a
	_, _ = p.Embed(ctx, []string{"a"}) // must hit the provider again
	if mock.Calls() != 3 {
		t.Errorf("expected 3 provider calls with capacity 1, got %d", mock.Calls())
	}
}

// shortProvider drops the last vector from every batch, simulating a backend
// that silently returns fewer embeddings than texts.
type shortProvider struct {
	inner Provider
}

func (p shortProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := p.inner.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	return vectors[:len(vectors)-1], nil
}
func (p shortProvider) Dimensions() int { return p.inner.Dimensions() }
func (p shortProvider) Model() string   { return p.inner.Model() }
func (p shortProvider) Close() error    { return p.inner.Close() }

func TestCachedProvider_InnerCountMismatch(t *testing.T) {
	p := NewCachedProvider(shortProvider{inner: NewMockProvider(4)}, 16)

	vectors, err := p.Embed(context.Background(), []string{"alpha", "beta"})
	if !errors.Is(err, ErrEmbeddingFailed) {
		t.Fatalf("expected ErrEmbeddingFailed on short batch, got %v", err)
	}
	if vectors != nil {
		t.Errorf("expected nil vectors on failure, got %v", vectors)
	}
}

func TestNewCachedProvider_ZeroCapacity(t *testing.T) {
	mock := NewMockProvider(4)
	if p := NewCachedProvider(mock, 0); p != Provider(mock) {
		t.Error("zero capacity should return the inner provider")
	}
}
