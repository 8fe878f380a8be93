package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"sync/atomic"
)

// MockProvider is a deterministic provider for tests: the same text always
// gets the same unit-length vector. It also counts Embed calls so tests can
// assert session dedup behavior.
type MockProvider struct {
	dimensions int
	calls      atomic.Int64
}

// NewMockProvider returns a provider producing deterministic embeddings of
// the given dimensions.
func NewMockProvider(dimensions int) *MockProvider {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockProvider{dimensions: dimensions}
}

// Embed returns a hash-derived, L2-normalized vector per text.
func (p *MockProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	p.calls.Add(1)
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		h := fnv.New64a()
		_, _ = h.Write([]byte(text))
		seed := h.Sum64()

		v := make([]float32, p.dimensions)
		for j := range v {
			v[j] = float32(math.Sin(float64(seed%1000)*float64(j+1)) * 0.1)
		}
		var sum float64
		for _, x := range v {
			sum += float64(x) * float64(x)
		}
		if sum > 0 {
			norm := float32(1 / math.Sqrt(sum))
			for j := range v {
				v[j] *= norm
			}
		}
		vectors[i] = v
	}
	return vectors, nil
}

// Dimensions returns the embedding dimension.
func (p *MockProvider) Dimensions() int {
	return p.dimensions
}

// Model identifies the mock.
func (p *MockProvider) Model() string {
	return "mock"
}

// Close is a no-op.
func (p *MockProvider) Close() error {
	return nil
}

// Calls returns how many Embed calls the provider has served.
func (p *MockProvider) Calls() int64 {
	return p.calls.Load()
}
