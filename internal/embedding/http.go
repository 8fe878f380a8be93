package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultRequestTimeout = 30 * time.Second

// HTTPProvider calls an OpenAI-compatible embeddings endpoint
// (POST {baseURL}/embeddings). The writing app's provider layer decides which
// vendor sits behind the URL; this client only speaks the wire shape.
type HTTPProvider struct {
	baseURL    string
	apiKey     string
	model      string
	dimensions int
	client     *http.Client
}

// NewHTTPProvider creates a provider for the given endpoint and model.
// dimensions must match what the model actually produces; the table layer
// rejects any drift. timeout <= 0 falls back to a 30s default.
func NewHTTPProvider(baseURL, apiKey, model string, dimensions int, timeout time.Duration) (*HTTPProvider, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("embedding base URL is required")
	}
	if dimensions <= 0 {
		return nil, fmt.Errorf("embedding dimensions must be positive, got %d", dimensions)
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &HTTPProvider{
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		dimensions: dimensions,
		client:     &http.Client{Timeout: timeout},
	}, nil
}

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed requests one vector per input text. Any transport failure, non-2xx
// status, timeout, or empty response surfaces as ErrEmbeddingFailed.
func (p *HTTPProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	body, err := json.Marshal(embeddingsRequest{Model: p.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", ErrEmbeddingFailed, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrEmbeddingFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("%w: provider returned %d: %s", ErrEmbeddingFailed, resp.StatusCode, string(b))
	}

	var parsed embeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrEmbeddingFailed, err)
	}
	if len(parsed.Data) == 0 {
		return nil, fmt.Errorf("%w: no embedding produced", ErrEmbeddingFailed)
	}
	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", ErrEmbeddingFailed, len(parsed.Data), len(texts))
	}

	// Providers may return data out of order; index is authoritative.
	vectors := make([][]float32, len(texts))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("%w: vector index %d out of range", ErrEmbeddingFailed, d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("%w: missing vector for input %d", ErrEmbeddingFailed, i)
		}
	}
	return vectors, nil
}

// Dimensions returns the configured vector dimension.
func (p *HTTPProvider) Dimensions() int {
	return p.dimensions
}

// Model returns the configured model identifier.
func (p *HTTPProvider) Model() string {
	return p.model
}

// Close is a no-op for the HTTP provider.
func (p *HTTPProvider) Close() error {
	return nil
}
