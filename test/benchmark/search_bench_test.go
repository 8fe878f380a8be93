package benchmark

import (
	"context"
	"fmt"
	"testing"

	"github.com/inkhaven/inkdex/internal/embedding"
	"github.com/inkhaven/inkdex/internal/models"
	"github.com/inkhaven/inkdex/internal/vectortable"
)

func BenchmarkCosineDistance(b *testing.B) {
	x := make([]float32, 384)
	y := make([]float32, 384)
	for i := range x {
		x[i] = float32(i) / 384
		y[i] = float32(384-i) / 384
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = vectortable.CosineDistance(x, y)
	}
}

func BenchmarkMemoryTableSearch(b *testing.B) {
	tbl, _ := vectortable.NewMemoryTable("documents", 384)
	ctx := context.Background()
	records := make([]*models.EmbeddingRecord, 1000)
	for i := range records {
		vec := make([]float32, 384)
		vec[0] = float32(i) / 1000
		records[i] = &models.EmbeddingRecord{
			ID:     fmt.Sprintf("rec-%d", i),
			Vector: vec,
		}
	}
	_ = tbl.Insert(ctx, records)
	query := make([]float32, 384)
	query[0] = 1.0
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = tbl.Search(ctx, query, 10, nil)
	}
}

func BenchmarkMockProvider_Embed(b *testing.B) {
	p := embedding.NewMockProvider(384)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = p.Embed(ctx, []string{"benchmark query text for embedding"})
	}
}

func BenchmarkCachedProvider_Hit(b *testing.B) {
	p := embedding.NewCachedProvider(embedding.NewMockProvider(384), 10)
	ctx := context.Background()
	texts := []string{"repeated query"}
	_, _ = p.Embed(ctx, texts)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = p.Embed(ctx, texts)
	}
}
