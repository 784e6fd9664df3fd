package llm

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_embedder.go -package=mocks catalog-matcher/internal/llm Embedder

import (
	"context"
	"fmt"
)

// Embedder turns texts into fixed-size vectors.
// Implementations must return exactly one vector per input, each of size Dimensions().
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// EmbedBatched embeds texts in chunks of batchSize, preserving input order.
func EmbedBatched(ctx context.Context, e Embedder, texts []string, batchSize int) ([][]float32, error) {
	if batchSize <= 0 {
		batchSize = len(texts)
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := min(start+batchSize, len(texts))
		vecs, err := e.EmbedTexts(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to embed batch %d-%d: %w", start, end, err)
		}
		if len(vecs) != end-start {
			return nil, fmt.Errorf("embedding batch %d-%d returned %d vectors, expected %d", start, end, len(vecs), end-start)
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// Probe embeds a single text and checks the vector size.
// Used at startup so a misconfigured provider fails before serving.
func Probe(ctx context.Context, e Embedder) error {
	vecs, err := e.EmbedTexts(ctx, []string{"probe"})
	if err != nil {
		return fmt.Errorf("embedding provider unreachable: %w", err)
	}
	if len(vecs) != 1 || len(vecs[0]) != e.Dimensions() {
		got := 0
		if len(vecs) > 0 {
			got = len(vecs[0])
		}
		return fmt.Errorf("embedding vector size mismatch: expected %d, got %d", e.Dimensions(), got)
	}
	return nil
}
