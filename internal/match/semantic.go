package match

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"catalog-matcher/internal/catalog"
	"catalog-matcher/internal/llm"
)

var errSemanticDisabled = errors.New("no embedding provider configured")

// semanticSearcher embeds query text and retrieves nearest products.
// Query embeddings are cached by folded text.
type semanticSearcher struct {
	embedder llm.Embedder
	cache    *lru.Cache[string, []float32]
	timeout  time.Duration
	topK     int
}

func newSemanticSearcher(embedder llm.Embedder, cacheSize, topK int, timeout time.Duration) (*semanticSearcher, error) {
	s := &semanticSearcher{embedder: embedder, timeout: timeout, topK: topK}
	if cacheSize > 0 {
		cache, err := lru.New[string, []float32](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create embedding cache: %w", err)
		}
		s.cache = cache
	}
	return s, nil
}

// semanticText is the description, else the range and subrange labels.
func semanticText(q *NormalizedQuery) string {
	if q.Description != "" {
		return q.Description
	}
	return strings.TrimSpace(q.Raw.RangeLabel + " " + q.Raw.SubrangeLabel)
}

// search returns similarity per ordinal for the top-K neighbours, clamped
// to [0, 1]. Any failure is returned for the caller to degrade on.
func (s *semanticSearcher) search(ctx context.Context, idx *catalog.Index, q *NormalizedQuery) (map[int]float64, error) {
	if s == nil || s.embedder == nil {
		return nil, errSemanticDisabled
	}
	if !idx.HasVectors() {
		return nil, catalog.ErrNoVectors
	}
	text := semanticText(q)
	if text == "" {
		return nil, nil
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	vec, err := s.embed(ctx, text)
	if err != nil {
		return nil, err
	}
	hits, err := idx.VectorSearch(ctx, vec, s.topK)
	if err != nil {
		return nil, fmt.Errorf("failed to search vectors: %w", err)
	}

	out := make(map[int]float64, len(hits))
	for _, h := range hits {
		out[h.Ordinal] = clamp01(h.Score)
	}
	return out, nil
}

func (s *semanticSearcher) embed(ctx context.Context, text string) ([]float32, error) {
	key := catalog.Fold(text)
	if s.cache != nil {
		if vec, ok := s.cache.Get(key); ok {
			return vec, nil
		}
	}

	vecs, err := s.embedder.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embedding provider returned %d vectors for 1 text", len(vecs))
	}
	if s.cache != nil {
		s.cache.Add(key, vecs[0])
	}
	return vecs[0], nil
}
