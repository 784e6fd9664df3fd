package vectorstore

import (
	"container/heap"
	"context"
	"fmt"
	"math"
	"sync"
)

// MemoryStore is an exact, brute-force cosine VectorStore held in process memory.
// Vectors are normalized on upsert so a search is one dot product per point.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
}

type memCollection struct {
	dims  int
	ids   []string
	vecs  [][]float32
	meta  []map[string]any
	index map[string]int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memCollection)}
}

func (s *MemoryStore) collection(name string) (*memCollection, error) {
	c, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	return c, nil
}

// Upsert inserts or replaces points. Vector sizes must match the collection.
func (s *MemoryStore) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.collection(collection)
	if err != nil {
		return err
	}

	for _, p := range points {
		if len(p.Vec) != c.dims {
			return fmt.Errorf("point %s has size %d, expected %d", p.ID, len(p.Vec), c.dims)
		}
		vec := normalize(p.Vec)
		if i, ok := c.index[p.ID]; ok {
			c.vecs[i] = vec
			c.meta[i] = p.Meta
			continue
		}
		c.index[p.ID] = len(c.ids)
		c.ids = append(c.ids, p.ID)
		c.vecs = append(c.vecs, vec)
		c.meta = append(c.meta, p.Meta)
	}
	return nil
}

// Search scans every point and keeps the k best with a min-heap.
// Ties are ordered by point id.
func (s *MemoryStore) Search(ctx context.Context, collection string, query []float32, k int, filters map[string]any) ([]SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	if len(query) != c.dims {
		return nil, fmt.Errorf("query has size %d, expected %d", len(query), c.dims)
	}

	q := normalize(query)
	if isZero(q) {
		return []SearchResult{}, nil
	}

	h := &resultHeap{}
	for i, vec := range c.vecs {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if !matchesFilters(c.meta[i], filters) {
			continue
		}

		var dot float32
		for j := range vec {
			dot += vec[j] * q[j]
		}
		r := SearchResult{PointID: c.ids[i], Score: clampScore(dot), Meta: c.meta[i]}

		if h.Len() < k {
			heap.Push(h, r)
		} else if better(r, (*h)[0]) {
			(*h)[0] = r
			heap.Fix(h, 0)
		}
	}

	out := make([]SearchResult, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(SearchResult)
	}
	return out, nil
}

// Delete removes points; unknown ids are ignored.
func (s *MemoryStore) Delete(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.collection(collection)
	if err != nil {
		return err
	}

	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	kept := &memCollection{dims: c.dims, index: make(map[string]int, len(c.ids))}
	for i, id := range c.ids {
		if drop[id] {
			continue
		}
		kept.index[id] = len(kept.ids)
		kept.ids = append(kept.ids, id)
		kept.vecs = append(kept.vecs, c.vecs[i])
		kept.meta = append(kept.meta, c.meta[i])
	}
	s.collections[collection] = kept
	return nil
}

// EnsureCollection creates the collection or validates its vector size.
func (s *MemoryStore) EnsureCollection(ctx context.Context, collection string, vectorSize int) error {
	if vectorSize <= 0 {
		return fmt.Errorf("vector size must be greater than 0")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.collections[collection]; ok {
		if c.dims != vectorSize {
			return fmt.Errorf("collection vector size mismatch: expected %d, got %d", vectorSize, c.dims)
		}
		return nil
	}
	s.collections[collection] = &memCollection{dims: vectorSize, index: make(map[string]int)}
	return nil
}

// CollectionExists checks if a collection exists.
func (s *MemoryStore) CollectionExists(ctx context.Context, collection string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.collections[collection]
	return ok, nil
}

// DropCollection removes a collection.
func (s *MemoryStore) DropCollection(ctx context.Context, collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, collection)
	return nil
}

// GetCollectionInfo returns vector size and point count.
func (s *MemoryStore) GetCollectionInfo(ctx context.Context, collection string) (*CollectionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	return &CollectionInfo{VectorSize: c.dims, PointsCount: len(c.ids), Status: "green"}, nil
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		return out
	}
	inv := 1 / math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// clampScore absorbs float rounding just outside [-1, 1].
func clampScore(f float32) float32 {
	return float32(math.Max(-1, math.Min(1, float64(f))))
}

func matchesFilters(meta map[string]any, filters map[string]any) bool {
	for k, want := range filters {
		got, ok := meta[k]
		if !ok || fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

// better reports whether a ranks ahead of b.
func better(a, b SearchResult) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.PointID < b.PointID
}

// resultHeap is a min-heap on rank, so the root is the current worst of the top k.
type resultHeap []SearchResult

func (h resultHeap) Len() int           { return len(h) }
func (h resultHeap) Less(i, j int) bool { return better(h[j], h[i]) }
func (h resultHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *resultHeap) Push(x any)        { *h = append(*h, x.(SearchResult)) }
func (h *resultHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
