// Package catalog holds the immutable, in-memory catalog index: normalized
// products, inverted postings by brand, range, subrange, service line, device
// type and description token, and a vector index over product embeddings.
//
// An Index is never mutated after Build returns. Refreshes build a new Index
// and swap it in through a Holder.
package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"catalog-matcher/internal/contextutil"
	"catalog-matcher/internal/llm"
	"catalog-matcher/internal/storage"
	"catalog-matcher/internal/vectorstore"
)

var (
	// ErrEmptyCatalog is returned when the snapshot has no usable rows.
	ErrEmptyCatalog = errors.New("catalog is empty")
	// ErrSchemaDrift is returned when a required field is absent from every row.
	ErrSchemaDrift = errors.New("catalog schema drift")
	// ErrNoVectors is returned by VectorSearch when the index was built without embeddings.
	ErrNoVectors = errors.New("catalog has no vector index")
)

// pointNamespace seeds deterministic vector point ids derived from product ids.
var pointNamespace = uuid.MustParse("6f1c2b8e-3d7a-4e5f-9a0b-1c2d3e4f5a6b")

// requiredFields must each be populated on at least one snapshot row.
var requiredFields = []struct {
	name string
	get  func(storage.ProductRecord) string
}{
	{"product_id", func(r storage.ProductRecord) string { return r.ProductID }},
	{"range_label", func(r storage.ProductRecord) string { return r.RangeLabel }},
	{"description", func(r storage.ProductRecord) string { return r.Description }},
	{"service_line_code", func(r storage.ProductRecord) string { return r.ServiceLineCode }},
	{"commercial_status", func(r storage.ProductRecord) string { return r.CommercialStatus }},
}

// BuildOptions configures Build.
type BuildOptions struct {
	// Canonicalize maps a range label to its canonical key. Defaults to Fold.
	Canonicalize func(string) string
	// Embedder and Vectors enable the vector index; both nil disables it.
	Embedder llm.Embedder
	Vectors  vectorstore.VectorStore
	// Collection is the base collection name; the snapshot version is appended.
	Collection string
	// BatchSize bounds texts per embedding call.
	BatchSize int
}

// VectorHit is one nearest-neighbour result.
type VectorHit struct {
	Ordinal int
	Score   float64
}

// Index is an immutable catalog snapshot.
type Index struct {
	products []Product
	byID     map[string]int

	byBrand       map[string]Set
	byRange       map[string]Set
	bySubrange    map[string]Set
	byServiceLine map[string]Set
	byDeviceType  map[string]Set
	byToken       map[string]Set

	rangeKeys    []string
	subrangeKeys []string

	version    string
	builtAt    time.Time
	skipped    int
	vectors    vectorstore.VectorStore
	collection string
	embedDims  int
}

// Build normalizes records and constructs every index structure.
// It fails on an empty snapshot or when a required field is absent from every
// record. Malformed or duplicate rows are skipped with a warning.
func Build(ctx context.Context, records []storage.ProductRecord, opts BuildOptions) (*Index, error) {
	logger := contextutil.LoggerFromContext(ctx)
	start := time.Now()

	if len(records) == 0 {
		return nil, ErrEmptyCatalog
	}
	for _, f := range requiredFields {
		present := false
		for i := range records {
			if strings.TrimSpace(f.get(records[i])) != "" {
				present = true
				break
			}
		}
		if !present {
			return nil, fmt.Errorf("%w: field %s is empty on every record", ErrSchemaDrift, f.name)
		}
	}

	canonicalize := opts.Canonicalize
	if canonicalize == nil {
		canonicalize = Fold
	}

	idx := &Index{
		byID:          make(map[string]int, len(records)),
		byBrand:       make(map[string]Set),
		byRange:       make(map[string]Set),
		bySubrange:    make(map[string]Set),
		byServiceLine: make(map[string]Set),
		byDeviceType:  make(map[string]Set),
		byToken:       make(map[string]Set),
	}

	products := make([]Product, 0, len(records))
	seen := make(map[string]bool, len(records))
	for _, rec := range records {
		p, warnings, err := newProduct(rec, canonicalize)
		if err != nil {
			logger.WarnContext(ctx, "skipping malformed catalog row", "product_id", rec.ProductID, "reason", err.Error())
			idx.skipped++
			continue
		}
		if seen[p.ID] {
			logger.WarnContext(ctx, "skipping duplicate catalog row", "product_id", p.ID)
			idx.skipped++
			continue
		}
		seen[p.ID] = true
		for _, w := range warnings {
			logger.WarnContext(ctx, "ignoring unparsable catalog date", "product_id", p.ID, "reason", w)
		}
		products = append(products, p)
	}
	if len(products) == 0 {
		return nil, ErrEmptyCatalog
	}

	// Ordinals follow product id order so every derived structure is deterministic.
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	idx.products = products

	for ord := range products {
		p := &products[ord]
		idx.byID[p.ID] = ord
		addPosting(idx.byBrand, p.BrandKey, ord)
		addPosting(idx.byRange, p.RangeKey, ord)
		addPosting(idx.bySubrange, p.SubrangeKey, ord)
		addPosting(idx.byServiceLine, p.ServiceLine, ord)
		addPosting(idx.byDeviceType, p.DeviceTypeKey, ord)
		for _, tok := range p.Tokens {
			addPosting(idx.byToken, tok, ord)
		}
	}
	// Ordinals are appended in increasing order; tokens repeated within one
	// description are the only source of duplicates.
	for tok, set := range idx.byToken {
		idx.byToken[tok] = NewSet(set...)
	}

	idx.rangeKeys = sortedKeys(idx.byRange)
	idx.subrangeKeys = sortedKeys(idx.bySubrange)
	idx.version = snapshotVersion(products)
	idx.builtAt = time.Now()

	if opts.Embedder != nil && opts.Vectors != nil {
		if err := idx.buildVectors(ctx, opts); err != nil {
			return nil, fmt.Errorf("failed to build vector index: %w", err)
		}
	}

	logger.InfoContext(ctx, "catalog index built",
		"products", len(products),
		"skipped", idx.skipped,
		"ranges", len(idx.rangeKeys),
		"version", idx.version,
		"vector_collection", idx.collection,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return idx, nil
}

func addPosting(m map[string]Set, key string, ord int) {
	if key == "" {
		return
	}
	m[key] = append(m[key], ord)
}

func sortedKeys(m map[string]Set) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// snapshotVersion hashes the fields that affect matching.
func snapshotVersion(products []Product) string {
	h := sha256.New()
	for i := range products {
		p := &products[i]
		for _, f := range []string{p.ID, p.Description, p.RangeLabel, p.SubrangeLabel, p.BrandLabel, p.DeviceType, p.ServiceLine, p.CommercialStatus} {
			h.Write([]byte(f))
			h.Write([]byte{0})
		}
	}
	return hex.EncodeToString(h.Sum(nil))[:12]
}

// PointID is the deterministic vector point id for a product.
func PointID(productID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(productID)).String()
}

// buildVectors embeds every product into a per-version collection. A collection
// that already holds this version's points is reused as is.
func (idx *Index) buildVectors(ctx context.Context, opts BuildOptions) error {
	logger := contextutil.LoggerFromContext(ctx)

	base := opts.Collection
	if base == "" {
		base = "catalog"
	}
	idx.collection = base + "_" + idx.version
	idx.vectors = opts.Vectors
	idx.embedDims = opts.Embedder.Dimensions()

	if err := opts.Vectors.EnsureCollection(ctx, idx.collection, idx.embedDims); err != nil {
		return err
	}
	info, err := opts.Vectors.GetCollectionInfo(ctx, idx.collection)
	if err == nil && info.PointsCount == len(idx.products) {
		logger.InfoContext(ctx, "reusing vector collection", "collection", idx.collection, "points", info.PointsCount)
		return nil
	}

	texts := make([]string, len(idx.products))
	for i := range idx.products {
		texts[i] = idx.products[i].EmbeddingText()
	}
	vecs, err := llm.EmbedBatched(ctx, opts.Embedder, texts, opts.BatchSize)
	if err != nil {
		return err
	}

	points := make([]vectorstore.Point, len(idx.products))
	for i := range idx.products {
		p := &idx.products[i]
		points[i] = vectorstore.Point{
			ID:  PointID(p.ID),
			Vec: vecs[i],
			Meta: map[string]any{
				"product_id":        p.ID,
				"service_line_code": p.ServiceLine,
			},
		}
	}
	return opts.Vectors.Upsert(ctx, idx.collection, points)
}

// Len returns the number of products.
func (idx *Index) Len() int { return len(idx.products) }

// Product returns the product at ordinal ord.
func (idx *Index) Product(ord int) *Product { return &idx.products[ord] }

// Lookup returns the ordinal of a product id.
func (idx *Index) Lookup(productID string) (int, bool) {
	ord, ok := idx.byID[productID]
	return ord, ok
}

// All returns every ordinal.
func (idx *Index) All() Set {
	s := make(Set, len(idx.products))
	for i := range s {
		s[i] = i
	}
	return s
}

// Version identifies the snapshot content.
func (idx *Index) Version() string { return idx.version }

// BuiltAt is when the index finished building.
func (idx *Index) BuiltAt() time.Time { return idx.builtAt }

// Skipped is the number of snapshot rows rejected during build.
func (idx *Index) Skipped() int { return idx.skipped }

// Collection is the vector collection name, empty without vectors.
func (idx *Index) Collection() string { return idx.collection }

// HasVectors reports whether VectorSearch is available.
func (idx *Index) HasVectors() bool { return idx.vectors != nil }

// LookupByServiceLine returns products of a folded service line code.
func (idx *Index) LookupByServiceLine(code string) Set {
	return idx.byServiceLine[Fold(code)]
}

// LookupByRange returns products whose canonical range key equals key.
func (idx *Index) LookupByRange(key string) Set {
	return idx.byRange[key]
}

// LookupBySubrange returns products whose folded subrange equals label.
func (idx *Index) LookupBySubrange(label string) Set {
	return idx.bySubrange[Fold(label)]
}

// LookupByBrand returns products whose folded brand equals label.
func (idx *Index) LookupByBrand(label string) Set {
	return idx.byBrand[Fold(label)]
}

// LookupByToken returns products whose description contains the folded token.
func (idx *Index) LookupByToken(tok string) Set {
	return idx.byToken[tok]
}

// LookupByDeviceType returns products whose device type contains label,
// case-insensitively. It scans distinct device types, not products.
func (idx *Index) LookupByDeviceType(label string) Set {
	key := Fold(label)
	if key == "" {
		return nil
	}
	var out Set
	for dt, set := range idx.byDeviceType {
		if strings.Contains(dt, key) {
			out = out.Union(set)
		}
	}
	return out
}

// RangeKeys returns the distinct canonical range keys, sorted.
func (idx *Index) RangeKeys() []string { return idx.rangeKeys }

// SubrangeKeys returns the distinct folded subrange keys, sorted.
func (idx *Index) SubrangeKeys() []string { return idx.subrangeKeys }

// VectorSearch returns the k nearest products to vec, best first.
func (idx *Index) VectorSearch(ctx context.Context, vec []float32, k int) ([]VectorHit, error) {
	if idx.vectors == nil {
		return nil, ErrNoVectors
	}
	if len(vec) != idx.embedDims {
		return nil, fmt.Errorf("query vector has size %d, expected %d", len(vec), idx.embedDims)
	}

	results, err := idx.vectors.Search(ctx, idx.collection, vec, k, nil)
	if err != nil {
		return nil, err
	}

	hits := make([]VectorHit, 0, len(results))
	for _, r := range results {
		id, _ := r.Meta["product_id"].(string)
		ord, ok := idx.byID[id]
		if !ok {
			continue
		}
		hits = append(hits, VectorHit{Ordinal: ord, Score: float64(r.Score)})
	}
	return hits, nil
}

// Release drops the vector collection backing this snapshot.
func (idx *Index) Release(ctx context.Context) error {
	if idx.vectors == nil || idx.collection == "" {
		return nil
	}
	return idx.vectors.DropCollection(ctx, idx.collection)
}
