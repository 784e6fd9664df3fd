package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"catalog-matcher/internal/contextutil"
	"catalog-matcher/internal/storage"
)

// ErrReloadInProgress is returned when a reload is requested while one is running.
var ErrReloadInProgress = errors.New("catalog reload already in progress")

// IsMisconfigured reports whether err means the snapshot itself is unusable
// (schema drift or no usable rows) rather than temporarily unreachable.
func IsMisconfigured(err error) bool {
	return errors.Is(err, ErrSchemaDrift) || errors.Is(err, ErrEmptyCatalog)
}

// LoaderFunc produces a fresh Index from the upstream snapshot.
type LoaderFunc func(ctx context.Context) (*Index, error)

// NewLoader validates the snapshot schema, reads every row and builds an Index.
func NewLoader(store storage.CatalogStore, opts BuildOptions) LoaderFunc {
	return func(ctx context.Context) (*Index, error) {
		if err := store.ValidateSchema(ctx); err != nil {
			if errors.Is(err, storage.ErrSchemaDrift) {
				return nil, fmt.Errorf("%w: %w", ErrSchemaDrift, err)
			}
			return nil, fmt.Errorf("failed to validate catalog schema: %w", err)
		}
		records, err := store.ListProducts(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog snapshot: %w", err)
		}
		return Build(ctx, records, opts)
	}
}

// Holder owns the current Index. Readers get a consistent snapshot with
// Current; reloads build a new Index off to the side and swap the pointer.
type Holder struct {
	current atomic.Pointer[Index]
	load    LoaderFunc
	logger  *slog.Logger

	mu        sync.Mutex // serializes reloads
	reloading atomic.Bool
	pending   atomic.Bool // a triggered reload has not finished
	lastErr   atomic.Pointer[reloadError]

	// grace is how long a replaced snapshot keeps its vector collection,
	// so in-flight requests can finish their searches.
	grace time.Duration
}

type reloadError struct {
	err error
	at  time.Time
}

// NewHolder creates an empty holder. Call Reload before serving.
func NewHolder(load LoaderFunc) *Holder {
	return &Holder{
		load:   load,
		logger: slog.Default(),
		grace:  30 * time.Second,
	}
}

// Current returns the active snapshot, or nil before the first successful load.
func (h *Holder) Current() *Index {
	return h.current.Load()
}

// Reloading reports whether a reload is running.
func (h *Holder) Reloading() bool {
	return h.reloading.Load() || h.pending.Load()
}

// LastError returns the most recent reload failure, if any.
func (h *Holder) LastError() (time.Time, error) {
	if e := h.lastErr.Load(); e != nil {
		return e.at, e.err
	}
	return time.Time{}, nil
}

// Reload builds a new Index and swaps it in. On failure the previous snapshot
// stays active.
func (h *Holder) Reload(ctx context.Context) (*Index, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.reloading.Store(true)
	defer h.reloading.Store(false)

	logger := contextutil.LoggerFromContext(ctx)
	start := time.Now()

	next, err := h.load(ctx)
	if err != nil {
		h.lastErr.Store(&reloadError{err: err, at: time.Now()})
		logger.ErrorContext(ctx, "catalog reload failed", "error", err)
		return nil, err
	}
	h.lastErr.Store(nil)

	prev := h.current.Swap(next)
	logger.InfoContext(ctx, "catalog snapshot swapped",
		"version", next.Version(),
		"products", next.Len(),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if prev != nil && prev.Collection() != "" && prev.Collection() != next.Collection() {
		time.AfterFunc(h.grace, func() {
			if err := prev.Release(context.Background()); err != nil {
				h.logger.Warn("failed to release previous vector collection", "collection", prev.Collection(), "error", err)
			}
		})
	}
	return next, nil
}

// TriggerReload starts a reload in the background. It returns
// ErrReloadInProgress when one is already running.
func (h *Holder) TriggerReload(ctx context.Context) error {
	if h.reloading.Load() || !h.pending.CompareAndSwap(false, true) {
		return ErrReloadInProgress
	}
	// Detach from the request: the reload outlives it.
	bg := contextutil.WithLogger(context.Background(), contextutil.LoggerFromContext(ctx))
	go func() {
		defer h.pending.Store(false)
		_, _ = h.Reload(bg)
	}()
	return nil
}

// Run reloads on every tick until ctx is cancelled. A non-positive interval returns immediately.
func (h *Holder) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := h.Reload(ctx); err != nil {
				h.logger.WarnContext(ctx, "periodic catalog reload failed, keeping previous snapshot", "error", err)
			}
		}
	}
}
