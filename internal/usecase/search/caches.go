package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/drillscout/internal/cache"
	"github.com/kailas-cloud/drillscout/internal/domain/drill"
	"github.com/kailas-cloud/drillscout/internal/metrics"
)

// Cache names as they appear in metrics and health output.
const (
	CacheEmbeddings = "embeddings"
	CacheListing    = "listing"
	CacheSnapshot   = "snapshot"
)

// Default lifetimes of the named caches.
const (
	DefaultEmbeddingTTL = 10 * time.Minute
	DefaultListingTTL   = 10 * time.Minute
	DefaultSnapshotTTL  = time.Hour
)

// Caches owns the in-process caches of the search module.
// Embeddings memoizes query vectors, Listing holds catalog rows for text search,
// Snapshot holds embedded catalog rows for vector search.
type Caches struct {
	Embeddings *cache.TTL[[]float32]
	Listing    *cache.TTL[[]drill.Drill]
	Snapshot   *cache.TTL[[]drill.Drill]
}

// NewCaches creates the three caches. Non-positive TTLs take the defaults.
func NewCaches(embeddingTTL, listingTTL, snapshotTTL time.Duration, opts ...cache.Option) *Caches {
	if embeddingTTL <= 0 {
		embeddingTTL = DefaultEmbeddingTTL
	}
	if listingTTL <= 0 {
		listingTTL = DefaultListingTTL
	}
	if snapshotTTL <= 0 {
		snapshotTTL = DefaultSnapshotTTL
	}
	return &Caches{
		Embeddings: cache.New[[]float32](embeddingTTL, opts...),
		Listing:    cache.New[[]drill.Drill](listingTTL, opts...),
		Snapshot:   cache.New[[]drill.Drill](snapshotTTL, opts...),
	}
}

// Cleanup evicts expired entries from every cache and returns the total evicted.
func (c *Caches) Cleanup() int {
	counts := map[string]int{
		CacheEmbeddings: c.Embeddings.Cleanup(),
		CacheListing:    c.Listing.Cleanup(),
		CacheSnapshot:   c.Snapshot.Cleanup(),
	}
	total := 0
	for name, n := range counts {
		if n > 0 {
			metrics.CacheEvictionsTotal.WithLabelValues(name).Add(float64(n))
		}
		total += n
	}
	return total
}

// Sizes reports the entry count per cache.
func (c *Caches) Sizes() map[string]int {
	return map[string]int{
		CacheEmbeddings: c.Embeddings.Len(),
		CacheListing:    c.Listing.Len(),
		CacheSnapshot:   c.Snapshot.Len(),
	}
}

// Sweep runs Cleanup every interval until ctx is done.
func (c *Caches) Sweep(ctx context.Context, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.Cleanup(); n > 0 {
				logger.Debug("Cache sweep evicted entries", zap.Int("evicted", n))
			}
		}
	}
}

// categoryKey is the cache key of a category-filtered catalog read.
func categoryKey(categoryID string) string {
	if categoryID == "" {
		return "category:*"
	}
	return "category:" + categoryID
}

// rowLoader reads catalog rows through one of the row caches.
// Concurrent misses on the same key share one catalog read.
type rowLoader struct {
	name    string
	cache   *cache.TTL[[]drill.Drill]
	fetch   func(ctx context.Context, categoryID string) ([]drill.Drill, error)
	timeout time.Duration
	flight  *singleflight.Group
}

func newRowLoader(
	name string, c *cache.TTL[[]drill.Drill],
	fetch func(ctx context.Context, categoryID string) ([]drill.Drill, error),
	timeout time.Duration,
) rowLoader {
	return rowLoader{name: name, cache: c, fetch: fetch, timeout: timeout, flight: &singleflight.Group{}}
}

func (l *rowLoader) load(ctx context.Context, categoryID string) ([]drill.Drill, error) {
	key := categoryKey(categoryID)
	if rows, ok := l.cache.Get(key); ok {
		metrics.CacheTotal.WithLabelValues(l.name, "hit").Inc()
		return rows, nil
	}
	metrics.CacheTotal.WithLabelValues(l.name, "miss").Inc()

	ch := l.flight.DoChan(key, func() (any, error) {
		// The shared read must not die with whichever caller started it.
		fetchCtx := context.WithoutCancel(ctx)
		if l.timeout > 0 {
			var cancel context.CancelFunc
			fetchCtx, cancel = context.WithTimeout(fetchCtx, l.timeout)
			defer cancel()
		}
		rows, err := l.fetch(fetchCtx, categoryID)
		if err != nil {
			return nil, err
		}
		l.cache.Set(key, rows)
		return rows, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load %s rows: %w", l.name, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("load %s rows: %w", l.name, res.Err)
		}
		return res.Val.([]drill.Drill), nil
	}
}
