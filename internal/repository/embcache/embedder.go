package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/drillscout/internal/db"
	"github.com/kailas-cloud/drillscout/internal/domain"
)

const (
	// DefaultTTL is how long a query embedding stays in the shared store.
	DefaultTTL = 24 * time.Hour
	// DefaultWriteTimeout bounds the store write after a provider call.
	DefaultWriteTimeout = 500 * time.Millisecond

	// entryVersion leads every stored value; bump it when the layout changes.
	entryVersion byte = 1
	headerLen         = 3 // version + uint16 dimensions
)

type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Options configures a CachedEmbedder.
type Options struct {
	// Model scopes keys so a model switch never serves vectors from the old space.
	Model string
	// Dimensions rejects stored vectors of another length. Zero accepts any length.
	Dimensions int
	TTL        time.Duration
	// WriteTimeout bounds the write-back, which outlives a canceled caller.
	WriteTimeout time.Duration
	// CacheTotal takes labels "cache" and "result". Optional.
	CacheTotal *prometheus.CounterVec
	Logger     *zap.Logger
}

// CachedEmbedder shares query embeddings between replicas through the store.
// It sits behind the in-process embedding cache of the search service.
type CachedEmbedder struct {
	inner  domain.Embedder
	store  store
	prefix string
	opts   Options
}

// New wraps inner with a store-backed cache.
func New(inner domain.Embedder, s store, opts Options) *CachedEmbedder {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	model := opts.Model
	if model == "" {
		model = "default"
	}
	return &CachedEmbedder{
		inner:  inner,
		store:  s,
		prefix: domain.KeyPrefix + "emb_cache:" + model + ":",
		opts:   opts,
	}
}

// Embed returns a stored embedding or calls the inner embedder and stores the result.
// Store failures never fail the call. On a hit the token counts are zero.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := c.key(text)

	if vec, ok := c.lookup(ctx, key); ok {
		c.count("hit")
		return domain.EmbeddingResult{Embedding: vec}, nil
	}
	c.count("miss")

	result, err := c.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}
	c.writeBack(ctx, key, result.Embedding)
	return result, nil
}

func (c *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return c.prefix + hex.EncodeToString(sum[:])
}

func (c *CachedEmbedder) count(result string) {
	if c.opts.CacheTotal != nil {
		c.opts.CacheTotal.WithLabelValues("embedding_store", result).Inc()
	}
}

func (c *CachedEmbedder) lookup(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.store.Get(ctx, key)
	switch {
	case errors.Is(err, db.ErrKeyNotFound):
		return nil, false
	case err != nil:
		c.opts.Logger.Warn("Embedding store read failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	vec, err := decodeEntry(data, c.opts.Dimensions)
	if err != nil {
		c.count("corrupt")
		c.opts.Logger.Warn("Discarding stored embedding", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return vec, true
}

func (c *CachedEmbedder) writeBack(ctx context.Context, key string, vec []float32) {
	if len(vec) == 0 {
		return
	}
	entry, err := encodeEntry(vec)
	if err != nil {
		c.opts.Logger.Warn("Embedding not cacheable", zap.Error(err))
		return
	}

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.WriteTimeout)
	defer cancel()
	if err := c.store.SetWithTTL(wctx, key, entry, c.opts.TTL); err != nil {
		c.opts.Logger.Warn("Embedding store write failed", zap.String("key", key), zap.Error(err))
	}
}

// encodeEntry lays out: version byte, uint16 dimensions, then little-endian float32s.
func encodeEntry(v []float32) ([]byte, error) {
	if len(v) > math.MaxUint16 {
		return nil, fmt.Errorf("vector of %d dimensions exceeds entry format", len(v))
	}
	buf := make([]byte, headerLen+len(v)*4)
	buf[0] = entryVersion
	binary.LittleEndian.PutUint16(buf[1:headerLen], uint16(len(v)))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[headerLen+i*4:], math.Float32bits(f))
	}
	return buf, nil
}

func decodeEntry(data []byte, wantDims int) ([]float32, error) {
	if len(data) < headerLen || data[0] != entryVersion {
		return nil, errors.New("unknown entry format")
	}
	dims := int(binary.LittleEndian.Uint16(data[1:headerLen]))
	if dims == 0 || len(data) != headerLen+dims*4 {
		return nil, fmt.Errorf("entry length %d does not match %d dimensions", len(data), dims)
	}
	if wantDims > 0 && dims != wantDims {
		return nil, fmt.Errorf("entry has %d dimensions, want %d", dims, wantDims)
	}
	vec := make([]float32, dims)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[headerLen+i*4:]))
	}
	return vec, nil
}
