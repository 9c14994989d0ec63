package db

import (
	"context"
	"time"
)

// Store is everything drillscout needs from the key-value backend.
// Repositories depend on the narrower interfaces below, never on Store.
type Store interface {
	Pinger
	DocumentReader
	DocumentWriter
	BlobCache
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// JSONSetItem is one document write for a pipelined JSON.SET.
type JSONSetItem struct {
	Key  string
	Path string
	Data []byte
}

// DocumentReader lists and fetches JSON documents (drills, criteria, assessments).
type DocumentReader interface {
	Scan(ctx context.Context, pattern string) ([]string, error)
	// JSONGetMulti returns one entry per key, nil where the key no longer exists.
	JSONGetMulti(ctx context.Context, keys []string, path string) ([][]byte, error)
}

// DocumentWriter seeds JSON documents.
type DocumentWriter interface {
	JSONSetMulti(ctx context.Context, items []JSONSetItem) error
}

// BlobCache holds opaque values with an expiry, used for shared query embeddings.
type BlobCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
