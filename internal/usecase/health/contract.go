package health

import "context"

// DBPinger checks that the document store answers.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks that the query embedding provider answers.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// BreakerStater reports the embedding circuit breaker state ("closed", "half-open" or "open").
type BreakerStater interface {
	State() string
}

// CacheSizer reports the number of entries held by each named in-process cache.
type CacheSizer interface {
	Sizes() map[string]int
}
