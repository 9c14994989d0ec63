package drillscout

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver   string // "valkey" or "redis"
	addrs    []string
	password string

	embedder Embedder

	gatedRoles   []string
	embeddingTTL time.Duration
	listingTTL   time.Duration
	snapshotTTL  time.Duration
	timeout      time.Duration

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

func defaultConfig() *clientConfig {
	return &clientConfig{
		gatedRoles:   []string{"player"},
		embeddingTTL: 10 * time.Minute,
		listingTTL:   10 * time.Minute,
		snapshotTTL:  time.Hour,
		timeout:      3 * time.Second,
	}
}

// WithValkey configures the client to connect to a Valkey instance.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis configures the client to connect to a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithEmbedder sets the query embedding provider that enables semantic search.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithGatedRoles sets the roles that need an active subscription to see
// non-free video links. Default: "player".
func WithGatedRoles(roles ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.gatedRoles = roles
	})
}

// WithCacheTTLs overrides the in-process cache lifetimes. Zero keeps the default
// (10m embeddings, 10m listing, 1h vector snapshot).
func WithCacheTTLs(embeddings, listing, snapshot time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		if embeddings > 0 {
			c.embeddingTTL = embeddings
		}
		if listing > 0 {
			c.listingTTL = listing
		}
		if snapshot > 0 {
			c.snapshotTTL = snapshot
		}
	})
}

// WithTimeout bounds each embedding call and catalog read. Default: 3s.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.timeout = d
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
