package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/drillscout/internal/db"
)

var _ db.Store = (*Store)(nil)

const (
	defaultClientName = "drillscout"
	defaultScanCount  = 200
	defaultBatchSize  = 256

	readyBackoffStart = 50 * time.Millisecond
	readyBackoffMax   = 2 * time.Second
)

// Config holds connection parameters. Valkey and Redis are configured the same way.
type Config struct {
	Addrs    []string
	Username string
	Password string
	DB       int
	// ClientName shows up in CLIENT LIST. Defaults to "drillscout".
	ClientName string
	// ScanCount is the COUNT hint of each SCAN page.
	ScanCount int
	// BatchSize caps the commands sent in one DoMulti round-trip.
	BatchSize int
}

func (c Config) withDefaults() Config {
	if c.ClientName == "" {
		c.ClientName = defaultClientName
	}
	if c.ScanCount <= 0 {
		c.ScanCount = defaultScanCount
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	return c
}

// clientOption translates Config into rueidis options.
// Client-side caching stays off: documents are re-read through the in-process row caches.
func (c Config) clientOption() rueidis.ClientOption {
	return rueidis.ClientOption{
		InitAddress:  c.Addrs,
		Username:     c.Username,
		Password:     c.Password,
		SelectDB:     c.DB,
		ClientName:   c.ClientName,
		DisableCache: true,
	}
}

// Store talks to Redis Stack or Valkey with the JSON module loaded.
type Store struct {
	client    rueidis.Client
	scanCount int64
	batchSize int
}

// NewStore connects to the configured addresses.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, errors.New("addrs is required")
	}
	cfg = cfg.withDefaults()

	client, err := rueidis.NewClient(cfg.clientOption())
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return newStore(client, cfg), nil
}

// NewStoreForTest wraps a prepared client, typically a rueidis mock.
func NewStoreForTest(c rueidis.Client) *Store {
	return newStore(c, Config{}.withDefaults())
}

func newStore(c rueidis.Client, cfg Config) *Store {
	return &Store{client: c, scanCount: int64(cfg.ScanCount), batchSize: cfg.BatchSize}
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.do(ctx, s.b().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

// WaitForReady pings with exponential backoff until the store answers or timeout expires.
// The last ping error is reported on timeout.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	delay := readyBackoffStart
	var lastErr error
	for {
		if lastErr = s.Ping(ctx); lastErr == nil {
			return nil
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("timeout waiting for database (last error: %v): %w", lastErr, ctx.Err())
		case <-timer.C:
		}
		delay = min(delay*2, readyBackoffMax)
	}
}

func (s *Store) do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	return s.client.Do(ctx, cmd)
}

func (s *Store) b() rueidis.Builder {
	return s.client.B()
}

// doBatched runs cmds through DoMulti in chunks of batchSize, preserving order.
func (s *Store) doBatched(ctx context.Context, cmds []rueidis.Completed) []rueidis.RedisResult {
	out := make([]rueidis.RedisResult, 0, len(cmds))
	for start := 0; start < len(cmds); start += s.batchSize {
		end := min(start+s.batchSize, len(cmds))
		out = append(out, s.client.DoMulti(ctx, cmds[start:end]...)...)
	}
	return out
}
