package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/drillscout/internal/domain"
	"github.com/kailas-cloud/drillscout/internal/metrics"
)

// BreakerConfig tunes the provider circuit breaker.
type BreakerConfig struct {
	// FailureThreshold consecutive failures open the circuit. Zero disables the breaker.
	FailureThreshold uint32
	// OpenTimeout is how long the circuit stays open before a probe is let through.
	OpenTimeout time.Duration
	// HalfOpenRequests is the number of probes allowed while half-open.
	HalfOpenRequests uint32
}

// BreakerEmbedder stops calling a failing provider for a while, so searches
// fall back to the listing immediately instead of waiting for timeouts.
type BreakerEmbedder struct {
	inner    domain.Embedder
	cb       *gobreaker.CircuitBreaker[domain.EmbeddingResult]
	provider string
}

// NewBreakerEmbedder wraps inner with a circuit breaker.
func NewBreakerEmbedder(inner domain.Embedder, provider string, cfg BreakerConfig, logger *zap.Logger) *BreakerEmbedder {
	if cfg.HalfOpenRequests == 0 {
		cfg.HalfOpenRequests = 1
	}
	threshold := cfg.FailureThreshold

	settings := gobreaker.Settings{
		Name:        "embedding:" + provider,
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// A caller giving up is not a provider failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.EmbeddingBreakerState.WithLabelValues(provider).Set(float64(to))
			logger.Warn("Embedding circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &BreakerEmbedder{
		inner:    inner,
		cb:       gobreaker.NewCircuitBreaker[domain.EmbeddingResult](settings),
		provider: provider,
	}
}

// Embed calls the provider unless the circuit is open.
func (b *BreakerEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	res, err := b.cb.Execute(func() (domain.EmbeddingResult, error) {
		return b.inner.Embed(ctx, text)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.EmbeddingBreakerRejectionsTotal.WithLabelValues(b.provider).Inc()
		return domain.EmbeddingResult{}, fmt.Errorf("provider circuit open: %w", domain.ErrEmbeddingProviderError)
	}
	if err != nil {
		return domain.EmbeddingResult{}, err //nolint:wrapcheck // inner errors are already wrapped
	}
	return res, nil
}

// State reports the breaker state: closed, half-open or open.
func (b *BreakerEmbedder) State() string { return b.cb.State().String() }
