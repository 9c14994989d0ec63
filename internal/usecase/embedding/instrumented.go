package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/drillscout/internal/domain"
	"github.com/kailas-cloud/drillscout/internal/logger"
	"github.com/kailas-cloud/drillscout/internal/metrics"
)

// InstrumentedEmbedder bounds each query embedding with a deadline and reports how it went.
// Provider-level metrics (requests, tokens, dimensions) are recorded in transport/openai;
// this layer sees the whole decorated chain, store cache included.
type InstrumentedEmbedder struct {
	inner    domain.Embedder
	provider string
	model    string
	timeout  time.Duration
	logger   *zap.Logger
}

// NewInstrumentedEmbedder wraps an embedder. timeout <= 0 disables the deadline.
func NewInstrumentedEmbedder(
	inner domain.Embedder, provider, model string,
	timeout time.Duration, logger *zap.Logger,
) *InstrumentedEmbedder {
	return &InstrumentedEmbedder{
		inner:    inner,
		provider: provider,
		model:    model,
		timeout:  timeout,
		logger:   logger.With(zap.String("provider", provider), zap.String("model", model)),
	}
}

// Embed delegates to the inner chain. A deadline hit, ours or the caller's, is reported
// as a provider error; a canceled caller gets context.Canceled back and nothing is logged.
func (p *InstrumentedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	callCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := p.inner.Embed(callCtx, text)
	elapsed := time.Since(start)
	logger.Annotate(ctx, zap.Duration("embed_latency", elapsed))

	switch {
	case err == nil:
		p.logger.Debug("Query embedded",
			zap.Duration("duration", elapsed),
			zap.Int("dimensions", len(result.Embedding)),
			zap.Int("total_tokens", result.TotalTokens),
		)
		return result, nil

	case errors.Is(ctx.Err(), context.Canceled):
		return domain.EmbeddingResult{}, fmt.Errorf("embed abandoned by caller: %w", ctx.Err())

	case errors.Is(callCtx.Err(), context.DeadlineExceeded):
		metrics.EmbeddingTimeoutsTotal.WithLabelValues(p.provider).Inc()
		p.logger.Warn("Query embedding timed out", zap.Duration("timeout", p.timeout))
		return domain.EmbeddingResult{}, fmt.Errorf("embed timed out after %s: %w: %w",
			p.timeout, context.DeadlineExceeded, domain.ErrEmbeddingProviderError)

	default:
		p.logger.Error("Query embedding failed", zap.Duration("duration", elapsed), zap.Error(err))
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
}
