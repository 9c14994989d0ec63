package embedding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/drillscout/internal/domain"
	"github.com/kailas-cloud/drillscout/internal/metrics"
)

type countingEmbedder struct {
	err   error
	calls int
}

func (c *countingEmbedder) Embed(context.Context, string) (domain.EmbeddingResult, error) {
	c.calls++
	if c.err != nil {
		return domain.EmbeddingResult{}, c.err
	}
	return domain.EmbeddingResult{Embedding: []float32{1, 0}}, nil
}

func TestBreakerEmbedder_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := &countingEmbedder{err: domain.ErrEmbeddingProviderError}
	b := NewBreakerEmbedder(inner, "breaker-open", BreakerConfig{FailureThreshold: 3, OpenTimeout: time.Minute}, zap.NewNop())

	for range 3 {
		if _, err := b.Embed(context.Background(), "q"); err == nil {
			t.Fatal("expected provider error")
		}
	}
	if b.State() != "open" {
		t.Fatalf("state = %s, want open", b.State())
	}

	_, err := b.Embed(context.Background(), "q")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError while open, got %v", err)
	}
	if inner.calls != 3 {
		t.Errorf("inner calls = %d, want 3 (open circuit must not call the provider)", inner.calls)
	}
	if got := testutil.ToFloat64(metrics.EmbeddingBreakerRejectionsTotal.WithLabelValues("breaker-open")); got != 1 {
		t.Errorf("rejections = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.EmbeddingBreakerState.WithLabelValues("breaker-open")); got != 2 {
		t.Errorf("state gauge = %v, want 2", got)
	}
}

func TestBreakerEmbedder_HalfOpenProbeCloses(t *testing.T) {
	inner := &countingEmbedder{err: errors.New("boom")}
	b := NewBreakerEmbedder(inner, "breaker-probe", BreakerConfig{FailureThreshold: 1, OpenTimeout: 20 * time.Millisecond}, zap.NewNop())

	_, _ = b.Embed(context.Background(), "q")
	if b.State() != "open" {
		t.Fatalf("state = %s, want open", b.State())
	}

	time.Sleep(30 * time.Millisecond)
	inner.err = nil

	res, err := b.Embed(context.Background(), "q")
	if err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if len(res.Embedding) != 2 {
		t.Errorf("embedding = %v", res.Embedding)
	}
	if b.State() != "closed" {
		t.Errorf("state = %s, want closed", b.State())
	}
}

func TestBreakerEmbedder_CanceledCallerDoesNotTrip(t *testing.T) {
	inner := &countingEmbedder{err: context.Canceled}
	b := NewBreakerEmbedder(inner, "breaker-cancel", BreakerConfig{FailureThreshold: 1, OpenTimeout: time.Minute}, zap.NewNop())

	for range 3 {
		_, _ = b.Embed(context.Background(), "q")
	}
	if b.State() != "closed" {
		t.Errorf("state = %s, want closed", b.State())
	}
	if inner.calls != 3 {
		t.Errorf("inner calls = %d, want 3", inner.calls)
	}
}
