package drillscout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values. Caller mistakes and catalog faults are kept apart from
// infrastructure failures so alerts can target the latter.
const (
	outcomeOK        = "ok"
	outcomeInvalid   = "invalid_request"
	outcomeIntegrity = "data_integrity"
	outcomeProvider  = "provider_error"
	outcomeCanceled  = "canceled"
	outcomeError     = "error"
)

func classify(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, ErrInvalidRequest):
		return outcomeInvalid
	case IsIntegrityError(err):
		return outcomeIntegrity
	case errors.Is(err, ErrEmbeddingProviderError):
		return outcomeProvider
	case errors.Is(err, context.Canceled):
		return outcomeCanceled
	default:
		return outcomeError
	}
}

type sdkMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	results    *prometheus.HistogramVec
}

func newSDKMetrics(reg prometheus.Registerer) (*sdkMetrics, error) {
	m := &sdkMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "drillscout",
			Subsystem: "sdk",
			Name:      "operations_total",
			Help:      "SDK calls by operation and outcome.",
		}, []string{"operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "drillscout",
			Subsystem: "sdk",
			Name:      "operation_duration_seconds",
			Help:      "SDK call latency.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 3, 10},
		}, []string{"operation"}),
		results: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "drillscout",
			Subsystem: "sdk",
			Name:      "operation_results",
			Help:      "Items returned per successful call (drills or recommendations).",
			Buckets:   []float64{0, 1, 3, 5, 10, 20, 50, 100},
		}, []string{"operation", "source"}),
	}
	if err := registerOrReuse(reg, &m.operations); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.results); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse lets several clients share one registry.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	err := reg.Register(*c)
	if err == nil {
		return nil
	}
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return fmt.Errorf("drillscout: register metric: %w", err)
	}
	existing, ok := are.ExistingCollector.(T)
	if !ok {
		return fmt.Errorf("drillscout: metric already registered with incompatible type: %T", are.ExistingCollector)
	}
	*c = existing
	return nil
}

// observer logs and measures SDK calls. A nil observer is a no-op.
type observer struct {
	logger  *slog.Logger
	metrics *sdkMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	o := &observer{logger: logger}
	if reg != nil {
		m, err := newSDKMetrics(reg)
		if err != nil {
			return nil, err
		}
		o.metrics = m
	}
	return o, nil
}

// call tracks one SDK call. attrs added before done end up in the log record.
type call struct {
	obs    *observer
	op     string
	start  time.Time
	source string
	items  int
	attrs  []slog.Attr
}

func (o *observer) begin(op string) *call {
	return &call{obs: o, op: op, start: time.Now(), items: -1}
}

// result records how many items the call produced and where they came from.
func (c *call) result(source string, items int) {
	c.source = source
	c.items = items
}

func (c *call) with(attrs ...slog.Attr) {
	c.attrs = append(c.attrs, attrs...)
}

func (c *call) done(err error) {
	o := c.obs
	if o == nil {
		return
	}
	dur := time.Since(c.start)
	outcome := classify(err)

	if o.metrics != nil {
		o.metrics.operations.WithLabelValues(c.op, outcome).Inc()
		o.metrics.duration.WithLabelValues(c.op).Observe(dur.Seconds())
		if err == nil && c.items >= 0 {
			o.metrics.results.WithLabelValues(c.op, c.source).Observe(float64(c.items))
		}
	}

	if o.logger == nil {
		return
	}
	attrs := append([]slog.Attr{
		slog.String("op", c.op),
		slog.String("outcome", outcome),
		slog.Duration("duration", dur),
	}, c.attrs...)
	if c.items >= 0 {
		attrs = append(attrs, slog.Int("items", c.items))
	}
	if c.source != "" {
		attrs = append(attrs, slog.String("source", c.source))
	}

	switch outcome {
	case outcomeOK:
		o.logger.LogAttrs(context.Background(), slog.LevelDebug, "drillscout call completed", attrs...)
	case outcomeInvalid, outcomeCanceled:
		o.logger.LogAttrs(context.Background(), slog.LevelInfo, "drillscout call rejected",
			append(attrs, slog.String("error", err.Error()))...)
	default:
		o.logger.LogAttrs(context.Background(), slog.LevelWarn, "drillscout call failed",
			append(attrs, slog.String("error", err.Error()))...)
	}
}
