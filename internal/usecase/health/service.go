package health

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded means search still answers through the lexical path.
	Degraded Status = "degraded"
	// Unhealthy means the store is unreachable and nothing can be served.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// DefaultCheckTimeout bounds each probe.
const DefaultCheckTimeout = 2 * time.Second

const breakerOpen = "open"

var errBreakerOpen = errors.New("embedding circuit open")

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
	Caches map[string]int
}

// Service coordinates health checks.
type Service struct {
	db        DBPinger
	embedding EmbeddingChecker
	caches    CacheSizer
	breaker   BreakerStater
	timeout   time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithBreaker adds an "embedding_breaker" check that fails while the circuit is open.
// The provider probe bypasses the breaker, so only this check shows that searches are shedding load.
func WithBreaker(b BreakerStater) Option {
	return func(s *Service) { s.breaker = b }
}

// New creates a Service. embedding and caches can be nil.
func New(db DBPinger, embedding EmbeddingChecker, caches CacheSizer, timeout time.Duration, opts ...Option) *Service {
	if timeout <= 0 {
		timeout = DefaultCheckTimeout
	}
	s := &Service{db: db, embedding: embedding, caches: caches, timeout: timeout}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Check probes the store and the embedding provider concurrently.
// A store failure is fatal; an embedding failure only degrades search to lexical results.
func (s *Service) Check(ctx context.Context) Report {
	var mu sync.Mutex
	checks := make(map[string]CheckResult, 3)
	record := func(name string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			checks[name] = CheckError
			return
		}
		checks[name] = CheckOK
	}

	probeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var g errgroup.Group
	g.Go(func() error {
		record("database", s.db.Ping(probeCtx))
		return nil
	})
	if s.embedding != nil {
		g.Go(func() error {
			record("embedding", s.embedding.HealthCheck(probeCtx))
			return nil
		})
	}
	_ = g.Wait()

	if s.breaker != nil {
		var err error
		if s.breaker.State() == breakerOpen {
			err = errBreakerOpen
		}
		record("embedding_breaker", err)
	}

	status := Healthy
	if checks["embedding"] == CheckError || checks["embedding_breaker"] == CheckError {
		status = Degraded
	}
	if checks["database"] == CheckError {
		status = Unhealthy
	}

	report := Report{Status: status, Checks: checks}
	if s.caches != nil {
		report.Caches = s.caches.Sizes()
	}
	return report
}
