package drillscout

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/drillscout/internal/domain"
	"github.com/kailas-cloud/drillscout/internal/domain/access"
	"github.com/kailas-cloud/drillscout/internal/domain/search/request"
	"github.com/kailas-cloud/drillscout/internal/domain/search/result"
	"github.com/kailas-cloud/drillscout/internal/repository/fixture"
	healthuc "github.com/kailas-cloud/drillscout/internal/usecase/health"
	recommenduc "github.com/kailas-cloud/drillscout/internal/usecase/recommend"
	searchuc "github.com/kailas-cloud/drillscout/internal/usecase/search"
)

func TestNew_NoAddress(t *testing.T) {
	_, err := New(context.Background())
	if err == nil {
		t.Fatal("expected error when no address provided")
	}
}

func TestNew_UnknownDriver(t *testing.T) {
	cfg := &clientConfig{driver: "unknown", addrs: []string{"localhost:1234"}}
	_, err := createStore(cfg)
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestNoopEmbedder(t *testing.T) {
	noop := &noopEmbedder{}
	_, err := noop.Embed(context.Background(), "test")
	if !errors.Is(err, ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
}

func TestEmbedderAdapter(t *testing.T) {
	called := false
	mock := &mockEmbedder{
		fn: func(_ context.Context, text string) (EmbeddingResult, error) {
			called = true
			return EmbeddingResult{
				Embedding:    []float32{1, 2, 3},
				PromptTokens: 5,
				TotalTokens:  10,
			}, nil
		},
	}

	adapter := &embedderAdapter{inner: mock}
	res, err := adapter.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("inner embedder was not called")
	}
	if len(res.Embedding) != 3 {
		t.Errorf("embedding len = %d, want 3", len(res.Embedding))
	}
	if res.TotalTokens != 10 {
		t.Errorf("total tokens = %d, want 10", res.TotalTokens)
	}
}

func TestEmbedderAdapter_Error(t *testing.T) {
	mock := &mockEmbedder{
		fn: func(_ context.Context, _ string) (EmbeddingResult, error) {
			return EmbeddingResult{}, errors.New("provider down")
		},
	}

	adapter := &embedderAdapter{inner: mock}
	if _, err := adapter.Embed(context.Background(), "hello"); err == nil {
		t.Fatal("expected error from adapter")
	}
}

func TestEmbedderAdapter_EmptyVectorIsProviderError(t *testing.T) {
	empty := EmbedderFunc(func(context.Context, string) (EmbeddingResult, error) {
		return EmbeddingResult{TotalTokens: 3}, nil
	})

	_, err := (&embedderAdapter{inner: empty}).Embed(context.Background(), "hello")
	if !errors.Is(err, ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
}

func TestClientOptions(t *testing.T) {
	cfg := defaultConfig()

	WithValkey("localhost:6379", "secret").apply(cfg)
	if cfg.driver != "valkey" || cfg.addrs[0] != "localhost:6379" || cfg.password != "secret" {
		t.Errorf("valkey option = %q %v %q", cfg.driver, cfg.addrs, cfg.password)
	}

	WithRedis("localhost:6380", "pass").apply(cfg)
	if cfg.driver != "redis" {
		t.Errorf("driver = %q, want redis", cfg.driver)
	}

	if len(cfg.gatedRoles) != 1 || cfg.gatedRoles[0] != "player" {
		t.Errorf("default gated roles = %v", cfg.gatedRoles)
	}
	WithGatedRoles("player", "guest").apply(cfg)
	if len(cfg.gatedRoles) != 2 {
		t.Errorf("gated roles = %v", cfg.gatedRoles)
	}

	WithCacheTTLs(time.Minute, 0, 2*time.Hour).apply(cfg)
	if cfg.embeddingTTL != time.Minute || cfg.listingTTL != 10*time.Minute || cfg.snapshotTTL != 2*time.Hour {
		t.Errorf("ttls = %s %s %s", cfg.embeddingTTL, cfg.listingTTL, cfg.snapshotTTL)
	}

	WithTimeout(time.Second).apply(cfg)
	if cfg.timeout != time.Second {
		t.Errorf("timeout = %s", cfg.timeout)
	}

	logger := slog.Default()
	WithLogger(logger).apply(cfg)
	if cfg.logger != logger {
		t.Error("expected logger to be set")
	}

	reg := prometheus.NewRegistry()
	WithPrometheus(reg).apply(cfg)
	if cfg.metricsReg != reg {
		t.Error("expected metricsReg to be set")
	}
}

func TestClient_Close_NilStore(t *testing.T) {
	c := &Client{store: nil}
	c.Close()
}

func TestClient_Search(t *testing.T) {
	var gotReq request.Request
	var gotWho access.Requester
	c := &Client{searchSvc: &mockSearchUC{
		searchFn: func(_ context.Context, req request.Request, who access.Requester) (searchuc.Response, error) {
			gotReq, gotWho = req, who
			return searchuc.Response{
				Hits:       []result.Hit{{Drill: testDrill("d1"), Score: 0.9, Similarity: 0.85}},
				Total:      21,
				SearchType: result.Vector,
				Pagination: result.NewPagination(21, 10, 10),
			}, nil
		},
	}}

	res, err := c.Search(context.Background(),
		SearchQuery{Text: "hip", CategoryID: "mobility", Page: 2, Limit: 10},
		Requester{Role: "player", HasActiveSubscription: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotReq.Skip() != 10 || gotReq.Limit() != 10 || gotReq.SearchText() != "hip" {
		t.Errorf("request skip=%d limit=%d text=%q", gotReq.Skip(), gotReq.Limit(), gotReq.SearchText())
	}
	if gotWho.Role != "player" || !gotWho.HasActiveSubscription {
		t.Errorf("requester = %+v", gotWho)
	}
	if res.Type != SearchVector || res.Total != 21 || res.Page != 2 || res.TotalPages != 3 {
		t.Errorf("result = %+v", res)
	}
	if len(res.Hits) != 1 || res.Hits[0].Drill.ID != "d1" || res.Hits[0].Similarity != 0.85 {
		t.Errorf("hits = %+v", res.Hits)
	}
}

func TestClient_Search_InvalidPage(t *testing.T) {
	c := &Client{searchSvc: &mockSearchUC{
		searchFn: func(context.Context, request.Request, access.Requester) (searchuc.Response, error) {
			t.Fatal("search must not run")
			return searchuc.Response{}, nil
		},
	}}

	_, err := c.Search(context.Background(), SearchQuery{Page: -1}, Requester{})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestClient_Recommend(t *testing.T) {
	c := &Client{recommendSvc: &mockRecommendUC{
		recommendFn: func(_ context.Context, playerID string, _ access.Requester) ([]recommenduc.Recommendation, error) {
			if playerID != "player_42" {
				t.Errorf("playerID = %q", playerID)
			}
			return []recommenduc.Recommendation{
				{Drill: testDrill("d1"), MetCriteria: []string{"Hip rotation is below 35 (28)"}},
			}, nil
		},
	}}

	recs, err := c.Recommend(context.Background(), "player_42", Requester{Role: "coach"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 1 || recs[0].Drill.ID != "d1" || recs[0].MetCriteria[0] != "Hip rotation is below 35 (28)" {
		t.Errorf("recs = %+v", recs)
	}
}

func TestClient_Recommend_IntegrityError(t *testing.T) {
	c := &Client{recommendSvc: &mockRecommendUC{
		recommendFn: func(context.Context, string, access.Requester) ([]recommenduc.Recommendation, error) {
			return nil, fmt.Errorf("drill d1: %w", domain.ErrUnknownCriterion)
		},
	}}

	_, err := c.Recommend(context.Background(), "p1", Requester{})
	if !IsIntegrityError(err) || !errors.Is(err, ErrUnknownCriterion) {
		t.Fatalf("expected integrity error, got %v", err)
	}
}

func TestClient_Health(t *testing.T) {
	c := &Client{healthSvc: &mockHealthUC{report: healthuc.Report{
		Status: healthuc.Degraded,
		Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckOK, "embedding": healthuc.CheckError},
		Caches: map[string]int{"embeddings": 2},
	}}}

	h := c.Health(context.Background())
	if h.Status != HealthDegraded || h.Checks["embedding"] != "error" || h.Caches["embeddings"] != 2 {
		t.Errorf("health = %+v", h)
	}
	if !h.Serving() || h.SemanticSearch() {
		t.Errorf("degraded store should serve without semantic search: %+v", h)
	}
	if f := h.Failing(); len(f) != 1 || f[0] != "embedding" {
		t.Errorf("failing = %v", f)
	}

	down := HealthStatus{Status: HealthError, Checks: map[string]string{"database": "error"}}
	if down.Serving() {
		t.Error("unreachable store must not be serving")
	}
}

func TestClient_LoadFixture(t *testing.T) {
	loader := &mockLoader{stats: fixture.Stats{Drills: 2, Criteria: 1, Embedded: 1}}
	c := &Client{loader: loader}

	stats, err := c.LoadFixture(context.Background(), strings.NewReader(
		`{"drills":[{"id":"d1"},{"id":"d2"}],"criteria":[{"id":"c1"}]}`,
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats != (SeedStats{Drills: 2, Criteria: 1, Embedded: 1}) {
		t.Errorf("stats = %+v", stats)
	}
	if len(loader.got.Drills) != 2 || len(loader.got.Criteria) != 1 {
		t.Errorf("loader got %+v", loader.got)
	}
}

func TestClient_LoadFixture_BadJSON(t *testing.T) {
	c := &Client{loader: &mockLoader{}}
	if _, err := c.LoadFixture(context.Background(), strings.NewReader("{")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestObserver_NilSafe(t *testing.T) {
	var obs *observer
	c := obs.begin("test")
	c.result("text", 3)
	c.done(nil)
	obs.begin("test").done(errors.New("err"))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, outcomeOK},
		{fmt.Errorf("search: %w", ErrInvalidRequest), outcomeInvalid},
		{fmt.Errorf("recommend: %w", ErrCriterionValueOutOfRange), outcomeIntegrity},
		{fmt.Errorf("recommend: %w", ErrUnknownOperator), outcomeIntegrity},
		{fmt.Errorf("embed: %w", ErrEmbeddingProviderError), outcomeProvider},
		{context.Canceled, outcomeCanceled},
		{errors.New("boom"), outcomeError},
	}
	for _, tc := range tests {
		if got := classify(tc.err); got != tc.want {
			t.Errorf("classify(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestObserver_WithPrometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}

	ok := obs.begin("search")
	ok.result(SearchText, 4)
	ok.done(nil)
	obs.begin("search").done(fmt.Errorf("search: %w", ErrInvalidRequest))

	if got := testutil.ToFloat64(obs.metrics.operations.WithLabelValues("search", outcomeOK)); got != 1 {
		t.Errorf("ok count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(obs.metrics.operations.WithLabelValues("search", outcomeInvalid)); got != 1 {
		t.Errorf("invalid count = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(obs.metrics.results); n != 1 {
		t.Errorf("expected one results series, got %d", n)
	}
}

func TestObserver_LogsAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	obs, err := newObserver(logger, nil)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}

	c := obs.begin("recommend")
	c.with(slog.String("player_id", "player_42"))
	c.done(fmt.Errorf("recommend: %w", ErrUnknownCriterion))

	out := buf.String()
	for _, want := range []string{`"level":"WARN"`, `"player_id":"player_42"`, `"outcome":"data_integrity"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log %s missing %s", out, want)
		}
	}
}

func TestObserver_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := newObserver(nil, reg); err != nil {
		t.Fatalf("first observer: %v", err)
	}
	if _, err := newObserver(slog.Default(), reg); err != nil {
		t.Fatalf("second observer on the same registry: %v", err)
	}
}
