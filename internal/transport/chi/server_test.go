package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kailas-cloud/drillscout/internal/domain"
	"github.com/kailas-cloud/drillscout/internal/domain/search/result"
	logpkg "github.com/kailas-cloud/drillscout/internal/logger"
	healthuc "github.com/kailas-cloud/drillscout/internal/usecase/health"
	recommenduc "github.com/kailas-cloud/drillscout/internal/usecase/recommend"
	searchuc "github.com/kailas-cloud/drillscout/internal/usecase/search"
)

type fixture struct {
	search    *mockSearcher
	recommend *mockRecommender
	health    *mockHealth
	handler   http.Handler
}

func newFixture(apiKeys ...string) *fixture {
	return newFixtureWith(RouterConfig{APIKeys: apiKeys})
}

func newFixtureWith(cfg RouterConfig) *fixture {
	f := &fixture{
		search:    &mockSearcher{},
		recommend: &mockRecommender{},
		health:    &mockHealth{report: healthuc.Report{Status: healthuc.Healthy}},
	}
	srv := NewServer(f.search, f.recommend, f.health, zap.NewNop())
	f.handler = NewRouter(srv, cfg, zap.NewNop())
	return f
}

func (f *fixture) get(t *testing.T, target string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", target, http.NoBody)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return v
}

func TestSearchDrills_VectorResponse(t *testing.T) {
	f := newFixture()
	f.search.resp = searchuc.Response{
		Hits: []result.Hit{
			{Drill: sampleDrill("d1"), Score: 0.91, Similarity: 0.88},
			{Drill: sampleDrill("d2"), Score: 0.74, Similarity: 0.61},
		},
		Total:      12,
		SearchType: result.Vector,
		Pagination: result.NewPagination(12, 10, 10),
	}

	rr := f.get(t, "/api/v1/drills/search?searchText=hip&categoryId=mobility&page=2&limit=10", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content-type = %q", ct)
	}

	got := f.search.gotReq
	if got.SearchText() != "hip" || got.CategoryID() != "mobility" || got.Skip() != 10 || got.Limit() != 10 {
		t.Errorf("request = %q/%q skip=%d limit=%d", got.SearchText(), got.CategoryID(), got.Skip(), got.Limit())
	}

	body := decode[searchResponse](t, rr)
	if body.SearchType != "vector" {
		t.Errorf("searchType = %q, want vector", body.SearchType)
	}
	if body.Total != 12 || len(body.Drills) != 2 {
		t.Fatalf("total=%d drills=%d", body.Total, len(body.Drills))
	}
	if body.Pagination != (paginationResponse{Total: 12, Page: 2, Limit: 10, TotalPages: 2}) {
		t.Errorf("pagination = %+v", body.Pagination)
	}
	if body.Drills[0].Similarity == nil || *body.Drills[0].Similarity != 0.88 {
		t.Errorf("similarity not exposed on vector hit: %+v", body.Drills[0])
	}
}

func TestSearchDrills_EmptyResultEncodesEmptyArray(t *testing.T) {
	f := newFixture()
	f.search.resp = searchuc.Response{
		Hits:       []result.Hit{},
		SearchType: result.Fallback,
		Pagination: result.NewPagination(0, 0, 10),
	}

	rr := f.get(t, "/api/v1/drills/search", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(rr.Body).Decode(&raw); err != nil {
		t.Fatal(err)
	}
	if string(raw["drills"]) != "[]" {
		t.Errorf("drills = %s, want []", raw["drills"])
	}
}

func TestSearchDrills_Requester(t *testing.T) {
	f := newFixture()
	f.search.resp = searchuc.Response{SearchType: result.Fallback}

	f.get(t, "/api/v1/drills/search", map[string]string{
		HeaderUserRole:           " Player ",
		HeaderSubscriptionActive: "true",
	})
	if f.search.gotWho.Role != "player" || !f.search.gotWho.HasActiveSubscription {
		t.Errorf("requester = %+v", f.search.gotWho)
	}

	f.get(t, "/api/v1/drills/search", map[string]string{
		HeaderUserRole:           "player",
		HeaderSubscriptionActive: "maybe",
	})
	if f.search.gotWho.HasActiveSubscription {
		t.Error("malformed subscription header must not grant access")
	}
}

func TestSearchDrills_BadPagination(t *testing.T) {
	for _, q := range []string{"page=abc", "limit=x", "page=-1"} {
		t.Run(q, func(t *testing.T) {
			f := newFixture()
			rr := f.get(t, "/api/v1/drills/search?"+q, nil)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rr.Code)
			}
			if f.search.called {
				t.Error("search must not run on invalid input")
			}
			if body := decode[errorResponse](t, rr); body.Code != codeBadRequest {
				t.Errorf("code = %q", body.Code)
			}
		})
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
		msg    string
	}{
		{"invalid", fmt.Errorf("player id: %w", domain.ErrInvalidRequest), http.StatusBadRequest, codeBadRequest, "player id: invalid request"},
		{"unknown criterion", fmt.Errorf("drill d1 refId c9: %w", domain.ErrUnknownCriterion), http.StatusConflict, codeDataIntegrity, "drill d1 refId c9: unknown recommendation criterion"},
		{"unknown calculation", fmt.Errorf("criterion c1: %w", domain.ErrUnknownCalculation), http.StatusConflict, codeDataIntegrity, "criterion c1: unknown calculation type"},
		{"unknown operator", fmt.Errorf("op around: %w", domain.ErrUnknownOperator), http.StatusConflict, codeDataIntegrity, "op around: unknown criterion operator"},
		{"threshold out of range", fmt.Errorf("drill d1: %w", domain.ErrCriterionValueOutOfRange), http.StatusConflict, codeDataIntegrity, "drill d1: criterion value out of range"},
		{"provider", fmt.Errorf("timeout: %w", domain.ErrEmbeddingProviderError), http.StatusBadGateway, codeEmbeddingError, "embedding provider error"},
		{"internal", errors.New("redis: connection refused"), http.StatusInternalServerError, codeInternal, "internal error"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			f.recommend.err = tc.err

			rr := f.get(t, "/api/v1/players/p1/recommendations", nil)
			if rr.Code != tc.status {
				t.Fatalf("status = %d, want %d", rr.Code, tc.status)
			}
			body := decode[errorResponse](t, rr)
			if body.Code != tc.code || body.Message != tc.msg {
				t.Errorf("body = %+v, want {%s %s}", body, tc.code, tc.msg)
			}
		})
	}
}

func TestRecommendations(t *testing.T) {
	f := newFixture()
	f.recommend.recs = []recommenduc.Recommendation{
		{Drill: sampleDrill("d1"), MetCriteria: []string{"Overall score is above 50 (60)"}},
	}

	rr := f.get(t, "/api/v1/players/player_42/recommendations", map[string]string{HeaderUserRole: "coach"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	if f.recommend.gotPlayer != "player_42" {
		t.Errorf("playerID = %q", f.recommend.gotPlayer)
	}
	if f.recommend.gotWho.Role != "coach" {
		t.Errorf("role = %q", f.recommend.gotWho.Role)
	}

	body := decode[recommendationsResponse](t, rr)
	if len(body.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(body.Items))
	}
	item := body.Items[0]
	if item.ID != "d1" || len(item.MetCriteria) != 1 || item.MetCriteria[0] != "Overall score is above 50 (60)" {
		t.Errorf("item = %+v", item)
	}
	if item.Score != nil {
		t.Error("recommendations carry no score")
	}
}

func TestRecommendations_EmptyList(t *testing.T) {
	f := newFixture()

	rr := f.get(t, "/api/v1/players/p1/recommendations", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(rr.Body).Decode(&raw); err != nil {
		t.Fatal(err)
	}
	if string(raw["items"]) != "[]" {
		t.Errorf("items = %s, want []", raw["items"])
	}
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		status healthuc.Status
		code   int
	}{
		{healthuc.Healthy, http.StatusOK},
		{healthuc.Degraded, http.StatusOK},
		{healthuc.Unhealthy, http.StatusServiceUnavailable},
	}

	for _, tc := range tests {
		t.Run(string(tc.status), func(t *testing.T) {
			f := newFixture("secret")
			f.health.report = healthuc.Report{
				Status: tc.status,
				Checks: map[string]healthuc.CheckResult{"store": healthuc.CheckOK},
				Caches: map[string]int{"embeddings": 3},
			}

			rr := f.get(t, "/health", nil)
			if rr.Code != tc.code {
				t.Fatalf("status = %d, want %d", rr.Code, tc.code)
			}
			body := decode[healthResponse](t, rr)
			if body.Status != string(tc.status) || body.Checks["store"] != "ok" || body.Caches["embeddings"] != 3 {
				t.Errorf("body = %+v", body)
			}
		})
	}
}

func TestRouter_NotFoundAndMethodNotAllowed(t *testing.T) {
	f := newFixture()

	rr := f.get(t, "/api/v1/unknown", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
	if body := decode[errorResponse](t, rr); body.Code != codeNotFound {
		t.Errorf("code = %q", body.Code)
	}

	req := httptest.NewRequest("POST", "/api/v1/drills/search", http.NoBody)
	rr = httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rr.Code)
	}
	if body := decode[errorResponse](t, rr); body.Code != codeMethodNotAllowed {
		t.Errorf("code = %q", body.Code)
	}
}

func TestRouter_RequestIDHeader(t *testing.T) {
	f := newFixture()
	f.search.resp = searchuc.Response{SearchType: result.Fallback}

	rr := f.get(t, "/api/v1/drills/search", map[string]string{"X-Request-Id": "req-123"})
	if got := rr.Header().Get("X-Request-ID"); got != "req-123" {
		t.Errorf("X-Request-ID = %q, want req-123", got)
	}
}

func TestRouter_RequiresAPIKey(t *testing.T) {
	f := newFixture("secret")

	rr := f.get(t, "/api/v1/drills/search", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}

	f.search.resp = searchuc.Response{SearchType: result.Fallback}
	rr = f.get(t, "/api/v1/drills/search", map[string]string{"Authorization": "Bearer secret"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
}

func TestJSONRecoverer(t *testing.T) {
	h := jsonRecoverer(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/", http.NoBody))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	if body := decode[errorResponse](t, rr); body.Code != codeInternal {
		t.Errorf("code = %q", body.Code)
	}
}

func TestRouter_RateLimit(t *testing.T) {
	f := newFixtureWith(RouterConfig{RateLimitPerMinute: 2})
	f.search.resp = searchuc.Response{SearchType: result.Fallback}

	for i := range 2 {
		if rr := f.get(t, "/api/v1/drills/search", nil); rr.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, rr.Code)
		}
	}

	rr := f.get(t, "/api/v1/drills/search", nil)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rr.Code)
	}
	if body := decode[errorResponse](t, rr); body.Code != codeRateLimited {
		t.Errorf("code = %q", body.Code)
	}

	if rr := f.get(t, "/health", nil); rr.Code != http.StatusOK {
		t.Errorf("health must not be rate limited, got %d", rr.Code)
	}
}

func TestWideEvent_IncludesUseCaseAnnotations(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	search := &mockSearcher{
		resp: searchuc.Response{SearchType: result.Text, Pagination: result.NewPagination(0, 0, 10)},
		hook: func(ctx context.Context) {
			logpkg.Annotate(ctx, zap.String("search_type", "text"))
		},
	}
	srv := NewServer(search, &mockRecommender{}, &mockHealth{}, zap.NewNop())
	h := NewRouter(srv, RouterConfig{}, zap.New(core))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/api/v1/drills/search?searchText=hip", http.NoBody))

	entries := logs.FilterMessage("http_request").All()
	if len(entries) != 1 {
		t.Fatalf("expected one access log line, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["search_type"] != "text" || fields["status"] != int64(http.StatusOK) {
		t.Errorf("access log fields = %v", fields)
	}
}
