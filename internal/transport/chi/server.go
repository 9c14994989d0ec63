package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/drillscout/internal/domain"
	"github.com/kailas-cloud/drillscout/internal/domain/access"
	"github.com/kailas-cloud/drillscout/internal/domain/search/request"
	"github.com/kailas-cloud/drillscout/internal/logger"
	healthuc "github.com/kailas-cloud/drillscout/internal/usecase/health"
)

// Entitlement headers set by the upstream gateway after session resolution.
const (
	HeaderUserRole           = "X-User-Role"
	HeaderSubscriptionActive = "X-Subscription-Active"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the drill search and recommendation API.
type Server struct {
	search        Searcher
	recommend     Recommender
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(search Searcher, recommend Recommender, health HealthChecker, logger *zap.Logger) *Server {
	s := &Server{
		search:    search,
		recommend: recommend,
		health:    health,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, codeBadRequest),
		integrityHandler,
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbeddingError),
	}
	return s
}

// SearchDrills handles GET /api/v1/drills/search.
func (s *Server) SearchDrills(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, err := intParam(q.Get("page"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "page must be an integer")
		return
	}
	limit, err := intParam(q.Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "limit must be an integer")
		return
	}

	req, err := request.FromPage(q.Get("searchText"), q.Get("categoryId"), page, limit)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	resp, err := s.search.Search(r.Context(), req, requesterFrom(r))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, searchToResponse(&resp))
}

// Recommendations handles GET /api/v1/players/{playerID}/recommendations.
func (s *Server) Recommendations(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")

	recs, err := s.recommend.Recommend(r.Context(), playerID, requesterFrom(r))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, recommendationsToResponse(recs))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
		Caches: report.Caches,
	})
}

// requesterFrom reads the entitlement headers. Missing or malformed values grant nothing.
func requesterFrom(r *http.Request) access.Requester {
	active, _ := strconv.ParseBool(r.Header.Get(HeaderSubscriptionActive))
	return access.Requester{
		Role:                  strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderUserRole))),
		HasActiveSubscription: active,
	}
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v) //nolint:wrapcheck // mapped to a 400 by the caller
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a client message without exposing internals.
// Validation and integrity errors carry their full text since it names the offending input.
func safeDomainMessage(err error) string {
	if errors.Is(err, domain.ErrInvalidRequest) || domain.IsIntegrityError(err) {
		return err.Error()
	}
	if errors.Is(err, domain.ErrEmbeddingProviderError) {
		return domain.ErrEmbeddingProviderError.Error()
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func integrityHandler(w http.ResponseWriter, err error, msg string) bool {
	if !domain.IsIntegrityError(err) {
		return false
	}
	writeError(w, http.StatusConflict, codeDataIntegrity, msg)
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			log.Warn("domain error", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
}
