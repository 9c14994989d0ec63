package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/drillscout/internal/domain"
	"github.com/kailas-cloud/drillscout/internal/domain/access"
	"github.com/kailas-cloud/drillscout/internal/domain/search/request"
	"github.com/kailas-cloud/drillscout/internal/domain/search/result"
	"github.com/kailas-cloud/drillscout/internal/logger"
	"github.com/kailas-cloud/drillscout/internal/metrics"
)

// Options tunes the orchestrator.
type Options struct {
	// StrongTextScore is the lexical score that short-circuits vector search.
	StrongTextScore float64
	// EmbeddingTimeout bounds the query embedding call. Zero means no deadline.
	EmbeddingTimeout time.Duration
}

// Response is a terminal search result.
type Response struct {
	Hits       []result.Hit
	Total      int
	SearchType result.SearchType
	Pagination result.Pagination
}

// Service runs text-first search with a semantic second stage and a listing fallback.
type Service struct {
	text   *TextSearch
	vector *VectorSearch
	embed  Embedder
	caches *Caches
	policy access.Policy
	opts   Options
}

// New creates a search service.
func New(
	text *TextSearch, vector *VectorSearch, embed Embedder,
	caches *Caches, policy access.Policy, opts Options,
) *Service {
	if opts.StrongTextScore <= 0 {
		opts.StrongTextScore = DefaultStrongTextScore
	}
	return &Service{text: text, vector: vector, embed: embed, caches: caches, policy: policy, opts: opts}
}

// Search answers one request. Embedding and vector failures degrade to a listing;
// only a failing final listing is returned as an error.
func (s *Service) Search(ctx context.Context, req request.Request, who access.Requester) (Response, error) {
	s.caches.Cleanup()

	page, searchType, err := s.run(ctx, req)
	if err != nil {
		return Response{}, err
	}

	for i := range page.Hits {
		page.Hits[i].Drill = s.policy.Redact(who, page.Hits[i].Drill)
	}
	if page.Hits == nil {
		page.Hits = []result.Hit{}
	}

	metrics.SearchesTotal.WithLabelValues(string(searchType)).Inc()
	logger.Annotate(ctx,
		zap.String("search_type", string(searchType)),
		zap.Int("total", page.Total),
		zap.Int("returned", len(page.Hits)),
	)

	return Response{
		Hits:       page.Hits,
		Total:      page.Total,
		SearchType: searchType,
		Pagination: result.NewPagination(page.Total, req.Skip(), req.Limit()),
	}, nil
}

func (s *Service) run(ctx context.Context, req request.Request) (result.Page, result.SearchType, error) {
	if !req.HasText() {
		return s.listing(ctx, req)
	}
	log := logger.FromContext(ctx)

	strong, err := s.text.Search(ctx, TextQuery{
		CategoryID: req.CategoryID(),
		Text:       req.SearchText(),
		MinScore:   s.opts.StrongTextScore,
	}, req.Skip(), req.Limit())
	switch {
	case err != nil:
		log.Warn("Text search failed, trying vector search", zap.Error(err))
	case strong.Total > 0:
		return strong, result.Text, nil
	}

	vec, err := s.queryEmbedding(ctx, req.SearchText())
	if err != nil {
		log.Warn("Query embedding failed, falling back to listing", zap.Error(err))
		metrics.SearchDegradationsTotal.WithLabelValues("embedding_error").Inc()
		logger.Annotate(ctx, zap.String("degraded", "embedding_error"))
		return s.listing(ctx, req)
	}

	page, err := s.vector.Search(ctx, vec, req.CategoryID(), req.Skip(), req.Limit())
	switch {
	case err != nil:
		log.Warn("Vector search failed, falling back to listing", zap.Error(err))
		metrics.SearchDegradationsTotal.WithLabelValues("vector_error").Inc()
		logger.Annotate(ctx, zap.String("degraded", "vector_error"))
	case page == nil:
		metrics.SearchDegradationsTotal.WithLabelValues("no_vector_match").Inc()
		logger.Annotate(ctx, zap.String("degraded", "no_vector_match"))
	default:
		return *page, result.Vector, nil
	}

	return s.listing(ctx, req)
}

func (s *Service) listing(ctx context.Context, req request.Request) (result.Page, result.SearchType, error) {
	page, err := s.text.Search(ctx, TextQuery{CategoryID: req.CategoryID()}, req.Skip(), req.Limit())
	if err != nil {
		return result.Page{}, "", fmt.Errorf("list drills: %w", err)
	}
	return page, result.Fallback, nil
}

// queryEmbedding memoizes query vectors by trimmed, lower-cased text.
func (s *Service) queryEmbedding(ctx context.Context, text string) ([]float32, error) {
	key := domain.NormalizeQuery(text)
	if vec, ok := s.caches.Embeddings.Get(key); ok {
		metrics.CacheTotal.WithLabelValues(CacheEmbeddings, "hit").Inc()
		return vec, nil
	}
	metrics.CacheTotal.WithLabelValues(CacheEmbeddings, "miss").Inc()

	if s.opts.EmbeddingTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.EmbeddingTimeout)
		defer cancel()
	}

	res, err := s.embed.Embed(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(res.Embedding) == 0 {
		return nil, fmt.Errorf("embed query: empty vector: %w", domain.ErrEmbeddingProviderError)
	}
	s.caches.Embeddings.Set(key, res.Embedding)
	return res.Embedding, nil
}
