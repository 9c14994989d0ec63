package chi

import (
	"time"

	"github.com/kailas-cloud/drillscout/internal/domain/drill"
	"github.com/kailas-cloud/drillscout/internal/domain/search/result"
	recommenduc "github.com/kailas-cloud/drillscout/internal/usecase/recommend"
	searchuc "github.com/kailas-cloud/drillscout/internal/usecase/search"
)

// Error codes returned in the JSON error body.
const (
	codeBadRequest       = "bad_request"
	codeUnauthorized     = "unauthorized"
	codeNotFound         = "not_found"
	codeMethodNotAllowed = "method_not_allowed"
	codeRateLimited      = "rate_limited"
	codeDataIntegrity    = "data_integrity_error"
	codeEmbeddingError   = "embedding_provider_error"
	codeInternal         = "internal_error"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type drillResponse struct {
	ID           string    `json:"id"`
	CategoryID   string    `json:"categoryId"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	VideoLink    string    `json:"videoLink"`
	ThumbnailURL string    `json:"thumbnailUrl"`
	UserID       string    `json:"userId"`
	IsFree       bool      `json:"isFree"`
	CreationDate time.Time `json:"creationDate"`
	Score        *float64  `json:"score,omitempty"`
	Similarity   *float64  `json:"similarity,omitempty"`
}

type paginationResponse struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

type searchResponse struct {
	Drills     []drillResponse    `json:"drills"`
	Total      int                `json:"total"`
	SearchType string             `json:"searchType"`
	Pagination paginationResponse `json:"pagination"`
}

type recommendationResponse struct {
	drillResponse
	MetCriteria []string `json:"metCriteria"`
}

type recommendationsResponse struct {
	Items []recommendationResponse `json:"items"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
	Caches map[string]int    `json:"caches,omitempty"`
}

func drillToResponse(d *drill.Drill) drillResponse {
	return drillResponse{
		ID:           d.ID(),
		CategoryID:   d.CategoryID(),
		Title:        d.Title(),
		Description:  d.Description(),
		VideoLink:    d.VideoLink(),
		ThumbnailURL: d.ThumbnailURL(),
		UserID:       d.UserID(),
		IsFree:       d.IsFree(),
		CreationDate: d.CreatedAt(),
	}
}

func hitToResponse(h *result.Hit, searchType result.SearchType) drillResponse {
	out := drillToResponse(&h.Drill)
	switch searchType {
	case result.Text:
		score := h.Score
		out.Score = &score
	case result.Vector:
		score, sim := h.Score, h.Similarity
		out.Score, out.Similarity = &score, &sim
	}
	return out
}

func searchToResponse(resp *searchuc.Response) searchResponse {
	drills := make([]drillResponse, len(resp.Hits))
	for i := range resp.Hits {
		drills[i] = hitToResponse(&resp.Hits[i], resp.SearchType)
	}
	return searchResponse{
		Drills:     drills,
		Total:      resp.Total,
		SearchType: string(resp.SearchType),
		Pagination: paginationResponse{
			Total:      resp.Pagination.Total,
			Page:       resp.Pagination.Page,
			Limit:      resp.Pagination.Limit,
			TotalPages: resp.Pagination.TotalPages,
		},
	}
}

func recommendationsToResponse(recs []recommenduc.Recommendation) recommendationsResponse {
	items := make([]recommendationResponse, len(recs))
	for i := range recs {
		items[i] = recommendationResponse{
			drillResponse: drillToResponse(&recs[i].Drill),
			MetCriteria:   recs[i].MetCriteria,
		}
	}
	return recommendationsResponse{Items: items}
}
