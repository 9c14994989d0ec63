package drillscout

import (
	"time"

	"github.com/kailas-cloud/drillscout/internal/domain/access"
	"github.com/kailas-cloud/drillscout/internal/domain/drill"
	"github.com/kailas-cloud/drillscout/internal/domain/search/result"
	recommenduc "github.com/kailas-cloud/drillscout/internal/usecase/recommend"
	searchuc "github.com/kailas-cloud/drillscout/internal/usecase/search"
)

// Search types reported in SearchResult.Type.
const (
	SearchText     = string(result.Text)
	SearchVector   = string(result.Vector)
	SearchFallback = string(result.Fallback)
)

// SearchQuery selects drills. Page is 1-based; zero values mean page 1 and the default limit.
type SearchQuery struct {
	Text       string
	CategoryID string
	Page       int
	Limit      int
}

// Requester is the caller's entitlement, used to hide premium video links.
type Requester struct {
	Role                  string
	HasActiveSubscription bool
}

func (r Requester) toDomain() access.Requester {
	return access.Requester{Role: r.Role, HasActiveSubscription: r.HasActiveSubscription}
}

// Drill is a catalog entry. VideoLink is empty when the requester may not watch it.
type Drill struct {
	ID           string
	CategoryID   string
	Title        string
	Description  string
	VideoLink    string
	ThumbnailURL string
	UserID       string
	IsFree       bool
	CreatedAt    time.Time
}

// Hit is a scored drill.
type Hit struct {
	Drill      Drill
	Score      float64
	Similarity float64
}

// SearchResult is one page of drills.
type SearchResult struct {
	Hits       []Hit
	Total      int
	Type       string
	Page       int
	Limit      int
	TotalPages int
}

// Recommendation is a drill with human-readable reasons.
type Recommendation struct {
	Drill       Drill
	MetCriteria []string
}

// SeedStats counts the documents written by LoadFixture.
type SeedStats struct {
	Drills      int
	Criteria    int
	Assessments int
	Embedded    int
}

func drillFromDomain(d *drill.Drill) Drill {
	return Drill{
		ID:           d.ID(),
		CategoryID:   d.CategoryID(),
		Title:        d.Title(),
		Description:  d.Description(),
		VideoLink:    d.VideoLink(),
		ThumbnailURL: d.ThumbnailURL(),
		UserID:       d.UserID(),
		IsFree:       d.IsFree(),
		CreatedAt:    d.CreatedAt(),
	}
}

func searchFromDomain(resp *searchuc.Response) SearchResult {
	hits := make([]Hit, len(resp.Hits))
	for i := range resp.Hits {
		h := &resp.Hits[i]
		hits[i] = Hit{Drill: drillFromDomain(&h.Drill), Score: h.Score, Similarity: h.Similarity}
	}
	return SearchResult{
		Hits:       hits,
		Total:      resp.Total,
		Type:       string(resp.SearchType),
		Page:       resp.Pagination.Page,
		Limit:      resp.Pagination.Limit,
		TotalPages: resp.Pagination.TotalPages,
	}
}

func recommendationsFromDomain(recs []recommenduc.Recommendation) []Recommendation {
	out := make([]Recommendation, len(recs))
	for i := range recs {
		out[i] = Recommendation{Drill: drillFromDomain(&recs[i].Drill), MetCriteria: recs[i].MetCriteria}
	}
	return out
}
