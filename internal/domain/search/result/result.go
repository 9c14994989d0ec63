package result

import "github.com/kailas-cloud/drillscout/internal/domain/drill"

// SearchType tags which strategy produced a result set.
type SearchType string

const (
	// Text means strong lexical matches were returned.
	Text SearchType = "text"
	// Vector means semantic similarity produced the results.
	Vector SearchType = "vector"
	// Fallback means a plain category listing was returned.
	Fallback SearchType = "fallback"
)

// Hit is a scored drill.
type Hit struct {
	Drill drill.Drill
	// Score is the lexical score for text search and the fused score for vector search.
	Score float64
	// Similarity is the raw cosine similarity, zero outside vector search.
	Similarity float64
}

// Page is one window of an ordered result set.
type Page struct {
	Hits  []Hit
	Total int
}

// Pagination describes where a page sits in the full result set.
type Pagination struct {
	Total      int
	Page       int
	Limit      int
	TotalPages int
}

// NewPagination derives page metadata. TotalPages = ceil(total/limit).
func NewPagination(total, skip, limit int) Pagination {
	if limit <= 0 {
		return Pagination{Total: total, Page: 1}
	}
	return Pagination{
		Total:      total,
		Page:       skip/limit + 1,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit,
	}
}

// Window returns items[skip:skip+limit], clamped to the slice bounds.
// A skip past the end yields an empty, non-nil slice.
func Window[T any](items []T, skip, limit int) []T {
	if skip < 0 {
		skip = 0
	}
	if skip >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && skip+limit < end {
		end = skip + limit
	}
	return items[skip:end]
}
