package request

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/drillscout/internal/domain"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search text length in characters.
	MaxQueryLength = 512
	DefaultLimit   = 20
	MaxLimit       = 100
)

// Request is a validated drill search query.
type Request struct {
	searchText string
	categoryID string
	skip       int
	limit      int
}

// New validates and normalizes search parameters.
// Search text is trimmed; an empty text turns the search into a category listing.
func New(searchText, categoryID string, skip, limit int) (Request, error) {
	searchText = strings.TrimSpace(searchText)
	if utf8.RuneCountInString(searchText) > MaxQueryLength {
		return Request{}, fmt.Errorf("%w: search text too long (max %d chars)", domain.ErrInvalidRequest, MaxQueryLength)
	}
	if skip < 0 {
		return Request{}, fmt.Errorf("%w: skip must be non-negative", domain.ErrInvalidRequest)
	}
	if limit < 0 {
		return Request{}, fmt.Errorf("%w: limit must be non-negative", domain.ErrInvalidRequest)
	}
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if skip > math.MaxInt-limit {
		return Request{}, fmt.Errorf("%w: skip too large", domain.ErrInvalidRequest)
	}

	return Request{
		searchText: searchText,
		categoryID: strings.TrimSpace(categoryID),
		skip:       skip,
		limit:      limit,
	}, nil
}

// FromPage builds a Request from 1-based page numbering.
func FromPage(searchText, categoryID string, page, limit int) (Request, error) {
	if page < 0 {
		return Request{}, fmt.Errorf("%w: page must be positive", domain.ErrInvalidRequest)
	}
	if page == 0 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if page > math.MaxInt/limit {
		return Request{}, fmt.Errorf("%w: page too large", domain.ErrInvalidRequest)
	}
	return New(searchText, categoryID, (page-1)*limit, limit)
}

// SearchText returns the trimmed search text.
func (r *Request) SearchText() string { return r.searchText }

// HasText reports whether the request carries search text.
func (r *Request) HasText() bool { return r.searchText != "" }

// CategoryID returns the category filter, empty for all categories.
func (r *Request) CategoryID() string { return r.categoryID }

// Skip returns the number of results to skip.
func (r *Request) Skip() int { return r.skip }

// Limit returns the page size.
func (r *Request) Limit() int { return r.limit }
