package search

import (
	"context"

	"github.com/kailas-cloud/drillscout/internal/domain"
	"github.com/kailas-cloud/drillscout/internal/domain/drill"
)

// Catalog reads drills for the search stages.
type Catalog interface {
	ListDrills(ctx context.Context, categoryID string) ([]drill.Drill, error)
	ListEmbedded(ctx context.Context, categoryID string) ([]drill.Drill, error)
}

// Embedder vectorizes query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
