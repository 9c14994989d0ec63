package recommend

import (
	"context"

	"github.com/kailas-cloud/drillscout/internal/domain/assessment"
	"github.com/kailas-cloud/drillscout/internal/domain/criterion"
	"github.com/kailas-cloud/drillscout/internal/domain/drill"
)

// AssessmentReader reads a player's processed videos.
type AssessmentReader interface {
	RecentCompleted(ctx context.Context, playerID string, n int) ([]assessment.Assessment, error)
}

// CatalogReader reads eligible drills and criterion definitions.
type CatalogReader interface {
	ListRecommendable(ctx context.Context) ([]drill.Drill, error)
	ListCriteria(ctx context.Context) ([]criterion.Criterion, error)
}
