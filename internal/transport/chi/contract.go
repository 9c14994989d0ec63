package chi

import (
	"context"

	"github.com/kailas-cloud/drillscout/internal/domain/access"
	"github.com/kailas-cloud/drillscout/internal/domain/search/request"
	healthuc "github.com/kailas-cloud/drillscout/internal/usecase/health"
	recommenduc "github.com/kailas-cloud/drillscout/internal/usecase/recommend"
	searchuc "github.com/kailas-cloud/drillscout/internal/usecase/search"
)

// Searcher runs drill searches.
type Searcher interface {
	Search(ctx context.Context, req request.Request, who access.Requester) (searchuc.Response, error)
}

// Recommender evaluates drill recommendations for a player.
type Recommender interface {
	Recommend(ctx context.Context, playerID string, who access.Requester) ([]recommenduc.Recommendation, error)
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
