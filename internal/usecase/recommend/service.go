package recommend

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/drillscout/internal/domain"
	"github.com/kailas-cloud/drillscout/internal/domain/access"
	"github.com/kailas-cloud/drillscout/internal/domain/assessment"
	"github.com/kailas-cloud/drillscout/internal/domain/criterion"
	"github.com/kailas-cloud/drillscout/internal/domain/drill"
	"github.com/kailas-cloud/drillscout/internal/logger"
	"github.com/kailas-cloud/drillscout/internal/metrics"
)

// RecentAssessments is how many completed videos are evaluated per player.
const RecentAssessments = 3

var playerIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,128}$`)

// Recommendation is a drill with the criteria it was recommended for.
type Recommendation struct {
	Drill       drill.Drill
	MetCriteria []string
}

// Service matches recent assessment metrics against drill criteria.
type Service struct {
	assessments AssessmentReader
	catalog     CatalogReader
	policy      access.Policy
	timeout     time.Duration
}

// New creates a recommendation service. timeout bounds the storage reads; zero disables it.
func New(assessments AssessmentReader, catalog CatalogReader, policy access.Policy, timeout time.Duration) *Service {
	return &Service{assessments: assessments, catalog: catalog, policy: policy, timeout: timeout}
}

// Recommend returns the drills whose criteria are met by any of the player's recent videos, in catalog order.
// A drill referencing an unknown criterion, calculation or operator, or carrying a threshold
// outside its criterion's range, fails the whole call.
func (s *Service) Recommend(ctx context.Context, playerID string, who access.Requester) ([]Recommendation, error) {
	if !playerIDPattern.MatchString(playerID) {
		return nil, fmt.Errorf("%w: invalid player id", domain.ErrInvalidRequest)
	}
	ctx = logger.With(ctx, zap.String("player_id", playerID))

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	recs, err := s.recommend(ctx, playerID)
	switch {
	case domain.IsIntegrityError(err):
		metrics.RecommendationsTotal.WithLabelValues("integrity_error").Inc()
		logger.FromContext(ctx).Error("Catalog references invalid recommendation data", zap.Error(err))
		return nil, err
	case err != nil:
		metrics.RecommendationsTotal.WithLabelValues("error").Inc()
		return nil, err
	case len(recs) == 0:
		metrics.RecommendationsTotal.WithLabelValues("empty").Inc()
	default:
		metrics.RecommendationsTotal.WithLabelValues("recommended").Inc()
	}

	for i := range recs {
		recs[i].Drill = s.policy.Redact(who, recs[i].Drill)
	}
	logger.Annotate(ctx, zap.Int("recommendations", len(recs)))
	return recs, nil
}

func (s *Service) recommend(ctx context.Context, playerID string) ([]Recommendation, error) {
	recent, err := s.assessments.RecentCompleted(ctx, playerID, RecentAssessments)
	if err != nil {
		return nil, fmt.Errorf("read assessments: %w", err)
	}
	if len(recent) == 0 {
		return []Recommendation{}, nil
	}

	var (
		drills   []drill.Drill
		criteria []criterion.Criterion
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if drills, err = s.catalog.ListRecommendable(gctx); err != nil {
			return fmt.Errorf("read drills: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if criteria, err = s.catalog.ListCriteria(gctx); err != nil {
			return fmt.Errorf("read criteria: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err //nolint:wrapcheck // already wrapped inside the group
	}

	byID := make(map[string]criterion.Criterion, len(criteria))
	for _, c := range criteria {
		byID[c.ID()] = c
	}

	out := []Recommendation{}
	for i := range drills {
		met, err := evaluate(&drills[i], byID, recent)
		if err != nil {
			return nil, fmt.Errorf("drill %s: %w", drills[i].ID(), err)
		}
		if len(met) > 0 {
			out = append(out, Recommendation{Drill: drills[i], MetCriteria: met})
		}
	}
	return out, nil
}

// evaluate returns one description per met criterion of d.
func evaluate(d *drill.Drill, byID map[string]criterion.Criterion, recent []assessment.Assessment) ([]string, error) {
	var met []string
	for _, dc := range d.Criteria() {
		c, ok := byID[dc.RefID]
		if !ok {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownCriterion, dc.RefID)
		}
		if c.Calculation() != criterion.Absolute && c.Calculation() != criterion.KneeFlexionDelta {
			return nil, fmt.Errorf("%w: %q on criterion %s", domain.ErrUnknownCalculation, c.Calculation(), c.ID())
		}
		if _, err := dc.Op.Compare(0, 0); err != nil {
			return nil, fmt.Errorf("criterion %s: %w", c.ID(), err)
		}
		if r := c.Range(); !r.Contains(dc.Value) {
			return nil, fmt.Errorf("%w: %s on criterion %s not in [%s, %s]", domain.ErrCriterionValueOutOfRange,
				formatNumber(dc.Value), c.ID(), formatNumber(r.Min), formatNumber(r.Max))
		}

		for i := range recent {
			observed, ok := observe(&c, &recent[i])
			if !ok {
				continue
			}
			hit, _ := dc.Op.Compare(observed, dc.Value)
			if hit {
				met = append(met, fmt.Sprintf("%s is %s %s (%s)", c.Name(), dc.Op, formatNumber(dc.Value), formatNumber(observed)))
				break
			}
		}
	}
	return met, nil
}

// observe derives the compared value from one assessment. ok is false when a metric is missing.
func observe(c *criterion.Criterion, a *assessment.Assessment) (float64, bool) {
	switch c.Calculation() {
	case criterion.Absolute:
		return a.Metric(c.Attribute())
	case criterion.KneeFlexionDelta:
		fp, ok := a.Metric(criterion.KneeFlexionFootPlant)
		if !ok {
			return 0, false
		}
		br, ok := a.Metric(criterion.KneeFlexionBallRelease)
		if !ok {
			return 0, false
		}
		return fp - br, true
	default:
		return 0, false
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}
