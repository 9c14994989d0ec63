package catalog

import (
	"context"
	"fmt"
	"sort"

	"github.com/kailas-cloud/drillscout/internal/domain"
	"github.com/kailas-cloud/drillscout/internal/domain/criterion"
	"github.com/kailas-cloud/drillscout/internal/domain/drill"
)

var (
	drillKeyPrefix     = domain.KeyPrefix + "drill:"
	criterionKeyPrefix = domain.KeyPrefix + "criterion:"
)

// store is the consumer interface for the catalog (ISP).
type store interface {
	Scan(ctx context.Context, pattern string) ([]string, error)
	JSONGetMulti(ctx context.Context, keys []string, path string) ([][]byte, error)
}

// Repo reads drills and recommendation criteria stored as JSON documents.
type Repo struct {
	store store
}

// New creates a catalog repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// DrillKey returns the storage key of a drill.
func DrillKey(id string) string { return drillKeyPrefix + id }

// CriterionKey returns the storage key of a recommendation criterion.
func CriterionKey(id string) string { return criterionKeyPrefix + id }

// ListDrills returns the drills of a category ("" = every category) in catalog order:
// newest first, ties by id. Malformed documents are skipped.
func (r *Repo) ListDrills(ctx context.Context, categoryID string) ([]drill.Drill, error) {
	all, err := r.loadDrills(ctx)
	if err != nil {
		return nil, err
	}
	if categoryID == "" {
		return all, nil
	}

	out := make([]drill.Drill, 0, len(all))
	for i := range all {
		if all[i].CategoryID() == categoryID {
			out = append(out, all[i])
		}
	}
	return out, nil
}

// ListEmbedded returns the drills of a category that carry an embedding.
func (r *Repo) ListEmbedded(ctx context.Context, categoryID string) ([]drill.Drill, error) {
	drills, err := r.ListDrills(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	out := drills[:0]
	for i := range drills {
		if drills[i].HasEmbedding() {
			out = append(out, drills[i])
		}
	}
	return out, nil
}

// ListRecommendable returns every drill that declares recommendation criteria.
func (r *Repo) ListRecommendable(ctx context.Context) ([]drill.Drill, error) {
	drills, err := r.loadDrills(ctx)
	if err != nil {
		return nil, err
	}
	out := drills[:0]
	for i := range drills {
		if drills[i].Criteria() != nil {
			out = append(out, drills[i])
		}
	}
	return out, nil
}

// ListCriteria returns every recommendation criterion definition.
func (r *Repo) ListCriteria(ctx context.Context) ([]criterion.Criterion, error) {
	keys, raws, err := r.fetch(ctx, criterionKeyPrefix+"*")
	if err != nil {
		return nil, err
	}

	out := make([]criterion.Criterion, 0, len(raws))
	for i, raw := range raws {
		if raw == nil {
			continue
		}
		doc, err := firstOf[criterionDoc](raw)
		if err != nil {
			continue
		}
		out = append(out, doc.toDomain(keys[i]))
	}
	return out, nil
}

func (r *Repo) loadDrills(ctx context.Context) ([]drill.Drill, error) {
	keys, raws, err := r.fetch(ctx, drillKeyPrefix+"*")
	if err != nil {
		return nil, err
	}

	out := make([]drill.Drill, 0, len(raws))
	for i, raw := range raws {
		if raw == nil {
			continue
		}
		doc, err := firstOf[drillDoc](raw)
		if err != nil {
			continue
		}
		out = append(out, doc.toDomain(keys[i]))
	}

	sort.SliceStable(out, func(i, j int) bool {
		ti, tj := out[i].CreatedAt(), out[j].CreatedAt()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return out[i].ID() < out[j].ID()
	})
	return out, nil
}

func (r *Repo) fetch(ctx context.Context, pattern string) ([]string, [][]byte, error) {
	keys, err := r.store.Scan(ctx, pattern)
	if err != nil {
		return nil, nil, fmt.Errorf("scan %s: %w", pattern, err)
	}
	if len(keys) == 0 {
		return nil, nil, nil
	}
	raws, err := r.store.JSONGetMulti(ctx, keys, "$")
	if err != nil {
		return nil, nil, fmt.Errorf("json.get %s: %w", pattern, err)
	}
	return keys, raws, nil
}
