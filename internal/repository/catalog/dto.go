package catalog

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/kailas-cloud/drillscout/internal/domain/criterion"
	"github.com/kailas-cloud/drillscout/internal/domain/drill"
	"github.com/kailas-cloud/drillscout/internal/domain/vector"
)

// drillDoc is the stored JSON shape of a drill.
type drillDoc struct {
	ID                     string              `json:"id"`
	CategoryID             string              `json:"categoryId"`
	Title                  string              `json:"title"`
	Description            string              `json:"description"`
	VideoLink              string              `json:"videoLink"`
	ThumbnailURL           string              `json:"thumbnailUrl"`
	UserID                 string              `json:"userId"`
	IsFree                 bool                `json:"isFree"`
	CreationDate           time.Time           `json:"creationDate"`
	VideoEmbedding         json.RawMessage     `json:"videoEmbedding"`
	RecommendationCriteria []drillCriterionDoc `json:"recommendationCriteria"`
}

type drillCriterionDoc struct {
	RefID string  `json:"refId"`
	Value float64 `json:"value"`
	Op    string  `json:"op"`
}

// criterionDoc is the stored JSON shape of a recommendation criterion.
type criterionDoc struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Range           []float64 `json:"range"`
	CalculationType string    `json:"calculationType"`
	Attribute       string    `json:"attribute"`
}

// firstOf decodes a JSON.GET "$" reply, which wraps the document in a one-element array.
func firstOf[T any](raw []byte) (T, error) {
	var docs []T
	if err := json.Unmarshal(raw, &docs); err != nil {
		var zero T
		return zero, fmt.Errorf("unmarshal: %w", err)
	}
	if len(docs) == 0 {
		var zero T
		return zero, fmt.Errorf("empty JSON.GET reply")
	}
	return docs[0], nil
}

func (d *drillDoc) toDomain(key string) drill.Drill {
	id := d.ID
	if id == "" {
		id = strings.TrimPrefix(key, drillKeyPrefix)
	}

	var criteria []criterion.DrillCriterion
	if d.RecommendationCriteria != nil {
		criteria = make([]criterion.DrillCriterion, len(d.RecommendationCriteria))
		for i, c := range d.RecommendationCriteria {
			criteria[i] = criterion.DrillCriterion{RefID: c.RefID, Value: c.Value, Op: criterion.Op(c.Op)}
		}
	}

	return drill.Reconstruct(drill.Fields{
		ID:           id,
		CategoryID:   d.CategoryID,
		Title:        d.Title,
		Description:  d.Description,
		VideoLink:    d.VideoLink,
		ThumbnailURL: d.ThumbnailURL,
		UserID:       d.UserID,
		IsFree:       d.IsFree,
		Embedding:    vector.Normalize(d.VideoEmbedding),
		Criteria:     criteria,
		CreatedAt:    d.CreationDate,
	})
}

func (c *criterionDoc) toDomain(key string) criterion.Criterion {
	id := c.ID
	if id == "" {
		id = strings.TrimPrefix(key, criterionKeyPrefix)
	}
	// A criterion stored without a range accepts any threshold.
	r := criterion.Range{Min: math.Inf(-1), Max: math.Inf(1)}
	if len(c.Range) == 2 {
		r = criterion.Range{Min: c.Range[0], Max: c.Range[1]}
	}
	return criterion.Reconstruct(id, c.Name, r, criterion.CalculationType(c.CalculationType), c.Attribute)
}
