// Package fixture seeds the catalog, criteria and assessments from a JSON file.
package fixture

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/drillscout/internal/db"
	"github.com/kailas-cloud/drillscout/internal/domain"
	"github.com/kailas-cloud/drillscout/internal/repository/assessment"
	"github.com/kailas-cloud/drillscout/internal/repository/catalog"
)

// DefaultBatchSize is the number of documents written per pipeline round-trip.
const DefaultBatchSize = 100

// Document is a stored JSON object as it appears in the fixture.
type Document map[string]any

// Fixture is the seed file layout.
type Fixture struct {
	Drills      []Document `json:"drills"`
	Criteria    []Document `json:"criteria"`
	Assessments []Document `json:"assessments"`
}

// Stats summarizes one load.
type Stats struct {
	Drills      int
	Criteria    int
	Assessments int
	Embedded    int
}

// store is the consumer interface for seeding (ISP).
type store interface {
	JSONSetMulti(ctx context.Context, items []db.JSONSetItem) error
}

// Loader writes fixture documents into the store.
// When an embedder is set, drills without videoEmbedding get one computed from title and description.
type Loader struct {
	store     store
	embedder  domain.Embedder
	batchSize int
	logger    *zap.Logger
}

// NewLoader creates a Loader. embedder may be nil.
func NewLoader(s store, embedder domain.Embedder, batchSize int, logger *zap.Logger) *Loader {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Loader{store: s, embedder: embedder, batchSize: batchSize, logger: logger}
}

// Decode reads a fixture from r.
func Decode(r io.Reader) (Fixture, error) {
	var f Fixture
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return Fixture{}, fmt.Errorf("decode fixture: %w", err)
	}
	return f, nil
}

// Load writes every document of f. Documents without an id are rejected.
func (l *Loader) Load(ctx context.Context, f Fixture) (Stats, error) {
	var stats Stats
	items := make([]db.JSONSetItem, 0, len(f.Drills)+len(f.Criteria)+len(f.Assessments))

	for i, d := range f.Drills {
		id, err := requireString(d, "id")
		if err != nil {
			return stats, fmt.Errorf("drill #%d: %w", i, err)
		}
		embedded, err := l.ensureEmbedding(ctx, d)
		if err != nil {
			return stats, fmt.Errorf("drill %s: %w", id, err)
		}
		if embedded {
			stats.Embedded++
		}
		item, err := toItem(catalog.DrillKey(id), d)
		if err != nil {
			return stats, fmt.Errorf("drill %s: %w", id, err)
		}
		items = append(items, item)
		stats.Drills++
	}

	for i, c := range f.Criteria {
		id, err := requireString(c, "id")
		if err != nil {
			return stats, fmt.Errorf("criterion #%d: %w", i, err)
		}
		item, err := toItem(catalog.CriterionKey(id), c)
		if err != nil {
			return stats, fmt.Errorf("criterion %s: %w", id, err)
		}
		items = append(items, item)
		stats.Criteria++
	}

	for i, a := range f.Assessments {
		id, err := requireString(a, "id")
		if err != nil {
			return stats, fmt.Errorf("assessment #%d: %w", i, err)
		}
		playerID, err := requireString(a, "playerId")
		if err != nil {
			return stats, fmt.Errorf("assessment %s: %w", id, err)
		}
		item, err := toItem(assessment.Key(playerID, id), a)
		if err != nil {
			return stats, fmt.Errorf("assessment %s: %w", id, err)
		}
		items = append(items, item)
		stats.Assessments++
	}

	for start := 0; start < len(items); start += l.batchSize {
		end := min(start+l.batchSize, len(items))
		if err := l.store.JSONSetMulti(ctx, items[start:end]); err != nil {
			return stats, fmt.Errorf("write batch %d-%d: %w", start, end, err)
		}
		l.logger.Debug("Fixture batch written", zap.Int("from", start), zap.Int("to", end))
	}

	return stats, nil
}

func (l *Loader) ensureEmbedding(ctx context.Context, d Document) (bool, error) {
	if l.embedder == nil {
		return false, nil
	}
	if v, ok := d["videoEmbedding"]; ok && v != nil {
		return false, nil
	}

	title, _ := d["title"].(string)
	description, _ := d["description"].(string)
	text := strings.TrimSpace(title + ". " + description)

	res, err := l.embedder.Embed(ctx, text)
	if err != nil {
		return false, fmt.Errorf("embed: %w", err)
	}
	d["videoEmbedding"] = res.Embedding
	return true, nil
}

func requireString(d Document, field string) (string, error) {
	s, _ := d[field].(string)
	if s == "" {
		return "", fmt.Errorf("%w: missing %s", domain.ErrInvalidRequest, field)
	}
	return s, nil
}

func toItem(key string, d Document) (db.JSONSetItem, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return db.JSONSetItem{}, fmt.Errorf("marshal: %w", err)
	}
	return db.JSONSetItem{Key: key, Path: "$", Data: data}, nil
}
