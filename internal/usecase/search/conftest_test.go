package search

import (
	"context"
	"time"

	"github.com/kailas-cloud/drillscout/internal/domain"
	"github.com/kailas-cloud/drillscout/internal/domain/access"
	"github.com/kailas-cloud/drillscout/internal/domain/drill"
)

var testNow = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

type mockCatalog struct {
	drills        []drill.Drill
	err           error
	listCalls     int
	embeddedCalls int
}

func (m *mockCatalog) ListDrills(_ context.Context, categoryID string) ([]drill.Drill, error) {
	m.listCalls++
	if m.err != nil {
		return nil, m.err
	}
	return m.filter(categoryID, false), nil
}

func (m *mockCatalog) ListEmbedded(_ context.Context, categoryID string) ([]drill.Drill, error) {
	m.embeddedCalls++
	if m.err != nil {
		return nil, m.err
	}
	return m.filter(categoryID, true), nil
}

func (m *mockCatalog) filter(categoryID string, embeddedOnly bool) []drill.Drill {
	var out []drill.Drill
	for i := range m.drills {
		d := m.drills[i]
		if categoryID != "" && d.CategoryID() != categoryID {
			continue
		}
		if embeddedOnly && !d.HasEmbedding() {
			continue
		}
		out = append(out, d)
	}
	return out
}

type mockEmbedder struct {
	vec   []float32
	err   error
	calls int
	texts []string
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls++
	m.texts = append(m.texts, text)
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec}, nil
}

type drillOpt func(*drill.Fields)

func withCategory(c string) drillOpt { return func(f *drill.Fields) { f.CategoryID = c } }

func withDescription(s string) drillOpt { return func(f *drill.Fields) { f.Description = s } }

func withEmbedding(v ...float32) drillOpt { return func(f *drill.Fields) { f.Embedding = v } }

func withAge(days int) drillOpt {
	return func(f *drill.Fields) { f.CreatedAt = testNow.AddDate(0, 0, -days) }
}

func free() drillOpt { return func(f *drill.Fields) { f.IsFree = true } }

func newDrill(id, title string, opts ...drillOpt) drill.Drill {
	f := drill.Fields{
		ID:         id,
		CategoryID: "pitching",
		Title:      title,
		VideoLink:  "https://cdn.example.com/" + id + ".mp4",
		CreatedAt:  testNow,
	}
	for _, o := range opts {
		o(&f)
	}
	return drill.Reconstruct(f)
}

type fixture struct {
	catalog  *mockCatalog
	embedder *mockEmbedder
	caches   *Caches
	svc      *Service
}

func newFixture(drills ...drill.Drill) *fixture {
	cat := &mockCatalog{drills: drills}
	emb := &mockEmbedder{vec: []float32{1, 0, 0}}
	caches := NewCaches(0, 0, 0)

	vs := NewVectorSearch(cat, caches.Snapshot, 0, 0)
	vs.now = func() time.Time { return testNow }

	svc := New(
		NewTextSearch(cat, caches.Listing, 0),
		vs,
		emb,
		caches,
		access.NewPolicy([]string{"player"}),
		Options{},
	)
	return &fixture{catalog: cat, embedder: emb, caches: caches, svc: svc}
}
