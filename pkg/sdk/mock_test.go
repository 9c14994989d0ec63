package drillscout

import (
	"context"
	"time"

	"github.com/kailas-cloud/drillscout/internal/domain/access"
	"github.com/kailas-cloud/drillscout/internal/domain/drill"
	"github.com/kailas-cloud/drillscout/internal/domain/search/request"
	"github.com/kailas-cloud/drillscout/internal/repository/fixture"
	healthuc "github.com/kailas-cloud/drillscout/internal/usecase/health"
	recommenduc "github.com/kailas-cloud/drillscout/internal/usecase/recommend"
	searchuc "github.com/kailas-cloud/drillscout/internal/usecase/search"
)

type mockEmbedder struct {
	fn func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.fn(ctx, text)
}

type mockSearchUC struct {
	searchFn func(ctx context.Context, req request.Request, who access.Requester) (searchuc.Response, error)
}

func (m *mockSearchUC) Search(ctx context.Context, req request.Request, who access.Requester) (searchuc.Response, error) {
	return m.searchFn(ctx, req, who)
}

type mockRecommendUC struct {
	recommendFn func(ctx context.Context, playerID string, who access.Requester) ([]recommenduc.Recommendation, error)
}

func (m *mockRecommendUC) Recommend(
	ctx context.Context, playerID string, who access.Requester,
) ([]recommenduc.Recommendation, error) {
	return m.recommendFn(ctx, playerID, who)
}

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(context.Context) healthuc.Report { return m.report }

type mockLoader struct {
	got   fixture.Fixture
	stats fixture.Stats
	err   error
}

func (m *mockLoader) Load(_ context.Context, f fixture.Fixture) (fixture.Stats, error) {
	m.got = f
	return m.stats, m.err
}

func testDrill(id string) drill.Drill {
	return drill.Reconstruct(drill.Fields{
		ID:          id,
		CategoryID:  "mobility",
		Title:       "Drill " + id,
		Description: "desc",
		VideoLink:   "https://cdn.example.com/" + id + ".mp4",
		CreatedAt:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})
}
