package chi

import (
	"context"
	"time"

	"github.com/kailas-cloud/drillscout/internal/domain/access"
	"github.com/kailas-cloud/drillscout/internal/domain/drill"
	"github.com/kailas-cloud/drillscout/internal/domain/search/request"
	healthuc "github.com/kailas-cloud/drillscout/internal/usecase/health"
	recommenduc "github.com/kailas-cloud/drillscout/internal/usecase/recommend"
	searchuc "github.com/kailas-cloud/drillscout/internal/usecase/search"
)

type mockSearcher struct {
	resp   searchuc.Response
	err    error
	gotReq request.Request
	gotWho access.Requester
	called bool
	hook   func(ctx context.Context)
}

func (m *mockSearcher) Search(ctx context.Context, req request.Request, who access.Requester) (searchuc.Response, error) {
	m.called = true
	if m.hook != nil {
		m.hook(ctx)
	}
	m.gotReq = req
	m.gotWho = who
	return m.resp, m.err
}

type mockRecommender struct {
	recs      []recommenduc.Recommendation
	err       error
	gotPlayer string
	gotWho    access.Requester
}

func (m *mockRecommender) Recommend(_ context.Context, playerID string, who access.Requester) ([]recommenduc.Recommendation, error) {
	m.gotPlayer = playerID
	m.gotWho = who
	return m.recs, m.err
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

func sampleDrill(id string) drill.Drill {
	return drill.Reconstruct(drill.Fields{
		ID:          id,
		CategoryID:  "mobility",
		Title:       "Hip rotation " + id,
		Description: "Improve hip mobility",
		VideoLink:   "https://cdn.example.com/" + id + ".mp4",
		IsFree:      true,
		CreatedAt:   time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	})
}
