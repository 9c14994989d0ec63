package drillscout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/drillscout/internal/db"
	dbRedis "github.com/kailas-cloud/drillscout/internal/db/redis"
	"github.com/kailas-cloud/drillscout/internal/domain"
	"github.com/kailas-cloud/drillscout/internal/domain/access"
	"github.com/kailas-cloud/drillscout/internal/domain/search/request"
	assessmentrepo "github.com/kailas-cloud/drillscout/internal/repository/assessment"
	catalogrepo "github.com/kailas-cloud/drillscout/internal/repository/catalog"
	"github.com/kailas-cloud/drillscout/internal/repository/fixture"
	healthuc "github.com/kailas-cloud/drillscout/internal/usecase/health"
	recommenduc "github.com/kailas-cloud/drillscout/internal/usecase/recommend"
	searchuc "github.com/kailas-cloud/drillscout/internal/usecase/search"
)

const defaultReadinessTimeout = 10 * time.Second

// Internal interfaces, swapped for mocks in tests.
type searchUseCase interface {
	Search(ctx context.Context, req request.Request, who access.Requester) (searchuc.Response, error)
}

type recommendUseCase interface {
	Recommend(ctx context.Context, playerID string, who access.Requester) ([]recommenduc.Recommendation, error)
}

type fixtureLoader interface {
	Load(ctx context.Context, f fixture.Fixture) (fixture.Stats, error)
}

// Client is the drillscout SDK entry point.
type Client struct {
	store        db.Store
	searchSvc    searchUseCase
	recommendSvc recommendUseCase
	healthSvc    healthUseCase
	loader       fixtureLoader
	obs          *observer
}

// New creates a drillscout Client and connects to the database.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("drillscout: database address required (use WithValkey or WithRedis)")
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("drillscout: database not ready: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		store.Close()
		return nil, err
	}
	return wireClient(store, cfg, obs), nil
}

// createStore picks the driver. Valkey and Redis share the rueidis client.
func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case "valkey", "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:      cfg.addrs,
			Password:   cfg.password,
			ClientName: "drillscout-sdk",
		})
		if err != nil {
			return nil, fmt.Errorf("drillscout: create %s store: %w", cfg.driver, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("drillscout: unknown driver %q", cfg.driver)
	}
}

func wireClient(store db.Store, cfg *clientConfig, obs *observer) *Client {
	catalog := catalogrepo.New(store)
	assessments := assessmentrepo.New(store)
	policy := access.NewPolicy(cfg.gatedRoles)

	var domEmb domain.Embedder = &noopEmbedder{}
	var fixtureEmb domain.Embedder
	if cfg.embedder != nil {
		domEmb = &embedderAdapter{inner: cfg.embedder}
		fixtureEmb = domEmb
	}

	caches := searchuc.NewCaches(cfg.embeddingTTL, cfg.listingTTL, cfg.snapshotTTL)
	searchSvc := searchuc.New(
		searchuc.NewTextSearch(catalog, caches.Listing, cfg.timeout),
		searchuc.NewVectorSearch(catalog, caches.Snapshot, cfg.timeout, 0),
		domEmb,
		caches,
		policy,
		searchuc.Options{EmbeddingTimeout: cfg.timeout},
	)

	return &Client{
		store:        store,
		searchSvc:    searchSvc,
		recommendSvc: recommenduc.New(assessments, catalog, policy, cfg.timeout),
		healthSvc:    healthuc.New(store, nil, caches, healthuc.DefaultCheckTimeout),
		loader:       fixture.NewLoader(store, fixtureEmb, fixture.DefaultBatchSize, zap.NewNop()),
		obs:          obs,
	}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	call := c.obs.begin("ping")
	defer func() { call.done(err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Search runs text-first search with semantic and listing fallbacks.
func (c *Client) Search(ctx context.Context, q SearchQuery, who Requester) (res SearchResult, err error) {
	call := c.obs.begin("search")
	call.with(slog.Bool("has_text", q.Text != ""), slog.String("category_id", q.CategoryID), slog.String("role", who.Role))
	defer func() { call.done(err) }()

	req, err := request.FromPage(q.Text, q.CategoryID, q.Page, q.Limit)
	if err != nil {
		return SearchResult{}, fmt.Errorf("search: %w", err)
	}

	resp, err := c.searchSvc.Search(ctx, req, who.toDomain())
	if err != nil {
		return SearchResult{}, fmt.Errorf("search: %w", err)
	}
	res = searchFromDomain(&resp)
	call.result(res.Type, len(res.Hits))
	return res, nil
}

// Recommend evaluates the player's recent assessments against drill criteria.
func (c *Client) Recommend(ctx context.Context, playerID string, who Requester) (recs []Recommendation, err error) {
	call := c.obs.begin("recommend")
	call.with(slog.String("player_id", playerID))
	defer func() { call.done(err) }()

	out, err := c.recommendSvc.Recommend(ctx, playerID, who.toDomain())
	if err != nil {
		return nil, fmt.Errorf("recommend: %w", err)
	}
	recs = recommendationsFromDomain(out)
	call.result("criteria", len(recs))
	return recs, nil
}

// LoadFixture seeds drills, criteria and assessments from a JSON fixture.
// Drills without an embedding are embedded when WithEmbedder is set.
func (c *Client) LoadFixture(ctx context.Context, r io.Reader) (stats SeedStats, err error) {
	call := c.obs.begin("load_fixture")
	defer func() { call.done(err) }()

	f, err := fixture.Decode(r)
	if err != nil {
		return SeedStats{}, fmt.Errorf("load fixture: %w", err)
	}
	s, err := c.loader.Load(ctx, f)
	stats = SeedStats(s)
	call.with(slog.Int("drills", stats.Drills), slog.Int("embedded", stats.Embedded))
	if err != nil {
		return stats, fmt.Errorf("load fixture: %w", err)
	}
	return stats, nil
}
