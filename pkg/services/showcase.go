package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/imuii-id/imuii-portal/pkg/logging"
	"github.com/imuii-id/imuii-portal/pkg/models"
	"github.com/imuii-id/imuii-portal/pkg/snapshot"
)

const (
	DefaultShowcasePageLimit = 100
	DefaultShowcaseMaxAge    = time.Minute
)

// ShowcaseConfig tunes the Aggregator.
type ShowcaseConfig struct {
	PageLimit int           // items requested per collection
	MaxAge    time.Duration // Current refetches once the aggregate is older than this
}

// ShowcaseCounts are the per-type sizes of the aggregate.
type ShowcaseCounts struct {
	Projects   int `json:"projects"`
	Portfolios int `json:"portfolios"`
}

// ShowcaseState is the merged feed together with its load status.
type ShowcaseState struct {
	Items         []models.ShowcaseItem `json:"items"`
	Counts        ShowcaseCounts        `json:"counts"`
	Loading       bool                  `json:"loading"`
	ProjectsErr   error                 `json:"-"`
	PortfoliosErr error                 `json:"-"`
	FetchedAt     time.Time             `json:"fetched_at"`
}

// Err is the visible error: projects are checked before portfolios.
func (s *ShowcaseState) Err() error {
	if s.ProjectsErr != nil {
		return s.ProjectsErr
	}
	return s.PortfoliosErr
}

type showcaseSide struct {
	itemType models.ItemType
	items    []models.Item
	loaded   bool // items holds a successful fetch
	loading  bool
	err      error
}

// Aggregator merges the public project and portfolio listings into one
// newest-first feed. Each side succeeds or fails on its own.
type Aggregator struct {
	items  ItemGateway
	store  snapshot.Store
	cfg    ShowcaseConfig
	group  singleflight.Group
	logger *zap.Logger

	mu         sync.Mutex
	projects   showcaseSide
	portfolios showcaseSide
	fetchedAt  time.Time
	now        func() time.Time
}

// NewAggregator creates an Aggregator. store keeps the last-known-good lists;
// nil uses an in-process store.
func NewAggregator(items ItemGateway, store snapshot.Store, cfg ShowcaseConfig, logger *zap.Logger) *Aggregator {
	if store == nil {
		store = snapshot.NewMemoryStore()
	}
	if cfg.PageLimit <= 0 {
		cfg.PageLimit = DefaultShowcasePageLimit
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultShowcaseMaxAge
	}
	return &Aggregator{
		items:      items,
		store:      store,
		cfg:        cfg,
		logger:     logger.Named("showcase"),
		projects:   showcaseSide{itemType: models.ItemTypeProject},
		portfolios: showcaseSide{itemType: models.ItemTypePortfolio},
		now:        time.Now,
	}
}

// Load fetches both collections from cold state: a failed side is empty.
func (a *Aggregator) Load(ctx context.Context) ShowcaseState {
	return a.run(ctx, "load", false)
}

// Refetch fetches both collections again. A failed side keeps its
// last-known-good data and only its error is set.
func (a *Aggregator) Refetch(ctx context.Context) ShowcaseState {
	return a.run(ctx, "refetch", true)
}

// Current returns the aggregate, loading it on first use and refetching
// once it is older than the configured max age.
func (a *Aggregator) Current(ctx context.Context) ShowcaseState {
	a.mu.Lock()
	fetchedAt := a.fetchedAt
	a.mu.Unlock()

	switch {
	case fetchedAt.IsZero():
		return a.Load(ctx)
	case a.now().Sub(fetchedAt) > a.cfg.MaxAge:
		return a.Refetch(ctx)
	}
	return a.State()
}

// State returns the aggregate without fetching.
func (a *Aggregator) State() ShowcaseState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stateLocked()
}

// Counts returns the per-type sizes of the current aggregate.
func (a *Aggregator) Counts() ShowcaseCounts {
	a.mu.Lock()
	defer a.mu.Unlock()
	return ShowcaseCounts{Projects: len(a.projects.items), Portfolios: len(a.portfolios.items)}
}

// ShowcaseItems returns the current feed for the chat assistant. It fails
// only when nothing at all could be loaded.
func (a *Aggregator) ShowcaseItems(ctx context.Context) ([]models.ShowcaseItem, error) {
	state := a.Current(ctx)
	if len(state.Items) == 0 && state.Err() != nil {
		return nil, state.Err()
	}
	return state.Items, nil
}

// run coalesces concurrent loads; callers joining an in-flight fetch share its result.
func (a *Aggregator) run(ctx context.Context, op string, keepPrevious bool) ShowcaseState {
	ch := a.group.DoChan(op, func() (any, error) {
		// Detached so one caller's cancellation does not fail the shared fetch.
		return a.fetch(context.WithoutCancel(ctx), keepPrevious), nil
	})
	select {
	case res := <-ch:
		return res.Val.(ShowcaseState)
	case <-ctx.Done():
		state := a.State()
		if state.ProjectsErr == nil {
			state.ProjectsErr = ctx.Err()
		}
		return state
	}
}

func (a *Aggregator) fetch(ctx context.Context, keepPrevious bool) ShowcaseState {
	a.mu.Lock()
	a.projects.loading, a.portfolios.loading = true, true
	a.mu.Unlock()

	var projects, portfolios []models.Item
	var projectsErr, portfoliosErr error

	// Side failures are values, not group errors, so neither cancels the other.
	var g errgroup.Group
	g.Go(func() error {
		projects, projectsErr = a.fetchSide(ctx, models.ItemTypeProject)
		return nil
	})
	g.Go(func() error {
		portfolios, portfoliosErr = a.fetchSide(ctx, models.ItemTypePortfolio)
		return nil
	})
	_ = g.Wait()

	prevProjects := a.fallback(ctx, &a.projects, keepPrevious, projectsErr)
	prevPortfolios := a.fallback(ctx, &a.portfolios, keepPrevious, portfoliosErr)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.commitSide(&a.projects, projects, projectsErr, prevProjects)
	a.commitSide(&a.portfolios, portfolios, portfoliosErr, prevPortfolios)
	a.fetchedAt = a.now()

	state := a.stateLocked()
	a.logger.Debug("Showcase aggregated",
		zap.Int("projects", state.Counts.Projects),
		zap.Int("portfolios", state.Counts.Portfolios),
		zap.Bool("keep_previous", keepPrevious),
		zap.Bool("partial", state.Err() != nil))
	return state
}

func (a *Aggregator) fetchSide(ctx context.Context, t models.ItemType) ([]models.Item, error) {
	page, err := a.items.ListShowcase(ctx, t, 1, a.cfg.PageLimit)
	if err != nil {
		a.logger.Warn("Showcase fetch failed",
			zap.String("type", string(t)),
			zap.String("error", logging.SanitizeError(err)))
		return nil, err
	}

	items := page.Items
	if items == nil {
		items = []models.Item{}
	}
	if data, err := json.Marshal(items); err != nil {
		a.logger.Error("Failed to encode showcase snapshot", zap.Error(err))
	} else if err := a.store.Put(ctx, t.Plural(), data); err != nil {
		a.logger.Warn("Failed to store showcase snapshot",
			zap.String("type", string(t)),
			zap.Error(err))
	}
	return items, nil
}

// fallback returns the last-known-good list for a failed side: the
// in-process copy first, then the snapshot store. nil means none.
func (a *Aggregator) fallback(ctx context.Context, side *showcaseSide, keepPrevious bool, fetchErr error) []models.Item {
	if !keepPrevious || fetchErr == nil {
		return nil
	}

	a.mu.Lock()
	loaded, items := side.loaded, side.items
	a.mu.Unlock()
	if loaded {
		return items
	}

	data, ok, err := a.store.Get(ctx, side.itemType.Plural())
	if err != nil {
		a.logger.Warn("Failed to read showcase snapshot, treating as empty",
			zap.String("type", string(side.itemType)),
			zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	var stored []models.Item
	if err := json.Unmarshal(data, &stored); err != nil {
		a.logger.Warn("Discarding unreadable showcase snapshot",
			zap.String("type", string(side.itemType)),
			zap.Error(err))
		return nil
	}
	return stored
}

func (a *Aggregator) commitSide(side *showcaseSide, items []models.Item, err error, previous []models.Item) {
	side.loading = false
	side.err = err
	switch {
	case err == nil:
		side.items, side.loaded = items, true
	case previous != nil:
		side.items, side.loaded = previous, true
	default:
		side.items, side.loaded = []models.Item{}, false
	}
}

func (a *Aggregator) stateLocked() ShowcaseState {
	return ShowcaseState{
		Items:         mergeShowcase(a.projects.items, a.portfolios.items),
		Counts:        ShowcaseCounts{Projects: len(a.projects.items), Portfolios: len(a.portfolios.items)},
		Loading:       a.projects.loading || a.portfolios.loading,
		ProjectsErr:   a.projects.err,
		PortfoliosErr: a.portfolios.err,
		FetchedAt:     a.fetchedAt,
	}
}

// mergeShowcase stamps each item with its type, concatenates projects then
// portfolios and stable-sorts newest first.
func mergeShowcase(projects, portfolios []models.Item) []models.ShowcaseItem {
	merged := make([]models.ShowcaseItem, 0, len(projects)+len(portfolios))
	for _, p := range projects {
		merged = append(merged, models.ShowcaseItem{Type: models.ItemTypeProject, Item: p})
	}
	for _, p := range portfolios {
		merged = append(merged, models.ShowcaseItem{Type: models.ItemTypePortfolio, Item: p})
	}
	SortShowcase(merged, SortNewest)
	return merged
}
