package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/imuii-id/imuii-portal/pkg/apperrors"
	"github.com/imuii-id/imuii-portal/pkg/models"
	"github.com/imuii-id/imuii-portal/pkg/snapshot"
)

// fakeItemGateway serves items per type and records updates.
type fakeItemGateway struct {
	mu sync.Mutex

	showcase    map[models.ItemType][]models.Item
	showcaseErr map[models.ItemType]error
	items       map[models.ID]models.Item
	byOwner     map[models.ItemType][]models.Item
	getErr      error
	updateErr   error

	showcaseCalls int
	updates       []any
	deleted       []models.ID
}

func newFakeItemGateway() *fakeItemGateway {
	return &fakeItemGateway{
		showcase:    make(map[models.ItemType][]models.Item),
		showcaseErr: make(map[models.ItemType]error),
		items:       make(map[models.ID]models.Item),
		byOwner:     make(map[models.ItemType][]models.Item),
	}
}

func (f *fakeItemGateway) ListItemsByOwner(ctx context.Context, t models.ItemType, ownerID models.ID, page, limit int) (*models.Page[models.Item], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var items []models.Item
	for _, it := range f.byOwner[t] {
		if it.OwnerIdentity() == ownerID {
			items = append(items, it)
		}
	}
	return &models.Page[models.Item]{Items: items, Total: len(items), Page: page, Limit: limit}, nil
}

func (f *fakeItemGateway) GetItem(ctx context.Context, t models.ItemType, id models.ID) (*models.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	it, ok := f.items[id]
	if !ok {
		return nil, &apperrors.APIError{StatusCode: 404, Message: "not found"}
	}
	return &it, nil
}

func (f *fakeItemGateway) UpdateItem(ctx context.Context, t models.ItemType, id models.ID, payload any) (*models.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, payload)
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	it := f.items[id]
	data, _ := json.Marshal(payload)
	_ = json.Unmarshal(data, &it)
	f.items[id] = it
	return &it, nil
}

func (f *fakeItemGateway) DeleteItem(ctx context.Context, t models.ItemType, id models.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	delete(f.items, id)
	return nil
}

func (f *fakeItemGateway) ListShowcase(ctx context.Context, t models.ItemType, page, limit int) (*models.Page[models.Item], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.showcaseCalls++
	if err := f.showcaseErr[t]; err != nil {
		return nil, err
	}
	items := f.showcase[t]
	return &models.Page[models.Item]{Items: items, Total: len(items), Page: page, Limit: limit}, nil
}

func (f *fakeItemGateway) setShowcaseErr(t models.ItemType, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.showcaseErr[t] = err
}

func ts(s string) models.Timestamp {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return models.Timestamp{Time: t}
}

func seedShowcase(gw *fakeItemGateway) {
	gw.showcase[models.ItemTypeProject] = []models.Item{
		{ID: "p1", Name: "Older project", CreatedAt: ts("2024-01-01T00:00:00Z")},
		{ID: "p2", Name: "Newest project", CreatedAt: ts("2024-03-01T00:00:00Z")},
	}
	gw.showcase[models.ItemTypePortfolio] = []models.Item{
		{ID: "f1", Name: "Portfolio", UpdatedAt: ts("2024-02-01T00:00:00Z")},
	}
}

func ids(items []models.ShowcaseItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID.String()
	}
	return out
}

func TestAggregator_LoadMergesNewestFirst(t *testing.T) {
	gw := newFakeItemGateway()
	seedShowcase(gw)

	state := NewAggregator(gw, nil, ShowcaseConfig{}, zap.NewNop()).Load(context.Background())

	require.NoError(t, state.Err())
	assert.False(t, state.Loading)
	assert.Equal(t, []string{"p2", "f1", "p1"}, ids(state.Items))
	assert.Equal(t, models.ItemTypePortfolio, state.Items[1].Type)
	assert.Equal(t, ShowcaseCounts{Projects: 2, Portfolios: 1}, state.Counts)
}

func TestAggregator_PartialFailureIsolation(t *testing.T) {
	gw := newFakeItemGateway()
	seedShowcase(gw)
	gw.setShowcaseErr(models.ItemTypePortfolio, fmt.Errorf("%w: timeout", apperrors.ErrTransport))
	agg := NewAggregator(gw, nil, ShowcaseConfig{}, zap.NewNop())

	state := agg.Load(context.Background())
	assert.Equal(t, []string{"p2", "p1"}, ids(state.Items))
	for _, it := range state.Items {
		assert.Equal(t, models.ItemTypeProject, it.Type)
	}
	assert.ErrorIs(t, state.Err(), apperrors.ErrTransport)
	assert.Nil(t, state.ProjectsErr)

	gw.setShowcaseErr(models.ItemTypePortfolio, nil)
	state = agg.Refetch(context.Background())
	require.NoError(t, state.Err())
	assert.Equal(t, []string{"p2", "f1", "p1"}, ids(state.Items))
}

func TestAggregator_RefetchKeepsLastKnownGood(t *testing.T) {
	gw := newFakeItemGateway()
	seedShowcase(gw)
	agg := NewAggregator(gw, nil, ShowcaseConfig{}, zap.NewNop())

	state := agg.Load(context.Background())
	require.NoError(t, state.Err())

	gw.setShowcaseErr(models.ItemTypeProject, &apperrors.APIError{StatusCode: 502})
	state = agg.Refetch(context.Background())

	assert.Equal(t, []string{"p2", "f1", "p1"}, ids(state.Items), "projects keep their previous data")
	assert.Error(t, state.ProjectsErr)
	assert.Nil(t, state.PortfoliosErr)
}

func TestAggregator_ErrorPrecedence(t *testing.T) {
	gw := newFakeItemGateway()
	projectsErr := &apperrors.APIError{StatusCode: 500, Message: "projects down"}
	gw.setShowcaseErr(models.ItemTypeProject, projectsErr)
	gw.setShowcaseErr(models.ItemTypePortfolio, &apperrors.APIError{StatusCode: 500, Message: "portfolios down"})

	state := NewAggregator(gw, nil, ShowcaseConfig{}, zap.NewNop()).Load(context.Background())
	assert.Equal(t, projectsErr, state.Err())
	assert.Empty(t, state.Items)
	assert.NotNil(t, state.Items)
}

func TestAggregator_RefetchFallsBackToSharedSnapshot(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := snapshot.NewRedisStore(client, 0)

	gw := newFakeItemGateway()
	seedShowcase(gw)
	warm := NewAggregator(gw, store, ShowcaseConfig{}, zap.NewNop())
	warmState := warm.Load(context.Background())
	require.NoError(t, warmState.Err())
	assert.True(t, mr.Exists("portal:showcase:projects"))

	// A second replica that never loaded successfully.
	gw.setShowcaseErr(models.ItemTypeProject, fmt.Errorf("%w: refused", apperrors.ErrTransport))
	cold := NewAggregator(gw, store, ShowcaseConfig{}, zap.NewNop())

	state := cold.Load(context.Background())
	assert.Equal(t, []string{"f1"}, ids(state.Items), "load from cold does not use snapshots")

	state = cold.Refetch(context.Background())
	assert.Equal(t, []string{"p2", "f1", "p1"}, ids(state.Items))
	assert.Error(t, state.ProjectsErr)
}

func TestAggregator_SnapshotStoreFailureMeansNoData(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	gw := newFakeItemGateway()
	seedShowcase(gw)
	gw.setShowcaseErr(models.ItemTypeProject, fmt.Errorf("%w: refused", apperrors.ErrTransport))
	agg := NewAggregator(gw, snapshot.NewRedisStore(client, 0), ShowcaseConfig{}, zap.NewNop())

	state := agg.Refetch(context.Background())
	assert.Equal(t, []string{"f1"}, ids(state.Items))
}

func TestAggregator_CurrentCachesUntilMaxAge(t *testing.T) {
	gw := newFakeItemGateway()
	seedShowcase(gw)
	agg := NewAggregator(gw, nil, ShowcaseConfig{MaxAge: time.Minute}, zap.NewNop())
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	agg.now = func() time.Time { return now }

	agg.Current(context.Background())
	agg.Current(context.Background())
	assert.Equal(t, 2, gw.showcaseCalls, "one call per side")

	now = now.Add(2 * time.Minute)
	agg.Current(context.Background())
	assert.Equal(t, 4, gw.showcaseCalls)
}

func TestAggregator_ShowcaseItems(t *testing.T) {
	gw := newFakeItemGateway()
	gw.setShowcaseErr(models.ItemTypeProject, fmt.Errorf("%w: refused", apperrors.ErrTransport))
	gw.setShowcaseErr(models.ItemTypePortfolio, fmt.Errorf("%w: refused", apperrors.ErrTransport))

	_, err := NewAggregator(gw, nil, ShowcaseConfig{}, zap.NewNop()).ShowcaseItems(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrTransport)
}

func TestAggregator_Counts(t *testing.T) {
	gw := newFakeItemGateway()
	seedShowcase(gw)
	agg := NewAggregator(gw, nil, ShowcaseConfig{}, zap.NewNop())

	assert.Equal(t, ShowcaseCounts{}, agg.Counts())
	agg.Load(context.Background())
	assert.Equal(t, ShowcaseCounts{Projects: 2, Portfolios: 1}, agg.Counts())
}
