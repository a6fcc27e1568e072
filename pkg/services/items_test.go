package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/imuii-id/imuii-portal/pkg/apperrors"
	"github.com/imuii-id/imuii-portal/pkg/models"
)

type fakeUserGateway struct {
	user *models.User
	err  error
}

func (f *fakeUserGateway) VerifyUser(ctx context.Context) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

type fakeCatalog struct {
	items []models.ShowcaseItem
	err   error
}

func (f *fakeCatalog) ShowcaseItems(ctx context.Context) ([]models.ShowcaseItem, error) {
	return f.items, f.err
}

func boolPtr(b bool) *bool { return &b }

func newItemFixture() (*ItemService, *fakeItemGateway) {
	gw := newFakeItemGateway()
	gw.items["p1"] = models.Item{ID: "p1", Name: "Mine", Owner: &models.User{ID: "u1"}}
	gw.items["p2"] = models.Item{ID: "p2", Name: "Theirs", OwnerID: "u2"}
	gw.items["f1"] = models.Item{ID: "f1", Name: "Portfolio", UserID: "u1", IsShowcased: boolPtr(false)}
	gw.byOwner[models.ItemTypeProject] = []models.Item{gw.items["p1"], gw.items["p2"]}
	gw.byOwner[models.ItemTypePortfolio] = []models.Item{gw.items["f1"]}

	catalog := &fakeCatalog{items: []models.ShowcaseItem{
		{Type: models.ItemTypePortfolio, Item: models.Item{ID: "p1", Name: "Mine"}},
		{Type: models.ItemTypeProject, Item: models.Item{ID: "p1", ShowcaseTitle: "Smart Farm"}},
	}}
	svc := NewItemService(gw, &fakeUserGateway{user: &models.User{ID: "u1", Name: "Alice"}}, catalog, zap.NewNop())
	return svc, gw
}

func TestItemService_ListMine(t *testing.T) {
	svc, _ := newItemFixture()

	page, err := svc.ListMine(context.Background(), models.ItemTypeProject, 0, 0)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, models.ID("p1"), page.Items[0].ID)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, DefaultProjectPageLimit, page.Limit)

	page, err = svc.ListMine(context.Background(), models.ItemTypePortfolio, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultPortfolioPageLimit, page.Limit)
}

func TestItemService_ListMineUnauthorized(t *testing.T) {
	gw := newFakeItemGateway()
	svc := NewItemService(gw, &fakeUserGateway{err: apperrors.ErrUnauthorized}, nil, zap.NewNop())

	_, err := svc.ListMine(context.Background(), models.ItemTypeProject, 1, 10)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestItemService_GetBySlug(t *testing.T) {
	svc, _ := newItemFixture()

	item, err := svc.Get(context.Background(), models.ItemTypeProject, "p2")
	require.NoError(t, err)
	assert.Equal(t, "Theirs", item.Name)

	item, err = svc.Get(context.Background(), models.ItemTypeProject, "Smart-Farm")
	require.NoError(t, err)
	assert.Equal(t, models.ID("p1"), item.ID)

	_, err = svc.Get(context.Background(), models.ItemTypeProject, "unknown-slug")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestItemService_UpdateValidatesBeforeNetwork(t *testing.T) {
	svc, gw := newItemFixture()

	_, err := svc.Update(context.Background(), models.ItemTypeProject, "p1", &models.ItemUpdate{ShowcaseTitle: "x"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Empty(t, gw.updates)
}

func TestItemService_UpdateSendsNullForEmptyLinks(t *testing.T) {
	svc, gw := newItemFixture()
	update := validUpdate()
	update.ShowcaseTitle = "  Smart Farm  "
	update.YoutubeLink = ""

	_, err := svc.Update(context.Background(), models.ItemTypeProject, "p1", &update)
	require.NoError(t, err)

	require.Len(t, gw.updates, 1)
	body, err := json.Marshal(gw.updates[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"showcase_title": "Smart Farm",
		"showcase_description": "Sensors and dashboards for small farms.",
		"team_members": [{"name": "Alice", "role": "Lead"}],
		"youtube_link": null,
		"tags": [],
		"thumbnail_url": null
	}`, string(body))
}

func TestItemService_OwnershipEnforced(t *testing.T) {
	svc, gw := newItemFixture()
	ctx := context.Background()
	update := validUpdate()

	_, err := svc.Update(ctx, models.ItemTypeProject, "p2", &update)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	assert.ErrorIs(t, svc.Delete(ctx, models.ItemTypeProject, "p2"), apperrors.ErrForbidden)

	_, err = svc.ToggleVisibility(ctx, models.ItemTypeProject, "p2")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	assert.Empty(t, gw.updates)
	assert.Empty(t, gw.deleted)
}

func TestItemService_Delete(t *testing.T) {
	svc, gw := newItemFixture()

	require.NoError(t, svc.Delete(context.Background(), models.ItemTypeProject, "p1"))
	assert.Equal(t, []models.ID{"p1"}, gw.deleted)
}

func TestItemService_ToggleVisibility(t *testing.T) {
	svc, gw := newItemFixture()
	ctx := context.Background()

	// absent flag counts as visible, so the first toggle hides
	item, err := svc.ToggleVisibility(ctx, models.ItemTypeProject, "p1")
	require.NoError(t, err)
	assert.False(t, item.Showcased())

	item, err = svc.ToggleVisibility(ctx, models.ItemTypePortfolio, "f1")
	require.NoError(t, err)
	assert.True(t, item.Showcased())

	assert.Equal(t, map[string]bool{"is_showcased": false}, gw.updates[0])
}

func TestItemService_SetThumbnail(t *testing.T) {
	svc, gw := newItemFixture()

	item, err := svc.SetThumbnail(context.Background(), models.ItemTypeProject, "p1", "https://cdn/x.png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/x.png", item.ThumbnailURL)
	assert.Len(t, gw.updates, 1)
}

func TestItemService_Stats(t *testing.T) {
	svc, _ := newItemFixture()

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ItemStats{Total: 1, Showcased: 1}, stats.Projects)
	assert.Equal(t, ItemStats{Total: 1, Hidden: 1}, stats.Portfolios)
}

func TestItemService_GetPropagatesNonNotFound(t *testing.T) {
	svc, gw := newItemFixture()
	gw.getErr = &apperrors.APIError{StatusCode: 500}

	_, err := svc.Get(context.Background(), models.ItemTypeProject, "smart-farm")
	var apiErr *apperrors.APIError
	assert.True(t, errors.As(err, &apiErr))
}
