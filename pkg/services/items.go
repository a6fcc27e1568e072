package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/imuii-id/imuii-portal/pkg/apperrors"
	"github.com/imuii-id/imuii-portal/pkg/models"
)

// Default page sizes of the owner listings.
const (
	DefaultProjectPageLimit   = 10
	DefaultPortfolioPageLimit = 100
	statsPageLimit            = 100
)

// ShowcaseCatalog supplies the public feed; used to resolve slugs.
type ShowcaseCatalog interface {
	ShowcaseItems(ctx context.Context) ([]models.ShowcaseItem, error)
}

// ItemStats summarises one collection of the caller's items.
type ItemStats struct {
	Total     int `json:"total"`
	Showcased int `json:"showcased"`
	Hidden    int `json:"hidden"`
}

// DashboardStats summarises the caller's projects and portfolios.
type DashboardStats struct {
	Projects   ItemStats `json:"projects"`
	Portfolios ItemStats `json:"portfolios"`
}

// ItemService is owner-facing project and portfolio management.
type ItemService struct {
	items   ItemGateway
	users   UserGateway
	catalog ShowcaseCatalog
	logger  *zap.Logger
}

// NewItemService creates an ItemService. catalog may be nil, which disables
// slug lookups.
func NewItemService(items ItemGateway, users UserGateway, catalog ShowcaseCatalog, logger *zap.Logger) *ItemService {
	return &ItemService{
		items:   items,
		users:   users,
		catalog: catalog,
		logger:  logger.Named("items"),
	}
}

func defaultPageLimit(t models.ItemType) int {
	if t == models.ItemTypeProject {
		return DefaultProjectPageLimit
	}
	return DefaultPortfolioPageLimit
}

// ListMine lists the caller's items. The owner id comes from /users/verify.
func (s *ItemService) ListMine(ctx context.Context, t models.ItemType, page, limit int) (*models.Page[models.Item], error) {
	user, err := s.users.VerifyUser(ctx)
	if err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit(t)
	}
	return s.items.ListItemsByOwner(ctx, t, user.ID, page, limit)
}

// Get returns one item. When idOrSlug is not found and looks like a slug it
// is resolved against the showcase by display title.
func (s *ItemService) Get(ctx context.Context, t models.ItemType, idOrSlug string) (*models.Item, error) {
	item, err := s.items.GetItem(ctx, t, models.ID(idOrSlug))
	if err == nil {
		return item, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) || s.catalog == nil || !models.IsSlug(idOrSlug) {
		return nil, err
	}

	id, ok, lookupErr := s.lookupSlug(ctx, t, strings.ToLower(idOrSlug))
	if lookupErr != nil {
		s.logger.Debug("Slug lookup failed", zap.String("slug", idOrSlug), zap.Error(lookupErr))
		return nil, err
	}
	if !ok {
		return nil, err
	}
	return s.items.GetItem(ctx, t, id)
}

func (s *ItemService) lookupSlug(ctx context.Context, t models.ItemType, slug string) (models.ID, bool, error) {
	feed, err := s.catalog.ShowcaseItems(ctx)
	if err != nil {
		return "", false, err
	}
	for i := range feed {
		if feed[i].Type == t && feed[i].Slug() == slug {
			return feed[i].ID, true, nil
		}
	}
	return "", false, nil
}

// requireOwner loads the item and checks that the verified caller owns it.
func (s *ItemService) requireOwner(ctx context.Context, t models.ItemType, id models.ID) (*models.Item, error) {
	user, err := s.users.VerifyUser(ctx)
	if err != nil {
		return nil, err
	}
	item, err := s.items.GetItem(ctx, t, id)
	if err != nil {
		return nil, err
	}
	if item.OwnerIdentity() != user.ID {
		s.logger.Info("Rejected change by non-owner",
			zap.String("type", string(t)),
			zap.String("item_id", id.String()),
			zap.String("user_id", user.ID.String()))
		return nil, fmt.Errorf("%s %s: %w", t, id, apperrors.ErrForbidden)
	}
	return item, nil
}

// itemPayload is the PUT body; empty links are sent as null.
type itemPayload struct {
	ShowcaseTitle       string              `json:"showcase_title"`
	ShowcaseDescription string              `json:"showcase_description"`
	TeamMembers         []models.TeamMember `json:"team_members"`
	YoutubeLink         *string             `json:"youtube_link"`
	Tags                []string            `json:"tags"`
	ThumbnailURL        *string             `json:"thumbnail_url"`
	IsShowcased         *bool               `json:"is_showcased,omitempty"`
}

func nullIfEmpty(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func newItemPayload(u *models.ItemUpdate) itemPayload {
	p := itemPayload{
		ShowcaseTitle:       strings.TrimSpace(u.ShowcaseTitle),
		ShowcaseDescription: strings.TrimSpace(u.ShowcaseDescription),
		TeamMembers:         u.TeamMembers,
		YoutubeLink:         nullIfEmpty(u.YoutubeLink),
		Tags:                u.Tags,
		ThumbnailURL:        nullIfEmpty(u.ThumbnailURL),
		IsShowcased:         u.IsShowcased,
	}
	if p.TeamMembers == nil {
		p.TeamMembers = []models.TeamMember{}
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return p
}

// Update validates the edit before any network call, then saves it.
func (s *ItemService) Update(ctx context.Context, t models.ItemType, id models.ID, update *models.ItemUpdate) (*models.Item, error) {
	if err := ValidateItemUpdate(update); err != nil {
		return nil, err
	}
	if _, err := s.requireOwner(ctx, t, id); err != nil {
		return nil, err
	}
	return s.items.UpdateItem(ctx, t, id, newItemPayload(update))
}

// Delete removes an item owned by the caller.
func (s *ItemService) Delete(ctx context.Context, t models.ItemType, id models.ID) error {
	if _, err := s.requireOwner(ctx, t, id); err != nil {
		return err
	}
	if err := s.items.DeleteItem(ctx, t, id); err != nil {
		return err
	}
	s.logger.Info("Item deleted", zap.String("type", string(t)), zap.String("item_id", id.String()))
	return nil
}

// ToggleVisibility flips is_showcased; an absent flag counts as visible.
func (s *ItemService) ToggleVisibility(ctx context.Context, t models.ItemType, id models.ID) (*models.Item, error) {
	item, err := s.requireOwner(ctx, t, id)
	if err != nil {
		return nil, err
	}
	next := !item.Showcased()
	return s.items.UpdateItem(ctx, t, id, map[string]bool{"is_showcased": next})
}

// SetThumbnail points the item at an uploaded image.
func (s *ItemService) SetThumbnail(ctx context.Context, t models.ItemType, id models.ID, url string) (*models.Item, error) {
	if _, err := s.requireOwner(ctx, t, id); err != nil {
		return nil, err
	}
	return s.items.UpdateItem(ctx, t, id, map[string]string{"thumbnail_url": url})
}

// CheckOwner fails with ErrForbidden unless the caller owns the item.
func (s *ItemService) CheckOwner(ctx context.Context, t models.ItemType, id models.ID) error {
	_, err := s.requireOwner(ctx, t, id)
	return err
}

// Stats counts the caller's items by visibility.
func (s *ItemService) Stats(ctx context.Context) (*DashboardStats, error) {
	user, err := s.users.VerifyUser(ctx)
	if err != nil {
		return nil, err
	}

	var stats DashboardStats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		page, err := s.items.ListItemsByOwner(gctx, models.ItemTypeProject, user.ID, 1, statsPageLimit)
		if err != nil {
			return err
		}
		stats.Projects = countVisibility(page)
		return nil
	})
	g.Go(func() error {
		page, err := s.items.ListItemsByOwner(gctx, models.ItemTypePortfolio, user.ID, 1, statsPageLimit)
		if err != nil {
			return err
		}
		stats.Portfolios = countVisibility(page)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &stats, nil
}

func countVisibility(page *models.Page[models.Item]) ItemStats {
	st := ItemStats{Total: len(page.Items)}
	if page.Total > st.Total {
		st.Total = page.Total
	}
	for i := range page.Items {
		if page.Items[i].Showcased() {
			st.Showcased++
		} else {
			st.Hidden++
		}
	}
	return st
}
