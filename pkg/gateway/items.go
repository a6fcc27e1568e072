package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/imuii-id/imuii-portal/pkg/models"
)

// ownerParam is the query parameter that filters each collection by owner.
func ownerParam(t models.ItemType) string {
	if t == models.ItemTypePortfolio {
		return "user_id"
	}
	return "owner_id"
}

func normalizeItems(t models.ItemType, raw json.RawMessage, page, limit int, logger *zap.Logger) models.Page[models.Item] {
	if t == models.ItemTypePortfolio {
		return normalizePortfolios(raw, page, limit, logger)
	}
	return normalizeProjects(raw, page, limit, logger)
}

// ListItemsByOwner returns one page of the owner's projects or portfolios.
// GET /projects?owner_id=&page=&limit=, GET /portfolios?user_id=&page=&limit=
func (c *Client) ListItemsByOwner(ctx context.Context, t models.ItemType, ownerID models.ID, page, limit int) (*models.Page[models.Item], error) {
	q := pageQuery(page, limit)
	q.Set(ownerParam(t), ownerID.String())

	raw, err := c.do(ctx, request{method: http.MethodGet, segments: []string{t.Plural()}, query: q})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t.Plural(), err)
	}

	result := normalizeItems(t, raw, page, limit, c.logger)
	return &result, nil
}

// GetItem fetches a single project or portfolio.
func (c *Client) GetItem(ctx context.Context, t models.ItemType, id models.ID) (*models.Item, error) {
	raw, err := c.do(ctx, request{method: http.MethodGet, segments: []string{t.Plural(), id.String()}})
	if err != nil {
		return nil, fmt.Errorf("get %s %s: %w", t, id, err)
	}

	var item models.Item
	if err := decodeObject(raw, string(t), &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateItem sends a (partial) update and returns the stored item.
// When the backend answers without a body the item is fetched again.
func (c *Client) UpdateItem(ctx context.Context, t models.ItemType, id models.ID, payload any) (*models.Item, error) {
	raw, err := c.do(ctx, request{method: http.MethodPut, segments: []string{t.Plural(), id.String()}, body: payload})
	if err != nil {
		return nil, fmt.Errorf("update %s %s: %w", t, id, err)
	}

	var item models.Item
	if err := decodeObject(raw, string(t), &item); err != nil || item.ID == "" {
		return c.GetItem(ctx, t, id)
	}
	return &item, nil
}

// DeleteItem removes a project or portfolio.
func (c *Client) DeleteItem(ctx context.Context, t models.ItemType, id models.ID) error {
	if _, err := c.do(ctx, request{method: http.MethodDelete, segments: []string{t.Plural(), id.String()}}); err != nil {
		return fmt.Errorf("delete %s %s: %w", t, id, err)
	}
	return nil
}

// ListShowcase returns one page of publicly showcased projects or portfolios.
// GET /showcase/projects?page=&limit=, GET /showcase/portfolios?page=&limit=
func (c *Client) ListShowcase(ctx context.Context, t models.ItemType, page, limit int) (*models.Page[models.Item], error) {
	raw, err := c.do(ctx, request{
		method:   http.MethodGet,
		segments: []string{"showcase", t.Plural()},
		query:    pageQuery(page, limit),
	})
	if err != nil {
		return nil, fmt.Errorf("list showcased %s: %w", t.Plural(), err)
	}

	result := normalizeItems(t, raw, page, limit, c.logger)
	return &result, nil
}
