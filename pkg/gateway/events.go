package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/imuii-id/imuii-portal/pkg/models"
)

// EventQuery filters the public event listing. An empty or "all" status
// lists every event.
type EventQuery struct {
	Status string
	Page   int
	Limit  int
}

// ListEvents returns one page of events.
// GET /events?page=&limit=&status=
func (c *Client) ListEvents(ctx context.Context, query EventQuery) (*models.Page[models.Event], error) {
	q := pageQuery(query.Page, query.Limit)
	if query.Status != "" && query.Status != "all" {
		q.Set("status", query.Status)
	}

	raw, err := c.do(ctx, request{method: http.MethodGet, segments: []string{"events"}, query: q})
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	result := normalizeEvents(raw, query.Page, query.Limit, c.logger)
	return &result, nil
}

// GetEvent fetches a single event.
func (c *Client) GetEvent(ctx context.Context, id models.ID) (*models.Event, error) {
	raw, err := c.do(ctx, request{method: http.MethodGet, segments: []string{"events", id.String()}})
	if err != nil {
		return nil, fmt.Errorf("get event %s: %w", id, err)
	}

	var event models.Event
	if err := decodeObject(raw, "event", &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// ListEventProjects returns the roster of an event.
// GET /events/{id}/projects
func (c *Client) ListEventProjects(ctx context.Context, id models.ID) ([]models.Item, error) {
	raw, err := c.do(ctx, request{method: http.MethodGet, segments: []string{"events", id.String(), "projects"}})
	if err != nil {
		return nil, fmt.Errorf("list projects of event %s: %w", id, err)
	}
	return normalizeRoster(raw, c.logger), nil
}

// MyEvents returns events containing the caller's projects, each with my_projects.
// GET /events/my-events
func (c *Client) MyEvents(ctx context.Context) ([]models.Event, error) {
	raw, err := c.do(ctx, request{method: http.MethodGet, segments: []string{"events", "my-events"}})
	if err != nil {
		return nil, fmt.Errorf("list my events: %w", err)
	}
	return normalizeEvents(raw, 0, 0, c.logger).Items, nil
}

// RegisterProject adds a project to an event.
// POST /events/{id}/register {"project_id": ...}
func (c *Client) RegisterProject(ctx context.Context, eventID, projectID models.ID) error {
	_, err := c.do(ctx, request{
		method:   http.MethodPost,
		segments: []string{"events", eventID.String(), "register"},
		body:     map[string]string{"project_id": projectID.String()},
	})
	if err != nil {
		return fmt.Errorf("register project %s to event %s: %w", projectID, eventID, err)
	}
	return nil
}

// UnregisterProject removes a project from an event.
// DELETE /events/{id}/projects/{projectID}
func (c *Client) UnregisterProject(ctx context.Context, eventID, projectID models.ID) error {
	_, err := c.do(ctx, request{
		method:   http.MethodDelete,
		segments: []string{"events", eventID.String(), "projects", projectID.String()},
	})
	if err != nil {
		return fmt.Errorf("unregister project %s from event %s: %w", projectID, eventID, err)
	}
	return nil
}
