package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/imuii-id/imuii-portal/pkg/apperrors"
	"github.com/imuii-id/imuii-portal/pkg/gateway"
	"github.com/imuii-id/imuii-portal/pkg/models"
)

const (
	DefaultEventStatus    = string(models.EventActive)
	DefaultEventPageLimit = 100
)

// EventListQuery selects public events. Query is matched locally against
// name and description.
type EventListQuery struct {
	Status string // active | upcoming | ended | all
	Query  string
	Page   int
	Limit  int
}

// EventService serves the public event pages.
type EventService struct {
	events EventGateway
	logger *zap.Logger
}

// NewEventService creates an EventService.
func NewEventService(events EventGateway, logger *zap.Logger) *EventService {
	return &EventService{events: events, logger: logger.Named("events")}
}

func validEventStatus(s string) bool {
	switch models.EventStatus(s) {
	case models.EventActive, models.EventUpcoming, models.EventEnded:
		return true
	}
	return s == FilterAll
}

// List returns one page of events with the search applied to that page.
func (s *EventService) List(ctx context.Context, q EventListQuery) (*models.Page[models.Event], error) {
	if q.Status == "" {
		q.Status = DefaultEventStatus
	}
	if !validEventStatus(q.Status) {
		return nil, apperrors.NewValidationError("status", fmt.Sprintf("unknown status %q", q.Status))
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultEventPageLimit
	}

	page, err := s.events.ListEvents(ctx, gateway.EventQuery{Status: q.Status, Page: q.Page, Limit: q.Limit})
	if err != nil {
		return nil, err
	}

	if q.Query != "" {
		page.Items = FilterEvents(page.Items, q.Query)
		page.Total = len(page.Items)
	}
	if page.Items == nil {
		page.Items = []models.Event{}
	}
	return page, nil
}

// Detail fetches the event and its roster concurrently. Either failure fails the detail.
func (s *EventService) Detail(ctx context.Context, id models.ID) (*models.EventDetail, error) {
	var (
		event  *models.Event
		roster []models.Item
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		event, err = s.events.GetEvent(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		roster, err = s.events.ListEventProjects(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if roster == nil {
		roster = []models.Item{}
	}
	return &models.EventDetail{Event: event, Projects: roster}, nil
}

// Mine lists the events the caller's projects are registered to.
func (s *EventService) Mine(ctx context.Context) ([]models.Event, error) {
	events, err := s.events.MyEvents(ctx)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []models.Event{}
	}
	return events, nil
}
