package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/imuii-id/imuii-portal/pkg/apperrors"
	"github.com/imuii-id/imuii-portal/pkg/models"
)

func TestEventService_ListDefaultsAndSearch(t *testing.T) {
	gw := newFakeEventGateway()
	gw.addEvent("e1", models.EventActive)
	gw.addEvent("e2", models.EventActive)
	gw.events["e2"] = models.Event{ID: "e2", Name: "Hackathon", Status: models.EventActive}
	gw.byStatus["active"][1] = gw.events["e2"]
	gw.addEvent("e3", models.EventEnded)
	svc := NewEventService(gw, zap.NewNop())

	page, err := svc.List(context.Background(), EventListQuery{})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	require.Len(t, gw.listCalls, 1)
	assert.Equal(t, "active", gw.listCalls[0].Status)
	assert.Equal(t, 1, gw.listCalls[0].Page)
	assert.Equal(t, DefaultEventPageLimit, gw.listCalls[0].Limit)

	page, err = svc.List(context.Background(), EventListQuery{Status: "all", Query: "HACK"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, models.ID("e2"), page.Items[0].ID)
	assert.Equal(t, 1, page.Total)
}

func TestEventService_ListRejectsUnknownStatus(t *testing.T) {
	gw := newFakeEventGateway()
	svc := NewEventService(gw, zap.NewNop())

	_, err := svc.List(context.Background(), EventListQuery{Status: "archived"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Empty(t, gw.listCalls)
}

func TestEventService_Detail(t *testing.T) {
	gw := newFakeEventGateway()
	gw.addEvent("e1", models.EventActive, "p1", "p2")
	svc := NewEventService(gw, zap.NewNop())

	detail, err := svc.Detail(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, models.ID("e1"), detail.Event.ID)
	assert.Len(t, detail.Projects, 2)

	gw.addEvent("e2", models.EventActive)
	detail, err = svc.Detail(context.Background(), "e2")
	require.NoError(t, err)
	assert.NotNil(t, detail.Projects)
	assert.Empty(t, detail.Projects)
}

func TestEventService_DetailFailure(t *testing.T) {
	gw := newFakeEventGateway()
	gw.addEvent("e1", models.EventActive)
	gw.rosterErr["e1"] = fmt.Errorf("%w: reset", apperrors.ErrTransport)
	svc := NewEventService(gw, zap.NewNop())

	_, err := svc.Detail(context.Background(), "e1")
	assert.ErrorIs(t, err, apperrors.ErrTransport)

	_, err = svc.Detail(context.Background(), "missing")
	assert.Error(t, err)
}

func TestEventService_Mine(t *testing.T) {
	gw := newFakeEventGateway()
	svc := NewEventService(gw, zap.NewNop())

	events, err := svc.Mine(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, events)

	gw.myEvents = []models.Event{{ID: "e1", MyProjects: []models.Item{{ID: "p1"}}}}
	events, err = svc.Mine(context.Background())
	require.NoError(t, err)
	assert.Len(t, events[0].MyProjects, 1)
}
