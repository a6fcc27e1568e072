package services

import (
	"context"

	"github.com/imuii-id/imuii-portal/pkg/gateway"
	"github.com/imuii-id/imuii-portal/pkg/models"
)

// EventGateway is the part of the remote API the event and membership services use.
type EventGateway interface {
	ListEvents(ctx context.Context, query gateway.EventQuery) (*models.Page[models.Event], error)
	GetEvent(ctx context.Context, id models.ID) (*models.Event, error)
	ListEventProjects(ctx context.Context, id models.ID) ([]models.Item, error)
	MyEvents(ctx context.Context) ([]models.Event, error)
	RegisterProject(ctx context.Context, eventID, projectID models.ID) error
	UnregisterProject(ctx context.Context, eventID, projectID models.ID) error
}

// ItemGateway is the part of the remote API that serves projects and portfolios.
type ItemGateway interface {
	ListItemsByOwner(ctx context.Context, t models.ItemType, ownerID models.ID, page, limit int) (*models.Page[models.Item], error)
	GetItem(ctx context.Context, t models.ItemType, id models.ID) (*models.Item, error)
	UpdateItem(ctx context.Context, t models.ItemType, id models.ID, payload any) (*models.Item, error)
	DeleteItem(ctx context.Context, t models.ItemType, id models.ID) error
	ListShowcase(ctx context.Context, t models.ItemType, page, limit int) (*models.Page[models.Item], error)
}

// UserGateway resolves the caller's identity.
type UserGateway interface {
	VerifyUser(ctx context.Context) (*models.User, error)
}

// UserDirectory looks up public user profiles.
type UserDirectory interface {
	GetUser(ctx context.Context, id models.ID) (*models.User, error)
}

var (
	_ EventGateway  = (*gateway.Client)(nil)
	_ ItemGateway   = (*gateway.Client)(nil)
	_ UserGateway   = (*gateway.Client)(nil)
	_ UserDirectory = (*gateway.Client)(nil)
)
