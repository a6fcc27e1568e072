package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/imuii-id/imuii-portal/pkg/auth"
	"github.com/imuii-id/imuii-portal/pkg/models"
	"github.com/imuii-id/imuii-portal/pkg/services"
)

// MembershipHandler manages which events a project is registered to.
type MembershipHandler struct {
	membership *services.MembershipService
	items      *services.ItemService
	respond    *Responder
	logger     *zap.Logger
}

// NewMembershipHandler creates a new membership handler.
func NewMembershipHandler(membership *services.MembershipService, items *services.ItemService, respond *Responder, logger *zap.Logger) *MembershipHandler {
	return &MembershipHandler{membership: membership, items: items, respond: respond, logger: logger}
}

// RegisterRoutes registers the membership handler's routes on the given mux.
func (h *MembershipHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("GET /api/projects/{id}/events", authMiddleware.RequireAuth(h.List))
	mux.HandleFunc("POST /api/projects/{id}/events/{eid}", authMiddleware.RequireAuth(h.Join))
	mux.HandleFunc("DELETE /api/projects/{id}/events/{eid}", authMiddleware.RequireAuth(h.Leave))
}

// reconciler checks ownership and returns a reconciler whose results are
// discarded once the request is gone. Call the returned stop when done.
func (h *MembershipHandler) reconciler(w http.ResponseWriter, r *http.Request) (*services.Reconciler, func() bool, bool) {
	projectID, ok := pathID(r, "id")
	if !ok {
		h.respond.Fail(w, http.StatusBadRequest, "invalid_project_id", "Invalid project ID")
		return nil, nil, false
	}
	if err := h.items.CheckOwner(r.Context(), models.ItemTypeProject, projectID); err != nil {
		h.respond.Error(w, r, err, "check project owner")
		return nil, nil, false
	}
	rec := h.membership.Reconciler(projectID)
	stop := context.AfterFunc(r.Context(), rec.Invalidate)
	return rec, stop, true
}

// List handles GET /api/projects/{id}/events
// Returns one entry per active or upcoming event with the project's
// membership in it.
func (h *MembershipHandler) List(w http.ResponseWriter, r *http.Request) {
	rec, stop, ok := h.reconciler(w, r)
	if !ok {
		return
	}
	defer stop()

	snapshot, err := rec.Load(r.Context())
	if err != nil {
		h.respond.Error(w, r, err, "load memberships")
		return
	}
	h.respond.JSON(w, http.StatusOK, snapshot)
}

// Join handles POST /api/projects/{id}/events/{eid}
func (h *MembershipHandler) Join(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, models.ActionJoin)
}

// Leave handles DELETE /api/projects/{id}/events/{eid}
func (h *MembershipHandler) Leave(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, models.ActionLeave)
}

func (h *MembershipHandler) mutate(w http.ResponseWriter, r *http.Request, action models.PendingAction) {
	eventID, ok := pathID(r, "eid")
	if !ok {
		h.respond.Fail(w, http.StatusBadRequest, "invalid_event_id", "Invalid event ID")
		return
	}
	rec, stop, ok := h.reconciler(w, r)
	if !ok {
		return
	}
	defer stop()

	// the current roster decides the precondition
	if _, err := rec.LoadEvent(r.Context(), eventID); err != nil {
		h.respond.Error(w, r, err, "load event membership")
		return
	}

	var (
		entry *models.MembershipEntry
		err   error
	)
	if action == models.ActionJoin {
		entry, err = rec.Join(r.Context(), eventID)
	} else {
		entry, err = rec.Leave(r.Context(), eventID)
	}
	if err != nil {
		h.respond.Error(w, r, err, string(action)+" event")
		return
	}
	h.respond.JSON(w, http.StatusOK, entry)
}
