package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/imuii-id/imuii-portal/pkg/apperrors"
	"github.com/imuii-id/imuii-portal/pkg/fanout"
	"github.com/imuii-id/imuii-portal/pkg/gateway"
	"github.com/imuii-id/imuii-portal/pkg/logging"
	"github.com/imuii-id/imuii-portal/pkg/models"
)

// DefaultCandidateLimit is the page size of each candidate event listing.
const DefaultCandidateLimit = 100

// MembershipService creates Reconcilers that share one in-flight registry,
// so concurrent requests for the same (event, project) pair cannot both mutate.
type MembershipService struct {
	events         EventGateway
	pool           *fanout.Pool
	inflight       *inflightRegistry
	candidateLimit int
	logger         *zap.Logger
}

// NewMembershipService creates a MembershipService. A non-positive
// candidateLimit uses DefaultCandidateLimit.
func NewMembershipService(events EventGateway, pool *fanout.Pool, candidateLimit int, logger *zap.Logger) *MembershipService {
	if candidateLimit <= 0 {
		candidateLimit = DefaultCandidateLimit
	}
	return &MembershipService{
		events:         events,
		pool:           pool,
		inflight:       newInflightRegistry(),
		candidateLimit: candidateLimit,
		logger:         logger.Named("membership"),
	}
}

// Reconciler returns a reconciler bound to one project. It starts empty;
// call Load or LoadEvent before Join or Leave.
func (s *MembershipService) Reconciler(projectID models.ID) *Reconciler {
	return &Reconciler{
		svc:       s,
		projectID: projectID,
		index:     make(map[models.ID]int),
		logger:    s.logger.With(zap.String("project_id", projectID.String())),
	}
}

// Reconciler computes and mutates the join relation between one project and
// its candidate events. The backend only lists projects per event, so
// membership is derived from each event's roster.
type Reconciler struct {
	svc       *MembershipService
	projectID models.ID
	logger    *zap.Logger

	mu         sync.Mutex
	generation uint64
	entries    []models.MembershipEntry
	index      map[models.ID]int
}

// Load fetches active and upcoming events, then checks every roster.
// A failed roster leaves that event not joined; a failed listing fails the whole load.
func (r *Reconciler) Load(ctx context.Context) (*models.MembershipSnapshot, error) {
	gen := r.currentGeneration()

	var active, upcoming *models.Page[models.Event]
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		active, err = r.svc.events.ListEvents(gctx, gateway.EventQuery{Status: string(models.EventActive), Page: 1, Limit: r.svc.candidateLimit})
		return err
	})
	g.Go(func() error {
		var err error
		upcoming, err = r.svc.events.ListEvents(gctx, gateway.EventQuery{Status: string(models.EventUpcoming), Page: 1, Limit: r.svc.candidateLimit})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to list candidate events: %w", err)
	}

	candidates := dedupeEvents(active.Items, upcoming.Items)

	work := make([]fanout.WorkItem[bool], len(candidates))
	for i, ev := range candidates {
		work[i] = fanout.WorkItem[bool]{
			ID: ev.ID.String(),
			Execute: func(ctx context.Context) (bool, error) {
				return r.inRoster(ctx, ev.ID)
			},
		}
	}
	results := fanout.Process(ctx, r.svc.pool, work)

	entries := make([]models.MembershipEntry, len(candidates))
	for i, ev := range candidates {
		entries[i] = models.MembershipEntry{Event: ev}
		if err := results[i].Err; err != nil {
			if errors.Is(err, apperrors.ErrUnauthorized) {
				return nil, err
			}
			r.logger.Warn("Roster check failed, treating event as not joined",
				zap.String("event_id", ev.ID.String()),
				zap.String("error", logging.SanitizeError(err)))
			continue
		}
		entries[i].Joined = results[i].Result
		entries[i].Known = true
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.generation {
		return nil, apperrors.ErrStale
	}

	r.entries = entries
	r.index = make(map[models.ID]int, len(entries))
	for i := range r.entries {
		r.index[r.entries[i].Event.ID] = i
		r.entries[i].Pending = r.svc.inflight.get(r.entries[i].Event.ID, r.projectID)
	}
	return r.snapshotLocked(), nil
}

// LoadEvent reconciles a single event, including ended ones, so a mutation
// does not need the full fan-out.
func (r *Reconciler) LoadEvent(ctx context.Context, eventID models.ID) (*models.MembershipEntry, error) {
	gen := r.currentGeneration()

	var (
		event     *models.Event
		joined    bool
		rosterErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		event, err = r.svc.events.GetEvent(gctx, eventID)
		return err
	})
	g.Go(func() error {
		joined, rosterErr = r.inRoster(gctx, eventID)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load event %s: %w", eventID, err)
	}

	entry := models.MembershipEntry{Event: *event}
	switch {
	case rosterErr == nil:
		entry.Joined = joined
		entry.Known = true
	case errors.Is(rosterErr, apperrors.ErrUnauthorized):
		return nil, rosterErr
	default:
		r.logger.Warn("Roster check failed, treating event as not joined",
			zap.String("event_id", eventID.String()),
			zap.String("error", logging.SanitizeError(rosterErr)))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.generation {
		return nil, apperrors.ErrStale
	}

	entry.Pending = r.svc.inflight.get(eventID, r.projectID)
	if i, ok := r.index[eventID]; ok {
		r.entries[i] = entry
	} else {
		r.index[eventID] = len(r.entries)
		r.entries = append(r.entries, entry)
	}
	out := entry
	return &out, nil
}

// Join registers the project to an event. Preconditions are checked before
// any network call; on failure the prior state is kept and the message recorded.
func (r *Reconciler) Join(ctx context.Context, eventID models.ID) (*models.MembershipEntry, error) {
	return r.mutate(ctx, eventID, models.ActionJoin)
}

// Leave unregisters the project from an event.
func (r *Reconciler) Leave(ctx context.Context, eventID models.ID) (*models.MembershipEntry, error) {
	return r.mutate(ctx, eventID, models.ActionLeave)
}

func (r *Reconciler) mutate(ctx context.Context, eventID models.ID, action models.PendingAction) (*models.MembershipEntry, error) {
	r.mu.Lock()
	i, ok := r.index[eventID]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("event %s: %w", eventID, apperrors.ErrNotFound)
	}
	entry := &r.entries[i]
	if err := checkPrecondition(entry, action); err != nil {
		r.mu.Unlock()
		return nil, err
	}
	if !r.svc.inflight.acquire(eventID, r.projectID, action) {
		r.mu.Unlock()
		return nil, apperrors.ErrActionInFlight
	}
	entry.Pending = action
	entry.Error = ""
	event := entry.Event
	gen := r.generation
	r.mu.Unlock()

	defer r.svc.inflight.release(eventID, r.projectID)

	var err error
	if action == models.ActionJoin {
		err = r.svc.events.RegisterProject(ctx, eventID, r.projectID)
	} else {
		err = r.svc.events.UnregisterProject(ctx, eventID, r.projectID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.generation {
		r.logger.Debug("Discarding stale membership result",
			zap.String("event_id", eventID.String()),
			zap.String("action", string(action)))
		return nil, apperrors.ErrStale
	}

	i, ok = r.index[eventID]
	if !ok {
		// A concurrent Load dropped the event; report without committing.
		if err != nil {
			return nil, err
		}
		return &models.MembershipEntry{Event: event, Joined: action == models.ActionJoin, Known: true}, nil
	}
	entry = &r.entries[i]
	entry.Pending = models.ActionNone
	if err != nil {
		entry.Error = err.Error()
		r.logger.Info("Membership change failed",
			zap.String("event_id", eventID.String()),
			zap.String("action", string(action)),
			zap.String("error", logging.SanitizeError(err)))
		return nil, err
	}

	entry.Joined = action == models.ActionJoin
	entry.Known = true
	out := *entry
	return &out, nil
}

func checkPrecondition(entry *models.MembershipEntry, action models.PendingAction) error {
	switch action {
	case models.ActionJoin:
		if entry.CanJoin() {
			return nil
		}
	case models.ActionLeave:
		if entry.CanLeave() {
			return nil
		}
	default:
		return fmt.Errorf("unknown membership action %q: %w", action, apperrors.ErrValidation)
	}

	switch {
	case entry.Event.Status == models.EventEnded:
		return apperrors.ErrEventEnded
	case entry.Pending != models.ActionNone:
		return apperrors.ErrActionInFlight
	case action == models.ActionJoin:
		return apperrors.ErrAlreadyJoined
	}
	return apperrors.ErrNotJoined
}

// Invalidate makes every operation started before the call discard its
// result with ErrStale. Reconciled state is dropped; Load again to continue.
func (r *Reconciler) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generation++
	r.entries = nil
	r.index = make(map[models.ID]int)
}

// Snapshot returns a copy of the reconciled state.
func (r *Reconciler) Snapshot() *models.MembershipSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Reconciler) snapshotLocked() *models.MembershipSnapshot {
	entries := make([]models.MembershipEntry, len(r.entries))
	copy(entries, r.entries)
	return &models.MembershipSnapshot{ProjectID: r.projectID, Entries: entries}
}

func (r *Reconciler) currentGeneration() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generation
}

func (r *Reconciler) inRoster(ctx context.Context, eventID models.ID) (bool, error) {
	roster, err := r.svc.events.ListEventProjects(ctx, eventID)
	if err != nil {
		return false, err
	}
	for i := range roster {
		if roster[i].ID == r.projectID {
			return true, nil
		}
	}
	return false, nil
}

// dedupeEvents concatenates the listings, keeping the first occurrence of each id.
func dedupeEvents(lists ...[]models.Event) []models.Event {
	seen := make(map[models.ID]bool)
	var out []models.Event
	for _, list := range lists {
		for _, ev := range list {
			if ev.ID == "" || seen[ev.ID] {
				continue
			}
			seen[ev.ID] = true
			out = append(out, ev)
		}
	}
	return out
}

type inflightKey struct {
	event   models.ID
	project models.ID
}

// inflightRegistry holds the pending action per (event, project) pair.
type inflightRegistry struct {
	mu      sync.Mutex
	pending map[inflightKey]models.PendingAction
}

func newInflightRegistry() *inflightRegistry {
	return &inflightRegistry{pending: make(map[inflightKey]models.PendingAction)}
}

func (r *inflightRegistry) acquire(eventID, projectID models.ID, action models.PendingAction) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := inflightKey{event: eventID, project: projectID}
	if _, busy := r.pending[key]; busy {
		return false
	}
	r.pending[key] = action
	return true
}

func (r *inflightRegistry) release(eventID, projectID models.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, inflightKey{event: eventID, project: projectID})
}

func (r *inflightRegistry) get(eventID, projectID models.ID) models.PendingAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending[inflightKey{event: eventID, project: projectID}]
}
