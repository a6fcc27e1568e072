package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/imuii-id/imuii-portal/pkg/models"
	"github.com/imuii-id/imuii-portal/pkg/services"
)

// ShowcaseResponse is the filtered public feed.
type ShowcaseResponse struct {
	Items     []models.ShowcaseItem   `json:"items"`
	Total     int                     `json:"total"`
	Counts    services.ShowcaseCounts `json:"counts"`
	Owners    []models.User           `json:"owners"`
	FetchedAt time.Time               `json:"fetched_at"`
	// Errors lists collections that failed to refresh; their items are the
	// last known good copy.
	Errors map[string]string `json:"errors,omitempty"`
}

// ShowcaseHandler serves the public showcase page.
type ShowcaseHandler struct {
	aggregator *services.Aggregator
	respond    *Responder
	logger     *zap.Logger
}

// NewShowcaseHandler creates a new showcase handler.
func NewShowcaseHandler(aggregator *services.Aggregator, respond *Responder, logger *zap.Logger) *ShowcaseHandler {
	return &ShowcaseHandler{aggregator: aggregator, respond: respond, logger: logger}
}

// RegisterRoutes registers the showcase handler's routes on the given mux.
func (h *ShowcaseHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/showcase", h.List)
}

// List handles GET /api/showcase?q&type&owner&sort&refresh
// Owners are computed over the whole feed so the owner dropdown does not
// shrink as filters are applied.
func (h *ShowcaseHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := services.ShowcaseFilter{
		Query: q.Get("q"),
		Type:  q.Get("type"),
		Owner: q.Get("owner"),
		Sort:  services.SortKey(q.Get("sort")),
	}
	if filter.Type != "" && filter.Type != services.FilterAll {
		t, err := models.ParseItemType(filter.Type)
		if err != nil {
			h.respond.Fail(w, http.StatusBadRequest, "invalid_type", "type must be all, project or portfolio")
			return
		}
		filter.Type = string(t)
	}
	if filter.Sort == "" {
		filter.Sort = services.SortNewest
	}

	var state services.ShowcaseState
	if boolParam(r, "refresh") {
		state = h.aggregator.Refetch(r.Context())
	} else {
		state = h.aggregator.Current(r.Context())
	}

	if err := state.Err(); err != nil && len(state.Items) == 0 {
		h.respond.Error(w, r, err, "load showcase")
		return
	}

	items := services.ApplyShowcaseFilter(state.Items, filter)
	response := ShowcaseResponse{
		Items:     items,
		Total:     len(items),
		Counts:    state.Counts,
		Owners:    services.Owners(state.Items),
		FetchedAt: state.FetchedAt,
	}
	if response.Owners == nil {
		response.Owners = []models.User{}
	}
	if state.ProjectsErr != nil || state.PortfoliosErr != nil {
		response.Errors = make(map[string]string)
		if state.ProjectsErr != nil {
			response.Errors["projects"] = state.ProjectsErr.Error()
		}
		if state.PortfoliosErr != nil {
			response.Errors["portfolios"] = state.PortfoliosErr.Error()
		}
	}
	h.respond.JSON(w, http.StatusOK, response)
}
