package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/imuii-id/imuii-portal/pkg/auth"
	"github.com/imuii-id/imuii-portal/pkg/models"
	"github.com/imuii-id/imuii-portal/pkg/services"
)

// maxUploadBody bounds the multipart body; the image limit itself is
// enforced by the thumbnail service.
const maxUploadBody = services.MaxThumbnailSize + 1<<20

// ItemsHandler serves owner-facing project and portfolio management.
type ItemsHandler struct {
	items      *services.ItemService
	thumbnails *services.ThumbnailService
	respond    *Responder
	logger     *zap.Logger
}

// NewItemsHandler creates a new items handler. thumbnails may be nil when
// storage is not configured; uploads then answer 503.
func NewItemsHandler(items *services.ItemService, thumbnails *services.ThumbnailService, respond *Responder, logger *zap.Logger) *ItemsHandler {
	return &ItemsHandler{items: items, thumbnails: thumbnails, respond: respond, logger: logger}
}

// RegisterRoutes registers the items handler's routes on the given mux,
// once per collection.
func (h *ItemsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	for _, t := range []models.ItemType{models.ItemTypeProject, models.ItemTypePortfolio} {
		base := "/api/" + t.Plural()
		mux.HandleFunc("GET "+base, authMiddleware.RequireAuth(h.withType(t, h.List)))
		mux.HandleFunc("GET "+base+"/{id}", authMiddleware.OptionalAuth(h.withType(t, h.Get)))
		mux.HandleFunc("PUT "+base+"/{id}", authMiddleware.RequireAuth(h.withType(t, h.Update)))
		mux.HandleFunc("DELETE "+base+"/{id}", authMiddleware.RequireAuth(h.withType(t, h.Delete)))
		mux.HandleFunc("POST "+base+"/{id}/visibility", authMiddleware.RequireAuth(h.withType(t, h.ToggleVisibility)))
		mux.HandleFunc("POST "+base+"/{id}/thumbnail", authMiddleware.RequireAuth(h.withType(t, h.UploadThumbnail)))
	}
	mux.HandleFunc("GET /api/stats", authMiddleware.RequireAuth(h.Stats))
}

type itemHandlerFunc func(w http.ResponseWriter, r *http.Request, t models.ItemType)

func (h *ItemsHandler) withType(t models.ItemType, fn itemHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fn(w, r, t)
	}
}

func (h *ItemsHandler) itemID(w http.ResponseWriter, r *http.Request) (models.ID, bool) {
	id, ok := pathID(r, "id")
	if !ok {
		h.respond.Fail(w, http.StatusBadRequest, "invalid_id", "Invalid item ID")
	}
	return id, ok
}

// List handles GET /api/{projects|portfolios}?page&limit
// Lists the caller's own items.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request, t models.ItemType) {
	page, limit, ok := pagination(r)
	if !ok {
		h.respond.Fail(w, http.StatusBadRequest, "invalid_pagination", "page and limit must be positive integers")
		return
	}
	result, err := h.items.ListMine(r.Context(), t, page, limit)
	if err != nil {
		h.respond.Error(w, r, err, "list "+t.Plural())
		return
	}
	if result.Items == nil {
		result.Items = []models.Item{}
	}
	h.respond.JSON(w, http.StatusOK, result)
}

// Get handles GET /api/{projects|portfolios}/{id}
// The id may also be a title slug.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request, t models.ItemType) {
	id, ok := h.itemID(w, r)
	if !ok {
		return
	}
	item, err := h.items.Get(r.Context(), t, id.String())
	if err != nil {
		h.respond.Error(w, r, err, "get "+string(t))
		return
	}
	h.respond.JSON(w, http.StatusOK, item)
}

// Update handles PUT /api/{projects|portfolios}/{id}
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request, t models.ItemType) {
	id, ok := h.itemID(w, r)
	if !ok {
		return
	}
	var update models.ItemUpdate
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&update); err != nil {
		h.logger.Debug("Invalid item update body", zap.Error(err))
		h.respond.Fail(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	item, err := h.items.Update(r.Context(), t, id, &update)
	if err != nil {
		h.respond.Error(w, r, err, "update "+string(t))
		return
	}
	h.respond.JSON(w, http.StatusOK, item)
}

// Delete handles DELETE /api/{projects|portfolios}/{id}
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request, t models.ItemType) {
	id, ok := h.itemID(w, r)
	if !ok {
		return
	}
	if err := h.items.Delete(r.Context(), t, id); err != nil {
		h.respond.Error(w, r, err, "delete "+string(t))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleVisibility handles POST /api/{projects|portfolios}/{id}/visibility
func (h *ItemsHandler) ToggleVisibility(w http.ResponseWriter, r *http.Request, t models.ItemType) {
	id, ok := h.itemID(w, r)
	if !ok {
		return
	}
	item, err := h.items.ToggleVisibility(r.Context(), t, id)
	if err != nil {
		h.respond.Error(w, r, err, "toggle visibility")
		return
	}
	h.respond.JSON(w, http.StatusOK, item)
}

// UploadThumbnail handles POST /api/{projects|portfolios}/{id}/thumbnail
// Expects a multipart form with the image in the "file" field.
func (h *ItemsHandler) UploadThumbnail(w http.ResponseWriter, r *http.Request, t models.ItemType) {
	if h.thumbnails == nil {
		h.respond.Fail(w, http.StatusServiceUnavailable, "storage_unavailable", "Image uploads are not configured")
		return
	}
	id, ok := h.itemID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.respond.Fail(w, http.StatusRequestEntityTooLarge, "file_too_large", "File size exceeds 5MB limit")
			return
		}
		h.respond.Fail(w, http.StatusBadRequest, "invalid_request", "No file provided")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.respond.Fail(w, http.StatusBadRequest, "invalid_request", "Failed to read file")
		return
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	result, err := h.thumbnails.Upload(r.Context(), t, id, &services.ThumbnailUpload{
		FileName:    header.Filename,
		ContentType: contentType,
		Data:        data,
	})
	if err != nil {
		h.respond.Error(w, r, err, "upload thumbnail")
		return
	}
	h.respond.JSON(w, http.StatusCreated, result)
}

// Stats handles GET /api/stats
// Counts the caller's projects and portfolios by visibility.
func (h *ItemsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.items.Stats(r.Context())
	if err != nil {
		h.respond.Error(w, r, err, "dashboard stats")
		return
	}
	h.respond.JSON(w, http.StatusOK, stats)
}
