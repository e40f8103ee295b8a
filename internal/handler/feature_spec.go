package handler

import (
	"log/slog"
	"net/http"

	specSvc "specboard/internal/domain/services/specsystem"
	"specboard/internal/httputil"
)

// FeatureSpecHandler handles feature spec HTTP requests
type FeatureSpecHandler struct {
	specService specSvc.FeatureSpecService
	logger      *slog.Logger
}

// NewFeatureSpecHandler creates a new feature spec handler
func NewFeatureSpecHandler(specService specSvc.FeatureSpecService, logger *slog.Logger) *FeatureSpecHandler {
	return &FeatureSpecHandler{
		specService: specService,
		logger:      logger,
	}
}

// CreateFeatureSpec creates a Draft spec owned by the caller
// POST /api/specs
func (h *FeatureSpecHandler) CreateFeatureSpec(w http.ResponseWriter, r *http.Request) {
	var req specSvc.CreateFeatureSpecRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		handleError(w, h.logger, err)
		return
	}

	spec, err := h.specService.CreateFeatureSpec(r.Context(), &req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, spec)
}

// ListFeatureSpecs lists the caller's specs
// GET /api/specs
func (h *FeatureSpecHandler) ListFeatureSpecs(w http.ResponseWriter, r *http.Request) {
	specs, err := h.specService.ListMyFeatureSpecs(r.Context())
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, specs)
}

// GetFeatureSpec retrieves a spec by ID
// GET /api/specs/{id}
func (h *FeatureSpecHandler) GetFeatureSpec(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathID(r, "id")
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	spec, err := h.specService.GetFeatureSpec(r.Context(), id)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, spec)
}

// UpdateFeatureSpec changes spec metadata
// PATCH /api/specs/{id}
func (h *FeatureSpecHandler) UpdateFeatureSpec(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathID(r, "id")
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	var req specSvc.UpdateFeatureSpecRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		handleError(w, h.logger, err)
		return
	}

	spec, err := h.specService.UpdateFeatureSpec(r.Context(), id, &req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, spec)
}

// EditField writes a value directly into the spec without a suggestion
// PATCH /api/specs/{id}/fields
func (h *FeatureSpecHandler) EditField(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathID(r, "id")
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	var req specSvc.EditFieldRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		handleError(w, h.logger, err)
		return
	}

	spec, err := h.specService.EditField(r.Context(), id, &req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, spec)
}
