package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"specboard/internal/domain"
	specModels "specboard/internal/domain/models/specsystem"
	specSvc "specboard/internal/domain/services/specsystem"
	"specboard/internal/httputil"
)

// FieldChangeHandler handles change-suggestion HTTP requests
type FieldChangeHandler struct {
	suggestions specSvc.SuggestionService
	logger      *slog.Logger
}

// NewFieldChangeHandler creates a new field change handler
func NewFieldChangeHandler(suggestions specSvc.SuggestionService, logger *slog.Logger) *FieldChangeHandler {
	return &FieldChangeHandler{
		suggestions: suggestions,
		logger:      logger,
	}
}

// ProposeChangeRequest is the body of a field edit suggestion.
// Omitting oldValue uses the spec's current value as the baseline;
// an explicit null means the field was empty.
type ProposeChangeRequest struct {
	FieldPath         string                `json:"fieldPath"`
	OldValue          httputil.OptionalJSON `json:"oldValue"`
	NewValue          httputil.OptionalJSON `json:"newValue"`
	ChangeDescription string                `json:"changeDescription"`
}

// DecisionRequest is the body of an accept/reject call
type DecisionRequest struct {
	Decision specModels.ChangeStatus `json:"decision"`
}

// ProposeChange records a pending change
// POST /api/specs/{id}/changes
// Returns 201 with the change, or 204 when the new value equals the old one
func (h *FieldChangeHandler) ProposeChange(w http.ResponseWriter, r *http.Request) {
	specID, err := httputil.PathID(r, "id")
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	var req ProposeChangeRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		handleError(w, h.logger, err)
		return
	}
	if !req.NewValue.Present {
		httputil.RespondError(w, http.StatusBadRequest, "newValue is required")
		return
	}

	change, err := h.suggestions.ProposeFieldEdit(r.Context(), &specSvc.ProposeFieldEditRequest{
		FeatureSpecID:     specID,
		FieldPath:         req.FieldPath,
		OldValue:          req.OldValue.Value,
		OldValueSet:       req.OldValue.Present,
		NewValue:          req.NewValue.Value,
		ChangeDescription: req.ChangeDescription,
	})
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	if change == nil {
		httputil.RespondNoContent(w)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, change)
}

// ListChanges lists a spec's changes, newest first
// GET /api/specs/{id}/changes?field_path=&prefix=&status=
func (h *FieldChangeHandler) ListChanges(w http.ResponseWriter, r *http.Request) {
	specID, err := httputil.PathID(r, "id")
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	query := r.URL.Query()
	changes, err := h.suggestions.ListChanges(r.Context(), specID, specSvc.ChangeQuery{
		FieldPath: query.Get("field_path"),
		Prefix:    query.Get("prefix"),
		Status:    specModels.ChangeStatus(query.Get("status")),
	})
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	if changes == nil {
		changes = []*specModels.FieldChange{}
	}

	httputil.RespondJSON(w, http.StatusOK, changes)
}

// ListConflicts lists field paths with competing pending changes
// GET /api/specs/{id}/changes/conflicts
func (h *FieldChangeHandler) ListConflicts(w http.ResponseWriter, r *http.Request) {
	specID, err := httputil.PathID(r, "id")
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	groups, err := h.suggestions.Conflicts(r.Context(), specID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	if groups == nil {
		groups = []specModels.ConflictGroup{}
	}

	httputil.RespondJSON(w, http.StatusOK, groups)
}

// LatestAccepted returns the newest accepted change for a field path
// GET /api/specs/{id}/changes/latest-accepted?field_path=
// Returns 204 when the path has no accepted change
func (h *FieldChangeHandler) LatestAccepted(w http.ResponseWriter, r *http.Request) {
	specID, err := httputil.PathID(r, "id")
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	fieldPath := r.URL.Query().Get("field_path")
	if fieldPath == "" {
		httputil.RespondError(w, http.StatusBadRequest, "field_path is required")
		return
	}

	change, err := h.suggestions.LatestAccepted(r.Context(), specID, fieldPath)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	if change == nil {
		httputil.RespondNoContent(w)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, change)
}

// GetChange retrieves a change by ID
// GET /api/field-changes/{id}
func (h *FieldChangeHandler) GetChange(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathID(r, "id")
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	change, err := h.suggestions.GetChange(r.Context(), id)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, change)
}

// Decide accepts or rejects a change
// POST /api/field-changes/{id}/decision
// Returns 202 with applied=false when the change was accepted but could not
// be written into the spec; the caller can retry via /apply.
func (h *FieldChangeHandler) Decide(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathID(r, "id")
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	var req DecisionRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		handleError(w, h.logger, err)
		return
	}

	result, err := h.suggestions.Decide(r.Context(), id, req.Decision)
	h.respondDecision(w, result, err)
}

// Reapply writes an accepted change into the spec again
// POST /api/field-changes/{id}/apply
func (h *FieldChangeHandler) Reapply(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathID(r, "id")
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	result, err := h.suggestions.Reapply(r.Context(), id)
	h.respondDecision(w, result, err)
}

func (h *FieldChangeHandler) respondDecision(w http.ResponseWriter, result *specSvc.DecisionResult, err error) {
	if err != nil {
		if errors.Is(err, domain.ErrReconciliation) && result != nil {
			httputil.RespondJSON(w, http.StatusAccepted, result)
			return
		}
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, result)
}
