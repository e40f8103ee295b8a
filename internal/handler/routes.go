package handler

import (
	"net/http"
)

// Handlers groups everything RegisterRoutes mounts.
type Handlers struct {
	Health       *HealthHandler
	FeatureSpecs *FeatureSpecHandler
	FieldChanges *FieldChangeHandler
	Metrics      http.Handler
}

// PublicPaths are served without authentication.
var PublicPaths = []string{"/health", "/metrics"}

// RegisterRoutes mounts the API on mux (Go 1.22+ method/wildcard patterns).
func RegisterRoutes(mux *http.ServeMux, h Handlers) {
	mux.HandleFunc("GET /health", h.Health.HealthCheck)
	if h.Metrics != nil {
		mux.Handle("GET /metrics", h.Metrics)
	}

	// Feature spec routes
	mux.HandleFunc("POST /api/specs", h.FeatureSpecs.CreateFeatureSpec)
	mux.HandleFunc("GET /api/specs", h.FeatureSpecs.ListFeatureSpecs)
	mux.HandleFunc("GET /api/specs/{id}", h.FeatureSpecs.GetFeatureSpec)
	mux.HandleFunc("PATCH /api/specs/{id}", h.FeatureSpecs.UpdateFeatureSpec)
	mux.HandleFunc("PATCH /api/specs/{id}/fields", h.FeatureSpecs.EditField)

	// Change suggestion routes
	mux.HandleFunc("POST /api/specs/{id}/changes", h.FieldChanges.ProposeChange)
	mux.HandleFunc("GET /api/specs/{id}/changes", h.FieldChanges.ListChanges)
	mux.HandleFunc("GET /api/specs/{id}/changes/conflicts", h.FieldChanges.ListConflicts)
	mux.HandleFunc("GET /api/specs/{id}/changes/latest-accepted", h.FieldChanges.LatestAccepted)
	mux.HandleFunc("GET /api/field-changes/{id}", h.FieldChanges.GetChange)
	mux.HandleFunc("POST /api/field-changes/{id}/decision", h.FieldChanges.Decide)
	mux.HandleFunc("POST /api/field-changes/{id}/apply", h.FieldChanges.Reapply)
}
