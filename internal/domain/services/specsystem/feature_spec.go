package specsystem

import (
	"context"
	"encoding/json"

	"specboard/internal/domain/models"
	"specboard/internal/domain/models/specsystem"
)

// FeatureSpecService handles feature spec business logic
type FeatureSpecService interface {
	// CreateFeatureSpec creates a Draft spec owned by the current identity
	CreateFeatureSpec(ctx context.Context, req *CreateFeatureSpecRequest) (*specsystem.FeatureSpecView, error)

	// GetFeatureSpec retrieves a spec, flagging whether the caller owns it
	GetFeatureSpec(ctx context.Context, id string) (*specsystem.FeatureSpecView, error)

	// ListMyFeatureSpecs lists specs owned by the current identity
	ListMyFeatureSpecs(ctx context.Context) ([]specsystem.FeatureSpec, error)

	// UpdateFeatureSpec changes spec metadata (status); owner only
	UpdateFeatureSpec(ctx context.Context, id string, req *UpdateFeatureSpecRequest) (*specsystem.FeatureSpecView, error)

	// EditField writes a value directly at a field path; owner only, no suggestion is recorded
	EditField(ctx context.Context, id string, req *EditFieldRequest) (*specsystem.FeatureSpecView, error)
}

// CreateFeatureSpecRequest represents a feature spec creation request
type CreateFeatureSpecRequest struct {
	FeatureName string         `json:"featureName"`
	Content     models.JSONMap `json:"content,omitempty"` // Optional initial fields; featureName wins over content.featureName
}

// UpdateFeatureSpecRequest represents a feature spec metadata update
type UpdateFeatureSpecRequest struct {
	Status *specsystem.SpecStatus `json:"status,omitempty"`
}

// EditFieldRequest writes Value at FieldPath
type EditFieldRequest struct {
	FieldPath string          `json:"fieldPath"`
	Value     json.RawMessage `json:"value"`
}
