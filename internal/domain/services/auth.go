package services

import (
	"context"

	"specboard/internal/domain/models"
	"specboard/internal/domain/models/specsystem"
)

// IdentityProvider resolves the acting user for a request.
// Returns domain.ErrUnauthorized when there is no current identity.
//
// Components receive it through their constructors, so tests can pass a
// fixed identity instead of relying on shared session state.
type IdentityProvider interface {
	CurrentIdentity(ctx context.Context) (*models.Identity, error)
}

// DecisionPolicy decides whether actor may accept or reject change on spec.
// Returns domain.ErrForbidden (wrapped) when the decision is not allowed.
type DecisionPolicy interface {
	CanDecide(ctx context.Context, actor *models.Identity, spec *specsystem.FeatureSpec, change *specsystem.FieldChange) error
}

// EditPolicy decides whether actor may edit spec directly, bypassing suggestions.
type EditPolicy interface {
	CanEdit(ctx context.Context, actor *models.Identity, spec *specsystem.FeatureSpec) error
}
