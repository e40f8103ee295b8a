package auth

import (
	"context"
	"fmt"

	"specboard/internal/config"
	"specboard/internal/domain"
	"specboard/internal/domain/models"
	"specboard/internal/domain/models/specsystem"
	"specboard/internal/domain/services"
)

// OwnerOnlyPolicy lets only the feature spec's author decide on suggestions
// and edit the spec directly.
//
// Other models (reviewer roles, sharing) can be added as further
// DecisionPolicy implementations without touching the services.
type OwnerOnlyPolicy struct{}

// CanDecide checks that actor owns spec
func (OwnerOnlyPolicy) CanDecide(_ context.Context, actor *models.Identity, spec *specsystem.FeatureSpec, change *specsystem.FieldChange) error {
	if !spec.IsOwner(actor) {
		return &domain.ForbiddenError{
			Message: fmt.Sprintf("only the owner of feature spec %s can decide on change %s", spec.ID, change.ID),
		}
	}
	return nil
}

// CanEdit checks that actor owns spec
func (OwnerOnlyPolicy) CanEdit(_ context.Context, actor *models.Identity, spec *specsystem.FeatureSpec) error {
	if !spec.IsOwner(actor) {
		return &domain.ForbiddenError{
			Message: fmt.Sprintf("only the owner can edit feature spec %s", spec.ID),
		}
	}
	return nil
}

// PermitAllPolicy lets any authenticated actor decide on any suggestion.
type PermitAllPolicy struct{}

// CanDecide always allows the decision
func (PermitAllPolicy) CanDecide(context.Context, *models.Identity, *specsystem.FeatureSpec, *specsystem.FieldChange) error {
	return nil
}

// NewDecisionPolicy returns the policy named by config.DecisionPolicy
func NewDecisionPolicy(name string) (services.DecisionPolicy, error) {
	switch name {
	case config.PolicyOwner, "":
		return OwnerOnlyPolicy{}, nil
	case config.PolicyPermit:
		return PermitAllPolicy{}, nil
	default:
		return nil, fmt.Errorf("unknown decision policy %q", name)
	}
}
