package auth

import (
	"context"

	"specboard/internal/domain"
	"specboard/internal/domain/models"
	"specboard/internal/domain/services"
)

type identityKey struct{}

// WithIdentity returns a context carrying the acting identity.
func WithIdentity(ctx context.Context, identity *models.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the identity stored by WithIdentity.
func IdentityFromContext(ctx context.Context) (*models.Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(*models.Identity)
	return identity, ok && identity != nil
}

// ContextIdentityProvider resolves the identity the auth middleware stored
// in the request context.
type ContextIdentityProvider struct{}

// NewContextIdentityProvider creates an identity provider for HTTP requests
func NewContextIdentityProvider() services.IdentityProvider {
	return ContextIdentityProvider{}
}

func (ContextIdentityProvider) CurrentIdentity(ctx context.Context) (*models.Identity, error) {
	identity, ok := IdentityFromContext(ctx)
	if !ok || identity.ID == "" {
		return nil, &domain.UnauthorizedError{Message: "authentication required"}
	}
	return identity, nil
}

// StaticIdentityProvider always resolves to the same identity. A nil
// identity behaves like an unauthenticated request.
type StaticIdentityProvider struct {
	Identity *models.Identity
}

func (p StaticIdentityProvider) CurrentIdentity(context.Context) (*models.Identity, error) {
	if p.Identity == nil {
		return nil, &domain.UnauthorizedError{Message: "authentication required"}
	}
	return p.Identity, nil
}
