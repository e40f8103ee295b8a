package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"specboard/internal/domain"
	"specboard/internal/domain/models"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// JWTVerifier turns a bearer token into Supabase claims. AuthMiddleware
// depends on this interface so tests can swap in a fake.
type JWTVerifier interface {
	VerifyToken(tokenString string) (*models.SupabaseClaims, error)
	Close() error
}

// authenticatedRole is the Supabase role of a signed-in (non-anonymous) user.
const authenticatedRole = "authenticated"

// SupabaseJWTVerifier checks tokens against the project's JWKS.
type SupabaseJWTVerifier struct {
	jwks   keyfunc.Keyfunc
	parser *jwt.Parser
	cancel context.CancelFunc
	logger *slog.Logger
}

// NewJWTVerifier starts a JWKS client for jwksURL. Keys are cached and
// refreshed in the background until Close is called. When issuer is
// non-empty the iss claim must match it.
func NewJWTVerifier(jwksURL, issuer string, logger *slog.Logger) (*SupabaseJWTVerifier, error) {
	if jwksURL == "" {
		return nil, errors.New("JWKS URL cannot be empty")
	}

	ctx, cancel := context.WithCancel(context.Background())
	jwks, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create JWKS client: %w", err)
	}

	// Asymmetric algorithms only, so a token can't be signed with the public key as an HMAC secret
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256", "ES256"}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30 * time.Second),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}

	logger.Info("JWT verifier initialized", "jwks_url", jwksURL, "issuer", issuer)

	return &SupabaseJWTVerifier{
		jwks:   jwks,
		parser: jwt.NewParser(opts...),
		cancel: cancel,
		logger: logger,
	}, nil
}

// VerifyToken parses and validates tokenString. Every rejection is reported
// as domain.ErrUnauthorized; the reason is only logged.
func (v *SupabaseJWTVerifier) VerifyToken(tokenString string) (*models.SupabaseClaims, error) {
	claims := &models.SupabaseClaims{}
	if _, err := v.parser.ParseWithClaims(tokenString, claims, v.jwks.Keyfunc); err != nil {
		v.logger.Debug("token rejected", "error", err)
		return nil, domain.ErrUnauthorized
	}

	if err := checkClaims(claims); err != nil {
		v.logger.Warn("token rejected", "reason", err.Error(), "user_id", claims.Subject)
		return nil, domain.ErrUnauthorized
	}

	return claims, nil
}

// Close stops the background JWKS refresh.
func (v *SupabaseJWTVerifier) Close() error {
	v.cancel()
	return nil
}

// checkClaims enforces the Supabase-specific claims the parser doesn't know about.
func checkClaims(claims *models.SupabaseClaims) error {
	switch {
	case claims.Subject == "":
		return errors.New("missing sub claim")
	case claims.IsAnonymous:
		return errors.New("anonymous session")
	case claims.Role != authenticatedRole:
		return fmt.Errorf("role %q is not %q", claims.Role, authenticatedRole)
	}
	return nil
}
