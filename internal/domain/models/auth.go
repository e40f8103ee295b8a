package models

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// SupabaseClaims represents the JWT claims structure from Supabase Auth.
// See: https://supabase.com/docs/guides/auth/jwts
type SupabaseClaims struct {
	jwt.RegisteredClaims                          // Standard JWT claims (sub, iss, aud, exp, iat, etc.)
	Email                string                   `json:"email"`
	Phone                string                   `json:"phone"`
	AppMetadata          map[string]interface{}   `json:"app_metadata"`
	UserMetadata         map[string]interface{}   `json:"user_metadata"`
	Role                 string                   `json:"role"` // "authenticated" or "anon"
	AAL                  string                   `json:"aal"`  // Authentication Assurance Level: "aal1" or "aal2"
	AMR                  []map[string]interface{} `json:"amr"`  // Authentication Method References
	SessionID            string                   `json:"session_id"`
	IsAnonymous          bool                     `json:"is_anonymous"`
}

// GetUserID returns the user ID from the JWT subject claim.
func (c *SupabaseClaims) GetUserID() string {
	return c.Subject
}

// Identity returns the acting identity carried by the token.
func (c *SupabaseClaims) Identity() *Identity {
	return &Identity{ID: c.Subject, Email: c.Email}
}

// Identity is the current actor as seen by the change-suggestion core.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// SameUser reports whether two identities denote the same user. IDs are
// authoritative; emails are compared case-insensitively when an ID is missing.
func (i *Identity) SameUser(other *Identity) bool {
	if i == nil || other == nil {
		return false
	}
	if i.ID != "" && other.ID != "" {
		return i.ID == other.ID
	}
	return i.Email != "" && strings.EqualFold(i.Email, other.Email)
}
