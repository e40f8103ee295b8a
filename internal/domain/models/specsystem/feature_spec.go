package specsystem

import (
	"time"

	"specboard/internal/domain/models"
)

// SpecStatus is the editorial state of a feature spec.
type SpecStatus string

const (
	SpecStatusDraft    SpecStatus = "Draft"
	SpecStatusInReview SpecStatus = "In Review"
	SpecStatusApproved SpecStatus = "Approved"
	SpecStatusArchived SpecStatus = "Archived"
)

// Valid reports whether s is a known status.
func (s SpecStatus) Valid() bool {
	switch s {
	case SpecStatusDraft, SpecStatusInReview, SpecStatusApproved, SpecStatusArchived:
		return true
	}
	return false
}

// FeatureSpec is the shared document collaborators suggest changes to.
// Content holds the field tree (featureName, overview, userGoals, useCases, ...)
// that field paths address.
type FeatureSpec struct {
	ID          string         `json:"id" db:"id"`
	AuthorID    string         `json:"authorId" db:"author_id"`
	AuthorEmail string         `json:"authorEmail" db:"author_email"`
	Status      SpecStatus     `json:"status" db:"status"`
	Version     int            `json:"version" db:"version"` // Incremented on every content write
	Content     models.JSONMap `json:"content" db:"content"`
	CreatedAt   time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time      `json:"updatedAt" db:"updated_at"`
}

// Author returns the owning identity.
func (s *FeatureSpec) Author() *models.Identity {
	return &models.Identity{ID: s.AuthorID, Email: s.AuthorEmail}
}

// IsOwner reports whether identity owns the spec.
func (s *FeatureSpec) IsOwner(identity *models.Identity) bool {
	if s == nil {
		return false
	}
	return s.Author().SameUser(identity)
}

// FeatureSpecView is a feature spec as returned to a particular viewer.
type FeatureSpecView struct {
	*FeatureSpec
	IsOwner bool `json:"isOwner"`
}
