package specsystem

import (
	"time"
)

// ChangeStatus is the lifecycle state of a field change.
// pending is the only non-terminal state.
type ChangeStatus string

const (
	ChangeStatusPending  ChangeStatus = "pending"
	ChangeStatusAccepted ChangeStatus = "accepted"
	ChangeStatusRejected ChangeStatus = "rejected"
)

// Valid reports whether s is a known status.
func (s ChangeStatus) Valid() bool {
	switch s {
	case ChangeStatusPending, ChangeStatusAccepted, ChangeStatusRejected:
		return true
	}
	return false
}

// IsDecision reports whether s is a status a reviewer may move a change to.
func (s ChangeStatus) IsDecision() bool {
	return s == ChangeStatusAccepted || s == ChangeStatusRejected
}

// FieldType classifies a change by the runtime shape of its new value.
type FieldType string

const (
	FieldTypeString FieldType = "string"
	FieldTypeArray  FieldType = "array"
	FieldTypeObject FieldType = "object"
)

// FieldChange is one proposed mutation to a single field path of a feature spec.
// Only Status and the transition fields (UpdatedAt, Accepted*, Rejected*, AppliedAt)
// change after creation.
type FieldChange struct {
	ID                string       `json:"id"`
	FeatureSpecID     string       `json:"documentId"`
	FieldPath         string       `json:"fieldPath"`
	FieldType         FieldType    `json:"fieldType"`
	OldValue          interface{}  `json:"oldValue"`
	NewValue          interface{}  `json:"newValue"`
	ChangeDescription string       `json:"changeDescription,omitempty"`
	AuthorID          string       `json:"authorId"`
	AuthorEmail       string       `json:"authorEmail"`
	Status            ChangeStatus `json:"status"`
	CreatedAt         time.Time    `json:"createdAt"`
	UpdatedAt         time.Time    `json:"updatedAt"`
	AcceptedAt        *time.Time   `json:"acceptedAt,omitempty"`
	AcceptedBy        *string      `json:"acceptedBy,omitempty"`
	RejectedAt        *time.Time   `json:"rejectedAt,omitempty"`
	RejectedBy        *string      `json:"rejectedBy,omitempty"`
	// AppliedAt is set once an accepted change has been written into the feature spec.
	// An accepted change with a nil AppliedAt is accepted-but-not-yet-applied.
	AppliedAt *time.Time `json:"appliedAt,omitempty"`
}

// IsTerminal reports whether the change has been decided.
func (c *FieldChange) IsTerminal() bool {
	return c.Status != ChangeStatusPending
}

// AwaitingApply reports whether the change is accepted but not yet reconciled.
func (c *FieldChange) AwaitingApply() bool {
	return c.Status == ChangeStatusAccepted && c.AppliedAt == nil
}

// FieldChangeFilter selects changes of one feature spec. Empty fields don't filter.
type FieldChangeFilter struct {
	FeatureSpecID string
	FieldPath     string       // exact match
	PathPrefix    string       // plain string prefix
	Status        ChangeStatus // pending | accepted | rejected
}

// StatusTransition is the patch written when a change is decided.
type StatusTransition struct {
	ChangeID string
	Status   ChangeStatus
	Actor    string // acting user id, stored in accepted_by / rejected_by
	At       time.Time
}

// ConflictGroup lists pending changes that target the same field path.
type ConflictGroup struct {
	FieldPath string         `json:"fieldPath"`
	Changes   []*FieldChange `json:"changes"`
}
