// Package realtime fans field change events out to subscribers of a feature spec.
package realtime

import (
	"context"
	"time"

	"specboard/internal/domain/models/specsystem"
)

// EventType names what happened to a field change.
type EventType string

const (
	EventProposed EventType = "change.proposed"
	EventAccepted EventType = "change.accepted"
	EventRejected EventType = "change.rejected"
	EventApplied  EventType = "change.applied"
)

// ChangeEvent is the message published for every field change transition.
type ChangeEvent struct {
	Type          EventType               `json:"type"`
	FeatureSpecID string                  `json:"documentId"`
	ChangeID      string                  `json:"changeId"`
	FieldPath     string                  `json:"fieldPath"`
	Status        specsystem.ChangeStatus `json:"status"`
	Actor         string                  `json:"actor,omitempty"`
	Version       int                     `json:"version,omitempty"` // feature spec version after change.applied
	At            time.Time               `json:"at"`
}

// NewChangeEvent describes change as seen right after a transition by actor.
func NewChangeEvent(eventType EventType, change *specsystem.FieldChange, actor string) ChangeEvent {
	return ChangeEvent{
		Type:          eventType,
		FeatureSpecID: change.FeatureSpecID,
		ChangeID:      change.ID,
		FieldPath:     change.FieldPath,
		Status:        change.Status,
		Actor:         actor,
		At:            change.UpdatedAt,
	}
}

// DecisionEvent returns the event type for a decision status.
func DecisionEvent(status specsystem.ChangeStatus) EventType {
	if status == specsystem.ChangeStatusAccepted {
		return EventAccepted
	}
	return EventRejected
}

// Notifier publishes change events. Publish failures never affect the
// operation that produced the event; callers log them.
type Notifier interface {
	Publish(ctx context.Context, event ChangeEvent) error
	Close() error
}

type noopNotifier struct{}

// NewNoopNotifier returns a Notifier that drops every event.
func NewNoopNotifier() Notifier { return noopNotifier{} }

func (noopNotifier) Publish(context.Context, ChangeEvent) error { return nil }
func (noopNotifier) Close() error                               { return nil }
