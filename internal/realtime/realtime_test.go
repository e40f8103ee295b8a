package realtime

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"specboard/internal/config"
	"specboard/internal/domain/models/specsystem"
)

func TestNewChangeEvent(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	change := &specsystem.FieldChange{
		ID:            "chg-1",
		FeatureSpecID: "spec-1",
		FieldPath:     "featureName",
		Status:        specsystem.ChangeStatusAccepted,
		UpdatedAt:     at,
	}

	event := NewChangeEvent(DecisionEvent(change.Status), change, "user-1")

	if event.Type != EventAccepted {
		t.Errorf("Type = %q, want %q", event.Type, EventAccepted)
	}
	if event.FeatureSpecID != "spec-1" || event.ChangeID != "chg-1" || event.Actor != "user-1" {
		t.Errorf("event = %+v", event)
	}
	if !event.At.Equal(at) {
		t.Errorf("At = %v, want %v", event.At, at)
	}

	raw, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var wire map[string]interface{}
	if err := json.Unmarshal(raw, &wire); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if wire["documentId"] != "spec-1" || wire["type"] != "change.accepted" {
		t.Errorf("wire = %v", wire)
	}
}

func TestDecisionEvent(t *testing.T) {
	if DecisionEvent(specsystem.ChangeStatusRejected) != EventRejected {
		t.Error("rejected should map to change.rejected")
	}
}

func TestSubject(t *testing.T) {
	if got := Subject("specboard", "abc"); got != "specboard.specs.abc.changes" {
		t.Errorf("Subject() = %q", got)
	}
}

func TestNewNotifier_None(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	n, err := NewNotifier(&config.Config{RealtimeDriver: config.RealtimeNone}, logger)
	if err != nil {
		t.Fatalf("NewNotifier error = %v", err)
	}
	if err := n.Publish(context.Background(), ChangeEvent{Type: EventProposed}); err != nil {
		t.Errorf("noop Publish error = %v", err)
	}
	if err := n.Close(); err != nil {
		t.Errorf("noop Close error = %v", err)
	}

	if _, err := NewNotifier(&config.Config{RealtimeDriver: "kafka"}, logger); err == nil {
		t.Error("unknown driver should fail")
	}
}
