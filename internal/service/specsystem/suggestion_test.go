package specsystem

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"specboard/internal/domain"
	specModels "specboard/internal/domain/models/specsystem"
	specSvc "specboard/internal/domain/services/specsystem"
	"specboard/internal/realtime"
)

func TestProposeFieldEdit_RecordsPendingChange(t *testing.T) {
	h := newHarness("owner")
	h.identity.current = reviewer

	change := h.propose("featureName", "Old", "New")
	if change == nil {
		t.Fatal("expected a change")
	}

	stored, err := h.store.Get(context.Background(), change.ID)
	if err != nil {
		t.Fatalf("Get error = %v", err)
	}
	if stored.FieldPath != "featureName" || stored.FieldType != specModels.FieldTypeString {
		t.Errorf("path/type = %s/%s", stored.FieldPath, stored.FieldType)
	}
	if stored.OldValue != "Old" || stored.NewValue != "New" {
		t.Errorf("values = %v -> %v", stored.OldValue, stored.NewValue)
	}
	if stored.Status != specModels.ChangeStatusPending {
		t.Errorf("Status = %q, want pending", stored.Status)
	}
	if stored.ChangeDescription != `Changed featureName from "Old" to "New"` {
		t.Errorf("ChangeDescription = %q", stored.ChangeDescription)
	}
	if stored.AuthorEmail != reviewer.Email {
		t.Errorf("AuthorEmail = %q, want %q", stored.AuthorEmail, reviewer.Email)
	}
	if got := h.notifier.types(); !reflect.DeepEqual(got, []realtime.EventType{realtime.EventProposed}) {
		t.Errorf("events = %v", got)
	}
}

func TestProposeFieldEdit_NoOpOnEqualValues(t *testing.T) {
	values := []interface{}{
		"Old",
		nil,
		[]interface{}{"a", "b"},
		map[string]interface{}{"description": "x", "priority": "high"},
	}

	for _, v := range values {
		h := newHarness("owner")
		change, err := h.suggestions.ProposeFieldEdit(context.Background(), &proposeReq{
			FeatureSpecID: h.doc.ID,
			FieldPath:     "userGoals.0",
			OldValue:      v,
			OldValueSet:   true,
			NewValue:      v,
		})
		if err != nil {
			t.Fatalf("ProposeFieldEdit(%v) error = %v", v, err)
		}
		if change != nil {
			t.Errorf("ProposeFieldEdit(%v) = %+v, want nil", v, change)
		}
		if h.changes.count() != 0 {
			t.Errorf("records = %d, want 0", h.changes.count())
		}
	}
}

func TestProposeFieldEdit_Classification(t *testing.T) {
	tests := []struct {
		path  string
		value interface{}
		want  specModels.FieldType
	}{
		{"summary", "x", specModels.FieldTypeString},
		{"nonGoals", []interface{}{"a"}, specModels.FieldTypeArray},
		{"overview", map[string]interface{}{"a": 1}, specModels.FieldTypeObject},
	}

	for _, tt := range tests {
		h := newHarness("owner")
		change := h.propose(tt.path, nil, tt.value)
		if change.FieldType != tt.want {
			t.Errorf("FieldType for %#v = %q, want %q", tt.value, change.FieldType, tt.want)
		}
	}
}

func TestProposeFieldEdit_BaselineFromDocument(t *testing.T) {
	h := newHarness("owner")

	change, err := h.suggestions.ProposeFieldEdit(context.Background(), &proposeReq{
		FeatureSpecID: h.doc.ID,
		FieldPath:     "featureName",
		NewValue:      "Renamed",
	})
	if err != nil {
		t.Fatalf("ProposeFieldEdit error = %v", err)
	}
	if change.OldValue != "Old" {
		t.Errorf("OldValue = %v, want current document value", change.OldValue)
	}

	change, err = h.suggestions.ProposeFieldEdit(context.Background(), &proposeReq{
		FeatureSpecID: h.doc.ID,
		FieldPath:     "featureName",
		NewValue:      "Old",
	})
	if err != nil || change != nil {
		t.Errorf("proposing the current value = %v, %v; want nil, nil", change, err)
	}
}

func TestProposeFieldEdit_Errors(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(h *harness)
		req    func(h *harness) *proposeReq
		target error
	}{
		{
			name:  "unknown field path",
			setup: func(*harness) {},
			req: func(h *harness) *proposeReq {
				return &proposeReq{FeatureSpecID: h.doc.ID, FieldPath: "madeUpField", NewValue: "x", OldValueSet: true}
			},
			target: domain.ErrValidation,
		},
		{
			name:  "malformed path",
			setup: func(*harness) {},
			req: func(h *harness) *proposeReq {
				return &proposeReq{FeatureSpecID: h.doc.ID, FieldPath: "userGoals..description", NewValue: "x"}
			},
			target: domain.ErrValidation,
		},
		{
			name: "path blocked by text",
			setup: func(h *harness) {
				h.doc.Content["overview"] = "Written as prose"
				h.specs.put(h.doc)
			},
			req: func(h *harness) *proposeReq {
				return &proposeReq{FeatureSpecID: h.doc.ID, FieldPath: "overview.problemStatement", NewValue: "x"}
			},
			target: domain.ErrValidation,
		},
		{
			name:  "missing document",
			setup: func(*harness) {},
			req: func(*harness) *proposeReq {
				return &proposeReq{FeatureSpecID: "nope", FieldPath: "featureName", NewValue: "x"}
			},
			target: domain.ErrNotFound,
		},
		{
			name:  "unauthenticated",
			setup: func(h *harness) { h.identity.current = nil },
			req: func(h *harness) *proposeReq {
				return &proposeReq{FeatureSpecID: h.doc.ID, FieldPath: "featureName", NewValue: "x"}
			},
			target: domain.ErrUnauthorized,
		},
		{
			name:  "storage failure propagates",
			setup: func(h *harness) { h.changes.createErr = domain.StorageError("insert", errors.New("connection reset")) },
			req: func(h *harness) *proposeReq {
				return &proposeReq{FeatureSpecID: h.doc.ID, FieldPath: "featureName", NewValue: "x"}
			},
			target: domain.ErrStorageUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness("owner")
			tt.setup(h)
			_, err := h.suggestions.ProposeFieldEdit(context.Background(), tt.req(h))
			if !errors.Is(err, tt.target) {
				t.Errorf("error = %v, want %v", err, tt.target)
			}
			if h.changes.count() != 0 {
				t.Errorf("records = %d, want 0", h.changes.count())
			}
		})
	}
}

func TestDecide_AcceptAppliesToDocument(t *testing.T) {
	h := newHarness("owner")
	ctx := context.Background()
	change := h.propose("featureName", "Old", "New")

	result, err := h.suggestions.Decide(ctx, change.ID, specModels.ChangeStatusAccepted)
	if err != nil {
		t.Fatalf("Decide error = %v", err)
	}

	if !result.Applied || result.FeatureSpec == nil {
		t.Fatalf("result = %+v, want applied", result)
	}
	if result.Change.Status != specModels.ChangeStatusAccepted {
		t.Errorf("Status = %q", result.Change.Status)
	}
	if result.Change.AcceptedBy == nil || *result.Change.AcceptedBy != owner.ID {
		t.Errorf("AcceptedBy = %v, want %s", result.Change.AcceptedBy, owner.ID)
	}
	if result.Change.AppliedAt == nil {
		t.Error("AppliedAt should be set")
	}

	doc := h.document()
	if doc.Content["featureName"] != "New" {
		t.Errorf("featureName = %v, want New", doc.Content["featureName"])
	}
	if doc.Version != 2 {
		t.Errorf("Version = %d, want 2", doc.Version)
	}

	stored, _ := h.store.Get(ctx, change.ID)
	if stored.AppliedAt == nil {
		t.Error("stored change should be marked applied")
	}

	want := []realtime.EventType{realtime.EventProposed, realtime.EventAccepted, realtime.EventApplied}
	if got := h.notifier.types(); !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestDecide_RejectLeavesDocumentUnchanged(t *testing.T) {
	h := newHarness("owner")
	change := h.propose("featureName", "Old", "New")

	result, err := h.suggestions.Decide(context.Background(), change.ID, specModels.ChangeStatusRejected)
	if err != nil {
		t.Fatalf("Decide error = %v", err)
	}
	if result.Change.Status != specModels.ChangeStatusRejected || result.Applied {
		t.Errorf("result = %+v", result)
	}
	if result.Change.RejectedBy == nil || *result.Change.RejectedBy != owner.ID {
		t.Errorf("RejectedBy = %v", result.Change.RejectedBy)
	}
	if doc := h.document(); doc.Content["featureName"] != "Old" || doc.Version != 1 {
		t.Errorf("document changed: %v v%d", doc.Content["featureName"], doc.Version)
	}
}

func TestDecide_MultipleSuggestionsSameField(t *testing.T) {
	h := newHarness("owner")
	h.specs.put(&specModels.FeatureSpec{
		ID: h.doc.ID, AuthorID: owner.ID, AuthorEmail: owner.Email, Version: 1,
		Content: map[string]interface{}{"featureName": "A"},
	})
	h.identity.current = reviewer
	first := h.propose("featureName", "A", "B")
	second := h.propose("featureName", "A", "C")

	pending, _ := h.store.ListPending(context.Background(), h.doc.ID, "featureName")
	if len(pending) != 2 {
		t.Fatalf("pending = %d, want 2", len(pending))
	}

	conflicts, err := h.suggestions.Conflicts(context.Background(), h.doc.ID)
	if err != nil {
		t.Fatalf("Conflicts error = %v", err)
	}
	if len(conflicts) != 1 || conflicts[0].FieldPath != "featureName" || len(conflicts[0].Changes) != 2 {
		t.Errorf("conflicts = %+v", conflicts)
	}

	h.identity.current = owner
	if _, err := h.suggestions.Decide(context.Background(), second.ID, specModels.ChangeStatusAccepted); err != nil {
		t.Fatalf("Decide error = %v", err)
	}
	if got := h.document().Content["featureName"]; got != "C" {
		t.Errorf("featureName = %v, want C", got)
	}

	stillPending, _ := h.store.Get(context.Background(), first.ID)
	if stillPending.Status != specModels.ChangeStatusPending {
		t.Errorf("first change status = %q, want pending", stillPending.Status)
	}
}

func TestDecide_NestedPath(t *testing.T) {
	h := newHarness("owner")
	change := h.propose("userGoals.0.description", "Original goal", "Updated goal")

	if _, err := h.suggestions.Decide(context.Background(), change.ID, specModels.ChangeStatusAccepted); err != nil {
		t.Fatalf("Decide error = %v", err)
	}

	goals := h.document().Content["userGoals"].([]interface{})
	goal := goals[0].(map[string]interface{})
	if goal["description"] != "Updated goal" {
		t.Errorf("userGoals[0].description = %v", goal["description"])
	}
	if goal["priority"] != "high" {
		t.Errorf("sibling field lost: %v", goal)
	}
}

func TestDecide_EmptyPlaceholderBecomesObject(t *testing.T) {
	h := newHarness("owner")
	ctx := context.Background()
	h.doc.Content["overview"] = ""
	h.specs.put(h.doc)

	change := h.propose("overview.problemStatement", nil, "Users lose context")
	result, err := h.suggestions.Decide(ctx, change.ID, specModels.ChangeStatusAccepted)
	if err != nil {
		t.Fatalf("Decide error = %v", err)
	}
	if !result.Applied {
		t.Fatalf("result = %+v, want applied", result)
	}

	overview, ok := h.document().Content["overview"].(map[string]interface{})
	if !ok || overview["problemStatement"] != "Users lose context" {
		t.Errorf("overview = %#v", h.document().Content["overview"])
	}
	if stored, _ := h.store.Get(ctx, change.ID); stored.AwaitingApply() {
		t.Error("change should be marked applied")
	}
}

func TestDecide_StatusIsMonotonic(t *testing.T) {
	h := newHarness("owner")
	ctx := context.Background()
	change := h.propose("summary", nil, "Summary")

	if _, err := h.suggestions.Decide(ctx, change.ID, specModels.ChangeStatusRejected); err != nil {
		t.Fatalf("Decide error = %v", err)
	}

	if _, err := h.suggestions.Decide(ctx, change.ID, specModels.ChangeStatusAccepted); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("re-deciding error = %v, want ErrConflict", err)
	}
	if _, err := h.suggestions.Decide(ctx, change.ID, specModels.ChangeStatusPending); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("deciding pending error = %v, want ErrValidation", err)
	}

	again, err := h.suggestions.Decide(ctx, change.ID, specModels.ChangeStatusRejected)
	if err != nil {
		t.Fatalf("repeating the same decision error = %v", err)
	}
	if again.Change.Status != specModels.ChangeStatusRejected {
		t.Errorf("status = %q", again.Change.Status)
	}

	stored, _ := h.store.Get(ctx, change.ID)
	if stored.Status != specModels.ChangeStatusRejected {
		t.Errorf("stored status = %q, want rejected", stored.Status)
	}
}

func TestDecide_ConcurrentDecisions(t *testing.T) {
	tests := []struct {
		name      string
		competing specModels.ChangeStatus
		decision  specModels.ChangeStatus
		wantErr   error
	}{
		{"different decision wins first", specModels.ChangeStatusAccepted, specModels.ChangeStatusRejected, domain.ErrConflict},
		{"same decision wins first", specModels.ChangeStatusRejected, specModels.ChangeStatusRejected, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness("owner")
			ctx := context.Background()
			change := h.propose("featureName", "Old", "New")

			// The competing decision lands after Decide has read the pending change.
			h.changes.beforeUpdate = func() {
				if _, err := h.store.UpdateStatus(ctx, change.ID, tt.competing); err != nil {
					t.Fatalf("competing UpdateStatus error = %v", err)
				}
			}

			result, err := h.suggestions.Decide(ctx, change.ID, tt.decision)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Decide error = %v, want %v", err, tt.wantErr)
				}
			} else {
				if err != nil {
					t.Fatalf("Decide error = %v", err)
				}
				if result.Change.Status != tt.decision {
					t.Errorf("result status = %q, want %q", result.Change.Status, tt.decision)
				}
			}

			stored, _ := h.store.Get(ctx, change.ID)
			if stored.Status != tt.competing {
				t.Errorf("stored status = %q, want %q", stored.Status, tt.competing)
			}
			if stored.AcceptedAt != nil && stored.RejectedAt != nil {
				t.Error("change carries both accepted and rejected stamps")
			}
		})
	}
}

func TestDecide_Authorization(t *testing.T) {
	h := newHarness("owner")
	ctx := context.Background()
	h.identity.current = reviewer
	change := h.propose("summary", nil, "x")

	if _, err := h.suggestions.Decide(ctx, change.ID, specModels.ChangeStatusAccepted); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("non-owner Decide error = %v, want ErrForbidden", err)
	}
	if stored, _ := h.store.Get(ctx, change.ID); stored.Status != specModels.ChangeStatusPending {
		t.Errorf("status = %q after denied decision", stored.Status)
	}

	permissive := newHarness("permit")
	permissive.identity.current = reviewer
	other := permissive.propose("summary", nil, "x")
	if _, err := permissive.suggestions.Decide(ctx, other.ID, specModels.ChangeStatusAccepted); err != nil {
		t.Errorf("permit policy Decide error = %v", err)
	}

	h.identity.current = nil
	if _, err := h.suggestions.Decide(ctx, change.ID, specModels.ChangeStatusAccepted); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("unauthenticated Decide error = %v, want ErrUnauthorized", err)
	}

	h.identity.current = owner
	if _, err := h.suggestions.Decide(ctx, "missing", specModels.ChangeStatusAccepted); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown change Decide error = %v, want ErrNotFound", err)
	}
}

func TestDecide_ReconciliationFailureKeepsAccepted(t *testing.T) {
	h := newHarness("owner")
	ctx := context.Background()
	change := h.propose("featureName", "Old", "New")

	h.specs.updateContentErr = domain.StorageError("update content", errors.New("timeout"))
	result, err := h.suggestions.Decide(ctx, change.ID, specModels.ChangeStatusAccepted)

	if !errors.Is(err, domain.ErrReconciliation) || !isReconciliationError(err) {
		t.Fatalf("Decide error = %v, want *ReconciliationError", err)
	}
	if result == nil || result.Applied || result.ReconcileError == "" {
		t.Fatalf("result = %+v, want accepted but not applied", result)
	}

	stored, _ := h.store.Get(ctx, change.ID)
	if stored.Status != specModels.ChangeStatusAccepted || !stored.AwaitingApply() {
		t.Errorf("stored = %s applied=%v, want accepted and awaiting apply", stored.Status, stored.AppliedAt)
	}
	if h.document().Content["featureName"] != "Old" {
		t.Error("document should be unchanged after failed reconciliation")
	}

	h.specs.updateContentErr = nil
	reapplied, err := h.suggestions.Reapply(ctx, change.ID)
	if err != nil {
		t.Fatalf("Reapply error = %v", err)
	}
	if !reapplied.Applied || h.document().Content["featureName"] != "New" {
		t.Errorf("Reapply result = %+v, featureName = %v", reapplied, h.document().Content["featureName"])
	}
}

func TestDecide_MissingDocumentAtReconcile(t *testing.T) {
	h := newHarness("permit")
	ctx := context.Background()
	change := h.propose("featureName", "Old", "New")

	// The spec disappears between the status write and reconciliation.
	reconciler := NewDocumentReconciler(h.specs, h.changes, inlineTx{}, testLogger())
	h.specs.remove(h.doc.ID)

	accepted := *change
	accepted.Status = specModels.ChangeStatusAccepted
	_, err := reconciler.Apply(ctx, &accepted)
	if !errors.Is(err, domain.ErrReconciliation) || !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Apply error = %v, want reconciliation error wrapping not found", err)
	}
}

func TestReapply_RequiresAccepted(t *testing.T) {
	h := newHarness("owner")
	change := h.propose("summary", nil, "x")

	if _, err := h.suggestions.Reapply(context.Background(), change.ID); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("Reapply(pending) error = %v, want ErrValidation", err)
	}
}

func TestListChanges(t *testing.T) {
	h := newHarness("owner")
	ctx := context.Background()

	a1 := h.propose("useCases.0.context", nil, "first")
	a2 := h.propose("useCases.0.context", nil, "second")
	b := h.propose("useCases.1.title", nil, "Title")
	c := h.propose("summary", nil, "Summary")
	if _, err := h.suggestions.Decide(ctx, a2.ID, specModels.ChangeStatusAccepted); err != nil {
		t.Fatalf("Decide error = %v", err)
	}

	tests := []struct {
		name string
		q    specSvc.ChangeQuery
		want []string
	}{
		{"all", specSvc.ChangeQuery{}, []string{c.ID, b.ID, a2.ID, a1.ID}},
		{"exact path", specSvc.ChangeQuery{FieldPath: "useCases.0.context"}, []string{a2.ID, a1.ID}},
		{"pending on path", specSvc.ChangeQuery{FieldPath: "useCases.0.context", Status: specModels.ChangeStatusPending}, []string{a1.ID}},
		{"accepted on path", specSvc.ChangeQuery{FieldPath: "useCases.0.context", Status: specModels.ChangeStatusAccepted}, []string{a2.ID}},
		{"prefix", specSvc.ChangeQuery{Prefix: "useCases"}, []string{b.ID, a2.ID, a1.ID}},
		{"prefix and status", specSvc.ChangeQuery{Prefix: "useCases", Status: specModels.ChangeStatusPending}, []string{b.ID, a1.ID}},
		{"rejected", specSvc.ChangeQuery{Status: specModels.ChangeStatusRejected}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := h.suggestions.ListChanges(ctx, h.doc.ID, tt.q)
			if err != nil {
				t.Fatalf("ListChanges error = %v", err)
			}
			if !equalIDs(ids(got), tt.want) {
				t.Errorf("ListChanges = %v, want %v", ids(got), tt.want)
			}
		})
	}

	if _, err := h.suggestions.ListChanges(ctx, h.doc.ID, specSvc.ChangeQuery{FieldPath: "a", Prefix: "b"}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("combined filters error = %v, want ErrValidation", err)
	}
	if _, err := h.suggestions.ListChanges(ctx, "missing", specSvc.ChangeQuery{}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("missing document error = %v, want ErrNotFound", err)
	}

	latest, err := h.suggestions.LatestAccepted(ctx, h.doc.ID, "useCases.0.context")
	if err != nil || latest == nil || latest.ID != a2.ID {
		t.Errorf("LatestAccepted = %v, %v; want %s", latest, err, a2.ID)
	}
	none, err := h.suggestions.LatestAccepted(ctx, h.doc.ID, "summary")
	if err != nil || none != nil {
		t.Errorf("LatestAccepted(summary) = %v, %v; want nil", none, err)
	}
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	h := newHarness("owner")
	h.notifier.err = errors.New("nats: connection closed")

	change := h.propose("summary", nil, "x")
	if change == nil {
		t.Fatal("proposal should succeed when publishing fails")
	}
	if _, err := h.suggestions.Decide(context.Background(), change.ID, specModels.ChangeStatusAccepted); err != nil {
		t.Errorf("Decide error = %v", err)
	}
}
