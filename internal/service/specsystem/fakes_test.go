package specsystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"specboard/internal/domain"
	"specboard/internal/domain/models"
	specModels "specboard/internal/domain/models/specsystem"
	"specboard/internal/domain/repositories"
	specRepo "specboard/internal/domain/repositories/specsystem"
	specSvc "specboard/internal/domain/services/specsystem"
	"specboard/internal/fieldschema"
	"specboard/internal/realtime"
	serviceAuth "specboard/internal/service/auth"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRegistry() *fieldschema.Registry {
	r, err := fieldschema.NewRegistry()
	if err != nil {
		panic(err)
	}
	return r
}

type proposeReq = specSvc.ProposeFieldEditRequest

var (
	_ specRepo.FeatureSpecRepository  = (*memSpecRepo)(nil)
	_ specRepo.FieldChangeRepository  = (*memChangeRepo)(nil)
	_ repositories.TransactionManager = inlineTx{}
	_ realtime.Notifier               = (*recordingNotifier)(nil)
)

// switchableIdentity lets a test act as different users.
type switchableIdentity struct {
	current *models.Identity
}

func (p *switchableIdentity) CurrentIdentity(context.Context) (*models.Identity, error) {
	if p.current == nil {
		return nil, &domain.UnauthorizedError{Message: "authentication required"}
	}
	return p.current, nil
}

type memSpecRepo struct {
	mu               sync.Mutex
	specs            map[string]*specModels.FeatureSpec
	seq              int
	updateContentErr error
}

func newMemSpecRepo() *memSpecRepo {
	return &memSpecRepo{specs: map[string]*specModels.FeatureSpec{}}
}

func (r *memSpecRepo) Create(_ context.Context, spec *specModels.FeatureSpec) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	spec.ID = fmt.Sprintf("spec-%d", r.seq)
	r.specs[spec.ID] = cloneSpec(spec)
	return nil
}

func (r *memSpecRepo) GetByID(_ context.Context, id string) (*specModels.FeatureSpec, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	spec, ok := r.specs[id]
	if !ok {
		return nil, fmt.Errorf("feature spec %s: %w", id, domain.ErrNotFound)
	}
	return cloneSpec(spec), nil
}

func (r *memSpecRepo) GetByIDForUpdate(ctx context.Context, id string) (*specModels.FeatureSpec, error) {
	return r.GetByID(ctx, id)
}

func (r *memSpecRepo) ListByAuthor(_ context.Context, authorID string) ([]specModels.FeatureSpec, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []specModels.FeatureSpec{}
	for _, spec := range r.specs {
		if spec.AuthorID == authorID {
			out = append(out, *cloneSpec(spec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memSpecRepo) UpdateContent(_ context.Context, spec *specModels.FeatureSpec) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateContentErr != nil {
		return r.updateContentErr
	}
	stored, ok := r.specs[spec.ID]
	if !ok {
		return fmt.Errorf("feature spec %s: %w", spec.ID, domain.ErrNotFound)
	}
	stored.Content = cloneSpec(spec).Content
	stored.Version = spec.Version
	stored.UpdatedAt = spec.UpdatedAt
	return nil
}

func (r *memSpecRepo) UpdateStatus(_ context.Context, spec *specModels.FeatureSpec) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.specs[spec.ID]
	if !ok {
		return fmt.Errorf("feature spec %s: %w", spec.ID, domain.ErrNotFound)
	}
	stored.Status = spec.Status
	stored.UpdatedAt = spec.UpdatedAt
	return nil
}

func (r *memSpecRepo) put(spec *specModels.FeatureSpec) *specModels.FeatureSpec {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs[spec.ID] = cloneSpec(spec)
	return spec
}

func (r *memSpecRepo) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.specs, id)
}

func cloneSpec(spec *specModels.FeatureSpec) *specModels.FeatureSpec {
	c := *spec
	content, err := NormalizeValue(map[string]interface{}(spec.Content))
	if err != nil {
		panic(err)
	}
	if m, ok := content.(map[string]interface{}); ok {
		c.Content = models.JSONMap(m)
	} else {
		c.Content = models.JSONMap{}
	}
	return &c
}

type memChangeRepo struct {
	mu        sync.Mutex
	changes   []*specModels.FieldChange // creation order
	createErr error

	// beforeUpdate runs once ahead of the next UpdateStatus, standing in
	// for a competing request.
	beforeUpdate func()
}

func (r *memChangeRepo) Create(_ context.Context, change *specModels.FieldChange) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	change.ID = fmt.Sprintf("chg-%d", len(r.changes)+1)
	c := *change
	r.changes = append(r.changes, &c)
	return nil
}

func (r *memChangeRepo) GetByID(_ context.Context, id string) (*specModels.FieldChange, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.changes {
		if c.ID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("field change %s: %w", id, domain.ErrNotFound)
}

func (r *memChangeRepo) List(_ context.Context, filter specModels.FieldChangeFilter) ([]*specModels.FieldChange, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*specModels.FieldChange{}
	for i := len(r.changes) - 1; i >= 0; i-- {
		c := r.changes[i]
		if c.FeatureSpecID != filter.FeatureSpecID {
			continue
		}
		if filter.FieldPath != "" && c.FieldPath != filter.FieldPath {
			continue
		}
		if filter.PathPrefix != "" && !strings.HasPrefix(c.FieldPath, filter.PathPrefix) {
			continue
		}
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	// newest first; reverse creation order breaks ties
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memChangeRepo) UpdateStatus(_ context.Context, t specModels.StatusTransition) (*specModels.FieldChange, error) {
	if hook := r.beforeUpdate; hook != nil {
		r.beforeUpdate = nil
		hook()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.changes {
		if c.ID != t.ChangeID {
			continue
		}
		if c.Status != specModels.ChangeStatusPending {
			return nil, &domain.ConflictError{
				Message:      fmt.Sprintf("field change %s is already %s", c.ID, c.Status),
				ResourceType: "field_change",
				ResourceID:   c.ID,
			}
		}
		at, actor := t.At, t.Actor
		c.Status = t.Status
		c.UpdatedAt = at
		if t.Status == specModels.ChangeStatusAccepted {
			c.AcceptedAt, c.AcceptedBy = &at, &actor
		} else {
			c.RejectedAt, c.RejectedBy = &at, &actor
		}
		cp := *c
		return &cp, nil
	}
	return nil, fmt.Errorf("field change %s: %w", t.ChangeID, domain.ErrNotFound)
}

func (r *memChangeRepo) MarkApplied(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.changes {
		if c.ID == id {
			c.AppliedAt = &at
			c.UpdatedAt = at
			return nil
		}
	}
	return fmt.Errorf("field change %s: %w", id, domain.ErrNotFound)
}

func (r *memChangeRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.changes)
}

// inlineTx runs fn directly; the in-memory repos have no transactions.
type inlineTx struct{}

func (inlineTx) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	return fn(ctx)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []realtime.ChangeEvent
	err    error
}

func (n *recordingNotifier) Publish(_ context.Context, event realtime.ChangeEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return n.err
}

func (n *recordingNotifier) Close() error { return nil }

func (n *recordingNotifier) types() []realtime.EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]realtime.EventType, len(n.events))
	for i, e := range n.events {
		out[i] = e.Type
	}
	return out
}

var (
	owner    = &models.Identity{ID: "owner-1", Email: "owner@example.com"}
	reviewer = &models.Identity{ID: "reviewer-1", Email: "reviewer@example.com"}
)

// harness wires the real services over in-memory repositories.
type harness struct {
	specs       *memSpecRepo
	changes     *memChangeRepo
	identity    *switchableIdentity
	notifier    *recordingNotifier
	store       *changeStore
	suggestions *suggestionService
	doc         *specModels.FeatureSpec
}

func newHarness(policyName string) *harness {
	h := &harness{
		specs:    newMemSpecRepo(),
		changes:  &memChangeRepo{},
		identity: &switchableIdentity{current: owner},
		notifier: &recordingNotifier{},
	}
	logger := testLogger()

	policy, err := serviceAuth.NewDecisionPolicy(policyName)
	if err != nil {
		panic(err)
	}

	h.store = NewChangeStore(h.changes, h.identity, logger).(*changeStore)
	reconciler := NewDocumentReconciler(h.specs, h.changes, inlineTx{}, logger)
	h.suggestions = NewSuggestionService(
		h.specs, h.store, reconciler, testRegistry(), h.identity, policy, h.notifier, nil, logger,
	).(*suggestionService)

	h.doc = h.specs.put(&specModels.FeatureSpec{
		ID:          "doc1",
		AuthorID:    owner.ID,
		AuthorEmail: owner.Email,
		Status:      specModels.SpecStatusDraft,
		Version:     1,
		Content: models.JSONMap{
			"featureName": "Old",
			"userGoals": []interface{}{
				map[string]interface{}{"description": "Original goal", "priority": "high"},
			},
		},
	})
	return h
}

func (h *harness) propose(path string, oldValue, newValue interface{}) *specModels.FieldChange {
	change, err := h.suggestions.ProposeFieldEdit(context.Background(), &proposeReq{
		FeatureSpecID: h.doc.ID,
		FieldPath:     path,
		OldValue:      oldValue,
		OldValueSet:   true,
		NewValue:      newValue,
	})
	if err != nil {
		panic(err)
	}
	return change
}

func (h *harness) document() *specModels.FeatureSpec {
	spec, err := h.specs.GetByID(context.Background(), h.doc.ID)
	if err != nil {
		panic(err)
	}
	return spec
}

func isReconciliationError(err error) bool {
	var recErr *domain.ReconciliationError
	return errors.As(err, &recErr)
}
