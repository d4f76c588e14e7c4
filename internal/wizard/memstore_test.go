package wizard

import (
	"context"
	"testing"
	"time"

	"github.com/shiftwise/console/model"
)

func testInstance(id, orgID string) model.WizardInstance {
	now := time.Now().UTC()
	return model.WizardInstance{
		ID:          id,
		WizardID:    "client_onboarding",
		OrgID:       orgID,
		SubjectID:   "user-1",
		CurrentStep: "details",
		Status:      model.WizardStatusActive,
		State:       map[string]any{"client_name": "Sunrise Care"},
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestMemoryStore_CreateAndGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Create(ctx, testInstance("w-1", "org-1")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	inst, err := s.Get(ctx, "org-1", "w-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if inst.WizardID != "client_onboarding" || inst.State["client_name"] != "Sunrise Care" {
		t.Errorf("instance = %+v", inst)
	}

	// Duplicate id conflicts.
	if err := s.Create(ctx, testInstance("w-1", "org-1")); err == nil {
		t.Error("duplicate Create should fail")
	}
}

func TestMemoryStore_Get_OrgIsolation(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	s.Create(ctx, testInstance("w-1", "org-1"))

	_, err := s.Get(ctx, "org-2", "w-1")
	if err == nil {
		t.Fatal("expected error")
	}
	if ee := model.AsEnvelope(err); ee.Code != model.ErrNotFound {
		t.Errorf("Code = %q", ee.Code)
	}
}

func TestMemoryStore_Update_OptimisticLock(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	s.Create(ctx, testInstance("w-1", "org-1"))

	inst, _ := s.Get(ctx, "org-1", "w-1")
	inst.CurrentStep = "location"
	if err := s.Update(ctx, inst); err != nil {
		t.Fatalf("Update: %v", err)
	}

	// Stale version loses.
	if err := s.Update(ctx, inst); err == nil {
		t.Fatal("stale Update should conflict")
	} else if ee := model.AsEnvelope(err); ee.Code != model.ErrConflict {
		t.Errorf("Code = %q", ee.Code)
	}

	got, _ := s.Get(ctx, "org-1", "w-1")
	if got.CurrentStep != "location" || got.Version != 2 {
		t.Errorf("instance = %+v", got)
	}
}

func TestMemoryStore_Events(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	s.Create(ctx, testInstance("w-1", "org-1"))

	base := time.Now().UTC()
	s.AppendEvent(ctx, model.WizardEvent{ID: "e-2", InstanceID: "w-1", Event: "step_completed", Timestamp: base.Add(time.Second)})
	s.AppendEvent(ctx, model.WizardEvent{ID: "e-1", InstanceID: "w-1", Event: "started", Timestamp: base})

	events, err := s.GetEvents(ctx, "org-1", "w-1")
	if err != nil {
		t.Fatalf("GetEvents: %v", err)
	}
	if len(events) != 2 || events[0].Event != "started" {
		t.Errorf("events = %+v", events)
	}

	if _, err := s.GetEvents(ctx, "org-2", "w-1"); err == nil {
		t.Error("cross-org GetEvents should fail")
	}
}

func TestMemoryStore_FindActive(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	a := testInstance("w-1", "org-1")
	a.CreatedAt = time.Now().UTC().Add(-time.Hour)
	b := testInstance("w-2", "org-1")
	c := testInstance("w-3", "org-1")
	c.Status = model.WizardStatusCompleted
	d := testInstance("w-4", "org-2")
	for _, inst := range []model.WizardInstance{a, b, c, d} {
		s.Create(ctx, inst)
	}

	result, err := s.FindActive(ctx, "org-1", Filters{})
	if err != nil {
		t.Fatalf("FindActive: %v", err)
	}
	if len(result) != 2 || result[0].ID != "w-2" {
		t.Errorf("result = %+v", result)
	}

	limited, _ := s.FindActive(ctx, "org-1", Filters{Limit: 1})
	if len(limited) != 1 {
		t.Errorf("limited = %+v", limited)
	}
}

func TestMemoryStore_FindExpired(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	past := time.Now().UTC().Add(-time.Minute)
	future := time.Now().UTC().Add(time.Hour)

	a := testInstance("w-1", "org-1")
	a.ExpiresAt = &past
	b := testInstance("w-2", "org-1")
	b.ExpiresAt = &future
	c := testInstance("w-3", "org-1") // no expiry
	for _, inst := range []model.WizardInstance{a, b, c} {
		s.Create(ctx, inst)
	}

	stale, err := s.FindExpired(ctx, time.Now().UTC())
	if err != nil {
		t.Fatalf("FindExpired: %v", err)
	}
	if len(stale) != 1 || stale[0].ID != "w-1" {
		t.Errorf("stale = %+v", stale)
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	s.Create(ctx, testInstance("w-1", "org-1"))
	s.AppendEvent(ctx, model.WizardEvent{ID: "e-1", InstanceID: "w-1", Event: "started", Timestamp: time.Now()})

	if err := s.Delete(ctx, "org-1", "w-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d", s.Len())
	}
	if err := s.Delete(ctx, "org-1", "w-1"); err == nil {
		t.Error("second Delete should fail")
	}
}
