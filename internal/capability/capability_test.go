package capability

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shiftwise/console/model"
)

const testPolicy = `
roles:
  admin:
    - "workforce:*"
    - "scheduling:*"
  manager:
    - "workforce:view"
    - "workforce:edit"
  carer:
    - "scheduling:view"
`

func writePolicy(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roles.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write policy: %v", err)
	}
	return path
}

func TestStaticPolicyEvaluator_ResolveCapabilities(t *testing.T) {
	e, err := NewStaticPolicyEvaluator(writePolicy(t, testPolicy))
	if err != nil {
		t.Fatalf("NewStaticPolicyEvaluator: %v", err)
	}

	rctx := &model.RequestContext{SubjectID: "u1", OrgID: "org-1", Roles: []string{"manager", "carer"}}
	caps, err := e.ResolveCapabilities(rctx)
	if err != nil {
		t.Fatalf("ResolveCapabilities: %v", err)
	}

	if !caps.Has("workforce:edit") || !caps.Has("scheduling:view") {
		t.Errorf("caps = %v", caps)
	}
	if caps.Has("scheduling:assign") {
		t.Error("carer should not have scheduling:assign")
	}
}

func TestStaticPolicyEvaluator_Wildcard(t *testing.T) {
	e, err := NewStaticPolicyEvaluator(writePolicy(t, testPolicy))
	if err != nil {
		t.Fatalf("NewStaticPolicyEvaluator: %v", err)
	}

	rctx := &model.RequestContext{SubjectID: "u1", OrgID: "org-1", Roles: []string{"admin"}}
	ok, err := e.Evaluate(rctx, "workforce:delete")
	if err != nil || !ok {
		t.Errorf("Evaluate = %v, %v", ok, err)
	}
}

func TestStaticPolicyEvaluator_UnknownRole(t *testing.T) {
	e, err := NewStaticPolicyEvaluator(writePolicy(t, testPolicy))
	if err != nil {
		t.Fatalf("NewStaticPolicyEvaluator: %v", err)
	}

	rctx := &model.RequestContext{SubjectID: "u1", OrgID: "org-1", Roles: []string{"ghost"}}
	caps, err := e.ResolveCapabilities(rctx)
	if err != nil {
		t.Fatalf("ResolveCapabilities: %v", err)
	}
	if len(caps) != 0 {
		t.Errorf("caps = %v", caps)
	}
}

func TestStaticPolicyEvaluator_MissingFile(t *testing.T) {
	if _, err := NewStaticPolicyEvaluator("/nonexistent/roles.yaml"); err == nil {
		t.Fatal("expected error")
	}
}

// countingEvaluator counts ResolveCapabilities calls for cache assertions.
type countingEvaluator struct {
	calls int
	caps  model.CapabilitySet
	err   error
}

func (c *countingEvaluator) ResolveCapabilities(*model.RequestContext) (model.CapabilitySet, error) {
	c.calls++
	return c.caps, c.err
}

func (c *countingEvaluator) Evaluate(*model.RequestContext, string) (bool, error) {
	return false, nil
}

func (c *countingEvaluator) Sync() error { return nil }

func TestResolver_Caches(t *testing.T) {
	ev := &countingEvaluator{caps: model.CapabilitySet{"workforce:view": true}}
	r := NewResolver(ev, time.Minute)
	rctx := &model.RequestContext{SubjectID: "u1", OrgID: "org-1"}

	for i := 0; i < 3; i++ {
		caps, err := r.Resolve(rctx)
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if !caps.Has("workforce:view") {
			t.Error("missing capability")
		}
	}
	if ev.calls != 1 {
		t.Errorf("evaluator calls = %d, want 1", ev.calls)
	}

	// Different org is a different cache entry.
	other := &model.RequestContext{SubjectID: "u1", OrgID: "org-2"}
	if _, err := r.Resolve(other); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ev.calls != 2 {
		t.Errorf("evaluator calls = %d, want 2", ev.calls)
	}
}

func TestResolver_Invalidate(t *testing.T) {
	ev := &countingEvaluator{caps: model.CapabilitySet{}}
	r := NewResolver(ev, time.Minute)
	rctx := &model.RequestContext{SubjectID: "u1", OrgID: "org-1"}

	if _, err := r.Resolve(rctx); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	r.Invalidate("u1", "org-1")
	if _, err := r.Resolve(rctx); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ev.calls != 2 {
		t.Errorf("evaluator calls = %d, want 2", ev.calls)
	}
}

func TestResolver_EvaluatorError(t *testing.T) {
	ev := &countingEvaluator{err: errors.New("policy backend down")}
	r := NewResolver(ev, time.Minute)
	rctx := &model.RequestContext{SubjectID: "u1", OrgID: "org-1"}

	if _, err := r.Resolve(rctx); err == nil {
		t.Fatal("expected error")
	}
	// Errors are not cached.
	r.Resolve(rctx)
	if ev.calls != 2 {
		t.Errorf("evaluator calls = %d, want 2", ev.calls)
	}
}
