package transport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/shiftwise/console/internal/config"
	"github.com/shiftwise/console/internal/controller"
	"github.com/shiftwise/console/internal/definition"
	"github.com/shiftwise/console/internal/lookup"
	"github.com/shiftwise/console/internal/openapi"
	"github.com/shiftwise/console/internal/resource"
	"github.com/shiftwise/console/internal/screen"
	"github.com/shiftwise/console/internal/wizard"
	"github.com/shiftwise/console/model"
)

// workforceBackend is a mutable in-memory workforce service for handler
// tests. It mirrors the envelope the real backends return.
type workforceBackend struct {
	mu       sync.Mutex
	rows     []map[string]any
	listHits int
}

func (b *workforceBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/leave-types", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		switch r.Method {
		case http.MethodGet:
			b.listHits++
			json.NewEncoder(w).Encode(map[string]any{
				"success":     true,
				"data":        b.rows,
				"total_count": len(b.rows),
			})
		case http.MethodPost:
			var body map[string]any
			json.NewDecoder(r.Body).Decode(&body)
			body["id"] = fmt.Sprintf("lt-%d", len(b.rows)+1)
			b.rows = append(b.rows, body)
			json.NewEncoder(w).Encode(map[string]any{"success": true, "message": "Leave type created"})
		default:
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/api/designations", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": []map[string]any{
				{"id": 1, "designation_name": "Care Assistant"},
				{"id": 2, "designation_name": "Registered Nurse"},
			},
		})
	})
	return mux
}

func (b *workforceBackend) rowCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.rows)
}

func workforceDomain() model.DomainDefinition {
	return model.DomainDefinition{
		Domain:  "workforce",
		Version: "1",
		Navigation: model.NavigationDefinition{
			Label: "Workforce",
			Icon:  "briefcase",
			Order: 1,
			Children: []model.NavigationChildDefinition{{
				Label:    "Leave Types",
				Route:    "/workforce/leave-types",
				ScreenID: "leave_type",
				Order:    1,
			}},
		},
		Screens: []model.ScreenDefinition{{
			ID:           "leave_type",
			Title:        "Leave Type",
			Entity:       "leave_type",
			Capabilities: []string{"workforce:leave:view"},
			Resource: model.ResourceBinding{
				ServiceID: "workforce",
				ListOp:    "listLeaveTypes",
				CreateOp:  "createLeaveType",
				UpdateOp:  "updateLeaveType",
				DeleteOp:  "deleteLeaveType",
			},
			Pagination: model.PaginationSettings{Mode: model.PaginationClient, PageSize: 10, ResetOnCreate: true},
			Columns: []model.ColumnDefinition{
				{Key: model.ColumnSerial, Label: "S.No"},
				{Key: "leave_type", Label: "Leave Type"},
			},
			Fields: []model.FieldDefinition{
				{Key: "leave_type", Label: "Leave Type", Kind: model.KindText, Required: true},
				{Key: "no_of_leave", Label: "Number of Leaves", Kind: model.KindNumber, Required: true},
			},
		}},
		Lookups: []model.LookupDefinition{{
			ID:         "workforce.designations",
			Operation:  model.OperationBinding{ServiceID: "workforce", OperationID: "listDesignations"},
			LabelField: "designation_name",
			ValueField: "id",
		}},
		Wizards: []model.WizardDefinition{{
			ID:    "leave_type_setup",
			Title: "Leave Type Setup",
			Steps: []model.StepDefinition{{
				ID:    "details",
				Title: "Details",
				Fields: []model.FieldDefinition{
					{Key: "leave_type", Label: "Leave Type", Kind: model.KindText, Required: true},
					{Key: "no_of_leave", Label: "Number of Leaves", Kind: model.KindNumber, Required: true},
				},
			}},
			Create:  model.OperationBinding{ServiceID: "workforce", OperationID: "createLeaveType"},
			Timeout: "1h",
		}},
	}
}

func injectAuth(claims map[string]any) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithClaims(r.Context(), claims)
			ctx = WithToken(ctx, "test-token")
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// newConsoleRouter wires a full router against an in-memory workforce
// backend, the way run() does in production.
func newConsoleRouter(t *testing.T, backend *workforceBackend, caps model.CapabilitySet) chi.Router {
	t.Helper()

	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	idx := openapi.NewIndex()
	err := idx.Load([]openapi.SpecSource{
		{ServiceID: "workforce", BaseURL: srv.URL, SpecPath: "testdata/workforce.yaml"},
	})
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	inv := resource.NewInvoker(idx, map[string]config.ServiceConfig{
		"workforce": {BaseURL: srv.URL, Timeout: 2 * time.Second},
	}, zap.NewNop())

	reg := definition.NewRegistry([]model.DomainDefinition{workforceDomain()})

	deps := testDeps()
	deps.Authenticate = injectAuth(map[string]any{
		"sub":    "user-1",
		"org_id": "org-1",
		"email":  "user@example.com",
		"roles":  []any{"hr_admin"},
	})
	deps.CapabilityResolver = &mockResolver{caps: caps}
	deps.Screens = screen.NewProvider(reg)
	deps.Menu = screen.NewMenuProvider(reg, inv, zap.NewNop())
	deps.Lookups = lookup.NewProvider(reg, inv, time.Minute, 100)
	deps.Sessions = controller.NewManager(
		reg, inv, controller.NewMemoryIdempotencyStore(), time.Minute, time.Minute, zap.NewNop())
	deps.Wizards = wizard.NewEngine(reg, wizard.NewMemoryStore(), inv, nil, zap.NewNop())
	deps.Registry = reg
	deps.Reload = func() error { return nil }

	return NewRouter(deps)
}

func adminCaps() model.CapabilitySet {
	return model.CapabilitySet{"workforce:*": true, "admin:definitions": true}
}

func doJSON(t *testing.T, r chi.Router, method, path, body string, hdr map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var decoded map[string]any
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("decode %s %s: %v (body %q)", method, path, err, w.Body.String())
		}
	}
	return w, decoded
}

func TestHandleNavigation(t *testing.T) {
	r := newConsoleRouter(t, &workforceBackend{}, adminCaps())

	w, body := doJSON(t, r, "GET", "/api/navigation", "", nil)
	if w.Code != 200 {
		t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}
	items, _ := body["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
	top := items[0].(map[string]any)
	if top["label"] != "Workforce" {
		t.Errorf("label = %v, want Workforce", top["label"])
	}
	children, _ := top["children"].([]any)
	if len(children) != 1 {
		t.Fatalf("children = %d, want 1", len(children))
	}
	child := children[0].(map[string]any)
	if child["route"] != "/workforce/leave-types" {
		t.Errorf("route = %v", child["route"])
	}
}

func TestHandleGetScreen(t *testing.T) {
	r := newConsoleRouter(t, &workforceBackend{}, adminCaps())

	w, body := doJSON(t, r, "GET", "/api/screens/leave_type", "", nil)
	if w.Code != 200 {
		t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}
	if body["id"] != "leave_type" {
		t.Errorf("id = %v, want leave_type", body["id"])
	}
}

func TestHandleGetScreen_notFound(t *testing.T) {
	r := newConsoleRouter(t, &workforceBackend{}, adminCaps())

	w, body := doJSON(t, r, "GET", "/api/screens/no_such_screen", "", nil)
	if w.Code != 404 {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	errObj, _ := body["error"].(map[string]any)
	if errObj["code"] != model.ErrNotFound {
		t.Errorf("code = %v, want %s", errObj["code"], model.ErrNotFound)
	}
}

func TestHandleGetScreen_missingCapability(t *testing.T) {
	r := newConsoleRouter(t, &workforceBackend{}, model.CapabilitySet{"rota:*": true})

	w, _ := doJSON(t, r, "GET", "/api/screens/leave_type", "", nil)
	if w.Code != 403 {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestHandleScreenState(t *testing.T) {
	backend := &workforceBackend{rows: []map[string]any{
		{"id": "lt-1", "leave_type": "Annual", "no_of_leave": 28},
		{"id": "lt-2", "leave_type": "Sick", "no_of_leave": 10},
	}}
	r := newConsoleRouter(t, backend, adminCaps())

	w, body := doJSON(t, r, "GET", "/api/screens/leave_type/state", "", nil)
	if w.Code != 200 {
		t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}
	if body["mode"] != "list" {
		t.Errorf("mode = %v, want list", body["mode"])
	}
	data := body["data"].(map[string]any)
	if data["total_count"] != float64(2) {
		t.Errorf("total_count = %v, want 2", data["total_count"])
	}
	items, _ := data["items"].([]any)
	if len(items) != 2 {
		t.Errorf("items = %d, want 2", len(items))
	}
}

func TestHandleScreenEvent_createFlow(t *testing.T) {
	backend := &workforceBackend{}
	r := newConsoleRouter(t, backend, adminCaps())

	w, body := doJSON(t, r, "POST", "/api/screens/leave_type/events",
		`{"type":"open_add"}`, nil)
	if w.Code != 200 {
		t.Fatalf("open_add status = %d (body %s)", w.Code, w.Body.String())
	}
	if body["mode"] != "add" {
		t.Errorf("mode = %v, want add", body["mode"])
	}

	doJSON(t, r, "POST", "/api/screens/leave_type/events",
		`{"type":"set_field","field":"leave_type","value":"Annual"}`, nil)
	doJSON(t, r, "POST", "/api/screens/leave_type/events",
		`{"type":"set_field","field":"no_of_leave","value":28}`, nil)

	w, body = doJSON(t, r, "POST", "/api/screens/leave_type/events",
		`{"type":"submit"}`, nil)
	if w.Code != 200 {
		t.Fatalf("submit status = %d (body %s)", w.Code, w.Body.String())
	}
	if body["mode"] != "list" {
		t.Errorf("mode after submit = %v, want list", body["mode"])
	}
	if backend.rowCount() != 1 {
		t.Errorf("backend rows = %d, want 1", backend.rowCount())
	}
}

func TestHandleScreenEvent_validationFailure(t *testing.T) {
	r := newConsoleRouter(t, &workforceBackend{}, adminCaps())

	doJSON(t, r, "POST", "/api/screens/leave_type/events", `{"type":"open_add"}`, nil)

	// Submit with required fields empty stays in add mode with field errors.
	w, body := doJSON(t, r, "POST", "/api/screens/leave_type/events", `{"type":"submit"}`, nil)
	if w.Code != 200 {
		t.Fatalf("status = %d (body %s)", w.Code, w.Body.String())
	}
	if body["mode"] != "add" {
		t.Errorf("mode = %v, want add", body["mode"])
	}
	errs, _ := body["field_errors"].([]any)
	if len(errs) == 0 {
		t.Error("expected field_errors on empty submit")
	}
}

func TestHandleScreenEvent_idempotencyKeyReplay(t *testing.T) {
	backend := &workforceBackend{}
	r := newConsoleRouter(t, backend, adminCaps())

	// Same key and same payload submitted twice, as a client retrying a
	// dropped response would.
	hdr := map[string]string{"X-Idempotency-Key": "key-abc"}
	submit := func() *httptest.ResponseRecorder {
		doJSON(t, r, "POST", "/api/screens/leave_type/events", `{"type":"open_add"}`, nil)
		doJSON(t, r, "POST", "/api/screens/leave_type/events",
			`{"type":"set_field","field":"leave_type","value":"Annual"}`, nil)
		doJSON(t, r, "POST", "/api/screens/leave_type/events",
			`{"type":"set_field","field":"no_of_leave","value":28}`, nil)
		w, _ := doJSON(t, r, "POST", "/api/screens/leave_type/events", `{"type":"submit"}`, hdr)
		return w
	}

	if w := submit(); w.Code != 200 {
		t.Fatalf("first submit status = %d (body %s)", w.Code, w.Body.String())
	}
	if w := submit(); w.Code != 200 {
		t.Fatalf("replay submit status = %d (body %s)", w.Code, w.Body.String())
	}

	if backend.rowCount() != 1 {
		t.Errorf("backend rows = %d, want 1 (replay must not re-create)", backend.rowCount())
	}
}

func TestHandleScreenEvent_badBody(t *testing.T) {
	r := newConsoleRouter(t, &workforceBackend{}, adminCaps())

	w, body := doJSON(t, r, "POST", "/api/screens/leave_type/events", `{not json`, nil)
	if w.Code != 400 {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	errObj, _ := body["error"].(map[string]any)
	if errObj["code"] != model.ErrBadRequest {
		t.Errorf("code = %v, want %s", errObj["code"], model.ErrBadRequest)
	}
}

func TestHandleLookup(t *testing.T) {
	r := newConsoleRouter(t, &workforceBackend{}, adminCaps())

	w, body := doJSON(t, r, "GET", "/api/lookups/workforce.designations", "", nil)
	if w.Code != 200 {
		t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}
	data := body["data"].(map[string]any)
	options, _ := data["options"].([]any)
	if len(options) != 2 {
		t.Fatalf("options = %d, want 2", len(options))
	}
	first := options[0].(map[string]any)
	if first["label"] != "Care Assistant" {
		t.Errorf("label = %v, want Care Assistant", first["label"])
	}
}

func TestHandleLookup_unknown(t *testing.T) {
	r := newConsoleRouter(t, &workforceBackend{}, adminCaps())

	w, _ := doJSON(t, r, "GET", "/api/lookups/no.such.lookup", "", nil)
	if w.Code != 404 {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestHandleWizard_fullFlow(t *testing.T) {
	backend := &workforceBackend{}
	r := newConsoleRouter(t, backend, adminCaps())

	w, body := doJSON(t, r, "POST", "/api/wizards/leave_type_setup/start", `{"input":{}}`, nil)
	if w.Code != 201 {
		t.Fatalf("start status = %d, want 201 (body %s)", w.Code, w.Body.String())
	}
	inst := body["instance"].(map[string]any)
	if inst["status"] != model.WizardStatusActive {
		t.Errorf("status = %v, want active", inst["status"])
	}
	instanceID, _ := inst["id"].(string)
	if instanceID == "" {
		t.Fatal("instance id missing")
	}
	if body["step_index"] != float64(0) {
		t.Errorf("step_index = %v, want 0", body["step_index"])
	}

	// Advancing past the only step submits the combined payload.
	w, body = doJSON(t, r, "POST", "/api/wizard-instances/"+instanceID+"/advance",
		`{"values":{"leave_type":"Annual","no_of_leave":28}}`, nil)
	if w.Code != 200 {
		t.Fatalf("advance status = %d (body %s)", w.Code, w.Body.String())
	}
	inst = body["instance"].(map[string]any)
	if inst["status"] != model.WizardStatusCompleted {
		t.Errorf("status = %v, want completed", inst["status"])
	}
	if backend.rowCount() != 1 {
		t.Errorf("backend rows = %d, want 1", backend.rowCount())
	}

	w, body = doJSON(t, r, "GET", "/api/wizard-instances/"+instanceID+"/events", "", nil)
	if w.Code != 200 {
		t.Fatalf("events status = %d (body %s)", w.Code, w.Body.String())
	}
	events, _ := body["events"].([]any)
	seen := map[string]bool{}
	for _, e := range events {
		seen[e.(map[string]any)["event"].(string)] = true
	}
	if !seen["started"] || !seen["submitted"] {
		t.Errorf("events missing started/submitted: %v", seen)
	}
}

func TestHandleWizard_cancel(t *testing.T) {
	r := newConsoleRouter(t, &workforceBackend{}, adminCaps())

	_, body := doJSON(t, r, "POST", "/api/wizards/leave_type_setup/start", `{"input":{}}`, nil)
	instanceID := body["instance"].(map[string]any)["id"].(string)

	w, body := doJSON(t, r, "POST", "/api/wizard-instances/"+instanceID+"/cancel", "", nil)
	if w.Code != 200 {
		t.Fatalf("cancel status = %d (body %s)", w.Code, w.Body.String())
	}
	if got := body["instance"].(map[string]any)["status"]; got != model.WizardStatusCancelled {
		t.Errorf("status = %v, want cancelled", got)
	}
}

func TestHandleWizard_startUnknown(t *testing.T) {
	r := newConsoleRouter(t, &workforceBackend{}, adminCaps())

	w, body := doJSON(t, r, "POST", "/api/wizards/no_such_wizard/start", `{"input":{}}`, nil)
	if w.Code != 404 {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	errObj, _ := body["error"].(map[string]any)
	if errObj["code"] != model.ErrWizardNotFound {
		t.Errorf("code = %v, want %s", errObj["code"], model.ErrWizardNotFound)
	}
}

func TestHandleWizard_activeInstances(t *testing.T) {
	r := newConsoleRouter(t, &workforceBackend{}, adminCaps())

	doJSON(t, r, "POST", "/api/wizards/leave_type_setup/start", `{"input":{}}`, nil)
	doJSON(t, r, "POST", "/api/wizards/leave_type_setup/start", `{"input":{}}`, nil)

	w, body := doJSON(t, r, "GET", "/api/wizards/leave_type_setup/instances", "", nil)
	if w.Code != 200 {
		t.Fatalf("status = %d (body %s)", w.Code, w.Body.String())
	}
	instances, _ := body["instances"].([]any)
	if len(instances) != 2 {
		t.Errorf("instances = %d, want 2", len(instances))
	}
}

func TestHandleDefinitionsChecksum(t *testing.T) {
	r := newConsoleRouter(t, &workforceBackend{}, adminCaps())

	w, body := doJSON(t, r, "GET", "/api/definitions/checksum", "", nil)
	if w.Code != 200 {
		t.Fatalf("status = %d (body %s)", w.Code, w.Body.String())
	}
	if body["checksum"] == "" {
		t.Error("checksum should not be empty")
	}
}

func TestHandleDefinitionsReload(t *testing.T) {
	r := newConsoleRouter(t, &workforceBackend{}, adminCaps())

	w, body := doJSON(t, r, "POST", "/api/admin/definitions/reload", "", nil)
	if w.Code != 200 {
		t.Fatalf("status = %d (body %s)", w.Code, w.Body.String())
	}
	if body["status"] != "reloaded" {
		t.Errorf("status = %v, want reloaded", body["status"])
	}
}

func TestHandleDefinitionsReload_forbidden(t *testing.T) {
	r := newConsoleRouter(t, &workforceBackend{}, model.CapabilitySet{"workforce:*": true})

	w, _ := doJSON(t, r, "POST", "/api/admin/definitions/reload", "", nil)
	if w.Code != 403 {
		t.Errorf("status = %d, want 403", w.Code)
	}
}
