package resource

import (
	"testing"

	"github.com/shiftwise/console/model"
)

func TestNormalizeList_EnvelopeShapes(t *testing.T) {
	row := map[string]any{"id": "1", "leave_type": "Casual"}

	tests := []struct {
		name    string
		body    any
		binding model.ResourceBinding
		total   int
	}{
		{
			name:  "bare array",
			body:  []any{row, row},
			total: 2,
		},
		{
			name: "data array with total",
			body: map[string]any{
				"success":     true,
				"data":        []any{row},
				"total_count": float64(37),
			},
			total: 37,
		},
		{
			name:  "results array",
			body:  map[string]any{"results": []any{row, row, row}},
			total: 3,
		},
		{
			name: "single nested array under data",
			body: map[string]any{
				"data": map[string]any{"leave_types": []any{row}, "count": float64(1)},
			},
			total: 1,
		},
		{
			name:    "declared items path",
			body:    map[string]any{"payload": map[string]any{"rows": []any{row, row}}},
			binding: model.ResourceBinding{ItemsPath: "payload.rows"},
			total:   2,
		},
		{
			name: "declared total path",
			body: map[string]any{
				"data": []any{row},
				"meta": map[string]any{"total": "12"},
			},
			binding: model.ResourceBinding{TotalPath: "meta.total"},
			total:   12,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := NormalizeList(tt.body, tt.binding)
			if err != nil {
				t.Fatalf("NormalizeList: %v", err)
			}
			if page.TotalCount != tt.total {
				t.Errorf("TotalCount = %d, want %d", page.TotalCount, tt.total)
			}
			if len(page.Items) == 0 {
				t.Fatal("no items extracted")
			}
			if page.Items[0]["leave_type"] != "Casual" {
				t.Errorf("Items[0] = %v", page.Items[0])
			}
		})
	}
}

func TestNormalizeList_Rejection(t *testing.T) {
	body := map[string]any{"success": false, "message": "org suspended"}

	_, err := NormalizeList(body, model.ResourceBinding{})
	if !model.IsRejection(err) {
		t.Fatalf("err = %v, want application rejection", err)
	}
	if ee := model.AsEnvelope(err); ee.Message != "org suspended" {
		t.Errorf("Message = %q", ee.Message)
	}
}

func TestNormalizeList_NoArray(t *testing.T) {
	if _, err := NormalizeList(map[string]any{"data": "nope"}, model.ResourceBinding{}); err == nil {
		t.Fatal("expected error when no item array exists")
	}
	if _, err := NormalizeList("text", model.ResourceBinding{}); err == nil {
		t.Fatal("expected error for non-JSON-object body")
	}
}

func TestNormalizeMutation(t *testing.T) {
	res := Result{
		StatusCode: 200,
		Body: map[string]any{
			"success": true,
			"message": "Leave type created",
			"data":    map[string]any{"id": "lt-9"},
		},
	}
	out, err := NormalizeMutation(res)
	if err != nil {
		t.Fatalf("NormalizeMutation: %v", err)
	}
	if !out.Success || out.Message != "Leave type created" {
		t.Errorf("out = %+v", out)
	}
	if out.Data["id"] != "lt-9" {
		t.Errorf("Data = %v", out.Data)
	}
}

func TestNormalizeMutation_RejectionVsFailure(t *testing.T) {
	// 2xx with success:false is an application rejection, not a transport
	// failure.
	_, err := NormalizeMutation(Result{
		StatusCode: 200,
		Body:       map[string]any{"success": false, "message": "duplicate leave type"},
	})
	if !model.IsRejection(err) {
		t.Fatalf("err = %v, want rejection", err)
	}

	_, err = NormalizeMutation(Result{StatusCode: 503})
	if model.IsRejection(err) {
		t.Fatal("5xx must not be a rejection")
	}
	if ee := model.AsEnvelope(err); ee.Code != model.ErrBackendUnavailable {
		t.Errorf("Code = %q, want %q", ee.Code, model.ErrBackendUnavailable)
	}
}

func TestNormalizeMutation_EmptyBody(t *testing.T) {
	out, err := NormalizeMutation(Result{StatusCode: 204})
	if err != nil {
		t.Fatalf("NormalizeMutation: %v", err)
	}
	if !out.Success {
		t.Error("empty 2xx body should read as success")
	}
}

func TestStatusError_Mapping(t *testing.T) {
	tests := []struct {
		status int
		code   string
	}{
		{400, model.ErrBadRequest},
		{401, model.ErrUnauthorized},
		{403, model.ErrForbidden},
		{404, model.ErrNotFound},
		{409, model.ErrConflict},
		{422, model.ErrBadRequest},
		{500, model.ErrBackendUnavailable},
		{504, model.ErrBackendTimeout},
	}
	for _, tt := range tests {
		if got := statusError(Result{StatusCode: tt.status}); got.Code != tt.code {
			t.Errorf("status %d → %q, want %q", tt.status, got.Code, tt.code)
		}
	}
}

func TestStatusError_CarriesBackendMessage(t *testing.T) {
	got := statusError(Result{
		StatusCode: 404,
		Body:       map[string]any{"message": "leave type lt-1 not found"},
	})
	if got.Message != "leave type lt-1 not found" {
		t.Errorf("Message = %q", got.Message)
	}
}

func TestNavigatePath(t *testing.T) {
	body := map[string]any{
		"data": map[string]any{"meta": map[string]any{"total": float64(5)}},
	}

	v, ok := NavigatePath(body, "data.meta.total")
	if !ok || v != float64(5) {
		t.Errorf("NavigatePath = %v, %v", v, ok)
	}
	if _, ok := NavigatePath(body, "data.missing"); ok {
		t.Error("missing path should not resolve")
	}
	if v, ok := NavigatePath(body, ""); !ok || v == nil {
		t.Error("empty path should return the value itself")
	}
}
