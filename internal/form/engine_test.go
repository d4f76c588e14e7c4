package form

import (
	"testing"

	"github.com/shiftwise/console/model"
)

// leaveTypeEngine mirrors the leave type dialog: the carry forward limit is
// only visible (and only submitted) when carry forward is enabled, and
// disabling monthly split forces the dependent values to zero.
func leaveTypeEngine() *Engine {
	fields := []model.FieldDefinition{
		{Key: "leave_type", Label: "Leave Type", Kind: model.KindText, Required: true},
		{Key: "no_of_leave", Label: "Number of Leaves", Kind: model.KindNumber, Required: true},
		{Key: "monthly_split", Label: "Monthly Split", Kind: model.KindToggle, Default: true},
		{Key: "leave_carry_forward", Label: "Carry Forward", Kind: model.KindToggle, Default: false},
		{
			Key: "carry_forward_limit", Label: "Carry Forward Limit", Kind: model.KindNumber,
			VisibleWhen:    &model.Condition{Field: "leave_carry_forward", Op: model.OpTruthy},
			ZeroWhenHidden: true,
		},
	}
	submit := model.SubmitMapping{
		Cascades: []model.CascadeRule{
			{
				When: model.Condition{Field: "monthly_split", Op: model.OpFalsy},
				Set:  map[string]any{"leave_carry_forward": false},
			},
			{
				When: model.Condition{Field: "leave_carry_forward", Op: model.OpFalsy},
				Set:  map[string]any{"carry_forward_limit": 0},
			},
		},
	}
	return NewEngine(fields, submit)
}

func TestEngine_OpenAdd_Defaults(t *testing.T) {
	d := leaveTypeEngine().OpenAdd()

	if v, ok := d["leave_carry_forward"]; !ok || v != false {
		t.Errorf("default not seeded: %v", d)
	}
	if _, ok := d["leave_type"]; ok {
		t.Error("fields without defaults should be absent from a fresh draft")
	}
}

func TestEngine_OpenEdit_SeedsOnlyFieldKeys(t *testing.T) {
	record := map[string]any{
		"id":          "lt-1",
		"leave_type":  "Casual",
		"no_of_leave": 12,
		"created_at":  "2026-01-01",
	}
	d := leaveTypeEngine().OpenEdit(record)

	if d["leave_type"] != "Casual" || d["no_of_leave"] != 12 {
		t.Errorf("draft = %v", d)
	}
	if _, ok := d["id"]; ok {
		t.Error("record id must not enter the draft")
	}
	if _, ok := d["created_at"]; ok {
		t.Error("unrelated record attributes must not enter the draft")
	}

	d["leave_type"] = "Sick"
	if record["leave_type"] != "Casual" {
		t.Error("editing the draft mutated the seed record")
	}
}

func TestEngine_Set(t *testing.T) {
	e := leaveTypeEngine()
	d := e.OpenAdd()

	if err := e.Set(d, "leave_type", "Casual"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if d["leave_type"] != "Casual" {
		t.Errorf("draft = %v", d)
	}

	if err := e.Set(d, "is_admin", true); err == nil {
		t.Fatal("unknown field key must be rejected")
	}
}

func TestEngine_Visibility(t *testing.T) {
	e := leaveTypeEngine()
	d := e.OpenAdd()

	keys := e.VisibleKeys(d)
	for _, k := range keys {
		if k == "carry_forward_limit" {
			t.Fatal("carry_forward_limit should be hidden while carry forward is off")
		}
	}

	d["leave_carry_forward"] = true
	keys = e.VisibleKeys(d)
	found := false
	for _, k := range keys {
		if k == "carry_forward_limit" {
			found = true
		}
	}
	if !found {
		t.Fatal("carry_forward_limit should appear once carry forward is on")
	}
}

func TestEngine_Validate(t *testing.T) {
	e := leaveTypeEngine()

	errs := e.Validate(model.Draft{})
	if len(errs) != 2 {
		t.Fatalf("errs = %v, want two required failures", errs)
	}

	errs = e.Validate(model.Draft{"leave_type": "Casual", "no_of_leave": "twelve"})
	if len(errs) != 1 || errs[0].Code != "not_a_number" {
		t.Fatalf("errs = %v, want one numeric failure", errs)
	}

	errs = e.Validate(model.Draft{"leave_type": "Casual", "no_of_leave": 12})
	if len(errs) != 0 {
		t.Fatalf("valid draft produced errors: %v", errs)
	}
}

func TestEngine_Validate_SkipsHiddenFields(t *testing.T) {
	fields := []model.FieldDefinition{
		{Key: "monthly_split", Kind: model.KindToggle},
		{
			Key: "split_count", Label: "Split Count", Kind: model.KindNumber, Required: true,
			VisibleWhen: &model.Condition{Field: "monthly_split", Op: model.OpTruthy},
		},
	}
	e := NewEngine(fields, model.SubmitMapping{})

	// Hidden and required: must not block submission.
	if errs := e.Validate(model.Draft{"monthly_split": false}); len(errs) != 0 {
		t.Fatalf("hidden required field blocked submission: %v", errs)
	}

	// Visible again: required applies.
	if errs := e.Validate(model.Draft{"monthly_split": true}); len(errs) != 1 {
		t.Fatalf("errs = %v, want one required failure", errs)
	}
}

func TestEngine_Validate_Pattern(t *testing.T) {
	fields := []model.FieldDefinition{
		{
			Key: "emp_code", Label: "Employee Code", Kind: model.KindText,
			Pattern: `^EMP-\d{4}$`, Message: "Use the EMP-0000 format",
		},
	}
	e := NewEngine(fields, model.SubmitMapping{})

	errs := e.Validate(model.Draft{"emp_code": "4711"})
	if len(errs) != 1 {
		t.Fatalf("errs = %v", errs)
	}
	if errs[0].Message != "Use the EMP-0000 format" {
		t.Errorf("Message = %q, custom message not used", errs[0].Message)
	}

	if errs := e.Validate(model.Draft{"emp_code": "EMP-4711"}); len(errs) != 0 {
		t.Fatalf("valid code rejected: %v", errs)
	}
	// Optional and empty: pattern does not apply.
	if errs := e.Validate(model.Draft{"emp_code": ""}); len(errs) != 0 {
		t.Fatalf("empty optional field rejected: %v", errs)
	}
}

func TestEngine_Payload_ZeroWhenHidden(t *testing.T) {
	e := leaveTypeEngine()
	d := model.Draft{
		"leave_type":          "Casual",
		"no_of_leave":         12,
		"monthly_split":       true,
		"leave_carry_forward": true,
		"carry_forward_limit": 5,
	}

	// Visible: value passes through.
	payload, errs := e.Payload(d)
	if len(errs) != 0 {
		t.Fatalf("errs = %v", errs)
	}
	if payload["carry_forward_limit"] != 5 {
		t.Errorf("payload = %v", payload)
	}

	// Toggle off: the stale limit is zeroed and the cascade confirms it.
	d["leave_carry_forward"] = false
	payload, errs = e.Payload(d)
	if len(errs) != 0 {
		t.Fatalf("errs = %v", errs)
	}
	if payload["carry_forward_limit"] != 0 {
		t.Errorf("stale hidden value shipped: %v", payload)
	}
	// The draft itself keeps the old value for when the toggle returns.
	if d["carry_forward_limit"] != 5 {
		t.Errorf("draft value cleared: %v", d)
	}
}

func TestEngine_Payload_DisablingMonthlySplitResetsCarryForward(t *testing.T) {
	e := leaveTypeEngine()
	d := model.Draft{
		"leave_type":          "Casual",
		"no_of_leave":         12,
		"monthly_split":       true,
		"leave_carry_forward": true,
		"carry_forward_limit": 12,
	}

	// Turning monthly split off must pull both dependent values down with
	// it, whatever they held before. The first cascade forces the carry
	// forward toggle off and the second, reading that forced value, zeroes
	// the limit.
	d["monthly_split"] = false
	payload, errs := e.Payload(d)
	if len(errs) != 0 {
		t.Fatalf("errs = %v", errs)
	}
	if payload["monthly_split"] != false {
		t.Errorf("monthly_split = %v, want false", payload["monthly_split"])
	}
	if payload["leave_carry_forward"] != false {
		t.Errorf("leave_carry_forward = %v, want forced false", payload["leave_carry_forward"])
	}
	if payload["carry_forward_limit"] != 0 {
		t.Errorf("carry_forward_limit = %v, want forced 0", payload["carry_forward_limit"])
	}
}

func TestEngine_Payload_Rename(t *testing.T) {
	fields := []model.FieldDefinition{
		{Key: "name", Label: "Name", Kind: model.KindText, Required: true},
	}
	e := NewEngine(fields, model.SubmitMapping{
		Rename: map[string]string{"name": "designation_name"},
	})

	payload, errs := e.Payload(model.Draft{"name": "Supervisor"})
	if len(errs) != 0 {
		t.Fatalf("errs = %v", errs)
	}
	if payload["designation_name"] != "Supervisor" {
		t.Errorf("payload = %v", payload)
	}
	if _, ok := payload["name"]; ok {
		t.Error("renamed key still present under draft name")
	}
}

func TestEngine_Payload_ValidationShortCircuits(t *testing.T) {
	e := leaveTypeEngine()

	payload, errs := e.Payload(model.Draft{})
	if payload != nil {
		t.Error("payload built despite validation failure")
	}
	if len(errs) == 0 {
		t.Error("validation errors not returned")
	}
}
