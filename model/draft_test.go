package model

import "testing"

func TestDraft_Clone(t *testing.T) {
	d := Draft{"leave_type": "Casual", "no_of_leave": 12}
	c := d.Clone()

	c["leave_type"] = "Sick"
	if d["leave_type"] != "Casual" {
		t.Errorf("original mutated: leave_type = %v, want Casual", d["leave_type"])
	}
	if len(c) != 2 {
		t.Errorf("clone len = %d, want 2", len(c))
	}
}

func TestCondition_Evaluate(t *testing.T) {
	d := Draft{
		"monthly_split": true,
		"status":        "active",
		"count":         0,
	}

	tests := []struct {
		name string
		cond *Condition
		want bool
	}{
		{"nil condition", nil, true},
		{"truthy bool", &Condition{Field: "monthly_split", Op: OpTruthy}, true},
		{"falsy zero", &Condition{Field: "count", Op: OpFalsy}, true},
		{"falsy missing field", &Condition{Field: "absent", Op: OpFalsy}, true},
		{"truthy missing field", &Condition{Field: "absent", Op: OpTruthy}, false},
		{"equals", &Condition{Field: "status", Op: OpEquals, Value: "active"}, true},
		{"equals mismatch", &Condition{Field: "status", Op: OpEquals, Value: "inactive"}, false},
		{"not equals", &Condition{Field: "status", Op: OpNotEquals, Value: "inactive"}, true},
		{"unknown op", &Condition{Field: "status", Op: "like"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cond.Evaluate(d); got != tt.want {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTruthy(t *testing.T) {
	truthy := []any{true, 1, int64(2), 3.5, "true", "1", "YES", " true "}
	for _, v := range truthy {
		if !Truthy(v) {
			t.Errorf("Truthy(%#v) = false, want true", v)
		}
	}

	falsy := []any{false, 0, int64(0), 0.0, "false", "0", "no", "", nil, []string{"x"}}
	for _, v := range falsy {
		if Truthy(v) {
			t.Errorf("Truthy(%#v) = true, want false", v)
		}
	}
}

func TestCoerceValue(t *testing.T) {
	tests := []struct {
		coerce string
		in     any
		want   any
	}{
		{CoerceNoneToZero, "none", 0},
		{CoerceNoneToZero, "None", 0},
		{CoerceNoneToZero, float64(7), 7},
		{CoerceNoneToZero, "12", 12},
		{CoerceBool, float64(1), true},
		{CoerceBool, "0", false},
		{CoerceInt, "15", 15},
		{CoerceInt, nil, 0},
		{CoerceInt, "junk", 0},
		{CoerceString, float64(3), "3"},
		{CoerceString, nil, ""},
		{"", "verbatim", "verbatim"},
	}

	for _, tt := range tests {
		if got := CoerceValue(tt.coerce, tt.in); got != tt.want {
			t.Errorf("CoerceValue(%q, %#v) = %#v, want %#v", tt.coerce, tt.in, got, tt.want)
		}
	}
}

func TestZeroValueForKind(t *testing.T) {
	if got := ZeroValueForKind(KindNumber); got != 0 {
		t.Errorf("number zero = %#v, want 0", got)
	}
	if got := ZeroValueForKind(KindToggle); got != false {
		t.Errorf("toggle zero = %#v, want false", got)
	}
	if got := ZeroValueForKind(KindText); got != "" {
		t.Errorf("text zero = %#v, want empty string", got)
	}
	if got, ok := ZeroValueForKind(KindCheckboxGroup).([]string); !ok || len(got) != 0 {
		t.Errorf("checkbox_group zero = %#v, want empty slice", got)
	}
}
