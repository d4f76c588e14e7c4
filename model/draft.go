package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Draft is in-progress, uncommitted form state for one create/edit
// operation: a mapping from field key to current value. A draft is created
// empty or seeded from an existing record when a form opens, mutated
// field-by-field, discarded on cancel, and converted to a request payload
// on submit. Server field names may differ from draft keys; the rename is
// part of the submit mapping, not of the draft.
type Draft map[string]any

// NewDraft returns an empty draft.
func NewDraft() Draft {
	return make(Draft)
}

// Clone returns a shallow copy. Forms clone on open so that edits never
// leak back into the seed record.
func (d Draft) Clone() Draft {
	out := make(Draft, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Evaluate checks the condition against the draft.
func (c *Condition) Evaluate(d Draft) bool {
	if c == nil {
		return true
	}
	val, ok := d[c.Field]
	switch c.Op {
	case OpEquals:
		return ok && fmt.Sprint(val) == c.Value
	case OpNotEquals:
		return !ok || fmt.Sprint(val) != c.Value
	case OpTruthy:
		return ok && Truthy(val)
	case OpFalsy:
		return !ok || !Truthy(val)
	default:
		return false
	}
}

// Truthy interprets the backend's loose boolean encodings: true, non-zero
// numbers, and the strings "true"/"1"/"yes" (any case) are truthy.
func Truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1", "yes":
			return true
		}
		return false
	case nil:
		return false
	default:
		return false
	}
}

// CoerceValue applies a row mapping coercion to a raw API value.
func CoerceValue(coerce string, v any) any {
	switch coerce {
	case CoerceNoneToZero:
		// The backend uses the string "none" as a zero sentinel.
		if s, ok := v.(string); ok && strings.EqualFold(strings.TrimSpace(s), "none") {
			return 0
		}
		return CoerceValue(CoerceInt, v)
	case CoerceBool:
		return Truthy(v)
	case CoerceInt:
		switch t := v.(type) {
		case float64:
			return int(t)
		case int:
			return t
		case int64:
			return int(t)
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
				return n
			}
			return 0
		case nil:
			return 0
		default:
			return 0
		}
	case CoerceString:
		if v == nil {
			return ""
		}
		return fmt.Sprint(v)
	default:
		return v
	}
}
