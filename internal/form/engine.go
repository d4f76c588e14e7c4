// Package form drives the draft state of add/edit dialogs: seeding, field
// updates, conditional visibility, validation, and the transformation of an
// accepted draft into a backend payload.
package form

import (
	"fmt"

	"github.com/shiftwise/console/model"
)

// Engine applies one screen's field definitions and submit mapping to
// drafts. The engine itself is stateless; drafts live in the screen session.
type Engine struct {
	fields []model.FieldDefinition
	submit model.SubmitMapping
	byKey  map[string]model.FieldDefinition
}

// NewEngine creates a form engine for the given field set.
func NewEngine(fields []model.FieldDefinition, submit model.SubmitMapping) *Engine {
	byKey := make(map[string]model.FieldDefinition, len(fields))
	for _, f := range fields {
		byKey[f.Key] = f
	}
	return &Engine{fields: fields, submit: submit, byKey: byKey}
}

// Fields returns the engine's field definitions in declaration order.
func (e *Engine) Fields() []model.FieldDefinition {
	return e.fields
}

// OpenAdd returns a fresh draft seeded with declared defaults.
func (e *Engine) OpenAdd() model.Draft {
	d := model.NewDraft()
	for _, f := range e.fields {
		if f.Default != nil {
			d[f.Key] = f.Default
		}
	}
	return d
}

// OpenEdit returns a draft seeded from an existing record. Only declared
// field keys are copied; the id and unrelated attributes stay behind. The
// record is never mutated through the draft.
func (e *Engine) OpenEdit(record map[string]any) model.Draft {
	d := model.NewDraft()
	for _, f := range e.fields {
		if v, ok := record[f.Key]; ok {
			d[f.Key] = v
		} else if f.Default != nil {
			d[f.Key] = f.Default
		}
	}
	return d
}

// Set writes one field value into the draft. Unknown keys are rejected so a
// stale client cannot smuggle arbitrary attributes into the payload.
func (e *Engine) Set(d model.Draft, key string, value any) error {
	if _, ok := e.byKey[key]; !ok {
		return model.NewBadRequestError(fmt.Sprintf("unknown field %q", key))
	}
	d[key] = value
	return nil
}

// Visible reports whether the field is currently visible for the draft.
func (e *Engine) Visible(f model.FieldDefinition, d model.Draft) bool {
	return f.VisibleWhen.Evaluate(d)
}

// VisibleKeys returns the keys of fields visible for the draft, in
// declaration order.
func (e *Engine) VisibleKeys(d model.Draft) []string {
	keys := make([]string, 0, len(e.fields))
	for _, f := range e.fields {
		if e.Visible(f, d) {
			keys = append(keys, f.Key)
		}
	}
	return keys
}

// Payload validates the draft and converts it into the backend payload:
// hidden fields with a declared reset drop to their zero value, cascades
// force dependent values in declaration order, then renames map draft keys
// to backend names. Validation failures return before any of that happens.
func (e *Engine) Payload(d model.Draft) (map[string]any, []model.FieldError) {
	if errs := e.Validate(d); len(errs) > 0 {
		return nil, errs
	}

	out := make(map[string]any, len(d))
	for _, f := range e.fields {
		v, ok := d[f.Key]
		if !ok {
			continue
		}
		if f.ZeroWhenHidden && !e.Visible(f, d) {
			v = model.ZeroValueForKind(f.Kind)
		}
		out[f.Key] = v
	}

	// Each condition reads the payload as earlier rules left it, so a rule
	// forcing a toggle off also triggers the resets that hang off that
	// toggle.
	for _, rule := range e.submit.Cascades {
		if rule.When.Evaluate(model.Draft(out)) {
			for k, v := range rule.Set {
				out[k] = v
			}
		}
	}

	for from, to := range e.submit.Rename {
		if v, ok := out[from]; ok {
			delete(out, from)
			out[to] = v
		}
	}

	return out, nil
}
