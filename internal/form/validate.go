package form

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shiftwise/console/model"
)

// Validate checks the draft against the field definitions. Hidden fields
// are skipped entirely; a field the user cannot see must never block
// submission. All failing fields are reported together.
func (e *Engine) Validate(d model.Draft) []model.FieldError {
	var errs []model.FieldError

	for _, f := range e.fields {
		if !e.Visible(f, d) {
			continue
		}

		v, present := d[f.Key]

		if f.Required && isEmpty(v, present) {
			errs = append(errs, fieldError(f, "required",
				fmt.Sprintf("%s is required", labelOf(f))))
			continue
		}
		if isEmpty(v, present) {
			continue
		}

		if f.Kind == model.KindNumber && !isNumeric(v) {
			errs = append(errs, fieldError(f, "not_a_number",
				fmt.Sprintf("%s must be a number", labelOf(f))))
			continue
		}

		if f.Pattern != "" {
			re, err := regexp.Compile(f.Pattern)
			if err != nil {
				// Patterns are checked at definition load; a broken one
				// here must not let bad input through silently.
				errs = append(errs, fieldError(f, "pattern",
					fmt.Sprintf("%s could not be validated", labelOf(f))))
				continue
			}
			if !re.MatchString(fmt.Sprint(v)) {
				errs = append(errs, fieldError(f, "pattern",
					fmt.Sprintf("%s has an invalid format", labelOf(f))))
			}
		}
	}

	return errs
}

func fieldError(f model.FieldDefinition, code, fallback string) model.FieldError {
	msg := f.Message
	if msg == "" {
		msg = fallback
	}
	return model.FieldError{Field: f.Key, Code: code, Message: msg}
}

func labelOf(f model.FieldDefinition) string {
	if f.Label != "" {
		return f.Label
	}
	return f.Key
}

// isEmpty treats absent values, nil, blank strings, and empty slices as
// empty. A false toggle is a value, not an omission.
func isEmpty(v any, present bool) bool {
	if !present || v == nil {
		return true
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	default:
		return false
	}
}

func isNumeric(v any) bool {
	switch t := v.(type) {
	case int, int64, float64:
		return true
	case string:
		_, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return err == nil
	default:
		return false
	}
}
