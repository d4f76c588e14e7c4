package resource

import (
	"fmt"
	"strings"

	"github.com/shiftwise/console/model"
)

// NavigatePath walks a dot path through nested maps. An empty path returns
// the value unchanged.
func NavigatePath(v any, path string) (any, bool) {
	if path == "" {
		return v, true
	}
	current := v
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// successFlag reads an explicit success indicator from a response envelope.
// Returns (value, present).
func successFlag(body map[string]any) (bool, bool) {
	v, ok := body["success"]
	if !ok {
		return false, false
	}
	return model.Truthy(v), true
}

// envelopeMessage extracts the backend's human-readable message.
func envelopeMessage(body map[string]any) string {
	for _, key := range []string{"message", "msg", "detail", "error"} {
		if v, ok := body[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// NormalizeList turns a raw list response body into a RecordPage. The
// backends disagree on envelope shape, so detection runs in order: the
// declared items_path, a top-level array, a "data" array, a "results"
// array, then a single array nested one level under "data".
func NormalizeList(body any, binding model.ResourceBinding) (model.RecordPage, error) {
	if body == nil {
		return model.RecordPage{Items: []map[string]any{}}, nil
	}

	if m, ok := body.(map[string]any); ok {
		if success, present := successFlag(m); present && !success {
			return model.RecordPage{}, model.NewRejectionError(envelopeMessage(m))
		}
	}

	rawItems, err := extractItems(body, binding.ItemsPath)
	if err != nil {
		return model.RecordPage{}, err
	}

	items := make([]map[string]any, 0, len(rawItems))
	for _, it := range rawItems {
		if m, ok := it.(map[string]any); ok {
			items = append(items, m)
		}
	}

	page := model.RecordPage{Items: items, TotalCount: len(items)}

	if m, ok := body.(map[string]any); ok {
		totalPath := binding.TotalPath
		if totalPath == "" {
			totalPath = "total_count"
		}
		if v, found := NavigatePath(m, totalPath); found {
			if n, ok := model.CoerceValue(model.CoerceInt, v).(int); ok && n >= 0 {
				page.TotalCount = n
			}
		}
	}

	return page, nil
}

func extractItems(body any, itemsPath string) ([]any, error) {
	if arr, ok := body.([]any); ok {
		return arr, nil
	}

	m, ok := body.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("resource: unexpected list body of type %T", body)
	}

	if itemsPath != "" {
		v, found := NavigatePath(m, itemsPath)
		if !found {
			return nil, fmt.Errorf("resource: items path %q not found in response", itemsPath)
		}
		arr, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("resource: items path %q is not an array", itemsPath)
		}
		return arr, nil
	}

	for _, key := range []string{"data", "results"} {
		switch v := m[key].(type) {
		case []any:
			return v, nil
		case map[string]any:
			// A single array nested one level down, e.g.
			// {"data": {"leave_types": [...]}}.
			if arr, ok := singleArrayValue(v); ok {
				return arr, nil
			}
		}
	}

	return nil, fmt.Errorf("resource: no item array found in response envelope")
}

func singleArrayValue(m map[string]any) ([]any, bool) {
	var found []any
	count := 0
	for _, v := range m {
		if arr, ok := v.([]any); ok {
			found = arr
			count++
		}
	}
	if count == 1 {
		return found, true
	}
	return nil, false
}

// NormalizeMutation turns a raw create/update/delete response into a
// MutationResult. A well-formed 2xx body whose envelope says success: false
// becomes an APPLICATION_REJECTED error; transport-level failures never
// reach this function.
func NormalizeMutation(res Result) (model.MutationResult, error) {
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return model.MutationResult{}, statusError(res)
	}

	m, ok := res.Body.(map[string]any)
	if !ok {
		// Some endpoints answer 200 with an empty body.
		return model.MutationResult{Success: true}, nil
	}

	if success, present := successFlag(m); present && !success {
		return model.MutationResult{}, model.NewRejectionError(envelopeMessage(m))
	}

	out := model.MutationResult{
		Success: true,
		Message: envelopeMessage(m),
	}
	if data, ok := m["data"].(map[string]any); ok {
		out.Data = data
	}
	return out, nil
}

// statusError maps a non-2xx backend status to an error envelope, carrying
// the backend's message where one exists.
func statusError(res Result) *model.ErrorEnvelope {
	msg := ""
	if m, ok := res.Body.(map[string]any); ok {
		msg = envelopeMessage(m)
	}

	switch {
	case res.StatusCode == 400 || res.StatusCode == 422:
		if msg == "" {
			msg = "The backend rejected the request"
		}
		return model.NewBadRequestError(msg)
	case res.StatusCode == 401:
		if msg == "" {
			msg = "The backend rejected the credentials"
		}
		return model.NewUnauthorizedError(msg)
	case res.StatusCode == 403:
		if msg == "" {
			msg = "The backend denied access"
		}
		return model.NewForbiddenError(msg)
	case res.StatusCode == 404:
		if msg == "" {
			msg = "The record was not found"
		}
		return model.NewNotFoundError(msg)
	case res.StatusCode == 409:
		if msg == "" {
			msg = "The record conflicts with an existing one"
		}
		return model.NewConflictError(msg)
	case res.StatusCode == 504:
		return model.NewBackendTimeoutError()
	case res.StatusCode >= 500:
		return model.NewBackendUnavailableError()
	default:
		return model.NewInternalError()
	}
}
