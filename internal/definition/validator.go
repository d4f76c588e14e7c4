package definition

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shiftwise/console/internal/openapi"
	"github.com/shiftwise/console/model"
)

// VError describes a single validation error in a definition.
type VError struct {
	Path    string `json:"path"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e VError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Validator validates definitions structurally, referentially, and against
// OpenAPI specs.
type Validator struct{}

// NewValidator creates a new Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks all definitions. The index may be nil to skip OpenAPI checks.
func (v *Validator) Validate(defs []model.DomainDefinition, index *openapi.Index) []VError {
	var errs []VError
	for i, def := range defs {
		prefix := fmt.Sprintf("definitions[%d]", i)
		errs = append(errs, v.validateDomain(prefix, def, index)...)
	}
	return errs
}

func (v *Validator) validateDomain(prefix string, def model.DomainDefinition, index *openapi.Index) []VError {
	var errs []VError

	if def.Domain == "" {
		errs = append(errs, VError{Path: prefix + ".domain", Code: "REQUIRED", Message: "domain is required"})
	}
	if def.Version == "" {
		errs = append(errs, VError{Path: prefix + ".version", Code: "REQUIRED", Message: "version is required"})
	}
	if def.Navigation.Label == "" {
		errs = append(errs, VError{Path: prefix + ".navigation.label", Code: "REQUIRED", Message: "navigation.label is required"})
	}
	if len(def.Navigation.Children) == 0 {
		errs = append(errs, VError{Path: prefix + ".navigation.children", Code: "REQUIRED", Message: "at least one navigation child is required"})
	}

	screenIDs := make(map[string]bool)
	for _, sc := range def.Screens {
		screenIDs[sc.ID] = true
	}
	lookupIDs := make(map[string]bool)
	for _, l := range def.Lookups {
		lookupIDs[l.ID] = true
	}
	wizardIDs := make(map[string]bool)
	for _, w := range def.Wizards {
		wizardIDs[w.ID] = true
	}

	for i, child := range def.Navigation.Children {
		cp := fmt.Sprintf("%s.navigation.children[%d]", prefix, i)
		if child.Label == "" {
			errs = append(errs, VError{Path: cp + ".label", Code: "REQUIRED", Message: "label is required"})
		}
		if child.ScreenID != "" && !screenIDs[child.ScreenID] && !wizardIDs[child.ScreenID] {
			errs = append(errs, VError{
				Path:    cp + ".screen_id",
				Code:    "REF_NOT_FOUND",
				Message: fmt.Sprintf("screen %q not found in domain", child.ScreenID),
			})
		}
		if b := child.Badge; b != nil && index != nil && b.OperationID != "" {
			serviceID := b.ServiceID
			if serviceID == "" {
				serviceID = def.Domain
			}
			if _, ok := index.GetOperation(serviceID, b.OperationID); !ok {
				errs = append(errs, VError{
					Path:    cp + ".badge.operation_id",
					Code:    "OPERATION_NOT_FOUND",
					Message: fmt.Sprintf("operation %q not found in service %q", b.OperationID, serviceID),
				})
			}
		}
	}

	for i, sc := range def.Screens {
		sp := fmt.Sprintf("%s.screens[%d]", prefix, i)
		errs = append(errs, v.validateScreen(sp, sc, lookupIDs, index)...)
	}
	for i, l := range def.Lookups {
		lp := fmt.Sprintf("%s.lookups[%d]", prefix, i)
		errs = append(errs, v.validateLookup(lp, l, index)...)
	}
	for i, w := range def.Wizards {
		wp := fmt.Sprintf("%s.wizards[%d]", prefix, i)
		errs = append(errs, v.validateWizard(wp, w, lookupIDs, index)...)
	}

	// Capability namespaces must match the domain ID.
	if def.Domain != "" {
		for i, sc := range def.Screens {
			for _, capability := range sc.Capabilities {
				if !strings.HasPrefix(capability, def.Domain+":") && capability != "*" {
					errs = append(errs, VError{
						Path:    fmt.Sprintf("%s.screens[%d].capabilities", prefix, i),
						Code:    "NAMESPACE_MISMATCH",
						Message: fmt.Sprintf("capability %q does not match domain %q", capability, def.Domain),
					})
				}
			}
		}
	}

	return errs
}

func (v *Validator) validateScreen(prefix string, sc model.ScreenDefinition, lookupIDs map[string]bool, index *openapi.Index) []VError {
	var errs []VError

	if sc.ID == "" {
		errs = append(errs, VError{Path: prefix + ".id", Code: "REQUIRED", Message: "id is required"})
	}
	if sc.Title == "" {
		errs = append(errs, VError{Path: prefix + ".title", Code: "REQUIRED", Message: "title is required"})
	}
	if sc.Entity == "" {
		errs = append(errs, VError{Path: prefix + ".entity", Code: "REQUIRED", Message: "entity is required"})
	}

	errs = append(errs, v.validateResource(prefix+".resource", sc.Resource, index)...)
	errs = append(errs, v.validatePagination(prefix+".pagination", sc.Pagination)...)
	errs = append(errs, v.validateColumns(prefix+".columns", sc.Columns)...)

	fieldKeys := v.validateFields(prefix+".fields", sc.Fields, lookupIDs, &errs)

	for i, f := range sc.Fields {
		if f.VisibleWhen != nil && !fieldKeys[f.VisibleWhen.Field] {
			errs = append(errs, VError{
				Path:    fmt.Sprintf("%s.fields[%d].visible_when.field", prefix, i),
				Code:    "REF_NOT_FOUND",
				Message: fmt.Sprintf("field %q not found in screen", f.VisibleWhen.Field),
			})
		}
	}
	for i, c := range sc.Submit.Cascades {
		if !fieldKeys[c.When.Field] {
			errs = append(errs, VError{
				Path:    fmt.Sprintf("%s.submit.cascades[%d].when.field", prefix, i),
				Code:    "REF_NOT_FOUND",
				Message: fmt.Sprintf("field %q not found in screen", c.When.Field),
			})
		}
	}
	for from := range sc.Submit.Rename {
		if !fieldKeys[from] {
			errs = append(errs, VError{
				Path:    prefix + ".submit.rename",
				Code:    "REF_NOT_FOUND",
				Message: fmt.Sprintf("field %q not found in screen", from),
			})
		}
	}

	return errs
}

func (v *Validator) validateResource(prefix string, rb model.ResourceBinding, index *openapi.Index) []VError {
	var errs []VError

	if rb.ServiceID == "" {
		errs = append(errs, VError{Path: prefix + ".service_id", Code: "REQUIRED", Message: "service_id is required"})
	}
	if rb.ListOp == "" {
		errs = append(errs, VError{Path: prefix + ".list_op", Code: "REQUIRED", Message: "list_op is required"})
	}

	switch rb.DeleteStyle {
	case "", model.DeleteStyleQuery, model.DeleteStyleBody:
	default:
		errs = append(errs, VError{
			Path:    prefix + ".delete_style",
			Code:    "INVALID_ENUM",
			Message: fmt.Sprintf("invalid delete_style %q", rb.DeleteStyle),
		})
	}

	if index != nil && rb.ServiceID != "" {
		ops := map[string]string{
			"list_op":   rb.ListOp,
			"create_op": rb.CreateOp,
			"update_op": rb.UpdateOp,
			"delete_op": rb.DeleteOp,
		}
		for field, opID := range ops {
			if opID == "" {
				continue
			}
			if _, ok := index.GetOperation(rb.ServiceID, opID); !ok {
				errs = append(errs, VError{
					Path:    prefix + "." + field,
					Code:    "OPERATION_NOT_FOUND",
					Message: fmt.Sprintf("operation %q not found in service %q", opID, rb.ServiceID),
				})
			}
		}
	}

	return errs
}

func (v *Validator) validatePagination(prefix string, p model.PaginationSettings) []VError {
	var errs []VError

	switch p.Mode {
	case model.PaginationClient, model.PaginationServer:
	case "":
		errs = append(errs, VError{Path: prefix + ".mode", Code: "REQUIRED", Message: "mode is required"})
	default:
		errs = append(errs, VError{Path: prefix + ".mode", Code: "INVALID_ENUM", Message: fmt.Sprintf("invalid pagination mode %q", p.Mode)})
	}

	if p.PageSize < 0 || p.PageSize > 200 {
		errs = append(errs, VError{Path: prefix + ".page_size", Code: "RANGE", Message: "page_size must be 0-200"})
	}

	return errs
}

func (v *Validator) validateColumns(prefix string, cols []model.ColumnDefinition) []VError {
	var errs []VError

	if len(cols) == 0 {
		errs = append(errs, VError{Path: prefix, Code: "REQUIRED", Message: "at least one column is required"})
	}

	seen := make(map[string]bool)
	for i, c := range cols {
		cp := fmt.Sprintf("%s[%d]", prefix, i)
		if c.Key == "" {
			errs = append(errs, VError{Path: cp + ".key", Code: "REQUIRED", Message: "key is required"})
			continue
		}
		if seen[c.Key] {
			errs = append(errs, VError{Path: cp + ".key", Code: "DUPLICATE", Message: fmt.Sprintf("duplicate column key %q", c.Key)})
		}
		seen[c.Key] = true
		if c.Label == "" && !c.Synthetic() {
			errs = append(errs, VError{Path: cp + ".label", Code: "REQUIRED", Message: "label is required"})
		}
	}

	return errs
}

// validateFields appends field errors to errs and returns the set of declared
// field keys for referential checks by the caller.
func (v *Validator) validateFields(prefix string, fields []model.FieldDefinition, lookupIDs map[string]bool, errs *[]VError) map[string]bool {
	keys := make(map[string]bool)

	for i, f := range fields {
		fp := fmt.Sprintf("%s[%d]", prefix, i)

		if f.Key == "" {
			*errs = append(*errs, VError{Path: fp + ".key", Code: "REQUIRED", Message: "key is required"})
		} else if keys[f.Key] {
			*errs = append(*errs, VError{Path: fp + ".key", Code: "DUPLICATE", Message: fmt.Sprintf("duplicate field key %q", f.Key)})
		}
		keys[f.Key] = true

		if f.Kind == "" {
			*errs = append(*errs, VError{Path: fp + ".kind", Code: "REQUIRED", Message: "kind is required"})
		} else if !model.ValidFieldKind(f.Kind) {
			*errs = append(*errs, VError{Path: fp + ".kind", Code: "INVALID_ENUM", Message: fmt.Sprintf("invalid field kind %q", f.Kind)})
		}

		if model.KindRequiresOptions(f.Kind) && len(f.Options) == 0 && f.LookupID == "" {
			*errs = append(*errs, VError{
				Path:    fp + ".options",
				Code:    "REQUIRED",
				Message: fmt.Sprintf("%s fields need options or a lookup_id", f.Kind),
			})
		}
		if f.LookupID != "" && !lookupIDs[f.LookupID] {
			*errs = append(*errs, VError{
				Path:    fp + ".lookup_id",
				Code:    "REF_NOT_FOUND",
				Message: fmt.Sprintf("lookup %q not found in domain", f.LookupID),
			})
		}
		if f.Pattern != "" {
			if _, err := regexp.Compile(f.Pattern); err != nil {
				*errs = append(*errs, VError{Path: fp + ".pattern", Code: "INVALID_PATTERN", Message: err.Error()})
			}
		}
		if f.VisibleWhen != nil {
			switch f.VisibleWhen.Op {
			case model.OpEquals, model.OpNotEquals, model.OpTruthy, model.OpFalsy:
			default:
				*errs = append(*errs, VError{
					Path:    fp + ".visible_when.op",
					Code:    "INVALID_ENUM",
					Message: fmt.Sprintf("invalid condition op %q", f.VisibleWhen.Op),
				})
			}
		}
	}

	return keys
}

func (v *Validator) validateLookup(prefix string, l model.LookupDefinition, index *openapi.Index) []VError {
	var errs []VError

	if l.ID == "" {
		errs = append(errs, VError{Path: prefix + ".id", Code: "REQUIRED", Message: "id is required"})
	}
	if l.LabelField == "" {
		errs = append(errs, VError{Path: prefix + ".label_field", Code: "REQUIRED", Message: "label_field is required"})
	}
	if l.ValueField == "" {
		errs = append(errs, VError{Path: prefix + ".value_field", Code: "REQUIRED", Message: "value_field is required"})
	}
	if l.Operation.OperationID == "" {
		errs = append(errs, VError{Path: prefix + ".operation.operation_id", Code: "REQUIRED", Message: "operation_id is required"})
	} else if index != nil && l.Operation.ServiceID != "" {
		if _, ok := index.GetOperation(l.Operation.ServiceID, l.Operation.OperationID); !ok {
			errs = append(errs, VError{
				Path:    prefix + ".operation.operation_id",
				Code:    "OPERATION_NOT_FOUND",
				Message: fmt.Sprintf("operation %q not found in service %q", l.Operation.OperationID, l.Operation.ServiceID),
			})
		}
	}
	if l.Cache != nil && l.Cache.TTL != "" {
		if _, err := time.ParseDuration(l.Cache.TTL); err != nil {
			errs = append(errs, VError{Path: prefix + ".cache.ttl", Code: "INVALID_DURATION", Message: err.Error()})
		}
	}

	return errs
}

func (v *Validator) validateWizard(prefix string, w model.WizardDefinition, lookupIDs map[string]bool, index *openapi.Index) []VError {
	var errs []VError

	if w.ID == "" {
		errs = append(errs, VError{Path: prefix + ".id", Code: "REQUIRED", Message: "id is required"})
	}
	if w.Title == "" {
		errs = append(errs, VError{Path: prefix + ".title", Code: "REQUIRED", Message: "title is required"})
	}
	if len(w.Steps) == 0 {
		errs = append(errs, VError{Path: prefix + ".steps", Code: "REQUIRED", Message: "at least one step is required"})
	}
	if w.Create.OperationID == "" {
		errs = append(errs, VError{Path: prefix + ".create.operation_id", Code: "REQUIRED", Message: "create operation is required"})
	} else if index != nil && w.Create.ServiceID != "" {
		if _, ok := index.GetOperation(w.Create.ServiceID, w.Create.OperationID); !ok {
			errs = append(errs, VError{
				Path:    prefix + ".create.operation_id",
				Code:    "OPERATION_NOT_FOUND",
				Message: fmt.Sprintf("operation %q not found in service %q", w.Create.OperationID, w.Create.ServiceID),
			})
		}
	}
	if w.Timeout != "" {
		if _, err := time.ParseDuration(w.Timeout); err != nil {
			errs = append(errs, VError{Path: prefix + ".timeout", Code: "INVALID_DURATION", Message: err.Error()})
		}
	}

	stepIDs := make(map[string]bool)
	for i, s := range w.Steps {
		sp := fmt.Sprintf("%s.steps[%d]", prefix, i)
		if s.ID == "" {
			errs = append(errs, VError{Path: sp + ".id", Code: "REQUIRED", Message: "step id is required"})
		} else if stepIDs[s.ID] {
			errs = append(errs, VError{Path: sp + ".id", Code: "DUPLICATE", Message: fmt.Sprintf("duplicate step id %q", s.ID)})
		}
		stepIDs[s.ID] = true

		v.validateFields(sp+".fields", s.Fields, lookupIDs, &errs)

		if e := s.Enrich; e != nil {
			if e.Operation.OperationID == "" {
				errs = append(errs, VError{Path: sp + ".enrich.operation.operation_id", Code: "REQUIRED", Message: "operation_id is required"})
			} else if index != nil && e.Operation.ServiceID != "" {
				if _, ok := index.GetOperation(e.Operation.ServiceID, e.Operation.OperationID); !ok {
					errs = append(errs, VError{
						Path:    sp + ".enrich.operation.operation_id",
						Code:    "OPERATION_NOT_FOUND",
						Message: fmt.Sprintf("operation %q not found in service %q", e.Operation.OperationID, e.Operation.ServiceID),
					})
				}
			}
		}
	}

	return errs
}
