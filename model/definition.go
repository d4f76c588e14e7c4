package model

// DomainDefinition is the root structure of a definition file. Each file
// declares one domain's navigation entry, screens, lookups, and wizards.
type DomainDefinition struct {
	Domain     string               `yaml:"domain"     json:"domain"`
	Version    string               `yaml:"version"    json:"version"`
	Navigation NavigationDefinition `yaml:"navigation" json:"navigation"`
	Screens    []ScreenDefinition   `yaml:"screens"    json:"screens,omitempty"`
	Lookups    []LookupDefinition   `yaml:"lookups"    json:"lookups,omitempty"`
	Wizards    []WizardDefinition   `yaml:"wizards"    json:"wizards,omitempty"`

	// Checksum is computed at load time and not part of the YAML.
	Checksum string `yaml:"-" json:"-"`
	// SourceFile records the originating file path.
	SourceFile string `yaml:"-" json:"-"`
}

// NavigationDefinition describes a domain's menu entry.
type NavigationDefinition struct {
	Label        string                      `yaml:"label"        json:"label"`
	Icon         string                      `yaml:"icon"         json:"icon"`
	Order        int                         `yaml:"order"        json:"order"`
	Capabilities []string                    `yaml:"capabilities" json:"capabilities"`
	Children     []NavigationChildDefinition `yaml:"children"     json:"children"`
}

// NavigationChildDefinition describes a child navigation item in the menu.
type NavigationChildDefinition struct {
	Label        string           `yaml:"label"        json:"label"`
	Icon         string           `yaml:"icon"         json:"icon,omitempty"`
	Route        string           `yaml:"route"        json:"route"`
	ScreenID     string           `yaml:"screen_id"    json:"screen_id"`
	Capabilities []string         `yaml:"capabilities" json:"capabilities"`
	Order        int              `yaml:"order"        json:"order"`
	Badge        *BadgeDefinition `yaml:"badge"        json:"badge,omitempty"`
}

// BadgeDefinition describes a count badge on a navigation item.
type BadgeDefinition struct {
	ServiceID   string `yaml:"service_id"   json:"service_id,omitempty"`
	OperationID string `yaml:"operation_id" json:"operation_id"`
	Field       string `yaml:"field"        json:"field"`
	Style       string `yaml:"style"        json:"style"`
}

// ScreenDefinition describes one entity's CRUD screen: a paginated table
// plus the add/edit/delete form driven by field definitions.
type ScreenDefinition struct {
	ID           string             `yaml:"id"           json:"id"`
	Title        string             `yaml:"title"        json:"title"`
	Entity       string             `yaml:"entity"       json:"entity"`
	Route        string             `yaml:"route"        json:"route"`
	Capabilities []string           `yaml:"capabilities" json:"capabilities"`
	Resource     ResourceBinding    `yaml:"resource"     json:"resource"`
	Pagination   PaginationSettings `yaml:"pagination"   json:"pagination"`
	Columns      []ColumnDefinition `yaml:"columns"      json:"columns"`
	RowMap       []RowFieldMapping  `yaml:"row_map"      json:"row_map,omitempty"`
	Fields       []FieldDefinition  `yaml:"fields"       json:"fields"`
	Submit       SubmitMapping      `yaml:"submit"       json:"submit"`
	RowActions   []ActionDefinition `yaml:"row_actions"  json:"row_actions,omitempty"`
}

// Delete transmission styles. Backends are inconsistent about whether the
// record id travels as query parameters or as a JSON body, so the style is
// declared per resource rather than inferred.
const (
	DeleteStyleQuery = "query"
	DeleteStyleBody  = "body"
)

// ResourceBinding binds a screen to the four backend operations of its
// resource. Operations are OpenAPI operation ids resolved through the
// service's indexed specification.
type ResourceBinding struct {
	ServiceID   string `yaml:"service_id"   json:"service_id"`
	ListOp      string `yaml:"list_op"      json:"list_op"`
	CreateOp    string `yaml:"create_op"    json:"create_op"`
	UpdateOp    string `yaml:"update_op"    json:"update_op"`
	DeleteOp    string `yaml:"delete_op"    json:"delete_op"`
	DeleteStyle string `yaml:"delete_style" json:"delete_style,omitempty"`

	// ItemsPath is the dot path of the item array inside the list response
	// envelope. When empty the client auto-detects the common shapes
	// ("data", "results", or a single nested array under "data").
	ItemsPath string `yaml:"items_path" json:"items_path,omitempty"`
	// TotalPath is the dot path of the total record count. Defaults to
	// "total_count" with a fallback to the item count.
	TotalPath string `yaml:"total_path" json:"total_path,omitempty"`
	// IDField names the record identity attribute. Defaults to "id".
	IDField string `yaml:"id_field" json:"id_field,omitempty"`
}

// Pagination modes. Client mode fetches the full row set once and slices
// locally; server mode passes page/limit upstream and trusts the returned
// total count. The source system mixes both across screens, so the mode is
// an explicit per-screen setting.
const (
	PaginationClient = "client"
	PaginationServer = "server"
)

// PaginationSettings describes how a screen paginates.
type PaginationSettings struct {
	Mode          string `yaml:"mode"            json:"mode"`
	PageSize      int    `yaml:"page_size"       json:"page_size,omitempty"`
	ResetOnCreate bool   `yaml:"reset_on_create" json:"reset_on_create,omitempty"`
}

// Synthetic column keys. "sno" renders a continuous serial number across
// pages; "actions" renders the per-row action cell.
const (
	ColumnSerial  = "sno"
	ColumnActions = "actions"
)

// ColumnDefinition describes a table column.
type ColumnDefinition struct {
	Key    string `yaml:"key"    json:"key"`
	Label  string `yaml:"label"  json:"label"`
	Format string `yaml:"format" json:"format,omitempty"`
	Width  string `yaml:"width"  json:"width,omitempty"`
}

// Synthetic returns true for columns not backed by a row attribute.
func (c ColumnDefinition) Synthetic() bool {
	return c.Key == ColumnSerial || c.Key == ColumnActions
}

// Row value coercions applied when mapping raw API records to view rows.
const (
	CoerceNoneToZero = "none_to_zero"
	CoerceBool       = "bool"
	CoerceInt        = "int"
	CoerceString     = "string"
)

// RowFieldMapping maps one attribute of a raw API record onto a view row
// attribute, with an optional coercion for the backend's loose typing
// (e.g. the "none" sentinel for zero, 0/1/"true" for booleans).
type RowFieldMapping struct {
	Key     string `yaml:"key"     json:"key"`
	Source  string `yaml:"source"  json:"source,omitempty"`
	Coerce  string `yaml:"coerce"  json:"coerce,omitempty"`
	Default any    `yaml:"default" json:"default,omitempty"`
}

// Field kinds determine the rendered control and the value type of the
// draft attribute.
const (
	KindText          = "text"
	KindNumber        = "number"
	KindTextarea      = "textarea"
	KindSelect        = "select"
	KindRadio         = "radio"
	KindCheckboxGroup = "checkbox_group"
	KindDate          = "date"
	KindDatetime      = "datetime"
	KindFile          = "file"
	KindToggle        = "toggle"
)

// ValidFieldKind reports whether kind is one of the supported field kinds.
func ValidFieldKind(kind string) bool {
	switch kind {
	case KindText, KindNumber, KindTextarea, KindSelect, KindRadio,
		KindCheckboxGroup, KindDate, KindDatetime, KindFile, KindToggle:
		return true
	}
	return false
}

// KindRequiresOptions reports whether fields of this kind must carry a
// non-empty option list or a lookup reference.
func KindRequiresOptions(kind string) bool {
	switch kind {
	case KindSelect, KindRadio, KindCheckboxGroup:
		return true
	}
	return false
}

// ZeroValueForKind returns the zero value submitted for a hidden field of
// the given kind.
func ZeroValueForKind(kind string) any {
	switch kind {
	case KindNumber:
		return 0
	case KindToggle:
		return false
	case KindCheckboxGroup:
		return []string{}
	default:
		return ""
	}
}

// FieldDefinition describes a single form field.
type FieldDefinition struct {
	Key         string         `yaml:"key"          json:"key"`
	Label       string         `yaml:"label"        json:"label"`
	Kind        string         `yaml:"kind"         json:"kind"`
	Required    bool           `yaml:"required"     json:"required,omitempty"`
	Pattern     string         `yaml:"pattern"      json:"pattern,omitempty"`
	Message     string         `yaml:"message"      json:"message,omitempty"`
	Placeholder string         `yaml:"placeholder"  json:"placeholder,omitempty"`
	Default     any            `yaml:"default"      json:"default,omitempty"`
	Options     []StaticOption `yaml:"options"      json:"options,omitempty"`
	LookupID    string         `yaml:"lookup_id"    json:"lookup_id,omitempty"`
	VisibleWhen *Condition     `yaml:"visible_when" json:"visible_when,omitempty"`

	// ZeroWhenHidden forces the field back to its kind's zero value at
	// submit time whenever VisibleWhen evaluates false. Hiding alone never
	// clears a draft value; the reset must be declared.
	ZeroWhenHidden bool `yaml:"zero_when_hidden" json:"zero_when_hidden,omitempty"`
}

// StaticOption is a label/value pair for option kinds.
type StaticOption struct {
	Label string `yaml:"label" json:"label"`
	Value string `yaml:"value" json:"value"`
}

// Condition operators for visibility and cascade triggers.
const (
	OpEquals    = "equals"
	OpNotEquals = "not_equals"
	OpTruthy    = "truthy"
	OpFalsy     = "falsy"
)

// Condition is a predicate over the current draft.
type Condition struct {
	Field string `yaml:"field" json:"field"`
	Op    string `yaml:"op"    json:"op"`
	Value string `yaml:"value" json:"value,omitempty"`
}

// SubmitMapping describes how a submitted draft becomes a request payload.
type SubmitMapping struct {
	// Rename maps draft keys to backend payload field names. Keys not
	// listed pass through unchanged.
	Rename map[string]string `yaml:"rename" json:"rename,omitempty"`
	// Cascades are applied in order before renaming: when the condition
	// holds against the draft, the Set values are forced into the payload.
	Cascades []CascadeRule `yaml:"cascades" json:"cascades,omitempty"`
}

// CascadeRule forces dependent values when its trigger condition holds.
// The rule is a domain invariant, not a UI nicety: a disabled parent toggle
// must never ship stale child values to the backend.
type CascadeRule struct {
	When Condition      `yaml:"when" json:"when"`
	Set  map[string]any `yaml:"set"  json:"set"`
}

// ActionDefinition describes a per-row action (edit, delete, custom).
type ActionDefinition struct {
	ID           string                  `yaml:"id"           json:"id"`
	Label        string                  `yaml:"label"        json:"label"`
	Icon         string                  `yaml:"icon"         json:"icon,omitempty"`
	Style        string                  `yaml:"style"        json:"style,omitempty"`
	Capabilities []string                `yaml:"capabilities" json:"capabilities,omitempty"`
	Confirm      *ConfirmationDefinition `yaml:"confirm"      json:"confirm,omitempty"`
}

// ConfirmationDefinition describes a confirmation dialog.
type ConfirmationDefinition struct {
	Title   string `yaml:"title"   json:"title"`
	Message string `yaml:"message" json:"message"`
	Confirm string `yaml:"confirm" json:"confirm"`
	Cancel  string `yaml:"cancel"  json:"cancel,omitempty"`
}

// LookupDefinition describes an option provider for select/radio fields.
type LookupDefinition struct {
	ID         string           `yaml:"id"          json:"id"`
	Operation  OperationBinding `yaml:"operation"   json:"operation"`
	ItemsPath  string           `yaml:"items_path"  json:"items_path,omitempty"`
	LabelField string           `yaml:"label_field" json:"label_field"`
	ValueField string           `yaml:"value_field" json:"value_field"`
	Cache      *CacheSettings   `yaml:"cache"       json:"cache,omitempty"`
}

// CacheSettings describes caching for a lookup.
type CacheSettings struct {
	TTL   string `yaml:"ttl"   json:"ttl"`
	Scope string `yaml:"scope" json:"scope,omitempty"`
}

// OperationBinding names a single backend operation.
type OperationBinding struct {
	ServiceID   string `yaml:"service_id"   json:"service_id"`
	OperationID string `yaml:"operation_id" json:"operation_id"`
}

// WizardDefinition describes a multi-step form (the client/site onboarding
// flow). Each step carries its own field list; values accumulate across
// steps and the final step submits the combined payload.
type WizardDefinition struct {
	ID           string           `yaml:"id"           json:"id"`
	Title        string           `yaml:"title"        json:"title"`
	Capabilities []string         `yaml:"capabilities" json:"capabilities"`
	Steps        []StepDefinition `yaml:"steps"        json:"steps"`
	Submit       SubmitMapping    `yaml:"submit"       json:"submit"`
	// Create names the operation that receives the combined payload.
	Create OperationBinding `yaml:"create" json:"create"`
	// Timeout is how long an instance may stay idle before expiry.
	Timeout string `yaml:"timeout" json:"timeout,omitempty"`
}

// StepDefinition describes one wizard step.
type StepDefinition struct {
	ID     string            `yaml:"id"     json:"id"`
	Title  string            `yaml:"title"  json:"title"`
	Fields []FieldDefinition `yaml:"fields" json:"fields"`
	// Enrich optionally names an operation invoked after the step's values
	// are accepted; its response fields are merged into the wizard state
	// (e.g. geocoding a site address into geofence coordinates).
	Enrich *EnrichBinding `yaml:"enrich" json:"enrich,omitempty"`
}

// EnrichBinding invokes a backend operation between wizard steps.
type EnrichBinding struct {
	Operation OperationBinding `yaml:"operation" json:"operation"`
	// Params maps operation query parameters to wizard state keys.
	Params map[string]string `yaml:"params" json:"params,omitempty"`
	// Merge maps wizard state keys to response dot paths.
	Merge map[string]string `yaml:"merge" json:"merge,omitempty"`
}
