package model

// NavigationTree is the top-level navigation structure returned to the frontend.
type NavigationTree struct {
	Items []NavigationNode `json:"items"`
}

// NavigationNode is a single node in the navigation tree.
type NavigationNode struct {
	ID       string           `json:"id"`
	Label    string           `json:"label"`
	Icon     string           `json:"icon"`
	Route    string           `json:"route,omitempty"`
	Children []NavigationNode `json:"children"`
	Badge    *BadgeDescriptor `json:"badge,omitempty"`
}

// BadgeDescriptor describes a count badge on a navigation item.
type BadgeDescriptor struct {
	Count int    `json:"count"`
	Style string `json:"style"`
}

// ScreenDescriptor is the resolved CRUD screen sent to the frontend.
type ScreenDescriptor struct {
	ID         string             `json:"id"`
	Title      string             `json:"title"`
	Entity     string             `json:"entity"`
	Route      string             `json:"route"`
	Mode       string             `json:"pagination_mode"`
	PageSize   int                `json:"page_size"`
	Columns    []ColumnDescriptor `json:"columns"`
	Fields     []FieldDescriptor  `json:"fields"`
	RowActions []ActionDescriptor `json:"row_actions,omitempty"`
	DataRoute  string             `json:"data_route"`
}

// ColumnDescriptor describes a visible table column.
type ColumnDescriptor struct {
	Key       string `json:"key"`
	Label     string `json:"label"`
	Format    string `json:"format,omitempty"`
	Width     string `json:"width,omitempty"`
	Synthetic bool   `json:"synthetic,omitempty"`
}

// FieldDescriptor is a resolved form field sent to the frontend.
type FieldDescriptor struct {
	Key         string             `json:"key"`
	Label       string             `json:"label"`
	Kind        string             `json:"kind"`
	Required    bool               `json:"required"`
	Pattern     string             `json:"pattern,omitempty"`
	Message     string             `json:"message,omitempty"`
	Placeholder string             `json:"placeholder,omitempty"`
	Default     any                `json:"default,omitempty"`
	Options     []OptionDescriptor `json:"options,omitempty"`
	LookupID    string             `json:"lookup_id,omitempty"`
	VisibleWhen *Condition         `json:"visible_when,omitempty"`
}

// OptionDescriptor is a resolved option for selects, radios, and filters.
type OptionDescriptor struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// ActionDescriptor is a resolved row action sent to the frontend.
type ActionDescriptor struct {
	ID      string                  `json:"id"`
	Label   string                  `json:"label"`
	Icon    string                  `json:"icon,omitempty"`
	Style   string                  `json:"style,omitempty"`
	Confirm *ConfirmationDefinition `json:"confirm,omitempty"`
}

// Row is one mapped view row: draft-compatible attribute names with
// coerced values.
type Row map[string]any

// RecordPage is the normalized result of a backend list call.
type RecordPage struct {
	Items      []map[string]any `json:"items"`
	TotalCount int              `json:"total_count"`
}

// DataResponse is the standardized data response for screen data requests.
type DataResponse struct {
	Data DataPayload    `json:"data"`
	Meta map[string]any `json:"meta,omitempty"`
}

// DataPayload contains the rows and pagination for a data response.
type DataPayload struct {
	Items        []Row  `json:"items"`
	TotalCount   int    `json:"total_count"`
	Page         int    `json:"page"`
	PageSize     int    `json:"page_size"`
	TotalPages   int    `json:"total_pages"`
	EmptyMessage string `json:"empty_message,omitempty"`
}

// MutationResult is the interpreted outcome of a create/update/delete call.
// Success mirrors the backend envelope's success flag; a false value on a
// 2xx response is an application rejection, not a transport failure.
type MutationResult struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
	Errors  []FieldError   `json:"errors,omitempty"`
}

// LookupResponse is the response from a lookup endpoint.
type LookupResponse struct {
	Data LookupPayload  `json:"data"`
	Meta map[string]any `json:"meta,omitempty"`
}

// LookupPayload contains the lookup options.
type LookupPayload struct {
	Options []OptionDescriptor `json:"options"`
}
