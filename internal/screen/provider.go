package screen

import (
	"fmt"

	"github.com/shiftwise/console/internal/definition"
	"github.com/shiftwise/console/model"
)

// Provider resolves ScreenDefinitions into ScreenDescriptors for the
// frontend, filtering by the caller's capabilities.
type Provider struct {
	registry *definition.Registry
}

// NewProvider creates a Provider backed by the given definition registry.
func NewProvider(registry *definition.Registry) *Provider {
	return &Provider{registry: registry}
}

// Descriptor resolves a ScreenDescriptor from the definition, filtering by
// capabilities. Returns an error with code NOT_FOUND or FORBIDDEN.
func (p *Provider) Descriptor(caps model.CapabilitySet, screenID string) (model.ScreenDescriptor, error) {
	def, ok := p.registry.GetScreen(screenID)
	if !ok {
		return model.ScreenDescriptor{}, model.NewNotFoundError(
			fmt.Sprintf("screen %q not found", screenID),
		)
	}

	if len(def.Capabilities) > 0 && !caps.HasAll(def.Capabilities...) {
		return model.ScreenDescriptor{}, model.NewForbiddenError(
			fmt.Sprintf("insufficient capabilities for screen %q", screenID),
		)
	}

	desc := model.ScreenDescriptor{
		ID:        def.ID,
		Title:     def.Title,
		Entity:    def.Entity,
		Route:     def.Route,
		Mode:      def.Pagination.Mode,
		PageSize:  def.Pagination.PageSize,
		DataRoute: fmt.Sprintf("/api/screens/%s/state", def.ID),
	}
	if desc.Mode == "" {
		desc.Mode = model.PaginationClient
	}

	for _, col := range def.Columns {
		desc.Columns = append(desc.Columns, model.ColumnDescriptor{
			Key:       col.Key,
			Label:     col.Label,
			Format:    col.Format,
			Width:     col.Width,
			Synthetic: col.Synthetic(),
		})
	}

	for _, f := range def.Fields {
		desc.Fields = append(desc.Fields, resolveField(f))
	}

	desc.RowActions = ResolveActions(caps, def.RowActions)

	return desc, nil
}

// resolveField builds the frontend field descriptor. Lookup-backed option
// kinds carry only the lookup id; the frontend fetches options through the
// lookup endpoint so cache control stays server-side.
func resolveField(f model.FieldDefinition) model.FieldDescriptor {
	fd := model.FieldDescriptor{
		Key:         f.Key,
		Label:       f.Label,
		Kind:        f.Kind,
		Required:    f.Required,
		Pattern:     f.Pattern,
		Message:     f.Message,
		Placeholder: f.Placeholder,
		Default:     f.Default,
		LookupID:    f.LookupID,
		VisibleWhen: f.VisibleWhen,
	}
	for _, opt := range f.Options {
		fd.Options = append(fd.Options, model.OptionDescriptor{
			Label: opt.Label,
			Value: opt.Value,
		})
	}
	return fd
}

// ResolveActions filters action definitions by capabilities and converts
// them to descriptors.
func ResolveActions(caps model.CapabilitySet, actions []model.ActionDefinition) []model.ActionDescriptor {
	var result []model.ActionDescriptor
	for _, a := range actions {
		if len(a.Capabilities) > 0 && !caps.HasAll(a.Capabilities...) {
			continue
		}
		result = append(result, model.ActionDescriptor{
			ID:      a.ID,
			Label:   a.Label,
			Icon:    a.Icon,
			Style:   a.Style,
			Confirm: a.Confirm,
		})
	}
	return result
}
