package screen

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/shiftwise/console/internal/definition"
	"github.com/shiftwise/console/internal/resource"
	"github.com/shiftwise/console/model"
)

// MenuProvider builds a NavigationTree from definitions filtered by
// capabilities.
type MenuProvider struct {
	registry *definition.Registry
	invoker  *resource.Invoker
	logger   *zap.Logger
}

// NewMenuProvider creates a MenuProvider. The invoker is used for optional
// badge resolution and may be nil if badges are not needed.
func NewMenuProvider(registry *definition.Registry, invoker *resource.Invoker, logger *zap.Logger) *MenuProvider {
	return &MenuProvider{
		registry: registry,
		invoker:  invoker,
		logger:   logger,
	}
}

// GetMenu builds the navigation tree from all domain definitions, filtering
// items by the given capability set. Badge counts are resolved on a
// best-effort basis; failures are logged and the badge omitted.
func (p *MenuProvider) GetMenu(ctx context.Context, rctx *model.RequestContext, caps model.CapabilitySet) (model.NavigationTree, error) {
	domains := p.registry.AllDomains()

	var nodes []model.NavigationNode
	for _, domain := range domains {
		nav := domain.Navigation

		if len(nav.Capabilities) > 0 && !caps.HasAll(nav.Capabilities...) {
			continue
		}

		node := model.NavigationNode{
			ID:    domain.Domain,
			Label: nav.Label,
			Icon:  nav.Icon,
		}

		var children []orderedChild
		for _, child := range nav.Children {
			if len(child.Capabilities) > 0 && !caps.HasAll(child.Capabilities...) {
				continue
			}

			childNode := model.NavigationNode{
				ID:    child.ScreenID,
				Label: child.Label,
				Icon:  child.Icon,
				Route: child.Route,
			}

			if child.Badge != nil && child.Badge.OperationID != "" {
				childNode.Badge = p.resolveBadge(ctx, rctx, domain, child)
			}

			children = append(children, orderedChild{order: child.Order, node: childNode})
		}

		sort.Slice(children, func(i, j int) bool {
			return children[i].order < children[j].order
		})

		node.Children = make([]model.NavigationNode, len(children))
		for i, c := range children {
			node.Children[i] = c.node
		}

		nodes = append(nodes, node)
	}

	sort.Slice(nodes, func(i, j int) bool {
		return domainOrder(domains, nodes[i].ID) < domainOrder(domains, nodes[j].ID)
	})

	return model.NavigationTree{Items: nodes}, nil
}

// orderedChild pairs a navigation node with its sort order.
type orderedChild struct {
	order int
	node  model.NavigationNode
}

func domainOrder(domains []model.DomainDefinition, domainID string) int {
	for _, d := range domains {
		if d.Domain == domainID {
			return d.Navigation.Order
		}
	}
	return 0
}

// resolveBadge fetches a badge count by invoking the badge operation.
// Returns nil if the invoker is not configured or the invocation fails.
func (p *MenuProvider) resolveBadge(
	ctx context.Context,
	rctx *model.RequestContext,
	domain model.DomainDefinition,
	child model.NavigationChildDefinition,
) *model.BadgeDescriptor {
	if p.invoker == nil {
		return nil
	}

	badge := child.Badge
	serviceID := badge.ServiceID
	if serviceID == "" {
		serviceID = domain.Domain
	}

	result, err := p.invoker.Invoke(ctx, rctx, serviceID, badge.OperationID, resource.Input{
		QueryParams: map[string]string{"org_id": rctx.OrgID},
	})
	if err != nil || result.StatusCode >= 300 {
		p.logger.Debug("badge resolution failed",
			zap.String("service", serviceID),
			zap.String("operation", badge.OperationID),
			zap.Error(err))
		return nil
	}

	count := extractBadgeCount(result.Body, badge.Field)
	if count <= 0 {
		return nil
	}

	return &model.BadgeDescriptor{
		Count: count,
		Style: badge.Style,
	}
}

// extractBadgeCount reads an integer count from a response body, following
// a dot path when the field declares one.
func extractBadgeCount(body any, field string) int {
	if field == "" || body == nil {
		return 0
	}
	val, ok := resource.NavigatePath(body, field)
	if !ok {
		return 0
	}
	switch v := val.(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}
