package lookup

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shiftwise/console/internal/definition"
	"github.com/shiftwise/console/internal/resource"
	"github.com/shiftwise/console/model"
)

// Provider resolves LookupDefinitions to option lists with caching. Lookup
// backends are reference data (designations, departments, clients), so the
// default TTL is generous and the cache key scope is declared per lookup.
type Provider struct {
	registry   *definition.Registry
	invoker    *resource.Invoker
	defaultTTL time.Duration
	maxEntries int

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	options   []model.OptionDescriptor
	expiresAt time.Time
}

// NewProvider creates a lookup provider.
func NewProvider(registry *definition.Registry, invoker *resource.Invoker, defaultTTL time.Duration, maxEntries int) *Provider {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &Provider{
		registry:   registry,
		invoker:    invoker,
		defaultTTL: defaultTTL,
		maxEntries: maxEntries,
		cache:      make(map[string]cacheEntry),
	}
}

// GetLookup resolves a lookup definition to an option list, optionally
// filtered by a query string.
func (p *Provider) GetLookup(
	ctx context.Context,
	rctx *model.RequestContext,
	lookupID string,
	query string,
) (model.LookupResponse, error) {
	def, ok := p.registry.GetLookup(lookupID)
	if !ok {
		return model.LookupResponse{}, model.NewNotFoundError(
			fmt.Sprintf("lookup %q not found", lookupID),
		)
	}

	cacheKey := p.buildCacheKey(def, rctx)

	if options, hit := p.getFromCache(cacheKey); hit {
		return model.LookupResponse{
			Data: model.LookupPayload{Options: filterOptions(options, query)},
			Meta: map[string]any{"cached": true},
		}, nil
	}

	options, err := p.fetchFromBackend(ctx, rctx, def)
	if err != nil {
		return model.LookupResponse{}, err
	}

	ttl := p.defaultTTL
	if def.Cache != nil && def.Cache.TTL != "" {
		if parsed, parseErr := time.ParseDuration(def.Cache.TTL); parseErr == nil {
			ttl = parsed
		}
	}
	p.putInCache(cacheKey, options, ttl)

	return model.LookupResponse{
		Data: model.LookupPayload{Options: filterOptions(options, query)},
		Meta: map[string]any{"cached": false},
	}, nil
}

// buildCacheKey scopes the cache entry. Organisation scope keeps tenant
// reference data separate; global scope is for shared vocabularies.
func (p *Provider) buildCacheKey(def model.LookupDefinition, rctx *model.RequestContext) string {
	scope := "org"
	if def.Cache != nil && def.Cache.Scope != "" {
		scope = def.Cache.Scope
	}
	if scope == "global" {
		return "lookup:" + def.ID
	}
	return fmt.Sprintf("lookup:%s:%s", def.ID, rctx.OrgID)
}

func (p *Provider) getFromCache(key string) ([]model.OptionDescriptor, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entry, exists := p.cache[key]
	if !exists || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.options, true
}

func (p *Provider) putInCache(key string, options []model.OptionDescriptor, ttl time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.cache) >= p.maxEntries {
		p.evictExpired()
	}

	p.cache[key] = cacheEntry{
		options:   options,
		expiresAt: time.Now().Add(ttl),
	}
}

// evictExpired removes expired entries. Must be called with mu held.
func (p *Provider) evictExpired() {
	now := time.Now()
	for k, v := range p.cache {
		if now.After(v.expiresAt) {
			delete(p.cache, k)
		}
	}
}

// Invalidate removes cached entries for a lookup. An empty orgID clears
// every scope of that lookup; used after mutations on the source screen.
func (p *Provider) Invalidate(lookupID, orgID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for k := range p.cache {
		if !strings.HasPrefix(k, "lookup:"+lookupID) {
			continue
		}
		if orgID == "" || strings.HasSuffix(k, ":"+orgID) {
			delete(p.cache, k)
		}
	}
}

// CacheLen returns the number of entries in the cache. For testing.
func (p *Provider) CacheLen() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.cache)
}

// fetchFromBackend invokes the lookup operation and maps results.
func (p *Provider) fetchFromBackend(
	ctx context.Context,
	rctx *model.RequestContext,
	def model.LookupDefinition,
) ([]model.OptionDescriptor, error) {
	result, err := p.invoker.Invoke(ctx, rctx, def.Operation.ServiceID, def.Operation.OperationID, resource.Input{
		QueryParams: map[string]string{"org_id": rctx.OrgID},
	})
	if err != nil {
		return nil, fmt.Errorf("lookup %q: %w", def.ID, err)
	}

	if result.StatusCode < 200 || result.StatusCode >= 300 {
		return nil, fmt.Errorf("lookup %q: backend returned status %d", def.ID, result.StatusCode)
	}

	return mapOptions(result.Body, def), nil
}

// mapOptions transforms the backend response into OptionDescriptors.
func mapOptions(body any, def model.LookupDefinition) []model.OptionDescriptor {
	items := extractItems(body, def.ItemsPath)
	if items == nil {
		return nil
	}

	options := make([]model.OptionDescriptor, 0, len(items))
	for _, item := range items {
		label := getString(item, def.LabelField)
		value := getString(item, def.ValueField)
		if label == "" && value == "" {
			continue
		}
		options = append(options, model.OptionDescriptor{
			Label: label,
			Value: value,
		})
	}
	return options
}

// extractItems pulls the item array out of the response body. A declared
// items path wins; otherwise the common envelope shapes are tried.
func extractItems(body any, itemsPath string) []map[string]any {
	if itemsPath != "" {
		if v, ok := resource.NavigatePath(body, itemsPath); ok {
			if arr, ok := v.([]any); ok {
				return toMapSlice(arr)
			}
		}
		return nil
	}

	if arr, ok := body.([]any); ok {
		return toMapSlice(arr)
	}
	if m, ok := body.(map[string]any); ok {
		for _, key := range []string{"data", "items", "results"} {
			if arr, ok := m[key].([]any); ok {
				return toMapSlice(arr)
			}
		}
	}
	return nil
}

// toMapSlice converts []any to []map[string]any, skipping non-map items.
func toMapSlice(arr []any) []map[string]any {
	result := make([]map[string]any, 0, len(arr))
	for _, item := range arr {
		if m, ok := item.(map[string]any); ok {
			result = append(result, m)
		}
	}
	return result
}

// getString extracts a string value from a map, returning "" if not found.
// Non-string scalars (numeric ids) are formatted.
func getString(m map[string]any, key string) string {
	if key == "" {
		return ""
	}
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	if f, ok := v.(float64); ok && f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprint(v)
}

// filterOptions filters options by a case-insensitive match on label.
func filterOptions(options []model.OptionDescriptor, query string) []model.OptionDescriptor {
	if query == "" {
		return options
	}

	q := strings.ToLower(query)
	var filtered []model.OptionDescriptor
	for _, opt := range options {
		if strings.Contains(strings.ToLower(opt.Label), q) {
			filtered = append(filtered, opt)
		}
	}
	return filtered
}
