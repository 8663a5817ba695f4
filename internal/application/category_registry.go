package application

import (
	"fmt"
	"sort"
	"strings"

	"gitlab.com/timkado/api/accessibility-finder-service/internal/domain"
)

// builtinCategories is the fixed set of named categories served by the registry.
var builtinCategories = []domain.CategoryDefinition{
	{Name: "atm", TagFilters: []domain.TagFilter{{Key: "amenity", Value: "atm"}}},
	{Name: "bank", TagFilters: []domain.TagFilter{{Key: "amenity", Value: "bank"}}},
	{Name: "bar", TagFilters: []domain.TagFilter{{Key: "amenity", Value: "bar"}}},
	{Name: "bus_stop", TagFilters: []domain.TagFilter{{Key: "highway", Value: "bus_stop"}}},
	{Name: "cafe", TagFilters: []domain.TagFilter{{Key: "amenity", Value: "cafe"}}},
	{Name: "hospital", TagFilters: []domain.TagFilter{{Key: "amenity", Value: "hospital"}, {Key: "amenity", Value: "clinic"}}},
	{Name: "hotel", TagFilters: []domain.TagFilter{{Key: "tourism", Value: "hotel"}}},
	{Name: "museum", TagFilters: []domain.TagFilter{{Key: "tourism", Value: "museum"}}},
	{Name: "parking", TagFilters: []domain.TagFilter{{Key: "amenity", Value: "parking"}}},
	{Name: "pharmacy", TagFilters: []domain.TagFilter{{Key: "amenity", Value: "pharmacy"}}},
	{Name: "restaurant", TagFilters: []domain.TagFilter{{Key: "amenity", Value: "restaurant"}}},
	{Name: "shop", TagFilters: []domain.TagFilter{{Key: "shop", Value: "yes"}}},
	{Name: "supermarket", TagFilters: []domain.TagFilter{{Key: "shop", Value: "supermarket"}}},
	{Name: "toilets", TagFilters: []domain.TagFilter{{Key: "amenity", Value: "toilets"}}},
}

// CategoryRegistry is the static, read-only domain.CategoryRegistry.
// Besides the named categories it accepts a raw "key=value" tag expression.
type CategoryRegistry struct {
	byName map[string]domain.CategoryDefinition
	sorted []domain.CategoryDefinition
	names  string
}

// NewCategoryRegistry builds the registry from the built-in definitions.
func NewCategoryRegistry() *CategoryRegistry {
	return newCategoryRegistry(builtinCategories)
}

func newCategoryRegistry(defs []domain.CategoryDefinition) *CategoryRegistry {
	r := &CategoryRegistry{
		byName: make(map[string]domain.CategoryDefinition, len(defs)),
		sorted: make([]domain.CategoryDefinition, 0, len(defs)),
	}
	for _, def := range defs {
		def = cloneDefinition(def)
		r.byName[def.Name] = def
		r.sorted = append(r.sorted, def)
	}
	sort.Slice(r.sorted, func(i, j int) bool { return r.sorted[i].Name < r.sorted[j].Name })

	names := make([]string, len(r.sorted))
	for i, def := range r.sorted {
		names[i] = def.Name
	}
	r.names = strings.Join(names, ", ")
	return r
}

// Resolve implements domain.CategoryRegistry.
func (r *CategoryRegistry) Resolve(name string) (domain.CategoryDefinition, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if def, ok := r.byName[normalized]; ok {
		return cloneDefinition(def), nil
	}

	if key, value, ok := strings.Cut(strings.TrimSpace(name), "="); ok {
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if key != "" && value != "" {
			return domain.CategoryDefinition{
				Name:       key + "=" + value,
				TagFilters: []domain.TagFilter{{Key: key, Value: value}},
			}, nil
		}
	}

	return domain.CategoryDefinition{}, fmt.Errorf("%w: %q (supported: %s, or key=value)", domain.ErrNotSupportedCategory, name, r.names)
}

// ListAll implements domain.CategoryRegistry.
func (r *CategoryRegistry) ListAll() []domain.CategoryDefinition {
	out := make([]domain.CategoryDefinition, len(r.sorted))
	for i, def := range r.sorted {
		out[i] = cloneDefinition(def)
	}
	return out
}

// IsBuiltin reports whether name resolves to a named category rather than a raw tag expression.
func (r *CategoryRegistry) IsBuiltin(name string) bool {
	_, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// cloneDefinition copies the filter slice so callers cannot mutate registry state.
func cloneDefinition(def domain.CategoryDefinition) domain.CategoryDefinition {
	def.TagFilters = append([]domain.TagFilter(nil), def.TagFilters...)
	return def
}

var _ domain.CategoryRegistry = (*CategoryRegistry)(nil)
