package domain

// WildcardValue in a TagFilter matches any value of the key (key presence).
const WildcardValue = "*"

// TagFilter is a key/value predicate over an OSM element's tags.
type TagFilter struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// IsWildcard reports whether the filter only requires the key to be present.
func (f TagFilter) IsWildcard() bool {
	return f.Value == WildcardValue
}

// CategoryDefinition maps a category name to the tag filters that define it.
// Filters of one category are combined with OR semantics.
type CategoryDefinition struct {
	Name       string      `json:"name"`
	TagFilters []TagFilter `json:"tag_filters"`
}

// CategoryRegistry resolves category names. It is read-only after construction.
type CategoryRegistry interface {
	// Resolve returns the definition for name or an error wrapping ErrNotSupportedCategory.
	Resolve(name string) (CategoryDefinition, error)

	// ListAll returns every built-in definition ordered by name.
	ListAll() []CategoryDefinition
}
