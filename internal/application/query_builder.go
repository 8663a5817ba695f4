package application

import (
	"fmt"
	"strconv"
	"strings"

	"gitlab.com/timkado/api/accessibility-finder-service/internal/adapters/config"
	"gitlab.com/timkado/api/accessibility-finder-service/internal/domain"
)

const (
	wheelchairTag        = "wheelchair"
	toiletsWheelchairTag = "toilets:wheelchair"
)

var osmElementKinds = [...]domain.OSMType{domain.OSMNode, domain.OSMWay, domain.OSMRelation}

// QueryBuilder renders bounded Overpass QL queries. Rendering is deterministic:
// equal inputs produce byte-identical QL, which is what the POI cache keys on.
type QueryBuilder struct {
	cfgProvider config.Provider
}

// NewQueryBuilder creates a new QueryBuilder.
func NewQueryBuilder(cfgProvider config.Provider) *QueryBuilder {
	return &QueryBuilder{cfgProvider: cfgProvider}
}

// Build resolves the effective radius, selects the filters that are safe to
// push down, and renders the QL.
func (b *QueryBuilder) Build(origin domain.GeoPoint, radiusM int, category domain.CategoryDefinition, filters domain.AccessibilityFilter) (domain.POIQuery, error) {
	if err := origin.Validate(); err != nil {
		return domain.POIQuery{}, err
	}
	if len(category.TagFilters) == 0 {
		return domain.POIQuery{}, fmt.Errorf("%w: category %q has no tag filters", domain.ErrInvalidInput, category.Name)
	}
	for _, tf := range category.TagFilters {
		if tf.Key == "" || tf.Value == "" {
			return domain.POIQuery{}, fmt.Errorf("%w: category %q has an empty tag filter", domain.ErrInvalidInput, category.Name)
		}
	}

	cfg := b.cfgProvider.Get()
	radius, err := effectiveRadius(radiusM, cfg.Search)
	if err != nil {
		return domain.POIQuery{}, err
	}

	q := domain.POIQuery{
		Origin:         origin,
		RadiusM:        radius,
		Category:       category.Name,
		Clauses:        append([]domain.TagFilter(nil), category.TagFilters...),
		Pushed:         pushableFilters(filters),
		TimeoutSeconds: cfg.Upstream.OverpassQueryTimeoutSeconds,
	}
	q.QL = renderQL(q)
	return q, nil
}

// effectiveRadius maps 0 to the default and clamps into the configured bounds.
func effectiveRadius(radiusM int, cfg config.SearchConfig) (int, error) {
	switch {
	case radiusM < 0:
		return 0, fmt.Errorf("%w: radius_m must not be negative, got %d", domain.ErrInvalidInput, radiusM)
	case radiusM == 0:
		radiusM = cfg.DefaultRadiusM
	}
	if radiusM < cfg.MinRadiusM {
		return cfg.MinRadiusM, nil
	}
	if radiusM > cfg.MaxRadiusM {
		return cfg.MaxRadiusM, nil
	}
	return radiusM, nil
}

// pushableFilters returns the filters the upstream can evaluate without
// dropping anything the local match would keep.
// "unknown" covers absent tags and step-free access is inferred from several
// keys, so neither is expressible as a single tag predicate.
func pushableFilters(f domain.AccessibilityFilter) []domain.TagFilter {
	var pushed []domain.TagFilter
	if f.Wheelchair != nil {
		switch *f.Wheelchair {
		case domain.WheelchairYes, domain.WheelchairNo, domain.WheelchairLimited:
			pushed = append(pushed, domain.TagFilter{Key: wheelchairTag, Value: string(*f.Wheelchair)})
		}
	}
	if f.ToiletsWheelchair != nil {
		switch *f.ToiletsWheelchair {
		case domain.ToiletsYes, domain.ToiletsNo:
			pushed = append(pushed, domain.TagFilter{Key: toiletsWheelchairTag, Value: string(*f.ToiletsWheelchair)})
		}
	}
	return pushed
}

func renderQL(q domain.POIQuery) string {
	around := fmt.Sprintf("(around:%d,%s,%s)", q.RadiusM, formatCoord(q.Origin.Lat), formatCoord(q.Origin.Lon))

	var pushed strings.Builder
	for _, tf := range q.Pushed {
		pushed.WriteString(renderPushedFilter(tf))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "[out:json][timeout:%d];\n(\n", q.TimeoutSeconds)
	for _, clause := range q.Clauses {
		selector := renderTagFilter(clause) + pushed.String()
		for _, kind := range osmElementKinds {
			fmt.Fprintf(&sb, "  %s%s%s;\n", kind, around, selector)
		}
	}
	sb.WriteString(");\nout center tags;\n")
	return sb.String()
}

func renderTagFilter(tf domain.TagFilter) string {
	if tf.IsWildcard() {
		return "[" + quoteQL(tf.Key) + "]"
	}
	return "[" + quoteQL(tf.Key) + "=" + quoteQL(tf.Value) + "]"
}

// renderPushedFilter matches every raw tag value the normalizer reads as
// tf.Value: case-insensitive, surrounding spaces allowed, "designated" as "yes".
func renderPushedFilter(tf domain.TagFilter) string {
	values := []string{tf.Value}
	if tf.Value == "yes" {
		values = append(values, "designated")
	}
	pattern := "^ *(" + strings.Join(values, "|") + ") *$"
	return "[" + quoteQL(tf.Key) + "~" + quoteQL(pattern) + ",i]"
}

var qlEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func quoteQL(s string) string {
	return `"` + qlEscaper.Replace(s) + `"`
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
