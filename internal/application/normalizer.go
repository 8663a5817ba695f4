package application

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"gitlab.com/timkado/api/accessibility-finder-service/internal/domain"
)

var (
	stepFreeKeys  = []string{"step_free_access", "step_free", "entrance:step_free"}
	stepCountKeys = []string{"entrance:step_count", "step_count"}
	addressKeys   = []string{"addr:street", "addr:housenumber", "addr:city"}
)

type elementKey struct {
	kind domain.OSMType
	id   int64
}

// Normalize turns raw provider elements into ranked results. Invalid,
// duplicate and out-of-radius elements are dropped and the accessibility
// filters applied before ordering by distance and truncating to limit.
// elements is not modified.
func Normalize(elements []domain.RawElement, origin domain.GeoPoint, radiusM int, category string, filters domain.AccessibilityFilter, limit int) []domain.PlaceResult {
	seen := make(map[elementKey]struct{}, len(elements))
	results := make([]domain.PlaceResult, 0, len(elements))

	for i := range elements {
		el := &elements[i]
		kind, ok := domain.ParseOSMType(el.Type)
		if !ok || el.ID <= 0 {
			continue
		}
		k := elementKey{kind: kind, id: el.ID}
		if _, dup := seen[k]; dup {
			continue
		}
		point, ok := elementPoint(kind, el)
		if !ok {
			continue
		}
		seen[k] = struct{}{}

		distance := domain.DistanceMeters(origin, point)
		if distance > radiusM {
			continue
		}
		place := domain.PlaceResult{
			Name:                  placeName(el.Tags, category, kind, el.ID),
			Lat:                   point.Lat,
			Lon:                   point.Lon,
			DistanceM:             distance,
			Address:               placeAddress(el.Tags),
			OSMID:                 el.ID,
			OSMType:               kind,
			Category:              category,
			Wheelchair:            wheelchairStatus(el.Tags),
			WheelchairDescription: wheelchairDescription(el.Tags),
			ToiletsWheelchair:     toiletsStatus(el.Tags),
			StepFree:              stepFree(el.Tags),
		}
		if !matchesFilters(place, filters) {
			continue
		}
		results = append(results, place)
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.DistanceM != b.DistanceM {
			return a.DistanceM < b.DistanceM
		}
		if a.OSMID != b.OSMID {
			return a.OSMID < b.OSMID
		}
		return a.OSMType.Rank() < b.OSMType.Rank()
	})

	if limit >= 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// elementPoint picks the coordinates of an element: nodes carry lat/lon,
// ways and relations a center or, failing that, bounds.
func elementPoint(kind domain.OSMType, el *domain.RawElement) (domain.GeoPoint, bool) {
	var p domain.GeoPoint
	switch {
	case kind == domain.OSMNode:
		if el.Lat == nil || el.Lon == nil {
			return p, false
		}
		p = domain.GeoPoint{Lat: *el.Lat, Lon: *el.Lon}
	case el.Center != nil && el.Center.Lat != nil && el.Center.Lon != nil:
		p = domain.GeoPoint{Lat: *el.Center.Lat, Lon: *el.Center.Lon}
	case el.Bounds != nil:
		p = domain.GeoPoint{
			Lat: (el.Bounds.MinLat + el.Bounds.MaxLat) / 2,
			Lon: (el.Bounds.MinLon + el.Bounds.MaxLon) / 2,
		}
	default:
		return p, false
	}
	if math.IsInf(p.Lat, 0) || math.IsInf(p.Lon, 0) || p.Validate() != nil {
		return p, false
	}
	return p, true
}

func tagValue(tags map[string]string, key string) string {
	return strings.ToLower(strings.TrimSpace(tags[key]))
}

func wheelchairStatus(tags map[string]string) *domain.WheelchairStatus {
	var s domain.WheelchairStatus
	switch v := tagValue(tags, wheelchairTag); v {
	case "yes", "designated":
		s = domain.WheelchairYes
	case "no", "limited", "unknown":
		s = domain.WheelchairStatus(v)
	default:
		return nil
	}
	return &s
}

func toiletsStatus(tags map[string]string) *domain.ToiletsStatus {
	var s domain.ToiletsStatus
	switch v := tagValue(tags, toiletsWheelchairTag); v {
	case "yes", "designated":
		s = domain.ToiletsYes
	case "no", "unknown":
		s = domain.ToiletsStatus(v)
	default:
		return nil
	}
	return &s
}

func wheelchairDescription(tags map[string]string) *string {
	for _, key := range []string{"wheelchair:description", "wheelchair:description:en"} {
		if d := strings.TrimSpace(tags[key]); d != "" {
			return &d
		}
	}
	return nil
}

// stepFree infers step-free access from explicit flags first, then from a step count.
func stepFree(tags map[string]string) *bool {
	for _, key := range stepFreeKeys {
		switch tagValue(tags, key) {
		case "yes", "true", "1":
			v := true
			return &v
		case "no", "false", "0":
			v := false
			return &v
		}
	}
	for _, key := range stepCountKeys {
		raw := tagValue(tags, key)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			continue
		}
		v := n == 0
		return &v
	}
	return nil
}

func placeName(tags map[string]string, category string, kind domain.OSMType, id int64) string {
	if name := strings.TrimSpace(tags["name"]); name != "" {
		return name
	}
	if brand := strings.TrimSpace(tags["brand"]); brand != "" {
		return brand
	}
	return fmt.Sprintf("%s (%s:%d)", category, kind, id)
}

func placeAddress(tags map[string]string) string {
	parts := make([]string, 0, len(addressKeys))
	for _, key := range addressKeys {
		if v := strings.TrimSpace(tags[key]); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, ", ")
}

// matchesFilters applies the accessibility filter policy. A filter of
// "unknown" matches an unset or literally unknown value. Any other value
// requires an exact match. step_free=false only excludes places known to be step-free.
func matchesFilters(p domain.PlaceResult, f domain.AccessibilityFilter) bool {
	if f.Wheelchair != nil {
		if *f.Wheelchair == domain.WheelchairUnknown {
			if p.Wheelchair != nil && *p.Wheelchair != domain.WheelchairUnknown {
				return false
			}
		} else if p.Wheelchair == nil || *p.Wheelchair != *f.Wheelchair {
			return false
		}
	}
	if f.ToiletsWheelchair != nil {
		if *f.ToiletsWheelchair == domain.ToiletsUnknown {
			if p.ToiletsWheelchair != nil && *p.ToiletsWheelchair != domain.ToiletsUnknown {
				return false
			}
		} else if p.ToiletsWheelchair == nil || *p.ToiletsWheelchair != *f.ToiletsWheelchair {
			return false
		}
	}
	if f.StepFree != nil {
		known := p.StepFree != nil && *p.StepFree
		if *f.StepFree != known {
			return false
		}
	}
	return true
}
