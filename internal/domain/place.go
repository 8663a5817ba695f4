package domain

import (
	"fmt"
	"strings"
)

// OSMType is the kind of an OpenStreetMap element.
type OSMType string

const (
	OSMNode     OSMType = "node"
	OSMWay      OSMType = "way"
	OSMRelation OSMType = "relation"
)

// ParseOSMType returns the element kind and whether it is one of node, way or relation.
func ParseOSMType(s string) (OSMType, bool) {
	switch OSMType(s) {
	case OSMNode, OSMWay, OSMRelation:
		return OSMType(s), true
	}
	return "", false
}

// Rank orders element kinds for deterministic tie-breaking.
func (t OSMType) Rank() int {
	switch t {
	case OSMNode:
		return 0
	case OSMWay:
		return 1
	case OSMRelation:
		return 2
	}
	return 3
}

// WheelchairStatus is the value of the wheelchair tag.
type WheelchairStatus string

const (
	WheelchairYes     WheelchairStatus = "yes"
	WheelchairNo      WheelchairStatus = "no"
	WheelchairLimited WheelchairStatus = "limited"
	WheelchairUnknown WheelchairStatus = "unknown"
)

// ParseWheelchairStatus validates a caller-supplied wheelchair filter value.
func ParseWheelchairStatus(s string) (WheelchairStatus, error) {
	switch v := WheelchairStatus(strings.ToLower(strings.TrimSpace(s))); v {
	case WheelchairYes, WheelchairNo, WheelchairLimited, WheelchairUnknown:
		return v, nil
	}
	return "", fmt.Errorf("%w: wheelchair must be one of yes, no, limited, unknown; got %q", ErrInvalidInput, s)
}

// ToiletsStatus is the value of the toilets:wheelchair tag.
type ToiletsStatus string

const (
	ToiletsYes     ToiletsStatus = "yes"
	ToiletsNo      ToiletsStatus = "no"
	ToiletsUnknown ToiletsStatus = "unknown"
)

// ParseToiletsStatus validates a caller-supplied toilets_wheelchair filter value.
func ParseToiletsStatus(s string) (ToiletsStatus, error) {
	switch v := ToiletsStatus(strings.ToLower(strings.TrimSpace(s))); v {
	case ToiletsYes, ToiletsNo, ToiletsUnknown:
		return v, nil
	}
	return "", fmt.Errorf("%w: toilets_wheelchair must be one of yes, no, unknown; got %q", ErrInvalidInput, s)
}

// AccessibilityFilter restricts a search. A nil field does not filter.
type AccessibilityFilter struct {
	Wheelchair        *WheelchairStatus `json:"wheelchair,omitempty"`
	ToiletsWheelchair *ToiletsStatus    `json:"toilets_wheelchair,omitempty"`
	StepFree          *bool             `json:"step_free,omitempty"`
}

// Validate rejects enum values outside the accepted sets.
func (f AccessibilityFilter) Validate() error {
	if f.Wheelchair != nil {
		if _, err := ParseWheelchairStatus(string(*f.Wheelchair)); err != nil {
			return err
		}
	}
	if f.ToiletsWheelchair != nil {
		if _, err := ParseToiletsStatus(string(*f.ToiletsWheelchair)); err != nil {
			return err
		}
	}
	return nil
}

// PlaceResult is one normalized, ranked search hit.
// Accessibility fields are nil when the upstream element carries no usable tag.
type PlaceResult struct {
	Name                  string            `json:"name"`
	Lat                   float64           `json:"lat"`
	Lon                   float64           `json:"lon"`
	DistanceM             int               `json:"distance_m"`
	Address               string            `json:"address,omitempty"`
	OSMID                 int64             `json:"osm_id"`
	OSMType               OSMType           `json:"osm_type"`
	Category              string            `json:"category"`
	Wheelchair            *WheelchairStatus `json:"wheelchair,omitempty"`
	WheelchairDescription *string           `json:"wheelchair_description,omitempty"`
	ToiletsWheelchair     *ToiletsStatus    `json:"toilets_wheelchair,omitempty"`
	StepFree              *bool             `json:"step_free,omitempty"`
}

// SearchRequest carries the parameters of a coordinate search.
// RadiusM == 0 selects the configured default radius.
type SearchRequest struct {
	Origin   GeoPoint
	RadiusM  int
	Category string
	Filters  AccessibilityFilter
	Limit    int
}
