package domain

import "context"

// POIQuery is a bounded spatial query ready to be sent to the POI provider.
// QL is the rendered query text; it is a pure function of the other fields
// and doubles as the canonical form for cache keys.
type POIQuery struct {
	Origin         GeoPoint
	RadiusM        int
	Category       string
	Clauses        []TagFilter
	Pushed         []TagFilter
	TimeoutSeconds int
	QL             string
}

// LatLon is a coordinate pair as encoded by the POI provider.
type LatLon struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

// Bounds is the bounding box of a way or relation.
type Bounds struct {
	MinLat float64 `json:"minlat"`
	MinLon float64 `json:"minlon"`
	MaxLat float64 `json:"maxlat"`
	MaxLon float64 `json:"maxlon"`
}

// RawElement is one element of a POI provider response, before normalization.
type RawElement struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    *float64          `json:"lat,omitempty"`
	Lon    *float64          `json:"lon,omitempty"`
	Center *LatLon           `json:"center,omitempty"`
	Bounds *Bounds           `json:"bounds,omitempty"`
	Tags   map[string]string `json:"tags,omitempty"`
}

// POIProvider executes a query against the upstream POI service.
type POIProvider interface {
	Name() string

	// Fetch returns the raw response body; errors wrap ErrUpstream.
	Fetch(ctx context.Context, query POIQuery) ([]byte, error)

	// Decode parses a raw body into elements. Elements that cannot be decoded
	// are skipped and counted in dropped; an unreadable envelope wraps ErrUpstream.
	Decode(body []byte) (elements []RawElement, dropped int, err error)
}
