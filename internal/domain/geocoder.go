package domain

import "context"

// GeocodeResult is the best candidate returned for a free-text query.
type GeocodeResult struct {
	Point       GeoPoint `json:"point"`
	DisplayName string   `json:"display_name"`
}

// Geocoder resolves free text into coordinates through an upstream provider.
// Implementations return an error wrapping ErrNotFound when there is no candidate
// and ErrUpstream for transport, timeout or non-success responses.
type Geocoder interface {
	Name() string
	Geocode(ctx context.Context, query string) (GeocodeResult, error)
}
