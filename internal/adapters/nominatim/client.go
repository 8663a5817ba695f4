package nominatim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"gitlab.com/timkado/api/accessibility-finder-service/internal/adapters/config"
	"gitlab.com/timkado/api/accessibility-finder-service/internal/adapters/upstream"
	"gitlab.com/timkado/api/accessibility-finder-service/internal/domain"
)

// ProviderName identifies Nominatim in cache keys, metrics and logs.
const ProviderName = "nominatim"

const maxResponseBytes = 1 << 20

// candidate is one entry of a jsonv2 search response. Nominatim encodes
// coordinates as strings.
type candidate struct {
	Lat         json.RawMessage `json:"lat"`
	Lon         json.RawMessage `json:"lon"`
	DisplayName string          `json:"display_name"`
}

// Client implements domain.Geocoder against the Nominatim search API.
type Client struct {
	httpClient  *http.Client
	cfgProvider config.Provider
	logger      domain.Logger
}

// NewClient creates a new Nominatim client.
func NewClient(cfgProvider config.Provider, logger domain.Logger, httpClient *http.Client) *Client {
	return &Client{
		httpClient:  httpClient,
		cfgProvider: cfgProvider,
		logger:      logger,
	}
}

// Name implements domain.Geocoder.
func (c *Client) Name() string {
	return ProviderName
}

// Geocode issues one search request and returns the first candidate.
func (c *Client) Geocode(ctx context.Context, query string) (domain.GeocodeResult, error) {
	ctx = upstream.WithProvider(ctx, ProviderName)
	cfg := c.cfgProvider.Get().Upstream
	timeout := time.Duration(cfg.HTTPTimeoutSeconds) * time.Second

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "jsonv2")
	params.Set("limit", "1")
	params.Set("addressdetails", "1")
	if cfg.NominatimEmail != "" {
		params.Set("email", cfg.NominatimEmail)
	}

	body, err := upstream.Do(ctx, c.httpClient, ProviderName, timeout, maxResponseBytes, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.NominatimBaseURL+"?"+params.Encode(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", cfg.UserAgent)
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		c.logger.Warn(ctx, "Nominatim request failed", "error", err.Error())
		return domain.GeocodeResult{}, err
	}

	var candidates []candidate
	if err := json.Unmarshal(body, &candidates); err != nil {
		c.logger.Warn(ctx, "Failed to decode Nominatim response", "error", err.Error())
		return domain.GeocodeResult{}, fmt.Errorf("%w: decoding nominatim response: %w", domain.ErrUpstream, err)
	}
	if len(candidates) == 0 {
		c.logger.Info(ctx, "Nominatim returned no candidates")
		return domain.GeocodeResult{}, fmt.Errorf("%w: no candidate for query", domain.ErrNotFound)
	}

	best := candidates[0]
	lat, err := parseCoordinate(best.Lat)
	if err != nil {
		return domain.GeocodeResult{}, fmt.Errorf("%w: nominatim lat: %w", domain.ErrUpstream, err)
	}
	lon, err := parseCoordinate(best.Lon)
	if err != nil {
		return domain.GeocodeResult{}, fmt.Errorf("%w: nominatim lon: %w", domain.ErrUpstream, err)
	}
	point := domain.GeoPoint{Lat: lat, Lon: lon}
	if err := point.Validate(); err != nil {
		return domain.GeocodeResult{}, fmt.Errorf("%w: nominatim returned %v", domain.ErrUpstream, err)
	}

	return domain.GeocodeResult{Point: point, DisplayName: best.DisplayName}, nil
}

// parseCoordinate accepts both "40.7" and 40.7.
func parseCoordinate(raw json.RawMessage) (float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, fmt.Errorf("missing coordinate")
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		return strconv.ParseFloat(s, 64)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, err
	}
	return f, nil
}

var _ domain.Geocoder = (*Client)(nil)
