package mocks

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"gitlab.com/timkado/api/accessibility-finder-service/internal/adapters/overpass"
	"gitlab.com/timkado/api/accessibility-finder-service/internal/domain"
)

// MockGeocoder implements domain.Geocoder and counts upstream calls
type MockGeocoder struct {
	Result domain.GeocodeResult
	Err    error
	Delay  time.Duration

	Calls int64

	mu      sync.Mutex
	queries []string
}

// NewMockGeocoder creates a geocoder that always answers with result
func NewMockGeocoder(result domain.GeocodeResult) *MockGeocoder {
	return &MockGeocoder{Result: result}
}

// Name implements domain.Geocoder
func (m *MockGeocoder) Name() string { return "mock-geocoder" }

// Geocode implements domain.Geocoder
func (m *MockGeocoder) Geocode(ctx context.Context, query string) (domain.GeocodeResult, error) {
	atomic.AddInt64(&m.Calls, 1)
	m.mu.Lock()
	m.queries = append(m.queries, query)
	m.mu.Unlock()

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return domain.GeocodeResult{}, ctx.Err()
		}
	}
	if m.Err != nil {
		return domain.GeocodeResult{}, m.Err
	}
	return m.Result, nil
}

// CallCount returns the number of Geocode invocations
func (m *MockGeocoder) CallCount() int64 {
	return atomic.LoadInt64(&m.Calls)
}

// Queries returns the queries received, in order
func (m *MockGeocoder) Queries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.queries...)
}

// MockPOIProvider implements domain.POIProvider, returning a canned body
type MockPOIProvider struct {
	Body  []byte
	Err   error
	Delay time.Duration

	Calls int64

	mu      sync.Mutex
	queries []domain.POIQuery
}

// NewMockPOIProvider creates a provider that always answers with body
func NewMockPOIProvider(body []byte) *MockPOIProvider {
	return &MockPOIProvider{Body: body}
}

// Name implements domain.POIProvider
func (m *MockPOIProvider) Name() string { return "mock-poi" }

// Fetch implements domain.POIProvider
func (m *MockPOIProvider) Fetch(ctx context.Context, query domain.POIQuery) ([]byte, error) {
	atomic.AddInt64(&m.Calls, 1)
	m.mu.Lock()
	m.queries = append(m.queries, query)
	m.mu.Unlock()

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Body, nil
}

// CallCount returns the number of Fetch invocations
func (m *MockPOIProvider) CallCount() int64 {
	return atomic.LoadInt64(&m.Calls)
}

// LastQuery returns the most recent query, if any
func (m *MockPOIProvider) LastQuery() (domain.POIQuery, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queries) == 0 {
		return domain.POIQuery{}, false
	}
	return m.queries[len(m.queries)-1], true
}

// Decode implements domain.POIProvider using the Overpass wire format
func (m *MockPOIProvider) Decode(body []byte) ([]domain.RawElement, int, error) {
	return overpass.DecodeElements(body)
}
