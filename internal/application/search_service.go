package application

import (
	"context"
	"fmt"
	"strings"

	"gitlab.com/timkado/api/accessibility-finder-service/internal/adapters/config"
	"gitlab.com/timkado/api/accessibility-finder-service/internal/adapters/metrics"
	"gitlab.com/timkado/api/accessibility-finder-service/internal/domain"
)

// SearchService is the boundary consumed by the HTTP layer. It composes the
// cached geocoder, the category registry, the query builder and the cached
// POI client.
type SearchService struct {
	geocoder    *GeocodeService
	registry    domain.CategoryRegistry
	builder     *QueryBuilder
	pois        *POIService
	cfgProvider config.Provider
	logger      domain.Logger
}

// NewSearchService creates a new SearchService.
func NewSearchService(
	geocoder *GeocodeService,
	registry domain.CategoryRegistry,
	builder *QueryBuilder,
	pois *POIService,
	cfgProvider config.Provider,
	logger domain.Logger,
) *SearchService {
	return &SearchService{
		geocoder:    geocoder,
		registry:    registry,
		builder:     builder,
		pois:        pois,
		cfgProvider: cfgProvider,
		logger:      logger,
	}
}

// Geocode resolves free text to coordinates.
func (s *SearchService) Geocode(ctx context.Context, query string) (domain.GeocodeResult, error) {
	return s.geocoder.Geocode(ctx, query)
}

// Search finds places of req.Category around req.Origin. Every validation
// happens before any upstream call.
func (s *SearchService) Search(ctx context.Context, req domain.SearchRequest) ([]domain.PlaceResult, error) {
	maxLimit := s.cfgProvider.Get().Search.MaxLimit
	if req.Limit < 1 || req.Limit > maxLimit {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d, got %d", domain.ErrInvalidInput, maxLimit, req.Limit)
	}
	if err := req.Origin.Validate(); err != nil {
		return nil, err
	}
	if err := req.Filters.Validate(); err != nil {
		return nil, err
	}
	category, err := s.registry.Resolve(req.Category)
	if err != nil {
		return nil, err
	}
	query, err := s.builder.Build(req.Origin, req.RadiusM, category, req.Filters)
	if err != nil {
		return nil, err
	}

	s.logger.Debug(ctx, "Executing POI search",
		"category", category.Name,
		"radius_m", query.RadiusM,
		"pushed_filters", len(query.Pushed),
		"limit", req.Limit)

	elements, err := s.pois.Execute(ctx, query)
	if err != nil {
		return nil, err
	}

	results := Normalize(elements, req.Origin, query.RadiusM, category.Name, req.Filters, req.Limit)
	metrics.ObserveSearchResults(category.Name, !strings.Contains(category.Name, "="), len(results))
	s.logger.Info(ctx, "POI search completed",
		"category", category.Name,
		"radius_m", query.RadiusM,
		"elements", len(elements),
		"results", len(results))
	return results, nil
}

// SearchByText geocodes query and searches around the result with the
// default radius and limit.
func (s *SearchService) SearchByText(ctx context.Context, query, category string) ([]domain.PlaceResult, error) {
	// Reject unknown categories before spending a geocoding call.
	if _, err := s.registry.Resolve(category); err != nil {
		return nil, err
	}
	loc, err := s.geocoder.Geocode(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.Search(ctx, domain.SearchRequest{
		Origin:   loc.Point,
		Category: category,
		Limit:    s.cfgProvider.Get().Search.DefaultLimit,
	})
}

// ListCategories returns the built-in categories ordered by name.
func (s *SearchService) ListCategories() []domain.CategoryDefinition {
	return s.registry.ListAll()
}
