package application

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"gitlab.com/timkado/api/accessibility-finder-service/internal/adapters/config"
	"gitlab.com/timkado/api/accessibility-finder-service/internal/domain"
	"gitlab.com/timkado/api/accessibility-finder-service/pkg/cachekeys"
)

// POIService executes POI queries through the cache. The raw response body is
// cached; it is decoded on every use so the cache holds upstream bytes only.
type POIService struct {
	provider    domain.POIProvider
	cache       domain.CacheStore
	cfgProvider config.Provider
	logger      domain.Logger
	group       singleflight.Group
}

// NewPOIService creates a new POIService.
func NewPOIService(provider domain.POIProvider, cache domain.CacheStore, cfgProvider config.Provider, logger domain.Logger) *POIService {
	return &POIService{
		provider:    provider,
		cache:       cache,
		cfgProvider: cfgProvider,
		logger:      logger,
	}
}

// Execute returns the raw elements for query.
func (s *POIService) Execute(ctx context.Context, query domain.POIQuery) ([]domain.RawElement, error) {
	key := cachekeys.POIQueryKey(s.provider.Name(), query.QL)

	if body, ok := s.cache.Get(ctx, key); ok {
		elements, err := s.decode(ctx, body, key)
		if err == nil {
			s.logger.Debug(ctx, "POI cache hit", "cache_key", key, "elements", len(elements))
			return elements, nil
		}
		s.logger.Warn(ctx, "Cached POI body no longer decodes, refetching", "cache_key", key, "error", err.Error())
	}

	elements, _, err := doShared(ctx, &s.group, key, func(ctx context.Context) ([]domain.RawElement, error) {
		body, err := s.provider.Fetch(ctx, query)
		if err != nil {
			return nil, err
		}
		elements, err := s.decode(ctx, body, key)
		if err != nil {
			return nil, err
		}
		ttl := time.Duration(s.cfgProvider.Get().Cache.TTLSeconds) * time.Second
		s.cache.Set(ctx, key, body, ttl)
		return elements, nil
	})
	if err != nil {
		s.logger.Warn(ctx, "POI query failed", "category", query.Category, "radius_m", query.RadiusM, "error", err.Error())
		return nil, err
	}
	return elements, nil
}

func (s *POIService) decode(ctx context.Context, body []byte, key string) ([]domain.RawElement, error) {
	elements, dropped, err := s.provider.Decode(body)
	if err != nil {
		return nil, err
	}
	if dropped > 0 {
		s.logger.Warn(ctx, "Dropped malformed POI elements", "cache_key", key, "dropped", dropped)
	}
	return elements, nil
}
