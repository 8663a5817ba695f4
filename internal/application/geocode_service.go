package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/singleflight"

	"gitlab.com/timkado/api/accessibility-finder-service/internal/adapters/config"
	"gitlab.com/timkado/api/accessibility-finder-service/internal/domain"
	"gitlab.com/timkado/api/accessibility-finder-service/pkg/cachekeys"
)

const minGeocodeQueryRunes = 2

// GeocodeService is the cached front of a domain.Geocoder.
// Only successful lookups are cached.
type GeocodeService struct {
	geocoder    domain.Geocoder
	cache       domain.CacheStore
	cfgProvider config.Provider
	logger      domain.Logger
	group       singleflight.Group
}

// NewGeocodeService creates a new GeocodeService.
func NewGeocodeService(geocoder domain.Geocoder, cache domain.CacheStore, cfgProvider config.Provider, logger domain.Logger) *GeocodeService {
	return &GeocodeService{
		geocoder:    geocoder,
		cache:       cache,
		cfgProvider: cfgProvider,
		logger:      logger,
	}
}

// Geocode resolves query to its best candidate.
func (s *GeocodeService) Geocode(ctx context.Context, query string) (domain.GeocodeResult, error) {
	trimmed := strings.TrimSpace(query)
	if utf8.RuneCountInString(trimmed) < minGeocodeQueryRunes {
		return domain.GeocodeResult{}, fmt.Errorf("%w: query must be at least %d characters", domain.ErrInvalidInput, minGeocodeQueryRunes)
	}

	key := cachekeys.GeocodeKey(s.geocoder.Name(), trimmed)
	if res, ok := s.lookup(ctx, key); ok {
		s.logger.Debug(ctx, "Geocode cache hit", "cache_key", key)
		return res, nil
	}

	res, shared, err := doShared(ctx, &s.group, key, func(ctx context.Context) (domain.GeocodeResult, error) {
		// A concurrent flight may have filled the cache while this one waited.
		if res, ok := s.lookup(ctx, key); ok {
			return res, nil
		}

		res, err := s.geocoder.Geocode(ctx, trimmed)
		if err != nil {
			return domain.GeocodeResult{}, err
		}

		if encoded, err := json.Marshal(res); err == nil {
			ttl := time.Duration(s.cfgProvider.Get().Cache.TTLSeconds) * time.Second
			s.cache.Set(ctx, key, encoded, ttl)
		} else {
			s.logger.Error(ctx, "Failed to encode geocode result for cache", "error", err.Error())
		}
		return res, nil
	})
	if err != nil {
		s.logger.Info(ctx, "Geocode failed", "error", err.Error(), "shared", shared)
		return domain.GeocodeResult{}, err
	}
	return res, nil
}

func (s *GeocodeService) lookup(ctx context.Context, key string) (domain.GeocodeResult, bool) {
	raw, ok := s.cache.Get(ctx, key)
	if !ok {
		return domain.GeocodeResult{}, false
	}
	var res domain.GeocodeResult
	if err := json.Unmarshal(raw, &res); err != nil {
		s.logger.Warn(ctx, "Discarding undecodable geocode cache entry", "cache_key", key, "error", err.Error())
		return domain.GeocodeResult{}, false
	}
	return res, true
}
