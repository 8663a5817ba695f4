package cachekeys

import (
	"fmt"
	"strings"

	"gitlab.com/timkado/api/accessibility-finder-service/pkg/crypto"
)

// NormalizeQuery lower-cases q, trims it and collapses internal whitespace runs.
func NormalizeQuery(q string) string {
	return strings.ToLower(strings.Join(strings.Fields(q), " "))
}

// GeocodeKey generates the cache key for a free-text geocoding lookup.
// Queries that differ only in case or whitespace share a key.
func GeocodeKey(provider, query string) string {
	return fmt.Sprintf("geocode:%s:%s", provider, crypto.Sha256Hex(NormalizeQuery(query)))
}

// POIQueryKey generates the cache key for a POI provider query from its canonical text.
func POIQueryKey(provider, canonicalQuery string) string {
	return fmt.Sprintf("poi:%s:%s", provider, crypto.Sha256Hex(canonicalQuery))
}

// StoreKey prefixes a cache key for a shared backend such as Redis.
func StoreKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + ":" + key
}
