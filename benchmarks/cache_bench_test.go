package benchmarks

import (
	"context"
	"fmt"
	"testing"
	"time"

	"gitlab.com/timkado/api/accessibility-finder-service/benchmarks/mocks"
	"gitlab.com/timkado/api/accessibility-finder-service/internal/adapters/cache"
	"gitlab.com/timkado/api/accessibility-finder-service/pkg/cachekeys"
)

// BenchmarkMemoryStore measures the in-memory cache under hit, churn and contention
func BenchmarkMemoryStore(b *testing.B) {
	ctx := context.Background()
	value := make([]byte, 4096)
	ttl := time.Minute

	b.Run("GetHit", func(b *testing.B) {
		store := cache.NewMemoryStore(512, mocks.NewMockLogger())
		keys := make([]string, 512)
		for i := range keys {
			keys[i] = cachekeys.GeocodeKey("nominatim", fmt.Sprintf("query %d", i))
			store.Set(ctx, keys[i], value, ttl)
		}

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if _, ok := store.Get(ctx, keys[i%len(keys)]); !ok {
				b.Fatalf("expected hit for %s", keys[i%len(keys)])
			}
		}
	})

	b.Run("SetWithEviction", func(b *testing.B) {
		store := cache.NewMemoryStore(512, mocks.NewMockLogger())
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			store.Set(ctx, fmt.Sprintf("poi:overpass:%d", i), value, ttl)
		}
		b.StopTimer()
		if store.Len() > 512 {
			b.Errorf("store grew past its bound: %d", store.Len())
		}
	})

	b.Run("ParallelMixed", func(b *testing.B) {
		store := cache.NewMemoryStore(512, mocks.NewMockLogger())
		b.ResetTimer()
		b.RunParallel(func(pb *testing.PB) {
			i := 0
			for pb.Next() {
				key := fmt.Sprintf("k%d", i%1024)
				if i%4 == 0 {
					store.Set(ctx, key, value, ttl)
				} else {
					store.Get(ctx, key)
				}
				i++
			}
		})
	})
}

// BenchmarkCacheKeys measures key derivation, which runs on every request
func BenchmarkCacheKeys(b *testing.B) {
	b.Run("GeocodeKey", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = cachekeys.GeocodeKey("nominatim", "  Times   Square, New York ")
		}
	})
	b.Run("POIQueryKey", func(b *testing.B) {
		ql := "[out:json][timeout:25];\n(\n  node(around:800,40.758,-73.9855)[\"amenity\"=\"cafe\"];\n);\nout center tags;\n"
		for i := 0; i < b.N; i++ {
			_ = cachekeys.POIQueryKey("overpass", ql)
		}
	})
}
