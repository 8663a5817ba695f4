package cache

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"gitlab.com/timkado/api/accessibility-finder-service/benchmarks/mocks"
	"gitlab.com/timkado/api/accessibility-finder-service/internal/adapters/metrics"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestMemoryStore_GetSet(t *testing.T) {
	store := NewMemoryStore(10, mocks.NewMockLogger())
	ctx := context.Background()

	if val, ok := store.Get(ctx, "missing"); ok || val != nil {
		t.Fatalf("Get on empty store = (%q, %v), want miss", val, ok)
	}

	store.Set(ctx, "key", []byte("value"), time.Minute)
	got, ok := store.Get(ctx, "key")
	if !ok || !bytes.Equal(got, []byte("value")) {
		t.Fatalf("Get after Set = (%q, %v)", got, ok)
	}
}

func TestMemoryStore_ExpiryBoundary(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore(10, mocks.NewMockLogger(), WithClock(clock.Now))
	ctx := context.Background()

	store.Set(ctx, "key", []byte("value"), 10*time.Second)

	clock.Advance(10*time.Second - time.Nanosecond)
	if _, ok := store.Get(ctx, "key"); !ok {
		t.Fatal("entry should be live just before expiry")
	}

	clock.Advance(time.Nanosecond)
	if _, ok := store.Get(ctx, "key"); ok {
		t.Fatal("entry must be a miss when now == expires_at")
	}
	if store.Len() != 0 {
		t.Errorf("expired entry should be removed lazily, Len() = %d", store.Len())
	}
}

func TestMemoryStore_LazyExpiryUpdatesEntriesGauge(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore(10, mocks.NewMockLogger(), WithClock(clock.Now))
	ctx := context.Background()
	gauge := metrics.CacheEntriesGauge.WithLabelValues(storeName)

	store.Set(ctx, "short", []byte("v"), time.Second)
	store.Set(ctx, "long", []byte("v"), time.Minute)
	if got := testutil.ToFloat64(gauge); got != 2 {
		t.Fatalf("entries gauge after Set = %v, want 2", got)
	}

	clock.Advance(time.Second)
	if _, ok := store.Get(ctx, "short"); ok {
		t.Fatal("short entry should have expired")
	}
	if got := testutil.ToFloat64(gauge); got != 1 {
		t.Errorf("entries gauge after lazy expiry = %v, want 1", got)
	}
}

func TestMemoryStore_NonPositiveTTLIsNoop(t *testing.T) {
	store := NewMemoryStore(10, mocks.NewMockLogger())
	ctx := context.Background()

	store.Set(ctx, "zero", []byte("v"), 0)
	store.Set(ctx, "negative", []byte("v"), -time.Second)
	if store.Len() != 0 {
		t.Errorf("Len() = %d, want 0", store.Len())
	}
}

func TestMemoryStore_EvictsOldestInserted(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore(2, mocks.NewMockLogger(), WithClock(clock.Now))
	ctx := context.Background()

	store.Set(ctx, "a", []byte("one"), 100*time.Second)
	clock.Advance(time.Second)
	// "b" expires before "a"; eviction must still follow insertion order.
	store.Set(ctx, "b", []byte("two"), 10*time.Second)
	clock.Advance(time.Second)
	store.Set(ctx, "c", []byte("three"), 100*time.Second)

	if _, ok := store.Get(ctx, "a"); ok {
		t.Error("oldest inserted entry a should have been evicted")
	}
	if got, ok := store.Get(ctx, "b"); !ok || string(got) != "two" {
		t.Errorf("b = (%q, %v), want two", got, ok)
	}
	if got, ok := store.Get(ctx, "c"); !ok || string(got) != "three" {
		t.Errorf("c = (%q, %v), want three", got, ok)
	}
}

func TestMemoryStore_OverwriteKeepsPositionAndDoesNotEvict(t *testing.T) {
	store := NewMemoryStore(2, mocks.NewMockLogger())
	ctx := context.Background()

	store.Set(ctx, "a", []byte("1"), time.Minute)
	store.Set(ctx, "b", []byte("2"), time.Minute)
	store.Set(ctx, "a", []byte("1b"), time.Minute)

	if store.Len() != 2 {
		t.Fatalf("overwrite must not change size, Len() = %d", store.Len())
	}
	if got, _ := store.Get(ctx, "a"); string(got) != "1b" {
		t.Errorf("a = %q, want 1b", got)
	}

	store.Set(ctx, "c", []byte("3"), time.Minute)
	if _, ok := store.Get(ctx, "a"); ok {
		t.Error("a keeps its first insertion position and should be evicted first")
	}
	if _, ok := store.Get(ctx, "b"); !ok {
		t.Error("b should survive")
	}
}

func TestMemoryStore_FullStoreDropsExpiredBeforeEvicting(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore(2, mocks.NewMockLogger(), WithClock(clock.Now))
	ctx := context.Background()

	store.Set(ctx, "a", []byte("1"), time.Hour)
	store.Set(ctx, "b", []byte("2"), time.Second)
	clock.Advance(2 * time.Second)
	store.Set(ctx, "c", []byte("3"), time.Hour)

	if _, ok := store.Get(ctx, "a"); !ok {
		t.Error("live entry a should be kept when an expired entry can make room")
	}
	if _, ok := store.Get(ctx, "c"); !ok {
		t.Error("c should be stored")
	}
}

func TestMemoryStore_NeverExceedsMaxEntries(t *testing.T) {
	const max = 16
	store := NewMemoryStore(max, mocks.NewMockLogger())
	ctx := context.Background()

	for i := 0; i < 200; i++ {
		store.Set(ctx, fmt.Sprintf("key-%d", i), []byte("v"), time.Minute)
		if n := store.Len(); n > max {
			t.Fatalf("after %d inserts Len() = %d, exceeds %d", i+1, n, max)
		}
	}
	for i := 0; i < 200-max; i++ {
		if _, ok := store.Get(ctx, fmt.Sprintf("key-%d", i)); ok {
			t.Fatalf("key-%d should have been evicted", i)
		}
	}
	for i := 200 - max; i < 200; i++ {
		if _, ok := store.Get(ctx, fmt.Sprintf("key-%d", i)); !ok {
			t.Fatalf("key-%d should still be present", i)
		}
	}
}

func TestMemoryStore_Sweep(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore(10, mocks.NewMockLogger(), WithClock(clock.Now))
	ctx := context.Background()

	store.Set(ctx, "short", []byte("v"), time.Second)
	store.Set(ctx, "long", []byte("v"), time.Hour)
	clock.Advance(time.Minute)

	if n := store.Sweep(); n != 1 {
		t.Errorf("Sweep() removed %d, want 1", n)
	}
	if store.Len() != 1 {
		t.Errorf("Len() = %d, want 1", store.Len())
	}
}

func TestMemoryStore_StartSweeper(t *testing.T) {
	store := NewMemoryStore(10, mocks.NewMockLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store.Set(ctx, "short", []byte("v"), 5*time.Millisecond)
	store.StartSweeper(ctx, 10*time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for store.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("sweeper did not remove the expired entry")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	const max = 32
	store := NewMemoryStore(max, mocks.NewMockLogger())
	ctx := context.Background()

	var wg sync.WaitGroup
	for g := 0; g < 50; g++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				key := fmt.Sprintf("key-%d", (id*7+j)%100)
				if j%2 == 0 {
					store.Set(ctx, key, []byte("v"), time.Minute)
				} else {
					store.Get(ctx, key)
				}
			}
		}(g)
	}
	wg.Wait()

	if n := store.Len(); n > max {
		t.Errorf("Len() = %d after concurrent use, exceeds %d", n, max)
	}
}
