package utils

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"gitlab.com/timkado/api/accessibility-finder-service/internal/domain"
)

// BenchmarkRunner provides utilities for running benchmarks with metrics collection
type BenchmarkRunner struct {
	startTime      time.Time
	endTime        time.Time
	memStatsStart  runtime.MemStats
	memStatsEnd    runtime.MemStats
	goroutineStart int
	goroutineEnd   int

	operationCount int64
	errorCount     int64

	mu sync.RWMutex
}

// NewBenchmarkRunner creates a new benchmark runner
func NewBenchmarkRunner() *BenchmarkRunner {
	return &BenchmarkRunner{}
}

// Start begins the benchmark measurement
func (br *BenchmarkRunner) Start() {
	br.mu.Lock()
	defer br.mu.Unlock()

	br.startTime = time.Now()
	br.goroutineStart = runtime.NumGoroutine()

	runtime.GC()
	runtime.ReadMemStats(&br.memStatsStart)
}

// Stop ends the benchmark measurement
func (br *BenchmarkRunner) Stop() {
	br.mu.Lock()
	defer br.mu.Unlock()

	br.endTime = time.Now()
	br.goroutineEnd = runtime.NumGoroutine()

	runtime.GC()
	runtime.ReadMemStats(&br.memStatsEnd)
}

// IncrementOperations increments the operation counter
func (br *BenchmarkRunner) IncrementOperations(count int64) {
	atomic.AddInt64(&br.operationCount, count)
}

// IncrementErrors increments the error counter
func (br *BenchmarkRunner) IncrementErrors(count int64) {
	atomic.AddInt64(&br.errorCount, count)
}

// GetResults returns the benchmark results
func (br *BenchmarkRunner) GetResults() *BenchmarkResults {
	br.mu.RLock()
	defer br.mu.RUnlock()

	duration := br.endTime.Sub(br.startTime)
	operations := atomic.LoadInt64(&br.operationCount)

	var opsPerSecond float64
	if duration.Seconds() > 0 {
		opsPerSecond = float64(operations) / duration.Seconds()
	}

	return &BenchmarkResults{
		Duration:            duration,
		Operations:          operations,
		Errors:              atomic.LoadInt64(&br.errorCount),
		OperationsPerSecond: opsPerSecond,
		MemoryAllocated:     br.memStatsEnd.TotalAlloc - br.memStatsStart.TotalAlloc,
		GoroutineLeak:       br.goroutineEnd - br.goroutineStart,
	}
}

// BenchmarkResults holds the results of a benchmark run
type BenchmarkResults struct {
	Duration            time.Duration `json:"duration_ns"`
	Operations          int64         `json:"operations"`
	Errors              int64         `json:"errors"`
	OperationsPerSecond float64       `json:"operations_per_second"`
	MemoryAllocated     uint64        `json:"memory_allocated_bytes"`
	GoroutineLeak       int           `json:"goroutine_leak"`
}

// String returns a human-readable representation of the results
func (br *BenchmarkResults) String() string {
	return fmt.Sprintf(
		"Duration: %v, Ops: %d, Errors: %d, Ops/sec: %.2f, Memory: %d bytes, Goroutine leak: %d",
		br.Duration,
		br.Operations,
		br.Errors,
		br.OperationsPerSecond,
		br.MemoryAllocated,
		br.GoroutineLeak,
	)
}

var wheelchairValues = []string{"yes", "no", "limited", "unknown", "designated", ""}

// OverpassFixtureGenerator builds synthetic Overpass responses scattered around an origin
type OverpassFixtureGenerator struct {
	rng    *rand.Rand
	nextID int64
}

// NewOverpassFixtureGenerator creates a deterministic generator for seed
func NewOverpassFixtureGenerator(seed int64) *OverpassFixtureGenerator {
	return &OverpassFixtureGenerator{rng: rand.New(rand.NewSource(seed))}
}

// Elements creates count elements within roughly spreadDeg degrees of origin.
// Every fifth element is a way with a center; the rest are nodes.
func (g *OverpassFixtureGenerator) Elements(origin domain.GeoPoint, count int, spreadDeg float64, category string) []map[string]any {
	elements := make([]map[string]any, 0, count)
	for i := 0; i < count; i++ {
		g.nextID++
		lat := origin.Lat + (g.rng.Float64()*2-1)*spreadDeg
		lon := origin.Lon + (g.rng.Float64()*2-1)*spreadDeg
		tags := map[string]string{
			"amenity": category,
			"name":    fmt.Sprintf("%s %d", category, g.nextID),
		}
		if v := wheelchairValues[g.rng.Intn(len(wheelchairValues))]; v != "" {
			tags["wheelchair"] = v
		}
		if g.rng.Intn(3) == 0 {
			tags["entrance:step_count"] = fmt.Sprintf("%d", g.rng.Intn(3))
		}

		el := map[string]any{"id": g.nextID, "tags": tags}
		if i%5 == 4 {
			el["type"] = "way"
			el["center"] = map[string]float64{"lat": lat, "lon": lon}
		} else {
			el["type"] = "node"
			el["lat"] = lat
			el["lon"] = lon
		}
		elements = append(elements, el)
	}
	return elements
}

// Body serializes elements as an Overpass JSON response
func (g *OverpassFixtureGenerator) Body(elements []map[string]any) []byte {
	body, err := json.Marshal(map[string]any{"version": 0.6, "elements": elements})
	if err != nil {
		panic(err)
	}
	return body
}
