package tracker

import (
	"context"
	"sync"
	"time"
)

// MemoryBackend stores occurrences in bucketed sliding-window counters,
// one counter per (satellite, anomaly type) pair.
//
// Each counter is a fixed-size circular buffer of time buckets, so memory
// stays bounded regardless of event rate: a window always costs the same
// number of buckets. Bucket granularity is derived from the window (1/60th,
// at least one second), trading a little edge accuracy for that bound.
//
// All operations are safe for concurrent use.
type MemoryBackend struct {
	window      time.Duration
	granularity time.Duration
	numBuckets  int

	mu         sync.Mutex
	satellites map[string]map[string]*occurrenceWindow
}

// occurrenceWindow is one bucketed counter.
type occurrenceWindow struct {
	buckets []occurrenceBucket
	head    int
}

// occurrenceBucket counts occurrences within one granularity slot.
type occurrenceBucket struct {
	timestamp time.Time
	count     int
}

// NewMemoryBackend creates an in-memory occurrence store sized for the
// given window. A non-positive window falls back to the default.
func NewMemoryBackend(window time.Duration) *MemoryBackend {
	if window <= 0 {
		window = DefaultConfig().Window
	}

	granularity := window / 60
	if granularity < time.Second {
		granularity = time.Second
	}

	numBuckets := int(window / granularity)
	if numBuckets == 0 {
		numBuckets = 1
	}

	return &MemoryBackend{
		window:      window,
		granularity: granularity,
		numBuckets:  numBuckets,
		satellites:  make(map[string]map[string]*occurrenceWindow),
	}
}

// Record stores one occurrence in the bucket covering at.
func (m *MemoryBackend) Record(ctx context.Context, satelliteID, anomalyType string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	types, ok := m.satellites[satelliteID]
	if !ok {
		types = make(map[string]*occurrenceWindow)
		m.satellites[satelliteID] = types
	}

	w, ok := types[anomalyType]
	if !ok {
		w = &occurrenceWindow{buckets: make([]occurrenceBucket, m.numBuckets)}
		types[anomalyType] = w
	}

	w.pruneLocked(at.Add(-m.window))
	w.findOrCreateBucketLocked(at.Truncate(m.granularity)).count++
	return nil
}

// CountType returns the occurrences of the given type at or after since.
func (m *MemoryBackend) CountType(ctx context.Context, satelliteID, anomalyType string, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.satellites[satelliteID][anomalyType]
	if !ok {
		return 0, nil
	}
	return w.sumLocked(since), nil
}

// CountDistinct returns how many anomaly types have at least one
// occurrence at or after since.
func (m *MemoryBackend) CountDistinct(ctx context.Context, satelliteID string, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	distinct := 0
	for _, w := range m.satellites[satelliteID] {
		if w.sumLocked(since) > 0 {
			distinct++
		}
	}
	return distinct, nil
}

// Sweep clears buckets older than the cutoff and drops counters and
// satellites that end up empty. Returns the number of occurrences removed.
func (m *MemoryBackend) Sweep(ctx context.Context, before time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for satelliteID, types := range m.satellites {
		for anomalyType, w := range types {
			removed += w.pruneLocked(before)
			if w.sumLocked(time.Time{}) == 0 {
				delete(types, anomalyType)
			}
		}
		if len(types) == 0 {
			delete(m.satellites, satelliteID)
		}
	}
	return removed, nil
}

// Ping always succeeds for the in-memory backend.
func (m *MemoryBackend) Ping(ctx context.Context) error {
	return nil
}

// Close discards all occurrences.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.satellites = make(map[string]map[string]*occurrenceWindow)
	return nil
}

// pruneLocked clears buckets stamped before the cutoff and returns how
// many occurrences they held. Caller must hold the backend lock.
func (w *occurrenceWindow) pruneLocked(cutoff time.Time) int {
	removed := 0
	for i := range w.buckets {
		if !w.buckets[i].timestamp.IsZero() && w.buckets[i].timestamp.Before(cutoff) {
			removed += w.buckets[i].count
			w.buckets[i] = occurrenceBucket{}
		}
	}
	return removed
}

// sumLocked totals occurrences in buckets stamped at or after since.
// Caller must hold the backend lock.
func (w *occurrenceWindow) sumLocked(since time.Time) int {
	sum := 0
	for i := range w.buckets {
		if !w.buckets[i].timestamp.IsZero() && !w.buckets[i].timestamp.Before(since) {
			sum += w.buckets[i].count
		}
	}
	return sum
}

// findOrCreateBucketLocked returns the bucket stamped bucketTime, reusing
// an empty slot or evicting the oldest when the buffer is full. Caller
// must hold the backend lock.
func (w *occurrenceWindow) findOrCreateBucketLocked(bucketTime time.Time) *occurrenceBucket {
	if w.buckets[w.head].timestamp.Equal(bucketTime) {
		return &w.buckets[w.head]
	}

	for i := range w.buckets {
		if w.buckets[i].timestamp.Equal(bucketTime) {
			return &w.buckets[i]
		}
	}

	targetIdx := -1
	for i := range w.buckets {
		if w.buckets[i].timestamp.IsZero() {
			targetIdx = i
			break
		}
	}

	if targetIdx == -1 {
		oldestIdx := 0
		oldestTime := w.buckets[0].timestamp
		for i := 1; i < len(w.buckets); i++ {
			if w.buckets[i].timestamp.Before(oldestTime) {
				oldestIdx = i
				oldestTime = w.buckets[i].timestamp
			}
		}
		targetIdx = oldestIdx
	}

	w.buckets[targetIdx] = occurrenceBucket{timestamp: bucketTime}
	w.head = targetIdx
	return &w.buckets[targetIdx]
}
