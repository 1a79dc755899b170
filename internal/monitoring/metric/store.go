package metric

import (
	"sort"
	"sync"
)

// DefaultPerKeyCapacity bounds each (category, name) series.
const DefaultPerKeyCapacity = 100

type seriesKey struct {
	category Category
	name     string
}

// Store keeps bounded per-(category, name) series of samples. When a series
// exceeds its capacity the oldest sample is evicted. Recording never fails;
// samples are accepted as-is so observability data is never dropped on the
// floor by validation.
type Store struct {
	mu     sync.Mutex
	perKey int
	series map[seriesKey][]Sample
}

// NewStore creates a store with the given per-key capacity. Values <= 0 fall
// back to DefaultPerKeyCapacity.
func NewStore(perKey int) *Store {
	if perKey <= 0 {
		perKey = DefaultPerKeyCapacity
	}
	return &Store{perKey: perKey, series: make(map[seriesKey][]Sample)}
}

// Record appends a sample to its series, evicting the oldest entry when the
// series is full.
func (s *Store) Record(sample Sample) {
	key := seriesKey{category: sample.Category, name: sample.Name}
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := s.series[key]
	if len(buf) >= s.perKey {
		// shift out the oldest; per-key capacity is small so a copy is fine
		copy(buf, buf[1:])
		buf = buf[:len(buf)-1]
	}
	s.series[key] = append(buf, sample)
}

// Query returns samples for a category, optionally narrowed to a single name
// and a lower timestamp bound, ordered by timestamp ascending. The result is
// a copy; mutating it has no effect on the store.
func (s *Store) Query(category Category, name string, since int64) []Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []Sample{}
	for key, buf := range s.series {
		if key.category != category {
			continue
		}
		if name != "" && key.name != name {
			continue
		}
		for _, sm := range buf {
			if since > 0 && sm.Timestamp < since {
				continue
			}
			out = append(out, sm)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out
}

// Snapshot returns all retained samples newer than since, grouped by category
// and ordered by timestamp ascending within each category.
func (s *Store) Snapshot(since int64) map[Category][]Sample {
	out := make(map[Category][]Sample)
	for _, c := range Categories() {
		if samples := s.Query(c, "", since); len(samples) > 0 {
			out[c] = samples
		}
	}
	return out
}

// Len reports the total number of retained samples across all series.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, buf := range s.series {
		n += len(buf)
	}
	return n
}
