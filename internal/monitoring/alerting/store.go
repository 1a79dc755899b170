package alerting

import (
	"sync"
	"time"
)

const (
	// DefaultCapacity bounds the alert history.
	DefaultCapacity = 1000
	// DefaultRetention is how long acknowledged alerts are kept before cleanup.
	DefaultRetention = 7 * 24 * time.Hour
	// DefaultStatsWindow is the lookback for aggregate stats.
	DefaultStatsWindow = 24 * time.Hour
)

// Filter narrows an alert query. Nil pointer fields mean "any".
type Filter struct {
	Severity     Severity
	Type         Type
	Acknowledged *bool
	Resolved     *bool
	Since        int64 // epoch ms; 0 means no lower bound
	Limit        int   // 0 means no limit
}

// Stats aggregates stored alerts over a window.
type Stats struct {
	Total        int              `json:"total"`
	BySeverity   map[Severity]int `json:"bySeverity"`
	ByType       map[Type]int     `json:"byType"`
	BySource     map[string]int   `json:"bySource"`
	Acknowledged int              `json:"acknowledged"`
	Resolved     int              `json:"resolved"`
	Since        int64            `json:"since"`
}

// Store keeps a bounded FIFO history of fired alerts. Unknown ids on
// Acknowledge/Resolve are silently ignored; both operations are idempotent.
type Store struct {
	mu       sync.Mutex
	capacity int
	alerts   []*Alert // insertion order, oldest first
	byID     map[string]*Alert
	now      func() time.Time
}

// NewStore creates a store with the given capacity. Values <= 0 fall back to
// DefaultCapacity.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{capacity: capacity, byID: make(map[string]*Alert), now: time.Now}
}

// Add appends an alert, evicting the oldest one past capacity.
func (s *Store) Add(a *Alert) {
	if a == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.alerts) >= s.capacity {
		evicted := s.alerts[0]
		copy(s.alerts, s.alerts[1:])
		s.alerts = s.alerts[:len(s.alerts)-1]
		delete(s.byID, evicted.ID)
	}
	s.alerts = append(s.alerts, a)
	s.byID[a.ID] = a
}

// Acknowledge marks an alert acknowledged. A no-op for unknown or already
// acknowledged ids.
func (s *Store) Acknowledge(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.byID[id]; ok {
		a.Acknowledged = true
	}
}

// Resolve sets the resolution timestamp; a resolved alert is always also
// acknowledged. Unknown ids are ignored.
func (s *Store) Resolve(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.byID[id]; ok {
		ts := s.now().UnixMilli()
		a.ResolvedAt = &ts
		a.Acknowledged = true
	}
}

// Query returns matching alerts sorted newest first. Results are copies.
func (s *Store) Query(f Filter) []Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []Alert{}
	for i := len(s.alerts) - 1; i >= 0; i-- {
		a := s.alerts[i]
		if f.Severity != "" && a.Severity != f.Severity {
			continue
		}
		if f.Type != "" && a.Type != f.Type {
			continue
		}
		if f.Acknowledged != nil && a.Acknowledged != *f.Acknowledged {
			continue
		}
		if f.Resolved != nil && (a.ResolvedAt != nil) != *f.Resolved {
			continue
		}
		if f.Since > 0 && a.Timestamp < f.Since {
			continue
		}
		out = append(out, *a)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out
}

// Recent returns the n newest alerts.
func (s *Store) Recent(n int) []Alert {
	return s.Query(Filter{Limit: n})
}

// Len reports the number of stored alerts.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.alerts)
}

// Stats aggregates alerts newer than the window; zero means DefaultStatsWindow.
func (s *Store) Stats(window time.Duration) Stats {
	if window <= 0 {
		window = DefaultStatsWindow
	}
	since := s.now().Add(-window).UnixMilli()
	st := Stats{
		BySeverity: map[Severity]int{},
		ByType:     map[Type]int{},
		BySource:   map[string]int{},
		Since:      since,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.alerts {
		if a.Timestamp < since {
			continue
		}
		st.Total++
		st.BySeverity[a.Severity]++
		st.ByType[a.Type]++
		if a.Source != "" {
			st.BySource[a.Source]++
		}
		if a.Acknowledged {
			st.Acknowledged++
		}
		if a.ResolvedAt != nil {
			st.Resolved++
		}
	}
	return st
}

// Cleanup removes acknowledged alerts older than the retention window and
// returns how many were dropped. Unacknowledged alerts are never removed here
// regardless of age; zero retention means DefaultRetention.
func (s *Store) Cleanup(retention time.Duration) int {
	if retention <= 0 {
		retention = DefaultRetention
	}
	cutoff := s.now().Add(-retention).UnixMilli()
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.alerts[:0]
	removed := 0
	for _, a := range s.alerts {
		if a.Acknowledged && a.Timestamp < cutoff {
			delete(s.byID, a.ID)
			removed++
			continue
		}
		kept = append(kept, a)
	}
	s.alerts = kept
	return removed
}
