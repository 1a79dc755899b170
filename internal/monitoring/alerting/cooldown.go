package alerting

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rydeshare/perfmon/internal/monitoring/metric"
)

// signatureLimit truncates the serialized event that forms a dedup key.
// Truncation is intentional: it groups similar events (same rule, same rough
// context) instead of requiring exact duplicates, which is what suppresses
// alert storms from high-frequency repeated violations. The flip side is a
// known imprecision: distinct events can collide, and events differing only
// past the cutoff are treated as the same.
const signatureLimit = 100

// Tracker decides whether a rule may fire for an event, recording the firing
// time when it does.
type Tracker interface {
	ShouldFire(ruleID string, cooldown time.Duration, ev metric.Event) bool
}

// MemoryTracker keeps last-fired timestamps per (rule, signature) in process
// memory. Growth is bounded in practice by signature truncation; Prune is
// available for long-lived processes that want to drop stale entries.
type MemoryTracker struct {
	mu        sync.Mutex
	lastFired map[string]time.Time
	now       func() time.Time
}

func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{lastFired: make(map[string]time.Time), now: time.Now}
}

// Signature builds the dedup key for a rule and event.
func Signature(ruleID string, ev metric.Event) string {
	raw, err := json.Marshal(ev)
	if err != nil {
		return ruleID
	}
	s := string(raw)
	if len(s) > signatureLimit {
		s = s[:signatureLimit]
	}
	return ruleID + "|" + s
}

// ShouldFire returns true, recording now, only when no prior firing exists or
// the cooldown window has elapsed since the last one.
func (t *MemoryTracker) ShouldFire(ruleID string, cooldown time.Duration, ev metric.Event) bool {
	key := Signature(ruleID, ev)
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()
	if last, ok := t.lastFired[key]; ok && now.Sub(last) < cooldown {
		return false
	}
	t.lastFired[key] = now
	return true
}

// Prune drops entries whose last firing is older than maxAge and returns the
// number removed.
func (t *MemoryTracker) Prune(maxAge time.Duration) int {
	cutoff := t.now().Add(-maxAge)
	t.mu.Lock()
	defer t.mu.Unlock()
	removed := 0
	for key, last := range t.lastFired {
		if last.Before(cutoff) {
			delete(t.lastFired, key)
			removed++
		}
	}
	return removed
}
