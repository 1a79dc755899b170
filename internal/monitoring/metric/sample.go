package metric

import "time"

// Category identifies the kind of observation a sample carries.
type Category string

const (
	CategoryRender     Category = "render"
	CategoryAPI        Category = "api"
	CategoryMemory     Category = "memory"
	CategoryNavigation Category = "navigation"
	CategoryCustom     Category = "custom"
	CategorySystem     Category = "system"
)

// Categories lists all known categories in a stable order.
func Categories() []Category {
	return []Category{CategoryRender, CategoryAPI, CategoryMemory, CategoryNavigation, CategoryCustom, CategorySystem}
}

// Sample is a single timestamped numeric observation. Samples are immutable
// once recorded; the store hands out copies only.
type Sample struct {
	ID        string         `json:"id"`
	Category  Category       `json:"category"`
	Name      string         `json:"name"`
	Value     float64        `json:"value"`
	Timestamp int64          `json:"timestamp"` // epoch milliseconds
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Event is the normalized shape handed to rule evaluation. Known fields are
// typed per category; Extra carries anything else the caller attaches.
type Event struct {
	Type       Category       `json:"type"`
	Name       string         `json:"name"`
	Value      float64        `json:"value"`
	Source     string         `json:"source,omitempty"`
	StatusCode int            `json:"statusCode,omitempty"`
	Extra      map[string]any `json:"extra,omitempty"`
}

// NowMillis returns the current time as epoch milliseconds.
func NowMillis() int64 { return time.Now().UnixMilli() }
