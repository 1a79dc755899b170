package metric

import (
	"fmt"
	"time"
)

// Thresholds hold the per-category classification boundaries used by the
// report generator. All comparisons are strictly greater-than.
type Thresholds struct {
	RenderWarnMs float64
	RenderCritMs float64
	APIWarnMs    float64
	APICritMs    float64
	MemoryWarnMB float64
	MemoryCritMB float64
}

// DefaultThresholds returns the stock classification boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{
		RenderWarnMs: 16,
		RenderCritMs: 50,
		APIWarnMs:    1000,
		APICritMs:    2000,
		MemoryWarnMB: 150,
		MemoryCritMB: 200,
	}
}

// Issue is a single classified finding inside a report.
type Issue struct {
	Category Category `json:"category"`
	Level    string   `json:"level"` // "critical" or "warning"
	Message  string   `json:"message"`
	Value    float64  `json:"value"`
}

// CategorySummary aggregates one category over the report window.
type CategorySummary struct {
	Count   int     `json:"count"`
	Average float64 `json:"average"`
	Max     float64 `json:"max"`
}

// TimeRange bounds a report window in epoch milliseconds.
type TimeRange struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// Report is the on-demand aggregate summary of the metric store.
type Report struct {
	TotalMetrics   int                          `json:"totalMetrics"`
	CriticalIssues int                          `json:"criticalIssues"`
	Warnings       int                          `json:"warnings"`
	TimeRange      TimeRange                    `json:"timeRange"`
	Summary        map[Category]CategorySummary `json:"summary"`
	Metrics        map[Category][]Sample        `json:"metrics"`
	Issues         []Issue                      `json:"issues"`
}

// Reporter generates reports from a metric store. Generation is a pure read;
// the store is never mutated.
type Reporter struct {
	store *Store
	th    Thresholds
}

func NewReporter(store *Store, th Thresholds) *Reporter {
	return &Reporter{store: store, th: th}
}

// Generate aggregates all retained samples within the window. A zero window
// means all retained samples (the store itself is the bounding mechanism).
func (r *Reporter) Generate(window time.Duration) *Report {
	end := NowMillis()
	since := int64(0)
	start := int64(0)
	if window > 0 {
		since = end - window.Milliseconds()
		start = since
	}

	metrics := r.store.Snapshot(since)
	report := &Report{
		TimeRange: TimeRange{Start: start, End: end},
		Summary:   make(map[Category]CategorySummary),
		Metrics:   metrics,
		Issues:    []Issue{},
	}

	for cat, samples := range metrics {
		sum := CategorySummary{Count: len(samples)}
		total := 0.0
		for _, sm := range samples {
			total += sm.Value
			if sm.Value > sum.Max {
				sum.Max = sm.Value
			}
		}
		if sum.Count > 0 {
			sum.Average = total / float64(sum.Count)
		}
		report.Summary[cat] = sum
		report.TotalMetrics += sum.Count
		r.classify(report, cat, sum)
	}
	return report
}

func (r *Reporter) classify(report *Report, cat Category, sum CategorySummary) {
	add := func(level, msg string, value float64) {
		report.Issues = append(report.Issues, Issue{Category: cat, Level: level, Message: msg, Value: value})
		if level == "critical" {
			report.CriticalIssues++
		} else {
			report.Warnings++
		}
	}
	switch cat {
	case CategoryRender:
		if sum.Average > r.th.RenderCritMs {
			add("critical", fmt.Sprintf("average render time %.2fms exceeds %.0fms", sum.Average, r.th.RenderCritMs), sum.Average)
		} else if sum.Average > r.th.RenderWarnMs {
			add("warning", fmt.Sprintf("average render time %.2fms exceeds %.0fms", sum.Average, r.th.RenderWarnMs), sum.Average)
		}
	case CategoryAPI:
		if sum.Average > r.th.APICritMs {
			add("critical", fmt.Sprintf("average API latency %.2fms exceeds %.0fms", sum.Average, r.th.APICritMs), sum.Average)
		} else if sum.Average > r.th.APIWarnMs {
			add("warning", fmt.Sprintf("average API latency %.2fms exceeds %.0fms", sum.Average, r.th.APIWarnMs), sum.Average)
		}
	case CategoryMemory:
		// memory is judged by its peak, not the average; a single spike matters
		if sum.Max > r.th.MemoryCritMB {
			add("critical", fmt.Sprintf("memory usage %.1fMB exceeds %.0fMB", sum.Max, r.th.MemoryCritMB), sum.Max)
		} else if sum.Max > r.th.MemoryWarnMB {
			add("warning", fmt.Sprintf("memory usage %.1fMB exceeds %.0fMB", sum.Max, r.th.MemoryWarnMB), sum.Max)
		}
	}
}
