// Package monitoring is the facade the rest of the application records
// metrics through. Recording is invisible infrastructure: it never returns an
// error to the caller. The only errors that leave this package are the ones
// the measured operations themselves produced.
package monitoring

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/rydeshare/perfmon/internal/monitoring/alerting"
	"github.com/rydeshare/perfmon/internal/monitoring/metric"
	"github.com/rydeshare/perfmon/internal/monitoring/notify"
)

// DefaultOperationThreshold flags operations slower than this in
// MeasureOperation when no explicit threshold is given.
const DefaultOperationThreshold = 100 * time.Millisecond

// Options configure a Monitor. Zero values fall back to defaults.
type Options struct {
	Source            string
	MetricsPerKey     int
	AlertCapacity     int
	AlertRetention    time.Duration
	Thresholds        metric.Thresholds
	ReportInterval    time.Duration
	CleanupInterval   time.Duration
	Cooldown          alerting.Tracker
	ExtraRules        []*alerting.Rule
	RuleCooldowns     map[string]time.Duration
	// channel enablement; zero values keep the local channels on
	DisableConsole bool
	DisableToast   bool
}

// Monitor owns the metric store, rule engine, alert store and notifier. It is
// constructed once at the composition root and passed around explicitly;
// there is no global instance.
type Monitor struct {
	store    *metric.Store
	reporter *metric.Reporter
	alerts   *alerting.Store
	engine   *alerting.Engine
	notifier *notify.Notifier
	toasts   *notify.ToastBus
	source   string

	retention       time.Duration
	reportInterval  time.Duration
	cleanupInterval time.Duration
}

// New wires a Monitor from options. The notifier starts with the console and
// toast channels; webhook and websocket channels are attached by the caller
// once their collaborators exist.
func New(opts Options) *Monitor {
	if opts.Source == "" {
		opts.Source = "perfmon"
	}
	if opts.Thresholds == (metric.Thresholds{}) {
		opts.Thresholds = metric.DefaultThresholds()
	}
	cooldown := opts.Cooldown
	if cooldown == nil {
		cooldown = alerting.NewMemoryTracker()
	}

	store := metric.NewStore(opts.MetricsPerKey)
	alerts := alerting.NewStore(opts.AlertCapacity)
	toasts := notify.NewToastBus()
	notifier := notify.NewNotifier()
	if !opts.DisableConsole {
		notifier.Register(notify.NewConsoleChannel())
	}
	if !opts.DisableToast {
		notifier.Register(notify.NewToastChannel(toasts))
	}
	notifier.SetFailureHook(func(kind alerting.ChannelKind) {
		channelFailures.WithLabelValues(string(kind)).Inc()
	})

	engine := alerting.NewEngine(alerts, cooldown, notifier, opts.Source)
	engine.SetHooks(
		func(a alerting.Alert) { alertsFired.WithLabelValues(string(a.Severity)).Inc() },
		func(ruleID string) { alertsSuppressed.WithLabelValues(ruleID).Inc() },
	)
	for id, d := range opts.RuleCooldowns {
		if !engine.SetCooldown(id, d) {
			log.Warn().Str("rule_id", id).Msg("cooldown override for unknown rule ignored")
		}
	}
	for _, r := range opts.ExtraRules {
		if err := engine.AddRule(r); err != nil {
			log.Error().Err(err).Str("rule_id", r.ID).Msg("extra rule rejected")
		}
	}

	return &Monitor{
		store:           store,
		reporter:        metric.NewReporter(store, opts.Thresholds),
		alerts:          alerts,
		engine:          engine,
		notifier:        notifier,
		toasts:          toasts,
		source:          opts.Source,
		retention:       opts.AlertRetention,
		reportInterval:  opts.ReportInterval,
		cleanupInterval: opts.CleanupInterval,
	}
}

// Notifier exposes the channel registry so the composition root can attach
// webhook and websocket channels.
func (m *Monitor) Notifier() *notify.Notifier { return m.notifier }

// Toasts exposes the toast bus for UI subscribers.
func (m *Monitor) Toasts() *notify.ToastBus { return m.toasts }

// Engine exposes the rule registry for administrative operations.
func (m *Monitor) Engine() *alerting.Engine { return m.engine }

// Alerts exposes the alert store.
func (m *Monitor) Alerts() *alerting.Store { return m.alerts }

// Store exposes the metric store for read-side consumers.
func (m *Monitor) Store() *metric.Store { return m.store }

func (m *Monitor) record(category metric.Category, name string, value float64, meta map[string]any) metric.Sample {
	sample := metric.Sample{
		ID:        uuid.NewString(),
		Category:  category,
		Name:      name,
		Value:     value,
		Timestamp: metric.NowMillis(),
		Metadata:  meta,
	}
	m.store.Record(sample)
	samplesRecorded.WithLabelValues(string(category)).Inc()
	return sample
}

// RecordRender records a component render duration and evaluates rules.
func (m *Monitor) RecordRender(name string, durationMs float64, meta map[string]any) {
	m.record(metric.CategoryRender, name, durationMs, meta)
	m.engine.CheckRules(metric.Event{Type: metric.CategoryRender, Name: name, Value: durationMs, Source: m.source, Extra: meta})
}

// RecordAPICall records an API call latency plus status and evaluates rules.
func (m *Monitor) RecordAPICall(endpoint string, durationMs float64, statusCode int, meta map[string]any) {
	if meta == nil {
		meta = map[string]any{}
	}
	meta["statusCode"] = statusCode
	m.record(metric.CategoryAPI, endpoint, durationMs, meta)
	m.engine.CheckRules(metric.Event{Type: metric.CategoryAPI, Name: endpoint, Value: durationMs, StatusCode: statusCode, Source: m.source})
}

// RecordMemory records a memory sample in MB and evaluates rules.
func (m *Monitor) RecordMemory(name string, usedMB float64) {
	m.record(metric.CategoryMemory, name, usedMB, nil)
	m.engine.CheckRules(metric.Event{Type: metric.CategoryMemory, Name: name, Value: usedMB, Source: m.source})
}

// RecordNavigation records a navigation transition duration.
func (m *Monitor) RecordNavigation(route string, durationMs float64) {
	m.record(metric.CategoryNavigation, route, durationMs, nil)
	m.engine.CheckRules(metric.Event{Type: metric.CategoryNavigation, Name: route, Value: durationMs, Source: m.source})
}

// RecordMetric records a custom metric and evaluates rules.
func (m *Monitor) RecordMetric(name string, value float64, meta map[string]any) {
	m.record(metric.CategoryCustom, name, value, meta)
	m.engine.CheckRules(metric.Event{Type: metric.CategoryCustom, Name: name, Value: value, Source: m.source, Extra: meta})
}

// CheckEvent runs rule evaluation for an already-shaped event without
// recording a sample. Used by the synthetic test-alert endpoint.
func (m *Monitor) CheckEvent(ev metric.Event) []alerting.Alert {
	if ev.Source == "" {
		ev.Source = m.source
	}
	return m.engine.CheckRules(ev)
}

// TrackAPICall times fn, records the call with its status code, and returns
// fn's error untouched. A nil-error call with status 0 is recorded as 200.
func (m *Monitor) TrackAPICall(endpoint string, fn func() (int, error)) error {
	start := time.Now()
	status, err := fn()
	elapsed := float64(time.Since(start).Microseconds()) / 1000.0
	if status == 0 {
		if err != nil {
			status = 500
		} else {
			status = 200
		}
	}
	meta := map[string]any{"success": err == nil}
	if err != nil {
		meta["error"] = err.Error()
	}
	m.RecordAPICall(endpoint, elapsed, status, meta)
	return err
}

// MeasureOperation times fn and records its duration as a custom metric, on
// success and failure alike. Durations past the threshold are handed to rule
// evaluation as a slow-operation event. The original error is returned
// untouched.
func (m *Monitor) MeasureOperation(name string, fn func() error, threshold time.Duration) error {
	if threshold <= 0 {
		threshold = DefaultOperationThreshold
	}
	start := time.Now()
	err := fn()
	elapsed := float64(time.Since(start).Microseconds()) / 1000.0

	meta := map[string]any{"success": err == nil}
	if err != nil {
		meta["error"] = err.Error()
	}
	m.record(metric.CategoryCustom, name, elapsed, meta)

	if elapsed > float64(threshold.Milliseconds()) {
		log.Warn().Str("operation", name).Float64("duration_ms", elapsed).Msg("slow operation")
		m.engine.CheckRules(metric.Event{Type: metric.CategoryCustom, Name: name, Value: elapsed, Source: m.source, Extra: meta})
	}
	return err
}

// FireTestAlert pushes a synthetic alert through the full pipeline: it is
// stored, counted and fanned out to every channel like a real one.
func (m *Monitor) FireTestAlert(severity alerting.Severity, message string) alerting.Alert {
	switch severity {
	case alerting.SeverityCritical, alerting.SeverityWarning, alerting.SeverityInfo:
	default:
		severity = alerting.SeverityInfo
	}
	if message == "" {
		message = "synthetic test alert"
	}
	a := alerting.Alert{
		ID:        uuid.NewString(),
		RuleID:    "test_alert",
		Severity:  severity,
		Type:      alerting.TypeCustom,
		Title:     "Test Alert",
		Message:   message,
		Timestamp: metric.NowMillis(),
		Source:    m.source,
		Metadata:  map[string]any{"synthetic": true},
	}
	m.alerts.Add(&a)
	alertsFired.WithLabelValues(string(a.Severity)).Inc()
	m.notifier.Dispatch(a, []alerting.ChannelConfig{
		{Kind: alerting.ChannelConsole, Enabled: true},
		{Kind: alerting.ChannelToast, Enabled: true},
		{Kind: alerting.ChannelWebsocket, Enabled: true},
		{Kind: alerting.ChannelWebhook, Enabled: true},
	})
	return a
}

// Report aggregates retained samples; zero window means everything retained.
func (m *Monitor) Report(window time.Duration) *metric.Report {
	return m.reporter.Generate(window)
}

// Run drives the periodic background work: report generation and alert
// cleanup. It blocks until ctx is canceled; intervals <= 0 disable the
// corresponding task.
func (m *Monitor) Run(ctx context.Context) {
	var reportC, cleanupC <-chan time.Time
	if m.reportInterval > 0 {
		t := time.NewTicker(m.reportInterval)
		defer t.Stop()
		reportC = t.C
	}
	if m.cleanupInterval > 0 {
		t := time.NewTicker(m.cleanupInterval)
		defer t.Stop()
		cleanupC = t.C
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-reportC:
			r := m.Report(0)
			log.Info().
				Int("total_metrics", r.TotalMetrics).
				Int("critical_issues", r.CriticalIssues).
				Int("warnings", r.Warnings).
				Msg("periodic performance report")
		case <-cleanupC:
			if removed := m.alerts.Cleanup(m.retention); removed > 0 {
				log.Info().Int("removed", removed).Msg("cleaned up acknowledged alerts")
			}
		}
	}
}
