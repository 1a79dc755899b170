package alerting

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/rydeshare/perfmon/internal/monitoring/metric"
)

// Dispatcher fans a fired alert out to its delivery channels.
type Dispatcher interface {
	Dispatch(alert Alert, channels []ChannelConfig)
}

// Engine evaluates incoming events against the registered rules, in
// registration order, and turns eligible matches into stored and dispatched
// alerts. Registry mutation (add/remove/enable) is a rare administrative
// action guarded by a plain mutex.
type Engine struct {
	mu         sync.Mutex
	rules      []*Rule
	index      map[string]*Rule
	cooldown   Tracker
	store      *Store
	dispatcher Dispatcher
	source     string

	onFired      func(Alert)
	onSuppressed func(ruleID string)
}

// NewEngine creates an engine pre-loaded with the default rule set.
func NewEngine(store *Store, cooldown Tracker, dispatcher Dispatcher, source string) *Engine {
	e := &Engine{
		index:      make(map[string]*Rule),
		cooldown:   cooldown,
		store:      store,
		dispatcher: dispatcher,
		source:     source,
	}
	for _, r := range DefaultRules() {
		if err := e.AddRule(r); err != nil {
			log.Error().Err(err).Str("rule_id", r.ID).Msg("default rule rejected")
		}
	}
	return e
}

// SetHooks installs optional observers for fired and suppressed alerts.
func (e *Engine) SetHooks(onFired func(Alert), onSuppressed func(ruleID string)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onFired, e.onSuppressed = onFired, onSuppressed
}

// AddRule registers a rule at the end of the evaluation order.
func (e *Engine) AddRule(r *Rule) error {
	if err := ValidateRule(r); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.index[r.ID]; exists {
		return fmt.Errorf("%w: duplicate id %q", ErrInvalidRule, r.ID)
	}
	e.rules = append(e.rules, r)
	e.index[r.ID] = r
	return nil
}

// RemoveRule deletes a rule from the registry. Historical alerts keep their
// ruleId reference. Returns false for unknown ids.
func (e *Engine) RemoveRule(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.index[id]
	if !ok {
		return false
	}
	delete(e.index, id)
	for i, cur := range e.rules {
		if cur == r {
			e.rules = append(e.rules[:i], e.rules[i+1:]...)
			break
		}
	}
	return true
}

// SetEnabled toggles a rule. Returns false for unknown ids.
func (e *Engine) SetEnabled(id string, enabled bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.index[id]
	if !ok {
		return false
	}
	r.Enabled = enabled
	return true
}

// SetCooldown overrides a rule's cooldown. Returns false for unknown ids.
func (e *Engine) SetCooldown(id string, cooldown time.Duration) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.index[id]
	if !ok {
		return false
	}
	r.Cooldown = cooldown
	return true
}

// Rules returns a snapshot of the registry in evaluation order.
func (e *Engine) Rules() []Rule {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Rule, 0, len(e.rules))
	for _, r := range e.rules {
		out = append(out, *r)
	}
	return out
}

// CheckRules evaluates the event against every enabled rule and returns the
// alerts fired. A failing rule is logged and skipped; it never aborts
// evaluation of the remaining rules.
func (e *Engine) CheckRules(ev metric.Event) []Alert {
	e.mu.Lock()
	rules := make([]Rule, 0, len(e.rules))
	for _, r := range e.rules {
		rules = append(rules, *r)
	}
	onFired, onSuppressed := e.onFired, e.onSuppressed
	e.mu.Unlock()

	var fired []Alert
	for i := range rules {
		r := &rules[i]
		if !r.Enabled {
			continue
		}
		alert, ok := e.evalRule(r, ev, onSuppressed)
		if !ok {
			continue
		}
		e.store.Add(&alert)
		if e.dispatcher != nil {
			e.dispatcher.Dispatch(alert, r.Channels)
		}
		if onFired != nil {
			onFired(alert)
		}
		fired = append(fired, alert)
	}
	return fired
}

func (e *Engine) evalRule(r *Rule, ev metric.Event, onSuppressed func(string)) (alert Alert, ok bool) {
	// a broken rule must not take the rest of the evaluation down with it
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Str("rule_id", r.ID).Str("event", ev.Name).Msg("rule evaluation panicked; rule skipped")
			ok = false
		}
	}()

	matched, err := r.Condition.Match(ev)
	if err != nil {
		log.Error().Err(err).Str("rule_id", r.ID).Str("event", ev.Name).Msg("rule condition failed; rule skipped")
		return Alert{}, false
	}
	if !matched {
		return Alert{}, false
	}
	if !e.cooldown.ShouldFire(r.ID, r.Cooldown, ev) {
		if onSuppressed != nil {
			onSuppressed(r.ID)
		}
		return Alert{}, false
	}

	source := ev.Source
	if source == "" {
		source = e.source
	}
	metadata := map[string]any{
		"event":     ev,
		"threshold": r.Condition.Threshold,
		"operator":  r.Condition.Op,
	}
	a := Alert{
		ID:        uuid.NewString(),
		RuleID:    r.ID,
		Severity:  r.Severity,
		Type:      r.Type,
		Title:     r.Name,
		Message:   r.Message(ev),
		Timestamp: metric.NowMillis(),
		Source:    source,
		Metadata:  metadata,
	}
	log.Debug().Str("rule_id", r.ID).Str("alert_id", a.ID).Str("severity", string(a.Severity)).Msg("alert fired")
	return a, true
}
