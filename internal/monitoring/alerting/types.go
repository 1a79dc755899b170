package alerting

import (
	"time"

	"github.com/rydeshare/perfmon/internal/monitoring/metric"
)

// Severity ranks how urgent an alert is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Type classifies what kind of condition produced an alert.
type Type string

const (
	TypePerformance Type = "performance"
	TypeError       Type = "error"
	TypeSystem      Type = "system"
	TypeCustom      Type = "custom"
)

// ChannelKind names a delivery mechanism for fired alerts.
type ChannelKind string

const (
	ChannelConsole   ChannelKind = "console"
	ChannelToast     ChannelKind = "toast"
	ChannelWebsocket ChannelKind = "websocket"
	ChannelWebhook   ChannelKind = "webhook"
)

// ChannelConfig selects a delivery channel for a rule.
type ChannelConfig struct {
	Kind    ChannelKind `json:"kind" yaml:"kind"`
	Enabled bool        `json:"enabled" yaml:"enabled"`
}

// Operator is a comparison applied by a rule condition.
type Operator string

const (
	OpGt  Operator = "gt"
	OpGte Operator = "gte"
	OpLt  Operator = "lt"
	OpLte Operator = "lte"
)

// Condition is a rule predicate expressed as data: an event matches when its
// category equals Category and the selected field compares true against
// Threshold. Field is "value" or "statusCode"; empty means "value".
type Condition struct {
	Category  metric.Category `json:"category" yaml:"category"`
	Field     string          `json:"field,omitempty" yaml:"field,omitempty"`
	Op        Operator        `json:"op" yaml:"op"`
	Threshold float64         `json:"threshold" yaml:"threshold"`
}

// Match reports whether the event satisfies the condition. Conditions are
// pure; they carry no side effects.
func (c Condition) Match(ev metric.Event) (bool, error) {
	if ev.Type != c.Category {
		return false, nil
	}
	var v float64
	switch c.Field {
	case "", "value":
		v = ev.Value
	case "statusCode":
		v = float64(ev.StatusCode)
	default:
		return false, ErrUnknownField
	}
	switch c.Op {
	case OpGt:
		return v > c.Threshold, nil
	case OpGte:
		return v >= c.Threshold, nil
	case OpLt:
		return v < c.Threshold, nil
	case OpLte:
		return v <= c.Threshold, nil
	default:
		return false, ErrUnknownOperator
	}
}

// Rule converts matching events into alerts. Identity (ID) is immutable once
// registered.
type Rule struct {
	ID        string          `json:"id" yaml:"id"`
	Name      string          `json:"name" yaml:"name"`
	Enabled   bool            `json:"enabled" yaml:"enabled"`
	Condition Condition       `json:"condition" yaml:"condition"`
	Severity  Severity        `json:"severity" yaml:"severity"`
	Type      Type            `json:"type" yaml:"type"`
	Cooldown  time.Duration   `json:"cooldown" yaml:"-"`
	Channels  []ChannelConfig `json:"channels" yaml:"channels"`
}

// Alert is a fired rule match. Acknowledged and ResolvedAt are the only
// fields mutated after creation, and only through the alert store.
type Alert struct {
	ID           string         `json:"id"`
	RuleID       string         `json:"ruleId"`
	Severity     Severity       `json:"severity"`
	Type         Type           `json:"type"`
	Title        string         `json:"title"`
	Message      string         `json:"message"`
	Timestamp    int64          `json:"timestamp"` // epoch milliseconds
	Source       string         `json:"source"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Acknowledged bool           `json:"acknowledged"`
	ResolvedAt   *int64         `json:"resolvedAt,omitempty"`
}
