package alerting

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rydeshare/perfmon/internal/monitoring/metric"
	"gopkg.in/yaml.v3"
)

var (
	// ErrInvalidRule indicates a rule is incomplete or malformed.
	ErrInvalidRule = errors.New("invalid alert rule")
	// ErrUnknownField indicates a condition references a field no event carries.
	ErrUnknownField = errors.New("unknown condition field")
	// ErrUnknownOperator indicates a condition uses an unsupported comparison.
	ErrUnknownOperator = errors.New("unknown condition operator")
)

func allChannels() []ChannelConfig {
	return []ChannelConfig{
		{Kind: ChannelConsole, Enabled: true},
		{Kind: ChannelToast, Enabled: true},
		{Kind: ChannelWebsocket, Enabled: true},
		{Kind: ChannelWebhook, Enabled: true},
	}
}

// DefaultRules returns the stock rule set. Thresholds and cooldowns are fixed
// for compatibility with the dashboards consuming these rule ids.
func DefaultRules() []*Rule {
	return []*Rule{
		{
			ID: "slow_render", Name: "Slow Render", Enabled: true,
			Condition: Condition{Category: metric.CategoryRender, Op: OpGt, Threshold: 16},
			Severity:  SeverityWarning, Type: TypePerformance,
			Cooldown: 5 * time.Second, Channels: allChannels(),
		},
		{
			ID: "very_slow_render", Name: "Very Slow Render", Enabled: true,
			Condition: Condition{Category: metric.CategoryRender, Op: OpGt, Threshold: 50},
			Severity:  SeverityCritical, Type: TypePerformance,
			Cooldown: 3 * time.Second, Channels: allChannels(),
		},
		{
			ID: "api_error", Name: "API Error", Enabled: true,
			Condition: Condition{Category: metric.CategoryAPI, Field: "statusCode", Op: OpGte, Threshold: 500},
			Severity:  SeverityCritical, Type: TypeError,
			Cooldown: 10 * time.Second, Channels: allChannels(),
		},
		{
			ID: "slow_api", Name: "Slow API", Enabled: true,
			Condition: Condition{Category: metric.CategoryAPI, Op: OpGt, Threshold: 2000},
			Severity:  SeverityWarning, Type: TypePerformance,
			Cooldown: 30 * time.Second, Channels: allChannels(),
		},
		{
			ID: "memory_high", Name: "High Memory Usage", Enabled: true,
			Condition: Condition{Category: metric.CategoryMemory, Op: OpGt, Threshold: 150},
			Severity:  SeverityWarning, Type: TypeSystem,
			Cooldown: 60 * time.Second, Channels: allChannels(),
		},
		{
			ID: "memory_critical", Name: "Critical Memory Usage", Enabled: true,
			Condition: Condition{Category: metric.CategoryMemory, Op: OpGt, Threshold: 200},
			Severity:  SeverityCritical, Type: TypeSystem,
			Cooldown: 30 * time.Second, Channels: allChannels(),
		},
	}
}

// ValidateRule checks the fields callers must supply before registration.
func ValidateRule(r *Rule) error {
	if r == nil || r.ID == "" || r.Name == "" {
		return ErrInvalidRule
	}
	if r.Condition.Category == "" {
		return fmt.Errorf("%w: missing condition category", ErrInvalidRule)
	}
	switch r.Condition.Op {
	case OpGt, OpGte, OpLt, OpLte:
	default:
		return fmt.Errorf("%w: operator %q", ErrUnknownOperator, r.Condition.Op)
	}
	switch r.Condition.Field {
	case "", "value", "statusCode":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, r.Condition.Field)
	}
	if r.Cooldown < 0 {
		return fmt.Errorf("%w: negative cooldown", ErrInvalidRule)
	}
	return nil
}

// Message renders the rule-type-specific alert message for a matching event.
func (r *Rule) Message(ev metric.Event) string {
	switch r.Type {
	case TypeError:
		return fmt.Sprintf("%s failed with status %d (value %s)", ev.Name, ev.StatusCode, formatValue(ev.Value))
	case TypeSystem:
		return fmt.Sprintf("%s at %sMB (threshold %s)", ev.Name, formatValue(ev.Value), formatValue(r.Condition.Threshold))
	case TypePerformance:
		return fmt.Sprintf("%s took %sms (threshold %s)", ev.Name, formatValue(ev.Value), formatValue(r.Condition.Threshold))
	default:
		return fmt.Sprintf("%s reported %s", ev.Name, formatValue(ev.Value))
	}
}

func formatValue(v float64) string { return fmt.Sprintf("%g", v) }

type ruleConfigFile struct {
	Rules []ruleConfigItem `yaml:"rules"`
}

type ruleConfigItem struct {
	ID        string          `yaml:"id"`
	Name      string          `yaml:"name"`
	Enabled   *bool           `yaml:"enabled"`
	Condition Condition       `yaml:"condition"`
	Severity  Severity        `yaml:"severity"`
	Type      Type            `yaml:"type"`
	Cooldown  string          `yaml:"cooldown"` // e.g. "30s"
	Channels  []ChannelConfig `yaml:"channels"`
}

// LoadRulesFile reads additional rules from a YAML config file. Rules with a
// missing cooldown default to 30s; a missing channel list means all channels.
func LoadRulesFile(path string) ([]*Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules config: %w", err)
	}
	var cfg ruleConfigFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse rules config: %w", err)
	}
	rules := make([]*Rule, 0, len(cfg.Rules))
	for _, item := range cfg.Rules {
		r := &Rule{
			ID:        item.ID,
			Name:      item.Name,
			Enabled:   true,
			Condition: item.Condition,
			Severity:  item.Severity,
			Type:      item.Type,
			Cooldown:  30 * time.Second,
			Channels:  item.Channels,
		}
		if item.Enabled != nil {
			r.Enabled = *item.Enabled
		}
		if item.Cooldown != "" {
			if d, perr := time.ParseDuration(item.Cooldown); perr == nil {
				r.Cooldown = d
			}
		}
		if r.Severity == "" {
			r.Severity = SeverityWarning
		}
		if r.Type == "" {
			r.Type = TypeCustom
		}
		if len(r.Channels) == 0 {
			r.Channels = allChannels()
		}
		if err := ValidateRule(r); err != nil {
			return nil, fmt.Errorf("rule %q: %w", item.ID, err)
		}
		rules = append(rules, r)
	}
	return rules, nil
}
