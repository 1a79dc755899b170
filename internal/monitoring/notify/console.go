package notify

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rydeshare/perfmon/internal/monitoring/alerting"
)

// ConsoleChannel logs alerts at a level derived from severity.
type ConsoleChannel struct{}

func NewConsoleChannel() *ConsoleChannel { return &ConsoleChannel{} }

func (c *ConsoleChannel) Kind() alerting.ChannelKind { return alerting.ChannelConsole }

func (c *ConsoleChannel) Deliver(alert alerting.Alert) error {
	var ev *zerolog.Event
	switch alert.Severity {
	case alerting.SeverityCritical:
		ev = log.Error()
	case alerting.SeverityWarning:
		ev = log.Warn()
	default:
		ev = log.Info()
	}
	ev.Str("alert_id", alert.ID).
		Str("rule_id", alert.RuleID).
		Str("severity", string(alert.Severity)).
		Str("source", alert.Source).
		Str("title", alert.Title).
		Msg(alert.Message)
	return nil
}
