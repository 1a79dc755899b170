// Package notify fans fired alerts out to delivery channels. Each channel is
// independently fault-tolerant: one channel failing, or panicking, never
// prevents delivery attempts to the remaining channels, and no failure ever
// propagates to the caller.
package notify

import (
	"github.com/rs/zerolog/log"
	"github.com/rydeshare/perfmon/internal/monitoring/alerting"
)

// Channel delivers one alert over one mechanism.
type Channel interface {
	Kind() alerting.ChannelKind
	Deliver(alert alerting.Alert) error
}

// Notifier dispatches alerts to the subset of registered channels a rule
// selects.
type Notifier struct {
	channels  map[alerting.ChannelKind]Channel
	onFailure func(kind alerting.ChannelKind)
}

func NewNotifier(channels ...Channel) *Notifier {
	n := &Notifier{channels: make(map[alerting.ChannelKind]Channel, len(channels))}
	for _, c := range channels {
		n.channels[c.Kind()] = c
	}
	return n
}

// SetFailureHook installs an observer called once per failed delivery.
func (n *Notifier) SetFailureHook(fn func(kind alerting.ChannelKind)) { n.onFailure = fn }

// Register adds or replaces a channel.
func (n *Notifier) Register(c Channel) { n.channels[c.Kind()] = c }

// Dispatch attempts delivery to every enabled, registered channel in the
// config list. Failures are logged per channel and swallowed.
func (n *Notifier) Dispatch(alert alerting.Alert, channels []alerting.ChannelConfig) {
	for _, cfg := range channels {
		if !cfg.Enabled {
			continue
		}
		ch, ok := n.channels[cfg.Kind]
		if !ok {
			continue
		}
		n.deliver(ch, alert)
	}
}

func (n *Notifier) deliver(ch Channel, alert alerting.Alert) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Str("channel", string(ch.Kind())).Str("alert_id", alert.ID).Msg("alert channel panicked")
			if n.onFailure != nil {
				n.onFailure(ch.Kind())
			}
		}
	}()
	if err := ch.Deliver(alert); err != nil {
		log.Error().Err(err).Str("channel", string(ch.Kind())).Str("alert_id", alert.ID).Msg("alert delivery failed")
		if n.onFailure != nil {
			n.onFailure(ch.Kind())
		}
	}
}
