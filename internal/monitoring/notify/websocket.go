package notify

import (
	"github.com/rs/zerolog/log"
	"github.com/rydeshare/perfmon/internal/monitoring/alerting"
)

// AlertBroadcaster pushes an alert frame to live websocket clients and
// reports how many received it.
type AlertBroadcaster interface {
	BroadcastAlert(alert alerting.Alert) int
}

// WebsocketChannel forwards alerts to the websocket hub. When no hub is wired
// or no client is connected the alert is silently skipped; there is no
// queuing or retry.
type WebsocketChannel struct {
	hub AlertBroadcaster
}

func NewWebsocketChannel(hub AlertBroadcaster) *WebsocketChannel {
	return &WebsocketChannel{hub: hub}
}

func (c *WebsocketChannel) Kind() alerting.ChannelKind { return alerting.ChannelWebsocket }

func (c *WebsocketChannel) Deliver(alert alerting.Alert) error {
	if c.hub == nil {
		return nil
	}
	if n := c.hub.BroadcastAlert(alert); n > 0 {
		log.Debug().Str("alert_id", alert.ID).Int("clients", n).Msg("alert broadcast to websocket clients")
	}
	return nil
}
