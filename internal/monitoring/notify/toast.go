package notify

import (
	"sync"
	"time"

	"github.com/rydeshare/perfmon/internal/monitoring/alerting"
)

// ToastEvent is a UI-facing notification carrying an alert and how long the
// embedding application should display it. It never leaves the process.
type ToastEvent struct {
	Alert    alerting.Alert `json:"alert"`
	Duration time.Duration  `json:"duration"`
}

// ToastBus delivers toast events to in-process subscribers, synchronously and
// in subscription order.
type ToastBus struct {
	mu   sync.RWMutex
	subs []func(ToastEvent)
}

func NewToastBus() *ToastBus { return &ToastBus{} }

// Subscribe registers a listener for future toast events.
func (b *ToastBus) Subscribe(fn func(ToastEvent)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, fn)
}

func (b *ToastBus) publish(ev ToastEvent) {
	b.mu.RLock()
	subs := make([]func(ToastEvent), len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()
	for _, fn := range subs {
		fn(ev)
	}
}

// ToastChannel converts alerts into toast events on a bus.
type ToastChannel struct {
	bus *ToastBus
}

func NewToastChannel(bus *ToastBus) *ToastChannel { return &ToastChannel{bus: bus} }

func (c *ToastChannel) Kind() alerting.ChannelKind { return alerting.ChannelToast }

func (c *ToastChannel) Deliver(alert alerting.Alert) error {
	c.bus.publish(ToastEvent{Alert: alert, Duration: displayDuration(alert.Severity)})
	return nil
}

func displayDuration(sev alerting.Severity) time.Duration {
	switch sev {
	case alerting.SeverityCritical:
		return 10 * time.Second
	case alerting.SeverityWarning:
		return 6 * time.Second
	default:
		return 4 * time.Second
	}
}
