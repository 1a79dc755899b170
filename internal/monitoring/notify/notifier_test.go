package notify

import (
	"errors"
	"testing"
	"time"

	"github.com/rydeshare/perfmon/internal/monitoring/alerting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	kind     alerting.ChannelKind
	calls    int
	err      error
	panicMsg string
}

func (f *fakeChannel) Kind() alerting.ChannelKind { return f.kind }

func (f *fakeChannel) Deliver(alerting.Alert) error {
	f.calls++
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	return f.err
}

func testAlert(sev alerting.Severity) alerting.Alert {
	return alerting.Alert{
		ID:        "a-1",
		RuleID:    "slow_render",
		Severity:  sev,
		Type:      alerting.TypePerformance,
		Title:     "Slow Render",
		Message:   "HomeScreen took 20ms",
		Timestamp: time.Now().UnixMilli(),
		Source:    "test",
	}
}

func allEnabled(kinds ...alerting.ChannelKind) []alerting.ChannelConfig {
	out := make([]alerting.ChannelConfig, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, alerting.ChannelConfig{Kind: k, Enabled: true})
	}
	return out
}

func TestNotifier_FailureDoesNotBlockSiblings(t *testing.T) {
	a := &fakeChannel{kind: alerting.ChannelConsole, err: errors.New("boom")}
	b := &fakeChannel{kind: alerting.ChannelToast}
	c := &fakeChannel{kind: alerting.ChannelWebhook}
	n := NewNotifier(a, b, c)

	n.Dispatch(testAlert(alerting.SeverityWarning), allEnabled(a.kind, b.kind, c.kind))

	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls, "second channel still attempted after first failed")
	assert.Equal(t, 1, c.calls, "third channel still attempted after first failed")
}

func TestNotifier_PanicIsolated(t *testing.T) {
	a := &fakeChannel{kind: alerting.ChannelConsole, panicMsg: "channel exploded"}
	b := &fakeChannel{kind: alerting.ChannelToast}
	n := NewNotifier(a, b)

	assert.NotPanics(t, func() {
		n.Dispatch(testAlert(alerting.SeverityCritical), allEnabled(a.kind, b.kind))
	})
	assert.Equal(t, 1, b.calls)
}

func TestNotifier_DisabledAndUnknownChannelsSkipped(t *testing.T) {
	a := &fakeChannel{kind: alerting.ChannelConsole}
	n := NewNotifier(a)

	n.Dispatch(testAlert(alerting.SeverityInfo), []alerting.ChannelConfig{
		{Kind: alerting.ChannelConsole, Enabled: false},
		{Kind: alerting.ChannelWebsocket, Enabled: true}, // not registered
	})
	assert.Equal(t, 0, a.calls)
}

func TestNotifier_FailureHook(t *testing.T) {
	a := &fakeChannel{kind: alerting.ChannelConsole, err: errors.New("boom")}
	b := &fakeChannel{kind: alerting.ChannelToast}
	n := NewNotifier(a, b)

	var failed []alerting.ChannelKind
	n.SetFailureHook(func(kind alerting.ChannelKind) { failed = append(failed, kind) })

	n.Dispatch(testAlert(alerting.SeverityWarning), allEnabled(a.kind, b.kind))
	require.Len(t, failed, 1)
	assert.Equal(t, alerting.ChannelConsole, failed[0])
}

func TestToastBus_DeliversWithSeverityDuration(t *testing.T) {
	bus := NewToastBus()
	var got []ToastEvent
	bus.Subscribe(func(ev ToastEvent) { got = append(got, ev) })

	ch := NewToastChannel(bus)
	require.NoError(t, ch.Deliver(testAlert(alerting.SeverityCritical)))
	require.NoError(t, ch.Deliver(testAlert(alerting.SeverityWarning)))
	require.NoError(t, ch.Deliver(testAlert(alerting.SeverityInfo)))

	require.Len(t, got, 3)
	assert.Equal(t, 10*time.Second, got[0].Duration)
	assert.Equal(t, 6*time.Second, got[1].Duration)
	assert.Equal(t, 4*time.Second, got[2].Duration)
}

func TestConsoleChannel_NeverFails(t *testing.T) {
	ch := NewConsoleChannel()
	for _, sev := range []alerting.Severity{alerting.SeverityCritical, alerting.SeverityWarning, alerting.SeverityInfo} {
		assert.NoError(t, ch.Deliver(testAlert(sev)))
	}
}

type fakeBroadcaster struct{ calls, clients int }

func (f *fakeBroadcaster) BroadcastAlert(alerting.Alert) int {
	f.calls++
	return f.clients
}

func TestWebsocketChannel_SkipsWithoutHub(t *testing.T) {
	ch := NewWebsocketChannel(nil)
	assert.NoError(t, ch.Deliver(testAlert(alerting.SeverityWarning)))

	hub := &fakeBroadcaster{clients: 2}
	ch = NewWebsocketChannel(hub)
	assert.NoError(t, ch.Deliver(testAlert(alerting.SeverityWarning)))
	assert.Equal(t, 1, hub.calls)
}
