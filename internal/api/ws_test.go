package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/rydeshare/perfmon/internal/monitoring/alerting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_BroadcastWithoutClients(t *testing.T) {
	hub := NewHub(alerting.NewStore(0))
	n := hub.BroadcastAlert(alerting.Alert{ID: "a-1", Severity: alerting.SeverityWarning})
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHub_SubscriptionFiltering(t *testing.T) {
	hub := NewHub(alerting.NewStore(0))

	all := &wsClient{id: "all", send: make(chan []byte, 4), subs: map[string]bool{}}
	alertsOnly := &wsClient{id: "alerts", send: make(chan []byte, 4), subs: map[string]bool{"alerts": true}}
	other := &wsClient{id: "other", send: make(chan []byte, 4), subs: map[string]bool{"metrics": true}}
	hub.clients[all] = struct{}{}
	hub.clients[alertsOnly] = struct{}{}
	hub.clients[other] = struct{}{}

	n := hub.BroadcastAlert(alerting.Alert{ID: "a-1", Severity: alerting.SeverityCritical})
	assert.Equal(t, 2, n, "empty subscription list receives everything; foreign channel does not")
	assert.Len(t, all.send, 1)
	assert.Len(t, alertsOnly.send, 1)
	assert.Len(t, other.send, 0)
}

func TestHub_SlowClientDropsFrames(t *testing.T) {
	hub := NewHub(alerting.NewStore(0))
	slow := &wsClient{id: "slow", send: make(chan []byte, 1), subs: map[string]bool{}}
	hub.clients[slow] = struct{}{}

	assert.Equal(t, 1, hub.BroadcastAlert(alerting.Alert{ID: "a-1"}))
	assert.Equal(t, 0, hub.BroadcastAlert(alerting.Alert{ID: "a-2"}), "full buffer means the frame is dropped, not blocked on")
	assert.Len(t, slow.send, 1)
}

func readFrame(t *testing.T, ctx context.Context, conn *websocket.Conn) map[string]any {
	t.Helper()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var frame map[string]any
	require.NoError(t, json.Unmarshal(data, &frame))
	return frame
}

func TestHub_Connection(t *testing.T) {
	store := alerting.NewStore(0)
	store.Add(&alerting.Alert{ID: "old-1", Severity: alerting.SeverityWarning, Timestamp: time.Now().UnixMilli()})
	hub := NewHub(store)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "done")

	ack := readFrame(t, ctx, conn)
	assert.Equal(t, "connection_ack", ack["type"])
	assert.NotEmpty(t, ack["clientId"])
	recent, ok := ack["recentAlerts"].([]any)
	require.True(t, ok)
	assert.Len(t, recent, 1)

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"type":"subscribe","channels":["alerts"]}`)))
	sub := readFrame(t, ctx, conn)
	assert.Equal(t, "subscription_updated", sub["type"])

	// wait for registration before broadcasting
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	require.Equal(t, 1, hub.BroadcastAlert(alerting.Alert{
		ID: "a-1", Severity: alerting.SeverityCritical, Title: "Test", Message: "boom",
	}))
	frame := readFrame(t, ctx, conn)
	assert.Equal(t, "performance_alert", frame["type"])
	assert.Equal(t, "a-1", frame["id"])
	assert.Equal(t, "critical", frame["severity"])

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"type":"acknowledge_alert","alertId":"old-1"}`)))
	ackFrame := readFrame(t, ctx, conn)
	assert.Equal(t, "alert_acknowledged", ackFrame["type"])
	assert.Equal(t, "old-1", ackFrame["alertId"])
	assert.True(t, store.Recent(10)[0].Acknowledged)

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"type":"ping"}`)))
	pong := readFrame(t, ctx, conn)
	assert.Equal(t, "pong", pong["type"])
}
