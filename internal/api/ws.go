package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/rydeshare/perfmon/internal/monitoring/alerting"
)

const (
	pingInterval    = 30 * time.Second
	readTimeout     = 60 * time.Second
	recentAlertsMax = 20
	sendBufferSize  = 64
)

// Hub manages websocket connections for the alerting dashboard. Frames are
// fire-and-forget JSON; a client that cannot keep up has frames dropped
// rather than blocking the pipeline.
type Hub struct {
	mu      sync.RWMutex
	clients map[*wsClient]struct{}
	alerts  *alerting.Store
}

type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	mu   sync.Mutex
	subs map[string]bool // subscribed channel names; empty means all
}

func NewHub(alerts *alerting.Store) *Hub {
	return &Hub{clients: make(map[*wsClient]struct{}), alerts: alerts}
}

type wsFrame struct {
	Type string `json:"type"`
	// inbound
	Channels []string `json:"channels,omitempty"`
	AlertID  string   `json:"alertId,omitempty"`
}

// ClientCount reports how many clients are connected.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastAlert pushes a performance_alert frame to every client subscribed
// to the alerts channel and returns how many clients it was queued for.
func (h *Hub) BroadcastAlert(alert alerting.Alert) int {
	return h.broadcast("alerts", map[string]any{
		"type":         "performance_alert",
		"id":           alert.ID,
		"severity":     alert.Severity,
		"title":        alert.Title,
		"message":      alert.Message,
		"timestamp":    alert.Timestamp,
		"source":       alert.Source,
		"metadata":     alert.Metadata,
		"acknowledged": alert.Acknowledged,
	})
}

func (h *Hub) broadcastAck(alertID, acknowledgedBy string) {
	h.broadcast("alerts", map[string]any{
		"type":           "alert_acknowledged",
		"alertId":        alertID,
		"acknowledgedBy": acknowledgedBy,
		"timestamp":      time.Now().UnixMilli(),
	})
}

func (h *Hub) broadcast(channel string, frame map[string]any) int {
	data, err := json.Marshal(frame)
	if err != nil {
		log.Error().Err(err).Msg("marshal websocket frame failed")
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for c := range h.clients {
		if !c.subscribed(channel) {
			continue
		}
		select {
		case c.send <- data:
			n++
		default:
			// client too slow, drop the frame
		}
	}
	return n
}

func (c *wsClient) subscribed(channel string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.subs) == 0 {
		return true
	}
	return c.subs[channel]
}

// HandleWS upgrades the request and serves the connection until it closes.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // dashboard may be served from another origin
	})
	if err != nil {
		log.Error().Err(err).Msg("websocket accept failed")
		return
	}

	client := &wsClient{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		subs: make(map[string]bool),
	}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	log.Info().Str("client_id", client.id).Msg("websocket client connected")

	h.sendConnectionAck(client)

	ctx := r.Context()
	go client.pingLoop(ctx)
	go client.writePump(ctx)
	h.readPump(ctx, client)
}

func (h *Hub) sendConnectionAck(c *wsClient) {
	ack, err := json.Marshal(map[string]any{
		"type":         "connection_ack",
		"clientId":     c.id,
		"timestamp":    time.Now().UnixMilli(),
		"recentAlerts": h.alerts.Recent(recentAlertsMax),
	})
	if err != nil {
		return
	}
	select {
	case c.send <- ack:
	default:
	}
}

func (h *Hub) readPump(ctx context.Context, c *wsClient) {
	defer func() {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
		close(c.send)
		c.conn.Close(websocket.StatusNormalClosure, "bye")
		log.Info().Str("client_id", c.id).Msg("websocket client disconnected")
	}()

	for {
		readCtx, cancel := context.WithTimeout(ctx, readTimeout)
		_, data, err := c.conn.Read(readCtx)
		cancel()
		if err != nil {
			return
		}
		var frame wsFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		h.handleFrame(c, frame)
	}
}

func (h *Hub) handleFrame(c *wsClient, frame wsFrame) {
	switch frame.Type {
	case "subscribe":
		c.mu.Lock()
		for _, ch := range frame.Channels {
			c.subs[ch] = true
		}
		subs := make([]string, 0, len(c.subs))
		for ch := range c.subs {
			subs = append(subs, ch)
		}
		c.mu.Unlock()
		c.reply(map[string]any{"type": "subscription_updated", "subscriptions": subs})
	case "acknowledge_alert":
		if frame.AlertID == "" {
			return
		}
		h.alerts.Acknowledge(frame.AlertID)
		h.broadcastAck(frame.AlertID, c.id)
	case "ping":
		c.reply(map[string]any{"type": "pong", "timestamp": time.Now().UnixMilli()})
	}
}

func (c *wsClient) reply(frame map[string]any) {
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (c *wsClient) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		}
	}
}

func (c *wsClient) writePump(ctx context.Context) {
	for data := range c.send {
		if err := c.conn.Write(ctx, websocket.MessageText, data); err != nil {
			return
		}
	}
}
