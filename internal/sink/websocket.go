package sink

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/internal/correlator"
	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/pkg/resilience"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
	wsClientBuf  = 256
)

// WebSocket streams matches to connected clients as JSON Events. Clients
// may narrow the stream with ?type=<query type> and/or ?query_id=<id>.
// A client whose buffer fills up is disconnected rather than slowing the
// correlator down.
type WebSocket struct {
	upgrader websocket.Upgrader
	metrics  *metrics.Metrics
	logger   *slog.Logger

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
	closed  bool
	wg      sync.WaitGroup
}

type wsClient struct {
	conn      *websocket.Conn
	send      chan []byte
	queryType string
	queryID   *uint32
	closeOnce sync.Once
}

func (c *wsClient) wants(ev Event) bool {
	if c.queryType != "" && c.queryType != ev.QueryType {
		return false
	}
	if c.queryID != nil && *c.queryID != ev.QueryID {
		return false
	}
	return true
}

func NewWebSocket(m *metrics.Metrics) *WebSocket {
	return &WebSocket{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		metrics: m,
		logger:  slog.Default().With("component", "websocket-sink"),
		clients: make(map[*wsClient]struct{}),
	}
}

// ServeHTTP upgrades the request and registers the client.
func (ws *WebSocket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	client := &wsClient{send: make(chan []byte, wsClientBuf)}
	client.queryType = r.URL.Query().Get("type")
	if raw := r.URL.Query().Get("query_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			http.Error(w, `{"error":"query_id must be an unsigned integer"}`, http.StatusBadRequest)
			return
		}
		qid := uint32(id)
		client.queryID = &qid
	}

	conn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		ws.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	client.conn = conn

	ws.mu.Lock()
	if ws.closed {
		ws.mu.Unlock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(time.Second))
		_ = conn.Close()
		return
	}
	ws.clients[client] = struct{}{}
	count := len(ws.clients)
	ws.wg.Add(2)
	ws.mu.Unlock()

	ws.logger.Info("websocket client connected",
		"remote", r.RemoteAddr,
		"type", client.queryType,
		"clients", count,
	)
	go ws.writeLoop(client)
	go ws.readLoop(client)
}

// Clients returns the number of connected clients.
func (ws *WebSocket) Clients() int {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return len(ws.clients)
}

func (ws *WebSocket) OnMatch(_ context.Context, m correlator.Match) error {
	ev := NewEvent(m)
	data, err := json.Marshal(ev)
	if err != nil {
		return resilience.Permanent(err)
	}

	ws.mu.RLock()
	var slow []*wsClient
	for c := range ws.clients {
		if !c.wants(ev) {
			continue
		}
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	ws.mu.RUnlock()

	for _, c := range slow {
		ws.logger.Warn("disconnecting slow websocket client", "remote", c.conn.RemoteAddr().String())
		if ws.metrics != nil {
			ws.metrics.SinkDroppedTotal.WithLabelValues("websocket").Inc()
		}
		ws.remove(c)
	}
	return nil
}

// Close disconnects every client and waits for their goroutines.
func (ws *WebSocket) Close() {
	ws.mu.Lock()
	ws.closed = true
	clients := make([]*wsClient, 0, len(ws.clients))
	for c := range ws.clients {
		clients = append(clients, c)
	}
	ws.mu.Unlock()

	for _, c := range clients {
		ws.remove(c)
	}
	ws.wg.Wait()
}

func (ws *WebSocket) remove(c *wsClient) {
	ws.mu.Lock()
	if _, ok := ws.clients[c]; ok {
		delete(ws.clients, c)
	}
	ws.mu.Unlock()
	c.closeOnce.Do(func() { close(c.send) })
}

func (ws *WebSocket) writeLoop(c *wsClient) {
	defer ws.wg.Done()
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				ws.remove(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				ws.remove(c)
				return
			}
		}
	}
}

// readLoop discards client frames; it exists to process pongs and notice
// disconnects.
func (ws *WebSocket) readLoop(c *wsClient) {
	defer ws.wg.Done()
	defer ws.remove(c)
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
