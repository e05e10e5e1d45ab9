package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/weatherstation/internal/metric"
	"github.com/weatherstation/internal/series"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Message types sent to dashboard clients.
const (
	TypeSnapshot = "snapshot"
	TypeUpdate   = "update"
)

// Message is one websocket frame to a client.
type Message struct {
	Type     string           `json:"type"`
	Snapshot *series.Snapshot `json:"snapshot,omitempty"`
	Update   *series.Update   `json:"update,omitempty"`
}

// SnapshotFunc returns the current chart state for a new client.
type SnapshotFunc func() series.Snapshot

// Hub fans chart updates out to every connected client.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan series.Update
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	snapshot   SnapshotFunc
	log        logrus.FieldLogger
	metric     *metric.Metric
}

// Client is one dashboard connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a hub. snapshot is sent to each client on connect.
func NewHub(snapshot SnapshotFunc, log logrus.FieldLogger, m *metric.Metric) *Hub {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Hub{
		broadcast:  make(chan series.Update, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		snapshot:   snapshot,
		log:        log.WithField("component", "websocket"),
		metric:     m,
	}
}

// Run serves register, unregister and broadcast until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.metric.WSClients(0)
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			// First frame is the full chart, queued before any update.
			if data, err := json.Marshal(Message{Type: TypeSnapshot, Snapshot: h.snapshotPtr()}); err == nil {
				client.send <- data
			} else {
				h.log.WithError(err).Error("failed to marshal snapshot")
			}
			h.metric.WSClients(n)
			h.log.WithField("clients", n).Info("client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.metric.WSClients(n)
			h.log.WithField("clients", n).Info("client disconnected")

		case update := <-h.broadcast:
			data, err := json.Marshal(Message{Type: TypeUpdate, Update: &update})
			if err != nil {
				h.log.WithError(err).Error("failed to marshal update")
				continue
			}
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- data:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) snapshotPtr() *series.Snapshot {
	if h.snapshot == nil {
		return &series.Snapshot{}
	}
	s := h.snapshot()
	return &s
}

// Publish queues a chart update for broadcast. It never blocks.
func (h *Hub) Publish(u series.Update) {
	select {
	case h.broadcast <- u:
	default:
		h.log.Warn("broadcast channel full, dropping update")
	}
}

// ServeWS upgrades the request and attaches the client.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("failed to upgrade connection")
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 256),
	}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

const (
	writeWait = 10 * time.Second

	pongWait = 60 * time.Second

	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 512
)

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.WithError(err).Warn("error reading message")
			}
			return
		}
	}
}

// writePump sends one JSON message per websocket frame so clients can
// parse each frame directly.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// GetClientCount returns the number of connected clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
