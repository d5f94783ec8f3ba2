package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/savegress/vitalink/pkg/models"
)

// WebSocket message type constants
const (
	TypeSubscribe   = "subscribe"
	TypeUnsubscribe = "unsubscribe"
	TypeReading     = "reading"
	TypeAlert       = "alert"
	TypeEvent       = "event"
	TypeError       = "error"
	TypePong        = "pong"
)

// Stream channel constants. Reading channels can be narrowed to one
// kind with "readings:<kind>".
const (
	ChannelReadings = "readings"
	ChannelAlerts   = "alerts"
	ChannelEvents   = "events"
)

// StreamMessage is one frame pushed to WebSocket clients
type StreamMessage struct {
	Type      string          `json:"type"`
	Channel   string          `json:"channel,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Error     string          `json:"error,omitempty"`
}

// Client is one connected WebSocket consumer
type Client struct {
	ID            string
	conn          *websocket.Conn
	hub           *Hub
	send          chan []byte
	subscriptions map[string]bool
	mu            sync.Mutex
}

// Hub fans readings, alerts and lifecycle events out to WebSocket
// clients by channel
type Hub struct {
	clients    map[*Client]bool
	channels   map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *broadcastMessage
	stopCh     chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
}

type broadcastMessage struct {
	channels []string
	message  *StreamMessage
}

// NewHub creates a stream hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		channels:   make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *broadcastMessage, 256),
		stopCh:     make(chan struct{}),
	}
}

// Run starts the hub's dispatch loop
func (h *Hub) Run() {
	for {
		select {
		case <-h.stopCh:
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.removeClient(client)
		case msg := <-h.broadcast:
			h.dispatch(msg)
		}
	}
}

// Stop stops the hub and closes all client connections
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopCh)
		h.mu.Lock()
		defer h.mu.Unlock()
		for client := range h.clients {
			close(client.send)
			if client.conn != nil {
				client.conn.Close()
			}
		}
		h.clients = make(map[*Client]bool)
		h.channels = make(map[string]map[*Client]bool)
	})
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)

	for channel := range client.subscriptions {
		if clients, ok := h.channels[channel]; ok {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.channels, channel)
			}
		}
	}
}

func (h *Hub) dispatch(msg *broadcastMessage) {
	data, err := json.Marshal(msg.message)
	if err != nil {
		logrus.WithError(err).Error("marshal stream message")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[*Client]bool)
	for _, channel := range msg.channels {
		for client := range h.channels[channel] {
			if seen[client] {
				continue
			}
			seen[client] = true
			select {
			case client.send <- data:
			default:
				// Slow consumer, drop the frame
			}
		}
	}
}

func (h *Hub) subscribe(client *Client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.channels[channel]; !ok {
		h.channels[channel] = make(map[*Client]bool)
	}
	h.channels[channel][client] = true

	client.mu.Lock()
	client.subscriptions[channel] = true
	client.mu.Unlock()
}

func (h *Hub) unsubscribe(client *Client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.channels[channel]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.channels, channel)
		}
	}

	client.mu.Lock()
	delete(client.subscriptions, channel)
	client.mu.Unlock()
}

// addClient registers a client with the hub. Returns false when the
// hub has already been stopped, so upgrade handlers never block on the
// register channel.
func (h *Hub) addClient(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.stopCh:
		return false
	}
}

// dropClient hands a client back to the hub for removal. A no-op after
// the hub has been stopped.
func (h *Hub) dropClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.stopCh:
	}
}

func (h *Hub) send(channels []string, msg *StreamMessage) {
	msg.Timestamp = time.Now().UTC()
	select {
	case h.broadcast <- &broadcastMessage{channels: channels, message: msg}:
	case <-h.stopCh:
	}
}

// BroadcastReading pushes a decoded reading to the general readings
// channel and the per-kind channel
func (h *Hub) BroadcastReading(reading models.Reading) {
	data, _ := json.Marshal(reading)
	h.send(
		[]string{ChannelReadings, ChannelReadings + ":" + string(reading.Kind)},
		&StreamMessage{Type: TypeReading, Channel: ChannelReadings, Data: data},
	)
}

// BroadcastAlert pushes a vitals alert to alert subscribers
func (h *Hub) BroadcastAlert(alert *models.VitalAlert) {
	data, _ := json.Marshal(alert)
	h.send(
		[]string{ChannelAlerts},
		&StreamMessage{Type: TypeAlert, Channel: ChannelAlerts, Data: data},
	)
}

// BroadcastEvent pushes a session lifecycle event to event subscribers
func (h *Hub) BroadcastEvent(event string, payload interface{}) {
	data, _ := json.Marshal(map[string]interface{}{
		"event":   event,
		"payload": payload,
	})
	h.send(
		[]string{ChannelEvents},
		&StreamMessage{Type: TypeEvent, Channel: ChannelEvents, Data: data},
	)
}

// Stats returns hub statistics
func (h *Hub) Stats() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()

	channelStats := make(map[string]int)
	for channel, clients := range h.channels {
		channelStats[channel] = len(clients)
	}
	return map[string]interface{}{
		"total_clients":   len(h.clients),
		"total_channels":  len(h.channels),
		"channel_clients": channelStats,
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.WithError(err).Warn("websocket upgrade failed")
		return
	}

	client := &Client{
		ID:            uuid.New().String(),
		conn:          conn,
		hub:           s.hub,
		send:          make(chan []byte, 256),
		subscriptions: make(map[string]bool),
	}

	if !s.hub.addClient(client) {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.dropClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithError(err).Debug("websocket read")
			}
			return
		}
		c.handleMessage(message)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(data []byte) {
	var msg struct {
		Type    string `json:"type"`
		Channel string `json:"channel"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("invalid message format")
		return
	}

	switch msg.Type {
	case TypeSubscribe:
		if msg.Channel == "" {
			c.sendError("channel required")
			return
		}
		c.hub.subscribe(c, msg.Channel)
		c.sendAck("subscribed", msg.Channel)
	case TypeUnsubscribe:
		c.hub.unsubscribe(c, msg.Channel)
		c.sendAck("unsubscribed", msg.Channel)
	case "ping":
		c.enqueue(&StreamMessage{Type: TypePong, Timestamp: time.Now().UTC()})
	default:
		c.sendError("unknown message type")
	}
}

func (c *Client) sendError(errMsg string) {
	c.enqueue(&StreamMessage{Type: TypeError, Error: errMsg, Timestamp: time.Now().UTC()})
}

func (c *Client) sendAck(action, channel string) {
	data, _ := json.Marshal(map[string]string{"action": action})
	c.enqueue(&StreamMessage{
		Type:      "ack",
		Channel:   channel,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

func (c *Client) enqueue(msg *StreamMessage) {
	data, _ := json.Marshal(msg)
	select {
	case c.send <- data:
	default:
	}
}
