package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeDeadline      = 5 * time.Second
	readDeadline       = 90 * time.Second
	pingInterval       = 30 * time.Second
	maxReadMessageSize = 4 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The server only listens on 127.0.0.1
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message types pushed to websocket clients
const (
	MessageTypeStatus   = "status"
	MessageTypeQueue    = "queue"
	MessageTypeDownload = "download"
)

// Message is the envelope of every websocket message
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type StatusMessage struct {
	Status string `json:"status"`
}

type QueueMessage struct {
	Count int `json:"count"`
}

type DownloadMessage struct {
	ID        int64  `json:"id"`
	URL       string `json:"url"`
	Handler   string `json:"handler"`
	Success   bool   `json:"success"`
	Timestamp string `json:"timestamp"`
}

// Client is one websocket connection
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub fans messages out to every connected client
type Hub struct {
	clients    map[*Client]struct{}
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run owns the client set until Stop is called
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = struct{}{}
			slog.Debug("WebSocket client connected", "clients", len(h.clients))
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// slow client
					delete(h.clients, c)
					close(c.send)
				}
			}
		case <-h.done:
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			return
		}
	}
}

// Stop disconnects every client and ends Run
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// BroadcastMessage queues msg for all clients; it never blocks the caller
func (h *Hub) BroadcastMessage(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("Failed to encode websocket message", "type", msg.Type, "error", err)
		return
	}
	select {
	case h.broadcast <- data:
	case <-h.done:
	default:
		slog.Warn("WebSocket broadcast dropped", "type", msg.Type)
	}
}

func (c *Client) readPump() {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("WebSocket read pump panicked", "panic", r, "stack", string(debug.Stack()))
		}
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxReadMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(readDeadline))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(readDeadline))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("WebSocket read error", "error", err)
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				slog.Debug("WebSocket write failed", "error", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
