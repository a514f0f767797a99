/*
Package api
File: hub.go
Description:
    The WebSocket Hub is the HUD feed.

    It maintains a registry of connected HUD clients and fans every
    broadcast out to them. The session publishes one "signal" message per
    player per sweep (damage, toxicity %, juice %); the UI log channel
    publishes "notice" messages for operators.

    Architecture:
    - Hub: one per process, run with `go hub.Run(ctx)`.
    - Client: one browser or overlay connection.
    - ServeWs: the HTTP handler that upgrades a GET request to a WebSocket.

    Publishing never blocks the game tick: when the broadcast queue is full
    the message is dropped.
*/

package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/everforgeworks/deadly-accel/internal/game"
)

// Message types sent over the socket.
const (
	MessageSignal = "signal"
	MessageNotice = "notice"
)

// Message defines the standard JSON envelope for all real-time communication.
type Message struct {
	Type    string `json:"type"`    // MessageSignal or MessageNotice
	Payload any    `json:"payload"` // game.Signal or Notice
	Sender  string `json:"sender"`  // Always "system" for now
}

// Notice is a UI log record.
type Notice struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// Client represents a single connected HUD.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte // Buffered channel for outbound messages
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	clients map[*Client]bool

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{} // closed when Run returns

	log     *slog.Logger
	dropped atomic.Uint64
	count   atomic.Int64
}

// NewHub creates a hub whose broadcast queue holds queueSize messages.
func NewHub(queueSize int, log *slog.Logger) *Hub {
	if queueSize <= 0 {
		queueSize = 256
	}
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		broadcast:  make(chan []byte, queueSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		log:        log,
	}
}

// Run is the main event loop for the Hub. It returns when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		for client := range h.clients {
			close(client.send)
			delete(h.clients, client)
		}
		h.count.Store(0)
		close(h.done)
	}()
	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.clients[client] = true
			h.count.Store(int64(len(h.clients)))
			h.log.Info("WS: new HUD connection registered")

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.count.Store(int64(len(h.clients)))
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow consumer; drop it rather than stall the feed.
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.count.Store(int64(len(h.clients)))
		}
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} { return h.done }

// Clients returns the number of connected HUD clients.
func (h *Hub) Clients() int { return int(h.count.Load()) }

// Dropped returns how many messages were discarded because the queue was full.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

// Broadcast queues an already-encoded message.
func (h *Hub) Broadcast(message []byte) bool {
	select {
	case h.broadcast <- message:
		return true
	default:
		h.dropped.Add(1)
		return false
	}
}

func (h *Hub) send(msgType string, payload any) {
	data, err := json.Marshal(Message{Type: msgType, Payload: payload, Sender: "system"})
	if err != nil {
		h.log.Error("WS: failed to encode message", "type", msgType, "err", err)
		return
	}
	h.Broadcast(data)
}

// Publish implements game.SignalSink.
func (h *Hub) Publish(sig game.Signal) {
	h.send(MessageSignal, sig)
}

// Notify forwards a UI log record. Matches logging.Notifier.
func (h *Hub) Notify(level slog.Level, msg string) {
	h.send(MessageNotice, Notice{Level: level.String(), Text: msg})
}

// upgrader configures the WebSocket handshake.
// CheckOrigin allows any host; HUD overlays are served from file:// and localhost.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// ServeWs upgrades the request and attaches the connection to hub.
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.log.Warn("WS: upgrade error", "err", err)
		return
	}

	client := &Client{hub: hub, conn: conn, send: make(chan []byte, 256)}
	select {
	case hub.register <- client:
	case <-hub.done:
		conn.Close()
		return
	case <-r.Context().Done():
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// readPump only watches for the connection closing; HUD clients do not
// send anything the server acts on.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn("WS: read error", "err", err)
			}
			return
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
