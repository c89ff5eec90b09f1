// Package ws pushes waiting-queue events to WebSocket clients subscribed
// to a bus.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	EventTicketWaitlisted = "ticket_waitlisted"
	EventTicketPromoted   = "ticket_promoted"
	EventTicketCancelled  = "ticket_cancelled"
	EventTicketExpired    = "ticket_expired"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 512
	sendBuffer     = 256
	broadcastQueue = 256
)

// Event is one frame sent to subscribers.
type Event struct {
	Type  string      `json:"event_type"`
	BusID uint        `json:"bus_id"`
	Data  interface{} `json:"data,omitempty"`
}

type broadcastMessage struct {
	busID   uint
	payload []byte
}

// Hub keeps the clients grouped by bus id. All mutations of the client map
// happen on the Run goroutine; mu only guards reads from ClientCount.
type Hub struct {
	clients    map[uint]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcastMessage
	done       chan struct{}
	mu         sync.RWMutex
	log        *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[uint]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan broadcastMessage, broadcastQueue),
		done:       make(chan struct{}),
		log:        log.Named("ws"),
	}
}

// Run processes registrations and broadcasts until ctx is cancelled, then
// disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for busID, clients := range h.clients {
				for client := range clients {
					close(client.send)
				}
				delete(h.clients, busID)
			}
			h.mu.Unlock()
			return
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.busID] == nil {
				h.clients[client.busID] = make(map[*Client]bool)
			}
			h.clients[client.busID][client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients[msg.busID] {
				select {
				case client.send <- msg.payload:
				default:
					// slow consumer
					h.remove(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove must be called with mu held.
func (h *Hub) remove(client *Client) {
	clients, ok := h.clients[client.busID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.clients, client.busID)
	}
}

// Publish queues ev for every subscriber of busID. It never blocks: when
// the hub is saturated the event is dropped.
func (h *Hub) Publish(busID uint, ev Event) {
	ev.BusID = busID
	payload, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("marshal event", zap.Error(err), zap.String("event_type", ev.Type))
		return
	}
	select {
	case h.broadcast <- broadcastMessage{busID: busID, payload: payload}:
	default:
		h.log.Warn("hub saturated, event dropped", zap.Uint("bus_id", busID), zap.String("event_type", ev.Type))
	}
}

func (h *Hub) ClientCount(busID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[busID])
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Serve upgrades the request and subscribes the connection to busID. It
// returns once the client disconnects.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, busID uint) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	client := &Client{
		hub:   h,
		conn:  conn,
		send:  make(chan []byte, sendBuffer),
		busID: busID,
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return nil
	}

	go client.writePump()
	client.readPump()
	return nil
}

// Client is one WebSocket subscriber.
type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte
	busID uint
}

// readPump only watches for disconnects; clients have nothing to say.
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
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debug("websocket read", zap.Error(err), zap.Uint("bus_id", c.busID))
			}
			return
		}
	}
}

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
