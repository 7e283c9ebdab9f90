package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/dohr-michael/graphcalc/internal/events"
)

// Dispatcher executes a request method. The returned value becomes the
// response payload.
type Dispatcher interface {
	Dispatch(ctx context.Context, method string, params json.RawMessage) (any, error)
}

// ErrorClassifier maps a dispatch error to an HTTP-style status code.
// Dispatchers that implement it get coded error frames.
type ErrorClassifier interface {
	Classify(err error) int
}

// Client is one connected WebSocket peer.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

// Hub fans bus events out to clients and routes their requests to a
// Dispatcher.
type Hub struct {
	mu          sync.RWMutex
	clients     map[*Client]struct{}
	dispatcher  Dispatcher
	unsubscribe func()
}

// NewHub subscribes to every event on bus.
func NewHub(bus *events.Bus, dispatcher Dispatcher) *Hub {
	h := &Hub{
		clients:    make(map[*Client]struct{}),
		dispatcher: dispatcher,
	}

	h.unsubscribe = bus.Subscribe(func(e events.Event) {
		frame, err := NewEventFrame(string(e.Type), e.Session, e.Payload)
		if err != nil {
			slog.Error("marshal event frame", "error", err)
			return
		}
		data, err := MarshalFrame(frame)
		if err != nil {
			slog.Error("marshal frame", "error", err)
			return
		}
		h.broadcast(data)
	})

	return h
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) broadcast(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// slow client, drop
		}
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	slog.Info("ws client connected", "clients", len(h.clients))
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		slog.Info("ws client disconnected", "clients", len(h.clients))
	}
}

// ServeWS upgrades the request and serves the client until it disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // local tool, any origin
	})
	if err != nil {
		slog.Error("ws accept", "error", err)
		return
	}

	client := &Client{
		conn: conn,
		send: make(chan []byte, 256),
		hub:  h,
	}
	h.register(client)

	ctx := r.Context()
	go client.writePump(ctx)
	client.readPump(ctx)
}

func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if status := websocket.CloseStatus(err); status != -1 {
				slog.Debug("ws read closed", "status", status)
			} else {
				slog.Debug("ws read error", "error", err)
			}
			return
		}

		frame, err := UnmarshalFrame(data)
		if err != nil {
			c.sendFrame(NewErrorFrame(uuid.NewString(), http.StatusBadRequest, "malformed frame: "+err.Error()))
			continue
		}
		if frame.Type != FrameTypeRequest {
			slog.Debug("ws ignoring frame", "type", frame.Type)
			continue
		}
		if frame.ID == "" {
			frame.ID = uuid.NewString()
		}

		payload, err := c.hub.dispatcher.Dispatch(ctx, frame.Method, frame.Params)
		c.reply(frame.ID, payload, err)
	}
}

func (c *Client) writePump(ctx context.Context) {
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) reply(id string, payload any, callErr error) {
	if callErr != nil {
		code := 0
		if cl, ok := c.hub.dispatcher.(ErrorClassifier); ok {
			code = cl.Classify(callErr)
		}
		c.sendFrame(NewErrorFrame(id, code, callErr.Error()))
		return
	}
	f, err := NewResultFrame(id, payload)
	if err != nil {
		slog.Error("ws response frame", "id", id, "error", err)
		f = NewErrorFrame(id, 0, "encode response: "+err.Error())
	}
	c.sendFrame(f)
}

// sendFrame queues f unless the client has already been unregistered.
func (c *Client) sendFrame(f Frame) {
	data, err := MarshalFrame(f)
	if err != nil {
		slog.Error("ws marshal frame", "id", f.ID, "error", err)
		return
	}
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if _, ok := c.hub.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
		slog.Warn("ws response dropped", "id", f.ID)
	}
}

// Close unsubscribes from the bus and disconnects every client.
func (h *Hub) Close() {
	if h.unsubscribe != nil {
		h.unsubscribe()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.conn.Close(websocket.StatusGoingAway, "server shutdown")
		delete(h.clients, c)
		close(c.send)
	}
}
