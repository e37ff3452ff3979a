package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Ashenafi-pixel/prizewheel/wheel"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	clientBuf  = 64
)

// Message is one live-feed message.
type Message struct {
	Type    string         `json:"type"` // "frame" or "outcome"
	Frame   *wheel.Frame   `json:"frame,omitempty"`
	Outcome *wheel.Outcome `json:"outcome,omitempty"`
}

type hubClient struct {
	id  string
	out chan []byte
}

// Hub fans wheel frames and outcomes out to websocket subscribers. Publishing
// never blocks: a subscriber that falls behind loses messages.
type Hub struct {
	log      zerolog.Logger
	upgrader websocket.Upgrader
	nextID   atomic.Uint64

	mu        sync.Mutex
	clients   map[*hubClient]struct{}
	lastFrame []byte
	closed    bool
}

// NewHub accepts browser origins from allowed; "*" allows any.
func NewHub(logger zerolog.Logger, allowed []string) *Hub {
	h := &Hub{
		log:     logger.With().Str("component", "ws").Logger(),
		clients: make(map[*hubClient]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 16 * 1024,
		CheckOrigin:     originChecker(allowed),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || slices.Contains(allowed, "*") || slices.Contains(allowed, origin) {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && u.Host == r.Host
	}
}

func (h *Hub) PublishFrame(f wheel.Frame) {
	b, err := json.Marshal(Message{Type: "frame", Frame: &f})
	if err != nil {
		h.log.Error().Err(err).Msg("marshal frame")
		return
	}
	h.broadcast(b, true)
}

func (h *Hub) PublishOutcome(o wheel.Outcome) {
	b, err := json.Marshal(Message{Type: "outcome", Outcome: &o})
	if err != nil {
		h.log.Error().Err(err).Msg("marshal outcome")
		return
	}
	h.broadcast(b, false)
}

func (h *Hub) broadcast(b []byte, frame bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	if frame {
		h.lastFrame = b
	}
	for c := range h.clients {
		select {
		case c.out <- b:
		default:
			// Slow subscriber; it catches up on the next frame.
		}
	}
}

// Clients is the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every subscriber and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for c := range h.clients {
		close(c.out)
		delete(h.clients, c)
	}
}

func (h *Hub) join() (*hubClient, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, false
	}
	c := &hubClient{
		id:  fmt.Sprintf("W%d", h.nextID.Add(1)),
		out: make(chan []byte, clientBuf),
	}
	if h.lastFrame != nil {
		c.out <- h.lastFrame
	}
	h.clients[c] = struct{}{}
	return c, true
}

func (h *Hub) leave(c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.out)
	}
}

// ServeHTTP upgrades the request and streams messages until either side
// goes away. Subscribers never send anything meaningful; reads only keep
// the connection's control frames flowing.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	c, ok := h.join()
	if !ok {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(time.Second))
		return
	}
	h.log.Debug().Str("client", c.id).Msg("subscriber joined")
	defer h.log.Debug().Str("client", c.id).Msg("subscriber left")

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-readDone:
			h.leave(c)
			return
		case b, ok := <-c.out:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "bye"), time.Now().Add(time.Second))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				h.leave(c)
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.leave(c)
				return
			}
		}
	}
}
