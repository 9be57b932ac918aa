// Package traceserver exposes a debug WebSocket endpoint that fans out
// live PublishHook observations — envelope publishes and dispatcher ticks —
// to connected viewers as JSON frames. It is purely observational: no
// viewer, connected or not, can influence bus behavior, and the bus runs
// identically whether or not a Server is wired into its hook chain.
package traceserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/abrahamvado/messagebus/internal/envelope"
	"github.com/abrahamvado/messagebus/internal/logging"
)

const (
	writeTimeout  = 5 * time.Second
	clientBacklog = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// frame is the JSON shape broadcast to every connected viewer.
type frame struct {
	Kind        string `json:"kind"`
	At          string `json:"at"`
	Destination string `json:"destination,omitempty"`
	Priority    int    `json:"priority,omitempty"`
	MessageType string `json:"message_type,omitempty"`
}

// client is one connected debug viewer: a WebSocket connection plus a
// buffered outbound channel so a slow reader never blocks the broadcaster.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Server is an http.Handler that upgrades requests to WebSocket connections
// and implements envelope.Hook and envelope.TickObserver, broadcasting
// every observation to every connected client.
type Server struct {
	log *logging.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

// New constructs a trace debug server. log may be nil, in which case a
// discarding logger is used.
func New(log *logging.Logger) *Server {
	if log == nil {
		log = logging.NewTestLogger()
	}
	return &Server{log: log, clients: make(map[*client]struct{})}
}

// ServeHTTP upgrades the connection to WebSocket and registers it as a
// broadcast target until it disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("trace server upgrade failed", logging.Error(err))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, clientBacklog)}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	go s.writePump(c)
	go s.readPump(c)
}

// readPump discards inbound messages (viewers never send anything
// meaningful) and exists only to detect disconnects promptly.
func (s *Server) readPump(c *client) {
	defer s.disconnect(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump drains the client's send channel to the socket. A client whose
// backlog fills because it reads too slowly is disconnected rather than
// allowed to stall the broadcaster.
func (s *Server) writePump(c *client) {
	defer c.conn.Close()
	for payload := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

func (s *Server) disconnect(c *client) {
	s.mu.Lock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
	s.mu.Unlock()
}

func (s *Server) broadcast(f frame) {
	payload, err := json.Marshal(f)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- payload:
		default:
			// Backlog full: drop this slow client rather than block every
			// other observer waiting on the hook.
			delete(s.clients, c)
			close(c.send)
		}
	}
}

// OnPublish implements envelope.Hook.
func (s *Server) OnPublish(env envelope.Envelope, at time.Time) {
	s.broadcast(frame{
		Kind:        "publish",
		At:          at.UTC().Format(time.RFC3339Nano),
		Destination: env.Destination,
		Priority:    env.Priority,
		MessageType: typeName(env.Message),
	})
}

// OnTick implements envelope.TickObserver.
func (s *Server) OnTick(at time.Time) {
	s.broadcast(frame{Kind: "tick", At: at.UTC().Format(time.RFC3339Nano)})
}

// ClientCount reports how many viewers are currently connected.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// typeName formats a message's dynamic type for display, returning the
// empty string for a nil payload.
func typeName(msg interface{}) string {
	if msg == nil {
		return ""
	}
	return fmt.Sprintf("%T", msg)
}

var (
	_ envelope.Hook         = (*Server)(nil)
	_ envelope.TickObserver = (*Server)(nil)
	_ http.Handler          = (*Server)(nil)
)
