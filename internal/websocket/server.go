package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/yegors/flightrecon/pkg/logger"
)

// Message types pushed to clients while the pipeline runs
const (
	MessageTypeRunStarted     = "run_started"
	MessageTypeStageCompleted = "stage_completed"
	MessageTypeRunCompleted   = "run_completed"
	MessageTypeRunFailed      = "run_failed"
	MessageTypeSubscribe      = "subscribe" // Client limits the message types it receives
)

// Message represents a WebSocket message
type Message struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// Client represents a WebSocket client
type Client struct {
	conn   *websocket.Conn
	send   chan *Message
	server *Server
	mu     sync.Mutex
	closed bool
	types  map[string]bool // Subscribed message types, nil = everything
}

// Server represents a WebSocket server
type Server struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	done       chan struct{} // Closed when Run returns
	upgrader   websocket.Upgrader
	logger     *logger.Logger
	mu         sync.RWMutex
}

// NewServer creates a new WebSocket server
func NewServer(log *logger.Logger) *Server {
	return &Server{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 64),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins
			},
		},
		logger: log.Named("web-socket"),
	}
}

// Run dispatches registrations and broadcasts until ctx is cancelled
func (s *Server) Run(ctx context.Context) {
	s.logger.Info("Starting WebSocket server")

	for {
		select {
		case <-ctx.Done():
			close(s.done)
			s.mu.Lock()
			for client := range s.clients {
				delete(s.clients, client)
				client.closeSend()
			}
			s.mu.Unlock()
			s.logger.Info("WebSocket server stopped")
			return

		case client := <-s.register:
			s.mu.Lock()
			s.clients[client] = true
			clientCount := len(s.clients)
			s.mu.Unlock()
			s.logger.Debug("Client registered", logger.Int("client_count", clientCount))

		case client := <-s.unregister:
			s.mu.Lock()
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				client.closeSend()
			}
			clientCount := len(s.clients)
			s.mu.Unlock()
			s.logger.Debug("Client unregistered", logger.Int("client_count", clientCount))

		case message := <-s.broadcast:
			s.dispatch(message)
		}
	}
}

func (s *Server) dispatch(message *Message) {
	s.mu.RLock()
	clientsToRemove := make([]*Client, 0)
	for client := range s.clients {
		if !client.wants(message.Type) {
			continue
		}
		select {
		case client.send <- message:
		default:
			// Channel is full, mark for removal
			clientsToRemove = append(clientsToRemove, client)
		}
	}
	s.mu.RUnlock()

	if len(clientsToRemove) > 0 {
		s.mu.Lock()
		for _, client := range clientsToRemove {
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				client.closeSend()
			}
		}
		s.mu.Unlock()
		s.logger.Warn("Dropped slow WebSocket clients", logger.Int("count", len(clientsToRemove)))
	}
}

// ClientCount returns the number of registered clients
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// HandleConnection handles a WebSocket connection
func (s *Server) HandleConnection(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("Handling new WebSocket connection request",
		logger.String("remote_addr", r.RemoteAddr),
		logger.String("user_agent", r.UserAgent()))

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection",
			logger.Error(err),
			logger.String("remote_addr", r.RemoteAddr))
		return
	}

	client := &Client{
		conn:   conn,
		send:   make(chan *Message, 256),
		server: s,
	}

	select {
	case s.register <- client:
	case <-s.done:
		conn.Close()
		return
	}

	go client.readPump()
	go client.writePump()
}

// Broadcast queues a message for all subscribed clients. It never blocks the caller;
// when the queue is full the message is dropped.
func (s *Server) Broadcast(message *Message) {
	select {
	case s.broadcast <- message:
		s.logger.Debug("Broadcasting message", logger.String("message_type", message.Type))
	default:
		s.logger.Warn("Broadcast queue full, dropping message", logger.String("message_type", message.Type))
	}
}

// closeSend marks the client closed and closes its send channel once
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) wants(messageType string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	return c.types == nil || c.types[messageType]
}

// Subscribe restricts the client to the given message types. An empty list restores everything.
func (c *Client) Subscribe(types []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(types) == 0 {
		c.types = nil
		return
	}
	c.types = make(map[string]bool, len(types))
	for _, t := range types {
		c.types[t] = true
	}
}

// readPump reads client messages until the connection closes
func (c *Client) readPump() {
	defer func() {
		select {
		case c.server.unregister <- c:
		case <-c.server.done:
		}
		c.conn.Close()
	}()

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.server.logger.Error("WebSocket read error", logger.Error(err))
			}
			return
		}

		var message Message
		if err := json.Unmarshal(messageBytes, &message); err != nil {
			c.server.logger.Error("Failed to parse WebSocket message", logger.Error(err))
			continue
		}

		switch message.Type {
		case MessageTypeSubscribe:
			c.Subscribe(stringList(message.Data["types"]))
			c.server.logger.Debug("Client subscription updated",
				logger.String("client", c.conn.RemoteAddr().String()))
		default:
			c.server.logger.Debug("Ignoring WebSocket message", logger.String("type", message.Type))
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		data, err := json.Marshal(message)
		if err != nil {
			c.server.logger.Error("Failed to marshal message", logger.Error(err))
			continue
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}

	// Channel closed by the hub
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
