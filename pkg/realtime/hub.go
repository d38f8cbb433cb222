package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// EventReceiveNotification carries plain text notifications.
const EventReceiveNotification = "ReceiveNotification"

// Client-invokable actions.
const (
	ActionJoinDocumentGroup  = "joinDocumentGroup"
	ActionLeaveDocumentGroup = "leaveDocumentGroup"
	ActionSendNotification   = "sendNotification"
	ActionPing               = "ping"
)

const maxMessageSize = 64 * 1024

// Envelope is the frame pushed to clients.
type Envelope struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload,omitempty"`
}

// Request is the frame clients send.
type Request struct {
	Action     string `json:"action"`
	DocumentID int64  `json:"documentId,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Config tunes connections.
type Config struct {
	SendBuffer   int
	PingInterval time.Duration
	WriteTimeout time.Duration
	CheckOrigin  func(r *http.Request) bool
}

// ConnectionObserver receives the number of open connections whenever it changes.
type ConnectionObserver interface {
	SetRealtimeConnections(n int)
}

// Hub is a process-local registry of websocket connections with document groups
// and a per-user index. Delivery is best effort: a client whose send buffer is
// full misses the message. Nothing is persisted.
type Hub struct {
	cfg      Config
	logger   *zap.Logger
	upgrader websocket.Upgrader
	observer ConnectionObserver

	mu      sync.RWMutex
	clients map[string]*client
	groups  map[string]map[string]*client
	users   map[string]map[string]*client
}

type client struct {
	id     string
	userID string
	conn   *websocket.Conn
	send   chan []byte
	groups map[string]struct{}
}

// NewHub constructs a hub; nil logger and observer are allowed.
func NewHub(cfg Config, logger *zap.Logger, observer ConnectionObserver) *Hub {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 16
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	checkOrigin := cfg.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}
	return &Hub{
		cfg:    cfg,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		observer: observer,
		clients:  make(map[string]*client),
		groups:   make(map[string]map[string]*client),
		users:    make(map[string]map[string]*client),
	}
}

// GroupName is the notification group for a document.
func GroupName(documentID int64) string {
	return "doc-" + strconv.FormatInt(documentID, 10)
}

// ServeWS upgrades the request and blocks until the connection closes.
// userID may be empty for anonymous connections.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("upgrade websocket: %w", err)
	}
	c := &client{
		id:     uuid.NewString(),
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, h.cfg.SendBuffer),
		groups: make(map[string]struct{}),
	}
	h.register(c)
	go h.writePump(c)
	h.readPump(c)
	return nil
}

// Broadcast sends an event to every connection.
func (h *Hub) Broadcast(event string, payload interface{}) error {
	msg, err := encode(event, payload)
	if err != nil {
		return err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		h.deliver(c, msg)
	}
	return nil
}

// BroadcastGroup sends an event to the members of group.
func (h *Hub) BroadcastGroup(group, event string, payload interface{}) error {
	msg, err := encode(event, payload)
	if err != nil {
		return err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.groups[group] {
		h.deliver(c, msg)
	}
	return nil
}

// SendUser sends an event to every connection opened by userID.
func (h *Hub) SendUser(userID, event string, payload interface{}) error {
	msg, err := encode(event, payload)
	if err != nil {
		return err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.users[userID] {
		h.deliver(c, msg)
	}
	return nil
}

// Connections returns the number of open connections.
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GroupSize returns the number of connections in group.
func (h *Hub) GroupSize(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[group])
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for _, c := range h.clients {
		conns = append(conns, c.conn)
	}
	h.mu.RUnlock()
	for _, conn := range conns {
		_ = conn.Close()
	}
}

func (h *Hub) join(c *client, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	members, ok := h.groups[group]
	if !ok {
		members = make(map[string]*client)
		h.groups[group] = members
	}
	members[c.id] = c
	c.groups[group] = struct{}{}
}

func (h *Hub) leave(c *client, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeFromGroup(c, group)
}

func (h *Hub) removeFromGroup(c *client, group string) {
	if members, ok := h.groups[group]; ok {
		delete(members, c.id)
		if len(members) == 0 {
			delete(h.groups, group)
		}
	}
	delete(c.groups, group)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c.id] = c
	if c.userID != "" {
		conns, ok := h.users[c.userID]
		if !ok {
			conns = make(map[string]*client)
			h.users[c.userID] = conns
		}
		conns[c.id] = c
	}
	n := len(h.clients)
	h.mu.Unlock()
	h.observe(n)
	h.logger.Debug("realtime client connected", zap.String("connection_id", c.id), zap.String("user_id", c.userID))
}

// unregister drops every membership of c; after it returns no sender can reach c.send.
func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.id)
	for group := range c.groups {
		h.removeFromGroup(c, group)
	}
	if conns, ok := h.users[c.userID]; ok {
		delete(conns, c.id)
		if len(conns) == 0 {
			delete(h.users, c.userID)
		}
	}
	close(c.send)
	n := len(h.clients)
	h.mu.Unlock()
	h.observe(n)
	h.logger.Debug("realtime client disconnected", zap.String("connection_id", c.id))
}

// deliver must be called with h.mu held.
func (h *Hub) deliver(c *client, msg []byte) {
	select {
	case c.send <- msg:
	default:
		h.logger.Debug("realtime send buffer full, dropping message", zap.String("connection_id", c.id))
	}
}

func (h *Hub) observe(n int) {
	if h.observer != nil {
		h.observer.SetRealtimeConnections(n)
	}
}

func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	readWait := 2 * h.cfg.PingInterval
	_ = c.conn.SetReadDeadline(time.Now().Add(readWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(readWait))
	})
	for {
		var req Request
		if err := c.conn.ReadJSON(&req); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				h.logger.Debug("realtime malformed frame", zap.String("connection_id", c.id), zap.Error(err))
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Warn("realtime read failed", zap.String("connection_id", c.id), zap.Error(err))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(readWait))
		h.handle(c, req)
	}
}

func (h *Hub) handle(c *client, req Request) {
	switch req.Action {
	case ActionJoinDocumentGroup:
		h.join(c, GroupName(req.DocumentID))
	case ActionLeaveDocumentGroup:
		h.leave(c, GroupName(req.DocumentID))
	case ActionSendNotification:
		if err := h.Broadcast(EventReceiveNotification, req.Message); err != nil {
			h.logger.Warn("realtime relay failed", zap.String("connection_id", c.id), zap.Error(err))
		}
	case ActionPing:
		msg, _ := encode("pong", nil)
		h.mu.RLock()
		if _, ok := h.clients[c.id]; ok {
			h.deliver(c, msg)
		}
		h.mu.RUnlock()
	default:
		h.logger.Debug("realtime unknown action", zap.String("connection_id", c.id), zap.String("action", req.Action))
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func encode(event string, payload interface{}) ([]byte, error) {
	msg, err := json.Marshal(Envelope{Event: event, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", event, err)
	}
	return msg, nil
}
