package websocket

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const sendBuffer = 64

// Client is one websocket connection. Outbound frames go through send so
// only the write pump touches the socket.
type Client struct {
	ID   string
	conn *websocket.Conn
	send chan []byte
}

// =============================================================================
// HUB
// =============================================================================

// Hub tracks connections and the room groups they belong to. Every send is
// non-blocking: a client whose buffer is full loses the frame.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	groups  map[string]map[string]struct{}
	logger  *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[string]*Client),
		groups:  make(map[string]map[string]struct{}),
		logger:  logger,
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ID] = c
}

// unregister drops the client from every group and closes its send channel.
func (h *Hub) unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[id]
	if !ok {
		return
	}
	delete(h.clients, id)
	for code, members := range h.groups {
		delete(members, id)
		if len(members) == 0 {
			delete(h.groups, code)
		}
	}
	close(c.send)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.RLock()
	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	h.mu.RUnlock()

	for _, id := range ids {
		h.unregister(id)
	}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) SendToConn(connID string, msg any) {
	payload, ok := h.marshal(msg)
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if c, ok := h.clients[connID]; ok {
		h.enqueue(c, payload)
	}
}

func (h *Hub) BroadcastToRoom(code string, msg any) {
	payload, ok := h.marshal(msg)
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id := range h.groups[code] {
		if c, ok := h.clients[id]; ok {
			h.enqueue(c, payload)
		}
	}
}

func (h *Hub) JoinGroup(code, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[connID]; !ok {
		return
	}
	if h.groups[code] == nil {
		h.groups[code] = make(map[string]struct{})
	}
	h.groups[code][connID] = struct{}{}
}

func (h *Hub) LeaveGroup(code, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members := h.groups[code]
	delete(members, connID)
	if len(members) == 0 {
		delete(h.groups, code)
	}
}

func (h *Hub) CloseGroup(code string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.groups, code)
}

// enqueue is called with h.mu held so send cannot be closed underneath it.
func (h *Hub) enqueue(c *Client, payload []byte) {
	select {
	case c.send <- payload:
	default:
		h.logger.Warn("[Hub] send buffer full, dropping frame", zap.String("conn", c.ID))
	}
}

func (h *Hub) marshal(msg any) ([]byte, bool) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("[Hub] failed to marshal outbound message", zap.Error(err))
		return nil, false
	}
	return payload, true
}
