package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yourusername/bitswitch/internal/progress"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

// ProgressMessage is pushed to websocket clients
type ProgressMessage struct {
	Percent *int   `json:"percent,omitempty"`
	State   string `json:"state,omitempty"`
	Error   string `json:"error,omitempty"`
}

type progressClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (pc *progressClient) write(messageType int, data []byte) error {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return pc.conn.WriteMessage(messageType, data)
}

// ProgressHub pushes acquisition progress to websocket clients.
// It is a progress.Display and is attached to the session once.
type ProgressHub struct {
	logger  *zap.Logger
	clients map[*progressClient]bool
	last    []byte
	mu      sync.RWMutex
}

// NewProgressHub creates a new hub
func NewProgressHub(log *zap.Logger) *ProgressHub {
	return &ProgressHub{
		logger:  log,
		clients: make(map[*progressClient]bool),
	}
}

var _ progress.Display = (*ProgressHub)(nil)

// Render broadcasts the current percentage
func (h *ProgressHub) Render(percent int) {
	h.broadcast(ProgressMessage{Percent: &percent})
}

// Complete broadcasts the completed state
func (h *ProgressHub) Complete() {
	h.broadcast(ProgressMessage{State: "complete"})
}

// Fail broadcasts the error state
func (h *ProgressHub) Fail(err error) {
	h.broadcast(ProgressMessage{State: "error", Error: err.Error()})
}

func (h *ProgressHub) broadcast(msg ProgressMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to marshal progress message", zap.Error(err))
		return
	}

	h.mu.Lock()
	h.last = data
	clients := make([]*progressClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		if err := c.write(websocket.TextMessage, data); err != nil {
			h.logger.Debug("Failed to push progress", zap.Error(err))
			// Connection will be cleaned up by the handler goroutine
		}
	}
}

// HandleWebSocket handles GET /api/v1/progress/ws
func (h *ProgressHub) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket", zap.Error(err))
		return
	}
	defer conn.Close()

	client := &progressClient{conn: conn}

	h.mu.Lock()
	h.clients[client] = true
	last := h.last
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, client)
		h.mu.Unlock()
	}()

	h.logger.Info("WebSocket client connected", zap.String("remote_addr", c.Request.RemoteAddr))

	// Late joiners see the latest state immediately
	if last != nil {
		if err := client.write(websocket.TextMessage, last); err != nil {
			return
		}
	}

	done := make(chan struct{})

	// Read messages from client (for ping/pong and close)
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := client.write(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// ClientCount returns the number of connected clients
func (h *ProgressHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
