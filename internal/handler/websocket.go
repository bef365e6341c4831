package handler

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/CageChen/assethub/internal/asset"
	"github.com/CageChen/assethub/internal/logging"
	"github.com/CageChen/assethub/internal/watcher"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// ChangePayload describes one change of the asset tree.
type ChangePayload struct {
	Event  string `json:"event"`
	Target string `json:"target"`
	Path   string `json:"path"`
}

// WSHandler streams asset tree changes to websocket clients
type WSHandler struct {
	repo    *asset.Repository
	logger  *zap.Logger
	clients map[*websocket.Conn]*sync.Mutex
	mu      sync.RWMutex
}

// NewWSHandler creates a new WebSocket handler
func NewWSHandler(repo *asset.Repository, logger *zap.Logger) *WSHandler {
	return &WSHandler{
		repo:    repo,
		logger:  logging.OrNop(logger),
		clients: make(map[*websocket.Conn]*sync.Mutex),
	}
}

// HandleWS handles WebSocket upgrade and connection
func (h *WSHandler) HandleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer func() {
		h.removeClient(conn)
		_ = conn.Close()
	}()

	h.addClient(conn)

	// Drain incoming messages until the client goes away
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// OnFileChange is called when a file change is detected
func (h *WSHandler) OnFileChange(event watcher.Event) {
	rel, ok := relativePath(h.repo, event.Path)
	if !ok {
		return
	}

	var display string
	if event.Target == watcher.TargetDir {
		display = h.repo.Folder(rel).String()
	} else {
		display = h.repo.File(rel).String()
	}

	h.broadcast(WSMessage{
		Type: "assetChange",
		Payload: ChangePayload{
			Event:  event.Type.String(),
			Target: event.Target.String(),
			Path:   display,
		},
	})
}

// ClientCount returns the number of connected clients.
func (h *WSHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *WSHandler) addClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = &sync.Mutex{}
}

func (h *WSHandler) removeClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, conn)
}

func (h *WSHandler) broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	h.mu.RLock()
	clients := make(map[*websocket.Conn]*sync.Mutex, len(h.clients))
	for client, lock := range h.clients {
		clients[client] = lock
	}
	h.mu.RUnlock()

	// gorilla allows one concurrent writer per connection
	for client, lock := range clients {
		lock.Lock()
		err := client.WriteMessage(websocket.TextMessage, data)
		lock.Unlock()
		if err != nil {
			h.removeClient(client)
		}
	}
}
