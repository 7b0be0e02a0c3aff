package devserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/wayfarer-app/wayfarer-go/internal/models"
)

// Hub tracks the live push channels by user and fans events out to them.
type Hub struct {
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[string]map[*websocket.Conn]struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns: make(map[string]map[*websocket.Conn]struct{}),
	}
}

// HandleWS upgrades the request to a push channel for the authenticated
// user and keeps it registered until it dies.
func (h *Hub) HandleWS(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error("failed to upgrade the websocket", "error", err)
		return nil
	}
	defer ws.Close()
	slog.Info("push channel client connected", "user_id", currentUserID)

	h.register(currentUserID, ws)
	defer h.unregister(currentUserID, ws)

	// The client emits nothing we act on; drain until the channel dies.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			slog.Info("push channel client disconnected", "user_id", currentUserID)
			return nil
		}
	}
}

// Push sends one event to every live channel of the user.
func (h *Hub) Push(userID, event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("marshaling push payload", "event", event, "error", err)
		return
	}
	env := models.PushEnvelope{Event: event, Data: data}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ws := range h.conns[userID] {
		if err := ws.WriteJSON(env); err != nil {
			slog.Warn("failed to write push event", "event", event, "error", err)
		}
	}
}

// CloseUser drops every live channel of the user from the server side.
func (h *Hub) CloseUser(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ws := range h.conns[userID] {
		_ = ws.Close()
	}
	delete(h.conns, userID)
}

func (h *Hub) register(userID string, ws *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[userID] == nil {
		h.conns[userID] = make(map[*websocket.Conn]struct{})
	}
	h.conns[userID][ws] = struct{}{}
}

func (h *Hub) unregister(userID string, ws *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns[userID], ws)
}
