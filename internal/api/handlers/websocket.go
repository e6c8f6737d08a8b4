package handlers

import (
	"log"
	"net/http"

	"github.com/dom/hero-arena/internal/api/middleware"
	"github.com/dom/hero-arena/internal/service"
	"github.com/dom/hero-arena/internal/websocket"
	ws "github.com/gorilla/websocket"
)

var upgrader = ws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler upgrades authenticated connections onto the event hub.
type WebSocketHandler struct {
	hub         *websocket.Hub
	authService *service.AuthService
}

func NewWebSocketHandler(hub *websocket.Hub, authService *service.AuthService) *WebSocketHandler {
	return &WebSocketHandler{
		hub:         hub,
		authService: authService,
	}
}

// Handle accepts the token as a query parameter since browsers cannot set
// headers on a websocket handshake. The token's caller id scopes the
// STATE_SYNC view to that player's own hero.
func (h *WebSocketHandler) Handle(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "Token required", http.StatusUnauthorized)
		return
	}

	id, err := middleware.Identify(h.authService, token)
	if err != nil {
		log.Printf("ERROR [ws.Handle] %v", err)
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ERROR [ws.Handle] upgrade failed: %v", err)
		return
	}

	client := websocket.NewClient(h.hub, conn, id.Caller)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
