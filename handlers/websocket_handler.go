package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"

	"github.com/gorilla/websocket"

	"github.com/Dosada05/competition-system/brackets"
	"github.com/Dosada05/competition-system/services"
)

type WebSocketHandler struct {
	hub            *brackets.Hub
	bracketService services.BracketService
	upgrader       websocket.Upgrader
	logger         *slog.Logger
}

// NewWebSocketHandler accepts connections from allowedOrigins; "*" or an
// empty list allows any origin.
func NewWebSocketHandler(hub *brackets.Hub, bs services.BracketService, allowedOrigins []string, logger *slog.Logger) *WebSocketHandler {
	if logger == nil {
		logger = slog.Default()
	}
	anyOrigin := len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*")
	return &WebSocketHandler{
		hub:            hub,
		bracketService: bs,
		logger:         logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return anyOrigin || origin == "" || slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

// ServeWs обрабатывает GET /ws/events/{eventID}. Новый клиент сразу получает
// текущую сетку, затем все обновления комнаты события.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	eventID, err := getIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	bracket, err := h.bracketService.GetBracket(r.Context(), eventID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.Int("event_id", eventID), slog.Any("error", err))
		return
	}

	room := brackets.RoomForEvent(eventID)
	client := brackets.NewClient(h.hub, conn, room)

	initial, err := json.Marshal(brackets.WebSocketMessage{
		Type:    brackets.MessageBracketUpdated,
		Payload: bracket,
		RoomID:  room,
	})
	if err == nil {
		client.Send <- initial
	}

	if !h.hub.Join(client) {
		conn.Close()
		return
	}
	go client.WritePump()
	go client.ReadPump()

	h.logger.Info("websocket client connected", slog.Int("event_id", eventID), slog.String("client_id", client.ID))
}
