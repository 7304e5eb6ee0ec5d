package events

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	pingInterval = 10 * time.Second
	writeTimeout = 5 * time.Second
)

// Handler streams hub events to websocket clients as JSON messages. The
// optional author_id query parameter narrows the stream to one author.
type Handler struct {
	hub      *Hub
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a websocket handler. checkOrigin may be nil to accept
// every origin.
func NewHandler(hub *Hub, logger *slog.Logger, checkOrigin func(r *http.Request) bool) *Handler {
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}
	return &Handler{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: checkOrigin,
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client.
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	authorID := r.URL.Query().Get("author_id")
	events := h.hub.Subscribe(ctx, authorID)
	h.logger.Info("event subscriber connected", "author_id", authorID)

	// The read loop only notices the client going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("event subscriber disconnected", "author_id", authorID)
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(e); err != nil {
				h.logger.Warn("write event failed", "error", err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
