package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cirocosta/todos/internal/model"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// SubscriptionHandler streams list snapshots over websockets
type SubscriptionHandler struct {
	subscriber Subscriber
}

// NewSubscriptionHandler creates a handler reading snapshots from subscriber
func NewSubscriptionHandler(subscriber Subscriber) *SubscriptionHandler {
	return &SubscriptionHandler{subscriber: subscriber}
}

// Subscribe handles GET /todos/subscribe. Each snapshot is written as one
// TodoListResponse text frame until either side goes away.
func (h *SubscriptionHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	snapshots, err := h.subscriber.Subscribe(ctx)
	if err != nil {
		writeServiceError(w, err, "error subscribing to todos")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already replied
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// the client never sends data frames; reading surfaces its close
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case snapshot, ok := <-snapshots:
			if !ok {
				closeNormally(conn)
				return
			}

			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(model.TodoListResponse{Todos: nonNil(snapshot)}); err != nil {
				slog.Debug("websocket write failed", "error", err)
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				slog.Debug("websocket ping failed", "error", err)
				return
			}
		}
	}
}

func closeNormally(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
