package ws

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/virtuolot/showroom-assist-service/internal/domain/docroom"
)

// CollabHandler serves GET /api/ws/collaboration/{shopperId}: the shared
// document channel for one shopper's session. Payloads are opaque to the
// server and relayed verbatim between participants; a late joiner is first
// fast-forwarded with everything the room accumulated.
//
// Authorization is coarse: any connection naming the room may join. The
// surrounding product keeps ids unguessable.
type CollabHandler struct {
	logger   *slog.Logger
	hub      docroom.Hubber
	upgrader websocket.Upgrader
}

func NewCollabHandler(logger *slog.Logger, hub docroom.Hubber) *CollabHandler {
	return &CollabHandler{
		logger: logger,
		hub:    hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // Security: adjust for production
		},
	}
}

func (h *CollabHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	shopperID := chi.URLParam(r, "shopperId")
	if shopperID == "" {
		http.Error(w, "shopper id required", http.StatusBadRequest)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws upgrade failed", "error", err)
		return
	}
	defer ws.Close()

	p, backlog := h.hub.Join(shopperID)
	defer h.hub.Leave(p)

	// [FAST_FORWARD] Replay the accumulated document before anything newer.
	// Updates broadcast since the join are queued on p.Out behind these.
	for _, upd := range backlog {
		_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := ws.WriteMessage(upd.MessageType, upd.Data); err != nil {
			return
		}
	}

	stop := make(chan struct{})
	defer close(stop)
	go h.relayPump(ws, p, stop)

	ws.SetReadLimit(maxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		mt, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNoStatusReceived) {
				h.logger.Warn("SOCKET_READ_FAILED", "err", err, "shopper_id", shopperID)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		h.hub.Broadcast(p, docroom.Update{MessageType: mt, Data: data})
	}
}

// relayPump forwards room updates from the other participants onto this
// socket, preserving the original text/binary framing.
func (h *CollabHandler) relayPump(ws *websocket.Conn, p *docroom.Participant, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ws.Close()
	}()

	for {
		select {
		case <-stop:
			return

		case upd := <-p.Out:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(upd.MessageType, upd.Data); err != nil {
				return
			}

		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
