package ws

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/virtuolot/showroom-assist-service/internal/domain/event"
	"github.com/virtuolot/showroom-assist-service/internal/domain/registry"
	wsmarshaller "github.com/virtuolot/showroom-assist-service/internal/handler/marshaller/ws"
	"github.com/virtuolot/showroom-assist-service/internal/metrics"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = 30 * time.Second

	// Maximum message size allowed from peer (roomy for video SDP blobs)
	maxMessageSize = 1 << 16
)

// session ties one upgraded socket to its registry connector: the write
// pump drains the connector mailbox onto the wire, the read loop decodes
// client frames and hands them to the endpoint's dispatch function.
type session struct {
	ws          *websocket.Conn
	conn        registry.Connector
	logger      *slog.Logger
	sendTimeout time.Duration
}

func newSession(ws *websocket.Conn, conn registry.Connector, logger *slog.Logger, sendTimeout time.Duration) *session {
	return &session{
		ws:          ws,
		conn:        conn,
		logger:      logger,
		sendTimeout: sendTimeout,
	}
}

// writePump serializes every mailbox event onto the socket and keeps the
// channel alive with pings. It exits when the connector closes (displaced
// or torn down) or the socket dies; either way it closes the socket, which
// unblocks the read loop.
func (s *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.ws.Close()
	}()

	for {
		select {
		case <-s.conn.Done():
			_ = s.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = s.ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "superseded"))
			return

		case ev := <-s.conn.Recv():
			data, err := wsmarshaller.MarshalEvent(ev)
			if err != nil {
				s.logger.Error("EVENT_MARSHAL_FAILED",
					slog.String("kind", ev.GetKind().String()),
					"err", err,
				)
				continue
			}

			_ = s.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
			metrics.RecordFrameOut(ev.GetKind().String())

		case <-ticker.C:
			_ = s.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop consumes client frames until the socket closes. Unparseable
// frames earn an error reply and the connection lives on; transport errors
// end the loop.
func (s *session) readLoop(handle func(frame *wsmarshaller.ClientFrame)) {
	s.ws.SetReadLimit(maxMessageSize)
	_ = s.ws.SetReadDeadline(time.Now().Add(pongWait))
	s.ws.SetPongHandler(func(string) error {
		return s.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNoStatusReceived) {
				s.logger.Warn("SOCKET_READ_FAILED", "err", err)
			}
			return
		}

		frame, err := wsmarshaller.DecodeClientFrame(data)
		if err != nil {
			s.replyError(err)
			continue
		}
		metrics.RecordFrameIn(frame.Type)
		handle(frame)
	}
}

// reply queues one frame for this session only.
func (s *session) reply(kind event.EventKind, priority event.EventPriority, payload any) {
	if s.conn.Send(event.NewFrame(kind, priority, payload), s.sendTimeout) {
		return
	}
	s.logger.Warn("DOWNSTREAM_WRITE_FAILED",
		slog.String("kind", kind.String()),
		slog.String("conn_id", s.conn.GetID().String()),
	)
}

// replyError maps a domain failure onto a typed error frame. The connection
// is never dropped for a recoverable error.
func (s *session) replyError(err error) {
	s.reply(event.ErrorReply, event.PriorityNormal, errorPayload(err))
}
