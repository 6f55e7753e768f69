package ws

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/virtuolot/showroom-assist-service/config"
	"github.com/virtuolot/showroom-assist-service/internal/domain/event"
	"github.com/virtuolot/showroom-assist-service/internal/domain/model"
	"github.com/virtuolot/showroom-assist-service/internal/domain/registry"
	wsmarshaller "github.com/virtuolot/showroom-assist-service/internal/handler/marshaller/ws"
	"github.com/virtuolot/showroom-assist-service/internal/service"
)

const msgShopperConnected = "Connected to the dealership assistance service"

// ShopperHandler serves GET /api/ws/call, the shopper's duplex channel.
type ShopperHandler struct {
	logger      *slog.Logger
	queue       service.Queuer
	upgrader    websocket.Upgrader
	mailboxSize int
	sendTimeout time.Duration
}

func NewShopperHandler(logger *slog.Logger, queue service.Queuer, cfg *config.Config) *ShopperHandler {
	return &ShopperHandler{
		logger:      logger,
		queue:       queue,
		mailboxSize: cfg.Service.MailboxSize,
		sendTimeout: cfg.Service.SendTimeout,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // Security: adjust for production
		},
	}
}

func (h *ShopperHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws upgrade failed", "error", err)
		return
	}
	defer ws.Close()

	conn := registry.NewConnector(r.Context(), registry.ConnectMetadata{
		RemoteIP:  r.RemoteAddr,
		UserAgent: r.UserAgent(),
	}, h.mailboxSize)
	defer conn.Close()

	sess := newSession(ws, conn, h.logger, h.sendTimeout)
	go sess.writePump()

	// [LIVENESS_ACK] The channel is usable before any join.
	sess.reply(event.Connected, event.PriorityNormal, &model.ConnectedPayload{
		Message: msgShopperConnected,
	})

	h.logger.Info("shopper channel opened", "conn_id", conn.GetID(), "remote", r.RemoteAddr)

	// boundID is the sticky shopper identity, (re)bound by every join_queue
	// on this channel. Close handling keys off it.
	var boundID string
	sess.readLoop(func(f *wsmarshaller.ClientFrame) {
		h.dispatch(r.Context(), sess, &boundID, f)
	})

	if boundID != "" {
		// The request context is tearing down with the socket; the
		// disconnect mutation must still commit.
		h.queue.ShopperDisconnected(context.WithoutCancel(r.Context()), boundID, conn.GetID())
	}

	h.logger.Info("shopper channel closed", "conn_id", conn.GetID(), "shopper_id", boundID)
}

// dispatch routes one inbound frame. Missing required fields are a bad
// frame; an unknown type is logged and deliberately left unanswered.
func (h *ShopperHandler) dispatch(ctx context.Context, sess *session, boundID *string, f *wsmarshaller.ClientFrame) {
	switch f.Type {
	case wsmarshaller.TypeJoinQueue:
		if f.ShopperID == "" {
			sess.replyError(wsmarshaller.ErrBadFrame)
			return
		}
		*boundID = f.ShopperID
		if err := h.queue.ShopperJoined(ctx, sess.conn, f.ShopperID, f.MediaCapabilities); err != nil {
			sess.replyError(err)
		}

	case wsmarshaller.TypeLeaveQueue:
		if f.ShopperID == "" {
			sess.replyError(wsmarshaller.ErrBadFrame)
			return
		}
		if err := h.queue.ShopperLeft(ctx, f.ShopperID); err != nil {
			sess.replyError(err)
		}

	case wsmarshaller.TypeSDPAnswer:
		if f.ShopperID == "" || len(f.SDPAnswer) == 0 {
			sess.replyError(wsmarshaller.ErrBadFrame)
			return
		}
		if err := h.queue.ForwardSDPAnswer(ctx, f.ShopperID, f.SDPAnswer); err != nil {
			sess.replyError(err)
		}

	case wsmarshaller.TypeICECandidate:
		if f.ShopperID == "" || len(f.ICECandidate) == 0 {
			sess.replyError(wsmarshaller.ErrBadFrame)
			return
		}
		if err := h.queue.ForwardShopperICE(ctx, f.ShopperID, f.ICECandidate); err != nil {
			sess.replyError(err)
		}

	case wsmarshaller.TypeEndCall:
		if f.ShopperID == "" {
			sess.replyError(wsmarshaller.ErrBadFrame)
			return
		}
		if err := h.queue.EndCall(ctx, f.ShopperID); err != nil {
			sess.replyError(err)
		}

	case wsmarshaller.TypeCollabResponse:
		if f.ShopperID == "" || f.SalesRepID == "" || f.Accepted == nil {
			sess.replyError(wsmarshaller.ErrBadFrame)
			return
		}
		if err := h.queue.RespondCollaboration(ctx, f.ShopperID, f.SalesRepID, *f.Accepted); err != nil {
			sess.replyError(err)
		}

	default:
		// [UNKNOWN_TYPE] Logged, never answered; replying would let a
		// confused client loop on error frames.
		h.logger.Warn("unknown frame type on shopper channel",
			slog.String("type", f.Type),
			slog.String("conn_id", sess.conn.GetID().String()),
		)
	}
}
