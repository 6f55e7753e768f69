package ws

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/virtuolot/showroom-assist-service/config"
	"github.com/virtuolot/showroom-assist-service/internal/domain/registry"
	wsmarshaller "github.com/virtuolot/showroom-assist-service/internal/handler/marshaller/ws"
	"github.com/virtuolot/showroom-assist-service/internal/service"
)

// MonitorHandler serves GET /api/ws/calls/monitor, the representative's
// duplex channel. A connection is anonymous until its connect frame binds a
// representative identity; every other frame type is rejected until then.
type MonitorHandler struct {
	logger      *slog.Logger
	queue       service.Queuer
	upgrader    websocket.Upgrader
	mailboxSize int
	sendTimeout time.Duration
}

func NewMonitorHandler(logger *slog.Logger, queue service.Queuer, cfg *config.Config) *MonitorHandler {
	return &MonitorHandler{
		logger:      logger,
		queue:       queue,
		mailboxSize: cfg.Service.MailboxSize,
		sendTimeout: cfg.Service.SendTimeout,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // Security: adjust for production
		},
	}
}

func (h *MonitorHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
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

	h.logger.Info("monitor channel opened", "conn_id", conn.GetID(), "remote", r.RemoteAddr)

	var boundID string
	sess.readLoop(func(f *wsmarshaller.ClientFrame) {
		h.dispatch(r.Context(), sess, &boundID, f)
	})

	if boundID != "" {
		h.queue.RepDisconnected(context.WithoutCancel(r.Context()), boundID, conn.GetID())
	}

	h.logger.Info("monitor channel closed", "conn_id", conn.GetID(), "sales_rep_id", boundID)
}

// dispatch routes one inbound frame. All post-connect operations run under
// the bound identity; a frame naming somebody else is rejected outright.
func (h *MonitorHandler) dispatch(ctx context.Context, sess *session, boundID *string, f *wsmarshaller.ClientFrame) {
	if f.Type == wsmarshaller.TypeRepConnect {
		if f.SalesRepID == "" {
			sess.replyError(wsmarshaller.ErrBadFrame)
			return
		}
		// One socket binds one identity. A repeat connect under the same id
		// re-primes the channel; switching ids is rejected so the first
		// roster binding cannot outlive its teardown on close.
		if *boundID != "" && f.SalesRepID != *boundID {
			sess.replyError(errIdentityMismatch)
			return
		}
		*boundID = f.SalesRepID
		if err := h.queue.RepConnected(ctx, sess.conn, f.SalesRepID); err != nil {
			sess.replyError(err)
		}
		return
	}

	if *boundID == "" {
		sess.replyError(errNotIdentified)
		return
	}
	if f.SalesRepID != "" && f.SalesRepID != *boundID {
		sess.replyError(errIdentityMismatch)
		return
	}

	switch f.Type {
	case wsmarshaller.TypeClaimCall:
		if f.ShopperID == "" || len(f.SDPOffer) == 0 {
			sess.replyError(wsmarshaller.ErrBadFrame)
			return
		}
		if err := h.queue.Claim(ctx, *boundID, f.ShopperID, f.SDPOffer); err != nil {
			sess.replyError(err)
		}

	case wsmarshaller.TypeReleaseCall:
		if f.ShopperID == "" {
			sess.replyError(wsmarshaller.ErrBadFrame)
			return
		}
		if err := h.queue.Release(ctx, *boundID, f.ShopperID); err != nil {
			sess.replyError(err)
		}

	case wsmarshaller.TypeICECandidate:
		if f.ShopperID == "" || len(f.ICECandidate) == 0 {
			sess.replyError(wsmarshaller.ErrBadFrame)
			return
		}
		if err := h.queue.ForwardRepICE(ctx, *boundID, f.ShopperID, f.ICECandidate); err != nil {
			sess.replyError(err)
		}

	case wsmarshaller.TypeRequestCollab:
		if f.ShopperID == "" {
			sess.replyError(wsmarshaller.ErrBadFrame)
			return
		}
		if err := h.queue.RequestCollaboration(ctx, *boundID, f.ShopperID); err != nil {
			sess.replyError(err)
		}

	default:
		// [UNKNOWN_TYPE] Logged, never answered.
		h.logger.Warn("unknown frame type on monitor channel",
			slog.String("type", f.Type),
			slog.String("conn_id", sess.conn.GetID().String()),
		)
	}
}
