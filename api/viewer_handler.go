package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/BadgersMC/LumaGuilds-sub008/model"
	"github.com/BadgersMC/LumaGuilds-sub008/vault"
	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

var errRateLimited = errors.New("rate limited")

type ViewerConfig struct {
	// Rate is the sustained number of actions per second a connection may send.
	Rate   float64
	Burst  int
	Logger *log.Logger
}

type viewerHandler struct {
	manager  *vault.Manager
	cfg      ViewerConfig
	log      *log.Logger
	upgrader websocket.Upgrader
}

func SetupViewerRouter(manager *vault.Manager, cfg ViewerConfig, prefix string, engine *gin.Engine) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	if cfg.Rate <= 0 {
		cfg.Rate = 20
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 40
	}
	h := &viewerHandler{
		manager: manager,
		cfg:     cfg,
		log:     logger.WithPrefix("viewer"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	engine.GET(prefix+"/view/:vaultId", h.serve)
	return engine
}

func (h *viewerHandler) serve(c *gin.Context) {
	vaultID, err := uuid.Parse(c.Param("vaultId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vault ID"})
		return
	}
	viewerID, err := uuid.Parse(c.Query("viewer"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid viewer ID"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("upgrade failed", "viewer", viewerID, "err", err)
		return
	}

	ctx := c.Request.Context()
	view := newSocketView(conn, h.manager.Capacity())
	session, err := h.manager.RegisterViewer(ctx, vaultID, viewerID, view)
	if err != nil {
		h.log.Error("failed to open vault for viewer", "vault", vaultID, "viewer", viewerID, "err", err)
		_ = view.sendError(err)
		_ = view.Close()
		return
	}
	defer h.disconnect(ctx, session, view)

	if err := h.sendSnapshot(ctx, vaultID, view); err != nil {
		h.log.Debug("initial snapshot failed", "viewer", viewerID, "err", err)
		return
	}

	limiter := rate.NewLimiter(rate.Limit(h.cfg.Rate), h.cfg.Burst)
	for {
		var msg model.ViewerMessage
		if err := conn.ReadJSON(&msg); err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				h.log.Debug("viewer read failed", "viewer", viewerID, "err", err)
			}
			return
		}
		h.manager.Touch(viewerID)

		if !limiter.Allow() {
			if view.sendError(errRateLimited) != nil {
				return
			}
			continue
		}
		if err := h.handle(ctx, vaultID, viewerID, view, msg); err != nil {
			return
		}
	}
}

// disconnect unregisters the session unless it was already replaced or
// reclaimed. The final flush must outlive the request.
func (h *viewerHandler) disconnect(ctx context.Context, session *vault.Session, view *socketView) {
	if cur, ok := h.manager.Session(session.ViewerID); ok && cur == session {
		h.manager.UnregisterViewer(context.WithoutCancel(ctx), session.ViewerID)
	}
	_ = view.Close()
}

func (h *viewerHandler) sendSnapshot(ctx context.Context, vaultID uuid.UUID, view *socketView) error {
	slots, err := h.manager.Slots(ctx, vaultID)
	if err != nil {
		return err
	}
	balance, err := h.manager.Balance(ctx, vaultID)
	if err != nil {
		return err
	}
	for i, item := range slots {
		view.Put(i, item)
	}
	return view.send(model.ServerMessage{
		Type:    model.ServerSnapshot,
		Slots:   slots,
		Size:    view.Size(),
		Balance: balance,
	})
}

// handle applies one viewer action. Only a failed write to the socket is
// returned; rejected actions are reported to the viewer.
func (h *viewerHandler) handle(ctx context.Context, vaultID, viewerID uuid.UUID, view *socketView, msg model.ViewerMessage) error {
	switch msg.Type {
	case model.ViewerPing:
		return view.send(model.ServerMessage{Type: model.ServerPong})

	case model.ViewerWriteSlot:
		if _, err := h.manager.WriteSlotAndBroadcast(ctx, vaultID, msg.Slot, msg.Item, &viewerID); err != nil {
			if sendErr := view.sendError(err); sendErr != nil {
				return sendErr
			}
			// undo the client's optimistic edit
			if cur, slotErr := h.manager.Slot(ctx, vaultID, msg.Slot); slotErr == nil {
				return view.SetSlot(msg.Slot, cur)
			}
			return nil
		}
		view.Put(msg.Slot, msg.Item)
		return nil

	case model.ViewerDeposit:
		if _, err := h.manager.DepositAndBroadcast(ctx, vaultID, viewerID, msg.Amount); err != nil {
			return view.sendError(err)
		}
		return nil

	case model.ViewerWithdraw:
		res, err := h.manager.WithdrawAndBroadcast(ctx, vaultID, viewerID, msg.Amount)
		if err != nil {
			return view.sendError(err)
		}
		if !res.OK() {
			return view.send(model.ServerMessage{Type: model.ServerBalance, Balance: res.Balance, Insufficient: true})
		}
		return nil

	case model.ViewerSync:
		for i := 0; i < view.Size(); i++ {
			view.Put(i, msg.Slots[i])
		}
		if _, err := h.manager.SyncViewToCache(ctx, vaultID, view, &viewerID); err != nil {
			return view.sendError(err)
		}
		if _, err := h.manager.ValidateAndRepair(ctx, vaultID, view); err != nil {
			return err
		}
		return nil

	default:
		h.log.Debug("discarding unknown message", "viewer", viewerID, "type", msg.Type)
		return view.sendError(errors.New("unknown message type " + msg.Type))
	}
}
