package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/BadgersMC/LumaGuilds-sub008/model"
	"github.com/BadgersMC/LumaGuilds-sub008/store/store_interface"
	"github.com/BadgersMC/LumaGuilds-sub008/vault"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var (
	vaultManager *vault.Manager
	txLog        store_interface.TransactionLog
)

func SetupVaultRouter(manager *vault.Manager, txlog store_interface.TransactionLog, prefix string, engine *gin.Engine) *gin.Engine {
	vaultManager = manager
	txLog = txlog
	engine.POST(prefix+"/get-vault", getVaultHandler)
	engine.POST(prefix+"/get-slot", getSlotHandler)
	engine.POST(prefix+"/write-slot", writeSlotHandler)
	engine.POST(prefix+"/deposit", depositHandler)
	engine.POST(prefix+"/withdraw", withdrawHandler)
	engine.POST(prefix+"/set-balance", setBalanceHandler)
	engine.POST(prefix+"/flush", flushHandler)
	engine.POST(prefix+"/refresh", refreshHandler)
	engine.POST(prefix+"/clear", clearHandler)
	engine.POST(prefix+"/transactions", transactionsHandler)
	engine.GET(prefix+"/stats", statsHandler)
	return engine
}

const actorHeader = "X-Actor-Id"

func extractActorIDFromHeader(c *gin.Context) (uuid.UUID, error) {
	raw := c.GetHeader(actorHeader)
	if raw == "" {
		return uuid.Nil, errors.New(actorHeader + " header missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s header: %w", actorHeader, err)
	}
	return id, nil
}

// optionalActor returns nil when the header is absent, which skips auditing.
func optionalActor(c *gin.Context) (*uuid.UUID, error) {
	if c.GetHeader(actorHeader) == "" {
		return nil, nil
	}
	id, err := extractActorIDFromHeader(c)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, vault.ErrInvalidSlot),
		errors.Is(err, vault.ErrReservedSlot),
		errors.Is(err, vault.ErrInvalidAmount),
		errors.Is(err, vault.ErrNegativeBalance):
		return http.StatusBadRequest
	case errors.Is(err, vault.ErrBalanceOverflow):
		return http.StatusUnprocessableEntity
	case errors.Is(err, vault.ErrFlushFailed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func abortWith(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func getVaultHandler(c *gin.Context) {
	var req model.VaultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	slots, err := vaultManager.Slots(ctx, req.VaultID)
	if err != nil {
		abortWith(c, err)
		return
	}
	balance, err := vaultManager.Balance(ctx, req.VaultID)
	if err != nil {
		abortWith(c, err)
		return
	}
	out := make(map[int]model.ItemStack, len(slots))
	for i, item := range slots {
		if item != nil {
			out[i] = *item
		}
	}
	c.JSON(http.StatusOK, model.VaultResponse{VaultID: req.VaultID, Balance: balance, Slots: out})
}

func getSlotHandler(c *gin.Context) {
	var req model.SlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	item, err := vaultManager.Slot(c.Request.Context(), req.VaultID, req.Slot)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, model.SlotResponse{Item: item})
}

func writeSlotHandler(c *gin.Context) {
	actor, err := optionalActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	var req model.SlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	prev, err := vaultManager.WriteSlotAndBroadcast(c.Request.Context(), req.VaultID, req.Slot, req.Item, actor)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, model.SlotResponse{Item: req.Item, Previous: prev})
}

func depositHandler(c *gin.Context) {
	actor, err := extractActorIDFromHeader(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid actor ID"})
		return
	}
	var req model.BalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	balance, err := vaultManager.DepositAndBroadcast(c.Request.Context(), req.VaultID, actor, req.Amount)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, model.BalanceResponse{Balance: balance})
}

func withdrawHandler(c *gin.Context) {
	actor, err := extractActorIDFromHeader(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid actor ID"})
		return
	}
	var req model.BalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := vaultManager.WithdrawAndBroadcast(c.Request.Context(), req.VaultID, actor, req.Amount)
	if err != nil {
		abortWith(c, err)
		return
	}
	if !res.OK() {
		c.JSON(http.StatusConflict, model.WithdrawResponse{Balance: res.Balance, Insufficient: true})
		return
	}
	c.JSON(http.StatusOK, model.WithdrawResponse{Balance: res.Balance})
}

func setBalanceHandler(c *gin.Context) {
	var req model.BalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := vaultManager.SetBalance(c.Request.Context(), req.VaultID, req.Amount); err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, model.BalanceResponse{Balance: req.Amount})
}

func flushHandler(c *gin.Context) {
	var req model.VaultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ok := vaultManager.ForceFlush(c.Request.Context(), req.VaultID)
	if !ok {
		c.JSON(http.StatusServiceUnavailable, model.FlushResponse{Success: false})
		return
	}
	c.JSON(http.StatusOK, model.FlushResponse{Success: true})
}

func refreshHandler(c *gin.Context) {
	var req model.VaultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := <-vaultManager.Refresh(c.Request.Context(), req.VaultID); err != nil {
		abortWith(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func clearHandler(c *gin.Context) {
	var req model.VaultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := <-vaultManager.Clear(c.Request.Context(), req.VaultID); err != nil {
		abortWith(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func transactionsHandler(c *gin.Context) {
	if txLog == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "transaction log disabled"})
		return
	}
	var req model.TransactionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	q := store_interface.TransactionQuery{
		VaultID: req.VaultID,
		ActorID: req.ActorID,
		Type:    req.Type,
		Limit:   req.Limit,
		Offset:  req.Offset,
	}
	if req.Since > 0 {
		q.Since = time.UnixMilli(req.Since)
	}
	if req.Until > 0 {
		q.Until = time.UnixMilli(req.Until)
	}
	items, err := txLog.Transactions(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if items == nil {
		items = []model.Transaction{}
	}
	c.JSON(http.StatusOK, model.TransactionsResponse{Transactions: items})
}

func statsHandler(c *gin.Context) {
	s := vaultManager.Stats()
	c.JSON(http.StatusOK, model.StatsResponse{
		CachedVaults:   s.CachedVaults,
		ActiveViewers:  s.ActiveViewers,
		PendingBuffers: s.PendingBuffers,
		DirtyVaults:    s.DirtyVaults,
	})
}
