package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BadgersMC/LumaGuilds-sub008/api"
	"github.com/BadgersMC/LumaGuilds-sub008/config"
	"github.com/BadgersMC/LumaGuilds-sub008/model"
	"github.com/BadgersMC/LumaGuilds-sub008/store/ram"
	"github.com/BadgersMC/LumaGuilds-sub008/vault"
	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*VaultClient, *ram.RamStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := ram.NewRamStore()
	opts := vault.DefaultOptions()
	opts.Logger = log.New(io.Discard)
	manager := vault.NewManager(store, store, opts)

	cfg := config.Default().Server
	server := httptest.NewServer(api.SetupRouter(manager, store, cfg, log.New(io.Discard)).Handler())
	t.Cleanup(server.Close)
	return NewVaultClient(server.URL+cfg.Prefix, uuid.New()), store
}

func TestClientSlots(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	vaultID := uuid.New()

	prev, err := c.WriteSlot(ctx, vaultID, 4, &model.ItemStack{Material: "ELYTRA", Amount: 1})
	require.NoError(t, err)
	assert.Nil(t, prev)

	item, err := c.GetSlot(ctx, vaultID, 4)
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, "ELYTRA", item.Material)

	v, err := c.GetVault(ctx, vaultID)
	require.NoError(t, err)
	assert.Len(t, v.Slots, 2)

	_, err = c.WriteSlot(ctx, vaultID, 0, &model.ItemStack{Material: "DIRT", Amount: 1})
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadRequest, statusErr.Code)
}

func TestClientBalance(t *testing.T) {
	c, store := newTestClient(t)
	ctx := context.Background()
	vaultID := uuid.New()

	balance, err := c.Deposit(ctx, vaultID, 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), balance)

	res, err := c.Withdraw(ctx, vaultID, 1500)
	require.NoError(t, err)
	assert.True(t, res.Insufficient)
	assert.Equal(t, int64(1000), res.Balance)

	res, err = c.Withdraw(ctx, vaultID, 400)
	require.NoError(t, err)
	assert.False(t, res.Insufficient)
	assert.Equal(t, int64(600), res.Balance)

	require.NoError(t, c.Flush(ctx, vaultID))
	stored, err := store.LoadBalance(ctx, vaultID)
	require.NoError(t, err)
	assert.Equal(t, int64(600), stored)

	require.NoError(t, c.SetBalance(ctx, vaultID, 5))
	require.NoError(t, c.Refresh(ctx, vaultID))
	v, err := c.GetVault(ctx, vaultID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), v.Balance)

	txs, err := c.Transactions(ctx, model.TransactionsRequest{VaultID: &vaultID})
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, c.ActorID, txs[0].ActorID)

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.CachedVaults)

	require.NoError(t, c.Clear(ctx, vaultID))
	v, err = c.GetVault(ctx, vaultID)
	require.NoError(t, err)
	assert.Zero(t, v.Balance)
}
