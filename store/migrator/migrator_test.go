package migrator

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/BadgersMC/LumaGuilds-sub008/model"
	"github.com/BadgersMC/LumaGuilds-sub008/store/boltdb"
	"github.com/BadgersMC/LumaGuilds-sub008/store/ram"
	"github.com/BadgersMC/LumaGuilds-sub008/store/store_interface"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVaultMigrator(t *testing.T) {
	ctx := context.Background()
	source := ram.NewRamStore()
	target, err := boltdb.NewBoltStore(filepath.Join(t.TempDir(), "target.db"))
	require.NoError(t, err)
	defer target.VaultClose()

	first, second := uuid.New(), uuid.New()
	require.NoError(t, source.SaveSlot(ctx, first, 1, &model.ItemStack{Material: "DIAMOND", Amount: 12}))
	require.NoError(t, source.SaveSlot(ctx, first, 9, &model.ItemStack{Material: "ELYTRA", Amount: 1}))
	require.NoError(t, source.SaveBalance(ctx, first, 1500))
	require.NoError(t, source.SaveBalance(ctx, second, 7))

	migrator := &VaultMigrator{Source: source, Target: target}
	n, err := migrator.MigrateAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	slots, err := target.LoadSlots(ctx, first)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, 12, slots[1].Amount)
	assert.Equal(t, "ELYTRA", slots[9].Material)

	balance, err := target.LoadBalance(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), balance)

	balance, err = target.LoadBalance(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, int64(7), balance)

	// running again is harmless
	_, err = migrator.Migrate(ctx, first)
	require.NoError(t, err)
	slots, err = target.LoadSlots(ctx, first)
	require.NoError(t, err)
	assert.Len(t, slots, 2)
}

func TestTransactionMigrator(t *testing.T) {
	ctx := context.Background()
	source := ram.NewRamStore()
	target := ram.NewRamStore()

	vaultID, actor := uuid.New(), uuid.New()
	require.NoError(t, source.LogBalanceEvent(ctx, vaultID, actor, model.TransactionDeposit, 100))
	require.NoError(t, source.LogItemEvent(ctx, vaultID, actor, model.TransactionItemAdd, model.ItemStack{Material: "NETHER_STAR", Amount: 1}, 3))

	copied, err := (&TransactionMigrator{Source: source, Target: target}).Migrate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, copied)

	want, err := source.Transactions(ctx, store_interface.TransactionQuery{})
	require.NoError(t, err)
	got, err := target.Transactions(ctx, store_interface.TransactionQuery{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, want[0].ID, got[0].ID)
	assert.Equal(t, want[1].ID, got[1].ID)
}
