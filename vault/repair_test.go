package vault

import (
	"context"
	"testing"
	"time"

	"github.com/BadgersMC/LumaGuilds-sub008/model"
	"github.com/BadgersMC/LumaGuilds-sub008/store/store_interface"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAndRepair(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, newFlakyStore())
	id, actor := uuid.New(), uuid.New()

	_, err := m.WriteSlot(ctx, id, 1, diamond(2), nil)
	require.NoError(t, err)
	_, err = m.Deposit(ctx, id, actor, 90)
	require.NoError(t, err)

	view := NewGridView(54)
	view.Put(DisplaySlot, m.Display().Render(90))
	view.Put(1, diamond(2))

	repaired, err := m.ValidateAndRepair(ctx, id, view)
	require.NoError(t, err)
	assert.Zero(t, repaired, "a view matching the cache needs nothing")

	view.Put(1, diamond(64))
	view.Put(9, dirt(1))
	view.Put(DisplaySlot, m.Display().Render(5))

	repaired, err = m.ValidateAndRepair(ctx, id, view)
	require.NoError(t, err)
	assert.Equal(t, 3, repaired)
	assert.True(t, model.ItemsEqual(diamond(2), view.Slot(1)))
	assert.Nil(t, view.Slot(9))
	shown, _ := DisplayedBalance(view.Slot(DisplaySlot))
	assert.Equal(t, int64(90), shown)
}

func TestValidateAndRepairClosedView(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, newFlakyStore())
	view := NewGridView(54)
	require.NoError(t, view.Close())

	_, err := m.ValidateAndRepair(ctx, uuid.New(), view)
	assert.ErrorIs(t, err, ErrViewClosed)
}

func TestEnsureBalanceDisplay(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, newFlakyStore())
	id := uuid.New()
	require.NoError(t, m.SetBalance(ctx, id, 12))

	view := NewGridView(27)
	wrote, err := m.EnsureBalanceDisplay(ctx, id, view)
	require.NoError(t, err)
	assert.True(t, wrote)

	wrote, err = m.EnsureBalanceDisplay(ctx, id, view)
	require.NoError(t, err)
	assert.False(t, wrote, "an up to date display is left alone")
}

func TestSyncViewToCache(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	m, _ := newTestManager(t, store)
	id, editor, watcher := uuid.New(), uuid.New(), uuid.New()

	_, err := m.WriteSlot(ctx, id, 2, dirt(3), nil)
	require.NoError(t, err)

	editorView := newCountingView(54)
	watcherView := newCountingView(54)
	_, err = m.RegisterViewer(ctx, id, editor, editorView)
	require.NoError(t, err)
	_, err = m.RegisterViewer(ctx, id, watcher, watcherView)
	require.NoError(t, err)

	editorView.Put(DisplaySlot, dirt(64)) // ignored
	editorView.Put(2, dirt(3))            // unchanged
	editorView.Put(4, &model.ItemStack{Material: "ELYTRA", Amount: 1})
	editorView.Put(5, diamond(1))

	applied, err := m.SyncViewToCache(ctx, id, editorView, &editor)
	require.NoError(t, err)
	assert.Equal(t, 2, applied)

	slots, err := m.Slots(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "ELYTRA", slots[4].Material)
	assert.True(t, IsDisplay(slots[DisplaySlot]))

	assert.Zero(t, editorView.sets.Load())
	assert.Equal(t, int32(2), watcherView.sets.Load())
	assert.Equal(t, "ELYTRA", watcherView.Slot(4).Material)

	txs, err := store.Transactions(ctx, store_interface.TransactionQuery{VaultID: &id, ActorID: &editor})
	require.NoError(t, err)
	assert.Len(t, txs, 2)
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	m, _ := newTestManager(t, store)
	id := uuid.New()

	_, err := m.WriteSlot(ctx, id, 1, diamond(1), nil)
	require.NoError(t, err)
	view := newCountingView(54)
	_, err = m.RegisterViewer(ctx, id, uuid.New(), view)
	require.NoError(t, err)

	// changed behind the cache's back
	require.NoError(t, store.RamStore.SaveSlot(ctx, id, 7, dirt(7)))
	require.NoError(t, store.RamStore.SaveBalance(ctx, id, 33))

	require.NoError(t, <-m.Refresh(ctx, id))

	got, err := m.Slot(ctx, id, 7)
	require.NoError(t, err)
	assert.True(t, model.ItemsEqual(dirt(7), got))
	balance, err := m.Balance(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(33), balance)

	assert.True(t, model.ItemsEqual(diamond(1), view.Slot(1)), "the flushed write survived")
	assert.True(t, model.ItemsEqual(dirt(7), view.Slot(7)))
	shown, _ := DisplayedBalance(view.Slot(DisplaySlot))
	assert.Equal(t, int64(33), shown)
}

func TestRefreshKeepsWritesMadeDuringReload(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	m, _ := newTestManager(t, store)
	id, actor := uuid.New(), uuid.New()

	_, err := m.Deposit(ctx, id, actor, 100)
	require.NoError(t, err)

	release := store.stallLoads()
	done := m.Refresh(ctx, id)
	<-store.stalled

	// the reload has read storage; these land before it swaps
	_, err = m.WriteSlot(ctx, id, 5, diamond(3), nil)
	require.NoError(t, err)
	_, err = m.Deposit(ctx, id, actor, 20)
	require.NoError(t, err)

	flushed := make(chan bool, 1)
	go func() { flushed <- m.Flush(ctx, id) }()
	select {
	case <-flushed:
		t.Fatal("flush completed while the reload was in flight")
	case <-time.After(20 * time.Millisecond):
	}

	release()
	require.NoError(t, <-done)
	assert.True(t, <-flushed)

	got, err := m.Slot(ctx, id, 5)
	require.NoError(t, err)
	assert.True(t, model.ItemsEqual(diamond(3), got), "the cache still holds the write")
	balance, err := m.Balance(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(120), balance)

	stored, err := store.RamStore.LoadSlots(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, stored[5].Amount)
	storedBalance, err := store.RamStore.LoadBalance(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(120), storedBalance)
}

func TestRefreshFailsWhenFlushFails(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	m, _ := newTestManager(t, store)
	id := uuid.New()

	_, err := m.WriteSlot(ctx, id, 1, diamond(1), nil)
	require.NoError(t, err)
	store.failSaves.Store(true)

	assert.ErrorIs(t, <-m.Refresh(ctx, id), ErrFlushFailed)
	got, err := m.Slot(ctx, id, 1)
	require.NoError(t, err)
	assert.NotNil(t, got, "the cache is untouched")
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	m, _ := newTestManager(t, store)
	id, actor := uuid.New(), uuid.New()

	_, err := m.WriteSlot(ctx, id, 1, diamond(1), nil)
	require.NoError(t, err)
	_, err = m.Deposit(ctx, id, actor, 50)
	require.NoError(t, err)
	require.True(t, m.Flush(ctx, id))
	_, err = m.WriteSlot(ctx, id, 2, dirt(1), nil)
	require.NoError(t, err)

	view := NewGridView(54)
	_, err = m.RegisterViewer(ctx, id, uuid.New(), view)
	require.NoError(t, err)
	view.Put(1, diamond(1))

	require.NoError(t, <-m.Clear(ctx, id))

	slots, err := m.Slots(ctx, id)
	require.NoError(t, err)
	assert.Len(t, slots, 1, "only the display remains")
	assert.Zero(t, m.Stats().PendingBuffers)
	assert.Nil(t, view.Slot(1))

	stored, err := store.RamStore.LoadSlots(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, stored)
	balance, err := store.RamStore.LoadBalance(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, balance)
}

func TestClearDropsFailingLastViewer(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	m, _ := newTestManager(t, store)
	id, viewer := uuid.New(), uuid.New()

	view := newCountingView(54)
	_, err := m.RegisterViewer(ctx, id, viewer, view)
	require.NoError(t, err)
	view.fail.Store(true)

	select {
	case err := <-m.Clear(ctx, id):
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("clear did not finish")
	}
	assert.False(t, m.IsViewing(viewer))
}
