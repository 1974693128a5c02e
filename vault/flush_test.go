package vault

import (
	"context"
	"testing"
	"time"

	"github.com/BadgersMC/LumaGuilds-sub008/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlushPersistsEverything(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	m, _ := newTestManager(t, store)
	id, actor := uuid.New(), uuid.New()

	_, err := m.WriteSlot(ctx, id, 1, diamond(4), nil)
	require.NoError(t, err)
	_, err = m.WriteSlot(ctx, id, 2, dirt(9), nil)
	require.NoError(t, err)
	_, err = m.WriteSlot(ctx, id, 2, nil, nil)
	require.NoError(t, err)
	_, err = m.Deposit(ctx, id, actor, 300)
	require.NoError(t, err)

	st, err := m.GetOrLoad(ctx, id)
	require.NoError(t, err)
	assert.True(t, st.Dirty())

	require.True(t, m.Flush(ctx, id))
	assert.False(t, st.Dirty())

	slots, err := store.RamStore.LoadSlots(ctx, id)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, 4, slots[1].Amount)
	balance, err := store.RamStore.LoadBalance(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(300), balance)
	// one upsert, one deletion, one balance
	assert.Equal(t, int32(3), store.saveCalls.Load())
}

func TestFlushIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	m, _ := newTestManager(t, store)
	id := uuid.New()

	_, err := m.WriteSlot(ctx, id, 5, diamond(1), nil)
	require.NoError(t, err)
	require.True(t, m.Flush(ctx, id))
	calls := store.saveCalls.Load()

	require.True(t, m.Flush(ctx, id))
	require.True(t, m.ForceFlush(ctx, id))
	assert.Equal(t, calls, store.saveCalls.Load(), "an empty buffer issues no storage calls")
	assert.True(t, m.Flush(ctx, uuid.New()), "an uncached vault flushes trivially")
}

func TestRetryBound(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	store.failSaves.Store(true)
	m, clock := newTestManager(t, store)
	id := uuid.New()

	_, err := m.WriteSlot(ctx, id, 8, diamond(2), nil)
	require.NoError(t, err)

	assert.False(t, m.Flush(ctx, id))
	assert.Equal(t, int32(3), store.saveCalls.Load(), "exactly three attempts")

	st, err := m.GetOrLoad(ctx, id)
	require.NoError(t, err)
	assert.True(t, st.Dirty())
	assert.Equal(t, 1, m.Stats().PendingBuffers, "the buffer survives the failure")

	// the next sweep retries and succeeds once the backend recovers
	store.failSaves.Store(false)
	clock.Advance(time.Second)
	assert.Equal(t, 1, m.FlushDue(ctx))
	assert.False(t, st.Dirty())

	slots, err := store.RamStore.LoadSlots(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, slots[8].Amount)
}

type panickingStore struct {
	*flakyStore
}

func (p panickingStore) SaveSlot(context.Context, uuid.UUID, int, *model.ItemStack) error {
	p.saveCalls.Add(1)
	panic("driver bug")
}

func TestRetryRecoversPanics(t *testing.T) {
	ctx := context.Background()
	inner := newFlakyStore()
	m, _ := newTestManager(t, inner)
	m.store = panickingStore{inner}
	id := uuid.New()

	_, err := m.WriteSlot(ctx, id, 1, dirt(1), nil)
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		assert.False(t, m.Flush(ctx, id))
	})
	assert.Equal(t, int32(3), inner.saveCalls.Load())
}

func TestMutationDuringFlushIsKept(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	m, _ := newTestManager(t, store)
	id := uuid.New()

	_, err := m.WriteSlot(ctx, id, 1, diamond(1), nil)
	require.NoError(t, err)

	// lands while the first flush is writing slot 1
	store.onSave = func() {
		_, err := m.WriteSlot(ctx, id, 2, dirt(7), nil)
		assert.NoError(t, err)
	}
	require.True(t, m.Flush(ctx, id))

	st, err := m.GetOrLoad(ctx, id)
	require.NoError(t, err)
	assert.True(t, st.Dirty(), "the late write is still pending")
	assert.Equal(t, 1, m.Stats().PendingBuffers)

	require.True(t, m.Flush(ctx, id))
	slots, err := store.RamStore.LoadSlots(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 7, slots[2].Amount)
	assert.False(t, st.Dirty())
}

func TestFlushDueFollowsPolicy(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	m, clock := newTestManager(t, store)
	quiet, busy := uuid.New(), uuid.New()

	_, err := m.WriteSlot(ctx, quiet, 1, dirt(1), nil)
	require.NoError(t, err)
	assert.Zero(t, m.FlushDue(ctx), "nothing is due right after a write")

	clock.Advance(250 * time.Millisecond)
	for slot := 1; slot <= 5; slot++ {
		_, err := m.WriteSlot(ctx, busy, slot, dirt(slot), nil)
		require.NoError(t, err)
	}
	// quiet has been idle past 200ms; busy hit the slot threshold
	assert.Equal(t, 2, m.FlushDue(ctx))
	assert.Zero(t, m.Stats().PendingBuffers)
}

func TestForceFlushAll(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	m, _ := newTestManager(t, store)

	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for _, id := range ids {
		_, err := m.WriteSlot(ctx, id, 1, diamond(1), nil)
		require.NoError(t, err)
	}
	assert.True(t, m.ForceFlushAll(ctx))
	for _, id := range ids {
		slots, err := store.RamStore.LoadSlots(ctx, id)
		require.NoError(t, err)
		assert.Len(t, slots, 1)
	}

	store.failSaves.Store(true)
	_, err := m.WriteSlot(ctx, ids[0], 2, diamond(1), nil)
	require.NoError(t, err)
	assert.False(t, m.ForceFlushAll(ctx))
}
