package vault

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferLatestMutationWins(t *testing.T) {
	now := time.Now()
	b := newBuffer()
	assert.True(t, b.Empty())

	b.PutSlot(1, diamond(1), now)
	b.PutSlot(1, nil, now)
	snap := b.Snapshot()
	assert.Empty(t, snap.Slots)
	assert.Equal(t, []int{1}, snap.Deletions)

	b.PutSlot(1, dirt(2), now)
	snap = b.Snapshot()
	assert.Len(t, snap.Slots, 1)
	assert.Empty(t, snap.Deletions, "a slot is never both upserted and deleted")
	assert.Nil(t, snap.Balance)
}

func TestBufferAckKeepsNewerEntries(t *testing.T) {
	now := time.Now()
	b := newBuffer()
	b.PutSlot(1, diamond(1), now)
	b.PutBalance(10, now)
	snap := b.Snapshot()

	b.PutSlot(2, dirt(1), now)
	b.PutBalance(20, now)
	b.Ack(snap.Seq)

	require.False(t, b.Empty())
	after := b.Snapshot()
	assert.NotContains(t, after.Slots, 1)
	assert.Contains(t, after.Slots, 2)
	require.NotNil(t, after.Balance)
	assert.Equal(t, int64(20), *after.Balance)

	b.Ack(after.Seq)
	assert.True(t, b.Empty())
	assert.True(t, b.FirstChange().IsZero())
}

func TestBufferDue(t *testing.T) {
	policy := DefaultFlushPolicy()
	start := time.Now()
	b := newBuffer()
	assert.False(t, b.Due(policy, start), "empty buffers are never due")

	b.PutSlot(1, dirt(1), start)
	assert.False(t, b.Due(policy, start.Add(100*time.Millisecond)))
	assert.True(t, b.Due(policy, start.Add(200*time.Millisecond)), "quiet period elapsed")

	// continuous writes still flush once the oldest change is a second old
	for i := 0; i < 10; i++ {
		b.PutSlot(1, dirt(i+1), start.Add(time.Duration(i)*100*time.Millisecond))
	}
	assert.True(t, b.Due(policy, start.Add(1000*time.Millisecond)))

	c := newBuffer()
	for slot := 1; slot <= 5; slot++ {
		c.PutSlot(slot, dirt(1), start)
	}
	assert.True(t, c.Due(policy, start), "slot threshold reached")
}
