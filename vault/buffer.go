package vault

import (
	"time"

	"github.com/BadgersMC/LumaGuilds-sub008/model"
)

// FlushPolicy decides when a buffer is due for a flush.
type FlushPolicy struct {
	Quiet    time.Duration // since the last change
	MaxAge   time.Duration // since the first unflushed change
	MaxSlots int
}

func DefaultFlushPolicy() FlushPolicy {
	return FlushPolicy{Quiet: 200 * time.Millisecond, MaxAge: time.Second, MaxSlots: 5}
}

type pendingSlot struct {
	item *model.ItemStack
	seq  uint64
}

// Buffer holds the mutations of one vault not yet known to be durable. It is
// guarded by the owning State's mutex. A slot lives in at most one of slots
// and deletions.
type Buffer struct {
	slots      map[int]pendingSlot
	deletions  map[int]uint64
	balance    int64
	balanceSeq uint64 // zero when no balance change is pending

	seq          uint64
	firstChange  time.Time
	lastModified time.Time
}

func newBuffer() *Buffer {
	return &Buffer{
		slots:     make(map[int]pendingSlot),
		deletions: make(map[int]uint64),
	}
}

func (b *Buffer) next(now time.Time) uint64 {
	if b.Empty() {
		b.firstChange = now
	}
	b.lastModified = now
	b.seq++
	return b.seq
}

// PutSlot records an upsert, or a deletion when item is nil.
func (b *Buffer) PutSlot(slot int, item *model.ItemStack, now time.Time) {
	seq := b.next(now)
	if item == nil {
		delete(b.slots, slot)
		b.deletions[slot] = seq
		return
	}
	delete(b.deletions, slot)
	b.slots[slot] = pendingSlot{item: item.Clone(), seq: seq}
}

func (b *Buffer) PutBalance(balance int64, now time.Time) {
	b.balanceSeq = b.next(now)
	b.balance = balance
}

func (b *Buffer) Empty() bool {
	return len(b.slots) == 0 && len(b.deletions) == 0 && b.balanceSeq == 0
}

func (b *Buffer) PendingSlots() int {
	return len(b.slots) + len(b.deletions)
}

func (b *Buffer) LastModified() time.Time { return b.lastModified }
func (b *Buffer) FirstChange() time.Time  { return b.firstChange }

func (b *Buffer) Due(p FlushPolicy, now time.Time) bool {
	if b.Empty() {
		return false
	}
	return now.Sub(b.lastModified) >= p.Quiet ||
		now.Sub(b.firstChange) >= p.MaxAge ||
		b.PendingSlots() >= p.MaxSlots
}

// Snapshot is an immutable copy of a buffer taken for one flush.
type Snapshot struct {
	Slots     map[int]*model.ItemStack
	Deletions []int
	Balance   *int64
	Seq       uint64
}

func (s Snapshot) Empty() bool {
	return len(s.Slots) == 0 && len(s.Deletions) == 0 && s.Balance == nil
}

func (b *Buffer) Snapshot() Snapshot {
	s := Snapshot{Slots: make(map[int]*model.ItemStack, len(b.slots)), Seq: b.seq}
	for slot, p := range b.slots {
		s.Slots[slot] = p.item.Clone()
	}
	for slot := range b.deletions {
		s.Deletions = append(s.Deletions, slot)
	}
	if b.balanceSeq != 0 {
		balance := b.balance
		s.Balance = &balance
	}
	return s
}

// Ack drops every entry at or below seq. Entries written after the snapshot
// was taken stay pending.
func (b *Buffer) Ack(seq uint64) {
	for slot, p := range b.slots {
		if p.seq <= seq {
			delete(b.slots, slot)
		}
	}
	for slot, s := range b.deletions {
		if s <= seq {
			delete(b.deletions, slot)
		}
	}
	if b.balanceSeq != 0 && b.balanceSeq <= seq {
		b.balanceSeq = 0
	}
	if b.Empty() {
		b.firstChange = time.Time{}
	}
}

func (b *Buffer) Clear() {
	clear(b.slots)
	clear(b.deletions)
	b.balanceSeq = 0
	b.firstChange = time.Time{}
}

// apply replays pending entries over freshly loaded contents.
func (b *Buffer) apply(slots map[int]*model.ItemStack, balance *int64) {
	for slot, p := range b.slots {
		slots[slot] = p.item.Clone()
	}
	for slot := range b.deletions {
		delete(slots, slot)
	}
	if b.balanceSeq != 0 {
		*balance = b.balance
	}
}
