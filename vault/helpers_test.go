package vault

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BadgersMC/LumaGuilds-sub008/model"
	"github.com/BadgersMC/LumaGuilds-sub008/store/ram"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

var errBackendDown = errors.New("backend down")

// flakyStore wraps the ram store with call counting and failure injection.
type flakyStore struct {
	*ram.RamStore

	failSaves atomic.Bool
	saveCalls atomic.Int32
	loadCalls atomic.Int32
	loadErr   error
	loadDelay time.Duration

	// onSave runs inside SaveSlot before the write, once.
	onSave func()
	once   sync.Once

	// when stall is set, LoadSlots reports on stalled after reading and then
	// waits for stall to close
	stall   chan struct{}
	stalled chan struct{}
}

// stallLoads makes the next load hang after it has read storage. Call the
// returned func to let it finish.
func (f *flakyStore) stallLoads() func() {
	f.stall = make(chan struct{})
	f.stalled = make(chan struct{}, 1)
	return func() { close(f.stall) }
}

func newFlakyStore() *flakyStore {
	return &flakyStore{RamStore: ram.NewRamStore()}
}

func (f *flakyStore) LoadSlots(ctx context.Context, id uuid.UUID) (map[int]model.ItemStack, error) {
	f.loadCalls.Add(1)
	if f.loadDelay > 0 {
		time.Sleep(f.loadDelay)
	}
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	slots, err := f.RamStore.LoadSlots(ctx, id)
	if f.stall != nil {
		f.stalled <- struct{}{}
		<-f.stall
	}
	return slots, err
}

func (f *flakyStore) SaveSlot(ctx context.Context, id uuid.UUID, slot int, item *model.ItemStack) error {
	f.saveCalls.Add(1)
	if f.onSave != nil {
		f.once.Do(f.onSave)
	}
	if f.failSaves.Load() {
		return errBackendDown
	}
	return f.RamStore.SaveSlot(ctx, id, slot, item)
}

func (f *flakyStore) SaveBalance(ctx context.Context, id uuid.UUID, balance int64) error {
	f.saveCalls.Add(1)
	if f.failSaves.Load() {
		return errBackendDown
	}
	return f.RamStore.SaveBalance(ctx, id, balance)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestManager(t *testing.T, store *flakyStore) (*Manager, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	opts := DefaultOptions()
	opts.SaveBackoff = time.Millisecond
	opts.SaveMaxBackoff = 4 * time.Millisecond
	opts.Logger = log.New(io.Discard)
	opts.Now = clock.Now
	return NewManager(store, store.RamStore, opts), clock
}

// countingView records every SetSlot and can be told to fail.
type countingView struct {
	*GridView
	sets atomic.Int32
	fail atomic.Bool
}

func newCountingView(size int) *countingView {
	return &countingView{GridView: NewGridView(size)}
}

func (c *countingView) SetSlot(i int, item *model.ItemStack) error {
	c.sets.Add(1)
	if c.fail.Load() {
		return ErrViewClosed
	}
	return c.GridView.SetSlot(i, item)
}

func diamond(n int) *model.ItemStack {
	return &model.ItemStack{Material: "DIAMOND", Amount: n}
}

func dirt(n int) *model.ItemStack {
	return &model.ItemStack{Material: "DIRT", Amount: n}
}
