package vault

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/BadgersMC/LumaGuilds-sub008/model"
	"github.com/BadgersMC/LumaGuilds-sub008/store/store_interface"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"
)

var tracer = otel.Tracer("github.com/BadgersMC/LumaGuilds-sub008/vault")

type Options struct {
	Capacity       int
	SaveAttempts   int
	SaveBackoff    time.Duration
	SaveMaxBackoff time.Duration
	Policy         FlushPolicy
	Rules          *Rules
	Display        BalanceDisplay
	Logger         *log.Logger
	Now            func() time.Time
}

func DefaultOptions() Options {
	return Options{
		Capacity:       54,
		SaveAttempts:   3,
		SaveBackoff:    100 * time.Millisecond,
		SaveMaxBackoff: 2 * time.Second,
		Policy:         DefaultFlushPolicy(),
		Rules:          DefaultRules(),
		Display:        BalanceDisplay{Material: "RAW_GOLD"},
	}
}

// Manager owns every cached vault, its pending-write buffer and its viewer
// sessions. Reads never touch storage once a vault is loaded; writes land in
// memory and the buffer, and reach storage on Flush.
type Manager struct {
	store store_interface.VaultStore
	txlog store_interface.TransactionLog // nil disables auditing
	opts  Options
	log   *log.Logger

	vaults   sync.Map // uuid.UUID -> *State
	sessions sync.Map // viewer uuid.UUID -> *Session
	loads    singleflight.Group
}

func NewManager(store store_interface.VaultStore, txlog store_interface.TransactionLog, opts Options) *Manager {
	def := DefaultOptions()
	if opts.Capacity <= 0 {
		opts.Capacity = def.Capacity
	}
	if opts.SaveAttempts <= 0 {
		opts.SaveAttempts = def.SaveAttempts
	}
	if opts.SaveBackoff <= 0 {
		opts.SaveBackoff = def.SaveBackoff
	}
	if opts.SaveMaxBackoff < opts.SaveBackoff {
		opts.SaveMaxBackoff = max(def.SaveMaxBackoff, opts.SaveBackoff)
	}
	if opts.Policy == (FlushPolicy{}) {
		opts.Policy = def.Policy
	}
	if opts.Rules == nil {
		opts.Rules = def.Rules
	}
	if opts.Display.Material == "" {
		opts.Display = def.Display
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{
		store: store,
		txlog: txlog,
		opts:  opts,
		log:   logger.WithPrefix("vault"),
	}
}

func (m *Manager) Capacity() int { return m.opts.Capacity }

func (m *Manager) Display() BalanceDisplay { return m.opts.Display }

// GetOrLoad returns the cached state, loading it from storage at most once
// under concurrent first access. A failed load caches nothing.
func (m *Manager) GetOrLoad(ctx context.Context, id uuid.UUID) (*State, error) {
	if v, ok := m.vaults.Load(id); ok {
		return v.(*State), nil
	}
	v, err, _ := m.loads.Do(id.String(), func() (any, error) {
		if v, ok := m.vaults.Load(id); ok {
			return v, nil
		}
		st, err := m.load(ctx, id)
		if err != nil {
			return nil, err
		}
		actual, loaded := m.vaults.LoadOrStore(id, st)
		if !loaded {
			cachedVaultsGauge.Inc()
		}
		return actual, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*State), nil
}

func (m *Manager) load(ctx context.Context, id uuid.UUID) (*State, error) {
	ctx, span := tracer.Start(ctx, "vault.load")
	span.SetAttributes(attribute.String("vault.id", id.String()))
	defer span.End()

	slots, balance, err := m.loadContents(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		m.log.Error("failed to load vault", "vault", id, "err", err)
		return nil, err
	}

	m.log.Debug("loaded vault", "vault", id, "slots", len(slots), "balance", balance)
	return newState(id, slots, balance, newBuffer(), m.opts.Now()), nil
}

func (m *Manager) loadContents(ctx context.Context, id uuid.UUID) (map[int]*model.ItemStack, int64, error) {
	stored, err := m.store.LoadSlots(ctx, id)
	if err != nil {
		return nil, 0, fmt.Errorf("load slots of vault %s: %w", id, err)
	}
	balance, err := m.store.LoadBalance(ctx, id)
	if err != nil {
		return nil, 0, fmt.Errorf("load balance of vault %s: %w", id, err)
	}
	slots := make(map[int]*model.ItemStack, len(stored))
	for slot, item := range stored {
		// slot 0 and out-of-tier slots are never served
		if slot <= DisplaySlot || slot >= m.opts.Capacity {
			m.log.Warn("ignoring stored slot outside vault range", "vault", id, "slot", slot)
			continue
		}
		slots[slot] = item.Clone()
	}
	if balance < 0 {
		m.log.Warn("stored balance was negative, treating as zero", "vault", id, "balance", balance)
		balance = 0
	}
	return slots, balance, nil
}

// withState runs fn under the vault lock. An evicted state means the caller
// raced an eviction, so it reloads and tries again. Sessions whose view failed
// inside fn are unregistered after the lock is released.
func (m *Manager) withState(ctx context.Context, id uuid.UUID, fn func(st *State) error) error {
	for {
		st, err := m.GetOrLoad(ctx, id)
		if err != nil {
			return err
		}
		st.mu.Lock()
		if st.evicted {
			st.mu.Unlock()
			continue
		}
		st.lastAccess = m.opts.Now()
		err = fn(st)
		dead := st.takeDead()
		st.mu.Unlock()

		m.dropSessions(ctx, dead)
		return err
	}
}

func (m *Manager) checkSlot(slot int) error {
	if slot < 0 || slot >= m.opts.Capacity {
		return ErrInvalidSlot
	}
	return nil
}

func (m *Manager) checkWritableSlot(slot int) error {
	if err := m.checkSlot(slot); err != nil {
		return err
	}
	if slot == DisplaySlot {
		return ErrReservedSlot
	}
	return nil
}

// Slot reads one slot from the cache. Slot 0 is the balance display.
func (m *Manager) Slot(ctx context.Context, id uuid.UUID, slot int) (*model.ItemStack, error) {
	if err := m.checkSlot(slot); err != nil {
		return nil, err
	}
	var out *model.ItemStack
	err := m.withState(ctx, id, func(st *State) error {
		if slot == DisplaySlot {
			out = m.opts.Display.Render(st.balance)
		} else {
			out = st.slots[slot].Clone()
		}
		return nil
	})
	return out, err
}

// Slots is the full grid as a viewer sees it, balance display included.
func (m *Manager) Slots(ctx context.Context, id uuid.UUID) (map[int]*model.ItemStack, error) {
	var out map[int]*model.ItemStack
	err := m.withState(ctx, id, func(st *State) error {
		out = cloneSlots(st.slots)
		out[DisplaySlot] = m.opts.Display.Render(st.balance)
		return nil
	})
	return out, err
}

func (m *Manager) Balance(ctx context.Context, id uuid.UUID) (int64, error) {
	var out int64
	err := m.withState(ctx, id, func(st *State) error {
		out = st.balance
		return nil
	})
	return out, err
}

type slotChange struct {
	slot       int
	item, prev *model.ItemStack
}

// writeLocked replaces one slot and buffers it. st.mu must be held.
func (m *Manager) writeLocked(st *State, slot int, item *model.ItemStack) *model.ItemStack {
	prev := st.slots[slot]
	if item == nil {
		delete(st.slots, slot)
	} else {
		st.slots[slot] = item.Clone()
	}
	st.buffer.PutSlot(slot, item, m.opts.Now())
	st.dirty = true
	return prev
}

func validItem(item *model.ItemStack) error {
	if item != nil && (item.Amount < 1 || item.Material == "") {
		return ErrInvalidAmount
	}
	if IsDisplay(item) {
		return ErrReservedSlot
	}
	return nil
}

// WriteSlot replaces a slot and returns what it held. A nil item empties the
// slot. Moves of valuable items are audited when actor is set.
func (m *Manager) WriteSlot(ctx context.Context, id uuid.UUID, slot int, item *model.ItemStack, actor *uuid.UUID) (*model.ItemStack, error) {
	return m.writeSlot(ctx, id, slot, item, actor, false)
}

// WriteSlotAndBroadcast is WriteSlot followed by a push to every other viewer
// of the vault. The actor's own session is skipped.
func (m *Manager) WriteSlotAndBroadcast(ctx context.Context, id uuid.UUID, slot int, item *model.ItemStack, actor *uuid.UUID) (*model.ItemStack, error) {
	return m.writeSlot(ctx, id, slot, item, actor, true)
}

func (m *Manager) writeSlot(ctx context.Context, id uuid.UUID, slot int, item *model.ItemStack, actor *uuid.UUID, broadcast bool) (*model.ItemStack, error) {
	if err := m.checkWritableSlot(slot); err != nil {
		return nil, err
	}
	if err := validItem(item); err != nil {
		return nil, err
	}
	var prev *model.ItemStack
	err := m.withState(ctx, id, func(st *State) error {
		prev = m.writeLocked(st, slot, item)
		if broadcast {
			m.broadcastSlotLocked(st, slot, item, actor)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.auditSlot(ctx, id, actor, slotChange{slot: slot, item: item, prev: prev})
	return prev, nil
}

func (m *Manager) auditSlot(ctx context.Context, id uuid.UUID, actor *uuid.UUID, c slotChange) {
	if actor == nil || m.txlog == nil {
		return
	}
	var err error
	switch {
	case m.opts.Rules.Valuable(c.item):
		err = m.txlog.LogItemEvent(ctx, id, *actor, model.TransactionItemAdd, *c.item, c.slot)
	case m.opts.Rules.Valuable(c.prev):
		err = m.txlog.LogItemEvent(ctx, id, *actor, model.TransactionItemRemove, *c.prev, c.slot)
	default:
		return
	}
	if err != nil {
		m.log.Error("failed to log item transaction", "vault", id, "slot", c.slot, "err", err)
	}
}

func (m *Manager) auditBalance(ctx context.Context, id, actor uuid.UUID, kind model.TransactionType, amount int64) {
	if m.txlog == nil {
		return
	}
	if err := m.txlog.LogBalanceEvent(ctx, id, actor, kind, amount); err != nil {
		m.log.Error("failed to log balance transaction", "vault", id, "type", kind, "err", err)
	}
}

// Deposit adds amount and returns the new balance.
func (m *Manager) Deposit(ctx context.Context, id, actor uuid.UUID, amount int64) (int64, error) {
	return m.deposit(ctx, id, actor, amount, false)
}

func (m *Manager) DepositAndBroadcast(ctx context.Context, id, actor uuid.UUID, amount int64) (int64, error) {
	return m.deposit(ctx, id, actor, amount, true)
}

func (m *Manager) deposit(ctx context.Context, id, actor uuid.UUID, amount int64, broadcast bool) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	var balance int64
	err := m.withState(ctx, id, func(st *State) error {
		if st.balance > math.MaxInt64-amount {
			return ErrBalanceOverflow
		}
		st.balance += amount
		st.buffer.PutBalance(st.balance, m.opts.Now())
		st.dirty = true
		balance = st.balance
		if broadcast {
			m.broadcastBalanceLocked(st)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	m.auditBalance(ctx, id, actor, model.TransactionDeposit, amount)
	return balance, nil
}

type WithdrawOutcome int

const (
	WithdrawOK WithdrawOutcome = iota
	WithdrawInsufficient
)

func (o WithdrawOutcome) String() string {
	if o == WithdrawInsufficient {
		return "insufficient"
	}
	return "ok"
}

// WithdrawResult carries the balance after the attempt. An insufficient
// withdrawal leaves the balance untouched.
type WithdrawResult struct {
	Outcome WithdrawOutcome
	Balance int64
}

func (r WithdrawResult) OK() bool { return r.Outcome == WithdrawOK }

func (m *Manager) Withdraw(ctx context.Context, id, actor uuid.UUID, amount int64) (WithdrawResult, error) {
	return m.withdraw(ctx, id, actor, amount, false)
}

func (m *Manager) WithdrawAndBroadcast(ctx context.Context, id, actor uuid.UUID, amount int64) (WithdrawResult, error) {
	return m.withdraw(ctx, id, actor, amount, true)
}

func (m *Manager) withdraw(ctx context.Context, id, actor uuid.UUID, amount int64, broadcast bool) (WithdrawResult, error) {
	if amount <= 0 {
		return WithdrawResult{}, ErrInvalidAmount
	}
	var res WithdrawResult
	err := m.withState(ctx, id, func(st *State) error {
		if st.balance < amount {
			res = WithdrawResult{Outcome: WithdrawInsufficient, Balance: st.balance}
			return nil
		}
		st.balance -= amount
		st.buffer.PutBalance(st.balance, m.opts.Now())
		st.dirty = true
		res = WithdrawResult{Outcome: WithdrawOK, Balance: st.balance}
		if broadcast {
			m.broadcastBalanceLocked(st)
		}
		return nil
	})
	if err != nil {
		return WithdrawResult{}, err
	}
	if res.OK() {
		m.auditBalance(ctx, id, actor, model.TransactionWithdraw, amount)
	}
	return res, nil
}

// SetBalance overwrites the balance, for administrative corrections. It is
// buffered and broadcast but not audited.
func (m *Manager) SetBalance(ctx context.Context, id uuid.UUID, balance int64) error {
	if balance < 0 {
		return ErrNegativeBalance
	}
	return m.withState(ctx, id, func(st *State) error {
		st.balance = balance
		st.buffer.PutBalance(balance, m.opts.Now())
		st.dirty = true
		m.broadcastBalanceLocked(st)
		return nil
	})
}

// Stats is a point-in-time view of the cache.
type Stats struct {
	CachedVaults   int
	ActiveViewers  int
	PendingBuffers int
	DirtyVaults    int
}

func (m *Manager) Stats() Stats {
	var s Stats
	m.vaults.Range(func(_, v any) bool {
		st := v.(*State)
		st.mu.Lock()
		s.CachedVaults++
		if !st.buffer.Empty() {
			s.PendingBuffers++
		}
		if st.dirty {
			s.DirtyVaults++
		}
		st.mu.Unlock()
		return true
	})
	m.sessions.Range(func(_, _ any) bool {
		s.ActiveViewers++
		return true
	})
	return s
}
