package vault

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// saveWithRetry calls op up to SaveAttempts times with exponential backoff.
// On exhaustion it marks the vault dirty and reports false. A panicking
// backend counts as a failed attempt.
func (m *Manager) saveWithRetry(ctx context.Context, st *State, what string, op func(context.Context) error) bool {
	var attempts atomic.Int32
	_, err := backoff.Retry(ctx, func() (_ struct{}, err error) {
		attempts.Add(1)
		saveAttemptsTotal.WithLabelValues(what).Inc()
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic in %s: %v", what, r)
			}
		}()
		return struct{}{}, op(ctx)
	},
		backoff.WithBackOff(&backoff.ExponentialBackOff{
			InitialInterval:     m.opts.SaveBackoff,
			RandomizationFactor: 0,
			Multiplier:          2,
			MaxInterval:         m.opts.SaveMaxBackoff,
		}),
		backoff.WithMaxTries(uint(m.opts.SaveAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			m.log.Warn("save failed, retrying", "vault", st.ID, "op", what, "attempt", attempts.Load(), "next", next, "err", err)
		}),
	)
	if err == nil {
		return true
	}

	saveFailuresTotal.WithLabelValues(what).Inc()
	st.mu.Lock()
	st.dirty = true
	st.mu.Unlock()
	m.log.Error("save failed after retries, vault left dirty", "vault", st.ID, "op", what, "attempts", attempts.Load(), "err", err)
	return false
}

// Flush writes the vault's pending changes: slot upserts, then deletions,
// then the balance. The buffer is acknowledged only when every write
// succeeded; otherwise it stays and the vault is dirty. A vault with nothing
// pending flushes trivially.
func (m *Manager) Flush(ctx context.Context, id uuid.UUID) bool {
	v, ok := m.vaults.Load(id)
	if !ok {
		return true
	}
	st := v.(*State)

	st.flushMu.Lock()
	defer st.flushMu.Unlock()
	return m.flushLocked(ctx, st)
}

// flushLocked is Flush for a caller already holding st.flushMu.
func (m *Manager) flushLocked(ctx context.Context, st *State) bool {
	st.mu.Lock()
	if st.buffer.Empty() {
		st.dirty = false
		st.mu.Unlock()
		return true
	}
	snap := st.buffer.Snapshot()
	st.mu.Unlock()

	ctx, span := tracer.Start(ctx, "vault.flush")
	span.SetAttributes(
		attribute.String("vault.id", st.ID.String()),
		attribute.Int("vault.pending_slots", len(snap.Slots)+len(snap.Deletions)),
	)
	defer span.End()

	ok := m.persist(ctx, st, snap)

	st.mu.Lock()
	if ok {
		st.buffer.Ack(snap.Seq)
		st.dirty = !st.buffer.Empty()
	} else {
		st.dirty = true
	}
	st.mu.Unlock()

	if ok {
		flushesTotal.WithLabelValues("ok").Inc()
		m.log.Debug("flushed vault", "vault", st.ID, "slots", len(snap.Slots), "deletions", len(snap.Deletions), "balance", snap.Balance != nil)
	} else {
		flushesTotal.WithLabelValues("failed").Inc()
		span.SetStatus(codes.Error, "flush incomplete")
	}
	return ok
}

func (m *Manager) persist(ctx context.Context, st *State, snap Snapshot) bool {
	ok := true

	slots := make([]int, 0, len(snap.Slots))
	for slot := range snap.Slots {
		slots = append(slots, slot)
	}
	sort.Ints(slots)
	for _, slot := range slots {
		item := snap.Slots[slot]
		ok = m.saveWithRetry(ctx, st, "save_slot", func(ctx context.Context) error {
			return m.store.SaveSlot(ctx, st.ID, slot, item)
		}) && ok
	}

	sort.Ints(snap.Deletions)
	for _, slot := range snap.Deletions {
		ok = m.saveWithRetry(ctx, st, "delete_slot", func(ctx context.Context) error {
			return m.store.SaveSlot(ctx, st.ID, slot, nil)
		}) && ok
	}

	if snap.Balance != nil {
		balance := *snap.Balance
		ok = m.saveWithRetry(ctx, st, "save_balance", func(ctx context.Context) error {
			return m.store.SaveBalance(ctx, st.ID, balance)
		}) && ok
	}
	return ok
}

// FlushDue flushes every buffer the flush policy says is due and returns how
// many flushed successfully.
func (m *Manager) FlushDue(ctx context.Context) int {
	now := m.opts.Now()
	var due []uuid.UUID
	m.vaults.Range(func(k, v any) bool {
		st := v.(*State)
		st.mu.Lock()
		if st.buffer.Due(m.opts.Policy, now) {
			due = append(due, k.(uuid.UUID))
		}
		st.mu.Unlock()
		return true
	})

	flushed := 0
	for _, id := range due {
		if ctx.Err() != nil {
			break
		}
		if m.Flush(ctx, id) {
			flushed++
		}
	}
	return flushed
}

// ForceFlush flushes regardless of policy, used when the last viewer leaves.
func (m *Manager) ForceFlush(ctx context.Context, id uuid.UUID) bool {
	return m.Flush(ctx, id)
}

// ForceFlushAll flushes every cached vault. It reports false when any vault
// could not be flushed.
func (m *Manager) ForceFlushAll(ctx context.Context) bool {
	var ids []uuid.UUID
	m.vaults.Range(func(k, _ any) bool {
		ids = append(ids, k.(uuid.UUID))
		return true
	})
	ok := true
	for _, id := range ids {
		if !m.Flush(ctx, id) {
			ok = false
		}
	}
	return ok
}
