package vault

import (
	"context"
	"fmt"

	"github.com/BadgersMC/LumaGuilds-sub008/model"
	"github.com/google/uuid"
)

// async runs fn on its own goroutine and delivers its single result.
func async(fn func() error) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()
	return done
}

// Refresh flushes the vault, reloads it from storage and pushes the result to
// its viewers. Changes made while the reload was in flight are kept.
func (m *Manager) Refresh(ctx context.Context, id uuid.UUID) <-chan error {
	return async(func() error {
		for {
			st, err := m.GetOrLoad(ctx, id)
			if err != nil {
				return err
			}
			dead, evicted, err := m.reload(ctx, st)
			m.dropSessions(ctx, dead)
			if !evicted {
				return err
			}
		}
	})
}

// reload holds st.flushMu from the flush through the swap, so no flush can
// acknowledge a write between the storage read and the swap. Writes that land
// meanwhile stay in the buffer and are replayed over the reloaded contents.
// Reports evicted when st left the cache before the swap.
func (m *Manager) reload(ctx context.Context, st *State) (dead []*Session, evicted bool, err error) {
	st.flushMu.Lock()
	defer st.flushMu.Unlock()

	if !m.flushLocked(ctx, st) {
		return nil, false, fmt.Errorf("refresh vault %s: %w", st.ID, ErrFlushFailed)
	}
	slots, balance, err := m.loadContents(ctx, st.ID)
	if err != nil {
		return nil, false, fmt.Errorf("refresh vault %s: %w", st.ID, err)
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.evicted {
		return nil, true, nil
	}
	st.buffer.apply(slots, &balance)
	st.slots = slots
	st.balance = balance
	st.lastAccess = m.opts.Now()
	m.pushAllLocked(st)
	return st.takeDead(), false, nil
}

// Clear wipes the vault from storage, then empties the cache and the pending
// buffer and pushes the empty grid to viewers.
func (m *Manager) Clear(ctx context.Context, id uuid.UUID) <-chan error {
	return async(func() error {
		st, err := m.GetOrLoad(ctx, id)
		if err != nil {
			return err
		}
		dead, err := m.clear(ctx, st)
		// dropping the last viewer flushes, which needs flushMu released
		m.dropSessions(ctx, dead)
		if err != nil {
			return err
		}
		m.log.Info("vault cleared", "vault", id)
		return nil
	})
}

func (m *Manager) clear(ctx context.Context, st *State) ([]*Session, error) {
	st.flushMu.Lock()
	defer st.flushMu.Unlock()

	ok := m.saveWithRetry(ctx, st, "clear_vault", func(ctx context.Context) error {
		return m.store.ClearVault(ctx, st.ID)
	})
	if !ok {
		return nil, fmt.Errorf("clear vault %s: %w", st.ID, ErrFlushFailed)
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	st.slots = make(map[int]*model.ItemStack)
	st.balance = 0
	st.buffer.Clear()
	st.dirty = false
	m.pushAllLocked(st)
	return st.takeDead(), nil
}
