package vault

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Evict flushes the vault and drops it from memory. Only a clean vault with
// no viewers is evicted; the next access reloads it from storage.
func (m *Manager) Evict(ctx context.Context, id uuid.UUID) bool {
	v, ok := m.vaults.Load(id)
	if !ok {
		return false
	}
	st := v.(*State)
	if !m.Flush(ctx, id) {
		return false
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.evicted || len(st.viewers) > 0 || st.dirty || !st.buffer.Empty() {
		return false
	}
	st.evicted = true
	if m.vaults.CompareAndDelete(id, st) {
		cachedVaultsGauge.Dec()
	}
	m.log.Debug("evicted vault", "vault", id)
	return true
}

// EvictIdle evicts clean, viewer-less vaults not accessed for idleFor and
// returns how many it dropped.
func (m *Manager) EvictIdle(ctx context.Context, idleFor time.Duration) int {
	now := m.opts.Now()
	var candidates []uuid.UUID
	m.vaults.Range(func(k, v any) bool {
		st := v.(*State)
		st.mu.Lock()
		if len(st.viewers) == 0 && now.Sub(st.lastAccess) > idleFor {
			candidates = append(candidates, k.(uuid.UUID))
		}
		st.mu.Unlock()
		return true
	})

	evicted := 0
	for _, id := range candidates {
		if m.Evict(ctx, id) {
			evicted++
		}
	}
	if evicted > 0 {
		m.log.Info("evicted idle vaults", "count", evicted)
	}
	return evicted
}
