package vault

import (
	"context"

	"github.com/BadgersMC/LumaGuilds-sub008/model"
	"github.com/google/uuid"
)

// pushLocked sets one slot on a session's view. A failing view is queued for
// removal; st.mu must be held.
func (m *Manager) pushLocked(st *State, s *Session, slot int, item *model.ItemStack, kind string) {
	if s.View == nil || slot < 0 || slot >= s.View.Size() {
		return
	}
	if err := s.View.SetSlot(slot, item.Clone()); err != nil {
		m.log.Debug("view rejected update, dropping session", "vault", st.ID, "viewer", s.ViewerID, "err", err)
		delete(st.viewers, s.ViewerID)
		st.dead = append(st.dead, s)
		return
	}
	broadcastsTotal.WithLabelValues(kind).Inc()
}

func (m *Manager) broadcastSlotLocked(st *State, slot int, item *model.ItemStack, exclude *uuid.UUID) {
	for _, s := range st.viewerList() {
		if exclude != nil && s.ViewerID == *exclude {
			continue
		}
		m.pushLocked(st, s, slot, item, "slot")
	}
}

func (m *Manager) broadcastBalanceLocked(st *State) {
	display := m.opts.Display.Render(st.balance)
	for _, s := range st.viewerList() {
		m.pushLocked(st, s, DisplaySlot, display, "balance")
	}
}

// pushAllLocked rewrites every slot of every view from the cache.
func (m *Manager) pushAllLocked(st *State) {
	display := m.opts.Display.Render(st.balance)
	for _, s := range st.viewerList() {
		if s.View == nil {
			continue
		}
		size := min(s.View.Size(), m.opts.Capacity)
		for i := 0; i < size; i++ {
			item := st.slots[i]
			if i == DisplaySlot {
				item = display
			}
			if model.ItemsEqual(s.View.Slot(i), item) {
				continue
			}
			m.pushLocked(st, s, i, item, "refresh")
			if _, alive := st.viewers[s.ViewerID]; !alive {
				break
			}
		}
	}
}

// BroadcastSlotChange pushes item into slot of every viewer of the vault
// except exclude. Vaults that are not cached have no viewers, and a slot
// outside the vault is ignored.
func (m *Manager) BroadcastSlotChange(ctx context.Context, id uuid.UUID, slot int, item *model.ItemStack, exclude *uuid.UUID) {
	if m.checkSlot(slot) != nil {
		m.log.Debug("ignoring broadcast for slot outside vault", "vault", id, "slot", slot)
		return
	}
	m.withCached(ctx, id, func(st *State) {
		m.broadcastSlotLocked(st, slot, item, exclude)
	})
}

// BroadcastBalanceChange renders the display for balance and pushes it to
// slot 0 of every viewer.
func (m *Manager) BroadcastBalanceChange(ctx context.Context, id uuid.UUID, balance int64) {
	m.withCached(ctx, id, func(st *State) {
		display := m.opts.Display.Render(balance)
		for _, s := range st.viewerList() {
			m.pushLocked(st, s, DisplaySlot, display, "balance")
		}
	})
}

// withCached is withState without the load: a vault that is not in memory is skipped.
func (m *Manager) withCached(ctx context.Context, id uuid.UUID, fn func(st *State)) {
	v, ok := m.vaults.Load(id)
	if !ok {
		return
	}
	st := v.(*State)
	st.mu.Lock()
	if st.evicted {
		st.mu.Unlock()
		return
	}
	fn(st)
	dead := st.takeDead()
	st.mu.Unlock()
	m.dropSessions(ctx, dead)
}
