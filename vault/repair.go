package vault

import (
	"context"

	"github.com/BadgersMC/LumaGuilds-sub008/model"
	"github.com/google/uuid"
)

// ValidateAndRepair compares every slot of view with the cache, slot 0 with
// the rendered balance display, and overwrites mismatches from the cache.
// It returns the number of slots repaired. An error means the view is gone.
func (m *Manager) ValidateAndRepair(ctx context.Context, id uuid.UUID, view View) (int, error) {
	repaired := 0
	err := m.withState(ctx, id, func(st *State) error {
		display := m.opts.Display.Render(st.balance)
		size := min(view.Size(), m.opts.Capacity)
		for i := 0; i < size; i++ {
			want := st.slots[i]
			if i == DisplaySlot {
				want = display
			}
			got := view.Slot(i)
			if model.ItemsEqual(got, want) {
				continue
			}
			m.log.Warn("view out of sync with cache, repairing", "vault", id, "slot", i,
				"view", describe(got), "cache", describe(want))
			desyncsTotal.Inc()
			if err := view.SetSlot(i, want.Clone()); err != nil {
				return err
			}
			repaired++
		}
		return nil
	})
	return repaired, err
}

// EnsureBalanceDisplay rewrites slot 0 of view when it is missing or shows a
// stale balance. Reports whether it wrote.
func (m *Manager) EnsureBalanceDisplay(ctx context.Context, id uuid.UUID, view View) (bool, error) {
	wrote := false
	err := m.withState(ctx, id, func(st *State) error {
		want := m.opts.Display.Render(st.balance)
		if model.ItemsEqual(view.Slot(DisplaySlot), want) {
			return nil
		}
		wrote = true
		return view.SetSlot(DisplaySlot, want)
	})
	return wrote, err
}

// SyncViewToCache applies a viewer's grid to the cache. Slot 0 and slots
// already matching the cache are skipped; every other slot is written and
// pushed to the other viewers of the vault. Returns the number applied.
func (m *Manager) SyncViewToCache(ctx context.Context, id uuid.UUID, view View, actor *uuid.UUID) (int, error) {
	var changes []slotChange
	err := m.withState(ctx, id, func(st *State) error {
		size := min(view.Size(), m.opts.Capacity)
		for i := DisplaySlot + 1; i < size; i++ {
			item := view.Slot(i)
			if model.ItemsEqual(item, st.slots[i]) {
				continue
			}
			if err := validItem(item); err != nil {
				m.log.Warn("skipping invalid item from view", "vault", id, "slot", i, "err", err)
				continue
			}
			prev := m.writeLocked(st, i, item)
			m.broadcastSlotLocked(st, i, item, actor)
			changes = append(changes, slotChange{slot: i, item: item, prev: prev})
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	for _, c := range changes {
		m.auditSlot(ctx, id, actor, c)
	}
	return len(changes), nil
}

func describe(item *model.ItemStack) string {
	if item == nil {
		return "empty"
	}
	return item.Material
}
