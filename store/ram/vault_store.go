package ram

import (
	"context"

	"github.com/BadgersMC/LumaGuilds-sub008/model"
	"github.com/BadgersMC/LumaGuilds-sub008/store/store_interface"
	"github.com/google/uuid"
)

func (r *RamStore) LoadSlots(_ context.Context, vaultID uuid.UUID) (map[int]model.ItemStack, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[int]model.ItemStack)
	v, ok := r.vaults[vaultID]
	if !ok {
		return out, nil
	}
	for slot, item := range v.slots {
		out[slot] = *item.Clone()
	}
	return out, nil
}

func (r *RamStore) LoadBalance(_ context.Context, vaultID uuid.UUID) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if v, ok := r.vaults[vaultID]; ok {
		return v.balance, nil
	}
	return 0, nil
}

func (r *RamStore) SaveSlot(_ context.Context, vaultID uuid.UUID, slot int, item *model.ItemStack) error {
	if slot < 0 {
		return store_interface.ErrInvalidSlot
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	v := r.vault(vaultID)
	if item == nil {
		delete(v.slots, slot)
		return nil
	}
	v.slots[slot] = *item.Clone()
	return nil
}

func (r *RamStore) SaveBalance(_ context.Context, vaultID uuid.UUID, balance int64) error {
	if balance < 0 {
		return store_interface.ErrNegativeBalance
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.vault(vaultID).balance = balance
	return nil
}

func (r *RamStore) ClearVault(_ context.Context, vaultID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.vaults, vaultID)
	return nil
}

func (r *RamStore) VaultIDs(_ context.Context) ([]uuid.UUID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]uuid.UUID, 0, len(r.vaults))
	for id := range r.vaults {
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *RamStore) VaultClose() error {
	return nil // nothing to close in memory
}
