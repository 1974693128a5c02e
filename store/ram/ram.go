package ram

import (
	"sync"

	"github.com/BadgersMC/LumaGuilds-sub008/model"
	"github.com/google/uuid"
)

type vaultData struct {
	slots   map[int]model.ItemStack
	balance int64
}

type RamStore struct {
	mu sync.RWMutex

	vaults       map[uuid.UUID]*vaultData
	transactions []model.Transaction // append order, oldest first
}

// NewRamStore returns a new empty in-memory store
func NewRamStore() *RamStore {
	return &RamStore{
		vaults: make(map[uuid.UUID]*vaultData),
	}
}

// vault must be called with mu held for writing.
func (r *RamStore) vault(id uuid.UUID) *vaultData {
	v, ok := r.vaults[id]
	if !ok {
		v = &vaultData{slots: make(map[int]model.ItemStack)}
		r.vaults[id] = v
	}
	return v
}
