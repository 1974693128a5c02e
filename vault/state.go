package vault

import (
	"maps"
	"sync"
	"time"

	"github.com/BadgersMC/LumaGuilds-sub008/model"
	"github.com/google/uuid"
)

// State is the authoritative in-memory copy of one vault. mu guards every
// field below it, including the vault's Buffer; flushMu serializes durable
// writes of this vault and is never taken while mu is held.
type State struct {
	ID uuid.UUID

	flushMu sync.Mutex

	mu         sync.Mutex
	slots      map[int]*model.ItemStack
	balance    int64
	dirty      bool
	evicted    bool
	buffer     *Buffer
	viewers    map[uuid.UUID]*Session
	lastAccess time.Time

	// sessions whose view failed during a broadcast; dropped after unlock
	dead []*Session
}

func newState(id uuid.UUID, slots map[int]*model.ItemStack, balance int64, buffer *Buffer, now time.Time) *State {
	return &State{
		ID:         id,
		slots:      slots,
		balance:    balance,
		buffer:     buffer,
		viewers:    make(map[uuid.UUID]*Session),
		lastAccess: now,
	}
}

func (s *State) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

func (s *State) Evicted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evicted
}

func (s *State) ViewerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.viewers)
}

func (s *State) Balance() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance
}

// Slots is a deep copy of the user slots, without the display.
func (s *State) Slots() map[int]*model.ItemStack {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneSlots(s.slots)
}

func (s *State) takeDead() []*Session {
	dead := s.dead
	s.dead = nil
	return dead
}

func (s *State) viewerList() []*Session {
	out := make([]*Session, 0, len(s.viewers))
	for _, v := range s.viewers {
		out = append(out, v)
	}
	return out
}

func cloneSlots(in map[int]*model.ItemStack) map[int]*model.ItemStack {
	out := maps.Clone(in)
	for k, v := range out {
		out[k] = v.Clone()
	}
	return out
}
