package vault

import (
	"errors"
	"sync"

	"github.com/BadgersMC/LumaGuilds-sub008/model"
)

// View is a viewer's live handle on a vault grid. An error from SetSlot means
// the session behind it is gone.
type View interface {
	Size() int
	Slot(i int) *model.ItemStack
	SetSlot(i int, item *model.ItemStack) error
}

var ErrViewClosed = errors.New("view closed")

// GridView is an in-memory View. The websocket viewer embeds one to mirror
// what the remote client shows; tests use it directly.
type GridView struct {
	mu     sync.Mutex
	slots  []*model.ItemStack
	closed bool

	// OnSet, when set, is called after every accepted SetSlot.
	OnSet func(i int, item *model.ItemStack) error
}

func NewGridView(size int) *GridView {
	return &GridView{slots: make([]*model.ItemStack, size)}
}

func (g *GridView) Size() int {
	return len(g.slots)
}

func (g *GridView) Slot(i int) *model.ItemStack {
	g.mu.Lock()
	defer g.mu.Unlock()
	if i < 0 || i >= len(g.slots) {
		return nil
	}
	return g.slots[i].Clone()
}

func (g *GridView) SetSlot(i int, item *model.ItemStack) error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return ErrViewClosed
	}
	if i < 0 || i >= len(g.slots) {
		g.mu.Unlock()
		return ErrInvalidSlot
	}
	g.slots[i] = item.Clone()
	hook := g.OnSet
	g.mu.Unlock()

	if hook != nil {
		return hook(i, item)
	}
	return nil
}

// Put changes a slot locally without notifying OnSet, the way a client
// edits its own grid before syncing.
func (g *GridView) Put(i int, item *model.ItemStack) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if i >= 0 && i < len(g.slots) {
		g.slots[i] = item.Clone()
	}
}

func (g *GridView) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	return nil
}
