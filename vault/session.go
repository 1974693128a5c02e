package vault

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Session is one viewer looking at one vault.
type Session struct {
	ViewerID uuid.UUID
	VaultID  uuid.UUID
	View     View

	lastInteraction atomic.Int64
}

func newSession(viewerID, vaultID uuid.UUID, view View, now time.Time) *Session {
	s := &Session{ViewerID: viewerID, VaultID: vaultID, View: view}
	s.touch(now)
	return s
}

func (s *Session) touch(now time.Time) {
	s.lastInteraction.Store(now.UnixNano())
}

func (s *Session) LastInteraction() time.Time {
	return time.Unix(0, s.lastInteraction.Load())
}
