package vault

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// RegisterViewer attaches a view to a vault, loading the vault if needed. A
// viewer has at most one session; an existing one is replaced.
func (m *Manager) RegisterViewer(ctx context.Context, vaultID, viewerID uuid.UUID, view View) (*Session, error) {
	if old, ok := m.sessions.Load(viewerID); ok && old.(*Session).VaultID != vaultID {
		m.UnregisterViewer(ctx, viewerID)
	}

	var session *Session
	err := m.withState(ctx, vaultID, func(st *State) error {
		session = newSession(viewerID, vaultID, view, m.opts.Now())
		st.viewers[viewerID] = session
		if _, replaced := m.sessions.Swap(viewerID, session); !replaced {
			activeViewersGauge.Inc()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.log.Debug("viewer registered", "vault", vaultID, "viewer", viewerID)
	return session, nil
}

// UnregisterViewer removes the viewer's session. When it was the last viewer
// of its vault the vault is force-flushed. Reports whether a session existed.
func (m *Manager) UnregisterViewer(ctx context.Context, viewerID uuid.UUID) bool {
	v, ok := m.sessions.LoadAndDelete(viewerID)
	if !ok {
		return false
	}
	s := v.(*Session)

	remaining := -1
	if sv, ok := m.vaults.Load(s.VaultID); ok {
		st := sv.(*State)
		st.mu.Lock()
		if cur, ok := st.viewers[viewerID]; ok && cur == s {
			delete(st.viewers, viewerID)
		}
		remaining = len(st.viewers)
		st.mu.Unlock()
	}
	activeViewersGauge.Dec()
	m.log.Debug("viewer unregistered", "vault", s.VaultID, "viewer", viewerID, "remaining", remaining)

	if remaining == 0 && !m.ForceFlush(ctx, s.VaultID) {
		m.log.Warn("flush after last viewer left failed, will retry on next sweep", "vault", s.VaultID)
	}
	return true
}

// dropSessions unregisters sessions whose view failed during a broadcast.
// They were already removed from the vault's viewer set under its lock.
func (m *Manager) dropSessions(ctx context.Context, dead []*Session) {
	for _, s := range dead {
		if cur, ok := m.sessions.Load(s.ViewerID); ok && cur == s {
			m.UnregisterViewer(ctx, s.ViewerID)
		}
	}
}

func (m *Manager) ViewersOf(vaultID uuid.UUID) []*Session {
	v, ok := m.vaults.Load(vaultID)
	if !ok {
		return nil
	}
	st := v.(*State)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.viewerList()
}

func (m *Manager) IsViewing(viewerID uuid.UUID) bool {
	_, ok := m.sessions.Load(viewerID)
	return ok
}

func (m *Manager) Session(viewerID uuid.UUID) (*Session, bool) {
	v, ok := m.sessions.Load(viewerID)
	if !ok {
		return nil, false
	}
	return v.(*Session), true
}

// Touch records activity for the viewer so idle reclamation skips it.
func (m *Manager) Touch(viewerID uuid.UUID) {
	if s, ok := m.Session(viewerID); ok {
		s.touch(m.opts.Now())
	}
}

// DisconnectViewer unregisters the viewer and closes its view when the view
// supports it.
func (m *Manager) DisconnectViewer(ctx context.Context, viewerID uuid.UUID) bool {
	s, ok := m.Session(viewerID)
	if !ok {
		return false
	}
	existed := m.UnregisterViewer(ctx, viewerID)
	if c, ok := s.View.(io.Closer); ok {
		if err := c.Close(); err != nil {
			m.log.Debug("closing view failed", "viewer", viewerID, "err", err)
		}
	}
	return existed
}

// ReclaimIdle disconnects every session idle for longer than threshold and
// returns how many it closed.
func (m *Manager) ReclaimIdle(ctx context.Context, threshold time.Duration) int {
	now := m.opts.Now()
	var idle []uuid.UUID
	m.sessions.Range(func(k, v any) bool {
		if now.Sub(v.(*Session).LastInteraction()) > threshold {
			idle = append(idle, k.(uuid.UUID))
		}
		return true
	})

	closed := 0
	for _, viewerID := range idle {
		if m.DisconnectViewer(ctx, viewerID) {
			closed++
		}
	}
	if closed > 0 {
		m.log.Info("reclaimed idle viewer sessions", "count", closed)
	}
	return closed
}
