package autosave

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

const MarkerName = ".vault_running"

// Marker is the file whose presence at startup means the previous process
// never shut down cleanly. Its modification time is the last heartbeat.
type Marker struct {
	fs   afero.Fs
	path string
}

func NewMarker(fsys afero.Fs, dataDir string) *Marker {
	return &Marker{fs: fsys, path: filepath.Join(dataDir, MarkerName)}
}

func (m *Marker) Path() string { return m.path }

// Stat reports whether the marker exists and when it was last touched.
func (m *Marker) Stat() (bool, time.Time, error) {
	info, err := m.fs.Stat(m.path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, time.Time{}, nil
	}
	if err != nil {
		return false, time.Time{}, err
	}
	return true, info.ModTime(), nil
}

func (m *Marker) Write(now time.Time) error {
	if err := m.fs.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	body := fmt.Sprintf("pid=%d\nstarted=%s\n", os.Getpid(), now.UTC().Format(time.RFC3339))
	if err := afero.WriteFile(m.fs, m.path, []byte(body), 0o644); err != nil {
		return err
	}
	return m.fs.Chtimes(m.path, now, now)
}

// Touch moves the heartbeat forward.
func (m *Marker) Touch(now time.Time) error {
	return m.fs.Chtimes(m.path, now, now)
}

func (m *Marker) Remove() error {
	err := m.fs.Remove(m.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
