package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing/fstest"
	"time"
)

// DirMounter mounts a host directory as the card.
type DirMounter struct {
	Root string
}

// Mount implements Mounter.
func (m DirMounter) Mount() (*Volume, error) {
	info, err := os.Stat(m.Root)
	if err != nil {
		return nil, fmt.Errorf("mount %s: %w", m.Root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("mount %s: not a directory", m.Root)
	}
	root := m.Root
	write := func(name string, data []byte) error {
		p := filepath.Join(root, filepath.FromSlash(name))
		f, err := os.OpenFile(p, os.O_WRONLY|os.O_TRUNC, 0)
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", name, ErrNotExist)
		}
		if err != nil {
			return err
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}
	return NewVolume(os.DirFS(root), write), nil
}

// MemMounter is an in-memory card. Files written through its volumes are
// visible to later mounts.
type MemMounter struct {
	mu    sync.Mutex
	files fstest.MapFS
	// Fail makes Mount return this error when set.
	Fail error
}

// NewMemMounter returns a card holding files, keyed by slash path.
func NewMemMounter(files map[string][]byte) *MemMounter {
	m := &MemMounter{files: fstest.MapFS{}}
	for name, data := range files {
		m.files[name] = &fstest.MapFile{Data: data, Mode: 0o644, ModTime: time.Unix(0, 0)}
	}
	return m
}

// File returns the current content of name.
func (m *MemMounter) File(name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[name]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), f.Data...), true
}

// Mount implements Mounter.
func (m *MemMounter) Mount() (*Volume, error) {
	if m.Fail != nil {
		return nil, m.Fail
	}
	write := func(name string, data []byte) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		f, ok := m.files[name]
		if !ok {
			return fmt.Errorf("%s: %w", name, ErrNotExist)
		}
		f.Data = append([]byte(nil), data...)
		return nil
	}
	return NewVolume(m.files, write), nil
}

var (
	_ Mounter = DirMounter{}
	_ Mounter = (*MemMounter)(nil)
)
