package gateways

import (
	"fmt"
	"os"
	"sync"

	"github.com/ochairo/releaser/internal/domain/interfaces"
)

// TempWorkspace hands out temporary directories under a base directory.
// Each directory is removed when its release function runs; Close removes
// any the callers forgot.
type TempWorkspace struct {
	base   string
	logger interfaces.Logger

	mu   sync.Mutex
	live map[string]struct{}
}

// NewTempWorkspace creates a workspace rooted at base (os.TempDir() when empty).
func NewTempWorkspace(base string, logger interfaces.Logger) *TempWorkspace {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &TempWorkspace{base: base, logger: logger, live: make(map[string]struct{})}
}

// Acquire creates a fresh directory. release is idempotent.
func (w *TempWorkspace) Acquire(prefix string) (string, func(), error) {
	dir, err := os.MkdirTemp(w.base, prefix+"-*")
	if err != nil {
		return "", func() {}, fmt.Errorf("failed to create temp dir: %w", err)
	}

	w.mu.Lock()
	w.live[dir] = struct{}{}
	w.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() { w.remove(dir) })
	}
	return dir, release, nil
}

func (w *TempWorkspace) remove(dir string) {
	w.mu.Lock()
	delete(w.live, dir)
	w.mu.Unlock()

	if err := os.RemoveAll(dir); err != nil {
		w.logger.Warn("Failed to remove temp dir", interfaces.F("dir", dir), interfaces.F("error", err))
	}
}

// Live returns the number of directories not yet released.
func (w *TempWorkspace) Live() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.live)
}

// Close releases every directory still held.
func (w *TempWorkspace) Close() {
	w.mu.Lock()
	dirs := make([]string, 0, len(w.live))
	for d := range w.live {
		dirs = append(dirs, d)
	}
	w.mu.Unlock()

	for _, d := range dirs {
		w.remove(d)
	}
}
