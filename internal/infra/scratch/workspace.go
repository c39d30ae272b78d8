package scratch

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/xid"

	"ocr2docx/internal/infra/logging"
)

// Workspace is the scratch root under which every request gets its own
// directory.
type Workspace struct {
	root string
}

// New returns a Workspace rooted at dir. The directory is created lazily.
func New(dir string) *Workspace {
	return &Workspace{root: dir}
}

// Root returns the scratch root directory.
func (w *Workspace) Root() string { return w.root }

// RequestDir is a directory owned by exactly one request.
type RequestDir struct {
	ID   string
	Path string
}

// Open creates a fresh, uniquely named request directory, creating the root
// if it is missing.
func (w *Workspace) Open() (*RequestDir, error) {
	id := xid.New().String()
	p := filepath.Join(w.root, id)
	if err := os.MkdirAll(p, 0o755); err != nil {
		return nil, fmt.Errorf("create request dir: %w", err)
	}
	return &RequestDir{ID: id, Path: p}, nil
}

// Join returns the path of name inside the request directory.
func (d *RequestDir) Join(name string) string {
	return filepath.Join(d.Path, filepath.Base(name))
}

// Remove deletes the request directory and everything in it. Missing
// directories are not an error.
func (d *RequestDir) Remove() error {
	if d == nil {
		return nil
	}
	return os.RemoveAll(d.Path)
}

// Sweep removes entries of the scratch root last modified before now minus
// retention. It returns the number of removed entries.
func (w *Workspace) Sweep(now time.Time, retention time.Duration) (int, error) {
	entries, err := os.ReadDir(w.root)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	cutoff := now.Add(-retention)
	removed := 0
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(w.root, e.Name())); err != nil {
			logging.Warn("Scratch sweep failed to remove entry", "name", e.Name(), "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}

// SweepPeriodically runs Sweep at the given interval until stop is closed.
func (w *Workspace) SweepPeriodically(interval, retention time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			n, err := w.Sweep(time.Now(), retention)
			if err != nil {
				logging.Error("Scratch sweep failed", "dir", w.root, "error", err)
				continue
			}
			if n > 0 {
				logging.Info("Scratch sweep removed stale entries", "dir", w.root, "removed", n)
			}
		case <-stop:
			return
		}
	}
}
