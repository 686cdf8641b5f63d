// Package workspace manages secondary interaction surfaces (forms, panels)
// opened next to the chart. A launched workspace yields a Handle the owning
// form uses to report unsaved changes and to close itself.
package workspace

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// ErrUnsavedChanges is returned by RequestClose when the workspace's dirty
// check reports unsaved edits; the host should prompt before forcing Close.
var ErrUnsavedChanges = errors.New("workspace has unsaved changes")

// Launcher tracks the currently open workspaces by name.
type Launcher struct {
	mu   sync.Mutex
	open map[string]*Handle
	log  zerolog.Logger
}

func NewLauncher(logger zerolog.Logger) *Launcher {
	return &Launcher{open: make(map[string]*Handle), log: logger}
}

// Launch opens the named workspace with the given context values and returns
// its handle. Launching a name that is already open replaces the previous
// surface, closing it first.
func (l *Launcher) Launch(name string, wsctx map[string]interface{}) *Handle {
	l.mu.Lock()
	if prev, ok := l.open[name]; ok {
		prev.closeLocked()
	}
	h := &Handle{launcher: l, name: name, ctx: wsctx, open: true}
	l.open[name] = h
	l.mu.Unlock()

	l.log.Debug().Str("workspace", name).Msg("workspace launched")
	return h
}

// Open returns the handle for the named workspace, if it is open.
func (l *Launcher) Open(name string) (*Handle, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	h, ok := l.open[name]
	return h, ok
}

// OpenCount returns the number of open workspaces.
func (l *Launcher) OpenCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.open)
}

func (l *Launcher) remove(name string, h *Handle) {
	l.mu.Lock()
	if cur, ok := l.open[name]; ok && cur == h {
		delete(l.open, name)
	}
	l.mu.Unlock()
}

// Handle is the owning form's view of one open workspace.
type Handle struct {
	launcher *Launcher
	name     string
	ctx      map[string]interface{}

	mu    sync.Mutex
	open  bool
	dirty func() bool
}

func (h *Handle) Name() string { return h.name }

// Context returns the values the workspace was launched with.
func (h *Handle) Context() map[string]interface{} { return h.ctx }

func (h *Handle) IsOpen() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.open
}

// SetDirty registers the unsaved-changes check consulted by RequestClose.
func (h *Handle) SetDirty(fn func() bool) {
	h.mu.Lock()
	h.dirty = fn
	h.mu.Unlock()
}

// RequestClose closes the workspace unless its dirty check reports unsaved
// changes, in which case ErrUnsavedChanges is returned and it stays open.
func (h *Handle) RequestClose() error {
	h.mu.Lock()
	if h.open && h.dirty != nil && h.dirty() {
		h.mu.Unlock()
		return ErrUnsavedChanges
	}
	closed := h.closeInner()
	h.mu.Unlock()
	if closed && h.launcher != nil {
		h.launcher.remove(h.name, h)
	}
	return nil
}

// Close closes the workspace unconditionally. Closing twice is a no-op.
func (h *Handle) Close() {
	h.mu.Lock()
	closed := h.closeInner()
	h.mu.Unlock()
	if closed && h.launcher != nil {
		h.launcher.remove(h.name, h)
	}
}

// closeInner flips the open flag while h.mu is held and reports whether this
// call performed the close. Launcher removal happens outside the handle lock
// to keep lock ordering one-way (launcher before handle).
func (h *Handle) closeInner() bool {
	if !h.open {
		return false
	}
	h.open = false
	return true
}

// closeLocked is used by Launch while holding the launcher lock; it must not
// call back into launcher.remove.
func (h *Handle) closeLocked() {
	h.mu.Lock()
	h.open = false
	h.mu.Unlock()
}
