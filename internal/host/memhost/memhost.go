// Package memhost provides an in-memory host.Host.
//
// It backs the command line tool, where there is no editor process, and the
// tests of every package that needs a host session.
package memhost

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/dshills/keymarks/internal/event"
	"github.com/dshills/keymarks/internal/event/events"
	"github.com/dshills/keymarks/internal/host"
	"github.com/dshills/keymarks/internal/logging"
)

type buffer struct {
	id     host.BufferID
	name   string
	loaded bool
	listed bool
	cursor host.Position
}

// Host is an in-memory editor session.
type Host struct {
	mu sync.Mutex

	cwd     string
	buffers map[host.BufferID]*buffer
	byName  map[string]host.BufferID
	current host.BufferID

	windows int
	tabs    int
	splits  []host.SplitDirective

	events event.Publisher
	log    *logging.Logger
}

// Option configures a Host.
type Option func(*Host)

// WithEvents makes the host publish lifecycle events such as buffer leave.
func WithEvents(p event.Publisher) Option {
	return func(h *Host) {
		h.events = p
	}
}

// WithLogger sets the host logger.
func WithLogger(l *logging.Logger) Option {
	return func(h *Host) {
		h.log = logging.OrNop(l).WithComponent("memhost")
	}
}

// New creates a host rooted at cwd with one window and one tab.
func New(cwd string, opts ...Option) *Host {
	h := &Host{
		cwd:     cwd,
		buffers: make(map[host.BufferID]*buffer),
		byName:  make(map[string]host.BufferID),
		windows: 1,
		tabs:    1,
		log:     logging.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

var _ host.Host = (*Host)(nil)

// SetCwd changes the working directory.
func (h *Host) SetCwd(cwd string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cwd = cwd
}

// Cwd returns the working directory.
func (h *Host) Cwd() (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cwd, nil
}

// canonical resolves name against the working directory. The caller holds
// h.mu.
func (h *Host) canonical(name string) string {
	if !filepath.IsAbs(name) && h.cwd != "" {
		name = filepath.Join(h.cwd, name)
	}
	return filepath.Clean(name)
}

// FindBuffer looks up a buffer by name. Relative names resolve against the
// working directory, so "a.go" and "/proj/a.go" are the same buffer.
func (h *Host) FindBuffer(name string) (host.BufferID, bool) {
	if name == "" {
		return "", false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	id, ok := h.byName[h.canonical(name)]
	return id, ok
}

// CreateBuffer creates an unloaded, unlisted buffer named by the resolved
// path. Creating a name that already exists returns the existing buffer.
func (h *Host) CreateBuffer(name string) (host.BufferID, error) {
	if name == "" {
		return "", fmt.Errorf("create buffer: empty name")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	name = h.canonical(name)

	if id, ok := h.byName[name]; ok {
		return id, nil
	}
	id := host.BufferID(uuid.NewString())
	h.buffers[id] = &buffer{id: id, name: name, cursor: host.Position{Row: 1}}
	h.byName[name] = id
	return id, nil
}

// LoadBuffer marks the buffer loaded.
func (h *Host) LoadBuffer(id host.BufferID) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	b, ok := h.buffers[id]
	if !ok {
		return fmt.Errorf("load %s: %w", id, host.ErrBufferNotFound)
	}
	b.loaded = true
	return nil
}

// SetListed sets the buffer's listed flag.
func (h *Host) SetListed(id host.BufferID, listed bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	b, ok := h.buffers[id]
	if !ok {
		return fmt.Errorf("set listed %s: %w", id, host.ErrBufferNotFound)
	}
	b.listed = listed
	return nil
}

// Split records the directive and opens a window or tab.
func (h *Host) Split(d host.SplitDirective) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch d {
	case host.SplitNone:
		return nil
	case host.SplitVertical, host.SplitHorizontal:
		h.windows++
	case host.SplitTab:
		h.tabs++
		h.windows++
	default:
		return fmt.Errorf("unknown split directive %d", d)
	}
	h.splits = append(h.splits, d)
	return nil
}

// SetCurrentBuffer switches the current window to id. When another buffer
// was current, a buffer leave event is published for it first.
func (h *Host) SetCurrentBuffer(id host.BufferID) error {
	h.mu.Lock()
	if _, ok := h.buffers[id]; !ok {
		h.mu.Unlock()
		return fmt.Errorf("set current %s: %w", id, host.ErrBufferNotFound)
	}
	prev, hadPrev := h.buffers[h.current]
	h.mu.Unlock()

	if hadPrev && prev.id != id {
		h.publishLeave(prev.id, prev.name)
	}

	h.mu.Lock()
	h.current = id
	h.mu.Unlock()
	return nil
}

// publishLeave runs outside the lock so hooks may call back into the host.
func (h *Host) publishLeave(id host.BufferID, name string) {
	if h.events == nil {
		return
	}
	evt := event.NewEvent(events.TopicBufferLeave, events.BufferLeave{Buffer: id, Name: name}, "memhost")
	if err := h.events.Publish(context.Background(), evt); err != nil {
		h.log.Warn("buffer leave %s: %v", name, err)
	}
}

// CurrentBuffer returns the current buffer.
func (h *Host) CurrentBuffer() (host.BufferID, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.buffers[h.current]; !ok {
		return "", false
	}
	return h.current, true
}

// BufferName returns the buffer's resolved name or "" for unknown buffers.
func (h *Host) BufferName(id host.BufferID) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if b, ok := h.buffers[id]; ok {
		return b.name
	}
	return ""
}

// Cursor returns the cursor of the current buffer.
func (h *Host) Cursor() (host.Position, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	b, ok := h.buffers[h.current]
	if !ok {
		return host.Position{}, host.ErrNoCurrentBuffer
	}
	return b.cursor, nil
}

// SetCursor moves the cursor of the current buffer.
func (h *Host) SetCursor(pos host.Position) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	b, ok := h.buffers[h.current]
	if !ok {
		return host.ErrNoCurrentBuffer
	}
	if pos.Row < 1 {
		return fmt.Errorf("cursor row %d out of range", pos.Row)
	}
	if pos.Col < 0 {
		return fmt.Errorf("cursor col %d out of range", pos.Col)
	}
	b.cursor = pos
	return nil
}

// BufferCursor returns the cursor last recorded for id.
func (h *Host) BufferCursor(id host.BufferID) (host.Position, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	b, ok := h.buffers[id]
	if !ok {
		return host.Position{}, false
	}
	return b.cursor, true
}

// Open creates, loads, lists and shows a buffer, the way a user editing a
// file would.
func (h *Host) Open(name string) (host.BufferID, error) {
	id, err := h.CreateBuffer(name)
	if err != nil {
		return "", err
	}
	if err := h.LoadBuffer(id); err != nil {
		return "", err
	}
	if err := h.SetListed(id, true); err != nil {
		return "", err
	}
	if err := h.SetCurrentBuffer(id); err != nil {
		return "", err
	}
	return id, nil
}

// IsLoaded reports whether id is loaded.
func (h *Host) IsLoaded(id host.BufferID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	b, ok := h.buffers[id]
	return ok && b.loaded
}

// IsListed reports whether id is listed.
func (h *Host) IsListed(id host.BufferID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	b, ok := h.buffers[id]
	return ok && b.listed
}

// Windows returns the number of open windows.
func (h *Host) Windows() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.windows
}

// Tabs returns the number of open tabs.
func (h *Host) Tabs() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.tabs
}

// Splits returns every non-trivial split directive applied so far.
func (h *Host) Splits() []host.SplitDirective {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]host.SplitDirective(nil), h.splits...)
}

// BufferCount returns the number of buffers.
func (h *Host) BufferCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.buffers)
}
