// Package host defines the editor session capability that marks code runs
// against. Every buffer, window, cursor and working-directory access goes
// through Host so mark behaviors can be exercised without a live editor.
package host

import (
	"errors"
	"path/filepath"
	"strings"
)

// BufferID identifies a buffer within a host session.
type BufferID string

// Position is a cursor position. Row is 1-based, Col is 0-based.
type Position struct {
	Row int
	Col int
}

// SplitDirective tells the host how to open a window before showing a buffer.
type SplitDirective int

const (
	// SplitNone reuses the current window.
	SplitNone SplitDirective = iota
	// SplitVertical opens a vertical split.
	SplitVertical
	// SplitHorizontal opens a horizontal split.
	SplitHorizontal
	// SplitTab opens a new tab.
	SplitTab
)

// String returns the host command name for the directive.
func (d SplitDirective) String() string {
	switch d {
	case SplitVertical:
		return "vsplit"
	case SplitHorizontal:
		return "split"
	case SplitTab:
		return "tabedit"
	default:
		return "none"
	}
}

// Errors returned by Host implementations.
var (
	ErrBufferNotFound  = errors.New("buffer not found")
	ErrNoCurrentBuffer = errors.New("no current buffer")
)

// Host is the editor session.
type Host interface {
	// Cwd returns the session's working directory, the project root.
	Cwd() (string, error)

	// FindBuffer looks up a buffer by name without creating one. Relative
	// names resolve against Cwd.
	FindBuffer(name string) (BufferID, bool)

	// CreateBuffer creates an unloaded buffer for name.
	CreateBuffer(name string) (BufferID, error)

	// LoadBuffer ensures the buffer's content is loaded.
	LoadBuffer(id BufferID) error

	// SetListed marks the buffer as listed (visible in buffer lists).
	SetListed(id BufferID, listed bool) error

	// Split applies a window directive. SplitNone is a no-op.
	Split(d SplitDirective) error

	// SetCurrentBuffer makes id the buffer shown in the current window.
	SetCurrentBuffer(id BufferID) error

	// CurrentBuffer returns the buffer of the current window.
	CurrentBuffer() (BufferID, bool)

	// BufferName returns the name the buffer was created with.
	BufferName(id BufferID) string

	// Cursor returns the cursor of the current window.
	Cursor() (Position, error)

	// SetCursor moves the cursor of the current window.
	SetCursor(pos Position) error

	// BufferCursor returns the last known cursor position inside a buffer.
	BufferCursor(id BufferID) (Position, bool)
}

// NormalizePath returns name relative to root when name lives under root,
// and a cleaned name otherwise. Empty names stay empty.
func NormalizePath(name, root string) string {
	if name == "" {
		return ""
	}
	clean := filepath.Clean(name)
	if root == "" || !filepath.IsAbs(clean) {
		return filepath.ToSlash(clean)
	}

	rel, err := filepath.Rel(filepath.Clean(root), clean)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(clean)
	}
	return filepath.ToSlash(rel)
}
