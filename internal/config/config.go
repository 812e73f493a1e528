package config

import (
	"maps"
	"slices"
	"sort"

	"github.com/dshills/keymarks/internal/host"
	"github.com/dshills/keymarks/internal/mark"
)

// Reserved top-level configuration keys.
const (
	KeySettings = "settings"
	KeyDefault  = "default"
)

// DefaultListName is the list used when none is named.
const DefaultListName = "__default"

// Function slot types.
type (
	// KeyFunc returns the namespace key for persisted state.
	KeyFunc func() string

	// EncodeFunc serializes an item to text.
	EncodeFunc func(item *mark.Item) (string, error)

	// DecodeFunc parses text produced by an EncodeFunc.
	DecodeFunc func(s string) (*mark.Item, error)

	// DisplayFunc returns the text shown for an item.
	DisplayFunc func(item *mark.Item) string

	// SelectFunc navigates to an item.
	SelectFunc func(item *mark.Item, list *mark.List, opts mark.SelectOptions) error

	// EqualsFunc reports whether two items denote the same mark.
	EqualsFunc func(a, b *mark.Item) bool

	// RootDirFunc returns the project root.
	RootDirFunc func() string

	// CreateItemFunc builds an item for name, or for the current buffer
	// when name is empty.
	CreateItemFunc func(cfg *ListConfig, name string) (*mark.Item, error)

	// HookFunc handles a lifecycle event for a list.
	HookFunc func(arg HookArg, list *mark.List) error
)

// HookArg is passed to lifecycle hooks.
type HookArg struct {
	// Event is the lifecycle event name, e.g. "BufLeave".
	Event string

	// Buffer is the host buffer the event refers to.
	Buffer host.BufferID

	// Name is the buffer name as reported by the host. May be empty.
	Name string
}

// Settings holds global toggles.
type Settings struct {
	SaveOnToggle  bool
	SyncOnUIClose bool
	Key           KeyFunc
}

// Clone returns a copy of s.
func (s *Settings) Clone() *Settings {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// ListConfig is the complete behavior record of a list.
type ListConfig struct {
	SelectWithNil  bool
	Encode         EncodeFunc
	Decode         DecodeFunc
	Display        DisplayFunc
	Select         SelectFunc
	Equals         EqualsFunc
	GetRootDir     RootDirFunc
	CreateListItem CreateItemFunc

	// Autocmds names the lifecycle events the list subscribes to.
	Autocmds []string

	// Hooks maps lifecycle event names to handlers.
	Hooks map[string]HookFunc
}

// Clone returns a copy of c that shares function values but not the
// Autocmds slice or Hooks map.
func (c *ListConfig) Clone() *ListConfig {
	if c == nil {
		return nil
	}
	out := *c
	out.Autocmds = slices.Clone(c.Autocmds)
	out.Hooks = maps.Clone(c.Hooks)
	return &out
}

// Hook returns the handler for a lifecycle event.
func (c *ListConfig) Hook(event string) (HookFunc, bool) {
	h, ok := c.Hooks[event]
	return h, ok && h != nil
}

// Config is the complete configuration.
type Config struct {
	Settings *Settings
	Default  *ListConfig

	// Lists holds the overrides of named lists. Only the fields a user
	// set are present.
	Lists map[string]*ListPatch
}

// Clone returns a copy of c that can be merged into without affecting c.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	out := &Config{
		Settings: c.Settings.Clone(),
		Default:  c.Default.Clone(),
		Lists:    make(map[string]*ListPatch, len(c.Lists)),
	}
	for name, p := range c.Lists {
		out.Lists[name] = p.Clone()
	}
	return out
}

// ListConfig resolves the effective configuration of a named list: a copy
// of Default with the list's override applied. The default list name and
// the reserved "default" key resolve to Default itself.
func (c *Config) ListConfig(name string) *ListConfig {
	base := c.Default.Clone()
	if base == nil {
		base = &ListConfig{}
	}
	if name == DefaultListName || name == KeyDefault {
		return base
	}
	if p, ok := c.Lists[name]; ok {
		p.Apply(base)
	}
	return base
}

// Key returns the project key from Settings, or "" when unset.
func (c *Config) Key() string {
	if c.Settings == nil || c.Settings.Key == nil {
		return ""
	}
	return c.Settings.Key()
}

// ListNames returns the names of lists with overrides, sorted.
func (c *Config) ListNames() []string {
	var names []string
	for name := range c.Lists {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
