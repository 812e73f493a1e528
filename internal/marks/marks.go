// Package marks ties configuration, lists, persistence and lifecycle events
// into the plugin surface an editor integration drives.
package marks

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/dshills/keymarks/internal/config"
	"github.com/dshills/keymarks/internal/event"
	"github.com/dshills/keymarks/internal/event/events"
	"github.com/dshills/keymarks/internal/host"
	"github.com/dshills/keymarks/internal/logging"
	"github.com/dshills/keymarks/internal/mark"
	"github.com/dshills/keymarks/internal/store"
)

// ErrNoHost is returned by New without a host.
var ErrNoHost = errors.New("marks: host is required")

// Options configures New.
type Options struct {
	// Host is the editor session. Required.
	Host host.Host

	// Store persists lists. Nil keeps lists in memory only.
	Store *store.Store

	// Bus carries host and marks events. Nil creates a private bus.
	Bus event.Bus

	// Log receives diagnostics. Optional.
	Log *logging.Logger
}

// Marks is the plugin instance.
//
// Lists are not safe for concurrent mutation; drive a Marks from one
// goroutine, as an editor's main loop would.
type Marks struct {
	host  host.Host
	store *store.Store
	bus   event.Bus
	log   *logging.Logger

	builder *config.Builder

	mu    sync.Mutex
	cfg   *config.Config
	lists map[string]map[string]*mark.List // key -> list name -> list
	subs  []event.Subscription
}

// New creates a Marks with the default configuration.
func New(opts Options) (*Marks, error) {
	if opts.Host == nil {
		return nil, ErrNoHost
	}
	bus := opts.Bus
	if bus == nil {
		bus = event.NewBus(event.WithLogger(opts.Log))
	}
	log := logging.OrNop(opts.Log).WithComponent("marks")

	m := &Marks{
		host:  opts.Host,
		store: opts.Store,
		bus:   bus,
		log:   log,
		builder: config.NewBuilder(config.Env{
			Host:   opts.Host,
			Events: bus,
			Log:    opts.Log,
		}),
		lists: make(map[string]map[string]*mark.List),
	}
	m.cfg = m.builder.Default()

	if err := m.wireAutocmds(); err != nil {
		return nil, err
	}
	return m, nil
}

// Setup merges each partial, in order, into the configuration. Lists that
// are already loaded keep their items and pick up the new behaviors.
func (m *Marks) Setup(partials ...*config.Partial) (*config.Config, error) {
	m.mu.Lock()
	for _, p := range partials {
		m.cfg = m.builder.Merge(p, m.cfg)
	}
	for _, byName := range m.lists {
		for name, list := range byName {
			byName[name] = mark.NewList(name, m.cfg.ListConfig(name).Behavior(), list.Items()...)
		}
	}
	cfg := m.cfg
	m.mu.Unlock()

	if err := m.wireAutocmds(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Config returns the live configuration.
func (m *Marks) Config() *config.Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// Bus returns the event bus.
func (m *Marks) Bus() event.Bus {
	return m.bus
}

// Key returns the current project key.
func (m *Marks) Key() string {
	return m.Config().Key()
}

// List returns the named list of the current project, loading it from the
// store on first use. An empty name is the default list.
func (m *Marks) List(name string) (*mark.List, error) {
	if name == "" {
		name = config.DefaultListName
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := m.cfg.Key()
	if list, ok := m.lists[key][name]; ok {
		return list, nil
	}

	var encoded []string
	if m.store != nil && key != "" {
		var err error
		encoded, err = m.store.Load(key, name)
		if err != nil {
			return nil, fmt.Errorf("load list %s: %w", name, err)
		}
	}

	list, err := mark.Decode(name, m.cfg.ListConfig(name).Behavior(), encoded)
	if err != nil {
		return nil, fmt.Errorf("decode list %s: %w", name, err)
	}

	if m.lists[key] == nil {
		m.lists[key] = make(map[string]*mark.List)
	}
	m.lists[key][name] = list
	m.log.Debug("loaded list %s (%d items) for %s", name, list.Len(), key)
	return list, nil
}

// Loaded returns the lists of the current project loaded so far, by name.
func (m *Marks) Loaded() []*mark.List {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadedLocked()
}

func (m *Marks) loadedLocked() []*mark.List {
	byName := m.lists[m.cfg.Key()]
	out := make([]*mark.List, 0, len(byName))
	for _, l := range byName {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Reload forgets the loaded lists of the current project so the next List
// call reads them from the store again.
func (m *Marks) Reload() {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.lists, m.cfg.Key())
}

// Add appends item, or the current buffer when item is nil, to the named
// list.
func (m *Marks) Add(name string, item *mark.Item) (*mark.Item, error) {
	return m.insert(name, item, (*mark.List).Add)
}

// Prepend inserts item, or the current buffer when item is nil, at the
// front of the named list.
func (m *Marks) Prepend(name string, item *mark.Item) (*mark.Item, error) {
	return m.insert(name, item, (*mark.List).Prepend)
}

func (m *Marks) insert(name string, item *mark.Item, op func(*mark.List, *mark.Item) (int, bool, error)) (*mark.Item, error) {
	list, err := m.List(name)
	if err != nil {
		return nil, err
	}
	i, added, err := op(list, item)
	if err != nil {
		return nil, err
	}
	got := list.Get(i)
	if added {
		m.publishChange(list.Name(), events.ListItemAdded, got.Value, i)
	}
	return got, nil
}

// Remove deletes item, or the current buffer when item is nil, from the
// named list. It reports whether something was removed.
func (m *Marks) Remove(name string, item *mark.Item) (bool, error) {
	list, err := m.List(name)
	if err != nil {
		return false, err
	}

	target := item
	if target == nil {
		if target, err = list.Config().CreateItem(""); err != nil {
			return false, err
		}
	}
	i, err := list.Remove(target)
	if err != nil || i < 0 {
		return false, err
	}
	m.publishChange(list.Name(), events.ListItemRemoved, target.Value, i)
	return true, nil
}

// RemoveAt deletes the item at index i of the named list.
func (m *Marks) RemoveAt(name string, i int) (*mark.Item, error) {
	list, err := m.List(name)
	if err != nil {
		return nil, err
	}
	removed, err := list.RemoveAt(i)
	if err != nil {
		return nil, err
	}
	m.publishChange(list.Name(), events.ListItemRemoved, removed.Value, i)
	return removed, nil
}

// Clear empties the named list.
func (m *Marks) Clear(name string) error {
	list, err := m.List(name)
	if err != nil {
		return err
	}
	list.Clear()
	m.publishChange(list.Name(), events.ListCleared, "", -1)
	return nil
}

// Replace puts item at index i of the named list.
func (m *Marks) Replace(name string, i int, item *mark.Item) error {
	list, err := m.List(name)
	if err != nil {
		return err
	}
	if err := list.Replace(i, item); err != nil {
		return err
	}
	m.publishChange(list.Name(), events.ListItemReplaced, item.Value, i)
	return nil
}

// Delete forgets the named list and removes it from the store.
func (m *Marks) Delete(name string) error {
	if name == "" {
		name = config.DefaultListName
	}

	m.mu.Lock()
	key := m.cfg.Key()
	delete(m.lists[key], name)
	m.mu.Unlock()

	if m.store != nil && key != "" {
		if err := m.store.Delete(key, name); err != nil {
			return fmt.Errorf("delete list %s: %w", name, err)
		}
	}
	m.publishChange(name, events.ListDeleted, "", -1)
	return nil
}

// Stored returns the names of the lists persisted for the current project.
func (m *Marks) Stored() ([]string, error) {
	if m.store == nil {
		return nil, nil
	}
	key := m.Key()
	if key == "" {
		return nil, nil
	}
	return m.store.Lists(key)
}

// Next selects the item after the current buffer's mark in the named list,
// or after the last selected one when the current buffer is not marked.
func (m *Marks) Next(name string, opts mark.SelectOptions) error {
	list, err := m.focus(name)
	if err != nil {
		return err
	}
	return list.Next(opts)
}

// Prev is Next in the other direction.
func (m *Marks) Prev(name string, opts mark.SelectOptions) error {
	list, err := m.focus(name)
	if err != nil {
		return err
	}
	return list.Prev(opts)
}

// focus returns the named list with its cursor on the current buffer's
// mark, if it has one.
func (m *Marks) focus(name string) (*mark.List, error) {
	list, err := m.List(name)
	if err != nil {
		return nil, err
	}
	if _, ok := m.host.CurrentBuffer(); !ok {
		return list, nil
	}
	cur, err := list.Config().CreateItem("")
	if err != nil {
		m.log.Debug("focus %s: %v", list.Name(), err)
		return list, nil
	}
	list.SetCursor(list.Index(cur))
	return list, nil
}

// Select navigates to the item at index i of the named list.
func (m *Marks) Select(name string, i int, opts mark.SelectOptions) error {
	list, err := m.List(name)
	if err != nil {
		return err
	}
	return list.Select(i, opts)
}

// Sync writes every loaded list of the current project to the store.
func (m *Marks) Sync() error {
	if m.store == nil {
		return nil
	}

	m.mu.Lock()
	key := m.cfg.Key()
	lists := m.loadedLocked()
	m.mu.Unlock()

	if key == "" {
		return fmt.Errorf("sync: %w", store.ErrEmptyKey)
	}

	var errs []error
	for _, list := range lists {
		encoded, err := list.Encode()
		if err != nil {
			errs = append(errs, fmt.Errorf("encode list %s: %w", list.Name(), err))
			continue
		}
		if err := m.store.Save(key, list.Name(), encoded); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OnToggle is called when the list UI is toggled. It syncs when
// save_on_toggle is set.
func (m *Marks) OnToggle() error {
	if !m.Config().Settings.SaveOnToggle {
		return nil
	}
	return m.Sync()
}

// OnUIClose is called when the list UI closes. It syncs when
// sync_on_ui_close is set.
func (m *Marks) OnUIClose() error {
	if !m.Config().Settings.SyncOnUIClose {
		return nil
	}
	return m.Sync()
}

// Close removes the lifecycle subscriptions.
func (m *Marks) Close() error {
	m.mu.Lock()
	subs := m.subs
	m.subs = nil
	m.mu.Unlock()

	var errs []error
	for _, s := range subs {
		if err := m.bus.Unsubscribe(s); err != nil && !errors.Is(err, event.ErrSubscriptionNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Marks) publishChange(list string, kind events.ListChangeKind, value string, i int) {
	evt := event.NewEvent(events.TopicListChanged, events.ListChanged{
		List:  list,
		Kind:  kind,
		Value: value,
		Index: i,
	}, "marks")
	if err := m.bus.Publish(context.Background(), evt); err != nil {
		m.log.Warn("publish list change: %v", err)
	}
}

// autocmdNames returns every lifecycle event some list config asks for.
func autocmdNames(cfg *config.Config) []string {
	var names []string
	if cfg.Default != nil {
		names = append(names, cfg.Default.Autocmds...)
	}
	for _, name := range cfg.ListNames() {
		names = append(names, cfg.Lists[name].Autocmds...)
	}
	slices.Sort(names)
	return slices.Compact(names)
}
