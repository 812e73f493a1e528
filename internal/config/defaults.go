package config

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/dshills/keymarks/internal/event"
	"github.com/dshills/keymarks/internal/event/events"
	"github.com/dshills/keymarks/internal/event/topic"
	"github.com/dshills/keymarks/internal/host"
	"github.com/dshills/keymarks/internal/logging"
	"github.com/dshills/keymarks/internal/mark"
)

// Env is what the default behaviors run against.
type Env struct {
	// Host is the editor session. Required by the default behaviors.
	Host host.Host

	// Events receives navigate and position events. Optional.
	Events event.Publisher

	// Log receives diagnostics. Optional.
	Log *logging.Logger
}

// Builder produces default configurations and merges partial ones.
type Builder struct {
	env Env
	log *logging.Logger
}

// NewBuilder creates a Builder for env.
func NewBuilder(env Env) *Builder {
	return &Builder{
		env: env,
		log: logging.OrNop(env.Log).WithComponent("config"),
	}
}

// Default returns a fresh default configuration. Every call returns new
// records and new closures; nothing is shared between results.
func (b *Builder) Default() *Config {
	d := &defaults{env: b.env, log: b.log}

	return &Config{
		Settings: &Settings{
			SaveOnToggle:  false,
			SyncOnUIClose: false,
			Key:           d.key,
		},
		Default: &ListConfig{
			SelectWithNil:  false,
			Encode:         EncodeJSON,
			Decode:         DecodeJSON,
			Display:        DisplayValue,
			Select:         d.selectItem,
			Equals:         EqualValues,
			GetRootDir:     d.rootDir,
			CreateListItem: d.createListItem,
			Autocmds:       []string{events.EventBufLeave},
			Hooks: map[string]HookFunc{
				events.EventBufLeave: d.bufLeave,
			},
		},
		Lists: make(map[string]*ListPatch),
	}
}

// EncodeJSON is the default encoder.
func EncodeJSON(item *mark.Item) (string, error) {
	b, err := json.Marshal(item)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeJSON is the default decoder.
func DecodeJSON(s string) (*mark.Item, error) {
	var item mark.Item
	if err := json.Unmarshal([]byte(s), &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// DisplayValue is the default display: the item's value verbatim.
func DisplayValue(item *mark.Item) string {
	if item == nil {
		return ""
	}
	return item.Value
}

// EqualValues is the default equality: values match, context is ignored.
func EqualValues(a, b *mark.Item) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Value == b.Value
}

// defaults holds the state shared by one Default() result's closures.
type defaults struct {
	env Env
	log *logging.Logger
}

func (d *defaults) key() string {
	cwd, err := d.env.Host.Cwd()
	if err != nil {
		d.log.Warn("key: %v", err)
		return ""
	}
	return cwd
}

func (d *defaults) rootDir() string {
	cwd, err := d.env.Host.Cwd()
	if err != nil {
		d.log.Warn("get_root_dir: %v", err)
		return ""
	}
	return cwd
}

// selectItem opens the item's buffer, creating it if needed, and restores
// the stored position only for freshly created buffers.
func (d *defaults) selectItem(item *mark.Item, list *mark.List, opts mark.SelectOptions) error {
	if item == nil {
		return nil
	}
	h := d.env.Host

	d.log.Debug("select: %s list=%s opts=%+v", item.Value, listName(list), opts)

	path := bufferPath(item.Value, rootOf(ListConfigOf(list), d))
	id, ok := h.FindBuffer(path)
	setPosition := false
	if !ok {
		var err error
		id, err = h.CreateBuffer(path)
		if err != nil {
			return fmt.Errorf("select %s: %w", item.Value, err)
		}
		setPosition = true
	}

	if err := h.LoadBuffer(id); err != nil {
		return fmt.Errorf("select %s: %w", item.Value, err)
	}
	if err := h.SetListed(id, true); err != nil {
		return fmt.Errorf("select %s: %w", item.Value, err)
	}
	if err := h.Split(opts.Directive()); err != nil {
		return fmt.Errorf("select %s: %w", item.Value, err)
	}
	if err := h.SetCurrentBuffer(id); err != nil {
		return fmt.Errorf("select %s: %w", item.Value, err)
	}

	if setPosition {
		pos := item.Context.Position()
		if pos.Row < 1 {
			pos.Row = 1
		}
		if pos.Col < 0 {
			pos.Col = 0
		}
		if err := h.SetCursor(pos); err != nil {
			return fmt.Errorf("select %s: %w", item.Value, err)
		}
	}

	publish(d, events.TopicNavigate, events.Navigate{Buffer: id})
	return nil
}

// createListItem captures the cursor of an existing buffer for name.
func (d *defaults) createListItem(cfg *ListConfig, name string) (*mark.Item, error) {
	h := d.env.Host
	root := rootOf(cfg, d)

	if name == "" {
		cur, ok := h.CurrentBuffer()
		if !ok {
			return nil, host.ErrNoCurrentBuffer
		}
		name = host.NormalizePath(h.BufferName(cur), root)
	}

	item := mark.NewItem(name)
	if id, ok := h.FindBuffer(bufferPath(name, root)); ok {
		if pos, ok := h.BufferCursor(id); ok {
			item.Context = mark.ContextFrom(pos)
		}
	}

	d.log.Debug("create_list_item: %s %d:%d", item.Value, item.Context.Row, item.Context.Col)
	return item, nil
}

// bufLeave records the cursor position of the buffer being left on the
// matching item, if the list has one.
func (d *defaults) bufLeave(arg HookArg, list *mark.List) error {
	h := d.env.Host

	name := arg.Name
	if name == "" {
		name = h.BufferName(arg.Buffer)
	}
	root := rootOf(ListConfigOf(list), d)
	name = host.NormalizePath(name, root)

	item, _ := list.GetByDisplay(name)
	if item == nil {
		item = itemForPath(list, name, root)
	}
	if item == nil {
		return nil
	}

	pos, err := h.Cursor()
	if err != nil {
		return fmt.Errorf("BufLeave %s: %w", name, err)
	}
	item.Context = mark.ContextFrom(pos)

	publish(d, events.TopicPositionUpdated, events.PositionUpdated{
		List:  list.Name(),
		Value: item.Value,
		Row:   pos.Row,
		Col:   pos.Col,
	})
	return nil
}

// publish sends payload on the env's event publisher, if any.
func publish[T any](d *defaults, t topic.Topic, payload T) {
	if d.env.Events == nil {
		return
	}
	if err := d.env.Events.Publish(context.Background(), event.NewEvent(t, payload, "config")); err != nil {
		d.log.Warn("publish %s: %v", t, err)
	}
}

// itemForPath returns the first item whose value, normalized against root,
// is name.
func itemForPath(list *mark.List, name, root string) *mark.Item {
	for _, it := range list.Items() {
		if host.NormalizePath(it.Value, root) == name {
			return it
		}
	}
	return nil
}

// bufferPath resolves a root-relative item value to the path the host
// knows the buffer by.
func bufferPath(name, root string) string {
	if name == "" || root == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(root, filepath.FromSlash(name))
}

// rootOf returns the list config's root, falling back to the host.
func rootOf(cfg *ListConfig, d *defaults) string {
	if cfg != nil && cfg.GetRootDir != nil {
		return cfg.GetRootDir()
	}
	return d.rootDir()
}

func listName(list *mark.List) string {
	if list == nil {
		return ""
	}
	return list.Name()
}
