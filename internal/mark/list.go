package mark

import (
	"errors"
	"fmt"
)

// Errors returned by List operations.
var (
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrNilItem         = errors.New("nil item")
)

// Config is the behavior a List delegates to. It is implemented by the
// resolved list configuration.
type Config interface {
	// SelectWithNil reports whether Select is called for missing items.
	SelectWithNil() bool

	// Display returns the text shown for an item.
	Display(item *Item) string

	// Equals reports whether two items denote the same mark.
	Equals(a, b *Item) bool

	// Select navigates to an item. item may be nil when SelectWithNil is set.
	Select(item *Item, list *List, opts SelectOptions) error

	// CreateItem builds an item for name, or for the current buffer when
	// name is empty.
	CreateItem(name string) (*Item, error)

	// Encode serializes an item for persistence.
	Encode(item *Item) (string, error)

	// Decode parses an item produced by Encode.
	Decode(s string) (*Item, error)
}

// List is a named, ordered collection of marks. It is not safe for
// concurrent use; the host delivers events serially.
type List struct {
	name   string
	config Config
	items  []*Item
	index  int
}

// NewList creates a list governed by cfg.
func NewList(name string, cfg Config, items ...*Item) *List {
	return &List{name: name, config: cfg, items: items}
}

// Name returns the list name.
func (l *List) Name() string { return l.name }

// Config returns the list's behavior.
func (l *List) Config() Config { return l.config }

// Len returns the number of marks.
func (l *List) Len() int { return len(l.items) }

// Items returns a copy of the marks in order.
func (l *List) Items() []*Item {
	return append([]*Item(nil), l.items...)
}

// Get returns the item at i, or nil when i is out of range.
func (l *List) Get(i int) *Item {
	if i < 0 || i >= len(l.items) {
		return nil
	}
	return l.items[i]
}

// Index returns the position of the item equal to item, or -1.
func (l *List) Index(item *Item) int {
	if item == nil {
		return -1
	}
	for i, it := range l.items {
		if l.config.Equals(it, item) {
			return i
		}
	}
	return -1
}

// GetByDisplay returns the first item whose display text is name.
func (l *List) GetByDisplay(name string) (*Item, int) {
	for i, it := range l.items {
		if l.config.Display(it) == name {
			return it, i
		}
	}
	return nil, -1
}

// GetByValue returns the first item whose value is value.
func (l *List) GetByValue(value string) (*Item, int) {
	for i, it := range l.items {
		if it.Value == value {
			return it, i
		}
	}
	return nil, -1
}

// resolve returns item, or an item created for the current buffer.
func (l *List) resolve(item *Item) (*Item, error) {
	if item != nil {
		return item, nil
	}
	created, err := l.config.CreateItem("")
	if err != nil {
		return nil, fmt.Errorf("list %s: create item: %w", l.name, err)
	}
	if created == nil {
		return nil, ErrNilItem
	}
	return created, nil
}

// Add appends item unless an equal item is present. A nil item adds the
// current buffer. It returns the item's index and whether it was added.
func (l *List) Add(item *Item) (int, bool, error) {
	item, err := l.resolve(item)
	if err != nil {
		return -1, false, err
	}
	if i := l.Index(item); i >= 0 {
		return i, false, nil
	}
	l.items = append(l.items, item)
	return len(l.items) - 1, true, nil
}

// Prepend inserts item at the front unless an equal item is present.
func (l *List) Prepend(item *Item) (int, bool, error) {
	item, err := l.resolve(item)
	if err != nil {
		return -1, false, err
	}
	if i := l.Index(item); i >= 0 {
		return i, false, nil
	}
	if len(l.items) > 0 {
		l.index++
	}
	l.items = append([]*Item{item}, l.items...)
	return 0, true, nil
}

// Remove deletes the item equal to item. A nil item removes the current
// buffer's mark. It returns the removed index or -1.
func (l *List) Remove(item *Item) (int, error) {
	item, err := l.resolve(item)
	if err != nil {
		return -1, err
	}
	i := l.Index(item)
	if i < 0 {
		return -1, nil
	}
	_, err = l.RemoveAt(i)
	return i, err
}

// RemoveAt deletes and returns the item at i.
func (l *List) RemoveAt(i int) (*Item, error) {
	if i < 0 || i >= len(l.items) {
		return nil, fmt.Errorf("remove %d from %s: %w", i, l.name, ErrIndexOutOfRange)
	}
	item := l.items[i]
	l.items = append(l.items[:i], l.items[i+1:]...)
	if i < l.index {
		l.index--
	}
	if l.index >= len(l.items) {
		l.index = max(len(l.items)-1, 0)
	}
	return item, nil
}

// Replace puts item at i.
func (l *List) Replace(i int, item *Item) error {
	if item == nil {
		return ErrNilItem
	}
	if i < 0 || i >= len(l.items) {
		return fmt.Errorf("replace %d in %s: %w", i, l.name, ErrIndexOutOfRange)
	}
	l.items[i] = item
	return nil
}

// Clear removes every item.
func (l *List) Clear() {
	l.items = nil
	l.index = 0
}

// Select navigates to the item at i. Out of range indexes are passed to
// the config as a nil item only when SelectWithNil is set.
func (l *List) Select(i int, opts SelectOptions) error {
	item := l.Get(i)
	if item == nil && !l.config.SelectWithNil() {
		return nil
	}
	if item != nil {
		l.index = i
	}
	return l.config.Select(item, l, opts)
}

// Cursor returns the position Next and Prev move from.
func (l *List) Cursor() int { return l.index }

// SetCursor makes i the position Next and Prev move from without
// selecting it. It reports false for out of range indexes.
func (l *List) SetCursor(i int) bool {
	if i < 0 || i >= len(l.items) {
		return false
	}
	l.index = i
	return true
}

// Next selects the item after the last selected one, wrapping around.
func (l *List) Next(opts SelectOptions) error {
	if len(l.items) == 0 {
		return nil
	}
	return l.Select((l.index+1)%len(l.items), opts)
}

// Prev selects the item before the last selected one, wrapping around.
func (l *List) Prev(opts SelectOptions) error {
	if len(l.items) == 0 {
		return nil
	}
	return l.Select((l.index-1+len(l.items))%len(l.items), opts)
}

// Encode serializes every item with the list config.
func (l *List) Encode() ([]string, error) {
	out := make([]string, 0, len(l.items))
	for _, it := range l.items {
		s, err := l.config.Encode(it)
		if err != nil {
			return nil, fmt.Errorf("encode %q: %w", it.Value, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// Decode builds a list from encoded items.
func Decode(name string, cfg Config, encoded []string) (*List, error) {
	items := make([]*Item, 0, len(encoded))
	for i, s := range encoded {
		it, err := cfg.Decode(s)
		if err != nil {
			return nil, fmt.Errorf("decode item %d of %s: %w", i, name, err)
		}
		if it == nil {
			continue
		}
		items = append(items, it)
	}
	return NewList(name, cfg, items...), nil
}
