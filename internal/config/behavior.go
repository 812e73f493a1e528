package config

import (
	"fmt"

	"github.com/dshills/keymarks/internal/mark"
)

// behavior adapts a ListConfig to mark.Config. Empty display, equals,
// encode and decode slots fall back to the package defaults; empty select
// and create slots report ErrMissingCallback.
type behavior struct {
	cfg *ListConfig
}

// Behavior returns c as the capability a mark.List consumes.
func (c *ListConfig) Behavior() mark.Config {
	return behavior{cfg: c}
}

// ListConfigOf returns the ListConfig behind a list built from Behavior,
// or nil for lists with foreign behaviors.
func ListConfigOf(list *mark.List) *ListConfig {
	if list == nil {
		return nil
	}
	if b, ok := list.Config().(behavior); ok {
		return b.cfg
	}
	return nil
}

func (b behavior) SelectWithNil() bool {
	return b.cfg.SelectWithNil
}

func (b behavior) Display(item *mark.Item) string {
	if b.cfg.Display == nil {
		return DisplayValue(item)
	}
	return b.cfg.Display(item)
}

func (b behavior) Equals(x, y *mark.Item) bool {
	if b.cfg.Equals == nil {
		return EqualValues(x, y)
	}
	return b.cfg.Equals(x, y)
}

func (b behavior) Select(item *mark.Item, list *mark.List, opts mark.SelectOptions) error {
	if b.cfg.Select == nil {
		return fmt.Errorf("select: %w", ErrMissingCallback)
	}
	return b.cfg.Select(item, list, opts)
}

func (b behavior) CreateItem(name string) (*mark.Item, error) {
	if b.cfg.CreateListItem == nil {
		if name == "" {
			return nil, fmt.Errorf("create_list_item: %w", ErrMissingCallback)
		}
		return mark.NewItem(name), nil
	}
	return b.cfg.CreateListItem(b.cfg, name)
}

func (b behavior) Encode(item *mark.Item) (string, error) {
	if b.cfg.Encode == nil {
		return EncodeJSON(item)
	}
	return b.cfg.Encode(item)
}

func (b behavior) Decode(s string) (*mark.Item, error) {
	if b.cfg.Decode == nil {
		return DecodeJSON(s)
	}
	return b.cfg.Decode(s)
}
