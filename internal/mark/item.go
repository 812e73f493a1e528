// Package mark defines marks (tracked file positions) and the ordered lists
// that hold them.
package mark

import "github.com/dshills/keymarks/internal/host"

// Context is the last known cursor position of a mark.
type Context struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// DefaultContext is the position of a mark whose buffer was never visited.
func DefaultContext() Context {
	return Context{Row: 1, Col: 0}
}

// Position converts the context to a host cursor position.
func (c Context) Position() host.Position {
	return host.Position{Row: c.Row, Col: c.Col}
}

// ContextFrom builds a context from a host cursor position.
func ContextFrom(p host.Position) Context {
	return Context{Row: p.Row, Col: p.Col}
}

// Item is a single mark. Context is updated in place as the tracked
// buffer's cursor moves; it is not part of an item's identity.
type Item struct {
	Value   string  `json:"value"`
	Context Context `json:"context"`
}

// NewItem returns an item for value with the default context.
func NewItem(value string) *Item {
	return &Item{Value: value, Context: DefaultContext()}
}

// SelectOptions carries window directives for selecting a mark.
type SelectOptions struct {
	VSplit  bool `json:"vsplit"`
	Split   bool `json:"split"`
	TabEdit bool `json:"tabedit"`
}

// Directive resolves the options to one host directive. The flags are
// mutually exclusive with precedence VSplit, Split, TabEdit.
func (o SelectOptions) Directive() host.SplitDirective {
	switch {
	case o.VSplit:
		return host.SplitVertical
	case o.Split:
		return host.SplitHorizontal
	case o.TabEdit:
		return host.SplitTab
	default:
		return host.SplitNone
	}
}
