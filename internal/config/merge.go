package config

import (
	"maps"
	"slices"
)

// Bool returns a pointer to v, for building patches.
func Bool(v bool) *bool {
	return &v
}

// SettingsPatch is a partial Settings. Nil fields are left untouched.
type SettingsPatch struct {
	SaveOnToggle  *bool
	SyncOnUIClose *bool
	Key           KeyFunc
}

// Apply copies the set fields of p onto s.
func (p *SettingsPatch) Apply(s *Settings) {
	if p == nil || s == nil {
		return
	}
	if p.SaveOnToggle != nil {
		s.SaveOnToggle = *p.SaveOnToggle
	}
	if p.SyncOnUIClose != nil {
		s.SyncOnUIClose = *p.SyncOnUIClose
	}
	if p.Key != nil {
		s.Key = p.Key
	}
}

// ListPatch is a partial ListConfig. Nil fields are left untouched. A nil
// Autocmds slice is unset; an empty non-nil slice clears the events. Hooks
// are merged per event name.
type ListPatch struct {
	SelectWithNil  *bool
	Encode         EncodeFunc
	Decode         DecodeFunc
	Display        DisplayFunc
	Select         SelectFunc
	Equals         EqualsFunc
	GetRootDir     RootDirFunc
	CreateListItem CreateItemFunc
	Autocmds       []string
	Hooks          map[string]HookFunc
}

// IsEmpty reports whether the patch sets nothing.
func (p *ListPatch) IsEmpty() bool {
	return p == nil || (p.SelectWithNil == nil && p.Encode == nil && p.Decode == nil &&
		p.Display == nil && p.Select == nil && p.Equals == nil && p.GetRootDir == nil &&
		p.CreateListItem == nil && p.Autocmds == nil && len(p.Hooks) == 0)
}

// Apply copies the set fields of p onto c.
func (p *ListPatch) Apply(c *ListConfig) {
	if p == nil || c == nil {
		return
	}
	if p.SelectWithNil != nil {
		c.SelectWithNil = *p.SelectWithNil
	}
	if p.Encode != nil {
		c.Encode = p.Encode
	}
	if p.Decode != nil {
		c.Decode = p.Decode
	}
	if p.Display != nil {
		c.Display = p.Display
	}
	if p.Select != nil {
		c.Select = p.Select
	}
	if p.Equals != nil {
		c.Equals = p.Equals
	}
	if p.GetRootDir != nil {
		c.GetRootDir = p.GetRootDir
	}
	if p.CreateListItem != nil {
		c.CreateListItem = p.CreateListItem
	}
	if p.Autocmds != nil {
		c.Autocmds = slices.Clone(p.Autocmds)
	}
	if len(p.Hooks) > 0 {
		if c.Hooks == nil {
			c.Hooks = make(map[string]HookFunc, len(p.Hooks))
		}
		maps.Copy(c.Hooks, p.Hooks)
	}
}

// Merge copies the set fields of o onto p.
func (p *ListPatch) Merge(o *ListPatch) {
	if p == nil || o == nil {
		return
	}
	if o.SelectWithNil != nil {
		p.SelectWithNil = Bool(*o.SelectWithNil)
	}
	if o.Encode != nil {
		p.Encode = o.Encode
	}
	if o.Decode != nil {
		p.Decode = o.Decode
	}
	if o.Display != nil {
		p.Display = o.Display
	}
	if o.Select != nil {
		p.Select = o.Select
	}
	if o.Equals != nil {
		p.Equals = o.Equals
	}
	if o.GetRootDir != nil {
		p.GetRootDir = o.GetRootDir
	}
	if o.CreateListItem != nil {
		p.CreateListItem = o.CreateListItem
	}
	if o.Autocmds != nil {
		p.Autocmds = slices.Clone(o.Autocmds)
	}
	if len(o.Hooks) > 0 {
		if p.Hooks == nil {
			p.Hooks = make(map[string]HookFunc, len(o.Hooks))
		}
		maps.Copy(p.Hooks, o.Hooks)
	}
}

// Clone returns a copy of p.
func (p *ListPatch) Clone() *ListPatch {
	if p == nil {
		return nil
	}
	out := &ListPatch{}
	out.Merge(p)
	return out
}

// Partial is a user supplied configuration update.
type Partial struct {
	Settings *SettingsPatch
	Default  *ListPatch

	// Lists holds named list overrides. The reserved key "default" is
	// treated like Default; "settings" is ignored here.
	Lists map[string]*ListPatch
}

// Merge applies partial onto latest and returns latest. A nil partial is
// an empty update and a nil latest starts from b.Default().
//
// Settings and Default are merged one level deep. A named list seen for
// the first time starts from an empty patch, not from Default.
//
// latest is mutated in place.
func (b *Builder) Merge(partial *Partial, latest *Config) *Config {
	if latest == nil {
		latest = b.Default()
	}
	if partial == nil {
		return latest
	}

	if partial.Settings != nil {
		if latest.Settings == nil {
			latest.Settings = &Settings{}
		}
		partial.Settings.Apply(latest.Settings)
	}
	if partial.Default != nil {
		if latest.Default == nil {
			latest.Default = &ListConfig{}
		}
		partial.Default.Apply(latest.Default)
	}

	for name, patch := range partial.Lists {
		switch name {
		case KeyDefault:
			if latest.Default == nil {
				latest.Default = &ListConfig{}
			}
			patch.Apply(latest.Default)
		case KeySettings:
			b.log.Warn("ignoring list override named %q", name)
		default:
			if latest.Lists == nil {
				latest.Lists = make(map[string]*ListPatch)
			}
			existing, ok := latest.Lists[name]
			if !ok {
				existing = &ListPatch{}
				latest.Lists[name] = existing
			}
			existing.Merge(patch)
		}
	}

	return latest
}
