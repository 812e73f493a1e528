package lua

import (
	"fmt"
	"sort"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/keymarks/internal/config"
	"github.com/dshills/keymarks/internal/logging"
	"github.com/dshills/keymarks/internal/mark"
)

// ConfigLoader turns Lua config chunks into config.Partial values whose
// function slots call back into the chunk's functions.
type ConfigLoader struct {
	state *State
	log   *logging.Logger
}

// NewConfigLoader creates a loader evaluating on state.
func NewConfigLoader(state *State, log *logging.Logger) *ConfigLoader {
	return &ConfigLoader{
		state: state,
		log:   logging.OrNop(log).WithComponent("lua"),
	}
}

// LoadFile evaluates the file at path. The second result lists entries that
// were skipped.
func (c *ConfigLoader) LoadFile(path string) (*config.Partial, []string, error) {
	ret, err := c.state.DoFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("lua config %s: %w", path, err)
	}
	return c.partial(ret)
}

// LoadString evaluates code.
func (c *ConfigLoader) LoadString(code string) (*config.Partial, []string, error) {
	ret, err := c.state.DoString(code)
	if err != nil {
		return nil, nil, fmt.Errorf("lua config: %w", err)
	}
	return c.partial(ret)
}

func (c *ConfigLoader) partial(ret lua.LValue) (*config.Partial, []string, error) {
	root, ok := ret.(*lua.LTable)
	if !ok {
		return nil, nil, fmt.Errorf("%w, got %s", ErrNotATable, ret.Type())
	}

	p := &config.Partial{}
	var ignored []string

	for _, key := range sortedStringKeys(root, &ignored) {
		section, ok := root.RawGetString(key).(*lua.LTable)
		if !ok {
			ignored = append(ignored, fmt.Sprintf("%s: expected a table, got %s", key, root.RawGetString(key).Type()))
			continue
		}
		switch key {
		case config.KeySettings:
			var issues []string
			p.Settings, issues = c.settingsPatch(section)
			ignored = append(ignored, prefixed(key, issues)...)
		case config.KeyDefault:
			var issues []string
			p.Default, issues = c.listPatch(key, section)
			ignored = append(ignored, prefixed(key, issues)...)
		default:
			lp, issues := c.listPatch(key, section)
			ignored = append(ignored, prefixed(key, issues)...)
			if p.Lists == nil {
				p.Lists = make(map[string]*config.ListPatch)
			}
			p.Lists[key] = lp
		}
	}

	for _, msg := range ignored {
		c.log.Warn("ignoring %s", msg)
	}
	return p, ignored, nil
}

func (c *ConfigLoader) settingsPatch(t *lua.LTable) (*config.SettingsPatch, []string) {
	sp := &config.SettingsPatch{}
	var ignored []string

	for _, k := range sortedStringKeys(t, &ignored) {
		v := t.RawGetString(k)
		switch k {
		case "save_on_toggle":
			if b, ok := v.(lua.LBool); ok {
				sp.SaveOnToggle = config.Bool(bool(b))
				continue
			}
			ignored = append(ignored, fmt.Sprintf("%s: expected boolean, got %s", k, v.Type()))
		case "sync_on_ui_close":
			if b, ok := v.(lua.LBool); ok {
				sp.SyncOnUIClose = config.Bool(bool(b))
				continue
			}
			ignored = append(ignored, fmt.Sprintf("%s: expected boolean, got %s", k, v.Type()))
		case "key":
			if fn, ok := v.(*lua.LFunction); ok {
				sp.Key = c.stringFunc("settings.key", fn)
				continue
			}
			ignored = append(ignored, fmt.Sprintf("%s: expected function, got %s", k, v.Type()))
		default:
			ignored = append(ignored, k+": unknown setting")
		}
	}
	return sp, ignored
}

func (c *ConfigLoader) listPatch(list string, t *lua.LTable) (*config.ListPatch, []string) {
	lp := &config.ListPatch{}
	var ignored []string

	for _, k := range sortedStringKeys(t, &ignored) {
		v := t.RawGetString(k)
		name := list + "." + k

		switch k {
		case "select_with_nil":
			b, ok := v.(lua.LBool)
			if !ok {
				ignored = append(ignored, fmt.Sprintf("%s: expected boolean, got %s", k, v.Type()))
				continue
			}
			lp.SelectWithNil = config.Bool(bool(b))
			continue
		case "autocmds":
			names, ok := stringSlice(v)
			if !ok {
				ignored = append(ignored, fmt.Sprintf("%s: expected a list of strings, got %s", k, v.Type()))
				continue
			}
			lp.Autocmds = names
			continue
		}

		fn, ok := v.(*lua.LFunction)
		if !ok {
			ignored = append(ignored, fmt.Sprintf("%s: expected function, got %s", k, v.Type()))
			continue
		}

		switch k {
		case "display":
			lp.Display = c.display(name, fn)
		case "equals":
			lp.Equals = c.equals(name, fn)
		case "encode":
			lp.Encode = c.encode(name, fn)
		case "decode":
			lp.Decode = c.decode(name, fn)
		case "select":
			lp.Select = c.selectFunc(name, fn)
		case "get_root_dir":
			lp.GetRootDir = c.stringFunc(name, fn)
		case "create_list_item":
			lp.CreateListItem = c.createListItem(name, fn)
		default:
			if lp.Hooks == nil {
				lp.Hooks = make(map[string]config.HookFunc)
			}
			lp.Hooks[k] = c.hook(name, fn)
		}
	}
	return lp, ignored
}

func (c *ConfigLoader) call(name string, fn *lua.LFunction, args ArgsFunc) (lua.LValue, error) {
	results, err := c.state.Call(fn, args)
	if err != nil {
		return lua.LNil, fmt.Errorf("%s: %w", name, err)
	}
	if len(results) == 0 {
		return lua.LNil, nil
	}
	return results[0], nil
}

func (c *ConfigLoader) stringFunc(name string, fn *lua.LFunction) func() string {
	return func() string {
		ret, err := c.call(name, fn, nil)
		if err != nil {
			c.log.Warn("%v", err)
			return ""
		}
		return lua.LVAsString(ret)
	}
}

func (c *ConfigLoader) display(name string, fn *lua.LFunction) config.DisplayFunc {
	return func(item *mark.Item) string {
		ret, err := c.call(name, fn, func(L *lua.LState) []lua.LValue {
			return []lua.LValue{itemToTable(L, item)}
		})
		if err != nil {
			c.log.Warn("%v", err)
			return config.DisplayValue(item)
		}
		return lua.LVAsString(ret)
	}
}

func (c *ConfigLoader) equals(name string, fn *lua.LFunction) config.EqualsFunc {
	return func(a, b *mark.Item) bool {
		ret, err := c.call(name, fn, func(L *lua.LState) []lua.LValue {
			return []lua.LValue{itemToTable(L, a), itemToTable(L, b)}
		})
		if err != nil {
			c.log.Warn("%v", err)
			return config.EqualValues(a, b)
		}
		return lua.LVAsBool(ret)
	}
}

func (c *ConfigLoader) encode(name string, fn *lua.LFunction) config.EncodeFunc {
	return func(item *mark.Item) (string, error) {
		ret, err := c.call(name, fn, func(L *lua.LState) []lua.LValue {
			return []lua.LValue{itemToTable(L, item)}
		})
		if err != nil {
			return "", err
		}
		s, ok := ret.(lua.LString)
		if !ok {
			return "", fmt.Errorf("%s: expected string result, got %s", name, ret.Type())
		}
		return string(s), nil
	}
}

func (c *ConfigLoader) decode(name string, fn *lua.LFunction) config.DecodeFunc {
	return func(s string) (*mark.Item, error) {
		ret, err := c.call(name, fn, func(*lua.LState) []lua.LValue {
			return []lua.LValue{lua.LString(s)}
		})
		if err != nil {
			return nil, err
		}
		item, err := tableToItem(ret)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return item, nil
	}
}

func (c *ConfigLoader) selectFunc(name string, fn *lua.LFunction) config.SelectFunc {
	return func(item *mark.Item, list *mark.List, opts mark.SelectOptions) error {
		displays := displayNames(list)
		_, err := c.call(name, fn, func(L *lua.LState) []lua.LValue {
			o := L.CreateTable(0, 3)
			o.RawSetString("vsplit", lua.LBool(opts.VSplit))
			o.RawSetString("split", lua.LBool(opts.Split))
			o.RawSetString("tabedit", lua.LBool(opts.TabEdit))
			return []lua.LValue{itemToTable(L, item), listToTable(L, list, displays), o}
		})
		return err
	}
}

// createListItem passes a config table whose get_root_dir returns the root
// resolved before entering Lua.
func (c *ConfigLoader) createListItem(name string, fn *lua.LFunction) config.CreateItemFunc {
	return func(cfg *config.ListConfig, itemName string) (*mark.Item, error) {
		root := ""
		if cfg != nil && cfg.GetRootDir != nil {
			root = cfg.GetRootDir()
		}

		ret, err := c.call(name, fn, func(L *lua.LState) []lua.LValue {
			t := L.CreateTable(0, 1)
			t.RawSetString("get_root_dir", L.NewFunction(func(L *lua.LState) int {
				L.Push(lua.LString(root))
				return 1
			}))
			arg := lua.LValue(lua.LNil)
			if itemName != "" {
				arg = lua.LString(itemName)
			}
			return []lua.LValue{t, arg}
		})
		if err != nil {
			return nil, err
		}
		item, err := tableToItem(ret)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return item, nil
	}
}

// hook passes the list as a table and copies edited item contexts back.
func (c *ConfigLoader) hook(name string, fn *lua.LFunction) config.HookFunc {
	return func(arg config.HookArg, list *mark.List) error {
		displays := displayNames(list)
		var listTable lua.LValue
		_, err := c.call(name, fn, func(L *lua.LState) []lua.LValue {
			a := L.CreateTable(0, 3)
			a.RawSetString("event", lua.LString(arg.Event))
			a.RawSetString("buffer", lua.LString(arg.Buffer))
			a.RawSetString("name", lua.LString(arg.Name))
			listTable = listToTable(L, list, displays)
			return []lua.LValue{a, listTable}
		})
		if err != nil {
			return err
		}
		syncContexts(listTable, list)
		return nil
	}
}

// sortedStringKeys returns the string keys of t in order, reporting other
// keys in ignored.
func sortedStringKeys(t *lua.LTable, ignored *[]string) []string {
	var keys []string
	t.ForEach(func(k, _ lua.LValue) {
		if ks, ok := k.(lua.LString); ok {
			keys = append(keys, string(ks))
			return
		}
		*ignored = append(*ignored, fmt.Sprintf("[%s]: non-string key", k.String()))
	})
	sort.Strings(keys)
	return keys
}

func stringSlice(v lua.LValue) ([]string, bool) {
	t, ok := v.(*lua.LTable)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, t.Len())
	for i := 1; i <= t.Len(); i++ {
		s, ok := t.RawGetInt(i).(lua.LString)
		if !ok {
			return nil, false
		}
		out = append(out, string(s))
	}
	return out, true
}

func prefixed(prefix string, issues []string) []string {
	out := make([]string, len(issues))
	for i, s := range issues {
		out[i] = prefix + "." + s
	}
	return out
}
