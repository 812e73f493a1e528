package lua

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/keymarks/internal/mark"
)

// itemToTable renders an item as { value = ..., context = { row, col } }.
func itemToTable(L *lua.LState, item *mark.Item) lua.LValue {
	if item == nil {
		return lua.LNil
	}
	ctx := L.CreateTable(0, 2)
	ctx.RawSetString("row", lua.LNumber(item.Context.Row))
	ctx.RawSetString("col", lua.LNumber(item.Context.Col))

	t := L.CreateTable(0, 2)
	t.RawSetString("value", lua.LString(item.Value))
	t.RawSetString("context", ctx)
	return t
}

// tableToItem reads an item table. A missing context is the default one.
func tableToItem(lv lua.LValue) (*mark.Item, error) {
	t, ok := lv.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("expected an item table, got %s", lv.Type())
	}
	value, ok := t.RawGetString("value").(lua.LString)
	if !ok {
		return nil, fmt.Errorf("item.value must be a string")
	}

	item := mark.NewItem(string(value))
	if ctx, ok := t.RawGetString("context").(*lua.LTable); ok {
		item.Context = contextFromTable(ctx, item.Context)
	}
	return item, nil
}

func contextFromTable(t *lua.LTable, def mark.Context) mark.Context {
	if row, ok := t.RawGetString("row").(lua.LNumber); ok {
		def.Row = int(row)
	}
	if col, ok := t.RawGetString("col").(lua.LNumber); ok {
		def.Col = int(col)
	}
	return def
}

// listToTable renders a list as { name = ..., items = { item, ... } } with a
// get_by_display(name) method returning the matching item table and its
// 1-based index. displays holds the display text of each item; it is
// computed before entering Lua since display may itself be a Lua function.
func listToTable(L *lua.LState, list *mark.List, displays []string) lua.LValue {
	if list == nil {
		return lua.LNil
	}
	items := list.Items()
	arr := L.CreateTable(len(items), 0)
	for i, it := range items {
		arr.RawSetInt(i+1, itemToTable(L, it))
	}

	t := L.CreateTable(0, 3)
	t.RawSetString("name", lua.LString(list.Name()))
	t.RawSetString("items", arr)
	t.RawSetString("get_by_display", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(2)
		for i, d := range displays {
			if d == name {
				L.Push(arr.RawGetInt(i + 1))
				L.Push(lua.LNumber(i + 1))
				return 2
			}
		}
		L.Push(lua.LNil)
		L.Push(lua.LNumber(-1))
		return 2
	}))
	return t
}

// displayNames returns the display text of every item of list.
func displayNames(list *mark.List) []string {
	if list == nil {
		return nil
	}
	items := list.Items()
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = list.Config().Display(it)
	}
	return out
}

// syncContexts copies item contexts edited by Lua back onto list. Items are
// matched by position and value.
func syncContexts(lv lua.LValue, list *mark.List) {
	t, ok := lv.(*lua.LTable)
	if !ok || list == nil {
		return
	}
	arr, ok := t.RawGetString("items").(*lua.LTable)
	if !ok {
		return
	}
	for i, it := range list.Items() {
		et, ok := arr.RawGetInt(i + 1).(*lua.LTable)
		if !ok {
			continue
		}
		if v, ok := et.RawGetString("value").(lua.LString); !ok || string(v) != it.Value {
			continue
		}
		if ctx, ok := et.RawGetString("context").(*lua.LTable); ok {
			it.Context = contextFromTable(ctx, it.Context)
		}
	}
}
