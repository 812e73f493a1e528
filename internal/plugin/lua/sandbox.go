package lua

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/keymarks/internal/host"
)

// HelperModule is the name of the preloaded helper module.
const HelperModule = "keymarks"

// removedGlobals can load code from disk or strings and escape the sandbox.
var removedGlobals = []string{"dofile", "loadfile", "load", "loadstring"}

// safeModules may be required from config code.
var safeModules = map[string]bool{
	"string":     true,
	"table":      true,
	"math":       true,
	HelperModule: true,
}

// installSandbox strips loaders from L and replaces require with a
// whitelist.
func installSandbox(L *lua.LState) {
	for _, name := range removedGlobals {
		L.SetGlobal(name, lua.LNil)
	}

	if pkg, ok := L.GetGlobal("package").(*lua.LTable); ok {
		L.SetField(pkg, "path", lua.LString(""))
		L.SetField(pkg, "cpath", lua.LString(""))
	}

	L.PreloadModule(HelperModule, loadHelperModule)

	originalRequire := L.GetGlobal("require")
	L.SetGlobal("require", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		if !safeModules[name] {
			L.RaiseError("module %q is not available", name)
			return 0
		}
		L.Push(originalRequire)
		L.Push(lua.LString(name))
		L.Call(1, 1)
		return 1
	}))
}

// loadHelperModule exposes host-independent helpers to config code.
func loadHelperModule(L *lua.LState) int {
	mod := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"normalize": func(L *lua.LState) int {
			L.Push(lua.LString(host.NormalizePath(L.CheckString(1), L.OptString(2, ""))))
			return 1
		},
	})
	L.Push(mod)
	return 1
}
