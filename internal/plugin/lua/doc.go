// Package lua evaluates marks configuration written in Lua.
//
// A Lua config file returns a table shaped like the configuration itself:
//
//	return {
//	    settings = { save_on_toggle = true },
//	    default = {
//	        display = function(item) return "* " .. item.value end,
//	    },
//	    todo = {
//	        select_with_nil = true,
//	        BufLeave = function(arg, list) end,
//	    },
//	}
//
// Plain values become fields of a config.Partial. Functions are wrapped into
// the matching Go slot and run on the same sandboxed State, so the State
// must outlive every configuration built from it.
//
// # Sandbox
//
// Only the base, table, string and math libraries are opened. dofile,
// loadfile, load and loadstring are removed and require only resolves the
// safe built-in modules and the preloaded "keymarks" helper module.
//
// # Concurrency
//
// gopher-lua's LState is not goroutine-safe. State serializes every entry
// into Lua with a mutex; wrapped functions may be called from any goroutine.
package lua
