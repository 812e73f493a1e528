// Package config builds and merges the keymarks configuration.
//
// A Config has two reserved parts and any number of named list overrides:
//
//	Settings   global toggles plus the project key function
//	Default    the ListConfig every list starts from
//	Lists      per-list ListPatch overrides, keyed by list name
//
// Function-valued slots (encode, decode, display, select, equals,
// get_root_dir, create_list_item and lifecycle hooks) are the unit of
// override: a patch replaces a slot, it never composes two functions.
//
// # Building and Merging
//
//	b := config.NewBuilder(config.Env{Host: h, Events: bus, Log: log})
//	cfg := b.Default()
//	cfg = b.Merge(&config.Partial{
//	    Settings: &config.SettingsPatch{SaveOnToggle: config.Bool(true)},
//	    Lists: map[string]*config.ListPatch{
//	        "todo": {SelectWithNil: config.Bool(true)},
//	    },
//	}, cfg)
//
// Merge is one level deep and mutates the Config it is given. Callers that
// hold another reference and need isolation should Clone first.
//
// # Resolving a List
//
// A named list's effective configuration is Default with the list's patch
// applied on top:
//
//	lc := cfg.ListConfig("todo")
//	list := mark.NewList("todo", lc.Behavior())
//
// # Sub-packages
//
//   - loader: partial configuration files (TOML, YAML)
package config
