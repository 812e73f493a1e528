package config

import (
	"fmt"
	"sort"
)

// PartialFromMap converts an untyped configuration mapping, as produced by
// the file loaders, into a Partial. Malformed or unknown entries are skipped
// and reported in the returned list so callers can log them; they never
// fail the conversion.
func PartialFromMap(m map[string]any) (*Partial, []string) {
	p := &Partial{}
	var ignored []string

	for _, key := range sortedKeys(m) {
		section, ok := m[key].(map[string]any)
		if !ok {
			ignored = append(ignored, fmt.Sprintf("%s: expected a table, got %T", key, m[key]))
			continue
		}

		switch key {
		case KeySettings:
			var issues []string
			p.Settings, issues = settingsPatchFromMap(section)
			ignored = append(ignored, prefixed(key, issues)...)
		case KeyDefault:
			var issues []string
			p.Default, issues = listPatchFromMap(section)
			ignored = append(ignored, prefixed(key, issues)...)
		default:
			lp, issues := listPatchFromMap(section)
			ignored = append(ignored, prefixed(key, issues)...)
			if p.Lists == nil {
				p.Lists = make(map[string]*ListPatch)
			}
			p.Lists[key] = lp
		}
	}

	return p, ignored
}

func settingsPatchFromMap(m map[string]any) (*SettingsPatch, []string) {
	sp := &SettingsPatch{}
	var ignored []string

	for _, k := range sortedKeys(m) {
		v := m[k]
		switch k {
		case "save_on_toggle":
			if b, ok := v.(bool); ok {
				sp.SaveOnToggle = Bool(b)
				continue
			}
		case "sync_on_ui_close":
			if b, ok := v.(bool); ok {
				sp.SyncOnUIClose = Bool(b)
				continue
			}
		default:
			ignored = append(ignored, k+": unknown setting")
			continue
		}
		ignored = append(ignored, fmt.Sprintf("%s: expected bool, got %T", k, v))
	}
	return sp, ignored
}

func listPatchFromMap(m map[string]any) (*ListPatch, []string) {
	lp := &ListPatch{}
	var ignored []string

	for _, k := range sortedKeys(m) {
		v := m[k]
		switch k {
		case "select_with_nil":
			b, ok := v.(bool)
			if !ok {
				ignored = append(ignored, fmt.Sprintf("%s: expected bool, got %T", k, v))
				continue
			}
			lp.SelectWithNil = Bool(b)
		case "autocmds":
			names, ok := stringList(v)
			if !ok {
				ignored = append(ignored, fmt.Sprintf("%s: expected a list of strings, got %T", k, v))
				continue
			}
			lp.Autocmds = names
		default:
			ignored = append(ignored, k+": not settable from a data file")
		}
	}
	return lp, ignored
}

// stringList accepts []string and []any holding only strings.
func stringList(v any) ([]string, bool) {
	switch vv := v.(type) {
	case []string:
		return append([]string{}, vv...), true
	case []any:
		out := make([]string, 0, len(vv))
		for _, e := range vv {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func prefixed(prefix string, issues []string) []string {
	out := make([]string, len(issues))
	for i, s := range issues {
		out[i] = prefix + "." + s
	}
	return out
}
