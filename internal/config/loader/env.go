package loader

import (
	"os"
	"strconv"
	"strings"
)

// DefaultEnvPrefix is the prefix of marks environment variables.
const DefaultEnvPrefix = "KEYMARKS_"

// EnvLoader loads configuration from environment variables.
//
// Mapped variables set a fixed path. Other prefixed variables use a double
// underscore between section and field, so KEYMARKS_TODO__SELECT_WITH_NIL
// sets todo.select_with_nil. Fields are always lower-cased. An all upper-case
// section is lower-cased too; a section with any lower-case letter keeps its
// case, so KEYMARKS_myList__SELECT_WITH_NIL targets the list "myList".
type EnvLoader struct {
	prefix  string
	mapping map[string]string
	environ func() []string
}

// NewEnvLoader creates an environment loader for prefix, which should
// include the trailing underscore.
func NewEnvLoader(prefix string) *EnvLoader {
	return &EnvLoader{
		prefix:  prefix,
		mapping: defaultEnvMapping(prefix),
		environ: os.Environ,
	}
}

func defaultEnvMapping(prefix string) map[string]string {
	return map[string]string{
		prefix + "SAVE_ON_TOGGLE":   "settings.save_on_toggle",
		prefix + "SYNC_ON_UI_CLOSE": "settings.sync_on_ui_close",
	}
}

// AddMapping maps envVar to a dot separated config path.
func (l *EnvLoader) AddMapping(envVar, configPath string) {
	if l.mapping == nil {
		l.mapping = make(map[string]string)
	}
	l.mapping[envVar] = configPath
}

// Load reads the environment. An environment without marks variables
// yields an empty map.
func (l *EnvLoader) Load() (map[string]any, error) {
	cfg := make(map[string]any)

	for _, kv := range l.environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, l.prefix) {
			continue
		}

		path, mapped := l.mapping[name]
		if !mapped {
			path, ok = l.envToPath(name)
			if !ok {
				continue
			}
		}
		setByPath(cfg, path, parseEnvValue(value))
	}

	return cfg, nil
}

// envToPath converts PREFIX_SECTION__FIELD_NAME to section.field_name.
func (l *EnvLoader) envToPath(env string) (string, bool) {
	section, field, ok := strings.Cut(strings.TrimPrefix(env, l.prefix), "__")
	if !ok || section == "" || field == "" {
		return "", false
	}
	if section == strings.ToUpper(section) {
		section = strings.ToLower(section)
	}
	return section + "." + strings.ToLower(field), true
}

// parseEnvValue turns boolean spellings into bools and keeps the rest as
// strings. Comma separated values become lists.
func parseEnvValue(s string) any {
	switch strings.ToLower(s) {
	case "true", "yes", "on":
		return true
	case "false", "no", "off":
		return false
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	if strings.Contains(s, ",") {
		parts := strings.Split(s, ",")
		out := make([]any, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return s
}

// setByPath sets a value in a nested map using a dot separated path.
func setByPath(data map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	current := data
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}
