package loader

import (
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memFS is an in-memory file system for tests.
type memFS struct {
	files map[string][]byte
}

func newMemFS(files map[string]string) *memFS {
	m := &memFS{files: make(map[string][]byte)}
	for p, c := range files {
		m.files[p] = []byte(c)
	}
	return m
}

func (m *memFS) ReadFile(path string) ([]byte, error) {
	data, ok := m.files[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return data, nil
}

func (m *memFS) Stat(path string) (fs.FileInfo, error) {
	if _, ok := m.files[path]; ok {
		return memFileInfo(path), nil
	}
	return nil, fs.ErrNotExist
}

type memFileInfo string

func (f memFileInfo) Name() string       { return string(f) }
func (f memFileInfo) Size() int64        { return 0 }
func (f memFileInfo) Mode() fs.FileMode  { return 0o644 }
func (f memFileInfo) ModTime() time.Time { return time.Time{} }
func (f memFileInfo) IsDir() bool        { return false }
func (f memFileInfo) Sys() any           { return nil }

const tomlConfig = `
[settings]
save_on_toggle = true

[default]
autocmds = ["BufLeave"]

[todo]
select_with_nil = true
`

const yamlConfig = `
settings:
  sync_on_ui_close: true
todo:
  select_with_nil: true
  autocmds: [BufLeave, BufEnter]
`

func TestForPath(t *testing.T) {
	fsys := newMemFS(map[string]string{
		"/c/marks.toml": tomlConfig,
		"/c/marks.yaml": yamlConfig,
		"/c/marks.yml":  yamlConfig,
	})

	tests := []struct {
		path string
		want map[string]any
	}{
		{"/c/marks.toml", map[string]any{
			"settings": map[string]any{"save_on_toggle": true},
			"default":  map[string]any{"autocmds": []any{"BufLeave"}},
			"todo":     map[string]any{"select_with_nil": true},
		}},
		{"/c/marks.yaml", map[string]any{
			"settings": map[string]any{"sync_on_ui_close": true},
			"todo":     map[string]any{"select_with_nil": true, "autocmds": []any{"BufLeave", "BufEnter"}},
		}},
		{"/c/marks.yml", map[string]any{
			"settings": map[string]any{"sync_on_ui_close": true},
			"todo":     map[string]any{"select_with_nil": true, "autocmds": []any{"BufLeave", "BufEnter"}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			l, err := ForPath(fsys, tt.path)
			require.NoError(t, err)
			got, err := l.Load()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestForPath_Unsupported(t *testing.T) {
	for _, p := range []string{"/c/marks.json", "/c/marks", "/c/init.lua"} {
		_, err := ForPath(nil, p)
		assert.ErrorIs(t, err, ErrUnsupportedFormat, p)
	}

	f, err := FormatOf("/c/INIT.LUA")
	require.NoError(t, err)
	assert.Equal(t, FormatLua, f)
}

func TestLoad_MissingFileIsNotAnError(t *testing.T) {
	fsys := newMemFS(nil)
	for _, l := range []FileLoader{
		NewTOMLLoaderWithFS(fsys, "/nope.toml"),
		NewYAMLLoaderWithFS(fsys, "/nope.yaml"),
	} {
		got, err := l.Load()
		assert.NoError(t, err)
		assert.Nil(t, got)
	}
}

func TestLoad_ParseErrors(t *testing.T) {
	fsys := newMemFS(map[string]string{
		"/bad.toml": "[settings\nsave_on_toggle = true\n",
		"/bad.yaml": "settings: [unclosed\n",
	})

	_, err := NewTOMLLoaderWithFS(fsys, "/bad.toml").Load()
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "/bad.toml", perr.Path)
	assert.Positive(t, perr.Line)
	assert.NotNil(t, perr.Unwrap())

	_, err = NewYAMLLoaderWithFS(fsys, "/bad.yaml").Load()
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "/bad.yaml", perr.Path)
	assert.Contains(t, perr.Error(), "parse error in /bad.yaml")
}

func TestLoadFromReader(t *testing.T) {
	got, err := NewTOMLLoader("").LoadFromReader(strings.NewReader(tomlConfig))
	require.NoError(t, err)
	assert.Contains(t, got, "todo")

	got, err = NewYAMLLoader("").LoadFromReader(strings.NewReader(yamlConfig))
	require.NoError(t, err)
	assert.Contains(t, got, "settings")

	_, err = NewTOMLLoader("").LoadFromReader(strings.NewReader("= nope"))
	assert.ErrorContains(t, err, "<reader>")
}

func TestTOMLLoader_Includes(t *testing.T) {
	fsys := newMemFS(map[string]string{
		"/c/marks.toml": `
include = ["base.toml"]

[settings]
save_on_toggle = true
`,
		"/c/base.toml": `
[settings]
save_on_toggle = false
sync_on_ui_close = true

[todo]
select_with_nil = true
`,
		"/c/loop.toml": `include = "loop.toml"`,
		"/c/bad.toml":  `include = 3`,
	})
	l := NewTOMLLoaderWithFS(fsys, "/c/marks.toml")

	got, err := l.LoadWithIncludes("/c/marks.toml", 4)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"settings": map[string]any{"save_on_toggle": true, "sync_on_ui_close": true},
		"todo":     map[string]any{"select_with_nil": true},
	}, got)

	_, err = l.LoadWithIncludes("/c/loop.toml", 3)
	assert.ErrorContains(t, err, "include depth exceeded")

	_, err = l.LoadWithIncludes("/c/bad.toml", 3)
	assert.ErrorContains(t, err, "must be a string or a list of strings")

	got, err = l.LoadWithIncludes("/c/missing.toml", 3)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestDeepMerge(t *testing.T) {
	dst := map[string]any{
		"settings": map[string]any{"save_on_toggle": false, "sync_on_ui_close": true},
		"todo":     map[string]any{"autocmds": []any{"BufLeave"}},
	}
	src := map[string]any{
		"settings": map[string]any{"save_on_toggle": true},
		"todo":     "replaced",
		"new":      map[string]any{"select_with_nil": true},
	}

	got := DeepMerge(dst, src)
	assert.Equal(t, map[string]any{
		"settings": map[string]any{"save_on_toggle": true, "sync_on_ui_close": true},
		"todo":     "replaced",
		"new":      map[string]any{"select_with_nil": true},
	}, got)

	assert.Equal(t, map[string]any{"a": 1}, DeepMerge(nil, map[string]any{"a": 1}))
}
