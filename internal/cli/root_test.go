package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	root    string
	dataDir string
	config  string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()
	e := &env{
		root:    filepath.Join(dir, "proj"),
		dataDir: filepath.Join(dir, "data"),
		config:  filepath.Join(dir, "missing.toml"),
	}
	require.NoError(t, os.MkdirAll(e.root, 0o755))
	return e
}

func (e *env) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd("1.2.3", "abc123", "2026-01-01")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{
		"--root", e.root,
		"--data-dir", e.dataDir,
		"--config", e.config,
		"--log-level", "error",
	}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestAddListSelectRemove(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "add", "a.go", "--row", "3", "--col", "2")
	require.NoError(t, err)
	assert.Equal(t, "a.go:3:2\n", out)

	_, err = e.run(t, "add", filepath.Join(e.root, "pkg", "b.go"))
	require.NoError(t, err)

	out, err = e.run(t, "add", "a.go", "--row", "9")
	require.NoError(t, err)
	assert.Equal(t, "a.go:3:2\n", out, "re-adding keeps the existing mark")

	out, err = e.run(t, "list")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "a.go")
	assert.Contains(t, lines[0], "3:2")
	assert.Contains(t, lines[1], "pkg/b.go")

	out, err = e.run(t, "select", "1", "--vsplit")
	require.NoError(t, err)
	assert.Equal(t, "a.go:3:2\n", out)

	_, err = e.run(t, "select", "7")
	assert.Error(t, err)

	out, err = e.run(t, "rm", "pkg/b.go")
	require.NoError(t, err)
	assert.Contains(t, out, "removed pkg/b.go")

	_, err = e.run(t, "rm", "pkg/b.go")
	assert.Error(t, err)

	out, err = e.run(t, "rm", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "removed a.go")

	out, err = e.run(t, "list")
	require.NoError(t, err)
	assert.Equal(t, "No marks.\n", out)
}

func TestNamedListsAreSeparate(t *testing.T) {
	e := newEnv(t)

	_, err := e.run(t, "--list", "work", "add", "w.go")
	require.NoError(t, err)
	_, err = e.run(t, "add", "d.go")
	require.NoError(t, err)

	out, err := e.run(t, "--list", "work", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "w.go")
	assert.NotContains(t, out, "d.go")

	_, err = e.run(t, "--list", "work", "clear")
	require.NoError(t, err)
	out, err = e.run(t, "--list", "work", "list")
	require.NoError(t, err)
	assert.Equal(t, "No marks.\n", out)

	out, err = e.run(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "d.go")
}

func TestConfigCommand(t *testing.T) {
	e := newEnv(t)
	e.config = filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(e.config, []byte(`
[settings]
save_on_toggle = true

[work]
select_with_nil = true
`), 0o644))

	out, err := e.run(t, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "key: "+e.root)
	assert.Contains(t, out, "save_on_toggle: true")
	assert.Contains(t, out, "sync_on_ui_close: false")
	assert.Contains(t, out, "work:")
	assert.Contains(t, out, "select_with_nil: true")
	assert.Contains(t, out, "- BufLeave")
}

func TestLuaConfig(t *testing.T) {
	e := newEnv(t)
	e.config = filepath.Join(t.TempDir(), "config.lua")
	require.NoError(t, os.WriteFile(e.config, []byte(`
return {
	default = {
		display = function(item) return "> " .. item.value end,
	},
}
`), 0o644))

	_, err := e.run(t, "add", "a.go")
	require.NoError(t, err)

	out, err := e.run(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "> a.go")
}

func TestVersion(t *testing.T) {
	e := newEnv(t)
	out, err := e.run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "keymarks 1.2.3")
	assert.Contains(t, out, "commit: abc123")
}

func TestNextPrev(t *testing.T) {
	e := newEnv(t)
	for _, spec := range [][]string{
		{"add", "a.go", "--row", "2"},
		{"add", "b.go", "--row", "4"},
		{"add", "c.go", "--row", "6"},
	} {
		_, err := e.run(t, spec...)
		require.NoError(t, err)
	}

	tests := []struct {
		args []string
		want string
	}{
		{[]string{"next"}, "a.go:2:0\n"},
		{[]string{"prev"}, "c.go:6:0\n"},
		{[]string{"next", "--from", "a.go"}, "b.go:4:0\n"},
		{[]string{"next", "--from", filepath.Join("..", "proj", "c.go")}, "a.go:2:0\n"},
		{[]string{"prev", "--from", "a.go"}, "c.go:6:0\n"},
		{[]string{"prev", "--from", "unmarked.go"}, "c.go:6:0\n"},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			out, err := e.run(t, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}

	_, err := e.run(t, "--list", "empty", "next")
	assert.Error(t, err)
}

func TestSetDropLists(t *testing.T) {
	e := newEnv(t)

	_, err := e.run(t, "add", "a.go")
	require.NoError(t, err)
	_, err = e.run(t, "--list", "work", "add", "w.go")
	require.NoError(t, err)

	out, err := e.run(t, "set", "1", "z.go", "--row", "5", "--col", "3")
	require.NoError(t, err)
	assert.Equal(t, "z.go:5:3\n", out)
	_, err = e.run(t, "set", "4", "z.go")
	assert.Error(t, err)

	out, err = e.run(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "z.go")
	assert.NotContains(t, out, "a.go")

	out, err = e.run(t, "lists")
	require.NoError(t, err)
	assert.Equal(t, "__default\nwork\n", out)

	_, err = e.run(t, "--list", "work", "drop")
	require.NoError(t, err)
	out, err = e.run(t, "lists")
	require.NoError(t, err)
	assert.Equal(t, "__default\n", out)
}
