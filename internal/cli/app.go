// Package cli provides the keymarks command line interface.
//
// The CLI drives the marks plugin against an in-memory host rooted at the
// project directory, so lists can be inspected and edited outside an editor.
package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dshills/keymarks/internal/event"
	"github.com/dshills/keymarks/internal/host"
	"github.com/dshills/keymarks/internal/host/memhost"
	"github.com/dshills/keymarks/internal/logging"
	"github.com/dshills/keymarks/internal/marks"
	"github.com/dshills/keymarks/internal/plugin/lua"
	"github.com/dshills/keymarks/internal/store"
)

// configNames are probed, in order, in the user config directory.
var configNames = []string{"config.lua", "config.toml", "config.yaml", "config.yml"}

// flags holds the persistent flag values.
type flags struct {
	configPath string
	dataDir    string
	list       string
	logLevel   string
	root       string
}

// app is one CLI invocation's plugin instance.
type app struct {
	marks *marks.Marks
	host  *memhost.Host
	store *store.Store
	lua   *lua.State
	log   *logging.Logger
	root  string
	list  string
}

func newApp(f *flags) (*app, error) {
	log := logging.New(logging.Config{
		Level:     logging.ParseLogLevel(f.logLevel),
		Output:    os.Stderr,
		Format:    "console",
		Component: "keymarks",
	})

	root := f.root
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve project root: %w", err)
		}
		root = wd
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}

	dataDir := f.dataDir
	if dataDir == "" {
		if dataDir, err = defaultDataDir(); err != nil {
			return nil, err
		}
	}
	st, err := store.New(dataDir, store.WithLogger(log))
	if err != nil {
		return nil, err
	}

	bus := event.NewBus(event.WithLogger(log))
	h := memhost.New(root, memhost.WithEvents(bus), memhost.WithLogger(log))
	m, err := marks.New(marks.Options{Host: h, Store: st, Bus: bus, Log: log})
	if err != nil {
		return nil, err
	}

	state := lua.NewState()
	configPath := f.configPath
	if configPath == "" {
		configPath = defaultConfigPath()
	}
	partials, err := marks.LoadPartials(marks.LoadOptions{Path: configPath, Lua: state, Log: log})
	if err != nil {
		_ = m.Close()
		_ = state.Close()
		return nil, err
	}
	if _, err := m.Setup(partials...); err != nil {
		_ = m.Close()
		_ = state.Close()
		return nil, err
	}

	return &app{
		marks: m,
		host:  h,
		store: st,
		lua:   state,
		log:   log,
		root:  root,
		list:  f.list,
	}, nil
}

func (a *app) Close() error {
	return errors.Join(a.marks.Close(), a.lua.Close())
}

// open shows file in the headless host the way an editor would when the
// user edits it. Relative files resolve against the project root.
func (a *app) open(file string) (host.BufferID, error) {
	if !filepath.IsAbs(file) {
		file = filepath.Join(a.root, file)
	}
	return a.host.Open(file)
}

// current prints the current buffer, relative to the root, and its cursor.
func (a *app) current(out io.Writer) error {
	cur, ok := a.host.CurrentBuffer()
	if !ok {
		return nil
	}
	pos, err := a.host.Cursor()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s:%d:%d\n", host.NormalizePath(a.host.BufferName(cur), a.root), pos.Row, pos.Col)
	return nil
}

func defaultDataDir() (string, error) {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "keymarks"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve data dir: %w", err)
	}
	return filepath.Join(home, ".local", "share", "keymarks"), nil
}

// defaultConfigPath returns the first existing config file, or "".
func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	for _, name := range configNames {
		p := filepath.Join(dir, "keymarks", name)
		if _, err := os.Stat(p); err == nil {
			return p
		} else if !errors.Is(err, fs.ErrNotExist) {
			return p
		}
	}
	return ""
}
