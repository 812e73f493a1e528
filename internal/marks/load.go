package marks

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/dshills/keymarks/internal/config"
	"github.com/dshills/keymarks/internal/config/loader"
	"github.com/dshills/keymarks/internal/logging"
	"github.com/dshills/keymarks/internal/plugin/lua"
)

// LoadOptions configures LoadPartials.
type LoadOptions struct {
	// Path is the user config file. Empty skips the file.
	Path string

	// EnvPrefix selects environment overrides. Empty uses
	// loader.DefaultEnvPrefix.
	EnvPrefix string

	// Lua evaluates .lua config files. Required for them; it must stay
	// open while the resulting configuration is in use.
	Lua *lua.State

	// FS reads data files. Nil uses the OS.
	FS loader.FileSystem

	Log *logging.Logger
}

// LoadPartials reads the user config file and the environment, in that
// order of precedence from lowest to highest. A missing file is not an
// error.
func LoadPartials(opts LoadOptions) ([]*config.Partial, error) {
	log := logging.OrNop(opts.Log).WithComponent("marks")
	var partials []*config.Partial

	if opts.Path != "" {
		p, err := loadFile(opts, log)
		if err != nil {
			return nil, err
		}
		if p != nil {
			partials = append(partials, p)
		}
	}

	prefix := opts.EnvPrefix
	if prefix == "" {
		prefix = loader.DefaultEnvPrefix
	}
	env, err := loader.NewEnvLoader(prefix).Load()
	if err != nil {
		return nil, err
	}
	if len(env) > 0 {
		partials = append(partials, fromMap("environment", env, log))
	}
	return partials, nil
}

func loadFile(opts LoadOptions, log *logging.Logger) (*config.Partial, error) {
	format, err := loader.FormatOf(opts.Path)
	if err != nil {
		return nil, err
	}

	if format == loader.FormatLua {
		fsys := opts.FS
		if fsys == nil {
			fsys = loader.DefaultFS()
		}
		if _, err := fsys.Stat(opts.Path); errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		if opts.Lua == nil {
			return nil, fmt.Errorf("%s: no lua state to evaluate it", opts.Path)
		}
		p, _, err := lua.NewConfigLoader(opts.Lua, opts.Log).LoadFile(opts.Path)
		return p, err
	}

	l, err := loader.ForPath(opts.FS, opts.Path)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if t, ok := l.(*loader.TOMLLoader); ok {
		raw, err = t.LoadWithIncludes(opts.Path, loader.MaxIncludeDepth)
	} else {
		raw, err = l.Load()
	}
	if err != nil || raw == nil {
		return nil, err
	}
	log.Info("loaded config %s", opts.Path)
	return fromMap(opts.Path, raw, log), nil
}

func fromMap(source string, raw map[string]any, log *logging.Logger) *config.Partial {
	p, ignored := config.PartialFromMap(raw)
	for _, msg := range ignored {
		log.Warn("%s: ignoring %s", source, msg)
	}
	return p
}
