package lua

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// DefaultExecutionTimeout bounds each entry into Lua.
const DefaultExecutionTimeout = 5 * time.Second

// State wraps a sandboxed gopher-lua state.
type State struct {
	L *lua.LState

	mu               sync.Mutex
	executionTimeout time.Duration
	closed           bool
}

// StateOption configures a State.
type StateOption func(*State)

// WithExecutionTimeout sets the per-call timeout. Zero disables it.
func WithExecutionTimeout(d time.Duration) StateOption {
	return func(s *State) {
		s.executionTimeout = d
	}
}

// NewState creates a new sandboxed Lua state.
func NewState(opts ...StateOption) *State {
	s := &State{executionTimeout: DefaultExecutionTimeout}
	for _, opt := range opts {
		opt(s)
	}

	s.L = lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(s.L)
	installSandbox(s.L)
	return s
}

// openSafeLibraries opens only the side-effect free standard libraries.
func openSafeLibraries(L *lua.LState) {
	lua.OpenPackage(L)
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// DoString runs code and returns the value of its final return statement,
// or LNil when it returns nothing.
func (s *State) DoString(code string) (lua.LValue, error) {
	return s.eval(func() error { return s.L.DoString(code) })
}

// DoFile runs the file at path and returns its return value.
func (s *State) DoFile(path string) (lua.LValue, error) {
	return s.eval(func() error { return s.L.DoFile(path) })
}

func (s *State) eval(run func() error) (lua.LValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return lua.LNil, ErrStateClosed
	}

	top := s.L.GetTop()
	err := s.withTimeout(run)
	if err != nil {
		s.L.SetTop(top)
		return lua.LNil, err
	}

	ret := lua.LValue(lua.LNil)
	if s.L.GetTop() > top {
		ret = s.L.Get(top + 1)
	}
	s.L.SetTop(top)
	return ret, nil
}

// ArgsFunc builds call arguments. It runs with the state locked, so it may
// allocate tables on L.
type ArgsFunc func(L *lua.LState) []lua.LValue

// Call invokes fn with the arguments built by args, which may be nil, and
// returns its results. Calls are serialized.
func (s *State) Call(fn *lua.LFunction, args ArgsFunc) ([]lua.LValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStateClosed
	}

	var argv []lua.LValue
	if args != nil {
		argv = args(s.L)
	}

	top := s.L.GetTop()
	s.L.Push(fn)
	for _, a := range argv {
		s.L.Push(a)
	}

	err := s.withTimeout(func() error {
		return s.L.PCall(len(argv), lua.MultRet, nil)
	})
	if err != nil {
		s.L.SetTop(top)
		return nil, err
	}

	n := s.L.GetTop() - top
	results := make([]lua.LValue, n)
	for i := 0; i < n; i++ {
		results[i] = s.L.Get(top + i + 1)
	}
	s.L.SetTop(top)
	return results, nil
}

// withTimeout runs fn with the state's context deadline and panic recovery.
// The caller holds s.mu.
func (s *State) withTimeout(fn func() error) (err error) {
	if s.executionTimeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), s.executionTimeout)
		defer cancel()
		s.L.SetContext(ctx)
		defer s.L.RemoveContext()

		defer func() {
			if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
				err = fmt.Errorf("%w: %v", ErrExecutionTimeout, err)
			}
		}()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}

// IsClosed reports whether Close has been called.
func (s *State) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close releases the Lua state. Functions wrapped from it return
// ErrStateClosed afterwards.
func (s *State) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.L.Close()
	s.closed = true
	return nil
}
