package lua

import "errors"

// Errors for Lua state operations.
var (
	// ErrStateClosed is returned when operating on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrExecutionTimeout is returned when a call runs past the state's
	// execution timeout.
	ErrExecutionTimeout = errors.New("lua execution timeout")

	// ErrNotATable is returned when a config chunk does not return a table.
	ErrNotATable = errors.New("lua config must return a table")
)
