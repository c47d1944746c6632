package script

import (
	"errors"
	"fmt"
)

var (
	// ErrAmbiguousTable is returned for a table argument that is not exactly one
	// of the color, position or animation shapes.
	ErrAmbiguousTable = errors.New("script: ambiguous or invalid table argument")
	// ErrArenaExhausted is returned when a module's owned copies exceed the arena
	// budget. It is fatal to the process.
	ErrArenaExhausted = errors.New("script: module arena exhausted")
	// ErrMissingEntryPoint is returned when a config script defines no get_config.
	ErrMissingEntryPoint = errors.New("script: missing entry point")
	// ErrInvalidProps is returned for a builder entry whose props count is
	// negative, fractional or larger than the table can hold.
	ErrInvalidProps = errors.New("script: invalid component props")
	// ErrUnknownComponent is returned for a builder entry with an unregistered type id.
	ErrUnknownComponent = errors.New("script: unknown component type")
	// ErrUnknownModule is returned by the config loader for a module name that is
	// neither a script file nor a builtin.
	ErrUnknownModule = errors.New("script: unknown module")
)

// ValidationError rejects a single module or config reload. Field names the
// offending part of the returned table.
type ValidationError struct {
	Module string
	Field  string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("script: module %q: %v", e.Module, e.Err)
	}
	return fmt.Sprintf("script: module %q: %s: %v", e.Module, e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ArgFetchError reports a positional builder argument that is missing or of
// the wrong kind. Index is 1-based, as seen by the script.
type ArgFetchError struct {
	Index   int
	Want    ArgKind
	Got     ArgKind
	Missing bool
}

func (e *ArgFetchError) Error() string {
	if e.Missing {
		return fmt.Sprintf("argument %d: missing, want %s", e.Index, e.Want)
	}
	return fmt.Sprintf("argument %d: got %s, want %s", e.Index, e.Got, e.Want)
}

// IsFatal reports whether err must stop the process rather than skip a module.
func IsFatal(err error) bool {
	return errors.Is(err, ErrArenaExhausted)
}
