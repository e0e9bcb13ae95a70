package lua

import (
	"errors"
	"fmt"
)

// Errors for scripted lexers.
var (
	// ErrClosed is returned when tokenizing with a closed lexer.
	ErrClosed = errors.New("lua lexer is closed")

	// ErrMissingTokenize is returned when a script defines no tokenize function.
	ErrMissingTokenize = errors.New("script does not define tokenize")

	// ErrMissingLanguage is returned when a script defines no language name.
	ErrMissingLanguage = errors.New("script does not define language")

	// ErrBadResult is returned when tokenize returns malformed tokens.
	ErrBadResult = errors.New("malformed tokenize result")
)

// ScriptError wraps an error raised while loading or running a script.
type ScriptError struct {
	Script string
	Op     string
	Err    error
}

// Error implements the error interface.
func (e *ScriptError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Script, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *ScriptError) Unwrap() error {
	return e.Err
}
