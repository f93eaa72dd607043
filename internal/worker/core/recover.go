package core

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// ErrPanic wraps a panic recovered from a unit of work.
var ErrPanic = errors.New("recovered from panic")

// Safely runs fn and converts a panic into an error carrying the stack.
func Safely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v\n%s", ErrPanic, r, debug.Stack())
		}
	}()

	return fn()
}
