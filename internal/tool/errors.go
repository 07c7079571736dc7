package tool

import (
	"errors"
	"fmt"
)

// ErrNotFound marks a missing input path. Callers map it to a 404.
var ErrNotFound = errors.New("input path not found")

// ErrInvalidArgs marks tool arguments that failed decoding or validation.
// Callers map it to a 400.
var ErrInvalidArgs = errors.New("invalid tool arguments")

func notFound(path string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, path)
}

func invalidArgs(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgs, fmt.Sprintf(format, args...))
}
