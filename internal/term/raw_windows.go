//go:build windows

package term

import (
	"errors"
	"os"
)

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return false
}

// MakeRaw is not implemented on Windows; interactive execs run
// without raw mode there.
func MakeRaw(f *os.File) (func() error, error) {
	return nil, errors.New("raw mode not supported on windows")
}
