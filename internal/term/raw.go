//go:build !windows

package term

import (
	"os"

	"golang.org/x/term"
)

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// MakeRaw switches f's terminal into raw mode so keystrokes reach the
// remote process unmodified. The returned function restores the
// previous state; call it before the process exits or the shell is
// left unusable.
func MakeRaw(f *os.File) (restore func() error, err error) {
	fd := int(f.Fd())
	prev, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	return func() error { return term.Restore(fd, prev) }, nil
}
