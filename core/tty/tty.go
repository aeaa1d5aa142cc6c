// Package tty switches a terminal between canonical (cooked) mode and the
// non-canonical, non-echoing mode the line editor reads keystrokes in.
package tty

import (
	"errors"
	"sync"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// ErrNotTerminal is returned by Open if the descriptor isn't a terminal.
var ErrNotTerminal = errors.New("not a terminal")

// Terminal remembers the settings a terminal had when it was opened.
type Terminal struct {
	fd int

	mu       sync.Mutex
	canon    unix.Termios
	noncanon unix.Termios
	raw      bool
}

// Open captures the current settings of fd as its cooked mode.
func Open(fd int) (*Terminal, error) {
	if !term.IsTerminal(fd) {
		return nil, ErrNotTerminal
	}

	canon, err := unix.IoctlGetTermios(fd, ioctlReadTermios)
	if err != nil {
		return nil, err
	}

	noncanon := *canon
	noncanon.Lflag &^= unix.ICANON | unix.ECHO
	noncanon.Cc[unix.VMIN] = 1
	noncanon.Cc[unix.VTIME] = 0

	return &Terminal{
		fd:       fd,
		canon:    *canon,
		noncanon: noncanon,
	}, nil
}

// Raw delivers keystrokes immediately and stops the terminal echoing them.
func (t *Terminal) Raw() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := unix.IoctlSetTermios(t.fd, ioctlWriteTermiosFlush, &t.noncanon); err != nil {
		return err
	}
	t.raw = true
	return nil
}

// Cooked puts back the line buffered, echoing settings captured by Open.
func (t *Terminal) Cooked() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := unix.IoctlSetTermios(t.fd, ioctlWriteTermiosFlush, &t.canon); err != nil {
		return err
	}
	t.raw = false
	return nil
}

// Restore is Cooked, named for use in defer statements.
func (t *Terminal) Restore() error {
	return t.Cooked()
}

// IsRaw reports whether the last mode applied was Raw.
func (t *Terminal) IsRaw() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.raw
}
