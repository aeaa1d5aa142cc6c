// https://github.com/golang/term/blob/master/term_unix_other.go

//go:build linux

package tty

import "golang.org/x/sys/unix"

const (
	ioctlReadTermios = unix.TCGETS
	// TCSETSF is tcsetattr(TCSAFLUSH): pending input is discarded.
	ioctlWriteTermiosFlush = unix.TCSETSF
)
