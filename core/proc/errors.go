package proc

import (
	"errors"
	"fmt"
	"io/fs"
)

var (
	// ErrCommandNotFound is matched by errors for programs that couldn't be
	// started.
	ErrCommandNotFound = errors.New("command not found")

	// ErrRedirectOpenFailed is matched by errors for redirect files that
	// couldn't be opened.
	ErrRedirectOpenFailed = errors.New("redirect open failed")

	// ErrTooManyStages is returned for pipelines of more than two stages.
	ErrTooManyStages = errors.New("only two pipeline stages are supported")
)

// NotFoundError reports a program that couldn't be executed.
type NotFoundError struct {
	Name string
	Err  error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%q command not found", e.Name)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrCommandNotFound
}

// RedirectError reports a redirect file that couldn't be opened.
type RedirectError struct {
	Path string
	Err  error
}

func (e *RedirectError) Error() string {
	reason := e.Err
	var pathErr *fs.PathError
	if errors.As(reason, &pathErr) {
		reason = pathErr.Err
	}
	return fmt.Sprintf("cannot open %q: %v", e.Path, reason)
}

func (e *RedirectError) Unwrap() error {
	return e.Err
}

func (e *RedirectError) Is(target error) bool {
	return target == ErrRedirectOpenFailed
}
