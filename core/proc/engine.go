// Package proc runs parsed command lines as operating system processes.
package proc

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"strings"

	"github.com/josephlewis42/osh/core/logger"
	"github.com/josephlewis42/osh/core/shell"
)

// ModeSwitcher moves a terminal between the editor's non-canonical mode and
// the line buffered mode interactive programs expect.
type ModeSwitcher interface {
	Raw() error
	Cooked() error
}

// EventRecorder stores session events.
type EventRecorder interface {
	Record(event logger.LogType) error
}

// Engine starts the processes for a parsed command line.
type Engine struct {
	// Standard streams inherited by children. A nil file is connected to the
	// null device.
	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File

	// Terminal is switched to cooked mode while a foreground pipeline runs.
	// It may be nil.
	Terminal ModeSwitcher

	// Reaper collects background children. If nil, each background child
	// gets its own waiting goroutine.
	Reaper *Reaper

	Logger *log.Logger
	Events EventRecorder
}

// Execute runs cmd. Foreground commands are waited for; background commands
// are handed to the reaper. The exit status of children isn't reported.
func (e *Engine) Execute(cmd *shell.ParsedCommand) error {
	if len(cmd.Stages) > 2 {
		return ErrTooManyStages
	}

	var err error
	switch {
	case len(cmd.Stages) == 2 && len(cmd.Stages[0]) > 0 && len(cmd.Stages[1]) > 0:
		err = e.runPipeline(cmd.Stages[0], cmd.Stages[1], cmd)
	case len(cmd.Stages) == 2 && len(cmd.Stages[1]) > 0:
		// Nothing writes into the pipe, so stage two reads end of file.
		err = e.runSingle(cmd.Stages[1], cmd, true)
	case len(cmd.Stages) > 0 && len(cmd.Stages[0]) > 0:
		err = e.runSingle(cmd.Stages[0], cmd, false)
	default:
		return nil
	}

	var notFound *NotFoundError
	switch {
	case errors.As(err, &notFound):
		e.record(&logger.UnknownCommand{Command: []string{notFound.Name}, ErrorMessage: notFound.Err.Error()})
	case err != nil:
		e.record(&logger.InvalidInvocation{Command: strings.Fields(cmd.String()), Error: err.Error()})
	}
	return err
}

func (e *Engine) runSingle(argv []string, cmd *shell.ParsedCommand, emptyInput bool) error {
	stdin, stdout, closeFiles, err := openRedirects(cmd)
	if err != nil {
		return err
	}
	defer closeFiles()

	input := orFile(stdin, e.Stdin)
	if emptyInput {
		r, w, err := os.Pipe()
		if err != nil {
			return fmt.Errorf("pipe: %w", err)
		}
		w.Close()
		defer r.Close()
		input = r
	}

	child := e.command(argv, input, orFile(stdout, e.Stdout))
	if err := e.start(child, cmd.Background, 0); err != nil {
		return err
	}

	if cmd.Background {
		e.detach(child)
		return nil
	}
	return e.wait(child)
}

func (e *Engine) runPipeline(left, right []string, cmd *shell.ParsedCommand) error {
	stdin, stdout, closeFiles, err := openRedirects(cmd)
	if err != nil {
		return err
	}
	defer closeFiles()

	if !cmd.Background && e.Terminal != nil {
		if err := e.Terminal.Cooked(); err != nil {
			e.logger().Printf("couldn't switch terminal to cooked mode: %v", err)
		}
		defer func() {
			if err := e.Terminal.Raw(); err != nil {
				e.logger().Printf("couldn't switch terminal to raw mode: %v", err)
			}
		}()
	}

	r, w, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("pipe: %w", err)
	}

	writer := e.command(left, orFile(stdin, e.Stdin), w)
	reader := e.command(right, r, orFile(stdout, e.Stdout))

	// The reader starts even if the writer can't, so it sees end of file.
	writerErr := e.start(writer, cmd.Background, 0)
	readerErr := e.start(reader, cmd.Background, 1)

	// The children hold their own copies; the parent's must be closed or the
	// reader never sees end of file.
	r.Close()
	w.Close()

	if cmd.Background {
		if writerErr == nil {
			e.detach(writer)
		}
		if readerErr == nil {
			e.detach(reader)
		}
		return firstError(writerErr, readerErr)
	}

	var writerWait, readerWait error
	if writerErr == nil {
		writerWait = e.wait(writer)
	}
	if readerErr == nil {
		readerWait = e.wait(reader)
	}
	return firstError(writerErr, readerErr, readerWait, writerWait)
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) command(argv []string, stdin, stdout *os.File) *exec.Cmd {
	child := exec.Command(argv[0], argv[1:]...)

	// Only non-nil files are assigned: a nil *os.File in an io.Reader isn't a
	// nil interface.
	if stdin != nil {
		child.Stdin = stdin
	}
	if stdout != nil {
		child.Stdout = stdout
	}
	if e.Stderr != nil {
		child.Stderr = e.Stderr
	}
	return child
}

func (e *Engine) start(child *exec.Cmd, background bool, stage int) error {
	if err := child.Start(); err != nil {
		return &NotFoundError{Name: child.Args[0], Err: err}
	}

	e.logger().Printf("started pid %d: %q", child.Process.Pid, child.Args)
	e.record(&logger.RunCommand{
		Command:    child.Args,
		Pid:        child.Process.Pid,
		Background: background,
		Stage:      stage,
	})
	return nil
}

func (e *Engine) wait(child *exec.Cmd) error {
	err := child.Wait()

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		e.logger().Printf("pid %d: %v", child.Process.Pid, exitErr)
		return nil
	}
	return err
}

func (e *Engine) detach(child *exec.Cmd) {
	if e.Reaper != nil {
		e.Reaper.Track(child.Process)
		return
	}
	go e.wait(child)
}

func (e *Engine) logger() *log.Logger {
	if e.Logger == nil {
		return log.New(io.Discard, "", 0)
	}
	return e.Logger
}

func (e *Engine) record(event logger.LogType) {
	if e.Events == nil {
		return
	}
	if err := e.Events.Record(event); err != nil {
		e.logger().Printf("couldn't record event: %v", err)
	}
}

// openRedirects opens the command's redirect files. Input is opened first so
// a missing input file doesn't truncate the output file.
func openRedirects(cmd *shell.ParsedCommand) (stdin, stdout *os.File, closeFiles func(), err error) {
	var opened []*os.File
	closeFiles = func() {
		for _, f := range opened {
			f.Close()
		}
	}

	if cmd.InputFile != "" {
		stdin, err = os.Open(cmd.InputFile)
		if err != nil {
			return nil, nil, nil, &RedirectError{Path: cmd.InputFile, Err: err}
		}
		opened = append(opened, stdin)
	}

	if cmd.OutputFile != "" {
		stdout, err = os.OpenFile(cmd.OutputFile, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			closeFiles()
			return nil, nil, nil, &RedirectError{Path: cmd.OutputFile, Err: err}
		}
		opened = append(opened, stdout)
	}

	return stdin, stdout, closeFiles, nil
}

func orFile(preferred, fallback *os.File) *os.File {
	if preferred != nil {
		return preferred
	}
	return fallback
}
