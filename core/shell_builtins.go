package core

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/josephlewis42/osh/core/logger"
	"github.com/pborman/getopt/v2"
)

var (
	// ErrMissingArgument is matched by builtin invocations missing a required
	// argument.
	ErrMissingArgument = errors.New("missing argument")

	// ErrDirectoryNotFound is matched when cd can't enter a directory.
	ErrDirectoryNotFound = errors.New("directory not found")

	// ErrUnsupportedOperator is matched when a builtin is piped, backgrounded
	// or given an input file.
	ErrUnsupportedOperator = errors.New("unsupported operator for builtin")
)

// builtinError carries the message shown to the user along with the kind of
// failure.
type builtinError struct {
	kind error
	msg  string
	err  error
}

func (e *builtinError) Error() string {
	return e.msg
}

func (e *builtinError) Unwrap() error {
	return e.err
}

func (e *builtinError) Is(target error) bool {
	return target == e.kind
}

// AllBuiltins holds a list of all registered shell builtins
var AllBuiltins = make(map[string]ShellBuiltin)

type ShellBuiltin interface {
	Main(s *Shell, args []string) int
}

type ShellBuiltinFunc func(s *Shell, args []string) int

func (f ShellBuiltinFunc) Main(s *Shell, args []string) int {
	return f(s, args)
}

var _ ShellBuiltin = (ShellBuiltinFunc)(nil)

// ChangeDir moves the shell, and so every future child, to the directory
// named by args[1].
func (s *Shell) ChangeDir(args []string) error {
	if len(args) < 2 {
		return &builtinError{
			kind: ErrMissingArgument,
			msg:  fmt.Sprintf("\"%s\" requires a directory", args[0]),
		}
	}

	if err := os.Chdir(args[1]); err != nil {
		return &builtinError{
			kind: ErrDirectoryNotFound,
			msg:  fmt.Sprintf("\"%s\" is not a recognized directory", args[1]),
			err:  err,
		}
	}
	return nil
}

// Cd is the cd shell builtin
func Cd(s *Shell, args []string) int {
	err := s.ChangeDir(args)
	s.recordBuiltin(args, err)
	if err != nil {
		s.printError(err)
		return 1
	}
	return 0
}

// Exit quits the shell
func Exit(s *Shell, args []string) int {
	s.recordBuiltin(args, nil)
	s.Quit()
	return 0
}

// History lists the remembered commands, oldest first.
func History(s *Shell, args []string) int {
	opts := getopt.New()
	clear := opts.Bool('c', "clear the history by deleting all entries")
	helpOpt := opts.BoolLong("help", 'h', "show help and exit")

	w := s.Stdout()
	if err := opts.Getopt(args, nil); err != nil || *helpOpt {
		if err != nil {
			fmt.Fprintln(w, err)
		}
		fmt.Fprintln(w, "usage: history [-c]")
		fmt.Fprintln(w, "Display the history list with line numbers.")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Options:")
		opts.PrintOptions(w)
		s.recordBuiltin(args, err)
		return 1
	}

	s.recordBuiltin(args, nil)
	if *clear {
		s.History.Clear()
		return 0
	}

	for i, line := range s.History.Entries() {
		fmt.Fprintf(w, "%d\t%s\n", i, line)
	}
	return 0
}

func Help(s *Shell, args []string) int {
	s.recordBuiltin(args, nil)

	w := s.Stdout()
	fmt.Fprintln(w, "These shell commands are defined internally.")
	fmt.Fprintf(w, "Type `%s' to repeat the last command.\n", RepeatCommand)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Builtins:")
	fmt.Fprintln(w)

	for _, name := range BuiltinNames() {
		fmt.Fprintln(w, name)
	}
	return 0
}

// BuiltinNames returns the registered builtins in sorted order.
func BuiltinNames() []string {
	var names []string
	for name := range AllBuiltins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Shell) recordBuiltin(args []string, err error) {
	event := &logger.Builtin{Command: args}
	if err != nil {
		event.Error = err.Error()
	}
	s.record(event)
}

func init() {
	AllBuiltins["cd"] = ShellBuiltinFunc(Cd)
	AllBuiltins["history"] = ShellBuiltinFunc(History)
	AllBuiltins["help"] = ShellBuiltinFunc(Help)
	AllBuiltins["exit"] = ShellBuiltinFunc(Exit)
}
