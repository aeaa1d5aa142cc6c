package core

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"os/user"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/josephlewis42/osh/core/config"
	"github.com/josephlewis42/osh/core/history"
	"github.com/josephlewis42/osh/core/lineedit"
	"github.com/josephlewis42/osh/core/logger"
	"github.com/josephlewis42/osh/core/proc"
	"github.com/josephlewis42/osh/core/shell"
	"github.com/josephlewis42/osh/core/tty"
)

const (
	EnvHome = "HOME"
	EnvUser = "USER"

	// RepeatCommand re-runs the newest history entry.
	RepeatCommand = "!!"
)

// IO holds the standard streams of a session.
type IO struct {
	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File
}

// Shell is an interactive session: it reads lines, runs builtins and hands
// everything else to the process engine.
type Shell struct {
	Config  *config.Configuration
	History *history.Store
	Editor  *lineedit.Editor
	Engine  *proc.Engine
	Reaper  *proc.Reaper

	// Terminal is nil when stdin isn't a terminal.
	Terminal *tty.Terminal

	// stdout is where builtins write, console always reaches the user.
	stdout  io.Writer
	console io.Writer
	logger  *log.Logger
	events  proc.EventRecorder
	quit    bool
}

// NewShell builds a session on the given streams. The logger and events may
// be nil.
func NewShell(configuration *config.Configuration, streams IO, l *log.Logger, events proc.EventRecorder) (*Shell, error) {
	if streams.Stdin == nil || streams.Stdout == nil {
		return nil, errors.New("shell needs stdin and stdout")
	}
	if l == nil {
		l = log.New(io.Discard, "", 0)
	}

	store, err := history.New(configuration.HistorySize, configuration.MaxLine)
	if err != nil {
		return nil, err
	}
	if configuration.HistoryFile != "" {
		if err := store.Load(configuration.Fs(), configuration.HistoryFile); err != nil {
			l.Printf("couldn't load history: %v", err)
		}
	}

	reaper := proc.NewReaper(l, events)
	engine := &proc.Engine{
		Stdin:  streams.Stdin,
		Stdout: streams.Stdout,
		Stderr: streams.Stderr,
		Reaper: reaper,
		Logger: l,
		Events: events,
	}

	terminal, err := tty.Open(int(streams.Stdin.Fd()))
	switch {
	case err == nil:
		engine.Terminal = terminal
	case errors.Is(err, tty.ErrNotTerminal):
		l.Printf("stdin isn't a terminal, line editing is limited")
	default:
		return nil, err
	}

	return &Shell{
		Config:   configuration,
		History:  store,
		Editor:   lineedit.New(streams.Stdin, streams.Stdout, store),
		Engine:   engine,
		Reaper:   reaper,
		Terminal: terminal,
		stdout:   streams.Stdout,
		console:  streams.Stdout,
		logger:   l,
		events:   events,
	}, nil
}

// Stdout is where builtins write. It follows the line's output redirection.
func (s *Shell) Stdout() io.Writer {
	return s.stdout
}

// Quit ends the session after the current line.
func (s *Shell) Quit() {
	s.quit = true
}

// Prompt expands the configured prompt template.
func (s *Shell) Prompt() string {
	wd, err := os.Getwd()
	if err != nil {
		wd = ""
	}

	short := wd
	if home := os.Getenv(EnvHome); home != "" && strings.HasPrefix(wd, home) {
		short = "~" + strings.TrimPrefix(wd, home)
	}

	host, _ := os.Hostname()

	prompt := strings.NewReplacer(
		`\u`, username(),
		`\h`, host,
		`\w`, short,
		`\W`, wd[strings.LastIndex(wd, "/")+1:],
	).Replace(s.Config.Prompt)

	if s.Config.ColorPrompt {
		prompt = color.New(color.FgGreen, color.Bold).Sprint(prompt)
	}
	return prompt
}

func username() string {
	if name := os.Getenv(EnvUser); name != "" {
		return name
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return ""
}

// Run reads and executes lines until exit or end of input. The terminal is
// left in cooked mode when Run returns.
func (s *Shell) Run() error {
	if s.Terminal != nil {
		if err := s.Terminal.Raw(); err != nil {
			return err
		}
		defer s.Terminal.Restore()
	}

	s.Reaper.Start()
	defer s.Reaper.Stop()

	defer s.catchInterrupts()()

	var runErr error
	for !s.quit {
		s.Reaper.Reap()

		line, err := s.Editor.ReadLine(s.Prompt())
		switch {
		case err == io.EOF:
			fmt.Fprintln(s.console)
			s.quit = true
		case err != nil:
			runErr = err
			s.quit = true
		default:
			s.RunLine(line)
		}
	}

	if s.Config.HistoryFile != "" {
		if err := s.History.Save(s.Config.Fs(), s.Config.HistoryFile); err != nil {
			s.logger.Printf("couldn't save history: %v", err)
		}
	}

	if s.Config.ExitBanner != "" {
		fmt.Fprintln(s.console, s.Config.ExitBanner)
	}
	return runErr
}

// catchInterrupts keeps Ctrl-C from killing the shell until the returned
// function is called. Children get the default disposition back when they
// exec, so the interrupt still stops a foreground program.
func (s *Shell) catchInterrupts() (stop func()) {
	sigs := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(sigs, os.Interrupt)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-sigs:
				s.logger.Printf("interrupt")
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(sigs)
		close(done)
		wg.Wait()
	}
}

// RunLine executes a single line of input.
func (s *Shell) RunLine(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}

	if line == "exit" {
		s.runBuiltin([]string{"exit"})
		return
	}

	if line == RepeatCommand {
		last, err := s.History.RepeatLast()
		if err != nil {
			fmt.Fprintln(s.console, err)
			s.record(&logger.Builtin{Command: []string{RepeatCommand}, Error: err.Error()})
			return
		}
		line = last
		fmt.Fprintf(s.console, "Previous command: \"%s\"\n", line)
	}

	cmd := shell.Parse(line)

	// Listing history doesn't add to it.
	if cmd.Name() != "history" {
		if err := s.History.Append(line); err != nil {
			s.logger.Printf("couldn't add to history: %v", err)
		}
	}

	if _, ok := AllBuiltins[cmd.Name()]; ok {
		s.runBuiltinCommand(cmd)
		return
	}

	if err := s.Engine.Execute(cmd); err != nil {
		s.printError(err)
	}
}

// runBuiltinCommand runs a builtin in the shell process. Only output
// redirection applies to it.
func (s *Shell) runBuiltinCommand(cmd *shell.ParsedCommand) {
	if cmd.Piped() || cmd.Background || cmd.InputFile != "" {
		err := &builtinError{
			kind: ErrUnsupportedOperator,
			msg:  fmt.Sprintf("\"%s\" only supports output redirection", cmd.Name()),
		}
		s.recordBuiltin(strings.Fields(cmd.String()), err)
		s.printError(err)
		return
	}

	if cmd.OutputFile != "" {
		f, err := os.OpenFile(cmd.OutputFile, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			s.printError(&proc.RedirectError{Path: cmd.OutputFile, Err: err})
			return
		}
		defer f.Close()

		stdout := s.stdout
		s.stdout = f
		defer func() { s.stdout = stdout }()
	}

	s.runBuiltin(cmd.Argv())
}

func (s *Shell) runBuiltin(args []string) int {
	builtin := AllBuiltins[args[0]]
	return builtin.Main(s, args)
}

func (s *Shell) printError(err error) {
	fmt.Fprintf(s.console, "Error: %v\n", err)
}

func (s *Shell) record(event logger.LogType) {
	if s.events == nil {
		return
	}
	if err := s.events.Record(event); err != nil {
		s.logger.Printf("couldn't record event: %v", err)
	}
}
