// Package shell turns a line of input into a command request.
//
// The grammar is intentionally small: words are separated by runs of
// whitespace and there is no quoting or expansion. Four operator words are
// recognized anywhere on the line:
//
//	&     run the command in the background
//	< F   read standard input from F
//	> F   write standard output to F, truncating it
//	|     connect the standard output of the first stage to the second
package shell

import "strings"

const (
	OpBackground  = "&"
	OpRedirectIn  = "<"
	OpRedirectOut = ">"
	OpPipe        = "|"
)

// ParsedCommand is the result of parsing one line.
type ParsedCommand struct {
	// Stages holds the argument vector of each pipeline stage. A dangling pipe
	// leaves an empty stage.
	Stages [][]string

	// InputFile is redirected to the first stage's standard input if set.
	InputFile string
	// OutputFile receives the last stage's standard output if set.
	OutputFile string

	Background bool
}

// Parse splits line into words and interprets operators. It never fails: an
// operator missing its file name is treated as no redirection.
func Parse(line string) *ParsedCommand {
	cmd := &ParsedCommand{
		Stages: [][]string{nil},
	}

	tokens := strings.Fields(line)
	for i := 0; i < len(tokens); i++ {
		switch tok := tokens[i]; tok {
		case OpBackground:
			cmd.Background = true
		case OpRedirectIn:
			if i+1 < len(tokens) {
				i++
				cmd.InputFile = tokens[i]
			}
		case OpRedirectOut:
			if i+1 < len(tokens) {
				i++
				cmd.OutputFile = tokens[i]
			}
		case OpPipe:
			cmd.Stages = append(cmd.Stages, nil)
		default:
			last := len(cmd.Stages) - 1
			cmd.Stages[last] = append(cmd.Stages[last], tok)
		}
	}

	return cmd
}

// Argv returns the arguments of the first stage.
func (c *ParsedCommand) Argv() []string {
	return c.Stages[0]
}

// PipeArgv returns the arguments of the second stage or nil if there's no
// pipe.
func (c *ParsedCommand) PipeArgv() []string {
	if len(c.Stages) < 2 {
		return nil
	}
	return c.Stages[1]
}

// Piped reports whether the line contained a pipe.
func (c *ParsedCommand) Piped() bool {
	return len(c.Stages) > 1
}

// PipeSplit returns the number of words before the pipe, or -1 if there's
// no pipe.
func (c *ParsedCommand) PipeSplit() int {
	if !c.Piped() {
		return -1
	}
	return len(c.Stages[0])
}

// Empty reports whether there's nothing to run.
func (c *ParsedCommand) Empty() bool {
	for _, stage := range c.Stages {
		if len(stage) > 0 {
			return false
		}
	}
	return true
}

// Name returns the program name of the first non-empty stage.
func (c *ParsedCommand) Name() string {
	for _, stage := range c.Stages {
		if len(stage) > 0 {
			return stage[0]
		}
	}
	return ""
}

// String reassembles the command in canonical form.
func (c *ParsedCommand) String() string {
	var words []string
	for i, stage := range c.Stages {
		if i > 0 {
			words = append(words, OpPipe)
		}
		words = append(words, stage...)
	}
	if c.InputFile != "" {
		words = append(words, OpRedirectIn, c.InputFile)
	}
	if c.OutputFile != "" {
		words = append(words, OpRedirectOut, c.OutputFile)
	}
	if c.Background {
		words = append(words, OpBackground)
	}
	return strings.Join(words, " ")
}
