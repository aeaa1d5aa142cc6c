package logger

// LogEntry is a single recorded event. Exactly one of the event fields is set.
type LogEntry struct {
	TimestampMicros int64  `json:"timestamp_micros"`
	SessionID       string `json:"session_id,omitempty"`

	RunCommand        *RunCommand        `json:"run_command,omitempty"`
	UnknownCommand    *UnknownCommand    `json:"unknown_command,omitempty"`
	InvalidInvocation *InvalidInvocation `json:"invalid_invocation,omitempty"`
	Builtin           *Builtin           `json:"builtin,omitempty"`
	ChildReaped       *ChildReaped       `json:"child_reaped,omitempty"`
}

// LogType is implemented by every event that can be recorded.
type LogType interface {
	attach(le *LogEntry)
}

// GetLogType returns the event held by the entry or nil.
func (le *LogEntry) GetLogType() LogType {
	switch {
	case le.RunCommand != nil:
		return le.RunCommand
	case le.UnknownCommand != nil:
		return le.UnknownCommand
	case le.InvalidInvocation != nil:
		return le.InvalidInvocation
	case le.Builtin != nil:
		return le.Builtin
	case le.ChildReaped != nil:
		return le.ChildReaped
	default:
		return nil
	}
}

// RunCommand is logged when a process is started.
type RunCommand struct {
	Command    []string `json:"command"`
	Pid        int      `json:"pid"`
	Background bool     `json:"background,omitempty"`
	Stage      int      `json:"stage,omitempty"`
}

func (e *RunCommand) attach(le *LogEntry) { le.RunCommand = e }

// UnknownCommand is logged when a program couldn't be executed.
type UnknownCommand struct {
	Command      []string `json:"command"`
	ErrorMessage string   `json:"error_message"`
}

func (e *UnknownCommand) attach(le *LogEntry) { le.UnknownCommand = e }

// InvalidInvocation is logged when a command line can't be carried out, for
// example because a redirect file couldn't be opened.
type InvalidInvocation struct {
	Command []string `json:"command"`
	Error   string   `json:"error"`
}

func (e *InvalidInvocation) attach(le *LogEntry) { le.InvalidInvocation = e }

// Builtin is logged when a shell builtin runs.
type Builtin struct {
	Command []string `json:"command"`
	Error   string   `json:"error,omitempty"`
}

func (e *Builtin) attach(le *LogEntry) { le.Builtin = e }

// ChildReaped is logged when a background process is reclaimed.
type ChildReaped struct {
	Pid        int    `json:"pid"`
	ExitStatus int    `json:"exit_status"`
	Signal     string `json:"signal,omitempty"`
}

func (e *ChildReaped) attach(le *LogEntry) { le.ChildReaped = e }
