// Package lineedit reads a command line one keystroke at a time from a
// terminal in non-canonical mode, echoing edits and recalling history with the
// arrow keys.
package lineedit

import (
	"io"
	"strings"

	"github.com/josephlewis42/osh/core/history"
)

const (
	keyNewline   = '\n'
	keyBackspace = '\b'
	keyEscape    = 27
	keyDelete    = 127
)

type state int

const (
	// stateInput is reading ordinary keystrokes.
	stateInput state = iota
	// stateEscape has seen ESC and waits for the first sequence byte.
	stateEscape
	// stateEscapeSeq has seen ESC and one sequence byte.
	stateEscapeSeq
)

// Editor produces one line of input per ReadLine call.
type Editor struct {
	in      io.ByteReader
	out     io.Writer
	history *history.Store
	maxLine int

	// Per-line state, reset by ReadLine.
	buf       []byte
	histIndex int
}

// New creates an editor reading keystrokes from in and rendering to out. Lines
// are bounded by the history's line size.
func New(in io.Reader, out io.Writer, hist *history.Store) *Editor {
	br, ok := in.(io.ByteReader)
	if !ok {
		br = &unbufferedReader{r: in}
	}

	return &Editor{
		in:      br,
		out:     out,
		history: hist,
		maxLine: hist.MaxLine(),
	}
}

// ReadLine displays prompt and returns the next line without its terminator.
// io.EOF is returned if input ends before anything was typed.
func (e *Editor) ReadLine(prompt string) (string, error) {
	e.write(prompt)
	e.buf = make([]byte, 0, e.maxLine)
	e.histIndex = e.history.Count()

	st := stateInput
	var seq [2]byte

	for len(e.buf) < e.maxLine-1 {
		c, err := e.in.ReadByte()
		if err != nil {
			if err == io.EOF && len(e.buf) > 0 {
				break
			}
			return "", err
		}

		switch st {
		case stateEscape:
			seq[0] = c
			st = stateEscapeSeq
			continue
		case stateEscapeSeq:
			seq[1] = c
			st = stateInput
			e.handleEscape(prompt, seq)
			continue
		}

		if c == keyNewline {
			break
		}

		switch {
		case c == keyDelete || c == keyBackspace:
			if len(e.buf) > 0 {
				e.buf = e.buf[:len(e.buf)-1]
				e.write("\b \b")
			}
		case c == keyEscape:
			st = stateEscape
		case c < ' ' && c != '\t':
			// Unbound control character.
		default:
			e.buf = append(e.buf, c)
			e.out.Write([]byte{c})
		}
	}

	e.write("\n")
	return string(e.buf), nil
}

func (e *Editor) handleEscape(prompt string, seq [2]byte) {
	switch string(seq[:]) {
	case "[A": // Up
		if e.history.Count() > 0 && e.histIndex > 0 {
			e.histIndex--
			e.Show(prompt, e.history.Get(e.histIndex))
		}
	case "[B": // Down
		newest := e.history.Count() - 1
		switch {
		case e.histIndex < newest:
			e.histIndex++
			e.Show(prompt, e.history.Get(e.histIndex))
		case e.histIndex == newest:
			e.histIndex = e.history.Count()
			e.Show(prompt, "")
		}
	}
}

// Show clears the current display line, redraws prompt followed by text and
// makes text the line being edited.
func (e *Editor) Show(prompt, text string) {
	if len(text) > e.maxLine-1 {
		text = text[:e.maxLine-1]
	}

	e.write("\r" + strings.Repeat(" ", e.maxLine) + "\r")
	e.write(prompt)
	e.write(text)
	e.buf = append(e.buf[:0], text...)
}

// Buffer returns the line currently being edited.
func (e *Editor) Buffer() string {
	return string(e.buf)
}

func (e *Editor) write(s string) {
	io.WriteString(e.out, s)
}

// unbufferedReader reads a single byte per call so nothing typed after the
// line terminator is consumed before a child process gets the terminal.
type unbufferedReader struct {
	r   io.Reader
	buf [1]byte
}

func (u *unbufferedReader) ReadByte() (byte, error) {
	if _, err := io.ReadFull(u.r, u.buf[:]); err != nil {
		return 0, err
	}
	return u.buf[0], nil
}
