// Package history holds the bounded log of previously run command lines.
package history

import (
	"errors"
	"fmt"
)

const (
	// DefaultCapacity is the number of lines kept when no configuration says
	// otherwise.
	DefaultCapacity = 5
	// DefaultMaxLine is the size of a line buffer including its terminator.
	DefaultMaxLine = 80
)

var (
	// ErrEmptyHistory is returned when recalling from an empty history.
	ErrEmptyHistory = errors.New("No commands in history.")

	// ErrEntryTooLong is returned when a line won't fit in a line buffer.
	ErrEntryTooLong = errors.New("history entry too long")
)

// Store is a fixed capacity log of command lines, oldest first. When full,
// appending evicts the oldest line.
type Store struct {
	capacity int
	maxLine  int
	entries  []string
}

// New creates an empty store holding up to capacity lines, each shorter than
// maxLine bytes.
func New(capacity, maxLine int) (*Store, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("history capacity must be positive, got %d", capacity)
	}
	if maxLine < 2 {
		return nil, fmt.Errorf("history line size must be at least 2, got %d", maxLine)
	}

	return &Store{
		capacity: capacity,
		maxLine:  maxLine,
		entries:  make([]string, 0, capacity),
	}, nil
}

// Append adds line as the newest entry.
func (s *Store) Append(line string) error {
	if len(line) > s.maxLine-1 {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrEntryTooLong, len(line), s.maxLine-1)
	}

	if len(s.entries) == s.capacity {
		copy(s.entries, s.entries[1:])
		s.entries = s.entries[:len(s.entries)-1]
	}
	s.entries = append(s.entries, line)
	return nil
}

// Get returns the entry at index, 0 being the oldest. It panics if index is
// out of range.
func (s *Store) Get(index int) string {
	if index < 0 || index >= len(s.entries) {
		panic(fmt.Sprintf("history index %d out of range [0, %d)", index, len(s.entries)))
	}
	return s.entries[index]
}

// Count returns the number of stored entries.
func (s *Store) Count() int {
	return len(s.entries)
}

// Capacity returns the maximum number of entries.
func (s *Store) Capacity() int {
	return s.capacity
}

// MaxLine returns the line buffer size entries must fit in.
func (s *Store) MaxLine() int {
	return s.maxLine
}

// RepeatLast returns the newest entry.
func (s *Store) RepeatLast() (string, error) {
	if len(s.entries) == 0 {
		return "", ErrEmptyHistory
	}
	return s.entries[len(s.entries)-1], nil
}

// Entries returns a copy of the entries, oldest first.
func (s *Store) Entries() []string {
	out := make([]string, len(s.entries))
	copy(out, s.entries)
	return out
}

// Clear removes all entries.
func (s *Store) Clear() {
	s.entries = s.entries[:0]
}
