package history

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// Load appends the lines stored in path to the store. A missing file is not
// an error. Lines that are too long for the store are skipped.
func (s *Store) Load(fsys afero.Fs, path string) error {
	fd, err := fsys.Open(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil
	case err != nil:
		return err
	}
	defer fd.Close()

	scanner := bufio.NewScanner(fd)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if err := s.Append(line); errors.Is(err, ErrEntryTooLong) {
			continue
		}
	}

	return scanner.Err()
}

// Save replaces the contents of path with the store's entries, one per line.
func (s *Store) Save(fsys afero.Fs, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := fsys.MkdirAll(dir, 0700); err != nil {
			return err
		}
	}

	fd, err := fsys.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(fd)
	for _, line := range s.entries {
		fmt.Fprintln(w, line)
	}
	if err := w.Flush(); err != nil {
		fd.Close()
		return err
	}
	return fd.Close()
}
