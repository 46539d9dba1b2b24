package fsutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ExpandHome expands a leading '~' to the user's home directory.
func ExpandHome(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}

// OptionalFile expands path and reports whether a regular file is there.
// A missing file is not an error; a directory or unreadable entry is.
func OptionalFile(path string) (string, bool, error) {
	p, err := ExpandHome(path)
	if err != nil || p == "" {
		return p, false, err
	}
	fi, err := os.Stat(p)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return p, false, nil
	case err != nil:
		return p, false, err
	case fi.IsDir():
		return p, false, fmt.Errorf("%s is a directory", p)
	}
	return p, true, nil
}
