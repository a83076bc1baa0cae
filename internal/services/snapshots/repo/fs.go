// Package repo implements the snapshot directory store on the local filesystem
package repo

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/natefinch/atomic"

	perr "ordsnap/internal/platform/errors"
	"ordsnap/internal/platform/logger"
)

// Store reads and writes snapshot files in a single flat directory.
// Filenames are the only index: kind and timestamp are embedded so that a
// descending name sort yields newest-first
type Store struct {
	dir string
	log logger.Logger
}

// New builds a Store rooted at dir
func New(dir string) *Store {
	return &Store{dir: dir, log: *logger.Named("snapstore")}
}

// Dir returns the snapshot directory path
func (s *Store) Dir() string { return s.dir }

// EnsureDir creates the snapshot directory if absent; never errors when it
// already exists
func (s *Store) EnsureDir() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeIO, "ensure snapshot dir %s", s.dir)
	}
	return nil
}

// Write persists data under name, creating the directory first. The write
// goes through a temp file and rename so readers never observe a torn file
func (s *Store) Write(name string, data []byte) (string, error) {
	if err := s.EnsureDir(); err != nil {
		return "", err
	}
	path := filepath.Join(s.dir, name)
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return "", perr.Wrapf(err, perr.ErrorCodeIO, "write snapshot %s", name)
	}
	return path, nil
}

// Read returns the full content of name
func (s *Store) Read(name string) ([]byte, error) {
	b, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeIO, "read snapshot %s", name)
	}
	return b, nil
}

// List returns the .json filenames in the snapshot directory, sorted
// descending so timestamp-embedded names come newest first
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, perr.Wrapf(err, perr.ErrorCodeIO, "list snapshot dir %s", s.dir)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

// Size returns the byte size of name
func (s *Store) Size(name string) (int64, error) {
	fi, err := os.Stat(filepath.Join(s.dir, name))
	if err != nil {
		return 0, perr.Wrapf(err, perr.ErrorCodeIO, "stat snapshot %s", name)
	}
	return fi.Size(), nil
}
