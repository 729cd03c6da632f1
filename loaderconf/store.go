// This file is part of sdbootctl
// SPDX-License-Identifier: GPL-3.0-only

package loaderconf

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FS is the slice of filesystem behaviour the store needs. It is satisfied
// by the kernelmgr filesystem abstraction.
type FS interface {
	Open(path string) (io.ReadSeekCloser, error)
	Create(path string) (io.WriteCloser, error)
	MkdirAll(path string, perm os.FileMode) error
}

// Store is a load-modify-write handle on a loader directory.
//
// A single invocation must create exactly one Store and share it between
// all call sites mutating the default pointer; a second in-memory copy
// would silently undo writes made through the first.
type Store struct {
	fs  FS
	dir string

	Conf *Config
}

// Load reads loader.conf from the given loader directory. A missing file
// yields an empty configuration rather than an error, matching a freshly
// initialized ESP.
func Load(fs FS, dir string) (*Store, error) {
	store := &Store{fs: fs, dir: dir, Conf: &Config{}}

	f, err := fs.Open(store.path())
	if err != nil {
		if os.IsNotExist(err) {
			return store, nil
		}
		return nil, fmt.Errorf("cannot open %s: %w", store.path(), err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", store.path(), err)
	}
	store.Conf, err = ParseConfig(data)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// Write writes the configuration back to loader.conf, creating the loader
// directory if needed.
func (s *Store) Write() error {
	if err := s.fs.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("cannot create %s: %w", s.dir, err)
	}
	f, err := s.fs.Create(s.path())
	if err != nil {
		return fmt.Errorf("cannot open %s for writing: %w", s.path(), err)
	}
	defer f.Close()
	if _, err := f.Write(s.Conf.Render()); err != nil {
		return fmt.Errorf("cannot write %s: %w", s.path(), err)
	}
	return nil
}

func (s *Store) path() string {
	return filepath.Join(s.dir, "loader.conf")
}
