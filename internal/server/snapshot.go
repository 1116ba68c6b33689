package server

import (
	"os"

	"github.com/cshekharsharma/constdb/internal/store"
	"github.com/pkg/errors"
)

// LoadSnapshotFile replaces the server's store with the contents of
// path, used once at startup. A missing file means a fresh node with
// an empty store, not an error.
func (s *Server) LoadSnapshotFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "server: open snapshot %s", path)
	}
	defer f.Close()

	loaded, err := store.LoadSnapshot(f)
	if err != nil {
		return errors.Wrapf(err, "server: load snapshot %s", path)
	}
	s.store.ReplaceAll(loaded)
	return nil
}

// SaveSnapshotFile atomically replaces path with the store's current
// contents: write to a temp file in the same directory, then rename, so
// a crash mid-write never leaves a half-written snapshot on disk.
func (s *Server) SaveSnapshotFile(path string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return errors.Wrapf(err, "server: create %s", tmp)
	}
	if err := s.store.SaveSnapshot(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return errors.Wrapf(err, "server: write snapshot %s", tmp)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, "server: close %s", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrapf(err, "server: rename %s to %s", tmp, path)
	}
	return nil
}
