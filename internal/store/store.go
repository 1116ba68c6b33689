// Package store holds the key-to-object mapping every command handler
// mutates through. It has no merge or replication logic of its own; it
// is purely the map plus the snapshot codec that ties keys to their
// object envelopes.
package store

import (
	"io"
	"sort"
	"sync"

	"github.com/cshekharsharma/constdb/internal/object"
	"github.com/pkg/errors"
)

// Store is the mapping from key bytes to object envelope. Keys are
// opaque; Query does not filter tombstones, leaving that to callers
// that need to inspect them (a GET on a tombstoned key must see Nil, but a
// DEL replay needs to see the tombstone to decide whether to resurrect).
type Store struct {
	mu   sync.RWMutex
	objs map[string]*object.Object
}

// New returns an empty store.
func New() *Store {
	return &Store{objs: make(map[string]*object.Object)}
}

// Add inserts or replaces the object at key.
func (s *Store) Add(key []byte, obj *object.Object) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objs[string(key)] = obj
}

// Query returns the object at key, or (nil, false) if the key was never
// written. The returned pointer is live-mutable; callers hold no lock
// across a Query return, so mutation paths must re-acquire Store's lock
// via Add if they replace the object wholesale (mutating the CRDT value
// in place through its own locking is safe without doing so).
func (s *Store) Query(key []byte) (*object.Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objs[string(key)]
	return obj, ok
}

// ReplaceAll discards the current contents and adopts other's, used
// when loading a snapshot file over an already-constructed Store at
// startup.
func (s *Store) ReplaceAll(other *Store) {
	other.mu.RLock()
	objs := make(map[string]*object.Object, len(other.objs))
	for k, v := range other.objs {
		objs[k] = v
	}
	other.mu.RUnlock()

	s.mu.Lock()
	s.objs = objs
	s.mu.Unlock()
}

// Delete removes key's entry entirely. The command paths do not call it;
// ordinary deletes go through the object's own tombstone fields so
// deletion itself converges as a CRDT operation.
func (s *Store) Delete(key []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objs, string(key))
}

// Len returns the number of keys currently tracked, tombstoned or not.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objs)
}

// Iterate calls fn for every (key, object) pair in sorted key order,
// stopping early if fn returns false.
func (s *Store) Iterate(fn func(key []byte, obj *object.Object) bool) {
	s.mu.RLock()
	keys := make([]string, 0, len(s.objs))
	for k := range s.objs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	snapshot := make([]*object.Object, len(keys))
	for i, k := range keys {
		snapshot[i] = s.objs[k]
	}
	s.mu.RUnlock()

	for i, k := range keys {
		if !fn([]byte(k), snapshot[i]) {
			return
		}
	}
}

// SaveSnapshot writes every key in sorted order as a length-prefixed key
// followed by the object's own snapshot encoding, producing a
// length-prefixed key-object record stream.
func (s *Store) SaveSnapshot(w io.Writer) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.objs))
	for k := range s.objs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if err := writeU64(w, uint64(len(keys))); err != nil {
		return err
	}
	for _, k := range keys {
		if err := writeBytesField(w, []byte(k)); err != nil {
			return err
		}
		if err := object.SaveSnapshot(w, s.objs[k]); err != nil {
			return errors.Wrapf(err, "store: save object for key %q", k)
		}
	}
	return nil
}

// LoadSnapshot is the inverse of SaveSnapshot. An unrecognized per-object
// encoding tag aborts the whole load, per the wire protocol's bit-exact
// contract.
func LoadSnapshot(r io.Reader) (*Store, error) {
	n, err := readU64(r)
	if err != nil {
		return nil, err
	}
	s := New()
	for i := uint64(0); i < n; i++ {
		key, err := readBytesField(r)
		if err != nil {
			return nil, err
		}
		obj, err := object.LoadSnapshot(r)
		if err != nil {
			return nil, errors.Wrapf(err, "store: load object for key %q", key)
		}
		s.objs[string(key)] = obj
	}
	return s, nil
}
