// Package identity persists a node's (node_id, alias, UUID high-water
// mark) across restarts in a small embedded bbolt database, so the
// generator in internal/uuidgen never reissues a UUID it handed out
// before a restart. Grounded on the orchestrator service's WorkflowStore
// in the SWARM example pack: bbolt.Open with a short timeout, one bucket
// created up front, values read/written inside db.View/db.Update.
package identity

import (
	"encoding/binary"
	"time"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"
)

var bucketIdentity = []byte("identity")

const (
	keyNodeID   = "node_id"
	keyAlias    = "node_alias"
	keyHighMark = "uuid_high_water_mark"
)

// Identity is a node's persisted self-identification plus the last UUID
// it is known to have issued.
type Identity struct {
	NodeID        uint64
	Alias         string
	HighWaterMark uint64
}

// Store wraps a bbolt database holding one node's Identity.
type Store struct {
	db *bbolt.DB
}

// Open opens (creating if necessary) the identity database at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "identity: open %s", path)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketIdentity)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "identity: create bucket")
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database file.
func (s *Store) Close() error { return s.db.Close() }

// Load reads the persisted identity. A never-initialized database
// returns a zero-valued Identity, not an error: a first-boot node has
// no identity yet and acquires one through the `node` command.
func (s *Store) Load() (Identity, error) {
	var id Identity
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketIdentity)
		if v := b.Get([]byte(keyNodeID)); v != nil {
			id.NodeID = binary.BigEndian.Uint64(v)
		}
		if v := b.Get([]byte(keyAlias)); v != nil {
			id.Alias = string(v)
		}
		if v := b.Get([]byte(keyHighMark)); v != nil {
			id.HighWaterMark = binary.BigEndian.Uint64(v)
		}
		return nil
	})
	if err != nil {
		return Identity{}, errors.Wrap(err, "identity: load")
	}
	return id, nil
}

// Save persists id, overwriting whatever was stored before.
func (s *Store) Save(id Identity) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketIdentity)
		var nodeIDBuf, markBuf [8]byte
		binary.BigEndian.PutUint64(nodeIDBuf[:], id.NodeID)
		binary.BigEndian.PutUint64(markBuf[:], id.HighWaterMark)
		if err := b.Put([]byte(keyNodeID), nodeIDBuf[:]); err != nil {
			return err
		}
		if err := b.Put([]byte(keyAlias), []byte(id.Alias)); err != nil {
			return err
		}
		return b.Put([]byte(keyHighMark), markBuf[:])
	})
	if err != nil {
		return errors.Wrap(err, "identity: save")
	}
	return nil
}

// SaveHighWaterMark persists only the UUID high-water mark: node
// identity rarely changes, but the mark advances on every UUID issued,
// so this path skips rewriting the rest of the record.
func (s *Store) SaveHighWaterMark(mark uint64) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], mark)
		return tx.Bucket(bucketIdentity).Put([]byte(keyHighMark), buf[:])
	})
	if err != nil {
		return errors.Wrap(err, "identity: save high-water mark")
	}
	return nil
}
