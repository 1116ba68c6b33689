package crdt

import (
	"io"
	"sync"

	"github.com/cshekharsharma/constdb/internal/wire"
)

// Bytes is a last-writer-wins register over an arbitrary byte string.
//
// Unlike Set/Dict, a Bytes value carries no per-field timestamp of its
// own: its LWW ordering is tied to the *enclosing object's* create_time,
// so the object package is what actually decides a merge winner
// (comparing the two objects' CreateTime fields). What Bytes adds here
// is the tie-break needed when two writes race on the same
// create_time: the writer's node ID, recorded alongside the value so
// WinsOver can resolve the tie deterministically without reaching back
// into the object envelope.
type Bytes struct {
	mu     sync.RWMutex
	value  []byte
	writer uint64
}

// NewBytes returns a Bytes register seeded with value, attributed to writer.
func NewBytes(value []byte, writer uint64) *Bytes {
	return &Bytes{value: append([]byte(nil), value...), writer: writer}
}

// Get returns the current value.
func (b *Bytes) Get() []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]byte(nil), b.value...)
}

// Set overwrites the value and its attributed writer unconditionally.
// Callers decide whether a write may land: the SET handler refuses a
// write whose uuid is older than the object's update_time, and the
// object merge path calls Set only when WinsOver says the other side
// wins. Bytes itself has no notion of "too late" because it does not
// store a timestamp.
func (b *Bytes) Set(value []byte, writer uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.value = append([]byte(nil), value...)
	b.writer = writer
}

// Writer returns the node ID attributed to the current value, used only
// for the create_time tie-break during merge.
func (b *Bytes) Writer() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.writer
}

// WinsOver reports whether a remote write with (otherCreateTime,
// otherWriter) should replace a local write with (selfCreateTime,
// selfWriter): strictly larger create_time wins outright; on a tie the
// larger node ID wins, matching the deterministic total order the
// generator guarantees across (uuid, node_id) pairs.
func WinsOver(selfCreateTime, selfWriter, otherCreateTime, otherWriter uint64) bool {
	if otherCreateTime != selfCreateTime {
		return otherCreateTime > selfCreateTime
	}
	return otherWriter > selfWriter
}

// Describe renders the current value as a reply.
func (b *Bytes) Describe() wire.Message {
	return wire.Bulk(b.Get())
}

// SaveSnapshot writes the value's length-prefixed bytes and the writer
// node ID so a reload preserves enough state to keep tie-breaking
// deterministic.
func (b *Bytes) SaveSnapshot(w io.Writer) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := writeU64(w, b.writer); err != nil {
		return err
	}
	return writeBytesField(w, b.value)
}

// LoadBytesSnapshot is the inverse of SaveSnapshot.
func LoadBytesSnapshot(r io.Reader) (*Bytes, error) {
	writer, err := readU64(r)
	if err != nil {
		return nil, err
	}
	val, err := readBytesField(r)
	if err != nil {
		return nil, err
	}
	return &Bytes{value: val, writer: writer}, nil
}
