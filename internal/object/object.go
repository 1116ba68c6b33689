// Package object wraps a single CRDT value in the create/update/delete
// timestamp envelope that gives the store its soft-delete and
// type-stability guarantees. It owns merge dispatch across the four CRDT
// variants and the resurrection-after-delete hook every mutation path
// funnels through.
package object

import (
	"io"

	"github.com/cshekharsharma/constdb/internal/cmderr"
	"github.com/cshekharsharma/constdb/internal/crdt"
	"github.com/cshekharsharma/constdb/internal/wire"
)

// Kind tags which CRDT variant an Object wraps. The numeric values match
// the one-byte encoding tag used on the wire and in snapshots, so they
// must never be renumbered once assigned.
type Kind byte

const (
	KindCounter Kind = 0
	KindBytes   Kind = 3
	KindDict    Kind = 4
	KindSet     Kind = 5
)

func (k Kind) String() string {
	switch k {
	case KindCounter:
		return "counter"
	case KindBytes:
		return "bytes"
	case KindDict:
		return "dict"
	case KindSet:
		return "set"
	default:
		return "unknown"
	}
}

// Object is the envelope every key in the store maps to. Exactly one of
// the variant pointers is non-nil, matching Kind; this is a tagged union
// rather than an interface because merge dispatch needs to match on both
// operands' tags at once, and every variant's mutate operations take
// different argument shapes (spec's own design note rules out a uniform
// CRDT interface here).
type Object struct {
	Kind       Kind
	CreateTime uint64
	UpdateTime uint64
	DeleteTime uint64

	Counter *crdt.Counter
	Bytes   *crdt.Bytes
	Dict    *crdt.Dict
	Set     *crdt.Set
}

// NewCounter creates a live object wrapping an empty Counter.
func NewCounter(uuid uint64) *Object {
	return &Object{Kind: KindCounter, CreateTime: uuid, UpdateTime: uuid, Counter: crdt.NewCounter()}
}

// NewBytes creates a live object wrapping a Bytes register seeded with value.
func NewBytes(value []byte, nodeID, uuid uint64) *Object {
	return &Object{Kind: KindBytes, CreateTime: uuid, UpdateTime: uuid, Bytes: crdt.NewBytes(value, nodeID)}
}

// NewDict creates a live object wrapping an empty Dict.
func NewDict(uuid uint64) *Object {
	return &Object{Kind: KindDict, CreateTime: uuid, UpdateTime: uuid, Dict: crdt.NewDict()}
}

// NewSet creates a live object wrapping an empty Set.
func NewSet(uuid uint64) *Object {
	return &Object{Kind: KindSet, CreateTime: uuid, UpdateTime: uuid, Set: crdt.NewSet()}
}

// Alive reports whether the object is live rather than tombstoned.
func (o *Object) Alive() bool { return o.CreateTime >= o.DeleteTime }

// AsCounter returns the wrapped Counter, or InvalidType if this object is
// not a counter.
func (o *Object) AsCounter() (*crdt.Counter, error) {
	if o.Kind != KindCounter {
		return nil, cmderr.ErrInvalidType()
	}
	return o.Counter, nil
}

// AsBytes returns the wrapped Bytes register, or InvalidType otherwise.
func (o *Object) AsBytes() (*crdt.Bytes, error) {
	if o.Kind != KindBytes {
		return nil, cmderr.ErrInvalidType()
	}
	return o.Bytes, nil
}

// AsDict returns the wrapped Dict, or InvalidType otherwise.
func (o *Object) AsDict() (*crdt.Dict, error) {
	if o.Kind != KindDict {
		return nil, cmderr.ErrInvalidType()
	}
	return o.Dict, nil
}

// AsSet returns the wrapped Set, or InvalidType otherwise.
func (o *Object) AsSet() (*crdt.Set, error) {
	if o.Kind != KindSet {
		return nil, cmderr.ErrInvalidType()
	}
	return o.Set, nil
}

// UpdatedAt raises UpdateTime to at least uuid and, if the object is
// currently tombstoned and uuid has caught up to the delete, resurrects
// it by setting CreateTime := uuid. Every mutating command handler calls
// this after applying its CRDT-level change.
func (o *Object) UpdatedAt(uuid uint64) {
	if uuid > o.UpdateTime {
		o.UpdateTime = uuid
	}
	if o.CreateTime < o.DeleteTime && uuid >= o.DeleteTime {
		o.CreateTime = uuid
	}
}

// DeleteAllowed reports whether a direct user delete at uuid may proceed:
// refused if a later write has already been observed on this object, so
// the delete would otherwise be silently overwritten on merge.
func (o *Object) DeleteAllowed(uuid uint64) bool {
	return o.UpdateTime <= uuid
}

// MarkDeleted applies a direct delete at uuid: raises DeleteTime and
// UpdateTime. Callers must have already checked DeleteAllowed.
func (o *Object) MarkDeleted(uuid uint64) {
	if uuid > o.DeleteTime {
		o.DeleteTime = uuid
	}
	if uuid > o.UpdateTime {
		o.UpdateTime = uuid
	}
}

// Merge folds other into o in place. It requires matching Kind tags;
// a mismatch is TypeConflict, which callers on the replication path log
// and skip rather than propagate to a client.
func (o *Object) Merge(other *Object) error {
	if o.Kind != other.Kind {
		return cmderr.ErrTypeConflict()
	}
	switch o.Kind {
	case KindCounter:
		o.Counter.Merge(other.Counter)
	case KindSet:
		o.Set.Merge(other.Set)
	case KindDict:
		o.Dict.Merge(other.Dict)
	case KindBytes:
		if crdt.WinsOver(o.CreateTime, o.Bytes.Writer(), other.CreateTime, other.Bytes.Writer()) {
			o.Bytes.Set(other.Bytes.Get(), other.Bytes.Writer())
		}
	default:
		return cmderr.ErrInvalidType()
	}
	if other.CreateTime > o.CreateTime {
		o.CreateTime = other.CreateTime
	}
	if other.DeleteTime > o.DeleteTime {
		o.DeleteTime = other.DeleteTime
	}
	if other.UpdateTime > o.UpdateTime {
		o.UpdateTime = other.UpdateTime
	}
	return nil
}

// Describe renders the object as a reply: create_time, update_time,
// delete_time, a type tag string, and the variant's own describe.
func (o *Object) Describe() wire.Message {
	var value wire.Message
	switch o.Kind {
	case KindCounter:
		value = o.Counter.Describe()
	case KindBytes:
		value = o.Bytes.Describe()
	case KindDict:
		value = o.Dict.Describe()
	case KindSet:
		value = o.Set.Describe()
	}
	return wire.Arr([]wire.Message{
		wire.Int(int64(o.CreateTime)),
		wire.Int(int64(o.UpdateTime)),
		wire.Int(int64(o.DeleteTime)),
		wire.Str(o.Kind.String()),
		value,
	})
}

// SaveSnapshot writes ct, ut, dt, the one-byte encoding tag, then the
// variant body, matching the bit-exact layout snapshot readers (this
// node's own loader, and peers during bootstrap) depend on.
func SaveSnapshot(w io.Writer, o *Object) error {
	if err := writeU64(w, o.CreateTime); err != nil {
		return err
	}
	if err := writeU64(w, o.UpdateTime); err != nil {
		return err
	}
	if err := writeU64(w, o.DeleteTime); err != nil {
		return err
	}
	if _, err := w.Write([]byte{byte(o.Kind)}); err != nil {
		return err
	}
	switch o.Kind {
	case KindCounter:
		return o.Counter.SaveSnapshot(w)
	case KindBytes:
		return o.Bytes.SaveSnapshot(w)
	case KindDict:
		return o.Dict.SaveSnapshot(w)
	case KindSet:
		return o.Set.SaveSnapshot(w)
	default:
		return cmderr.ErrInvalidType()
	}
}

// LoadSnapshot is the inverse of SaveSnapshot. An unrecognized tag is
// TypeConflict, per the wire protocol's bit-exact contract: a reader must
// abort the whole snapshot rather than guess at a variant's layout.
func LoadSnapshot(r io.Reader) (*Object, error) {
	ct, err := readU64(r)
	if err != nil {
		return nil, err
	}
	ut, err := readU64(r)
	if err != nil {
		return nil, err
	}
	dt, err := readU64(r)
	if err != nil {
		return nil, err
	}
	tagBuf := make([]byte, 1)
	if _, err := io.ReadFull(r, tagBuf); err != nil {
		return nil, err
	}
	o := &Object{Kind: Kind(tagBuf[0]), CreateTime: ct, UpdateTime: ut, DeleteTime: dt}
	switch o.Kind {
	case KindCounter:
		o.Counter, err = crdt.LoadCounterSnapshot(r)
	case KindBytes:
		o.Bytes, err = crdt.LoadBytesSnapshot(r)
	case KindDict:
		o.Dict, err = crdt.LoadDictSnapshot(r)
	case KindSet:
		o.Set, err = crdt.LoadSetSnapshot(r)
	default:
		return nil, cmderr.ErrTypeConflict()
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}
