package crdt

import (
	"io"
	"sort"
	"sync"

	"github.com/cshekharsharma/constdb/internal/wire"
)

type dictEntry struct {
	value    []byte
	addTS    uint64
	removeTS uint64
}

// FieldValue is one (field, value) pair accepted by SetFields.
type FieldValue struct {
	Field []byte
	Value []byte
}

// Dict is a last-writer-wins field dictionary: each field carries a value
// alongside an add timestamp and remove timestamp, visible iff
// addTS > removeTS. Merge keeps, per field, the (value, addTS) pair with
// the larger addTS and the max removeTS independently.
type Dict struct {
	mu     sync.RWMutex
	fields map[string]*dictEntry
}

// NewDict returns an empty dict.
func NewDict() *Dict {
	return &Dict{fields: make(map[string]*dictEntry)}
}

// SetFields applies each (field, value) pair if uuid is newer than that
// field's current addTS, replacing both the value and the addTS.
func (d *Dict) SetFields(pairs []FieldValue, uuid uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, p := range pairs {
		key := string(p.Field)
		e, ok := d.fields[key]
		if !ok {
			e = &dictEntry{}
			d.fields[key] = e
		}
		if uuid > e.addTS {
			e.value = append([]byte(nil), p.Value...)
			e.addTS = uuid
		}
	}
}

// DelFields raises removeTS to max(removeTS, uuid) for each field.
func (d *Dict) DelFields(fieldNames [][]byte, uuid uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, f := range fieldNames {
		key := string(f)
		e, ok := d.fields[key]
		if !ok {
			e = &dictEntry{}
			d.fields[key] = e
		}
		if uuid > e.removeTS {
			e.removeTS = uuid
		}
	}
}

// RemoveAllLiveAt tombstones every currently visible field at uuid. This
// is what DELDICT replays, mirroring Set.RemoveAllLiveAt.
func (d *Dict) RemoveAllLiveAt(uuid uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, e := range d.fields {
		if e.addTS > e.removeTS && uuid > e.removeTS {
			e.removeTS = uuid
		}
	}
}

// Get returns a field's value if it is currently visible.
func (d *Dict) Get(field []byte) ([]byte, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.fields[string(field)]
	if !ok || e.addTS <= e.removeTS {
		return nil, false
	}
	return append([]byte(nil), e.value...), true
}

// IterVisible returns every currently visible field, sorted by name.
func (d *Dict) IterVisible() []FieldValue {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []FieldValue
	for _, k := range sortedDictKeys(d.fields) {
		e := d.fields[k]
		if e.addTS > e.removeTS {
			out = append(out, FieldValue{Field: []byte(k), Value: append([]byte(nil), e.value...)})
		}
	}
	return out
}

// IterAll returns every field name this dict has ever held, live or not.
func (d *Dict) IterAll() [][]byte {
	d.mu.RLock()
	defer d.mu.RUnlock()
	keys := sortedDictKeys(d.fields)
	out := make([][]byte, len(keys))
	for i, k := range keys {
		out[i] = []byte(k)
	}
	return out
}

// Merge keeps, per field, the larger-addTS (value, addTS) pair and the
// max removeTS.
func (d *Dict) Merge(other *Dict) {
	d.mu.Lock()
	defer d.mu.Unlock()
	other.mu.RLock()
	defer other.mu.RUnlock()
	for k, oe := range other.fields {
		e, ok := d.fields[k]
		if !ok {
			e = &dictEntry{}
			d.fields[k] = e
		}
		if oe.addTS > e.addTS {
			e.value = append([]byte(nil), oe.value...)
			e.addTS = oe.addTS
		}
		if oe.removeTS > e.removeTS {
			e.removeTS = oe.removeTS
		}
	}
}

// Describe renders the visible fields as a flat [field, value, ...] reply.
func (d *Dict) Describe() wire.Message {
	visible := d.IterVisible()
	items := make([]wire.Message, 0, len(visible)*2)
	for _, fv := range visible {
		items = append(items, wire.Bulk(fv.Field), wire.Bulk(fv.Value))
	}
	return wire.Arr(items)
}

// SaveSnapshot writes every field (live or tombstoned), sorted by name.
func (d *Dict) SaveSnapshot(w io.Writer) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	keys := sortedDictKeys(d.fields)
	if err := writeU64(w, uint64(len(keys))); err != nil {
		return err
	}
	for _, k := range keys {
		e := d.fields[k]
		if err := writeBytesField(w, []byte(k)); err != nil {
			return err
		}
		if err := writeBytesField(w, e.value); err != nil {
			return err
		}
		if err := writeU64(w, e.addTS); err != nil {
			return err
		}
		if err := writeU64(w, e.removeTS); err != nil {
			return err
		}
	}
	return nil
}

// LoadDictSnapshot is the inverse of SaveSnapshot.
func LoadDictSnapshot(r io.Reader) (*Dict, error) {
	n, err := readU64(r)
	if err != nil {
		return nil, err
	}
	d := NewDict()
	for i := uint64(0); i < n; i++ {
		field, err := readBytesField(r)
		if err != nil {
			return nil, err
		}
		value, err := readBytesField(r)
		if err != nil {
			return nil, err
		}
		addTS, err := readU64(r)
		if err != nil {
			return nil, err
		}
		removeTS, err := readU64(r)
		if err != nil {
			return nil, err
		}
		d.fields[string(field)] = &dictEntry{value: value, addTS: addTS, removeTS: removeTS}
	}
	return d, nil
}

func sortedDictKeys(m map[string]*dictEntry) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
