package object

import (
	"bytes"
	"errors"
	"testing"

	"github.com/cshekharsharma/constdb/internal/cmderr"
)

func TestObject_TombstoneThenResurrect(t *testing.T) {
	o := NewCounter(1)
	o.MarkDeleted(2)
	if o.Alive() {
		t.Fatalf("expected tombstoned object")
	}

	o.UpdatedAt(5)
	if !o.Alive() {
		t.Fatalf("expected a write past delete_time to resurrect the object")
	}
	if o.CreateTime != 5 {
		t.Fatalf("expected create_time to advance to the resurrecting uuid, got %d", o.CreateTime)
	}
}

func TestObject_DeleteAllowedGuard(t *testing.T) {
	o := NewCounter(1)
	o.UpdatedAt(10)
	if o.DeleteAllowed(5) {
		t.Fatalf("a delete older than the last observed write must be refused")
	}
	if !o.DeleteAllowed(10) {
		t.Fatalf("a delete at exactly update_time must be allowed")
	}
}

func TestObject_MergeTypeConflict(t *testing.T) {
	counter := NewCounter(1)
	set := NewSet(1)
	err := counter.Merge(set)
	var cerr *cmderr.Error
	if !errors.As(err, &cerr) || cerr.Kind != cmderr.TypeConflict {
		t.Fatalf("expected TypeConflict, got %v", err)
	}
}

func TestObject_MergeCounterSumsAndAdvancesEnvelope(t *testing.T) {
	a := NewCounter(1)
	a.Counter.Change(1, 5, 2)
	b := NewCounter(1)
	b.Counter.Change(2, 7, 3)
	b.DeleteTime = 3

	if err := a.Merge(b); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if a.Counter.Get() != 12 {
		t.Fatalf("expected summed value 12, got %d", a.Counter.Get())
	}
	if a.DeleteTime != 3 {
		t.Fatalf("expected delete_time to take other's max, got %d", a.DeleteTime)
	}
}

func TestObject_MergeBytesTieBrokenByNodeID(t *testing.T) {
	a := NewBytes([]byte("x"), 5, 10)
	b := NewBytes([]byte("y"), 9, 10)

	if err := a.Merge(b); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if string(a.Bytes.Get()) != "y" {
		t.Fatalf("expected the larger writer id to win the create_time tie, got %q", a.Bytes.Get())
	}
}

func TestObject_SnapshotRoundTrip(t *testing.T) {
	o := NewDict(1)

	var buf bytes.Buffer
	if err := SaveSnapshot(&buf, o); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := LoadSnapshot(&buf)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Kind != KindDict || loaded.CreateTime != o.CreateTime {
		t.Fatalf("round trip mismatch: %+v", loaded)
	}
}

func TestObject_SnapshotUnknownTagIsTypeConflict(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(make([]byte, 24)) // ct, ut, dt
	buf.WriteByte(0xFF)         // unrecognized tag
	_, err := LoadSnapshot(&buf)
	var cerr *cmderr.Error
	if !errors.As(err, &cerr) || cerr.Kind != cmderr.TypeConflict {
		t.Fatalf("expected TypeConflict on unknown tag, got %v", err)
	}
}
