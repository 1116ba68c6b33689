package store

import (
	"bytes"
	"testing"

	"github.com/cshekharsharma/constdb/internal/object"
)

func TestStore_AddQuery(t *testing.T) {
	s := New()
	s.Add([]byte("k"), object.NewCounter(1))

	obj, ok := s.Query([]byte("k"))
	if !ok || obj.Kind != object.KindCounter {
		t.Fatalf("expected a live counter object, got %+v ok=%v", obj, ok)
	}

	if _, ok := s.Query([]byte("missing")); ok {
		t.Fatalf("expected missing key to report false")
	}
}

func TestStore_QueryDoesNotFilterTombstones(t *testing.T) {
	s := New()
	obj := object.NewCounter(1)
	obj.MarkDeleted(2)
	s.Add([]byte("k"), obj)

	got, ok := s.Query([]byte("k"))
	if !ok {
		t.Fatalf("tombstoned keys must still be returned by Query")
	}
	if got.Alive() {
		t.Fatalf("expected tombstoned object")
	}
}

func TestStore_IterateSortedOrder(t *testing.T) {
	s := New()
	s.Add([]byte("b"), object.NewCounter(1))
	s.Add([]byte("a"), object.NewCounter(1))
	s.Add([]byte("c"), object.NewCounter(1))

	var order []string
	s.Iterate(func(key []byte, obj *object.Object) bool {
		order = append(order, string(key))
		return true
	})
	want := []string{"a", "b", "c"}
	for i, k := range want {
		if order[i] != k {
			t.Fatalf("got order %v, want %v", order, want)
		}
	}
}

func TestStore_ReplaceAllAdoptsOtherContents(t *testing.T) {
	s := New()
	s.Add([]byte("stale"), object.NewCounter(1))

	other := New()
	other.Add([]byte("fresh"), object.NewCounter(2))

	s.ReplaceAll(other)

	if _, ok := s.Query([]byte("stale")); ok {
		t.Fatalf("expected stale key to be gone after ReplaceAll")
	}
	if _, ok := s.Query([]byte("fresh")); !ok {
		t.Fatalf("expected fresh key to be present after ReplaceAll")
	}
}

func TestStore_SnapshotRoundTrip(t *testing.T) {
	s := New()
	c := object.NewCounter(1)
	c.Counter.Change(1, 4, 1)
	s.Add([]byte("counters:a"), c)
	s.Add([]byte("bytes:b"), object.NewBytes([]byte("hi"), 1, 2))

	var buf bytes.Buffer
	if err := s.SaveSnapshot(&buf); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := LoadSnapshot(&buf)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Len() != s.Len() {
		t.Fatalf("expected %d keys, got %d", s.Len(), loaded.Len())
	}
	obj, ok := loaded.Query([]byte("counters:a"))
	if !ok || obj.Counter.Get() != 4 {
		t.Fatalf("counter did not round trip, got %+v ok=%v", obj, ok)
	}
}
