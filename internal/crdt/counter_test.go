package crdt

import (
	"bytes"
	"testing"
)

func TestCounter_Convergence(t *testing.T) {
	a := NewCounter()
	b := NewCounter()

	a.Change(1, 3, 5)  // node 1 incr by 3 at uuid 5
	b.Change(2, 4, 6)  // node 2 incr by 4 at uuid 6
	a.Change(1, -1, 7) // node 1 decr by 1 at uuid 7

	a.Merge(b)
	b.Merge(a)

	if a.Get() != 6 || b.Get() != 6 {
		t.Fatalf("expected convergence at 6, got a=%d b=%d", a.Get(), b.Get())
	}

	a.Merge(b)
	if a.Get() != 6 {
		t.Fatalf("idempotency failed: expected 6, got %d", a.Get())
	}
}

func TestCounter_StaleChangeIsNoOp(t *testing.T) {
	c := NewCounter()
	c.Change(1, 10, 5)
	c.Change(1, 100, 3) // older uuid, must not apply
	if c.Get() != 10 {
		t.Fatalf("expected 10, got %d", c.Get())
	}
}

func TestCounter_SnapshotRoundTrip(t *testing.T) {
	c := NewCounter()
	c.Change(1, 5, 1)
	c.Change(2, -2, 2)

	var buf bytes.Buffer
	if err := c.SaveSnapshot(&buf); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := LoadCounterSnapshot(&buf)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Get() != c.Get() {
		t.Fatalf("round trip mismatch: got %d want %d", loaded.Get(), c.Get())
	}
}
