package identity

import (
	"path/filepath"
	"testing"
)

func TestStore_SaveThenReloadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Save(Identity{NodeID: 4, Alias: "node-d", HighWaterMark: 1234}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	id, err := s2.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if id.NodeID != 4 || id.Alias != "node-d" || id.HighWaterMark != 1234 {
		t.Fatalf("unexpected identity after reload: %+v", id)
	}
}

func TestStore_LoadOnFreshDatabaseIsZeroValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()
	id, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if id != (Identity{}) {
		t.Fatalf("expected zero-value identity, got %+v", id)
	}
}

func TestStore_SaveHighWaterMarkLeavesIdentityIntact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()
	if err := s.Save(Identity{NodeID: 9, Alias: "node-i", HighWaterMark: 1}); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveHighWaterMark(99); err != nil {
		t.Fatalf("SaveHighWaterMark: %v", err)
	}
	id, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if id.NodeID != 9 || id.Alias != "node-i" || id.HighWaterMark != 99 {
		t.Fatalf("unexpected identity: %+v", id)
	}
}
