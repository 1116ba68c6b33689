package replica

import "testing"

func TestRegistry_AddThenRemove(t *testing.T) {
	r := NewRegistry()
	if !r.AddReplica("10.0.0.1:9000", 2, "peer-a", 1) {
		t.Fatalf("expected first add to report newly joined")
	}
	if r.AddReplica("10.0.0.1:9000", 2, "peer-a", 2) {
		t.Fatalf("re-adding an already-live peer must not report newly joined")
	}
	if !r.RemoveReplica("10.0.0.1:9000", 3) {
		t.Fatalf("expected remove to report a transition to removed")
	}
	m, ok := r.Get("10.0.0.1:9000")
	if !ok || m.Live() {
		t.Fatalf("expected peer to be tombstoned, got %+v", m)
	}
}

func TestRegistry_RemoveThenReAddConverges(t *testing.T) {
	r := NewRegistry()
	r.AddReplica("p", 1, "a", 1)
	r.RemoveReplica("p", 2)
	if !r.AddReplica("p", 1, "a", 3) {
		t.Fatalf("a later add after a remove must report newly joined")
	}
	m, _ := r.Get("p")
	if !m.Live() {
		t.Fatalf("expected peer to be live again")
	}
}

func TestRegistry_MergeTakesLargerTimestampPerField(t *testing.T) {
	r := NewRegistry()
	r.AddReplica("p", 1, "a", 5)
	r.RemoveReplica("p", 6)

	// a gossiped record with an older remove but newer add should still
	// win on AddedAt while RemovedAt stays at the larger local value.
	r.MergePeer("p", Meta{NodeID: 1, Alias: "a", AddedAt: 7, RemovedAt: 0})
	m, _ := r.Get("p")
	if m.AddedAt != 7 {
		t.Fatalf("expected AddedAt to take the larger value 7, got %d", m.AddedAt)
	}
	if m.RemovedAt != 6 {
		t.Fatalf("expected RemovedAt to keep the larger local value 6, got %d", m.RemovedAt)
	}
	if !m.Live() {
		t.Fatalf("expected peer to be live since AddedAt(7) > RemovedAt(6)")
	}
}

func TestRegistry_GenerateReplicasReplyOnlyListsLivePeers(t *testing.T) {
	r := NewRegistry()
	r.AddReplica("live", 1, "a", 1)
	r.AddReplica("dead", 2, "b", 1)
	r.RemoveReplica("dead", 2)

	reply := r.GenerateReplicasReply(3)
	if len(reply.Items) != 1 {
		t.Fatalf("expected exactly 1 live peer in reply, got %d", len(reply.Items))
	}
}
