package command

import (
	"testing"

	"github.com/cshekharsharma/constdb/internal/repllog"
	"github.com/cshekharsharma/constdb/internal/store"
	"github.com/cshekharsharma/constdb/internal/uuidgen"
	"github.com/cshekharsharma/constdb/internal/wire"
)

// replLogAdapter satisfies ReplLogOps over a *repllog.Log.
type replLogAdapter struct{ log *repllog.Log }

func (a replLogAdapter) At(uuid uint64) (ReplLogRecord, bool) {
	rec, ok := a.log.At(uuid)
	if !ok {
		return ReplLogRecord{}, false
	}
	return ReplLogRecord{UUID: rec.UUID, Name: rec.Name, Args: rec.Args}, true
}
func (a replLogAdapter) UUIDs() []uint64 { return a.log.UUIDs() }
func (a replLogAdapter) Len() int        { return a.log.Len() }

type noopReplicas struct{}

func (noopReplicas) AddReplica(addr string, meta ReplicaMeta, uuid uint64) bool    { return true }
func (noopReplicas) RemoveReplica(addr string, uuid uint64) bool                  { return true }
func (noopReplicas) GenerateReplicasReply(uuid uint64) wire.Message               { return wire.Arr(nil) }
func (noopReplicas) BeginSync(client ClientHandle, meta ReplicaMeta, uuid uint64) {}
func (noopReplicas) BeginMeet(addr string, uuid uint64) (bool, error)             { return true, nil }

type noopMetrics struct{ processed int }

func (m *noopMetrics) IncrCommandsProcessed() { m.processed++ }

// fakeServer is a minimal, single-node in-memory Server used to exercise
// the command engine end to end without a real network or replication
// stack.
type fakeServer struct {
	store   *store.Store
	log     *repllog.Log
	gen     *uuidgen.Generator
	nodeID  uint64
	alias   string
	metrics *noopMetrics
}

func newFakeServer(nodeID uint64) *fakeServer {
	return &fakeServer{
		store:   store.New(),
		log:     repllog.New(1000),
		gen:     uuidgen.New(),
		nodeID:  nodeID,
		metrics: &noopMetrics{},
	}
}

func (f *fakeServer) Store() StoreOps                { return f.store }
func (f *fakeServer) ReplicationLog() ReplLogOps      { return replLogAdapter{f.log} }
func (f *fakeServer) Replicas() ReplicaOps            { return noopReplicas{} }
func (f *fakeServer) NodeID() uint64                  { return f.nodeID }
func (f *fakeServer) SetNodeID(id uint64)             { f.nodeID = id }
func (f *fakeServer) NodeAlias() string                { return f.alias }
func (f *fakeServer) SetNodeAlias(alias string)        { f.alias = alias }
func (f *fakeServer) NextUUID(isWrite bool) uint64     { return f.gen.Next(isWrite) }
func (f *fakeServer) Metrics() MetricsOps              { return f.metrics }

func mustExec(t *testing.T, s Server, name string, args ...wire.Message) wire.Message {
	t.Helper()
	reply, shouldReplicate, uuid, err := Exec(s, nil, name, args)
	if err != nil {
		t.Fatalf("%s: unexpected error: %v", name, err)
	}
	if shouldReplicate {
		node, ok := s.(*fakeServer)
		if ok {
			node.log.Append(repllog.Record{UUID: uuid, Name: name, Args: args})
		}
	}
	return reply
}

func TestCommand_SetThenGet(t *testing.T) {
	s := newFakeServer(1)
	mustExec(t, s, "set", wire.Bulk([]byte("k")), wire.Bulk([]byte("v1")))
	got := mustExec(t, s, "get", wire.Bulk([]byte("k")))
	if string(got.Bytes) != "v1" {
		t.Fatalf("got %q", got.Bytes)
	}
}

func TestCommand_IncrDecr(t *testing.T) {
	s := newFakeServer(1)
	mustExec(t, s, "incr", wire.Bulk([]byte("c")), wire.Int(5))
	got := mustExec(t, s, "decr", wire.Bulk([]byte("c")), wire.Int(2))
	if got.Int != 3 {
		t.Fatalf("got %d, want 3", got.Int)
	}
}

func TestCommand_DelRefusesAfterLaterWrite(t *testing.T) {
	// spec scenario: a direct del must be refused if update_time already
	// exceeds the delete's uuid, because a later write has been observed.
	s := newFakeServer(1)
	mustExec(t, s, "set", wire.Bulk([]byte("k")), wire.Bulk([]byte("v1")))

	obj, ok := s.store.Query([]byte("k"))
	if !ok {
		t.Fatalf("expected key to exist")
	}
	laterUUID := s.gen.Next(true)
	obj.UpdatedAt(laterUUID)

	deleted, effects, err := DelWithEffects(s, Context{NodeID: 1, UUID: laterUUID - 1}, []byte("k"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != 0 || effects != nil {
		t.Fatalf("expected delete to be refused, got deleted=%d effects=%v", deleted, effects)
	}
}

func TestCommand_SetDictGetAll(t *testing.T) {
	s := newFakeServer(1)
	mustExec(t, s, "hset", wire.Bulk([]byte("h")), wire.Bulk([]byte("f1")), wire.Bulk([]byte("v1")))
	got := mustExec(t, s, "hgetall", wire.Bulk([]byte("h")))
	if len(got.Items) != 2 {
		t.Fatalf("expected 2 items (field, value), got %d", len(got.Items))
	}
}

func TestCommand_SaddSmembersSrem(t *testing.T) {
	s := newFakeServer(1)
	mustExec(t, s, "sadd", wire.Bulk([]byte("s")), wire.Bulk([]byte("x")), wire.Bulk([]byte("y")))
	got := mustExec(t, s, "smembers", wire.Bulk([]byte("s")))
	if len(got.Items) != 2 {
		t.Fatalf("expected 2 members, got %d", len(got.Items))
	}
	mustExec(t, s, "srem", wire.Bulk([]byte("s")), wire.Bulk([]byte("x")))
	got = mustExec(t, s, "smembers", wire.Bulk([]byte("s")))
	if len(got.Items) != 1 {
		t.Fatalf("expected 1 member after srem, got %d", len(got.Items))
	}
}

func TestCommand_ReplOnlyRejectedFromClient(t *testing.T) {
	s := newFakeServer(1)
	_, _, _, err := Exec(s, nil, "delcnt", []wire.Message{wire.Bulk([]byte("k"))})
	if err == nil {
		t.Fatalf("expected delcnt to be rejected when invoked directly")
	}
}

func TestCommand_UnknownCommand(t *testing.T) {
	s := newFakeServer(1)
	_, _, _, err := Exec(s, nil, "bogus", nil)
	if err == nil {
		t.Fatalf("expected unknown command error")
	}
}

func TestCommand_NodeID(t *testing.T) {
	s := newFakeServer(0)
	mustExec(t, s, "node", wire.Str("id"), wire.Int(7))
	got := mustExec(t, s, "node", wire.Str("id"))
	if got.Int != 7 {
		t.Fatalf("got %d, want 7", got.Int)
	}
}
