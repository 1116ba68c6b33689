package command

import (
	"github.com/cshekharsharma/constdb/internal/object"
	"github.com/cshekharsharma/constdb/internal/wire"
)

// StoreOps is the slice of *store.Store a handler needs. Defined here
// rather than depending on package store's concrete type so that
// command has no import of store (store has none of command either,
// but server needs to satisfy both without a cycle through this
// interface boundary).
type StoreOps interface {
	Query(key []byte) (*object.Object, bool)
	Add(key []byte, obj *object.Object)
	Iterate(fn func(key []byte, obj *object.Object) bool)
	Len() int
}

// ReplLogOps is the slice of *repllog.Log a handler needs for the
// REPLLOG control command.
type ReplLogOps interface {
	At(uuid uint64) (ReplLogRecord, bool)
	UUIDs() []uint64
	Len() int
}

// ReplLogRecord mirrors repllog.Record without requiring command to
// import package repllog.
type ReplLogRecord struct {
	UUID uint64
	Name string
	Args []wire.Message
}

// ReplicaOps is the slice of the replica registry a handler needs for
// meet/sync/forget/replicas. Kept as an interface (rather than importing
// package replica) because replica's link state machine calls back into
// command.Replay, which would otherwise create an import cycle.
type ReplicaOps interface {
	AddReplica(addr string, meta ReplicaMeta, uuid uint64) bool
	RemoveReplica(addr string, uuid uint64) bool
	GenerateReplicasReply(uuid uint64) wire.Message
	BeginSync(client ClientHandle, meta ReplicaMeta, uuid uint64)
	BeginMeet(addr string, uuid uint64) (bool, error)
}

// ReplicaMeta is the handshake metadata exchanged by SYNC/MEET, mirrored
// here for the same reason as ReplLogRecord.
type ReplicaMeta struct {
	PeerNodeID uint64
	PeerAlias  string
	PeerAddr   string
	UUIDISent  uint64
	UUIDHeSent uint64
}

// ClientHandle is the minimal view of an inbound client connection a
// control command needs: enough to hand the raw socket off to a new
// replica link (SYNC) and to answer CLIENT subcommands.
type ClientHandle interface {
	ThreadID() string
	TakeConn() interface{}
	Close()
}

// MetricsOps is the slice of telemetry a handler needs.
type MetricsOps interface {
	IncrCommandsProcessed()
}
