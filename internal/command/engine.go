// Package command implements the dispatch table and execution contract
// that turns a wire request into a handler invocation against the
// server's state, and decides which successful writes become
// replication-log records.
package command

import (
	"strings"

	"github.com/cshekharsharma/constdb/internal/cmderr"
	"github.com/cshekharsharma/constdb/internal/wire"
)

// Flags are bit flags attached to each command describing its
// replication and access-control behavior.
type Flags uint16

const (
	// Readonly marks a command that never mutates state.
	Readonly Flags = 1 << iota
	// Write marks a command that mutates state and, absent NoReplicate,
	// is appended to the replication log on success.
	Write
	// Ctrl marks a control-plane command (node identity, peer
	// handshake/membership) that is neither a pure read nor a
	// CRDT-level write.
	Ctrl
	// NoReplicate suppresses replication-log emission for an otherwise
	// Write command; used by del, whose own handler decides what
	// narrower record (delcnt/delbytes/delset/deldict) to replicate.
	NoReplicate
	// NoReply marks a command whose reply is not sent back to the
	// issuing client (reserved for future fire-and-forget commands).
	NoReply
	// ReplOnly marks a command only valid when replayed from a peer's
	// replication stream; a direct client invocation fails UnknownCmd.
	ReplOnly
)

// Context is everything a handler needs beyond its own arguments:
// identity of the invoker (nodeID is always the local node's id, since
// replayed commands are re-executed locally under the peer's UUID) and
// whether the invocation came directly from a client versus replay.
type Context struct {
	NodeID     uint64
	UUID       uint64
	FromClient bool
	Client     ClientHandle
}

// Handler implements one command's behavior. args excludes the command
// name itself.
type Handler func(s Server, ctx Context, args []wire.Message) (wire.Message, error)

// Server is the subset of server state a handler is allowed to touch.
// Defined here (rather than imported from package server) to keep
// command free of a dependency on the server package, which itself
// depends on command for dispatch — the interface is the seam that
// breaks the cycle.
type Server interface {
	Store() StoreOps
	ReplicationLog() ReplLogOps
	Replicas() ReplicaOps
	NodeID() uint64
	SetNodeID(uint64)
	NodeAlias() string
	SetNodeAlias(string)
	NextUUID(isWrite bool) uint64
	Metrics() MetricsOps
}

// entry pairs a handler with its flags in the dispatch table.
type entry struct {
	name    string
	flags   Flags
	handler Handler
}

var table = map[string]entry{}

func register(name string, flags Flags, h Handler) {
	table[name] = entry{name: name, flags: flags, handler: h}
}

func init() {
	// control
	register("node", Ctrl, nodeCommand)
	register("replicas", Readonly, replicasCommand)
	register("sync", Ctrl, syncCommand)
	register("meet", Ctrl, meetCommand)
	register("forget", Ctrl, forgetCommand)
	register("client", Ctrl, clientCommand)

	// stats
	register("repllog", Readonly, repllogCommand)
	register("info", Readonly, infoCommand)

	// generic
	register("get", Readonly, getCommand)
	register("set", Write, setCommand)
	register("desc", Readonly, descCommand)
	register("del", Write|NoReplicate, delCommand)
	register("delbytes", Write|ReplOnly, delbytesCommand)

	// counter
	register("incr", Write, incrCommand)
	register("decr", Write, decrCommand)
	register("delcnt", Write|ReplOnly, delcntCommand)

	// set
	register("sadd", Write, saddCommand)
	register("srem", Write, sremCommand)
	register("spop", Write, spopCommand)
	register("smembers", Readonly, smembersCommand)
	register("delset", Write|ReplOnly, delsetCommand)

	// dict
	register("hset", Write, hsetCommand)
	register("hget", Readonly, hgetCommand)
	register("hgetall", Readonly, hgetallCommand)
	register("hdel", Write, hdelCommand)
	register("deldict", Write|ReplOnly, deldictCommand)
}

// Lookup finds a command by name, case-insensitively, matching the
// original protocol's dispatch-table lookup.
func Lookup(name string) (Flags, Handler, bool) {
	e, ok := table[strings.ToLower(name)]
	if !ok {
		return 0, nil, false
	}
	return e.flags, e.handler, true
}

// Exec runs the full client-facing execution contract: rejects
// ReplOnly commands from clients, acquires a UUID, invokes the handler,
// and — on success, if the command is Write and not NoReplicate —
// returns a record the caller should append to the replication log.
//
// The engine does not append to the log itself; it only reports whether
// the caller should, because the server alone owns the log's append
// path (only one goroutine may append, to keep UUID order matching
// append order) and command must not import repllog to avoid a
// dependency cycle through server.
func Exec(s Server, client ClientHandle, name string, args []wire.Message) (reply wire.Message, shouldReplicate bool, uuid uint64, err error) {
	s.Metrics().IncrCommandsProcessed()

	flags, handler, ok := Lookup(name)
	if !ok {
		return wire.Message{}, false, 0, cmderr.UnknownCommand(name)
	}
	if flags&ReplOnly != 0 {
		return wire.Message{}, false, 0, cmderr.UnknownCommand(name)
	}

	isWrite := flags&Write != 0
	uuid = s.NextUUID(isWrite)
	ctx := Context{NodeID: s.NodeID(), UUID: uuid, FromClient: true, Client: client}

	reply, err = handler(s, ctx, args)
	if err != nil {
		return wire.Message{}, false, uuid, err
	}
	shouldReplicate = isWrite && flags&NoReplicate == 0
	return reply, shouldReplicate, uuid, nil
}

// Replay runs the replay contract: the handler receives a peer-supplied
// UUID and the result is never itself re-replicated. Nothing appends a
// replayed record to this node's log, so it is not forwarded on to this
// node's other peers.
func Replay(s Server, name string, uuid uint64, args []wire.Message) (wire.Message, error) {
	_, handler, ok := Lookup(name)
	if !ok {
		return wire.Message{}, cmderr.UnknownCommand(name)
	}
	ctx := Context{NodeID: s.NodeID(), UUID: uuid, FromClient: false}
	return handler(s, ctx, args)
}
