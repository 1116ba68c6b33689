package server

import (
	"github.com/cshekharsharma/constdb/internal/command"
	"github.com/cshekharsharma/constdb/internal/repllog"
	"github.com/cshekharsharma/constdb/internal/wire"
)

// replLogAdapter satisfies command.ReplLogOps over a *repllog.Log,
// translating repllog.Record to command.ReplLogRecord so command never
// imports package repllog directly.
type replLogAdapter struct{ log *repllog.Log }

func (a replLogAdapter) At(uuid uint64) (command.ReplLogRecord, bool) {
	rec, ok := a.log.At(uuid)
	if !ok {
		return command.ReplLogRecord{}, false
	}
	return command.ReplLogRecord{UUID: rec.UUID, Name: rec.Name, Args: rec.Args}, true
}

func (a replLogAdapter) UUIDs() []uint64 { return a.log.UUIDs() }
func (a replLogAdapter) Len() int        { return a.log.Len() }

// replicaAdapter satisfies command.ReplicaOps over the server's own
// registry and link-management methods, translating the replica.Meta
// shape to command.ReplicaMeta.
type replicaAdapter struct{ s *Server }

func (a replicaAdapter) AddReplica(addr string, meta command.ReplicaMeta, uuid uint64) bool {
	return a.s.registry.AddReplica(addr, meta.PeerNodeID, meta.PeerAlias, uuid)
}

func (a replicaAdapter) RemoveReplica(addr string, uuid uint64) bool {
	removed := a.s.registry.RemoveReplica(addr, uuid)
	if removed {
		a.s.closeLink(addr)
	}
	return removed
}

func (a replicaAdapter) GenerateReplicasReply(uuid uint64) wire.Message {
	return a.s.registry.GenerateReplicasReply(uuid)
}

func (a replicaAdapter) BeginSync(client command.ClientHandle, meta command.ReplicaMeta, uuid uint64) {
	a.s.beginSync(client, meta, uuid)
}

func (a replicaAdapter) BeginMeet(addr string, uuid uint64) (bool, error) {
	return a.s.beginMeet(addr, uuid)
}
