package command

import (
	"strconv"
	"strings"

	"github.com/cshekharsharma/constdb/internal/cmderr"
	"github.com/cshekharsharma/constdb/internal/wire"
)

func nodeCommand(s Server, ctx Context, args []wire.Message) (wire.Message, error) {
	r := wire.NewArgReader(args)
	field, err := r.NextString()
	if err != nil {
		return wire.Message{}, err
	}
	// Identity is fixed once this node has any live replica.
	joined := func() bool { return len(s.Replicas().GenerateReplicasReply(ctx.UUID).Items) > 0 }
	switch strings.ToLower(field) {
	case "id":
		if r.Remaining() == 0 {
			return wire.Int(int64(s.NodeID())), nil
		}
		v, err := r.NextI64()
		if err != nil {
			return wire.Message{}, err
		}
		if v <= 0 {
			return wire.Err("id must be greater than 0"), nil
		}
		if joined() {
			return wire.Err("node id cannot change after joining a cluster"), nil
		}
		s.SetNodeID(uint64(v))
		return wire.OK(), nil
	case "alias":
		if r.Remaining() == 0 {
			return wire.Bulk([]byte(s.NodeAlias())), nil
		}
		alias, err := r.NextString()
		if err != nil {
			return wire.Message{}, err
		}
		if joined() {
			return wire.Err("node alias cannot change after joining a cluster"), nil
		}
		s.SetNodeAlias(alias)
		return wire.OK(), nil
	default:
		return wire.Message{}, cmderr.UnknownSubCommand(field, "NODE")
	}
}

func clientCommand(s Server, ctx Context, args []wire.Message) (wire.Message, error) {
	r := wire.NewArgReader(args)
	sub, err := r.NextString()
	if err != nil {
		return wire.Message{}, err
	}
	switch strings.ToLower(sub) {
	case "threadid":
		if ctx.Client == nil {
			return wire.Message{}, cmderr.InvalidRequest("no client connection bound to this invocation")
		}
		return wire.Bulk([]byte(ctx.Client.ThreadID())), nil
	default:
		return wire.Message{}, cmderr.UnknownSubCommand(sub, "CLIENT")
	}
}

func repllogCommand(s Server, ctx Context, args []wire.Message) (wire.Message, error) {
	r := wire.NewArgReader(args)
	sub, err := r.NextString()
	if err != nil {
		return wire.Message{}, err
	}
	switch strings.ToLower(sub) {
	case "at":
		uuid, err := r.NextU64()
		if err != nil {
			return wire.Message{}, err
		}
		rec, ok := s.ReplicationLog().At(uuid)
		if !ok {
			return wire.Nil, nil
		}
		items := make([]wire.Message, 0, len(rec.Args)+1)
		items = append(items, wire.Str(rec.Name))
		items = append(items, rec.Args...)
		return wire.Arr(items), nil
	case "uuids":
		uuids := s.ReplicationLog().UUIDs()
		items := make([]wire.Message, len(uuids))
		for i, u := range uuids {
			items[i] = wire.Int(int64(u))
		}
		return wire.Arr(items), nil
	default:
		return wire.Message{}, cmderr.UnknownSubCommand(sub, "REPLLOG")
	}
}

func infoCommand(s Server, ctx Context, args []wire.Message) (wire.Message, error) {
	keys := s.Store().Len()
	logLen := s.ReplicationLog().Len()
	lines := []string{
		"node_id:" + strconv.FormatUint(s.NodeID(), 10),
		"node_alias:" + s.NodeAlias(),
		"key_count:" + strconv.Itoa(keys),
		"repl_log_len:" + strconv.Itoa(logLen),
	}
	return wire.Bulk([]byte(strings.Join(lines, "\n"))), nil
}

func replicasCommand(s Server, ctx Context, args []wire.Message) (wire.Message, error) {
	return s.Replicas().GenerateReplicasReply(ctx.UUID), nil
}

func syncCommand(s Server, ctx Context, args []wire.Message) (wire.Message, error) {
	if ctx.Client == nil {
		return wire.Message{}, cmderr.InvalidRequest("sync must be issued over a client connection")
	}
	r := wire.NewArgReader(args)
	if _, err := r.NextU64(); err != nil { // leading zero marker, unused locally
		return wire.Message{}, err
	}
	peerNodeID, err := r.NextU64()
	if err != nil {
		return wire.Message{}, err
	}
	peerAlias, err := r.NextString()
	if err != nil {
		return wire.Message{}, err
	}
	uuidISent, err := r.NextU64()
	if err != nil {
		return wire.Message{}, err
	}

	meta := ReplicaMeta{PeerNodeID: peerNodeID, PeerAlias: peerAlias, UUIDISent: uuidISent}
	s.Replicas().BeginSync(ctx.Client, meta, ctx.UUID)
	ctx.Client.Close()
	return wire.None, nil
}

func meetCommand(s Server, ctx Context, args []wire.Message) (wire.Message, error) {
	if s.NodeID() == 0 || s.NodeAlias() == "" {
		return wire.Err("node_id and node_alias must be set before meet"), nil
	}
	r := wire.NewArgReader(args)
	addr, err := r.NextString()
	if err != nil {
		return wire.Message{}, err
	}
	added, err := s.Replicas().BeginMeet(addr, ctx.UUID)
	if err != nil {
		return wire.Err("invalid peer address"), nil
	}
	return wire.Int(boolToI64(added)), nil
}

func forgetCommand(s Server, ctx Context, args []wire.Message) (wire.Message, error) {
	r := wire.NewArgReader(args)
	addr, err := r.NextString()
	if err != nil {
		return wire.Message{}, err
	}
	removed := s.Replicas().RemoveReplica(addr, ctx.UUID)
	return wire.Int(boolToI64(removed)), nil
}
