package command

import (
	"github.com/cshekharsharma/constdb/internal/cmderr"
	"github.com/cshekharsharma/constdb/internal/object"
	"github.com/cshekharsharma/constdb/internal/wire"
)

func getCommand(s Server, ctx Context, args []wire.Message) (wire.Message, error) {
	r := wire.NewArgReader(args)
	key, err := r.NextBytes()
	if err != nil {
		return wire.Message{}, err
	}
	obj, ok := s.Store().Query(key)
	if !ok || !obj.Alive() {
		return wire.Nil, nil
	}
	switch obj.Kind {
	case object.KindCounter:
		return wire.Int(obj.Counter.Get()), nil
	case object.KindBytes:
		return wire.Bulk(obj.Bytes.Get()), nil
	default:
		return wire.Message{}, cmderr.ErrInvalidType()
	}
}

func setCommand(s Server, ctx Context, args []wire.Message) (wire.Message, error) {
	r := wire.NewArgReader(args)
	key, err := r.NextBytes()
	if err != nil {
		return wire.Message{}, err
	}
	value, err := r.NextBytes()
	if err != nil {
		return wire.Message{}, err
	}

	obj, ok := s.Store().Query(key)
	if !ok {
		obj = object.NewBytes(value, ctx.NodeID, ctx.UUID)
		s.Store().Add(key, obj)
		return wire.OK(), nil
	}
	if obj.UpdateTime > ctx.UUID {
		return wire.Int(0), nil
	}
	if obj.Kind != object.KindBytes {
		return wire.Message{}, cmderr.ErrInvalidType()
	}
	obj.Bytes.Set(value, ctx.NodeID)
	obj.UpdatedAt(ctx.UUID)
	return wire.OK(), nil
}

func descCommand(s Server, ctx Context, args []wire.Message) (wire.Message, error) {
	r := wire.NewArgReader(args)
	key, err := r.NextBytes()
	if err != nil {
		return wire.Message{}, err
	}
	obj, ok := s.Store().Query(key)
	if !ok {
		return wire.Nil, nil
	}
	return obj.Describe(), nil
}

// delCommand is the dispatch-table handler for del (which carries
// NoReplicate): it applies the delete, replies with the deleted count,
// and discards the per-variant replication effects. Because command has
// no access to the server's replication log (see Server interface), the
// server's Dispatch does not route del through this handler: it calls
// DelWithEffects itself and appends the returned effects to the log.
// See server/dispatch.go for how the two compose.
func delCommand(s Server, ctx Context, args []wire.Message) (wire.Message, error) {
	r := wire.NewArgReader(args)
	key, err := r.NextBytes()
	if err != nil {
		return wire.Message{}, err
	}
	deleted, _, err := DelWithEffects(s, ctx, key)
	if err != nil {
		return wire.Message{}, err
	}
	return wire.Int(deleted), nil
}

// DelEffect describes one replication record del must additionally emit
// beyond its own (suppressed) record, since a single user del can
// resolve into delcnt/delbytes/delset/deldict replays on peers.
type DelEffect struct {
	Name string
	Args []wire.Message
}

// DelWithEffects runs the same logic as the del command handler but
// additionally returns the replication effects the caller (the server's
// dispatch path) must append to the log, since del itself carries
// NoReplicate and cannot append through the handler's own return value.
func DelWithEffects(s Server, ctx Context, key []byte) (deletedCount int64, effects []DelEffect, err error) {
	obj, ok := s.Store().Query(key)
	if !ok {
		return 0, nil, nil
	}
	deleted, effects := applyDelete(obj, ctx.UUID)
	for i := range effects {
		effects[i].Args = append([]wire.Message{wire.Bulk(key)}, effects[i].Args...)
	}
	return boolToI64(deleted), effects, nil
}

// applyDelete mutates obj in place for a direct user delete at uuid and
// returns whether a delete actually took effect, plus the replication
// effects that narrow it to peers (without the leading key argument,
// which the caller prepends).
func applyDelete(obj *object.Object, uuid uint64) (deleted bool, effects []DelEffect) {
	switch obj.Kind {
	case object.KindCounter:
		if !obj.DeleteAllowed(uuid) {
			return false, nil
		}
		if !obj.Alive() {
			return false, nil
		}
		obj.MarkDeleted(uuid)
		entries := obj.Counter.IterAll()
		effectArgs := make([]wire.Message, 0, len(entries)*2)
		for _, e := range entries {
			obj.Counter.Change(e.NodeID, -e.Value, uuid)
			effectArgs = append(effectArgs, wire.Int(int64(e.NodeID)), wire.Int(-e.Value))
		}
		return true, []DelEffect{{Name: "delcnt", Args: effectArgs}}

	case object.KindBytes:
		if !obj.DeleteAllowed(uuid) {
			return false, nil
		}
		if !obj.Alive() {
			return false, nil
		}
		obj.MarkDeleted(uuid)
		return true, []DelEffect{{Name: "delbytes", Args: nil}}

	case object.KindSet:
		wasAlive := obj.Alive() && uuid > obj.CreateTime
		obj.Set.RemoveAllLiveAt(uuid)
		if uuid > obj.DeleteTime {
			obj.DeleteTime = uuid
		}
		if uuid > obj.UpdateTime {
			obj.UpdateTime = uuid
		}
		return wasAlive, []DelEffect{{Name: "delset", Args: nil}}

	case object.KindDict:
		wasAlive := obj.Alive() && uuid > obj.CreateTime
		obj.Dict.RemoveAllLiveAt(uuid)
		if uuid > obj.DeleteTime {
			obj.DeleteTime = uuid
		}
		if uuid > obj.UpdateTime {
			obj.UpdateTime = uuid
		}
		return wasAlive, []DelEffect{{Name: "deldict", Args: nil}}
	}
	return false, nil
}

func delbytesCommand(s Server, ctx Context, args []wire.Message) (wire.Message, error) {
	r := wire.NewArgReader(args)
	key, err := r.NextBytes()
	if err != nil {
		return wire.Message{}, err
	}
	obj, ok := s.Store().Query(key)
	if !ok {
		obj = object.NewBytes(nil, ctx.NodeID, ctx.UUID)
		s.Store().Add(key, obj)
	}
	if obj.Kind != object.KindBytes {
		return wire.Message{}, cmderr.ErrInvalidType()
	}
	if ctx.UUID > obj.DeleteTime {
		obj.DeleteTime = ctx.UUID
	}
	if ctx.UUID > obj.UpdateTime {
		obj.UpdateTime = ctx.UUID
	}
	return wire.None, nil
}

func boolToI64(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
