package command

import (
	"github.com/cshekharsharma/constdb/internal/cmderr"
	"github.com/cshekharsharma/constdb/internal/object"
	"github.com/cshekharsharma/constdb/internal/wire"
)

func changeCommand(s Server, ctx Context, args []wire.Message, sign int64) (wire.Message, error) {
	r := wire.NewArgReader(args)
	key, err := r.NextBytes()
	if err != nil {
		return wire.Message{}, err
	}
	delta := int64(1)
	if r.Remaining() > 0 {
		delta, err = r.NextI64()
		if err != nil {
			return wire.Message{}, err
		}
	}

	obj, ok := s.Store().Query(key)
	if !ok {
		obj = object.NewCounter(ctx.UUID)
		s.Store().Add(key, obj)
	}
	if obj.Kind != object.KindCounter {
		return wire.Message{}, cmderr.ErrInvalidType()
	}
	obj.Counter.Change(ctx.NodeID, sign*delta, ctx.UUID)
	obj.UpdatedAt(ctx.UUID)
	return wire.Int(obj.Counter.Get()), nil
}

func incrCommand(s Server, ctx Context, args []wire.Message) (wire.Message, error) {
	return changeCommand(s, ctx, args, 1)
}

func decrCommand(s Server, ctx Context, args []wire.Message) (wire.Message, error) {
	return changeCommand(s, ctx, args, -1)
}

// delcntCommand replays the negating deltas del computed when it
// tombstoned a counter: it is ReplOnly and only ever reaches a node
// through a peer's replication stream.
func delcntCommand(s Server, ctx Context, args []wire.Message) (wire.Message, error) {
	r := wire.NewArgReader(args)
	key, err := r.NextBytes()
	if err != nil {
		return wire.Message{}, err
	}
	obj, ok := s.Store().Query(key)
	if !ok {
		obj = object.NewCounter(ctx.UUID)
		s.Store().Add(key, obj)
	}
	if obj.Kind != object.KindCounter {
		return wire.Message{}, cmderr.ErrInvalidType()
	}
	for r.Remaining() >= 2 {
		nodeID, err := r.NextU64()
		if err != nil {
			return wire.Message{}, err
		}
		delta, err := r.NextI64()
		if err != nil {
			return wire.Message{}, err
		}
		obj.Counter.Change(nodeID, delta, ctx.UUID)
	}
	if ctx.UUID > obj.DeleteTime {
		obj.DeleteTime = ctx.UUID
	}
	if ctx.UUID > obj.UpdateTime {
		obj.UpdateTime = ctx.UUID
	}
	return wire.None, nil
}
