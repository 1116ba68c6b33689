package command

import (
	"github.com/cshekharsharma/constdb/internal/cmderr"
	"github.com/cshekharsharma/constdb/internal/object"
	"github.com/cshekharsharma/constdb/internal/wire"
)

func readMembers(r *wire.ArgReader) ([][]byte, error) {
	var members [][]byte
	for r.Remaining() > 0 {
		m, err := r.NextBytes()
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, nil
}

func saddCommand(s Server, ctx Context, args []wire.Message) (wire.Message, error) {
	r := wire.NewArgReader(args)
	key, err := r.NextBytes()
	if err != nil {
		return wire.Message{}, err
	}
	members, err := readMembers(r)
	if err != nil {
		return wire.Message{}, err
	}

	obj, ok := s.Store().Query(key)
	if !ok {
		obj = object.NewSet(ctx.UUID)
		s.Store().Add(key, obj)
	}
	if obj.Kind != object.KindSet {
		return wire.Message{}, cmderr.ErrInvalidType()
	}
	obj.Set.AddMembers(members, ctx.UUID)
	obj.UpdatedAt(ctx.UUID)
	return wire.Int(int64(len(members))), nil
}

func sremCommand(s Server, ctx Context, args []wire.Message) (wire.Message, error) {
	r := wire.NewArgReader(args)
	key, err := r.NextBytes()
	if err != nil {
		return wire.Message{}, err
	}
	members, err := readMembers(r)
	if err != nil {
		return wire.Message{}, err
	}
	obj, ok := s.Store().Query(key)
	if !ok || obj.Kind != object.KindSet {
		return wire.Int(0), nil
	}
	obj.Set.RemoveMembers(members, ctx.UUID)
	obj.UpdatedAt(ctx.UUID)
	return wire.Int(int64(len(members))), nil
}

// spopCommand removes and returns one live member: the lexicographically
// first one. The replication record is the spop request itself (key
// only, no member name), so a peer replaying it removes whichever member
// is lexicographically first in its own copy of the set.
func spopCommand(s Server, ctx Context, args []wire.Message) (wire.Message, error) {
	r := wire.NewArgReader(args)
	key, err := r.NextBytes()
	if err != nil {
		return wire.Message{}, err
	}
	obj, ok := s.Store().Query(key)
	if !ok || obj.Kind != object.KindSet {
		return wire.Nil, nil
	}
	live := obj.Set.IterLive()
	if len(live) == 0 {
		return wire.Nil, nil
	}
	popped := live[0]
	obj.Set.RemoveMembers([][]byte{popped}, ctx.UUID)
	obj.UpdatedAt(ctx.UUID)
	return wire.Bulk(popped), nil
}

func smembersCommand(s Server, ctx Context, args []wire.Message) (wire.Message, error) {
	r := wire.NewArgReader(args)
	key, err := r.NextBytes()
	if err != nil {
		return wire.Message{}, err
	}
	obj, ok := s.Store().Query(key)
	if !ok || !obj.Alive() {
		return wire.Arr(nil), nil
	}
	if obj.Kind != object.KindSet {
		return wire.Message{}, cmderr.ErrInvalidType()
	}
	return obj.Set.Describe(), nil
}

// delsetCommand replays a set deletion: tombstone every currently live
// member at the replay UUID. ReplOnly.
func delsetCommand(s Server, ctx Context, args []wire.Message) (wire.Message, error) {
	r := wire.NewArgReader(args)
	key, err := r.NextBytes()
	if err != nil {
		return wire.Message{}, err
	}
	obj, ok := s.Store().Query(key)
	if !ok {
		obj = object.NewSet(ctx.UUID)
		s.Store().Add(key, obj)
	}
	if obj.Kind != object.KindSet {
		return wire.Message{}, cmderr.ErrInvalidType()
	}
	obj.Set.RemoveAllLiveAt(ctx.UUID)
	if ctx.UUID > obj.DeleteTime {
		obj.DeleteTime = ctx.UUID
	}
	if ctx.UUID > obj.UpdateTime {
		obj.UpdateTime = ctx.UUID
	}
	return wire.None, nil
}
