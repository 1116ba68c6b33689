package command

import (
	"github.com/cshekharsharma/constdb/internal/cmderr"
	"github.com/cshekharsharma/constdb/internal/crdt"
	"github.com/cshekharsharma/constdb/internal/object"
	"github.com/cshekharsharma/constdb/internal/wire"
)

func hsetCommand(s Server, ctx Context, args []wire.Message) (wire.Message, error) {
	r := wire.NewArgReader(args)
	key, err := r.NextBytes()
	if err != nil {
		return wire.Message{}, err
	}
	if r.Remaining() == 0 || r.Remaining()%2 != 0 {
		return wire.Message{}, cmderr.ErrWrongArity()
	}
	var pairs []crdt.FieldValue
	for r.Remaining() > 0 {
		field, err := r.NextBytes()
		if err != nil {
			return wire.Message{}, err
		}
		value, err := r.NextBytes()
		if err != nil {
			return wire.Message{}, err
		}
		pairs = append(pairs, crdt.FieldValue{Field: field, Value: value})
	}

	obj, ok := s.Store().Query(key)
	if !ok {
		obj = object.NewDict(ctx.UUID)
		s.Store().Add(key, obj)
	}
	if obj.Kind != object.KindDict {
		return wire.Message{}, cmderr.ErrInvalidType()
	}
	obj.Dict.SetFields(pairs, ctx.UUID)
	obj.UpdatedAt(ctx.UUID)
	return wire.Int(int64(len(pairs))), nil
}

func hgetCommand(s Server, ctx Context, args []wire.Message) (wire.Message, error) {
	r := wire.NewArgReader(args)
	key, err := r.NextBytes()
	if err != nil {
		return wire.Message{}, err
	}
	field, err := r.NextBytes()
	if err != nil {
		return wire.Message{}, err
	}
	obj, ok := s.Store().Query(key)
	if !ok || !obj.Alive() {
		return wire.Nil, nil
	}
	if obj.Kind != object.KindDict {
		return wire.Message{}, cmderr.ErrInvalidType()
	}
	value, ok := obj.Dict.Get(field)
	if !ok {
		return wire.Nil, nil
	}
	return wire.Bulk(value), nil
}

func hgetallCommand(s Server, ctx Context, args []wire.Message) (wire.Message, error) {
	r := wire.NewArgReader(args)
	key, err := r.NextBytes()
	if err != nil {
		return wire.Message{}, err
	}
	obj, ok := s.Store().Query(key)
	if !ok || !obj.Alive() {
		return wire.Arr(nil), nil
	}
	if obj.Kind != object.KindDict {
		return wire.Message{}, cmderr.ErrInvalidType()
	}
	return obj.Dict.Describe(), nil
}

func hdelCommand(s Server, ctx Context, args []wire.Message) (wire.Message, error) {
	r := wire.NewArgReader(args)
	key, err := r.NextBytes()
	if err != nil {
		return wire.Message{}, err
	}
	fields, err := readMembers(r)
	if err != nil {
		return wire.Message{}, err
	}
	obj, ok := s.Store().Query(key)
	if !ok || obj.Kind != object.KindDict {
		return wire.Int(0), nil
	}
	obj.Dict.DelFields(fields, ctx.UUID)
	obj.UpdatedAt(ctx.UUID)
	return wire.Int(int64(len(fields))), nil
}

// deldictCommand replays a dict deletion: tombstone every currently
// visible field at the replay UUID. ReplOnly.
func deldictCommand(s Server, ctx Context, args []wire.Message) (wire.Message, error) {
	r := wire.NewArgReader(args)
	key, err := r.NextBytes()
	if err != nil {
		return wire.Message{}, err
	}
	obj, ok := s.Store().Query(key)
	if !ok {
		obj = object.NewDict(ctx.UUID)
		s.Store().Add(key, obj)
	}
	if obj.Kind != object.KindDict {
		return wire.Message{}, cmderr.ErrInvalidType()
	}
	obj.Dict.RemoveAllLiveAt(ctx.UUID)
	if ctx.UUID > obj.DeleteTime {
		obj.DeleteTime = ctx.UUID
	}
	if ctx.UUID > obj.UpdateTime {
		obj.UpdateTime = ctx.UUID
	}
	return wire.None, nil
}
