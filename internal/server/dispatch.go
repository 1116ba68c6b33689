package server

import (
	"strings"

	"github.com/cshekharsharma/constdb/internal/command"
	"github.com/cshekharsharma/constdb/internal/repllog"
	"github.com/cshekharsharma/constdb/internal/wire"
)

// Dispatch runs one client request to completion: special-casing del
// (whose replication effects command.Exec cannot itself append, since
// del carries NoReplicate and decides its own narrower records), and
// otherwise delegating straight to command.Exec and appending the
// resulting record when shouldReplicate comes back true.
func (s *Server) Dispatch(client command.ClientHandle, name string, args []wire.Message) (wire.Message, error) {
	if strings.EqualFold(name, "del") {
		return s.dispatchDel(client, args)
	}

	reply, shouldReplicate, uuid, err := command.Exec(s, client, name, args)
	if err != nil {
		return wire.Message{}, err
	}
	if shouldReplicate {
		s.log.Append(repllog.Record{UUID: uuid, Name: strings.ToLower(name), Args: args})
	}
	return reply, nil
}

func (s *Server) dispatchDel(client command.ClientHandle, args []wire.Message) (wire.Message, error) {
	s.metrics.IncrCommandsProcessed()
	uuid := s.NextUUID(true)
	r := wire.NewArgReader(args)
	key, err := r.NextBytes()
	if err != nil {
		return wire.Message{}, err
	}
	ctx := command.Context{NodeID: s.NodeID(), UUID: uuid, FromClient: true, Client: client}
	deleted, effects, err := command.DelWithEffects(s, ctx, key)
	if err != nil {
		return wire.Message{}, err
	}
	for _, eff := range effects {
		s.log.Append(repllog.Record{UUID: uuid, Name: eff.Name, Args: eff.Args})
	}
	return wire.Int(deleted), nil
}
