package server

import (
	"context"
	"net"
	"time"

	"github.com/cshekharsharma/constdb/internal/command"
	"github.com/cshekharsharma/constdb/internal/replica"
	"github.com/cshekharsharma/constdb/internal/resilience"
	"github.com/cshekharsharma/constdb/internal/telemetry"
	"github.com/cshekharsharma/constdb/internal/wire"
)

var codec = wire.NewRESPCodec()

// gossipInterval is how often a live link re-asks its peer for its
// current replica set, the "periodically" half of the gossip contract
// (the "on demand" half is the REPLICAS command itself).
const gossipInterval = 30 * time.Second

// beginSync takes over an already-accepted client connection that just
// issued the SYNC control command and promotes it to a replica link:
// the peer's identity and requested starting point were already carried
// as SYNC's own arguments, so no further wire handshake is needed here.
func (s *Server) beginSync(client command.ClientHandle, meta command.ReplicaMeta, uuid uint64) {
	raw := client.TakeConn()
	conn, ok := raw.(net.Conn)
	if !ok || conn == nil {
		return
	}

	addr := conn.RemoteAddr().String()
	link := replica.NewLink(conn, codec)
	link.SetMeta(replica.Meta{NodeID: meta.PeerNodeID, Alias: meta.PeerAlias, Addr: addr, UUIDHeSent: meta.UUIDISent})

	s.registry.AddReplica(addr, meta.PeerNodeID, meta.PeerAlias, uuid)
	s.registerLink(addr, link)

	startUUID := meta.UUIDISent
	if link.NeedsSnapshot(s.log) {
		_, span := telemetry.StartHandshakeSpan(context.Background(), s.metrics, addr)
		err := s.store.SaveSnapshot(conn)
		span.End()
		if err != nil {
			s.closeLink(addr)
			return
		}
		startUUID, _ = s.log.HorizonUUID()
	}
	link.BeginStreaming(s.log, startUUID)
	s.runLink(addr, link)
}

// SuperviseMeet dials addr and keeps it connected for as long as ctx is
// alive, reconnecting with exponential backoff (resilience.Retry) each
// time the link drops. Intended to run in its own goroutine per
// configured peer, started once at startup.
func (s *Server) SuperviseMeet(ctx context.Context, addr string) {
	for ctx.Err() == nil {
		done, err := resilience.Retry(ctx, 1<<30, 500*time.Millisecond, func() (<-chan struct{}, error) {
			return s.meetOnce(addr)
		})
		if err != nil {
			return
		}
		select {
		case <-done:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) meetOnce(addr string) (<-chan struct{}, error) {
	_, done, err := s.doMeet(addr, 0)
	return done, err
}

// beginMeet dials addr, runs the wire-level SYNC handshake as the
// initiating side, and on success promotes the connection to a
// streaming replica link the same way beginSync does for an inbound
// connection.
func (s *Server) beginMeet(addr string, uuid uint64) (bool, error) {
	joined, _, err := s.doMeet(addr, uuid)
	return joined, err
}

// doMeet is the shared dial-and-handshake path behind beginMeet (called
// once, synchronously, by the MEET command) and SuperviseMeet (called
// repeatedly in a reconnect loop); it returns the link's done channel so
// a supervising caller can wait for it to drop before redialing.
func (s *Server) doMeet(addr string, uuid uint64) (bool, <-chan struct{}, error) {
	conn, err := s.dialFunc(addr)
	if err != nil {
		return false, nil, err
	}

	link := replica.NewLink(conn, codec)
	lastSent, _ := s.log.HorizonUUID()

	_, span := telemetry.StartHandshakeSpan(context.Background(), s.metrics, addr)
	err = link.SendHello(s.NodeID(), s.NodeAlias(), lastSent)
	span.End()
	if err != nil {
		conn.Close()
		return false, nil, err
	}

	// The peer's identity isn't learned from this one-directional hello;
	// it arrives later through its own reciprocal MEET, or through
	// transitive REPLICAS gossip merged via Registry.MergePeer. Whether
	// the peer needs a snapshot to catch up is its call to make (it knows
	// its own log window against the uuidISent we just announced); this
	// side always starts its own outbound stream at its retained horizon.
	joined := s.registry.AddReplica(addr, 0, "", uuid)
	s.registerLink(addr, link)

	link.BeginStreaming(s.log, lastSent)
	done := s.runLink(addr, link)
	return joined, done, nil
}

func (s *Server) registerLink(addr string, link *replica.Link) {
	s.linksMu.Lock()
	if old, ok := s.links[addr]; ok {
		old.Close()
	}
	s.links[addr] = link
	s.linksMu.Unlock()
}

func (s *Server) closeLink(addr string) {
	s.linksMu.Lock()
	link, ok := s.links[addr]
	delete(s.links, addr)
	s.linksMu.Unlock()
	if ok {
		link.Close()
	}
}

// runLink spawns the two concurrent directions a streaming link runs:
// outbound tailing of this node's log, and inbound apply of the peer's.
// Either direction returning ends the link. The returned channel closes
// once the link has been torn down, so a caller supervising a
// reconnect loop (SuperviseMeet) knows when to redial.
func (s *Server) runLink(addr string, link *replica.Link) <-chan struct{} {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer cancel()
		_ = link.RunOutbound(ctx)
	}()
	go func() {
		defer cancel()
		apply := func(name string, uuid uint64, args []wire.Message) (wire.Message, error) {
			return command.Replay(s, name, uuid, args)
		}
		onApplied := func(uuid uint64) {
			latest := s.gen.HighWaterMark()
			s.metrics.SetLinkLag(addr, float64(latest)-float64(uuid))
		}
		_ = link.RunInbound(ctx, apply, onApplied)
	}()
	go s.gossipReplicas(ctx, addr)
	go func() {
		<-ctx.Done()
		s.closeLink(addr)
		close(done)
	}()
	return done
}

// gossipReplicas asks addr for its current replica set once immediately
// and then every gossipInterval for as long as ctx (the owning link's
// lifetime) stays alive. Any peer entry this node doesn't already know
// about is merged into the registry and, if newly added, dialed via a
// supervised MEET so transitive joins propagate without operator
// intervention: a node can learn of and connect to a peer it has never
// been directly configured to meet.
func (s *Server) gossipReplicas(ctx context.Context, addr string) {
	s.pollReplicasOnce(addr)

	ticker := time.NewTicker(gossipInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pollReplicasOnce(addr)
		}
	}
}

// pollReplicasOnce opens a short-lived connection to addr (separate from
// the streaming link already held open to it), issues a REPLICAS
// request, and merges every returned peer entry into the registry. This
// mirrors exactly the wire shape internal/server/accept.go expects of
// any client/peer request: an array whose first item is the command
// name.
func (s *Server) pollReplicasOnce(addr string) {
	conn, err := s.dialFunc(addr)
	if err != nil {
		return
	}
	defer conn.Close()

	req := wire.Arr([]wire.Message{wire.Str("replicas")})
	if err := codec.WriteMessage(conn, req); err != nil {
		return
	}
	reply, err := codec.ReadMessage(conn)
	if err != nil || reply.Kind != wire.KindArray {
		return
	}

	for _, entry := range reply.Items {
		if entry.Kind != wire.KindArray {
			continue
		}
		args := wire.NewArgReader(entry.Items)
		nodeID, err1 := args.NextU64()
		alias, err2 := args.NextString()
		peerAddr, err3 := args.NextString()
		addedAt, err4 := args.NextU64()
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			continue
		}
		if peerAddr == "" || peerAddr == addr {
			continue
		}

		isNew := s.registry.MergePeer(peerAddr, replica.Meta{
			NodeID:  nodeID,
			Alias:   alias,
			Addr:    peerAddr,
			AddedAt: addedAt,
		})
		if isNew && !s.hasLink(peerAddr) {
			go s.SuperviseMeet(s.rootContext(), peerAddr)
		}
	}
}

func (s *Server) hasLink(addr string) bool {
	s.linksMu.Lock()
	defer s.linksMu.Unlock()
	_, ok := s.links[addr]
	return ok
}
