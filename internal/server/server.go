// Package server wires the store, replication log, replica registry,
// UUID generator and telemetry sink together behind the command.Server
// interface, and owns the one piece none of those packages are allowed
// to know about: actual TCP connections. Grounded on go-crdt's
// mutex-guarded top-level types for the locking shape, and on ployz's
// manager.Production for "one struct that owns every subsystem and is
// handed to the transport layer" composition.
package server

import (
	"context"
	"net"
	"sync"

	"github.com/cshekharsharma/constdb/internal/command"
	"github.com/cshekharsharma/constdb/internal/identity"
	"github.com/cshekharsharma/constdb/internal/replica"
	"github.com/cshekharsharma/constdb/internal/repllog"
	"github.com/cshekharsharma/constdb/internal/store"
	"github.com/cshekharsharma/constdb/internal/telemetry"
	"github.com/cshekharsharma/constdb/internal/uuidgen"
)

// Server is the concrete command.Server: the single owner of node
// identity, the key store, the replication log and the replica
// registry. Identity mutation (SetNodeID/SetNodeAlias) is guarded by
// its own lock since the `node` command can race with the accept loop
// reading NodeID/NodeAlias for a handshake.
type Server struct {
	mu     sync.RWMutex
	nodeID uint64
	alias  string

	store    *store.Store
	log      *repllog.Log
	registry *replica.Registry
	gen      *uuidgen.Generator
	ids      *identity.Store
	metrics  telemetry.Sink

	linksMu sync.Mutex
	links   map[string]*replica.Link

	dialFunc func(addr string) (net.Conn, error)

	// rootCtx outlives any single link: a peer learned transitively
	// through another link's gossip (see gossipReplicas) is dialed
	// against this context rather than the gossiping link's own, since
	// the new link must survive the link that discovered it.
	rootCtx context.Context
}

// New builds a Server from its already-opened collaborators. ids may be
// nil (tests that don't care about persisted identity); dial is the
// function used to open outbound replica connections; nil (what
// cmd/constdbd passes) selects a plain TCP net.Dial.
func New(st *store.Store, log *repllog.Log, registry *replica.Registry, gen *uuidgen.Generator, ids *identity.Store, metrics telemetry.Sink, dial func(addr string) (net.Conn, error)) *Server {
	if metrics == nil {
		metrics = telemetry.Noop{}
	}
	if dial == nil {
		dial = func(addr string) (net.Conn, error) { return net.Dial("tcp", addr) }
	}
	return &Server{
		store:    st,
		log:      log,
		registry: registry,
		gen:      gen,
		ids:      ids,
		metrics:  metrics,
		links:    make(map[string]*replica.Link),
		dialFunc: dial,
		rootCtx:  context.Background(),
	}
}

// SetRootContext installs the context new, transitively-learned peer
// links are dialed against (see gossipReplicas). Call once at startup
// with the same cancellation-on-shutdown context the accept loop runs
// under; defaults to context.Background() otherwise.
func (s *Server) SetRootContext(ctx context.Context) {
	s.mu.Lock()
	s.rootCtx = ctx
	s.mu.Unlock()
}

func (s *Server) rootContext() context.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rootCtx
}

func (s *Server) Store() command.StoreOps           { return s.store }
func (s *Server) ReplicationLog() command.ReplLogOps { return replLogAdapter{s.log} }
func (s *Server) Replicas() command.ReplicaOps       { return replicaAdapter{s} }
func (s *Server) Metrics() command.MetricsOps        { return s.metrics }

func (s *Server) NodeID() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nodeID
}

func (s *Server) SetNodeID(id uint64) {
	s.mu.Lock()
	s.nodeID = id
	s.mu.Unlock()
	s.persistIdentity()
}

func (s *Server) NodeAlias() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.alias
}

func (s *Server) SetNodeAlias(alias string) {
	s.mu.Lock()
	s.alias = alias
	s.mu.Unlock()
	s.persistIdentity()
}

// NextUUID acquires a fresh UUID and, on every call and best-effort (a
// save error is ignored), persists the new high-water mark so a restart
// never reissues one already handed out.
func (s *Server) NextUUID(isWrite bool) uint64 {
	v := s.gen.Next(isWrite)
	if s.ids != nil {
		_ = s.ids.SaveHighWaterMark(v)
	}
	return v
}

func (s *Server) persistIdentity() {
	if s.ids == nil {
		return
	}
	_ = s.ids.Save(identity.Identity{
		NodeID:        s.NodeID(),
		Alias:         s.NodeAlias(),
		HighWaterMark: s.gen.HighWaterMark(),
	})
}

// RestoreIdentity seeds the node id and alias from a previously
// persisted identity.Identity, called once at startup before the accept
// loop begins. It does not touch the UUID generator, whose high-water
// mark is seeded when the generator is built.
func (s *Server) RestoreIdentity(id identity.Identity) {
	s.mu.Lock()
	s.nodeID = id.NodeID
	s.alias = id.Alias
	s.mu.Unlock()
}

// PublishGauges feeds the key-count and repl-log-length telemetry
// gauges on a polling interval owned by cmd/constdbd; command handlers
// update the per-call counter (commands processed) themselves via
// Metrics().
func (s *Server) PublishGauges() {
	s.metrics.SetKeyCount(s.store.Len())
	s.metrics.SetReplLogLength(s.log.Len())
}
