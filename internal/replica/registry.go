// Package replica implements the replica registry (peer membership,
// itself LWW-merged like any other piece of this store's state) and the
// per-peer link state machine that drives handshake, snapshot bootstrap,
// and bidirectional replication-log streaming.
package replica

import (
	"sort"
	"sync"

	"github.com/cshekharsharma/constdb/internal/wire"
)

// Meta is one peer's membership record: identity plus the LWW
// timestamps that make add/remove converge like any other CRDT field.
type Meta struct {
	NodeID     uint64
	Alias      string
	Addr       string
	UUIDISent  uint64
	UUIDHeSent uint64
	AddedAt    uint64
	RemovedAt  uint64
}

// Live reports whether this membership record currently counts the peer
// as joined.
func (m Meta) Live() bool { return m.AddedAt >= m.RemovedAt }

// Registry is the set of known peers keyed by address. Membership itself
// is LWW by UUID, exactly like any other piece of this store's state:
// an add and a remove for the same address race by comparing uuid
// against AddedAt/RemovedAt.
type Registry struct {
	mu    sync.RWMutex
	peers map[string]*Meta
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{peers: make(map[string]*Meta)}
}

// AddReplica records addr as a member as of uuid. Returns true iff this
// call newly joined the peer (uuid beat any prior AddedAt and the entry
// was not already live), matching the original protocol's convention
// that MEET/SYNC report whether they did fresh work.
func (r *Registry) AddReplica(addr string, nodeID uint64, alias string, uuid uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.peers[addr]
	if !ok {
		r.peers[addr] = &Meta{NodeID: nodeID, Alias: alias, Addr: addr, AddedAt: uuid}
		return true
	}
	wasLive := m.Live()
	if uuid > m.AddedAt {
		m.AddedAt = uuid
		m.NodeID = nodeID
		m.Alias = alias
	}
	return !wasLive && m.Live()
}

// RemoveReplica marks addr as departed as of uuid. Returns true iff this
// call actually transitioned the peer from live to removed.
func (r *Registry) RemoveReplica(addr string, uuid uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.peers[addr]
	if !ok {
		return false
	}
	wasLive := m.Live()
	if uuid > m.RemovedAt {
		m.RemovedAt = uuid
	}
	return wasLive && !m.Live()
}

// MergePeer folds in a peer record learned transitively through
// another link's gossip: the entry with the larger timestamp wins on
// each of AddedAt/RemovedAt independently, same LWW rule as any other
// CRDT field in this store.
func (r *Registry) MergePeer(addr string, other Meta) (isNew bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.peers[addr]
	if !ok {
		cp := other
		r.peers[addr] = &cp
		return true
	}
	if other.AddedAt > m.AddedAt {
		m.AddedAt = other.AddedAt
		m.NodeID = other.NodeID
		m.Alias = other.Alias
	}
	if other.RemovedAt > m.RemovedAt {
		m.RemovedAt = other.RemovedAt
	}
	return false
}

// Get returns a copy of the membership record for addr.
func (r *Registry) Get(addr string) (Meta, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.peers[addr]
	if !ok {
		return Meta{}, false
	}
	return *m, true
}

// LivePeers returns every currently live peer's membership record,
// sorted by address for deterministic replies.
func (r *Registry) LivePeers() []Meta {
	r.mu.RLock()
	defer r.mu.RUnlock()
	addrs := make([]string, 0, len(r.peers))
	for addr, m := range r.peers {
		if m.Live() {
			addrs = append(addrs, addr)
		}
	}
	sort.Strings(addrs)
	out := make([]Meta, len(addrs))
	for i, addr := range addrs {
		out[i] = *r.peers[addr]
	}
	return out
}

// GenerateReplicasReply renders every live peer as an array-of-records
// reply, the response shape the REPLICAS command returns to clients.
func (r *Registry) GenerateReplicasReply(uuid uint64) wire.Message {
	live := r.LivePeers()
	items := make([]wire.Message, 0, len(live))
	for _, m := range live {
		items = append(items, wire.Arr([]wire.Message{
			wire.Int(int64(m.NodeID)),
			wire.Str(m.Alias),
			wire.Str(m.Addr),
			wire.Int(int64(m.AddedAt)),
		}))
	}
	return wire.Arr(items)
}
