package crdt

import (
	"io"
	"sort"
	"strconv"
	"sync"

	"github.com/cshekharsharma/constdb/internal/wire"
)

// counterEntry is one node's contribution to a Counter: the running total
// that node has observed for itself, tagged with the UUID of the write
// that produced it so merges can pick the more recent entry per node.
type counterEntry struct {
	value int64
	uuid  uint64
}

// Counter is an increment/decrement counter CRDT. Unlike a pure G-Counter
// it allows negative deltas (needed both for DECR and for the delcnt
// tombstone a deleted counter key replicates as), but it keeps the same
// per-node, max-by-UUID merge rule: two replicas converge because each
// node's slot is only ever overwritten by a strictly newer write from
// that same node, and the logical value is the sum across all slots.
type Counter struct {
	mu      sync.RWMutex
	entries map[uint64]counterEntry // nodeID -> latest entry from that node
}

// NewCounter returns an empty counter.
func NewCounter() *Counter {
	return &Counter{entries: make(map[uint64]counterEntry)}
}

// Change records a delta from nodeID as of uuid. The stored value for
// that node becomes its previous value plus delta, but only if uuid is
// newer than whatever that node last wrote — an out-of-order or replayed
// delta is a no-op, which is what makes replay idempotent.
func (c *Counter) Change(nodeID uint64, delta int64, uuid uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	existing := c.entries[nodeID]
	if uuid <= existing.uuid {
		return
	}
	c.entries[nodeID] = counterEntry{value: existing.value + delta, uuid: uuid}
}

// Get returns the logical value: the sum of every node's latest entry.
func (c *Counter) Get() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var total int64
	for _, e := range c.entries {
		total += e.value
	}
	return total
}

// IterAll returns a deterministically ordered snapshot of (nodeID, value)
// pairs, used by the DEL handler to compute the negating deltas it
// replicates as DELCNT.
func (c *Counter) IterAll() []struct {
	NodeID uint64
	Value  int64
} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]struct {
		NodeID uint64
		Value  int64
	}, 0, len(c.entries))
	for id, e := range c.entries {
		out = append(out, struct {
			NodeID uint64
			Value  int64
		}{NodeID: id, Value: e.value})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NodeID < out[j].NodeID })
	return out
}

// Merge folds another Counter's state in: for each node, the entry with
// the greater UUID wins. This is commutative, associative and idempotent
// because it is a per-key max over a totally ordered UUID space.
func (c *Counter) Merge(other *Counter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	other.mu.RLock()
	defer other.mu.RUnlock()
	for id, oe := range other.entries {
		if existing, ok := c.entries[id]; !ok || oe.uuid > existing.uuid {
			c.entries[id] = oe
		}
	}
}

// Describe renders the per-node breakdown as a reply, matching the
// original implementation's habit of showing the raw vector alongside
// the logical total for operator debugging.
func (c *Counter) Describe() wire.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	items := make([]wire.Message, 0, len(c.entries)+1)
	var total int64
	ids := make([]uint64, 0, len(c.entries))
	for id := range c.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		e := c.entries[id]
		total += e.value
		items = append(items, wire.Bulk([]byte(formatNodeEntry(id, e.value))))
	}
	items = append([]wire.Message{wire.Int(total)}, items...)
	return wire.Arr(items)
}

func formatNodeEntry(nodeID uint64, value int64) string {
	return "node " + strconv.FormatUint(nodeID, 10) + ": " + strconv.FormatInt(value, 10)
}

// SaveSnapshot writes the counter's node entries in the bit-exact layout
// the snapshot format requires: a count, then (nodeID, value, uuid)
// triples in deterministic nodeID order so two saves of the same
// logical state produce identical bytes.
func (c *Counter) SaveSnapshot(w io.Writer) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]uint64, 0, len(c.entries))
	for id := range c.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if err := writeU64(w, uint64(len(ids))); err != nil {
		return err
	}
	for _, id := range ids {
		e := c.entries[id]
		if err := writeU64(w, id); err != nil {
			return err
		}
		if err := writeI64(w, e.value); err != nil {
			return err
		}
		if err := writeU64(w, e.uuid); err != nil {
			return err
		}
	}
	return nil
}

// LoadCounterSnapshot is the inverse of SaveSnapshot.
func LoadCounterSnapshot(r io.Reader) (*Counter, error) {
	n, err := readU64(r)
	if err != nil {
		return nil, err
	}
	c := NewCounter()
	for i := uint64(0); i < n; i++ {
		id, err := readU64(r)
		if err != nil {
			return nil, err
		}
		v, err := readI64(r)
		if err != nil {
			return nil, err
		}
		uuid, err := readU64(r)
		if err != nil {
			return nil, err
		}
		c.entries[id] = counterEntry{value: v, uuid: uuid}
	}
	return c, nil
}
