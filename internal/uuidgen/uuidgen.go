// Package uuidgen implements the per-node hybrid UUID generator: the
// monotone 64-bit ordering source every write is tagged with.
package uuidgen

import (
	"sync"
	"time"
)

// sequenceBits is the width of the per-millisecond counter packed into
// the low bits of a UUID; the remaining high bits carry the millisecond
// wall clock.
const sequenceBits = 20
const sequenceMask = (1 << sequenceBits) - 1

// Generator produces strictly increasing 64-bit values for one node. It
// packs a millisecond timestamp into the high 44 bits and a
// per-millisecond sequence into the low 20 bits, so up to 2^20 calls in
// the same millisecond remain distinguishable and ordered. The generator
// never goes backward, even across an NTP step or a restart seeded from
// a stale persisted high-water mark: it holds the last millisecond and
// advances by sequence alone until wall time catches back up.
type Generator struct {
	mu       sync.Mutex
	lastMs   int64
	sequence uint32
	nowFunc  func() time.Time
}

// New returns a generator with no persisted history; its first value is
// derived from the current wall clock.
func New() *Generator {
	return &Generator{nowFunc: time.Now}
}

// NewWithHighWaterMark returns a generator seeded so that every value it
// emits is strictly greater than highWaterMark, the last value this node
// emitted before a restart (persisted alongside the identity record).
func NewWithHighWaterMark(highWaterMark uint64) *Generator {
	g := New()
	g.lastMs = int64(highWaterMark >> sequenceBits)
	g.sequence = uint32(highWaterMark & sequenceMask)
	return g
}

// Next returns the next UUID for this node, strictly greater than every
// value previously returned by this generator. isWrite has no effect on
// the value produced; it exists so callers can distinguish
// read-only callers (which need a UUID for snapshot isolation but do not
// require global uniqueness) from write callers, a distinction enforced
// by the command engine rather than the generator itself.
func (g *Generator) Next(isWrite bool) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.nowFunc().UnixMilli()
	if ms <= g.lastMs {
		ms = g.lastMs
		g.sequence++
		if g.sequence > sequenceMask {
			// Exhausted this millisecond's sequence space; borrow the next
			// millisecond rather than ever wrapping back to zero.
			ms++
			g.sequence = 0
		}
	} else {
		g.sequence = 0
	}
	g.lastMs = ms

	return (uint64(ms) << sequenceBits) | uint64(g.sequence)
}

// HighWaterMark returns the last value emitted, for persisting across a
// restart.
func (g *Generator) HighWaterMark() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return (uint64(g.lastMs) << sequenceBits) | uint64(g.sequence)
}
