// Package repllog implements the bounded, append-only replication log:
// the ordered sequence of accepted write records every replica link
// tails, and the cursor type links use to wait for new records without
// holding the log's lock across a blocking read.
package repllog

import (
	"context"
	"sync"

	"github.com/cshekharsharma/constdb/internal/wire"
)

// Record is one replicated command: the UUID it was accepted under, the
// command name, and its argument messages (ready to hand to ArgReader).
type Record struct {
	UUID uint64
	Name string
	Args []wire.Message
}

// Log is a single-writer, multi-reader, bounded append-only sequence of
// Records addressable by UUID. The server task is the sole writer;
// replica links read through a Cursor and never take Log's lock across
// a blocking wait.
//
// Notification uses the channel-close-and-replace idiom rather than
// sync.Cond: every append closes the current "ready" channel and
// installs a fresh one, so a blocked reader's `select` can observe
// either a new record or a caller's context cancellation without ever
// parking outside of a select statement.
type Log struct {
	mu      sync.RWMutex
	records []Record
	maxLen  int
	ready   chan struct{}
}

// New returns an empty log that retains at most maxLen records before
// truncating its oldest entries. A non-positive maxLen means unbounded.
func New(maxLen int) *Log {
	return &Log{maxLen: maxLen, ready: make(chan struct{})}
}

// Append adds a record to the tail of the log and wakes every cursor
// currently waiting on it. If the log is at capacity, the oldest record
// is dropped, advancing the retention horizon.
func (l *Log) Append(rec Record) {
	l.mu.Lock()
	l.records = append(l.records, rec)
	if l.maxLen > 0 && len(l.records) > l.maxLen {
		l.records = l.records[1:]
	}
	old := l.ready
	l.ready = make(chan struct{})
	l.mu.Unlock()
	close(old)
}

// Len returns the number of records currently retained.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// HorizonUUID returns the UUID of the oldest retained record, and false
// if the log is empty. A peer whose last-acknowledged UUID is older than
// this must bootstrap via snapshot rather than tail the log.
func (l *Log) HorizonUUID() (uint64, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.records) == 0 {
		return 0, false
	}
	return l.records[0].UUID, true
}

// InWindow reports whether uuid is at or after the log's retained
// horizon, i.e. whether a reader positioned there can tail the log
// instead of needing a snapshot.
func (l *Log) InWindow(uuid uint64) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.records) == 0 {
		return false
	}
	return uuid >= l.records[0].UUID
}

// At returns the record with the given UUID, if still retained.
func (l *Log) At(uuid uint64) (Record, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, r := range l.records {
		if r.UUID == uuid {
			return r, true
		}
	}
	return Record{}, false
}

// UUIDs returns every retained record's UUID, oldest first.
func (l *Log) UUIDs() []uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]uint64, len(l.records))
	for i, r := range l.records {
		out[i] = r.UUID
	}
	return out
}

// Cursor walks a Log forward from a starting UUID, blocking when it
// catches up to the tail.
type Cursor struct {
	log     *Log
	afterID uint64
	started bool
}

// NewCursor returns a cursor that will yield every record with UUID
// strictly greater than afterUUID, in order.
func (l *Log) NewCursor(afterUUID uint64) *Cursor {
	return &Cursor{log: l, afterID: afterUUID, started: true}
}

// Next blocks until a record with UUID > the cursor's position is
// available or ctx is done. On success it advances the cursor's
// position to the returned record's UUID.
func (c *Cursor) Next(ctx context.Context) (Record, error) {
	for {
		c.log.mu.RLock()
		ready := c.log.ready
		for _, r := range c.log.records {
			if r.UUID > c.afterID {
				c.log.mu.RUnlock()
				c.afterID = r.UUID
				return r, nil
			}
		}
		c.log.mu.RUnlock()

		select {
		case <-ready:
			continue
		case <-ctx.Done():
			return Record{}, ctx.Err()
		}
	}
}

// Position returns the UUID the cursor has most recently yielded (or its
// starting UUID if it has not yielded anything yet).
func (c *Cursor) Position() uint64 { return c.afterID }
