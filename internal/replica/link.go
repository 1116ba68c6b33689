package replica

import (
	"context"
	"net"

	"github.com/cshekharsharma/constdb/internal/repllog"
	"github.com/cshekharsharma/constdb/internal/wire"
	"github.com/pkg/errors"
)

// State is one stage of a replica link's lifecycle.
type State int

const (
	Disconnected State = iota
	Handshake
	Streaming
	Closed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Handshake:
		return "handshake"
	case Streaming:
		return "streaming"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// ReplayFunc applies one peer-delivered record to local state. It
// mirrors command.Replay's signature without this package depending on
// command directly (command already depends on nothing here, but
// keeping the dependency one-directional — server imports both and
// wires this closure — keeps the two packages decoupled).
type ReplayFunc func(name string, uuid uint64, args []wire.Message) (wire.Message, error)

// Link drives one peer connection through Disconnected -> Handshake ->
// Streaming -> Closed. Outbound tailing and inbound apply run
// concurrently in their own goroutines once Streaming begins.
type Link struct {
	state State
	codec wire.Codec
	conn  net.Conn
	meta  Meta
	out   *repllog.Cursor
}

// NewLink wraps conn with codec, starting in Disconnected.
func NewLink(conn net.Conn, codec wire.Codec) *Link {
	return &Link{state: Disconnected, conn: conn, codec: codec}
}

// State returns the link's current lifecycle stage.
func (l *Link) State() State { return l.state }

// Meta returns the peer metadata learned during handshake.
func (l *Link) Meta() Meta { return l.meta }

// SetMeta installs peer metadata learned outside of InitiateHandshake/
// AcceptHandshake -- the SYNC control command already carries the
// peer's identity and requested starting point as ordinary command
// arguments, so a server-initiated link built from an accepted client
// connection has no separate wire handshake to run.
func (l *Link) SetMeta(m Meta) {
	l.state = Handshake
	l.meta = m
}

// InitiateHandshake sends this node's SYNC record and blocks for the
// peer's reply, recording its identity: the initiating half of a
// symmetric exchange whose other half is AcceptHandshake. The server's
// MEET path does not use it; it sends a one-way SendHello instead.
func (l *Link) InitiateHandshake(myNodeID uint64, myAlias string, uuidISent uint64) error {
	l.state = Handshake
	req := wire.Arr([]wire.Message{
		wire.Str("sync"),
		wire.Int(0),
		wire.Int(int64(myNodeID)),
		wire.Str(myAlias),
		wire.Int(int64(uuidISent)),
	})
	if err := l.codec.WriteMessage(l.conn, req); err != nil {
		return errors.Wrap(err, "replica: write sync handshake")
	}
	reply, err := l.codec.ReadMessage(l.conn)
	if err != nil {
		return errors.Wrap(err, "replica: read sync reply")
	}
	return l.absorbSyncReply(reply)
}

// SendHello writes this node's SYNC record and returns without waiting
// for a reply: the dialing side of a MEET already knows what it wants
// to announce and does not block the link on a symmetric exchange, since
// the peer may answer on a separate connection of its own MEET in the
// other direction (full-mesh gossip is two one-directional links, not
// one bidirectional handshake).
func (l *Link) SendHello(myNodeID uint64, myAlias string, uuidISent uint64) error {
	l.state = Handshake
	req := wire.Arr([]wire.Message{
		wire.Str("sync"),
		wire.Int(0),
		wire.Int(int64(myNodeID)),
		wire.Str(myAlias),
		wire.Int(int64(uuidISent)),
	})
	return errors.Wrap(l.codec.WriteMessage(l.conn, req), "replica: write sync hello")
}

// AcceptHandshake reads an inbound SYNC record from a freshly accepted
// connection, replies with this node's own SYNC record, and records the
// peer's identity.
func (l *Link) AcceptHandshake(myNodeID uint64, myAlias string, uuidISent uint64) error {
	l.state = Handshake
	req, err := l.codec.ReadMessage(l.conn)
	if err != nil {
		return errors.Wrap(err, "replica: read sync request")
	}
	if err := l.absorbSyncReply(req); err != nil {
		return err
	}
	reply := wire.Arr([]wire.Message{
		wire.Str("sync"),
		wire.Int(0),
		wire.Int(int64(myNodeID)),
		wire.Str(myAlias),
		wire.Int(int64(uuidISent)),
	})
	if err := l.codec.WriteMessage(l.conn, reply); err != nil {
		return errors.Wrap(err, "replica: write sync reply")
	}
	return nil
}

func (l *Link) absorbSyncReply(msg wire.Message) error {
	if msg.Kind != wire.KindArray || len(msg.Items) < 5 {
		return errors.New("replica: malformed sync record")
	}
	// Items[0] is the command name and Items[1] the leading zero marker.
	r := wire.NewArgReader(msg.Items[2:])
	nodeID, err := r.NextU64()
	if err != nil {
		return errors.Wrap(err, "replica: sync node id")
	}
	alias, err := r.NextString()
	if err != nil {
		return errors.Wrap(err, "replica: sync alias")
	}
	uuidHeSent, err := r.NextU64()
	if err != nil {
		return errors.Wrap(err, "replica: sync uuid")
	}
	l.meta.NodeID = nodeID
	l.meta.Alias = alias
	l.meta.UUIDHeSent = uuidHeSent
	return nil
}

// NeedsSnapshot reports whether the peer's last-acknowledged UUID has
// fallen behind the local log's retained window, meaning a full
// snapshot transfer is required before streaming can catch it up.
func (l *Link) NeedsSnapshot(log *repllog.Log) bool {
	return !log.InWindow(l.meta.UUIDHeSent)
}

// BeginStreaming transitions to Streaming at startUUID, positioning the
// outbound cursor just after it.
func (l *Link) BeginStreaming(log *repllog.Log, startUUID uint64) {
	l.state = Streaming
	l.out = log.NewCursor(startUUID)
}

// RunOutbound tails the replication log from the link's streaming
// position and writes each record to the peer, blocking between
// records until the log has more or ctx is cancelled. Intended to run
// in its own goroutine.
func (l *Link) RunOutbound(ctx context.Context) error {
	for {
		rec, err := l.out.Next(ctx)
		if err != nil {
			return err
		}
		items := make([]wire.Message, 0, len(rec.Args)+2)
		items = append(items, wire.Str(rec.Name), wire.Int(int64(rec.UUID)))
		items = append(items, rec.Args...)
		if err := l.codec.WriteMessage(l.conn, wire.Arr(items)); err != nil {
			return errors.Wrap(err, "replica: write outbound record")
		}
	}
}

// RunInbound reads records from the peer and applies each through
// apply, updating the link's record of the peer's progress. A
// TypeConflict (or any) error from apply is swallowed and the link
// continues: convergence is preserved because the later write on the
// other side carries a larger UUID and dominates on merge, so skipping
// a failed replay never threatens consistency.
func (l *Link) RunInbound(ctx context.Context, apply ReplayFunc, onApplied func(uuid uint64)) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		msg, err := l.codec.ReadMessage(l.conn)
		if err != nil {
			return errors.Wrap(err, "replica: read inbound record")
		}
		if msg.Kind != wire.KindArray || len(msg.Items) < 2 {
			continue
		}
		r := wire.NewArgReader(msg.Items)
		name, err := r.NextString()
		if err != nil {
			continue
		}
		uuid, err := r.NextU64()
		if err != nil {
			continue
		}
		args := msg.Items[2:]
		if _, err := apply(name, uuid, args); err != nil {
			continue
		}
		l.meta.UUIDHeSent = uuid
		if onApplied != nil {
			onApplied(uuid)
		}
	}
}

// Close transitions the link to Closed and releases its socket.
func (l *Link) Close() error {
	l.state = Closed
	if l.conn == nil {
		return nil
	}
	return l.conn.Close()
}
