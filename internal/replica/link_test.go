package replica

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/cshekharsharma/constdb/internal/repllog"
	"github.com/cshekharsharma/constdb/internal/wire"
)

func TestLink_HandshakeExchangesIdentity(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	codec := wire.NewRESPCodec()
	linkA := NewLink(a, codec)
	linkB := NewLink(b, codec)

	done := make(chan error, 1)
	go func() {
		done <- linkB.AcceptHandshake(2, "peer-b", 50)
	}()

	if err := linkA.InitiateHandshake(1, "peer-a", 30); err != nil {
		t.Fatalf("InitiateHandshake: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("AcceptHandshake: %v", err)
	}

	if linkA.Meta().NodeID != 2 || linkA.Meta().Alias != "peer-b" || linkA.Meta().UUIDHeSent != 50 {
		t.Fatalf("linkA learned wrong peer identity: %+v", linkA.Meta())
	}
	if linkB.Meta().NodeID != 1 || linkB.Meta().Alias != "peer-a" || linkB.Meta().UUIDHeSent != 30 {
		t.Fatalf("linkB learned wrong peer identity: %+v", linkB.Meta())
	}
	if linkA.State() != Handshake || linkB.State() != Handshake {
		t.Fatalf("expected both links in Handshake, got %v / %v", linkA.State(), linkB.State())
	}
}

func TestLink_NeedsSnapshotWhenPeerBehindWindow(t *testing.T) {
	log := repllog.New(2)
	log.Append(repllog.Record{UUID: 10, Name: "set"})
	log.Append(repllog.Record{UUID: 20, Name: "set"})
	log.Append(repllog.Record{UUID: 30, Name: "set"}) // evicts uuid 10

	l := &Link{meta: Meta{UUIDHeSent: 10}}
	if !l.NeedsSnapshot(log) {
		t.Fatalf("expected snapshot required when peer's uuid fell out of the window")
	}

	l2 := &Link{meta: Meta{UUIDHeSent: 20}}
	if l2.NeedsSnapshot(log) {
		t.Fatalf("expected no snapshot required when peer's uuid is still retained")
	}
}

func TestLink_StreamsRecordsOutboundAndAppliesInbound(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	codec := wire.NewRESPCodec()
	log := repllog.New(16)
	log.Append(repllog.Record{UUID: 1, Name: "set", Args: []wire.Message{wire.Bulk([]byte("k")), wire.Bulk([]byte("v"))}})

	sender := NewLink(a, codec)
	sender.BeginStreaming(log, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go func() {
		_ = sender.RunOutbound(ctx)
	}()

	receiver := NewLink(b, codec)
	applied := make(chan uint64, 1)
	apply := func(name string, uuid uint64, args []wire.Message) (wire.Message, error) {
		if name != "set" || uuid != 1 {
			t.Errorf("unexpected replay: name=%s uuid=%d", name, uuid)
		}
		return wire.OK(), nil
	}
	go func() {
		_ = receiver.RunInbound(ctx, apply, func(uuid uint64) { applied <- uuid })
	}()

	select {
	case uuid := <-applied:
		if uuid != 1 {
			t.Fatalf("expected applied uuid 1, got %d", uuid)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for streamed record to be applied")
	}

	if receiver.Meta().UUIDHeSent != 1 {
		t.Fatalf("expected receiver to track peer progress at uuid 1, got %d", receiver.Meta().UUIDHeSent)
	}
}
