package server

import (
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/cshekharsharma/constdb/internal/cmderr"
	"github.com/cshekharsharma/constdb/internal/wire"
)

var connCounter int64

// clientConn is the accept loop's command.ClientHandle implementation.
// Once TakeConn is called (promoting the socket to a replica link) the
// connection's own read/reply loop must stop touching the socket
// entirely, so Close becomes a no-op and the caller breaks its loop
// after seeing taken go true.
type clientConn struct {
	conn net.Conn
	id   string

	mu    sync.Mutex
	taken bool
}

func newClientConn(conn net.Conn) *clientConn {
	n := atomic.AddInt64(&connCounter, 1)
	return &clientConn{conn: conn, id: strconv.FormatInt(n, 10)}
}

func (c *clientConn) ThreadID() string { return c.id }

func (c *clientConn) TakeConn() interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.taken = true
	return c.conn
}

func (c *clientConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.taken {
		return
	}
	c.conn.Close()
}

func (c *clientConn) wasTaken() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.taken
}

// Serve accepts connections on ln until it returns an error (typically
// because ln was closed by the caller during shutdown).
func (s *Server) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	client := newClientConn(conn)
	defer client.Close()

	for {
		req, err := codec.ReadMessage(conn)
		if err != nil {
			return
		}
		if req.Kind != wire.KindArray || len(req.Items) == 0 {
			_ = codec.WriteMessage(conn, wire.ErrFrom(cmderr.InvalidRequest("request must be a non-empty array")))
			continue
		}
		nameArg := wire.NewArgReader(req.Items)
		name, err := nameArg.NextString()
		if err != nil {
			_ = codec.WriteMessage(conn, wire.ErrFrom(cmderr.InvalidRequest("command name must be a scalar")))
			continue
		}

		reply, err := s.Dispatch(client, name, req.Items[1:])
		if err != nil {
			_ = codec.WriteMessage(conn, wire.ErrFrom(err))
		} else if reply.Kind != wire.KindNone {
			if werr := codec.WriteMessage(conn, reply); werr != nil {
				return
			}
		}

		if client.wasTaken() {
			// Ownership of conn has passed to a replica link; stop
			// reading here so the link's own goroutines are the only
			// thing still touching the socket.
			return
		}
	}
}
