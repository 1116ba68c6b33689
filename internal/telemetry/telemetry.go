// Package telemetry is the one place command/store/replica are allowed
// to reach for metrics and tracing through: a narrow Sink interface,
// backed by a concrete implementation over prometheus/client_golang and
// go.opentelemetry.io/otel. Neither the command engine nor the object
// model import this package directly — internal/server wires a Sink
// into each through the small interfaces command/types.go declares.
package telemetry

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Sink is every telemetry hook the rest of the system needs.
type Sink interface {
	IncrCommandsProcessed()
	SetKeyCount(n int)
	SetReplLogLength(n int)
	SetLinkLag(peerAddr string, lagUUIDs float64)
	Tracer() trace.Tracer
}

// Prom is the concrete Sink: a dedicated prometheus.Registry (so this
// process's metrics never collide with whatever the default global
// registry accumulates) plus an otel tracer reserved for replica
// handshake and snapshot-transfer spans.
type Prom struct {
	registry *prometheus.Registry

	commandsProcessed prometheus.Counter
	keyCount          prometheus.Gauge
	replLogLength     prometheus.Gauge
	linkLag           *prometheus.GaugeVec

	tracer trace.Tracer
}

// New builds a Prom sink and registers its collectors on a fresh
// registry, returned alongside the sink so the HTTP server can expose
// it at /metrics.
func New() (*Prom, *prometheus.Registry) {
	reg := prometheus.NewRegistry()

	p := &Prom{
		registry: reg,
		commandsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "constdb_commands_processed_total",
			Help: "Total client commands executed by this node; replayed commands are not counted.",
		}),
		keyCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "constdb_key_count",
			Help: "Number of keys currently held in the store.",
		}),
		replLogLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "constdb_repl_log_length",
			Help: "Number of records currently retained in the replication log.",
		}),
		linkLag: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "constdb_replica_link_lag_uuids",
			Help: "Difference between this node's latest UUID and a peer's last acknowledged UUID.",
		}, []string{"peer"}),
		tracer: otel.Tracer("constdb/replica"),
	}

	reg.MustRegister(p.commandsProcessed, p.keyCount, p.replLogLength, p.linkLag)
	return p, reg
}

func (p *Prom) IncrCommandsProcessed() { p.commandsProcessed.Inc() }

func (p *Prom) SetKeyCount(n int) { p.keyCount.Set(float64(n)) }

func (p *Prom) SetReplLogLength(n int) { p.replLogLength.Set(float64(n)) }

func (p *Prom) SetLinkLag(peerAddr string, lagUUIDs float64) {
	p.linkLag.WithLabelValues(peerAddr).Set(lagUUIDs)
}

func (p *Prom) Tracer() trace.Tracer { return p.tracer }

// StartHandshakeSpan opens a span covering one replica handshake:
// handshake latency is the one replica subsystem cost operators
// actually care to trace. Callers end the span once the hello exchange
// (or, for the snapshot side, the snapshot transfer) completes.
func StartHandshakeSpan(ctx context.Context, sink Sink, peerAddr string) (context.Context, trace.Span) {
	return sink.Tracer().Start(ctx, "replica.handshake", trace.WithAttributes(
		attribute.String("peer.addr", peerAddr),
	))
}

// Noop is a Sink that discards everything, used by tests and by any
// caller that does not want to stand up a registry.
type Noop struct{}

func (Noop) IncrCommandsProcessed()                  {}
func (Noop) SetKeyCount(int)                         {}
func (Noop) SetReplLogLength(int)                    {}
func (Noop) SetLinkLag(string, float64)               {}
func (Noop) Tracer() trace.Tracer                    { return noopTracer }

var noopTracer = trace.NewNoopTracerProvider().Tracer("constdb/noop")
