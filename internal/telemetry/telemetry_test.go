package telemetry

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestProm_CommandsProcessedIncrements(t *testing.T) {
	p, _ := New()
	p.IncrCommandsProcessed()
	p.IncrCommandsProcessed()

	got := testutil.ToFloat64(p.commandsProcessed)
	if got != 2 {
		t.Fatalf("expected counter at 2, got %v", got)
	}
}

func TestProm_KeyCountAndReplLogLengthReportGauges(t *testing.T) {
	p, _ := New()
	p.SetKeyCount(42)
	p.SetReplLogLength(7)

	if got := testutil.ToFloat64(p.keyCount); got != 42 {
		t.Fatalf("expected key count gauge 42, got %v", got)
	}
	if got := testutil.ToFloat64(p.replLogLength); got != 7 {
		t.Fatalf("expected repl log length gauge 7, got %v", got)
	}
}

func TestProm_LinkLagIsPerPeer(t *testing.T) {
	p, _ := New()
	p.SetLinkLag("10.0.0.2:6566", 3)
	p.SetLinkLag("10.0.0.3:6566", 9)

	if got := testutil.ToFloat64(p.linkLag.WithLabelValues("10.0.0.2:6566")); got != 3 {
		t.Fatalf("expected lag 3 for first peer, got %v", got)
	}
	if got := testutil.ToFloat64(p.linkLag.WithLabelValues("10.0.0.3:6566")); got != 9 {
		t.Fatalf("expected lag 9 for second peer, got %v", got)
	}
}

func TestProm_RegistryGatherIncludesAllMetricNames(t *testing.T) {
	p, reg := New()
	p.IncrCommandsProcessed()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	joined := strings.Join(names, ",")
	for _, want := range []string{"constdb_commands_processed_total", "constdb_key_count", "constdb_repl_log_length", "constdb_replica_link_lag_uuids"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected %q among registered metric families, got %s", want, joined)
		}
	}
}

func TestNoop_SatisfiesSinkWithoutPanicking(t *testing.T) {
	var s Sink = Noop{}
	s.IncrCommandsProcessed()
	s.SetKeyCount(1)
	s.SetReplLogLength(1)
	s.SetLinkLag("x", 1)
	if s.Tracer() == nil {
		t.Fatal("expected a non-nil tracer from Noop")
	}
}
