package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != Default().Port {
		t.Fatalf("expected default port, got %d", cfg.Port)
	}
}

func TestLoad_ParsesYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "constdb.yaml")
	contents := "node_id: 7\nnode_alias: node-a\nport: 7000\npeers:\n  - 10.0.0.2:6566\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.NodeID != 7 || cfg.NodeAlias != "node-a" || cfg.Port != 7000 {
		t.Fatalf("unexpected parsed config: %+v", cfg)
	}
	if len(cfg.Peers) != 1 || cfg.Peers[0] != "10.0.0.2:6566" {
		t.Fatalf("unexpected peers: %v", cfg.Peers)
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "constdb.yaml")
	if err := os.WriteFile(path, []byte("port: 7000\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONSTDB_PORT", "9999")
	t.Setenv("CONSTDB_NODE_ALIAS", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 9999 {
		t.Fatalf("expected env override to win, got port %d", cfg.Port)
	}
	if cfg.NodeAlias != "from-env" {
		t.Fatalf("expected env override alias, got %q", cfg.NodeAlias)
	}
}
