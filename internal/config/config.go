// Package config loads constdbd's node configuration from a YAML file
// with environment overrides, following the same load-then-override
// shape ployz's CLI config uses for its own YAML config.
package config

import (
	"os"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is one node's startup configuration.
type Config struct {
	NodeID       uint64   `yaml:"node_id"`
	NodeAlias    string   `yaml:"node_alias"`
	IP           string   `yaml:"ip"`
	Port         int      `yaml:"port"`
	Peers        []string `yaml:"peers"`
	DataDir      string   `yaml:"data_dir"`
	SnapshotPath string   `yaml:"snapshot_path"`
	IdentityPath string   `yaml:"identity_path"`
	ReplLogSize  int      `yaml:"repl_log_size"`
}

// Default returns the baseline configuration applied before the YAML
// file and environment overrides are folded in.
func Default() Config {
	return Config{
		IP:           "0.0.0.0",
		Port:         6566,
		DataDir:      "./data",
		SnapshotPath: "./data/snapshot.db",
		IdentityPath: "./data/identity.db",
		ReplLogSize:  100000,
	}
}

// Load reads path as YAML over Default(), then applies CONSTDB_* env
// overrides. A missing file is not an error: a fresh node starts from
// defaults and environment variables alone, matching ployz's Load
// ("if the file does not exist, an empty Config is returned").
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return Config{}, errors.Wrapf(err, "config: read %s", path)
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "config: parse %s", path)
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v, ok := os.LookupEnv("CONSTDB_NODE_ID"); ok {
		if id, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.NodeID = id
		}
	}
	if v, ok := os.LookupEnv("CONSTDB_NODE_ALIAS"); ok {
		cfg.NodeAlias = v
	}
	if v, ok := os.LookupEnv("CONSTDB_IP"); ok {
		cfg.IP = v
	}
	if v, ok := os.LookupEnv("CONSTDB_PORT"); ok {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Port = p
		}
	}
	if v, ok := os.LookupEnv("CONSTDB_DATA_DIR"); ok {
		cfg.DataDir = v
	}
}
