package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCreatesDefaultWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RPCAddress != ":8545" {
		t.Fatalf("expected default RPC address, got %q", cfg.RPCAddress)
	}
	if cfg.MetricsAddress != ":9090" {
		t.Fatalf("expected default metrics address, got %q", cfg.MetricsAddress)
	}
	if cfg.DataDir != "./data" {
		t.Fatalf("expected default data dir, got %q", cfg.DataDir)
	}
	if cfg.Environment != "local" {
		t.Fatalf("expected default environment, got %q", cfg.Environment)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected default file written: %v", err)
	}
}

func TestLoadParsesFileAndFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	doc := `RPCAddress = ":7545"
DataDir = "/var/lib/loansd"
GenesisFile = "/etc/loansd/genesis.json"
Environment = "prod"
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RPCAddress != ":7545" {
		t.Fatalf("expected RPC address from file, got %q", cfg.RPCAddress)
	}
	if cfg.DataDir != "/var/lib/loansd" {
		t.Fatalf("expected data dir from file, got %q", cfg.DataDir)
	}
	if cfg.GenesisFile != "/etc/loansd/genesis.json" {
		t.Fatalf("expected genesis file from file, got %q", cfg.GenesisFile)
	}
	if cfg.MetricsAddress != ":9090" {
		t.Fatalf("expected metrics default to backfill, got %q", cfg.MetricsAddress)
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{RPCAddress: ":8545", DataDir: "./data"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := (&Config{DataDir: "./data"}).Validate(); err == nil {
		t.Fatalf("expected empty RPC address rejection")
	}
	if err := (&Config{RPCAddress: ":8545"}).Validate(); err == nil {
		t.Fatalf("expected empty data dir rejection")
	}
}
