package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestParseTimestamp(t *testing.T) {
	cases := []struct {
		in   string
		want uint64
		err  bool
	}{
		{in: "", want: 0},
		{in: "1700000000", want: 1700000000},
		{in: "2023-11-14T22:13:20Z", want: 1700000000},
		{in: "yesterday", err: true},
	}
	for _, tc := range cases {
		got, err := ParseTimestamp(tc.in)
		if tc.err {
			if err == nil {
				t.Fatalf("%q: expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("%q: got %d want %d", tc.in, got, tc.want)
		}
	}
}

func TestLoadReplayFlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "farmer.yaml")
	if err := os.WriteFile(path, []byte("genesis: ./genesis.yaml\nbatch-size: 50\nkeeper-schedule: \"*/5 * * * *\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	flags := pflag.NewFlagSet("replay", pflag.ContinueOnError)
	flags.Int("batch-size", 500, "")
	flags.String("journal", "", "")
	if err := flags.Parse([]string{"--batch-size=10", "--journal=ops.jsonl"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadReplay(path, flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Genesis != "./genesis.yaml" || cfg.Journal != "ops.jsonl" {
		t.Fatalf("unexpected paths: %+v", cfg)
	}
	if cfg.BatchSize != 10 {
		t.Fatalf("flag should win, got batch size %d", cfg.BatchSize)
	}
	if cfg.KeeperSchedule != "*/5 * * * *" {
		t.Fatalf("unexpected schedule %q", cfg.KeeperSchedule)
	}
	if !cfg.CheckpointEnabled || cfg.RetryBackoff != 500*time.Millisecond || cfg.LogLevel != "info" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestLoadSupplyFromEnv(t *testing.T) {
	t.Setenv("FARMER_RPC", "http://localhost:8545")
	t.Setenv("FARMER_HOLDER", "0x01, 0x02,,")
	t.Setenv("FARMER_MAX_RETRIES", "2")

	cfg, err := LoadSupply(filepath.Join("testdata", "missing.yaml"), nil)
	if err == nil {
		t.Fatalf("expected error for missing explicit config file, got %+v", cfg)
	}

	cfg, err = LoadSupply("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPCURL != "http://localhost:8545" || cfg.MaxRetries != 2 {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.Holders, []string{"0x01", "0x02"}) {
		t.Fatalf("unexpected holders %v", cfg.Holders)
	}
}

func TestGetStringSliceFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "farmer.yaml")
	if err := os.WriteFile(path, []byte("user:\n  - 0x0b0b\n  - \" 0x0c0c \"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadPending(path, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(cfg.Users, []string{"0x0b0b", "0x0c0c"}) {
		t.Fatalf("unexpected users %v", cfg.Users)
	}
	if cfg.State != "./data/state.json" {
		t.Fatalf("unexpected state default %q", cfg.State)
	}
}
