package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "farmer",
		Short:        "Yield farm emission ledger",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Apply an operation journal to a farm built from genesis",
		RunE:  runReplay,
	}

	replayCmd.Flags().String("genesis", "", "genesis YAML path")
	replayCmd.Flags().String("journal", "", "operation journal JSONL")
	replayCmd.Flags().String("out", "./data/results.jsonl", "output results JSONL path")
	replayCmd.Flags().String("checkpoint", "./data/state.json", "state checkpoint path")
	replayCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	replayCmd.Flags().Int("batch-size", 500, "operations per batch")
	replayCmd.Flags().String("keeper-schedule", "", "cron expression for keeper vault harvests (journal time)")
	replayCmd.Flags().String("keeper-address", "", "caller address used for keeper harvests")
	replayCmd.Flags().String("pg-dsn", "", "optional Postgres DSN for reporting snapshots")
	replayCmd.Flags().Bool("pg-ensure-schema", true, "create reporting tables if missing")
	replayCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9102)")
	replayCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	replayCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	replayCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(replayCmd)

	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "Project emission over a time range",
		RunE:  runSchedule,
	}

	scheduleCmd.Flags().String("genesis", "", "genesis YAML path (overrides the schedule flags)")
	scheduleCmd.Flags().Uint64("start-time", 0, "schedule start (unix seconds)")
	scheduleCmd.Flags().Uint64("segment-length", 0, "bonus segment length in seconds")
	scheduleCmd.Flags().String("emission-per-second", "", "base emission per second (smallest units)")
	scheduleCmd.Flags().String("from", "", "range start (unix seconds or RFC3339), defaults to start time")
	scheduleCmd.Flags().String("to", "", "range end (unix seconds or RFC3339), defaults to end of bonus")
	scheduleCmd.Flags().String("window", "24h", "window size (e.g. 1h, 24h)")
	scheduleCmd.Flags().Uint("decimals", 18, "reward token decimals for display")
	scheduleCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(scheduleCmd)

	pendingCmd := &cobra.Command{
		Use:   "pending",
		Short: "Report pending rewards from a state checkpoint",
		RunE:  runPending,
	}

	pendingCmd.Flags().String("genesis", "", "genesis YAML path")
	pendingCmd.Flags().String("state", "./data/state.json", "state checkpoint path")
	pendingCmd.Flags().StringSlice("user", nil, "user addresses (comma-separated)")
	pendingCmd.Flags().String("at", "", "evaluation time (unix seconds or RFC3339), defaults to the checkpoint time")
	pendingCmd.Flags().String("rpc", "", "RPC URL; evaluate at the chain head timestamp when --at is empty")
	pendingCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(pendingCmd)

	supplyCmd := &cobra.Command{
		Use:   "supply",
		Short: "Read an on-chain reward token's supply counters",
		RunE:  runSupply,
	}

	supplyCmd.Flags().String("rpc", "", "RPC URL")
	supplyCmd.Flags().String("token", "", "reward token address")
	supplyCmd.Flags().StringSlice("holder", nil, "addresses to report balances for (comma-separated)")
	supplyCmd.Flags().Uint64("block", 0, "block number, 0 means latest")
	supplyCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	supplyCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	supplyCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(supplyCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
