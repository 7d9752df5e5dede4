package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"farmLedger/internal/config"
	"farmLedger/internal/genesis"
	"farmLedger/internal/metrics"
	"farmLedger/internal/replay"
	"farmLedger/internal/storage"
	"farmLedger/internal/storage/postgres"
)

const sinkName = "replay"

func runReplay(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadReplay(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Genesis == "" {
		return fmt.Errorf("genesis path is required")
	}
	if cfg.Journal == "" {
		return fmt.Errorf("journal path is required")
	}

	var keeper common.Address
	if cfg.KeeperSchedule != "" {
		if !common.IsHexAddress(cfg.KeeperAddress) {
			return fmt.Errorf("keeper address is required with a keeper schedule")
		}
		keeper = common.HexToAddress(cfg.KeeperAddress)
	}

	g, err := genesis.Load(cfg.Genesis)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if cfg.MetricsAddr != "" {
		m = metrics.New("farmer")
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: m.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server stopped", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
		logger.Info("metrics listening", zap.String("addr", cfg.MetricsAddr))
	}

	engine, err := replay.NewEngine(g, logger.Named("engine"), m)
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}

	var sink replay.Sink
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()

		if cfg.PGEnsureSchema {
			if err := store.EnsureSchema(ctx); err != nil {
				return err
			}
		}
		seq, ts, ok, err := store.LoadProgress(ctx, sinkName)
		if err != nil {
			return err
		}
		if ok {
			logger.Info("sink progress", zap.Uint64("last_seq", seq), zap.Uint64("ts", ts))
		}
		sink = store
	}

	results := storage.NewJsonlStorage(cfg.Out)
	defer results.Close()

	runner := replay.NewRunner(replay.RunConfig{
		JournalPath:       cfg.Journal,
		BatchSize:         cfg.BatchSize,
		CheckpointPath:    cfg.Checkpoint,
		CheckpointEnabled: cfg.CheckpointEnabled,
		KeeperSchedule:    cfg.KeeperSchedule,
		KeeperCaller:      keeper,
		SinkName:          sinkName,
		MaxRetries:        cfg.MaxRetries,
		RetryBackoff:      cfg.RetryBackoff,
	}, engine, results, sink, logger.Named("runner"), m)

	logger.Info("replay start",
		zap.String("genesis", cfg.Genesis),
		zap.String("journal", cfg.Journal),
		zap.String("out", cfg.Out),
		zap.Int("batch_size", cfg.BatchSize),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.String("checkpoint", cfg.Checkpoint),
		zap.String("keeper_schedule", cfg.KeeperSchedule),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
	)

	_, err = runner.Run(ctx)
	return err
}
