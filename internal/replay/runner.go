package replay

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"farmLedger/internal/metrics"
	"farmLedger/internal/model"
	"farmLedger/internal/storage"
)

// RunConfig holds runtime settings for a journal replay.
type RunConfig struct {
	JournalPath       string
	BatchSize         int
	CheckpointPath    string
	CheckpointEnabled bool
	// KeeperSchedule is a cron expression; empty disables keeper harvests.
	KeeperSchedule string
	KeeperCaller   common.Address
	// SinkName keys the progress row written to the reporting sink.
	SinkName     string
	MaxRetries   int
	RetryBackoff time.Duration
}

// Sink receives reporting rows after every batch.
type Sink interface {
	UpsertPools(ctx context.Context, rows []model.PoolSnapshot) error
	UpsertPositions(ctx context.Context, rows []model.PositionSnapshot) error
	UpsertVaultUsers(ctx context.Context, rows []model.VaultUserSnapshot) error
	UpsertSupply(ctx context.Context, row model.TokenSupply) error
	SaveProgress(ctx context.Context, name string, seq, ts uint64) error
}

// Summary counts what a Run did.
type Summary struct {
	Applied  int
	Rejected int
	Skipped  int
	Harvests int
	LastSeq  uint64
}

// Runner applies a journal to an engine and writes results to storage.
type Runner struct {
	cfg        RunConfig
	engine     *Engine
	storage    storage.Storage
	sink       Sink
	logger     *zap.Logger
	metrics    *metrics.Metrics
	checkpoint *CheckpointStore
	keeper     *Keeper
	pending    []model.OpResult
}

// NewRunner builds a Runner. sink and m may be nil.
func NewRunner(cfg RunConfig, engine *Engine, results storage.Storage, sink Sink, logger *zap.Logger, m *metrics.Metrics) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SinkName == "" {
		cfg.SinkName = "replay"
	}
	return &Runner{
		cfg:        cfg,
		engine:     engine,
		storage:    results,
		sink:       sink,
		logger:     logger,
		metrics:    m,
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled),
	}
}

// Run replays the journal from the last checkpoint to its end.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	var sum Summary
	if r.engine == nil {
		return sum, fmt.Errorf("engine is nil")
	}
	if r.storage == nil {
		return sum, fmt.Errorf("storage is nil")
	}
	if r.cfg.BatchSize <= 0 {
		return sum, fmt.Errorf("batch size must be greater than zero")
	}
	if r.cfg.JournalPath == "" {
		return sum, fmt.Errorf("journal path is required")
	}

	state, ok, err := r.checkpoint.Load()
	if err != nil {
		return sum, err
	}
	if ok {
		if err := r.engine.Restore(state); err != nil {
			return sum, fmt.Errorf("restore checkpoint: %w", err)
		}
		r.logger.Info("resume from checkpoint", zap.Uint64("last_seq", state.LastSeq), zap.Uint64("ts", state.Timestamp))
	}

	if r.cfg.KeeperSchedule != "" {
		if r.engine.Vault == nil {
			return sum, fmt.Errorf("keeper schedule set but genesis has no vault")
		}
		r.keeper, err = NewKeeper(r.cfg.KeeperSchedule, r.cfg.KeeperCaller, r.engine.Clock.Now())
		if err != nil {
			return sum, err
		}
		r.logger.Info("keeper enabled", zap.String("schedule", r.cfg.KeeperSchedule), zap.Uint64("next", r.keeper.Next()))
	}

	file, err := os.Open(r.cfg.JournalPath)
	if err != nil {
		return sum, fmt.Errorf("open journal: %w", err)
	}
	defer file.Close()

	err = ReadJournal(file, func(rec model.OpRecord) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if rec.Seq == 0 {
			return fmt.Errorf("op %q at %d: seq must be positive", rec.Op, rec.Timestamp)
		}
		if rec.Seq <= r.engine.LastSeq {
			sum.Skipped++
			return nil
		}

		if r.keeper != nil {
			for _, ts := range r.keeper.Due(rec.Timestamp) {
				res, err := r.engine.Harvest(ts, r.keeper.Caller())
				if err != nil {
					return err
				}
				sum.Harvests++
				r.pending = append(r.pending, res)
			}
		}

		res, err := r.engine.Apply(rec)
		if err != nil {
			return err
		}
		if res.OK {
			sum.Applied++
		} else {
			sum.Rejected++
		}
		r.pending = append(r.pending, res)

		if len(r.pending) >= r.cfg.BatchSize {
			return r.flush(ctx)
		}
		return nil
	})
	if err != nil {
		return sum, err
	}
	if err := r.flush(ctx); err != nil {
		return sum, err
	}

	sum.LastSeq = r.engine.LastSeq
	r.logger.Info("replay complete",
		zap.Int("applied", sum.Applied),
		zap.Int("rejected", sum.Rejected),
		zap.Int("skipped", sum.Skipped),
		zap.Int("harvests", sum.Harvests),
		zap.Uint64("last_seq", sum.LastSeq),
	)
	return sum, nil
}

func (r *Runner) flush(ctx context.Context) error {
	if len(r.pending) == 0 {
		return nil
	}

	start := time.Now()
	err := r.storage.PutResultBatch(r.pending)
	r.metrics.RecordFlush("results", time.Since(start).Seconds(), err)
	if err != nil {
		return fmt.Errorf("store results: %w", err)
	}

	if r.sink != nil {
		start = time.Now()
		err := r.writeSinkWithRetry(ctx)
		r.metrics.RecordFlush("postgres", time.Since(start).Seconds(), err)
		if err != nil {
			return fmt.Errorf("write sink: %w", err)
		}
	}

	if err := r.checkpoint.Save(r.engine.Snapshot()); err != nil {
		return err
	}

	r.logger.Info("batch complete",
		zap.Int("results", len(r.pending)),
		zap.Uint64("from_seq", r.pending[0].Seq),
		zap.Uint64("to_seq", r.engine.LastSeq),
		zap.Uint64("ts", r.engine.Clock.Now()),
	)
	r.pending = r.pending[:0]
	return nil
}

func (r *Runner) writeSinkWithRetry(ctx context.Context) error {
	positions, err := r.engine.PositionRows()
	if err != nil {
		return err
	}
	pools := r.engine.PoolRows()
	users := r.engine.VaultRows()
	supply := r.engine.SupplyRow()
	seq, ts := r.engine.LastSeq, r.engine.Clock.Now()

	policy := RetryPolicy{
		MaxRetries: r.cfg.MaxRetries,
		Backoff:    r.cfg.RetryBackoff,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			r.logger.Warn("sink write failed",
				zap.Error(err),
				zap.Uint64("seq", seq),
				zap.Int("attempt", attempt),
				zap.Duration("retry_in", delay),
			)
		},
	}
	return policy.Do(ctx, func(ctx context.Context) error {
		return r.writeSink(ctx, pools, positions, users, supply, seq, ts)
	})
}

func (r *Runner) writeSink(ctx context.Context, pools []model.PoolSnapshot, positions []model.PositionSnapshot,
	users []model.VaultUserSnapshot, supply model.TokenSupply, seq, ts uint64) error {
	if err := r.sink.UpsertPools(ctx, pools); err != nil {
		return fmt.Errorf("upsert pools: %w", err)
	}
	if err := r.sink.UpsertPositions(ctx, positions); err != nil {
		return fmt.Errorf("upsert positions: %w", err)
	}
	if err := r.sink.UpsertVaultUsers(ctx, users); err != nil {
		return fmt.Errorf("upsert vault users: %w", err)
	}
	if err := r.sink.UpsertSupply(ctx, supply); err != nil {
		return fmt.Errorf("upsert supply: %w", err)
	}
	return r.sink.SaveProgress(ctx, r.cfg.SinkName, seq, ts)
}
