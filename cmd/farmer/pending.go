package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"farmLedger/internal/chain"
	"farmLedger/internal/config"
	"farmLedger/internal/genesis"
	"farmLedger/internal/model"
	"farmLedger/internal/replay"
)

type pendingRow struct {
	PoolID         uint64 `json:"pool_id"`
	User           string `json:"user"`
	Amount         string `json:"amount"`
	Pending        string `json:"pending"`
	PendingDisplay string `json:"pending_display"`
	Timestamp      uint64 `json:"ts"`
}

func runPending(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadPending(cfgFile, cmd.Flags())
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
	users, err := replay.ParseAddresses(cfg.Users)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		return fmt.Errorf("user list is required")
	}

	g, err := genesis.Load(cfg.Genesis)
	if err != nil {
		return err
	}
	engine, err := replay.NewEngine(g, logger.Named("engine"), nil)
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}

	state, ok, err := replay.NewCheckpointStore(cfg.State, true).Load()
	if err != nil {
		return err
	}
	if ok {
		if err := engine.Restore(state); err != nil {
			return fmt.Errorf("restore state: %w", err)
		}
	} else {
		logger.Warn("no state checkpoint, reporting from genesis", zap.String("state", cfg.State))
	}

	at, err := config.ParseTimestamp(cfg.At)
	if err != nil {
		return fmt.Errorf("parse at: %w", err)
	}
	if cfg.At == "" && cfg.RPCURL != "" {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		client, err := chain.NewClient(ctx, cfg.RPCURL)
		if err != nil {
			return fmt.Errorf("connect rpc: %w", err)
		}
		defer client.Close()

		head, err := client.Head(ctx)
		if err != nil {
			return fmt.Errorf("fetch head: %w", err)
		}
		at = head.Timestamp
		logger.Info("chain head", zap.Uint64("block", head.Number), zap.Uint64("ts", at))
	}
	if at != 0 {
		if at < engine.Clock.Now() {
			return fmt.Errorf("%w: at %d is before state time %d", replay.ErrClockReversed, at, engine.Clock.Now())
		}
		engine.Clock.Set(at)
	}

	out, err := newJSONLWriter("-")
	if err != nil {
		return err
	}
	decimals := g.Reward.TokenDecimals()
	rows := 0
	for _, user := range users {
		for id := 0; id < engine.Farm.PoolLength(); id++ {
			pos := engine.Farm.UserInfo(uint64(id), user)
			pending, err := engine.Farm.PendingReward(uint64(id), user)
			if err != nil {
				out.Close()
				return err
			}
			if pos.Amount.Sign() == 0 && pending.Sign() == 0 {
				continue
			}
			if err := out.Write(pendingRow{
				PoolID:         uint64(id),
				User:           user.Hex(),
				Amount:         pos.Amount.String(),
				Pending:        pending.String(),
				PendingDisplay: model.FormatAmount(pending, decimals),
				Timestamp:      engine.Clock.Now(),
			}); err != nil {
				out.Close()
				return err
			}
			rows++
		}
	}
	if err := out.Close(); err != nil {
		return err
	}

	logger.Info("pending reported",
		zap.Uint64("ts", engine.Clock.Now()),
		zap.Uint64("last_seq", engine.LastSeq),
		zap.Int("users", len(users)),
		zap.Int("positions", rows),
	)
	return nil
}
