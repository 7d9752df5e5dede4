package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"farmLedger/internal/chain"
	"farmLedger/internal/config"
	"farmLedger/internal/model"
	"farmLedger/internal/replay"
)

type supplyRow struct {
	model.TokenSupply
	Block uint64 `json:"block"`
}

func runSupply(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSupply(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if !common.IsHexAddress(cfg.Token) {
		return fmt.Errorf("invalid token address: %q", cfg.Token)
	}
	token := common.HexToAddress(cfg.Token)
	holders, err := replay.ParseAddresses(cfg.Holders)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer client.Close()

	policy := replay.RetryPolicy{
		MaxRetries: cfg.MaxRetries,
		Backoff:    cfg.RetryBackoff,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			logger.Warn("supply read failed", zap.Int("attempt", attempt), zap.Duration("retry_in", delay), zap.Error(err))
		},
	}

	row := supplyRow{Block: cfg.Block}
	var ts uint64
	err = policy.Do(ctx, func(ctx context.Context) error {
		if ts == 0 {
			var bt chain.BlockTime
			var err error
			if row.Block == 0 {
				bt, err = client.Head(ctx)
			} else {
				bt, err = client.BlockTime(ctx, row.Block)
			}
			if err != nil {
				return fmt.Errorf("fetch block: %w", err)
			}
			row.Block, ts = bt.Number, bt.Timestamp
		}

		supply, err := chain.FetchSupply(ctx, client, token, holders, new(big.Int).SetUint64(row.Block), logger)
		if err != nil {
			return err
		}
		supply.Timestamp = ts
		row.TokenSupply = supply
		return nil
	})
	if err != nil {
		return err
	}

	out, err := newJSONLWriter("-")
	if err != nil {
		return err
	}
	if err := out.Write(row); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	logger.Info("supply read",
		zap.String("token", token.Hex()),
		zap.String("symbol", row.Symbol),
		zap.Uint64("block", row.Block),
		zap.String("total_supply", row.TotalSupply),
		zap.Int("holders", len(holders)),
	)
	return nil
}
