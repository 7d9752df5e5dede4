package main

import (
	"fmt"
	"math/big"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"farmLedger/internal/config"
	"farmLedger/internal/emission"
	"farmLedger/internal/genesis"
	"farmLedger/internal/model"
)

type windowRow struct {
	From            uint64 `json:"from"`
	To              uint64 `json:"to"`
	Multiplier      uint64 `json:"multiplier"`
	Emission        string `json:"emission"`
	EmissionDisplay string `json:"emission_display"`
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSchedule(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	spec := genesis.ScheduleSpec{
		StartTime:         cfg.StartTime,
		SegmentLength:     cfg.SegmentLength,
		EmissionPerSecond: cfg.EmissionPerSecond,
	}
	decimals := cfg.Decimals
	if cfg.Genesis != "" {
		g, err := genesis.Load(cfg.Genesis)
		if err != nil {
			return err
		}
		spec = g.Schedule
		decimals = g.Reward.TokenDecimals()
	}

	rate, err := model.ParseAmount(spec.EmissionPerSecond)
	if err != nil {
		return fmt.Errorf("emission per second: %w", err)
	}
	sched, err := emission.NewSchedule(spec.StartTime, spec.SegmentLength, rate)
	if err != nil {
		return err
	}

	from, err := config.ParseTimestamp(cfg.From)
	if err != nil {
		return fmt.Errorf("parse from: %w", err)
	}
	if cfg.From == "" {
		from = sched.StartTime
	}
	to, err := config.ParseTimestamp(cfg.To)
	if err != nil {
		return fmt.Errorf("parse to: %w", err)
	}
	if cfg.To == "" {
		to = sched.FinishBonusAt()
	}

	windowDuration, err := time.ParseDuration(cfg.Window)
	if err != nil {
		return fmt.Errorf("invalid window: %w", err)
	}
	windowSeconds := uint64(windowDuration.Seconds())
	if windowSeconds == 0 {
		return fmt.Errorf("window must be at least 1s")
	}

	windows, err := sched.Project(from, to, windowSeconds)
	if err != nil {
		return err
	}

	out, err := newJSONLWriter("-")
	if err != nil {
		return err
	}
	total := new(big.Int)
	for _, w := range windows {
		total.Add(total, w.Emission)
		if err := out.Write(windowRow{
			From:            w.Window.From,
			To:              w.Window.To,
			Multiplier:      w.Multiplier,
			Emission:        w.Emission.String(),
			EmissionDisplay: model.FormatAmount(w.Emission, decimals),
		}); err != nil {
			out.Close()
			return err
		}
	}
	if err := out.Close(); err != nil {
		return err
	}

	logger.Info("schedule projected",
		zap.Uint64("from", from),
		zap.Uint64("to", to),
		zap.Uint64("window_seconds", windowSeconds),
		zap.Int("windows", len(windows)),
		zap.String("total", model.FormatAmount(total, decimals)),
	)
	return nil
}
