package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"arbScope/internal/config"
	"arbScope/internal/ingest"
	"arbScope/internal/model"
	"arbScope/internal/storage/sqlite"
)

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

	if cfg.In == "" {
		return fmt.Errorf("input file is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	data, err := sqlite.LoadCatalog(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	eng, err := buildEngine(ctx, cfg.Engine, data, nil, logger)
	if err != nil {
		return err
	}
	defer eng.Close()

	in, err := os.Open(cfg.In)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer in.Close()

	logger.Info("replay start", zap.String("in", cfg.In), zap.String("out", cfg.Out))

	updates := make(chan model.ReserveUpdate, 256)
	var stats ingest.ReplayStats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(updates)
		var err error
		stats, err = ingest.ReadUpdates(gctx, in, updates, logger)
		return err
	})
	g.Go(func() error {
		return eng.detector.Run(gctx, updates)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("replay complete",
		zap.Int("lines", stats.Lines),
		zap.Int("updates", stats.Updates),
		zap.Int("skipped", stats.Skipped),
		zap.Int("ready_pools", eng.store.ReadyCount()),
	)
	return nil
}
