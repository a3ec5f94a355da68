package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"arbScope/internal/catalog"
	"arbScope/internal/config"
	"arbScope/internal/model"
	"arbScope/internal/storage/sqlite"
)

func runCheck(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	base, err := model.ParseAddress(cfg.BaseToken)
	if err != nil {
		return fmt.Errorf("base token: %w", err)
	}

	data, err := sqlite.LoadCatalog(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	missing := catalog.MissingTokens(data)
	for _, token := range missing {
		logger.Warn("pool token missing from catalog", zap.String("token", token.Hex()))
	}

	cat, err := catalog.Build(base, data)
	if err != nil {
		return err
	}

	findings := cat.Lint()
	for _, finding := range findings {
		logger.Warn("route lint", zap.Error(finding))
	}

	stats := cat.Stats()
	logger.Info("catalog ok",
		zap.String("db", cfg.DBPath),
		zap.Int("tokens", stats.Tokens),
		zap.Int("pools", stats.Pools),
		zap.Int("routes", stats.Routes),
		zap.Int("routed_pools", stats.RoutedPools),
		zap.Int("unused_pools", stats.UnusedPools),
		zap.Int("lint_findings", len(findings)),
	)
	return nil
}
