package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"arbScope/internal/amm"
	"arbScope/internal/catalog"
	"arbScope/internal/config"
	"arbScope/internal/detector"
	"arbScope/internal/evaluator"
	"arbScope/internal/metrics"
	"arbScope/internal/model"
	"arbScope/internal/reserve"
	"arbScope/internal/storage"
	"arbScope/internal/storage/postgres"
)

// engine bundles the catalog, reserve store, and detector shared by run and replay.
type engine struct {
	catalog  *catalog.Catalog
	store    *reserve.Store
	detector *detector.Detector
	closers  []func()
}

func (e *engine) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

func buildEngine(ctx context.Context, cfg config.Engine, data catalog.Data, m *metrics.Metrics, logger *zap.Logger) (*engine, error) {
	base, err := model.ParseAddress(cfg.BaseToken)
	if err != nil {
		return nil, fmt.Errorf("base token: %w", err)
	}

	cat, err := catalog.Build(base, data)
	if err != nil {
		return nil, err
	}
	for _, finding := range cat.Lint() {
		logger.Warn("route lint", zap.Error(finding))
	}

	fee, err := amm.ParseFeePercent(cfg.FeePercent)
	if err != nil {
		return nil, err
	}
	start, err := amm.ParseAmount(cfg.StartAmount, cat.BaseToken().Decimals)
	if err != nil {
		return nil, fmt.Errorf("start amount: %w", err)
	}

	eng := &engine{catalog: cat, store: reserve.NewStore(cat.PoolAddresses())}

	sinks := storage.MultiSink{storage.NewLogSink(logger)}
	if cfg.Out != "" {
		sinks = append(sinks, storage.NewJSONLSink(cfg.Out))
	}
	if cfg.PGDSN != "" {
		pg, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		eng.closers = append(eng.closers, pg.Close)
		if err := pg.EnsureSchema(ctx); err != nil {
			eng.Close()
			return nil, err
		}
		sinks = append(sinks, pg)
	}

	var sink storage.Sink = sinks
	if cfg.DedupeSize > 0 {
		dedupe, err := storage.NewDedupeSink(sinks, cfg.DedupeSize)
		if err != nil {
			eng.Close()
			return nil, err
		}
		sink = dedupe
	}

	eval := evaluator.New(evaluator.Config{StartAmount: start, Fee: fee}, cat, eng.store)
	eng.detector = detector.New(detector.Config{
		Workers:             cfg.Workers,
		ReportNoOpportunity: cfg.ReportMisses,
		ReportNotReady:      cfg.ReportNotReady,
		SkipUnchanged:       cfg.SkipUnchanged,
	}, cat, eng.store, eval, sink, m, logger)

	stats := cat.Stats()
	logger.Info("catalog loaded",
		zap.Int("tokens", stats.Tokens),
		zap.Int("pools", stats.Pools),
		zap.Int("routes", stats.Routes),
		zap.Int("unused_pools", stats.UnusedPools),
		zap.String("base", cat.BaseToken().Symbol),
		zap.String("start_amount", amm.FormatAmount(start, cat.BaseToken().Decimals)),
		zap.String("fee_percent", fee.String()),
	)

	return eng, nil
}
