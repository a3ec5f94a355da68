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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"arbScope/internal/catalog"
	"arbScope/internal/chain"
	"arbScope/internal/config"
	"arbScope/internal/dex"
	"arbScope/internal/ingest"
	"arbScope/internal/metrics"
	"arbScope/internal/model"
	"arbScope/internal/reserve"
	"arbScope/internal/storage/sqlite"
)

func main() {
	root := &cobra.Command{
		Use:          "arbscope",
		Short:        "Reserve-driven multi-hop arbitrage detector",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("env-file", ".env", "dotenv file loaded before reading the environment")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Track live reserves and report arbitrage opportunities",
		RunE:  runDetector,
	}

	addEngineFlags(runCmd.Flags(), "./data/arbitrage.jsonl")
	runCmd.Flags().String("rpc", "", "HTTP RPC URL for bulk reserve fetch and token metadata")
	runCmd.Flags().String("ws", "", "websocket RPC URL for live pool events")
	runCmd.Flags().Int("batch-size", 800, "pools per bulk fetch call and per subscription")
	runCmd.Flags().String("view-contract", config.DefaultViewContract, "batch reserve reader contract")
	runCmd.Flags().String("events", "sync", "live event source (sync, swap)")
	runCmd.Flags().Int("queue-size", 1024, "reserve update queue capacity")
	runCmd.Flags().Int("max-retries", 3, "maximum retry attempts per bulk fetch batch")
	runCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	runCmd.Flags().Bool("resolve-tokens", false, "fetch metadata for pool tokens missing from the catalog")
	runCmd.Flags().Bool("sweep-on-start", true, "evaluate every route once after the bulk fetch")
	runCmd.Flags().String("metrics-addr", "", "Prometheus listen address, empty disables")
	runCmd.Flags().String("checkpoint", "", "reserve checkpoint file loaded at start and saved on shutdown, empty disables")

	root.AddCommand(runCmd)

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the catalog and report route shape findings",
		RunE:  runCheck,
	}

	checkCmd.Flags().String("db", "./defi.db", "sqlite catalog path")
	checkCmd.Flags().String("base-token", config.DefaultBaseToken, "base token address")
	checkCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(checkCmd)

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Evaluate routes over a JSONL file of reserve updates",
		RunE:  runReplay,
	}

	addEngineFlags(replayCmd.Flags(), "./data/replay.jsonl")
	replayCmd.Flags().String("in", "", "input reserve updates JSONL")

	root.AddCommand(replayCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addEngineFlags(flags *pflag.FlagSet, out string) {
	flags.String("db", "./defi.db", "sqlite catalog path")
	flags.String("base-token", config.DefaultBaseToken, "base token address")
	flags.String("start-amount", "1", "starting amount in whole base tokens")
	flags.String("fee-percent", "0.5", "swap fee percent applied on every hop")
	flags.Int("workers", 0, "concurrent route evaluations per update, 0 means GOMAXPROCS")
	flags.String("out", out, "report JSONL path, empty disables")
	flags.String("pg-dsn", "", "Postgres DSN for reports, empty disables")
	flags.Bool("report-misses", false, "also report routes without profit")
	flags.Bool("report-not-ready", false, "also report routes through pools without reserves")
	flags.Bool("skip-unchanged", false, "skip route evaluation for updates identical to the stored reserves")
	flags.Int("dedupe-size", 4096, "routes remembered for duplicate report suppression, 0 disables")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
}

func runDetector(cmd *cobra.Command, _ []string) error {
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

	if cfg.WSURL == "" {
		return fmt.Errorf("ws url is required")
	}
	if cfg.BatchSize <= 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}
	viewContract, err := model.ParseAddress(cfg.ViewContract)
	if err != nil {
		return fmt.Errorf("view contract: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var rpcClient *chain.Client
	if cfg.RPCURL != "" {
		rpcClient, err = chain.NewClient(ctx, cfg.RPCURL)
		if err != nil {
			return fmt.Errorf("connect rpc: %w", err)
		}
		defer rpcClient.Close()
	}

	data, err := sqlite.LoadCatalog(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	if cfg.ResolveTokens {
		if rpcClient == nil {
			return fmt.Errorf("rpc url is required to resolve tokens")
		}
		data.Tokens = append(data.Tokens, resolveMissingTokens(ctx, rpcClient, data, logger)...)
	}

	var m *metrics.Metrics
	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		m = metrics.New(reg)
		go serveMetrics(ctx, cfg.MetricsAddr, reg, logger)
	}

	eng, err := buildEngine(ctx, cfg.Engine, data, m, logger)
	if err != nil {
		return err
	}
	defer eng.Close()

	checkpoints := reserve.NewCheckpointStore(cfg.Checkpoint)
	restored, err := checkpoints.Load(eng.store)
	if err != nil {
		logger.Warn("load reserve checkpoint failed", zap.Error(err))
	} else if restored > 0 {
		logger.Info("reserve checkpoint loaded", zap.String("path", cfg.Checkpoint), zap.Int("pools", restored))
	}

	pools := eng.catalog.PoolAddresses()
	if rpcClient != nil {
		bootstrapper := ingest.NewBootstrapper(ingest.BootstrapConfig{
			ViewContract: viewContract,
			BatchSize:    cfg.BatchSize,
			MaxRetries:   cfg.MaxRetries,
			RetryBackoff: cfg.RetryBackoff,
		}, rpcClient, eng.store, m, logger)

		stats, err := bootstrapper.Run(ctx, pools)
		if err != nil {
			return fmt.Errorf("bulk fetch: %w", err)
		}
		logger.Info("bulk fetch complete",
			zap.Int("batches", stats.Batches),
			zap.Int("failed_batches", stats.FailedBatches),
			zap.Int("pools", stats.Pools),
			zap.Int("ready_pools", eng.store.ReadyCount()),
		)
	} else {
		logger.Warn("no rpc url, skipping bulk reserve fetch")
	}

	if cfg.SweepOnStart {
		evals := eng.detector.Sweep(ctx)
		logger.Info("initial sweep complete", zap.Int("routes", len(evals)))
	}

	decoder, err := dex.NewPairDecoder()
	if err != nil {
		return err
	}
	topics, err := decoder.Topics(cfg.Events)
	if err != nil {
		return err
	}

	subscriber := ingest.NewSubscriber(ingest.SubscriberConfig{
		BatchSize: cfg.BatchSize,
		Topics:    topics,
	}, func(ctx context.Context) (ingest.LogSubscriber, error) {
		client, err := chain.NewClient(ctx, cfg.WSURL)
		if err != nil {
			return nil, err
		}
		return client, nil
	}, decoder, ingest.NewNormalizer(eng.store), logger)

	logger.Info("detector start",
		zap.String("ws", cfg.WSURL),
		zap.String("events", cfg.Events),
		zap.Int("pools", len(pools)),
		zap.Int("routes", eng.catalog.Stats().Routes),
		zap.Int("batch_size", cfg.BatchSize),
		zap.String("fee_percent", cfg.FeePercent),
		zap.String("start_amount", cfg.StartAmount),
		zap.String("out", cfg.Out),
	)

	updates := make(chan model.ReserveUpdate, cfg.QueueSize)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return subscriber.Run(gctx, pools, updates)
	})
	g.Go(func() error {
		return eng.detector.Run(gctx, updates)
	})

	runErr := g.Wait()
	if saved, err := checkpoints.Save(eng.store); err != nil {
		logger.Warn("save reserve checkpoint failed", zap.Error(err))
	} else if cfg.Checkpoint != "" {
		logger.Info("reserve checkpoint saved", zap.String("path", cfg.Checkpoint), zap.Int("pools", saved))
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	logger.Info("detector stopped")
	return nil
}

func resolveMissingTokens(ctx context.Context, caller dex.ContractCaller, data catalog.Data, logger *zap.Logger) []model.Token {
	missing := catalog.MissingTokens(data)
	if len(missing) == 0 {
		return nil
	}
	tokens, errs := dex.ResolveTokens(ctx, caller, missing, dex.NewTokenMetaCache(), logger)
	for _, err := range errs {
		logger.Warn("resolve token failed", zap.Error(err))
	}
	logger.Info("resolved missing tokens", zap.Int("missing", len(missing)), zap.Int("resolved", len(tokens)))
	return tokens
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("metrics server stopped", zap.Error(err))
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
