package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"arbScope/internal/dex"
	"arbScope/internal/metrics"
	"arbScope/internal/reserve"
)

// BootstrapConfig holds bulk reserve fetch settings.
type BootstrapConfig struct {
	ViewContract common.Address
	BatchSize    int
	MaxRetries   int
	RetryBackoff time.Duration
}

// BootstrapStats summarises a bulk fetch.
type BootstrapStats struct {
	Batches       int
	FailedBatches int
	Pools         int
}

// Bootstrapper seeds the reserve store through the batch view contract.
type Bootstrapper struct {
	cfg     BootstrapConfig
	caller  dex.ContractCaller
	store   *reserve.Store
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewBootstrapper builds a Bootstrapper. m may be nil.
func NewBootstrapper(cfg BootstrapConfig, caller dex.ContractCaller, store *reserve.Store, m *metrics.Metrics, logger *zap.Logger) *Bootstrapper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bootstrapper{cfg: cfg, caller: caller, store: store, metrics: m, logger: logger}
}

// Run fetches reserves for pools one batch at a time. A batch that still
// fails after its retries is logged and skipped; its pools keep their
// previous reserves. Only context cancellation aborts the run.
func (b *Bootstrapper) Run(ctx context.Context, pools []common.Address) (BootstrapStats, error) {
	var stats BootstrapStats
	if b.caller == nil {
		return stats, fmt.Errorf("contract caller is nil")
	}

	batches, err := SplitBatches(pools, b.cfg.BatchSize)
	if err != nil {
		return stats, err
	}

	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Batches++

		log := b.logger.With(zap.Int("batch", i), zap.Int("pools", len(batch)))
		err := withRetry(ctx, b.cfg.MaxRetries, b.cfg.RetryBackoff, func(attempt int, err error) {
			log.Debug("retry bulk fetch", zap.Int("attempt", attempt), zap.Error(err))
		}, func(ctx context.Context) error {
			return b.fetchBatch(ctx, batch)
		})
		if err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			stats.FailedBatches++
			b.metrics.ObserveBatch("failed")
			log.Warn("bulk fetch batch failed", zap.String("batch_start", batch[0].Hex()), zap.Error(err))
			continue
		}

		stats.Pools += len(batch)
		b.metrics.ObserveBatch("ok")
		log.Debug("bulk fetch batch complete")
	}

	return stats, nil
}

func (b *Bootstrapper) fetchBatch(ctx context.Context, batch []common.Address) error {
	data, err := dex.PackViewPair(batch)
	if err != nil {
		return err
	}

	to := b.cfg.ViewContract
	resp, err := b.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return fmt.Errorf("call viewPair: %w", err)
	}

	reserves, err := dex.UnpackViewPair(resp)
	if err != nil {
		return err
	}
	if len(reserves) != 2*len(batch) {
		return fmt.Errorf("viewPair returned %d values for %d pools", len(reserves), len(batch))
	}

	for i, pool := range batch {
		if _, ok := b.store.Update(pool, reserves[2*i], reserves[2*i+1]); !ok {
			b.logger.Warn("bulk fetch returned unknown pool", zap.String("pool", pool.Hex()))
		}
	}
	return nil
}
