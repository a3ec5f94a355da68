package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"arbScope/internal/dex"
	"arbScope/internal/model"
)

// LogSubscriber is a closable log subscription endpoint. *chain.Client satisfies it.
type LogSubscriber interface {
	SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error)
	Close()
}

// DialFunc opens a new subscription endpoint.
type DialFunc func(ctx context.Context) (LogSubscriber, error)

// SubscriberConfig holds live subscription settings.
type SubscriberConfig struct {
	BatchSize         int
	Topics            []common.Hash
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
}

// Subscriber streams pair events for the catalog pools and forwards
// canonical reserve updates.
type Subscriber struct {
	cfg        SubscriberConfig
	dial       DialFunc
	decoder    *dex.PairDecoder
	normalizer *Normalizer
	logger     *zap.Logger
}

func NewSubscriber(cfg SubscriberConfig, dial DialFunc, decoder *dex.PairDecoder, normalizer *Normalizer, logger *zap.Logger) *Subscriber {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = time.Second
	}
	if cfg.MaxReconnectDelay < cfg.ReconnectDelay {
		cfg.MaxReconnectDelay = maxRetryDelay
	}
	return &Subscriber{cfg: cfg, dial: dial, decoder: decoder, normalizer: normalizer, logger: logger}
}

// Run opens one connection and subscription per batch of pools and keeps
// them alive until ctx is done. Sends to out block, so a slow consumer
// throttles ingestion instead of dropping updates.
func (s *Subscriber) Run(ctx context.Context, pools []common.Address, out chan<- model.ReserveUpdate) error {
	if s.dial == nil {
		return fmt.Errorf("dial func is nil")
	}
	batches, err := SplitBatches(pools, s.cfg.BatchSize)
	if err != nil {
		return err
	}
	if len(batches) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, batch := range batches {
		i, batch := i, batch
		g.Go(func() error {
			s.runBatch(gctx, i, batch, out)
			return nil
		})
	}
	_ = g.Wait()
	return ctx.Err()
}

func (s *Subscriber) runBatch(ctx context.Context, idx int, batch []common.Address, out chan<- model.ReserveUpdate) {
	log := s.logger.With(zap.Int("batch", idx), zap.Int("pools", len(batch)))
	delay := s.cfg.ReconnectDelay

	for {
		err := s.subscribeOnce(ctx, batch, out, func() {
			delay = s.cfg.ReconnectDelay
			log.Info("subscribed")
		})
		if ctx.Err() != nil {
			return
		}

		log.Warn("subscription dropped", zap.Duration("retry_in", delay), zap.Error(err))
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		delay = nextDelay(delay, s.cfg.MaxReconnectDelay)
	}
}

func (s *Subscriber) subscribeOnce(ctx context.Context, batch []common.Address, out chan<- model.ReserveUpdate, connected func()) error {
	client, err := s.dial(ctx)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer client.Close()

	logs := make(chan types.Log, 256)
	query := ethereum.FilterQuery{Addresses: batch}
	if len(s.cfg.Topics) > 0 {
		query.Topics = [][]common.Hash{s.cfg.Topics}
	}
	sub, err := client.SubscribeFilterLogs(ctx, query, logs)
	if err != nil {
		return fmt.Errorf("subscribe logs: %w", err)
	}
	defer sub.Unsubscribe()
	connected()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			if err == nil {
				err = errors.New("subscription closed")
			}
			return err
		case entry := <-logs:
			if err := s.handle(ctx, entry, out); err != nil {
				return err
			}
		}
	}
}

// handle only returns an error when ctx is done while sending.
func (s *Subscriber) handle(ctx context.Context, entry types.Log, out chan<- model.ReserveUpdate) error {
	if entry.Removed {
		s.logger.Debug("skip removed log", zap.String("pool", entry.Address.Hex()), zap.Uint64("block", entry.BlockNumber))
		return nil
	}

	event, err := s.decoder.Decode(entry)
	if err != nil {
		if errors.Is(err, dex.ErrUnsupportedEvent) {
			s.logger.Debug("skip log", zap.String("pool", entry.Address.Hex()), zap.Error(err))
		} else {
			s.logger.Warn("decode log failed",
				zap.String("pool", entry.Address.Hex()),
				zap.String("tx_hash", entry.TxHash.Hex()),
				zap.Error(err),
			)
		}
		return nil
	}

	update, ok, err := s.normalizer.Normalize(event)
	if err != nil {
		s.logger.Warn("normalize event failed", zap.String("pool", entry.Address.Hex()), zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case out <- update:
		return nil
	}
}
