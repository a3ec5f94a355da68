package detector

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"arbScope/internal/amm"
	"arbScope/internal/catalog"
	"arbScope/internal/evaluator"
	"arbScope/internal/metrics"
	"arbScope/internal/model"
	"arbScope/internal/reserve"
	"arbScope/internal/storage"
)

// Config holds detector settings.
type Config struct {
	Workers             int
	ReportNoOpportunity bool
	ReportNotReady      bool
	SkipUnchanged       bool
}

// Detector applies reserve updates and re-evaluates every route touching
// the updated pool.
type Detector struct {
	cfg       Config
	catalog   *catalog.Catalog
	store     *reserve.Store
	evaluator *evaluator.Evaluator
	sink      storage.Sink
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// New builds a Detector. sink and m may be nil.
func New(cfg Config, cat *catalog.Catalog, store *reserve.Store, eval *evaluator.Evaluator, sink storage.Sink, m *metrics.Metrics, logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	return &Detector{
		cfg:       cfg,
		catalog:   cat,
		store:     store,
		evaluator: eval,
		sink:      sink,
		metrics:   m,
		logger:    logger,
	}
}

// Run consumes updates in arrival order until the channel is closed or ctx is done.
func (d *Detector) Run(ctx context.Context, updates <-chan model.ReserveUpdate) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			d.metrics.SetQueueDepth(len(updates))
			d.OnReserveUpdate(ctx, update)
		}
	}
}

// OnReserveUpdate stores the new reserves and evaluates the routes that use
// the pool. Route failures are captured in the returned evaluations and never
// affect sibling routes.
func (d *Detector) OnReserveUpdate(ctx context.Context, update model.ReserveUpdate) []Evaluation {
	prev, ok := d.store.Update(update.Pool, update.Reserve0, update.Reserve1)
	if !ok {
		d.metrics.ObserveUpdate("unknown_pool")
		d.logger.Warn("reserve update for unknown pool",
			zap.String("pool", update.Pool.Hex()),
			zap.String("source", update.Source),
		)
		return nil
	}
	if d.cfg.SkipUnchanged {
		if next, _ := d.store.Snapshot(update.Pool); next.Equal(prev) {
			d.metrics.ObserveUpdate("unchanged")
			return nil
		}
	}
	d.metrics.ObserveUpdate("applied")

	routeIDs := d.catalog.RoutesTouching(update.Pool)
	if len(routeIDs) == 0 {
		return nil
	}

	start := time.Now()
	evals := d.evaluateAll(ctx, routeIDs)
	d.metrics.ObserveFanout(time.Since(start))

	d.report(ctx, update, evals)
	return evals
}

// Sweep evaluates every route once against the current reserves.
func (d *Detector) Sweep(ctx context.Context) []Evaluation {
	start := time.Now()
	evals := d.evaluateAll(ctx, d.catalog.RouteIDs())
	d.metrics.ObserveFanout(time.Since(start))

	d.report(ctx, model.ReserveUpdate{Source: model.SourceSweep}, evals)
	return evals
}

func (d *Detector) evaluateAll(ctx context.Context, routeIDs []string) []Evaluation {
	evals := make([]Evaluation, len(routeIDs))

	var g errgroup.Group
	g.SetLimit(d.cfg.Workers)

	scheduled := 0
	for i, id := range routeIDs {
		if ctx.Err() != nil {
			break
		}
		i, id := i, id
		g.Go(func() error {
			evals[i] = d.evaluate(id)
			return nil
		})
		scheduled++
	}
	_ = g.Wait()

	return evals[:scheduled]
}

func (d *Detector) evaluate(routeID string) (ev Evaluation) {
	ev.RouteID = routeID
	defer func() {
		if r := recover(); r != nil {
			ev.Outcome = OutcomeFailed
			ev.Err = fmt.Errorf("evaluate route %s: panic: %v", routeID, r)
		}
	}()

	res, err := d.evaluator.Evaluate(routeID)
	ev.Result = res
	if err != nil {
		ev.Outcome = OutcomeFailed
		ev.Err = err
		return ev
	}
	ev.Outcome = Classify(res)
	return ev
}

func (d *Detector) report(ctx context.Context, update model.ReserveUpdate, evals []Evaluation) {
	now := time.Now().UTC()
	reports := make([]model.Report, 0, len(evals))

	for _, ev := range evals {
		d.metrics.ObserveEvaluation(ev.Outcome.String())

		switch ev.Outcome {
		case OutcomeFailed:
			d.logger.Warn("route evaluation failed",
				zap.String("route_id", ev.RouteID),
				zap.String("trigger_pool", update.Pool.Hex()),
				zap.Error(ev.Err),
			)
		case OutcomeNotReady:
			d.logger.Debug("route not ready", zap.String("route_id", ev.RouteID))
			if !d.cfg.ReportNotReady {
				continue
			}
		case OutcomeNoOpportunity:
			if !d.cfg.ReportNoOpportunity {
				continue
			}
		}

		reports = append(reports, d.buildReport(update, ev, now))
	}

	if d.sink == nil || len(reports) == 0 {
		return
	}
	if err := d.sink.PutReports(ctx, reports); err != nil {
		d.logger.Warn("store reports failed", zap.Int("reports", len(reports)), zap.Error(err))
	}
}

func (d *Detector) buildReport(update model.ReserveUpdate, ev Evaluation, now time.Time) model.Report {
	base := d.catalog.BaseToken()
	res := ev.Result

	r := model.Report{
		RouteID:     ev.RouteID,
		Outcome:     ev.Outcome.String(),
		Path:        res.Path(base),
		BlockNumber: update.BlockNumber,
		DetectedAt:  now.Format(time.RFC3339Nano),
	}
	if update.Pool != (common.Address{}) {
		r.TriggerPool = update.Pool.Hex()
	}
	if ev.Err != nil {
		r.Error = ev.Err.Error()
	}
	if res.StartAmount != nil {
		r.StartAmount = amm.FormatAmount(res.StartAmount, base.Decimals)
	}
	if res.FinalAmount != nil {
		profit := res.Profit()
		r.FinalAmount = amm.FormatAmount(res.FinalAmount, base.Decimals)
		r.Profit = amm.FormatSigned(profit, base.Decimals)
		r.ProfitRaw = profit.String()
	}

	r.Hops = make([]model.HopReport, 0, len(res.Hops))
	for _, hop := range res.Hops {
		r.Hops = append(r.Hops, model.HopReport{
			Pool:           hop.Pool.Hex(),
			Symbol:         hop.TokenOut.Symbol,
			AmountOut:      amm.FormatAmount(hop.AmountOut, hop.TokenOut.Decimals),
			TargetIsToken0: hop.TargetIsToken0,
			NotReady:       hop.NotReady,
			Trace:          hop.String(),
		})
	}
	return r
}
