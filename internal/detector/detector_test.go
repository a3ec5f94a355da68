package detector

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"arbScope/internal/amm"
	"arbScope/internal/catalog"
	"arbScope/internal/evaluator"
	"arbScope/internal/model"
	"arbScope/internal/reserve"
)

var (
	weth   = common.HexToAddress("0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2")
	usdc   = common.HexToAddress("0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48")
	tokenX = common.HexToAddress("0x5555555555555555555555555555555555555555")
	pool1  = common.HexToAddress("0x1111111111111111111111111111111111111111")
	pool2  = common.HexToAddress("0x2222222222222222222222222222222222222222")
	pool3  = common.HexToAddress("0x3333333333333333333333333333333333333333")
	pool4  = common.HexToAddress("0x4444444444444444444444444444444444444444")
)

type memorySink struct {
	mu      sync.Mutex
	reports []model.Report
}

func (s *memorySink) PutReports(_ context.Context, reports []model.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, reports...)
	return nil
}

func (s *memorySink) byRoute() map[string]model.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]model.Report, len(s.reports))
	for _, r := range s.reports {
		out[r.RouteID] = r
	}
	return out
}

func amount(t *testing.T, s string) *uint256.Int {
	t.Helper()
	v, err := uint256.FromDecimal(s)
	require.NoError(t, err)
	return v
}

type fixture struct {
	detector *Detector
	store    *reserve.Store
	sink     *memorySink
	logs     *observer.ObservedLogs
}

func newFixture(t *testing.T, cfg Config) fixture {
	t.Helper()
	cat, err := catalog.Build(weth, catalog.Data{
		Tokens: []model.Token{
			{Address: weth, Symbol: "WETH", Decimals: 18},
			{Address: usdc, Symbol: "USDC", Decimals: 6},
			{Address: tokenX, Symbol: "X", Decimals: 18},
		},
		Pools: []model.Pool{
			{Address: pool1, Token0: weth, Token1: usdc},
			{Address: pool2, Token0: weth, Token1: tokenX},
			{Address: pool3, Token0: tokenX, Token1: weth},
			{Address: pool4, Token0: usdc, Token1: tokenX},
		},
		Routes: []model.Route{
			{ID: "cycle", Hops: []model.Hop{{Target: tokenX, Pool: pool2}, {Target: weth, Pool: pool3}}},
			{ID: "dry", Hops: []model.Hop{{Target: usdc, Pool: pool1}, {Target: tokenX, Pool: pool4}, {Target: weth, Pool: pool3}}},
		},
	})
	require.NoError(t, err)

	store := reserve.NewStore(cat.PoolAddresses())
	store.Update(pool1, amount(t, "1000000000000000000000"), amount(t, "2000000000000"))
	store.Update(pool2, amount(t, "100000000000000000000"), amount(t, "100000000000000000000000"))

	ev := evaluator.New(evaluator.Config{
		StartAmount: amount(t, "1000000000000000000"),
		Fee:         amm.MustParseFeePercent("0.5"),
	}, cat, store)

	core, logs := observer.New(zap.DebugLevel)
	sink := &memorySink{}
	return fixture{
		detector: New(cfg, cat, store, ev, sink, nil, zap.New(core)),
		store:    store,
		sink:     sink,
		logs:     logs,
	}
}

func (f fixture) update(t *testing.T, pool common.Address, r0, r1 string) []Evaluation {
	t.Helper()
	return f.detector.OnReserveUpdate(context.Background(), model.ReserveUpdate{
		Pool:     pool,
		Reserve0: amount(t, r0),
		Reserve1: amount(t, r1),
		Source:   model.SourceSync,
	})
}

func outcomes(evals []Evaluation) map[string]Outcome {
	out := make(map[string]Outcome, len(evals))
	for _, ev := range evals {
		out[ev.RouteID] = ev.Outcome
	}
	return out
}

func TestOnReserveUpdateOpportunity(t *testing.T) {
	f := newFixture(t, Config{Workers: 2})

	evals := f.update(t, pool3, "100000000000000000000000", "200000000000000000000")
	assert.Equal(t, map[string]Outcome{
		"cycle": OutcomeOpportunity,
		"dry":   OutcomeNotReady,
	}, outcomes(evals))

	reports := f.sink.byRoute()
	require.Len(t, reports, 1)
	r := reports["cycle"]
	assert.Equal(t, "opportunity", r.Outcome)
	assert.Equal(t, "WETH -> X -> WETH", r.Path)
	assert.Equal(t, "1.960591133004926108", r.FinalAmount)
	assert.Equal(t, "0.960591133004926108", r.Profit)
	assert.Equal(t, "960591133004926108", r.ProfitRaw)
	assert.Equal(t, pool3.Hex(), r.TriggerPool)
	require.Len(t, r.Hops, 2)
	assert.Equal(t, "-> 990.049751243781094527 X (0x2222222222222222222222222222222222222222 - false)", r.Hops[0].Trace)
}

func TestOnReserveUpdateNoOpportunity(t *testing.T) {
	f := newFixture(t, Config{ReportNoOpportunity: true, ReportNotReady: true})

	evals := f.update(t, pool3, "100000000000000000000000", "100000000000000000000")
	assert.Equal(t, OutcomeNoOpportunity, outcomes(evals)["cycle"])

	reports := f.sink.byRoute()
	require.Len(t, reports, 2)
	assert.Equal(t, "-0.019704433497536946", reports["cycle"].Profit)
	assert.Equal(t, "not_ready", reports["dry"].Outcome)
}

func TestOnReserveUpdateUnknownPool(t *testing.T) {
	f := newFixture(t, Config{})
	unknown := common.HexToAddress("0x9999999999999999999999999999999999999999")

	evals := f.update(t, unknown, "1", "1")
	assert.Nil(t, evals)
	assert.Equal(t, 1, f.logs.FilterMessage("reserve update for unknown pool").Len())
	_, ok := f.store.Snapshot(unknown)
	assert.False(t, ok)
	assert.Empty(t, f.sink.byRoute())
}

func TestOnReserveUpdateSkipUnchanged(t *testing.T) {
	f := newFixture(t, Config{SkipUnchanged: true})

	first := f.update(t, pool3, "100000000000000000000000", "200000000000000000000")
	assert.Len(t, first, 2)
	second := f.update(t, pool3, "100000000000000000000000", "200000000000000000000")
	assert.Nil(t, second)
}

func TestOnReserveUpdateIdempotent(t *testing.T) {
	f := newFixture(t, Config{})

	first := f.update(t, pool3, "100000000000000000000000", "200000000000000000000")
	second := f.update(t, pool3, "100000000000000000000000", "200000000000000000000")
	assert.Equal(t, outcomes(first), outcomes(second))
	assert.Len(t, f.sink.reports, 2)
}

func TestOnReserveUpdateFailureIsolated(t *testing.T) {
	tiny := common.HexToAddress("0x6666666666666666666666666666666666666666")
	wide := common.HexToAddress("0x7777777777777777777777777777777777777777")
	pool := common.HexToAddress("0x8888888888888888888888888888888888888888")

	cat, err := catalog.Build(tiny, catalog.Data{
		Tokens: []model.Token{
			{Address: tiny, Symbol: "TINY", Decimals: 0},
			{Address: wide, Symbol: "WIDE", Decimals: 77},
		},
		Pools: []model.Pool{{Address: pool, Token0: tiny, Token1: wide}},
		Routes: []model.Route{
			{ID: "overflow", Hops: []model.Hop{{Target: wide, Pool: pool}}},
			{ID: "fine", Hops: []model.Hop{{Target: tiny, Pool: pool}}},
		},
	})
	require.NoError(t, err)
	store := reserve.NewStore(cat.PoolAddresses())
	ev := evaluator.New(evaluator.Config{
		StartAmount: amount(t, "1000000000000000000"),
		Fee:         amm.MustParseFeePercent("0.5"),
	}, cat, store)
	sink := &memorySink{}
	d := New(Config{}, cat, store, ev, sink, nil, nil)

	evals := d.OnReserveUpdate(context.Background(), model.ReserveUpdate{
		Pool:     pool,
		Reserve0: uint256.NewInt(1000),
		Reserve1: uint256.NewInt(1000),
	})
	got := outcomes(evals)
	assert.Equal(t, OutcomeFailed, got["overflow"])
	assert.NotEqual(t, OutcomeFailed, got["fine"])

	reports := sink.byRoute()
	require.Contains(t, reports, "overflow")
	assert.Contains(t, reports["overflow"].Error, "overflow")
}

func TestRun(t *testing.T) {
	f := newFixture(t, Config{})

	updates := make(chan model.ReserveUpdate, 2)
	updates <- model.ReserveUpdate{Pool: pool3, Reserve0: amount(t, "100000000000000000000000"), Reserve1: amount(t, "100000000000000000000")}
	updates <- model.ReserveUpdate{Pool: pool3, Reserve0: amount(t, "100000000000000000000000"), Reserve1: amount(t, "200000000000000000000")}
	close(updates)

	require.NoError(t, f.detector.Run(context.Background(), updates))

	pair, _ := f.store.Snapshot(pool3)
	assert.Equal(t, "200000000000000000000", pair.Reserve1.Dec())
	assert.Equal(t, "opportunity", f.sink.byRoute()["cycle"].Outcome)

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := f.detector.Run(ctx, make(chan model.ReserveUpdate))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestFanoutManyRoutes(t *testing.T) {
	routes := make([]model.Route, 0, 64)
	for i := 0; i < 64; i++ {
		routes = append(routes, model.Route{
			ID:   fmt.Sprintf("r%02d", i),
			Hops: []model.Hop{{Target: tokenX, Pool: pool2}, {Target: weth, Pool: pool3}},
		})
	}
	cat, err := catalog.Build(weth, catalog.Data{
		Tokens: []model.Token{
			{Address: weth, Symbol: "WETH", Decimals: 18},
			{Address: tokenX, Symbol: "X", Decimals: 18},
		},
		Pools: []model.Pool{
			{Address: pool2, Token0: weth, Token1: tokenX},
			{Address: pool3, Token0: tokenX, Token1: weth},
		},
		Routes: routes,
	})
	require.NoError(t, err)
	store := reserve.NewStore(cat.PoolAddresses())
	store.Update(pool2, amount(t, "100000000000000000000"), amount(t, "100000000000000000000000"))
	ev := evaluator.New(evaluator.Config{
		StartAmount: amount(t, "1000000000000000000"),
		Fee:         amm.MustParseFeePercent("0.5"),
	}, cat, store)
	d := New(Config{Workers: 4}, cat, store, ev, nil, nil, nil)

	evals := d.OnReserveUpdate(context.Background(), model.ReserveUpdate{
		Pool:     pool3,
		Reserve0: amount(t, "100000000000000000000000"),
		Reserve1: amount(t, "200000000000000000000"),
	})
	require.Len(t, evals, 64)
	for i, ev := range evals {
		assert.Equal(t, fmt.Sprintf("r%02d", i), ev.RouteID)
		assert.Equal(t, OutcomeOpportunity, ev.Outcome)
		assert.Equal(t, "1960591133004926108", ev.Result.FinalAmount.Dec())
	}
}

func TestSweep(t *testing.T) {
	f := newFixture(t, Config{ReportNotReady: true})
	f.store.Update(pool3, amount(t, "100000000000000000000000"), amount(t, "200000000000000000000"))

	evals := f.detector.Sweep(context.Background())
	assert.Equal(t, map[string]Outcome{
		"cycle": OutcomeOpportunity,
		"dry":   OutcomeNotReady,
	}, outcomes(evals))

	reports := f.sink.byRoute()
	require.Len(t, reports, 2)
	assert.Empty(t, reports["cycle"].TriggerPool)
}
