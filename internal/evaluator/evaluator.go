package evaluator

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"arbScope/internal/amm"
	"arbScope/internal/catalog"
	"arbScope/internal/model"
	"arbScope/internal/reserve"
)

var (
	ErrUnknownRoute = errors.New("unknown route")
	ErrUnknownPool  = errors.New("unknown pool")
	ErrUnknownToken = errors.New("unknown token")
)

// Config holds evaluation parameters.
type Config struct {
	StartAmount *uint256.Int
	Fee         amm.Fee
}

// Evaluator computes the final base-token amount of a route against the
// current reserve snapshot.
type Evaluator struct {
	cfg     Config
	catalog *catalog.Catalog
	store   *reserve.Store
}

// New builds an Evaluator.
func New(cfg Config, cat *catalog.Catalog, store *reserve.Store) *Evaluator {
	if cfg.StartAmount == nil {
		cfg.StartAmount = new(uint256.Int)
	}
	return &Evaluator{cfg: cfg, catalog: cat, store: store}
}

// StartAmount returns a copy of the configured starting amount.
func (e *Evaluator) StartAmount() *uint256.Int {
	return new(uint256.Int).Set(e.cfg.StartAmount)
}

// HopResult is the outcome of one hop.
type HopResult struct {
	Pool           common.Address
	TokenIn        model.Token
	TokenOut       model.Token
	TargetIsToken0 bool
	AmountIn       *uint256.Int
	AmountOut      *uint256.Int
	NotReady       bool
}

// String renders the hop as a trace line.
func (h HopResult) String() string {
	return fmt.Sprintf("-> %s %s (%s - %t)",
		amm.FormatAmount(h.AmountOut, h.TokenOut.Decimals),
		h.TokenOut.Symbol,
		h.Pool.Hex(),
		h.TargetIsToken0,
	)
}

// Result is the outcome of one route evaluation.
type Result struct {
	RouteID     string
	StartAmount *uint256.Int
	FinalAmount *uint256.Int
	Hops        []HopResult
	NotReady    bool
}

// Trace returns one line per hop.
func (r Result) Trace() []string {
	lines := make([]string, len(r.Hops))
	for i, hop := range r.Hops {
		lines[i] = hop.String()
	}
	return lines
}

// Profit returns FinalAmount - StartAmount.
func (r Result) Profit() *big.Int {
	final := new(big.Int)
	if r.FinalAmount != nil {
		final = r.FinalAmount.ToBig()
	}
	start := new(big.Int)
	if r.StartAmount != nil {
		start = r.StartAmount.ToBig()
	}
	return final.Sub(final, start)
}

// Path renders the route as "WETH -> USDC -> WETH" starting at base.
func (r Result) Path(base model.Token) string {
	var b strings.Builder
	b.WriteString(base.Symbol)
	for _, hop := range r.Hops {
		b.WriteString(" -> ")
		b.WriteString(hop.TokenOut.Symbol)
	}
	return b.String()
}

// Evaluate looks up routeID and evaluates it.
func (e *Evaluator) Evaluate(routeID string) (Result, error) {
	route, ok := e.catalog.RouteOf(routeID)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownRoute, routeID)
	}
	return e.EvaluateRoute(route)
}

// EvaluateRoute walks the hops of route from the configured starting amount.
// A hop through a pool without reserves yields zero and marks the result
// not ready; evaluation continues so the trace covers every hop.
func (e *Evaluator) EvaluateRoute(route model.Route) (Result, error) {
	res := Result{
		RouteID:     route.ID,
		StartAmount: e.StartAmount(),
		Hops:        make([]HopResult, 0, len(route.Hops)),
	}

	amount := e.StartAmount()
	for i, hop := range route.Hops {
		pool, ok := e.catalog.PoolOf(hop.Pool)
		if !ok {
			return res, fmt.Errorf("route %s hop %d: %w: %s", route.ID, i, ErrUnknownPool, hop.Pool.Hex())
		}
		in, ok := pool.Other(hop.Target)
		if !ok {
			return res, fmt.Errorf("route %s hop %d: target %s not in pool %s", route.ID, i, hop.Target.Hex(), hop.Pool.Hex())
		}
		tokenIn, ok := e.catalog.TokenOf(in)
		if !ok {
			return res, fmt.Errorf("route %s hop %d: %w: %s", route.ID, i, ErrUnknownToken, in.Hex())
		}
		tokenOut, ok := e.catalog.TokenOf(hop.Target)
		if !ok {
			return res, fmt.Errorf("route %s hop %d: %w: %s", route.ID, i, ErrUnknownToken, hop.Target.Hex())
		}
		pair, ok := e.store.Snapshot(hop.Pool)
		if !ok {
			return res, fmt.Errorf("route %s hop %d: %w: %s has no reserves", route.ID, i, ErrUnknownPool, hop.Pool.Hex())
		}

		targetIsToken0 := hop.Target == pool.Token0
		reserveIn, reserveOut := pair.Reserve0, pair.Reserve1
		if targetIsToken0 {
			reserveIn, reserveOut = pair.Reserve1, pair.Reserve0
		}

		out, ready, err := amm.AmountOut(amount, reserveIn, reserveOut, tokenIn.Decimals, tokenOut.Decimals, e.cfg.Fee)
		if err != nil {
			return res, fmt.Errorf("route %s hop %d: %w", route.ID, i, err)
		}
		if !ready {
			res.NotReady = true
		}

		res.Hops = append(res.Hops, HopResult{
			Pool:           hop.Pool,
			TokenIn:        tokenIn,
			TokenOut:       tokenOut,
			TargetIsToken0: targetIsToken0,
			AmountIn:       amount,
			AmountOut:      out,
			NotReady:       !ready,
		})
		amount = out
	}

	res.FinalAmount = amount
	return res, nil
}
