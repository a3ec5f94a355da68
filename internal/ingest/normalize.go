package ingest

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"arbScope/internal/model"
	"arbScope/internal/reserve"
)

// Normalizer turns decoded pair events into canonical reserve updates.
//
// Swap events only carry flows, so the normalizer keeps the reserves it last
// emitted for each pool and applies the flows to them. The running value is
// seeded from the store the first time a ready pool swaps.
type Normalizer struct {
	store *reserve.Store

	mu      sync.Mutex
	running map[common.Address]reserve.Pair
}

func NewNormalizer(store *reserve.Store) *Normalizer {
	return &Normalizer{store: store, running: make(map[common.Address]reserve.Pair)}
}

// Normalize converts ev. ok is false when the event cannot produce an update
// yet, such as a swap on a pool whose reserves are unknown.
func (n *Normalizer) Normalize(ev model.PairEvent) (model.ReserveUpdate, bool, error) {
	switch e := ev.(type) {
	case model.SyncEvent:
		n.remember(e.Pool, e.Reserve0, e.Reserve1)
		return model.ReserveUpdate{
			Pool:        e.Pool,
			Reserve0:    e.Reserve0,
			Reserve1:    e.Reserve1,
			BlockNumber: e.BlockNumber,
			Source:      model.SourceSync,
		}, true, nil
	case model.SwapEvent:
		return n.applySwap(e)
	default:
		return model.ReserveUpdate{}, false, fmt.Errorf("unsupported pair event %T", ev)
	}
}

func (n *Normalizer) applySwap(e model.SwapEvent) (model.ReserveUpdate, bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	current, ok := n.running[e.Pool]
	if !ok {
		snap, known := n.store.Snapshot(e.Pool)
		if !known {
			return model.ReserveUpdate{}, false, fmt.Errorf("swap on unknown pool %s", e.Pool.Hex())
		}
		if !snap.Ready() {
			return model.ReserveUpdate{}, false, nil
		}
		current = snap
	}

	r0, err := applyFlow(current.Reserve0, e.Amount0In, e.Amount0Out)
	if err != nil {
		return model.ReserveUpdate{}, false, fmt.Errorf("pool %s reserve0: %w", e.Pool.Hex(), err)
	}
	r1, err := applyFlow(current.Reserve1, e.Amount1In, e.Amount1Out)
	if err != nil {
		return model.ReserveUpdate{}, false, fmt.Errorf("pool %s reserve1: %w", e.Pool.Hex(), err)
	}

	n.running[e.Pool] = reserve.Pair{Reserve0: r0, Reserve1: r1}
	return model.ReserveUpdate{
		Pool:        e.Pool,
		Reserve0:    r0,
		Reserve1:    r1,
		BlockNumber: e.BlockNumber,
		Source:      model.SourceSwap,
	}, true, nil
}

func (n *Normalizer) remember(pool common.Address, r0, r1 *uint256.Int) {
	n.mu.Lock()
	n.running[pool] = reserve.Pair{Reserve0: r0, Reserve1: r1}
	n.mu.Unlock()
}

func applyFlow(reserveValue, in, out *uint256.Int) (*uint256.Int, error) {
	sum, overflow := new(uint256.Int).AddOverflow(reserveValue, orZero(in))
	if overflow {
		return nil, fmt.Errorf("reserve overflow")
	}
	out = orZero(out)
	if sum.Lt(out) {
		return nil, fmt.Errorf("reserve underflow: %s < %s", sum, out)
	}
	return sum.Sub(sum, out), nil
}

func orZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v
}
