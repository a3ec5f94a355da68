package reserve

import (
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Pair is an immutable reserve snapshot. Values must not be mutated.
type Pair struct {
	Reserve0 *uint256.Int
	Reserve1 *uint256.Int
}

var zeroPair = &Pair{Reserve0: new(uint256.Int), Reserve1: new(uint256.Int)}

// Ready reports whether both reserves are non-zero.
func (p Pair) Ready() bool {
	return p.Reserve0 != nil && p.Reserve1 != nil && !p.Reserve0.IsZero() && !p.Reserve1.IsZero()
}

// Equal reports whether both reserves match.
func (p Pair) Equal(other Pair) bool {
	return eq(p.Reserve0, other.Reserve0) && eq(p.Reserve1, other.Reserve1)
}

func eq(a, b *uint256.Int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Eq(b)
}

// Store holds the latest reserves of every catalog pool.
// The key set is fixed at construction; each pool's pair is replaced
// atomically so readers never observe reserve0 and reserve1 from
// different updates.
type Store struct {
	entries map[common.Address]*atomic.Pointer[Pair]
}

// NewStore creates a store with zero reserves for each pool.
func NewStore(pools []common.Address) *Store {
	entries := make(map[common.Address]*atomic.Pointer[Pair], len(pools))
	for _, pool := range pools {
		ptr := new(atomic.Pointer[Pair])
		ptr.Store(zeroPair)
		entries[pool] = ptr
	}
	return &Store{entries: entries}
}

// Update replaces the reserves of pool and returns the previous pair.
// ok is false when pool is not tracked; the store is left unchanged.
func (s *Store) Update(pool common.Address, reserve0, reserve1 *uint256.Int) (prev Pair, ok bool) {
	ptr, ok := s.entries[pool]
	if !ok {
		return Pair{}, false
	}
	next := &Pair{Reserve0: clone(reserve0), Reserve1: clone(reserve1)}
	return *ptr.Swap(next), true
}

// Snapshot returns the current reserves of pool.
func (s *Store) Snapshot(pool common.Address) (Pair, bool) {
	ptr, ok := s.entries[pool]
	if !ok {
		return Pair{}, false
	}
	return *ptr.Load(), true
}

// Ready reports whether pool is tracked and has both reserves non-zero.
func (s *Store) Ready(pool common.Address) bool {
	pair, ok := s.Snapshot(pool)
	return ok && pair.Ready()
}

// Len returns the number of tracked pools.
func (s *Store) Len() int {
	return len(s.entries)
}

// Each calls fn for every tracked pool with its current reserves.
func (s *Store) Each(fn func(pool common.Address, pair Pair)) {
	for pool, ptr := range s.entries {
		fn(pool, *ptr.Load())
	}
}

// ReadyCount returns the number of pools with both reserves non-zero.
func (s *Store) ReadyCount() int {
	n := 0
	for _, ptr := range s.entries {
		if ptr.Load().Ready() {
			n++
		}
	}
	return n
}

func clone(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(v)
}
