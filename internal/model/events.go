package model

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// PairEvent is a decoded pool event that carries reserve information.
type PairEvent interface {
	PoolAddress() common.Address
	Block() uint64
}

// SyncEvent reports the absolute reserves of a pool after a state change.
type SyncEvent struct {
	Pool        common.Address
	BlockNumber uint64
	Reserve0    *uint256.Int
	Reserve1    *uint256.Int
}

func (e SyncEvent) PoolAddress() common.Address { return e.Pool }
func (e SyncEvent) Block() uint64               { return e.BlockNumber }

// SwapEvent reports the token flows of a single swap.
type SwapEvent struct {
	Pool        common.Address
	BlockNumber uint64
	Sender      common.Address
	To          common.Address
	Amount0In   *uint256.Int
	Amount1In   *uint256.Int
	Amount0Out  *uint256.Int
	Amount1Out  *uint256.Int
}

func (e SwapEvent) PoolAddress() common.Address { return e.Pool }
func (e SwapEvent) Block() uint64               { return e.BlockNumber }

// ReserveUpdate is the canonical reserve change consumed by the detector.
type ReserveUpdate struct {
	Pool        common.Address
	Reserve0    *uint256.Int
	Reserve1    *uint256.Int
	BlockNumber uint64
	Source      string
}

// Update sources.
const (
	SourceSync      = "sync"
	SourceSwap      = "swap"
	SourceBootstrap = "bootstrap"
	SourceReplay    = "replay"
	SourceSweep     = "sweep"
)
