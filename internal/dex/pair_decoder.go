package dex

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"

	"arbScope/internal/model"
)

// ErrUnsupportedEvent is returned for logs whose topic0 is not a pair event.
var ErrUnsupportedEvent = errors.New("unsupported event")

// Event sources accepted by Topics.
const (
	EventsSync = "sync"
	EventsSwap = "swap"
)

// PairDecoder decodes constant-product pair Sync and Swap logs.
type PairDecoder struct {
	pairABI abi.ABI
	syncID  common.Hash
	swapID  common.Hash
}

// NewPairDecoder builds a pair decoder.
func NewPairDecoder() (*PairDecoder, error) {
	parsed, err := PairABI()
	if err != nil {
		return nil, fmt.Errorf("parse pair abi: %w", err)
	}
	return &PairDecoder{
		pairABI: parsed,
		syncID:  parsed.Events["Sync"].ID,
		swapID:  parsed.Events["Swap"].ID,
	}, nil
}

// Topics returns the topic0 filter for an event source name.
func (d *PairDecoder) Topics(events string) ([]common.Hash, error) {
	switch strings.ToLower(strings.TrimSpace(events)) {
	case EventsSync, "":
		return []common.Hash{d.syncID}, nil
	case EventsSwap:
		return []common.Hash{d.swapID}, nil
	default:
		return nil, fmt.Errorf("unsupported event source: %s", events)
	}
}

// Decode converts a pair log into a SyncEvent or SwapEvent.
func (d *PairDecoder) Decode(log types.Log) (model.PairEvent, error) {
	if len(log.Topics) == 0 {
		return nil, fmt.Errorf("missing topics")
	}

	switch log.Topics[0] {
	case d.syncID:
		return d.decodeSync(log)
	case d.swapID:
		return d.decodeSwap(log)
	default:
		return nil, fmt.Errorf("%w: topic0 %s", ErrUnsupportedEvent, log.Topics[0].Hex())
	}
}

func (d *PairDecoder) decodeSync(log types.Log) (model.PairEvent, error) {
	values, err := d.pairABI.Unpack("Sync", log.Data)
	if err != nil {
		return nil, fmt.Errorf("unpack sync: %w", err)
	}
	amounts, err := uint256Values(values, 2)
	if err != nil {
		return nil, fmt.Errorf("sync: %w", err)
	}
	return model.SyncEvent{
		Pool:        log.Address,
		BlockNumber: log.BlockNumber,
		Reserve0:    amounts[0],
		Reserve1:    amounts[1],
	}, nil
}

func (d *PairDecoder) decodeSwap(log types.Log) (model.PairEvent, error) {
	if len(log.Topics) < 3 {
		return nil, fmt.Errorf("swap: expected 3 topics, got %d", len(log.Topics))
	}
	values, err := d.pairABI.Unpack("Swap", log.Data)
	if err != nil {
		return nil, fmt.Errorf("unpack swap: %w", err)
	}
	amounts, err := uint256Values(values, 4)
	if err != nil {
		return nil, fmt.Errorf("swap: %w", err)
	}
	return model.SwapEvent{
		Pool:        log.Address,
		BlockNumber: log.BlockNumber,
		Sender:      common.BytesToAddress(log.Topics[1].Bytes()),
		To:          common.BytesToAddress(log.Topics[2].Bytes()),
		Amount0In:   amounts[0],
		Amount1In:   amounts[1],
		Amount0Out:  amounts[2],
		Amount1Out:  amounts[3],
	}, nil
}

func uint256Values(values []interface{}, want int) ([]*uint256.Int, error) {
	if len(values) != want {
		return nil, fmt.Errorf("expected %d values, got %d", want, len(values))
	}
	out := make([]*uint256.Int, want)
	for i, value := range values {
		v, err := asBigInt(value)
		if err != nil {
			return nil, err
		}
		if out[i], err = toUint256(v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func toUint256(v *big.Int) (*uint256.Int, error) {
	if v == nil {
		return new(uint256.Int), nil
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("negative value %s", v)
	}
	u, overflow := uint256.FromBig(v)
	if overflow {
		return nil, fmt.Errorf("value %s exceeds 256 bits", v)
	}
	return u, nil
}
