package dex

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// PackViewPair encodes a viewPair call for pools.
func PackViewPair(pools []common.Address) ([]byte, error) {
	parsed, err := ViewPairABI()
	if err != nil {
		return nil, fmt.Errorf("parse view abi: %w", err)
	}
	data, err := parsed.Pack("viewPair", pools)
	if err != nil {
		return nil, fmt.Errorf("pack viewPair: %w", err)
	}
	return data, nil
}

// UnpackViewPair decodes the flat reserve list returned by viewPair:
// reserve0 and reserve1 of each requested pool, in request order.
func UnpackViewPair(data []byte) ([]*uint256.Int, error) {
	parsed, err := ViewPairABI()
	if err != nil {
		return nil, fmt.Errorf("parse view abi: %w", err)
	}
	values, err := parsed.Unpack("viewPair", data)
	if err != nil {
		return nil, fmt.Errorf("unpack viewPair: %w", err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("unpack viewPair: %d outputs", len(values))
	}
	raw, ok := values[0].([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("unpack viewPair: unexpected type %T", values[0])
	}

	out := make([]*uint256.Int, len(raw))
	for i, v := range raw {
		u, err := toUint256(v)
		if err != nil {
			return nil, fmt.Errorf("reserve %d: %w", i, err)
		}
		out[i] = u
	}
	return out, nil
}
