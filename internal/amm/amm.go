package amm

import (
	"github.com/holiman/uint256"
)

// AmountOut prices a swap of amountIn through a constant-product pool.
//
// amountIn and reserveIn are first normalised to the output token's precision,
// then out = floor(in*m)*reserveOut / (floor(reserveIn*m) + in) where m is the
// fee multiplier. The pool is not ready when either reserve is zero, when the
// normalised input reserve truncates to zero, or when the denominator is zero;
// in that case the returned amount is zero.
func AmountOut(amountIn, reserveIn, reserveOut *uint256.Int, decIn, decOut uint8, fee Fee) (*uint256.Int, bool, error) {
	if reserveIn == nil || reserveOut == nil || reserveIn.IsZero() || reserveOut.IsZero() {
		return new(uint256.Int), false, nil
	}

	adjIn, err := Rescale(amountIn, decIn, decOut)
	if err != nil {
		return nil, false, err
	}
	adjReserveIn, err := Rescale(reserveIn, decIn, decOut)
	if err != nil {
		return nil, false, err
	}
	// Departs from the plain formula, which would price against a zero input
	// reserve and could return the whole output reserve at zero fee.
	if adjReserveIn.IsZero() {
		return new(uint256.Int), false, nil
	}

	inWithFee, err := fee.Apply(adjIn)
	if err != nil {
		return nil, false, err
	}
	reserveWithFee, err := fee.Apply(adjReserveIn)
	if err != nil {
		return nil, false, err
	}

	denominator, overflow := new(uint256.Int).AddOverflow(reserveWithFee, adjIn)
	if overflow {
		return nil, false, ErrOverflow
	}
	if denominator.IsZero() {
		return new(uint256.Int), false, nil
	}

	out, overflow := new(uint256.Int).MulDivOverflow(inWithFee, reserveOut, denominator)
	if overflow {
		return nil, false, ErrOverflow
	}
	return out, true, nil
}
