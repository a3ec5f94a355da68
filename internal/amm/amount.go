package amm

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// MaxDecimals is the largest token precision whose scale factor 10^d fits in 256 bits.
const MaxDecimals = 77

// ErrOverflow is returned when an intermediate value does not fit in 256 bits.
var ErrOverflow = errors.New("uint256 overflow")

var pow10 [MaxDecimals + 1]uint256.Int

func init() {
	pow10[0].SetUint64(1)
	ten := uint256.NewInt(10)
	for i := 1; i <= MaxDecimals; i++ {
		pow10[i].Mul(&pow10[i-1], ten)
	}
}

// Pow10 returns 10^d. d must not exceed MaxDecimals.
func Pow10(d uint8) *uint256.Int {
	return new(uint256.Int).Set(&pow10[d])
}

// Rescale converts amount from decIn precision to decOut precision,
// computing amount*10^decOut/10^decIn with a single floor division.
func Rescale(amount *uint256.Int, decIn, decOut uint8) (*uint256.Int, error) {
	if decIn > MaxDecimals || decOut > MaxDecimals {
		return nil, fmt.Errorf("decimals %d/%d exceed %d", decIn, decOut, MaxDecimals)
	}
	if decIn == decOut {
		return new(uint256.Int).Set(amount), nil
	}
	z, overflow := new(uint256.Int).MulDivOverflow(amount, &pow10[decOut], &pow10[decIn])
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}

// ParseAmount converts a human amount such as "1" or "0.25" into base units.
func ParseAmount(s string, decimals uint8) (*uint256.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("amount %s is negative", d)
	}
	scaled := d.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("amount %s has more than %d decimal places", d, decimals)
	}
	z, overflow := uint256.FromBig(scaled.BigInt())
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}

// FormatAmount renders v with exactly decimals fractional digits.
func FormatAmount(v *uint256.Int, decimals uint8) string {
	if v == nil {
		return FormatSigned(nil, decimals)
	}
	return FormatSigned(v.ToBig(), decimals)
}

// FormatSigned renders a signed base-unit amount with exactly decimals fractional digits.
func FormatSigned(v *big.Int, decimals uint8) string {
	if v == nil {
		v = new(big.Int)
	}
	return decimal.NewFromBigInt(v, -int32(decimals)).StringFixed(int32(decimals))
}
