package amm

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// ErrInvalidFee is returned for fee percentages outside [0, 100).
var ErrInvalidFee = errors.New("invalid fee percent")

var hundred = decimal.NewFromInt(100)

// Fee is the exact multiplier 1 - percent/100 kept as num/den.
type Fee struct {
	num uint256.Int
	den uint256.Int
	pct decimal.Decimal
}

// ParseFeePercent parses a decimal percentage such as "0.5" or "0.3".
func ParseFeePercent(s string) (Fee, error) {
	pct, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Fee{}, fmt.Errorf("%w: %q: %v", ErrInvalidFee, s, err)
	}
	if pct.IsNegative() || pct.GreaterThanOrEqual(hundred) {
		return Fee{}, fmt.Errorf("%w: %s not in [0, 100)", ErrInvalidFee, pct)
	}

	mult := decimal.NewFromInt(1).Sub(pct.Shift(-2))
	coef := mult.Coefficient()
	exp := mult.Exponent()

	num := new(big.Int).Set(coef)
	den := big.NewInt(1)
	if exp >= 0 {
		num.Mul(num, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(exp)), nil))
	} else {
		if -exp > MaxDecimals {
			return Fee{}, fmt.Errorf("%w: %s has too many decimal places", ErrInvalidFee, pct)
		}
		den.Exp(big.NewInt(10), big.NewInt(int64(-exp)), nil)
	}

	var fee Fee
	if overflow := fee.num.SetFromBig(num); overflow {
		return Fee{}, fmt.Errorf("%w: %s", ErrInvalidFee, pct)
	}
	fee.den.SetFromBig(den)
	fee.pct = pct
	return fee, nil
}

// MustParseFeePercent is like ParseFeePercent but panics on error.
func MustParseFeePercent(s string) Fee {
	fee, err := ParseFeePercent(s)
	if err != nil {
		panic(err)
	}
	return fee
}

// Percent returns the configured fee percentage.
func (f Fee) Percent() decimal.Decimal {
	return f.pct
}

// Multiplier returns num and den of the multiplier 1 - percent/100.
func (f Fee) Multiplier() (*uint256.Int, *uint256.Int) {
	return new(uint256.Int).Set(&f.num), new(uint256.Int).Set(&f.den)
}

// Apply returns floor(x * multiplier).
func (f Fee) Apply(x *uint256.Int) (*uint256.Int, error) {
	if f.den.IsZero() {
		return nil, fmt.Errorf("%w: zero value fee", ErrInvalidFee)
	}
	z, overflow := new(uint256.Int).MulDivOverflow(x, &f.num, &f.den)
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}

func (f Fee) String() string {
	return f.pct.String() + "%"
}
