package amm

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustAmount(t *testing.T, s string) *uint256.Int {
	t.Helper()
	v, err := uint256.FromDecimal(s)
	require.NoError(t, err)
	return v
}

func TestAmountOut(t *testing.T) {
	fee := MustParseFeePercent("0.5")

	t.Run("cross decimals", func(t *testing.T) {
		out, ready, err := AmountOut(
			mustAmount(t, "1000000000000000000"),
			mustAmount(t, "1000000000000000000000"),
			mustAmount(t, "2000000000000"),
			18, 6, fee,
		)
		require.NoError(t, err)
		assert.True(t, ready)
		assert.Equal(t, "1997991967", out.Dec())
	})

	t.Run("zero fee", func(t *testing.T) {
		out, ready, err := AmountOut(
			mustAmount(t, "1000000000000000000"),
			mustAmount(t, "1000000000000000000000"),
			mustAmount(t, "2000000000000"),
			18, 6, MustParseFeePercent("0"),
		)
		require.NoError(t, err)
		assert.True(t, ready)
		assert.Equal(t, "1998001998", out.Dec())
	})

	t.Run("reverse direction", func(t *testing.T) {
		out, ready, err := AmountOut(
			mustAmount(t, "2000000000"),
			mustAmount(t, "2000000000000"),
			mustAmount(t, "1000000000000000000000"),
			6, 18, fee,
		)
		require.NoError(t, err)
		assert.True(t, ready)
		assert.Equal(t, "998995983935742971", out.Dec())
	})

	t.Run("zero reserve", func(t *testing.T) {
		out, ready, err := AmountOut(uint256.NewInt(1000), new(uint256.Int), uint256.NewInt(5000), 18, 18, fee)
		require.NoError(t, err)
		assert.False(t, ready)
		assert.True(t, out.IsZero())

		out, ready, err = AmountOut(uint256.NewInt(1000), uint256.NewInt(5000), new(uint256.Int), 18, 18, fee)
		require.NoError(t, err)
		assert.False(t, ready)
		assert.True(t, out.IsZero())
	})

	t.Run("input reserve truncates to zero", func(t *testing.T) {
		out, ready, err := AmountOut(uint256.NewInt(1), uint256.NewInt(1), uint256.NewInt(5000), 18, 6, fee)
		require.NoError(t, err)
		assert.False(t, ready)
		assert.True(t, out.IsZero())
	})

	t.Run("output below reserve", func(t *testing.T) {
		reserveOut := uint256.NewInt(1000)
		out, ready, err := AmountOut(mustAmount(t, "1000000000000000000000000"), uint256.NewInt(10), reserveOut, 18, 18, MustParseFeePercent("0"))
		require.NoError(t, err)
		assert.True(t, ready)
		assert.True(t, out.Lt(reserveOut))
	})

	t.Run("overflow", func(t *testing.T) {
		huge := new(uint256.Int).Lsh(uint256.NewInt(1), 255)
		_, _, err := AmountOut(huge, uint256.NewInt(1), uint256.NewInt(1), 0, 77, fee)
		assert.ErrorIs(t, err, ErrOverflow)
	})
}

func TestAmountOutMonotonicAndBounded(t *testing.T) {
	pools := []struct {
		name       string
		decIn      uint8
		decOut     uint8
		reserveIn  string
		reserveOut string
		start      string
	}{
		{"18 to 6", 18, 6, "1000000000000000000000", "2000000000000", "1000000000000000"},
		{"6 to 18", 6, 18, "2000000000000", "1000000000000000000000", "1000"},
		{"18 to 18", 18, 18, "5000000000000000000000", "7000000000000000000000", "1000000000000"},
	}
	fees := []string{"0", "0.3", "0.5", "1", "25"}
	three := uint256.NewInt(3)

	for _, pool := range pools {
		for _, pct := range fees {
			t.Run(pool.name+" fee "+pct, func(t *testing.T) {
				fee := MustParseFeePercent(pct)
				reserveIn := mustAmount(t, pool.reserveIn)
				reserveOut := mustAmount(t, pool.reserveOut)
				amountIn := mustAmount(t, pool.start)

				prev := new(uint256.Int)
				for step := 0; step < 30; step++ {
					out, ready, err := AmountOut(amountIn, reserveIn, reserveOut, pool.decIn, pool.decOut, fee)
					require.NoError(t, err)
					require.True(t, ready)
					assert.True(t, out.Lt(reserveOut), "step %d: out %s reserveOut %s", step, out.Dec(), reserveOut.Dec())
					assert.False(t, out.Lt(prev), "step %d: out %s below previous %s", step, out.Dec(), prev.Dec())

					prev = out
					amountIn = new(uint256.Int).Mul(amountIn, three)
				}
			})
		}
	}
}

func TestParseFeePercent(t *testing.T) {
	fee, err := ParseFeePercent("0.5")
	require.NoError(t, err)
	num, den := fee.Multiplier()
	assert.Equal(t, "995", num.Dec())
	assert.Equal(t, "1000", den.Dec())

	fee, err = ParseFeePercent(" 0.3 ")
	require.NoError(t, err)
	applied, err := fee.Apply(uint256.NewInt(1000))
	require.NoError(t, err)
	assert.Equal(t, uint64(997), applied.Uint64())

	fee, err = ParseFeePercent("0")
	require.NoError(t, err)
	applied, err = fee.Apply(uint256.NewInt(12345))
	require.NoError(t, err)
	assert.Equal(t, uint64(12345), applied.Uint64())

	for _, bad := range []string{"100", "150", "-0.1", "abc", ""} {
		_, err := ParseFeePercent(bad)
		assert.ErrorIs(t, err, ErrInvalidFee, bad)
	}
}

func TestParseAmount(t *testing.T) {
	v, err := ParseAmount("1", 18)
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000000", v.Dec())

	v, err = ParseAmount("0.25", 18)
	require.NoError(t, err)
	assert.Equal(t, "250000000000000000", v.Dec())

	_, err = ParseAmount("1.5", 0)
	assert.Error(t, err)

	_, err = ParseAmount("-1", 18)
	assert.Error(t, err)
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "1997.991967", FormatAmount(uint256.NewInt(1997991967), 6))
	assert.Equal(t, "1.000000000000000000", FormatAmount(mustAmount(t, "1000000000000000000"), 18))
	assert.Equal(t, "42", FormatAmount(uint256.NewInt(42), 0))

	neg, ok := new(big.Int).SetString("-19704433497536946", 10)
	require.True(t, ok)
	assert.Equal(t, "-0.019704433497536946", FormatSigned(neg, 18))
}

func TestRescale(t *testing.T) {
	v, err := Rescale(mustAmount(t, "1000000000000000000"), 18, 6)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000000), v.Uint64())

	v, err = Rescale(uint256.NewInt(5), 6, 18)
	require.NoError(t, err)
	assert.Equal(t, "5000000000000", v.Dec())

	_, err = Rescale(uint256.NewInt(1), 78, 0)
	assert.Error(t, err)
}
