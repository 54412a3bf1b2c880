package exchange

import (
	"fmt"
	"math/big"
)

// feeScale is the fixed-point denominator for fee fractions.
// A rate of 1% is stored as 1e16, matching 18-decimal token precision.
var feeScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// FeeRate is an immutable 1e18-scaled fraction charged to the taker on
// every fill, denominated in the order's tokenGet.
type FeeRate struct {
	num *big.Int
}

// FeeRateFromPercent converts a whole-percent rate, e.g. 1 -> 1e16/1e18.
func FeeRateFromPercent(percent int64) (FeeRate, error) {
	if percent < 0 || percent > 100 {
		return FeeRate{}, fmt.Errorf("fee rate out of range: %d%%", percent)
	}
	num := new(big.Int).Mul(big.NewInt(percent), new(big.Int).Exp(big.NewInt(10), big.NewInt(16), nil))
	return FeeRate{num: num}, nil
}

// Apply computes amount * rate / 1e18, truncating toward zero.
// Truncation is the settlement rounding rule: the fee on an amount that is
// not an exact multiple of the rate loses its sub-wei remainder.
func (f FeeRate) Apply(amount *big.Int) *big.Int {
	fee := new(big.Int).Mul(amount, f.num)
	return fee.Quo(fee, feeScale)
}

// Numerator returns the 1e18-scaled numerator, e.g. 1e16 for 1%.
func (f FeeRate) Numerator() *big.Int {
	return new(big.Int).Set(f.num)
}

func (f FeeRate) String() string {
	return f.num.String() + "/1e18"
}
