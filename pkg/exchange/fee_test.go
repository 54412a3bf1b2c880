package exchange

import (
	"math/big"
	"testing"
)

func TestFeeRateFromPercent(t *testing.T) {
	rate, err := FeeRateFromPercent(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 1% stored as 1e16 over the 1e18 scale
	want, _ := new(big.Int).SetString("10000000000000000", 10)
	if rate.Numerator().Cmp(want) != 0 {
		t.Errorf("numerator = %s, want %s", rate.Numerator(), want)
	}
}

func TestFeeRateRejectsOutOfRange(t *testing.T) {
	for _, pct := range []int64{-1, 101} {
		if _, err := FeeRateFromPercent(pct); err == nil {
			t.Errorf("FeeRateFromPercent(%d) accepted", pct)
		}
	}
}

func TestFeeRateApply(t *testing.T) {
	one := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

	tests := []struct {
		name    string
		percent int64
		amount  *big.Int
		want    *big.Int
	}{
		{"one percent of 1000 tokens", 1, new(big.Int).Mul(one, big.NewInt(1000)), new(big.Int).Mul(one, big.NewInt(10))},
		{"zero rate", 0, new(big.Int).Mul(one, big.NewInt(1000)), big.NewInt(0)},
		{"hundred percent", 100, big.NewInt(12345), big.NewInt(12345)},
		// 1% of 99 wei is 0.99 wei: truncates to zero
		{"sub-wei fee truncates", 1, big.NewInt(99), big.NewInt(0)},
		// 1% of 150 wei is 1.5 wei: truncates to 1
		{"fractional fee truncates", 1, big.NewInt(150), big.NewInt(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rate, err := FeeRateFromPercent(tt.percent)
			if err != nil {
				t.Fatalf("fee rate: %v", err)
			}
			got := rate.Apply(tt.amount)
			if got.Cmp(tt.want) != 0 {
				t.Errorf("Apply(%s) = %s, want %s", tt.amount, got, tt.want)
			}
		})
	}
}

func TestFeeRateApplyDoesNotMutateAmount(t *testing.T) {
	rate, _ := FeeRateFromPercent(1)
	amount := big.NewInt(1000)
	rate.Apply(amount)
	if amount.Int64() != 1000 {
		t.Errorf("amount mutated to %s", amount)
	}
}
