package types

import (
	"cosmossdk.io/math"
)

var (
	// OneHundredPercent is the fixed-point scale of fee percentages.
	OneHundredPercent = math.NewInt(1_000_000_000_000_000_000)

	// DefaultFeePercentage is 0.2%.
	DefaultFeePercentage = math.NewInt(2_000_000_000_000_000)
)

// FeeModel holds a vault fee percentage scaled to OneHundredPercent and
// implements the fee arithmetic every trading path shares. All divisions floor,
// so the fee actually collected never exceeds the nominal rate.
type FeeModel struct {
	Percentage math.Int
}

// NewFeeModel returns a FeeModel for the given percentage.
func NewFeeModel(percentage math.Int) FeeModel {
	return FeeModel{Percentage: percentage}
}

// Validate checks that the percentage is in [0, 100%).
func (f FeeModel) Validate() error {
	return ValidateFeePercentage(f.Percentage)
}

// ValidateFeePercentage checks that a fee percentage is in [0, 100%).
func ValidateFeePercentage(fee math.Int) error {
	if fee.IsNil() || fee.IsNegative() {
		return ErrInvalidFee.Wrap("fee percentage must be non-negative")
	}
	if fee.GTE(OneHundredPercent) {
		return ErrInvalidFee.Wrapf("fee percentage %s must be below %s", fee, OneHundredPercent)
	}
	return nil
}

// FeeOf is the fee contained in a gross amount v: floor(v*fee/1e18).
func (f FeeModel) FeeOf(v math.Int) (math.Int, error) {
	return SafeMulDiv(v, f.Percentage, OneHundredPercent)
}

// FeeFor is the fee to add on top of a net amount v: floor(v*fee/(1e18-fee)).
func (f FeeModel) FeeFor(v math.Int) (math.Int, error) {
	return SafeMulDiv(v, f.Percentage, OneHundredPercent.Sub(f.Percentage))
}

// WithoutFee strips the fee from a gross amount.
func (f FeeModel) WithoutFee(v math.Int) (math.Int, error) {
	fee, err := f.FeeOf(v)
	if err != nil {
		return math.Int{}, err
	}
	return v.Sub(fee), nil
}

// WithFee adds the fee to a net amount.
func (f FeeModel) WithFee(v math.Int) (math.Int, error) {
	fee, err := f.FeeFor(v)
	if err != nil {
		return math.Int{}, err
	}
	return SafeAdd(v, fee)
}

// ValidateNew checks that next may replace the current percentage. Fees only
// ever go down.
func (f FeeModel) ValidateNew(next math.Int) error {
	if err := ValidateFeePercentage(next); err != nil {
		return err
	}
	if next.GT(f.Percentage) {
		return ErrFeeIncrease.Wrapf("current %s, requested %s", f.Percentage, next)
	}
	return nil
}
