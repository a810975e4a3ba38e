package types

import (
	"math/big"

	"cosmossdk.io/math"
)

// maxUint256 is the exclusive upper bound of every stored amount and price.
var maxUint256 = new(big.Int).Lsh(big.NewInt(1), 256)

func checkRange(v *big.Int) (math.Int, error) {
	if v.Sign() < 0 {
		return math.Int{}, ErrOverflow.Wrap("negative result")
	}
	if v.Cmp(maxUint256) >= 0 {
		return math.Int{}, ErrOverflow.Wrapf("%s exceeds 256 bits", v.String())
	}
	return math.NewIntFromBigInt(v), nil
}

// SafeAdd adds two amounts, failing when the sum leaves the 256-bit range.
func SafeAdd(a, b math.Int) (math.Int, error) {
	return checkRange(new(big.Int).Add(a.BigInt(), b.BigInt()))
}

// SafeSub subtracts b from a, failing on underflow.
func SafeSub(a, b math.Int) (math.Int, error) {
	if a.LT(b) {
		return math.Int{}, ErrOverflow.Wrapf("cannot subtract %s from %s", b, a)
	}
	return a.Sub(b), nil
}

// SafeMulDiv computes floor(a*b/c). The product is formed at full width so only
// the final quotient has to fit in 256 bits.
func SafeMulDiv(a, b, c math.Int) (math.Int, error) {
	if c.IsZero() {
		return math.Int{}, ErrOverflow.Wrap("division by zero")
	}
	if a.IsZero() || b.IsZero() {
		return math.ZeroInt(), nil
	}
	product := new(big.Int).Mul(a.BigInt(), b.BigInt())
	return checkRange(product.Quo(product, c.BigInt()))
}

// Pow10 returns 10^decimals as an Int.
func Pow10(decimals uint32) math.Int {
	return math.NewIntFromBigInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
}

// IsUint256 reports whether v is a valid non-negative 256-bit quantity.
func IsUint256(v math.Int) bool {
	return !v.IsNil() && !v.IsNegative() && v.BigInt().Cmp(maxUint256) < 0
}
