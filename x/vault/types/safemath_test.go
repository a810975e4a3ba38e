package types_test

import (
	"math/big"
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/paw-chain/vaultbook/x/vault/types"
)

// uint256Max returns 2^256 - 1.
func uint256Max() *big.Int {
	v := new(big.Int).Lsh(big.NewInt(1), 256)
	return v.Sub(v, big.NewInt(1))
}

func TestSafeMulDivWideIntermediate(t *testing.T) {
	max := math.NewIntFromBigInt(uint256Max())

	// (2^256-1) * 2 / 4 fits even though the product does not.
	got, err := types.SafeMulDiv(max, math.NewInt(2), math.NewInt(4))
	require.NoError(t, err)
	want := new(big.Int).Quo(new(big.Int).Mul(uint256Max(), big.NewInt(2)), big.NewInt(4))
	require.Equal(t, want.String(), got.String())

	_, err = types.SafeMulDiv(max, math.NewInt(2), math.NewInt(1))
	require.ErrorIs(t, err, types.ErrOverflow)

	_, err = types.SafeMulDiv(max, max, math.ZeroInt())
	require.ErrorIs(t, err, types.ErrOverflow)
}

func TestSafeAddSub(t *testing.T) {
	max := math.NewIntFromBigInt(uint256Max())

	_, err := types.SafeAdd(max, math.OneInt())
	require.ErrorIs(t, err, types.ErrOverflow)

	sum, err := types.SafeAdd(math.NewInt(2), math.NewInt(3))
	require.NoError(t, err)
	require.Equal(t, math.NewInt(5), sum)

	_, err = types.SafeSub(math.NewInt(2), math.NewInt(3))
	require.ErrorIs(t, err, types.ErrOverflow)
}

func TestPow10(t *testing.T) {
	require.Equal(t, math.OneInt(), types.Pow10(0))
	require.Equal(t, math.NewInt(1_000_000), types.Pow10(6))
	require.Equal(t, "1000000000000000000", types.Pow10(18).String())
}
