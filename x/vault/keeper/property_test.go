package keeper_test

import (
	"testing"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	keepertest "github.com/paw-chain/vaultbook/testutil/keeper"
	"github.com/paw-chain/vaultbook/x/vault/keeper"
	"github.com/paw-chain/vaultbook/x/vault/types"
)

// drawPrice draws a tkb price between 0.01 and 5.00 on a 0.01 grid so equal
// prices are common.
func drawPrice(t *rapid.T, label string) math.Int {
	return math.NewInt(rapid.Int64Range(1, 500).Draw(t, label)).Mul(types.Pow10(10))
}

// drawAmount draws a tka amount between 0.001 and 10.
func drawAmount(t *rapid.T, label string) math.Int {
	return math.NewInt(rapid.Int64Range(1, 10_000).Draw(t, label)).Mul(types.Pow10(15))
}

func newPropertyFixture(t *rapid.T) (*keepertest.VaultFixture, uint64) {
	f := keepertest.NewVaultFixture(t)
	vault := f.CreateVault(t, tka, 18, tkb, 12)
	return f, vault.ID
}

func requireAllInvariants(t require.TestingT, f *keepertest.VaultFixture) {
	msg, broken := keeper.AllInvariants(*f.Keeper)(f.Ctx)
	require.False(t, broken, msg)
}

func TestBookStaysSortedProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		f, vaultID := newPropertyFixture(t)
		seller := keepertest.TestAddr("seller")
		buyer := keepertest.TestAddr("buyer")
		f.Fund(t, buyer, sdk.NewCoin(tkb, tkbUnits("1000000")))

		var listed []uint64
		steps := rapid.IntRange(1, 30).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			switch rapid.IntRange(0, 3).Draw(t, "op") {
			case 0, 1:
				amount := drawAmount(t, "amount")
				f.Fund(t, seller, sdk.NewCoin(tka, amount))
				var hint uint64
				if len(listed) > 0 {
					hint = rapid.SampledFrom(listed).Draw(t, "hint")
				}
				id, err := f.Keeper.NewOrder(f.Ctx, seller, vaultID, tka, drawPrice(t, "price"), amount, nil, hint)
				require.NoError(t, err)
				listed = append(listed, id)
			case 2:
				if len(listed) == 0 {
					continue
				}
				id := rapid.SampledFrom(listed).Draw(t, "cancel")
				_, err := f.Keeper.CancelOrder(f.Ctx, seller, vaultID, id, math.ZeroInt(), nil, math.Int{})
				if err != nil {
					require.ErrorIs(t, err, types.ErrOrderNotFound)
				}
			case 3:
				_, err := f.Keeper.BuyAtMaxPrice(f.Ctx, buyer, vaultID, tka, drawPrice(t, "max"), tkbUnits("10"), nil, math.Int{})
				require.NoError(t, err)
			}
		}

		requireAllInvariants(t, f)

		orders, err := f.Keeper.OrdersPage(f.Ctx, vaultID, tka, 0, 1000)
		require.NoError(t, err)
		for i := 1; i < len(orders); i++ {
			require.True(t, orders[i-1].Before(orders[i]), "order %d before %d", orders[i-1].ID, orders[i].ID)
		}
	})
}

func TestMaxPriceBoundProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		f, vaultID := newPropertyFixture(t)
		seller := keepertest.TestAddr("seller")
		buyer := keepertest.TestAddr("buyer")

		n := rapid.IntRange(1, 12).Draw(t, "orders")
		for i := 0; i < n; i++ {
			amount := drawAmount(t, "amount")
			f.Fund(t, seller, sdk.NewCoin(tka, amount))
			_, err := f.Keeper.NewOrder(f.Ctx, seller, vaultID, tka, drawPrice(t, "price"), amount, nil, 0)
			require.NoError(t, err)
		}

		maxPrice := drawPrice(t, "max")
		maxIn := math.NewInt(rapid.Int64Range(1, 50_000).Draw(t, "maxIn")).Mul(types.Pow10(9))
		f.Fund(t, buyer, sdk.NewCoin(tkb, maxIn))

		quotedIn, quotedOut, err := f.Keeper.ReturnAtMaxPrice(f.Ctx, vaultID, tka, maxIn, maxPrice)
		require.NoError(t, err)
		require.True(t, quotedIn.LTE(maxIn))

		res, err := f.Keeper.BuyAtMaxPrice(f.Ctx, buyer, vaultID, tka, maxPrice, maxIn, nil, math.Int{})
		require.NoError(t, err)
		require.True(t, res.TotalIn().LTE(maxIn), "spent %s of %s", res.TotalIn(), maxIn)
		require.True(t, res.AmountOut.LTE(quotedOut))
		for _, fill := range res.Fills {
			require.True(t, fill.Price.LTE(maxPrice), "filled at %s above %s", fill.Price, maxPrice)
		}
		require.Equal(t, maxIn.Sub(res.TotalIn()).String(), f.Balance(buyer, tkb).String())
		require.Equal(t, res.AmountOut.String(), f.Balance(buyer, tka).String())

		requireAllInvariants(t, f)
	})
}

func TestAvgPriceBoundProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		f, vaultID := newPropertyFixture(t)
		seller := keepertest.TestAddr("seller")
		buyer := keepertest.TestAddr("buyer")

		n := rapid.IntRange(1, 12).Draw(t, "orders")
		for i := 0; i < n; i++ {
			amount := drawAmount(t, "amount")
			f.Fund(t, seller, sdk.NewCoin(tka, amount))
			_, err := f.Keeper.NewOrder(f.Ctx, seller, vaultID, tka, drawPrice(t, "price"), amount, nil, 0)
			require.NoError(t, err)
		}

		avgPrice := drawPrice(t, "avg")
		maxIn := tkbUnits("100000")
		f.Fund(t, buyer, sdk.NewCoin(tkb, maxIn))

		res, err := f.Keeper.BuyAtAvgPrice(f.Ctx, buyer, vaultID, tka, avgPrice, maxIn, nil, math.Int{})
		require.NoError(t, err)

		// (raw + fee) * 10^18 <= avg * out, allowing one base unit of rounding
		// per fill on the cost side.
		spent := res.TotalIn().Mul(types.Pow10(18))
		limit := avgPrice.Mul(res.AmountOut).Add(math.NewInt(int64(len(res.Fills) + 1)).Mul(types.Pow10(18)))
		require.True(t, spent.LTE(limit), "avg exceeded: paid %s for %s at avg %s", res.TotalIn(), res.AmountOut, avgPrice)
		requireAllInvariants(t, f)
	})
}
