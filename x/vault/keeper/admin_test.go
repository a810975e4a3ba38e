package keeper_test

import (
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	keepertest "github.com/paw-chain/vaultbook/testutil/keeper"
	"github.com/paw-chain/vaultbook/x/vault/types"
)

// ============================================================================
// Withdrawals
// ============================================================================

// sellAll has the buyer take the whole tka book with no fee, crediting the seller.
func (s *VaultTestSuite) sellAll() {
	s.zeroFee()
	s.listScenario()
	s.f.Fund(s.T(), s.buyer, sdk.NewCoin(tkb, tkbUnits("29.7")))
	_, err := s.keeper.BuyAtMaxPrice(s.ctx, s.buyer, s.vaultID, tka, tkbUnits("2"), tkbUnits("29.7"), nil, math.Int{})
	s.Require().NoError(err)
	s.requireInt(tkbUnits("29.7"), s.traderBalance(tkb, s.seller))
}

func (s *VaultTestSuite) TestWithdraw() {
	s.sellAll()

	paid, err := s.keeper.Withdraw(s.ctx, s.seller, s.vaultID, tkb, tkbUnits("10"))
	s.Require().NoError(err)
	s.requireInt(tkbUnits("10"), paid)
	s.requireInt(tkbUnits("10"), s.f.Balance(s.seller, tkb))
	s.requireInt(tkbUnits("19.7"), s.traderBalance(tkb, s.seller))

	_, err = s.keeper.Withdraw(s.ctx, s.seller, s.vaultID, tkb, tkbUnits("20"))
	s.Require().ErrorIs(err, types.ErrInsufficientBalance)

	// Zero withdraws everything.
	paid, err = s.keeper.Withdraw(s.ctx, s.seller, s.vaultID, tkb, math.ZeroInt())
	s.Require().NoError(err)
	s.requireInt(tkbUnits("19.7"), paid)
	s.Require().True(s.traderBalance(tkb, s.seller).IsZero())
	s.Require().True(s.f.Balance(s.keeper.GetModuleAddress(), tkb).IsZero())

	// Nothing left is not an error.
	paid, err = s.keeper.Withdraw(s.ctx, s.seller, s.vaultID, tkb, math.ZeroInt())
	s.Require().NoError(err)
	s.Require().True(paid.IsZero())
	s.requireInvariants()
}

func (s *VaultTestSuite) TestWithdrawFor() {
	s.sellAll()

	_, err := s.keeper.WithdrawFor(s.ctx, s.other, s.vaultID, tkb, s.seller, s.other, math.ZeroInt())
	s.Require().ErrorIs(err, types.ErrNotRouter)

	paid, err := s.keeper.WithdrawFor(s.ctx, keepertest.RouterAddr, s.vaultID, tkb, s.seller, s.other, tkbUnits("5"))
	s.Require().NoError(err)
	s.requireInt(tkbUnits("5"), paid)
	s.requireInt(tkbUnits("5"), s.f.Balance(s.other, tkb))
	s.requireInt(tkbUnits("24.7"), s.traderBalance(tkb, s.seller))
}

func (s *VaultTestSuite) TestTraderBalancesAcrossVaults() {
	s.sellAll()

	balances, err := s.keeper.TraderBalances(s.ctx, s.seller)
	s.Require().NoError(err)
	s.Require().Len(balances, 1)
	s.Require().Equal(tkb, balances[0].Token)
	s.requireInt(tkbUnits("29.7"), balances[0].Balance)

	balances, err = s.keeper.TraderBalances(s.ctx, s.buyer)
	s.Require().NoError(err)
	s.Require().Empty(balances)
}

// ============================================================================
// Pause
// ============================================================================

func (s *VaultTestSuite) TestPauseGatesTrading() {
	id := s.list(s.seller, tka, tkbUnits("1.5"), tkaUnits("2"))

	err := s.keeper.PauseTrading(s.ctx, s.other, s.vaultID)
	s.Require().ErrorIs(err, types.ErrNotAdmin)

	s.Require().NoError(s.keeper.PauseTrading(s.ctx, keepertest.AdminAddr, s.vaultID))
	paused, err := s.keeper.IsTradingPaused(s.ctx, s.vaultID)
	s.Require().NoError(err)
	s.Require().True(paused)

	err = s.keeper.PauseTrading(s.ctx, keepertest.AdminAddr, s.vaultID)
	s.Require().ErrorIs(err, types.ErrInvalidTransition)

	s.f.Fund(s.T(), s.seller, sdk.NewCoin(tka, tkaUnits("1")))
	_, err = s.keeper.NewOrder(s.ctx, s.seller, s.vaultID, tka, tkbUnits("1.5"), tkaUnits("1"), nil, 0)
	s.Require().ErrorIs(err, types.ErrTradingPaused)

	s.f.Fund(s.T(), s.buyer, sdk.NewCoin(tkb, tkbUnits("10")))
	_, err = s.keeper.BuyAtMaxPrice(s.ctx, s.buyer, s.vaultID, tka, tkbUnits("2"), tkbUnits("10"), nil, math.Int{})
	s.Require().ErrorIs(err, types.ErrTradingPaused)
	_, err = s.keeper.BuyAtAvgPrice(s.ctx, s.buyer, s.vaultID, tka, tkbUnits("2"), tkbUnits("10"), nil, math.Int{})
	s.Require().ErrorIs(err, types.ErrTradingPaused)
	_, err = s.keeper.ArbitrageTrade(s.ctx, s.buyer, s.vaultID, tka, tkaUnits("1"), tkaUnits("1"), nil, math.Int{})
	s.Require().ErrorIs(err, types.ErrTradingPaused)

	// Quotes, cancellation and withdrawal keep working.
	_, out, err := s.keeper.CostAtMaxPrice(s.ctx, s.vaultID, tka, tkaUnits("1"), tkbUnits("2"))
	s.Require().NoError(err)
	s.requireInt(tkaUnits("1"), out)
	_, err = s.keeper.CancelOrder(s.ctx, s.seller, s.vaultID, id, tkaUnits("1"), nil, math.Int{})
	s.Require().NoError(err)
	_, err = s.keeper.Withdraw(s.ctx, s.seller, s.vaultID, tkb, math.ZeroInt())
	s.Require().NoError(err)

	s.Require().NoError(s.keeper.ResumeTrading(s.ctx, keepertest.AdminAddr, s.vaultID))
	err = s.keeper.ResumeTrading(s.ctx, keepertest.AdminAddr, s.vaultID)
	s.Require().ErrorIs(err, types.ErrInvalidTransition)

	_, err = s.keeper.BuyAtMaxPrice(s.ctx, s.buyer, s.vaultID, tka, tkbUnits("2"), tkbUnits("10"), nil, math.Int{})
	s.Require().NoError(err)
	s.Require().Equal(1, s.countEvents(types.EventTypeTradingPaused))
	s.Require().Equal(1, s.countEvents(types.EventTypeTradingResumed))
}

// ============================================================================
// Fees
// ============================================================================

func (s *VaultTestSuite) TestSetFeePercentage() {
	half := math.NewInt(1_000_000_000_000_000)

	err := s.keeper.SetFeePercentage(s.ctx, s.other, s.vaultID, half)
	s.Require().ErrorIs(err, types.ErrNotAdmin)

	s.Require().NoError(s.keeper.SetFeePercentage(s.ctx, keepertest.AdminAddr, s.vaultID, half))
	fees, err := s.keeper.FeeModel(s.ctx, s.vaultID)
	s.Require().NoError(err)
	s.requireInt(half, fees.Percentage)

	err = s.keeper.SetFeePercentage(s.ctx, keepertest.AdminAddr, s.vaultID, types.DefaultFeePercentage)
	s.Require().ErrorIs(err, types.ErrFeeIncrease)

	// Setting the same fee again is allowed.
	s.Require().NoError(s.keeper.SetFeePercentage(s.ctx, keepertest.AdminAddr, s.vaultID, half))
	s.Require().Equal(2, s.countEvents(types.EventTypeFeeChanged))
}

func (s *VaultTestSuite) TestFeeQueries() {
	fee, err := s.keeper.FeeFor(s.ctx, s.vaultID, tkbUnits("10.7"))
	s.Require().NoError(err)
	s.requireInt(math.NewInt(21_442_885_771), fee)

	withFee, err := s.keeper.WithFee(s.ctx, s.vaultID, tkbUnits("10.7"))
	s.Require().NoError(err)
	s.requireInt(tkbUnits("10.7").Add(fee), withFee)

	feeOf, err := s.keeper.FeeOf(s.ctx, s.vaultID, tkbUnits("1000"))
	s.Require().NoError(err)
	s.requireInt(tkbUnits("2"), feeOf)

	withoutFee, err := s.keeper.WithoutFee(s.ctx, s.vaultID, tkbUnits("1000"))
	s.Require().NoError(err)
	s.requireInt(tkbUnits("998"), withoutFee)
}

// ============================================================================
// Params
// ============================================================================

func (s *VaultTestSuite) TestUpdateParams() {
	params, err := s.keeper.GetParams(s.ctx)
	s.Require().NoError(err)
	params.FeeReceiver = s.other.String()

	err = s.keeper.UpdateParams(s.ctx, keepertest.AdminAddr, params)
	s.Require().ErrorIs(err, types.ErrNotAdmin)

	s.Require().NoError(s.keeper.UpdateParams(s.ctx, s.f.Authority, params))
	got, err := s.keeper.GetParams(s.ctx)
	s.Require().NoError(err)
	s.Require().Equal(s.other.String(), got.FeeReceiver)

	// Fees of later trades go to the new receiver.
	s.list(s.seller, tka, tkbUnits("1"), tkaUnits("1"))
	s.f.Fund(s.T(), s.buyer, sdk.NewCoin(tkb, tkbUnits("2")))
	res, err := s.keeper.BuyAtMaxPrice(s.ctx, s.buyer, s.vaultID, tka, tkbUnits("1"), tkbUnits("2"), nil, math.Int{})
	s.Require().NoError(err)
	s.requireInt(res.Fee, s.f.Balance(s.other, tkb))
}
