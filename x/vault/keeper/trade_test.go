package keeper_test

import (
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	keepertest "github.com/paw-chain/vaultbook/testutil/keeper"
	"github.com/paw-chain/vaultbook/x/vault/types"
)

// ============================================================================
// BuyAtMaxPrice
// ============================================================================

func (s *VaultTestSuite) TestBuyAtMaxPrice_DefaultFee() {
	s.listScenario()
	s.f.Fund(s.T(), s.buyer, sdk.NewCoin(tkb, tkbUnits("21.4")))

	res, err := s.keeper.BuyAtMaxPrice(s.ctx, s.buyer, s.vaultID, tka, tkbUnits("1.3"), tkbUnits("21.4"), nil, math.Int{})
	s.Require().NoError(err)
	s.requireInt(tkaUnits("8.5"), res.AmountOut)
	s.requireInt(tkbUnits("10.7"), res.AmountIn)
	s.requireInt(math.NewInt(21_442_885_771), res.Fee)
	s.Require().Len(res.Fills, 2)
	s.Require().Equal(uint64(8), res.Fills[0].OrderID)
	s.Require().True(res.Fills[0].Removed)
	s.Require().Equal(uint64(1), res.Fills[1].OrderID)

	s.requireInt(tkaUnits("8.5"), s.f.Balance(s.buyer, tka))
	s.requireInt(tkbUnits("21.4").Sub(res.TotalIn()), s.f.Balance(s.buyer, tkb))
	s.requireInt(res.Fee, s.f.Balance(keepertest.FeeReceiverAddr, tkb))
	s.requireInt(tkbUnits("10.7"), s.traderBalance(tkb, s.seller))
	s.requireInt(tkbUnits("10.7"), s.f.Balance(s.keeper.GetModuleAddress(), tkb))

	s.Require().Equal([]uint64{7, 3, 5, 2, 6, 4}, s.bookIDs(tka))
	s.Require().Equal(uint64(6), s.keeper.OrderCountOf(s.ctx, s.vaultID, s.seller))

	vol, err := s.keeper.Volume(s.ctx, s.vaultID, tka, tkbUnits("1.2"))
	s.Require().NoError(err)
	s.requireInt(tkaUnits("3.5"), vol)
	totalVol, err := s.keeper.TotalVolume(s.ctx, s.vaultID, tka)
	s.Require().NoError(err)
	s.requireInt(tkaUnits("8.5"), totalVol)

	s.Require().Equal(1, s.countEvents(types.EventTypeTrade))
	s.Require().Equal(2, s.countEvents(types.EventTypeOrderFilled))
	s.requireInvariants()
}

func (s *VaultTestSuite) TestBuyAtMaxPrice_Partial() {
	s.zeroFee()
	s.listScenario()
	s.f.Fund(s.T(), s.buyer, sdk.NewCoin(tkb, tkbUnits("7.45")))

	res, err := s.keeper.BuyAtMaxPrice(s.ctx, s.buyer, s.vaultID, tka, tkbUnits("1.3"), tkbUnits("7.45"), nil, math.Int{})
	s.Require().NoError(err)
	s.requireInt(tkaUnits("6"), res.AmountOut)
	s.requireInt(tkbUnits("7.45"), res.AmountIn)
	s.Require().True(res.Fee.IsZero())
	s.Require().False(res.Fills[1].Removed)

	s.requireInt(tkaUnits("2.5"), s.orderAmount(1))
	s.Require().Equal([]uint64{1, 7, 3, 5, 2, 6, 4}, s.bookIDs(tka))
	s.Require().True(s.f.Balance(s.buyer, tkb).IsZero())
	s.requireInvariants()
}

func (s *VaultTestSuite) TestBuyAtMaxPrice_Receiver() {
	s.listScenario()
	s.f.Fund(s.T(), s.buyer, sdk.NewCoin(tkb, tkbUnits("10")))

	res, err := s.keeper.BuyAtMaxPrice(s.ctx, s.buyer, s.vaultID, tka, tkbUnits("1.2"), tkbUnits("10"), s.other, tkaUnits("3.5"))
	s.Require().NoError(err)
	s.requireInt(tkaUnits("3.5"), res.AmountOut)
	s.requireInt(tkaUnits("3.5"), s.f.Balance(s.other, tka))
	s.Require().True(s.f.Balance(s.buyer, tka).IsZero())
}

func (s *VaultTestSuite) TestBuy_MinAmountOutLeavesNoTrace() {
	s.listScenario()
	s.f.Fund(s.T(), s.buyer, sdk.NewCoin(tkb, tkbUnits("21.4")))
	eventsBefore := len(s.ctx.EventManager().Events())

	_, err := s.keeper.BuyAtMaxPrice(s.ctx, s.buyer, s.vaultID, tka, tkbUnits("1.3"), tkbUnits("21.4"), nil, tkaUnits("9"))
	s.Require().ErrorIs(err, types.ErrInsufficientOutput)
	s.Require().Equal(types.ClassBounds, types.Classify(err))

	s.Require().Len(s.ctx.EventManager().Events(), eventsBefore)
	s.Require().Equal([]uint64{8, 1, 7, 3, 5, 2, 6, 4}, s.bookIDs(tka))
	s.requireInt(tkbUnits("21.4"), s.f.Balance(s.buyer, tkb))
	s.Require().True(s.traderBalance(tkb, s.seller).IsZero())
	totalVol, err := s.keeper.TotalVolume(s.ctx, s.vaultID, tka)
	s.Require().NoError(err)
	s.Require().True(totalVol.IsZero())
}

func (s *VaultTestSuite) TestBuy_InsufficientFundsRollsBack() {
	s.listScenario()
	s.f.Fund(s.T(), s.buyer, sdk.NewCoin(tkb, tkbUnits("5")))

	_, err := s.keeper.BuyAtMaxPrice(s.ctx, s.buyer, s.vaultID, tka, tkbUnits("1.3"), tkbUnits("21.4"), nil, math.Int{})
	s.Require().ErrorIs(err, types.ErrTransferFailed)
	s.Require().Equal([]uint64{8, 1, 7, 3, 5, 2, 6, 4}, s.bookIDs(tka))
	s.Require().True(s.traderBalance(tkb, s.seller).IsZero())
	s.requireInt(tkbUnits("5"), s.f.Balance(s.buyer, tkb))
	s.requireInvariants()
}

func (s *VaultTestSuite) TestBuy_EmptyBook() {
	s.f.Fund(s.T(), s.buyer, sdk.NewCoin(tkb, tkbUnits("1")))
	res, err := s.keeper.BuyAtMaxPrice(s.ctx, s.buyer, s.vaultID, tka, tkbUnits("2"), tkbUnits("1"), nil, math.Int{})
	s.Require().NoError(err)
	s.Require().True(res.AmountOut.IsZero())
	s.Require().True(res.TotalIn().IsZero())
	s.requireInt(tkbUnits("1"), s.f.Balance(s.buyer, tkb))
}

func (s *VaultTestSuite) TestBuy_InvalidMaxAmountIn() {
	s.listScenario()
	_, err := s.keeper.BuyAtMaxPrice(s.ctx, s.buyer, s.vaultID, tka, tkbUnits("2"), math.ZeroInt(), nil, math.Int{})
	s.Require().ErrorIs(err, types.ErrInvalidAmount)
}

func (s *VaultTestSuite) TestBuy_FeeNeverExceedsBudget() {
	s.listScenario()
	s.f.Fund(s.T(), s.buyer, sdk.NewCoin(tkb, tkbUnits("7.45")))

	res, err := s.keeper.BuyAtMaxPrice(s.ctx, s.buyer, s.vaultID, tka, tkbUnits("1.3"), tkbUnits("7.45"), nil, math.Int{})
	s.Require().NoError(err)
	s.Require().True(res.TotalIn().LTE(tkbUnits("7.45")))
	s.Require().True(res.Fee.IsPositive())
	s.requireInt(tkbUnits("7.45").Sub(res.TotalIn()), s.f.Balance(s.buyer, tkb))
}

// ============================================================================
// BuyAtAvgPrice
// ============================================================================

func (s *VaultTestSuite) TestBuyAtAvgPrice() {
	s.zeroFee()
	s.listScenario()
	s.f.Fund(s.T(), s.buyer, sdk.NewCoin(tkb, tkbUnits("100")))

	res, err := s.keeper.BuyAtAvgPrice(s.ctx, s.buyer, s.vaultID, tka, tkbUnits("1.3"), tkbUnits("100"), nil, math.Int{})
	s.Require().NoError(err)
	s.requireInt(tkbUnits("14.625"), res.AmountIn)
	s.requireInt(tkaUnits("11.25"), res.AmountOut)

	s.requireInt(tkaUnits("1.25"), s.orderAmount(5))
	s.Require().Equal([]uint64{5, 2, 6, 4}, s.bookIDs(tka))
	s.requireInt(tkbUnits("85.375"), s.f.Balance(s.buyer, tkb))
	s.requireInvariants()
}

// ============================================================================
// Beneficiaries
// ============================================================================

func (s *VaultTestSuite) TestFillsPayBeneficiaryNotOwner() {
	s.zeroFee()
	s.f.Fund(s.T(), s.seller, sdk.NewCoin(tka, tkaUnits("2")))
	id, err := s.keeper.NewOrder(s.ctx, s.seller, s.vaultID, tka, tkbUnits("1.5"), tkaUnits("2"), s.other, 0)
	s.Require().NoError(err)

	// Ownership moves; the beneficiary stays.
	s.Require().NoError(s.keeper.TransferOrder(s.ctx, s.seller, s.vaultID, s.buyer, id))

	s.f.Fund(s.T(), s.buyer, sdk.NewCoin(tkb, tkbUnits("3")))
	_, err = s.keeper.BuyAtMaxPrice(s.ctx, s.buyer, s.vaultID, tka, tkbUnits("1.5"), tkbUnits("3"), nil, math.Int{})
	s.Require().NoError(err)

	s.requireInt(tkbUnits("3"), s.traderBalance(tkb, s.other))
	s.Require().True(s.traderBalance(tkb, s.seller).IsZero())
	s.Require().True(s.traderBalance(tkb, s.buyer).IsZero())
}
