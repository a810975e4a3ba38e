package keeper_test

import (
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/paw-chain/vaultbook/x/vault/types"
)

// ============================================================================
// Book ordering
// ============================================================================

func (s *VaultTestSuite) TestBookOrdering() {
	s.listScenario()

	s.Require().Equal([]uint64{8, 1, 7, 3, 5, 2, 6, 4}, s.bookIDs(tka))
	s.Require().Empty(s.bookIDs(tkb))

	first, err := s.keeper.FirstOrder(s.ctx, s.vaultID, tka)
	s.Require().NoError(err)
	s.Require().Equal(uint64(8), first)
	last, err := s.keeper.LastOrder(s.ctx, s.vaultID, tka)
	s.Require().NoError(err)
	s.Require().Equal(uint64(4), last)

	prices, err := s.keeper.Prices(s.ctx, s.vaultID, tka, 0, 100)
	s.Require().NoError(err)
	s.Require().Len(prices, 6)
	for i, want := range []string{"1.2", "1.3", "1.4", "1.5", "1.6", "1.7"} {
		s.requireInt(tkbUnits(want), prices[i])
	}

	liq, err := s.keeper.Liquidity(s.ctx, s.vaultID, tka, tkbUnits("1.5"))
	s.Require().NoError(err)
	s.requireInt(tkaUnits("2"), liq)

	total, err := s.keeper.TotalLiquidity(s.ctx, s.vaultID, tka)
	s.Require().NoError(err)
	s.requireInt(tkaUnits("20.5"), total)

	s.requireInt(tkaUnits("20.5"), s.f.Balance(s.keeper.GetModuleAddress(), tka))
	s.requireInvariants()
}

func (s *VaultTestSuite) TestBookPaging() {
	s.listScenario()

	page, err := s.keeper.OrdersPage(s.ctx, s.vaultID, tka, 2, 3)
	s.Require().NoError(err)
	s.Require().Len(page, 3)
	s.Require().Equal(uint64(7), page[0].ID)
	s.Require().Equal(uint64(3), page[1].ID)
	s.Require().Equal(uint64(5), page[2].ID)

	page, err = s.keeper.OrdersPage(s.ctx, s.vaultID, tka, 7, 10)
	s.Require().NoError(err)
	s.Require().Len(page, 1)
	s.Require().Equal(uint64(4), page[0].ID)

	page, err = s.keeper.OrdersPage(s.ctx, s.vaultID, tka, 20, 10)
	s.Require().NoError(err)
	s.Require().Empty(page)

	prices, err := s.keeper.Prices(s.ctx, s.vaultID, tka, 4, 10)
	s.Require().NoError(err)
	s.Require().Len(prices, 2)
	s.requireInt(tkbUnits("1.6"), prices[0])
}

func (s *VaultTestSuite) TestInsertWithHint() {
	s.listScenario()
	s.f.Fund(s.T(), s.seller, sdk.NewCoin(tka, tkaUnits("3")))

	// A good hint, a hint from the wrong place and a hint that does not exist all
	// land the order in the same slot: after the last order at its price.
	for _, hint := range []uint64{5, 4, 999} {
		_, err := s.keeper.NewOrder(s.ctx, s.seller, s.vaultID, tka, tkbUnits("1.5"), tkaUnits("1"), nil, hint)
		s.Require().NoError(err)
	}
	s.Require().Equal([]uint64{8, 1, 7, 3, 5, 9, 10, 11, 2, 6, 4}, s.bookIDs(tka))

	liq, err := s.keeper.Liquidity(s.ctx, s.vaultID, tka, tkbUnits("1.5"))
	s.Require().NoError(err)
	s.requireInt(tkaUnits("5"), liq)
	s.requireInvariants()
}

func (s *VaultTestSuite) TestInsertAtEnds() {
	s.listScenario()
	low := s.list(s.seller, tka, tkbUnits("1.1"), tkaUnits("1"))
	high := s.list(s.seller, tka, tkbUnits("1.7"), tkaUnits("1"))

	ids := s.bookIDs(tka)
	s.Require().Equal(low, ids[0])
	s.Require().Equal(high, ids[len(ids)-1])
	s.requireInvariants()
}

// ============================================================================
// NewOrder
// ============================================================================

func (s *VaultTestSuite) TestNewOrder() {
	id := s.list(s.seller, tkb, tkaUnits("0.7"), tkbUnits("10"))
	s.Require().Equal(uint64(1), id)

	info, err := s.keeper.OrderInfo(s.ctx, s.vaultID, id)
	s.Require().NoError(err)
	s.Require().Equal(tkb, info.Token)
	s.Require().Equal(s.seller.String(), info.Owner)
	s.Require().Equal(s.seller.String(), info.Beneficiary)
	s.Require().Empty(info.Approved)
	s.requireInt(tkbUnits("10"), info.Amount)

	s.Require().True(s.f.Balance(s.seller, tkb).IsZero())
	s.requireInt(tkbUnits("10"), s.f.Balance(s.keeper.GetModuleAddress(), tkb))
	s.Require().Equal(1, s.countEvents(types.EventTypeOrderCreated))
}

func (s *VaultTestSuite) TestNewOrder_Beneficiary() {
	s.f.Fund(s.T(), s.seller, sdk.NewCoin(tka, tkaUnits("1")))
	id, err := s.keeper.NewOrder(s.ctx, s.seller, s.vaultID, tka, tkbUnits("1"), tkaUnits("1"), s.other, 0)
	s.Require().NoError(err)

	info, err := s.keeper.OrderInfo(s.ctx, s.vaultID, id)
	s.Require().NoError(err)
	s.Require().Equal(s.seller.String(), info.Owner)
	s.Require().Equal(s.other.String(), info.Beneficiary)
}

func (s *VaultTestSuite) TestNewOrder_Rejections() {
	s.f.Fund(s.T(), s.seller, sdk.NewCoin(tka, tkaUnits("1")))

	_, err := s.keeper.NewOrder(s.ctx, s.seller, s.vaultID, tka, math.ZeroInt(), tkaUnits("1"), nil, 0)
	s.Require().ErrorIs(err, types.ErrInvalidPrice)

	_, err = s.keeper.NewOrder(s.ctx, s.seller, s.vaultID, tka, tkbUnits("1"), math.ZeroInt(), nil, 0)
	s.Require().ErrorIs(err, types.ErrInvalidAmount)

	_, err = s.keeper.NewOrder(s.ctx, s.seller, s.vaultID, "tkz", tkbUnits("1"), tkaUnits("1"), nil, 0)
	s.Require().ErrorIs(err, types.ErrUnknownToken)

	// Not enough tokens to escrow: nothing is listed and the id is not consumed.
	_, err = s.keeper.NewOrder(s.ctx, s.seller, s.vaultID, tka, tkbUnits("1"), tkaUnits("2"), nil, 0)
	s.Require().ErrorIs(err, types.ErrTransferFailed)
	s.Require().Empty(s.bookIDs(tka))

	id, err := s.keeper.NewOrder(s.ctx, s.seller, s.vaultID, tka, tkbUnits("1"), tkaUnits("1"), nil, 0)
	s.Require().NoError(err)
	s.Require().Equal(uint64(1), id)
}

// ============================================================================
// CancelOrder
// ============================================================================

func (s *VaultTestSuite) TestCancelOrder_Full() {
	s.listScenario()

	refunded, err := s.keeper.CancelOrder(s.ctx, s.seller, s.vaultID, 3, math.ZeroInt(), nil, math.Int{})
	s.Require().NoError(err)
	s.requireInt(tkaUnits("0.5"), refunded)
	s.requireInt(tkaUnits("0.5"), s.f.Balance(s.seller, tka))

	s.Require().Equal([]uint64{8, 1, 7, 5, 2, 6, 4}, s.bookIDs(tka))
	_, err = s.keeper.OrderInfo(s.ctx, s.vaultID, 3)
	s.Require().ErrorIs(err, types.ErrOrderNotFound)
	s.Require().Equal(uint64(7), s.keeper.OrderCountOf(s.ctx, s.vaultID, s.seller))

	liq, err := s.keeper.Liquidity(s.ctx, s.vaultID, tka, tkbUnits("1.5"))
	s.Require().NoError(err)
	s.requireInt(tkaUnits("1.5"), liq)
	s.requireInvariants()
}

func (s *VaultTestSuite) TestCancelOrder_HeadAndTail() {
	s.listScenario()

	_, err := s.keeper.CancelOrder(s.ctx, s.seller, s.vaultID, 8, math.ZeroInt(), nil, math.Int{})
	s.Require().NoError(err)
	_, err = s.keeper.CancelOrder(s.ctx, s.seller, s.vaultID, 4, math.ZeroInt(), nil, math.Int{})
	s.Require().NoError(err)

	s.Require().Equal([]uint64{1, 7, 3, 5, 2, 6}, s.bookIDs(tka))
	prices, err := s.keeper.Prices(s.ctx, s.vaultID, tka, 0, 100)
	s.Require().NoError(err)
	s.Require().Len(prices, 4)
	s.requireInvariants()
}

func (s *VaultTestSuite) TestCancelOrder_Partial() {
	s.listScenario()

	refunded, err := s.keeper.CancelOrder(s.ctx, s.seller, s.vaultID, 1, tkaUnits("2"), s.other, tkaUnits("2"))
	s.Require().NoError(err)
	s.requireInt(tkaUnits("2"), refunded)
	s.requireInt(tkaUnits("2"), s.f.Balance(s.other, tka))
	s.requireInt(tkaUnits("3"), s.orderAmount(1))
	s.Require().Equal([]uint64{8, 1, 7, 3, 5, 2, 6, 4}, s.bookIDs(tka))

	total, err := s.keeper.TotalLiquidity(s.ctx, s.vaultID, tka)
	s.Require().NoError(err)
	s.requireInt(tkaUnits("18.5"), total)
	s.requireInvariants()
}

func (s *VaultTestSuite) TestCancelOrder_Bounds() {
	s.listScenario()

	_, err := s.keeper.CancelOrder(s.ctx, s.seller, s.vaultID, 1, tkaUnits("6"), nil, math.Int{})
	s.Require().ErrorIs(err, types.ErrInvalidAmount)

	_, err = s.keeper.CancelOrder(s.ctx, s.seller, s.vaultID, 1, tkaUnits("1"), nil, tkaUnits("2"))
	s.Require().ErrorIs(err, types.ErrInsufficientOutput)

	_, err = s.keeper.CancelOrder(s.ctx, s.seller, s.vaultID, 42, math.ZeroInt(), nil, math.Int{})
	s.Require().ErrorIs(err, types.ErrOrderNotFound)

	_, err = s.keeper.CancelOrder(s.ctx, s.other, s.vaultID, 1, math.ZeroInt(), nil, math.Int{})
	s.Require().ErrorIs(err, types.ErrNotAllowed)

	s.requireInt(tkaUnits("5"), s.orderAmount(1))
	s.Require().Zero(s.countEvents(types.EventTypeOrderCanceled))
}
