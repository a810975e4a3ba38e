package keeper_test

import (
	"cosmossdk.io/math"

	keepertest "github.com/paw-chain/vaultbook/testutil/keeper"
	"github.com/paw-chain/vaultbook/x/vault/types"
)

// ============================================================================
// Arbitrage
// ============================================================================

// crossedBooks lists tkb at 0.5 tka (2 tkb per tka) from the seller and tka at
// 1.6 tkb from other, so buying tkb with tka and tka back with tkb earns tka.
func (s *VaultTestSuite) crossedBooks() {
	s.list(s.seller, tkb, tkaUnits("0.5"), tkbUnits("10"))
	s.list(s.other, tka, tkbUnits("1.6"), tkaUnits("10"))
}

func (s *VaultTestSuite) TestArbitrageAmountsOut() {
	s.crossedBooks()

	q, err := s.keeper.ArbitrageAmountsOut(s.ctx, s.vaultID, tka, tkaUnits("1"), tkaUnits("0.5"))
	s.Require().NoError(err)
	s.Require().Equal(tka, q.ProfitToken)
	s.requireInt(tkaUnits("1"), q.ProfitIn)
	s.requireInt(tkbUnits("1.996"), q.OtherOut)
	s.requireInt(tkaUnits("1.245005"), q.ProfitOut)
	s.requireInt(tkaUnits("0.002"), q.FirstLegFee)
	s.requireInt(math.NewInt(3_992_000_000), q.SecondLegFee)
	s.requireInt(tkaUnits("0.245005"), q.Profit())
	s.Require().True(q.Leftover().IsZero())

	// Quoting leaves the books alone.
	s.Require().Equal([]uint64{1}, s.bookIDs(tkb))
	s.requireInt(tkbUnits("10"), s.orderAmount(1))
}

func (s *VaultTestSuite) TestArbitrageTrade() {
	s.crossedBooks()
	module := s.keeper.GetModuleAddress()

	q, err := s.keeper.ArbitrageTrade(s.ctx, s.buyer, s.vaultID, tka, tkaUnits("1"), tkaUnits("0.5"), nil, tkaUnits("0.2"))
	s.Require().NoError(err)
	s.requireInt(tkaUnits("0.245005"), q.Profit())

	// Self funded: the caller brought nothing and leaves with the profit.
	s.requireInt(tkaUnits("0.245005"), s.f.Balance(s.buyer, tka))
	s.Require().True(s.f.Balance(s.buyer, tkb).IsZero())

	s.requireInt(tkaUnits("0.002"), s.f.Balance(keepertest.FeeReceiverAddr, tka))
	s.requireInt(math.NewInt(3_992_000_000), s.f.Balance(keepertest.FeeReceiverAddr, tkb))

	// Each beneficiary is credited the raw cost of its fill.
	s.requireInt(tkaUnits("0.998"), s.traderBalance(tka, s.seller))
	s.requireInt(tkbUnits("1.992008"), s.traderBalance(tkb, s.other))

	s.requireInt(tkbUnits("8.004"), s.orderAmount(1))
	s.requireInt(tkaUnits("8.754995"), s.orderAmount(2))
	s.requireInt(tkaUnits("9.752995"), s.f.Balance(module, tka))

	s.Require().Equal(1, s.countEvents(types.EventTypeArbitrage))
	s.Require().Equal(2, s.countEvents(types.EventTypeOrderFilled))
	s.requireInvariants()
}

func (s *VaultTestSuite) TestArbitrageTrade_MinProfit() {
	s.crossedBooks()

	_, err := s.keeper.ArbitrageTrade(s.ctx, s.buyer, s.vaultID, tka, tkaUnits("1"), tkaUnits("0.5"), nil, tkaUnits("0.3"))
	s.Require().ErrorIs(err, types.ErrInsufficientOutput)
	s.requireInt(tkbUnits("10"), s.orderAmount(1))
	s.Require().True(s.f.Balance(s.buyer, tka).IsZero())
}

func (s *VaultTestSuite) TestArbitrageTrade_Leftover() {
	s.zeroFee()
	s.list(s.seller, tkb, tkaUnits("0.5"), tkbUnits("10"))
	s.list(s.other, tka, tkbUnits("1"), tkaUnits("1.5"))

	q, err := s.keeper.ArbitrageTrade(s.ctx, s.buyer, s.vaultID, tka, tkaUnits("1"), tkaUnits("0.5"), s.other, math.Int{})
	s.Require().NoError(err)
	s.requireInt(tkbUnits("2"), q.OtherOut)
	s.requireInt(tkaUnits("1.5"), q.ProfitOut)
	s.requireInt(tkbUnits("0.5"), q.Leftover())

	// The receiver gets the profit and the unspent other token.
	s.requireInt(tkaUnits("0.5"), s.f.Balance(s.other, tka))
	s.requireInt(tkbUnits("0.5"), s.f.Balance(s.other, tkb))
	s.Require().Empty(s.bookIDs(tka))
	s.requireInvariants()
}

func (s *VaultTestSuite) TestArbitrageTrade_Breakeven() {
	s.zeroFee()
	s.list(s.seller, tkb, tkaUnits("0.5"), tkbUnits("10"))
	s.list(s.other, tka, tkbUnits("2"), tkaUnits("10"))

	q, err := s.keeper.ArbitrageAmountsOut(s.ctx, s.vaultID, tka, tkaUnits("1"), tkaUnits("0.5"))
	s.Require().NoError(err)
	s.requireInt(tkaUnits("1"), q.ProfitIn)
	s.requireInt(tkaUnits("1"), q.ProfitOut)

	_, err = s.keeper.ArbitrageTrade(s.ctx, s.buyer, s.vaultID, tka, tkaUnits("1"), tkaUnits("0.5"), nil, math.Int{})
	s.Require().ErrorIs(err, types.ErrNoProfit)
	s.Require().Zero(s.countEvents(types.EventTypeArbitrage))
}

func (s *VaultTestSuite) TestArbitrageTrade_NoCrossing() {
	s.list(s.seller, tkb, tkaUnits("0.8"), tkbUnits("10"))
	s.list(s.other, tka, tkbUnits("1.3"), tkaUnits("10"))

	// Nothing on the tkb book is priced at or below 0.7.
	q, err := s.keeper.ArbitrageAmountsOut(s.ctx, s.vaultID, tka, tkaUnits("1"), tkaUnits("0.7"))
	s.Require().NoError(err)
	s.Require().True(q.ProfitIn.IsZero())
	s.Require().True(q.ProfitOut.IsZero())

	_, err = s.keeper.ArbitrageTrade(s.ctx, s.buyer, s.vaultID, tka, tkaUnits("1"), tkaUnits("0.7"), nil, math.Int{})
	s.Require().ErrorIs(err, types.ErrNoProfit)
}

func (s *VaultTestSuite) TestArbitrageTrade_DeepBooks() {
	one := math.OneInt()
	for _, o := range []struct{ price, amount string }{
		{"1.3", ""}, {"1.3", "5"}, {"1.3", ""}, {"1.31", "5"}, {"1.32", "5"}, {"1.33", "8.5"}, {"1.5", "10"},
	} {
		amount := one
		if o.amount != "" {
			amount = tkaUnits(o.amount)
		}
		s.list(s.other, tka, tkbUnits(o.price), amount)
	}
	for _, o := range []struct{ price, amount string }{
		{"0.7", ""}, {"0.7", "10"}, {"0.7", ""}, {"0.71", "10"}, {"0.72", "10"}, {"0.73", "12.5"}, {"0.80", "10"},
	} {
		amount := one
		if o.amount != "" {
			amount = tkbUnits(o.amount)
		}
		s.list(s.seller, tkb, tkaUnits(o.price), amount)
	}

	q, err := s.keeper.ArbitrageTrade(s.ctx, s.buyer, s.vaultID, tka, tkaUnits("10"), tkaUnits("0.7"), nil, math.Int{})
	s.Require().NoError(err)
	s.Require().True(q.Profit().IsPositive())
	s.Require().True(q.ProfitIn.LTE(tkaUnits("10")))
	s.requireInt(q.Profit(), s.f.Balance(s.buyer, tka))

	// Only the 0.7 level of the tkb book was reachable.
	ids := s.bookIDs(tkb)
	s.Require().Len(ids, 4)
	s.requireInvariants()
}
