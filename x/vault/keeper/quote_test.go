package keeper_test

import (
	"cosmossdk.io/math"

	"github.com/paw-chain/vaultbook/x/vault/types"
)

// ============================================================================
// Price conversion
// ============================================================================

func (s *VaultTestSuite) TestCostAndReturnAtPrice() {
	cost, err := s.keeper.CostAtPrice(s.ctx, s.vaultID, tka, tkaUnits("2"), tkbUnits("1.5"))
	s.Require().NoError(err)
	s.requireInt(tkbUnits("3"), cost)

	ret, err := s.keeper.ReturnAtPrice(s.ctx, s.vaultID, tka, tkbUnits("3"), tkbUnits("1.5"))
	s.Require().NoError(err)
	s.requireInt(tkaUnits("2"), ret)

	_, err = s.keeper.ReturnAtPrice(s.ctx, s.vaultID, tka, tkbUnits("3"), math.ZeroInt())
	s.Require().ErrorIs(err, types.ErrInvalidPrice)
}

// ============================================================================
// Max price quotes
// ============================================================================

func (s *VaultTestSuite) TestCostAtMaxPrice() {
	s.listScenario()

	in, out, err := s.keeper.CostAtMaxPrice(s.ctx, s.vaultID, tka, tkaUnits("10"), tkbUnits("1.3"))
	s.Require().NoError(err)
	s.requireInt(tkbUnits("10.7"), in)
	s.requireInt(tkaUnits("8.5"), out)

	// Below the cheapest order nothing is available.
	in, out, err = s.keeper.CostAtMaxPrice(s.ctx, s.vaultID, tka, tkaUnits("10"), tkbUnits("1.1"))
	s.Require().NoError(err)
	s.Require().True(in.IsZero())
	s.Require().True(out.IsZero())

	// Without a binding price the amount limits the walk.
	in, out, err = s.keeper.CostAtMaxPrice(s.ctx, s.vaultID, tka, tkaUnits("4"), tkbUnits("9"))
	s.Require().NoError(err)
	s.requireInt(tkbUnits("4.85"), in) // 3.5*1.2 + 0.5*1.3
	s.requireInt(tkaUnits("4"), out)
}

func (s *VaultTestSuite) TestReturnAtMaxPrice() {
	s.listScenario()

	in, out, err := s.keeper.ReturnAtMaxPrice(s.ctx, s.vaultID, tka, tkbUnits("21.4"), tkbUnits("1.3"))
	s.Require().NoError(err)
	s.requireInt(tkbUnits("10.7"), in)
	s.requireInt(tkaUnits("8.5"), out)

	// The whole book costs 29.7.
	in, out, err = s.keeper.ReturnAtMaxPrice(s.ctx, s.vaultID, tka, tkbUnits("100"), tkbUnits("2"))
	s.Require().NoError(err)
	s.requireInt(tkbUnits("29.7"), in)
	s.requireInt(tkaUnits("20.5"), out)
}

func (s *VaultTestSuite) TestQuotesDoNotMutate() {
	s.listScenario()
	before := s.bookIDs(tka)

	_, _, err := s.keeper.ReturnAtMaxPrice(s.ctx, s.vaultID, tka, tkbUnits("100"), tkbUnits("2"))
	s.Require().NoError(err)
	_, _, err = s.keeper.CostAtAvgPrice(s.ctx, s.vaultID, tka, tkaUnits("100"), tkbUnits("2"))
	s.Require().NoError(err)

	s.Require().Equal(before, s.bookIDs(tka))
	s.requireInt(tkaUnits("5"), s.orderAmount(1))
}

func (s *VaultTestSuite) TestQuoteRejectsBadPrice() {
	s.listScenario()
	_, _, err := s.keeper.CostAtMaxPrice(s.ctx, s.vaultID, tka, tkaUnits("1"), math.ZeroInt())
	s.Require().ErrorIs(err, types.ErrInvalidPrice)
	_, _, err = s.keeper.ReturnAtAvgPrice(s.ctx, s.vaultID, tka, tkbUnits("1"), math.ZeroInt())
	s.Require().ErrorIs(err, types.ErrInvalidPrice)
}

// ============================================================================
// Average price quotes
// ============================================================================

func (s *VaultTestSuite) TestReturnAtAvgPrice() {
	s.zeroFee()
	s.listScenario()

	// 1.2 and 1.3 fully, 1.4 fully, the first 1.5 fully, then a quarter of the
	// second 1.5 brings the average to exactly 1.3.
	in, out, err := s.keeper.ReturnAtAvgPrice(s.ctx, s.vaultID, tka, tkbUnits("100"), tkbUnits("1.3"))
	s.Require().NoError(err)
	s.requireInt(tkbUnits("14.625"), in)
	s.requireInt(tkaUnits("11.25"), out)
}

func (s *VaultTestSuite) TestCostAtAvgPrice() {
	s.zeroFee()
	s.listScenario()

	in, out, err := s.keeper.CostAtAvgPrice(s.ctx, s.vaultID, tka, tkaUnits("10"), tkbUnits("1.3"))
	s.Require().NoError(err)
	s.requireInt(tkbUnits("12.8"), in)
	s.requireInt(tkaUnits("10"), out)
}

func (s *VaultTestSuite) TestAvgPriceIncludesFee() {
	s.listScenario()

	// With the default fee the same average admits less of the book.
	in, out, err := s.keeper.ReturnAtAvgPrice(s.ctx, s.vaultID, tka, tkbUnits("100"), tkbUnits("1.3"))
	s.Require().NoError(err)
	s.Require().True(out.LT(tkaUnits("11.25")))
	s.Require().True(out.GT(tkaUnits("8.5")))

	fee, err := s.keeper.FeeFor(s.ctx, s.vaultID, in)
	s.Require().NoError(err)
	// (in + fee) / out <= 1.3, compared in base units.
	lhs := in.Add(fee).Mul(types.Pow10(18))
	rhs := tkbUnits("1.3").Mul(out)
	s.Require().True(lhs.LTE(rhs.Add(tkbUnits("1.3"))), "avg exceeded: %s > %s", lhs, rhs)
}

func (s *VaultTestSuite) TestAvgPriceBelowBook() {
	s.listScenario()
	in, out, err := s.keeper.ReturnAtAvgPrice(s.ctx, s.vaultID, tka, tkbUnits("100"), tkbUnits("1"))
	s.Require().NoError(err)
	s.Require().True(in.IsZero())
	s.Require().True(out.IsZero())
}
