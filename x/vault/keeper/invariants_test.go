package keeper_test

import (
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/paw-chain/vaultbook/x/vault/keeper"
	"github.com/paw-chain/vaultbook/x/vault/types"
)

func (s *VaultTestSuite) TestInvariantsDetectBrokenLinks() {
	s.listScenario()
	s.requireInvariants()

	// Point the head at an order in the middle of the book.
	s.ctx.KVStore(s.f.StoreKey).Set(types.GetBookHeadKey(s.vaultID, types.Side0), sdk.Uint64ToBigEndian(3))

	_, broken := keeper.SortedBooksInvariant(*s.keeper)(s.ctx)
	s.Require().True(broken)
}

func (s *VaultTestSuite) TestInvariantsDetectStaleAggregates() {
	s.listScenario()

	bz, err := tkaUnits("7").Marshal()
	s.Require().NoError(err)
	s.ctx.KVStore(s.f.StoreKey).Set(types.GetPricePointKey(s.vaultID, types.Side0, tkbUnits("1.5")), bz)

	_, broken := keeper.PricePointsInvariant(*s.keeper)(s.ctx)
	s.Require().True(broken)
}

func (s *VaultTestSuite) TestInvariantsDetectInsolvency() {
	s.listScenario()

	// Drain the escrow behind the keeper's back.
	module := s.keeper.GetModuleAddress()
	err := s.f.BankKeeper.SendCoins(s.ctx, module, s.other, sdk.NewCoins(sdk.NewCoin(tka, math.OneInt())))
	s.Require().NoError(err)

	_, broken := keeper.EscrowSolvencyInvariant(*s.keeper)(s.ctx)
	s.Require().True(broken)
	_, broken = keeper.AllInvariants(*s.keeper)(s.ctx)
	s.Require().True(broken)
}
