package keeper_test

import (
	"encoding/json"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	keepertest "github.com/paw-chain/vaultbook/testutil/keeper"
	"github.com/paw-chain/vaultbook/x/vault/keeper"
	"github.com/paw-chain/vaultbook/x/vault/types"
)

func (s *VaultTestSuite) TestGenesisRoundTrip() {
	s.listScenario()
	s.list(s.other, tkb, tkaUnits("0.7"), tkbUnits("3"))
	s.Require().NoError(s.keeper.Approve(s.ctx, s.seller, s.vaultID, s.buyer, 2))
	s.Require().NoError(s.keeper.SetApprovalForAll(s.ctx, s.other, s.vaultID, s.seller, true))
	s.f.Fund(s.T(), s.buyer, sdk.NewCoin(tkb, tkbUnits("7.45")))
	_, err := s.keeper.BuyAtMaxPrice(s.ctx, s.buyer, s.vaultID, tka, tkbUnits("1.3"), tkbUnits("7.45"), nil, math.Int{})
	s.Require().NoError(err)
	s.Require().NoError(s.keeper.PauseTrading(s.ctx, keepertest.AdminAddr, s.vaultID))

	exported, err := s.keeper.ExportGenesis(s.ctx)
	s.Require().NoError(err)
	s.Require().NoError(exported.Validate())
	s.Require().Len(exported.Vaults, 1)
	s.Require().Len(exported.Vaults[0].Orders, 8)
	s.Require().Len(exported.Vaults[0].Operators, 1)

	fresh := keepertest.NewVaultFixture(s.T())
	s.Require().NoError(fresh.Keeper.InitGenesis(fresh.Ctx, *exported))

	reexported, err := fresh.Keeper.ExportGenesis(fresh.Ctx)
	s.Require().NoError(err)
	want, err := json.Marshal(exported)
	s.Require().NoError(err)
	got, err := json.Marshal(reexported)
	s.Require().NoError(err)
	s.Require().JSONEq(string(want), string(got))

	// Books, aggregates and ownership come back intact.
	orders, err := fresh.Keeper.OrdersPage(fresh.Ctx, s.vaultID, tka, 0, 100)
	s.Require().NoError(err)
	s.Require().Equal(uint64(1), orders[0].ID)
	approved, err := fresh.Keeper.GetApproved(fresh.Ctx, s.vaultID, 2)
	s.Require().NoError(err)
	s.Require().Equal(s.buyer, approved)
	s.Require().True(fresh.Keeper.IsApprovedForAll(fresh.Ctx, s.vaultID, s.other, s.seller))
	paused, err := fresh.Keeper.IsTradingPaused(fresh.Ctx, s.vaultID)
	s.Require().NoError(err)
	s.Require().True(paused)

	msg, broken := keeper.SortedBooksInvariant(*fresh.Keeper)(fresh.Ctx)
	s.Require().False(broken, msg)
	msg, broken = keeper.PricePointsInvariant(*fresh.Keeper)(fresh.Ctx)
	s.Require().False(broken, msg)

	// A new order continues the id sequence.
	s.Require().NoError(fresh.Keeper.ResumeTrading(fresh.Ctx, keepertest.AdminAddr, s.vaultID))
	fresh.Fund(s.T(), s.seller, sdk.NewCoin(tka, tkaUnits("1")))
	id, err := fresh.Keeper.NewOrder(fresh.Ctx, s.seller, s.vaultID, tka, tkbUnits("1"), tkaUnits("1"), nil, 0)
	s.Require().NoError(err)
	s.Require().Equal(uint64(10), id)
}

func (s *VaultTestSuite) TestInitGenesisRejectsInvalid() {
	gs := types.DefaultGenesis()
	gs.NextVaultID = 0

	fresh := keepertest.NewVaultFixture(s.T())
	s.Require().Error(fresh.Keeper.InitGenesis(fresh.Ctx, *gs))
}

func (s *VaultTestSuite) TestDefaultGenesis() {
	fresh := keepertest.NewVaultFixture(s.T())
	s.Require().NoError(fresh.Keeper.InitGenesis(fresh.Ctx, *types.DefaultGenesis()))

	exported, err := fresh.Keeper.ExportGenesis(fresh.Ctx)
	s.Require().NoError(err)
	s.Require().Empty(exported.Vaults)
	s.Require().Equal(uint64(1), exported.NextVaultID)
}
