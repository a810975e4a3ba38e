package keeper_test

import (
	"cosmossdk.io/math"

	keepertest "github.com/paw-chain/vaultbook/testutil/keeper"
	"github.com/paw-chain/vaultbook/x/vault/types"
)

// ============================================================================
// Approvals and transfers
// ============================================================================

func (s *VaultTestSuite) TestApprove() {
	id := s.list(s.seller, tka, tkbUnits("1.5"), tkaUnits("2"))

	err := s.keeper.Approve(s.ctx, s.other, s.vaultID, s.buyer, id)
	s.Require().ErrorIs(err, types.ErrNotOwner)

	s.Require().NoError(s.keeper.Approve(s.ctx, s.seller, s.vaultID, s.buyer, id))
	approved, err := s.keeper.GetApproved(s.ctx, s.vaultID, id)
	s.Require().NoError(err)
	s.Require().Equal(s.buyer, approved)

	allowed, err := s.keeper.IsAllowed(s.ctx, s.vaultID, s.buyer, id)
	s.Require().NoError(err)
	s.Require().True(allowed)

	// The approved spender may cancel part of the order to itself.
	refunded, err := s.keeper.CancelOrder(s.ctx, s.buyer, s.vaultID, id, tkaUnits("1"), nil, math.Int{})
	s.Require().NoError(err)
	s.requireInt(tkaUnits("1"), refunded)
	s.requireInt(tkaUnits("1"), s.f.Balance(s.buyer, tka))

	// Clearing the approval revokes it.
	s.Require().NoError(s.keeper.Approve(s.ctx, s.seller, s.vaultID, nil, id))
	approved, err = s.keeper.GetApproved(s.ctx, s.vaultID, id)
	s.Require().NoError(err)
	s.Require().Nil(approved)
	_, err = s.keeper.CancelOrder(s.ctx, s.buyer, s.vaultID, id, math.ZeroInt(), nil, math.Int{})
	s.Require().ErrorIs(err, types.ErrNotAllowed)
}

func (s *VaultTestSuite) TestApprovalForAll() {
	first := s.list(s.seller, tka, tkbUnits("1.5"), tkaUnits("2"))
	second := s.list(s.seller, tkb, tkaUnits("0.7"), tkbUnits("5"))

	err := s.keeper.SetApprovalForAll(s.ctx, s.seller, s.vaultID, s.seller, true)
	s.Require().ErrorIs(err, types.ErrInvalidAddress)

	s.Require().NoError(s.keeper.SetApprovalForAll(s.ctx, s.seller, s.vaultID, s.other, true))
	s.Require().True(s.keeper.IsApprovedForAll(s.ctx, s.vaultID, s.seller, s.other))

	// An operator may approve on behalf of the owner and move any order.
	s.Require().NoError(s.keeper.Approve(s.ctx, s.other, s.vaultID, s.buyer, first))
	s.Require().NoError(s.keeper.TransferOrder(s.ctx, s.other, s.vaultID, s.other, second))
	owner, err := s.keeper.OwnerOf(s.ctx, s.vaultID, second)
	s.Require().NoError(err)
	s.Require().Equal(s.other, owner)

	s.Require().NoError(s.keeper.SetApprovalForAll(s.ctx, s.seller, s.vaultID, s.other, false))
	s.Require().False(s.keeper.IsApprovedForAll(s.ctx, s.vaultID, s.seller, s.other))
	_, err = s.keeper.CancelOrder(s.ctx, s.other, s.vaultID, first, math.ZeroInt(), nil, math.Int{})
	s.Require().ErrorIs(err, types.ErrNotAllowed)
}

func (s *VaultTestSuite) TestTransferOrder() {
	id := s.list(s.seller, tka, tkbUnits("1.5"), tkaUnits("2"))
	s.Require().NoError(s.keeper.Approve(s.ctx, s.seller, s.vaultID, s.other, id))

	err := s.keeper.TransferOrder(s.ctx, s.buyer, s.vaultID, s.buyer, id)
	s.Require().ErrorIs(err, types.ErrNotAllowed)
	s.Require().Equal(types.ClassAuthorization, types.Classify(err))

	s.Require().NoError(s.keeper.TransferOrder(s.ctx, s.seller, s.vaultID, s.buyer, id))
	owner, err := s.keeper.OwnerOf(s.ctx, s.vaultID, id)
	s.Require().NoError(err)
	s.Require().Equal(s.buyer, owner)

	// The transfer clears the single approval.
	approved, err := s.keeper.GetApproved(s.ctx, s.vaultID, id)
	s.Require().NoError(err)
	s.Require().Nil(approved)

	s.Require().Zero(s.keeper.OrderCountOf(s.ctx, s.vaultID, s.seller))
	s.Require().Equal([]uint64{id}, s.keeper.OrdersOf(s.ctx, s.vaultID, s.buyer))

	// The previous owner lost its rights, the new one has them.
	_, err = s.keeper.CancelOrder(s.ctx, s.seller, s.vaultID, id, math.ZeroInt(), nil, math.Int{})
	s.Require().ErrorIs(err, types.ErrNotAllowed)
	_, err = s.keeper.CancelOrder(s.ctx, s.buyer, s.vaultID, id, math.ZeroInt(), nil, math.Int{})
	s.Require().NoError(err)
	s.requireInt(tkaUnits("2"), s.f.Balance(s.buyer, tka))
	s.Require().Equal(1, s.countEvents(types.EventTypeOrderTransferred))
}

func (s *VaultTestSuite) TestTransferOrder_Rejections() {
	id := s.list(s.seller, tka, tkbUnits("1.5"), tkaUnits("2"))

	err := s.keeper.TransferOrder(s.ctx, s.seller, s.vaultID, nil, id)
	s.Require().ErrorIs(err, types.ErrInvalidAddress)

	err = s.keeper.TransferOrder(s.ctx, s.seller, s.vaultID, s.buyer, id+1)
	s.Require().ErrorIs(err, types.ErrOrderNotFound)
}

func (s *VaultTestSuite) TestRouterIsAllowedEverywhere() {
	id := s.list(s.seller, tka, tkbUnits("1.5"), tkaUnits("2"))

	allowed, err := s.keeper.IsAllowed(s.ctx, s.vaultID, keepertest.RouterAddr, id)
	s.Require().NoError(err)
	s.Require().True(allowed)

	refunded, err := s.keeper.CancelOrder(s.ctx, keepertest.RouterAddr, s.vaultID, id, math.ZeroInt(), s.seller, math.Int{})
	s.Require().NoError(err)
	s.requireInt(tkaUnits("2"), refunded)
	s.requireInt(tkaUnits("2"), s.f.Balance(s.seller, tka))
}

func (s *VaultTestSuite) TestOpenOrdersOf() {
	s.list(s.seller, tka, tkbUnits("1.5"), tkaUnits("2"))
	s.list(s.seller, tkb, tkaUnits("0.7"), tkbUnits("5"))
	s.list(s.other, tka, tkbUnits("1.6"), tkaUnits("1"))

	orders, err := s.keeper.OpenOrdersOf(s.ctx, s.seller)
	s.Require().NoError(err)
	s.Require().Len(orders, 2)
	for _, o := range orders {
		s.Require().Equal(s.vaultID, o.VaultID)
		s.Require().Equal(s.seller.String(), o.Owner)
	}
}
