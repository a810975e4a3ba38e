package api

import (
	"net/http"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/gin-gonic/gin"

	"github.com/paw-chain/vaultbook/x/vault/types"
)

// handleNewOrder places a resting order, escrowing its amount from the caller
func (s *Server) handleNewOrder(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	vaultID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req NewOrderRequest
	if err := ValidateAndBindJSON(c, &req); err != nil {
		writeBadRequest(c, "INVALID_REQUEST", err)
		return
	}
	var p requestParser
	token := p.denom("token", req.Token)
	price := p.amount("price", req.Price)
	amount := p.amount("amount", req.Amount)
	beneficiary := p.optionalAddress("beneficiary", req.Beneficiary)
	if !p.ok(c) {
		return
	}

	var orderID uint64
	block, err := s.deliver(c, "new_order", func(ctx sdk.Context) error {
		var err error
		orderID, err = s.ledger.VaultKeeper.NewOrder(ctx, caller, vaultID, token, price, amount, beneficiary, req.Hint)
		return err
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewOrderResponse{OrderID: orderID, Height: block.Height})
}

// handleCancelOrder cancels all or part of an order
func (s *Server) handleCancelOrder(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	vaultID, ok := pathID(c, "id")
	if !ok {
		return
	}
	orderID, ok := pathID(c, "order_id")
	if !ok {
		return
	}
	var req CancelOrderRequest
	if c.Request.ContentLength != 0 {
		if err := ValidateAndBindJSON(c, &req); err != nil {
			writeBadRequest(c, "INVALID_REQUEST", err)
			return
		}
	}
	var p requestParser
	amount := p.optionalAmount("amount", req.Amount)
	receiver := p.optionalAddress("receiver", req.Receiver)
	minReturn := p.optionalAmount("min_return", req.MinReturn)
	if !p.ok(c) {
		return
	}

	var refunded math.Int
	block, err := s.deliver(c, "cancel_order", func(ctx sdk.Context) error {
		var err error
		refunded, err = s.ledger.VaultKeeper.CancelOrder(ctx, caller, vaultID, orderID, amount, receiver, minReturn)
		return err
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, CancelOrderResponse{Refunded: refunded, Height: block.Height})
}

// handleTransferOrder hands an order to a new owner
func (s *Server) handleTransferOrder(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	vaultID, ok := pathID(c, "id")
	if !ok {
		return
	}
	orderID, ok := pathID(c, "order_id")
	if !ok {
		return
	}
	var req TransferOrderRequest
	if err := ValidateAndBindJSON(c, &req); err != nil {
		writeBadRequest(c, "INVALID_REQUEST", err)
		return
	}
	var p requestParser
	to := p.address("to", req.To)
	if !p.ok(c) {
		return
	}

	block, err := s.deliver(c, "transfer_order", func(ctx sdk.Context) error {
		return s.ledger.VaultKeeper.TransferOrder(ctx, caller, vaultID, to, orderID)
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Success: true, Height: block.Height})
}

// handleApprove sets or clears the approved spender of an order
func (s *Server) handleApprove(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	vaultID, ok := pathID(c, "id")
	if !ok {
		return
	}
	orderID, ok := pathID(c, "order_id")
	if !ok {
		return
	}
	var req ApproveRequest
	if err := ValidateAndBindJSON(c, &req); err != nil {
		writeBadRequest(c, "INVALID_REQUEST", err)
		return
	}
	var p requestParser
	spender := p.optionalAddress("spender", req.Spender)
	if !p.ok(c) {
		return
	}

	block, err := s.deliver(c, "approve", func(ctx sdk.Context) error {
		return s.ledger.VaultKeeper.Approve(ctx, caller, vaultID, spender, orderID)
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Success: true, Height: block.Height})
}

// handleSetOperator grants or revokes operator rights over the caller's orders
func (s *Server) handleSetOperator(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	vaultID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req OperatorRequest
	if err := ValidateAndBindJSON(c, &req); err != nil {
		writeBadRequest(c, "INVALID_REQUEST", err)
		return
	}
	var p requestParser
	operator := p.address("operator", req.Operator)
	if !p.ok(c) {
		return
	}

	block, err := s.deliver(c, "set_approval_for_all", func(ctx sdk.Context) error {
		return s.ledger.VaultKeeper.SetApprovalForAll(ctx, caller, vaultID, operator, req.Approved)
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Success: true, Height: block.Height})
}

// handleGetOrder returns an order with its owner and approval
func (s *Server) handleGetOrder(c *gin.Context) {
	vaultID, ok := pathID(c, "id")
	if !ok {
		return
	}
	orderID, ok := pathID(c, "order_id")
	if !ok {
		return
	}

	var info types.OrderInfo
	err := s.query(func(ctx sdk.Context) error {
		var err error
		info, err = s.ledger.VaultKeeper.OrderInfo(ctx, vaultID, orderID)
		return err
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, info)
}

// handleGetOwnerOrders lists the order ids an address owns in a vault
func (s *Server) handleGetOwnerOrders(c *gin.Context) {
	vaultID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var p requestParser
	owner := p.address("owner", c.Param("owner"))
	if !p.ok(c) {
		return
	}

	resp := OwnerOrdersResponse{Owner: owner.String()}
	err := s.query(func(ctx sdk.Context) error {
		k := s.ledger.VaultKeeper
		if _, found := k.GetVault(ctx, vaultID); !found {
			return types.ErrVaultNotFound.Wrapf("vault %d", vaultID)
		}
		resp.Count = k.OrderCountOf(ctx, vaultID, owner)
		resp.Orders = k.OrdersOf(ctx, vaultID, owner)
		return nil
	})
	if err != nil {
		writeError(c, err)
		return
	}
	if resp.Orders == nil {
		resp.Orders = []uint64{}
	}

	c.JSON(http.StatusOK, resp)
}

// pageParams parses ?offset= and ?limit=
func pageParams(c *gin.Context) (offset, limit uint64, ok bool) {
	offset, err := ValidateOffset(c.Query("offset"))
	if err != nil {
		writeBadRequest(c, "INVALID_OFFSET", err)
		return 0, 0, false
	}
	return offset, uint64(ValidateLimit(c.Query("limit"), DefaultPageLimit, MaxPageLimit)), true
}

// handleGetBook returns one page of the book selling :token, best price first
func (s *Server) handleGetBook(c *gin.Context) {
	vaultID, ok := pathID(c, "id")
	if !ok {
		return
	}
	offset, limit, ok := pageParams(c)
	if !ok {
		return
	}
	token := c.Param("token")

	resp := BookResponse{Token: token}
	err := s.query(func(ctx sdk.Context) error {
		k := s.ledger.VaultKeeper
		var err error
		if resp.First, err = k.FirstOrder(ctx, vaultID, token); err != nil {
			return err
		}
		if resp.Last, err = k.LastOrder(ctx, vaultID, token); err != nil {
			return err
		}
		if resp.TotalLiquidity, err = k.TotalLiquidity(ctx, vaultID, token); err != nil {
			return err
		}
		if resp.TotalVolume, err = k.TotalVolume(ctx, vaultID, token); err != nil {
			return err
		}
		resp.Orders, err = k.OrdersPage(ctx, vaultID, token, offset, limit)
		return err
	})
	if err != nil {
		writeError(c, err)
		return
	}
	if resp.Orders == nil {
		resp.Orders = []types.Order{}
	}

	c.JSON(http.StatusOK, resp)
}

// handleGetPrices returns one page of the distinct prices of a book
func (s *Server) handleGetPrices(c *gin.Context) {
	vaultID, ok := pathID(c, "id")
	if !ok {
		return
	}
	offset, limit, ok := pageParams(c)
	if !ok {
		return
	}
	token := c.Param("token")

	resp := PricesResponse{Token: token}
	err := s.query(func(ctx sdk.Context) error {
		var err error
		resp.Prices, err = s.ledger.VaultKeeper.Prices(ctx, vaultID, token, offset, limit)
		return err
	})
	if err != nil {
		writeError(c, err)
		return
	}
	if resp.Prices == nil {
		resp.Prices = []math.Int{}
	}

	c.JSON(http.StatusOK, resp)
}

// handleGetLevel returns the resting liquidity and traded volume at ?price=
func (s *Server) handleGetLevel(c *gin.Context) {
	vaultID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var p requestParser
	price := p.amount("price", c.Query("price"))
	if !p.ok(c) {
		return
	}
	token := c.Param("token")

	resp := LevelResponse{Token: token, Price: price}
	err := s.query(func(ctx sdk.Context) error {
		k := s.ledger.VaultKeeper
		var err error
		if resp.Liquidity, err = k.Liquidity(ctx, vaultID, token, price); err != nil {
			return err
		}
		resp.Volume, err = k.Volume(ctx, vaultID, token, price)
		return err
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
