package api

import (
	"fmt"
	"net/http"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/gin-gonic/gin"

	"github.com/paw-chain/vaultbook/x/vault/types"
)

// handleGetTraderBalance returns the withdrawable balance of a trader
func (s *Server) handleGetTraderBalance(c *gin.Context) {
	vaultID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var p requestParser
	trader := p.address("trader", c.Param("trader"))
	token := p.denom("token", c.Param("token"))
	if !p.ok(c) {
		return
	}

	resp := TraderBalanceResponse{Trader: trader.String(), Token: token}
	err := s.query(func(ctx sdk.Context) error {
		var err error
		resp.Balance, err = s.ledger.VaultKeeper.TraderBalance(ctx, vaultID, token, trader)
		return err
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// handleWithdraw pays out the caller's withdrawable balance
func (s *Server) handleWithdraw(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	vaultID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req WithdrawRequest
	if err := ValidateAndBindJSON(c, &req); err != nil {
		writeBadRequest(c, "INVALID_REQUEST", err)
		return
	}
	var p requestParser
	token := p.denom("token", req.Token)
	amount := p.optionalAmount("amount", req.Amount)
	if !p.ok(c) {
		return
	}

	var paid math.Int
	block, err := s.deliver(c, "withdraw", func(ctx sdk.Context) error {
		var err error
		paid, err = s.ledger.VaultKeeper.Withdraw(ctx, caller, vaultID, token, amount)
		return err
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, WithdrawResponse{Paid: paid, Height: block.Height})
}

// handleWithdrawFor pays out a trader's balance on behalf of the vault router
func (s *Server) handleWithdrawFor(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	vaultID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req WithdrawForRequest
	if err := ValidateAndBindJSON(c, &req); err != nil {
		writeBadRequest(c, "INVALID_REQUEST", err)
		return
	}
	var p requestParser
	token := p.denom("token", req.Token)
	trader := p.address("trader", req.Trader)
	receiver := p.address("receiver", req.Receiver)
	amount := p.optionalAmount("amount", req.Amount)
	if !p.ok(c) {
		return
	}

	var paid math.Int
	block, err := s.deliver(c, "withdraw_for", func(ctx sdk.Context) error {
		var err error
		paid, err = s.ledger.VaultKeeper.WithdrawFor(ctx, caller, vaultID, token, trader, receiver, amount)
		return err
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, WithdrawResponse{Paid: paid, Height: block.Height})
}

// handleGetAccount returns the bank balances, withdrawable balances and open
// orders of an address across all vaults
func (s *Server) handleGetAccount(c *gin.Context) {
	var p requestParser
	addr := p.address("address", c.Param("address"))
	if !p.ok(c) {
		return
	}

	resp := AccountResponse{Address: addr.String()}
	err := s.query(func(ctx sdk.Context) error {
		resp.Bank = s.ledger.BankKeeper.GetAllBalances(ctx, addr)
		var err error
		if resp.TraderBalances, err = s.ledger.VaultKeeper.TraderBalances(ctx, addr); err != nil {
			return err
		}
		resp.OpenOrders, err = s.ledger.VaultKeeper.OpenOrdersOf(ctx, addr)
		return err
	})
	if err != nil {
		writeError(c, err)
		return
	}
	if resp.Bank == nil {
		resp.Bank = sdk.Coins{}
	}
	if resp.TraderBalances == nil {
		resp.TraderBalances = []types.VaultBalance{}
	}
	if resp.OpenOrders == nil {
		resp.OpenOrders = []types.VaultOrder{}
	}

	c.JSON(http.StatusOK, resp)
}

// handleFaucet mints registered test tokens to an address
func (s *Server) handleFaucet(c *gin.Context) {
	var req FaucetRequest
	if err := ValidateAndBindJSON(c, &req); err != nil {
		s.metrics.FaucetRequests.WithLabelValues("invalid").Inc()
		writeBadRequest(c, "INVALID_REQUEST", err)
		return
	}
	var p requestParser
	to := p.address("address", req.Address)
	coins := make(sdk.Coins, 0, len(req.Coins))
	for i, in := range req.Coins {
		field := fmt.Sprintf("coins[%d]", i)
		denom := p.denom(field+".denom", in.Denom)
		amount := p.amount(field+".amount", in.Amount)
		switch {
		case amount.IsZero():
			p.errs.Add(field+".amount", "amount must be positive")
		case amount.GT(s.faucetMax):
			p.errs.Add(field+".amount", fmt.Sprintf("amount above faucet limit %s", s.faucetMax))
		}
		coins = append(coins, sdk.Coin{Denom: denom, Amount: amount})
	}
	if !p.errs.HasErrors() {
		coins = coins.Sort()
		if err := coins.Validate(); err != nil {
			p.errs.Add("coins", err.Error())
		}
	}
	if !p.ok(c) {
		s.metrics.FaucetRequests.WithLabelValues("invalid").Inc()
		return
	}

	block, err := s.ledger.Faucet(c.Request.Context(), to, coins)
	s.auditLogger.LogOperation(c, "faucet", block.Height, err)
	if err != nil {
		s.metrics.FaucetRequests.WithLabelValues("rejected").Inc()
		writeError(c, err)
		return
	}
	s.metrics.FaucetRequests.WithLabelValues("success").Inc()

	c.JSON(http.StatusOK, FaucetResponse{Address: to.String(), Coins: coins, Height: block.Height})
}
