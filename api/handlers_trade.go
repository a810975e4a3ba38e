package api

import (
	"fmt"
	"net/http"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/gin-gonic/gin"

	"github.com/paw-chain/vaultbook/x/vault/types"
)

// Quote modes. cost_* take the amount to receive, return_* the amount to spend.
const (
	QuoteCostAt    = "cost_at"
	QuoteReturnAt  = "return_at"
	QuoteCostMax   = "cost_max"
	QuoteReturnMax = "return_max"
	QuoteCostAvg   = "cost_avg"
	QuoteReturnAvg = "return_avg"
)

var quoteModes = map[string]bool{
	QuoteCostAt: true, QuoteReturnAt: true,
	QuoteCostMax: true, QuoteReturnMax: true,
	QuoteCostAvg: true, QuoteReturnAvg: true,
}

// handleQuote prices a trade on the book selling :token without executing it
func (s *Server) handleQuote(c *gin.Context) {
	vaultID, ok := pathID(c, "id")
	if !ok {
		return
	}
	mode := c.DefaultQuery("mode", QuoteReturnMax)
	if !quoteModes[mode] {
		writeBadRequest(c, "INVALID_MODE", fmt.Errorf("unknown quote mode %q", mode))
		return
	}
	var p requestParser
	token := p.denom("token", c.Param("token"))
	amount := p.amount("amount", c.Query("amount"))
	price := p.amount("price", c.Query("price"))
	if !p.ok(c) {
		return
	}

	resp := QuoteResponse{Token: token, Mode: mode}
	err := s.query(func(ctx sdk.Context) error {
		k := s.ledger.VaultKeeper
		var err error
		switch mode {
		case QuoteCostAt:
			resp.AmountIn, err = k.CostAtPrice(ctx, vaultID, token, amount, price)
			resp.AmountOut = amount
		case QuoteReturnAt:
			resp.AmountOut, err = k.ReturnAtPrice(ctx, vaultID, token, amount, price)
			resp.AmountIn = amount
		case QuoteCostMax:
			resp.AmountIn, resp.AmountOut, err = k.CostAtMaxPrice(ctx, vaultID, token, amount, price)
		case QuoteReturnMax:
			resp.AmountIn, resp.AmountOut, err = k.ReturnAtMaxPrice(ctx, vaultID, token, amount, price)
		case QuoteCostAvg:
			resp.AmountIn, resp.AmountOut, err = k.CostAtAvgPrice(ctx, vaultID, token, amount, price)
		case QuoteReturnAvg:
			resp.AmountIn, resp.AmountOut, err = k.ReturnAtAvgPrice(ctx, vaultID, token, amount, price)
		}
		return err
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// handleBuy takes liquidity from the book selling the requested token
func (s *Server) handleBuy(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	vaultID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req BuyRequest
	if err := ValidateAndBindJSON(c, &req); err != nil {
		writeBadRequest(c, "INVALID_REQUEST", err)
		return
	}
	var p requestParser
	token := p.denom("token", req.Token)
	price := p.amount("price", req.Price)
	maxAmountIn := p.amount("max_amount_in", req.MaxAmountIn)
	receiver := p.optionalAddress("receiver", req.Receiver)
	minAmountOut := p.optionalAmount("min_amount_out", req.MinAmountOut)
	if !p.ok(c) {
		return
	}

	buy, op := s.ledger.VaultKeeper.BuyAtMaxPrice, "buy_max_price"
	if req.Mode == ModeAvgPrice {
		buy, op = s.ledger.VaultKeeper.BuyAtAvgPrice, "buy_avg_price"
	}

	var result types.TradeResult
	block, err := s.deliver(c, op, func(ctx sdk.Context) error {
		var err error
		result, err = buy(ctx, caller, vaultID, token, price, maxAmountIn, receiver, minAmountOut)
		return err
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, BuyResponse{Result: result, Height: block.Height})
}

// handleArbitrageQuote quotes a two-leg arbitrage earning :token
func (s *Server) handleArbitrageQuote(c *gin.Context) {
	vaultID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var p requestParser
	token := p.denom("token", c.Param("token"))
	maxAmountIn := p.amount("max_amount_in", c.Query("max_amount_in"))
	maxPrice := p.amount("max_price", c.Query("max_price"))
	if !p.ok(c) {
		return
	}

	var quote types.ArbitrageQuote
	err := s.query(func(ctx sdk.Context) error {
		var err error
		quote, err = s.ledger.VaultKeeper.ArbitrageAmountsOut(ctx, vaultID, token, maxAmountIn, maxPrice)
		return err
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, ArbitrageResponse{Quote: quote, Profit: quote.Profit(), Leftover: quote.Leftover()})
}

// handleArbitrage executes a self-funded arbitrage
func (s *Server) handleArbitrage(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	vaultID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req ArbitrageRequest
	if err := ValidateAndBindJSON(c, &req); err != nil {
		writeBadRequest(c, "INVALID_REQUEST", err)
		return
	}
	var p requestParser
	token := p.denom("token", req.Token)
	maxAmountIn := p.amount("max_amount_in", req.MaxAmountIn)
	maxPrice := p.amount("max_price", req.MaxPrice)
	receiver := p.optionalAddress("receiver", req.Receiver)
	minProfit := p.optionalAmount("min_profit", req.MinProfit)
	if !p.ok(c) {
		return
	}

	var quote types.ArbitrageQuote
	block, err := s.deliver(c, "arbitrage", func(ctx sdk.Context) error {
		var err error
		quote, err = s.ledger.VaultKeeper.ArbitrageTrade(ctx, caller, vaultID, token, maxAmountIn, maxPrice, receiver, minProfit)
		return err
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, ArbitrageResponse{
		Quote:    quote,
		Profit:   quote.Profit(),
		Leftover: quote.Leftover(),
		Height:   block.Height,
	})
}
