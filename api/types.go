package api

import (
	"time"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/paw-chain/vaultbook/x/vault/types"
)

// Amounts, prices and fees travel as decimal strings of base units.

// ==================== Directory Types ====================

// CreateVaultRequest opens a vault for a token pair
type CreateVaultRequest struct {
	TokenA string `json:"token_a" binding:"required"`
	TokenB string `json:"token_b" binding:"required"`
}

// VaultResponse wraps a vault record
type VaultResponse struct {
	Vault  types.Vault `json:"vault"`
	Height int64       `json:"height,omitempty"`
}

// VaultsResponse lists vaults
type VaultsResponse struct {
	Vaults []types.Vault `json:"vaults"`
	Count  int           `json:"count"`
}

// ==================== Order Types ====================

// NewOrderRequest places a resting limit order
type NewOrderRequest struct {
	Token       string `json:"token" binding:"required"`
	Price       string `json:"price" binding:"required"`
	Amount      string `json:"amount" binding:"required"`
	Beneficiary string `json:"beneficiary,omitempty"`
	Hint        uint64 `json:"hint,omitempty"`
}

// NewOrderResponse returns the id of a placed order
type NewOrderResponse struct {
	OrderID uint64 `json:"order_id"`
	Height  int64  `json:"height"`
}

// CancelOrderRequest cancels all or part of an order. An empty or zero
// amount cancels the whole order.
type CancelOrderRequest struct {
	Amount    string `json:"amount,omitempty"`
	Receiver  string `json:"receiver,omitempty"`
	MinReturn string `json:"min_return,omitempty"`
}

// CancelOrderResponse reports the refunded amount
type CancelOrderResponse struct {
	Refunded math.Int `json:"refunded"`
	Height   int64    `json:"height"`
}

// TransferOrderRequest moves order ownership
type TransferOrderRequest struct {
	To string `json:"to" binding:"required"`
}

// ApproveRequest sets the single approved spender of an order. An empty
// spender clears the approval.
type ApproveRequest struct {
	Spender string `json:"spender"`
}

// OperatorRequest grants or revokes a blanket operator
type OperatorRequest struct {
	Operator string `json:"operator" binding:"required"`
	Approved bool   `json:"approved"`
}

// BookResponse is one page of an order book
type BookResponse struct {
	Token          string        `json:"token"`
	First          uint64        `json:"first"`
	Last           uint64        `json:"last"`
	TotalLiquidity math.Int      `json:"total_liquidity"`
	TotalVolume    math.Int      `json:"total_volume"`
	Orders         []types.Order `json:"orders"`
}

// PricesResponse is one page of the distinct price levels of a book
type PricesResponse struct {
	Token  string     `json:"token"`
	Prices []math.Int `json:"prices"`
}

// LevelResponse is the liquidity and volume at one price
type LevelResponse struct {
	Token     string   `json:"token"`
	Price     math.Int `json:"price"`
	Liquidity math.Int `json:"liquidity"`
	Volume    math.Int `json:"volume"`
}

// OwnerOrdersResponse lists the orders of an owner in one vault
type OwnerOrdersResponse struct {
	Owner  string   `json:"owner"`
	Count  uint64   `json:"count"`
	Orders []uint64 `json:"orders"`
}

// ==================== Trading Types ====================

// Buy modes
const (
	ModeMaxPrice = "max_price"
	ModeAvgPrice = "avg_price"
)

// BuyRequest takes liquidity from a book
type BuyRequest struct {
	Token        string `json:"token" binding:"required"`
	Mode         string `json:"mode" binding:"required,oneof=max_price avg_price"`
	Price        string `json:"price" binding:"required"`
	MaxAmountIn  string `json:"max_amount_in" binding:"required"`
	Receiver     string `json:"receiver,omitempty"`
	MinAmountOut string `json:"min_amount_out,omitempty"`
}

// BuyResponse reports the outcome of a buy
type BuyResponse struct {
	Result types.TradeResult `json:"result"`
	Height int64             `json:"height"`
}

// QuoteResponse reports what a trade would cost and return
type QuoteResponse struct {
	Token     string   `json:"token"`
	Mode      string   `json:"mode"`
	AmountIn  math.Int `json:"amount_in"`
	AmountOut math.Int `json:"amount_out"`
}

// ArbitrageRequest runs a self-funded arbitrage across both books
type ArbitrageRequest struct {
	Token       string `json:"token" binding:"required"`
	MaxAmountIn string `json:"max_amount_in" binding:"required"`
	MaxPrice    string `json:"max_price" binding:"required"`
	Receiver    string `json:"receiver,omitempty"`
	MinProfit   string `json:"min_profit,omitempty"`
}

// ArbitrageResponse reports an arbitrage quote or outcome
type ArbitrageResponse struct {
	Quote    types.ArbitrageQuote `json:"quote"`
	Profit   math.Int             `json:"profit"`
	Leftover math.Int             `json:"leftover"`
	Height   int64                `json:"height,omitempty"`
}

// ==================== Fee Types ====================

// SetFeeRequest lowers the fee of a vault
type SetFeeRequest struct {
	FeePercentage string `json:"fee_percentage" binding:"required"`
}

// FeesResponse reports the fee model, and when an amount is given the fee
// arithmetic on it
type FeesResponse struct {
	FeePercentage math.Int  `json:"fee_percentage"`
	Amount        *math.Int `json:"amount,omitempty"`
	FeeOf         *math.Int `json:"fee_of,omitempty"`
	FeeFor        *math.Int `json:"fee_for,omitempty"`
	WithFee       *math.Int `json:"with_fee,omitempty"`
	WithoutFee    *math.Int `json:"without_fee,omitempty"`
}

// ==================== Balance Types ====================

// WithdrawRequest pays out a withdrawable balance. An empty or zero amount
// withdraws everything.
type WithdrawRequest struct {
	Token  string `json:"token" binding:"required"`
	Amount string `json:"amount,omitempty"`
}

// WithdrawForRequest pays out a trader balance on behalf of the router
type WithdrawForRequest struct {
	Token    string `json:"token" binding:"required"`
	Trader   string `json:"trader" binding:"required"`
	Receiver string `json:"receiver" binding:"required"`
	Amount   string `json:"amount,omitempty"`
}

// WithdrawResponse reports the amount paid
type WithdrawResponse struct {
	Paid   math.Int `json:"paid"`
	Height int64    `json:"height"`
}

// TraderBalanceResponse is one withdrawable balance
type TraderBalanceResponse struct {
	Trader  string   `json:"trader"`
	Token   string   `json:"token"`
	Balance math.Int `json:"balance"`
}

// AccountResponse is the scanner view of one address
type AccountResponse struct {
	Address        string               `json:"address"`
	Bank           sdk.Coins            `json:"bank"`
	TraderBalances []types.VaultBalance `json:"trader_balances"`
	OpenOrders     []types.VaultOrder   `json:"open_orders"`
}

// ==================== Faucet Types ====================

// FaucetRequest mints test tokens
type FaucetRequest struct {
	Address string      `json:"address" binding:"required"`
	Coins   []CoinInput `json:"coins" binding:"required,min=1,dive"`
}

// CoinInput is a coin with a decimal string amount
type CoinInput struct {
	Denom  string `json:"denom" binding:"required"`
	Amount string `json:"amount" binding:"required"`
}

// FaucetResponse reports minted coins
type FaucetResponse struct {
	Address string    `json:"address"`
	Coins   sdk.Coins `json:"coins"`
	Height  int64     `json:"height"`
}

// ==================== WebSocket Types ====================

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Channel string      `json:"channel,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// WSSubscribeMessage represents a subscription message
type WSSubscribeMessage struct {
	Type    string `json:"type"`    // "subscribe" or "unsubscribe"
	Channel string `json:"channel"` // "blocks" or "vault:<id>"
}

// ==================== Common Response Types ====================

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// SuccessResponse represents a generic success response
type SuccessResponse struct {
	Success bool  `json:"success"`
	Height  int64 `json:"height,omitempty"`
}

// StatusResponse describes the ledger behind the gateway
type StatusResponse struct {
	ChainID string    `json:"chain_id"`
	Height  int64     `json:"height"`
	Version string    `json:"version"`
	Time    time.Time `json:"time"`
}
