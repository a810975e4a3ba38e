package types

import (
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// Order is a resting sell order of Amount units of Token at Price, where Price
// is expressed in the other token of the vault. Orders of one token form a
// doubly linked list ascending by (Price, ID); Next and Prev are 0 at the ends.
type Order struct {
	ID          uint64   `json:"id"`
	Token       string   `json:"token"`
	Price       math.Int `json:"price"`
	Amount      math.Int `json:"amount"`
	Beneficiary string   `json:"beneficiary"`
	Next        uint64   `json:"next,omitempty"`
	Prev        uint64   `json:"prev,omitempty"`
}

// Before reports whether o sorts strictly before other in its book.
func (o Order) Before(other Order) bool {
	if !o.Price.Equal(other.Price) {
		return o.Price.LT(other.Price)
	}
	return o.ID < other.ID
}

// BeneficiaryAddress parses the beneficiary of the order.
func (o Order) BeneficiaryAddress() (sdk.AccAddress, error) {
	return sdk.AccAddressFromBech32(o.Beneficiary)
}

// Validate performs stateless checks on an order record.
func (o Order) Validate() error {
	if o.ID == 0 {
		return ErrInvalidState.Wrap("order id must be positive")
	}
	if err := ValidatePrice(o.Price); err != nil {
		return err
	}
	if err := ValidateAmount(o.Amount); err != nil {
		return err
	}
	if _, err := sdk.AccAddressFromBech32(o.Beneficiary); err != nil {
		return ErrInvalidAddress.Wrapf("beneficiary: %s", err)
	}
	return nil
}

// OrderInfo is an order together with its current owner.
type OrderInfo struct {
	Order
	Owner    string `json:"owner"`
	Approved string `json:"approved,omitempty"`
}

// Fill records one resting order consumed by a buy.
type Fill struct {
	OrderID     uint64   `json:"order_id"`
	Price       math.Int `json:"price"`
	Amount      math.Int `json:"amount"`
	Cost        math.Int `json:"cost"`
	Beneficiary string   `json:"beneficiary"`
	Removed     bool     `json:"removed"`
}

// Quote is the outcome of a book walk: the raw cost paid in the pricing token
// and the amount received of the listed token, plus the fills that produced them.
type Quote struct {
	AmountIn  math.Int `json:"amount_in"`
	AmountOut math.Int `json:"amount_out"`
	Fills     []Fill   `json:"fills,omitempty"`
}

// NewQuote returns an empty quote.
func NewQuote() Quote {
	return Quote{AmountIn: math.ZeroInt(), AmountOut: math.ZeroInt()}
}

// TradeResult is the outcome of an executed buy.
type TradeResult struct {
	AmountIn  math.Int `json:"amount_in"`
	AmountOut math.Int `json:"amount_out"`
	Fee       math.Int `json:"fee"`
	Fills     []Fill   `json:"fills"`
}

// TotalIn is what the buyer was debited: raw cost plus fee.
func (r TradeResult) TotalIn() math.Int {
	return r.AmountIn.Add(r.Fee)
}

// ArbitrageQuote describes a two-leg arbitrage across both books of a vault.
// ProfitIn is the profit token spent in the first leg including its fee,
// OtherOut the other token it bought, and ProfitOut the profit token the
// second leg returns for OtherOut.
type ArbitrageQuote struct {
	ProfitToken string   `json:"profit_token"`
	ProfitIn    math.Int `json:"profit_in"`
	OtherOut    math.Int `json:"other_out"`
	ProfitOut   math.Int `json:"profit_out"`

	// Leg details, filled by the keeper for execution.
	FirstLeg     Quote    `json:"first_leg"`
	FirstLegFee  math.Int `json:"first_leg_fee"`
	SecondLeg    Quote    `json:"second_leg"`
	SecondLegFee math.Int `json:"second_leg_fee"`
}

// Profit returns ProfitOut-ProfitIn, or zero when the quote is not profitable.
func (q ArbitrageQuote) Profit() math.Int {
	if q.ProfitOut.LTE(q.ProfitIn) {
		return math.ZeroInt()
	}
	return q.ProfitOut.Sub(q.ProfitIn)
}

// Leftover is the other token bought in the first leg but not spent in the second.
func (q ArbitrageQuote) Leftover() math.Int {
	spent := q.SecondLeg.AmountIn.Add(q.SecondLegFee)
	if q.OtherOut.LTE(spent) {
		return math.ZeroInt()
	}
	return q.OtherOut.Sub(spent)
}

// ValidatePrice checks that a price is a positive 256-bit quantity.
func ValidatePrice(price math.Int) error {
	if !IsUint256(price) || price.IsZero() {
		return ErrInvalidPrice.Wrapf("price must be positive and below 2^256, got %s", price)
	}
	return nil
}

// ValidateAmount checks that an amount is a positive 256-bit quantity.
func ValidateAmount(amount math.Int) error {
	if !IsUint256(amount) || amount.IsZero() {
		return ErrInvalidAmount.Wrapf("amount must be positive and below 2^256, got %s", amount)
	}
	return nil
}

// VaultBalance is a trader balance tagged with its vault.
type VaultBalance struct {
	VaultID uint64   `json:"vault_id"`
	Token   string   `json:"token"`
	Balance math.Int `json:"balance"`
}

// VaultOrder is an order tagged with its vault.
type VaultOrder struct {
	VaultID uint64 `json:"vault_id"`
	OrderInfo
}
