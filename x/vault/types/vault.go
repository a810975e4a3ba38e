package types

import (
	"fmt"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// MaxDecimals bounds token decimals so scale factors stay far inside 256 bits.
const MaxDecimals = 36

// Vault is one trading pair: two order books, a fee model and a pause switch.
// Token0 sorts before Token1.
type Vault struct {
	ID            uint64   `json:"id"`
	Token0        string   `json:"token0"`
	Token1        string   `json:"token1"`
	Decimals0     uint32   `json:"decimals0"`
	Decimals1     uint32   `json:"decimals1"`
	FeePercentage math.Int `json:"fee_percentage"`
	Paused        bool     `json:"paused"`
	Router        string   `json:"router,omitempty"`
	NextOrderID   uint64   `json:"next_order_id"`
	CreatedHeight int64    `json:"created_height"`
}

// SideOf returns the book that sells token.
func (v Vault) SideOf(token string) (Side, error) {
	switch token {
	case v.Token0:
		return Side0, nil
	case v.Token1:
		return Side1, nil
	default:
		return 0, ErrUnknownToken.Wrapf("%s not in vault %d (%s/%s)", token, v.ID, v.Token0, v.Token1)
	}
}

// Token returns the denom sold on a side.
func (v Vault) Token(side Side) string {
	if side == Side0 {
		return v.Token0
	}
	return v.Token1
}

// Decimals returns the decimals of the denom sold on a side.
func (v Vault) Decimals(side Side) uint32 {
	if side == Side0 {
		return v.Decimals0
	}
	return v.Decimals1
}

// Scale returns 10^decimals of the denom sold on a side.
func (v Vault) Scale(side Side) math.Int {
	return Pow10(v.Decimals(side))
}

// Fees returns the vault's fee model.
func (v Vault) Fees() FeeModel {
	return NewFeeModel(v.FeePercentage)
}

// IsRouter reports whether addr is the vault's router identity.
func (v Vault) IsRouter(addr sdk.AccAddress) bool {
	return v.Router != "" && v.Router == addr.String()
}

// Pair returns the "token0/token1" label of the vault.
func (v Vault) Pair() string {
	return v.Token0 + "/" + v.Token1
}

// Validate performs stateless checks on a vault record.
func (v Vault) Validate() error {
	if v.ID == 0 {
		return ErrInvalidState.Wrap("vault id must be positive")
	}
	if err := ValidatePair(v.Token0, v.Token1); err != nil {
		return err
	}
	if v.Token0 > v.Token1 {
		return ErrInvalidPair.Wrapf("tokens out of order: %s > %s", v.Token0, v.Token1)
	}
	if v.Decimals0 > MaxDecimals || v.Decimals1 > MaxDecimals {
		return ErrInvalidState.Wrapf("decimals above %d", MaxDecimals)
	}
	if err := ValidateFeePercentage(v.FeePercentage); err != nil {
		return err
	}
	if v.Router != "" {
		if _, err := sdk.AccAddressFromBech32(v.Router); err != nil {
			return ErrInvalidAddress.Wrapf("router: %s", err)
		}
	}
	if v.NextOrderID == 0 {
		return ErrInvalidState.Wrap("next order id starts at 1")
	}
	return nil
}

// ValidatePair checks that two denoms can form a vault.
func ValidatePair(denomA, denomB string) error {
	if err := sdk.ValidateDenom(denomA); err != nil {
		return ErrInvalidPair.Wrap(err.Error())
	}
	if err := sdk.ValidateDenom(denomB); err != nil {
		return ErrInvalidPair.Wrap(err.Error())
	}
	if denomA == denomB {
		return ErrInvalidPair.Wrapf("identical tokens %s", denomA)
	}
	return nil
}

// SortDenoms returns the pair in vault order.
func SortDenoms(denomA, denomB string) (string, string) {
	if denomA > denomB {
		return denomB, denomA
	}
	return denomA, denomB
}

func (v Vault) String() string {
	return fmt.Sprintf("vault %d %s fee=%s paused=%t", v.ID, v.Pair(), v.FeePercentage, v.Paused)
}
