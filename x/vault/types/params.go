package types

import (
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"
	govtypes "github.com/cosmos/cosmos-sdk/x/gov/types"
)

// Params carries the registry identities read by the vault core. Admin may
// pause, resume and lower fees; FeeReceiver collects trading fees; Router is
// copied into every new vault as its always-allowed identity.
type Params struct {
	Admin                string   `json:"admin"`
	FeeReceiver          string   `json:"fee_receiver"`
	Router               string   `json:"router,omitempty"`
	DefaultFeePercentage math.Int `json:"default_fee_percentage"`
}

// DefaultParams returns the governance account as admin and fee receiver,
// no router, and a 0.2% fee for new vaults.
func DefaultParams() Params {
	gov := authtypes.NewModuleAddress(govtypes.ModuleName).String()
	return Params{
		Admin:                gov,
		FeeReceiver:          gov,
		DefaultFeePercentage: DefaultFeePercentage,
	}
}

// Validate validates the set of params
func (p Params) Validate() error {
	if _, err := sdk.AccAddressFromBech32(p.Admin); err != nil {
		return ErrInvalidAddress.Wrapf("admin: %s", err)
	}
	if _, err := sdk.AccAddressFromBech32(p.FeeReceiver); err != nil {
		return ErrInvalidAddress.Wrapf("fee receiver: %s", err)
	}
	if p.Router != "" {
		if _, err := sdk.AccAddressFromBech32(p.Router); err != nil {
			return ErrInvalidAddress.Wrapf("router: %s", err)
		}
	}
	return ValidateFeePercentage(p.DefaultFeePercentage)
}
