package types

import (
	"fmt"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// GenesisState is the exported state of the vault module. Orders of each
// vault are listed in book order, side 0 first.
type GenesisState struct {
	Params      Params         `json:"params"`
	NextVaultID uint64         `json:"next_vault_id"`
	Vaults      []VaultGenesis `json:"vaults"`
}

// VaultGenesis is the full state of one vault.
type VaultGenesis struct {
	Vault          Vault              `json:"vault"`
	Orders         []GenesisOrder     `json:"orders"`
	Operators      []OperatorApproval `json:"operators,omitempty"`
	TraderBalances []TraderBalance    `json:"trader_balances,omitempty"`
	Volumes        []PriceVolume      `json:"volumes,omitempty"`
}

// GenesisOrder is a resting order with its ownership state. Links are rebuilt on import.
type GenesisOrder struct {
	ID          uint64   `json:"id"`
	Token       string   `json:"token"`
	Price       math.Int `json:"price"`
	Amount      math.Int `json:"amount"`
	Beneficiary string   `json:"beneficiary"`
	Owner       string   `json:"owner"`
	Approved    string   `json:"approved,omitempty"`
}

// OperatorApproval is a blanket approval of operator over all orders of owner.
type OperatorApproval struct {
	Owner    string `json:"owner"`
	Operator string `json:"operator"`
}

// TraderBalance is a withdrawable balance of one trader in one token.
type TraderBalance struct {
	Token   string   `json:"token"`
	Trader  string   `json:"trader"`
	Balance math.Int `json:"balance"`
}

// PriceVolume is the cumulative filled volume at one price level.
type PriceVolume struct {
	Token  string   `json:"token"`
	Price  math.Int `json:"price"`
	Volume math.Int `json:"volume"`
}

// DefaultGenesis returns the default genesis state for the vault module.
func DefaultGenesis() *GenesisState {
	return &GenesisState{
		Params:      DefaultParams(),
		NextVaultID: 1,
		Vaults:      []VaultGenesis{},
	}
}

// Validate ensures the genesis state is well-formed.
func (gs GenesisState) Validate() error {
	if err := gs.Params.Validate(); err != nil {
		return fmt.Errorf("params: %w", err)
	}
	if gs.NextVaultID == 0 {
		return fmt.Errorf("next vault id must be positive")
	}

	seenIDs := make(map[uint64]bool)
	seenPairs := make(map[string]bool)
	for _, vg := range gs.Vaults {
		v := vg.Vault
		if err := v.Validate(); err != nil {
			return fmt.Errorf("vault %d: %w", v.ID, err)
		}
		if v.ID >= gs.NextVaultID {
			return fmt.Errorf("vault id %d not below next vault id %d", v.ID, gs.NextVaultID)
		}
		if seenIDs[v.ID] {
			return fmt.Errorf("duplicate vault id %d", v.ID)
		}
		seenIDs[v.ID] = true
		if seenPairs[v.Pair()] {
			return fmt.Errorf("duplicate vault pair %s", v.Pair())
		}
		seenPairs[v.Pair()] = true

		if err := vg.validateOrders(); err != nil {
			return fmt.Errorf("vault %d: %w", v.ID, err)
		}
		for _, op := range vg.Operators {
			if _, err := sdk.AccAddressFromBech32(op.Owner); err != nil {
				return fmt.Errorf("vault %d operator owner: %w", v.ID, err)
			}
			if _, err := sdk.AccAddressFromBech32(op.Operator); err != nil {
				return fmt.Errorf("vault %d operator: %w", v.ID, err)
			}
		}
		for _, tb := range vg.TraderBalances {
			if _, err := v.SideOf(tb.Token); err != nil {
				return fmt.Errorf("vault %d trader balance: %w", v.ID, err)
			}
			if _, err := sdk.AccAddressFromBech32(tb.Trader); err != nil {
				return fmt.Errorf("vault %d trader balance: %w", v.ID, err)
			}
			if !IsUint256(tb.Balance) {
				return fmt.Errorf("vault %d trader balance of %s out of range", v.ID, tb.Trader)
			}
		}
		for _, pv := range vg.Volumes {
			if _, err := v.SideOf(pv.Token); err != nil {
				return fmt.Errorf("vault %d volume: %w", v.ID, err)
			}
			if err := ValidatePrice(pv.Price); err != nil {
				return fmt.Errorf("vault %d volume: %w", v.ID, err)
			}
			if !IsUint256(pv.Volume) {
				return fmt.Errorf("vault %d volume at %s out of range", v.ID, pv.Price)
			}
		}
	}
	return nil
}

func (vg VaultGenesis) validateOrders() error {
	v := vg.Vault
	seen := make(map[uint64]bool)
	var last [2]*GenesisOrder
	for i := range vg.Orders {
		o := &vg.Orders[i]
		side, err := v.SideOf(o.Token)
		if err != nil {
			return err
		}
		if seen[o.ID] {
			return fmt.Errorf("duplicate order id %d", o.ID)
		}
		seen[o.ID] = true
		if o.ID >= v.NextOrderID {
			return fmt.Errorf("order id %d not below next order id %d", o.ID, v.NextOrderID)
		}
		if err := o.ToOrder().Validate(); err != nil {
			return fmt.Errorf("order %d: %w", o.ID, err)
		}
		if _, err := sdk.AccAddressFromBech32(o.Owner); err != nil {
			return fmt.Errorf("order %d owner: %w", o.ID, err)
		}
		if o.Approved != "" {
			if _, err := sdk.AccAddressFromBech32(o.Approved); err != nil {
				return fmt.Errorf("order %d approved: %w", o.ID, err)
			}
		}
		if prev := last[side]; prev != nil && !prev.ToOrder().Before(o.ToOrder()) {
			return fmt.Errorf("order %d out of book order after %d", o.ID, prev.ID)
		}
		last[side] = o
	}
	return nil
}

// ToOrder returns the order record without links.
func (o GenesisOrder) ToOrder() Order {
	return Order{
		ID:          o.ID,
		Token:       o.Token,
		Price:       o.Price,
		Amount:      o.Amount,
		Beneficiary: o.Beneficiary,
	}
}
