package types

import (
	"cosmossdk.io/errors"
)

// Vault module sentinel errors
var (
	// Authorization
	ErrNotAdmin   = errors.Register(ModuleName, 1, "only for the admin")
	ErrNotAllowed = errors.Register(ModuleName, 2, "not the owner, approved or operator")
	ErrNotRouter  = errors.Register(ModuleName, 3, "not the router")
	ErrNotOwner   = errors.Register(ModuleName, 4, "not the owner or operator")

	// State
	ErrTradingPaused     = errors.Register(ModuleName, 10, "trading is paused")
	ErrInvalidTransition = errors.Register(ModuleName, 11, "invalid trading state transition")
	ErrReentrancy        = errors.Register(ModuleName, 12, "reentrant call")
	ErrVaultExists       = errors.Register(ModuleName, 13, "vault already exists")

	// Bounds
	ErrInsufficientOutput  = errors.Register(ModuleName, 20, "output amount less than minimum required")
	ErrFeeIncrease         = errors.Register(ModuleName, 21, "can only set a smaller fee")
	ErrInsufficientBalance = errors.Register(ModuleName, 22, "insufficient trader balance")
	ErrNoProfit            = errors.Register(ModuleName, 23, "no arbitrage profit")
	ErrInvalidAmount       = errors.Register(ModuleName, 24, "invalid amount")
	ErrInvalidPrice        = errors.Register(ModuleName, 25, "invalid price")
	ErrOverflow            = errors.Register(ModuleName, 26, "arithmetic overflow")
	ErrInvalidFee          = errors.Register(ModuleName, 27, "invalid fee percentage")

	// Not found
	ErrOrderNotFound         = errors.Register(ModuleName, 30, "order not found")
	ErrVaultNotFound         = errors.Register(ModuleName, 31, "vault not found")
	ErrUnknownToken          = errors.Register(ModuleName, 32, "token is not part of the vault")
	ErrDenomMetadataNotFound = errors.Register(ModuleName, 33, "denom metadata not found")

	// Input / plumbing
	ErrInvalidAddress = errors.Register(ModuleName, 40, "invalid address")
	ErrInvalidPair    = errors.Register(ModuleName, 41, "invalid token pair")
	ErrInvalidGenesis = errors.Register(ModuleName, 42, "invalid genesis state")
	ErrInvalidState   = errors.Register(ModuleName, 43, "invalid state")
	ErrTransferFailed = errors.Register(ModuleName, 44, "token transfer failed")
)

// ErrorClass groups sentinel errors by the kind of precondition that failed.
type ErrorClass int

const (
	ClassUnknown ErrorClass = iota
	ClassAuthorization
	ClassState
	ClassBounds
	ClassNotFound
	ClassInvalidInput
)

func (c ErrorClass) String() string {
	switch c {
	case ClassAuthorization:
		return "authorization"
	case ClassState:
		return "state"
	case ClassBounds:
		return "bounds"
	case ClassNotFound:
		return "not_found"
	case ClassInvalidInput:
		return "invalid_input"
	default:
		return "unknown"
	}
}

var errorClasses = []struct {
	class ErrorClass
	errs  []error
}{
	{ClassAuthorization, []error{ErrNotAdmin, ErrNotAllowed, ErrNotRouter, ErrNotOwner}},
	{ClassState, []error{ErrTradingPaused, ErrInvalidTransition, ErrReentrancy, ErrVaultExists}},
	{ClassBounds, []error{
		ErrInsufficientOutput, ErrFeeIncrease, ErrInsufficientBalance, ErrNoProfit,
		ErrInvalidAmount, ErrInvalidPrice, ErrOverflow, ErrInvalidFee,
	}},
	{ClassNotFound, []error{ErrOrderNotFound, ErrVaultNotFound, ErrUnknownToken, ErrDenomMetadataNotFound}},
	{ClassInvalidInput, []error{ErrInvalidAddress, ErrInvalidPair, ErrInvalidGenesis}},
}

// Classify maps an error returned by the keeper onto its ErrorClass.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassUnknown
	}
	for _, group := range errorClasses {
		for _, target := range group.errs {
			if errors.IsOf(err, target) {
				return group.class
			}
		}
	}
	return ClassUnknown
}
