package keeper

import (
	"context"
	"fmt"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/paw-chain/vaultbook/x/vault/types"
)

// NewOrder lists a sell order of amount token at price and escrows the tokens
// from caller, who becomes the owner. Proceeds of fills go to beneficiary, or to
// caller when beneficiary is empty. hint may name a resting order of the same
// token near the expected slot to shorten the sorted insert.
func (k Keeper) NewOrder(
	ctx context.Context,
	caller sdk.AccAddress,
	vaultID uint64,
	token string,
	price, amount math.Int,
	beneficiary sdk.AccAddress,
	hint uint64,
) (uint64, error) {
	var orderID uint64
	err := k.atomic(ctx, vaultID, "new_order", func(ctx sdk.Context) error {
		vault, side, err := k.vaultAndSide(ctx, vaultID, token)
		if err != nil {
			return err
		}
		if err := requireActive(vault); err != nil {
			return err
		}
		if err := types.ValidatePrice(price); err != nil {
			return err
		}
		if err := types.ValidateAmount(amount); err != nil {
			return err
		}
		if beneficiary.Empty() {
			beneficiary = caller
		}

		order, err := k.insertOrder(ctx, &vault, side, price, amount, beneficiary, hint)
		if err != nil {
			return err
		}
		k.setOwner(ctx, vaultID, order.ID, caller)
		if err := k.SetVault(ctx, vault); err != nil {
			return err
		}
		if err := k.payIn(ctx, caller, sdk.NewCoin(token, amount)); err != nil {
			return err
		}

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeOrderCreated,
				sdk.NewAttribute(types.AttributeKeyVaultID, fmt.Sprintf("%d", vaultID)),
				sdk.NewAttribute(types.AttributeKeyToken, token),
				sdk.NewAttribute(types.AttributeKeyOrderID, fmt.Sprintf("%d", order.ID)),
				sdk.NewAttribute(types.AttributeKeyTrader, caller.String()),
				sdk.NewAttribute(types.AttributeKeyBeneficiary, order.Beneficiary),
				sdk.NewAttribute(types.AttributeKeyPrice, price.String()),
				sdk.NewAttribute(types.AttributeKeyAmount, amount.String()),
			),
		)
		k.metrics.OrdersCreated.WithLabelValues(vaultLabel(vaultID), token).Inc()
		orderID = order.ID
		return nil
	})
	return orderID, err
}

// CancelOrder takes amount off an order, the whole order when amount is zero,
// and refunds it to receiver (caller when empty). The caller must be allowed on
// the order and the refund must reach minReturn. Cancelling works while paused.
func (k Keeper) CancelOrder(
	ctx context.Context,
	caller sdk.AccAddress,
	vaultID, orderID uint64,
	amount math.Int,
	receiver sdk.AccAddress,
	minReturn math.Int,
) (math.Int, error) {
	var refunded math.Int
	err := k.atomic(ctx, vaultID, "cancel_order", func(ctx sdk.Context) error {
		vault, err := k.mustGetVault(ctx, vaultID)
		if err != nil {
			return err
		}
		order, err := k.getOrder(ctx, vaultID, orderID)
		if err != nil {
			return err
		}
		side, err := vault.SideOf(order.Token)
		if err != nil {
			return err
		}
		allowed, err := k.isAllowed(ctx, vault, caller, orderID)
		if err != nil {
			return err
		}
		if !allowed {
			return types.ErrNotAllowed.Wrapf("%s on order %d", caller, orderID)
		}

		if amount.IsNil() || amount.IsNegative() {
			return types.ErrInvalidAmount.Wrapf("cancel amount %s", amount)
		}
		if amount.IsZero() {
			amount = order.Amount
		}
		if amount.GT(order.Amount) {
			return types.ErrInvalidAmount.Wrapf("order %d holds %s, cannot cancel %s", orderID, order.Amount, amount)
		}
		if !minReturn.IsNil() && amount.LT(minReturn) {
			return types.ErrInsufficientOutput.Wrapf("refund %s below minimum %s", amount, minReturn)
		}
		if receiver.Empty() {
			receiver = caller
		}

		if _, err := k.shrinkOrder(ctx, vaultID, side, order, amount); err != nil {
			return err
		}
		if err := k.payOut(ctx, receiver, sdk.NewCoin(order.Token, amount)); err != nil {
			return err
		}

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeOrderCanceled,
				sdk.NewAttribute(types.AttributeKeyVaultID, fmt.Sprintf("%d", vaultID)),
				sdk.NewAttribute(types.AttributeKeyToken, order.Token),
				sdk.NewAttribute(types.AttributeKeyOrderID, fmt.Sprintf("%d", orderID)),
				sdk.NewAttribute(types.AttributeKeyAmount, amount.String()),
				sdk.NewAttribute(types.AttributeKeyReceiver, receiver.String()),
			),
		)
		k.metrics.OrdersCanceled.WithLabelValues(vaultLabel(vaultID), order.Token).Inc()
		refunded = amount
		return nil
	})
	return refunded, err
}
