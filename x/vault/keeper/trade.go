package keeper

import (
	"context"
	"fmt"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/paw-chain/vaultbook/x/vault/types"
)

// BuyAtMaxPrice buys token from orders priced at most maxPrice, spending at most
// maxAmountIn of the other token fee included. Only the raw cost plus its fee is
// taken from caller; the bought tokens go to receiver.
func (k Keeper) BuyAtMaxPrice(
	ctx context.Context,
	caller sdk.AccAddress,
	vaultID uint64,
	token string,
	maxPrice, maxAmountIn math.Int,
	receiver sdk.AccAddress,
	minAmountOut math.Int,
) (types.TradeResult, error) {
	return k.buy(ctx, caller, vaultID, token, maxPriceBound(maxPrice), maxAmountIn, receiver, minAmountOut, "buy_max_price")
}

// BuyAtAvgPrice buys token while the average price paid, fee included, stays at
// most avgPrice. Orders above avgPrice may be consumed when cheaper fills offset them.
func (k Keeper) BuyAtAvgPrice(
	ctx context.Context,
	caller sdk.AccAddress,
	vaultID uint64,
	token string,
	avgPrice, maxAmountIn math.Int,
	receiver sdk.AccAddress,
	minAmountOut math.Int,
) (types.TradeResult, error) {
	return k.buy(ctx, caller, vaultID, token, avgPriceBound(avgPrice), maxAmountIn, receiver, minAmountOut, "buy_avg_price")
}

func (k Keeper) buy(
	ctx context.Context,
	caller sdk.AccAddress,
	vaultID uint64,
	token string,
	bound priceBound,
	maxAmountIn math.Int,
	receiver sdk.AccAddress,
	minAmountOut math.Int,
	op string,
) (types.TradeResult, error) {
	var result types.TradeResult
	err := k.atomic(ctx, vaultID, op, func(ctx sdk.Context) error {
		vault, side, err := k.vaultAndSide(ctx, vaultID, token)
		if err != nil {
			return err
		}
		if err := requireActive(vault); err != nil {
			return err
		}
		if err := types.ValidateAmount(maxAmountIn); err != nil {
			return err
		}
		if receiver.Empty() {
			receiver = caller
		}
		feeReceiver, err := k.feeReceiver(ctx)
		if err != nil {
			return err
		}

		fees := vault.Fees()
		budget, err := fees.WithoutFee(maxAmountIn)
		if err != nil {
			return err
		}
		q, err := k.walkBook(ctx, vault, side, limitAmountIn, budget, bound)
		if err != nil {
			return err
		}
		if !minAmountOut.IsNil() && q.AmountOut.LT(minAmountOut) {
			return types.ErrInsufficientOutput.Wrapf("got %s, want at least %s", q.AmountOut, minAmountOut)
		}
		fee, err := chargeFee(fees, q.AmountIn, maxAmountIn)
		if err != nil {
			return err
		}

		// Book and balances first, token movements last.
		if err := k.applyFills(ctx, vault, side, q.Fills); err != nil {
			return err
		}
		payToken := vault.Token(side.Other())
		if err := k.payIn(ctx, caller, sdk.NewCoin(payToken, q.AmountIn)); err != nil {
			return err
		}
		if err := k.transfer(ctx, caller, feeReceiver, sdk.NewCoin(payToken, fee)); err != nil {
			return err
		}
		if err := k.payOut(ctx, receiver, sdk.NewCoin(token, q.AmountOut)); err != nil {
			return err
		}

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeTrade,
				sdk.NewAttribute(types.AttributeKeyVaultID, fmt.Sprintf("%d", vaultID)),
				sdk.NewAttribute(types.AttributeKeyToken, token),
				sdk.NewAttribute(types.AttributeKeyMode, op),
				sdk.NewAttribute(types.AttributeKeyTrader, caller.String()),
				sdk.NewAttribute(types.AttributeKeyReceiver, receiver.String()),
				sdk.NewAttribute(types.AttributeKeyAmountIn, q.AmountIn.String()),
				sdk.NewAttribute(types.AttributeKeyAmountOut, q.AmountOut.String()),
				sdk.NewAttribute(types.AttributeKeyFee, fee.String()),
			),
		)
		label := vaultLabel(vaultID)
		k.metrics.TradeVolume.WithLabelValues(label, token).Add(toFloat(q.AmountOut))
		k.metrics.TradeCost.WithLabelValues(label, payToken).Add(toFloat(q.AmountIn))
		k.metrics.FeesCollected.WithLabelValues(label, payToken).Add(toFloat(fee))

		result = types.TradeResult{
			AmountIn:  q.AmountIn,
			AmountOut: q.AmountOut,
			Fee:       fee,
			Fills:     q.Fills,
		}
		return nil
	})
	return result, err
}

// applyFills executes the fills of a quote against the book of side: orders
// shrink or disappear, beneficiaries are credited the raw cost in the other
// token and the volume at each price grows.
func (k Keeper) applyFills(ctx sdk.Context, vault types.Vault, side types.Side, fills []types.Fill) error {
	label := vaultLabel(vault.ID)
	token := vault.Token(side)
	for _, fill := range fills {
		order, err := k.getOrder(ctx, vault.ID, fill.OrderID)
		if err != nil {
			return err
		}
		if _, err := k.shrinkOrder(ctx, vault.ID, side, order, fill.Amount); err != nil {
			return err
		}
		beneficiary, err := order.BeneficiaryAddress()
		if err != nil {
			return types.ErrInvalidState.Wrapf("order %d beneficiary: %s", order.ID, err)
		}
		if err := k.credit(ctx, vault.ID, side.Other(), beneficiary, fill.Cost); err != nil {
			return err
		}
		if err := k.addVolume(ctx, vault.ID, side, order.Price, fill.Amount); err != nil {
			return err
		}

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeOrderFilled,
				sdk.NewAttribute(types.AttributeKeyVaultID, fmt.Sprintf("%d", vault.ID)),
				sdk.NewAttribute(types.AttributeKeyToken, token),
				sdk.NewAttribute(types.AttributeKeyOrderID, fmt.Sprintf("%d", order.ID)),
				sdk.NewAttribute(types.AttributeKeyPrice, order.Price.String()),
				sdk.NewAttribute(types.AttributeKeyAmount, fill.Amount.String()),
				sdk.NewAttribute(types.AttributeKeyBeneficiary, order.Beneficiary),
			),
		)
		k.metrics.OrdersFilled.WithLabelValues(label, token).Inc()
	}
	return nil
}
