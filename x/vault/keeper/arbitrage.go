package keeper

import (
	"context"
	"fmt"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/paw-chain/vaultbook/x/vault/types"
)

// ArbitrageAmountsOut quotes an arbitrage that ends in profitToken. The first
// leg buys the other token from its book, priced in profitToken, at prices up to
// maxPrice and spending up to maxAmountIn fee included (profitIn). The second
// leg spends what it bought (otherOut) on the profitToken book (profitOut).
func (k Keeper) ArbitrageAmountsOut(ctx context.Context, vaultID uint64, profitToken string, maxAmountIn, maxPrice math.Int) (types.ArbitrageQuote, error) {
	vault, side, err := k.vaultAndSide(ctx, vaultID, profitToken)
	if err != nil {
		return types.ArbitrageQuote{}, err
	}
	return k.quoteArbitrage(ctx, vault, side, maxAmountIn, maxPrice)
}

func (k Keeper) quoteArbitrage(ctx context.Context, vault types.Vault, profitSide types.Side, maxAmountIn, maxPrice math.Int) (types.ArbitrageQuote, error) {
	if err := types.ValidateAmount(maxAmountIn); err != nil {
		return types.ArbitrageQuote{}, err
	}
	fees := vault.Fees()
	otherSide := profitSide.Other()

	budget, err := fees.WithoutFee(maxAmountIn)
	if err != nil {
		return types.ArbitrageQuote{}, err
	}
	first, err := k.walkBook(ctx, vault, otherSide, limitAmountIn, budget, maxPriceBound(maxPrice))
	if err != nil {
		return types.ArbitrageQuote{}, err
	}
	firstFee, err := chargeFee(fees, first.AmountIn, maxAmountIn)
	if err != nil {
		return types.ArbitrageQuote{}, err
	}

	q := types.ArbitrageQuote{
		ProfitToken:  vault.Token(profitSide),
		ProfitIn:     first.AmountIn.Add(firstFee),
		OtherOut:     first.AmountOut,
		ProfitOut:    math.ZeroInt(),
		FirstLeg:     first,
		FirstLegFee:  firstFee,
		SecondLeg:    types.NewQuote(),
		SecondLegFee: math.ZeroInt(),
	}
	if first.AmountOut.IsZero() {
		return q, nil
	}

	budget, err = fees.WithoutFee(first.AmountOut)
	if err != nil {
		return types.ArbitrageQuote{}, err
	}
	second, err := k.walkBook(ctx, vault, profitSide, limitAmountIn, budget, priceBound{})
	if err != nil {
		return types.ArbitrageQuote{}, err
	}
	secondFee, err := chargeFee(fees, second.AmountIn, first.AmountOut)
	if err != nil {
		return types.ArbitrageQuote{}, err
	}
	q.ProfitOut = second.AmountOut
	q.SecondLeg = second
	q.SecondLegFee = secondFee
	return q, nil
}

// ArbitrageTrade executes the quote of ArbitrageAmountsOut when it is strictly
// profitable and the profit reaches minProfit. The trade is self funded: the
// receiver gets profitOut-profitIn of profitToken plus any of the other token
// the second leg did not spend. A breakeven quote is rejected.
func (k Keeper) ArbitrageTrade(
	ctx context.Context,
	caller sdk.AccAddress,
	vaultID uint64,
	profitToken string,
	maxAmountIn, maxPrice math.Int,
	receiver sdk.AccAddress,
	minProfit math.Int,
) (types.ArbitrageQuote, error) {
	var quote types.ArbitrageQuote
	err := k.atomic(ctx, vaultID, "arbitrage", func(ctx sdk.Context) error {
		vault, profitSide, err := k.vaultAndSide(ctx, vaultID, profitToken)
		if err != nil {
			return err
		}
		if err := requireActive(vault); err != nil {
			return err
		}
		if receiver.Empty() {
			receiver = caller
		}
		feeReceiver, err := k.feeReceiver(ctx)
		if err != nil {
			return err
		}

		q, err := k.quoteArbitrage(ctx, vault, profitSide, maxAmountIn, maxPrice)
		if err != nil {
			return err
		}
		if q.ProfitOut.LTE(q.ProfitIn) {
			return types.ErrNoProfit.Wrapf("in %s, out %s", q.ProfitIn, q.ProfitOut)
		}
		profit := q.Profit()
		if !minProfit.IsNil() && profit.LT(minProfit) {
			return types.ErrInsufficientOutput.Wrapf("profit %s below minimum %s", profit, minProfit)
		}

		otherSide := profitSide.Other()
		if err := k.applyFills(ctx, vault, otherSide, q.FirstLeg.Fills); err != nil {
			return err
		}
		if err := k.applyFills(ctx, vault, profitSide, q.SecondLeg.Fills); err != nil {
			return err
		}

		otherToken := vault.Token(otherSide)
		moduleAddr := k.GetModuleAddress()
		if err := k.transfer(ctx, moduleAddr, feeReceiver, sdk.NewCoin(profitToken, q.FirstLegFee)); err != nil {
			return err
		}
		if err := k.transfer(ctx, moduleAddr, feeReceiver, sdk.NewCoin(otherToken, q.SecondLegFee)); err != nil {
			return err
		}
		if err := k.payOut(ctx, receiver, sdk.NewCoin(profitToken, profit)); err != nil {
			return err
		}
		if err := k.payOut(ctx, receiver, sdk.NewCoin(otherToken, q.Leftover())); err != nil {
			return err
		}

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeArbitrage,
				sdk.NewAttribute(types.AttributeKeyVaultID, fmt.Sprintf("%d", vaultID)),
				sdk.NewAttribute(types.AttributeKeyProfitToken, profitToken),
				sdk.NewAttribute(types.AttributeKeyTrader, caller.String()),
				sdk.NewAttribute(types.AttributeKeyReceiver, receiver.String()),
				sdk.NewAttribute(types.AttributeKeyProfitIn, q.ProfitIn.String()),
				sdk.NewAttribute(types.AttributeKeyOtherOut, q.OtherOut.String()),
				sdk.NewAttribute(types.AttributeKeyProfitOut, q.ProfitOut.String()),
			),
		)
		label := vaultLabel(vaultID)
		k.metrics.ArbitrageProfit.WithLabelValues(label, profitToken).Add(toFloat(profit))
		k.metrics.FeesCollected.WithLabelValues(label, profitToken).Add(toFloat(q.FirstLegFee))
		k.metrics.FeesCollected.WithLabelValues(label, otherToken).Add(toFloat(q.SecondLegFee))
		k.Logger(ctx).Info("arbitrage executed", "vault_id", vaultID, "profit_token", profitToken, "profit", profit.String())

		quote = q
		return nil
	})
	return quote, err
}
