package keeper

import (
	"context"
	"math/big"

	"cosmossdk.io/math"

	"github.com/paw-chain/vaultbook/x/vault/types"
)

// walkLimit selects what bounds a book walk.
type walkLimit int

const (
	// limitAmountOut stops once the target quantity of the listed token is bought.
	limitAmountOut walkLimit = iota
	// limitAmountIn stops once the target raw cost in the pricing token is spent.
	limitAmountIn
)

// priceBound is the price condition of a walk. A nil MaxPrice and AvgPrice leave
// the walk unbounded.
type priceBound struct {
	MaxPrice math.Int
	AvgPrice math.Int
}

func maxPriceBound(p math.Int) priceBound { return priceBound{MaxPrice: p} }
func avgPriceBound(p math.Int) priceBound { return priceBound{AvgPrice: p} }

// CostAtPrice returns amount*price/10^decimals(token): what amount of token
// costs at one price level.
func (k Keeper) CostAtPrice(ctx context.Context, vaultID uint64, token string, amount, price math.Int) (math.Int, error) {
	vault, side, err := k.vaultAndSide(ctx, vaultID, token)
	if err != nil {
		return math.Int{}, err
	}
	return types.SafeMulDiv(amount, price, vault.Scale(side))
}

// ReturnAtPrice returns cost*10^decimals(token)/price: how much token a cost buys
// at one price level.
func (k Keeper) ReturnAtPrice(ctx context.Context, vaultID uint64, token string, cost, price math.Int) (math.Int, error) {
	vault, side, err := k.vaultAndSide(ctx, vaultID, token)
	if err != nil {
		return math.Int{}, err
	}
	if err := types.ValidatePrice(price); err != nil {
		return math.Int{}, err
	}
	return types.SafeMulDiv(cost, vault.Scale(side), price)
}

// CostAtMaxPrice quotes buying up to amountOut of token from orders priced at
// most maxPrice. It returns the raw cost and the amount actually available.
func (k Keeper) CostAtMaxPrice(ctx context.Context, vaultID uint64, token string, amountOut, maxPrice math.Int) (amountIn, out math.Int, err error) {
	return k.quote(ctx, vaultID, token, limitAmountOut, amountOut, maxPriceBound(maxPrice))
}

// ReturnAtMaxPrice quotes spending up to amountIn on token from orders priced
// at most maxPrice.
func (k Keeper) ReturnAtMaxPrice(ctx context.Context, vaultID uint64, token string, amountIn, maxPrice math.Int) (in, amountOut math.Int, err error) {
	return k.quote(ctx, vaultID, token, limitAmountIn, amountIn, maxPriceBound(maxPrice))
}

// CostAtAvgPrice quotes buying up to amountOut of token while the average price
// paid, fee included, stays at most avgPrice.
func (k Keeper) CostAtAvgPrice(ctx context.Context, vaultID uint64, token string, amountOut, avgPrice math.Int) (amountIn, out math.Int, err error) {
	return k.quote(ctx, vaultID, token, limitAmountOut, amountOut, avgPriceBound(avgPrice))
}

// ReturnAtAvgPrice quotes spending up to amountIn on token while the average
// price paid, fee included, stays at most avgPrice.
func (k Keeper) ReturnAtAvgPrice(ctx context.Context, vaultID uint64, token string, amountIn, avgPrice math.Int) (in, amountOut math.Int, err error) {
	return k.quote(ctx, vaultID, token, limitAmountIn, amountIn, avgPriceBound(avgPrice))
}

func (k Keeper) quote(ctx context.Context, vaultID uint64, token string, kind walkLimit, limit math.Int, bound priceBound) (math.Int, math.Int, error) {
	vault, side, err := k.vaultAndSide(ctx, vaultID, token)
	if err != nil {
		return math.Int{}, math.Int{}, err
	}
	q, err := k.walkBook(ctx, vault, side, kind, limit, bound)
	if err != nil {
		return math.Int{}, math.Int{}, err
	}
	return q.AmountIn, q.AmountOut, nil
}

func (b priceBound) validate() error {
	if !b.MaxPrice.IsNil() {
		if err := types.ValidatePrice(b.MaxPrice); err != nil {
			return err
		}
	}
	if !b.AvgPrice.IsNil() {
		if err := types.ValidatePrice(b.AvgPrice); err != nil {
			return err
		}
	}
	return nil
}

// walkBook consumes the book of side from the head, in (price, id) order,
// until limit is reached, the bound stops it, or the book ends. The book is
// only read; the returned fills describe what executing the quote removes.
func (k Keeper) walkBook(ctx context.Context, vault types.Vault, side types.Side, kind walkLimit, limit math.Int, bound priceBound) (types.Quote, error) {
	q := types.NewQuote()
	if limit.IsNil() || limit.IsNegative() || !types.IsUint256(limit) {
		return q, types.ErrInvalidAmount.Wrapf("walk limit %s", limit)
	}
	if err := bound.validate(); err != nil {
		return q, err
	}

	scale := vault.Scale(side)
	avg := newAvgState(bound.AvgPrice, vault.FeePercentage, scale)
	remaining := limit

	err := k.iterateBook(ctx, vault.ID, side, func(order types.Order) (bool, error) {
		if remaining.IsZero() {
			return true, nil
		}
		if !bound.MaxPrice.IsNil() && order.Price.GT(bound.MaxPrice) {
			return true, nil
		}

		take, cost, err := candidateFill(order, kind, remaining, scale)
		if err != nil {
			return true, err
		}
		partial := take.LT(order.Amount)

		if avg != nil {
			capped := avg.cap(order.Price, take, q.AmountIn, q.AmountOut)
			if capped.LT(take) {
				take = capped
				partial = true
				if cost, err = types.SafeMulDiv(take, order.Price, scale); err != nil {
					return true, err
				}
			}
		}
		if take.IsZero() {
			return true, nil
		}

		q.Fills = append(q.Fills, types.Fill{
			OrderID:     order.ID,
			Price:       order.Price,
			Amount:      take,
			Cost:        cost,
			Beneficiary: order.Beneficiary,
			Removed:     !partial,
		})
		if q.AmountIn, err = types.SafeAdd(q.AmountIn, cost); err != nil {
			return true, err
		}
		if q.AmountOut, err = types.SafeAdd(q.AmountOut, take); err != nil {
			return true, err
		}
		if kind == limitAmountOut {
			remaining = remaining.Sub(take)
		} else {
			remaining = remaining.Sub(cost)
		}
		return partial, nil
	})
	return q, err
}

// candidateFill is how much of order the limit alone would take, and its cost.
func candidateFill(order types.Order, kind walkLimit, remaining, scale math.Int) (take, cost math.Int, err error) {
	if kind == limitAmountOut {
		take = math.MinInt(order.Amount, remaining)
		cost, err = types.SafeMulDiv(take, order.Price, scale)
		return take, cost, err
	}

	fullCost, err := types.SafeMulDiv(order.Amount, order.Price, scale)
	if err != nil {
		return take, cost, err
	}
	if fullCost.LTE(remaining) {
		return order.Amount, fullCost, nil
	}
	take, err = types.SafeMulDiv(remaining, scale, order.Price)
	if err != nil {
		return take, cost, err
	}
	take = math.MinInt(take, order.Amount)
	cost, err = types.SafeMulDiv(take, order.Price, scale)
	return take, cost, err
}

// avgState checks the running average price of a walk including the fee:
//
//	(R*S + x*p) * 1e18 <= avg * (1e18-fee) * (A + x)
//
// where R and A are the raw cost and amount consumed so far, S the scale of the
// listed token and x the amount taken from an order priced p.
type avgState struct {
	avgNet *big.Int // avg * (1e18 - fee)
	one    *big.Int
	scale  *big.Int
}

func newAvgState(avgPrice, feePercentage, scale math.Int) *avgState {
	if avgPrice.IsNil() {
		return nil
	}
	net := new(big.Int).Sub(types.OneHundredPercent.BigInt(), feePercentage.BigInt())
	return &avgState{
		avgNet: new(big.Int).Mul(avgPrice.BigInt(), net),
		one:    types.OneHundredPercent.BigInt(),
		scale:  scale.BigInt(),
	}
}

// cap returns the largest part of take that keeps the average within bounds.
func (a *avgState) cap(price, take, costSoFar, amountSoFar math.Int) math.Int {
	unit := new(big.Int).Mul(price.BigInt(), a.one)
	if unit.Cmp(a.avgNet) <= 0 {
		return take
	}
	headroom := new(big.Int).Mul(a.avgNet, amountSoFar.BigInt())
	spent := new(big.Int).Mul(costSoFar.BigInt(), a.scale)
	spent.Mul(spent, a.one)
	headroom.Sub(headroom, spent)
	if headroom.Sign() <= 0 {
		return math.ZeroInt()
	}
	x := headroom.Quo(headroom, unit.Sub(unit, a.avgNet))
	if x.Cmp(take.BigInt()) >= 0 {
		return take
	}
	return math.NewIntFromBigInt(x)
}
