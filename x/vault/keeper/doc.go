// Package keeper implements the vault module keeper.
//
// A vault trades one pair of bank denominations through two order books, one
// per token, each priced in the other token. Traders post resting sell orders
// whose tokens are escrowed in the module account; buyers take from the head of
// a book in price then time priority.
//
// # Core Functionality
//
// Order books: each book is a doubly linked list of orders stored under the
// vault, strictly ascending by (price, id). Per-price liquidity, cumulative
// volume and book totals are maintained incrementally so aggregate queries never
// walk the list.
//
// Matching: quotes and buys at a maximum price or at a maximum average price
// (fee included), and two-leg arbitrage across both books of a vault.
//
// Ownership: an order has a transferable owner, a single approved spender and
// per-owner operators, separate from the beneficiary that receives proceeds.
//
// Trader balances: fill proceeds accumulate per (token, trader) and are
// withdrawn explicitly.
//
// # Atomicity
//
// Every mutating entry point runs on a cached branch of the context with a per
// vault in-flight marker. Book and balance updates precede bank transfers and the
// branch, with its events, is written only when the whole operation succeeds.
//
// # Usage Patterns
//
// Listing an order:
//
//	id, err := keeper.NewOrder(ctx, trader, vaultID, "ubtc", price, amount, nil, 0)
//
// Buying at a maximum price:
//
//	res, err := keeper.BuyAtMaxPrice(ctx, buyer, vaultID, "ubtc", maxPrice, maxIn, buyer, minOut)
package keeper
