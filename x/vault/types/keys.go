package types

import (
	"fmt"
	"math/big"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

const (
	// ModuleName defines the module name
	ModuleName = "vault"

	// StoreKey defines the primary module store key
	StoreKey = ModuleName

	// RouterKey defines the module's message routing key
	RouterKey = ModuleName

	// QuerierRoute defines the module's query routing key
	QuerierRoute = ModuleName
)

// PriceKeyLength is the width of an encoded price inside store keys.
const PriceKeyLength = 32

// Store key prefixes
var (
	ParamsKey      = []byte{0x01} // module params (registry identities)
	VaultCountKey  = []byte{0x02} // next vault id
	VaultKey       = []byte{0x03} // prefix for vault records
	VaultByPairKey = []byte{0x04} // prefix for vault lookup by token pair

	OrderKey          = []byte{0x10} // vaultID || orderID -> Order
	BookHeadKey       = []byte{0x11} // vaultID || side -> orderID
	BookTailKey       = []byte{0x12} // vaultID || side -> orderID
	PricePointKey     = []byte{0x13} // vaultID || side || price -> liquidity
	VolumeKey         = []byte{0x14} // vaultID || side || price -> cumulative volume
	TotalLiquidityKey = []byte{0x15} // vaultID || side -> liquidity
	TotalVolumeKey    = []byte{0x16} // vaultID || side -> volume

	OrderOwnerKey    = []byte{0x20} // vaultID || orderID -> owner
	OrderApprovalKey = []byte{0x21} // vaultID || orderID -> approved spender
	OperatorKey      = []byte{0x22} // vaultID || len(owner) || owner || operator -> {1}
	OwnerIndexKey    = []byte{0x23} // vaultID || len(owner) || owner || orderID -> {1}

	TraderBalanceKey = []byte{0x30} // vaultID || side || trader -> amount

	ReentrancyKey = []byte{0x40} // vaultID -> {1} while an operation is in flight
)

// Side selects one of the two order books of a vault: the book selling Token0
// (priced in Token1) or the book selling Token1 (priced in Token0).
type Side uint8

const (
	Side0 Side = 0
	Side1 Side = 1
)

// Other returns the opposite book.
func (s Side) Other() Side {
	return 1 - s
}

func (s Side) String() string {
	return fmt.Sprintf("side%d", uint8(s))
}

func vaultPrefix(prefix []byte, vaultID uint64) []byte {
	key := make([]byte, 0, len(prefix)+8)
	key = append(key, prefix...)
	return append(key, sdk.Uint64ToBigEndian(vaultID)...)
}

func sidePrefix(prefix []byte, vaultID uint64, side Side) []byte {
	return append(vaultPrefix(prefix, vaultID), byte(side))
}

// GetVaultKey returns the store key for a vault record
func GetVaultKey(vaultID uint64) []byte {
	return vaultPrefix(VaultKey, vaultID)
}

// GetVaultByPairKey returns the store key for vault lookup by token pair.
// The pair is normalized so that both orderings map to the same key.
func GetVaultByPairKey(denomA, denomB string) []byte {
	if denomA > denomB {
		denomA, denomB = denomB, denomA
	}
	key := append([]byte{}, VaultByPairKey...)
	key = append(key, byte(len(denomA)))
	key = append(key, []byte(denomA)...)
	return append(key, []byte(denomB)...)
}

// GetOrderKey returns the store key for an order
func GetOrderKey(vaultID, orderID uint64) []byte {
	return append(vaultPrefix(OrderKey, vaultID), sdk.Uint64ToBigEndian(orderID)...)
}

// GetBookHeadKey returns the key holding the first order id of a book
func GetBookHeadKey(vaultID uint64, side Side) []byte {
	return sidePrefix(BookHeadKey, vaultID, side)
}

// GetBookTailKey returns the key holding the last order id of a book
func GetBookTailKey(vaultID uint64, side Side) []byte {
	return sidePrefix(BookTailKey, vaultID, side)
}

// GetPricePointPrefix returns the prefix under which all price points of a book live.
// Iterating it yields prices in ascending order.
func GetPricePointPrefix(vaultID uint64, side Side) []byte {
	return sidePrefix(PricePointKey, vaultID, side)
}

// GetPricePointKey returns the key of the resting liquidity at one price
func GetPricePointKey(vaultID uint64, side Side, price math.Int) []byte {
	return append(GetPricePointPrefix(vaultID, side), EncodePrice(price)...)
}

// GetVolumePrefix returns the prefix of the cumulative volume counters of a book
func GetVolumePrefix(vaultID uint64, side Side) []byte {
	return sidePrefix(VolumeKey, vaultID, side)
}

// GetVolumeKey returns the key of the cumulative volume at one price
func GetVolumeKey(vaultID uint64, side Side, price math.Int) []byte {
	return append(GetVolumePrefix(vaultID, side), EncodePrice(price)...)
}

// GetTotalLiquidityKey returns the key of the resting liquidity of a whole book
func GetTotalLiquidityKey(vaultID uint64, side Side) []byte {
	return sidePrefix(TotalLiquidityKey, vaultID, side)
}

// GetTotalVolumeKey returns the key of the cumulative volume of a whole book
func GetTotalVolumeKey(vaultID uint64, side Side) []byte {
	return sidePrefix(TotalVolumeKey, vaultID, side)
}

// GetOrderOwnerKey returns the key holding the owner of an order
func GetOrderOwnerKey(vaultID, orderID uint64) []byte {
	return append(vaultPrefix(OrderOwnerKey, vaultID), sdk.Uint64ToBigEndian(orderID)...)
}

// GetOrderApprovalKey returns the key holding the single approved spender of an order
func GetOrderApprovalKey(vaultID, orderID uint64) []byte {
	return append(vaultPrefix(OrderApprovalKey, vaultID), sdk.Uint64ToBigEndian(orderID)...)
}

// GetOperatorPrefix returns the prefix of all operators approved by owner
func GetOperatorPrefix(vaultID uint64, owner sdk.AccAddress) []byte {
	return append(vaultPrefix(OperatorKey, vaultID), lengthPrefixed(owner)...)
}

// GetOperatorKey returns the key of a blanket operator approval
func GetOperatorKey(vaultID uint64, owner, operator sdk.AccAddress) []byte {
	return append(GetOperatorPrefix(vaultID, owner), operator.Bytes()...)
}

// GetOwnerIndexPrefix returns the prefix of all orders owned by owner
func GetOwnerIndexPrefix(vaultID uint64, owner sdk.AccAddress) []byte {
	return append(vaultPrefix(OwnerIndexKey, vaultID), lengthPrefixed(owner)...)
}

// GetOwnerIndexKey returns the owner index key of one order
func GetOwnerIndexKey(vaultID uint64, owner sdk.AccAddress, orderID uint64) []byte {
	return append(GetOwnerIndexPrefix(vaultID, owner), sdk.Uint64ToBigEndian(orderID)...)
}

// GetTraderBalancePrefix returns the prefix of all trader balances of one token
func GetTraderBalancePrefix(vaultID uint64, side Side) []byte {
	return sidePrefix(TraderBalanceKey, vaultID, side)
}

// GetTraderBalanceKey returns the key of a trader's withdrawable balance
func GetTraderBalanceKey(vaultID uint64, side Side, trader sdk.AccAddress) []byte {
	return append(GetTraderBalancePrefix(vaultID, side), trader.Bytes()...)
}

// GetReentrancyKey returns the key of the in-flight marker of a vault
func GetReentrancyKey(vaultID uint64) []byte {
	return vaultPrefix(ReentrancyKey, vaultID)
}

func lengthPrefixed(addr sdk.AccAddress) []byte {
	bz := addr.Bytes()
	return append([]byte{byte(len(bz))}, bz...)
}

// EncodePrice encodes a non-negative price as fixed-width big-endian bytes so that
// lexicographic key order matches numeric order.
func EncodePrice(price math.Int) []byte {
	bz := make([]byte, PriceKeyLength)
	if price.IsNil() {
		return bz
	}
	b := price.BigInt().Bytes()
	copy(bz[PriceKeyLength-len(b):], b)
	return bz
}

// DecodePrice is the inverse of EncodePrice.
func DecodePrice(bz []byte) math.Int {
	return math.NewIntFromBigInt(new(big.Int).SetBytes(bz))
}
