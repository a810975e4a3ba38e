package types

// Event types for the vault module
const (
	// Directory
	EventTypeVaultCreated = "vault_created"

	// Order lifecycle
	EventTypeOrderCreated  = "order_created"
	EventTypeOrderCanceled = "order_canceled"
	EventTypeOrderFilled   = "order_filled"

	// Ownership
	EventTypeOrderTransferred = "order_transferred"
	EventTypeOrderApproved    = "order_approved"
	EventTypeApprovalForAll   = "approval_for_all"

	// Trading
	EventTypeTrade     = "trade"
	EventTypeArbitrage = "arbitrage"
	EventTypeWithdraw  = "withdraw"

	// Governance of the vault
	EventTypeFeeChanged     = "fee_changed"
	EventTypeTradingPaused  = "trading_paused"
	EventTypeTradingResumed = "trading_resumed"
)

// Event attribute keys
const (
	AttributeKeyVaultID     = "vault_id"
	AttributeKeyToken       = "token"
	AttributeKeyToken0      = "token0"
	AttributeKeyToken1      = "token1"
	AttributeKeyOrderID     = "order_id"
	AttributeKeyTrader      = "trader"
	AttributeKeyBeneficiary = "beneficiary"
	AttributeKeyPrice       = "price"
	AttributeKeyAmount      = "amount"
	AttributeKeyAmountIn    = "amount_in"
	AttributeKeyAmountOut   = "amount_out"
	AttributeKeyFee         = "fee"
	AttributeKeyReceiver    = "receiver"
	AttributeKeyFrom        = "from"
	AttributeKeyTo          = "to"
	AttributeKeyOwner       = "owner"
	AttributeKeyApproved    = "approved"
	AttributeKeyOperator    = "operator"
	AttributeKeyOldFee      = "old_fee"
	AttributeKeyNewFee      = "new_fee"
	AttributeKeyProfitToken = "profit_token"
	AttributeKeyProfitIn    = "profit_in"
	AttributeKeyProfitOut   = "profit_out"
	AttributeKeyOtherOut    = "other_out"
	AttributeKeyActor       = "actor"
	AttributeKeyMode        = "mode"
)
