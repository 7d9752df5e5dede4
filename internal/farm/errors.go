package farm

import "errors"

var (
	ErrDuplicatePool       = errors.New("pool for asset already exists")
	ErrImmutablePool       = errors.New("staking pool weight is derived")
	ErrPoolNotFound        = errors.New("pool not found")
	ErrInsufficientStake   = errors.New("insufficient stake")
	ErrInsufficientReceipt = errors.New("insufficient receipt balance")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrCappedReceipt       = errors.New("receipt token must be uncapped")
	ErrReceiptMint         = errors.New("receipt mint short of stake")
	ErrAccountCollision    = errors.New("accounts must be distinct")
)
