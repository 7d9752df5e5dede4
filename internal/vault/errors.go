package vault

import "errors"

var (
	ErrFeeOutOfBounds     = errors.New("fee out of bounds")
	ErrInsufficientShares = errors.New("insufficient shares")
	ErrZeroAmount         = errors.New("amount must be greater than zero")
	ErrPaused             = errors.New("vault is paused")
)
