package vault

import "errors"

var (
	ErrInvalidSlot     = errors.New("slot index out of range")
	ErrReservedSlot    = errors.New("slot 0 is reserved for the balance display")
	ErrInvalidAmount   = errors.New("amount must be positive")
	ErrBalanceOverflow = errors.New("balance would overflow")
	ErrNegativeBalance = errors.New("balance cannot be negative")
	ErrFlushFailed     = errors.New("vault could not be flushed")
)
