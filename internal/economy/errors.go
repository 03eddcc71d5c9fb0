package economy

import "errors"

// Engine error taxonomy. Handlers map each to a distinct user-visible
// response; store errors are wrapped and propagated, never swallowed.
var (
	ErrConfigUnavailable   = errors.New("economy config store unavailable")
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrSelfTransfer        = errors.New("cannot transfer to your own wallet")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("amount must be a positive integer")
	ErrConflict            = errors.New("concurrent update conflict")
)
