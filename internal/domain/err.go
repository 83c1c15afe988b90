package domain

import "errors"

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrPayoutNotFound      = errors.New("payout not found")
	ErrBankUnavailable     = errors.New("bank unavailable")
	ErrBankRejected        = errors.New("bank rejected payout")
	ErrBadBankResponse     = errors.New("bad bank response")
	ErrMalformedCallback   = errors.New("malformed callback")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrUnauthorized        = errors.New("unauthorized")

	// ErrResultNotPersisted means the bank answered but the answer could not
	// be stored. The payout needs reconciliation, never a refund.
	ErrResultNotPersisted = errors.New("bank result not persisted")
)
