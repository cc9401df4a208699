package domain

import "errors"

var (
	ErrNotFound               = errors.New("not found")
	ErrInvalidInput           = errors.New("invalid input")
	ErrInvalidCost            = errors.New("cost must be a positive multiple of the coin unit")
	ErrAccountNotFound        = errors.New("account not found")
	ErrEmailTaken             = errors.New("email already registered")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrBalanceConflict        = errors.New("balance changed since it was read")
	ErrConcurrentModification = errors.New("concurrent modification: retries exhausted")
	ErrSignatureMismatch      = errors.New("payment signature mismatch")
	ErrOrderNotFound          = errors.New("payment order not found")
	ErrOrderConsumed          = errors.New("payment order already credited")
	ErrProviderTimeout        = errors.New("provider timeout")
	ErrProviderError          = errors.New("provider error")
	ErrEmptyCompletion        = errors.New("provider returned no usable content")
	ErrCompensationFailed     = errors.New("compensating credit could not be written")
	ErrAlreadyApplied         = errors.New("balance event already recorded")
)
