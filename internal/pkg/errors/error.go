package xerrors

import (
	"errors"
	"fmt"
)

// Common reusable application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized access")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict: resource already exists")
	ErrInternal     = errors.New("internal server error")
	ErrBadRequest   = errors.New("bad request")
)

// Ledger errors. All of them are terminal for the requested operation:
// nothing is partially applied when one of these comes back.
var (
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrListingNotEligible     = errors.New("listing has no active subscription")
	ErrPackageAlreadyActive   = errors.New("listing already has an active promotion package")
	ErrCityMismatch           = errors.New("city does not match listing city")
	ErrGiftAlreadyActivated   = errors.New("gift already activated")
	ErrGiftExpired            = errors.New("gift expired")
	ErrTrialAlreadyUsed       = errors.New("trial already used")
	ErrSubscriptionProtected  = errors.New("subscription is paid or gifted and cannot be reset")
	ErrConcurrentModification = errors.New("concurrent modification, retry the operation")
)

// InsufficientFundsError carries the amounts so callers can tell the owner
// exactly how much is missing. errors.Is(err, ErrInsufficientFunds) holds.
type InsufficientFundsError struct {
	Required  int64
	Available int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: required %d, available %d", e.Required, e.Available)
}

func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}

func NewInsufficientFunds(required, available int64) error {
	return &InsufficientFundsError{Required: required, Available: available}
}

// Wrap adds context to an error (similar to fmt.Errorf("%w")).
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is allows checking whether an error is a specific sentinel error.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Unwrap extracts the underlying wrapped error.
func Unwrap(err error) error {
	return errors.Unwrap(err)
}

// MessageOrDefault returns err.Error() or a fallback message if err is nil.
func MessageOrDefault(err error, fallback string) string {
	if err != nil {
		return err.Error()
	}
	return fallback
}
