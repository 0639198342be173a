package domain

import (
	"errors"
	"fmt"
)

// Common domain errors. Entities that are missing and entities owned by
// another user both surface ErrNotFound so callers cannot probe for
// existence.
var (
	// ErrNotFound is returned when a requested resource is not found or not owned.
	ErrNotFound = errors.New("resource not found")
	// ErrConflict is returned when a uniqueness constraint is violated.
	ErrConflict = errors.New("resource already exists")
	// ErrValidation is returned when input validation fails.
	ErrValidation = errors.New("validation error")

	// ErrInvalidAmount is returned when a transaction amount is not positive.
	ErrInvalidAmount = errors.New("transaction amount must be positive")
	// ErrAccountNotFound is returned when a referenced account is missing or not owned.
	ErrAccountNotFound = errors.New("account not found")
	// ErrCategoryNotFound is returned when a referenced category is missing or not owned.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrCategoryTypeMismatch is returned when a category's type does not match
	// the transaction type it is attached to.
	ErrCategoryTypeMismatch = errors.New("category type does not match transaction type")
	// ErrInvalidDebtTarget is returned when a debt payment does not target a
	// liability account.
	ErrInvalidDebtTarget = errors.New("debt payment must target a liability account")

	// ErrStructural is the sentinel for wrong account combinations per
	// transaction type. Use errors.As with *StructuralError for details.
	ErrStructural = errors.New("invalid account combination for transaction type")

	// ErrRateNotFound is the sentinel for a missing per-user exchange rate.
	// Use errors.As with *RateNotFoundError for the offending currency.
	ErrRateNotFound = errors.New("exchange rate not found")
	// ErrConversionUnavailable is returned when no rate path exists between
	// the source and destination currencies.
	ErrConversionUnavailable = errors.New("currency conversion unavailable")
	// ErrInvalidRate is returned when an exchange rate is zero or negative.
	ErrInvalidRate = errors.New("exchange rate must be positive")
	// ErrUnsupportedCurrency is returned for currency codes outside the
	// supported registry.
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	// ErrCannotDeleteAnchorRate is returned when deleting the anchor
	// currency's own rate.
	ErrCannotDeleteAnchorRate = errors.New("cannot delete the anchor currency rate")
)

// StructuralError describes which account rule a transaction violated.
// Callers match it with errors.As, or errors.Is against ErrStructural.
type StructuralError struct {
	Type   TransactionType
	Reason string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("invalid %s transaction: %s", e.Type, e.Reason)
}

func (e *StructuralError) Unwrap() error { return ErrStructural }

// RateNotFoundError reports which currency had no stored rate.
type RateNotFoundError struct {
	Currency string
}

func (e *RateNotFoundError) Error() string {
	return fmt.Sprintf("no exchange rate stored for %s", e.Currency)
}

func (e *RateNotFoundError) Unwrap() error { return ErrRateNotFound }
