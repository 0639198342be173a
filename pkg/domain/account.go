// Package domain holds the ledger's entities and the bookkeeping rules they
// must satisfy. Entities here carry no persistence concerns; repositories
// hydrate and store them.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountCategory distinguishes what an account represents. Liabilities are
// conventionally held at non-positive balances.
type AccountCategory string

const (
	AccountAsset     AccountCategory = "asset"
	AccountLiability AccountCategory = "liability"
)

// Account is a user-owned store of value in a single currency.
// Invariant: CurrentBalance = InitialBalance + the sum of every balance delta
// applied by the transaction engine.
type Account struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	Name           string
	Category       AccountCategory
	Currency       string
	InitialBalance decimal.Decimal
	CurrentBalance decimal.Decimal
	AccountTypeID  uuid.UUID
	Debt           *DebtDetails
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsLiability reports whether the account is a liability (debt) account.
func (a *Account) IsLiability() bool { return a.Category == AccountLiability }

// DebtDetails extends a liability account 1:1. It is created together with
// the account and never exists on its own.
type DebtDetails struct {
	AccountID      uuid.UUID
	InterestRate   decimal.Decimal
	DueDate        time.Time
	OriginalAmount decimal.Decimal
}

// Category labels income or expense transactions. Its Type must match the
// transaction type it is attached to.
type Category struct {
	ID     uuid.UUID
	UserID uuid.UUID
	Name   string
	Type   TransactionType
}

// UserSettings holds per-user ledger preferences. PrimaryCurrency is both the
// display currency and the anchor all stored exchange rates are expressed
// against; its own rate is always exactly 1.
type UserSettings struct {
	UserID          uuid.UUID
	PrimaryCurrency string
	UpdatedAt       time.Time
}

// ExchangeRate is a user-supplied static rate expressing how many anchor
// units one unit of CurrencyCode is worth.
type ExchangeRate struct {
	UserID       uuid.UUID
	CurrencyCode string
	RateToAnchor decimal.Decimal
	UpdatedAt    time.Time
}
