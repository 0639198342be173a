// Package dto defines the data transfer objects crossing the service
// boundary: create/update commands validated with struct tags, patch DTOs
// with optional fields, and read-optimized projections.
package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionCreate is the command for recording a new financial movement.
type TransactionCreate struct {
	Type            string          `validate:"required,oneof=income expense transfer debt_payment"`
	Amount          decimal.Decimal `validate:"required"`
	CategoryID      *uuid.UUID
	FromAccountID   *uuid.UUID
	ToAccountID     *uuid.UUID
	TransactionDate time.Time `validate:"required"`
	Description     string    `validate:"max=500"`
}

// TransactionUpdate is a partial patch; nil fields keep their current value.
// Pointer-to-pointer fields distinguish "leave unchanged" (outer nil) from
// "clear" (inner nil).
type TransactionUpdate struct {
	Type            *string `validate:"omitempty,oneof=income expense transfer debt_payment"`
	Amount          *decimal.Decimal
	CategoryID      **uuid.UUID
	FromAccountID   **uuid.UUID
	ToAccountID     **uuid.UUID
	TransactionDate *time.Time
	Description     *string `validate:"omitempty,max=500"`
}

// TransactionRead is the read projection returned to callers, joined with
// display names and an amount converted to the user's primary currency.
type TransactionRead struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	Type            string
	Amount          decimal.Decimal
	CurrencyCode    string
	CategoryID      *uuid.UUID
	CategoryName    string
	FromAccountID   *uuid.UUID
	FromAccountName string
	ToAccountID     *uuid.UUID
	ToAccountName   string
	TransactionDate time.Time
	Description     string
	CreatedAt       time.Time

	// ConvertedAmount expresses Amount in ConvertedCurrency (the user's
	// primary currency). When no rate path exists the original amount is
	// carried over unchanged.
	ConvertedAmount   decimal.Decimal
	ConvertedCurrency string
}

// TransactionFilter narrows and pages a transaction listing.
type TransactionFilter struct {
	DateFrom   *time.Time
	DateTo     *time.Time
	Type       *string `validate:"omitempty,oneof=income expense transfer debt_payment"`
	AccountID  *uuid.UUID
	CategoryID *uuid.UUID
	Limit      int `validate:"omitempty,min=1,max=200"`
	Offset     int `validate:"omitempty,min=0"`
}

// TransactionList is a page of transactions plus the unpaged total.
type TransactionList struct {
	Items      []*TransactionRead
	TotalCount int64
}
