package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType enumerates the four kinds of financial movement.
type TransactionType string

const (
	TypeIncome      TransactionType = "income"
	TypeExpense     TransactionType = "expense"
	TypeTransfer    TransactionType = "transfer"
	TypeDebtPayment TransactionType = "debt_payment"
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	switch t {
	case TypeIncome, TypeExpense, TypeTransfer, TypeDebtPayment:
		return true
	}
	return false
}

// Transaction is a recorded financial movement. CurrencyCode is a snapshot of
// the economically relevant account's currency taken when the record was
// written, not recomputed on later reads.
type Transaction struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	Type            TransactionType
	Amount          decimal.Decimal
	CurrencyCode    string
	CategoryID      *uuid.UUID
	FromAccountID   *uuid.UUID
	ToAccountID     *uuid.UUID
	TransactionDate time.Time
	Description     string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ValidateStructure checks the from/to account combination against the rules
// for the transaction's type:
//
//	income:       no source, destination required
//	expense:      source required, no destination
//	transfer:     both required, distinct
//	debt_payment: both required, distinct (destination must additionally be a
//	              liability, which needs the loaded account and is checked by
//	              the engine)
//
// A violation is returned as a *StructuralError.
func (t *Transaction) ValidateStructure() error {
	if !t.Type.Valid() {
		return &StructuralError{Type: t.Type, Reason: "unknown transaction type"}
	}
	switch t.Type {
	case TypeIncome:
		if t.FromAccountID != nil {
			return &StructuralError{Type: t.Type, Reason: "source account must not be set"}
		}
		if t.ToAccountID == nil {
			return &StructuralError{Type: t.Type, Reason: "destination account is required"}
		}
	case TypeExpense:
		if t.FromAccountID == nil {
			return &StructuralError{Type: t.Type, Reason: "source account is required"}
		}
		if t.ToAccountID != nil {
			return &StructuralError{Type: t.Type, Reason: "destination account must not be set"}
		}
	case TypeTransfer, TypeDebtPayment:
		if t.FromAccountID == nil {
			return &StructuralError{Type: t.Type, Reason: "source account is required"}
		}
		if t.ToAccountID == nil {
			return &StructuralError{Type: t.Type, Reason: "destination account is required"}
		}
		if *t.FromAccountID == *t.ToAccountID {
			return &StructuralError{Type: t.Type, Reason: "source and destination must differ"}
		}
	}
	return nil
}

// MovesBothAccounts reports whether the type debits a source and credits a
// destination. Debt payments follow transfer balance math.
func (t TransactionType) MovesBothAccounts() bool {
	return t == TypeTransfer || t == TypeDebtPayment
}
