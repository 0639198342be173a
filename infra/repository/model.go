// Package repository provides the GORM-backed implementations of the
// persistence contracts in pkg/repository.
package repository

import (
	"time"

	"github.com/Komversa/moneyapp/pkg/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Account is the persistence model for a user account. Monetary columns are
// numeric(20,6); six fractional digits is the scale conversions round to.
type Account struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UserID         uuid.UUID       `gorm:"type:uuid;index;not null"`
	Name           string          `gorm:"size:255;not null"`
	Category       string          `gorm:"size:20;not null;default:'asset'"`
	Currency       string          `gorm:"type:varchar(3);not null"`
	InitialBalance decimal.Decimal `gorm:"type:numeric(20,6);not null"`
	CurrentBalance decimal.Decimal `gorm:"type:numeric(20,6);not null"`
	AccountTypeID  uuid.UUID       `gorm:"type:uuid"`
	Debt           *DebtDetails    `gorm:"foreignKey:AccountID"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DebtDetails extends a liability account 1:1.
type DebtDetails struct {
	AccountID      uuid.UUID       `gorm:"type:uuid;primaryKey"`
	InterestRate   decimal.Decimal `gorm:"type:numeric(10,6)"`
	DueDate        time.Time
	OriginalAmount decimal.Decimal `gorm:"type:numeric(20,6)"`
}

type Category struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID uuid.UUID `gorm:"type:uuid;index;not null"`
	Name   string    `gorm:"size:255;not null"`
	Type   string    `gorm:"size:20;not null"`
}

type Transaction struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UserID          uuid.UUID       `gorm:"type:uuid;index;not null"`
	Type            string          `gorm:"size:20;not null"`
	Amount          decimal.Decimal `gorm:"type:numeric(20,6);not null"`
	CurrencyCode    string          `gorm:"type:varchar(3);not null"`
	CategoryID      *uuid.UUID      `gorm:"type:uuid"`
	FromAccountID   *uuid.UUID      `gorm:"type:uuid;index"`
	ToAccountID     *uuid.UUID      `gorm:"type:uuid;index"`
	TransactionDate time.Time       `gorm:"index;not null"`
	Description     string          `gorm:"size:500"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type ScheduledTransaction struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UserID          uuid.UUID       `gorm:"type:uuid;index;not null"`
	TransactionType string          `gorm:"size:20;not null"`
	Amount          decimal.Decimal `gorm:"type:numeric(20,6);not null"`
	CurrencyCode    string          `gorm:"type:varchar(3);not null"`
	Description     string          `gorm:"size:500"`
	CategoryID      *uuid.UUID      `gorm:"type:uuid"`
	SourceAccountID *uuid.UUID      `gorm:"type:uuid"`
	DestAccountID   *uuid.UUID      `gorm:"type:uuid"`
	Frequency       string          `gorm:"size:10;not null"`
	StartDate       time.Time       `gorm:"not null"`
	StartTime       string          `gorm:"size:5;not null"`
	EndDate         *time.Time
	EndTime         *string    `gorm:"size:5"`
	NextRunDate     *time.Time `gorm:"index"`
	IsActive        bool       `gorm:"index;not null;default:true"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ExchangeRate is keyed by (user, currency): one stored rate per currency
// against the user's anchor.
type ExchangeRate struct {
	UserID       uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CurrencyCode string          `gorm:"type:varchar(3);primaryKey"`
	RateToAnchor decimal.Decimal `gorm:"type:numeric(20,6);not null"`
	UpdatedAt    time.Time
}

type UserSettings struct {
	UserID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	PrimaryCurrency string    `gorm:"type:varchar(3);not null;default:'USD'"`
	UpdatedAt       time.Time
}

// Migrate creates or updates the ledger schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Account{},
		&DebtDetails{},
		&Category{},
		&Transaction{},
		&ScheduledTransaction{},
		&ExchangeRate{},
		&UserSettings{},
	)
}

func accountToDomain(m *Account) *domain.Account {
	a := &domain.Account{
		ID:             m.ID,
		UserID:         m.UserID,
		Name:           m.Name,
		Category:       domain.AccountCategory(m.Category),
		Currency:       m.Currency,
		InitialBalance: m.InitialBalance,
		CurrentBalance: m.CurrentBalance,
		AccountTypeID:  m.AccountTypeID,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
	if m.Debt != nil {
		a.Debt = &domain.DebtDetails{
			AccountID:      m.Debt.AccountID,
			InterestRate:   m.Debt.InterestRate,
			DueDate:        m.Debt.DueDate,
			OriginalAmount: m.Debt.OriginalAmount,
		}
	}
	return a
}

func accountFromDomain(a *domain.Account) *Account {
	m := &Account{
		ID:             a.ID,
		UserID:         a.UserID,
		Name:           a.Name,
		Category:       string(a.Category),
		Currency:       a.Currency,
		InitialBalance: a.InitialBalance,
		CurrentBalance: a.CurrentBalance,
		AccountTypeID:  a.AccountTypeID,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
	if a.Debt != nil {
		m.Debt = &DebtDetails{
			AccountID:      a.ID,
			InterestRate:   a.Debt.InterestRate,
			DueDate:        a.Debt.DueDate,
			OriginalAmount: a.Debt.OriginalAmount,
		}
	}
	return m
}

func transactionToDomain(m *Transaction) *domain.Transaction {
	return &domain.Transaction{
		ID:              m.ID,
		UserID:          m.UserID,
		Type:            domain.TransactionType(m.Type),
		Amount:          m.Amount,
		CurrencyCode:    m.CurrencyCode,
		CategoryID:      m.CategoryID,
		FromAccountID:   m.FromAccountID,
		ToAccountID:     m.ToAccountID,
		TransactionDate: m.TransactionDate,
		Description:     m.Description,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func transactionFromDomain(t *domain.Transaction) *Transaction {
	return &Transaction{
		ID:              t.ID,
		UserID:          t.UserID,
		Type:            string(t.Type),
		Amount:          t.Amount,
		CurrencyCode:    t.CurrencyCode,
		CategoryID:      t.CategoryID,
		FromAccountID:   t.FromAccountID,
		ToAccountID:     t.ToAccountID,
		TransactionDate: t.TransactionDate,
		Description:     t.Description,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

func scheduleToDomain(m *ScheduledTransaction) *domain.ScheduledTransaction {
	return &domain.ScheduledTransaction{
		ID:              m.ID,
		UserID:          m.UserID,
		TransactionType: domain.TransactionType(m.TransactionType),
		Amount:          m.Amount,
		CurrencyCode:    m.CurrencyCode,
		Description:     m.Description,
		CategoryID:      m.CategoryID,
		SourceAccountID: m.SourceAccountID,
		DestAccountID:   m.DestAccountID,
		Frequency:       domain.Frequency(m.Frequency),
		StartDate:       m.StartDate,
		StartTime:       m.StartTime,
		EndDate:         m.EndDate,
		EndTime:         m.EndTime,
		NextRunDate:     m.NextRunDate,
		IsActive:        m.IsActive,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func scheduleFromDomain(s *domain.ScheduledTransaction) *ScheduledTransaction {
	return &ScheduledTransaction{
		ID:              s.ID,
		UserID:          s.UserID,
		TransactionType: string(s.TransactionType),
		Amount:          s.Amount,
		CurrencyCode:    s.CurrencyCode,
		Description:     s.Description,
		CategoryID:      s.CategoryID,
		SourceAccountID: s.SourceAccountID,
		DestAccountID:   s.DestAccountID,
		Frequency:       string(s.Frequency),
		StartDate:       s.StartDate,
		StartTime:       s.StartTime,
		EndDate:         s.EndDate,
		EndTime:         s.EndTime,
		NextRunDate:     s.NextRunDate,
		IsActive:        s.IsActive,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}
