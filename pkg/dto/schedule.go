package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ScheduleCreate is the command for registering a recurring movement.
type ScheduleCreate struct {
	TransactionType string          `validate:"required,oneof=income expense transfer debt_payment"`
	Amount          decimal.Decimal `validate:"required"`
	Description     string          `validate:"max=500"`
	CategoryID      *uuid.UUID
	SourceAccountID *uuid.UUID
	DestAccountID   *uuid.UUID
	Frequency       string    `validate:"required,oneof=once daily weekly monthly"`
	StartDate       time.Time `validate:"required"`
	StartTime       string    `validate:"required"`
	EndDate         *time.Time
	EndTime         *string
}

// ScheduleUpdate is a partial patch over an existing schedule.
type ScheduleUpdate struct {
	Amount      *decimal.Decimal
	Description *string `validate:"omitempty,max=500"`
	CategoryID  **uuid.UUID
	Frequency   *string `validate:"omitempty,oneof=once daily weekly monthly"`
	StartDate   *time.Time
	StartTime   *string
	EndDate     **time.Time
	EndTime     **string
	IsActive    *bool
}

// ScheduleRead is the read projection of a scheduled transaction.
type ScheduleRead struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	TransactionType string
	Amount          decimal.Decimal
	CurrencyCode    string
	Description     string
	CategoryID      *uuid.UUID
	SourceAccountID *uuid.UUID
	DestAccountID   *uuid.UUID
	Frequency       string
	StartDate       time.Time
	StartTime       string
	EndDate         *time.Time
	EndTime         *string
	NextRunDate     *time.Time
	IsActive        bool
	CreatedAt       time.Time
}

// SchedulerStatus reports the scheduler's lifecycle state for observability.
type SchedulerStatus struct {
	IsRunning      bool
	HasActiveTimer bool
}

// SweepResult summarizes one pass over the due schedules.
type SweepResult struct {
	Due          int
	Materialized int
	Failed       int
}
