package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Frequency is the cadence a scheduled transaction fires on.
type Frequency string

const (
	FrequencyOnce    Frequency = "once"
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyOnce, FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

// ScheduledTransaction is a template that the scheduler materializes into a
// real transaction whenever NextRunDate comes due. Firing either advances
// NextRunDate by the frequency or deactivates the schedule when no further
// occurrence fits the end window.
type ScheduledTransaction struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	TransactionType TransactionType
	Amount          decimal.Decimal
	CurrencyCode    string
	Description     string
	CategoryID      *uuid.UUID
	SourceAccountID *uuid.UUID
	DestAccountID   *uuid.UUID
	Frequency       Frequency
	StartDate       time.Time
	StartTime       string // "15:04", combined with StartDate in local time
	EndDate         *time.Time
	EndTime         *string
	NextRunDate     *time.Time
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ValidateStructure applies the same from/to rules as an ordinary
// transaction of the schedule's type.
func (s *ScheduledTransaction) ValidateStructure() error {
	probe := Transaction{
		Type:          s.TransactionType,
		FromAccountID: s.SourceAccountID,
		ToAccountID:   s.DestAccountID,
	}
	return probe.ValidateStructure()
}

// CombineDateTime merges a calendar date with an "HH:MM" clock time in the
// date's own location. No timezone coercion happens: the user's local sense
// of "09:00" stays "09:00".
func CombineDateTime(date time.Time, clock string) (time.Time, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: %w", clock, err)
	}
	return time.Date(
		date.Year(), date.Month(), date.Day(),
		t.Hour(), t.Minute(), 0, 0,
		date.Location(),
	), nil
}

// FirstRunAt returns the first occurrence of the schedule. For
// FrequencyOnce this is the only occurrence.
func (s *ScheduledTransaction) FirstRunAt() (time.Time, error) {
	return CombineDateTime(s.StartDate, s.StartTime)
}

// EndAt returns the end of the schedule's window, or false when it is
// open-ended. A missing end time means the end of the end date's day.
func (s *ScheduledTransaction) EndAt() (time.Time, bool, error) {
	if s.EndDate == nil {
		return time.Time{}, false, nil
	}
	clock := "23:59"
	if s.EndTime != nil && *s.EndTime != "" {
		clock = *s.EndTime
	}
	end, err := CombineDateTime(*s.EndDate, clock)
	if err != nil {
		return time.Time{}, false, err
	}
	return end, true, nil
}

// NextAfter advances a run date by one frequency step. The second return is
// false when the frequency never recurs (once).
func NextAfter(current time.Time, f Frequency) (time.Time, bool) {
	switch f {
	case FrequencyDaily:
		return current.AddDate(0, 0, 1), true
	case FrequencyWeekly:
		return current.AddDate(0, 0, 7), true
	case FrequencyMonthly:
		return current.AddDate(0, 1, 0), true
	default:
		return time.Time{}, false
	}
}

// Advance computes the schedule's state after a firing at its current
// NextRunDate: either the next run date, or inactive when the frequency is
// once or the next occurrence falls past the end window.
func (s *ScheduledTransaction) Advance() (next *time.Time, stillActive bool, err error) {
	if s.NextRunDate == nil {
		return nil, false, nil
	}
	candidate, recurs := NextAfter(*s.NextRunDate, s.Frequency)
	if !recurs {
		return nil, false, nil
	}
	end, bounded, err := s.EndAt()
	if err != nil {
		return nil, false, err
	}
	if bounded && candidate.After(end) {
		return nil, false, nil
	}
	return &candidate, true, nil
}
