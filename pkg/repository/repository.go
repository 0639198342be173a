// Package repository defines the persistence contracts the ledger services
// depend on. Implementations live under infra/repository; every lookup is
// filtered by the owning user so cross-owner references surface as not-found.
package repository

import (
	"context"
	"time"

	"github.com/Komversa/moneyapp/pkg/domain"
	"github.com/Komversa/moneyapp/pkg/dto"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountRepository reads and writes user accounts.
type AccountRepository interface {
	// Get returns the account only when it belongs to userID.
	Get(ctx context.Context, userID, id uuid.UUID) (*domain.Account, error)
	// GetForUpdate behaves like Get but takes a row-level write lock, so a
	// concurrent balance mutation on the same account blocks until the
	// ambient transaction finishes.
	GetForUpdate(ctx context.Context, userID, id uuid.UUID) (*domain.Account, error)
	// UpdateBalance writes current_balance for the user's account and
	// returns the number of rows matched. Zero rows means the account is
	// gone or not owned.
	UpdateBalance(ctx context.Context, userID, id uuid.UUID, balance decimal.Decimal) (int64, error)
	// Create persists a new account, together with its DebtDetails when the
	// account is a liability.
	Create(ctx context.Context, a *domain.Account) error
}

// CategoryRepository reads user categories.
type CategoryRepository interface {
	Get(ctx context.Context, userID, id uuid.UUID) (*domain.Category, error)
	Create(ctx context.Context, c *domain.Category) error
}

// TransactionRepository persists financial movements.
type TransactionRepository interface {
	Create(ctx context.Context, t *domain.Transaction) error
	Get(ctx context.Context, userID, id uuid.UUID) (*domain.Transaction, error)
	Update(ctx context.Context, t *domain.Transaction) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
	// List returns the filtered page and the unpaged total count.
	List(ctx context.Context, userID uuid.UUID, filter dto.TransactionFilter) ([]*domain.Transaction, int64, error)
}

// ScheduledTransactionRepository persists recurring-transaction templates.
type ScheduledTransactionRepository interface {
	Create(ctx context.Context, s *domain.ScheduledTransaction) error
	Get(ctx context.Context, userID, id uuid.UUID) (*domain.ScheduledTransaction, error)
	// GetDueForUpdate locks one schedule row and returns it only if it is
	// still active and due at now; otherwise not-found. The lock plus the
	// re-check is what keeps overlapping sweeps from double-firing.
	GetDueForUpdate(ctx context.Context, id uuid.UUID, now time.Time) (*domain.ScheduledTransaction, error)
	Update(ctx context.Context, s *domain.ScheduledTransaction) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.ScheduledTransaction, error)
	// ListDue returns ids of active schedules with next_run_date <= now,
	// ordered by next_run_date ascending.
	ListDue(ctx context.Context, now time.Time) ([]uuid.UUID, error)
}

// ExchangeRateRepository persists per-user rates against the anchor.
type ExchangeRateRepository interface {
	// GetMany fetches the rates for the given currency codes in one query.
	// Codes without a stored rate are simply absent from the result.
	GetMany(ctx context.Context, userID uuid.UUID, codes []string) (map[string]decimal.Decimal, error)
	List(ctx context.Context, userID uuid.UUID) ([]*domain.ExchangeRate, error)
	// Upsert inserts or replaces the rate keyed by (user, currency).
	Upsert(ctx context.Context, userID uuid.UUID, code string, rate decimal.Decimal) error
	// Delete removes the rate and returns the number of rows removed.
	Delete(ctx context.Context, userID uuid.UUID, code string) (int64, error)
	// ReplaceAll atomically swaps the user's whole rate set, used when the
	// anchor currency changes.
	ReplaceAll(ctx context.Context, userID uuid.UUID, rates map[string]decimal.Decimal) error
}

// UserSettingsRepository reads and writes per-user ledger settings.
type UserSettingsRepository interface {
	Get(ctx context.Context, userID uuid.UUID) (*domain.UserSettings, error)
	// GetForUpdate locks the settings row so rate reads and anchor switches
	// serialize against each other.
	GetForUpdate(ctx context.Context, userID uuid.UUID) (*domain.UserSettings, error)
	Update(ctx context.Context, s *domain.UserSettings) error
	Create(ctx context.Context, s *domain.UserSettings) error
}
