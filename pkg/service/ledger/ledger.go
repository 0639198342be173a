// Package ledger performs the guarded balance write at the bottom of every
// balance-affecting operation.
package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Komversa/moneyapp/pkg/domain"
	"github.com/Komversa/moneyapp/pkg/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ledger writes account balances inside the caller's atomic scope. It never
// opens its own transaction: it is always one step of a larger all-or-nothing
// operation, so it takes that operation's UnitOfWork.
type Ledger struct {
	logger *slog.Logger
}

// New creates a balance ledger.
func New(logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{logger: logger.With("service", "Ledger")}
}

// ApplyBalance writes the account's new current balance, enforcing that the
// account belongs to userID. Zero matched rows surfaces ErrAccountNotFound,
// which aborts (and rolls back) the ambient operation.
func (l *Ledger) ApplyBalance(
	ctx context.Context,
	uow repository.UnitOfWork,
	userID, accountID uuid.UUID,
	newBalance decimal.Decimal,
) error {
	rows, err := uow.Accounts().UpdateBalance(ctx, userID, accountID, newBalance)
	if err != nil {
		return fmt.Errorf("writing balance for account %s: %w", accountID, err)
	}
	if rows == 0 {
		return fmt.Errorf("account %s: %w", accountID, domain.ErrAccountNotFound)
	}
	l.logger.Debug("balance applied",
		"user_id", userID, "account_id", accountID, "balance", newBalance)
	return nil
}
