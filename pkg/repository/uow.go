package repository

import "context"

// UnitOfWork is the transaction boundary every balance-affecting operation
// runs inside. Do executes fn within one database transaction; any error
// rolls the whole operation back, so validation failures and balance-write
// failures alike leave no partial state behind.
//
// Repository accessors return repositories bound to the current session:
// inside Do they share fn's transaction, outside Do they use the base
// connection. Services that must participate in a caller's atomic scope
// (the balance ledger, conversion lookups inside the engine) take the
// UnitOfWork they were invoked with rather than opening their own.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(uow UnitOfWork) error) error

	Accounts() AccountRepository
	Categories() CategoryRepository
	Transactions() TransactionRepository
	Schedules() ScheduledTransactionRepository
	Rates() ExchangeRateRepository
	Settings() UserSettingsRepository
}
