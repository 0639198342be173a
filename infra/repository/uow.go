package repository

import (
	"context"

	repo "github.com/Komversa/moneyapp/pkg/repository"
	"gorm.io/gorm"
)

// UoW is the GORM unit of work. Outside Do its accessors run against the
// base connection; inside Do they are bound to the open transaction, so
// every repository call in the function shares one atomic scope.
type UoW struct {
	db   *gorm.DB
	inTx bool
}

// NewUoW wraps a GORM connection in a unit of work.
func NewUoW(db *gorm.DB) *UoW {
	return &UoW{db: db}
}

// Do runs fn inside a database transaction. fn receives a unit of work bound
// to that transaction; returning an error rolls everything back. A nested Do
// joins the ambient transaction instead of opening a second one.
func (u *UoW) Do(ctx context.Context, fn func(uow repo.UnitOfWork) error) error {
	if u.inTx {
		return fn(u)
	}
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&UoW{db: tx, inTx: true})
	})
}

func (u *UoW) Accounts() repo.AccountRepository {
	return NewAccountRepository(u.db)
}

func (u *UoW) Categories() repo.CategoryRepository {
	return NewCategoryRepository(u.db)
}

func (u *UoW) Transactions() repo.TransactionRepository {
	return NewTransactionRepository(u.db)
}

func (u *UoW) Schedules() repo.ScheduledTransactionRepository {
	return NewScheduleRepository(u.db)
}

func (u *UoW) Rates() repo.ExchangeRateRepository {
	return NewRateRepository(u.db)
}

func (u *UoW) Settings() repo.UserSettingsRepository {
	return NewSettingsRepository(u.db)
}
