package repository

import (
	"context"

	"github.com/Komversa/moneyapp/pkg/domain"
	repo "github.com/Komversa/moneyapp/pkg/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates an account repository over the provided
// session, which may be a transaction handle.
func NewAccountRepository(db *gorm.DB) repo.AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Get(ctx context.Context, userID, id uuid.UUID) (*domain.Account, error) {
	var m Account
	err := r.db.WithContext(ctx).
		Preload("Debt").
		Where("id = ? AND user_id = ?", id, userID).
		First(&m).Error
	if err != nil {
		return nil, mapGormError(err)
	}
	return accountToDomain(&m), nil
}

func (r *accountRepository) GetForUpdate(ctx context.Context, userID, id uuid.UUID) (*domain.Account, error) {
	var m Account
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND user_id = ?", id, userID).
		First(&m).Error
	if err != nil {
		return nil, mapGormError(err)
	}
	return accountToDomain(&m), nil
}

func (r *accountRepository) UpdateBalance(ctx context.Context, userID, id uuid.UUID, balance decimal.Decimal) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&Account{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("current_balance", balance)
	if res.Error != nil {
		return 0, mapGormError(res.Error)
	}
	return res.RowsAffected, nil
}

func (r *accountRepository) Create(ctx context.Context, a *domain.Account) error {
	m := accountFromDomain(a)
	return mapGormError(r.db.WithContext(ctx).Create(m).Error)
}
