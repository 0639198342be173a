package repository

import (
	"context"

	"github.com/Komversa/moneyapp/pkg/domain"
	"github.com/Komversa/moneyapp/pkg/dto"
	repo "github.com/Komversa/moneyapp/pkg/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type transactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) repo.TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Create(ctx context.Context, t *domain.Transaction) error {
	m := transactionFromDomain(t)
	return mapGormError(r.db.WithContext(ctx).Create(m).Error)
}

func (r *transactionRepository) Get(ctx context.Context, userID, id uuid.UUID) (*domain.Transaction, error) {
	var m Transaction
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&m).Error
	if err != nil {
		return nil, mapGormError(err)
	}
	return transactionToDomain(&m), nil
}

func (r *transactionRepository) Update(ctx context.Context, t *domain.Transaction) error {
	m := transactionFromDomain(t)
	res := r.db.WithContext(ctx).
		Model(&Transaction{}).
		Where("id = ? AND user_id = ?", t.ID, t.UserID).
		Select("*").
		Omit("id", "user_id", "created_at").
		Updates(m)
	if res.Error != nil {
		return mapGormError(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *transactionRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&Transaction{})
	if res.Error != nil {
		return mapGormError(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *transactionRepository) List(ctx context.Context, userID uuid.UUID, filter dto.TransactionFilter) ([]*domain.Transaction, int64, error) {
	q := r.db.WithContext(ctx).Model(&Transaction{}).Where("user_id = ?", userID)
	if filter.DateFrom != nil {
		q = q.Where("transaction_date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		q = q.Where("transaction_date <= ?", *filter.DateTo)
	}
	if filter.Type != nil {
		q = q.Where("type = ?", *filter.Type)
	}
	if filter.AccountID != nil {
		q = q.Where("from_account_id = ? OR to_account_id = ?", *filter.AccountID, *filter.AccountID)
	}
	if filter.CategoryID != nil {
		q = q.Where("category_id = ?", *filter.CategoryID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, mapGormError(err)
	}

	var models []Transaction
	err := q.Order("transaction_date DESC, created_at DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&models).Error
	if err != nil {
		return nil, 0, mapGormError(err)
	}

	items := make([]*domain.Transaction, 0, len(models))
	for i := range models {
		items = append(items, transactionToDomain(&models[i]))
	}
	return items, total, nil
}
