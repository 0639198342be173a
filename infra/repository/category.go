package repository

import (
	"context"

	"github.com/Komversa/moneyapp/pkg/domain"
	repo "github.com/Komversa/moneyapp/pkg/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type categoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) repo.CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) Get(ctx context.Context, userID, id uuid.UUID) (*domain.Category, error) {
	var m Category
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&m).Error
	if err != nil {
		return nil, mapGormError(err)
	}
	return &domain.Category{
		ID:     m.ID,
		UserID: m.UserID,
		Name:   m.Name,
		Type:   domain.TransactionType(m.Type),
	}, nil
}

func (r *categoryRepository) Create(ctx context.Context, c *domain.Category) error {
	m := &Category{
		ID:     c.ID,
		UserID: c.UserID,
		Name:   c.Name,
		Type:   string(c.Type),
	}
	return mapGormError(r.db.WithContext(ctx).Create(m).Error)
}
