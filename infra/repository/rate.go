package repository

import (
	"context"
	"time"

	"github.com/Komversa/moneyapp/pkg/domain"
	repo "github.com/Komversa/moneyapp/pkg/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type rateRepository struct {
	db *gorm.DB
}

func NewRateRepository(db *gorm.DB) repo.ExchangeRateRepository {
	return &rateRepository{db: db}
}

func (r *rateRepository) GetMany(ctx context.Context, userID uuid.UUID, codes []string) (map[string]decimal.Decimal, error) {
	if len(codes) == 0 {
		return map[string]decimal.Decimal{}, nil
	}
	var models []ExchangeRate
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND currency_code IN ?", userID, codes).
		Find(&models).Error
	if err != nil {
		return nil, mapGormError(err)
	}
	out := make(map[string]decimal.Decimal, len(models))
	for _, m := range models {
		out[m.CurrencyCode] = m.RateToAnchor
	}
	return out, nil
}

func (r *rateRepository) List(ctx context.Context, userID uuid.UUID) ([]*domain.ExchangeRate, error) {
	var models []ExchangeRate
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("currency_code ASC").
		Find(&models).Error
	if err != nil {
		return nil, mapGormError(err)
	}
	items := make([]*domain.ExchangeRate, 0, len(models))
	for _, m := range models {
		items = append(items, &domain.ExchangeRate{
			UserID:       m.UserID,
			CurrencyCode: m.CurrencyCode,
			RateToAnchor: m.RateToAnchor,
			UpdatedAt:    m.UpdatedAt,
		})
	}
	return items, nil
}

func (r *rateRepository) Upsert(ctx context.Context, userID uuid.UUID, code string, rate decimal.Decimal) error {
	m := ExchangeRate{
		UserID:       userID,
		CurrencyCode: code,
		RateToAnchor: rate,
		UpdatedAt:    time.Now().UTC(),
	}
	return mapGormError(r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "currency_code"}},
			DoUpdates: clause.AssignmentColumns([]string{"rate_to_anchor", "updated_at"}),
		}).
		Create(&m).Error)
}

func (r *rateRepository) Delete(ctx context.Context, userID uuid.UUID, code string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND currency_code = ?", userID, code).
		Delete(&ExchangeRate{})
	if res.Error != nil {
		return 0, mapGormError(res.Error)
	}
	return res.RowsAffected, nil
}

// ReplaceAll swaps the user's whole rate set in place. Callers run it inside
// an ambient transaction so the delete and the inserts commit together.
func (r *rateRepository) ReplaceAll(ctx context.Context, userID uuid.UUID, rates map[string]decimal.Decimal) error {
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&ExchangeRate{}).Error; err != nil {
		return mapGormError(err)
	}
	if len(rates) == 0 {
		return nil
	}
	now := time.Now().UTC()
	models := make([]ExchangeRate, 0, len(rates))
	for code, rate := range rates {
		models = append(models, ExchangeRate{
			UserID:       userID,
			CurrencyCode: code,
			RateToAnchor: rate,
			UpdatedAt:    now,
		})
	}
	return mapGormError(r.db.WithContext(ctx).Create(&models).Error)
}
