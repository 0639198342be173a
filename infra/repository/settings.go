package repository

import (
	"context"

	"github.com/Komversa/moneyapp/pkg/domain"
	repo "github.com/Komversa/moneyapp/pkg/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type settingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) repo.UserSettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) Get(ctx context.Context, userID uuid.UUID) (*domain.UserSettings, error) {
	var m UserSettings
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&m).Error
	if err != nil {
		return nil, mapGormError(err)
	}
	return settingsToDomain(&m), nil
}

func (r *settingsRepository) GetForUpdate(ctx context.Context, userID uuid.UUID) (*domain.UserSettings, error) {
	var m UserSettings
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&m).Error
	if err != nil {
		return nil, mapGormError(err)
	}
	return settingsToDomain(&m), nil
}

func (r *settingsRepository) Update(ctx context.Context, s *domain.UserSettings) error {
	res := r.db.WithContext(ctx).
		Model(&UserSettings{}).
		Where("user_id = ?", s.UserID).
		Updates(map[string]any{
			"primary_currency": s.PrimaryCurrency,
			"updated_at":       s.UpdatedAt,
		})
	if res.Error != nil {
		return mapGormError(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *settingsRepository) Create(ctx context.Context, s *domain.UserSettings) error {
	m := &UserSettings{
		UserID:          s.UserID,
		PrimaryCurrency: s.PrimaryCurrency,
		UpdatedAt:       s.UpdatedAt,
	}
	return mapGormError(r.db.WithContext(ctx).Create(m).Error)
}

func settingsToDomain(m *UserSettings) *domain.UserSettings {
	return &domain.UserSettings{
		UserID:          m.UserID,
		PrimaryCurrency: m.PrimaryCurrency,
		UpdatedAt:       m.UpdatedAt,
	}
}
