package repository

import (
	"context"
	"time"

	"github.com/Komversa/moneyapp/pkg/domain"
	repo "github.com/Komversa/moneyapp/pkg/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type scheduleRepository struct {
	db *gorm.DB
}

func NewScheduleRepository(db *gorm.DB) repo.ScheduledTransactionRepository {
	return &scheduleRepository{db: db}
}

func (r *scheduleRepository) Create(ctx context.Context, s *domain.ScheduledTransaction) error {
	m := scheduleFromDomain(s)
	return mapGormError(r.db.WithContext(ctx).Create(m).Error)
}

func (r *scheduleRepository) Get(ctx context.Context, userID, id uuid.UUID) (*domain.ScheduledTransaction, error) {
	var m ScheduledTransaction
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&m).Error
	if err != nil {
		return nil, mapGormError(err)
	}
	return scheduleToDomain(&m), nil
}

// GetDueForUpdate locks the schedule row and re-checks that it is still
// active and due. SKIP LOCKED makes concurrent sweeps pass over rows another
// sweep is already firing instead of queueing behind them.
func (r *scheduleRepository) GetDueForUpdate(ctx context.Context, id uuid.UUID, now time.Time) (*domain.ScheduledTransaction, error) {
	var m ScheduledTransaction
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("id = ? AND is_active = ? AND next_run_date IS NOT NULL AND next_run_date <= ?",
			id, true, now).
		First(&m).Error
	if err != nil {
		return nil, mapGormError(err)
	}
	return scheduleToDomain(&m), nil
}

func (r *scheduleRepository) Update(ctx context.Context, s *domain.ScheduledTransaction) error {
	m := scheduleFromDomain(s)
	res := r.db.WithContext(ctx).
		Model(&ScheduledTransaction{}).
		Where("id = ? AND user_id = ?", s.ID, s.UserID).
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

func (r *scheduleRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&ScheduledTransaction{})
	if res.Error != nil {
		return mapGormError(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *scheduleRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.ScheduledTransaction, error) {
	var models []ScheduledTransaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, mapGormError(err)
	}
	items := make([]*domain.ScheduledTransaction, 0, len(models))
	for i := range models {
		items = append(items, scheduleToDomain(&models[i]))
	}
	return items, nil
}

func (r *scheduleRepository) ListDue(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&ScheduledTransaction{}).
		Where("is_active = ? AND next_run_date IS NOT NULL AND next_run_date <= ?", true, now).
		Order("next_run_date ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, mapGormError(err)
	}
	return ids, nil
}
