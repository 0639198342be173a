// Package scheduler materializes due scheduled transactions on a periodic
// sweep and manages the schedule templates themselves.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Komversa/moneyapp/pkg/domain"
	"github.com/Komversa/moneyapp/pkg/dto"
	"github.com/Komversa/moneyapp/pkg/repository"
	"github.com/Komversa/moneyapp/pkg/service/transaction"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// DefaultSweepInterval is the cadence of the periodic sweep.
const DefaultSweepInterval = time.Hour

// SweepLock guards the sweep against concurrent scheduler instances. A nil
// lock means single-instance deployment; the per-schedule row locks still
// prevent double-firing, the process lock just avoids wasted overlapping
// sweeps.
type SweepLock interface {
	// TryLock attempts to take the lock without blocking; false means
	// another instance holds it.
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
}

// Scheduler owns the sweep lifecycle and the scheduled-transaction CRUD. It
// is constructed once at process start and injected where needed; there is
// no package-level singleton.
type Scheduler struct {
	uow      repository.UnitOfWork
	engine   *transaction.Engine
	lock     SweepLock
	interval time.Duration
	validate *validator.Validate
	logger   *slog.Logger

	mu       sync.Mutex
	running  bool
	ticker   *time.Ticker
	done     chan struct{}
	sweeping bool
}

// New creates a scheduler. The transaction engine is injected at
// construction time; lock may be nil.
func New(
	uow repository.UnitOfWork,
	engine *transaction.Engine,
	lock SweepLock,
	interval time.Duration,
	logger *slog.Logger,
) *Scheduler {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		uow:      uow,
		engine:   engine,
		lock:     lock,
		interval: interval,
		validate: validator.New(),
		logger:   logger.With("service", "Scheduler"),
	}
}

// Start launches the periodic sweep. Calling Start on a running scheduler is
// a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.ticker = time.NewTicker(s.interval)
	s.done = make(chan struct{})

	go s.loop(ctx, s.ticker, s.done)
	s.logger.Info("scheduler started", "interval", s.interval)
}

// Stop halts the periodic sweep. An in-flight sweep finishes its current
// schedule set.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	s.ticker.Stop()
	close(s.done)
	s.ticker = nil
	s.logger.Info("scheduler stopped")
}

// Status reports the scheduler's lifecycle state.
func (s *Scheduler) Status() dto.SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return dto.SchedulerStatus{
		IsRunning:      s.running,
		HasActiveTimer: s.ticker != nil,
	}
}

func (s *Scheduler) loop(ctx context.Context, ticker *time.Ticker, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.sweeping {
				// Previous sweep still in progress; skip this tick rather
				// than overlap it.
				s.mu.Unlock()
				s.logger.Warn("sweep still running, skipping tick")
				continue
			}
			s.sweeping = true
			s.mu.Unlock()

			if _, err := s.MaterializeDue(ctx, time.Now()); err != nil {
				s.logger.Error("sweep failed", "error", err)
			}

			s.mu.Lock()
			s.sweeping = false
			s.mu.Unlock()
		}
	}
}

// MaterializeDue materializes every active schedule due at now, each in its
// own atomic scope. One broken schedule never blocks the others: its error
// is logged and the sweep moves on. This is also the manual trigger for
// on-demand execution.
func (s *Scheduler) MaterializeDue(ctx context.Context, now time.Time) (*dto.SweepResult, error) {
	if s.lock != nil {
		ok, err := s.lock.TryLock(ctx)
		if err != nil {
			return nil, fmt.Errorf("acquiring sweep lock: %w", err)
		}
		if !ok {
			s.logger.Info("sweep lock held elsewhere, skipping")
			return &dto.SweepResult{}, nil
		}
		defer func() {
			if err := s.lock.Unlock(ctx); err != nil {
				s.logger.Error("releasing sweep lock", "error", err)
			}
		}()
	}

	due, err := s.uow.Schedules().ListDue(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("listing due schedules: %w", err)
	}

	result := &dto.SweepResult{Due: len(due)}
	for _, id := range due {
		if err := s.materializeOne(ctx, id, now); err != nil {
			result.Failed++
			s.logger.Error("schedule materialization failed",
				"schedule_id", id, "error", err)
			continue
		}
		result.Materialized++
	}

	s.logger.Info("sweep finished",
		"due", result.Due, "materialized", result.Materialized, "failed", result.Failed)
	return result, nil
}

// materializeOne fires a single schedule inside its own transaction: the
// created movement, its balance deltas, and the schedule advance commit or
// roll back together.
func (s *Scheduler) materializeOne(ctx context.Context, id uuid.UUID, now time.Time) error {
	return s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		sched, err := uow.Schedules().GetDueForUpdate(ctx, id, now)
		if err != nil {
			// Raced with another sweep or the owner deactivated it; nothing
			// to do.
			s.logger.Debug("schedule no longer due", "schedule_id", id)
			return nil
		}

		create := dto.TransactionCreate{
			Type:            string(sched.TransactionType),
			Amount:          sched.Amount,
			CategoryID:      sched.CategoryID,
			FromAccountID:   sched.SourceAccountID,
			ToAccountID:     sched.DestAccountID,
			TransactionDate: now,
			Description:     sched.Description,
		}
		if _, err := s.engine.CreateIn(ctx, uow, sched.UserID, create); err != nil {
			return fmt.Errorf("materializing schedule %s: %w", id, err)
		}

		next, stillActive, err := sched.Advance()
		if err != nil {
			return fmt.Errorf("advancing schedule %s: %w", id, err)
		}
		sched.NextRunDate = next
		sched.IsActive = stillActive
		sched.UpdatedAt = time.Now().UTC()
		if err := uow.Schedules().Update(ctx, sched); err != nil {
			return fmt.Errorf("updating schedule %s: %w", id, err)
		}
		return nil
	})
}

// --- schedule CRUD ---

// Create registers a new schedule. Validation mirrors ordinary transaction
// validation but touches no balances; only materialization does that.
func (s *Scheduler) Create(
	ctx context.Context,
	userID uuid.UUID,
	create dto.ScheduleCreate,
) (*dto.ScheduleRead, error) {
	if err := s.validate.Struct(create); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	if !create.Amount.IsPositive() {
		return nil, fmt.Errorf("amount %s: %w", create.Amount, domain.ErrInvalidAmount)
	}

	sched := &domain.ScheduledTransaction{
		ID:              uuid.New(),
		UserID:          userID,
		TransactionType: domain.TransactionType(create.TransactionType),
		Amount:          create.Amount,
		Description:     create.Description,
		CategoryID:      create.CategoryID,
		SourceAccountID: create.SourceAccountID,
		DestAccountID:   create.DestAccountID,
		Frequency:       domain.Frequency(create.Frequency),
		StartDate:       create.StartDate,
		StartTime:       create.StartTime,
		EndDate:         create.EndDate,
		EndTime:         create.EndTime,
		IsActive:        true,
		CreatedAt:       time.Now().UTC(),
	}
	if err := sched.ValidateStructure(); err != nil {
		return nil, err
	}

	first, err := sched.FirstRunAt()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	if end, bounded, err := sched.EndAt(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	} else if bounded && !end.After(first) {
		return nil, fmt.Errorf("%w: end must be after start", domain.ErrValidation)
	}
	sched.NextRunDate = &first

	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		currency, err := s.snapshotCurrency(ctx, uow, sched)
		if err != nil {
			return err
		}
		sched.CurrencyCode = currency
		if sched.CategoryID != nil {
			if _, err := uow.Categories().Get(ctx, userID, *sched.CategoryID); err != nil {
				return fmt.Errorf("category %s: %w", *sched.CategoryID, domain.ErrCategoryNotFound)
			}
		}
		return uow.Schedules().Create(ctx, sched)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("schedule created",
		"user_id", userID, "schedule_id", sched.ID, "frequency", sched.Frequency)
	return toRead(sched), nil
}

// snapshotCurrency resolves the schedule's currency from the economically
// relevant account, verifying ownership along the way.
func (s *Scheduler) snapshotCurrency(
	ctx context.Context,
	uow repository.UnitOfWork,
	sched *domain.ScheduledTransaction,
) (string, error) {
	relevant := sched.SourceAccountID
	if sched.TransactionType == domain.TypeIncome {
		relevant = sched.DestAccountID
	}
	for _, id := range []*uuid.UUID{sched.SourceAccountID, sched.DestAccountID} {
		if id == nil {
			continue
		}
		a, err := uow.Accounts().Get(ctx, sched.UserID, *id)
		if err != nil {
			return "", fmt.Errorf("account %s: %w", *id, domain.ErrAccountNotFound)
		}
		if sched.TransactionType == domain.TypeDebtPayment && *id == *sched.DestAccountID && !a.IsLiability() {
			return "", fmt.Errorf("account %s: %w", a.ID, domain.ErrInvalidDebtTarget)
		}
	}
	a, err := uow.Accounts().Get(ctx, sched.UserID, *relevant)
	if err != nil {
		return "", fmt.Errorf("account %s: %w", *relevant, domain.ErrAccountNotFound)
	}
	return a.Currency, nil
}

// Update patches a schedule's fields. A changed start recomputes the next
// run date.
func (s *Scheduler) Update(
	ctx context.Context,
	userID, id uuid.UUID,
	patch dto.ScheduleUpdate,
) (*dto.ScheduleRead, error) {
	if err := s.validate.Struct(patch); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	var read *dto.ScheduleRead
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		sched, err := uow.Schedules().Get(ctx, userID, id)
		if err != nil {
			return fmt.Errorf("schedule %s: %w", id, domain.ErrNotFound)
		}

		rescheduled := false
		if patch.Amount != nil {
			if !patch.Amount.IsPositive() {
				return fmt.Errorf("amount %s: %w", patch.Amount, domain.ErrInvalidAmount)
			}
			sched.Amount = *patch.Amount
		}
		if patch.Description != nil {
			sched.Description = *patch.Description
		}
		if patch.CategoryID != nil {
			sched.CategoryID = *patch.CategoryID
			if sched.CategoryID != nil {
				if _, err := uow.Categories().Get(ctx, userID, *sched.CategoryID); err != nil {
					return fmt.Errorf("category %s: %w", *sched.CategoryID, domain.ErrCategoryNotFound)
				}
			}
		}
		if patch.Frequency != nil {
			sched.Frequency = domain.Frequency(*patch.Frequency)
			rescheduled = true
		}
		if patch.StartDate != nil {
			sched.StartDate = *patch.StartDate
			rescheduled = true
		}
		if patch.StartTime != nil {
			sched.StartTime = *patch.StartTime
			rescheduled = true
		}
		if patch.EndDate != nil {
			sched.EndDate = *patch.EndDate
		}
		if patch.EndTime != nil {
			sched.EndTime = *patch.EndTime
		}
		if patch.IsActive != nil {
			sched.IsActive = *patch.IsActive
			if sched.IsActive && sched.NextRunDate == nil {
				rescheduled = true
			}
		}

		if rescheduled {
			first, err := sched.FirstRunAt()
			if err != nil {
				return fmt.Errorf("%w: %w", domain.ErrValidation, err)
			}
			sched.NextRunDate = &first
		}
		if end, bounded, err := sched.EndAt(); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrValidation, err)
		} else if bounded && sched.NextRunDate != nil && end.Before(*sched.NextRunDate) {
			return fmt.Errorf("%w: end must be after start", domain.ErrValidation)
		}

		sched.UpdatedAt = time.Now().UTC()
		if err := uow.Schedules().Update(ctx, sched); err != nil {
			return err
		}
		read = toRead(sched)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return read, nil
}

// SetActive pauses or resumes a schedule without touching its other fields.
// Resuming a schedule whose next run was cleared recomputes it from the
// start date.
func (s *Scheduler) SetActive(ctx context.Context, userID, id uuid.UUID, active bool) (*dto.ScheduleRead, error) {
	return s.Update(ctx, userID, id, dto.ScheduleUpdate{IsActive: &active})
}

// Delete removes a schedule. Transactions it already materialized are
// untouched.
func (s *Scheduler) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.uow.Schedules().Delete(ctx, userID, id); err != nil {
		return fmt.Errorf("schedule %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// List returns the user's schedules.
func (s *Scheduler) List(ctx context.Context, userID uuid.UUID) ([]*dto.ScheduleRead, error) {
	items, err := s.uow.Schedules().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing schedules: %w", err)
	}
	out := make([]*dto.ScheduleRead, 0, len(items))
	for _, sched := range items {
		out = append(out, toRead(sched))
	}
	return out, nil
}

func toRead(s *domain.ScheduledTransaction) *dto.ScheduleRead {
	return &dto.ScheduleRead{
		ID:              s.ID,
		UserID:          s.UserID,
		TransactionType: string(s.TransactionType),
		Amount:          s.Amount,
		CurrencyCode:    s.CurrencyCode,
		Description:     s.Description,
		CategoryID:      s.CategoryID,
		SourceAccountID: s.SourceAccountID,
		DestAccountID:   s.DestAccountID,
		Frequency:       string(s.Frequency),
		StartDate:       s.StartDate,
		StartTime:       s.StartTime,
		EndDate:         s.EndDate,
		EndTime:         s.EndTime,
		NextRunDate:     s.NextRunDate,
		IsActive:        s.IsActive,
		CreatedAt:       s.CreatedAt,
	}
}
