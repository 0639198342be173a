// Package fixtures provides in-memory repository fakes for service tests.
// The fake unit of work snapshots the store before each Do and restores it
// when the function errors, matching the rollback semantics services rely
// on.
package fixtures

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Komversa/moneyapp/pkg/domain"
	"github.com/Komversa/moneyapp/pkg/dto"
	"github.com/Komversa/moneyapp/pkg/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store holds all fake tables. Tests seed it directly before exercising a
// service.
type Store struct {
	mu           sync.Mutex
	Accounts     map[uuid.UUID]*domain.Account
	Categories   map[uuid.UUID]*domain.Category
	Transactions map[uuid.UUID]*domain.Transaction
	Schedules    map[uuid.UUID]*domain.ScheduledTransaction
	Rates        map[uuid.UUID]map[string]decimal.Decimal
	Settings     map[uuid.UUID]*domain.UserSettings
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		Accounts:     map[uuid.UUID]*domain.Account{},
		Categories:   map[uuid.UUID]*domain.Category{},
		Transactions: map[uuid.UUID]*domain.Transaction{},
		Schedules:    map[uuid.UUID]*domain.ScheduledTransaction{},
		Rates:        map[uuid.UUID]map[string]decimal.Decimal{},
		Settings:     map[uuid.UUID]*domain.UserSettings{},
	}
}

func (s *Store) snapshot() *Store {
	c := NewStore()
	for k, v := range s.Accounts {
		a := *v
		c.Accounts[k] = &a
	}
	for k, v := range s.Categories {
		cat := *v
		c.Categories[k] = &cat
	}
	for k, v := range s.Transactions {
		t := *v
		c.Transactions[k] = &t
	}
	for k, v := range s.Schedules {
		sc := *v
		c.Schedules[k] = &sc
	}
	for k, v := range s.Rates {
		m := make(map[string]decimal.Decimal, len(v))
		for code, rate := range v {
			m[code] = rate
		}
		c.Rates[k] = m
	}
	for k, v := range s.Settings {
		st := *v
		c.Settings[k] = &st
	}
	return c
}

func (s *Store) restore(from *Store) {
	s.Accounts = from.Accounts
	s.Categories = from.Categories
	s.Transactions = from.Transactions
	s.Schedules = from.Schedules
	s.Rates = from.Rates
	s.Settings = from.Settings
}

// UnitOfWork is the in-memory repository.UnitOfWork.
type UnitOfWork struct {
	store *Store
	inTx  bool
}

// NewUnitOfWork wraps a store.
func NewUnitOfWork(store *Store) *UnitOfWork {
	return &UnitOfWork{store: store}
}

// Do snapshots the store, runs fn, and rolls back on error. A nested Do
// joins the ambient scope like the database implementation does.
func (u *UnitOfWork) Do(ctx context.Context, fn func(uow repository.UnitOfWork) error) error {
	if u.inTx {
		return fn(u)
	}
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	before := u.store.snapshot()
	if err := fn(&UnitOfWork{store: u.store, inTx: true}); err != nil {
		u.store.restore(before)
		return err
	}
	return nil
}

func (u *UnitOfWork) Accounts() repository.AccountRepository {
	return &accountRepo{store: u.store}
}

func (u *UnitOfWork) Categories() repository.CategoryRepository {
	return &categoryRepo{store: u.store}
}

func (u *UnitOfWork) Transactions() repository.TransactionRepository {
	return &transactionRepo{store: u.store}
}

func (u *UnitOfWork) Schedules() repository.ScheduledTransactionRepository {
	return &scheduleRepo{store: u.store}
}

func (u *UnitOfWork) Rates() repository.ExchangeRateRepository {
	return &rateRepo{store: u.store}
}

func (u *UnitOfWork) Settings() repository.UserSettingsRepository {
	return &settingsRepo{store: u.store}
}

type accountRepo struct {
	store *Store
}

func (r *accountRepo) Get(ctx context.Context, userID, id uuid.UUID) (*domain.Account, error) {
	a, ok := r.store.Accounts[id]
	if !ok || a.UserID != userID {
		return nil, domain.ErrNotFound
	}
	c := *a
	return &c, nil
}

func (r *accountRepo) GetForUpdate(ctx context.Context, userID, id uuid.UUID) (*domain.Account, error) {
	return r.Get(ctx, userID, id)
}

func (r *accountRepo) UpdateBalance(ctx context.Context, userID, id uuid.UUID, balance decimal.Decimal) (int64, error) {
	a, ok := r.store.Accounts[id]
	if !ok || a.UserID != userID {
		return 0, nil
	}
	a.CurrentBalance = balance
	return 1, nil
}

func (r *accountRepo) Create(ctx context.Context, a *domain.Account) error {
	c := *a
	r.store.Accounts[a.ID] = &c
	return nil
}

type categoryRepo struct {
	store *Store
}

func (r *categoryRepo) Get(ctx context.Context, userID, id uuid.UUID) (*domain.Category, error) {
	c, ok := r.store.Categories[id]
	if !ok || c.UserID != userID {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *categoryRepo) Create(ctx context.Context, c *domain.Category) error {
	cp := *c
	r.store.Categories[c.ID] = &cp
	return nil
}

type transactionRepo struct {
	store *Store
}

func (r *transactionRepo) Create(ctx context.Context, t *domain.Transaction) error {
	c := *t
	r.store.Transactions[t.ID] = &c
	return nil
}

func (r *transactionRepo) Get(ctx context.Context, userID, id uuid.UUID) (*domain.Transaction, error) {
	t, ok := r.store.Transactions[id]
	if !ok || t.UserID != userID {
		return nil, domain.ErrNotFound
	}
	c := *t
	return &c, nil
}

func (r *transactionRepo) Update(ctx context.Context, t *domain.Transaction) error {
	old, ok := r.store.Transactions[t.ID]
	if !ok || old.UserID != t.UserID {
		return domain.ErrNotFound
	}
	c := *t
	r.store.Transactions[t.ID] = &c
	return nil
}

func (r *transactionRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	t, ok := r.store.Transactions[id]
	if !ok || t.UserID != userID {
		return domain.ErrNotFound
	}
	delete(r.store.Transactions, id)
	return nil
}

func (r *transactionRepo) List(ctx context.Context, userID uuid.UUID, filter dto.TransactionFilter) ([]*domain.Transaction, int64, error) {
	var all []*domain.Transaction
	for _, t := range r.store.Transactions {
		if t.UserID != userID {
			continue
		}
		if filter.DateFrom != nil && t.TransactionDate.Before(*filter.DateFrom) {
			continue
		}
		if filter.DateTo != nil && t.TransactionDate.After(*filter.DateTo) {
			continue
		}
		if filter.Type != nil && string(t.Type) != *filter.Type {
			continue
		}
		if filter.AccountID != nil {
			from := t.FromAccountID != nil && *t.FromAccountID == *filter.AccountID
			to := t.ToAccountID != nil && *t.ToAccountID == *filter.AccountID
			if !from && !to {
				continue
			}
		}
		if filter.CategoryID != nil {
			if t.CategoryID == nil || *t.CategoryID != *filter.CategoryID {
				continue
			}
		}
		c := *t
		all = append(all, &c)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].TransactionDate.After(all[j].TransactionDate)
	})
	total := int64(len(all))
	if filter.Offset > 0 {
		if filter.Offset >= len(all) {
			return nil, total, nil
		}
		all = all[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(all) {
		all = all[:filter.Limit]
	}
	return all, total, nil
}

type scheduleRepo struct {
	store *Store
}

func (r *scheduleRepo) Create(ctx context.Context, s *domain.ScheduledTransaction) error {
	c := *s
	r.store.Schedules[s.ID] = &c
	return nil
}

func (r *scheduleRepo) Get(ctx context.Context, userID, id uuid.UUID) (*domain.ScheduledTransaction, error) {
	s, ok := r.store.Schedules[id]
	if !ok || s.UserID != userID {
		return nil, domain.ErrNotFound
	}
	c := *s
	return &c, nil
}

func (r *scheduleRepo) GetDueForUpdate(ctx context.Context, id uuid.UUID, now time.Time) (*domain.ScheduledTransaction, error) {
	s, ok := r.store.Schedules[id]
	if !ok || !s.IsActive || s.NextRunDate == nil || s.NextRunDate.After(now) {
		return nil, domain.ErrNotFound
	}
	c := *s
	return &c, nil
}

func (r *scheduleRepo) Update(ctx context.Context, s *domain.ScheduledTransaction) error {
	old, ok := r.store.Schedules[s.ID]
	if !ok || old.UserID != s.UserID {
		return domain.ErrNotFound
	}
	c := *s
	r.store.Schedules[s.ID] = &c
	return nil
}

func (r *scheduleRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	s, ok := r.store.Schedules[id]
	if !ok || s.UserID != userID {
		return domain.ErrNotFound
	}
	delete(r.store.Schedules, id)
	return nil
}

func (r *scheduleRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.ScheduledTransaction, error) {
	var out []*domain.ScheduledTransaction
	for _, s := range r.store.Schedules {
		if s.UserID != userID {
			continue
		}
		c := *s
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *scheduleRepo) ListDue(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	type due struct {
		id uuid.UUID
		at time.Time
	}
	var dues []due
	for _, s := range r.store.Schedules {
		if !s.IsActive || s.NextRunDate == nil || s.NextRunDate.After(now) {
			continue
		}
		dues = append(dues, due{id: s.ID, at: *s.NextRunDate})
	}
	sort.Slice(dues, func(i, j int) bool { return dues[i].at.Before(dues[j].at) })
	ids := make([]uuid.UUID, 0, len(dues))
	for _, d := range dues {
		ids = append(ids, d.id)
	}
	return ids, nil
}

type rateRepo struct {
	store *Store
}

func (r *rateRepo) GetMany(ctx context.Context, userID uuid.UUID, codes []string) (map[string]decimal.Decimal, error) {
	out := map[string]decimal.Decimal{}
	userRates := r.store.Rates[userID]
	for _, code := range codes {
		if rate, ok := userRates[code]; ok {
			out[code] = rate
		}
	}
	return out, nil
}

func (r *rateRepo) List(ctx context.Context, userID uuid.UUID) ([]*domain.ExchangeRate, error) {
	userRates := r.store.Rates[userID]
	codes := make([]string, 0, len(userRates))
	for code := range userRates {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	out := make([]*domain.ExchangeRate, 0, len(codes))
	for _, code := range codes {
		out = append(out, &domain.ExchangeRate{
			UserID:       userID,
			CurrencyCode: code,
			RateToAnchor: userRates[code],
		})
	}
	return out, nil
}

func (r *rateRepo) Upsert(ctx context.Context, userID uuid.UUID, code string, rate decimal.Decimal) error {
	if r.store.Rates[userID] == nil {
		r.store.Rates[userID] = map[string]decimal.Decimal{}
	}
	r.store.Rates[userID][code] = rate
	return nil
}

func (r *rateRepo) Delete(ctx context.Context, userID uuid.UUID, code string) (int64, error) {
	if _, ok := r.store.Rates[userID][code]; !ok {
		return 0, nil
	}
	delete(r.store.Rates[userID], code)
	return 1, nil
}

func (r *rateRepo) ReplaceAll(ctx context.Context, userID uuid.UUID, rates map[string]decimal.Decimal) error {
	m := make(map[string]decimal.Decimal, len(rates))
	for code, rate := range rates {
		m[code] = rate
	}
	r.store.Rates[userID] = m
	return nil
}

type settingsRepo struct {
	store *Store
}

func (r *settingsRepo) Get(ctx context.Context, userID uuid.UUID) (*domain.UserSettings, error) {
	s, ok := r.store.Settings[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *s
	return &c, nil
}

func (r *settingsRepo) GetForUpdate(ctx context.Context, userID uuid.UUID) (*domain.UserSettings, error) {
	return r.Get(ctx, userID)
}

func (r *settingsRepo) Update(ctx context.Context, s *domain.UserSettings) error {
	if _, ok := r.store.Settings[s.UserID]; !ok {
		return domain.ErrNotFound
	}
	c := *s
	r.store.Settings[s.UserID] = &c
	return nil
}

func (r *settingsRepo) Create(ctx context.Context, s *domain.UserSettings) error {
	c := *s
	r.store.Settings[s.UserID] = &c
	return nil
}
