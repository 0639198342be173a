package scheduler_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/Komversa/moneyapp/internal/fixtures"
	"github.com/Komversa/moneyapp/pkg/currency"
	"github.com/Komversa/moneyapp/pkg/domain"
	"github.com/Komversa/moneyapp/pkg/dto"
	"github.com/Komversa/moneyapp/pkg/service/conversion"
	"github.com/Komversa/moneyapp/pkg/service/ledger"
	"github.com/Komversa/moneyapp/pkg/service/scheduler"
	"github.com/Komversa/moneyapp/pkg/service/transaction"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	store  *fixtures.Store
	sched  *scheduler.Scheduler
	userID uuid.UUID
}

func newTestEnv() *testEnv {
	store := fixtures.NewStore()
	uow := fixtures.NewUnitOfWork(store)
	conv := conversion.New(uow, currency.NewRegistry(), slog.Default())
	engine := transaction.New(uow, ledger.New(slog.Default()), conv, slog.Default())
	sched := scheduler.New(uow, engine, nil, time.Hour, slog.Default())
	return &testEnv{store: store, sched: sched, userID: uuid.New()}
}

func (e *testEnv) addAccount(code string, balance string) uuid.UUID {
	id := uuid.New()
	bal := decimal.RequireFromString(balance)
	e.store.Accounts[id] = &domain.Account{
		ID:             id,
		UserID:         e.userID,
		Name:           code + " account",
		Category:       domain.AccountAsset,
		Currency:       code,
		CurrentBalance: bal,
	}
	return id
}

func (e *testEnv) addSchedule(s *domain.ScheduledTransaction) uuid.UUID {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.UserID = e.userID
	e.store.Schedules[s.ID] = s
	return s.ID
}

func amt(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestMaterializeDue_MonthlyAdvances(t *testing.T) {
	env := newTestEnv()
	acct := env.addAccount("USD", "1000")

	due := time.Date(2026, time.September, 1, 9, 0, 0, 0, time.UTC)
	id := env.addSchedule(&domain.ScheduledTransaction{
		TransactionType: domain.TypeExpense,
		Amount:          amt("50"),
		CurrencyCode:    "USD",
		SourceAccountID: &acct,
		Frequency:       domain.FrequencyMonthly,
		StartDate:       due,
		StartTime:       "09:00",
		NextRunDate:     &due,
		IsActive:        true,
	})

	now := due.Add(time.Minute)
	result, err := env.sched.MaterializeDue(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Due)
	assert.Equal(t, 1, result.Materialized)
	assert.Equal(t, 0, result.Failed)

	assert.True(t, env.store.Accounts[acct].CurrentBalance.Equal(amt("950")))
	assert.Len(t, env.store.Transactions, 1)

	sched := env.store.Schedules[id]
	assert.True(t, sched.IsActive)
	require.NotNil(t, sched.NextRunDate)
	assert.Equal(t, due.AddDate(0, 1, 0), *sched.NextRunDate)

	// An immediate second sweep finds nothing due; no double-firing.
	result, err = env.sched.MaterializeDue(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Due)
	assert.Len(t, env.store.Transactions, 1)
	assert.True(t, env.store.Accounts[acct].CurrentBalance.Equal(amt("950")))
}

func TestMaterializeDue_OnceDeactivates(t *testing.T) {
	env := newTestEnv()
	acct := env.addAccount("USD", "1000")

	due := time.Date(2026, time.September, 1, 9, 0, 0, 0, time.UTC)
	id := env.addSchedule(&domain.ScheduledTransaction{
		TransactionType: domain.TypeIncome,
		Amount:          amt("300"),
		CurrencyCode:    "USD",
		DestAccountID:   &acct,
		Frequency:       domain.FrequencyOnce,
		StartDate:       due,
		StartTime:       "09:00",
		NextRunDate:     &due,
		IsActive:        true,
	})

	result, err := env.sched.MaterializeDue(context.Background(), due.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Materialized)

	sched := env.store.Schedules[id]
	assert.False(t, sched.IsActive)
	assert.Nil(t, sched.NextRunDate)
	assert.True(t, env.store.Accounts[acct].CurrentBalance.Equal(amt("1300")))
}

func TestMaterializeDue_NotYetDue(t *testing.T) {
	env := newTestEnv()
	acct := env.addAccount("USD", "1000")

	future := time.Now().Add(48 * time.Hour)
	env.addSchedule(&domain.ScheduledTransaction{
		TransactionType: domain.TypeExpense,
		Amount:          amt("50"),
		CurrencyCode:    "USD",
		SourceAccountID: &acct,
		Frequency:       domain.FrequencyDaily,
		StartDate:       future,
		StartTime:       "09:00",
		NextRunDate:     &future,
		IsActive:        true,
	})

	result, err := env.sched.MaterializeDue(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Due)
	assert.Empty(t, env.store.Transactions)
}

func TestMaterializeDue_BrokenScheduleDoesNotBlockOthers(t *testing.T) {
	env := newTestEnv()
	acct := env.addAccount("USD", "1000")
	missing := uuid.New()

	due := time.Date(2026, time.September, 1, 9, 0, 0, 0, time.UTC)
	brokenID := env.addSchedule(&domain.ScheduledTransaction{
		TransactionType: domain.TypeExpense,
		Amount:          amt("10"),
		CurrencyCode:    "USD",
		SourceAccountID: &missing,
		Frequency:       domain.FrequencyDaily,
		StartDate:       due,
		StartTime:       "09:00",
		NextRunDate:     &due,
		IsActive:        true,
	})
	later := due.Add(time.Minute)
	goodID := env.addSchedule(&domain.ScheduledTransaction{
		TransactionType: domain.TypeExpense,
		Amount:          amt("25"),
		CurrencyCode:    "USD",
		SourceAccountID: &acct,
		Frequency:       domain.FrequencyDaily,
		StartDate:       later,
		StartTime:       "09:01",
		NextRunDate:     &later,
		IsActive:        true,
	})

	result, err := env.sched.MaterializeDue(context.Background(), due.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Due)
	assert.Equal(t, 1, result.Materialized)
	assert.Equal(t, 1, result.Failed)

	// The failing schedule rolled back without touching anything; the good
	// one fired and advanced.
	assert.True(t, env.store.Accounts[acct].CurrentBalance.Equal(amt("975")))
	assert.Len(t, env.store.Transactions, 1)
	assert.NotNil(t, env.store.Schedules[goodID].NextRunDate)
	assert.Equal(t, due, *env.store.Schedules[brokenID].NextRunDate)
}

func TestScheduler_Lifecycle(t *testing.T) {
	env := newTestEnv()

	status := env.sched.Status()
	assert.False(t, status.IsRunning)
	assert.False(t, status.HasActiveTimer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	env.sched.Start(ctx)

	status = env.sched.Status()
	assert.True(t, status.IsRunning)
	assert.True(t, status.HasActiveTimer)

	// Start is idempotent.
	env.sched.Start(ctx)
	assert.True(t, env.sched.Status().IsRunning)

	env.sched.Stop()
	status = env.sched.Status()
	assert.False(t, status.IsRunning)
	assert.False(t, status.HasActiveTimer)

	// Stop is idempotent too.
	env.sched.Stop()
}

func TestCreate_SetsFirstRunAndCurrency(t *testing.T) {
	env := newTestEnv()
	acct := env.addAccount("NIO", "1000")

	read, err := env.sched.Create(context.Background(), env.userID, dto.ScheduleCreate{
		TransactionType: "expense",
		Amount:          amt("100"),
		SourceAccountID: &acct,
		Frequency:       "weekly",
		StartDate:       time.Date(2026, time.October, 5, 0, 0, 0, 0, time.UTC),
		StartTime:       "08:30",
	})
	require.NoError(t, err)
	assert.Equal(t, "NIO", read.CurrencyCode)
	assert.True(t, read.IsActive)
	require.NotNil(t, read.NextRunDate)
	assert.Equal(t,
		time.Date(2026, time.October, 5, 8, 30, 0, 0, time.UTC),
		*read.NextRunDate)

	// Creation never touches balances.
	assert.True(t, env.store.Accounts[acct].CurrentBalance.Equal(amt("1000")))
	assert.Empty(t, env.store.Transactions)
}

func TestCreate_IncomeSnapshotsDestinationCurrency(t *testing.T) {
	env := newTestEnv()
	acct := env.addAccount("EUR", "0")

	read, err := env.sched.Create(context.Background(), env.userID, dto.ScheduleCreate{
		TransactionType: "income",
		Amount:          amt("2000"),
		DestAccountID:   &acct,
		Frequency:       "monthly",
		StartDate:       time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC),
		StartTime:       "09:00",
	})
	require.NoError(t, err)
	assert.Equal(t, "EUR", read.CurrencyCode)
}

func TestCreate_RejectsInvalidStructure(t *testing.T) {
	env := newTestEnv()
	acct := env.addAccount("USD", "100")

	_, err := env.sched.Create(context.Background(), env.userID, dto.ScheduleCreate{
		TransactionType: "income",
		Amount:          amt("10"),
		SourceAccountID: &acct,
		DestAccountID:   &acct,
		Frequency:       "daily",
		StartDate:       time.Now(),
		StartTime:       "09:00",
	})
	assert.ErrorIs(t, err, domain.ErrStructural)
}

func TestCreate_RejectsEndBeforeStart(t *testing.T) {
	env := newTestEnv()
	acct := env.addAccount("USD", "100")

	end := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	_, err := env.sched.Create(context.Background(), env.userID, dto.ScheduleCreate{
		TransactionType: "expense",
		Amount:          amt("10"),
		SourceAccountID: &acct,
		Frequency:       "daily",
		StartDate:       time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC),
		StartTime:       "09:00",
		EndDate:         &end,
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSetActive_PausesAndResumes(t *testing.T) {
	env := newTestEnv()
	acct := env.addAccount("USD", "1000")

	due := time.Date(2026, time.September, 1, 9, 0, 0, 0, time.UTC)
	id := env.addSchedule(&domain.ScheduledTransaction{
		TransactionType: domain.TypeExpense,
		Amount:          amt("50"),
		CurrencyCode:    "USD",
		SourceAccountID: &acct,
		Frequency:       domain.FrequencyDaily,
		StartDate:       due,
		StartTime:       "09:00",
		NextRunDate:     &due,
		IsActive:        true,
	})

	read, err := env.sched.SetActive(context.Background(), env.userID, id, false)
	require.NoError(t, err)
	assert.False(t, read.IsActive)

	// A paused schedule never fires.
	result, err := env.sched.MaterializeDue(context.Background(), due.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, result.Due)
	assert.True(t, env.store.Accounts[acct].CurrentBalance.Equal(amt("1000")))

	read, err = env.sched.SetActive(context.Background(), env.userID, id, true)
	require.NoError(t, err)
	assert.True(t, read.IsActive)

	result, err = env.sched.MaterializeDue(context.Background(), due.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Materialized)
}

func TestDelete_LeavesMaterializedTransactions(t *testing.T) {
	env := newTestEnv()
	acct := env.addAccount("USD", "1000")

	due := time.Date(2026, time.September, 1, 9, 0, 0, 0, time.UTC)
	id := env.addSchedule(&domain.ScheduledTransaction{
		TransactionType: domain.TypeExpense,
		Amount:          amt("50"),
		CurrencyCode:    "USD",
		SourceAccountID: &acct,
		Frequency:       domain.FrequencyDaily,
		StartDate:       due,
		StartTime:       "09:00",
		NextRunDate:     &due,
		IsActive:        true,
	})

	_, err := env.sched.MaterializeDue(context.Background(), due.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, env.store.Transactions, 1)

	require.NoError(t, env.sched.Delete(context.Background(), env.userID, id))
	assert.Empty(t, env.store.Schedules)
	assert.Len(t, env.store.Transactions, 1)
	assert.True(t, env.store.Accounts[acct].CurrentBalance.Equal(amt("950")))
}

func TestList_ReturnsUserSchedules(t *testing.T) {
	env := newTestEnv()
	acct := env.addAccount("USD", "100")
	env.addSchedule(&domain.ScheduledTransaction{
		TransactionType: domain.TypeExpense,
		Amount:          amt("5"),
		CurrencyCode:    "USD",
		SourceAccountID: &acct,
		Frequency:       domain.FrequencyDaily,
		StartDate:       time.Now(),
		StartTime:       "09:00",
		IsActive:        true,
	})

	// Another user's schedule stays invisible.
	otherID := uuid.New()
	env.store.Schedules[otherID] = &domain.ScheduledTransaction{
		ID:              otherID,
		UserID:          uuid.New(),
		TransactionType: domain.TypeExpense,
		Amount:          amt("5"),
		Frequency:       domain.FrequencyDaily,
		StartDate:       time.Now(),
		StartTime:       "09:00",
	}

	items, err := env.sched.List(context.Background(), env.userID)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}
