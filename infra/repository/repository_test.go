package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Komversa/moneyapp/pkg/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDb, mock, err := sqlmock.New()
	require.NoError(t, err)
	dialector := postgres.New(postgres.Config{
		Conn:       mockDb,
		DriverName: "postgres",
	})
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func decimalFromString(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestAccountRepository_GetForUpdate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := accountRepository{db: db}

	userID := uuid.New()
	accountID := uuid.New()
	rows := sqlmock.NewRows([]string{
		"id", "user_id", "name", "category", "currency",
		"initial_balance", "current_balance",
	}).AddRow(accountID, userID, "Checking", "asset", "USD", "500", "350.5")

	mock.ExpectQuery(`SELECT (.+) FROM "accounts" WHERE id = (.+) AND user_id = (.+) FOR UPDATE`).
		WillReturnRows(rows)

	got, err := repo.GetForUpdate(context.Background(), userID, accountID)
	require.NoError(t, err)
	assert.Equal(t, "Checking", got.Name)
	assert.Equal(t, "USD", got.Currency)
	assert.True(t, got.CurrentBalance.Equal(decimalFromString(t, "350.5")))
	assert.False(t, got.IsLiability())
}

func TestAccountRepository_GetForUpdate_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := accountRepository{db: db}

	mock.ExpectQuery(`SELECT (.+) FROM "accounts"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetForUpdate(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAccountRepository_UpdateBalance(t *testing.T) {
	db, mock := newMockDB(t)
	repo := accountRepository{db: db}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "accounts" SET (.+) WHERE id = (.+) AND user_id = (.+)`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rows, err := repo.UpdateBalance(context.Background(), uuid.New(), uuid.New(), decimalFromString(t, "123.456789"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	// Unknown or foreign account matches zero rows.
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "accounts" SET (.+)`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	rows, err = repo.UpdateBalance(context.Background(), uuid.New(), uuid.New(), decimalFromString(t, "1"))
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)
}

func TestTransactionRepository_Delete(t *testing.T) {
	db, mock := newMockDB(t)
	repo := transactionRepository{db: db}

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "transactions" WHERE id = (.+) AND user_id = (.+)`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Delete(context.Background(), uuid.New(), uuid.New())
	assert.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "transactions" WHERE (.+)`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err = repo.Delete(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestScheduleRepository_ListDue(t *testing.T) {
	db, mock := newMockDB(t)
	repo := scheduleRepository{db: db}

	first := uuid.New()
	second := uuid.New()
	rows := sqlmock.NewRows([]string{"id"}).AddRow(first).AddRow(second)

	mock.ExpectQuery(`SELECT "id" FROM "scheduled_transactions" WHERE is_active = (.+) AND next_run_date IS NOT NULL AND next_run_date <= (.+)`).
		WillReturnRows(rows)

	ids, err := repo.ListDue(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{first, second}, ids)
}

func TestRateRepository_GetMany(t *testing.T) {
	db, mock := newMockDB(t)
	repo := rateRepository{db: db}

	userID := uuid.New()
	rows := sqlmock.NewRows([]string{"user_id", "currency_code", "rate_to_anchor"}).
		AddRow(userID, "NIO", "0.0274").
		AddRow(userID, "USD", "1")

	mock.ExpectQuery(`SELECT (.+) FROM "exchange_rates" WHERE user_id = (.+) AND currency_code IN (.+)`).
		WillReturnRows(rows)

	got, err := repo.GetMany(context.Background(), userID, []string{"NIO", "USD"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got["NIO"].Equal(decimalFromString(t, "0.0274")))

	// An empty code list never hits the database.
	got, err = repo.GetMany(context.Background(), userID, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSettingsRepository_Update_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := settingsRepository{db: db}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "user_settings" SET (.+) WHERE user_id = (.+)`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.Update(context.Background(), &domain.UserSettings{
		UserID:          uuid.New(),
		PrimaryCurrency: "EUR",
		UpdatedAt:       time.Now(),
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
