package settings_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/Komversa/moneyapp/internal/fixtures"
	"github.com/Komversa/moneyapp/pkg/currency"
	"github.com/Komversa/moneyapp/pkg/domain"
	"github.com/Komversa/moneyapp/pkg/service/settings"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(store *fixtures.Store) *settings.Service {
	uow := fixtures.NewUnitOfWork(store)
	return settings.New(uow, currency.NewRegistry(), slog.Default())
}

func seedUser(store *fixtures.Store, primary string, rates map[string]string) uuid.UUID {
	userID := uuid.New()
	store.Settings[userID] = &domain.UserSettings{UserID: userID, PrimaryCurrency: primary}
	m := map[string]decimal.Decimal{}
	for code, rate := range rates {
		m[code] = decimal.RequireFromString(rate)
	}
	store.Rates[userID] = m
	return userID
}

func TestSetPrimaryCurrency_RebasesRates(t *testing.T) {
	store := fixtures.NewStore()
	svc := newService(store)
	userID := seedUser(store, "USD", map[string]string{
		"USD": "1",
		"EUR": "1.25",
		"NIO": "0.025",
	})

	updated, err := svc.SetPrimaryCurrency(context.Background(), userID, "EUR")
	require.NoError(t, err)
	assert.Equal(t, "EUR", updated.PrimaryCurrency)

	rates := store.Rates[userID]
	// The new anchor is exactly 1, the old anchor gets the reciprocal, and
	// every other rate is divided by the new anchor's old rate.
	assert.True(t, rates["EUR"].Equal(decimal.NewFromInt(1)), "EUR %s", rates["EUR"])
	assert.True(t, rates["USD"].Equal(decimal.RequireFromString("0.8")), "USD %s", rates["USD"])
	assert.True(t, rates["NIO"].Equal(decimal.RequireFromString("0.02")), "NIO %s", rates["NIO"])
}

func TestSetPrimaryCurrency_SameAnchorIsNoop(t *testing.T) {
	store := fixtures.NewStore()
	svc := newService(store)
	userID := seedUser(store, "USD", map[string]string{"USD": "1", "NIO": "0.0274"})

	updated, err := svc.SetPrimaryCurrency(context.Background(), userID, "usd")
	require.NoError(t, err)
	assert.Equal(t, "USD", updated.PrimaryCurrency)
	assert.True(t, store.Rates[userID]["NIO"].Equal(decimal.RequireFromString("0.0274")))
}

func TestSetPrimaryCurrency_RequiresRateForNewAnchor(t *testing.T) {
	store := fixtures.NewStore()
	svc := newService(store)
	userID := seedUser(store, "USD", map[string]string{"USD": "1"})

	_, err := svc.SetPrimaryCurrency(context.Background(), userID, "EUR")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRateNotFound)

	// Nothing changed.
	assert.Equal(t, "USD", store.Settings[userID].PrimaryCurrency)
	assert.True(t, store.Rates[userID]["USD"].Equal(decimal.NewFromInt(1)))
}

func TestSetPrimaryCurrency_RejectsUnsupportedCurrency(t *testing.T) {
	store := fixtures.NewStore()
	svc := newService(store)
	userID := seedUser(store, "USD", map[string]string{"USD": "1"})

	_, err := svc.SetPrimaryCurrency(context.Background(), userID, "ZZZ")
	assert.ErrorIs(t, err, domain.ErrUnsupportedCurrency)
}

func TestGet(t *testing.T) {
	store := fixtures.NewStore()
	svc := newService(store)
	userID := seedUser(store, "NIO", nil)

	got, err := svc.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "NIO", got.PrimaryCurrency)

	_, err = svc.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
