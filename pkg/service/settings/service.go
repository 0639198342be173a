// Package settings manages per-user ledger settings, most notably the
// primary (anchor) currency that every exchange rate is expressed against.
package settings

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Komversa/moneyapp/pkg/currency"
	"github.com/Komversa/moneyapp/pkg/domain"
	"github.com/Komversa/moneyapp/pkg/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ratePrecision is the scale stored rates are rounded to after an anchor
// rebase.
const ratePrecision = 6

// Service reads and mutates user settings.
type Service struct {
	uow      repository.UnitOfWork
	registry *currency.Registry
	logger   *slog.Logger
}

// New creates a settings service.
func New(uow repository.UnitOfWork, registry *currency.Registry, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		uow:      uow,
		registry: registry,
		logger:   logger.With("service", "SettingsService"),
	}
}

// Get returns the user's settings.
func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*domain.UserSettings, error) {
	settings, err := s.uow.Settings().Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("settings for %s: %w", userID, domain.ErrNotFound)
	}
	return settings, nil
}

// SetPrimaryCurrency switches the user's anchor currency and rebases every
// stored rate so existing conversions keep their meaning. All stored rates
// are "units of anchor per one unit of currency"; moving the anchor from A
// to B divides every rate by B's old rate, makes B exactly 1, and gives the
// old anchor A the reciprocal. The settings row lock serializes the switch
// against concurrent conversions reading the rate set.
func (s *Service) SetPrimaryCurrency(ctx context.Context, userID uuid.UUID, code string) (*domain.UserSettings, error) {
	newAnchor := currency.Normalize(code)
	if !s.registry.IsSupported(string(newAnchor)) {
		return nil, fmt.Errorf("currency %s: %w", code, domain.ErrUnsupportedCurrency)
	}

	var updated *domain.UserSettings
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		settings, err := uow.Settings().GetForUpdate(ctx, userID)
		if err != nil {
			return fmt.Errorf("settings for %s: %w", userID, domain.ErrNotFound)
		}
		oldAnchor := currency.Normalize(settings.PrimaryCurrency)
		if oldAnchor == newAnchor {
			updated = settings
			return nil
		}

		rates, err := uow.Rates().List(ctx, userID)
		if err != nil {
			return fmt.Errorf("listing rates: %w", err)
		}
		var pivot decimal.Decimal
		found := false
		for _, r := range rates {
			if currency.Normalize(r.CurrencyCode) == newAnchor {
				pivot = r.RateToAnchor
				found = true
				break
			}
		}
		if !found {
			return &domain.RateNotFoundError{Currency: string(newAnchor)}
		}
		if !pivot.IsPositive() {
			return fmt.Errorf("rate for %s: %w", newAnchor, domain.ErrInvalidRate)
		}

		rebased := make(map[string]decimal.Decimal, len(rates)+1)
		for _, r := range rates {
			c := currency.Normalize(r.CurrencyCode)
			if c == newAnchor {
				continue
			}
			rebased[string(c)] = r.RateToAnchor.Div(pivot).Round(ratePrecision)
		}
		rebased[string(newAnchor)] = decimal.NewFromInt(1)
		rebased[string(oldAnchor)] = decimal.NewFromInt(1).Div(pivot).Round(ratePrecision)

		if err := uow.Rates().ReplaceAll(ctx, userID, rebased); err != nil {
			return fmt.Errorf("rebasing rates: %w", err)
		}

		settings.PrimaryCurrency = string(newAnchor)
		settings.UpdatedAt = time.Now().UTC()
		if err := uow.Settings().Update(ctx, settings); err != nil {
			return fmt.Errorf("updating settings: %w", err)
		}
		updated = settings
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("primary currency changed", "user_id", userID, "currency", newAnchor)
	return updated, nil
}
