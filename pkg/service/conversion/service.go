// Package conversion converts monetary amounts between currencies through
// the user's anchor currency and manages the per-user rate table.
package conversion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Komversa/moneyapp/pkg/currency"
	"github.com/Komversa/moneyapp/pkg/domain"
	"github.com/Komversa/moneyapp/pkg/dto"
	"github.com/Komversa/moneyapp/pkg/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// resultPrecision is the number of decimal places conversion outputs are
// rounded to. Callers apply their own display rounding on top.
const resultPrecision = 6

// Service converts amounts between currencies using stored rates to the
// anchor, and stores, lists, and deletes those rates.
type Service struct {
	uow      repository.UnitOfWork
	registry *currency.Registry
	logger   *slog.Logger
}

// New creates a conversion service.
func New(uow repository.UnitOfWork, registry *currency.Registry, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		uow:      uow,
		registry: registry,
		logger:   logger.With("service", "Conversion"),
	}
}

// Convert converts amount from one currency to another for the given user.
// Equal (case-normalized) currencies return the amount unchanged with rate 1
// and no lookup performed.
func (s *Service) Convert(
	ctx context.Context,
	userID uuid.UUID,
	amount decimal.Decimal,
	from, to string,
) (*dto.ConversionResult, error) {
	return s.ConvertIn(ctx, s.uow, userID, amount, from, to)
}

// ConvertIn is Convert executing against the caller's unit of work, so a
// conversion inside a larger atomic scope sees the same rate snapshot as the
// rest of that scope.
func (s *Service) ConvertIn(
	ctx context.Context,
	uow repository.UnitOfWork,
	userID uuid.UUID,
	amount decimal.Decimal,
	from, to string,
) (*dto.ConversionResult, error) {
	fromCode := currency.Normalize(from)
	toCode := currency.Normalize(to)

	if fromCode == toCode {
		return &dto.ConversionResult{
			OriginalAmount:  amount,
			ConvertedAmount: amount,
			Rate:            decimal.NewFromInt(1),
			IsConverted:     false,
		}, nil
	}

	rates, err := uow.Rates().GetMany(ctx, userID, []string{fromCode.String(), toCode.String()})
	if err != nil {
		return nil, fmt.Errorf("fetching rates: %w", err)
	}
	rateFrom, ok := rates[fromCode.String()]
	if !ok {
		return nil, &domain.RateNotFoundError{Currency: fromCode.String()}
	}
	rateTo, ok := rates[toCode.String()]
	if !ok {
		return nil, &domain.RateNotFoundError{Currency: toCode.String()}
	}

	// Two-step conversion through the anchor: into anchor units with the
	// source rate, out of anchor units with the destination rate.
	amountInAnchor := amount.Mul(rateFrom)
	converted := amountInAnchor.Div(rateTo).Round(resultPrecision)
	rate := rateFrom.Div(rateTo).Round(resultPrecision)

	return &dto.ConversionResult{
		OriginalAmount:  amount,
		ConvertedAmount: converted,
		Rate:            rate,
		IsConverted:     true,
	}, nil
}

// ListRates returns the user's stored rates ordered by currency code.
func (s *Service) ListRates(ctx context.Context, userID uuid.UUID) ([]*dto.RateRead, error) {
	rows, err := s.uow.Rates().List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing rates: %w", err)
	}
	out := make([]*dto.RateRead, 0, len(rows))
	for _, r := range rows {
		out = append(out, &dto.RateRead{Currency: r.CurrencyCode, RateToAnchor: r.RateToAnchor})
	}
	return out, nil
}

// UpsertRate inserts or replaces the user's rate for a currency. The rate
// must be positive and the currency must be in the supported registry.
func (s *Service) UpsertRate(
	ctx context.Context,
	userID uuid.UUID,
	code string,
	rate decimal.Decimal,
) error {
	normalized := currency.Normalize(code)
	if !rate.IsPositive() {
		return fmt.Errorf("rate %s for %s: %w", rate, normalized, domain.ErrInvalidRate)
	}
	if !s.registry.IsSupported(normalized.String()) {
		return fmt.Errorf("currency %s: %w", normalized, domain.ErrUnsupportedCurrency)
	}
	if err := s.uow.Rates().Upsert(ctx, userID, normalized.String(), rate); err != nil {
		return fmt.Errorf("upserting rate for %s: %w", normalized, err)
	}
	s.logger.Info("rate upserted", "user_id", userID, "currency", normalized, "rate", rate)
	return nil
}

// DeleteRate removes a stored rate. The anchor currency's own rate is
// protected: it is the fixed point every conversion routes through.
func (s *Service) DeleteRate(ctx context.Context, userID uuid.UUID, code string) error {
	normalized := currency.Normalize(code)

	settings, err := s.uow.Settings().Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	if normalized == currency.Normalize(settings.PrimaryCurrency) {
		return domain.ErrCannotDeleteAnchorRate
	}

	rows, err := s.uow.Rates().Delete(ctx, userID, normalized.String())
	if err != nil {
		return fmt.Errorf("deleting rate for %s: %w", normalized, err)
	}
	if rows == 0 {
		return fmt.Errorf("rate for %s: %w", normalized, domain.ErrNotFound)
	}
	s.logger.Info("rate deleted", "user_id", userID, "currency", normalized)
	return nil
}
