// Package transaction implements the transaction engine: validation, balance
// delta computation, and atomic persistence for every financial movement.
package transaction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/Komversa/moneyapp/pkg/domain"
	"github.com/Komversa/moneyapp/pkg/dto"
	"github.com/Komversa/moneyapp/pkg/repository"
	"github.com/Komversa/moneyapp/pkg/service/conversion"
	"github.com/Komversa/moneyapp/pkg/service/ledger"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Engine validates, creates, updates, and deletes financial movements. Every
// mutating operation runs end-to-end in one atomic scope: validation
// failures and balance-write failures both roll back everything.
type Engine struct {
	uow        repository.UnitOfWork
	ledger     *ledger.Ledger
	conversion *conversion.Service
	validate   *validator.Validate
	logger     *slog.Logger
}

// New creates a transaction engine. The conversion service is injected at
// construction time; the engine never resolves it at call time.
func New(
	uow repository.UnitOfWork,
	bl *ledger.Ledger,
	conv *conversion.Service,
	logger *slog.Logger,
) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		uow:        uow,
		ledger:     bl,
		conversion: conv,
		validate:   validator.New(),
		logger:     logger.With("service", "TransactionEngine"),
	}
}

// balanceDelta is the signed amount one account's balance changes by, always
// expressed in that account's own currency.
type balanceDelta struct {
	accountID uuid.UUID
	amount    decimal.Decimal
}

// Create records a new financial movement and applies its balance effects.
func (e *Engine) Create(
	ctx context.Context,
	userID uuid.UUID,
	create dto.TransactionCreate,
) (*dto.TransactionRead, error) {
	var read *dto.TransactionRead
	err := e.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		var err error
		read, err = e.CreateIn(ctx, uow, userID, create)
		return err
	})
	if err != nil {
		return nil, err
	}
	return read, nil
}

// CreateIn is Create running inside the caller's atomic scope. The scheduler
// uses it so a materialized transaction and its schedule advance share one
// transaction boundary.
func (e *Engine) CreateIn(
	ctx context.Context,
	uow repository.UnitOfWork,
	userID uuid.UUID,
	create dto.TransactionCreate,
) (*dto.TransactionRead, error) {
	if err := e.validate.Struct(create); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	t := &domain.Transaction{
		ID:              uuid.New(),
		UserID:          userID,
		Type:            domain.TransactionType(create.Type),
		Amount:          create.Amount,
		CategoryID:      create.CategoryID,
		FromAccountID:   create.FromAccountID,
		ToAccountID:     create.ToAccountID,
		TransactionDate: create.TransactionDate,
		Description:     create.Description,
		CreatedAt:       time.Now().UTC(),
	}

	accounts, err := e.validateAndLockAll(ctx, uow, userID, t)
	if err != nil {
		return nil, err
	}

	deltas, err := e.computeDeltas(ctx, uow, userID, t, accounts)
	if err != nil {
		return nil, err
	}
	if err := e.applyDeltas(ctx, uow, userID, deltas, accounts); err != nil {
		return nil, err
	}

	t.CurrencyCode = snapshotCurrency(t, accounts)
	if err := uow.Transactions().Create(ctx, t); err != nil {
		return nil, fmt.Errorf("persisting transaction: %w", err)
	}

	e.logger.Info("transaction created",
		"user_id", userID, "transaction_id", t.ID, "type", t.Type, "amount", t.Amount)
	return e.toRead(ctx, uow, t, accounts)
}

// Update merges the patch over the existing transaction, reverses the
// original balance effect, applies the new one, and persists the changes.
// All of it happens in one atomic scope: a failure at any step leaves
// balances exactly as they were before the call.
func (e *Engine) Update(
	ctx context.Context,
	userID, id uuid.UUID,
	patch dto.TransactionUpdate,
) (*dto.TransactionRead, error) {
	if err := e.validate.Struct(patch); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	var read *dto.TransactionRead
	err := e.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		orig, err := uow.Transactions().Get(ctx, userID, id)
		if err != nil {
			return fmt.Errorf("transaction %s: %w", id, domain.ErrNotFound)
		}

		effective := mergePatch(orig, patch)

		accounts, err := e.validateAndLockAll(ctx, uow, userID, effective, orig)
		if err != nil {
			return err
		}

		// Reverse the original's effect. The original cross-currency
		// conversion amount is recomputed, never reused from a cache.
		reversal, err := e.computeDeltas(ctx, uow, userID, orig, accounts)
		if err != nil {
			return err
		}
		for i := range reversal {
			reversal[i].amount = reversal[i].amount.Neg()
		}
		if err := e.applyDeltas(ctx, uow, userID, reversal, accounts); err != nil {
			return err
		}

		deltas, err := e.computeDeltas(ctx, uow, userID, effective, accounts)
		if err != nil {
			return err
		}
		if err := e.applyDeltas(ctx, uow, userID, deltas, accounts); err != nil {
			return err
		}

		effective.CurrencyCode = snapshotCurrency(effective, accounts)
		effective.UpdatedAt = time.Now().UTC()
		if err := uow.Transactions().Update(ctx, effective); err != nil {
			return fmt.Errorf("persisting transaction update: %w", err)
		}

		read, err = e.toRead(ctx, uow, effective, accounts)
		return err
	})
	if err != nil {
		return nil, err
	}
	e.logger.Info("transaction updated", "user_id", userID, "transaction_id", id)
	return read, nil
}

// Delete reverses the transaction's balance effect and removes the record,
// atomically.
func (e *Engine) Delete(ctx context.Context, userID, id uuid.UUID) error {
	err := e.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		t, err := uow.Transactions().Get(ctx, userID, id)
		if err != nil {
			return fmt.Errorf("transaction %s: %w", id, domain.ErrNotFound)
		}

		accounts, err := e.lockAccounts(ctx, uow, userID, involvedAccounts(t))
		if err != nil {
			return err
		}

		reversal, err := e.computeDeltas(ctx, uow, userID, t, accounts)
		if err != nil {
			return err
		}
		for i := range reversal {
			reversal[i].amount = reversal[i].amount.Neg()
		}
		if err := e.applyDeltas(ctx, uow, userID, reversal, accounts); err != nil {
			return err
		}

		return uow.Transactions().Delete(ctx, userID, id)
	})
	if err != nil {
		return err
	}
	e.logger.Info("transaction deleted", "user_id", userID, "transaction_id", id)
	return nil
}

// Get returns one transaction joined with display names.
func (e *Engine) Get(ctx context.Context, userID, id uuid.UUID) (*dto.TransactionRead, error) {
	t, err := e.uow.Transactions().Get(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("transaction %s: %w", id, domain.ErrNotFound)
	}
	return e.toRead(ctx, e.uow, t, nil)
}

// List returns a filtered, paged listing. Each row carries the original
// amount plus an amount converted to the user's primary currency; a row
// whose conversion has no rate path falls back to the original amount
// instead of failing the whole listing.
func (e *Engine) List(
	ctx context.Context,
	userID uuid.UUID,
	filter dto.TransactionFilter,
) (*dto.TransactionList, error) {
	if err := e.validate.Struct(filter); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	if filter.Limit == 0 {
		filter.Limit = 50
	}

	items, total, err := e.uow.Transactions().List(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}

	primary := ""
	if settings, err := e.uow.Settings().Get(ctx, userID); err == nil {
		primary = settings.PrimaryCurrency
	}

	reads := make([]*dto.TransactionRead, 0, len(items))
	for _, t := range items {
		read, err := e.toRead(ctx, e.uow, t, nil)
		if err != nil {
			return nil, err
		}
		read.ConvertedAmount = t.Amount
		read.ConvertedCurrency = t.CurrencyCode
		if primary != "" {
			conv, err := e.conversion.Convert(ctx, userID, t.Amount, t.CurrencyCode, primary)
			if err != nil {
				e.logger.Warn("list conversion fallback",
					"transaction_id", t.ID, "currency", t.CurrencyCode, "error", err)
				read.ConvertedAmount = t.Amount
				read.ConvertedCurrency = primary
			} else {
				read.ConvertedAmount = conv.ConvertedAmount
				read.ConvertedCurrency = primary
			}
		}
		reads = append(reads, read)
	}

	return &dto.TransactionList{Items: reads, TotalCount: total}, nil
}

// --- validation and delta computation ---

// validateAndLockAll validates the first transaction and locks the union of
// all listed transactions' accounts; update passes the original alongside
// the effective transaction so reversal and re-application see one
// consistent set of locked rows.
func (e *Engine) validateAndLockAll(
	ctx context.Context,
	uow repository.UnitOfWork,
	userID uuid.UUID,
	t *domain.Transaction,
	others ...*domain.Transaction,
) (map[uuid.UUID]*domain.Account, error) {
	if !t.Amount.IsPositive() {
		return nil, fmt.Errorf("amount %s: %w", t.Amount, domain.ErrInvalidAmount)
	}
	if err := t.ValidateStructure(); err != nil {
		return nil, err
	}

	ids := involvedAccounts(t)
	for _, other := range others {
		ids = append(ids, involvedAccounts(other)...)
	}
	accounts, err := e.lockAccounts(ctx, uow, userID, ids)
	if err != nil {
		return nil, err
	}

	if t.CategoryID != nil {
		cat, err := uow.Categories().Get(ctx, userID, *t.CategoryID)
		if err != nil {
			return nil, fmt.Errorf("category %s: %w", *t.CategoryID, domain.ErrCategoryNotFound)
		}
		if (t.Type == domain.TypeIncome || t.Type == domain.TypeExpense) && cat.Type != t.Type {
			return nil, fmt.Errorf("category %s is %s: %w", cat.Name, cat.Type, domain.ErrCategoryTypeMismatch)
		}
	}

	if t.Type == domain.TypeDebtPayment {
		dest := accounts[*t.ToAccountID]
		if !dest.IsLiability() {
			return nil, fmt.Errorf("account %s: %w", dest.ID, domain.ErrInvalidDebtTarget)
		}
	}

	return accounts, nil
}

// lockAccounts loads the given accounts with row-level write locks, in
// sorted ID order so two operations touching the same pair of accounts
// cannot deadlock.
func (e *Engine) lockAccounts(
	ctx context.Context,
	uow repository.UnitOfWork,
	userID uuid.UUID,
	ids []uuid.UUID,
) (map[uuid.UUID]*domain.Account, error) {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	unique := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	sort.Slice(unique, func(i, j int) bool { return unique[i].String() < unique[j].String() })

	accounts := make(map[uuid.UUID]*domain.Account, len(unique))
	for _, id := range unique {
		a, err := uow.Accounts().GetForUpdate(ctx, userID, id)
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", id, domain.ErrAccountNotFound)
		}
		accounts[id] = a
	}
	return accounts, nil
}

// computeDeltas derives the balance deltas a transaction implies. Transfers
// and debt payments between accounts of different currencies debit the
// source in its own currency and credit the destination with the converted
// amount; a missing rate path is a ConversionUnavailable failure.
func (e *Engine) computeDeltas(
	ctx context.Context,
	uow repository.UnitOfWork,
	userID uuid.UUID,
	t *domain.Transaction,
	accounts map[uuid.UUID]*domain.Account,
) ([]balanceDelta, error) {
	switch t.Type {
	case domain.TypeIncome:
		return []balanceDelta{{accountID: *t.ToAccountID, amount: t.Amount}}, nil
	case domain.TypeExpense:
		return []balanceDelta{{accountID: *t.FromAccountID, amount: t.Amount.Neg()}}, nil
	}

	from := accounts[*t.FromAccountID]
	to := accounts[*t.ToAccountID]

	credit := t.Amount
	if from.Currency != to.Currency {
		conv, err := e.conversion.ConvertIn(ctx, uow, userID, t.Amount, from.Currency, to.Currency)
		if err != nil {
			if errors.Is(err, domain.ErrRateNotFound) {
				return nil, fmt.Errorf("%w: %w", domain.ErrConversionUnavailable, err)
			}
			return nil, err
		}
		credit = conv.ConvertedAmount
	}

	return []balanceDelta{
		{accountID: *t.FromAccountID, amount: t.Amount.Neg()},
		{accountID: *t.ToAccountID, amount: credit},
	}, nil
}

// applyDeltas applies each delta through the balance ledger, tracking
// working balances so successive deltas on the same account (reversal then
// re-application during update) compose correctly.
func (e *Engine) applyDeltas(
	ctx context.Context,
	uow repository.UnitOfWork,
	userID uuid.UUID,
	deltas []balanceDelta,
	accounts map[uuid.UUID]*domain.Account,
) error {
	for _, d := range deltas {
		acct, ok := accounts[d.accountID]
		if !ok {
			return fmt.Errorf("account %s: %w", d.accountID, domain.ErrAccountNotFound)
		}
		newBalance := acct.CurrentBalance.Add(d.amount)
		if err := e.ledger.ApplyBalance(ctx, uow, userID, d.accountID, newBalance); err != nil {
			return err
		}
		acct.CurrentBalance = newBalance
	}
	return nil
}

// snapshotCurrency picks the currency the transaction is recorded in: the
// source account's for money leaving an account, the destination's for
// income.
func snapshotCurrency(t *domain.Transaction, accounts map[uuid.UUID]*domain.Account) string {
	if t.Type == domain.TypeIncome {
		return accounts[*t.ToAccountID].Currency
	}
	return accounts[*t.FromAccountID].Currency
}

// involvedAccounts lists the account ids a transaction references.
func involvedAccounts(t *domain.Transaction) []uuid.UUID {
	ids := make([]uuid.UUID, 0, 2)
	if t.FromAccountID != nil {
		ids = append(ids, *t.FromAccountID)
	}
	if t.ToAccountID != nil {
		ids = append(ids, *t.ToAccountID)
	}
	return ids
}

// mergePatch lays the patch's set fields over the original, producing the
// effective new transaction. The original value is not mutated.
func mergePatch(orig *domain.Transaction, patch dto.TransactionUpdate) *domain.Transaction {
	merged := *orig
	if patch.Type != nil {
		merged.Type = domain.TransactionType(*patch.Type)
	}
	if patch.Amount != nil {
		merged.Amount = *patch.Amount
	}
	if patch.CategoryID != nil {
		merged.CategoryID = *patch.CategoryID
	}
	if patch.FromAccountID != nil {
		merged.FromAccountID = *patch.FromAccountID
	}
	if patch.ToAccountID != nil {
		merged.ToAccountID = *patch.ToAccountID
	}
	if patch.TransactionDate != nil {
		merged.TransactionDate = *patch.TransactionDate
	}
	if patch.Description != nil {
		merged.Description = *patch.Description
	}
	return &merged
}

// toRead joins a transaction with category and account display names.
// Already-loaded accounts are reused; anything else is fetched.
func (e *Engine) toRead(
	ctx context.Context,
	uow repository.UnitOfWork,
	t *domain.Transaction,
	accounts map[uuid.UUID]*domain.Account,
) (*dto.TransactionRead, error) {
	read := &dto.TransactionRead{
		ID:              t.ID,
		UserID:          t.UserID,
		Type:            string(t.Type),
		Amount:          t.Amount,
		CurrencyCode:    t.CurrencyCode,
		CategoryID:      t.CategoryID,
		FromAccountID:   t.FromAccountID,
		ToAccountID:     t.ToAccountID,
		TransactionDate: t.TransactionDate,
		Description:     t.Description,
		CreatedAt:       t.CreatedAt,
	}

	name := func(id uuid.UUID) (string, error) {
		if accounts != nil {
			if a, ok := accounts[id]; ok {
				return a.Name, nil
			}
		}
		a, err := uow.Accounts().Get(ctx, t.UserID, id)
		if err != nil {
			return "", fmt.Errorf("account %s: %w", id, domain.ErrAccountNotFound)
		}
		return a.Name, nil
	}

	var err error
	if t.FromAccountID != nil {
		if read.FromAccountName, err = name(*t.FromAccountID); err != nil {
			return nil, err
		}
	}
	if t.ToAccountID != nil {
		if read.ToAccountName, err = name(*t.ToAccountID); err != nil {
			return nil, err
		}
	}
	if t.CategoryID != nil {
		cat, err := uow.Categories().Get(ctx, t.UserID, *t.CategoryID)
		if err != nil {
			return nil, fmt.Errorf("category %s: %w", *t.CategoryID, domain.ErrCategoryNotFound)
		}
		read.CategoryName = cat.Name
	}
	return read, nil
}
