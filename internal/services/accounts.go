// Package services implements the business rules on top of the ledger store:
// entity validation and uniqueness, the balance maintainer, and the
// reconciliation oracle.
package services

import (
	"context"
	"fmt"
	"strings"

	"tally/internal/core"
	"tally/internal/ledger"
)

// AccountService manages accounts. Balances are derived state: they are set
// once at creation and from then on mutated only by TransactionService.
type AccountService struct {
	store ledger.Store
}

func NewAccountService(store ledger.Store) *AccountService {
	return &AccountService{store: store}
}

// Create validates and persists a new account. The name is trimmed and must
// be unique (case-insensitive). CurrentBalance starts equal to InitialBalance.
func (s *AccountService) Create(ctx context.Context, a core.Account) (core.Account, error) {
	a.Name = strings.TrimSpace(a.Name)
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}

	exists, err := s.store.AccountNameExists(ctx, a.Name, 0)
	if err != nil {
		return core.Account{}, fmt.Errorf("check account name: %w", err)
	}
	if exists {
		return core.Account{}, fmt.Errorf("%w: account name %q already exists", core.ErrConflict, a.Name)
	}

	a.CurrentBalance = a.InitialBalance
	created, err := s.store.CreateAccount(ctx, a)
	if err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	return created, nil
}

func (s *AccountService) Get(ctx context.Context, id int64) (core.Account, error) {
	return s.store.GetAccount(ctx, id)
}

func (s *AccountService) List(ctx context.Context) ([]core.Account, error) {
	return s.store.ListAccounts(ctx)
}

// Update renames or retypes an account. Balances are never writable here.
func (s *AccountService) Update(ctx context.Context, id int64, name string, accountType core.AccountType) (core.Account, error) {
	existing, err := s.store.GetAccount(ctx, id)
	if err != nil {
		return core.Account{}, err
	}

	existing.Name = strings.TrimSpace(name)
	existing.Type = accountType
	if err := existing.Validate(); err != nil {
		return core.Account{}, err
	}

	exists, err := s.store.AccountNameExists(ctx, existing.Name, id)
	if err != nil {
		return core.Account{}, fmt.Errorf("check account name: %w", err)
	}
	if exists {
		return core.Account{}, fmt.Errorf("%w: account name %q already exists", core.ErrConflict, existing.Name)
	}

	if err := s.store.UpdateAccount(ctx, existing); err != nil {
		return core.Account{}, fmt.Errorf("update account: %w", err)
	}
	return existing, nil
}

// Delete removes an account. Deletion is restricted while transactions still
// reference the account, surfaced as a conflict.
func (s *AccountService) Delete(ctx context.Context, id int64) error {
	if _, err := s.store.GetAccount(ctx, id); err != nil {
		return err
	}

	referenced, err := s.store.AccountHasTransactions(ctx, id)
	if err != nil {
		return fmt.Errorf("check account references: %w", err)
	}
	if referenced {
		return fmt.Errorf("%w: account has transactions", core.ErrConflict)
	}

	return s.store.DeleteAccount(ctx, id)
}
