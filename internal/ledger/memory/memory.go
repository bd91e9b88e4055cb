// Package memory is an in-memory ledger.Store used by tests and as a
// throwaway backend. It honors the same atomicity contract as the SQLite
// store: balance deltas are applied under the same lock as the row mutation.
package memory

import (
	"context"
	"strings"
	"sync"

	"tally/internal/core"
	"tally/internal/ledger"
)

type Store struct {
	mu sync.Mutex

	nextID       int64
	accounts     map[int64]core.Account
	categories   map[int64]core.Category
	budgets      map[int64]core.Budget
	transactions map[int64]core.Transaction
}

func New() *Store {
	return &Store{
		accounts:     make(map[int64]core.Account),
		categories:   make(map[int64]core.Category),
		budgets:      make(map[int64]core.Budget),
		transactions: make(map[int64]core.Transaction),
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// applyDeltas mutates balances in place. Callers hold s.mu.
func (s *Store) applyDeltas(deltas []ledger.BalanceDelta) error {
	for _, d := range deltas {
		if _, ok := s.accounts[d.AccountID]; !ok {
			return core.ErrNotFound
		}
	}
	for _, d := range deltas {
		a := s.accounts[d.AccountID]
		a.CurrentBalance.Cents += d.Cents
		s.accounts[d.AccountID] = a
	}
	return nil
}

func (s *Store) CreateAccount(_ context.Context, a core.Account) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.id()
	s.accounts[a.ID] = a
	return a, nil
}

func (s *Store) GetAccount(_ context.Context, id int64) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return core.Account{}, core.ErrNotFound
	}
	return a, nil
}

func (s *Store) ListAccounts(_ context.Context) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Account, 0, len(s.accounts))
	for id := int64(1); id <= s.nextID; id++ {
		if a, ok := s.accounts[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Store) UpdateAccount(_ context.Context, a core.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[a.ID]; !ok {
		return core.ErrNotFound
	}
	s.accounts[a.ID] = a
	return nil
}

func (s *Store) DeleteAccount(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.accounts, id)
	return nil
}

func (s *Store) AccountNameExists(_ context.Context, name string, excludeID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.ID != excludeID && strings.EqualFold(a.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) AccountHasTransactions(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tx := range s.transactions {
		if tx.AccountID == id || tx.CounterAccountID == id {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) CreateCategory(_ context.Context, c core.Category) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.id()
	s.categories[c.ID] = c
	return c, nil
}

func (s *Store) GetCategory(_ context.Context, id int64) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok {
		return core.Category{}, core.ErrNotFound
	}
	return c, nil
}

func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Category, 0, len(s.categories))
	for id := int64(1); id <= s.nextID; id++ {
		if c, ok := s.categories[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) UpdateCategory(_ context.Context, c core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[c.ID]; !ok {
		return core.ErrNotFound
	}
	s.categories[c.ID] = c
	return nil
}

func (s *Store) DeleteCategory(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.categories, id)
	return nil
}

func (s *Store) CategoryNameExists(_ context.Context, name string, excludeID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.categories {
		if c.ID != excludeID && strings.EqualFold(c.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) CategoryInUse(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tx := range s.transactions {
		if tx.CategoryID == id {
			return true, nil
		}
	}
	for _, b := range s.budgets {
		if b.CategoryID == id {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) CreateBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.ID = s.id()
	s.budgets[b.ID] = b
	return b, nil
}

func (s *Store) GetBudget(_ context.Context, id int64) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[id]
	if !ok {
		return core.Budget{}, core.ErrNotFound
	}
	return b, nil
}

func (s *Store) ListBudgets(_ context.Context, month core.Date) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Budget
	for id := int64(1); id <= s.nextID; id++ {
		if b, ok := s.budgets[id]; ok && b.Month.Equal(month.Time) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *Store) UpdateBudget(_ context.Context, b core.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.budgets[b.ID]; !ok {
		return core.ErrNotFound
	}
	s.budgets[b.ID] = b
	return nil
}

func (s *Store) DeleteBudget(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.budgets[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.budgets, id)
	return nil
}

func (s *Store) BudgetExists(_ context.Context, categoryID int64, month core.Date, excludeID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.budgets {
		if b.ID != excludeID && b.CategoryID == categoryID && b.Month.Equal(month.Time) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) GetTransaction(_ context.Context, id int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[id]
	if !ok {
		return core.Transaction{}, core.ErrNotFound
	}
	return tx, nil
}

func (s *Store) ListTransactions(_ context.Context, f ledger.TransactionFilter) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for id := int64(1); id <= s.nextID; id++ {
		tx, ok := s.transactions[id]
		if !ok {
			continue
		}
		if f.AccountID != 0 && tx.AccountID != f.AccountID && tx.CounterAccountID != f.AccountID {
			continue
		}
		if f.CategoryID != 0 && tx.CategoryID != f.CategoryID {
			continue
		}
		if f.Type != "" && tx.Type != f.Type {
			continue
		}
		if !f.From.IsZero() && tx.Date.Before(f.From.Time) {
			continue
		}
		if !f.To.IsZero() && tx.Date.After(f.To.Time) {
			continue
		}
		out = append(out, tx)
	}
	if f.Skip > 0 {
		if f.Skip >= len(out) {
			return nil, nil
		}
		out = out[f.Skip:]
	}
	if f.Take > 0 && f.Take < len(out) {
		out = out[:f.Take]
	}
	return out, nil
}

func (s *Store) InsertTransaction(_ context.Context, tx core.Transaction, deltas []ledger.BalanceDelta) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.applyDeltas(deltas); err != nil {
		return core.Transaction{}, err
	}
	tx.ID = s.id()
	s.transactions[tx.ID] = tx
	return tx, nil
}

func (s *Store) UpdateTransaction(_ context.Context, tx core.Transaction, deltas []ledger.BalanceDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transactions[tx.ID]; !ok {
		return core.ErrNotFound
	}
	if err := s.applyDeltas(deltas); err != nil {
		return err
	}
	s.transactions[tx.ID] = tx
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, id int64, deltas []ledger.BalanceDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transactions[id]; !ok {
		return core.ErrNotFound
	}
	if err := s.applyDeltas(deltas); err != nil {
		return err
	}
	delete(s.transactions, id)
	return nil
}
