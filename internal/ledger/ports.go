// Package ledger defines the persistence ports consumed by the services
// layer. Implementations: storage (SQLite) for production, memory for tests.
package ledger

import (
	"context"

	"tally/internal/core"
)

// BalanceDelta is a signed adjustment to one account's current balance.
// Stores must apply every delta of a mutation in the same atomic unit as the
// transaction row write: this is what serializes concurrent balance updates
// per account without an application-level lock.
type BalanceDelta struct {
	AccountID int64
	Cents     int64
}

// TransactionFilter narrows ListTransactions. Zero values mean "no filter".
type TransactionFilter struct {
	AccountID  int64
	CategoryID int64
	Type       core.TransactionType
	From       core.Date
	To         core.Date
	Skip       int
	Take       int
}

type AccountStore interface {
	CreateAccount(ctx context.Context, a core.Account) (core.Account, error)
	GetAccount(ctx context.Context, id int64) (core.Account, error)
	ListAccounts(ctx context.Context) ([]core.Account, error)
	UpdateAccount(ctx context.Context, a core.Account) error
	DeleteAccount(ctx context.Context, id int64) error
	AccountNameExists(ctx context.Context, name string, excludeID int64) (bool, error)
	AccountHasTransactions(ctx context.Context, id int64) (bool, error)
}

type CategoryStore interface {
	CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
	GetCategory(ctx context.Context, id int64) (core.Category, error)
	ListCategories(ctx context.Context) ([]core.Category, error)
	UpdateCategory(ctx context.Context, c core.Category) error
	DeleteCategory(ctx context.Context, id int64) error
	CategoryNameExists(ctx context.Context, name string, excludeID int64) (bool, error)
	CategoryInUse(ctx context.Context, id int64) (bool, error)
}

type BudgetStore interface {
	CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
	GetBudget(ctx context.Context, id int64) (core.Budget, error)
	ListBudgets(ctx context.Context, month core.Date) ([]core.Budget, error)
	UpdateBudget(ctx context.Context, b core.Budget) error
	DeleteBudget(ctx context.Context, id int64) error
	BudgetExists(ctx context.Context, categoryID int64, month core.Date, excludeID int64) (bool, error)
}

// TransactionStore is the durable write path of the ledger. The three
// mutating methods take the balance deltas computed by the services layer and
// must commit row write and balance updates together, or not at all.
type TransactionStore interface {
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error)
	InsertTransaction(ctx context.Context, tx core.Transaction, deltas []BalanceDelta) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, tx core.Transaction, deltas []BalanceDelta) error
	DeleteTransaction(ctx context.Context, id int64, deltas []BalanceDelta) error
}

// Store is the full ledger persistence surface.
type Store interface {
	AccountStore
	CategoryStore
	BudgetStore
	TransactionStore
}
