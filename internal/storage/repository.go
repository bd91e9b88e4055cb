// Package storage implements ledger.Store on SQLite.
//
// The one rule that matters here: a transaction row write and the balance
// updates it causes are committed in the same database transaction. SQLite
// serializes those commits, which gives the per-account serialization the
// balance invariant needs without any application-level lock.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tally/internal/core"
	"tally/internal/ledger"

	_ "modernc.org/sqlite"
)

const dateLayout = "2006-01-02"

type SQLiteRepository struct {
	db *sql.DB
}

var _ ledger.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func fmtDate(d core.Date) string {
	return d.Format(dateLayout)
}

func parseDate(s string) (core.Date, error) {
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return core.Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return core.Date{Time: t}, nil
}

// nullableID maps the zero id to SQL NULL.
func nullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

// --- accounts ---

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (name, type, initial_balance_cents, current_balance_cents) VALUES (?, ?, ?, ?)`,
		a.Name, string(a.Type), a.InitialBalance.Cents, a.CurrentBalance.Cents)
	if err != nil {
		return core.Account{}, fmt.Errorf("insert account: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Account{}, fmt.Errorf("account id: %w", err)
	}
	a.ID = id
	return a, nil
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	var a core.Account
	var accountType string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, type, initial_balance_cents, current_balance_cents FROM accounts WHERE id = ?`, id).
		Scan(&a.ID, &a.Name, &accountType, &a.InitialBalance.Cents, &a.CurrentBalance.Cents)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, core.ErrNotFound
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account: %w", err)
	}
	a.Type = core.AccountType(accountType)
	return a, nil
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, type, initial_balance_cents, current_balance_cents FROM accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		var a core.Account
		var accountType string
		if err := rows.Scan(&a.ID, &a.Name, &accountType, &a.InitialBalance.Cents, &a.CurrentBalance.Cents); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		a.Type = core.AccountType(accountType)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateAccount(ctx context.Context, a core.Account) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET name = ?, type = ?, current_balance_cents = ? WHERE id = ?`,
		a.Name, string(a.Type), a.CurrentBalance.Cents, a.ID)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteAccount(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) AccountNameExists(ctx context.Context, name string, excludeID int64) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM accounts WHERE name = ? COLLATE NOCASE AND id != ?`, name, excludeID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check account name: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) AccountHasTransactions(ctx context.Context, id int64) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM transactions WHERE account_id = ? OR counter_account_id = ?`, id, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check account transactions: %w", err)
	}
	return n > 0, nil
}

// --- categories ---

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (name, type, color) VALUES (?, ?, ?)`,
		c.Name, string(c.Type), c.Color)
	if err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Category{}, fmt.Errorf("category id: %w", err)
	}
	c.ID = id
	return c, nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	var c core.Category
	var categoryType string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, type, color FROM categories WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &categoryType, &c.Color)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.ErrNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	c.Type = core.CategoryType(categoryType)
	return c, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, type, color FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		var categoryType string
		if err := rows.Scan(&c.ID, &c.Name, &categoryType, &c.Color); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Type = core.CategoryType(categoryType)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.Category) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, type = ?, color = ? WHERE id = ?`,
		c.Name, string(c.Type), c.Color, c.ID)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) CategoryNameExists(ctx context.Context, name string, excludeID int64) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM categories WHERE name = ? COLLATE NOCASE AND id != ?`, name, excludeID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check category name: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) CategoryInUse(ctx context.Context, id int64) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(1) FROM transactions WHERE category_id = ?)
		      + (SELECT COUNT(1) FROM budgets WHERE category_id = ?)`, id, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check category references: %w", err)
	}
	return n > 0, nil
}

// --- budgets ---

func (r *SQLiteRepository) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets (category_id, month, limit_cents) VALUES (?, ?, ?)`,
		b.CategoryID, fmtDate(b.Month), b.Limit.Cents)
	if err != nil {
		return core.Budget{}, fmt.Errorf("insert budget: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Budget{}, fmt.Errorf("budget id: %w", err)
	}
	b.ID = id
	return b, nil
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, id int64) (core.Budget, error) {
	var b core.Budget
	var month string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, category_id, month, limit_cents FROM budgets WHERE id = ?`, id).
		Scan(&b.ID, &b.CategoryID, &month, &b.Limit.Cents)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, core.ErrNotFound
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	if b.Month, err = parseDate(month); err != nil {
		return core.Budget{}, err
	}
	return b, nil
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context, month core.Date) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, category_id, month, limit_cents FROM budgets WHERE month = ? ORDER BY id`,
		fmtDate(month))
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		var b core.Budget
		var m string
		if err := rows.Scan(&b.ID, &b.CategoryID, &m, &b.Limit.Cents); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		if b.Month, err = parseDate(m); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateBudget(ctx context.Context, b core.Budget) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE budgets SET category_id = ?, month = ?, limit_cents = ? WHERE id = ?`,
		b.CategoryID, fmtDate(b.Month), b.Limit.Cents, b.ID)
	if err != nil {
		return fmt.Errorf("update budget: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) BudgetExists(ctx context.Context, categoryID int64, month core.Date, excludeID int64) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM budgets WHERE category_id = ? AND month = ? AND id != ?`,
		categoryID, fmtDate(month), excludeID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check budget: %w", err)
	}
	return n > 0, nil
}

// --- transactions ---

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, account_id, counter_account_id, category_id, type, amount_cents, tx_date, description
		 FROM transactions WHERE id = ?`, id)
	tx, err := scanTransaction(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	return tx, err
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, f ledger.TransactionFilter) ([]core.Transaction, error) {
	query := `SELECT id, account_id, counter_account_id, category_id, type, amount_cents, tx_date, description
	          FROM transactions WHERE 1=1`
	var args []any
	if f.AccountID != 0 {
		query += ` AND (account_id = ? OR counter_account_id = ?)`
		args = append(args, f.AccountID, f.AccountID)
	}
	if f.CategoryID != 0 {
		query += ` AND category_id = ?`
		args = append(args, f.CategoryID)
	}
	if f.Type != "" {
		query += ` AND type = ?`
		args = append(args, string(f.Type))
	}
	if !f.From.IsZero() {
		query += ` AND tx_date >= ?`
		args = append(args, fmtDate(f.From))
	}
	if !f.To.IsZero() {
		query += ` AND tx_date <= ?`
		args = append(args, fmtDate(f.To))
	}
	query += ` ORDER BY tx_date DESC, id DESC`
	if f.Take > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Take)
	} else if f.Skip > 0 {
		query += ` LIMIT -1`
	}
	if f.Skip > 0 {
		query += ` OFFSET ?`
		args = append(args, f.Skip)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

// InsertTransaction commits the row and the balance deltas as one unit.
func (r *SQLiteRepository) InsertTransaction(ctx context.Context, tx core.Transaction, deltas []ledger.BalanceDelta) (core.Transaction, error) {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("begin: %w", err)
	}
	defer dbTx.Rollback()

	res, err := dbTx.ExecContext(ctx,
		`INSERT INTO transactions (account_id, counter_account_id, category_id, type, amount_cents, tx_date, description)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tx.AccountID, nullableID(tx.CounterAccountID), nullableID(tx.CategoryID),
		string(tx.Type), tx.Amount.Cents, fmtDate(tx.Date), tx.Description)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction id: %w", err)
	}
	tx.ID = id

	if err := applyDeltas(ctx, dbTx, deltas); err != nil {
		return core.Transaction{}, err
	}
	if err := dbTx.Commit(); err != nil {
		return core.Transaction{}, fmt.Errorf("commit: %w", err)
	}
	return tx, nil
}

// UpdateTransaction commits the row change and the merged reverse-old,
// apply-new deltas as one unit, so a half-applied update is unobservable.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, tx core.Transaction, deltas []ledger.BalanceDelta) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer dbTx.Rollback()

	res, err := dbTx.ExecContext(ctx,
		`UPDATE transactions SET account_id = ?, counter_account_id = ?, category_id = ?, type = ?, amount_cents = ?, tx_date = ?, description = ?
		 WHERE id = ?`,
		tx.AccountID, nullableID(tx.CounterAccountID), nullableID(tx.CategoryID),
		string(tx.Type), tx.Amount.Cents, fmtDate(tx.Date), tx.Description, tx.ID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}

	if err := applyDeltas(ctx, dbTx, deltas); err != nil {
		return err
	}
	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64, deltas []ledger.BalanceDelta) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer dbTx.Rollback()

	res, err := dbTx.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}

	if err := applyDeltas(ctx, dbTx, deltas); err != nil {
		return err
	}
	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// applyDeltas adjusts account balances inside the caller's transaction. A
// delta for an unknown account surfaces as NotFound and rolls everything
// back.
func applyDeltas(ctx context.Context, dbTx *sql.Tx, deltas []ledger.BalanceDelta) error {
	for _, d := range deltas {
		res, err := dbTx.ExecContext(ctx,
			`UPDATE accounts SET current_balance_cents = current_balance_cents + ? WHERE id = ?`,
			d.Cents, d.AccountID)
		if err != nil {
			return fmt.Errorf("apply balance delta: %w", err)
		}
		if err := requireRow(res); err != nil {
			return fmt.Errorf("account %d: %w", d.AccountID, err)
		}
	}
	return nil
}

func scanTransaction(scan func(dest ...any) error) (core.Transaction, error) {
	var tx core.Transaction
	var counterAccount, category sql.NullInt64
	var txType, date string
	if err := scan(&tx.ID, &tx.AccountID, &counterAccount, &category, &txType, &tx.Amount.Cents, &date, &tx.Description); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Transaction{}, err
		}
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	tx.CounterAccountID = counterAccount.Int64
	tx.CategoryID = category.Int64
	tx.Type = core.TransactionType(txType)
	var err error
	if tx.Date, err = parseDate(date); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}
