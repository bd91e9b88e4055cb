package core

import (
	"strings"
	"time"
)

const (
	Checking   AccountType = "checking"
	Savings    AccountType = "savings"
	Cash       AccountType = "cash"
	Credit     AccountType = "credit"
	Investment AccountType = "investment"
)

const (
	Income   TransactionType = "income"
	Expense  TransactionType = "expense"
	Transfer TransactionType = "transfer"
)

const (
	CategoryIncome  CategoryType = "income"
	CategoryExpense CategoryType = "expense"
)

type (
	AccountType     string
	TransactionType string
	CategoryType    string

	// Date is a calendar date, UTC-normalized to midnight.
	Date struct {
		time.Time
	}

	// Account holds a derived balance: CurrentBalance always equals
	// InitialBalance plus the signed sum of the account's extant transactions.
	// It is mutated only through the ledger service, never directly.
	Account struct {
		ID             int64
		Name           string
		Type           AccountType
		InitialBalance Money
		CurrentBalance Money
	}

	Category struct {
		ID    int64
		Name  string
		Type  CategoryType
		Color string // display hint, opaque to the core
	}

	// Budget is a spending limit for one category in one calendar month.
	// Unique per (CategoryID, Month); Month is normalized to the first of the
	// month at midnight UTC.
	Budget struct {
		ID         int64
		CategoryID int64
		Month      Date
		Limit      Money
	}

	// Transaction is owned by exactly one account. CategoryID is zero for
	// transfers and required otherwise. CounterAccountID is the destination
	// account of a transfer and zero otherwise. Amount is an unsigned
	// magnitude; the sign is derived from Type.
	Transaction struct {
		ID               int64
		AccountID        int64
		CounterAccountID int64
		CategoryID       int64
		Type             TransactionType
		Amount           Money
		Date             Date
		Description      string
	}
)

// NewDate creates a Date from year, month, day at midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// MonthStart returns the first day of the given month at midnight UTC.
func MonthStart(year, month int) Date {
	return NewDate(year, month, 1)
}

// Normalize truncates the date to midnight UTC.
func (d Date) Normalize() Date {
	y, m, day := d.UTC().Date()
	return NewDate(y, int(m), day)
}

// InMonth reports whether the date falls in the given calendar month.
func (d Date) InMonth(year, month int) bool {
	y, m, _ := d.Date()
	return y == year && int(m) == month
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (t AccountType) Validate() error {
	switch t {
	case Checking, Savings, Cash, Credit, Investment:
		return nil
	}
	return ErrInvalidAccountType
}

func (t TransactionType) Validate() error {
	switch t {
	case Income, Expense, Transfer:
		return nil
	}
	return ErrInvalidTxType
}

func (t CategoryType) Validate() error {
	switch t {
	case CategoryIncome, CategoryExpense:
		return nil
	}
	return ErrInvalidTxType
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if err := a.Type.Validate(); err != nil {
		return err
	}
	if a.InitialBalance.Cents < 0 {
		return ErrNegativeBalance
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	return c.Type.Validate()
}

func (b Budget) Validate() error {
	if b.CategoryID == 0 {
		return ErrMissingCategory
	}
	if err := b.Month.Validate(); err != nil {
		return err
	}
	if b.Limit.Cents < 0 {
		return ErrNegativeLimit
	}
	return nil
}

func (t Transaction) Validate() error {
	if t.AccountID == 0 {
		return ErrNotFound
	}
	if err := t.Type.Validate(); err != nil {
		return err
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	switch t.Type {
	case Transfer:
		if t.CounterAccountID == 0 {
			return ErrMissingCounterpart
		}
	default:
		if t.CategoryID == 0 {
			return ErrMissingCategory
		}
	}
	return nil
}

// SignedAmount is the effect of the transaction on its owning account:
// positive for income, negative for expense and for the source leg of a
// transfer.
func (t Transaction) SignedAmount() int64 {
	if t.Type == Income {
		return t.Amount.Cents
	}
	return -t.Amount.Cents
}
