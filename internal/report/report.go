// Package report folds ledger snapshots into dashboard and report shapes.
//
// Every function here is pure: it takes immutable slices, performs exact
// fixed-point arithmetic in cents, and returns plain data. No I/O, no hidden
// state, safe under arbitrary concurrency.
package report

import (
	"sort"

	"tally/internal/core"
)

// PercentUndefined is reported for budgets with a zero limit, where percent
// used has no meaning. Callers must not treat it as a real percentage.
const PercentUndefined = -1.0

// RecentLimit caps the recent-transactions list on the dashboard.
const RecentLimit = 5

type Dashboard struct {
	TotalBalance core.Money
	MonthIncome  core.Money
	MonthExpense core.Money
	Net          core.Money
	Recent       []core.Transaction
}

type BudgetRow struct {
	BudgetID    int64
	CategoryID  int64
	Limit       core.Money
	Actual      core.Money
	Remaining   core.Money
	PercentUsed float64
}

type CategoryAmount struct {
	CategoryID int64
	Amount     core.Money
}

type MonthlySummary struct {
	TotalIncome  core.Money
	TotalExpense core.Money
	Net          core.Money
	ByCategory   []CategoryAmount
}

type CategoryTotal struct {
	CategoryID int64
	Total      core.Money
	Count      int
}

// DashboardSnapshot sums all account balances and the given month's income and
// expense figures. Transfers move money between accounts and affect neither
// income nor expense. Recent transactions are returned most recent first,
// capped at RecentLimit, with ties broken by descending id.
func DashboardSnapshot(accounts []core.Account, transactions []core.Transaction, year, month int) Dashboard {
	var d Dashboard
	for _, a := range accounts {
		d.TotalBalance.Cents += a.CurrentBalance.Cents
	}
	for _, tx := range transactions {
		if !tx.Date.InMonth(year, month) {
			continue
		}
		switch tx.Type {
		case core.Income:
			d.MonthIncome.Cents += tx.Amount.Cents
		case core.Expense:
			d.MonthExpense.Cents += tx.Amount.Cents
		}
	}
	d.Net.Cents = d.MonthIncome.Cents - d.MonthExpense.Cents

	recent := make([]core.Transaction, len(transactions))
	copy(recent, transactions)
	sort.Slice(recent, func(i, j int) bool {
		if !recent[i].Date.Equal(recent[j].Date.Time) {
			return recent[i].Date.After(recent[j].Date.Time)
		}
		return recent[i].ID > recent[j].ID
	})
	if len(recent) > RecentLimit {
		recent = recent[:RecentLimit]
	}
	d.Recent = recent
	return d
}

// BudgetVsActual compares each budget of the target month against the sum of
// expense transactions in its category and month. Remaining may be negative:
// over-budget is a reportable state, not an error. PercentUsed is
// PercentUndefined when the limit is zero; there is never a division by zero.
func BudgetVsActual(budgets []core.Budget, transactions []core.Transaction, year, month int) []BudgetRow {
	actuals := make(map[int64]int64)
	for _, tx := range transactions {
		if tx.Type != core.Expense || !tx.Date.InMonth(year, month) {
			continue
		}
		actuals[tx.CategoryID] += tx.Amount.Cents
	}

	rows := make([]BudgetRow, 0, len(budgets))
	for _, b := range budgets {
		if !b.Month.InMonth(year, month) {
			continue
		}
		actual := actuals[b.CategoryID]
		row := BudgetRow{
			BudgetID:    b.ID,
			CategoryID:  b.CategoryID,
			Limit:       b.Limit,
			Actual:      core.Money{Cents: actual},
			Remaining:   core.Money{Cents: b.Limit.Cents - actual},
			PercentUsed: PercentUndefined,
		}
		if b.Limit.Cents > 0 {
			row.PercentUsed = float64(actual) / float64(b.Limit.Cents) * 100
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].CategoryID < rows[j].CategoryID
	})
	return rows
}

// Summarize groups the month's income and expense transactions by category.
// ByCategory is ordered by descending absolute amount, ties broken by
// ascending category id, so output is deterministic. Expense amounts are
// reported negative, income positive.
func Summarize(transactions []core.Transaction, year, month int) MonthlySummary {
	var s MonthlySummary
	perCategory := make(map[int64]int64)
	for _, tx := range transactions {
		if !tx.Date.InMonth(year, month) {
			continue
		}
		switch tx.Type {
		case core.Income:
			s.TotalIncome.Cents += tx.Amount.Cents
			perCategory[tx.CategoryID] += tx.Amount.Cents
		case core.Expense:
			s.TotalExpense.Cents += tx.Amount.Cents
			perCategory[tx.CategoryID] -= tx.Amount.Cents
		}
	}
	s.Net.Cents = s.TotalIncome.Cents - s.TotalExpense.Cents

	s.ByCategory = make([]CategoryAmount, 0, len(perCategory))
	for id, cents := range perCategory {
		s.ByCategory = append(s.ByCategory, CategoryAmount{CategoryID: id, Amount: core.Money{Cents: cents}})
	}
	sort.Slice(s.ByCategory, func(i, j int) bool {
		ai, aj := abs(s.ByCategory[i].Amount.Cents), abs(s.ByCategory[j].Amount.Cents)
		if ai != aj {
			return ai > aj
		}
		return s.ByCategory[i].CategoryID < s.ByCategory[j].CategoryID
	})
	return s
}

// CategoryBreakdown totals income and expense transactions per category over
// an inclusive date range. An inverted range yields an empty slice; validation
// of the range belongs to the caller. Rows are ordered by descending absolute
// total, ties broken by ascending category id.
func CategoryBreakdown(transactions []core.Transaction, start, end core.Date) []CategoryTotal {
	totals := make(map[int64]*CategoryTotal)
	for _, tx := range transactions {
		if tx.Type == core.Transfer {
			continue
		}
		if tx.Date.Before(start.Time) || tx.Date.After(end.Time) {
			continue
		}
		ct, ok := totals[tx.CategoryID]
		if !ok {
			ct = &CategoryTotal{CategoryID: tx.CategoryID}
			totals[tx.CategoryID] = ct
		}
		ct.Total.Cents += tx.SignedAmount()
		ct.Count++
	}

	rows := make([]CategoryTotal, 0, len(totals))
	for _, ct := range totals {
		rows = append(rows, *ct)
	}
	sort.Slice(rows, func(i, j int) bool {
		ai, aj := abs(rows[i].Total.Cents), abs(rows[j].Total.Cents)
		if ai != aj {
			return ai > aj
		}
		return rows[i].CategoryID < rows[j].CategoryID
	})
	return rows
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
