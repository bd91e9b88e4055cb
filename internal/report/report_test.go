package report

import (
	"reflect"
	"testing"

	"tally/internal/core"
)

func expense(id, category int64, cents int64, year, month, day int) core.Transaction {
	return core.Transaction{
		ID:         id,
		AccountID:  1,
		CategoryID: category,
		Type:       core.Expense,
		Amount:     core.Money{Cents: cents},
		Date:       core.NewDate(year, month, day),
	}
}

func income(id, category int64, cents int64, year, month, day int) core.Transaction {
	tx := expense(id, category, cents, year, month, day)
	tx.Type = core.Income
	return tx
}

func TestDashboardSnapshot(t *testing.T) {
	accounts := []core.Account{
		{ID: 1, CurrentBalance: core.Money{Cents: 100000}},
		{ID: 2, CurrentBalance: core.Money{Cents: 25000}},
	}
	transactions := []core.Transaction{
		income(1, 10, 300000, 2024, 5, 1),
		expense(2, 20, 45000, 2024, 5, 12),
		expense(3, 20, 5000, 2024, 4, 30), // previous month, excluded from figures
		{ID: 4, AccountID: 1, CounterAccountID: 2, Type: core.Transfer, Amount: core.Money{Cents: 10000}, Date: core.NewDate(2024, 5, 15)},
	}

	d := DashboardSnapshot(accounts, transactions, 2024, 5)

	if d.TotalBalance.Cents != 125000 {
		t.Errorf("total balance = %d, want 125000", d.TotalBalance.Cents)
	}
	if d.MonthIncome.Cents != 300000 {
		t.Errorf("month income = %d, want 300000", d.MonthIncome.Cents)
	}
	if d.MonthExpense.Cents != 45000 {
		t.Errorf("month expense = %d, want 45000", d.MonthExpense.Cents)
	}
	if d.Net.Cents != 255000 {
		t.Errorf("net = %d, want 255000", d.Net.Cents)
	}
	if len(d.Recent) != 4 {
		t.Fatalf("recent count = %d, want 4", len(d.Recent))
	}
	// Most recent first
	if d.Recent[0].ID != 4 || d.Recent[1].ID != 2 {
		t.Errorf("recent order = [%d %d ...], want [4 2 ...]", d.Recent[0].ID, d.Recent[1].ID)
	}
}

func TestDashboardSnapshotCapsRecent(t *testing.T) {
	var transactions []core.Transaction
	for i := 1; i <= 10; i++ {
		transactions = append(transactions, expense(int64(i), 1, 100, 2024, 5, i))
	}

	d := DashboardSnapshot(nil, transactions, 2024, 5)

	if len(d.Recent) != RecentLimit {
		t.Errorf("recent count = %d, want %d", len(d.Recent), RecentLimit)
	}
	if d.Recent[0].ID != 10 {
		t.Errorf("first recent id = %d, want 10", d.Recent[0].ID)
	}
}

func TestBudgetVsActualOverBudget(t *testing.T) {
	// Groceries budget of 300.00 with 350.00 of expenses in the month.
	budgets := []core.Budget{
		{ID: 1, CategoryID: 7, Month: core.MonthStart(2024, 5), Limit: core.Money{Cents: 30000}},
	}
	transactions := []core.Transaction{
		expense(1, 7, 20000, 2024, 5, 3),
		expense(2, 7, 15000, 2024, 5, 20),
		expense(3, 7, 9900, 2024, 6, 1), // outside the month
	}

	rows := BudgetVsActual(budgets, transactions, 2024, 5)

	if len(rows) != 1 {
		t.Fatalf("row count = %d, want 1", len(rows))
	}
	row := rows[0]
	if row.Actual.Cents != 35000 {
		t.Errorf("actual = %d, want 35000", row.Actual.Cents)
	}
	if row.Remaining.Cents != -5000 {
		t.Errorf("remaining = %d, want -5000", row.Remaining.Cents)
	}
	if row.PercentUsed <= 100 {
		t.Errorf("percent used = %f, want > 100", row.PercentUsed)
	}
}

func TestBudgetVsActualZeroLimit(t *testing.T) {
	budgets := []core.Budget{
		{ID: 1, CategoryID: 7, Month: core.MonthStart(2024, 5), Limit: core.Money{}},
	}
	transactions := []core.Transaction{expense(1, 7, 1000, 2024, 5, 3)}

	rows := BudgetVsActual(budgets, transactions, 2024, 5)

	if len(rows) != 1 {
		t.Fatalf("row count = %d, want 1", len(rows))
	}
	if rows[0].PercentUsed != PercentUndefined {
		t.Errorf("percent used = %f, want sentinel %f", rows[0].PercentUsed, PercentUndefined)
	}
	if rows[0].Remaining.Cents != -1000 {
		t.Errorf("remaining = %d, want -1000", rows[0].Remaining.Cents)
	}
}

func TestBudgetVsActualSkipsOtherMonths(t *testing.T) {
	budgets := []core.Budget{
		{ID: 1, CategoryID: 7, Month: core.MonthStart(2024, 4), Limit: core.Money{Cents: 100}},
		{ID: 2, CategoryID: 8, Month: core.MonthStart(2024, 5), Limit: core.Money{Cents: 200}},
	}

	rows := BudgetVsActual(budgets, nil, 2024, 5)

	if len(rows) != 1 || rows[0].BudgetID != 2 {
		t.Fatalf("rows = %+v, want only budget 2", rows)
	}
}

func TestSummarizeOrdering(t *testing.T) {
	transactions := []core.Transaction{
		expense(1, 3, 5000, 2024, 5, 1),
		expense(2, 1, 5000, 2024, 5, 2), // same magnitude as category 3, lower id wins ties
		income(3, 2, 90000, 2024, 5, 3),
		expense(4, 3, 2500, 2024, 5, 9),
	}

	s := Summarize(transactions, 2024, 5)

	if s.TotalIncome.Cents != 90000 {
		t.Errorf("total income = %d, want 90000", s.TotalIncome.Cents)
	}
	if s.TotalExpense.Cents != 12500 {
		t.Errorf("total expense = %d, want 12500", s.TotalExpense.Cents)
	}
	if s.Net.Cents != 77500 {
		t.Errorf("net = %d, want 77500", s.Net.Cents)
	}

	gotOrder := make([]int64, len(s.ByCategory))
	for i, ca := range s.ByCategory {
		gotOrder[i] = ca.CategoryID
	}
	// category 2: |90000|, category 3: |-7500|, category 1: |-5000|
	wantOrder := []int64{2, 3, 1}
	if !reflect.DeepEqual(gotOrder, wantOrder) {
		t.Errorf("category order = %v, want %v", gotOrder, wantOrder)
	}
}

func TestSummarizeTieBreaksByCategoryID(t *testing.T) {
	transactions := []core.Transaction{
		expense(1, 9, 5000, 2024, 5, 1),
		expense(2, 4, 5000, 2024, 5, 2),
	}

	s := Summarize(transactions, 2024, 5)

	if len(s.ByCategory) != 2 || s.ByCategory[0].CategoryID != 4 || s.ByCategory[1].CategoryID != 9 {
		t.Errorf("tie break order = %+v, want category 4 before 9", s.ByCategory)
	}
}

func TestCategoryBreakdown(t *testing.T) {
	transactions := []core.Transaction{
		expense(1, 1, 10000, 2024, 5, 1),
		expense(2, 1, 5000, 2024, 5, 31), // inclusive end
		income(3, 2, 2000, 2024, 5, 15),
		expense(4, 1, 7000, 2024, 6, 1), // outside range
	}

	rows := CategoryBreakdown(transactions, core.NewDate(2024, 5, 1), core.NewDate(2024, 5, 31))

	if len(rows) != 2 {
		t.Fatalf("row count = %d, want 2", len(rows))
	}
	if rows[0].CategoryID != 1 || rows[0].Total.Cents != -15000 || rows[0].Count != 2 {
		t.Errorf("row 0 = %+v, want category 1 total -15000 count 2", rows[0])
	}
	if rows[1].CategoryID != 2 || rows[1].Total.Cents != 2000 || rows[1].Count != 1 {
		t.Errorf("row 1 = %+v, want category 2 total 2000 count 1", rows[1])
	}
}

func TestCategoryBreakdownInvertedRange(t *testing.T) {
	transactions := []core.Transaction{expense(1, 1, 10000, 2024, 5, 1)}

	rows := CategoryBreakdown(transactions, core.NewDate(2024, 6, 1), core.NewDate(2024, 5, 1))

	if len(rows) != 0 {
		t.Errorf("inverted range should yield no rows, got %+v", rows)
	}
}

// Reports are pure: same inputs, same outputs, inputs untouched.
func TestReportsIdempotent(t *testing.T) {
	accounts := []core.Account{{ID: 1, CurrentBalance: core.Money{Cents: 100}}}
	transactions := []core.Transaction{
		expense(1, 1, 5000, 2024, 5, 2),
		income(2, 2, 9000, 2024, 5, 1),
	}
	budgets := []core.Budget{
		{ID: 1, CategoryID: 1, Month: core.MonthStart(2024, 5), Limit: core.Money{Cents: 10000}},
	}
	snapshot := append([]core.Transaction(nil), transactions...)

	d1 := DashboardSnapshot(accounts, transactions, 2024, 5)
	d2 := DashboardSnapshot(accounts, transactions, 2024, 5)
	if !reflect.DeepEqual(d1, d2) {
		t.Error("DashboardSnapshot is not idempotent")
	}

	b1 := BudgetVsActual(budgets, transactions, 2024, 5)
	b2 := BudgetVsActual(budgets, transactions, 2024, 5)
	if !reflect.DeepEqual(b1, b2) {
		t.Error("BudgetVsActual is not idempotent")
	}

	s1 := Summarize(transactions, 2024, 5)
	s2 := Summarize(transactions, 2024, 5)
	if !reflect.DeepEqual(s1, s2) {
		t.Error("Summarize is not idempotent")
	}

	c1 := CategoryBreakdown(transactions, core.NewDate(2024, 5, 1), core.NewDate(2024, 5, 31))
	c2 := CategoryBreakdown(transactions, core.NewDate(2024, 5, 1), core.NewDate(2024, 5, 31))
	if !reflect.DeepEqual(c1, c2) {
		t.Error("CategoryBreakdown is not idempotent")
	}

	if !reflect.DeepEqual(transactions, snapshot) {
		t.Error("report functions mutated their input slice")
	}
}
