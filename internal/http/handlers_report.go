package http

import (
	"net/http"

	"tally/internal/core"
	"tally/internal/ledger"
	"tally/internal/report"
)

type moneyField struct {
	Cents     int64  `json:"cents"`
	Formatted string `json:"formatted"`
}

func toMoneyField(m core.Money) moneyField {
	return moneyField{Cents: m.Cents, Formatted: core.FormatCents(m.Cents)}
}

type dashboardResponse struct {
	TotalBalance moneyField            `json:"total_balance"`
	MonthIncome  moneyField            `json:"month_income"`
	MonthExpense moneyField            `json:"month_expense"`
	Net          moneyField            `json:"net"`
	Recent       []transactionResponse `json:"recent"`
}

type budgetRowResponse struct {
	BudgetID    int64      `json:"budget_id"`
	CategoryID  int64      `json:"category_id"`
	Limit       moneyField `json:"limit"`
	Actual      moneyField `json:"actual"`
	Remaining   moneyField `json:"remaining"`
	PercentUsed float64    `json:"percent_used"`
}

type categoryAmountResponse struct {
	CategoryID int64      `json:"category_id"`
	Amount     moneyField `json:"amount"`
}

type monthlySummaryResponse struct {
	TotalIncome  moneyField               `json:"total_income"`
	TotalExpense moneyField               `json:"total_expense"`
	Net          moneyField               `json:"net"`
	ByCategory   []categoryAmountResponse `json:"by_category"`
}

type categoryTotalResponse struct {
	CategoryID int64      `json:"category_id"`
	Total      moneyField `json:"total"`
	Count      int        `json:"count"`
}

// monthTransactions loads the transactions needed for a one-month report.
// The aggregation functions re-filter by month themselves; the ranged query
// just keeps the working set small.
func (s *Server) monthTransactions(r *http.Request, year, month int) ([]core.Transaction, error) {
	return s.transactions.List(r.Context(), ledger.TransactionFilter{
		From: core.MonthStart(year, month),
		To:   core.NewDate(year, month+1, 0),
	})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	year, month, err := parseMonth(r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	accounts, err := s.accounts.List(r.Context())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	txs, err := s.transactions.List(r.Context(), ledger.TransactionFilter{})
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	d := report.DashboardSnapshot(accounts, txs, year, month)
	resp := dashboardResponse{
		TotalBalance: toMoneyField(d.TotalBalance),
		MonthIncome:  toMoneyField(d.MonthIncome),
		MonthExpense: toMoneyField(d.MonthExpense),
		Net:          toMoneyField(d.Net),
		Recent:       make([]transactionResponse, 0, len(d.Recent)),
	}
	for _, tx := range d.Recent {
		resp.Recent = append(resp.Recent, toTransactionResponse(tx))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBudgetVsActual(w http.ResponseWriter, r *http.Request) {
	year, month, err := parseMonth(r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	budgets, err := s.budgets.ListMonth(r.Context(), year, month)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	txs, err := s.monthTransactions(r, year, month)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	rows := report.BudgetVsActual(budgets, txs, year, month)
	out := make([]budgetRowResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, budgetRowResponse{
			BudgetID:    row.BudgetID,
			CategoryID:  row.CategoryID,
			Limit:       toMoneyField(row.Limit),
			Actual:      toMoneyField(row.Actual),
			Remaining:   toMoneyField(row.Remaining),
			PercentUsed: row.PercentUsed,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMonthlySummary(w http.ResponseWriter, r *http.Request) {
	year, month, err := parseMonth(r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	txs, err := s.monthTransactions(r, year, month)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	sum := report.Summarize(txs, year, month)
	resp := monthlySummaryResponse{
		TotalIncome:  toMoneyField(sum.TotalIncome),
		TotalExpense: toMoneyField(sum.TotalExpense),
		Net:          toMoneyField(sum.Net),
		ByCategory:   make([]categoryAmountResponse, 0, len(sum.ByCategory)),
	}
	for _, ca := range sum.ByCategory {
		resp.ByCategory = append(resp.ByCategory, categoryAmountResponse{
			CategoryID: ca.CategoryID,
			Amount:     toMoneyField(ca.Amount),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCategoryBreakdown(w http.ResponseWriter, r *http.Request) {
	start, err := parseDateParam(r, "from")
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	end, err := parseDateParam(r, "to")
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if start.IsZero() || end.IsZero() {
		writeError(r.Context(), w, core.ErrInvalidDate)
		return
	}
	if end.Before(start.Time) {
		writeError(r.Context(), w, core.ErrInvalidDateRange)
		return
	}

	txs, err := s.transactions.List(r.Context(), ledger.TransactionFilter{From: start, To: end})
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	rows := report.CategoryBreakdown(txs, start, end)
	out := make([]categoryTotalResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, categoryTotalResponse{
			CategoryID: row.CategoryID,
			Total:      toMoneyField(row.Total),
			Count:      row.Count,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
