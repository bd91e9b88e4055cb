package http

import (
	"net/http"

	"tally/internal/core"
)

type budgetRequest struct {
	CategoryID int64  `json:"category_id"`
	Month      string `json:"month"`
	Limit      string `json:"limit"`
}

type budgetResponse struct {
	ID         int64  `json:"id"`
	CategoryID int64  `json:"category_id"`
	Month      string `json:"month"`
	LimitCents int64  `json:"limit_cents"`
	Limit      string `json:"limit"`
}

func toBudgetResponse(b core.Budget) budgetResponse {
	return budgetResponse{
		ID:         b.ID,
		CategoryID: b.CategoryID,
		Month:      b.Month.Format(monthLayout),
		LimitCents: b.Limit.Cents,
		Limit:      core.FormatCents(b.Limit.Cents),
	}
}

func (s *Server) budgetFromRequest(req budgetRequest) (core.Budget, error) {
	month, err := parseMonthField("month", req.Month)
	if err != nil {
		return core.Budget{}, err
	}
	cents, err := core.ParseDecimalToCents(req.Limit)
	if err != nil {
		return core.Budget{}, err
	}
	return core.Budget{
		CategoryID: req.CategoryID,
		Month:      month,
		Limit:      core.Money{Cents: cents},
	}, nil
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	budget, err := s.budgetFromRequest(req)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	created, err := s.budgets.Create(r.Context(), budget)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBudgetResponse(created))
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
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
	out := make([]budgetResponse, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, toBudgetResponse(b))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	var req budgetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	budget, err := s.budgetFromRequest(req)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	budget.ID = id
	updated, err := s.budgets.Update(r.Context(), budget)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetResponse(updated))
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if err := s.budgets.Delete(r.Context(), id); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
