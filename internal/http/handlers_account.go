package http

import (
	"net/http"

	"tally/internal/core"
)

type accountRequest struct {
	Name           string `json:"name"`
	Type           string `json:"type"`
	InitialBalance string `json:"initial_balance,omitempty"`
}

type accountResponse struct {
	ID                  int64  `json:"id"`
	Name                string `json:"name"`
	Type                string `json:"type"`
	InitialBalanceCents int64  `json:"initial_balance_cents"`
	CurrentBalanceCents int64  `json:"current_balance_cents"`
	CurrentBalance      string `json:"current_balance"`
}

func toAccountResponse(a core.Account) accountResponse {
	return accountResponse{
		ID:                  a.ID,
		Name:                a.Name,
		Type:                string(a.Type),
		InitialBalanceCents: a.InitialBalance.Cents,
		CurrentBalanceCents: a.CurrentBalance.Cents,
		CurrentBalance:      core.FormatCents(a.CurrentBalance.Cents),
	}
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	var initial int64
	if req.InitialBalance != "" {
		cents, err := core.ParseDecimalToCents(req.InitialBalance)
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}
		initial = cents
	}

	account, err := s.accounts.Create(r.Context(), core.Account{
		Name:           sanitizeInput(req.Name),
		Type:           core.AccountType(req.Type),
		InitialBalance: core.Money{Cents: initial},
	})
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountResponse(account))
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	account, err := s.accounts.Get(r.Context(), id)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(account))
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.accounts.List(r.Context())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	var req accountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	account, err := s.accounts.Update(r.Context(), id, sanitizeInput(req.Name), core.AccountType(req.Type))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(account))
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if err := s.accounts.Delete(r.Context(), id); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
