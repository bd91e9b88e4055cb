package http

import (
	"net/http"

	"tally/internal/core"
	"tally/internal/ledger"
)

type transactionRequest struct {
	AccountID        int64  `json:"account_id"`
	CounterAccountID int64  `json:"counter_account_id,omitempty"`
	CategoryID       int64  `json:"category_id,omitempty"`
	Type             string `json:"type"`
	Amount           string `json:"amount"`
	Date             string `json:"date"`
	Description      string `json:"description,omitempty"`
}

type transactionResponse struct {
	ID               int64  `json:"id"`
	AccountID        int64  `json:"account_id"`
	CounterAccountID int64  `json:"counter_account_id,omitempty"`
	CategoryID       int64  `json:"category_id,omitempty"`
	Type             string `json:"type"`
	AmountCents      int64  `json:"amount_cents"`
	Amount           string `json:"amount"`
	Date             string `json:"date"`
	Description      string `json:"description,omitempty"`
}

func toTransactionResponse(tx core.Transaction) transactionResponse {
	return transactionResponse{
		ID:               tx.ID,
		AccountID:        tx.AccountID,
		CounterAccountID: tx.CounterAccountID,
		CategoryID:       tx.CategoryID,
		Type:             string(tx.Type),
		AmountCents:      tx.Amount.Cents,
		Amount:           core.FormatCents(tx.Amount.Cents),
		Date:             tx.Date.Format(dateLayout),
		Description:      tx.Description,
	}
}

func transactionFromRequest(req transactionRequest) (core.Transaction, error) {
	date, err := parseDateField("date", req.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		AccountID:        req.AccountID,
		CounterAccountID: req.CounterAccountID,
		CategoryID:       req.CategoryID,
		Type:             core.TransactionType(req.Type),
		Amount:           core.Money{Cents: cents},
		Date:             date,
		Description:      sanitizeInput(req.Description),
	}, nil
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	tx, err := transactionFromRequest(req)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	created, err := s.transactions.Create(r.Context(), tx)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionResponse(created))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	tx, err := s.transactions.Get(r.Context(), id)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(tx))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	txs, err := s.transactions.List(r.Context(), filter)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	out := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toTransactionResponse(tx))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	tx, err := transactionFromRequest(req)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	updated, err := s.transactions.Update(r.Context(), id, tx)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(updated))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if err := s.transactions.Delete(r.Context(), id); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func filterFromQuery(r *http.Request) (ledger.TransactionFilter, error) {
	var f ledger.TransactionFilter
	var err error

	if f.AccountID, err = queryInt64(r, "account_id"); err != nil {
		return f, err
	}
	if f.CategoryID, err = queryInt64(r, "category_id"); err != nil {
		return f, err
	}
	if raw := r.URL.Query().Get("type"); raw != "" {
		t := core.TransactionType(raw)
		if err := t.Validate(); err != nil {
			return f, err
		}
		f.Type = t
	}
	if f.From, err = parseDateParam(r, "from"); err != nil {
		return f, err
	}
	if f.To, err = parseDateParam(r, "to"); err != nil {
		return f, err
	}
	if f.Skip, err = queryInt(r, "skip"); err != nil {
		return f, err
	}
	if f.Take, err = queryInt(r, "take"); err != nil {
		return f, err
	}
	return f, nil
}
