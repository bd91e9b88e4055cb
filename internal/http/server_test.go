package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"tally/internal/advice"
	"tally/internal/ledger/memory"
	"tally/internal/services"
)

type staticGenerator struct {
	text string
}

func (g *staticGenerator) GenerateText(_ context.Context, _ string) (string, error) {
	return g.text, nil
}

func newTestServer(t *testing.T, advisor *advice.Service) *Server {
	t.Helper()
	store := memory.New()
	s := NewServer(
		":0",
		services.NewAccountService(store),
		services.NewCategoryService(store),
		services.NewBudgetService(store),
		services.NewTransactionService(store, nil),
		advisor,
	)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func seedAccount(t *testing.T, s *Server, name, balance string) accountResponse {
	t.Helper()
	rec := doJSON(t, s, http.MethodPost, "/api/accounts", accountRequest{
		Name: name, Type: "checking", InitialBalance: balance,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("seed account %s: status %d body %s", name, rec.Code, rec.Body.String())
	}
	return decodeBody[accountResponse](t, rec)
}

func seedCategory(t *testing.T, s *Server, name string) categoryResponse {
	t.Helper()
	rec := doJSON(t, s, http.MethodPost, "/api/categories", categoryRequest{Name: name, Type: "expense"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("seed category %s: status %d body %s", name, rec.Code, rec.Body.String())
	}
	return decodeBody[categoryResponse](t, rec)
}

// Every record a request produces, the rejection log included, must carry the
// request id and the http component tag.
func TestMiddlewareAttachesRequestScopedLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer slog.SetDefault(prev)

	s := newTestServer(t, nil)
	rec := doJSON(t, s, http.MethodGet, "/api/transactions/9999", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	out := buf.String()
	if !strings.Contains(out, "component=http") {
		t.Errorf("log output missing http component: %q", out)
	}
	rejected := false
	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(line, "Request rejected") {
			continue
		}
		rejected = true
		if !strings.Contains(line, "request_id=req_") {
			t.Errorf("rejection record lost the request id: %q", line)
		}
	}
	if !rejected {
		t.Errorf("log output missing rejection record: %q", out)
	}
}

func TestCreateAccount(t *testing.T) {
	s := newTestServer(t, nil)

	account := seedAccount(t, s, "Main", "150.00")
	if account.CurrentBalanceCents != 15000 {
		t.Errorf("current balance = %d, want 15000", account.CurrentBalanceCents)
	}

	rec := doJSON(t, s, http.MethodPost, "/api/accounts", accountRequest{Name: "main", Type: "cash"})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate name: status = %d, want 409", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/accounts", accountRequest{Name: "Wallet", Type: "pocket"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad type: status = %d, want 400", rec.Code)
	}
}

func TestCreateTransactionMovesBalance(t *testing.T) {
	s := newTestServer(t, nil)
	account := seedAccount(t, s, "Main", "250.00")
	category := seedCategory(t, s, "Groceries")

	rec := doJSON(t, s, http.MethodPost, "/api/transactions", transactionRequest{
		AccountID:  account.ID,
		CategoryID: category.ID,
		Type:       "expense",
		Amount:     "50.00",
		Date:       "2026-03-10",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create transaction: status %d body %s", rec.Code, rec.Body.String())
	}

	got := doJSON(t, s, http.MethodGet, "/api/accounts/"+strconv.FormatInt(account.ID, 10), nil)
	if balance := decodeBody[accountResponse](t, got).CurrentBalanceCents; balance != 20000 {
		t.Errorf("balance after expense = %d, want 20000", balance)
	}
}

func TestDeleteTransactionRestoresBalance(t *testing.T) {
	s := newTestServer(t, nil)
	account := seedAccount(t, s, "Main", "100.00")
	category := seedCategory(t, s, "Groceries")

	rec := doJSON(t, s, http.MethodPost, "/api/transactions", transactionRequest{
		AccountID:  account.ID,
		CategoryID: category.ID,
		Type:       "expense",
		Amount:     "40.00",
		Date:       "2026-03-10",
	})
	tx := decodeBody[transactionResponse](t, rec)

	if rec := doJSON(t, s, http.MethodDelete, "/api/transactions/"+strconv.FormatInt(tx.ID, 10), nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete transaction: status %d", rec.Code)
	}

	got := doJSON(t, s, http.MethodGet, "/api/accounts/"+strconv.FormatInt(account.ID, 10), nil)
	if balance := decodeBody[accountResponse](t, got).CurrentBalanceCents; balance != 10000 {
		t.Errorf("balance after delete = %d, want 10000", balance)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	s := newTestServer(t, nil)
	account := seedAccount(t, s, "Main", "10.00")
	category := seedCategory(t, s, "Groceries")

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{
			name:   "unknown transaction is 404",
			method: http.MethodGet,
			path:   "/api/transactions/9999",
			want:   http.StatusNotFound,
		},
		{
			name:   "unknown account reference is 404",
			method: http.MethodPost,
			path:   "/api/transactions",
			body: transactionRequest{
				AccountID: 9999, CategoryID: category.ID,
				Type: "expense", Amount: "5.00", Date: "2026-03-01",
			},
			want: http.StatusNotFound,
		},
		{
			name:   "zero amount is 400",
			method: http.MethodPost,
			path:   "/api/transactions",
			body: transactionRequest{
				AccountID: account.ID, CategoryID: category.ID,
				Type: "expense", Amount: "0.00", Date: "2026-03-01",
			},
			want: http.StatusBadRequest,
		},
		{
			name:   "malformed date is 400",
			method: http.MethodPost,
			path:   "/api/transactions",
			body: transactionRequest{
				AccountID: account.ID, CategoryID: category.ID,
				Type: "expense", Amount: "5.00", Date: "01/03/2026",
			},
			want: http.StatusBadRequest,
		},
		{
			name:   "delete referenced account is 409",
			method: http.MethodDelete,
			path:   "/api/accounts/" + strconv.FormatInt(account.ID, 10),
			want:   http.StatusConflict,
		},
	}

	// Reference one transaction so the delete conflict case has teeth.
	rec := doJSON(t, s, http.MethodPost, "/api/transactions", transactionRequest{
		AccountID: account.ID, CategoryID: category.ID,
		Type: "expense", Amount: "1.00", Date: "2026-03-01",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("seed transaction: status %d", rec.Code)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, s, tt.method, tt.path, tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestDashboardEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	account := seedAccount(t, s, "Main", "100.00")
	income := seedCategory(t, s, "Salary")
	groceries := seedCategory(t, s, "Groceries")

	for _, req := range []transactionRequest{
		{AccountID: account.ID, CategoryID: income.ID, Type: "income", Amount: "1000.00", Date: "2026-03-01"},
		{AccountID: account.ID, CategoryID: groceries.ID, Type: "expense", Amount: "300.00", Date: "2026-03-05"},
		{AccountID: account.ID, CategoryID: groceries.ID, Type: "expense", Amount: "20.00", Date: "2026-02-10"},
	} {
		if rec := doJSON(t, s, http.MethodPost, "/api/transactions", req); rec.Code != http.StatusCreated {
			t.Fatalf("seed transaction: status %d body %s", rec.Code, rec.Body.String())
		}
	}

	rec := doJSON(t, s, http.MethodGet, "/api/dashboard?month=2026-03", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard: status %d body %s", rec.Code, rec.Body.String())
	}
	d := decodeBody[dashboardResponse](t, rec)

	if d.MonthIncome.Cents != 100000 {
		t.Errorf("month income = %d, want 100000", d.MonthIncome.Cents)
	}
	if d.MonthExpense.Cents != 30000 {
		t.Errorf("month expense = %d, want 30000", d.MonthExpense.Cents)
	}
	// 100.00 + 1000.00 - 300.00 - 20.00
	if d.TotalBalance.Cents != 78000 {
		t.Errorf("total balance = %d, want 78000", d.TotalBalance.Cents)
	}

	if rec := doJSON(t, s, http.MethodGet, "/api/dashboard?month=March", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad month: status = %d, want 400", rec.Code)
	}
}

func TestBudgetVsActualEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	account := seedAccount(t, s, "Main", "1000.00")
	groceries := seedCategory(t, s, "Groceries")

	if rec := doJSON(t, s, http.MethodPost, "/api/budgets", budgetRequest{
		CategoryID: groceries.ID, Month: "2026-03", Limit: "300.00",
	}); rec.Code != http.StatusCreated {
		t.Fatalf("seed budget: status %d body %s", rec.Code, rec.Body.String())
	}
	if rec := doJSON(t, s, http.MethodPost, "/api/transactions", transactionRequest{
		AccountID: account.ID, CategoryID: groceries.ID,
		Type: "expense", Amount: "350.00", Date: "2026-03-15",
	}); rec.Code != http.StatusCreated {
		t.Fatalf("seed transaction: status %d", rec.Code)
	}

	rec := doJSON(t, s, http.MethodGet, "/api/reports/budget-vs-actual?month=2026-03", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("report: status %d body %s", rec.Code, rec.Body.String())
	}
	rows := decodeBody[[]budgetRowResponse](t, rec)
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if rows[0].Remaining.Cents != -5000 {
		t.Errorf("remaining = %d, want -5000", rows[0].Remaining.Cents)
	}
	if rows[0].PercentUsed <= 100 {
		t.Errorf("percent used = %f, want > 100", rows[0].PercentUsed)
	}
}

func TestCategoryBreakdownEndpointValidatesRange(t *testing.T) {
	s := newTestServer(t, nil)

	rec := doJSON(t, s, http.MethodGet, "/api/reports/category-breakdown?from=2026-03-31&to=2026-03-01", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("inverted range: status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/reports/category-breakdown?from=2026-03-01", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing to: status = %d, want 400", rec.Code)
	}
}

func TestAdviceEndpoint(t *testing.T) {
	advisor := advice.NewService(&staticGenerator{text: "Cook at home more often."}, 8, time.Minute)
	s := newTestServer(t, advisor)

	rec := doJSON(t, s, http.MethodPost, "/api/insights/advice", adviceRequest{Prompt: "I spend too much on food"})
	if rec.Code != http.StatusOK {
		t.Fatalf("advice: status %d body %s", rec.Code, rec.Body.String())
	}
	if got := decodeBody[adviceResponse](t, rec).Advice; got != "Cook at home more often." {
		t.Errorf("advice = %q", got)
	}

	if rec := doJSON(t, s, http.MethodPost, "/api/insights/advice", adviceRequest{Prompt: "   "}); rec.Code != http.StatusBadRequest {
		t.Errorf("blank prompt: status = %d, want 400", rec.Code)
	}
}

func TestAdviceEndpointWithoutGenerator(t *testing.T) {
	s := newTestServer(t, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/insights/advice", adviceRequest{Prompt: "help"})
	if rec.Code != http.StatusBadGateway {
		t.Errorf("no generator: status = %d, want 502", rec.Code)
	}
}
