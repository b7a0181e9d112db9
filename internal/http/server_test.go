package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"kharcha/internal/auth"
	"kharcha/internal/core"
	"kharcha/internal/services"
	"kharcha/internal/split"
	"kharcha/internal/storage"
)

const testEmail = "asha@example.com"

func newTestServer(t *testing.T) *Server {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	ledger := services.NewLedgerService(repo, nil)
	splits := services.NewSplitService(repo, nil, split.NewEngine())
	planning := services.NewPlanningService(repo, nil)
	tokens := auth.NewTokenManager("test-secret", time.Hour)

	s := NewServer(":0", ledger, splits, planning, tokens)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func doRequest(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, s *Server) string {
	t.Helper()

	rec := doRequest(t, s, http.MethodPost, "/api/auth/login", "", loginRequest{Email: testEmail, Password: "hunter2"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return resp.Token
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/transactions", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	rec = doRequest(t, s, http.MethodGet, "/api/transactions", "not-a-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestLoginValidatesCredentialShape(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/auth/login", "", loginRequest{Email: "not-an-email", Password: "x"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad email status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	rec = doRequest(t, s, http.MethodPost, "/api/auth/login", "", loginRequest{Email: testEmail})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing password status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	rec = doRequest(t, s, http.MethodPost, "/api/auth/login", "", loginRequest{Email: testEmail, Password: "hunter2"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[loginResponse](t, rec)
	if resp.User.Name != "asha" {
		t.Errorf("user name = %q, want %q", resp.User.Name, "asha")
	}
	if resp.Token == "" {
		t.Error("login response has no token")
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s)

	rec := doRequest(t, s, http.MethodPost, "/api/auth/verify", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("verify status = %d", rec.Code)
	}
	verified := decodeBody[verifyResponse](t, rec)
	if !verified.Valid || verified.User.Email != testEmail {
		t.Errorf("verify response = %+v, want valid token for %s", verified, testEmail)
	}

	if rec := doRequest(t, s, http.MethodPost, "/api/auth/logout", token, nil); rec.Code != http.StatusOK {
		t.Fatalf("logout status = %d", rec.Code)
	}

	if rec := doRequest(t, s, http.MethodPost, "/api/auth/verify", token, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("verify after logout status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestHealthEndpointsUnauthenticated(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		if rec := doRequest(t, s, http.MethodGet, path, "", nil); rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want %d", path, rec.Code, http.StatusOK)
		}
	}
}

func TestTransactionLifecycle(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s)

	rec := doRequest(t, s, http.MethodPost, "/api/transactions", token, map[string]any{
		"type":        "expense",
		"amount":      450.0,
		"category":    "food",
		"date":        "2026-08-15",
		"description": "groceries",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	created := decodeBody[struct {
		Transaction core.Transaction `json:"transaction"`
	}](t, rec).Transaction
	if created.ID == "" {
		t.Fatal("created transaction has no id")
	}
	if created.Status != core.StatusPending {
		t.Errorf("status = %q, want %q", created.Status, core.StatusPending)
	}

	rec = doRequest(t, s, http.MethodGet, "/api/transactions/"+created.ID, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	rec = doRequest(t, s, http.MethodPut, "/api/transactions/"+created.ID, token, map[string]any{
		"amount": 500.0,
		"notes":  "includes delivery",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rec.Code, rec.Body.String())
	}
	updated := decodeBody[core.Transaction](t, rec)
	if updated.Amount != 500 {
		t.Errorf("amount = %v, want 500", updated.Amount)
	}
	if updated.Category != "food" {
		t.Errorf("category = %q, want untouched %q", updated.Category, "food")
	}

	rec = doRequest(t, s, http.MethodDelete, "/api/transactions/"+created.ID, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if msg := decodeBody[map[string]string](t, rec)["message"]; msg != "Transaction deleted" {
		t.Errorf("delete message = %q", msg)
	}

	rec = doRequest(t, s, http.MethodGet, "/api/transactions/"+created.ID, token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s)

	rec := doRequest(t, s, http.MethodPost, "/api/transactions", token, map[string]any{
		"type":        "transfer",
		"amount":      100.0,
		"category":    "food",
		"date":        "2026-08-15",
		"description": "x",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestListTransactionsEmptyIsArray(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s)

	rec := doRequest(t, s, http.MethodGet, "/api/transactions", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	// An empty ledger must serialize as an empty array inside the
	// envelope, never null.
	if body := rec.Body.String(); !strings.Contains(body, `"transactions":[]`) {
		t.Errorf("body = %s, want empty transactions array", body)
	}
}

func TestSplitSettleEndpoint(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s)

	rec := doRequest(t, s, http.MethodPost, "/api/expense-splits", token, createSplitRequest{
		TotalAmount:  900,
		Description:  "dinner",
		Participants: []string{"asha", "ravi", "meera"},
		SplitType:    core.Equal,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	sp := decodeBody[core.ExpenseSplit](t, rec)
	if sp.Shares["asha"] != 300 {
		t.Errorf("share = %v, want 300", sp.Shares["asha"])
	}

	rec = doRequest(t, s, http.MethodPut, "/api/expense-splits/"+sp.ID+"/settle", token, settleRequest{ParticipantName: "outsider"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("settle outsider status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	for _, p := range []string{"asha", "ravi", "meera"} {
		rec = doRequest(t, s, http.MethodPut, "/api/expense-splits/"+sp.ID+"/settle", token, settleRequest{ParticipantName: p})
		if rec.Code != http.StatusOK {
			t.Fatalf("settle %s status = %d, body %s", p, rec.Code, rec.Body.String())
		}
	}

	final := decodeBody[core.ExpenseSplit](t, doRequest(t, s, http.MethodGet, "/api/expense-splits/"+sp.ID, token, nil))
	if final.Status != core.SplitSettled {
		t.Errorf("status = %q, want %q", final.Status, core.SplitSettled)
	}

	listed := decodeBody[struct {
		ExpenseSplits []core.ExpenseSplit `json:"expenseSplits"`
	}](t, doRequest(t, s, http.MethodGet, "/api/expense-splits", token, nil)).ExpenseSplits
	if len(listed) != 1 {
		t.Errorf("listed %d splits, want 1", len(listed))
	}
}

func TestAnalyticsSummaryEndpoint(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s)

	for _, body := range []map[string]any{
		{"type": "income", "amount": 80000.0, "category": "salary", "date": "2026-08-01", "description": "salary"},
		{"type": "expense", "amount": 20000.0, "category": "rent", "date": "2026-08-05", "description": "rent"},
	} {
		if rec := doRequest(t, s, http.MethodPost, "/api/transactions", token, body); rec.Code != http.StatusCreated {
			t.Fatalf("seed status = %d, body %s", rec.Code, rec.Body.String())
		}
	}

	rec := doRequest(t, s, http.MethodGet, "/api/analytics/summary?year=2026&month=8", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("summary status = %d, body %s", rec.Code, rec.Body.String())
	}
	summary := decodeBody[core.MonthlySummary](t, rec)
	if summary.TotalIncome != 80000 || summary.TotalExpenses != 20000 {
		t.Errorf("totals = %v/%v, want 80000/20000", summary.TotalIncome, summary.TotalExpenses)
	}
	if summary.NetSavings != 60000 {
		t.Errorf("net savings = %v, want 60000", summary.NetSavings)
	}

	rec = doRequest(t, s, http.MethodGet, "/api/analytics/summary?month=13", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad month status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestAnalyticsCachePurgedOnWrite(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s)

	seed := func(amount float64) {
		rec := doRequest(t, s, http.MethodPost, "/api/transactions", token, map[string]any{
			"type":        "expense",
			"amount":      amount,
			"category":    "food",
			"date":        "2026-08-10",
			"description": "seed",
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("seed status = %d, body %s", rec.Code, rec.Body.String())
		}
	}

	seed(100)

	first := decodeBody[core.MonthlySummary](t, doRequest(t, s, http.MethodGet, "/api/analytics/summary?year=2026&month=8", token, nil))
	if first.TotalExpenses != 100 {
		t.Fatalf("expenses = %v, want 100", first.TotalExpenses)
	}

	// A write must invalidate the cached summary.
	seed(50)

	second := decodeBody[core.MonthlySummary](t, doRequest(t, s, http.MethodGet, "/api/analytics/summary?year=2026&month=8", token, nil))
	if second.TotalExpenses != 150 {
		t.Errorf("expenses after write = %v, want 150", second.TotalExpenses)
	}
}

func TestAnalyticsTrendsWindow(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s)

	rec := doRequest(t, s, http.MethodGet, "/api/analytics/trends?months=3", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	points := decodeBody[struct {
		Trends []core.TrendPoint `json:"trends"`
	}](t, rec).Trends
	if len(points) != 3 {
		t.Errorf("points = %d, want 3", len(points))
	}
}

func TestCategoriesEndpoint(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s)

	rec := doRequest(t, s, http.MethodGet, "/api/categories?type=expense", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	categories := decodeBody[struct {
		Categories []core.Category `json:"categories"`
	}](t, rec).Categories
	if len(categories) == 0 {
		t.Fatal("no expense categories seeded")
	}
	for _, c := range categories {
		if c.Type != core.Expense {
			t.Errorf("category %s type = %q, want expense", c.ID, c.Type)
		}
	}

	if rec := doRequest(t, s, http.MethodGet, "/api/categories?type=bogus", token, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bogus type status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestCreateCategoryEndpoint(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s)

	rec := doRequest(t, s, http.MethodPost, "/api/categories", token, map[string]any{
		"label": "Pet Care",
		"type":  "expense",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	created := decodeBody[core.Category](t, rec)
	if created.ID == "" {
		t.Fatal("created category has no id")
	}

	rec = doRequest(t, s, http.MethodGet, "/api/categories?type=expense", token, nil)
	if !strings.Contains(rec.Body.String(), "Pet Care") {
		t.Error("created category missing from catalog")
	}

	rec = doRequest(t, s, http.MethodPost, "/api/categories", token, map[string]any{
		"label": "",
		"type":  "expense",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty label status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestSavingsGoalContributeEndpoint(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s)

	rec := doRequest(t, s, http.MethodPost, "/api/savings-goals", token, map[string]any{
		"name":         "emergency fund",
		"targetAmount": 100000.0,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	goal := decodeBody[core.SavingsGoal](t, rec)

	rec = doRequest(t, s, http.MethodPut, "/api/savings-goals/"+goal.ID+"/contribute", token, contributeRequest{Amount: 25000})
	if rec.Code != http.StatusOK {
		t.Fatalf("contribute status = %d, body %s", rec.Code, rec.Body.String())
	}
	updated := decodeBody[core.SavingsGoal](t, rec)
	if updated.CurrentAmount != 25000 {
		t.Errorf("current = %v, want 25000", updated.CurrentAmount)
	}
	if updated.Progress != 25 {
		t.Errorf("progress = %v, want 25", updated.Progress)
	}
}

func TestImportTransactionsEndpoint(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s)

	rec := doRequest(t, s, http.MethodPost, "/api/transactions/import", token, []map[string]any{
		{"type": "expense", "amount": 450.0, "category": "food", "date": "2026-08-15", "description": "groceries"},
		{"type": "income", "amount": "₹80,000.00", "category": "salary", "date": "2026-08-01", "description": "salary"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("import status = %d, body %s", rec.Code, rec.Body.String())
	}
	if msg := decodeBody[map[string]string](t, rec)["message"]; msg != "Transactions imported successfully" {
		t.Errorf("import message = %q", msg)
	}

	rec = doRequest(t, s, http.MethodGet, "/api/transactions", token, nil)
	listed := decodeBody[struct {
		Transactions []core.Transaction `json:"transactions"`
	}](t, rec).Transactions
	if len(listed) != 2 {
		t.Fatalf("imported %d transactions, want 2", len(listed))
	}

	req := httptest.NewRequest(http.MethodPost, "/api/transactions/import", bytes.NewBufferString(`{"not": "an array"`))
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed import status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

// Form-based clients send amounts as strings, sometimes with the rupee
// symbol and grouping commas. Both spellings must land as the same value.
func TestCreateTransactionStringAmount(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s)

	rec := doRequest(t, s, http.MethodPost, "/api/transactions", token, map[string]any{
		"type":        "expense",
		"amount":      "₹1,234.56",
		"category":    "food",
		"date":        "2026-08-15",
		"description": "dinner",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	created := decodeBody[struct {
		Transaction core.Transaction `json:"transaction"`
	}](t, rec).Transaction
	if created.Amount != 1234.56 {
		t.Errorf("amount = %v, want 1234.56", created.Amount)
	}
}

func TestBillReminderUpdateEndpoint(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s)

	rec := doRequest(t, s, http.MethodPost, "/api/bill-reminders", token, map[string]any{
		"name":    "electricity",
		"amount":  1200.0,
		"dueDate": "2026-09-01",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	bill := decodeBody[core.BillReminder](t, rec)
	if bill.Status != core.StatusPending {
		t.Fatalf("status = %q, want pending", bill.Status)
	}

	rec = doRequest(t, s, http.MethodPut, "/api/bill-reminders/"+bill.ID, token, map[string]any{
		"status": "paid",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rec.Code, rec.Body.String())
	}
	updated := decodeBody[core.BillReminder](t, rec)
	if updated.Status != core.StatusPaid {
		t.Errorf("status = %q, want paid", updated.Status)
	}
	if updated.Amount != 1200 {
		t.Errorf("amount = %v, want untouched 1200", updated.Amount)
	}
}

func TestMalformedBodyIsBadRequest(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s)

	req := httptest.NewRequest(http.MethodPost, "/api/transactions", bytes.NewBufferString("{not json"))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestRateLimitOnWrites(t *testing.T) {
	s := newTestServer(t)
	token := login(t, s)

	limited := false
	for i := 0; i < 70; i++ {
		rec := doRequest(t, s, http.MethodPost, "/api/bill-reminders", token, map[string]any{
			"name":    "electricity",
			"amount":  1200.0,
			"dueDate": "2026-09-01",
		})
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
		if rec.Code != http.StatusCreated {
			t.Fatalf("request %d status = %d, body %s", i, rec.Code, rec.Body.String())
		}
	}
	if !limited {
		t.Error("expected a 429 after exceeding the write rate limit")
	}

	// Reads are not limited.
	if rec := doRequest(t, s, http.MethodGet, "/api/bill-reminders", token, nil); rec.Code != http.StatusOK {
		t.Errorf("read status = %d, want %d", rec.Code, http.StatusOK)
	}
}
