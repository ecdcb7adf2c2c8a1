package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"kakebo/internal/ledger"
	"kakebo/internal/ledger/memory"
	"kakebo/internal/services"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store, err := memory.New(ledger.Seed{
		CategoriesCatalog: []ledger.SeedCategory{
			{ID: 1, Name: "食物"},
			{ID: 2, Name: "醫療"},
		},
		MonthlyBudgets: []ledger.SeedMonthlyBudget{
			{Month: "8月", Categories: []ledger.SeedAllocation{
				{CategoryID: 1, AmountCents: 720000},
				{CategoryID: 2, AmountCents: 400000},
			}},
		},
		Expenses: []ledger.SeedExpense{
			{ID: 101, Title: "wagyu", PriceCents: 219000, CategoryID: 1, Status: "purchased", Date: "2025-08-03"},
			{ID: 102, Title: "beef", PriceCents: 143000, CategoryID: 1, Status: "planned", Date: "2025-08-25"},
		},
	})
	if err != nil {
		t.Fatalf("seed load failed: %v", err)
	}
	svc := services.NewBudgetService(store, nil)
	srv := NewServer(":0", svc, store, time.Minute)
	t.Cleanup(func() {
		srv.rateLimiter.stop()
		close(srv.stopCacheCleanup)
	})
	return srv
}

func doRequest(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response: %v (body=%s)", err, rec.Body.String())
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doRequest(t, srv, http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s expected 200, got %d", path, rec.Code)
		}
	}
}

func TestGetBudget(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/budget?month=8月", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body budgetDataDTO
	decodeInto(t, rec, &body)
	if body.Month != "8月" || body.TotalBudgetCents != 1120000 {
		t.Fatalf("unexpected header: %+v", body)
	}
	if len(body.Categories) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(body.Categories))
	}
	// 720000 budget, 219000 spent -> 70% remaining.
	if body.Categories[0].SpentCents != 219000 || body.Categories[0].PercentRemaining != 70 {
		t.Fatalf("unexpected food row: %+v", body.Categories[0])
	}
}

func TestGetBudgetInvalidMonth(t *testing.T) {
	srv := newTestServer(t)
	rec := doRequest(t, srv, http.MethodGet, "/api/budget?month=bogus", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestGetChart(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/chart?month=8月", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var segs []struct {
		Share float64 `json:"Share"`
		Color string  `json:"Color"`
	}
	decodeInto(t, rec, &segs)
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segs))
	}
	total := 0.0
	for _, s := range segs {
		total += s.Share
	}
	if total < 0.999 || total > 1.001 {
		t.Fatalf("shares should sum to 1, got %v", total)
	}

	// Month with no allocations renders the neutral background ring.
	rec = doRequest(t, srv, http.MethodGet, "/api/chart?month=1月", "")
	decodeInto(t, rec, &segs)
	if len(segs) != 1 || segs[0].Color != "#E8E8E8" {
		t.Fatalf("expected single neutral segment, got %+v", segs)
	}
}

func TestAddUpdateRemoveCategory(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/budget/categories",
		`{"month":"8月","name":"旅行","amountCents":50000}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var rows []metricsDTO
	decodeInto(t, rec, &rows)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows after add, got %d", len(rows))
	}
	newID := rows[2].CategoryID

	rec = doRequest(t, srv, http.MethodPut, "/api/budget/categories/"+itoa(newID),
		`{"month":"8月","amountCents":80000}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	decodeInto(t, rec, &rows)
	if rows[2].AmountCents != 80000 {
		t.Fatalf("expected updated amount, got %+v", rows[2])
	}

	rec = doRequest(t, srv, http.MethodDelete, "/api/budget/categories/"+itoa(newID)+"?month=8月", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	decodeInto(t, rec, &rows)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows after removal, got %d", len(rows))
	}
}

func TestAddCategoryByID(t *testing.T) {
	srv := newTestServer(t)

	// Existing catalog entry allocated to a fresh month by id.
	rec := doRequest(t, srv, http.MethodPost, "/api/budget/categories",
		`{"month":"9月","categoryId":2,"amountCents":50000}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var rows []metricsDTO
	decodeInto(t, rec, &rows)
	if len(rows) != 1 || rows[0].CategoryID != 2 || rows[0].AmountCents != 50000 {
		t.Fatalf("unexpected metrics after add: %+v", rows)
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/budget/categories",
		`{"month":"9月","categoryId":99,"amountCents":50000}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown id expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAddCategoryDecimalAmount(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/budget/categories",
		`{"month":"9月","categoryId":1,"amount":"500.00"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var rows []metricsDTO
	decodeInto(t, rec, &rows)
	if len(rows) != 1 || rows[0].AmountCents != 50000 {
		t.Fatalf("expected 50000 cents from decimal amount, got %+v", rows)
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/budget/categories",
		`{"month":"9月","categoryId":1,"amount":"five hundred"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("malformed amount expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestDeleteCategoryWithDependentsIs409(t *testing.T) {
	srv := newTestServer(t)
	rec := doRequest(t, srv, http.MethodDelete, "/api/categories/1", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestUpdateUnknownCategoryIs404(t *testing.T) {
	srv := newTestServer(t)
	rec := doRequest(t, srv, http.MethodPut, "/api/budget/categories/99",
		`{"month":"8月","amountCents":80000}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestNegativeAmountIs422(t *testing.T) {
	srv := newTestServer(t)
	rec := doRequest(t, srv, http.MethodPost, "/api/budget/categories",
		`{"month":"8月","name":"負的","amountCents":-1}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestExpensesEndpoints(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/expenses?month=8月&status=planned", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var page expensePageDTO
	decodeInto(t, rec, &page)
	if page.Total != 1 || page.Items[0].ID != 102 {
		t.Fatalf("expected only the planned item, got %+v", page)
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/expenses",
		`{"title":"snack","priceCents":1200,"categoryId":1,"date":"2025-08-10"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created expenseDTO
	decodeInto(t, rec, &created)
	if created.Status != "purchased" {
		t.Fatalf("status should default to purchased, got %q", created.Status)
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/expenses",
		`{"title":"ghost","priceCents":100,"categoryId":77}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown category expected 404, got %d", rec.Code)
	}
}

func TestPurchaseFlow(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/purchase?month=8月&categoryId=1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var view categoryItemsDTO
	decodeInto(t, rec, &view)
	if len(view.Items) != 1 || view.Items[0].ID != 102 {
		t.Fatalf("expected the planned item, got %+v", view.Items)
	}
	// 720000 - 219000 purchased.
	if view.RemainingCents != 501000 {
		t.Fatalf("expected 501000 remaining, got %d", view.RemainingCents)
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/purchase",
		`{"month":"8月","categoryId":1,"expenseId":102,"paidCents":120000}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var res purchaseResultDTO
	decodeInto(t, rec, &res)
	if res.Item.Status != "purchased" || res.Item.PriceCents != 120000 {
		t.Fatalf("expected purchase at paid price, got %+v", res.Item)
	}
	if res.RemainingCents != 381000 {
		t.Fatalf("expected 381000 remaining, got %d", res.RemainingCents)
	}

	// The mutation invalidates cached metrics.
	rec = doRequest(t, srv, http.MethodGet, "/api/budget?month=8月", "")
	var body budgetDataDTO
	decodeInto(t, rec, &body)
	if body.Categories[0].SpentCents != 339000 {
		t.Fatalf("expected fresh spent after purchase, got %d", body.Categories[0].SpentCents)
	}
}

func TestPurchaseWrongCategoryIs404(t *testing.T) {
	srv := newTestServer(t)
	rec := doRequest(t, srv, http.MethodPost, "/api/purchase",
		`{"month":"8月","categoryId":2,"expenseId":102,"paidCents":1000}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestResetEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/purchase",
		`{"month":"8月","categoryId":1,"expenseId":102,"paidCents":120000}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/reset", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/purchase?month=8月&categoryId=1", "")
	var view categoryItemsDTO
	decodeInto(t, rec, &view)
	if len(view.Items) != 1 || view.Items[0].PriceCents != 143000 {
		t.Fatalf("seed state should be restored, got %+v", view.Items)
	}
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
