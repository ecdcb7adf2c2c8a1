package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"kakebo/internal/chart"
	"kakebo/internal/core"
	"kakebo/internal/ledger"
	"kakebo/internal/services"
)

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// parseMonth reads the month query parameter, defaulting to the current
// month. The label must be one of the twelve known values.
func parseMonth(r *http.Request) (core.Month, error) {
	v := strings.TrimSpace(r.URL.Query().Get("month"))
	if v == "" {
		return core.MonthOfDate(time.Now()), nil
	}
	return core.ParseMonth(v)
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}

// GET /api/categories
func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.svc.Categories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]categoryDTO, 0, len(cats))
	for i, c := range cats {
		out = append(out, categoryDTO{
			ID:    c.ID,
			Name:  c.Name,
			Color: core.ColorForIndex(i, core.BudgetPalette),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// DELETE /api/categories/{id}
func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid category id")
		return
	}
	if err := s.svc.DeleteCategory(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidate()
	writeJSON(w, http.StatusNoContent, nil)
}

// GET /api/budget?month=
func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	month, err := parseMonth(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	data, err := s.getBudgetData(r.Context(), month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, budgetDataDTO{
		Month:            string(data.Month),
		TotalBudgetCents: data.TotalBudget.Cents,
		Categories:       toMetricsDTOs(data.Categories),
	})
}

// POST /api/budget/categories
func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	var req addCategoryRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	month, err := core.ParseMonth(req.Month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	amount, err := req.amount()
	if err != nil {
		writeError(w, r, err)
		return
	}

	ref := services.CategoryRef{ID: req.CategoryID, Name: req.Name}
	metrics, err := s.svc.AddCategoryToMonth(r.Context(), month, ref, amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidate()
	writeJSON(w, http.StatusCreated, toMetricsDTOs(metrics))
}

// PUT /api/budget/categories/{id}
func (s *Server) handleUpdateAmount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid category id")
		return
	}
	var req updateAmountRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	month, err := core.ParseMonth(req.Month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	amount, err := req.amount()
	if err != nil {
		writeError(w, r, err)
		return
	}

	metrics, err := s.svc.UpdateCategoryAmount(r.Context(), month, id, amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidate()
	writeJSON(w, http.StatusOK, toMetricsDTOs(metrics))
}

// DELETE /api/budget/categories/{id}?month=
func (s *Server) handleRemoveAllocation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid category id")
		return
	}
	month, err := parseMonth(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	metrics, err := s.svc.RemoveCategoryFromMonth(r.Context(), month, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidate()
	writeJSON(w, http.StatusOK, toMetricsDTOs(metrics))
}

// GET /api/metrics?month=
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	month, err := parseMonth(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	metrics, err := s.getMetrics(r.Context(), month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMetricsDTOs(metrics))
}

// GET /api/chart?month=
//
// The donut shows how the month's budget is split across categories; an
// empty month renders as a single neutral ring.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	month, err := parseMonth(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	metrics, err := s.getMetrics(r.Context(), month)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slices := make([]chart.Slice, 0, len(metrics))
	for _, m := range metrics {
		slices = append(slices, chart.Slice{Value: m.Amount.Units(), Color: m.Color})
	}
	writeJSON(w, http.StatusOK, chart.Donut(slices, chart.DefaultConfig()))
}

// GET /api/gauge?month=&categoryId=
func (s *Server) handleGauge(w http.ResponseWriter, r *http.Request) {
	month, err := parseMonth(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	categoryID, err := strconv.ParseInt(r.URL.Query().Get("categoryId"), 10, 64)
	if err != nil || categoryID <= 0 {
		badRequest(w, "invalid categoryId")
		return
	}

	m, err := s.svc.CategoryMetrics(r.Context(), month, categoryID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := s.svc.CategoryItems(r.Context(), month, categoryID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var plannedTotal core.Money
	for _, e := range view.Items {
		plannedTotal = plannedTotal.Add(e.Price)
	}
	arcs := chart.Gauge(m.Amount.Units(), m.Spent.Units(), plannedTotal.Units(), m.Color, chart.DefaultGaugeConfig())
	writeJSON(w, http.StatusOK, arcs)
}

// GET /api/expenses?month=&categoryId=&status=&page=&pageSize=
func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	month, err := parseMonth(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	f := ledger.ExpenseFilter{Month: month}
	if v := r.URL.Query().Get("categoryId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			badRequest(w, "invalid categoryId")
			return
		}
		f.CategoryID = id
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status := core.ExpenseStatus(v)
		if err := status.Validate(); err != nil {
			writeError(w, r, err)
			return
		}
		f.Status = status
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))

	out, err := s.svc.Expenses(r.Context(), f, page, pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpensePageDTO(out))
}

// POST /api/expenses
func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req createExpenseRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	e, err := req.toExpense()
	if err != nil {
		badRequest(w, "invalid date: expected YYYY-MM-DD")
		return
	}

	created, err := s.svc.RecordExpense(r.Context(), e)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidate()
	writeJSON(w, http.StatusCreated, toExpenseDTO(created))
}

// GET /api/purchase?month=&categoryId=
func (s *Server) handlePurchaseView(w http.ResponseWriter, r *http.Request) {
	month, err := parseMonth(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	categoryID, err := strconv.ParseInt(r.URL.Query().Get("categoryId"), 10, 64)
	if err != nil || categoryID <= 0 {
		badRequest(w, "invalid categoryId")
		return
	}

	view, err := s.svc.CategoryItems(r.Context(), month, categoryID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	m, err := s.svc.CategoryMetrics(r.Context(), month, categoryID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categoryItemsDTO{
		Category: categoryDTO{
			ID:    view.Category.ID,
			Name:  view.Category.Name,
			Color: m.Color,
		},
		Items:          toExpenseDTOs(view.Items),
		RemainingCents: view.RemainingBudget.Cents,
	})
}

// POST /api/purchase
func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	month, err := core.ParseMonth(req.Month)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.svc.PurchaseItem(r.Context(), month, req.CategoryID, req.ExpenseID, core.Money{Cents: req.PaidCents})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidate()
	writeJSON(w, http.StatusOK, purchaseResultDTO{
		Item:           toExpenseDTO(res.Item),
		RemainingCents: res.RemainingBudget.Cents,
	})
}

// POST /api/reset
//
// Available only on the memory backend; restores the seed state for
// development and demos.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if s.resetter == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "reset not supported by this backend"})
		return
	}
	if err := s.resetter.Reset(); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidate()
	writeJSON(w, http.StatusNoContent, nil)
}
