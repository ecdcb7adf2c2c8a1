package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"kakebo/internal/core"
	"kakebo/internal/ledger"
	"kakebo/internal/ledger/memory"
)

func newTestService(t *testing.T) *BudgetService {
	t.Helper()
	store, err := memory.New(ledger.Seed{
		CategoriesCatalog: []ledger.SeedCategory{
			{ID: 1, Name: "食物"},
			{ID: 2, Name: "醫療"},
		},
		MonthlyBudgets: []ledger.SeedMonthlyBudget{
			{Month: "8月", Categories: []ledger.SeedAllocation{
				{CategoryID: 1, AmountCents: 100000},
			}},
		},
		Expenses: []ledger.SeedExpense{
			{ID: 101, Title: "beef", PriceCents: 30000, CategoryID: 1, Status: "planned", Date: "2025-08-25"},
		},
	})
	if err != nil {
		t.Fatalf("seed load failed: %v", err)
	}
	return NewBudgetService(store, nil)
}

func TestBudgetData(t *testing.T) {
	svc := newTestService(t)

	data, err := svc.BudgetData(context.Background(), "8月")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data.TotalBudget.Cents != 100000 {
		t.Fatalf("expected total 100000, got %d", data.TotalBudget.Cents)
	}
	if len(data.Categories) != 1 {
		t.Fatalf("expected 1 allocated category, got %d", len(data.Categories))
	}
	// Planned spend does not count against the budget yet.
	if data.Categories[0].Spent.Cents != 0 || data.Categories[0].PercentRemaining != 100 {
		t.Fatalf("unexpected metrics: %+v", data.Categories[0])
	}

	if _, err := svc.BudgetData(context.Background(), "bogus"); !errors.Is(err, core.ErrInvalidMonth) {
		t.Fatalf("expected ErrInvalidMonth, got %v", err)
	}
}

func TestAddCategoryToMonthProvisionsCatalog(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	metrics, err := svc.AddCategoryToMonth(ctx, "8月", CategoryRef{Name: "旅行"}, core.Money{Cents: 50000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(metrics) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(metrics))
	}

	// Same name in another month reuses the catalog entry.
	if _, err := svc.AddCategoryToMonth(ctx, "9月", CategoryRef{Name: "旅行"}, core.Money{Cents: 60000}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cats, _ := svc.Categories(ctx)
	if len(cats) != 3 {
		t.Fatalf("expected one shared catalog entry, got %d categories", len(cats))
	}
}

func TestAddCategoryToMonthByID(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	// Allocating an existing catalog entry to a fresh month must not
	// create a duplicate category.
	metrics, err := svc.AddCategoryToMonth(ctx, "9月", CategoryRef{ID: 2}, core.Money{Cents: 40000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(metrics) != 1 || metrics[0].CategoryID != 2 {
		t.Fatalf("expected one row for category 2, got %+v", metrics)
	}
	cats, _ := svc.Categories(ctx)
	if len(cats) != 2 {
		t.Fatalf("catalog must stay at 2 entries, got %d", len(cats))
	}

	if _, err := svc.AddCategoryToMonth(ctx, "9月", CategoryRef{ID: 99}, core.Money{Cents: 1000}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown id, got %v", err)
	}
}

func TestUpdateCategoryAmountUnknownCategory(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.UpdateCategoryAmount(context.Background(), "8月", 99, core.Money{Cents: 1000})
	if !errors.Is(err, core.ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
}

func TestRemoveCategoryFromMonthKeepsCatalog(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	metrics, err := svc.RemoveCategoryFromMonth(ctx, "8月", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(metrics) != 0 {
		t.Fatalf("expected no allocated rows, got %d", len(metrics))
	}
	cats, _ := svc.Categories(ctx)
	if len(cats) != 2 {
		t.Fatalf("catalog must survive allocation removal, got %d", len(cats))
	}
}

func TestPurchaseItem(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	// Budget 1000.00, item listed at 300.00, actually paid 280.00.
	res, err := svc.PurchaseItem(ctx, "8月", 1, 101, core.Money{Cents: 28000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Item.Status != core.StatusPurchased || res.Item.Price.Cents != 28000 {
		t.Fatalf("expected purchased at paid price, got %+v", res.Item)
	}
	if res.RemainingBudget.Cents != 72000 {
		t.Fatalf("expected remaining 72000, got %d", res.RemainingBudget.Cents)
	}

	m, err := svc.CategoryMetrics(ctx, "8月", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.PercentRemaining != 72 {
		t.Fatalf("expected 72%% remaining, got %d", m.PercentRemaining)
	}
}

func TestPurchaseItemWrongCategory(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.PurchaseItem(context.Background(), "8月", 2, 101, core.Money{Cents: 28000})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for category mismatch, got %v", err)
	}
}

func TestCategoryItems(t *testing.T) {
	svc := newTestService(t)

	view, err := svc.CategoryItems(context.Background(), "8月", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(view.Items) != 1 || view.Items[0].ID != 101 {
		t.Fatalf("expected the planned item, got %+v", view.Items)
	}
	if view.RemainingBudget.Cents != 100000 {
		t.Fatalf("nothing purchased yet, expected 100000 remaining, got %d", view.RemainingBudget.Cents)
	}

	if _, err := svc.CategoryItems(context.Background(), "8月", 99); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestExpensesPagination(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.RecordExpense(ctx, core.Expense{
			Title:      "item",
			Price:      core.Money{Cents: 100},
			CategoryID: 1,
			Status:     core.StatusPurchased,
			Date:       time.Date(2025, time.August, i+1, 0, 0, 0, 0, time.UTC),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	page, err := svc.Expenses(ctx, ledger.ExpenseFilter{Month: "8月"}, 1, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Total != 6 || len(page.Items) != 4 {
		t.Fatalf("expected total 6 page of 4, got total=%d len=%d", page.Total, len(page.Items))
	}

	page, _ = svc.Expenses(ctx, ledger.ExpenseFilter{Month: "8月"}, 2, 4)
	if len(page.Items) != 2 {
		t.Fatalf("expected 2 items on last page, got %d", len(page.Items))
	}

	// Out-of-range pages keep the real total.
	page, _ = svc.Expenses(ctx, ledger.ExpenseFilter{Month: "8月"}, 9, 4)
	if page.Total != 6 || len(page.Items) != 0 {
		t.Fatalf("expected empty page with total 6, got total=%d len=%d", page.Total, len(page.Items))
	}

	// Defaults apply for nonsense paging input.
	page, _ = svc.Expenses(ctx, ledger.ExpenseFilter{Month: "8月"}, 0, -3)
	if page.Page != 1 || page.PageSize != defaultPageSize {
		t.Fatalf("expected defaults, got page=%d size=%d", page.Page, page.PageSize)
	}
}

func TestRecordExpenseDefaultsDate(t *testing.T) {
	svc := newTestService(t)

	e, err := svc.RecordExpense(context.Background(), core.Expense{
		Title:      "now",
		Price:      core.Money{Cents: 500},
		CategoryID: 1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Date.IsZero() {
		t.Fatal("date should default to now")
	}
}
