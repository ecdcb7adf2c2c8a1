// Package services holds the application layer: BudgetService is the
// facade the HTTP handlers call, PurchaseController drives the optimistic
// purchase workflow on top of it.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"kakebo/internal/amqp"
	"kakebo/internal/core"
	"kakebo/internal/ledger"
)

// EventPublisher is the outbound event port. Publishing happens after the
// local write succeeded and is best-effort; the ledger stays the source of
// truth.
type EventPublisher interface {
	PublishPurchaseConfirmed(ctx context.Context, msg *amqp.PurchaseConfirmedMessage) error
	PublishBudgetChanged(ctx context.Context, msg *amqp.BudgetChangedMessage) error
}

// BudgetData is the month header returned alongside the category rows.
type BudgetData struct {
	Month       core.Month
	TotalBudget core.Money
	Categories  []core.CategoryMetrics
}

// CategoryItems is one category's view for the purchase screen: the
// still-planned items plus what is left of the allocation.
type CategoryItems struct {
	Category        core.Category
	Items           []core.Expense
	RemainingBudget core.Money
}

// PurchaseResult is the authoritative outcome of a confirmed purchase.
type PurchaseResult struct {
	Item            core.Expense
	RemainingBudget core.Money
}

// ExpensePage is a pagination envelope over the expense ledger.
type ExpensePage struct {
	Items    []core.Expense
	Total    int
	Page     int
	PageSize int
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type BudgetService struct {
	store  ledger.Store
	events EventPublisher
}

// NewBudgetService wires the facade. events may be nil when no broker is
// configured.
func NewBudgetService(store ledger.Store, events EventPublisher) *BudgetService {
	return &BudgetService{store: store, events: events}
}

// Categories returns the catalog in insertion order.
func (s *BudgetService) Categories(ctx context.Context) ([]core.Category, error) {
	return s.store.ListCategories(ctx)
}

// DeleteCategory removes an unused category from the catalog.
func (s *BudgetService) DeleteCategory(ctx context.Context, id int64) error {
	return s.store.DeleteCategory(ctx, id)
}

// BudgetData loads one month's budget view. The three reads are
// independent, so they run concurrently.
func (s *BudgetService) BudgetData(ctx context.Context, month core.Month) (BudgetData, error) {
	catalog, mb, expenses, err := s.monthInputs(ctx, month)
	if err != nil {
		return BudgetData{}, err
	}
	return BudgetData{
		Month:       month,
		TotalBudget: core.MonthTotalBudget(mb),
		Categories:  core.ComputeMonthMetrics(catalog, mb, expenses, core.BudgetPalette),
	}, nil
}

// MonthMetrics computes the per-category rows for a month.
func (s *BudgetService) MonthMetrics(ctx context.Context, month core.Month) ([]core.CategoryMetrics, error) {
	catalog, mb, expenses, err := s.monthInputs(ctx, month)
	if err != nil {
		return nil, err
	}
	return core.ComputeMonthMetrics(catalog, mb, expenses, core.BudgetPalette), nil
}

// CategoryMetrics computes one category's row for a month.
func (s *BudgetService) CategoryMetrics(ctx context.Context, month core.Month, categoryID int64) (core.CategoryMetrics, error) {
	catalog, mb, expenses, err := s.monthInputs(ctx, month)
	if err != nil {
		return core.CategoryMetrics{}, err
	}
	return core.ComputeCategoryMetrics(catalog, mb, expenses, categoryID, core.BudgetPalette)
}

func (s *BudgetService) monthInputs(ctx context.Context, month core.Month) ([]core.Category, core.MonthlyBudget, []core.Expense, error) {
	if err := month.Validate(); err != nil {
		return nil, core.MonthlyBudget{}, nil, err
	}

	var (
		catalog  []core.Category
		mb       core.MonthlyBudget
		expenses []core.Expense
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		catalog, err = s.store.ListCategories(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		mb, err = s.store.MonthBudget(gctx, month)
		return err
	})
	g.Go(func() error {
		var err error
		expenses, err = s.store.ListExpenses(gctx, ledger.ExpenseFilter{Month: month})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, core.MonthlyBudget{}, nil, err
	}
	return catalog, mb, expenses, nil
}

// CategoryRef selects the category for an allocation: an existing catalog
// entry by ID, or one provisioned by Name when the ID is zero.
type CategoryRef struct {
	ID   int64
	Name string
}

// AddCategoryToMonth allocates a budget for a category within a month. A
// reference by ID must name an existing catalog entry; a reference by name
// provisions the catalog first, so adding "食物" to two months yields one
// catalog entry with a stable color slot.
func (s *BudgetService) AddCategoryToMonth(ctx context.Context, month core.Month, ref CategoryRef, amount core.Money) ([]core.CategoryMetrics, error) {
	var (
		cat core.Category
		err error
	)
	if ref.ID > 0 {
		cat, err = s.findCategory(ctx, ref.ID)
	} else {
		cat, err = s.store.EnsureCategory(ctx, ref.Name)
	}
	if err != nil {
		return nil, err
	}
	if err := s.store.SetAllocation(ctx, month, cat.ID, amount); err != nil {
		return nil, err
	}

	s.publishBudgetChanged(ctx, month, cat.ID, amount, false)
	return s.MonthMetrics(ctx, month)
}

// UpdateCategoryAmount overwrites the allocation for an already-known
// category.
func (s *BudgetService) UpdateCategoryAmount(ctx context.Context, month core.Month, categoryID int64, amount core.Money) ([]core.CategoryMetrics, error) {
	if err := s.store.SetAllocation(ctx, month, categoryID, amount); err != nil {
		return nil, err
	}

	s.publishBudgetChanged(ctx, month, categoryID, amount, false)
	return s.MonthMetrics(ctx, month)
}

// RemoveCategoryFromMonth drops the allocation. The catalog entry and any
// recorded expenses stay.
func (s *BudgetService) RemoveCategoryFromMonth(ctx context.Context, month core.Month, categoryID int64) ([]core.CategoryMetrics, error) {
	if err := s.store.RemoveAllocation(ctx, month, categoryID); err != nil {
		return nil, err
	}

	s.publishBudgetChanged(ctx, month, categoryID, core.Money{}, true)
	return s.MonthMetrics(ctx, month)
}

// Expenses returns one page of the ledger, most recent first. Page numbers
// start at 1; out-of-range pages yield an empty item list with the real
// total.
func (s *BudgetService) Expenses(ctx context.Context, f ledger.ExpenseFilter, page, pageSize int) (ExpensePage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	all, err := s.store.ListExpenses(ctx, f)
	if err != nil {
		return ExpensePage{}, err
	}

	out := ExpensePage{Total: len(all), Page: page, PageSize: pageSize}
	start := (page - 1) * pageSize
	if start < len(all) {
		end := start + pageSize
		if end > len(all) {
			end = len(all)
		}
		out.Items = all[start:end]
	}
	return out, nil
}

// RecordExpense stores a new ledger entry. The category must exist; the
// date defaults to now.
func (s *BudgetService) RecordExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if e.Date.IsZero() {
		e.Date = time.Now()
	}
	return s.store.RecordExpense(ctx, e)
}

// CategoryItems loads the purchase screen's inputs for one category: its
// planned items and the remaining allocation.
func (s *BudgetService) CategoryItems(ctx context.Context, month core.Month, categoryID int64) (CategoryItems, error) {
	cat, err := s.findCategory(ctx, categoryID)
	if err != nil {
		return CategoryItems{}, err
	}

	planned, err := s.store.ListExpenses(ctx, ledger.ExpenseFilter{
		Month:      month,
		CategoryID: categoryID,
		Status:     core.StatusPlanned,
	})
	if err != nil {
		return CategoryItems{}, err
	}
	remaining, _, err := s.remainingBudget(ctx, month, categoryID)
	if err != nil {
		return CategoryItems{}, err
	}
	return CategoryItems{Category: cat, Items: planned, RemainingBudget: remaining}, nil
}

// PurchaseItem confirms a planned expense: the actually-paid amount
// overwrites the listed price, the status flips to purchased, and the
// fresh remaining budget is returned. The expense must belong to the given
// category.
func (s *BudgetService) PurchaseItem(ctx context.Context, month core.Month, categoryID, expenseID int64, paid core.Money) (PurchaseResult, error) {
	if err := month.Validate(); err != nil {
		return PurchaseResult{}, err
	}
	if err := paid.Validate(); err != nil {
		return PurchaseResult{}, err
	}

	existing, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return PurchaseResult{}, err
	}
	if existing.CategoryID != categoryID {
		return PurchaseResult{}, fmt.Errorf("expense %d not in category %d: %w", expenseID, categoryID, core.ErrNotFound)
	}

	item, err := s.store.MarkPurchased(ctx, expenseID, paid)
	if err != nil {
		return PurchaseResult{}, err
	}

	remaining, spent, err := s.remainingBudget(ctx, month, categoryID)
	if err != nil {
		return PurchaseResult{}, err
	}

	s.publishPurchaseConfirmed(ctx, item, month, spent, remaining)
	return PurchaseResult{Item: item, RemainingBudget: remaining}, nil
}

// remainingBudget is allocation minus purchased spend, floored at zero.
func (s *BudgetService) remainingBudget(ctx context.Context, month core.Month, categoryID int64) (remaining, spent core.Money, err error) {
	mb, err := s.store.MonthBudget(ctx, month)
	if err != nil {
		return core.Money{}, core.Money{}, err
	}
	purchased, err := s.store.ListExpenses(ctx, ledger.ExpenseFilter{
		Month:      month,
		CategoryID: categoryID,
		Status:     core.StatusPurchased,
	})
	if err != nil {
		return core.Money{}, core.Money{}, err
	}

	var allocated core.Money
	for _, a := range mb.Allocations {
		if a.CategoryID == categoryID {
			allocated = a.Amount
			break
		}
	}
	spent = core.SpentInMonth(purchased, categoryID, month)
	return allocated.Sub(spent), spent, nil
}

func (s *BudgetService) findCategory(ctx context.Context, id int64) (core.Category, error) {
	catalog, err := s.store.ListCategories(ctx)
	if err != nil {
		return core.Category{}, err
	}
	for _, c := range catalog {
		if c.ID == id {
			return c, nil
		}
	}
	return core.Category{}, fmt.Errorf("category %d: %w", id, core.ErrNotFound)
}

func (s *BudgetService) publishPurchaseConfirmed(ctx context.Context, item core.Expense, month core.Month, spent, remaining core.Money) {
	if s.events == nil {
		return
	}
	err := s.events.PublishPurchaseConfirmed(ctx, &amqp.PurchaseConfirmedMessage{
		ExpenseID:      item.ID,
		CategoryID:     item.CategoryID,
		Month:          string(month),
		PriceCents:     item.Price.Cents,
		SpentCents:     spent.Cents,
		RemainingCents: remaining.Cents,
		Timestamp:      time.Now(),
	})
	if err != nil {
		slog.WarnContext(ctx, "Failed to publish purchase event", "expense_id", item.ID, "error", err)
	}
}

func (s *BudgetService) publishBudgetChanged(ctx context.Context, month core.Month, categoryID int64, amount core.Money, removed bool) {
	if s.events == nil {
		return
	}
	err := s.events.PublishBudgetChanged(ctx, &amqp.BudgetChangedMessage{
		Month:       string(month),
		CategoryID:  categoryID,
		AmountCents: amount.Cents,
		Removed:     removed,
		Timestamp:   time.Now(),
	})
	if err != nil {
		slog.WarnContext(ctx, "Failed to publish budget event", "month", month, "category_id", categoryID, "error", err)
	}
}
