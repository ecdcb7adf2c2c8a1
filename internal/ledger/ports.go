// Package ledger defines the ports the budget service talks through.
// Implementations live in ledger/memory (seeded, in-process) and in
// storage (SQLite).
package ledger

import (
	"context"

	"kakebo/internal/core"
)

// ExpenseFilter narrows ListExpenses. Month is required; CategoryID and
// Status are optional (zero value matches everything).
type ExpenseFilter struct {
	Month      core.Month
	CategoryID int64
	Status     core.ExpenseStatus
}

type (
	// CatalogStore is the source of truth for category identity.
	CatalogStore interface {
		// EnsureCategory returns the category with the exact given name,
		// creating it at the end of the catalog when absent. Repeated calls
		// with the same name return the same category.
		EnsureCategory(ctx context.Context, name string) (core.Category, error)

		// ListCategories returns the catalog in insertion order.
		ListCategories(ctx context.Context) ([]core.Category, error)

		// DeleteCategory removes a category that has no dependent
		// allocations or expenses. It fails with core.ErrNotFound for an
		// unknown id and with a conflict error while dependents exist.
		DeleteCategory(ctx context.Context, id int64) error
	}

	// AllocationStore keeps the per-month budget allocations.
	AllocationStore interface {
		// MonthBudget returns the month's entry. An unknown month yields an
		// empty entry, not an error.
		MonthBudget(ctx context.Context, month core.Month) (core.MonthlyBudget, error)

		// SetAllocation upserts the (category, amount) pair within the
		// month, inserting the month entry on first write.
		SetAllocation(ctx context.Context, month core.Month, categoryID int64, amount core.Money) error

		// RemoveAllocation removes the pair if present; absent pairs are a
		// no-op, not an error.
		RemoveAllocation(ctx context.Context, month core.Month, categoryID int64) error

		// MonthTotalBudget sums the month's allocations; 0 for an unknown
		// month.
		MonthTotalBudget(ctx context.Context, month core.Month) (core.Money, error)
	}

	// ExpenseStore is the append-mostly expense ledger.
	ExpenseStore interface {
		// RecordExpense validates and stores the expense, assigning a fresh
		// id. Status defaults to purchased, date to now.
		RecordExpense(ctx context.Context, e core.Expense) (core.Expense, error)

		// GetExpense returns one expense by id, core.ErrNotFound when
		// unknown.
		GetExpense(ctx context.Context, id int64) (core.Expense, error)

		// MarkPurchased transitions an expense to purchased and overwrites
		// its price with the actually-paid amount. Unknown ids fail with
		// core.ErrNotFound.
		MarkPurchased(ctx context.Context, id int64, finalPrice core.Money) (core.Expense, error)

		// ListExpenses returns matching expenses, most recent date first,
		// ties broken by title.
		ListExpenses(ctx context.Context, f ExpenseFilter) ([]core.Expense, error)
	}

	// Store is the full ledger surface.
	Store interface {
		CatalogStore
		AllocationStore
		ExpenseStore
	}
)
