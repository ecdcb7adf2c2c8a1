package core

import "math"

// BudgetPalette is the category color cycle used by the budget views.
// A category's color is palette[catalogIndex % len(palette)]: it depends on
// the category's position in the catalog, not on its identity. Reordering
// the catalog reassigns colors. This is the documented contract, inherited
// from the app's visual design.
var BudgetPalette = []string{
	"#FFE66D", // food
	"#4A90E2", // shopping
	"#FF9A56", // medical
	"#52C77F", // lifestyle
	"#E8E8E8", // clothing
}

// NeutralColor fills the chart when a month has no data.
const NeutralColor = "#E8E8E8"

// CategoryMetrics is derived state, computed per category per month.
// It is never stored; callers recompute it from the catalog, the month's
// allocations and the expense ledger.
type CategoryMetrics struct {
	CategoryID       int64
	Name             string
	Amount           Money
	Spent            Money
	PercentRemaining int
	Color            string
}

// ColorForIndex maps a catalog position to a palette color.
func ColorForIndex(i int, palette []string) string {
	if len(palette) == 0 {
		return NeutralColor
	}
	if i < 0 {
		i = 0
	}
	return palette[i%len(palette)]
}

// ColorOf resolves a category's color from its catalog position.
// The second return is false when the id is not in the catalog.
func ColorOf(catalog []Category, id int64, palette []string) (string, bool) {
	for i, c := range catalog {
		if c.ID == id {
			return ColorForIndex(i, palette), true
		}
	}
	return NeutralColor, false
}

// PercentRemaining computes round(((amount-spent)/amount)*100) clamped to
// [0, 100]. A zero amount yields 0, never NaN. Overspend clamps to 0,
// never negative.
func PercentRemaining(amount, spent Money) int {
	if amount.Cents <= 0 {
		return 0
	}
	pct := int(math.Round(float64(amount.Cents-spent.Cents) / float64(amount.Cents) * 100))
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return pct
}

// SpentInMonth sums purchased expense prices for one category in one month.
// Planned expenses do not count until confirmed.
func SpentInMonth(expenses []Expense, categoryID int64, month Month) Money {
	var total Money
	for _, e := range expenses {
		if e.CategoryID != categoryID || e.Status != StatusPurchased {
			continue
		}
		if MonthOfDate(e.Date) != month {
			continue
		}
		total = total.Add(e.Price)
	}
	return total
}

// MonthTotalBudget sums the month's allocation amounts.
func MonthTotalBudget(mb MonthlyBudget) Money {
	var total Money
	for _, a := range mb.Allocations {
		total = total.Add(a.Amount)
	}
	return total
}

// allocationFor finds the month's allocation for a category, if any.
func allocationFor(mb MonthlyBudget, categoryID int64) (Allocation, bool) {
	for _, a := range mb.Allocations {
		if a.CategoryID == categoryID {
			return a, true
		}
	}
	return Allocation{}, false
}

// ComputeCategoryMetrics derives one category's metrics for a month.
// It is a pure read-and-fold: inputs are never mutated, and unchanged
// inputs produce structurally equal output. A category without an
// allocation reports a zero amount (and therefore 0 percent remaining).
func ComputeCategoryMetrics(catalog []Category, mb MonthlyBudget, expenses []Expense, categoryID int64, palette []string) (CategoryMetrics, error) {
	var cat Category
	idx := -1
	for i, c := range catalog {
		if c.ID == categoryID {
			cat = c
			idx = i
			break
		}
	}
	if idx < 0 {
		return CategoryMetrics{}, ErrUnknownCategory
	}

	var amount Money
	if alloc, ok := allocationFor(mb, categoryID); ok {
		amount = alloc.Amount
	}
	spent := SpentInMonth(expenses, categoryID, mb.Month)

	return CategoryMetrics{
		CategoryID:       cat.ID,
		Name:             cat.Name,
		Amount:           amount,
		Spent:            spent,
		PercentRemaining: PercentRemaining(amount, spent),
		Color:            ColorForIndex(idx, palette),
	}, nil
}

// ComputeMonthMetrics derives metrics for every category that holds an
// allocation in the month, in catalog insertion order so colors stay stable
// across recomputation.
func ComputeMonthMetrics(catalog []Category, mb MonthlyBudget, expenses []Expense, palette []string) []CategoryMetrics {
	out := make([]CategoryMetrics, 0, len(mb.Allocations))
	for i, c := range catalog {
		alloc, ok := allocationFor(mb, c.ID)
		if !ok {
			continue
		}
		spent := SpentInMonth(expenses, c.ID, mb.Month)
		out = append(out, CategoryMetrics{
			CategoryID:       c.ID,
			Name:             c.Name,
			Amount:           alloc.Amount,
			Spent:            spent,
			PercentRemaining: PercentRemaining(alloc.Amount, spent),
			Color:            ColorForIndex(i, palette),
		})
	}
	return out
}
