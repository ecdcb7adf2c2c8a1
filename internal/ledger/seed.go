package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"kakebo/internal/core"
)

// Seed is the persisted JSON document the mock backend loads at startup:
// { categoriesCatalog, monthlyBudgets, expenses }.
type Seed struct {
	CategoriesCatalog []SeedCategory      `json:"categoriesCatalog"`
	MonthlyBudgets    []SeedMonthlyBudget `json:"monthlyBudgets"`
	Expenses          []SeedExpense       `json:"expenses"`
}

type SeedCategory struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type SeedMonthlyBudget struct {
	Month      string           `json:"month"`
	Categories []SeedAllocation `json:"categories"`
}

type SeedAllocation struct {
	CategoryID  int64 `json:"categoryId"`
	AmountCents int64 `json:"amountCents"`
}

type SeedExpense struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	PriceCents    int64  `json:"priceCents"`
	CategoryID    int64  `json:"categoryId"`
	Source        string `json:"source"`
	PaymentMethod string `json:"paymentMethod"`
	Status        string `json:"status"`
	Date          string `json:"date"` // 2006-01-02
}

// LoadSeed reads and decodes a seed document from disk.
func LoadSeed(path string) (Seed, error) {
	var seed Seed
	data, err := os.ReadFile(path)
	if err != nil {
		return seed, fmt.Errorf("read seed file: %w", err)
	}
	if err := json.Unmarshal(data, &seed); err != nil {
		return seed, fmt.Errorf("decode seed file: %w", err)
	}
	return seed, nil
}

// Categories converts the catalog section to domain values, preserving
// document order.
func (s Seed) Categories() ([]core.Category, error) {
	out := make([]core.Category, 0, len(s.CategoriesCatalog))
	for _, c := range s.CategoriesCatalog {
		cat := core.Category{ID: c.ID, Name: c.Name}
		if err := cat.Validate(); err != nil {
			return nil, fmt.Errorf("seed category %d: %w", c.ID, err)
		}
		out = append(out, cat)
	}
	return out, nil
}

// Budgets converts the monthly budget section to domain values.
func (s Seed) Budgets() ([]core.MonthlyBudget, error) {
	out := make([]core.MonthlyBudget, 0, len(s.MonthlyBudgets))
	for _, mb := range s.MonthlyBudgets {
		month, err := core.ParseMonth(mb.Month)
		if err != nil {
			return nil, fmt.Errorf("seed month %q: %w", mb.Month, err)
		}
		budget := core.MonthlyBudget{Month: month}
		for _, a := range mb.Categories {
			alloc := core.Allocation{CategoryID: a.CategoryID, Amount: core.Money{Cents: a.AmountCents}}
			if err := alloc.Validate(); err != nil {
				return nil, fmt.Errorf("seed allocation month=%s category=%d: %w", month, a.CategoryID, err)
			}
			budget.Allocations = append(budget.Allocations, alloc)
		}
		out = append(out, budget)
	}
	return out, nil
}

// ExpenseRecords converts the expense section to domain values.
func (s Seed) ExpenseRecords() ([]core.Expense, error) {
	out := make([]core.Expense, 0, len(s.Expenses))
	for _, e := range s.Expenses {
		date, err := time.Parse("2006-01-02", e.Date)
		if err != nil {
			return nil, fmt.Errorf("seed expense %d date %q: %w", e.ID, e.Date, err)
		}
		exp := core.Expense{
			ID:            e.ID,
			Title:         e.Title,
			Price:         core.Money{Cents: e.PriceCents},
			CategoryID:    e.CategoryID,
			Source:        e.Source,
			PaymentMethod: e.PaymentMethod,
			Status:        core.ExpenseStatus(e.Status),
			Date:          date,
		}
		if err := exp.Validate(); err != nil {
			return nil, fmt.Errorf("seed expense %d: %w", e.ID, err)
		}
		out = append(out, exp)
	}
	return out, nil
}
