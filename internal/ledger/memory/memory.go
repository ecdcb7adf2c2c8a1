// Package memory implements the ledger ports on in-process state.
//
// The store replaces the mock API's module-level arrays with an explicit
// repository: state is injected through a seed document, and Reset restores
// it, so tests can run against independent instances instead of one
// implicit global.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"kakebo/internal/core"
	"kakebo/internal/ledger"
)

type Store struct {
	mu       sync.Mutex
	catalog  []core.Category
	budgets  map[core.Month]core.MonthlyBudget
	expenses []core.Expense

	nextCategoryID int64
	nextExpenseID  int64

	seed ledger.Seed
}

// New builds a store from a seed document. The seed is retained for Reset.
func New(seed ledger.Seed) (*Store, error) {
	s := &Store{seed: seed}
	if err := s.load(seed); err != nil {
		return nil, err
	}
	return s, nil
}

// NewFromFile loads the persisted JSON document from disk. A missing file
// yields an empty store, matching the dev workflow where seed data is
// optional.
func NewFromFile(path string) (*Store, error) {
	seed, err := ledger.LoadSeed(path)
	if err != nil {
		return New(ledger.Seed{})
	}
	return New(seed)
}

// Reset discards all mutations and reloads the retained seed.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(s.seed)
}

func (s *Store) load(seed ledger.Seed) error {
	catalog, err := seed.Categories()
	if err != nil {
		return err
	}
	budgets, err := seed.Budgets()
	if err != nil {
		return err
	}
	expenses, err := seed.ExpenseRecords()
	if err != nil {
		return err
	}

	s.catalog = catalog
	s.budgets = make(map[core.Month]core.MonthlyBudget, len(budgets))
	for _, mb := range budgets {
		s.budgets[mb.Month] = mb
	}
	s.expenses = expenses

	s.nextCategoryID = 1
	for _, c := range catalog {
		if c.ID >= s.nextCategoryID {
			s.nextCategoryID = c.ID + 1
		}
	}
	s.nextExpenseID = 1
	for _, e := range expenses {
		if e.ID >= s.nextExpenseID {
			s.nextExpenseID = e.ID + 1
		}
	}
	return nil
}

// EnsureCategory implements ledger.CatalogStore. Lookup is a case-sensitive
// exact match on the name; a miss appends a fresh category at the end of
// the catalog so its color slot is stable from then on.
func (s *Store) EnsureCategory(_ context.Context, name string) (core.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Category{}, core.ErrEmptyName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.catalog {
		if c.Name == name {
			return c, nil
		}
	}

	cat := core.Category{ID: s.nextCategoryID, Name: name}
	s.nextCategoryID++
	s.catalog = append(s.catalog, cat)
	return cat, nil
}

// ListCategories implements ledger.CatalogStore.
func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Category(nil), s.catalog...), nil
}

// DeleteCategory implements ledger.CatalogStore. Deletion is rejected while
// any allocation or expense still references the category.
func (s *Store) DeleteCategory(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, c := range s.catalog {
		if c.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("category %d: %w", id, core.ErrNotFound)
	}
	for _, mb := range s.budgets {
		for _, a := range mb.Allocations {
			if a.CategoryID == id {
				return fmt.Errorf("category %d has allocations in %s: %w", id, mb.Month, core.ErrConflict)
			}
		}
	}
	for _, e := range s.expenses {
		if e.CategoryID == id {
			return fmt.Errorf("category %d has recorded expenses: %w", id, core.ErrConflict)
		}
	}
	s.catalog = append(s.catalog[:idx], s.catalog[idx+1:]...)
	return nil
}

// MonthBudget implements ledger.AllocationStore.
func (s *Store) MonthBudget(_ context.Context, month core.Month) (core.MonthlyBudget, error) {
	if err := month.Validate(); err != nil {
		return core.MonthlyBudget{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	mb, ok := s.budgets[month]
	if !ok {
		return core.MonthlyBudget{Month: month}, nil
	}
	out := core.MonthlyBudget{Month: mb.Month}
	out.Allocations = append(out.Allocations, mb.Allocations...)
	return out, nil
}

// SetAllocation implements ledger.AllocationStore. Writing an existing
// (month, category) pair updates it in place; it never duplicates.
func (s *Store) SetAllocation(_ context.Context, month core.Month, categoryID int64, amount core.Money) error {
	if err := month.Validate(); err != nil {
		return err
	}
	if err := amount.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.categoryExists(categoryID) {
		return fmt.Errorf("category %d: %w", categoryID, core.ErrUnknownCategory)
	}

	mb, ok := s.budgets[month]
	if !ok {
		mb = core.MonthlyBudget{Month: month}
	}
	for i, a := range mb.Allocations {
		if a.CategoryID == categoryID {
			mb.Allocations[i].Amount = amount
			s.budgets[month] = mb
			return nil
		}
	}
	mb.Allocations = append(mb.Allocations, core.Allocation{CategoryID: categoryID, Amount: amount})
	s.budgets[month] = mb
	return nil
}

// RemoveAllocation implements ledger.AllocationStore. Removing an absent
// pair succeeds silently.
func (s *Store) RemoveAllocation(_ context.Context, month core.Month, categoryID int64) error {
	if err := month.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	mb, ok := s.budgets[month]
	if !ok {
		return nil
	}
	for i, a := range mb.Allocations {
		if a.CategoryID == categoryID {
			mb.Allocations = append(mb.Allocations[:i], mb.Allocations[i+1:]...)
			s.budgets[month] = mb
			return nil
		}
	}
	return nil
}

// MonthTotalBudget implements ledger.AllocationStore.
func (s *Store) MonthTotalBudget(_ context.Context, month core.Month) (core.Money, error) {
	if err := month.Validate(); err != nil {
		return core.Money{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	mb, ok := s.budgets[month]
	if !ok {
		return core.Money{}, nil
	}
	return core.MonthTotalBudget(mb), nil
}

// RecordExpense implements ledger.ExpenseStore. The referenced category
// must already exist; auto-provisioning by name is the caller's job.
func (s *Store) RecordExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	if e.Status == "" {
		e.Status = core.StatusPurchased
	}
	if e.Date.IsZero() {
		e.Date = time.Now()
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.categoryExists(e.CategoryID) {
		return core.Expense{}, fmt.Errorf("category %d: %w", e.CategoryID, core.ErrUnknownCategory)
	}

	e.ID = s.nextExpenseID
	s.nextExpenseID++
	s.expenses = append(s.expenses, e)
	return e, nil
}

// GetExpense implements ledger.ExpenseStore.
func (s *Store) GetExpense(_ context.Context, id int64) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.expenses {
		if e.ID == id {
			return e, nil
		}
	}
	return core.Expense{}, fmt.Errorf("expense %d: %w", id, core.ErrNotFound)
}

// MarkPurchased implements ledger.ExpenseStore. The final price overwrites
// the stored one: the actually-paid amount may differ from the listed
// estimate.
func (s *Store) MarkPurchased(_ context.Context, id int64, finalPrice core.Money) (core.Expense, error) {
	if err := finalPrice.Validate(); err != nil {
		return core.Expense{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.expenses {
		if e.ID == id {
			s.expenses[i].Status = core.StatusPurchased
			s.expenses[i].Price = finalPrice
			return s.expenses[i], nil
		}
	}
	return core.Expense{}, fmt.Errorf("expense %d: %w", id, core.ErrNotFound)
}

// ListExpenses implements ledger.ExpenseStore.
func (s *Store) ListExpenses(_ context.Context, f ledger.ExpenseFilter) ([]core.Expense, error) {
	if err := f.Month.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Expense
	for _, e := range s.expenses {
		if core.MonthOfDate(e.Date) != f.Month {
			continue
		}
		if f.CategoryID != 0 && e.CategoryID != f.CategoryID {
			continue
		}
		if f.Status != "" && e.Status != f.Status {
			continue
		}
		out = append(out, e)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].Title < out[j].Title
	})
	return out, nil
}

func (s *Store) categoryExists(id int64) bool {
	for _, c := range s.catalog {
		if c.ID == id {
			return true
		}
	}
	return false
}
